package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mattilda/school-ledger/ledger"
)

func invoiceWith(status ledger.InvoiceStatus, due string) ledger.Invoice {
	return ledger.Invoice{
		Amount:      money("100"),
		TaxAmount:   money("0"),
		TotalAmount: money("100"),
		InvoiceDate: day("2024-01-01"),
		DueDate:     day(due),
		Status:      status,
	}
}

func TestClassify(t *testing.T) {
	asOf := day("2024-06-01")

	cases := []struct {
		name string
		inv  ledger.Invoice
		want ledger.Bucket
	}{
		{"paid", invoiceWith(ledger.StatusPaid, "2024-01-31"), ledger.BucketPaid},
		{"paid long after due date", invoiceWith(ledger.StatusPaid, "2020-01-01"), ledger.BucketPaid},
		{"pending due in future", invoiceWith(ledger.StatusPending, "2024-07-01"), ledger.BucketPending},
		{"pending due today", invoiceWith(ledger.StatusPending, "2024-06-01"), ledger.BucketPending},
		{"pending past due", invoiceWith(ledger.StatusPending, "2024-05-31"), ledger.BucketOverdue},
		{"legacy overdue not yet due", invoiceWith(ledger.StatusOverdue, "2024-12-31"), ledger.BucketOverdue},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ledger.Classify(tc.inv, asOf))
		})
	}
}

func TestClassify_CancelledFallsIntoPending(t *testing.T) {
	// GIVEN: A cancelled invoice whose due date has passed
	inv := invoiceWith(ledger.StatusCancelled, "2020-01-01")

	// WHEN: Classifying it
	// THEN: It is neither paid nor overdue, so it lands in pending
	assert.Equal(t, ledger.BucketPending, ledger.Classify(inv, day("2024-06-01")))
}
