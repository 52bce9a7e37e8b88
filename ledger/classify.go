package ledger

// =============================================================================
// BUCKETS - Mutually exclusive classification used by every statement
// =============================================================================

// Bucket is where an invoice lands on a statement. It is distinct from the
// stored status: a pending invoice past its due date is in BucketOverdue.
type Bucket string

const (
	BucketPaid    Bucket = "paid"
	BucketPending Bucket = "pending"
	BucketOverdue Bucket = "overdue"
)

// Classify assigns an invoice to exactly one bucket as of the given day.
//
//   - paid                              -> BucketPaid
//   - pending with due date before asOf -> BucketOverdue
//   - stored legacy overdue             -> BucketOverdue
//   - everything else                   -> BucketPending
//
// The fallback includes cancelled invoices, so a cancelled charge still
// counts toward charges and pending amount. This is the current product
// behavior and is pinned by TestClassify_CancelledFallsIntoPending.
func Classify(inv Invoice, asOf Date) Bucket {
	switch {
	case inv.Status == StatusPaid:
		return BucketPaid
	case inv.IsOverdue(asOf), inv.Status == StatusOverdue:
		return BucketOverdue
	default:
		return BucketPending
	}
}

// =============================================================================
// TALLY - Running sums for one student's invoices
// =============================================================================

// tally is the shared accumulator behind both statement kinds.
type tally struct {
	totalCharges  Money
	totalPayments Money
	pendingAmount Money
	paidAmount    Money
	overdueAmount Money

	totalInvoices   int
	pendingInvoices int
	paidInvoices    int
	overdueInvoices int
}

func newTally() tally {
	return tally{
		totalCharges:  Zero(),
		totalPayments: Zero(),
		pendingAmount: Zero(),
		paidAmount:    Zero(),
		overdueAmount: Zero(),
	}
}

// add books one invoice and returns its bucket.
func (t *tally) add(inv Invoice, asOf Date) Bucket {
	b := Classify(inv, asOf)
	t.totalCharges = t.totalCharges.Add(inv.TotalAmount)
	t.totalInvoices++

	switch b {
	case BucketPaid:
		t.totalPayments = t.totalPayments.Add(inv.TotalAmount)
		t.paidAmount = t.paidAmount.Add(inv.TotalAmount)
		t.paidInvoices++
	case BucketOverdue:
		t.overdueAmount = t.overdueAmount.Add(inv.TotalAmount)
		t.overdueInvoices++
	default:
		t.pendingAmount = t.pendingAmount.Add(inv.TotalAmount)
		t.pendingInvoices++
	}
	return b
}

// merge folds another tally in. School totals are built this way so they
// always equal the sum of the per-student rows.
func (t *tally) merge(o tally) {
	t.totalCharges = t.totalCharges.Add(o.totalCharges)
	t.totalPayments = t.totalPayments.Add(o.totalPayments)
	t.pendingAmount = t.pendingAmount.Add(o.pendingAmount)
	t.paidAmount = t.paidAmount.Add(o.paidAmount)
	t.overdueAmount = t.overdueAmount.Add(o.overdueAmount)
	t.totalInvoices += o.totalInvoices
	t.pendingInvoices += o.pendingInvoices
	t.paidInvoices += o.paidInvoices
	t.overdueInvoices += o.overdueInvoices
}

// currentBalance is unpaid charges of any kind, cancelled included.
func (t tally) currentBalance() Money {
	return t.totalCharges.Sub(t.totalPayments)
}
