package api

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattilda/school-ledger/ledger"
)

func newInvoiceBody(studentID ledger.StudentID) map[string]any {
	return map[string]any{
		"invoice_number": "INV-001",
		"student_id":     studentID,
		"amount":         100,
		"tax_amount":     10,
		"description":    "June tuition",
		"invoice_date":   "2024-06-01",
		"due_date":       "2024-06-30",
	}
}

func TestInvoiceLifecycle(t *testing.T) {
	// GIVEN: A student
	hs := newHarness(t)
	st := hs.student(hs.school("Lincoln").ID, "Ana", "Silva")

	// WHEN: An invoice is issued
	rec := hs.do(http.MethodPost, "/api/v1/invoices/", newInvoiceBody(st.ID))

	// THEN: It is pending with total = amount + tax and the student's school
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inv := decode[InvoiceDTO](t, rec)
	assert.Equal(t, ledger.StatusPending, inv.Status)
	assert.Equal(t, "110.00", inv.TotalAmount.String())
	assert.Equal(t, st.SchoolID, inv.SchoolID)
	assert.Nil(t, inv.PaymentMethod)
	assert.False(t, inv.IsOverdue)

	// WHEN: It is paid without a payment date
	rec = hs.do(http.MethodPost, "/api/v1/invoices/1/payment", map[string]any{
		"payment_method": "bank_transfer", "notes": "wire ref 42",
	})

	// THEN: It is paid today
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	inv = decode[InvoiceDTO](t, rec)
	assert.Equal(t, ledger.StatusPaid, inv.Status)
	require.NotNil(t, inv.PaymentDate)
	assert.Equal(t, "2024-06-01", inv.PaymentDate.String())
	require.NotNil(t, inv.PaymentMethod)
	assert.Equal(t, "bank_transfer", *inv.PaymentMethod)
	assert.Equal(t, "wire ref 42", inv.Notes)

	// WHEN: It is paid again or cancelled
	again := hs.do(http.MethodPost, "/api/v1/invoices/1/payment", map[string]any{"payment_method": "cash"})
	cancel := hs.do(http.MethodPost, "/api/v1/invoices/1/cancel", map[string]any{"reason": "oops"})

	// THEN: Both conflict and the stored invoice is unchanged
	assert.Equal(t, http.StatusConflict, again.Code)
	assert.Equal(t, "Invoice is already paid", decode[ErrorResponse](t, again).Error)
	assert.Equal(t, http.StatusConflict, cancel.Code)
	assert.Equal(t, "Cannot cancel a paid invoice", decode[ErrorResponse](t, cancel).Error)

	stored := decode[InvoiceDTO](t, hs.do(http.MethodGet, "/api/v1/invoices/1", nil))
	assert.Equal(t, ledger.StatusPaid, stored.Status)
	assert.Equal(t, "bank_transfer", *stored.PaymentMethod)

	assert.Equal(t, 1.0, testutil.ToFloat64(hs.handler.Metrics.transitions.WithLabelValues("create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(hs.handler.Metrics.transitions.WithLabelValues("pay")))
}

func TestCancelInvoice_WithoutBody(t *testing.T) {
	hs := newHarness(t)
	st := hs.student(hs.school("Lincoln").ID, "Ana", "Silva")
	hs.invoice(st, "100.00", "2024-05-01", "2024-05-31", false)

	req := hs.do(http.MethodPost, "/api/v1/invoices/1/cancel", nil)

	require.Equal(t, http.StatusOK, req.Code, req.Body.String())
	assert.Equal(t, ledger.StatusCancelled, decode[InvoiceDTO](t, req).Status)

	// Amounts are frozen once cancelled; notes are not.
	rec := hs.do(http.MethodPut, "/api/v1/invoices/1", map[string]any{"amount": 50})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = hs.do(http.MethodPut, "/api/v1/invoices/1", map[string]any{"notes": "duplicate charge"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Paying a cancelled invoice conflicts.
	rec = hs.do(http.MethodPost, "/api/v1/invoices/1/payment", map[string]any{"payment_method": "cash"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateInvoice_RecomputesTotal(t *testing.T) {
	hs := newHarness(t)
	st := hs.student(hs.school("Lincoln").ID, "Ana", "Silva")
	hs.invoice(st, "100.00", "2024-05-01", "2024-05-31", false)

	rec := hs.do(http.MethodPut, "/api/v1/invoices/1", map[string]any{"amount": 200, "tax_amount": 15.5})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	inv := decode[InvoiceDTO](t, rec)
	assert.Equal(t, "200.00", inv.Amount.String())
	assert.Equal(t, "215.50", inv.TotalAmount.String())
}

func TestUpdateInvoice_RejectedPatchLeavesInvoiceUntouched(t *testing.T) {
	hs := newHarness(t)
	st := hs.student(hs.school("Lincoln").ID, "Ana", "Silva")
	hs.invoice(st, "100.00", "2024-05-01", "2024-05-31", false)

	rec := hs.do(http.MethodPut, "/api/v1/invoices/1", map[string]any{"amount": 300, "due_date": "2024-04-01"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	stored := decode[InvoiceDTO](t, hs.do(http.MethodGet, "/api/v1/invoices/1", nil))
	assert.Equal(t, "100.00", stored.Amount.String())
	assert.Equal(t, "2024-05-31", stored.DueDate.String())
}

func TestCreateInvoice_Rejections(t *testing.T) {
	hs := newHarness(t)
	lincoln := hs.school("Lincoln")
	roosevelt := hs.school("Roosevelt")
	st := hs.student(lincoln.ID, "Ana", "Silva")

	tests := []struct {
		name   string
		mutate func(map[string]any)
		status int
		field  string
	}{
		{"zero amount", func(b map[string]any) { b["amount"] = 0 }, http.StatusBadRequest, "amount"},
		{"sub-cent amount", func(b map[string]any) { b["amount"] = 10.004 }, http.StatusBadRequest, "amount"},
		{"negative tax", func(b map[string]any) { b["tax_amount"] = -1 }, http.StatusBadRequest, "tax_amount"},
		{"due before issue", func(b map[string]any) { b["due_date"] = "2024-05-01" }, http.StatusBadRequest, "due_date"},
		{"school mismatch", func(b map[string]any) { b["school_id"] = roosevelt.ID }, http.StatusBadRequest, "school_id"},
		{"missing description", func(b map[string]any) { delete(b, "description") }, http.StatusBadRequest, "description"},
		{"unknown student", func(b map[string]any) { b["student_id"] = 99 }, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := newInvoiceBody(st.ID)
			tt.mutate(body)

			rec := hs.do(http.MethodPost, "/api/v1/invoices/", body)

			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.field != "" {
				resp := decode[map[string]any](t, rec)
				details, ok := resp["details"].(map[string]any)
				require.True(t, ok, rec.Body.String())
				assert.Contains(t, details, tt.field)
			}
		})
	}

	total := decode[ListResponse[InvoiceDTO]](t, hs.do(http.MethodGet, "/api/v1/invoices/", nil)).Total
	assert.Equal(t, 0, total, "no rejected invoice was stored")
}

func TestRecordPayment_BadMethod(t *testing.T) {
	hs := newHarness(t)
	st := hs.student(hs.school("Lincoln").ID, "Ana", "Silva")
	hs.invoice(st, "100.00", "2024-05-01", "2024-05-31", false)

	rec := hs.do(http.MethodPost, "/api/v1/invoices/1/payment", map[string]any{"payment_method": "bitcoin"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	stored := decode[InvoiceDTO](t, hs.do(http.MethodGet, "/api/v1/invoices/1", nil))
	assert.Equal(t, ledger.StatusPending, stored.Status)
}

func TestListInvoices_Filters(t *testing.T) {
	hs := newHarness(t)
	s := hs.school("Lincoln")
	ana := hs.student(s.ID, "Ana", "Silva")
	ben := hs.student(s.ID, "Ben", "Carter")
	hs.invoice(ana, "100.00", "2024-01-10", "2024-02-10", true)
	hs.invoice(ana, "200.00", "2024-04-10", "2024-05-10", false)
	hs.invoice(ben, "300.00", "2024-05-10", "2024-07-10", false)

	tests := []struct {
		query string
		total int
	}{
		{"", 3},
		{"?student_id=1", 2},
		{"?status=paid", 1},
		{"?status=PENDING", 2},
		{"?date_from=2024-04-10", 2},
		{"?date_from=2024-01-01&date_to=2024-04-10", 2},
		{"?school_id=1&student_id=2", 1},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := hs.do(http.MethodGet, "/api/v1/invoices/"+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.total, decode[ListResponse[InvoiceDTO]](t, rec).Total)
		})
	}

	assert.Equal(t, http.StatusBadRequest, hs.do(http.MethodGet, "/api/v1/invoices/?status=lost", nil).Code)
	assert.Equal(t, http.StatusBadRequest, hs.do(http.MethodGet, "/api/v1/invoices/?date_from=yesterday", nil).Code)
}

func TestInvoiceDTO_IsOverdueIsDerived(t *testing.T) {
	hs := newHarness(t)
	st := hs.student(hs.school("Lincoln").ID, "Ana", "Silva")
	hs.invoice(st, "100.00", "2024-04-01", "2024-05-01", false)

	rec := hs.do(http.MethodGet, "/api/v1/students/1/invoices", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[ListResponse[InvoiceDTO]](t, rec)
	require.Len(t, page.Items, 1)
	assert.True(t, page.Items[0].IsOverdue)
	assert.Equal(t, ledger.StatusPending, page.Items[0].Status, "stored status stays pending")
}

func TestDeleteInvoice(t *testing.T) {
	hs := newHarness(t)
	st := hs.student(hs.school("Lincoln").ID, "Ana", "Silva")
	hs.invoice(st, "100.00", "2024-04-01", "2024-05-01", false)

	assert.Equal(t, http.StatusOK, hs.do(http.MethodDelete, "/api/v1/invoices/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, hs.do(http.MethodDelete, "/api/v1/invoices/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, hs.do(http.MethodGet, "/api/v1/students/9/invoices", nil).Code)
}
