package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/mattilda/school-ledger/ledger"
	"go.uber.org/zap"
)

// =============================================================================
// INVOICE HANDLERS
// =============================================================================
//
// Every mutation loads the invoice, runs the ledger transition on a copy and
// persists the result only if the transition succeeded. A rejected
// transition leaves the stored row untouched.

// ListInvoices filters by student_id, school_id, status and invoice date
// (date_from, date_to; inclusive).
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	filter, err := invoiceFilter(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	invoices, total, err := h.Repo.FetchInvoices(r.Context(), filter, page)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.invoiceList(invoices, total, page))
}

func invoiceFilter(r *http.Request) (ledger.InvoiceFilter, error) {
	var f ledger.InvoiceFilter
	studentID, err := queryInt(r, "student_id")
	if err != nil {
		return f, err
	}
	if studentID != nil {
		id := ledger.StudentID(*studentID)
		f.StudentID = &id
	}
	schoolID, err := queryInt(r, "school_id")
	if err != nil {
		return f, err
	}
	if schoolID != nil {
		id := ledger.SchoolID(*schoolID)
		f.SchoolID = &id
	}
	if raw := queryString(r, "status"); raw != nil {
		st, err := ledger.ParseInvoiceStatus(*raw)
		if err != nil {
			return f, err
		}
		f.Status = &st
	}
	if f.InvoiceDateFrom, err = queryDate(r, "date_from"); err != nil {
		return f, err
	}
	if f.InvoiceDateTo, err = queryDate(r, "date_to"); err != nil {
		return f, err
	}
	return f, nil
}

func (h *Handler) invoiceList(invoices []ledger.Invoice, total int, page ledger.Page) ListResponse[InvoiceDTO] {
	today := h.today()
	resp := ListResponse[InvoiceDTO]{Items: make([]InvoiceDTO, 0, len(invoices)), Total: total, Offset: page.Offset, Limit: page.Limit}
	for _, inv := range invoices {
		resp.Items = append(resp.Items, toInvoiceDTO(inv, today))
	}
	return resp
}

func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv, h.today()))
}

// CreateInvoice issues a pending invoice. The school comes from the student;
// a school_id in the body must agree with it.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	ctx := r.Context()

	student, err := h.Repo.FetchStudent(ctx, req.StudentID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if student == nil {
		h.writeDomainError(w, r, &ledger.NotFoundError{Entity: "student", ID: int64(req.StudentID)})
		return
	}
	if req.SchoolID != 0 && req.SchoolID != student.SchoolID {
		h.writeDomainError(w, r, &ledger.ValidationError{Field: "school_id", Message: "school_id does not match the student's school"})
		return
	}

	draft := req.toDraft()
	draft.SchoolID = student.SchoolID
	inv, err := ledger.NewInvoice(draft)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	created, err := h.Repo.CreateInvoice(ctx, inv)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.invalidateInvoice(r, created)
	h.Metrics.transition("create")

	h.Logger.Info("invoice created",
		zap.Int64("invoice_id", int64(created.ID)),
		zap.Int64("student_id", int64(created.StudentID)),
		zap.Stringer("total_amount", created.TotalAmount))
	writeJSON(w, http.StatusCreated, toInvoiceDTO(created, h.today()))
}

// UpdateInvoice applies a partial update. Amount or tax changes recompute
// the total and are refused on cancelled invoices.
func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	var req UpdateInvoiceRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	inv, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}

	next, err := inv.Apply(req.toPatch())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.saveInvoice(w, r, next, "update")
}

// RecordPayment marks an invoice paid. payment_date defaults to today.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	inv, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}

	paid := h.today()
	if req.PaymentDate != nil {
		paid = *req.PaymentDate
	}
	next, err := inv.MarkAsPaid(paid, ledger.PaymentMethod(req.PaymentMethod), req.Notes)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.saveInvoice(w, r, next, "pay")
}

// CancelInvoice voids an invoice. The body is optional.
func (h *Handler) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := h.decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.writeDomainError(w, r, err)
		return
	}
	inv, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}

	next, err := inv.Cancel(req.Reason)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.saveInvoice(w, r, next, "cancel")
}

func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}
	deleted, err := h.Repo.DeleteInvoice(r.Context(), inv.ID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if !deleted {
		notFound(w, "Invoice")
		return
	}
	h.invalidateInvoice(r, *inv)
	h.Metrics.transition("delete")

	h.Logger.Info("invoice deleted", zap.Int64("invoice_id", int64(inv.ID)))
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Invoice deleted successfully"})
}

// =============================================================================
// HELPERS
// =============================================================================

// loadInvoice resolves {id}. On false the response has been written.
func (h *Handler) loadInvoice(w http.ResponseWriter, r *http.Request) (*ledger.Invoice, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return nil, false
	}
	inv, err := h.Repo.FetchInvoice(r.Context(), ledger.InvoiceID(id))
	if err != nil {
		h.writeDomainError(w, r, err)
		return nil, false
	}
	if inv == nil {
		notFound(w, "Invoice")
		return nil, false
	}
	return inv, true
}

func (h *Handler) saveInvoice(w http.ResponseWriter, r *http.Request, inv ledger.Invoice, action string) {
	saved, err := h.Repo.UpdateInvoice(r.Context(), inv)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.invalidateInvoice(r, saved)
	h.Metrics.transition(action)

	h.Logger.Info("invoice "+action,
		zap.Int64("invoice_id", int64(saved.ID)),
		zap.String("status", string(saved.Status)))
	writeJSON(w, http.StatusOK, toInvoiceDTO(saved, h.today()))
}

// invalidateInvoice drops the cached statements the invoice appears on.
func (h *Handler) invalidateInvoice(r *http.Request, inv ledger.Invoice) {
	h.invalidate(r, studentPrefix(int64(inv.StudentID)), schoolPrefix(int64(inv.SchoolID)))
}
