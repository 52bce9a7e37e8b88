/*
invoice.go - Invoice value and its lifecycle

STATE MACHINE:

	pending ──MarkAsPaid──► paid       (terminal)
	   │
	   └──────Cancel──────► cancelled  (terminal)

  Nothing leaves paid or cancelled. "Overdue" is not a state the lifecycle
  enters: it is derived at query time from a pending invoice whose due date
  has passed (see classify.go). Legacy rows may still carry a stored
  "overdue" status; they can be paid or cancelled like pending ones.

VALUE SEMANTICS:
  Invoice is a value. MarkAsPaid, Cancel and Apply return a new Invoice and
  leave the receiver untouched, so a statement running concurrently with a
  payment never observes a half-applied change.

INVARIANTS (checked by Validate on every construction and update):
  - Amount > 0
  - TaxAmount >= 0
  - TotalAmount == Amount + TaxAmount
  - DueDate >= InvoiceDate
  - status paid  => PaymentDate and PaymentMethod set
  - status !paid => no PaymentMethod
*/
package ledger

import "time"

// Invoice is one charge issued to a student by a school.
type Invoice struct {
	ID            InvoiceID
	InvoiceNumber string
	StudentID     StudentID
	SchoolID      SchoolID
	Amount        Money
	TaxAmount     Money
	TotalAmount   Money
	Description   string
	InvoiceDate   Date
	DueDate       Date
	Status        InvoiceStatus
	PaymentDate   *Date
	PaymentMethod PaymentMethod
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InvoiceDraft carries the caller-supplied fields of a new invoice.
// A zero TotalAmount is derived from Amount+TaxAmount.
type InvoiceDraft struct {
	InvoiceNumber string
	StudentID     StudentID
	SchoolID      SchoolID
	Amount        Money
	TaxAmount     Money
	TotalAmount   Money
	Description   string
	InvoiceDate   Date
	DueDate       Date
	Notes         string
}

// NewInvoice builds a pending invoice or fails with a ValidationError.
func NewInvoice(d InvoiceDraft) (Invoice, error) {
	total := d.TotalAmount
	if total.Value.IsZero() {
		total = d.Amount.Add(d.TaxAmount)
	}
	inv := Invoice{
		InvoiceNumber: d.InvoiceNumber,
		StudentID:     d.StudentID,
		SchoolID:      d.SchoolID,
		Amount:        d.Amount,
		TaxAmount:     d.TaxAmount,
		TotalAmount:   total,
		Description:   d.Description,
		InvoiceDate:   d.InvoiceDate,
		DueDate:       d.DueDate,
		Status:        StatusPending,
		Notes:         d.Notes,
	}
	if err := inv.Validate(); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// Validate checks every invoice invariant.
func (inv Invoice) Validate() error {
	if !inv.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Message: "Invoice amount must be positive"}
	}
	for _, f := range []struct {
		field string
		value Money
	}{{"amount", inv.Amount}, {"tax_amount", inv.TaxAmount}, {"total_amount", inv.TotalAmount}} {
		if !f.value.IsWholeCents() {
			return &ValidationError{Field: f.field, Message: "Amounts cannot have more than two decimal places"}
		}
	}
	if inv.TaxAmount.IsNegative() {
		return &ValidationError{Field: "tax_amount", Message: "Tax amount cannot be negative"}
	}
	if !inv.TotalAmount.Equal(inv.Amount.Add(inv.TaxAmount)) {
		return &ValidationError{Field: "total_amount", Message: "Total amount must equal amount plus tax amount"}
	}
	if inv.InvoiceDate.IsZero() {
		return &ValidationError{Field: "invoice_date", Message: "Invoice date is required"}
	}
	if inv.DueDate.Before(inv.InvoiceDate) {
		return &ValidationError{Field: "due_date", Message: "Due date cannot be before invoice date"}
	}
	if _, err := ParseInvoiceStatus(string(inv.Status)); err != nil {
		return err
	}
	if inv.Status == StatusPaid {
		if inv.PaymentDate == nil || inv.PaymentDate.IsZero() {
			return &ValidationError{Field: "payment_date", Message: "Paid invoice requires a payment date"}
		}
		if _, err := ParsePaymentMethod(string(inv.PaymentMethod)); err != nil {
			return err
		}
	} else if inv.PaymentMethod != "" {
		return &ValidationError{Field: "payment_method", Message: "Payment method is only allowed on paid invoices"}
	}
	return nil
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// MarkAsPaid settles the invoice. Notes are replaced only when non-empty.
func (inv Invoice) MarkAsPaid(paymentDate Date, method PaymentMethod, notes string) (Invoice, error) {
	switch inv.Status {
	case StatusPaid:
		return inv, inv.stateError("pay", "Invoice is already paid")
	case StatusCancelled:
		return inv, inv.stateError("pay", "Cannot pay a cancelled invoice")
	}
	pm, err := ParsePaymentMethod(string(method))
	if err != nil {
		return inv, err
	}
	if paymentDate.IsZero() {
		return inv, &ValidationError{Field: "payment_date", Message: "Payment date is required"}
	}

	next := inv
	pd := paymentDate
	next.Status = StatusPaid
	next.PaymentDate = &pd
	next.PaymentMethod = pm
	if notes != "" {
		next.Notes = notes
	}
	return next, nil
}

// Cancel voids the invoice. Notes are replaced only when a reason is given.
func (inv Invoice) Cancel(reason string) (Invoice, error) {
	if inv.Status == StatusPaid {
		return inv, inv.stateError("cancel", "Cannot cancel a paid invoice")
	}
	next := inv
	next.Status = StatusCancelled
	if reason != "" {
		next.Notes = reason
	}
	return next, nil
}

// IsOverdue reports whether a pending invoice is past its due date.
func (inv Invoice) IsOverdue(asOf Date) bool {
	return inv.Status == StatusPending && inv.DueDate.Before(asOf)
}

// =============================================================================
// UPDATES
// =============================================================================

// InvoicePatch lists the fields an update may change. Nil means unchanged.
// Status and payment fields are not patchable; use MarkAsPaid and Cancel.
type InvoicePatch struct {
	InvoiceNumber *string
	Amount        *Money
	TaxAmount     *Money
	Description   *string
	InvoiceDate   *Date
	DueDate       *Date
	Notes         *string
}

func (p InvoicePatch) touchesFinancials() bool {
	return p.Amount != nil || p.TaxAmount != nil
}

// Apply returns a new invoice with the patch applied. The total is recomputed
// when amount or tax change. Nothing is applied if any invariant breaks.
func (inv Invoice) Apply(p InvoicePatch) (Invoice, error) {
	if inv.Status == StatusCancelled && p.touchesFinancials() {
		return inv, inv.stateError("update", "Cannot change amounts of a cancelled invoice")
	}

	next := inv
	if p.InvoiceNumber != nil {
		next.InvoiceNumber = *p.InvoiceNumber
	}
	if p.Amount != nil {
		next.Amount = *p.Amount
	}
	if p.TaxAmount != nil {
		next.TaxAmount = *p.TaxAmount
	}
	if p.touchesFinancials() {
		next.TotalAmount = next.Amount.Add(next.TaxAmount)
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.InvoiceDate != nil {
		next.InvoiceDate = *p.InvoiceDate
	}
	if p.DueDate != nil {
		next.DueDate = *p.DueDate
	}
	if p.Notes != nil {
		next.Notes = *p.Notes
	}

	if err := next.Validate(); err != nil {
		return inv, err
	}
	return next, nil
}

func (inv Invoice) stateError(action, msg string) error {
	return &InvalidStateError{InvoiceID: inv.ID, Status: inv.Status, Action: action, Message: msg}
}
