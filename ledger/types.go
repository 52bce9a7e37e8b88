/*
Package ledger provides the school billing core: entities, the invoice
lifecycle, and the statement engine that rolls invoices up into account
statements.

PURPOSE:
  Schools bill students through invoices. Everything a statement reports
  (charges, payments, balances, overdue amounts) is derived from the set of
  invoices issued in a period. There is no stored balance that can drift.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: decimal amount with two fractional digits on the wire
  - IDs: type-safe identifiers for schools, students and invoices
  - InvoiceStatus / PaymentMethod: closed enums, parsed strictly
  - School / Student: plain records referenced by ID

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, never float64
  2. Values: entities are values; transitions return new values
  3. References by ID: an Invoice carries StudentID/SchoolID, never objects

SEE ALSO:
  - invoice.go: Invoice value and lifecycle transitions
  - statement.go: StatementEngine
  - store.go: Repository ports
*/
package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY
// =============================================================================

// Money is a decimal amount. It marshals to a JSON number with two decimals.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money { return Money{Value: decimal.NewFromFloat(value)} }
func NewMoneyFromInt(value int64) Money { return Money{Value: decimal.NewFromInt(value)} }

// ParseMoney parses a decimal string such as "110.50".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, &ValidationError{Field: "amount", Message: fmt.Sprintf("invalid decimal amount %q", s)}
	}
	return Money{Value: d}, nil
}

// MustParseMoney is for literals in tests and seed data.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func Zero() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money          { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money          { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Equal(o Money) bool         { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool   { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool      { return m.Value.LessThan(o.Value) }
func (m Money) IsZero() bool               { return m.Value.IsZero() }
func (m Money) IsPositive() bool           { return m.Value.IsPositive() }
func (m Money) IsNegative() bool           { return m.Value.IsNegative() }
func (m Money) Cmp(o Money) int            { return m.Value.Cmp(o.Value) }
func (m Money) String() string             { return m.Value.StringFixed(2) }
func (m Money) Round() Money               { return Money{Value: m.Value.Round(2)} }

// IsWholeCents reports whether m has no digits past the second decimal place.
func (m Money) IsWholeCents() bool { return m.Value.Equal(m.Value.Round(2)) }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Value.StringFixed(2)), nil
}

// UnmarshalJSON accepts both 110.5 and "110.50".
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*m = Money{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		s = raw
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type SchoolID int64
type StudentID int64
type InvoiceID int64

// =============================================================================
// ENUMS
// =============================================================================

type InvoiceStatus string

const (
	StatusPending   InvoiceStatus = "pending"
	StatusPaid      InvoiceStatus = "paid"
	StatusCancelled InvoiceStatus = "cancelled"

	// StatusOverdue only appears on legacy rows. The lifecycle never
	// produces it; overdue is derived from a pending invoice's due date.
	StatusOverdue InvoiceStatus = "overdue"
)

// ParseInvoiceStatus rejects anything outside the closed set.
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	switch st := InvoiceStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusPaid, StatusCancelled, StatusOverdue:
		return st, nil
	}
	return "", &ValidationError{Field: "status", Message: fmt.Sprintf("invalid invoice status %q", s)}
}

func (s InvoiceStatus) IsTerminal() bool { return s == StatusPaid || s == StatusCancelled }

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCheck        PaymentMethod = "check"
)

// ParsePaymentMethod rejects anything outside the closed set.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch pm := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); pm {
	case PaymentCash, PaymentCreditCard, PaymentBankTransfer, PaymentCheck:
		return pm, nil
	}
	return "", &ValidationError{Field: "payment_method", Message: fmt.Sprintf("invalid payment method %q", s)}
}

// =============================================================================
// SCHOOL
// =============================================================================

// School is the top-level tenant.
type School struct {
	ID              SchoolID
	Name            string
	Address         string
	City            string
	State           string
	ZipCode         string
	Phone           string
	Email           string
	Principal       string
	EstablishedYear int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks the fields a school cannot exist without.
func (s School) Validate() error {
	required := []struct{ field, value, msg string }{
		{"name", s.Name, "School name cannot be empty"},
		{"address", s.Address, "Address cannot be empty"},
		{"city", s.City, "City cannot be empty"},
		{"state", s.State, "State cannot be empty"},
		{"zip_code", s.ZipCode, "Zip code cannot be empty"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: r.msg}
		}
	}
	return nil
}

// FullAddress is the one-line address printed on statements.
func (s School) FullAddress() string {
	return fmt.Sprintf("%s, %s, %s %s", s.Address, s.City, s.State, s.ZipCode)
}

// =============================================================================
// STUDENT
// =============================================================================

// Student belongs to exactly one school.
type Student struct {
	ID             StudentID
	SchoolID       SchoolID
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	DateOfBirth    Date
	GradeLevel     int
	EnrollmentDate Date
	Address        string
	GuardianName   string
	GuardianPhone  string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s Student) FullName() string { return s.FirstName + " " + s.LastName }

// Validate checks student invariants as of the given day.
func (s Student) Validate(today Date) error {
	switch {
	case strings.TrimSpace(s.FirstName) == "":
		return &ValidationError{Field: "first_name", Message: "First name cannot be empty"}
	case strings.TrimSpace(s.LastName) == "":
		return &ValidationError{Field: "last_name", Message: "Last name cannot be empty"}
	case !strings.Contains(s.Email, "@"):
		return &ValidationError{Field: "email", Message: "Valid email is required"}
	case s.GradeLevel < 1 || s.GradeLevel > 12:
		return &ValidationError{Field: "grade_level", Message: "Grade level must be between 1 and 12"}
	case s.EnrollmentDate.After(today):
		return &ValidationError{Field: "enrollment_date", Message: "Enrollment date cannot be in the future"}
	case !s.DateOfBirth.Before(today):
		return &ValidationError{Field: "date_of_birth", Message: "Date of birth must be in the past"}
	case s.SchoolID <= 0:
		return &ValidationError{Field: "school_id", Message: "School is required"}
	}
	return nil
}
