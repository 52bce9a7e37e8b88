/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger model from the external API contract. Field names are
  snake_case; money is a JSON number with two decimals; dates are
  "YYYY-MM-DD".

NAMING CONVENTION:
  - *DTO:      Response types returned to clients
  - *Request:  Request body types from clients
  - *Response: Wrappers (pagination, errors)

TYPES:
  Schools:    SchoolDTO, CreateSchoolRequest, UpdateSchoolRequest
  Students:   StudentDTO, CreateStudentRequest, UpdateStudentRequest
  Invoices:   InvoiceDTO, CreateInvoiceRequest, UpdateInvoiceRequest,
              PaymentRequest, CancelRequest
  Statements: StudentStatementDTO, SchoolStatementDTO, InvoiceSummaryDTO,
              StudentFinancialSummaryDTO
  Auth:       RegisterRequest, LoginRequest, RefreshRequest
  Scenarios:  ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Request types carry go-playground/validator tags for shape checks
  (required, lengths, enums). Business invariants stay in the ledger
  package and surface as ValidationError.

SEE ALSO:
  - handlers.go: decodeJSON runs the validator
  - ledger/types.go: Money and Date JSON encoding
*/
package api

import (
	"time"

	"github.com/mattilda/school-ledger/ledger"
)

// =============================================================================
// ENVELOPES
// =============================================================================

// ListResponse wraps a page of items.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// MessageResponse acknowledges deletes and admin actions.
type MessageResponse struct {
	Message string `json:"message"`
}

// =============================================================================
// SCHOOLS
// =============================================================================

// SchoolDTO represents a school in API responses.
type SchoolDTO struct {
	ID              ledger.SchoolID `json:"id"`
	Name            string          `json:"name"`
	Address         string          `json:"address"`
	City            string          `json:"city"`
	State           string          `json:"state"`
	ZipCode         string          `json:"zip_code"`
	Phone           string          `json:"phone,omitempty"`
	Email           string          `json:"email,omitempty"`
	Principal       string          `json:"principal,omitempty"`
	EstablishedYear int             `json:"established_year,omitempty"`
	StudentCount    *int            `json:"student_count,omitempty"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func toSchoolDTO(s ledger.School) SchoolDTO {
	return SchoolDTO{
		ID:              s.ID,
		Name:            s.Name,
		Address:         s.Address,
		City:            s.City,
		State:           s.State,
		ZipCode:         s.ZipCode,
		Phone:           s.Phone,
		Email:           s.Email,
		Principal:       s.Principal,
		EstablishedYear: s.EstablishedYear,
		IsActive:        s.IsActive,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

type CreateSchoolRequest struct {
	Name            string `json:"name" validate:"required,max=200"`
	Address         string `json:"address" validate:"required,max=500"`
	City            string `json:"city" validate:"required,max=100"`
	State           string `json:"state" validate:"required,max=50"`
	ZipCode         string `json:"zip_code" validate:"required,max=20"`
	Phone           string `json:"phone" validate:"omitempty,max=20"`
	Email           string `json:"email" validate:"omitempty,email"`
	Principal       string `json:"principal" validate:"omitempty,max=200"`
	EstablishedYear int    `json:"established_year" validate:"omitempty,gte=1800,lte=2100"`
	IsActive        *bool  `json:"is_active"`
}

func (r CreateSchoolRequest) toSchool() ledger.School {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return ledger.School{
		Name:            r.Name,
		Address:         r.Address,
		City:            r.City,
		State:           r.State,
		ZipCode:         r.ZipCode,
		Phone:           r.Phone,
		Email:           r.Email,
		Principal:       r.Principal,
		EstablishedYear: r.EstablishedYear,
		IsActive:        active,
	}
}

// UpdateSchoolRequest is a partial update. Nil fields are left unchanged.
type UpdateSchoolRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=200"`
	Address         *string `json:"address" validate:"omitempty,min=1,max=500"`
	City            *string `json:"city" validate:"omitempty,min=1,max=100"`
	State           *string `json:"state" validate:"omitempty,min=1,max=50"`
	ZipCode         *string `json:"zip_code" validate:"omitempty,min=1,max=20"`
	Phone           *string `json:"phone" validate:"omitempty,max=20"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Principal       *string `json:"principal" validate:"omitempty,max=200"`
	EstablishedYear *int    `json:"established_year" validate:"omitempty,gte=1800,lte=2100"`
	IsActive        *bool   `json:"is_active"`
}

func (r UpdateSchoolRequest) apply(s ledger.School) ledger.School {
	setString(&s.Name, r.Name)
	setString(&s.Address, r.Address)
	setString(&s.City, r.City)
	setString(&s.State, r.State)
	setString(&s.ZipCode, r.ZipCode)
	setString(&s.Phone, r.Phone)
	setString(&s.Email, r.Email)
	setString(&s.Principal, r.Principal)
	if r.EstablishedYear != nil {
		s.EstablishedYear = *r.EstablishedYear
	}
	if r.IsActive != nil {
		s.IsActive = *r.IsActive
	}
	return s
}

// =============================================================================
// STUDENTS
// =============================================================================

// StudentDTO represents a student in API responses.
type StudentDTO struct {
	ID             ledger.StudentID `json:"id"`
	SchoolID       ledger.SchoolID  `json:"school_id"`
	FirstName      string           `json:"first_name"`
	LastName       string           `json:"last_name"`
	FullName       string           `json:"full_name"`
	Email          string           `json:"email"`
	Phone          string           `json:"phone,omitempty"`
	DateOfBirth    ledger.Date      `json:"date_of_birth"`
	GradeLevel     int              `json:"grade_level"`
	EnrollmentDate ledger.Date      `json:"enrollment_date"`
	Address        string           `json:"address,omitempty"`
	GuardianName   string           `json:"guardian_name,omitempty"`
	GuardianPhone  string           `json:"guardian_phone,omitempty"`
	IsActive       bool             `json:"is_active"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func toStudentDTO(s ledger.Student) StudentDTO {
	return StudentDTO{
		ID:             s.ID,
		SchoolID:       s.SchoolID,
		FirstName:      s.FirstName,
		LastName:       s.LastName,
		FullName:       s.FullName(),
		Email:          s.Email,
		Phone:          s.Phone,
		DateOfBirth:    s.DateOfBirth,
		GradeLevel:     s.GradeLevel,
		EnrollmentDate: s.EnrollmentDate,
		Address:        s.Address,
		GuardianName:   s.GuardianName,
		GuardianPhone:  s.GuardianPhone,
		IsActive:       s.IsActive,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

type CreateStudentRequest struct {
	SchoolID       ledger.SchoolID `json:"school_id" validate:"required,gt=0"`
	FirstName      string          `json:"first_name" validate:"required,max=100"`
	LastName       string          `json:"last_name" validate:"required,max=100"`
	Email          string          `json:"email" validate:"required,email"`
	Phone          string          `json:"phone" validate:"omitempty,max=20"`
	DateOfBirth    ledger.Date     `json:"date_of_birth" validate:"required"`
	GradeLevel     int             `json:"grade_level" validate:"required,gte=1,lte=12"`
	EnrollmentDate *ledger.Date    `json:"enrollment_date"`
	Address        string          `json:"address" validate:"omitempty,max=500"`
	GuardianName   string          `json:"guardian_name" validate:"omitempty,max=200"`
	GuardianPhone  string          `json:"guardian_phone" validate:"omitempty,max=20"`
	IsActive       *bool           `json:"is_active"`
}

// toStudent fills the enrollment date with today when omitted.
func (r CreateStudentRequest) toStudent(today ledger.Date) ledger.Student {
	enrolled := today
	if r.EnrollmentDate != nil {
		enrolled = *r.EnrollmentDate
	}
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return ledger.Student{
		SchoolID:       r.SchoolID,
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		Phone:          r.Phone,
		DateOfBirth:    r.DateOfBirth,
		GradeLevel:     r.GradeLevel,
		EnrollmentDate: enrolled,
		Address:        r.Address,
		GuardianName:   r.GuardianName,
		GuardianPhone:  r.GuardianPhone,
		IsActive:       active,
	}
}

type UpdateStudentRequest struct {
	SchoolID       *ledger.SchoolID `json:"school_id" validate:"omitempty,gt=0"`
	FirstName      *string          `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName       *string          `json:"last_name" validate:"omitempty,min=1,max=100"`
	Email          *string          `json:"email" validate:"omitempty,email"`
	Phone          *string          `json:"phone" validate:"omitempty,max=20"`
	DateOfBirth    *ledger.Date     `json:"date_of_birth"`
	GradeLevel     *int             `json:"grade_level" validate:"omitempty,gte=1,lte=12"`
	EnrollmentDate *ledger.Date     `json:"enrollment_date"`
	Address        *string          `json:"address" validate:"omitempty,max=500"`
	GuardianName   *string          `json:"guardian_name" validate:"omitempty,max=200"`
	GuardianPhone  *string          `json:"guardian_phone" validate:"omitempty,max=20"`
	IsActive       *bool            `json:"is_active"`
}

func (r UpdateStudentRequest) apply(s ledger.Student) ledger.Student {
	if r.SchoolID != nil {
		s.SchoolID = *r.SchoolID
	}
	setString(&s.FirstName, r.FirstName)
	setString(&s.LastName, r.LastName)
	setString(&s.Email, r.Email)
	setString(&s.Phone, r.Phone)
	if r.DateOfBirth != nil {
		s.DateOfBirth = *r.DateOfBirth
	}
	if r.GradeLevel != nil {
		s.GradeLevel = *r.GradeLevel
	}
	if r.EnrollmentDate != nil {
		s.EnrollmentDate = *r.EnrollmentDate
	}
	setString(&s.Address, r.Address)
	setString(&s.GuardianName, r.GuardianName)
	setString(&s.GuardianPhone, r.GuardianPhone)
	if r.IsActive != nil {
		s.IsActive = *r.IsActive
	}
	return s
}

// =============================================================================
// INVOICES
// =============================================================================

// InvoiceDTO represents an invoice in API responses. IsOverdue is derived
// from the due date at response time; it is not stored.
type InvoiceDTO struct {
	ID            ledger.InvoiceID     `json:"id"`
	InvoiceNumber string               `json:"invoice_number"`
	StudentID     ledger.StudentID     `json:"student_id"`
	SchoolID      ledger.SchoolID      `json:"school_id"`
	Amount        ledger.Money         `json:"amount"`
	TaxAmount     ledger.Money         `json:"tax_amount"`
	TotalAmount   ledger.Money         `json:"total_amount"`
	Description   string               `json:"description"`
	InvoiceDate   ledger.Date          `json:"invoice_date"`
	DueDate       ledger.Date          `json:"due_date"`
	Status        ledger.InvoiceStatus `json:"status"`
	PaymentDate   *ledger.Date         `json:"payment_date"`
	PaymentMethod *string              `json:"payment_method"`
	Notes         string               `json:"notes,omitempty"`
	IsOverdue     bool                 `json:"is_overdue"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

func toInvoiceDTO(inv ledger.Invoice, today ledger.Date) InvoiceDTO {
	return InvoiceDTO{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		StudentID:     inv.StudentID,
		SchoolID:      inv.SchoolID,
		Amount:        inv.Amount,
		TaxAmount:     inv.TaxAmount,
		TotalAmount:   inv.TotalAmount,
		Description:   inv.Description,
		InvoiceDate:   inv.InvoiceDate,
		DueDate:       inv.DueDate,
		Status:        inv.Status,
		PaymentDate:   inv.PaymentDate,
		PaymentMethod: methodPtr(inv.PaymentMethod),
		Notes:         inv.Notes,
		IsOverdue:     ledger.Classify(inv, today) == ledger.BucketOverdue,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
}

// CreateInvoiceRequest omits status: new invoices are always pending.
// school_id is accepted for compatibility and must match the student's school.
type CreateInvoiceRequest struct {
	InvoiceNumber string           `json:"invoice_number" validate:"required,max=50"`
	StudentID     ledger.StudentID `json:"student_id" validate:"required,gt=0"`
	SchoolID      ledger.SchoolID  `json:"school_id" validate:"omitempty,gt=0"`
	Amount        ledger.Money     `json:"amount"`
	TaxAmount     ledger.Money     `json:"tax_amount"`
	Description   string           `json:"description" validate:"required,max=500"`
	InvoiceDate   ledger.Date      `json:"invoice_date" validate:"required"`
	DueDate       ledger.Date      `json:"due_date" validate:"required"`
	Notes         string           `json:"notes" validate:"omitempty,max=1000"`
}

func (r CreateInvoiceRequest) toDraft() ledger.InvoiceDraft {
	return ledger.InvoiceDraft{
		InvoiceNumber: r.InvoiceNumber,
		StudentID:     r.StudentID,
		SchoolID:      r.SchoolID,
		Amount:        r.Amount,
		TaxAmount:     r.TaxAmount,
		Description:   r.Description,
		InvoiceDate:   r.InvoiceDate,
		DueDate:       r.DueDate,
		Notes:         r.Notes,
	}
}

// UpdateInvoiceRequest mirrors ledger.InvoicePatch. Status changes go
// through /payment and /cancel.
type UpdateInvoiceRequest struct {
	InvoiceNumber *string       `json:"invoice_number" validate:"omitempty,min=1,max=50"`
	Amount        *ledger.Money `json:"amount"`
	TaxAmount     *ledger.Money `json:"tax_amount"`
	Description   *string       `json:"description" validate:"omitempty,min=1,max=500"`
	InvoiceDate   *ledger.Date  `json:"invoice_date"`
	DueDate       *ledger.Date  `json:"due_date"`
	Notes         *string       `json:"notes" validate:"omitempty,max=1000"`
}

func (r UpdateInvoiceRequest) toPatch() ledger.InvoicePatch {
	return ledger.InvoicePatch{
		InvoiceNumber: r.InvoiceNumber,
		Amount:        r.Amount,
		TaxAmount:     r.TaxAmount,
		Description:   r.Description,
		InvoiceDate:   r.InvoiceDate,
		DueDate:       r.DueDate,
		Notes:         r.Notes,
	}
}

// PaymentRequest records a payment. PaymentDate defaults to today.
type PaymentRequest struct {
	PaymentDate   *ledger.Date `json:"payment_date"`
	PaymentMethod string       `json:"payment_method" validate:"required,oneof=cash credit_card bank_transfer check"`
	Notes         string       `json:"notes" validate:"omitempty,max=1000"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=1000"`
}

// =============================================================================
// STATEMENTS
// =============================================================================

type InvoiceSummaryDTO struct {
	ID            ledger.InvoiceID     `json:"id"`
	InvoiceNumber string               `json:"invoice_number"`
	Description   string               `json:"description"`
	InvoiceDate   ledger.Date          `json:"invoice_date"`
	DueDate       ledger.Date          `json:"due_date"`
	Amount        ledger.Money         `json:"amount"`
	TaxAmount     ledger.Money         `json:"tax_amount"`
	TotalAmount   ledger.Money         `json:"total_amount"`
	Status        ledger.InvoiceStatus `json:"status"`
	PaymentDate   *ledger.Date         `json:"payment_date"`
	PaymentMethod *string              `json:"payment_method"`
}

func toInvoiceSummaryDTOs(in []ledger.InvoiceSummary) []InvoiceSummaryDTO {
	out := make([]InvoiceSummaryDTO, 0, len(in))
	for _, s := range in {
		out = append(out, InvoiceSummaryDTO{
			ID:            s.ID,
			InvoiceNumber: s.InvoiceNumber,
			Description:   s.Description,
			InvoiceDate:   s.InvoiceDate,
			DueDate:       s.DueDate,
			Amount:        s.Amount,
			TaxAmount:     s.TaxAmount,
			TotalAmount:   s.TotalAmount,
			Status:        s.Status,
			PaymentDate:   s.PaymentDate,
			PaymentMethod: methodPtr(s.PaymentMethod),
		})
	}
	return out
}

type StudentStatementDTO struct {
	StudentID           ledger.StudentID `json:"student_id"`
	StudentName         string           `json:"student_name"`
	SchoolName          string           `json:"school_name"`
	StatementPeriodFrom ledger.Date      `json:"statement_period_from"`
	StatementPeriodTo   ledger.Date      `json:"statement_period_to"`

	TotalCharges   ledger.Money `json:"total_charges"`
	TotalPayments  ledger.Money `json:"total_payments"`
	CurrentBalance ledger.Money `json:"current_balance"`

	PendingInvoices []InvoiceSummaryDTO `json:"pending_invoices"`
	PaidInvoices    []InvoiceSummaryDTO `json:"paid_invoices"`
	OverdueInvoices []InvoiceSummaryDTO `json:"overdue_invoices"`

	TotalInvoices int          `json:"total_invoices"`
	PendingAmount ledger.Money `json:"pending_amount"`
	PaidAmount    ledger.Money `json:"paid_amount"`
	OverdueAmount ledger.Money `json:"overdue_amount"`

	GeneratedAt ledger.Date `json:"generated_at"`
}

// NewStudentStatementDTO is the wire form of a student statement, shared by
// the HTTP handler and the statement command.
func NewStudentStatementDTO(s *ledger.StudentAccountStatement) StudentStatementDTO {
	return StudentStatementDTO{
		StudentID:           s.StudentID,
		StudentName:         s.StudentName,
		SchoolName:          s.SchoolName,
		StatementPeriodFrom: s.Period.From,
		StatementPeriodTo:   s.Period.To,
		TotalCharges:        s.TotalCharges,
		TotalPayments:       s.TotalPayments,
		CurrentBalance:      s.CurrentBalance,
		PendingInvoices:     toInvoiceSummaryDTOs(s.PendingInvoices),
		PaidInvoices:        toInvoiceSummaryDTOs(s.PaidInvoices),
		OverdueInvoices:     toInvoiceSummaryDTOs(s.OverdueInvoices),
		TotalInvoices:       s.TotalInvoices,
		PendingAmount:       s.PendingAmount,
		PaidAmount:          s.PaidAmount,
		OverdueAmount:       s.OverdueAmount,
		GeneratedAt:         s.GeneratedAt,
	}
}

type StudentFinancialSummaryDTO struct {
	StudentID       ledger.StudentID `json:"student_id"`
	StudentName     string           `json:"student_name"`
	TotalCharges    ledger.Money     `json:"total_charges"`
	TotalPayments   ledger.Money     `json:"total_payments"`
	CurrentBalance  ledger.Money     `json:"current_balance"`
	PendingAmount   ledger.Money     `json:"pending_amount"`
	PaidAmount      ledger.Money     `json:"paid_amount"`
	OverdueAmount   ledger.Money     `json:"overdue_amount"`
	TotalInvoices   int              `json:"total_invoices"`
	PendingInvoices int              `json:"pending_invoices"`
	PaidInvoices    int              `json:"paid_invoices"`
	OverdueInvoices int              `json:"overdue_invoices"`
}

func toStudentFinancialSummaryDTO(s ledger.StudentFinancialSummary) StudentFinancialSummaryDTO {
	return StudentFinancialSummaryDTO{
		StudentID:       s.StudentID,
		StudentName:     s.StudentName,
		TotalCharges:    s.TotalCharges,
		TotalPayments:   s.TotalPayments,
		CurrentBalance:  s.CurrentBalance,
		PendingAmount:   s.PendingAmount,
		PaidAmount:      s.PaidAmount,
		OverdueAmount:   s.OverdueAmount,
		TotalInvoices:   s.TotalInvoices,
		PendingInvoices: s.PendingInvoices,
		PaidInvoices:    s.PaidInvoices,
		OverdueInvoices: s.OverdueInvoices,
	}
}

type SchoolStatementDTO struct {
	SchoolID            ledger.SchoolID `json:"school_id"`
	SchoolName          string          `json:"school_name"`
	SchoolAddress       string          `json:"school_address"`
	StatementPeriodFrom ledger.Date     `json:"statement_period_from"`
	StatementPeriodTo   ledger.Date     `json:"statement_period_to"`

	TotalCharges   ledger.Money `json:"total_charges"`
	TotalPayments  ledger.Money `json:"total_payments"`
	CurrentBalance ledger.Money `json:"current_balance"`
	PendingAmount  ledger.Money `json:"pending_amount"`
	PaidAmount     ledger.Money `json:"paid_amount"`
	OverdueAmount  ledger.Money `json:"overdue_amount"`

	TotalStudents        int `json:"total_students"`
	StudentsWithInvoices int `json:"students_with_invoices"`
	StudentsWithBalance  int `json:"students_with_balance"`
	StudentsOverdue      int `json:"students_overdue"`

	TotalInvoices   int `json:"total_invoices"`
	PendingInvoices int `json:"pending_invoices"`
	PaidInvoices    int `json:"paid_invoices"`
	OverdueInvoices int `json:"overdue_invoices"`

	StudentSummaries      []StudentFinancialSummaryDTO `json:"student_summaries"`
	HighestBalanceStudent *StudentFinancialSummaryDTO  `json:"highest_balance_student"`
	MostOverdueStudent    *StudentFinancialSummaryDTO  `json:"most_overdue_student"`

	GeneratedAt ledger.Date `json:"generated_at"`
}

// NewSchoolStatementDTO is the wire form of a school statement.
func NewSchoolStatementDTO(s *ledger.SchoolAccountStatement) SchoolStatementDTO {
	dto := SchoolStatementDTO{
		SchoolID:             s.SchoolID,
		SchoolName:           s.SchoolName,
		SchoolAddress:        s.SchoolAddress,
		StatementPeriodFrom:  s.Period.From,
		StatementPeriodTo:    s.Period.To,
		TotalCharges:         s.TotalCharges,
		TotalPayments:        s.TotalPayments,
		CurrentBalance:       s.CurrentBalance,
		PendingAmount:        s.PendingAmount,
		PaidAmount:           s.PaidAmount,
		OverdueAmount:        s.OverdueAmount,
		TotalStudents:        s.TotalStudents,
		StudentsWithInvoices: s.StudentsWithInvoices,
		StudentsWithBalance:  s.StudentsWithBalance,
		StudentsOverdue:      s.StudentsOverdue,
		TotalInvoices:        s.TotalInvoices,
		PendingInvoices:      s.PendingInvoices,
		PaidInvoices:         s.PaidInvoices,
		OverdueInvoices:      s.OverdueInvoices,
		StudentSummaries:     make([]StudentFinancialSummaryDTO, 0, len(s.StudentSummaries)),
		GeneratedAt:          s.GeneratedAt,
	}
	for _, row := range s.StudentSummaries {
		dto.StudentSummaries = append(dto.StudentSummaries, toStudentFinancialSummaryDTO(row))
	}
	if s.HighestBalanceStudent != nil {
		top := toStudentFinancialSummaryDTO(*s.HighestBalanceStudent)
		dto.HighestBalanceStudent = &top
	}
	if s.MostOverdueStudent != nil {
		top := toStudentFinancialSummaryDTO(*s.MostOverdueStudent)
		dto.MostOverdueStudent = &top
	}
	return dto
}

// =============================================================================
// AUTH
// =============================================================================

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"omitempty,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a loadable demo dataset.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// HELPERS
// =============================================================================

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func methodPtr(m ledger.PaymentMethod) *string {
	if m == "" {
		return nil
	}
	s := string(m)
	return &s
}
