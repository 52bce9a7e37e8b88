/*
store.go - Persistence ports

PURPOSE:
  Defines the boundary between the billing core and storage. The statement
  engine only ever sees LedgerReader; CRUD handlers use the full Repository.

KEY INTERFACES:
  LedgerReader: the four reads statements need (invoices, students by
                school, school by id, student by id)
  Repository:   LedgerReader plus create/update/delete for the three entities

LOOKUP CONTRACT:
  Fetch* by ID returns (nil, nil) when the row does not exist. Errors are
  reserved for storage failures and are wrapped in RepositoryError.

PAGINATION:
  List reads take a Page and return (items, total). Callers that need every
  row (statements) page until offset reaches total; nothing is truncated.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite
  - ledger/store: in-memory for tests and local runs
*/
package ledger

import "context"

// Page is an offset/limit window. A zero Limit means no limit.
type Page struct {
	Offset int
	Limit  int
}

// InvoiceFilter narrows invoice reads. Nil fields do not filter.
// InvoiceDateFrom/To are inclusive.
type InvoiceFilter struct {
	StudentID       *StudentID
	SchoolID        *SchoolID
	Status          *InvoiceStatus
	InvoiceDateFrom *Date
	InvoiceDateTo   *Date
}

// StudentFilter narrows student listings. Name matches first or last name, case-insensitive.
type StudentFilter struct {
	SchoolID   *SchoolID
	GradeLevel *int
	Name       *string
	IsActive   *bool
}

// SchoolFilter narrows school listings. Name and City match as substrings.
type SchoolFilter struct {
	Name     *string
	City     *string
	State    *string
	IsActive *bool
}

// =============================================================================
// LEDGER READER - What the statement engine depends on
// =============================================================================

type LedgerReader interface {
	// FetchInvoices returns invoices ordered by invoice date, then ID.
	FetchInvoices(ctx context.Context, filter InvoiceFilter, page Page) ([]Invoice, int, error)

	// FetchStudentsBySchool returns a school's students ordered by ID.
	FetchStudentsBySchool(ctx context.Context, schoolID SchoolID, page Page) ([]Student, int, error)

	FetchSchool(ctx context.Context, id SchoolID) (*School, error)
	FetchStudent(ctx context.Context, id StudentID) (*Student, error)
}

// =============================================================================
// REPOSITORY - Full CRUD surface
// =============================================================================

type SchoolStore interface {
	ListSchools(ctx context.Context, filter SchoolFilter, page Page) ([]School, int, error)
	CreateSchool(ctx context.Context, s School) (School, error)
	UpdateSchool(ctx context.Context, s School) (School, error)
	DeleteSchool(ctx context.Context, id SchoolID) (bool, error)
	CountStudents(ctx context.Context, id SchoolID) (int, error)
}

type StudentStore interface {
	ListStudents(ctx context.Context, filter StudentFilter, page Page) ([]Student, int, error)
	CreateStudent(ctx context.Context, s Student) (Student, error)
	UpdateStudent(ctx context.Context, s Student) (Student, error)
	DeleteStudent(ctx context.Context, id StudentID) (bool, error)
}

type InvoiceStore interface {
	FetchInvoice(ctx context.Context, id InvoiceID) (*Invoice, error)
	CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	UpdateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	DeleteInvoice(ctx context.Context, id InvoiceID) (bool, error)
}

// Repository is everything the HTTP layer needs.
type Repository interface {
	LedgerReader
	SchoolStore
	StudentStore
	InvoiceStore
}

// FetchAllInvoices pages through FetchInvoices until every match is read.
func FetchAllInvoices(ctx context.Context, r LedgerReader, filter InvoiceFilter, pageSize int) ([]Invoice, error) {
	var all []Invoice
	for offset := 0; ; offset += pageSize {
		batch, total, err := r.FetchInvoices(ctx, filter, Page{Offset: offset, Limit: pageSize})
		if err != nil {
			return nil, WrapRepository("fetch invoices", err)
		}
		all = append(all, batch...)
		if len(batch) == 0 || len(all) >= total {
			return all, nil
		}
	}
}

// FetchAllStudents pages through FetchStudentsBySchool.
func FetchAllStudents(ctx context.Context, r LedgerReader, schoolID SchoolID, pageSize int) ([]Student, error) {
	var all []Student
	for offset := 0; ; offset += pageSize {
		batch, total, err := r.FetchStudentsBySchool(ctx, schoolID, Page{Offset: offset, Limit: pageSize})
		if err != nil {
			return nil, WrapRepository("fetch students", err)
		}
		all = append(all, batch...)
		if len(batch) == 0 || len(all) >= total {
			return all, nil
		}
	}
}
