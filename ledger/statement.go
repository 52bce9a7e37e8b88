/*
statement.go - Account statements for students and schools

PURPOSE:
  Answers "what does this student (or every student of this school) owe?"
  for a window of invoice dates. Statements are computed on demand from
  invoices; the engine keeps no state between calls and can be fronted by a
  cache or not.

FLOW (student):
  1. Resolve student (absent -> nil, nil)
  2. Resolve school for its display name ("Unknown School" if that fails)
  3. Fetch the student's invoices with invoice date in the period
  4. Classify each invoice and accumulate the tally
  5. Emit per-bucket invoice lists plus totals

FLOW (school):
  1. Resolve school (absent -> nil, nil)
  2. Fetch every student of the school, page by page
  3. For each student, fetch and tally invoices exactly as above
     (concurrently, bounded; any failure aborts the whole statement)
  4. Keep students with at least one invoice, sort by balance descending
  5. School totals = sum of the kept rows; derive top statistics

CONSISTENCY:
  Per-student fetches are independent reads. A payment recorded while a
  school statement runs may be visible for some students and not others.
*/
package ledger

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPageSize is how many rows each paged fetch asks for.
	DefaultPageSize = 500

	// DefaultConcurrency bounds parallel per-student invoice fetches.
	DefaultConcurrency = 8

	// UnknownSchoolName replaces the school name when it cannot be resolved.
	UnknownSchoolName = "Unknown School"
)

// =============================================================================
// STATEMENT TYPES
// =============================================================================

// InvoiceSummary is the statement line for one invoice.
type InvoiceSummary struct {
	ID            InvoiceID
	InvoiceNumber string
	Description   string
	InvoiceDate   Date
	DueDate       Date
	Amount        Money
	TaxAmount     Money
	TotalAmount   Money
	Status        InvoiceStatus
	PaymentDate   *Date
	PaymentMethod PaymentMethod
}

func summarize(inv Invoice) InvoiceSummary {
	return InvoiceSummary{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		Description:   inv.Description,
		InvoiceDate:   inv.InvoiceDate,
		DueDate:       inv.DueDate,
		Amount:        inv.Amount,
		TaxAmount:     inv.TaxAmount,
		TotalAmount:   inv.TotalAmount,
		Status:        inv.Status,
		PaymentDate:   inv.PaymentDate,
		PaymentMethod: inv.PaymentMethod,
	}
}

// StudentAccountStatement is one student's financial position for a period.
type StudentAccountStatement struct {
	StudentID   StudentID
	StudentName string
	SchoolName  string
	Period      StatementPeriod

	TotalCharges   Money
	TotalPayments  Money
	CurrentBalance Money

	// Bucket lists keep fetch order.
	PendingInvoices []InvoiceSummary
	PaidInvoices    []InvoiceSummary
	OverdueInvoices []InvoiceSummary

	TotalInvoices int
	PendingAmount Money
	PaidAmount    Money
	OverdueAmount Money

	GeneratedAt Date
}

// StudentFinancialSummary is one student's row on a school statement.
type StudentFinancialSummary struct {
	StudentID      StudentID
	StudentName    string
	TotalCharges   Money
	TotalPayments  Money
	CurrentBalance Money
	PendingAmount  Money
	PaidAmount     Money
	OverdueAmount  Money

	TotalInvoices   int
	PendingInvoices int
	PaidInvoices    int
	OverdueInvoices int
}

// SchoolAccountStatement rolls every student of a school into one report.
type SchoolAccountStatement struct {
	SchoolID      SchoolID
	SchoolName    string
	SchoolAddress string
	Period        StatementPeriod

	TotalCharges   Money
	TotalPayments  Money
	CurrentBalance Money
	PendingAmount  Money
	PaidAmount     Money
	OverdueAmount  Money

	TotalStudents        int
	StudentsWithInvoices int
	StudentsWithBalance  int
	StudentsOverdue      int

	TotalInvoices   int
	PendingInvoices int
	PaidInvoices    int
	OverdueInvoices int

	// StudentSummaries is sorted by CurrentBalance, highest first. Clients
	// render it in this order.
	StudentSummaries []StudentFinancialSummary

	HighestBalanceStudent *StudentFinancialSummary
	MostOverdueStudent    *StudentFinancialSummary

	GeneratedAt Date
}

// =============================================================================
// ENGINE
// =============================================================================

// StatementEngine builds statements from a LedgerReader.
type StatementEngine struct {
	Reader LedgerReader

	// Clock decides "today" for default periods and overdue classification.
	Clock func() time.Time

	PageSize    int
	Concurrency int
	Logger      *zap.Logger
}

// NewStatementEngine returns an engine with default paging, concurrency and clock.
func NewStatementEngine(reader LedgerReader, logger *zap.Logger) *StatementEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatementEngine{
		Reader:      reader,
		Clock:       time.Now,
		PageSize:    DefaultPageSize,
		Concurrency: DefaultConcurrency,
		Logger:      logger,
	}
}

func (e *StatementEngine) today() Date {
	if e.Clock == nil {
		return Today()
	}
	return DateOf(e.Clock())
}

func (e *StatementEngine) pageSize() int {
	if e.PageSize <= 0 {
		return DefaultPageSize
	}
	return e.PageSize
}

func (e *StatementEngine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// StudentStatement builds the statement for one student. It returns
// (nil, nil) when the student does not exist.
func (e *StatementEngine) StudentStatement(ctx context.Context, studentID StudentID, from, to *Date) (*StudentAccountStatement, error) {
	today := e.today()
	period, err := ResolvePeriod(from, to, today)
	if err != nil {
		return nil, err
	}

	student, err := e.Reader.FetchStudent(ctx, studentID)
	if err != nil {
		return nil, WrapRepository("fetch student", err)
	}
	if student == nil {
		return nil, nil
	}

	schoolName := UnknownSchoolName
	school, err := e.Reader.FetchSchool(ctx, student.SchoolID)
	switch {
	case err != nil:
		e.logger().Warn("school lookup failed for student statement",
			zap.Int64("student_id", int64(studentID)),
			zap.Int64("school_id", int64(student.SchoolID)),
			zap.Error(err))
	case school != nil:
		schoolName = school.Name
	}

	invoices, err := e.studentInvoices(ctx, studentID, period)
	if err != nil {
		return nil, err
	}

	stmt := &StudentAccountStatement{
		StudentID:       studentID,
		StudentName:     student.FullName(),
		SchoolName:      schoolName,
		Period:          period,
		PendingInvoices: []InvoiceSummary{},
		PaidInvoices:    []InvoiceSummary{},
		OverdueInvoices: []InvoiceSummary{},
		GeneratedAt:     today,
	}

	t := newTally()
	for _, inv := range invoices {
		switch t.add(inv, today) {
		case BucketPaid:
			stmt.PaidInvoices = append(stmt.PaidInvoices, summarize(inv))
		case BucketOverdue:
			stmt.OverdueInvoices = append(stmt.OverdueInvoices, summarize(inv))
		default:
			stmt.PendingInvoices = append(stmt.PendingInvoices, summarize(inv))
		}
	}

	stmt.TotalCharges = t.totalCharges
	stmt.TotalPayments = t.totalPayments
	stmt.CurrentBalance = t.currentBalance()
	stmt.TotalInvoices = t.totalInvoices
	stmt.PendingAmount = t.pendingAmount
	stmt.PaidAmount = t.paidAmount
	stmt.OverdueAmount = t.overdueAmount

	e.logger().Debug("student statement generated",
		zap.Int64("student_id", int64(studentID)),
		zap.Stringer("period", period),
		zap.Int("invoices", t.totalInvoices))

	return stmt, nil
}

// SchoolStatement builds the statement for every student of a school. It
// returns (nil, nil) when the school does not exist. Any fetch failure
// aborts the statement; partial results are never returned.
func (e *StatementEngine) SchoolStatement(ctx context.Context, schoolID SchoolID, from, to *Date) (*SchoolAccountStatement, error) {
	today := e.today()
	period, err := ResolvePeriod(from, to, today)
	if err != nil {
		return nil, err
	}

	school, err := e.Reader.FetchSchool(ctx, schoolID)
	if err != nil {
		return nil, WrapRepository("fetch school", err)
	}
	if school == nil {
		return nil, nil
	}

	students, err := FetchAllStudents(ctx, e.Reader, schoolID, e.pageSize())
	if err != nil {
		return nil, err
	}

	rows, err := e.tallyStudents(ctx, students, period, today)
	if err != nil {
		return nil, err
	}

	stmt := &SchoolAccountStatement{
		SchoolID:         schoolID,
		SchoolName:       school.Name,
		SchoolAddress:    school.FullAddress(),
		Period:           period,
		TotalStudents:    len(students),
		StudentSummaries: []StudentFinancialSummary{},
		GeneratedAt:      today,
	}

	totals := newTally()
	for i, t := range rows {
		if t.totalInvoices == 0 {
			continue
		}
		totals.merge(t)
		row := studentRow(students[i], t)
		stmt.StudentsWithInvoices++
		if row.CurrentBalance.IsPositive() {
			stmt.StudentsWithBalance++
		}
		if row.OverdueAmount.IsPositive() {
			stmt.StudentsOverdue++
		}
		stmt.StudentSummaries = append(stmt.StudentSummaries, row)
	}

	sort.SliceStable(stmt.StudentSummaries, func(i, j int) bool {
		return stmt.StudentSummaries[i].CurrentBalance.GreaterThan(stmt.StudentSummaries[j].CurrentBalance)
	})

	if len(stmt.StudentSummaries) > 0 {
		top := stmt.StudentSummaries[0]
		stmt.HighestBalanceStudent = &top
	}
	for i := range stmt.StudentSummaries {
		s := stmt.StudentSummaries[i]
		if !s.OverdueAmount.IsPositive() {
			continue
		}
		if stmt.MostOverdueStudent == nil || s.OverdueAmount.GreaterThan(stmt.MostOverdueStudent.OverdueAmount) {
			pick := s
			stmt.MostOverdueStudent = &pick
		}
	}

	stmt.TotalCharges = totals.totalCharges
	stmt.TotalPayments = totals.totalPayments
	stmt.CurrentBalance = totals.currentBalance()
	stmt.PendingAmount = totals.pendingAmount
	stmt.PaidAmount = totals.paidAmount
	stmt.OverdueAmount = totals.overdueAmount
	stmt.TotalInvoices = totals.totalInvoices
	stmt.PendingInvoices = totals.pendingInvoices
	stmt.PaidInvoices = totals.paidInvoices
	stmt.OverdueInvoices = totals.overdueInvoices

	e.logger().Debug("school statement generated",
		zap.Int64("school_id", int64(schoolID)),
		zap.Stringer("period", period),
		zap.Int("students", len(students)),
		zap.Int("invoices", totals.totalInvoices))

	return stmt, nil
}

// tallyStudents fetches and tallies each student's invoices. Results are
// indexed like students so fetch order survives the fan-out.
func (e *StatementEngine) tallyStudents(ctx context.Context, students []Student, period StatementPeriod, today Date) ([]tally, error) {
	rows := make([]tally, len(students))

	g, gctx := errgroup.WithContext(ctx)
	if e.Concurrency > 0 {
		g.SetLimit(e.Concurrency)
	} else {
		g.SetLimit(1)
	}

	for i := range students {
		i := i
		g.Go(func() error {
			invoices, err := e.studentInvoices(gctx, students[i].ID, period)
			if err != nil {
				return err
			}
			t := newTally()
			for _, inv := range invoices {
				t.add(inv, today)
			}
			rows[i] = t
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (e *StatementEngine) studentInvoices(ctx context.Context, studentID StudentID, period StatementPeriod) ([]Invoice, error) {
	from, to := period.From, period.To
	return FetchAllInvoices(ctx, e.Reader, InvoiceFilter{
		StudentID:       &studentID,
		InvoiceDateFrom: &from,
		InvoiceDateTo:   &to,
	}, e.pageSize())
}

func studentRow(s Student, t tally) StudentFinancialSummary {
	return StudentFinancialSummary{
		StudentID:       s.ID,
		StudentName:     s.FullName(),
		TotalCharges:    t.totalCharges,
		TotalPayments:   t.totalPayments,
		CurrentBalance:  t.currentBalance(),
		PendingAmount:   t.pendingAmount,
		PaidAmount:      t.paidAmount,
		OverdueAmount:   t.overdueAmount,
		TotalInvoices:   t.totalInvoices,
		PendingInvoices: t.pendingInvoices,
		PaidInvoices:    t.paidInvoices,
		OverdueInvoices: t.overdueInvoices,
	}
}
