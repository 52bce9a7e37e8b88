package ledger_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattilda/school-ledger/ledger"
	"github.com/mattilda/school-ledger/ledger/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var statementToday = time.Date(2024, time.June, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	repo   *store.Memory
	engine *ledger.StatementEngine
}

func newFixture(t *testing.T) *fixture {
	repo := store.NewMemory()
	engine := ledger.NewStatementEngine(repo, nil)
	engine.Clock = func() time.Time { return statementToday }
	return &fixture{t: t, ctx: context.Background(), repo: repo, engine: engine}
}

func (f *fixture) school(name string) ledger.School {
	f.t.Helper()
	s, err := f.repo.CreateSchool(f.ctx, ledger.School{
		Name: name, Address: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701", IsActive: true,
	})
	require.NoError(f.t, err)
	return s
}

func (f *fixture) student(schoolID ledger.SchoolID, first, last string) ledger.Student {
	f.t.Helper()
	s, err := f.repo.CreateStudent(f.ctx, ledger.Student{
		SchoolID:       schoolID,
		FirstName:      first,
		LastName:       last,
		Email:          first + "@example.com",
		GradeLevel:     5,
		DateOfBirth:    day("2014-03-01"),
		EnrollmentDate: day("2023-09-01"),
		IsActive:       true,
	})
	require.NoError(f.t, err)
	return s
}

// invoice stores an invoice with the given total and status. Paid invoices
// are paid on their invoice date.
func (f *fixture) invoice(st ledger.Student, total string, status ledger.InvoiceStatus, invoiceDate, due string) ledger.Invoice {
	f.t.Helper()
	inv, err := ledger.NewInvoice(ledger.InvoiceDraft{
		StudentID:   st.ID,
		SchoolID:    st.SchoolID,
		Amount:      money(total),
		TaxAmount:   money("0"),
		InvoiceDate: day(invoiceDate),
		DueDate:     day(due),
	})
	require.NoError(f.t, err)

	switch status {
	case ledger.StatusPaid:
		inv, err = inv.MarkAsPaid(day(invoiceDate), ledger.PaymentCash, "")
		require.NoError(f.t, err)
	case ledger.StatusCancelled:
		inv, err = inv.Cancel("")
		require.NoError(f.t, err)
	case ledger.StatusOverdue:
		inv.Status = ledger.StatusOverdue
	}

	saved, err := f.repo.CreateInvoice(f.ctx, inv)
	require.NoError(f.t, err)
	return saved
}

// scenarioStudent books paid 100, pending 200 due in the future and
// pending 150 due 2020-01-01.
func (f *fixture) scenarioStudent(st ledger.Student) {
	f.invoice(st, "100", ledger.StatusPaid, "2024-01-10", "2024-02-10")
	f.invoice(st, "200", ledger.StatusPending, "2024-05-01", "2024-09-01")
	f.invoice(st, "150", ledger.StatusPending, "2019-12-01", "2020-01-01")
}

func datePtr(s string) *ledger.Date {
	d := day(s)
	return &d
}

func assertMoney(t *testing.T, want string, got ledger.Money, msg string) {
	t.Helper()
	assert.Equal(t, want, got.String(), msg)
}

// =============================================================================
// STUDENT STATEMENT
// =============================================================================

func TestStudentStatement_BucketsAndTotals(t *testing.T) {
	// GIVEN: Paid 100, pending 200 (due later), pending 150 (due 2020-01-01)
	f := newFixture(t)
	school := f.school("Lincoln Elementary")
	st := f.student(school.ID, "Ana", "Lopez")
	f.scenarioStudent(st)

	// WHEN: Building the statement over a window that covers all three
	stmt, err := f.engine.StudentStatement(f.ctx, st.ID, datePtr("2019-01-01"), nil)

	// THEN: Each invoice lands in exactly one bucket
	require.NoError(t, err)
	require.NotNil(t, stmt)
	assertMoney(t, "100.00", stmt.PaidAmount, "paid")
	assertMoney(t, "200.00", stmt.PendingAmount, "pending")
	assertMoney(t, "150.00", stmt.OverdueAmount, "overdue")
	assertMoney(t, "450.00", stmt.TotalCharges, "charges")
	assertMoney(t, "100.00", stmt.TotalPayments, "payments")
	assertMoney(t, "350.00", stmt.CurrentBalance, "balance")

	assert.Equal(t, 3, stmt.TotalInvoices)
	assert.Len(t, stmt.PaidInvoices, 1)
	assert.Len(t, stmt.PendingInvoices, 1)
	assert.Len(t, stmt.OverdueInvoices, 1)
	assert.Equal(t, "Ana Lopez", stmt.StudentName)
	assert.Equal(t, "Lincoln Elementary", stmt.SchoolName)
	assert.Equal(t, "2024-06-01", stmt.GeneratedAt.String())
	assert.Equal(t, "2024-06-01", stmt.Period.To.String())
}

func TestStudentStatement_SumLaw(t *testing.T) {
	f := newFixture(t)
	school := f.school("Lincoln Elementary")
	st := f.student(school.ID, "Ana", "Lopez")
	f.scenarioStudent(st)
	f.invoice(st, "75.25", ledger.StatusCancelled, "2024-02-01", "2024-02-28")
	f.invoice(st, "40", ledger.StatusOverdue, "2024-03-01", "2024-12-31")

	stmt, err := f.engine.StudentStatement(f.ctx, st.ID, datePtr("2019-01-01"), nil)
	require.NoError(t, err)

	buckets := stmt.PaidAmount.Add(stmt.PendingAmount).Add(stmt.OverdueAmount)
	assert.True(t, buckets.Equal(stmt.TotalCharges), "paid+pending+overdue must equal charges")
	assert.True(t, stmt.TotalCharges.Sub(stmt.TotalPayments).Equal(stmt.CurrentBalance))
	assert.Equal(t, stmt.TotalInvoices, len(stmt.PaidInvoices)+len(stmt.PendingInvoices)+len(stmt.OverdueInvoices))

	// Cancelled lands in pending, legacy overdue in overdue.
	assertMoney(t, "275.25", stmt.PendingAmount, "pending includes cancelled")
	assertMoney(t, "190.00", stmt.OverdueAmount, "overdue includes legacy row")
}

func TestStudentStatement_DefaultPeriodExcludesPriorYears(t *testing.T) {
	f := newFixture(t)
	school := f.school("Lincoln Elementary")
	st := f.student(school.ID, "Ana", "Lopez")
	f.scenarioStudent(st)

	stmt, err := f.engine.StudentStatement(f.ctx, st.ID, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", stmt.Period.From.String())
	assert.Equal(t, 2, stmt.TotalInvoices, "2019 invoice is outside the default window")
	assert.Empty(t, stmt.OverdueInvoices)
}

func TestStudentStatement_PeriodFiltersByInvoiceDateOnly(t *testing.T) {
	// GIVEN: An invoice issued in January and paid in March
	f := newFixture(t)
	school := f.school("Lincoln Elementary")
	st := f.student(school.ID, "Ana", "Lopez")
	inv := f.invoice(st, "80", ledger.StatusPending, "2024-01-15", "2024-02-15")
	paid, err := inv.MarkAsPaid(day("2024-03-10"), ledger.PaymentCheck, "")
	require.NoError(t, err)
	_, err = f.repo.UpdateInvoice(f.ctx, paid)
	require.NoError(t, err)

	// WHEN: The window covers only March
	stmt, err := f.engine.StudentStatement(f.ctx, st.ID, datePtr("2024-03-01"), datePtr("2024-03-31"))

	// THEN: The invoice is excluded
	require.NoError(t, err)
	assert.Equal(t, 0, stmt.TotalInvoices)
	assert.True(t, stmt.TotalCharges.IsZero())
	assert.NotNil(t, stmt.PaidInvoices)
}

func TestStudentStatement_UnknownStudent_ReturnsNil(t *testing.T) {
	f := newFixture(t)

	stmt, err := f.engine.StudentStatement(f.ctx, 999, nil, nil)

	assert.NoError(t, err)
	assert.Nil(t, stmt)
}

func TestStudentStatement_InvertedPeriod(t *testing.T) {
	f := newFixture(t)
	st := f.student(f.school("Lincoln Elementary").ID, "Ana", "Lopez")

	_, err := f.engine.StudentStatement(f.ctx, st.ID, datePtr("2024-05-01"), datePtr("2024-04-01"))

	assert.ErrorIs(t, err, ledger.ErrInvalidPeriod)
	assert.True(t, ledger.IsClientError(err))
}

func TestStudentStatement_SchoolLookupFails_UsesUnknownSchool(t *testing.T) {
	f := newFixture(t)
	st := f.student(f.school("Lincoln Elementary").ID, "Ana", "Lopez")
	f.repo.FailOn("FetchSchool", errors.New("connection reset"))

	stmt, err := f.engine.StudentStatement(f.ctx, st.ID, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, ledger.UnknownSchoolName, stmt.SchoolName)
}

func TestStudentStatement_InvoiceFetchFails_Propagates(t *testing.T) {
	f := newFixture(t)
	st := f.student(f.school("Lincoln Elementary").ID, "Ana", "Lopez")
	f.repo.FailOn("FetchInvoices", errors.New("disk full"))

	stmt, err := f.engine.StudentStatement(f.ctx, st.ID, nil, nil)

	assert.Nil(t, stmt)
	assert.ErrorIs(t, err, ledger.ErrRepository)
}

func TestStudentStatement_PagesThroughAllInvoices(t *testing.T) {
	f := newFixture(t)
	f.engine.PageSize = 3
	st := f.student(f.school("Lincoln Elementary").ID, "Ana", "Lopez")
	for i := 0; i < 10; i++ {
		f.invoice(st, "10", ledger.StatusPending, fmt.Sprintf("2024-02-%02d", i+1), "2024-12-31")
	}

	stmt, err := f.engine.StudentStatement(f.ctx, st.ID, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, 10, stmt.TotalInvoices)
	assertMoney(t, "100.00", stmt.PendingAmount, "all pages summed")
	assert.Equal(t, "2024-02-01", stmt.PendingInvoices[0].InvoiceDate.String(), "fetch order kept")
}

// =============================================================================
// SCHOOL STATEMENT
// =============================================================================

func TestSchoolStatement_AggregatesAndOrders(t *testing.T) {
	// GIVEN: A owes 350 (one overdue), B fully paid 300, C has no invoices
	f := newFixture(t)
	school := f.school("Lincoln Elementary")
	b := f.student(school.ID, "Ben", "Brown")
	a := f.student(school.ID, "Ana", "Lopez")
	f.student(school.ID, "Cal", "Chen")
	f.invoice(b, "300", ledger.StatusPaid, "2024-02-01", "2024-03-01")
	f.scenarioStudent(a)

	// WHEN: Building the school statement
	stmt, err := f.engine.SchoolStatement(f.ctx, school.ID, datePtr("2019-01-01"), nil)

	// THEN: Totals roll up and rows are ordered by balance
	require.NoError(t, err)
	require.NotNil(t, stmt)
	assertMoney(t, "750.00", stmt.TotalCharges, "charges")
	assertMoney(t, "400.00", stmt.TotalPayments, "payments")
	assertMoney(t, "350.00", stmt.CurrentBalance, "balance")
	assertMoney(t, "150.00", stmt.OverdueAmount, "overdue")

	assert.Equal(t, 3, stmt.TotalStudents)
	assert.Equal(t, 2, stmt.StudentsWithInvoices)
	assert.Equal(t, 1, stmt.StudentsWithBalance)
	assert.Equal(t, 1, stmt.StudentsOverdue)
	assert.Equal(t, 4, stmt.TotalInvoices)
	assert.Equal(t, 2, stmt.PaidInvoices)
	assert.Equal(t, 1, stmt.PendingInvoices)
	assert.Equal(t, 1, stmt.OverdueInvoices)

	require.Len(t, stmt.StudentSummaries, 2)
	assert.Equal(t, a.ID, stmt.StudentSummaries[0].StudentID)
	assert.Equal(t, b.ID, stmt.StudentSummaries[1].StudentID)

	require.NotNil(t, stmt.HighestBalanceStudent)
	assert.Equal(t, a.ID, stmt.HighestBalanceStudent.StudentID)
	require.NotNil(t, stmt.MostOverdueStudent)
	assert.Equal(t, a.ID, stmt.MostOverdueStudent.StudentID)
	assert.Equal(t, "1 Main St, Springfield, IL 62701", stmt.SchoolAddress)
}

func TestSchoolStatement_TotalsEqualSumOfRows(t *testing.T) {
	f := newFixture(t)
	school := f.school("Lincoln Elementary")
	for i := 0; i < 6; i++ {
		st := f.student(school.ID, fmt.Sprintf("S%d", i), "Doe")
		f.invoice(st, fmt.Sprintf("%d.10", 10*(i+1)), ledger.StatusPending, "2024-02-01", "2024-03-01")
		if i%2 == 0 {
			f.invoice(st, "33.33", ledger.StatusPaid, "2024-01-05", "2024-01-20")
		}
		if i%3 == 0 {
			f.invoice(st, "12.00", ledger.StatusCancelled, "2024-04-01", "2024-04-30")
		}
	}

	stmt, err := f.engine.SchoolStatement(f.ctx, school.ID, nil, nil)
	require.NoError(t, err)

	charges, payments, balance := ledger.Zero(), ledger.Zero(), ledger.Zero()
	invoices := 0
	for _, row := range stmt.StudentSummaries {
		charges = charges.Add(row.TotalCharges)
		payments = payments.Add(row.TotalPayments)
		balance = balance.Add(row.CurrentBalance)
		invoices += row.TotalInvoices
	}
	assert.True(t, charges.Equal(stmt.TotalCharges))
	assert.True(t, payments.Equal(stmt.TotalPayments))
	assert.True(t, balance.Equal(stmt.CurrentBalance))
	assert.Equal(t, invoices, stmt.TotalInvoices)

	for i := 1; i < len(stmt.StudentSummaries); i++ {
		prev, cur := stmt.StudentSummaries[i-1], stmt.StudentSummaries[i]
		assert.False(t, cur.CurrentBalance.GreaterThan(prev.CurrentBalance), "rows must be sorted by balance descending")
	}
}

func TestSchoolStatement_WireTotalsEqualSumOfWireRows(t *testing.T) {
	// GIVEN: Cent amounts that do not sum to round numbers
	f := newFixture(t)
	school := f.school("Lincoln Elementary")
	for i, total := range []string{"0.01", "19.99", "33.33", "0.05", "1234.57"} {
		st := f.student(school.ID, fmt.Sprintf("S%d", i), "Doe")
		f.invoice(st, total, ledger.StatusPending, "2024-02-01", "2024-09-01")
		f.invoice(st, "0.07", ledger.StatusPaid, "2024-01-05", "2024-01-20")
	}

	// WHEN: The statement is rendered
	stmt, err := f.engine.SchoolStatement(f.ctx, school.ID, nil, nil)
	require.NoError(t, err)

	// THEN: Summing the rows as written on the wire gives the wire totals
	wire := func(m ledger.Money) ledger.Money {
		t.Helper()
		b, err := json.Marshal(m)
		require.NoError(t, err)
		var back ledger.Money
		require.NoError(t, json.Unmarshal(b, &back))
		return back
	}
	charges, payments, balance := ledger.Zero(), ledger.Zero(), ledger.Zero()
	for _, row := range stmt.StudentSummaries {
		charges = charges.Add(wire(row.TotalCharges))
		payments = payments.Add(wire(row.TotalPayments))
		balance = balance.Add(wire(row.CurrentBalance))
	}
	assertMoney(t, wire(stmt.TotalCharges).String(), charges, "total_charges")
	assertMoney(t, wire(stmt.TotalPayments).String(), payments, "total_payments")
	assertMoney(t, wire(stmt.CurrentBalance).String(), balance, "current_balance")
	assert.True(t, wire(stmt.TotalCharges).Equal(stmt.TotalCharges))
}

func TestSchoolStatement_EqualBalancesKeepFetchOrder(t *testing.T) {
	f := newFixture(t)
	f.engine.Concurrency = 4
	school := f.school("Lincoln Elementary")
	var ids []ledger.StudentID
	for i := 0; i < 5; i++ {
		st := f.student(school.ID, fmt.Sprintf("S%d", i), "Doe")
		f.invoice(st, "50", ledger.StatusPending, "2024-02-01", "2024-12-01")
		ids = append(ids, st.ID)
	}

	stmt, err := f.engine.SchoolStatement(f.ctx, school.ID, nil, nil)

	require.NoError(t, err)
	require.Len(t, stmt.StudentSummaries, 5)
	for i, row := range stmt.StudentSummaries {
		assert.Equal(t, ids[i], row.StudentID)
	}
	assert.Nil(t, stmt.MostOverdueStudent, "nobody is overdue")
	assert.Equal(t, ids[0], stmt.HighestBalanceStudent.StudentID)
}

func TestSchoolStatement_MostOverdueDiffersFromHighestBalance(t *testing.T) {
	f := newFixture(t)
	school := f.school("Lincoln Elementary")
	big := f.student(school.ID, "Big", "Balance")
	late := f.student(school.ID, "Late", "Payer")
	f.invoice(big, "900", ledger.StatusPending, "2024-05-01", "2024-12-01")
	f.invoice(late, "60", ledger.StatusPending, "2024-01-01", "2024-02-01")

	stmt, err := f.engine.SchoolStatement(f.ctx, school.ID, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, big.ID, stmt.HighestBalanceStudent.StudentID)
	assert.Equal(t, late.ID, stmt.MostOverdueStudent.StudentID)
}

func TestSchoolStatement_NoInvoices(t *testing.T) {
	f := newFixture(t)
	school := f.school("Lincoln Elementary")
	f.student(school.ID, "Ana", "Lopez")

	stmt, err := f.engine.SchoolStatement(f.ctx, school.ID, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, stmt.TotalStudents)
	assert.Equal(t, 0, stmt.StudentsWithInvoices)
	assert.Empty(t, stmt.StudentSummaries)
	assert.NotNil(t, stmt.StudentSummaries)
	assert.Nil(t, stmt.HighestBalanceStudent)
	assert.Nil(t, stmt.MostOverdueStudent)
	assert.True(t, stmt.CurrentBalance.IsZero())
}

func TestSchoolStatement_PagesBeyondPageSize(t *testing.T) {
	f := newFixture(t)
	f.engine.PageSize = 4
	school := f.school("Lincoln Elementary")
	for i := 0; i < 11; i++ {
		st := f.student(school.ID, fmt.Sprintf("S%d", i), "Doe")
		f.invoice(st, "10", ledger.StatusPending, "2024-02-01", "2024-12-01")
	}

	stmt, err := f.engine.SchoolStatement(f.ctx, school.ID, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, 11, stmt.TotalStudents)
	assert.Len(t, stmt.StudentSummaries, 11)
	assertMoney(t, "110.00", stmt.TotalCharges, "no student truncated")
}

func TestSchoolStatement_UnknownSchool_ReturnsNil(t *testing.T) {
	f := newFixture(t)

	stmt, err := f.engine.SchoolStatement(f.ctx, 42, nil, nil)

	assert.NoError(t, err)
	assert.Nil(t, stmt)
}

func TestSchoolStatement_RepositoryFailure_NoPartialResult(t *testing.T) {
	f := newFixture(t)
	school := f.school("Lincoln Elementary")
	for i := 0; i < 3; i++ {
		st := f.student(school.ID, fmt.Sprintf("S%d", i), "Doe")
		f.invoice(st, "10", ledger.StatusPending, "2024-02-01", "2024-12-01")
	}
	f.repo.FailOn("FetchInvoices", errors.New("timeout"))

	stmt, err := f.engine.SchoolStatement(f.ctx, school.ID, nil, nil)

	assert.Nil(t, stmt)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrRepository)

	var rerr *ledger.RepositoryError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "FetchInvoices", rerr.Op)
}

func TestSchoolStatement_StudentFetchFailure(t *testing.T) {
	f := newFixture(t)
	school := f.school("Lincoln Elementary")
	f.repo.FailOn("FetchStudentsBySchool", errors.New("timeout"))

	_, err := f.engine.SchoolStatement(f.ctx, school.ID, nil, nil)

	assert.ErrorIs(t, err, ledger.ErrRepository)
}
