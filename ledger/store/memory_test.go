package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattilda/school-ledger/ledger"
)

func seedMemory(t *testing.T) (*Memory, ledger.School, ledger.Student) {
	t.Helper()
	ctx := context.Background()
	m := NewMemory()
	school, err := m.CreateSchool(ctx, ledger.School{Name: "Oak Hill", Address: "2 Elm", City: "Austin", State: "TX", ZipCode: "73301", IsActive: true})
	require.NoError(t, err)
	student, err := m.CreateStudent(ctx, ledger.Student{SchoolID: school.ID, FirstName: "Mia", LastName: "Reed", Email: "mia@example.com", GradeLevel: 3, IsActive: true})
	require.NoError(t, err)
	return m, school, student
}

func TestMemory_FetchMissing_ReturnsNilNil(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	school, err := m.FetchSchool(ctx, 1)
	assert.NoError(t, err)
	assert.Nil(t, school)

	student, err := m.FetchStudent(ctx, 1)
	assert.NoError(t, err)
	assert.Nil(t, student)

	inv, err := m.FetchInvoice(ctx, 1)
	assert.NoError(t, err)
	assert.Nil(t, inv)
}

func TestMemory_FetchInvoices_FiltersAndOrders(t *testing.T) {
	m, school, student := seedMemory(t)
	ctx := context.Background()

	for _, d := range []string{"2024-03-01", "2024-01-01", "2024-02-01"} {
		_, err := m.CreateInvoice(ctx, ledger.Invoice{
			StudentID:   student.ID,
			Amount:      ledger.MustParseMoney("10"),
			TaxAmount:   ledger.Zero(),
			TotalAmount: ledger.MustParseMoney("10"),
			InvoiceDate: ledger.MustParseDate(d),
			DueDate:     ledger.MustParseDate(d),
			Status:      ledger.StatusPending,
		})
		require.NoError(t, err)
	}

	from := ledger.MustParseDate("2024-01-15")
	got, total, err := m.FetchInvoices(ctx, ledger.InvoiceFilter{StudentID: &student.ID, InvoiceDateFrom: &from}, ledger.Page{})

	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-02-01", got[0].InvoiceDate.String())
	assert.Equal(t, "2024-03-01", got[1].InvoiceDate.String())
	assert.Equal(t, school.ID, got[0].SchoolID, "school derived from student")
}

func TestMemory_Pagination(t *testing.T) {
	m, school, _ := seedMemory(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := m.CreateStudent(ctx, ledger.Student{SchoolID: school.ID, FirstName: "S", LastName: "T"})
		require.NoError(t, err)
	}

	page, total, err := m.FetchStudentsBySchool(ctx, school.ID, ledger.Page{Offset: 3, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, page, 2)

	page, total, err = m.FetchStudentsBySchool(ctx, school.ID, ledger.Page{Offset: 10, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, page)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	m, school, _ := seedMemory(t)
	ctx := context.Background()

	got, err := m.FetchSchool(ctx, school.ID)
	require.NoError(t, err)
	got.Name = "changed"

	again, err := m.FetchSchool(ctx, school.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oak Hill", again.Name)
}

func TestMemory_DeleteSchool_Cascades(t *testing.T) {
	m, school, student := seedMemory(t)
	ctx := context.Background()
	inv, err := m.CreateInvoice(ctx, ledger.Invoice{StudentID: student.ID, Status: ledger.StatusPending})
	require.NoError(t, err)

	ok, err := m.DeleteSchool(ctx, school.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	gone, err := m.FetchStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	goneInv, err := m.FetchInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Nil(t, goneInv)

	ok, err = m.DeleteSchool(ctx, school.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_CreateStudent_UnknownSchool(t *testing.T) {
	m := NewMemory()

	_, err := m.CreateStudent(context.Background(), ledger.Student{SchoolID: 7})

	assert.True(t, ledger.IsNotFound(err))
}

func TestMemory_FailOn(t *testing.T) {
	m, school, _ := seedMemory(t)
	ctx := context.Background()
	boom := errors.New("boom")

	m.FailOn("FetchSchool", boom)
	_, err := m.FetchSchool(ctx, school.ID)
	assert.ErrorIs(t, err, ledger.ErrRepository)
	assert.ErrorIs(t, err, boom)

	m.FailOn("FetchSchool", nil)
	_, err = m.FetchSchool(ctx, school.ID)
	assert.NoError(t, err)
}

func TestMemory_Reset(t *testing.T) {
	m, _, _ := seedMemory(t)
	ctx := context.Background()

	require.NoError(t, m.Reset(ctx))

	_, total, err := m.ListSchools(ctx, ledger.SchoolFilter{}, ledger.Page{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	s, err := m.CreateSchool(ctx, ledger.School{Name: "New"})
	require.NoError(t, err)
	assert.Equal(t, ledger.SchoolID(1), s.ID)
}
