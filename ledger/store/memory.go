// Package store provides in-memory ledger.Repository implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattilda/school-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps schools, students and invoices in maps. Reads return copies.
type Memory struct {
	mu       sync.RWMutex
	schools  map[ledger.SchoolID]ledger.School
	students map[ledger.StudentID]ledger.Student
	invoices map[ledger.InvoiceID]ledger.Invoice

	nextSchool  ledger.SchoolID
	nextStudent ledger.StudentID
	nextInvoice ledger.InvoiceID

	failures map[string]error
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		schools:  make(map[ledger.SchoolID]ledger.School),
		students: make(map[ledger.StudentID]ledger.Student),
		invoices: make(map[ledger.InvoiceID]ledger.Invoice),
		failures: make(map[string]error),
		now:      time.Now,
	}
}

// FailOn makes every later call to op return err. A nil err clears it.
// Op names match the method names, e.g. "FetchInvoices".
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Reset drops all data and restarts ID sequences.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schools = make(map[ledger.SchoolID]ledger.School)
	m.students = make(map[ledger.StudentID]ledger.Student)
	m.invoices = make(map[ledger.InvoiceID]ledger.Invoice)
	m.nextSchool, m.nextStudent, m.nextInvoice = 0, 0, 0
	return nil
}

func (m *Memory) failure(op string) error {
	if err, ok := m.failures[op]; ok {
		return &ledger.RepositoryError{Op: op, Err: err}
	}
	return nil
}

// window slices items by page and returns the slice plus the full count.
func window[T any](items []T, page ledger.Page) ([]T, int) {
	total := len(items)
	if page.Offset >= total {
		return []T{}, total
	}
	end := total
	if page.Limit > 0 && page.Offset+page.Limit < total {
		end = page.Offset + page.Limit
	}
	return items[page.Offset:end], total
}

// =============================================================================
// LEDGER READER
// =============================================================================

func (m *Memory) FetchInvoices(_ context.Context, f ledger.InvoiceFilter, page ledger.Page) ([]ledger.Invoice, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FetchInvoices"); err != nil {
		return nil, 0, err
	}

	var result []ledger.Invoice
	for _, inv := range m.invoices {
		if matchInvoice(inv, f) {
			result = append(result, inv)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].InvoiceDate.Equal(result[j].InvoiceDate) {
			return result[i].InvoiceDate.Before(result[j].InvoiceDate)
		}
		return result[i].ID < result[j].ID
	})
	items, total := window(result, page)
	return append([]ledger.Invoice(nil), items...), total, nil
}

func matchInvoice(inv ledger.Invoice, f ledger.InvoiceFilter) bool {
	switch {
	case f.StudentID != nil && inv.StudentID != *f.StudentID:
		return false
	case f.SchoolID != nil && inv.SchoolID != *f.SchoolID:
		return false
	case f.Status != nil && inv.Status != *f.Status:
		return false
	case f.InvoiceDateFrom != nil && inv.InvoiceDate.Before(*f.InvoiceDateFrom):
		return false
	case f.InvoiceDateTo != nil && inv.InvoiceDate.After(*f.InvoiceDateTo):
		return false
	}
	return true
}

func (m *Memory) FetchStudentsBySchool(ctx context.Context, schoolID ledger.SchoolID, page ledger.Page) ([]ledger.Student, int, error) {
	m.mu.RLock()
	if err := m.failure("FetchStudentsBySchool"); err != nil {
		m.mu.RUnlock()
		return nil, 0, err
	}
	m.mu.RUnlock()
	return m.ListStudents(ctx, ledger.StudentFilter{SchoolID: &schoolID}, page)
}

func (m *Memory) FetchSchool(_ context.Context, id ledger.SchoolID) (*ledger.School, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FetchSchool"); err != nil {
		return nil, err
	}
	s, ok := m.schools[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) FetchStudent(_ context.Context, id ledger.StudentID) (*ledger.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FetchStudent"); err != nil {
		return nil, err
	}
	s, ok := m.students[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// =============================================================================
// SCHOOLS
// =============================================================================

func (m *Memory) ListSchools(_ context.Context, f ledger.SchoolFilter, page ledger.Page) ([]ledger.School, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("ListSchools"); err != nil {
		return nil, 0, err
	}

	var result []ledger.School
	for _, s := range m.schools {
		if f.Name != nil && !containsFold(s.Name, *f.Name) {
			continue
		}
		if f.City != nil && !containsFold(s.City, *f.City) {
			continue
		}
		if f.State != nil && !strings.EqualFold(s.State, *f.State) {
			continue
		}
		if f.IsActive != nil && s.IsActive != *f.IsActive {
			continue
		}
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	items, total := window(result, page)
	return append([]ledger.School(nil), items...), total, nil
}

func (m *Memory) CreateSchool(_ context.Context, s ledger.School) (ledger.School, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateSchool"); err != nil {
		return ledger.School{}, err
	}
	m.nextSchool++
	s.ID = m.nextSchool
	s.CreatedAt = m.now()
	s.UpdatedAt = s.CreatedAt
	m.schools[s.ID] = s
	return s, nil
}

func (m *Memory) UpdateSchool(_ context.Context, s ledger.School) (ledger.School, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpdateSchool"); err != nil {
		return ledger.School{}, err
	}
	old, ok := m.schools[s.ID]
	if !ok {
		return ledger.School{}, &ledger.NotFoundError{Entity: "school", ID: int64(s.ID)}
	}
	s.CreatedAt = old.CreatedAt
	s.UpdatedAt = m.now()
	m.schools[s.ID] = s
	return s, nil
}

// DeleteSchool removes the school together with its students and invoices.
func (m *Memory) DeleteSchool(_ context.Context, id ledger.SchoolID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("DeleteSchool"); err != nil {
		return false, err
	}
	if _, ok := m.schools[id]; !ok {
		return false, nil
	}
	delete(m.schools, id)
	for sid, st := range m.students {
		if st.SchoolID == id {
			m.deleteStudentLocked(sid)
		}
	}
	return true, nil
}

func (m *Memory) CountStudents(_ context.Context, id ledger.SchoolID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("CountStudents"); err != nil {
		return 0, err
	}
	n := 0
	for _, st := range m.students {
		if st.SchoolID == id {
			n++
		}
	}
	return n, nil
}

// =============================================================================
// STUDENTS
// =============================================================================

func (m *Memory) ListStudents(_ context.Context, f ledger.StudentFilter, page ledger.Page) ([]ledger.Student, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("ListStudents"); err != nil {
		return nil, 0, err
	}

	var result []ledger.Student
	for _, s := range m.students {
		if f.SchoolID != nil && s.SchoolID != *f.SchoolID {
			continue
		}
		if f.GradeLevel != nil && s.GradeLevel != *f.GradeLevel {
			continue
		}
		if f.Name != nil && !containsFold(s.FirstName, *f.Name) && !containsFold(s.LastName, *f.Name) {
			continue
		}
		if f.IsActive != nil && s.IsActive != *f.IsActive {
			continue
		}
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	items, total := window(result, page)
	return append([]ledger.Student(nil), items...), total, nil
}

func (m *Memory) CreateStudent(_ context.Context, s ledger.Student) (ledger.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateStudent"); err != nil {
		return ledger.Student{}, err
	}
	if _, ok := m.schools[s.SchoolID]; !ok {
		return ledger.Student{}, &ledger.NotFoundError{Entity: "school", ID: int64(s.SchoolID)}
	}
	m.nextStudent++
	s.ID = m.nextStudent
	s.CreatedAt = m.now()
	s.UpdatedAt = s.CreatedAt
	m.students[s.ID] = s
	return s, nil
}

func (m *Memory) UpdateStudent(_ context.Context, s ledger.Student) (ledger.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpdateStudent"); err != nil {
		return ledger.Student{}, err
	}
	old, ok := m.students[s.ID]
	if !ok {
		return ledger.Student{}, &ledger.NotFoundError{Entity: "student", ID: int64(s.ID)}
	}
	if _, ok := m.schools[s.SchoolID]; !ok {
		return ledger.Student{}, &ledger.NotFoundError{Entity: "school", ID: int64(s.SchoolID)}
	}
	s.CreatedAt = old.CreatedAt
	s.UpdatedAt = m.now()
	m.students[s.ID] = s
	return s, nil
}

func (m *Memory) DeleteStudent(_ context.Context, id ledger.StudentID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("DeleteStudent"); err != nil {
		return false, err
	}
	if _, ok := m.students[id]; !ok {
		return false, nil
	}
	m.deleteStudentLocked(id)
	return true, nil
}

func (m *Memory) deleteStudentLocked(id ledger.StudentID) {
	delete(m.students, id)
	for iid, inv := range m.invoices {
		if inv.StudentID == id {
			delete(m.invoices, iid)
		}
	}
}

// =============================================================================
// INVOICES
// =============================================================================

func (m *Memory) FetchInvoice(_ context.Context, id ledger.InvoiceID) (*ledger.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("FetchInvoice"); err != nil {
		return nil, err
	}
	inv, ok := m.invoices[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

// CreateInvoice stores inv. The school is taken from the student when unset.
func (m *Memory) CreateInvoice(_ context.Context, inv ledger.Invoice) (ledger.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateInvoice"); err != nil {
		return ledger.Invoice{}, err
	}
	st, ok := m.students[inv.StudentID]
	if !ok {
		return ledger.Invoice{}, &ledger.NotFoundError{Entity: "student", ID: int64(inv.StudentID)}
	}
	if inv.SchoolID == 0 {
		inv.SchoolID = st.SchoolID
	}
	m.nextInvoice++
	inv.ID = m.nextInvoice
	inv.CreatedAt = m.now()
	inv.UpdatedAt = inv.CreatedAt
	m.invoices[inv.ID] = inv
	return inv, nil
}

func (m *Memory) UpdateInvoice(_ context.Context, inv ledger.Invoice) (ledger.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpdateInvoice"); err != nil {
		return ledger.Invoice{}, err
	}
	old, ok := m.invoices[inv.ID]
	if !ok {
		return ledger.Invoice{}, &ledger.NotFoundError{Entity: "invoice", ID: int64(inv.ID)}
	}
	inv.CreatedAt = old.CreatedAt
	inv.UpdatedAt = m.now()
	m.invoices[inv.ID] = inv
	return inv, nil
}

func (m *Memory) DeleteInvoice(_ context.Context, id ledger.InvoiceID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("DeleteInvoice"); err != nil {
		return false, err
	}
	if _, ok := m.invoices[id]; !ok {
		return false, nil
	}
	delete(m.invoices, id)
	return true, nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

var _ ledger.Repository = (*Memory)(nil)
