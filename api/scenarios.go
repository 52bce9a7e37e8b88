/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	billing data. Dates are relative to "today" so the overdue bucket always
	has something in it.

AVAILABLE SCENARIOS:

	demo-district:  Two schools, a handful of students, every invoice state
	                including a legacy stored "overdue" row and a cancelled
	                charge
	large-school:   One school with many students, for paging and statement
	                fan-out
	empty:          Just resets the database

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create schools
 3. Create students
 4. Issue invoices, then pay or cancel some of them through the ledger

USAGE VIA API:

	POST /api/v1/scenarios/load
	{"scenario_id": "demo-district"}

USAGE VIA CLI:

	mattilda seed demo-district

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - cmd/server/main.go: seed command
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mattilda/school-ledger/ledger"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "demo-district",
		Name:        "Demo District",
		Description: "Two schools with paid, pending, overdue, legacy overdue and cancelled invoices",
	},
	{
		ID:          "large-school",
		Name:        "Large School",
		Description: "One school with 120 students and three invoices each",
	},
	{
		ID:          "empty",
		Name:        "Empty",
		Description: "Clears every school, student and invoice",
	},
}

// ErrUnknownScenario is returned by Seed for an id not in Scenarios.
var ErrUnknownScenario = errors.New("unknown scenario")

// ErrResetUnsupported means the repository cannot be wiped.
var ErrResetUnsupported = errors.New("repository does not support reset")

// Resetter is implemented by repositories that can be wiped.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Scenarios lists the loadable scenarios.
func Scenarios() []ScenarioDTO {
	out := make([]ScenarioDTO, len(scenarios))
	copy(out, scenarios)
	return out
}

// Seed resets repo and loads the named scenario.
func Seed(ctx context.Context, repo ledger.Repository, scenarioID string, today ledger.Date) error {
	var load func(context.Context, *seeder) error
	switch scenarioID {
	case "demo-district":
		load = loadDemoDistrict
	case "large-school":
		load = loadLargeSchool
	case "empty":
		load = func(context.Context, *seeder) error { return nil }
	default:
		return fmt.Errorf("%w: %s", ErrUnknownScenario, scenarioID)
	}

	rs, ok := repo.(Resetter)
	if !ok {
		return ErrResetUnsupported
	}
	if err := rs.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return load(ctx, &seeder{repo: repo, today: today})
}

// =============================================================================
// HANDLERS
// =============================================================================

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios())
}

func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": current})
}

func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	err := Seed(r.Context(), h.Repo, req.ScenarioID, h.today())
	switch {
	case errors.Is(err, ErrUnknownScenario):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	case errors.Is(err, ErrResetUnsupported):
		writeError(w, http.StatusNotImplemented, err.Error(), nil)
		return
	case err != nil:
		h.writeDomainError(w, r, err)
		return
	}

	if err := h.Cache.Clear(r.Context(), ""); err != nil {
		h.Logger.Warn("cache clear after scenario load failed", zap.Error(err))
	}
	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	h.Logger.Info("scenario loaded", zap.String("scenario_id", req.ScenarioID))
	writeJSON(w, http.StatusOK, map[string]string{
		"message":     "Scenario loaded successfully",
		"scenario_id": req.ScenarioID,
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

type seeder struct {
	repo  ledger.Repository
	today ledger.Date
	seq   int
}

func (s *seeder) school(ctx context.Context, name, city, state, principal string) (ledger.School, error) {
	return s.repo.CreateSchool(ctx, ledger.School{
		Name:            name,
		Address:         "100 Main St",
		City:            city,
		State:           state,
		ZipCode:         "10001",
		Phone:           "555-0100",
		Email:           "office@" + slug(name) + ".edu",
		Principal:       principal,
		EstablishedYear: 1990,
		IsActive:        true,
	})
}

func (s *seeder) student(ctx context.Context, school ledger.School, first, last string, grade int) (ledger.Student, error) {
	return s.repo.CreateStudent(ctx, ledger.Student{
		SchoolID:       school.ID,
		FirstName:      first,
		LastName:       last,
		Email:          slug(first) + "." + slug(last) + "@students.example.com",
		DateOfBirth:    s.today.AddMonths(-12 * (grade + 5)),
		GradeLevel:     grade,
		EnrollmentDate: ledger.NewDate(s.today.Year()-1, 9, 1),
		GuardianName:   "Parent of " + first,
		GuardianPhone:  "555-0199",
		IsActive:       true,
	})
}

// invoice issues a pending invoice daysAgo days before today, due 30 days
// after issue.
func (s *seeder) invoice(ctx context.Context, st ledger.Student, desc string, amount, tax string, daysAgo int) (ledger.Invoice, error) {
	s.seq++
	issued := s.today.AddDays(-daysAgo)
	inv, err := ledger.NewInvoice(ledger.InvoiceDraft{
		InvoiceNumber: fmt.Sprintf("INV-%d-%04d", s.today.Year(), s.seq),
		StudentID:     st.ID,
		SchoolID:      st.SchoolID,
		Amount:        ledger.MustParseMoney(amount),
		TaxAmount:     ledger.MustParseMoney(tax),
		Description:   desc,
		InvoiceDate:   issued,
		DueDate:       issued.AddDays(30),
	})
	if err != nil {
		return ledger.Invoice{}, err
	}
	return s.repo.CreateInvoice(ctx, inv)
}

func (s *seeder) paid(ctx context.Context, inv ledger.Invoice, method ledger.PaymentMethod) error {
	next, err := inv.MarkAsPaid(inv.InvoiceDate.AddDays(10), method, "")
	if err != nil {
		return err
	}
	_, err = s.repo.UpdateInvoice(ctx, next)
	return err
}

func (s *seeder) cancelled(ctx context.Context, inv ledger.Invoice, reason string) error {
	next, err := inv.Cancel(reason)
	if err != nil {
		return err
	}
	_, err = s.repo.UpdateInvoice(ctx, next)
	return err
}

// legacyOverdue stores the pre-migration "overdue" status directly.
func (s *seeder) legacyOverdue(ctx context.Context, inv ledger.Invoice) error {
	inv.Status = ledger.StatusOverdue
	_, err := s.repo.UpdateInvoice(ctx, inv)
	return err
}

func loadDemoDistrict(ctx context.Context, s *seeder) error {
	lincoln, err := s.school(ctx, "Lincoln Elementary", "Springfield", "IL", "Dana Whitaker")
	if err != nil {
		return err
	}
	roosevelt, err := s.school(ctx, "Roosevelt High", "Portland", "OR", "Luis Ortega")
	if err != nil {
		return err
	}

	// Ana: one paid, one pending, one past due.
	ana, err := s.student(ctx, lincoln, "Ana", "Silva", 3)
	if err != nil {
		return err
	}
	tuition, err := s.invoice(ctx, ana, "Monthly tuition", "250.00", "25.00", 75)
	if err != nil {
		return err
	}
	if err := s.paid(ctx, tuition, ledger.PaymentBankTransfer); err != nil {
		return err
	}
	if _, err := s.invoice(ctx, ana, "Monthly tuition", "250.00", "25.00", 45); err != nil {
		return err
	}
	if _, err := s.invoice(ctx, ana, "Field trip", "40.00", "0.00", 5); err != nil {
		return err
	}

	// Ben: fully paid up.
	ben, err := s.student(ctx, lincoln, "Ben", "Carter", 5)
	if err != nil {
		return err
	}
	for _, days := range []int{70, 40} {
		inv, err := s.invoice(ctx, ben, "Monthly tuition", "250.00", "25.00", days)
		if err != nil {
			return err
		}
		if err := s.paid(ctx, inv, ledger.PaymentCreditCard); err != nil {
			return err
		}
	}

	// Chloe: a legacy overdue row and a cancelled lab fee.
	chloe, err := s.student(ctx, lincoln, "Chloe", "Nguyen", 4)
	if err != nil {
		return err
	}
	old, err := s.invoice(ctx, chloe, "Books", "120.00", "12.00", 60)
	if err != nil {
		return err
	}
	if err := s.legacyOverdue(ctx, old); err != nil {
		return err
	}
	lab, err := s.invoice(ctx, chloe, "Lab fee", "35.00", "0.00", 20)
	if err != nil {
		return err
	}
	if err := s.cancelled(ctx, lab, "Lab closed for renovation"); err != nil {
		return err
	}

	// Dylan: enrolled, nothing billed yet.
	if _, err := s.student(ctx, lincoln, "Dylan", "Brooks", 2); err != nil {
		return err
	}

	// Roosevelt: two seniors with larger balances.
	eva, err := s.student(ctx, roosevelt, "Eva", "Moreno", 12)
	if err != nil {
		return err
	}
	if _, err := s.invoice(ctx, eva, "Semester tuition", "1800.00", "180.00", 50); err != nil {
		return err
	}
	finn, err := s.student(ctx, roosevelt, "Finn", "Olsen", 11)
	if err != nil {
		return err
	}
	sem, err := s.invoice(ctx, finn, "Semester tuition", "1800.00", "180.00", 50)
	if err != nil {
		return err
	}
	if err := s.paid(ctx, sem, ledger.PaymentCheck); err != nil {
		return err
	}
	_, err = s.invoice(ctx, finn, "Sports program", "300.00", "30.00", 10)
	return err
}

func loadLargeSchool(ctx context.Context, s *seeder) error {
	school, err := s.school(ctx, "Jefferson Academy", "Austin", "TX", "Grace Holloway")
	if err != nil {
		return err
	}
	for i := 1; i <= 120; i++ {
		st, err := s.student(ctx, school, fmt.Sprintf("Student%03d", i), "Jefferson", 1+i%12)
		if err != nil {
			return err
		}
		for j, days := range []int{90, 45, 10} {
			inv, err := s.invoice(ctx, st, "Monthly tuition", "200.00", "20.00", days)
			if err != nil {
				return err
			}
			// Every third student settles the oldest invoice.
			if j == 0 && i%3 == 0 {
				if err := s.paid(ctx, inv, ledger.PaymentCash); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func slug(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		}
	}
	return string(out)
}
