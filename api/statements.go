package api

import (
	"net/http"
	"time"

	"github.com/mattilda/school-ledger/cache"
	"github.com/mattilda/school-ledger/ledger"
)

// =============================================================================
// ACCOUNT STATEMENTS
// =============================================================================
//
// GET /students/{id}/account-statement?date_from=&date_to=
// GET /schools/{id}/account-statement?date_from=&date_to=
//
// Both read through the api cache tier. The key holds the canonical dates
// as given; an omitted bound stays omitted so the default window follows
// the calendar (the sweeper clears the tier when the day changes).
//
// X-Cache: HIT or MISS tells clients which path served the response.

// statementWindow parses date_from/date_to. Inverted windows are rejected
// by the engine, not here.
func statementWindow(r *http.Request) (from, to *ledger.Date, fromKey, toKey string, err error) {
	if from, err = queryDate(r, "date_from"); err != nil {
		return
	}
	if to, err = queryDate(r, "date_to"); err != nil {
		return
	}
	if from != nil {
		fromKey = from.String()
	}
	if to != nil {
		toKey = to.String()
	}
	return
}

func (h *Handler) GetStudentStatement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	from, to, fromKey, toKey, err := statementWindow(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	ctx := r.Context()
	key := studentStatementKey(id, fromKey, toKey)

	var cached StudentStatementDTO
	if h.Cache.GetJSON(ctx, cache.TierAPI, key, &cached) {
		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, http.StatusOK, cached)
		return
	}

	start := time.Now()
	stmt, err := h.Engine.StudentStatement(ctx, ledger.StudentID(id), from, to)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if stmt == nil {
		notFound(w, "Student")
		return
	}
	h.Metrics.observeStatement("student", start)

	dto := NewStudentStatementDTO(stmt)
	h.Cache.SetJSON(ctx, cache.TierAPI, key, dto)
	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) GetSchoolStatement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	from, to, fromKey, toKey, err := statementWindow(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	ctx := r.Context()
	key := schoolStatementKey(id, fromKey, toKey)

	var cached SchoolStatementDTO
	if h.Cache.GetJSON(ctx, cache.TierAPI, key, &cached) {
		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, http.StatusOK, cached)
		return
	}

	start := time.Now()
	stmt, err := h.Engine.SchoolStatement(ctx, ledger.SchoolID(id), from, to)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if stmt == nil {
		notFound(w, "School")
		return
	}
	h.Metrics.observeStatement("school", start)

	dto := NewSchoolStatementDTO(stmt)
	h.Cache.SetJSON(ctx, cache.TierAPI, key, dto)
	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, dto)
}
