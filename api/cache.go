package api

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/mattilda/school-ledger/cache"
	"go.uber.org/zap"
)

// =============================================================================
// CACHE KEYS
// =============================================================================
//
// Every per-entity key starts with "<entity>:<id>:" so a single substring
// invalidation clears the detail view and every statement window of that
// entity without touching ids that merely share a prefix (school 1 vs 12).

const keySchoolList = "schools:list"

func schoolPrefix(id int64) string  { return fmt.Sprintf("school:%d:", id) }
func studentPrefix(id int64) string { return fmt.Sprintf("student:%d:", id) }

func schoolDetailKey(id int64) string  { return schoolPrefix(id) + "detail" }
func studentDetailKey(id int64) string { return studentPrefix(id) + "detail" }

func schoolStatementKey(id int64, from, to string) string {
	return cache.Key(schoolPrefix(id)+"statement", map[string]string{"date_from": from, "date_to": to})
}

func studentStatementKey(id int64, from, to string) string {
	return cache.Key(studentPrefix(id)+"statement", map[string]string{"date_from": from, "date_to": to})
}

// listKey normalizes the query string so parameter order does not matter.
func listKey(op string, q url.Values) string {
	params := make(map[string]string, len(q))
	for k := range q {
		params[k] = q.Get(k)
	}
	return cache.Key(op, params)
}

// invalidate drops every entry containing one of patterns. Failures are
// logged; a write that already committed must not turn into a 500.
func (h *Handler) invalidate(r *http.Request, patterns ...string) {
	for _, p := range patterns {
		if _, err := h.Cache.InvalidatePattern(r.Context(), p); err != nil {
			h.Logger.Warn("cache invalidation failed", zap.String("pattern", p), zap.Error(err))
		}
	}
}

// =============================================================================
// CACHE ADMIN ENDPOINTS
// =============================================================================

// CacheStats returns per-tier counters.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Cache.Stats(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tiers": stats})
}

// ClearCache empties one tier (?tier=api|static) or all of them.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	tier := r.URL.Query().Get("tier")
	if err := h.Cache.Clear(r.Context(), tier); err != nil {
		if tier != "" {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		h.writeDomainError(w, r, err)
		return
	}
	h.Logger.Info("cache cleared", zap.String("tier", tier))
	msg := "Cache cleared"
	if tier != "" {
		msg = fmt.Sprintf("Cache tier %s cleared", tier)
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

// InvalidateCache removes entries whose key contains the path pattern.
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	pattern := chi.URLParam(r, "pattern")
	if pattern == "" {
		writeError(w, http.StatusBadRequest, "pattern is required", nil)
		return
	}
	n, err := h.Cache.InvalidatePattern(r.Context(), pattern)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Invalidated %d cache entries", n),
		"pattern": pattern,
		"removed": n,
	})
}

// CacheHealth round-trips a probe key through every tier.
func (h *Handler) CacheHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.Cache.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
