package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattilda/school-ledger/cache"
)

func TestCacheEndpoints(t *testing.T) {
	// GIVEN: A cached statement and a cached school
	hs := newHarness(t)
	hs.student(hs.school("Lincoln").ID, "Ana", "Silva")
	statementJSON(t, hs, "/api/v1/students/1/account-statement")
	require.Equal(t, http.StatusOK, hs.do(http.MethodGet, "/api/v1/schools/1", nil).Code)

	// WHEN: Stats are read
	rec := hs.do(http.MethodGet, "/api/v1/cache/stats", nil)

	// THEN: Both tiers report one entry each
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[map[string][]cache.Stats](t, rec)["tiers"]
	require.Len(t, stats, 2)
	assert.Equal(t, cache.TierAPI, stats[0].Tier)
	assert.Equal(t, 1, stats[0].Entries)
	assert.Equal(t, cache.TierStatic, stats[1].Tier)
	assert.Equal(t, 1, stats[1].Entries)

	// WHEN: The student is invalidated by pattern
	rec = hs.do(http.MethodDelete, "/api/v1/cache/invalidate/student:1:", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["removed"])

	// THEN: The statement is recomputed
	_, xcache := statementJSON(t, hs, "/api/v1/students/1/account-statement")
	assert.Equal(t, "MISS", xcache)

	// WHEN: One tier is cleared
	require.Equal(t, http.StatusOK, hs.do(http.MethodDelete, "/api/v1/cache/clear?tier=static", nil).Code)
	stats = decode[map[string][]cache.Stats](t, hs.do(http.MethodGet, "/api/v1/cache/stats", nil))["tiers"]
	assert.Equal(t, 1, stats[0].Entries)
	assert.Equal(t, 0, stats[1].Entries)

	// THEN: Unknown tiers are rejected, a full clear works
	assert.Equal(t, http.StatusBadRequest, hs.do(http.MethodDelete, "/api/v1/cache/clear?tier=disk", nil).Code)
	require.Equal(t, http.StatusOK, hs.do(http.MethodDelete, "/api/v1/cache/clear", nil).Code)
	stats = decode[map[string][]cache.Stats](t, hs.do(http.MethodGet, "/api/v1/cache/stats", nil))["tiers"]
	assert.Equal(t, 0, stats[0].Entries)
}

func TestCacheHealthEndpoint(t *testing.T) {
	hs := newHarness(t)

	rec := hs.do(http.MethodGet, "/api/v1/cache/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
}
