/*
handlers.go - HTTP API handlers for the school ledger

PURPOSE:
  Exposes schools, students, invoices and account statements via REST.
  Handles HTTP request/response, JSON serialization, caching and delegates
  to the ledger package for every business rule.

ENDPOINTS (all under /api/v1):
  Schools:    schools.go
  Students:   students.go
  Invoices:   invoices.go
  Statements: statements.go
  Auth:       auth.go
  Cache:      cache.go
  Scenarios:  scenarios.go

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Repo:   ledger.Repository (SQLite in production, memory in tests)
  - Engine: ledger.StatementEngine over the same repository
  - Cache:  two-tier response cache (api for statements, static for lookups)
  - Auth:   registration, login and token checks

REQUEST FLOW:
  1. Parse path/query, decode and validate body
  2. Try the cache for reads
  3. Call ledger (transition, statement) and the repository
  4. Invalidate cache entries touched by a write
  5. Serialize response or map the error

ERROR HANDLING:
  Errors are returned as {"error": msg, "details": ...}:
  - 400: malformed input, ledger.ErrValidation
  - 401: missing or invalid bearer token
  - 404: ledger.ErrNotFound, or a statement root that does not exist
  - 409: ledger.ErrInvalidState, duplicate user
  - 500: ledger.ErrRepository and anything unexpected

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/mattilda/school-ledger/auth"
	"github.com/mattilda/school-ledger/cache"
	"github.com/mattilda/school-ledger/ledger"
	"go.uber.org/zap"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Repo    ledger.Repository
	Engine  *ledger.StatementEngine
	Cache   *cache.Manager
	Auth    *auth.Service
	Metrics *Metrics
	Logger  *zap.Logger

	clock    func() time.Time
	validate *validator.Validate

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler wires a handler around repo. A nil cache manager gets an
// in-memory one with default tiers.
func NewHandler(repo ledger.Repository, c *cache.Manager, authSvc *auth.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = cache.NewMemoryManager(cache.DefaultTiers(), nil, logger)
	}
	return &Handler{
		Repo:     repo,
		Engine:   ledger.NewStatementEngine(repo, logger.Named("statement")),
		Cache:    c,
		Auth:     authSvc,
		Metrics:  NewMetrics(nil),
		Logger:   logger,
		clock:    time.Now,
		validate: newValidator(),
	}
}

// SetClock overrides "now" for the handler and its statement engine.
func (h *Handler) SetClock(clock func() time.Time) {
	h.clock = clock
	h.Engine.Clock = clock
}

func (h *Handler) today() ledger.Date {
	return ledger.DateOf(h.clock())
}

// Health reports liveness plus cache reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "healthy", "cache": "healthy"}
	if err := h.Cache.Health(r.Context()); err != nil {
		status["cache"] = "unhealthy"
		h.Logger.Warn("cache health check failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, status)
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// decodeJSON reads the body into dst and runs struct validation.
func (h *Handler) decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &requestError{msg: "Invalid request body", err: err}
	}
	if err := h.validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

// requestError is malformed input caught before the ledger sees it.
type requestError struct {
	msg string
	err error
}

func (e *requestError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *requestError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("Invalid %s: %q", name, raw)
	}
	return id, nil
}

// parsePage reads offset/limit. Limit defaults to 100 and is capped at 1000.
func parsePage(r *http.Request) (ledger.Page, error) {
	page := ledger.Page{Limit: defaultLimit}
	q := r.URL.Query()
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return page, badRequest("offset must be a non-negative integer")
		}
		page.Offset = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxLimit {
			return page, badRequest("limit must be between 1 and %d", maxLimit)
		}
		page.Limit = n
	}
	return page, nil
}

func queryString(r *http.Request, name string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil
	}
	return &v
}

func queryInt(r *http.Request, name string) (*int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, badRequest("%s must be an integer", name)
	}
	return &n, nil
}

func queryBool(r *http.Request, name string) (*bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, badRequest("%s must be true or false", name)
	}
	return &b, nil
}

func queryDate(r *http.Request, name string) (*ledger.Date, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	d, err := ledger.ParseDate(v)
	if err != nil {
		return nil, badRequest("%s must be a date in YYYY-MM-DD format", name)
	}
	return &d, nil
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, details any) {
	writeJSON(w, status, ErrorResponse{Error: message, Details: details})
}

// writeDomainError maps err onto a status code. Repository failures are
// checked first: a row that fails to parse is a storage problem even though
// it wraps a ValidationError.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		reqErr   *requestError
		verrs    validator.ValidationErrors
		ledgErr  *ledger.ValidationError
		stateErr *ledger.InvalidStateError
	)
	switch {
	case errors.Is(err, ledger.ErrRepository):
		h.Logger.Error("repository failure",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
	case errors.As(err, &reqErr):
		writeError(w, http.StatusBadRequest, reqErr.msg, nil)
	case errors.As(err, &verrs):
		writeError(w, http.StatusBadRequest, "Validation failed", fieldErrors(verrs))
	case errors.As(err, &ledgErr):
		writeError(w, http.StatusBadRequest, ledgErr.Message, map[string]string{ledgErr.Field: ledgErr.Message})
	case errors.As(err, &stateErr):
		writeError(w, http.StatusConflict, stateErr.Message, map[string]any{
			"invoice_id": stateErr.InvoiceID,
			"status":     stateErr.Status,
			"action":     stateErr.Action,
		})
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	default:
		h.Logger.Error("unhandled error",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}

// fieldErrors flattens validator output to field -> failed tag.
func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func notFound(w http.ResponseWriter, entity string) {
	writeError(w, http.StatusNotFound, entity+" not found", nil)
}
