/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RealIP:        Client address behind proxies
  3. RequestLogger: One zap line per request (logging package)
  4. Recoverer:     Panic recovery (500 instead of crash)
  5. CORS:          Cross-origin requests for the frontend
  6. Auth:          Bearer token to Identity; required only when configured

ROUTE GROUPS:
  /health                       Liveness
  /metrics                      Prometheus
  /api/v1/auth/*                Register, login, refresh, me (always public
                                except /me)
  /api/v1/schools/*             School CRUD, students, statement
  /api/v1/students/*            Student CRUD, invoices, statement
  /api/v1/invoices/*            Invoice CRUD, payment, cancel
  /api/v1/cache/*               Cache admin
  /api/v1/scenarios/*           Demo data (dev only)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mattilda/school-ledger/auth"
	"github.com/mattilda/school-ledger/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions tune the router without touching handler wiring.
type RouterOptions struct {
	AllowedOrigins []string

	// RequireAuth puts every /api/v1 route outside /auth behind a bearer token.
	RequireAuth bool

	// EnableScenarios mounts /scenarios. Off in production.
	EnableScenarios bool

	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Cache"},
		AllowCredentials: false,
	}))

	r.Get("/health", h.Health)

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)
			r.With(auth.Middleware(h.Auth, true)).Get("/me", h.Me)
		})

		r.Group(func(r chi.Router) {
			if h.Auth != nil {
				r.Use(auth.Middleware(h.Auth, opts.RequireAuth))
			}

			// School routes
			r.Route("/schools", func(r chi.Router) {
				r.Get("/", h.ListSchools)
				r.Post("/", h.CreateSchool)
				r.Get("/{id}", h.GetSchool)
				r.Put("/{id}", h.UpdateSchool)
				r.Delete("/{id}", h.DeleteSchool)
				r.Get("/{id}/students", h.ListSchoolStudents)
				r.Get("/{id}/account-statement", h.GetSchoolStatement)
			})

			// Student routes
			r.Route("/students", func(r chi.Router) {
				r.Get("/", h.ListStudents)
				r.Post("/", h.CreateStudent)
				r.Get("/{id}", h.GetStudent)
				r.Put("/{id}", h.UpdateStudent)
				r.Delete("/{id}", h.DeleteStudent)
				r.Get("/{id}/invoices", h.ListStudentInvoices)
				r.Get("/{id}/account-statement", h.GetStudentStatement)
			})

			// Invoice routes
			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", h.ListInvoices)
				r.Post("/", h.CreateInvoice)
				r.Get("/{id}", h.GetInvoice)
				r.Put("/{id}", h.UpdateInvoice)
				r.Delete("/{id}", h.DeleteInvoice)
				r.Post("/{id}/payment", h.RecordPayment)
				r.Post("/{id}/cancel", h.CancelInvoice)
			})

			// Cache routes
			r.Route("/cache", func(r chi.Router) {
				r.Get("/stats", h.CacheStats)
				r.Get("/health", h.CacheHealth)
				r.Delete("/clear", h.ClearCache)
				r.Delete("/invalidate/{pattern}", h.InvalidateCache)
			})

			// Scenario routes
			if opts.EnableScenarios {
				r.Route("/scenarios", func(r chi.Router) {
					r.Get("/", h.ListScenarios)
					r.Get("/current", h.GetCurrentScenario)
					r.Post("/load", h.LoadScenario)
				})
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", nil)
	})

	return r
}
