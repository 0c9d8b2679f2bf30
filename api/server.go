/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request, echoed in access logs
  2. RequestLogger: zap access log (Warn on 4xx, Error on 5xx)
  3. Instrument:    Prometheus request count + latency per route
  4. Recoverer:     Panic recovery (500 instead of crash)
  5. CORS:          Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/customers/*              Customer records
  /api/projects/*               Projects (creation posts the project debit)
  /api/domains/*                Domains and hosting
  /api/payments/*               Payment Processor
  /api/ledger/customer/{id}     Ledger entries, newest first
  /api/domain-renewal/*         Domain Renewal Engine
  /api/amc-payment/{id}         AMC payment
  /api/dashboard/*              Dashboards (AMC listing posts overdue debt)
  /api/scenarios/*              Demo scenarios
  /api/health, /api/metrics     Operations

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

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
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.Logger))
	r.Use(h.Metrics.Instrument)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/", h.Root)
		r.Get("/health", h.Health)
		r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.CreateCustomer)
			r.Get("/{id}", h.GetCustomer)
			r.Put("/{id}", h.UpdateCustomer)
			r.Delete("/{id}", h.DeleteCustomer)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.CreateProject)
			r.Get("/{id}", h.GetProject)
			r.Put("/{id}", h.UpdateProject)
			r.Delete("/{id}", h.DeleteProject)
		})

		r.Route("/domains", func(r chi.Router) {
			r.Get("/", h.ListDomains)
			r.Post("/", h.CreateDomain)
			r.Get("/project/{id}", h.ListProjectDomains)
			r.Get("/{id}", h.GetDomain)
			r.Put("/{id}", h.UpdateDomain)
			r.Delete("/{id}", h.DeleteDomain)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", h.CreatePayment)
			r.Get("/customer/{id}", h.ListCustomerPayments)
		})

		r.Get("/ledger/customer/{id}", h.GetCustomerLedger)
		r.Get("/customer-payment-summary/{id}", h.GetCustomerPaymentSummary)
		r.Get("/payment-status/{id}", h.GetPaymentStatus)
		r.Post("/domain-renewal/{id}", h.RenewDomain)
		r.Post("/domain-renewal-payment/{id}", h.RecordRenewalRepayment)
		r.Get("/domains-due-renewal", h.ListDomainsDueRenewal)
		r.Post("/amc-payment/{id}", h.RecordAmcPayment)

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/projects", h.DashboardProjects)
			r.Get("/amc-projects", h.DashboardAmcProjects)
			r.Get("/expiring-domains", h.DashboardExpiringDomains)
			r.Get("/customer-balances", h.DashboardCustomerBalances)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
