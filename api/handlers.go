/*
handlers.go - HTTP API handlers for the agency backend

PURPOSE:
  Exposes the billing service via REST API. Handles HTTP request/response,
  JSON decoding and validation, and delegates to billing.Service. No
  handler touches the ledger directly.

ENDPOINTS:
  Records:
    GET|POST          /api/customers, /api/projects, /api/domains
    GET|PUT|DELETE    /api/{customers|projects|domains}/{id}
    GET               /api/domains/project/{id}
    GET               /api/payments/customer/{id}
    GET               /api/ledger/customer/{id}

  Money:
    POST   /api/payments                      Record a payment
    POST   /api/amc-payment/{project_id}      Pay the AMC, cover one cycle
    POST   /api/domain-renewal/{domain_id}    Renew, client or agency paid
    POST   /api/domain-renewal-payment/{id}   Client repays agency renewal

  Read models:
    GET    /api/customer-payment-summary/{id}
    GET    /api/payment-status/{project_id}
    GET    /api/domains-due-renewal
    GET    /api/dashboard/{projects|amc-projects|expiring-domains|customer-balances}

REQUEST FLOW:
  1. Decode JSON body
  2. Validate shape (validator tags)
  3. Call billing.Service
  4. Convert to DTO and serialize
  5. Map errors via writeServiceError

ERROR HANDLING:
  Errors are returned as ErrorResponse{error, code, details}:
  - 400: invalid_request, invalid_amount, validation_failed
  - 404: not_found, reference_not_found
  - 500: internal_error (logged, details withheld)

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/warp/agency-ledger/billing"
	"github.com/warp/agency-ledger/ledger"
	"github.com/warp/agency-ledger/store/sqlite"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *billing.Service
	Store   *sqlite.Store
	Logger  *zap.Logger
	Metrics *Metrics

	validate *validator.Validate

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler. logger and metrics may be nil.
func NewHandler(svc *billing.Service, store *sqlite.Store, logger *zap.Logger, metrics *Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Service:  svc,
		Store:    store,
		Logger:   logger,
		Metrics:  metrics,
		validate: newValidator(),
	}
}

// newValidator reports field errors by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// =============================================================================
// OPERATIONS
// =============================================================================

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Agency Management System API"})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Service.ListCustomers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(customers, toCustomerDTO))
}

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	c, err := h.Service.CreateCustomer(r.Context(), billing.CustomerInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerDTO(*c))
}

func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.GetCustomer(r.Context(), ledger.CustomerID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(*c))
}

func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req UpdateCustomerRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	c, err := h.Service.UpdateCustomer(r.Context(), ledger.CustomerID(chi.URLParam(r, "id")), billing.CustomerUpdate{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(*c))
}

func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteCustomer(r.Context(), ledger.CustomerID(chi.URLParam(r, "id"))); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Customer deleted successfully"})
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

// ListProjects returns all projects, or one customer's with ?customer_id=.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	var (
		projects []billing.Project
		err      error
	)
	if cid := r.URL.Query().Get("customer_id"); cid != "" {
		projects, err = h.Service.ListCustomerProjects(r.Context(), ledger.CustomerID(cid))
	} else {
		projects, err = h.Service.ListProjects(r.Context())
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(projects, toProjectDTO))
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	p, err := h.Service.CreateProject(r.Context(), billing.ProjectInput{
		CustomerID: ledger.CustomerID(req.CustomerID),
		Type:       req.Type,
		Name:       req.Name,
		Amount:     req.Amount,
		AmcAmount:  req.AmcAmount,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectDTO(*p))
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.GetProject(r.Context(), billing.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(*p))
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req UpdateProjectRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	update := billing.ProjectUpdate{
		Type:      req.Type,
		Name:      req.Name,
		Amount:    req.Amount,
		AmcAmount: req.AmcAmount,
		StartDate: req.StartDate,
	}
	if req.EndDate.Set {
		update.EndDate = req.EndDate.Value
		update.ClearEndDate = req.EndDate.Value == nil
	}
	p, err := h.Service.UpdateProject(r.Context(), billing.ProjectID(chi.URLParam(r, "id")), update)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(*p))
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteProject(r.Context(), billing.ProjectID(chi.URLParam(r, "id"))); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Project deleted successfully"})
}

// =============================================================================
// DOMAIN HANDLERS
// =============================================================================

func (h *Handler) ListDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := h.Service.ListDomains(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(domains, toDomainDTO))
}

func (h *Handler) ListProjectDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := h.Service.ListProjectDomains(r.Context(), billing.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(domains, toDomainDTO))
}

func (h *Handler) CreateDomain(w http.ResponseWriter, r *http.Request) {
	var req CreateDomainRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	d, err := h.Service.CreateDomain(r.Context(), billing.DomainInput{
		ProjectID:       billing.ProjectID(req.ProjectID),
		DomainName:      req.DomainName,
		HostingProvider: req.HostingProvider,
		Username:        req.Username,
		Password:        req.Password,
		ValidityDate:    req.ValidityDate,
		RenewalAmount:   req.RenewalAmount,
		RenewalStatus:   billing.RenewalStatus(req.RenewalStatus),
		PaymentType:     billing.Payer(req.PaymentType),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDomainDTO(*d))
}

func (h *Handler) GetDomain(w http.ResponseWriter, r *http.Request) {
	d, err := h.Service.GetDomain(r.Context(), billing.DomainID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDomainDTO(*d))
}

func (h *Handler) UpdateDomain(w http.ResponseWriter, r *http.Request) {
	var req UpdateDomainRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	u := billing.DomainUpdate{
		DomainName:      req.DomainName,
		HostingProvider: req.HostingProvider,
		Username:        req.Username,
		Password:        req.Password,
		RenewalAmount:   req.RenewalAmount,
	}
	if req.RenewalStatus != nil {
		s := billing.RenewalStatus(*req.RenewalStatus)
		u.RenewalStatus = &s
	}
	if req.PaymentType != nil {
		p := billing.Payer(*req.PaymentType)
		u.PaymentType = &p
	}
	d, err := h.Service.UpdateDomain(r.Context(), billing.DomainID(chi.URLParam(r, "id")), u)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDomainDTO(*d))
}

func (h *Handler) DeleteDomain(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteDomain(r.Context(), billing.DomainID(chi.URLParam(r, "id"))); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Domain deleted successfully"})
}

// =============================================================================
// PAYMENTS AND LEDGER
// =============================================================================

// CreatePayment records a payment.
// POST /api/payments
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	p, err := h.Service.RecordPayment(r.Context(), billing.PaymentInput{
		CustomerID:  ledger.CustomerID(req.CustomerID),
		Type:        billing.PaymentType(req.Type),
		ReferenceID: req.ReferenceID,
		Amount:      req.Amount,
		Description: req.Description,
		PaymentDate: req.PaymentDate,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(*p))
}

func (h *Handler) ListCustomerPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Service.ListCustomerPayments(r.Context(), ledger.CustomerID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(payments, toPaymentDTO))
}

// GetCustomerLedger returns ledger entries, newest first.
// GET /api/ledger/customer/{id}
func (h *Handler) GetCustomerLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.CustomerLedger(r.Context(), ledger.CustomerID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(entries, toLedgerEntryDTO))
}

// RecordAmcPayment pays a project's AMC.
// POST /api/amc-payment/{project_id}
func (h *Handler) RecordAmcPayment(w http.ResponseWriter, r *http.Request) {
	var req AmcPaymentRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	payment, project, err := h.Service.RecordAmcPayment(r.Context(), billing.ProjectID(chi.URLParam(r, "id")), req.Amount, req.PaymentDate)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AmcPaymentResponse{
		Message:      "AMC payment recorded successfully",
		Payment:      toPaymentDTO(*payment),
		AmcPaidUntil: project.AmcPaidUntil,
	})
}

// RenewDomain renews a domain. An empty body renews for one year, paid by
// the client.
// POST /api/domain-renewal/{domain_id}
func (h *Handler) RenewDomain(w http.ResponseWriter, r *http.Request) {
	var req DomainRenewalRequest
	if !h.decode(w, r, &req, true) {
		return
	}
	res, err := h.Service.RenewDomain(r.Context(), billing.DomainID(chi.URLParam(r, "id")), billing.RenewalInput{
		NewValidityDate: req.NewValidityDate,
		Amount:          req.Amount,
		PaymentType:     billing.Payer(req.PaymentType),
		Notes:           req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DomainRenewalResponse{
		Message:         res.Message,
		NewValidityDate: res.NewValidityDate,
		PaymentID:       string(res.Payment.ID),
	})
}

// RecordRenewalRepayment settles an agency-fronted renewal.
// POST /api/domain-renewal-payment/{domain_id}
func (h *Handler) RecordRenewalRepayment(w http.ResponseWriter, r *http.Request) {
	var req RenewalRepaymentRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	res, err := h.Service.RecordRenewalRepayment(r.Context(), billing.DomainID(chi.URLParam(r, "id")), req.Amount)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	resp := RenewalRepaymentResponse{
		Message:         res.Message,
		EntryID:         string(res.Entry.ID),
		CustomerBalance: money(res.Entry.Balance),
	}
	if res.Settled != nil {
		id := string(res.Settled.ID)
		resp.SettledPaymentID = &id
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// SUMMARIES
// =============================================================================

func (h *Handler) GetCustomerPaymentSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Service.CustomerPaymentSummary(r.Context(), ledger.CustomerID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(*sum))
}

func (h *Handler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.Service.PaymentStatus(r.Context(), billing.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentStatusDTO(*st))
}

func (h *Handler) ListDomainsDueRenewal(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Service.DomainsDueRenewal(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(rows, toDueDomainDTO))
}

// =============================================================================
// DASHBOARDS
// =============================================================================

func (h *Handler) DashboardProjects(w http.ResponseWriter, r *http.Request) {
	overview, err := h.Service.ProjectsOverview(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]ProjectDetailsDTO, 0, len(overview))
	for _, o := range overview {
		if o.Customer == nil {
			continue
		}
		out = append(out, ProjectDetailsDTO{
			ProjectDTO:    toProjectDTO(o.Project),
			CustomerName:  o.Customer.Name,
			CustomerEmail: o.Customer.Email,
			CustomerPhone: o.Customer.Phone,
			Domains:       mapSlice(o.Domains, toDomainDTO),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// DashboardAmcProjects lists AMC due within 30 days. Listing posts the debit
// for overdue cycles, once per project.
// GET /api/dashboard/amc-projects
func (h *Handler) DashboardAmcProjects(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Service.ListAmcDue(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	for _, row := range rows {
		if row.DebtPosted {
			h.Metrics.AmcOverdueDebitPosted()
		}
	}
	writeJSON(w, http.StatusOK, mapSlice(rows, toAmcProjectDTO))
}

func (h *Handler) DashboardExpiringDomains(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Service.DomainsDueRenewal(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(rows, func(d billing.DueDomain) ExpiringDomainDTO {
		return ExpiringDomainDTO{
			DomainID:        string(d.Domain.ID),
			DomainName:      d.Domain.DomainName,
			HostingProvider: d.Domain.HostingProvider,
			ValidityDate:    d.Domain.ValidityDate,
			ProjectName:     d.Project.Name,
			CustomerName:    d.Customer.Name,
			CustomerEmail:   d.Customer.Email,
			DaysRemaining:   d.DaysUntilExpiry,
		}
	}))
}

func (h *Handler) DashboardCustomerBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.Service.CustomerBalances(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(balances, func(b billing.CustomerBalance) CustomerBalanceDTO {
		return CustomerBalanceDTO{
			CustomerID:   string(b.Customer.ID),
			CustomerName: b.Customer.Name,
			Balance:      money(b.Balance),
		}
	}))
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads the JSON body into v and validates it. On failure it writes
// the 400 response and returns false. allowEmpty accepts a missing body.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			writeError(w, http.StatusBadRequest, "Invalid request body", "invalid_request", err.Error())
			return false
		}
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			writeError(w, http.StatusBadRequest, "Validation failed", "validation_failed", fields)
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body", "invalid_request", err.Error())
		return false
	}
	return true
}

// writeServiceError maps billing and ledger errors to HTTP responses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound *ledger.NotFoundError
		refErr   *ledger.ReferenceNotFoundError
	)
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error(), "not_found", nil)
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "not_found", nil)
	case errors.As(err, &refErr):
		writeError(w, http.StatusNotFound, refErr.Error(), "reference_not_found", nil)
	case errors.Is(err, ledger.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_amount", nil)
	case errors.Is(err, ledger.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_request", nil)
	default:
		h.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error", "internal_error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, code string, details any) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: details})
}
