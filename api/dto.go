/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Internal records use
  decimal amounts and typed ids; the wire format uses plain numbers, strings
  and YYYY-MM-DD dates in snake_case.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  Requests accept amounts as JSON numbers or numeric strings (decimal.Decimal).
  Responses render amounts as JSON numbers.

VALIDATION:
  Request structs carry go-playground/validator tags for shape checks
  (required fields, enums, email). Amount rules (> 0) belong to the billing
  service so every caller gets them, not just HTTP.

SEE ALSO:
  - handlers.go: Uses these types
  - billing/records.go: Internal record types
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/agency-ledger/billing"
	"github.com/warp/agency-ledger/ledger"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

type CustomerDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreateCustomerRequest struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address"`
}

type UpdateCustomerRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Address *string `json:"address"`
}

type ProjectDTO struct {
	ID                 string       `json:"id"`
	CustomerID         string       `json:"customer_id"`
	Type               string       `json:"type"`
	Name               string       `json:"name"`
	Amount             float64      `json:"amount"`
	PaidAmount         float64      `json:"paid_amount"`
	AmcAmount          float64      `json:"amc_amount"`
	StartDate          ledger.Date  `json:"start_date"`
	EndDate            *ledger.Date `json:"end_date"`
	PaymentStatus      string       `json:"payment_status"`
	AmcPaidUntil       *ledger.Date `json:"amc_paid_until"`
	LastAmcPaymentDate *ledger.Date `json:"last_amc_payment_date"`
	CreatedAt          string       `json:"created_at,omitempty"`
}

type CreateProjectRequest struct {
	CustomerID string          `json:"customer_id" validate:"required"`
	Type       string          `json:"type"`
	Name       string          `json:"name" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	AmcAmount  decimal.Decimal `json:"amc_amount"`
	StartDate  ledger.Date     `json:"start_date"`
	EndDate    *ledger.Date    `json:"end_date"`
}

type UpdateProjectRequest struct {
	Type      *string          `json:"type"`
	Name      *string          `json:"name" validate:"omitempty,min=1"`
	Amount    *decimal.Decimal `json:"amount"`
	AmcAmount *decimal.Decimal `json:"amc_amount"`
	StartDate *ledger.Date     `json:"start_date"`
	EndDate   OptionalDate     `json:"end_date"`
}

// OptionalDate tells an absent field from an explicit null. A null or empty
// end_date puts the project back to ongoing, which drops its AMC obligation.
type OptionalDate struct {
	Set   bool
	Value *ledger.Date
}

func (o *OptionalDate) UnmarshalJSON(b []byte) error {
	o.Set = true
	o.Value = nil
	var d ledger.Date
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	if !d.IsZero() {
		o.Value = &d
	}
	return nil
}

type DomainDTO struct {
	ID              string      `json:"id"`
	ProjectID       string      `json:"project_id"`
	DomainName      string      `json:"domain_name"`
	HostingProvider string      `json:"hosting_provider"`
	Username        string      `json:"username"`
	Password        string      `json:"password"`
	ValidityDate    ledger.Date `json:"validity_date"`
	RenewalAmount   float64     `json:"renewal_amount"`
	RenewalStatus   string      `json:"renewal_status"`
	PaymentType     string      `json:"payment_type"`
	CreatedAt       string      `json:"created_at,omitempty"`
}

type CreateDomainRequest struct {
	ProjectID       string          `json:"project_id" validate:"required"`
	DomainName      string          `json:"domain_name" validate:"required"`
	HostingProvider string          `json:"hosting_provider"`
	Username        string          `json:"username"`
	Password        string          `json:"password"`
	ValidityDate    ledger.Date     `json:"validity_date"`
	RenewalAmount   decimal.Decimal `json:"renewal_amount"`
	RenewalStatus   string          `json:"renewal_status" validate:"omitempty,oneof=active due renewed"`
	PaymentType     string          `json:"payment_type" validate:"omitempty,oneof=client agency"`
}

type UpdateDomainRequest struct {
	DomainName      *string          `json:"domain_name" validate:"omitempty,min=1"`
	HostingProvider *string          `json:"hosting_provider"`
	Username        *string          `json:"username"`
	Password        *string          `json:"password"`
	RenewalAmount   *decimal.Decimal `json:"renewal_amount"`
	RenewalStatus   *string          `json:"renewal_status" validate:"omitempty,oneof=active due renewed"`
	PaymentType     *string          `json:"payment_type" validate:"omitempty,oneof=client agency"`
}

type PaymentDTO struct {
	ID          string      `json:"id"`
	CustomerID  string      `json:"customer_id"`
	Type        string      `json:"type"`
	ReferenceID string      `json:"reference_id"`
	Amount      float64     `json:"amount"`
	Description string      `json:"description"`
	PaymentDate ledger.Date `json:"payment_date"`
	Status      string      `json:"status"`
	CreatedAt   string      `json:"created_at,omitempty"`
}

type CreatePaymentRequest struct {
	CustomerID  string          `json:"customer_id" validate:"required"`
	Type        string          `json:"type" validate:"required"`
	ReferenceID string          `json:"reference_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	PaymentDate *ledger.Date    `json:"payment_date"`
}

type LedgerEntryDTO struct {
	ID              string    `json:"id"`
	CustomerID      string    `json:"customer_id"`
	TransactionType string    `json:"transaction_type"`
	Amount          float64   `json:"amount"`
	Description     string    `json:"description"`
	ReferenceType   string    `json:"reference_type"`
	ReferenceID     string    `json:"reference_id"`
	Date            time.Time `json:"date"`
	Balance         float64   `json:"balance"`
}

// =============================================================================
// PAYMENT FLOWS
// =============================================================================

type AmcPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate *ledger.Date    `json:"payment_date"`
}

type AmcPaymentResponse struct {
	Message      string       `json:"message"`
	Payment      PaymentDTO   `json:"payment"`
	AmcPaidUntil *ledger.Date `json:"amc_paid_until"`
}

type DomainRenewalRequest struct {
	NewValidityDate *ledger.Date     `json:"new_validity_date"`
	Amount          *decimal.Decimal `json:"amount"`
	PaymentType     string           `json:"payment_type" validate:"omitempty,oneof=client agency"`
	Notes           string           `json:"notes"`
}

type DomainRenewalResponse struct {
	Message         string      `json:"message"`
	NewValidityDate ledger.Date `json:"new_validity_date"`
	PaymentID       string      `json:"payment_id"`
}

type RenewalRepaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type RenewalRepaymentResponse struct {
	Message          string  `json:"message"`
	EntryID          string  `json:"entry_id"`
	SettledPaymentID *string `json:"settled_payment_id"`
	CustomerBalance  float64 `json:"customer_balance"`
}

// =============================================================================
// DASHBOARDS AND SUMMARIES
// =============================================================================

type DueDomainDTO struct {
	DomainID        string      `json:"domain_id"`
	DomainName      string      `json:"domain_name"`
	HostingProvider string      `json:"hosting_provider"`
	ValidityDate    ledger.Date `json:"validity_date"`
	DaysUntilExpiry int         `json:"days_until_expiry"`
	RenewalAmount   float64     `json:"renewal_amount"`
	PaymentType     string      `json:"payment_type"`
	ProjectID       string      `json:"project_id"`
	ProjectName     string      `json:"project_name"`
	CustomerID      string      `json:"customer_id"`
	CustomerName    string      `json:"customer_name"`
	IsExpired       bool        `json:"is_expired"`
}

type ExpiringDomainDTO struct {
	DomainID        string      `json:"domain_id"`
	DomainName      string      `json:"domain_name"`
	HostingProvider string      `json:"hosting_provider"`
	ValidityDate    ledger.Date `json:"validity_date"`
	ProjectName     string      `json:"project_name"`
	CustomerName    string      `json:"customer_name"`
	CustomerEmail   string      `json:"customer_email"`
	DaysRemaining   int         `json:"days_remaining"`
}

type AmcProjectDTO struct {
	ProjectID      string       `json:"project_id"`
	ProjectName    string       `json:"project_name"`
	ProjectType    string       `json:"project_type"`
	ProjectAmount  float64      `json:"project_amount"`
	AmcAmount      float64      `json:"amc_amount"`
	ProjectEndDate *ledger.Date `json:"project_end_date"`
	AmcDueDate     ledger.Date  `json:"amc_due_date"`
	DaysUntilAmc   int          `json:"days_until_amc"`
	CustomerID     string       `json:"customer_id"`
	CustomerName   string       `json:"customer_name"`
	CustomerEmail  string       `json:"customer_email"`
	CustomerPhone  string       `json:"customer_phone"`
	IsOverdue      bool         `json:"is_overdue"`
}

type ProjectDetailsDTO struct {
	ProjectDTO
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	CustomerPhone string      `json:"customer_phone"`
	Domains       []DomainDTO `json:"domains"`
}

type CustomerBalanceDTO struct {
	CustomerID   string  `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	Balance      float64 `json:"balance"`
}

type CustomerPaymentSummaryDTO struct {
	CustomerID         string       `json:"customer_id"`
	CustomerName       string       `json:"customer_name"`
	TotalProjects      int          `json:"total_projects"`
	TotalProjectAmount float64      `json:"total_project_amount"`
	TotalPaidAmount    float64      `json:"total_paid_amount"`
	OutstandingAmount  float64      `json:"outstanding_amount"`
	CreditBalance      float64      `json:"credit_balance"`
	RecentPayments     []PaymentDTO `json:"recent_payments"`
}

type PaymentStatusDTO struct {
	ProjectID       string       `json:"project_id"`
	ProjectName     string       `json:"project_name"`
	TotalAmount     float64      `json:"total_amount"`
	PaidAmount      float64      `json:"paid_amount"`
	RemainingAmount float64      `json:"remaining_amount"`
	PaymentStatus   string       `json:"payment_status"`
	AmcAmount       float64      `json:"amc_amount"`
	AmcDueDate      *ledger.Date `json:"amc_due_date"`
	AmcPaid         bool         `json:"amc_paid"`
	AmcPaidUntil    *ledger.Date `json:"amc_paid_until"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func money(d decimal.Decimal) float64 { return d.InexactFloat64() }

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toCustomerDTO(c billing.Customer) CustomerDTO {
	return CustomerDTO{
		ID:        string(c.ID),
		Name:      c.Name,
		Phone:     c.Phone,
		Email:     c.Email,
		Address:   c.Address,
		CreatedAt: timestamp(c.CreatedAt),
	}
}

func toProjectDTO(p billing.Project) ProjectDTO {
	return ProjectDTO{
		ID:                 string(p.ID),
		CustomerID:         string(p.CustomerID),
		Type:               p.Type,
		Name:               p.Name,
		Amount:             money(p.Amount),
		PaidAmount:         money(p.PaidAmount),
		AmcAmount:          money(p.AmcAmount),
		StartDate:          p.StartDate,
		EndDate:            p.EndDate,
		PaymentStatus:      string(p.PaymentStatus),
		AmcPaidUntil:       p.AmcPaidUntil,
		LastAmcPaymentDate: p.LastAmcPaymentDate,
		CreatedAt:          timestamp(p.CreatedAt),
	}
}

func toDomainDTO(d billing.Domain) DomainDTO {
	return DomainDTO{
		ID:              string(d.ID),
		ProjectID:       string(d.ProjectID),
		DomainName:      d.DomainName,
		HostingProvider: d.HostingProvider,
		Username:        d.Username,
		Password:        d.Password,
		ValidityDate:    d.ValidityDate,
		RenewalAmount:   money(d.RenewalAmount),
		RenewalStatus:   string(d.RenewalStatus),
		PaymentType:     string(d.PaymentType),
		CreatedAt:       timestamp(d.CreatedAt),
	}
}

func toPaymentDTO(p billing.Payment) PaymentDTO {
	return PaymentDTO{
		ID:          string(p.ID),
		CustomerID:  string(p.CustomerID),
		Type:        string(p.Type),
		ReferenceID: p.ReferenceID,
		Amount:      money(p.Amount),
		Description: p.Description,
		PaymentDate: p.PaymentDate,
		Status:      string(p.Status),
		CreatedAt:   timestamp(p.CreatedAt),
	}
}

func toLedgerEntryDTO(e ledger.Entry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:              string(e.ID),
		CustomerID:      string(e.CustomerID),
		TransactionType: string(e.Type),
		Amount:          money(e.Amount),
		Description:     e.Description,
		ReferenceType:   string(e.ReferenceType),
		ReferenceID:     e.ReferenceID,
		Date:            e.Date,
		Balance:         money(e.Balance),
	}
}

func toDueDomainDTO(d billing.DueDomain) DueDomainDTO {
	return DueDomainDTO{
		DomainID:        string(d.Domain.ID),
		DomainName:      d.Domain.DomainName,
		HostingProvider: d.Domain.HostingProvider,
		ValidityDate:    d.Domain.ValidityDate,
		DaysUntilExpiry: d.DaysUntilExpiry,
		RenewalAmount:   money(d.Domain.RenewalAmount),
		PaymentType:     string(d.Domain.PaymentType),
		ProjectID:       string(d.Project.ID),
		ProjectName:     d.Project.Name,
		CustomerID:      string(d.Customer.ID),
		CustomerName:    d.Customer.Name,
		IsExpired:       d.IsExpired,
	}
}

func toAmcProjectDTO(a billing.AmcDueProject) AmcProjectDTO {
	return AmcProjectDTO{
		ProjectID:      string(a.Project.ID),
		ProjectName:    a.Project.Name,
		ProjectType:    a.Project.Type,
		ProjectAmount:  money(a.Project.Amount),
		AmcAmount:      money(a.Project.AmcAmount),
		ProjectEndDate: a.Project.EndDate,
		AmcDueDate:     a.AmcDueDate,
		DaysUntilAmc:   a.DaysUntilAmc,
		CustomerID:     string(a.Customer.ID),
		CustomerName:   a.Customer.Name,
		CustomerEmail:  a.Customer.Email,
		CustomerPhone:  a.Customer.Phone,
		IsOverdue:      a.IsOverdue,
	}
}

func toPaymentStatusDTO(s billing.ProjectPaymentStatus) PaymentStatusDTO {
	return PaymentStatusDTO{
		ProjectID:       string(s.Project.ID),
		ProjectName:     s.Project.Name,
		TotalAmount:     money(s.Project.Amount),
		PaidAmount:      money(s.Project.PaidAmount),
		RemainingAmount: money(s.Remaining),
		PaymentStatus:   string(s.Project.PaymentStatus),
		AmcAmount:       money(s.Project.AmcAmount),
		AmcDueDate:      s.AmcDueDate,
		AmcPaid:         s.AmcPaid,
		AmcPaidUntil:    s.Project.AmcPaidUntil,
	}
}

func toSummaryDTO(s billing.CustomerSummary) CustomerPaymentSummaryDTO {
	recent := make([]PaymentDTO, len(s.RecentPayments))
	for i, p := range s.RecentPayments {
		recent[i] = toPaymentDTO(p)
	}
	return CustomerPaymentSummaryDTO{
		CustomerID:         string(s.Customer.ID),
		CustomerName:       s.Customer.Name,
		TotalProjects:      s.TotalProjects,
		TotalProjectAmount: money(s.TotalProjectAmount),
		TotalPaidAmount:    money(s.TotalPaidAmount),
		OutstandingAmount:  money(s.OutstandingAmount),
		CreditBalance:      money(s.CreditBalance),
		RecentPayments:     recent,
	}
}

func mapSlice[T, D any](in []T, fn func(T) D) []D {
	out := make([]D, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}
