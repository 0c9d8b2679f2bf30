/*
records.go - Agency business records

PURPOSE:
  The records the agency keeps alongside the ledger: customers, their
  projects, the domains/hosting attached to projects, and payments.

  None of these carry a balance. What a customer owes is always derived
  from the ledger (see ledger.Replay).

DERIVED FIELDS:
  Project.PaymentStatus is always ClassifySettlement(PaidAmount, Amount).
  Nothing assigns it any other way.

SEE ALSO:
  - store.go: Persistence interfaces
  - payments.go: The only writer of PaidAmount / AMC fields
  - renewal.go: The only writer of Domain.ValidityDate after creation
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/agency-ledger/ledger"
)

type ProjectID string
type DomainID string
type PaymentID string

// =============================================================================
// CUSTOMER
// =============================================================================

type Customer struct {
	ID        ledger.CustomerID
	Name      string
	Phone     string
	Email     string
	Address   string
	CreatedAt time.Time
}

// =============================================================================
// PROJECT
// =============================================================================

// SettlementStatus classifies a project's cumulative payments against its total.
type SettlementStatus string

const (
	SettlementPending SettlementStatus = "pending"
	SettlementPartial SettlementStatus = "partial"
	SettlementPaid    SettlementStatus = "paid"
)

// ClassifySettlement: paid if paid >= total, partial if paid > 0, else pending.
// Exact decimal comparison, no tolerance.
func ClassifySettlement(paid, total decimal.Decimal) SettlementStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return SettlementPaid
	case paid.IsPositive():
		return SettlementPartial
	default:
		return SettlementPending
	}
}

type Project struct {
	ID            ProjectID
	CustomerID    ledger.CustomerID
	Type          string // website, app, software, ...
	Name          string
	Amount        decimal.Decimal
	PaidAmount    decimal.Decimal
	AmcAmount     decimal.Decimal // zero means no AMC
	StartDate     ledger.Date
	EndDate       *ledger.Date // nil: ongoing, no AMC cycle
	PaymentStatus SettlementStatus

	AmcPaidUntil       *ledger.Date
	LastAmcPaymentDate *ledger.Date

	CreatedAt time.Time
}

// AmcDueDate is one year after the project ended. ok is false for ongoing projects.
func (p *Project) AmcDueDate() (due ledger.Date, ok bool) {
	if p.EndDate == nil {
		return ledger.Date{}, false
	}
	return p.EndDate.AddDays(AmcCycleDays), true
}

// AmcCoveredOn reports whether a paid AMC cycle extends strictly past day.
func (p *Project) AmcCoveredOn(day ledger.Date) bool {
	return p.AmcPaidUntil != nil && p.AmcPaidUntil.After(day)
}

// Remaining is what is left to pay on the contract, never negative.
func (p *Project) Remaining() decimal.Decimal {
	r := p.Amount.Sub(p.PaidAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// =============================================================================
// DOMAIN / HOSTING
// =============================================================================

type RenewalStatus string

const (
	RenewalActive  RenewalStatus = "active"
	RenewalDue     RenewalStatus = "due"
	RenewalRenewed RenewalStatus = "renewed"
)

func (s RenewalStatus) Valid() bool {
	return s == RenewalActive || s == RenewalDue || s == RenewalRenewed
}

// Payer is who paid for the most recent renewal.
type Payer string

const (
	PayerClient Payer = "client"
	PayerAgency Payer = "agency"
)

func (p Payer) Valid() bool { return p == PayerClient || p == PayerAgency }

type Domain struct {
	ID              DomainID
	ProjectID       ProjectID
	DomainName      string
	HostingProvider string
	Username        string
	Password        string
	ValidityDate    ledger.Date
	RenewalAmount   decimal.Decimal
	RenewalStatus   RenewalStatus
	PaymentType     Payer
	CreatedAt       time.Time
}

// =============================================================================
// PAYMENT
// =============================================================================

// PaymentType is open-ended; these are the ones with special handling.
type PaymentType string

const (
	PaymentProjectAdvance      PaymentType = "project_advance"
	PaymentAmc                 PaymentType = "amc_payment"
	PaymentDomainRenewalAgency PaymentType = "domain_renewal_agency"
	PaymentDomainRenewalClient PaymentType = "domain_renewal_client"
)

// PaymentStatus: completed = money received, pending = fronted by the agency
// and not yet collected.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentPending   PaymentStatus = "pending"
	PaymentFailed    PaymentStatus = "failed"
)

type Payment struct {
	ID          PaymentID
	CustomerID  ledger.CustomerID
	Type        PaymentType
	ReferenceID string
	Amount      decimal.Decimal
	Description string
	PaymentDate ledger.Date
	Status      PaymentStatus
	CreatedAt   time.Time
}
