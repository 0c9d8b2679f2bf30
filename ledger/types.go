package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CORE IDENTIFIERS
// =============================================================================

type CustomerID string
type EntryID string

// =============================================================================
// ENTRY TYPE - Direction of a posting
// =============================================================================

// EntryType is the direction of a ledger entry from the agency's point of view.
//
//	debit  = customer owes the agency more (project created, renewal fronted)
//	credit = customer paid the agency (payment received)
type EntryType string

const (
	Debit  EntryType = "debit"
	Credit EntryType = "credit"
)

func (t EntryType) Valid() bool { return t == Debit || t == Credit }

// =============================================================================
// REFERENCE TYPE - What a posting is about
// =============================================================================

// ReferenceType tags an entry with the kind of record it concerns.
// Payment credits use the payment type itself, so the set is open.
type ReferenceType string

const (
	RefProject              ReferenceType = "project"
	RefProjectAdvance       ReferenceType = "project_advance"
	RefAmc                  ReferenceType = "amc"
	RefAmcDue               ReferenceType = "amc_due"
	RefAmcPayment           ReferenceType = "amc_payment"
	RefDomainRenewal        ReferenceType = "domain_renewal"
	RefDomainRenewalPayment ReferenceType = "domain_renewal_payment"
)

// =============================================================================
// ENTRY - The immutable record
// =============================================================================

// Entry is one immutable debit or credit against a customer.
// Balance is the customer's balance immediately after this entry was applied.
// It is a snapshot for display; Replay over the full history is authoritative.
type Entry struct {
	ID            EntryID
	CustomerID    CustomerID
	Type          EntryType
	Amount        decimal.Decimal // always positive
	Description   string
	ReferenceType ReferenceType
	ReferenceID   string
	Date          time.Time
	Balance       decimal.Decimal
}

// Signed returns the entry's effect on the balance.
func (e Entry) Signed() decimal.Decimal {
	if e.Type == Debit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Posting is the input to Ledger.Post.
type Posting struct {
	CustomerID    CustomerID
	Type          EntryType
	Amount        decimal.Decimal
	Description   string
	ReferenceType ReferenceType
	ReferenceID   string
}

func (p Posting) validate() error {
	if p.CustomerID == "" {
		return &InvalidRequestError{Reason: "customer id is required"}
	}
	if !p.Type.Valid() {
		return &InvalidRequestError{Reason: "unknown entry type " + string(p.Type)}
	}
	if !p.Amount.IsPositive() {
		return &InvalidAmountError{Amount: p.Amount}
	}
	return nil
}
