package billing

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/agency-ledger/ledger"
)

type DomainInput struct {
	ProjectID       ProjectID
	DomainName      string
	HostingProvider string
	Username        string
	Password        string
	ValidityDate    ledger.Date
	RenewalAmount   decimal.Decimal
	RenewalStatus   RenewalStatus // default active
	PaymentType     Payer         // default client
}

// DomainUpdate is a partial update. The validity date is not editable here;
// only RenewDomain moves it.
type DomainUpdate struct {
	DomainName      *string
	HostingProvider *string
	Username        *string
	Password        *string
	RenewalAmount   *decimal.Decimal
	RenewalStatus   *RenewalStatus
	PaymentType     *Payer
}

func (u DomainUpdate) empty() bool {
	return u.DomainName == nil && u.HostingProvider == nil && u.Username == nil &&
		u.Password == nil && u.RenewalAmount == nil && u.RenewalStatus == nil && u.PaymentType == nil
}

func (s *Service) CreateDomain(ctx context.Context, in DomainInput) (*Domain, error) {
	if strings.TrimSpace(in.DomainName) == "" {
		return nil, &ledger.InvalidRequestError{Reason: "domain name is required"}
	}
	if in.ValidityDate.IsZero() {
		return nil, &ledger.InvalidRequestError{Reason: "validity_date is required"}
	}
	if in.RenewalAmount.IsNegative() {
		return nil, &ledger.InvalidAmountError{Amount: in.RenewalAmount}
	}
	if in.RenewalStatus == "" {
		in.RenewalStatus = RenewalActive
	}
	if in.PaymentType == "" {
		in.PaymentType = PayerClient
	}
	if !in.RenewalStatus.Valid() {
		return nil, &ledger.InvalidRequestError{Reason: "unknown renewal_status " + string(in.RenewalStatus)}
	}
	if !in.PaymentType.Valid() {
		return nil, &ledger.InvalidRequestError{Reason: "payment_type must be client or agency"}
	}
	if _, err := s.GetProject(ctx, in.ProjectID); err != nil {
		return nil, err
	}

	d := Domain{
		ID:              DomainID(s.NewID()),
		ProjectID:       in.ProjectID,
		DomainName:      in.DomainName,
		HostingProvider: in.HostingProvider,
		Username:        in.Username,
		Password:        in.Password,
		ValidityDate:    in.ValidityDate,
		RenewalAmount:   in.RenewalAmount,
		RenewalStatus:   in.RenewalStatus,
		PaymentType:     in.PaymentType,
		CreatedAt:       s.Clock.Now().UTC(),
	}
	if err := s.Store.SaveDomain(ctx, d); err != nil {
		return nil, fmt.Errorf("save domain: %w", err)
	}
	return &d, nil
}

func (s *Service) GetDomain(ctx context.Context, id DomainID) (*Domain, error) {
	d, err := s.Store.GetDomain(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get domain: %w", err)
	}
	if d == nil {
		return nil, ledger.NotFound("Domain", string(id))
	}
	return d, nil
}

func (s *Service) ListDomains(ctx context.Context) ([]Domain, error) {
	return s.Store.ListDomains(ctx)
}

func (s *Service) ListProjectDomains(ctx context.Context, projectID ProjectID) ([]Domain, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.Store.ListDomainsByProject(ctx, projectID)
}

func (s *Service) UpdateDomain(ctx context.Context, id DomainID, u DomainUpdate) (*Domain, error) {
	if u.empty() {
		return nil, errNoFieldsToUpdate()
	}
	d, err := s.GetDomain(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.DomainName != nil {
		d.DomainName = *u.DomainName
	}
	if u.HostingProvider != nil {
		d.HostingProvider = *u.HostingProvider
	}
	if u.Username != nil {
		d.Username = *u.Username
	}
	if u.Password != nil {
		d.Password = *u.Password
	}
	if u.RenewalAmount != nil {
		if u.RenewalAmount.IsNegative() {
			return nil, &ledger.InvalidAmountError{Amount: *u.RenewalAmount}
		}
		d.RenewalAmount = *u.RenewalAmount
	}
	if u.RenewalStatus != nil {
		if !u.RenewalStatus.Valid() {
			return nil, &ledger.InvalidRequestError{Reason: "unknown renewal_status " + string(*u.RenewalStatus)}
		}
		d.RenewalStatus = *u.RenewalStatus
	}
	if u.PaymentType != nil {
		if !u.PaymentType.Valid() {
			return nil, &ledger.InvalidRequestError{Reason: "payment_type must be client or agency"}
		}
		d.PaymentType = *u.PaymentType
	}
	if err := s.Store.SaveDomain(ctx, *d); err != nil {
		return nil, fmt.Errorf("save domain: %w", err)
	}
	return d, nil
}

func (s *Service) DeleteDomain(ctx context.Context, id DomainID) error {
	deleted, err := s.Store.DeleteDomain(ctx, id)
	if err != nil {
		return fmt.Errorf("delete domain: %w", err)
	}
	if !deleted {
		return ledger.NotFound("Domain", string(id))
	}
	return nil
}

// =============================================================================
// DUE FOR RENEWAL
// =============================================================================

// DueDomain is a domain expiring within the due window, or already expired.
type DueDomain struct {
	Domain          Domain
	Project         Project
	Customer        Customer
	DaysUntilExpiry int
	IsExpired       bool
}

// DomainsDueRenewal lists domains with validity_date <= today + 30 days,
// most urgent first. Domains whose project or customer is gone are skipped.
func (s *Service) DomainsDueRenewal(ctx context.Context) ([]DueDomain, error) {
	today := s.today()
	domains, err := s.Store.ListDomainsExpiringBy(ctx, today.AddDays(DueWindowDays))
	if err != nil {
		return nil, fmt.Errorf("list expiring domains: %w", err)
	}

	rows := make([]DueDomain, 0, len(domains))
	for _, d := range domains {
		project, err := s.Store.GetProject(ctx, d.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("get project: %w", err)
		}
		if project == nil {
			continue
		}
		customer, err := s.Store.GetCustomer(ctx, project.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("get customer: %w", err)
		}
		if customer == nil {
			continue
		}
		days := ledger.DaysBetween(today, d.ValidityDate)
		rows = append(rows, DueDomain{
			Domain:          d,
			Project:         *project,
			Customer:        *customer,
			DaysUntilExpiry: days,
			IsExpired:       days < 0,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].DaysUntilExpiry < rows[j].DaysUntilExpiry })
	return rows, nil
}
