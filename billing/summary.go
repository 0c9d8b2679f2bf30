package billing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/agency-ledger/ledger"
	"golang.org/x/sync/errgroup"
)

// dashboardConcurrency bounds per-customer / per-project fan-out on dashboards.
const dashboardConcurrency = 8

// =============================================================================
// CUSTOMER PAYMENT SUMMARY
// =============================================================================

type CustomerSummary struct {
	Customer           Customer
	TotalProjects      int
	TotalProjectAmount decimal.Decimal
	TotalPaidAmount    decimal.Decimal
	OutstandingAmount  decimal.Decimal
	CreditBalance      decimal.Decimal // ledger balance, replayed
	RecentPayments     []Payment
}

func (s *Service) CustomerPaymentSummary(ctx context.Context, id ledger.CustomerID) (*CustomerSummary, error) {
	customer, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	projects, err := s.Store.ListProjectsByCustomer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	payments, err := s.Store.ListPaymentsByCustomer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	balance, err := s.Ledger.Balance(ctx, id)
	if err != nil {
		return nil, err
	}

	sum := &CustomerSummary{
		Customer:           *customer,
		TotalProjects:      len(projects),
		TotalProjectAmount: decimal.Zero,
		TotalPaidAmount:    decimal.Zero,
		CreditBalance:      balance,
	}
	for _, p := range projects {
		sum.TotalProjectAmount = sum.TotalProjectAmount.Add(p.Amount)
		sum.TotalPaidAmount = sum.TotalPaidAmount.Add(p.PaidAmount)
	}
	sum.OutstandingAmount = sum.TotalProjectAmount.Sub(sum.TotalPaidAmount)

	if len(payments) > RecentPaymentsLimit {
		payments = payments[:RecentPaymentsLimit]
	}
	sum.RecentPayments = payments
	return sum, nil
}

// =============================================================================
// PROJECT PAYMENT STATUS
// =============================================================================

type ProjectPaymentStatus struct {
	Project    Project
	Remaining  decimal.Decimal
	AmcDueDate *ledger.Date
	AmcPaid    bool
}

func (s *Service) PaymentStatus(ctx context.Context, id ProjectID) (*ProjectPaymentStatus, error) {
	p, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	st := &ProjectPaymentStatus{
		Project:   *p,
		Remaining: p.Remaining(),
		AmcPaid:   p.AmcCoveredOn(s.today()),
	}
	if due, ok := p.AmcDueDate(); ok {
		st.AmcDueDate = &due
	}
	return st, nil
}

// =============================================================================
// DASHBOARDS
// =============================================================================

type CustomerBalance struct {
	Customer Customer
	Balance  decimal.Decimal
}

// CustomerBalances replays every customer's ledger, a few at a time.
func (s *Service) CustomerBalances(ctx context.Context) ([]CustomerBalance, error) {
	customers, err := s.Store.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	out := make([]CustomerBalance, len(customers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dashboardConcurrency)
	for i, c := range customers {
		g.Go(func() error {
			balance, err := s.Ledger.Balance(gctx, c.ID)
			if err != nil {
				return err
			}
			out[i] = CustomerBalance{Customer: c, Balance: balance}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type ProjectOverview struct {
	Project  Project
	Customer *Customer // nil if the customer was deleted
	Domains  []Domain
}

func (s *Service) ProjectsOverview(ctx context.Context) ([]ProjectOverview, error) {
	projects, err := s.Store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	out := make([]ProjectOverview, len(projects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dashboardConcurrency)
	for i, p := range projects {
		g.Go(func() error {
			customer, err := s.Store.GetCustomer(gctx, p.CustomerID)
			if err != nil {
				return err
			}
			domains, err := s.Store.ListDomainsByProject(gctx, p.ID)
			if err != nil {
				return err
			}
			out[i] = ProjectOverview{Project: p, Customer: customer, Domains: domains}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
