package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/agency-ledger/ledger"
	"go.uber.org/zap"
)

type ProjectInput struct {
	CustomerID ledger.CustomerID
	Type       string
	Name       string
	Amount     decimal.Decimal
	AmcAmount  decimal.Decimal
	StartDate  ledger.Date
	EndDate    *ledger.Date
}

// ProjectUpdate is a partial update; nil fields are left unchanged.
// Paid amount, payment status and AMC coverage are not editable here.
type ProjectUpdate struct {
	Type      *string
	Name      *string
	Amount    *decimal.Decimal
	AmcAmount *decimal.Decimal
	StartDate *ledger.Date
	EndDate   *ledger.Date

	// ClearEndDate makes the project ongoing again. Ignored when EndDate is set.
	ClearEndDate bool
}

func (u ProjectUpdate) empty() bool {
	return u.Type == nil && u.Name == nil && u.Amount == nil &&
		u.AmcAmount == nil && u.StartDate == nil && u.EndDate == nil && !u.ClearEndDate
}

func validateProjectAmounts(amount, amc decimal.Decimal) error {
	if amount.IsNegative() {
		return &ledger.InvalidAmountError{Amount: amount}
	}
	if amc.IsNegative() {
		return &ledger.InvalidAmountError{Amount: amc}
	}
	return nil
}

// CreateProject stores the project and debits the customer the contract amount.
func (s *Service) CreateProject(ctx context.Context, in ProjectInput) (*Project, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, &ledger.InvalidRequestError{Reason: "project name is required"}
	}
	if err := validateProjectAmounts(in.Amount, in.AmcAmount); err != nil {
		return nil, err
	}
	if in.EndDate != nil && !in.StartDate.IsZero() && in.EndDate.Before(in.StartDate) {
		return nil, &ledger.InvalidRequestError{Reason: "end_date is before start_date"}
	}
	if _, err := s.GetCustomer(ctx, in.CustomerID); err != nil {
		return nil, err
	}

	start := in.StartDate
	if start.IsZero() {
		start = s.today()
	}
	p := Project{
		ID:            ProjectID(s.NewID()),
		CustomerID:    in.CustomerID,
		Type:          in.Type,
		Name:          in.Name,
		Amount:        in.Amount,
		PaidAmount:    decimal.Zero,
		AmcAmount:     in.AmcAmount,
		StartDate:     start,
		EndDate:       in.EndDate,
		PaymentStatus: ClassifySettlement(decimal.Zero, in.Amount),
		CreatedAt:     s.Clock.Now().UTC(),
	}
	if err := s.Store.SaveProject(ctx, p); err != nil {
		return nil, fmt.Errorf("save project: %w", err)
	}

	if p.Amount.IsPositive() {
		e, err := s.Ledger.Post(ctx, ledger.Posting{
			CustomerID:    p.CustomerID,
			Type:          ledger.Debit,
			Amount:        p.Amount,
			Description:   "Project created: " + p.Name,
			ReferenceType: ledger.RefProject,
			ReferenceID:   string(p.ID),
		})
		if err != nil {
			return nil, fmt.Errorf("post project debit: %w", err)
		}
		s.Logger.Info("project debit posted",
			zap.String("customer_id", string(p.CustomerID)),
			zap.String("project_id", string(p.ID)),
			zap.String("amount", p.Amount.String()),
			zap.String("balance", e.Balance.String()),
		)
	}
	return &p, nil
}

func (s *Service) GetProject(ctx context.Context, id ProjectID) (*Project, error) {
	p, err := s.Store.GetProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if p == nil {
		return nil, ledger.NotFound("Project", string(id))
	}
	return p, nil
}

func (s *Service) ListProjects(ctx context.Context) ([]Project, error) {
	return s.Store.ListProjects(ctx)
}

func (s *Service) ListCustomerProjects(ctx context.Context, customerID ledger.CustomerID) ([]Project, error) {
	if _, err := s.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return s.Store.ListProjectsByCustomer(ctx, customerID)
}

// UpdateProject merges the given fields. A new contract amount re-derives the
// payment status; the ledger is not adjusted.
func (s *Service) UpdateProject(ctx context.Context, id ProjectID, u ProjectUpdate) (*Project, error) {
	if u.empty() {
		return nil, errNoFieldsToUpdate()
	}
	unlock := s.projectLocks.Lock(id)
	defer unlock()

	p, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Type != nil {
		p.Type = *u.Type
	}
	if u.Name != nil {
		if strings.TrimSpace(*u.Name) == "" {
			return nil, &ledger.InvalidRequestError{Reason: "project name cannot be empty"}
		}
		p.Name = *u.Name
	}
	if u.Amount != nil {
		p.Amount = *u.Amount
	}
	if u.AmcAmount != nil {
		p.AmcAmount = *u.AmcAmount
	}
	if u.StartDate != nil {
		p.StartDate = *u.StartDate
	}
	switch {
	case u.EndDate != nil:
		end := *u.EndDate
		p.EndDate = &end
	case u.ClearEndDate:
		p.EndDate = nil
	}
	if err := validateProjectAmounts(p.Amount, p.AmcAmount); err != nil {
		return nil, err
	}
	p.PaymentStatus = ClassifySettlement(p.PaidAmount, p.Amount)

	if err := s.Store.SaveProject(ctx, *p); err != nil {
		return nil, fmt.Errorf("save project: %w", err)
	}
	return p, nil
}

// DeleteProject removes only the project row; its domains and entries remain.
func (s *Service) DeleteProject(ctx context.Context, id ProjectID) error {
	deleted, err := s.Store.DeleteProject(ctx, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if !deleted {
		return ledger.NotFound("Project", string(id))
	}
	return nil
}
