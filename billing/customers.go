package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/warp/agency-ledger/ledger"
)

type CustomerInput struct {
	Name    string
	Phone   string
	Email   string
	Address string
}

// CustomerUpdate is a partial update; nil fields are left unchanged.
type CustomerUpdate struct {
	Name    *string
	Phone   *string
	Email   *string
	Address *string
}

func (u CustomerUpdate) empty() bool {
	return u.Name == nil && u.Phone == nil && u.Email == nil && u.Address == nil
}

func (s *Service) CreateCustomer(ctx context.Context, in CustomerInput) (*Customer, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, &ledger.InvalidRequestError{Reason: "customer name is required"}
	}
	c := Customer{
		ID:        ledger.CustomerID(s.NewID()),
		Name:      in.Name,
		Phone:     in.Phone,
		Email:     in.Email,
		Address:   in.Address,
		CreatedAt: s.Clock.Now().UTC(),
	}
	if err := s.Store.SaveCustomer(ctx, c); err != nil {
		return nil, fmt.Errorf("save customer: %w", err)
	}
	return &c, nil
}

func (s *Service) GetCustomer(ctx context.Context, id ledger.CustomerID) (*Customer, error) {
	c, err := s.Store.GetCustomer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if c == nil {
		return nil, ledger.NotFound("Customer", string(id))
	}
	return c, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]Customer, error) {
	return s.Store.ListCustomers(ctx)
}

func (s *Service) UpdateCustomer(ctx context.Context, id ledger.CustomerID, u CustomerUpdate) (*Customer, error) {
	if u.empty() {
		return nil, errNoFieldsToUpdate()
	}
	c, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Name != nil {
		if strings.TrimSpace(*u.Name) == "" {
			return nil, &ledger.InvalidRequestError{Reason: "customer name cannot be empty"}
		}
		c.Name = *u.Name
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	if u.Email != nil {
		c.Email = *u.Email
	}
	if u.Address != nil {
		c.Address = *u.Address
	}
	if err := s.Store.SaveCustomer(ctx, *c); err != nil {
		return nil, fmt.Errorf("save customer: %w", err)
	}
	return c, nil
}

// DeleteCustomer removes only the customer row. Projects, domains, payments
// and ledger entries that reference it are kept.
func (s *Service) DeleteCustomer(ctx context.Context, id ledger.CustomerID) error {
	deleted, err := s.Store.DeleteCustomer(ctx, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if !deleted {
		return ledger.NotFound("Customer", string(id))
	}
	return nil
}

// CustomerLedger returns the customer's entries, newest first.
func (s *Service) CustomerLedger(ctx context.Context, id ledger.CustomerID) ([]ledger.Entry, error) {
	if _, err := s.GetCustomer(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.Ledger.Entries(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
