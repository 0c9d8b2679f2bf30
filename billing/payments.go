/*
payments.go - Payment Processor

PURPOSE:
  Records money received from a customer. Every payment:
    1. is stored as a completed Payment,
    2. credits the customer's ledger (reference_type = payment type),
    3. for project_advance, adds to the project's paid_amount and
       re-derives its payment status,
    4. for amc_payment, extends the project's AMC coverage by one cycle
       from today.

  Agency-fronted renewals do not come through here; they create a pending
  Payment directly (see renewal.go).

PRECONDITIONS (checked before anything is written):
  - amount > 0                        (InvalidAmountError)
  - customer exists                   (NotFoundError)
  - project_advance / amc_payment reference an existing project of the
    same customer                     (ReferenceNotFoundError / InvalidRequestError)

SEE ALSO:
  - records.go: ClassifySettlement
  - amc.go: Listing of due AMC cycles
*/
package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/agency-ledger/ledger"
	"go.uber.org/zap"
)

type PaymentInput struct {
	CustomerID  ledger.CustomerID
	Type        PaymentType
	ReferenceID string
	Amount      decimal.Decimal
	Description string
	PaymentDate *ledger.Date // defaults to today
}

// requiresProject reports whether a payment type acts on a project.
func (t PaymentType) requiresProject() bool {
	return t == PaymentProjectAdvance || t == PaymentAmc
}

// RecordPayment is the generic payment path.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (*Payment, error) {
	if !in.Amount.IsPositive() {
		return nil, &ledger.InvalidAmountError{Amount: in.Amount}
	}
	if strings.TrimSpace(string(in.Type)) == "" {
		return nil, &ledger.InvalidRequestError{Reason: "payment type is required"}
	}
	if _, err := s.GetCustomer(ctx, in.CustomerID); err != nil {
		return nil, err
	}
	if in.Type.requiresProject() {
		project, err := s.Store.GetProject(ctx, ProjectID(in.ReferenceID))
		if err != nil {
			return nil, fmt.Errorf("get project: %w", err)
		}
		if project == nil {
			return nil, &ledger.ReferenceNotFoundError{Kind: "project", ID: in.ReferenceID}
		}
		if project.CustomerID != in.CustomerID {
			return nil, &ledger.InvalidRequestError{Reason: "project does not belong to customer"}
		}
	}

	payDate := s.today()
	if in.PaymentDate != nil && !in.PaymentDate.IsZero() {
		payDate = *in.PaymentDate
	}
	description := in.Description
	if description == "" {
		description = fmt.Sprintf("Payment received (%s)", in.Type)
	}

	payment := Payment{
		ID:          PaymentID(s.NewID()),
		CustomerID:  in.CustomerID,
		Type:        in.Type,
		ReferenceID: in.ReferenceID,
		Amount:      in.Amount,
		Description: description,
		PaymentDate: payDate,
		Status:      PaymentCompleted,
		CreatedAt:   s.Clock.Now().UTC(),
	}
	if err := s.Store.SavePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}

	entry, err := s.Ledger.Post(ctx, ledger.Posting{
		CustomerID:    in.CustomerID,
		Type:          ledger.Credit,
		Amount:        in.Amount,
		Description:   description,
		ReferenceType: ledger.ReferenceType(in.Type),
		ReferenceID:   in.ReferenceID,
	})
	if err != nil {
		return nil, fmt.Errorf("post payment credit: %w", err)
	}
	s.Logger.Info("payment recorded",
		zap.String("payment_id", string(payment.ID)),
		zap.String("customer_id", string(payment.CustomerID)),
		zap.String("type", string(payment.Type)),
		zap.String("amount", payment.Amount.String()),
		zap.String("balance", entry.Balance.String()),
	)

	switch in.Type {
	case PaymentProjectAdvance:
		if _, err := s.applyProjectAdvance(ctx, ProjectID(in.ReferenceID), in.Amount); err != nil {
			return nil, err
		}
	case PaymentAmc:
		if _, err := s.renewAmc(ctx, ProjectID(in.ReferenceID)); err != nil {
			return nil, err
		}
	}
	return &payment, nil
}

// applyProjectAdvance adds amount to paid_amount and re-derives the status.
func (s *Service) applyProjectAdvance(ctx context.Context, id ProjectID, amount decimal.Decimal) (*Project, error) {
	unlock := s.projectLocks.Lock(id)
	defer unlock()

	p, err := s.Store.GetProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if p == nil {
		return nil, &ledger.ReferenceNotFoundError{Kind: "project", ID: string(id)}
	}
	p.PaidAmount = p.PaidAmount.Add(amount)
	p.PaymentStatus = ClassifySettlement(p.PaidAmount, p.Amount)
	if err := s.Store.SaveProject(ctx, *p); err != nil {
		return nil, fmt.Errorf("save project: %w", err)
	}
	return p, nil
}

// renewAmc covers the project for one cycle starting today. Late payments do
// not stack onto the previous due date.
func (s *Service) renewAmc(ctx context.Context, id ProjectID) (*Project, error) {
	unlock := s.projectLocks.Lock(id)
	defer unlock()

	p, err := s.Store.GetProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if p == nil {
		return nil, &ledger.ReferenceNotFoundError{Kind: "project", ID: string(id)}
	}
	today := s.today()
	until := today.AddDays(AmcCycleDays)
	p.AmcPaidUntil = &until
	p.LastAmcPaymentDate = &today
	if err := s.Store.SaveProject(ctx, *p); err != nil {
		return nil, fmt.Errorf("save project: %w", err)
	}
	s.Logger.Info("amc renewed",
		zap.String("project_id", string(p.ID)),
		zap.String("paid_until", until.String()),
	)
	return p, nil
}

// RecordAmcPayment records an AMC payment for a project's customer and
// returns the payment with the project as updated.
func (s *Service) RecordAmcPayment(ctx context.Context, projectID ProjectID, amount decimal.Decimal, paymentDate *ledger.Date) (*Payment, *Project, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	payment, err := s.RecordPayment(ctx, PaymentInput{
		CustomerID:  project.CustomerID,
		Type:        PaymentAmc,
		ReferenceID: string(project.ID),
		Amount:      amount,
		Description: "AMC payment for " + project.Name,
		PaymentDate: paymentDate,
	})
	if err != nil {
		return nil, nil, err
	}
	updated, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	return payment, updated, nil
}

// ListCustomerPayments returns the customer's payments, newest first.
func (s *Service) ListCustomerPayments(ctx context.Context, customerID ledger.CustomerID) ([]Payment, error) {
	if _, err := s.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return s.Store.ListPaymentsByCustomer(ctx, customerID)
}
