/*
renewal.go - Domain Renewal Engine

PURPOSE:
  Moves a domain's validity date forward and books who paid for it.

TWO TRACKS:
  The ledger tracks what the customer owes. Payment rows track whether money
  was collected. They move independently:

    agency pays:   ledger DEBIT renewal_amount (domain_renewal)
                   + Payment domain_renewal_agency, status pending
    client pays:   no ledger entry
                   + Payment domain_renewal_client, status completed

    client later repays the agency (RecordRenewalRepayment):
                   ledger CREDIT (domain_renewal_payment)
                   + oldest pending domain_renewal_agency Payment -> completed

SEE ALSO:
  - payments.go: Generic payment path
*/
package billing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/agency-ledger/ledger"
	"go.uber.org/zap"
)

type RenewalInput struct {
	NewValidityDate *ledger.Date     // default: current validity + 365 days
	Amount          *decimal.Decimal // overrides and persists the renewal price
	PaymentType     Payer            // default client
	Notes           string
}

type RenewalResult struct {
	Message         string
	NewValidityDate ledger.Date
	Payment         Payment
	Entry           *ledger.Entry // nil when the client paid
}

// RenewDomain renews a domain. Every precondition is checked before the
// domain is touched.
func (s *Service) RenewDomain(ctx context.Context, id DomainID, in RenewalInput) (*RenewalResult, error) {
	payer := in.PaymentType
	if payer == "" {
		payer = PayerClient
	}
	if !payer.Valid() {
		return nil, &ledger.InvalidRequestError{Reason: "payment_type must be client or agency"}
	}

	domain, err := s.GetDomain(ctx, id)
	if err != nil {
		return nil, err
	}
	project, err := s.GetProject(ctx, domain.ProjectID)
	if err != nil {
		return nil, err
	}

	newValidity := domain.ValidityDate.AddDays(RenewalCycleDays)
	if in.NewValidityDate != nil && !in.NewValidityDate.IsZero() {
		newValidity = *in.NewValidityDate
	}
	amount := domain.RenewalAmount
	if in.Amount != nil {
		if in.Amount.IsNegative() {
			return nil, &ledger.InvalidAmountError{Amount: *in.Amount}
		}
		amount = *in.Amount
	}
	if payer == PayerAgency && !amount.IsPositive() {
		return nil, &ledger.InvalidAmountError{Amount: amount}
	}

	domain.ValidityDate = newValidity
	domain.RenewalAmount = amount
	domain.RenewalStatus = RenewalRenewed
	domain.PaymentType = payer
	if err := s.Store.SaveDomain(ctx, *domain); err != nil {
		return nil, fmt.Errorf("save domain: %w", err)
	}

	description := "Domain renewal for " + domain.DomainName
	if in.Notes != "" {
		description += ": " + in.Notes
	}
	result := &RenewalResult{
		Message:         "Domain renewed successfully",
		NewValidityDate: newValidity,
	}

	payment := Payment{
		ID:          PaymentID(s.NewID()),
		CustomerID:  project.CustomerID,
		ReferenceID: string(domain.ID),
		Amount:      amount,
		Description: description,
		PaymentDate: s.today(),
		CreatedAt:   s.Clock.Now().UTC(),
	}

	switch payer {
	case PayerAgency:
		entry, err := s.Ledger.Post(ctx, ledger.Posting{
			CustomerID:    project.CustomerID,
			Type:          ledger.Debit,
			Amount:        amount,
			Description:   description,
			ReferenceType: ledger.RefDomainRenewal,
			ReferenceID:   string(domain.ID),
		})
		if err != nil {
			return nil, fmt.Errorf("post renewal debit: %w", err)
		}
		result.Entry = &entry
		payment.Type = PaymentDomainRenewalAgency
		payment.Status = PaymentPending
		result.Message = "Domain renewed; agency payment recorded as customer debt"
	default:
		payment.Type = PaymentDomainRenewalClient
		payment.Status = PaymentCompleted
	}

	if err := s.Store.SavePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("save renewal payment: %w", err)
	}
	result.Payment = payment

	s.Logger.Info("domain renewed",
		zap.String("domain_id", string(domain.ID)),
		zap.String("payer", string(payer)),
		zap.String("amount", amount.String()),
		zap.String("valid_until", newValidity.String()),
	)
	return result, nil
}

type RepaymentResult struct {
	Message string
	Entry   ledger.Entry
	Settled *Payment // nil when no pending agency payment existed
}

// RecordRenewalRepayment books the client paying back an agency-fronted renewal.
func (s *Service) RecordRenewalRepayment(ctx context.Context, id DomainID, amount decimal.Decimal) (*RepaymentResult, error) {
	if !amount.IsPositive() {
		return nil, &ledger.InvalidAmountError{Amount: amount}
	}
	domain, err := s.GetDomain(ctx, id)
	if err != nil {
		return nil, err
	}
	project, err := s.GetProject(ctx, domain.ProjectID)
	if err != nil {
		return nil, err
	}

	entry, err := s.Ledger.Post(ctx, ledger.Posting{
		CustomerID:    project.CustomerID,
		Type:          ledger.Credit,
		Amount:        amount,
		Description:   "Renewal repayment for " + domain.DomainName,
		ReferenceType: ledger.RefDomainRenewalPayment,
		ReferenceID:   string(domain.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("post repayment credit: %w", err)
	}
	result := &RepaymentResult{
		Message: "Renewal payment recorded",
		Entry:   entry,
	}

	pending, err := s.Store.FindPayments(ctx, PaymentFilter{
		ReferenceID: string(domain.ID),
		Type:        PaymentDomainRenewalAgency,
		Status:      PaymentPending,
	})
	if err != nil {
		return nil, fmt.Errorf("find pending renewal payments: %w", err)
	}
	if len(pending) == 0 {
		result.Message = "Renewal payment recorded; no pending agency renewal to settle"
		s.Logger.Warn("renewal repayment without pending payment", zap.String("domain_id", string(domain.ID)))
		return result, nil
	}

	settled := pending[0]
	settled.Status = PaymentCompleted
	if err := s.Store.SavePayment(ctx, settled); err != nil {
		return nil, fmt.Errorf("settle renewal payment: %w", err)
	}
	result.Settled = &settled

	s.Logger.Info("renewal repayment recorded",
		zap.String("domain_id", string(domain.ID)),
		zap.String("payment_id", string(settled.ID)),
		zap.String("amount", amount.String()),
	)
	return result, nil
}
