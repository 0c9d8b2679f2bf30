/*
amc.go - AMC Due-Date Engine

PURPOSE:
  Lists projects whose annual maintenance is due within 30 days or overdue,
  and turns an overdue AMC into customer debt exactly once.

RULES (per project with an end date):
  due      = end_date + 365 days
  skip     if amc_paid_until is strictly after today
  days     = due - today
  include  if days <= 30
  overdue  if days < 0; when amc_amount > 0 and no amc_due debit exists for
           (customer, project), post one. PostOnce makes the check and the
           post atomic, so repeated or concurrent listings post at most one.

  Rows are sorted by days ascending (most overdue first).
*/
package billing

import (
	"context"
	"fmt"
	"sort"

	"github.com/warp/agency-ledger/ledger"
	"go.uber.org/zap"
)

type AmcDueProject struct {
	Project      Project
	Customer     Customer
	AmcDueDate   ledger.Date
	DaysUntilAmc int
	IsOverdue    bool
	DebtPosted   bool // an amc_due debit was posted by this call
}

func (s *Service) ListAmcDue(ctx context.Context) ([]AmcDueProject, error) {
	projects, err := s.Store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	today := s.today()

	var rows []AmcDueProject
	for _, p := range projects {
		due, ok := p.AmcDueDate()
		if !ok || p.AmcCoveredOn(today) {
			continue
		}
		days := ledger.DaysBetween(today, due)
		if days > DueWindowDays {
			continue
		}
		customer, err := s.Store.GetCustomer(ctx, p.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("get customer: %w", err)
		}
		if customer == nil {
			continue
		}

		row := AmcDueProject{
			Project:      p,
			Customer:     *customer,
			AmcDueDate:   due,
			DaysUntilAmc: days,
			IsOverdue:    days < 0,
		}
		if row.IsOverdue && p.AmcAmount.IsPositive() {
			_, posted, err := s.Ledger.PostOnce(ctx, ledger.Posting{
				CustomerID:    p.CustomerID,
				Type:          ledger.Debit,
				Amount:        p.AmcAmount,
				Description:   "AMC overdue for " + p.Name,
				ReferenceType: ledger.RefAmcDue,
				ReferenceID:   string(p.ID),
			})
			if err != nil {
				return nil, fmt.Errorf("post amc due: %w", err)
			}
			if posted {
				row.DebtPosted = true
				s.Logger.Info("amc overdue debit posted",
					zap.String("customer_id", string(p.CustomerID)),
					zap.String("project_id", string(p.ID)),
					zap.String("amount", p.AmcAmount.String()),
					zap.Int("days_overdue", -days),
				)
			}
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].DaysUntilAmc < rows[j].DaysUntilAmc })
	return rows, nil
}
