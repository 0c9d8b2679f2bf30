/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	agency data. Each scenario creates customers, projects and domains, and
	replays payments and renewals through billing.Service, so the ledger
	snapshots of demo data are exactly what real traffic would produce.

AVAILABLE SCENARIOS:

	agency-demo:      One customer, one finished website with AMC, three
	                  domains (due soon, expired, not due)
	amc-overdue:      Two customers whose AMC cycle is past due; one already
	                  paid for the current cycle
	renewal-backlog:  Agency-paid renewals, one repaid, one outstanding

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create customers, projects (posts project debits), domains
 3. Record advances, renewals and repayments through the service

Dates are relative to the service clock, so a scenario looks the same
whichever day it is loaded.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "agency-demo"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler
  - billing/service.go: Every write goes through here
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/warp/agency-ledger/billing"
	"github.com/warp/agency-ledger/ledger"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "agency-demo",
		Name:        "Agency Demo",
		Description: "Finished website with AMC and three domains: due soon, expired, not due",
		Category:    "renewals",
	},
	{
		ID:          "amc-overdue",
		Name:        "AMC Overdue",
		Description: "Projects whose maintenance contract is past due; opening the AMC dashboard posts the debt",
		Category:    "amc",
	},
	{
		ID:          "renewal-backlog",
		Name:        "Renewal Backlog",
		Description: "Agency-paid domain renewals, one repaid and one still owed",
		Category:    "renewals",
	},
}

type scenarioLoader func(ctx context.Context, h *Handler) error

var scenarioLoaders = map[string]scenarioLoader{
	"agency-demo":     loadAgencyDemoScenario,
	"amc-overdue":     loadAmcOverdueScenario,
	"renewal-backlog": loadRenewalBacklogScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	if err := h.ApplyScenario(r.Context(), req.ScenarioID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "Scenario loaded successfully",
		"scenario": req.ScenarioID,
	})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Database reset successfully"})
}

// ApplyScenario resets the database and loads the scenario with the given id.
func (h *Handler) ApplyScenario(ctx context.Context, id string) error {
	load, ok := scenarioLoaders[id]
	if !ok {
		return ledger.NotFound("Scenario", id)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset database: %w", err)
	}
	h.currentScenario = ""
	if err := load(ctx, h); err != nil {
		return fmt.Errorf("load scenario %s: %w", id, err)
	}
	h.currentScenario = id
	h.Logger.Info("scenario loaded", zap.String("scenario", id))
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadAgencyDemoScenario(ctx context.Context, h *Handler) error {
	svc := h.Service
	today := ledger.Today(svc.Clock)

	customer, err := svc.CreateCustomer(ctx, billing.CustomerInput{
		Name:    "John Demo Customer",
		Phone:   "+1234567890",
		Email:   "john@demo.com",
		Address: "123 Demo Street, Demo City",
	})
	if err != nil {
		return err
	}

	end := today.AddDays(-30)
	project, err := svc.CreateProject(ctx, billing.ProjectInput{
		CustomerID: customer.ID,
		Type:       "Website Development",
		Name:       "Demo Website Project",
		Amount:     decimal.NewFromInt(50000),
		AmcAmount:  decimal.NewFromInt(8000),
		StartDate:  today.AddDays(-180),
		EndDate:    &end,
	})
	if err != nil {
		return err
	}

	domains := []struct {
		name     string
		provider string
		days     int
		amount   int64
	}{
		{"demo-website.com", "GoDaddy", 15, 1500},
		{"demo-expired.com", "Hostinger", -5, 1200},
		{"demo-future.com", "Namecheap", 60, 2000},
	}
	for _, d := range domains {
		if _, err := svc.CreateDomain(ctx, billing.DomainInput{
			ProjectID:       project.ID,
			DomainName:      d.name,
			HostingProvider: d.provider,
			Username:        "demo_user",
			Password:        "demo_password123",
			ValidityDate:    today.AddDays(d.days),
			RenewalAmount:   decimal.NewFromInt(d.amount),
		}); err != nil {
			return err
		}
	}

	_, err = svc.RecordPayment(ctx, billing.PaymentInput{
		CustomerID:  customer.ID,
		Type:        billing.PaymentProjectAdvance,
		ReferenceID: string(project.ID),
		Amount:      decimal.NewFromInt(20000),
		Description: "Advance on signing",
	})
	return err
}

func loadAmcOverdueScenario(ctx context.Context, h *Handler) error {
	svc := h.Service
	today := ledger.Today(svc.Clock)

	late, err := svc.CreateCustomer(ctx, billing.CustomerInput{
		Name:  "Late Maintenance Ltd",
		Email: "accounts@late.example",
	})
	if err != nil {
		return err
	}
	// Finished 400 days ago: the AMC fell due 35 days ago.
	lateEnd := today.AddDays(-400)
	lateProject, err := svc.CreateProject(ctx, billing.ProjectInput{
		CustomerID: late.ID,
		Type:       "Web Application",
		Name:       "Booking Portal",
		Amount:     decimal.NewFromInt(120000),
		AmcAmount:  decimal.NewFromInt(15000),
		StartDate:  today.AddDays(-600),
		EndDate:    &lateEnd,
	})
	if err != nil {
		return err
	}
	if _, err := svc.RecordPayment(ctx, billing.PaymentInput{
		CustomerID:  late.ID,
		Type:        billing.PaymentProjectAdvance,
		ReferenceID: string(lateProject.ID),
		Amount:      decimal.NewFromInt(120000),
	}); err != nil {
		return err
	}

	// Due in 10 days, not overdue yet.
	soonEnd := today.AddDays(-355)
	if _, err := svc.CreateProject(ctx, billing.ProjectInput{
		CustomerID: late.ID,
		Type:       "Website Development",
		Name:       "Marketing Site",
		Amount:     decimal.NewFromInt(30000),
		AmcAmount:  decimal.NewFromInt(5000),
		StartDate:  today.AddDays(-420),
		EndDate:    &soonEnd,
	}); err != nil {
		return err
	}

	paid, err := svc.CreateCustomer(ctx, billing.CustomerInput{
		Name:  "Prompt Payer Inc",
		Email: "finance@prompt.example",
	})
	if err != nil {
		return err
	}
	paidEnd := today.AddDays(-380)
	paidProject, err := svc.CreateProject(ctx, billing.ProjectInput{
		CustomerID: paid.ID,
		Type:       "E-commerce",
		Name:       "Online Store",
		Amount:     decimal.NewFromInt(80000),
		AmcAmount:  decimal.NewFromInt(10000),
		StartDate:  today.AddDays(-500),
		EndDate:    &paidEnd,
	})
	if err != nil {
		return err
	}
	_, _, err = svc.RecordAmcPayment(ctx, paidProject.ID, decimal.NewFromInt(10000), nil)
	return err
}

func loadRenewalBacklogScenario(ctx context.Context, h *Handler) error {
	svc := h.Service
	today := ledger.Today(svc.Clock)

	customer, err := svc.CreateCustomer(ctx, billing.CustomerInput{
		Name:    "Renewal Backlog Co",
		Phone:   "+1987654321",
		Email:   "it@backlog.example",
		Address: "9 Registrar Road",
	})
	if err != nil {
		return err
	}
	project, err := svc.CreateProject(ctx, billing.ProjectInput{
		CustomerID: customer.ID,
		Type:       "Hosting",
		Name:       "Managed Hosting Bundle",
		Amount:     decimal.NewFromInt(5000),
		StartDate:  today.AddDays(-365),
	})
	if err != nil {
		return err
	}

	repaid, err := svc.CreateDomain(ctx, billing.DomainInput{
		ProjectID:       project.ID,
		DomainName:      "backlog-main.com",
		HostingProvider: "GoDaddy",
		ValidityDate:    today.AddDays(3),
		RenewalAmount:   decimal.NewFromInt(1800),
	})
	if err != nil {
		return err
	}
	owed, err := svc.CreateDomain(ctx, billing.DomainInput{
		ProjectID:       project.ID,
		DomainName:      "backlog-shop.com",
		HostingProvider: "Namecheap",
		ValidityDate:    today.AddDays(-2),
		RenewalAmount:   decimal.NewFromInt(1200),
	})
	if err != nil {
		return err
	}
	if _, err := svc.CreateDomain(ctx, billing.DomainInput{
		ProjectID:       project.ID,
		DomainName:      "backlog-blog.com",
		HostingProvider: "Hostinger",
		ValidityDate:    today.AddDays(20),
		RenewalAmount:   decimal.NewFromInt(900),
	}); err != nil {
		return err
	}

	for _, id := range []billing.DomainID{repaid.ID, owed.ID} {
		if _, err := svc.RenewDomain(ctx, id, billing.RenewalInput{
			PaymentType: billing.PayerAgency,
			Notes:       "renewed by agency",
		}); err != nil {
			return err
		}
	}
	_, err = svc.RecordRenewalRepayment(ctx, repaid.ID, decimal.NewFromInt(1800))
	return err
}
