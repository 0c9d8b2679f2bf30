/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario correctly sets up the expected state:
	- Customers, projects and domains are created
	- Ledger entries are consistent with their snapshots
	- Dashboards show what the scenario description promises

These tests double as integration tests of billing.Service.
*/
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/agency-ledger/billing"
	"github.com/warp/agency-ledger/ledger"
)

func assertLedgersConsistent(t *testing.T, ts *testServer) {
	t.Helper()
	ctx := context.Background()
	customers, err := ts.handler.Service.ListCustomers(ctx)
	require.NoError(t, err)
	for _, c := range customers {
		entries, err := ts.handler.Service.Ledger.Entries(ctx, c.ID)
		require.NoError(t, err)
		require.NoError(t, ledger.VerifySnapshots(entries), "customer %s", c.Name)
	}
}

func TestScenario_AgencyDemo(t *testing.T) {
	// GIVEN: agency-demo scenario
	// WHEN: Loading the scenario
	// THEN: Two of three domains are due, the AMC is not yet due, balance is -30000
	ts := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, ts.handler.ApplyScenario(ctx, "agency-demo"))

	customers, err := ts.handler.Service.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "John Demo Customer", customers[0].Name)

	due, err := ts.handler.Service.DomainsDueRenewal(ctx)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "demo-expired.com", due[0].Domain.DomainName)
	assert.Equal(t, "demo-website.com", due[1].Domain.DomainName)

	amc, err := ts.handler.Service.ListAmcDue(ctx)
	require.NoError(t, err)
	assert.Empty(t, amc)

	balance, err := ts.handler.Service.Ledger.Balance(ctx, customers[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "-30000", balance.String())

	assertLedgersConsistent(t, ts)
}

func TestScenario_AmcOverdue(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, ts.handler.ApplyScenario(ctx, "amc-overdue"))

	rows, err := ts.handler.Service.ListAmcDue(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2, "paid project is skipped")
	assert.Equal(t, "Booking Portal", rows[0].Project.Name)
	assert.True(t, rows[0].IsOverdue)
	assert.True(t, rows[0].DebtPosted)
	assert.Equal(t, "Marketing Site", rows[1].Project.Name)
	assert.False(t, rows[1].IsOverdue)

	balance, err := ts.handler.Service.Ledger.Balance(ctx, rows[0].Customer.ID)
	require.NoError(t, err)
	// 120000 paid in full; 30000 project unpaid; 15000 AMC debt.
	assert.Equal(t, "-45000", balance.String())

	assertLedgersConsistent(t, ts)
}

func TestScenario_RenewalBacklog(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, ts.handler.ApplyScenario(ctx, "renewal-backlog"))

	customers, err := ts.handler.Service.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)

	pending, err := ts.handler.Store.FindPayments(ctx, billing.PaymentFilter{
		CustomerID: customers[0].ID,
		Type:       billing.PaymentDomainRenewalAgency,
		Status:     billing.PaymentPending,
	})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "1200", pending[0].Amount.String())

	balance, err := ts.handler.Service.Ledger.Balance(ctx, customers[0].ID)
	require.NoError(t, err)
	// Project 5000 + renewals 1800 + 1200, minus the 1800 repayment.
	assert.Equal(t, "-6200", balance.String())

	assertLedgersConsistent(t, ts)
}

func TestScenario_LoadReplacesPreviousData(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": "agency-demo"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = ts.do(t, http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": "renewal-backlog"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/customers", nil)
	customers := decodeAs[[]CustomerDTO](t, rec)
	require.Len(t, customers, 1)
	assert.Equal(t, "Renewal Backlog Co", customers[0].Name)

	rec = ts.do(t, http.MethodGet, "/api/scenarios/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "renewal-backlog", decodeAs[ScenarioDTO](t, rec).ID)
}

func TestScenario_UnknownAndReset(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]ScenarioDTO](t, rec), len(scenarios))

	require.NoError(t, ts.handler.ApplyScenario(context.Background(), "agency-demo"))
	rec = ts.do(t, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/customers", nil)
	assert.Empty(t, decodeAs[[]CustomerDTO](t, rec))
	rec = ts.do(t, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "null\n", rec.Body.String())
}
