package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/agency-ledger/ledger"
)

func TestAmcScheduler_SweepPostsOnce(t *testing.T) {
	// GIVEN: a project with an overdue AMC
	// WHEN: the sweep runs twice
	// THEN: only the first sweep posts a debit
	ts := newTestServer(t)
	c := ts.createCustomer(t, "Swept")
	end := ts.today.AddDays(-400)
	ts.createProject(t, c.ID, 1000, 2000, &end)

	s := NewAmcScheduler(ts.handler.Service, nil, ts.handler.Metrics)
	assert.Equal(t, 1, s.Sweep(context.Background()))
	assert.Equal(t, 0, s.Sweep(context.Background()))

	rec := ts.do(t, http.MethodGet, "/api/metrics", nil)
	assert.Contains(t, rec.Body.String(), "agency_amc_overdue_debits_total 1")
}

func TestAmcScheduler_StartRunsImmediately(t *testing.T) {
	ts := newTestServer(t)
	c := ts.createCustomer(t, "Started")
	end := ts.today.AddDays(-400)
	ts.createProject(t, c.ID, 1000, 2000, &end)

	s := NewAmcScheduler(ts.handler.Service, nil, nil)
	s.CheckInterval = time.Hour
	s.Start()
	s.Start() // no-op

	require.Eventually(t, func() bool {
		b, err := ts.handler.Service.Ledger.Balance(context.Background(), ledger.CustomerID(c.ID))
		return err == nil && b.String() == "-3000"
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	s.Stop() // no-op
}

func TestAmcScheduler_Disabled(t *testing.T) {
	ts := newTestServer(t)

	s := NewAmcScheduler(ts.handler.Service, nil, nil)
	s.CheckInterval = 0
	s.Start()
	s.Stop()

	s.Enabled = false
	s.CheckInterval = time.Minute
	s.Start()
	s.Stop()
}
