/*
handlers_test.go - HTTP tests for the API handlers

Exercises the real router against an in-memory SQLite store:
- Record CRUD and error mapping
- Payments end to end (ledger snapshots, project status)
- Domain renewal and repayment
- AMC dashboard idempotence and metrics
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/agency-ledger/billing"
	"github.com/warp/agency-ledger/ledger"
	"github.com/warp/agency-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	handler *Handler
	router  http.Handler
	today   ledger.Date
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := ledger.FixedClock{At: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	l := ledger.NewLedger(store, ledger.WithClock(clock), ledger.WithObserver(metrics.LedgerObserver()))
	svc := billing.NewService(store, l, billing.WithClock(clock))
	h := NewHandler(svc, store, nil, metrics)

	return &testServer{
		handler: h,
		router:  NewRouter(h, []string{"http://localhost:3000"}),
		today:   ledger.Today(clock),
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeAs[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (ts *testServer) createCustomer(t *testing.T, name string) CustomerDTO {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/customers", map[string]any{
		"name": name, "phone": "+1000", "email": "c@example.com", "address": "1 Main St",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeAs[CustomerDTO](t, rec)
}

func (ts *testServer) createProject(t *testing.T, customerID string, amount, amc float64, end *ledger.Date) ProjectDTO {
	t.Helper()
	body := map[string]any{
		"customer_id": customerID,
		"type":        "website",
		"name":        "Store Front",
		"amount":      amount,
		"amc_amount":  amc,
		"start_date":  ts.today.AddDays(-500).String(),
	}
	if end != nil {
		body["end_date"] = end.String()
	}
	rec := ts.do(t, http.MethodPost, "/api/projects", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeAs[ProjectDTO](t, rec)
}

func (ts *testServer) createDomain(t *testing.T, projectID, name string, validity ledger.Date, renewal float64) DomainDTO {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/domains", map[string]any{
		"project_id":       projectID,
		"domain_name":      name,
		"hosting_provider": "GoDaddy",
		"username":         "admin",
		"password":         "secret",
		"validity_date":    validity.String(),
		"renewal_amount":   renewal,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeAs[DomainDTO](t, rec)
}

// =============================================================================
// RECORDS
// =============================================================================

func TestCustomers_CRUD(t *testing.T) {
	ts := newTestServer(t)
	c := ts.createCustomer(t, "Acme Traders")
	assert.NotEmpty(t, c.ID)

	rec := ts.do(t, http.MethodGet, "/api/customers/"+c.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Acme Traders", decodeAs[CustomerDTO](t, rec).Name)

	rec = ts.do(t, http.MethodPut, "/api/customers/"+c.ID, map[string]any{"phone": "+2000"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeAs[CustomerDTO](t, rec)
	assert.Equal(t, "+2000", updated.Phone)
	assert.Equal(t, "Acme Traders", updated.Name)

	rec = ts.do(t, http.MethodGet, "/api/customers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]CustomerDTO](t, rec), 1)

	rec = ts.do(t, http.MethodDelete, "/api/customers/"+c.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/customers/"+c.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrors_Mapping(t *testing.T) {
	ts := newTestServer(t)
	c := ts.createCustomer(t, "Errors")

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		status   int
		code     string
		errorMsg string
	}{
		{"missing customer", http.MethodGet, "/api/customers/nope", nil, http.StatusNotFound, "not_found", "Customer not found"},
		{"missing project", http.MethodGet, "/api/payment-status/nope", nil, http.StatusNotFound, "not_found", "Project not found"},
		{"missing domain", http.MethodPost, "/api/domain-renewal/nope", nil, http.StatusNotFound, "not_found", "Domain not found"},
		{"empty update", http.MethodPut, "/api/customers/" + c.ID, map[string]any{}, http.StatusBadRequest, "invalid_request", "No fields to update"},
		{"malformed body", http.MethodPost, "/api/customers", "{not json", http.StatusBadRequest, "invalid_request", "Invalid request body"},
		{"missing name", http.MethodPost, "/api/customers", map[string]any{"email": "x@example.com"}, http.StatusBadRequest, "validation_failed", "Validation failed"},
		{"bad payer", http.MethodPost, "/api/domain-renewal/any", map[string]any{"payment_type": "reseller"}, http.StatusBadRequest, "validation_failed", "Validation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decodeAs[ErrorResponse](t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.errorMsg, resp.Error)
		})
	}
}

func TestValidation_DetailsUseJSONNames(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/payments", map[string]any{"amount": 10})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_failed", resp.Code)
	assert.Equal(t, "required", resp.Details["customer_id"])
	assert.Equal(t, "required", resp.Details["type"])
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestPayments_EndToEnd(t *testing.T) {
	// GIVEN: a customer with an 18000 project
	// WHEN: advances of 8000 then 10000 are posted
	// THEN: the ledger shows balances -18000, -10000, 0 and the project is paid
	ts := newTestServer(t)
	c := ts.createCustomer(t, "Customer C")
	p := ts.createProject(t, c.ID, 18000, 0, nil)
	assert.Equal(t, "pending", p.PaymentStatus)

	rec := ts.do(t, http.MethodPost, "/api/payments", map[string]any{
		"customer_id": c.ID, "type": "project_advance", "reference_id": p.ID, "amount": 8000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	payment := decodeAs[PaymentDTO](t, rec)
	assert.Equal(t, "completed", payment.Status)
	assert.Equal(t, ts.today, payment.PaymentDate)

	rec = ts.do(t, http.MethodGet, "/api/payment-status/"+p.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeAs[PaymentStatusDTO](t, rec)
	assert.Equal(t, "partial", status.PaymentStatus)
	assert.Equal(t, 10000.0, status.RemainingAmount)
	assert.Nil(t, status.AmcDueDate)

	// Amounts as numeric strings are accepted too.
	rec = ts.do(t, http.MethodPost, "/api/payments", map[string]any{
		"customer_id": c.ID, "type": "project_advance", "reference_id": p.ID, "amount": "10000",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/ledger/customer/"+c.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeAs[[]LedgerEntryDTO](t, rec)
	require.Len(t, entries, 3)
	assert.Equal(t, []float64{0, -10000, -18000}, []float64{entries[0].Balance, entries[1].Balance, entries[2].Balance})
	assert.Equal(t, "debit", entries[2].TransactionType)
	assert.Equal(t, "project", entries[2].ReferenceType)

	rec = ts.do(t, http.MethodGet, "/api/customer-payment-summary/"+c.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decodeAs[CustomerPaymentSummaryDTO](t, rec)
	assert.Equal(t, 1, sum.TotalProjects)
	assert.Equal(t, 18000.0, sum.TotalPaidAmount)
	assert.Equal(t, 0.0, sum.OutstandingAmount)
	assert.Equal(t, 0.0, sum.CreditBalance)
	assert.Len(t, sum.RecentPayments, 2)

	rec = ts.do(t, http.MethodGet, "/api/payments/customer/"+c.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]PaymentDTO](t, rec), 2)
}

func TestPayments_Rejections(t *testing.T) {
	ts := newTestServer(t)
	c := ts.createCustomer(t, "Rejections")
	p := ts.createProject(t, c.ID, 1000, 0, nil)

	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"zero amount", map[string]any{"customer_id": c.ID, "type": "project_advance", "reference_id": p.ID, "amount": 0}, http.StatusBadRequest, "invalid_amount"},
		{"negative amount", map[string]any{"customer_id": c.ID, "type": "credit_payment", "amount": -5}, http.StatusBadRequest, "invalid_amount"},
		{"missing project", map[string]any{"customer_id": c.ID, "type": "project_advance", "reference_id": "ghost", "amount": 10}, http.StatusNotFound, "reference_not_found"},
		{"unknown customer", map[string]any{"customer_id": "ghost", "type": "credit_payment", "amount": 10}, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/payments", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeAs[ErrorResponse](t, rec).Code)
		})
	}

	// Nothing beyond the project debit reached the ledger.
	rec := ts.do(t, http.MethodGet, "/api/ledger/customer/"+c.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]LedgerEntryDTO](t, rec), 1)
}

// =============================================================================
// DOMAIN RENEWAL
// =============================================================================

func TestDomainRenewal_AgencyThenRepayment(t *testing.T) {
	ts := newTestServer(t)
	c := ts.createCustomer(t, "Renewals")
	p := ts.createProject(t, c.ID, 1000, 0, nil)
	d := ts.createDomain(t, p.ID, "renew-me.com", ts.today.AddDays(10), 1500)

	rec := ts.do(t, http.MethodPost, "/api/domain-renewal/"+d.ID, map[string]any{
		"payment_type": "agency", "amount": 1800, "notes": "urgent",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	renewal := decodeAs[DomainRenewalResponse](t, rec)
	assert.Equal(t, ts.today.AddDays(375), renewal.NewValidityDate)
	assert.NotEmpty(t, renewal.PaymentID)

	rec = ts.do(t, http.MethodGet, "/api/domains/"+d.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	domain := decodeAs[DomainDTO](t, rec)
	assert.Equal(t, "renewed", domain.RenewalStatus)
	assert.Equal(t, "agency", domain.PaymentType)
	assert.Equal(t, 1800.0, domain.RenewalAmount)

	rec = ts.do(t, http.MethodPost, "/api/domain-renewal-payment/"+d.ID, map[string]any{"amount": 1800})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	repay := decodeAs[RenewalRepaymentResponse](t, rec)
	require.NotNil(t, repay.SettledPaymentID)
	assert.Equal(t, renewal.PaymentID, *repay.SettledPaymentID)
	assert.Equal(t, -1000.0, repay.CustomerBalance)
}

func TestDomainRenewal_EmptyBodyRenewsForClient(t *testing.T) {
	ts := newTestServer(t)
	c := ts.createCustomer(t, "Client Paid")
	p := ts.createProject(t, c.ID, 1000, 0, nil)
	d := ts.createDomain(t, p.ID, "client.com", ts.today, 900)

	rec := ts.do(t, http.MethodPost, "/api/domain-renewal/"+d.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, ts.today.AddDays(365), decodeAs[DomainRenewalResponse](t, rec).NewValidityDate)

	rec = ts.do(t, http.MethodGet, "/api/ledger/customer/"+c.ID, nil)
	assert.Len(t, decodeAs[[]LedgerEntryDTO](t, rec), 1, "client renewal posts nothing")
}

func TestDomainsDueRenewal(t *testing.T) {
	ts := newTestServer(t)
	c := ts.createCustomer(t, "Due")
	p := ts.createProject(t, c.ID, 1000, 0, nil)
	ts.createDomain(t, p.ID, "soon.com", ts.today.AddDays(15), 1500)
	ts.createDomain(t, p.ID, "expired.com", ts.today.AddDays(-10), 1200)
	ts.createDomain(t, p.ID, "later.com", ts.today.AddDays(200), 2000)

	rec := ts.do(t, http.MethodGet, "/api/domains-due-renewal", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeAs[[]DueDomainDTO](t, rec)
	require.Len(t, rows, 2)
	assert.Equal(t, "expired.com", rows[0].DomainName)
	assert.Equal(t, -10, rows[0].DaysUntilExpiry)
	assert.True(t, rows[0].IsExpired)
	assert.Equal(t, "soon.com", rows[1].DomainName)
	assert.Equal(t, c.Name, rows[1].CustomerName)
	assert.Equal(t, p.Name, rows[1].ProjectName)

	rec = ts.do(t, http.MethodGet, "/api/dashboard/expiring-domains", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	expiring := decodeAs[[]ExpiringDomainDTO](t, rec)
	require.Len(t, expiring, 2)
	assert.Equal(t, 15, expiring[1].DaysRemaining)
}

// =============================================================================
// AMC AND DASHBOARDS
// =============================================================================

func TestAmcDashboard_PostsOverdueDebtOnce(t *testing.T) {
	ts := newTestServer(t)
	c := ts.createCustomer(t, "AMC")
	end := ts.today.AddDays(-375)
	p := ts.createProject(t, c.ID, 5000, 8000, &end)

	for i := 0; i < 2; i++ {
		rec := ts.do(t, http.MethodGet, "/api/dashboard/amc-projects", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		rows := decodeAs[[]AmcProjectDTO](t, rec)
		require.Len(t, rows, 1)
		assert.True(t, rows[0].IsOverdue)
		assert.Equal(t, -10, rows[0].DaysUntilAmc)
	}

	rec := ts.do(t, http.MethodGet, "/api/ledger/customer/"+c.ID, nil)
	entries := decodeAs[[]LedgerEntryDTO](t, rec)
	amcDue := 0
	for _, e := range entries {
		if e.ReferenceType == "amc_due" {
			amcDue++
		}
	}
	assert.Equal(t, 1, amcDue)

	// Paying the AMC covers the project and drops it from the listing.
	rec = ts.do(t, http.MethodPost, "/api/amc-payment/"+p.ID, map[string]any{"amount": 8000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decodeAs[AmcPaymentResponse](t, rec)
	require.NotNil(t, paid.AmcPaidUntil)
	assert.Equal(t, ts.today.AddDays(365), *paid.AmcPaidUntil)
	assert.Equal(t, "amc_payment", paid.Payment.Type)

	rec = ts.do(t, http.MethodGet, "/api/dashboard/amc-projects", nil)
	assert.Empty(t, decodeAs[[]AmcProjectDTO](t, rec))

	rec = ts.do(t, http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "agency_amc_overdue_debits_total 1")
	assert.Contains(t, body, `agency_ledger_postings_total{reference_type="amc_due",transaction_type="debit"} 1`)
	assert.Contains(t, body, `agency_http_requests_total{method="GET",route="/api/dashboard/amc-projects",status="200"} 3`)
}

func TestDashboard_ProjectsAndBalances(t *testing.T) {
	ts := newTestServer(t)
	a := ts.createCustomer(t, "Alpha")
	b := ts.createCustomer(t, "Beta")
	pa := ts.createProject(t, a.ID, 3000, 0, nil)
	ts.createProject(t, b.ID, 500, 0, nil)
	ts.createDomain(t, pa.ID, "alpha.com", ts.today.AddDays(90), 100)

	rec := ts.do(t, http.MethodGet, "/api/dashboard/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	projects := decodeAs[[]ProjectDetailsDTO](t, rec)
	require.Len(t, projects, 2)
	for _, p := range projects {
		if p.ID == pa.ID {
			assert.Equal(t, "Alpha", p.CustomerName)
			assert.Len(t, p.Domains, 1)
		}
	}

	rec = ts.do(t, http.MethodGet, "/api/dashboard/customer-balances", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	balances := map[string]float64{}
	for _, row := range decodeAs[[]CustomerBalanceDTO](t, rec) {
		balances[row.CustomerName] = row.Balance
	}
	assert.Equal(t, map[string]float64{"Alpha": -3000, "Beta": -500}, balances)
}

func TestProjectsAndDomains_Lists(t *testing.T) {
	ts := newTestServer(t)
	a := ts.createCustomer(t, "Alpha")
	b := ts.createCustomer(t, "Beta")
	pa := ts.createProject(t, a.ID, 100, 0, nil)
	ts.createProject(t, b.ID, 200, 0, nil)
	ts.createDomain(t, pa.ID, "a.com", ts.today.AddDays(90), 10)

	rec := ts.do(t, http.MethodGet, "/api/projects?customer_id="+a.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]ProjectDTO](t, rec), 1)

	rec = ts.do(t, http.MethodGet, "/api/projects", nil)
	assert.Len(t, decodeAs[[]ProjectDTO](t, rec), 2)

	rec = ts.do(t, http.MethodGet, "/api/domains/project/"+pa.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]DomainDTO](t, rec), 1)

	rec = ts.do(t, http.MethodPut, "/api/projects/"+pa.ID, map[string]any{"amount": 50})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending", decodeAs[ProjectDTO](t, rec).PaymentStatus)
}

func TestUpdateProject_EndDateNullClears(t *testing.T) {
	// GIVEN: A project with an end date
	// WHEN: Updating other fields, then sending end_date null
	// THEN: The end date survives the first update and is cleared by the second
	ts := newTestServer(t)
	c := ts.createCustomer(t, "Ongoing Again")
	end := ts.today.AddDays(-30)
	p := ts.createProject(t, c.ID, 1000, 200, &end)
	require.NotNil(t, p.EndDate)

	rec := ts.do(t, http.MethodPut, "/api/projects/"+p.ID, map[string]any{"name": "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeAs[ProjectDTO](t, rec)
	require.NotNil(t, got.EndDate)
	assert.Equal(t, end, *got.EndDate)

	rec = ts.do(t, http.MethodPut, "/api/projects/"+p.ID, map[string]any{"end_date": nil})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, decodeAs[ProjectDTO](t, rec).EndDate)

	rec = ts.do(t, http.MethodGet, "/api/payment-status/"+p.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decodeAs[PaymentStatusDTO](t, rec).AmcDueDate)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"status": "ok"}, decodeAs[map[string]string](t, rec))
}

func TestRecoverer_PanicBecomes500(t *testing.T) {
	ts := newTestServer(t)
	ts.handler.Service = nil

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/customer-balances", nil).WithContext(context.Background())
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// The recovered request is still counted.
	rec = ts.do(t, http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `agency_http_requests_total{method="GET",route="/api/dashboard/customer-balances",status="500"} 1`)
}
