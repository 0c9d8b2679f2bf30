package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warp/agency-ledger/ledger"
)

const metricsNamespace = "agency"

// Metrics exports HTTP and ledger activity to Prometheus.
type Metrics struct {
	gatherer prometheus.Gatherer

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	postings        *prometheus.CounterVec
	postedAmount    *prometheus.CounterVec
	amcOverdue      prometheus.Counter
}

// NewMetrics registers the collectors on reg. A nil reg gets a fresh
// registry, which is what tests want.
func NewMetrics(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatherer: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		postings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ledger_postings_total",
			Help:      "Ledger entries appended, by direction and reference type.",
		}, []string{"transaction_type", "reference_type"}),
		postedAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ledger_posted_amount_total",
			Help:      "Sum of amounts appended to the ledger, by direction.",
		}, []string{"transaction_type"}),
		amcOverdue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "amc_overdue_debits_total",
			Help:      "Overdue AMC debits posted.",
		}),
	}
	collectors := []prometheus.Collector{m.requests, m.requestDuration, m.postings, m.postedAmount, m.amcOverdue}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return m, nil
}

// LedgerObserver counts every entry the ledger appends.
func (m *Metrics) LedgerObserver() ledger.Observer {
	return func(e ledger.Entry) {
		if m == nil {
			return
		}
		m.postings.WithLabelValues(string(e.Type), string(e.ReferenceType)).Inc()
		m.postedAmount.WithLabelValues(string(e.Type)).Add(e.Amount.InexactFloat64())
	}
}

func (m *Metrics) AmcOverdueDebitPosted() {
	if m == nil {
		return
	}
	m.amcOverdue.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Instrument records count and latency per chi route pattern, so ids in the
// path do not explode label cardinality.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
