/*
scheduler.go - Automated AMC sweep

PURPOSE:
  Periodically runs the AMC due-date listing so overdue maintenance
  contracts become customer debt even when nobody opens the AMC dashboard.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start
  - Relies on ledger.PostOnce for idempotence: a sweep that overlaps a
    dashboard request cannot post a second debit for the same project

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether the sweeper is active (default: true)

USAGE:
  scheduler := NewAmcScheduler(svc, logger, metrics)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: DashboardAmcProjects (same listing, on demand)
  - billing/amc.go: AMC Due-Date Engine
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/agency-ledger/billing"
	"go.uber.org/zap"
)

// AmcScheduler posts overdue AMC debt on a timer.
type AmcScheduler struct {
	Service       *billing.Service
	Logger        *zap.Logger
	Metrics       *Metrics
	CheckInterval time.Duration
	Enabled       bool

	ticker  *time.Ticker
	stop    chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewAmcScheduler creates a new scheduler. logger and metrics may be nil.
func NewAmcScheduler(svc *billing.Service, logger *zap.Logger, metrics *Metrics) *AmcScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AmcScheduler{
		Service:       svc,
		Logger:        logger.Named("amc-scheduler"),
		Metrics:       metrics,
		CheckInterval: time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler. Calling Start on a running scheduler is a no-op.
func (s *AmcScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled || s.CheckInterval <= 0 {
		s.Logger.Info("disabled, not starting")
		return
	}
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.stop = make(chan struct{})
	s.ticker = time.NewTicker(s.CheckInterval)
	s.running = true
	s.wg.Add(1)

	go s.run(ctx)

	s.Logger.Info("started", zap.Duration("interval", s.CheckInterval))
}

// Stop stops the scheduler and waits for an in-flight sweep to finish.
func (s *AmcScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.cancel()
	s.wg.Wait()
	s.running = false
	s.Logger.Info("stopped")
}

func (s *AmcScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	s.Sweep(ctx)

	for {
		select {
		case <-s.ticker.C:
			s.Sweep(ctx)
		case <-s.stop:
			return
		}
	}
}

// Sweep runs the AMC listing once and returns how many debits it posted.
func (s *AmcScheduler) Sweep(ctx context.Context) int {
	rows, err := s.Service.ListAmcDue(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.Logger.Error("amc sweep failed", zap.Error(err))
		}
		return 0
	}

	posted, overdue := 0, 0
	for _, row := range rows {
		if row.IsOverdue {
			overdue++
		}
		if row.DebtPosted {
			posted++
			s.Metrics.AmcOverdueDebitPosted()
		}
	}
	s.Logger.Info("amc sweep complete",
		zap.Int("due", len(rows)),
		zap.Int("overdue", overdue),
		zap.Int("debits_posted", posted),
	)
	return posted
}
