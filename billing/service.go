/*
service.go - Billing service wiring

PURPOSE:
  Service is the entry point for every operation that touches money:
  payments, domain renewals, AMC tracking, and the CRUD paths whose side
  effects reach the ledger (project creation). HTTP handlers call it;
  it calls the ledger and the record store.

LOCKING:
  The ledger serializes postings per customer. Service additionally
  serializes read-modify-write of a project's paid/AMC fields per project,
  so two concurrent advances cannot lose one another's paid_amount.

SEE ALSO:
  - ledger/ledger.go: Posting and balance derivation
  - store.go: Record persistence
*/
package billing

import (
	"github.com/google/uuid"
	"github.com/warp/agency-ledger/ledger"
	"go.uber.org/zap"
)

const (
	// AmcCycleDays is the length of one maintenance cycle.
	AmcCycleDays = 365

	// RenewalCycleDays is the default domain extension when no date is given.
	RenewalCycleDays = 365

	// DueWindowDays is how far ahead AMC and domain listings look.
	DueWindowDays = 30

	// RecentPaymentsLimit caps recent_payments in the customer summary.
	RecentPaymentsLimit = 5
)

type Service struct {
	Store  RecordStore
	Ledger ledger.Ledger
	Clock  ledger.Clock
	Logger *zap.Logger
	NewID  func() string

	projectLocks ledger.KeyedMutex[ProjectID]
}

type Option func(*Service)

func WithClock(c ledger.Clock) Option { return func(s *Service) { s.Clock = c } }
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.Logger = l } }
func WithIDGenerator(fn func() string) Option { return func(s *Service) { s.NewID = fn } }

func NewService(store RecordStore, l ledger.Ledger, opts ...Option) *Service {
	s := &Service{
		Store:  store,
		Ledger: l,
		Clock:  ledger.SystemClock{},
		Logger: zap.NewNop(),
		NewID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() ledger.Date { return ledger.Today(s.Clock) }

func errNoFieldsToUpdate() error {
	return &ledger.InvalidRequestError{Reason: "No fields to update"}
}
