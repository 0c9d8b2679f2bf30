/*
ledger.go - Append-only customer ledger

PURPOSE:
  The Ledger is the source of truth for what every customer owes the agency.
  Every monetary event (project created, payment received, renewal fronted,
  AMC overdue) is one immutable entry. There is no balance column anywhere:
  the balance is always Replay() over the customer's full history.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete.
  2. POSITIVE AMOUNTS: direction lives in Type, Amount is always > 0.
  3. SNAPSHOT CONSISTENCY: each entry's Balance equals the replay of all
     entries up to and including it.

SERIALIZATION:
  Post reads the current balance and appends one entry. Both steps run under
  a per-customer mutex so two concurrent postings for the same customer
  cannot compute their snapshot from the same pre-balance. Postings for
  different customers never contend.

  This serializes writers within one process. Several processes sharing a
  database would need the store to enforce it.

SEE ALSO:
  - balance.go: Replay and snapshot verification
  - store.go: Persistence interface
  - billing/payments.go: Main caller
*/
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER - Append-only money log
// =============================================================================

// Ledger records monetary events and derives balances from them.
type Ledger interface {
	// Post appends one entry carrying the customer's new balance.
	// Fails with InvalidAmountError if the amount is not positive.
	Post(ctx context.Context, p Posting) (Entry, error)

	// PostOnce posts only if no entry with the same customer, reference type,
	// reference id and direction exists. The check and the append are atomic
	// with respect to other postings for the customer.
	PostOnce(ctx context.Context, p Posting) (Entry, bool, error)

	// Entries returns the customer's entries, oldest first.
	Entries(ctx context.Context, customerID CustomerID) ([]Entry, error)

	// Balance replays the customer's full history. Never cached.
	Balance(ctx context.Context, customerID CustomerID) (decimal.Decimal, error)
}

// Observer is notified after an entry has been persisted.
type Observer func(Entry)

// =============================================================================
// DEFAULT LEDGER - Implementation using Store
// =============================================================================

type DefaultLedger struct {
	Store Store
	Clock Clock
	NewID func() EntryID

	locks KeyedMutex[CustomerID]

	obsMu     sync.RWMutex
	observers []Observer
}

type Option func(*DefaultLedger)

func WithClock(c Clock) Option { return func(l *DefaultLedger) { l.Clock = c } }

func WithIDGenerator(fn func() EntryID) Option { return func(l *DefaultLedger) { l.NewID = fn } }

func WithObserver(o Observer) Option {
	return func(l *DefaultLedger) { l.observers = append(l.observers, o) }
}

func NewLedger(store Store, opts ...Option) *DefaultLedger {
	l := &DefaultLedger{
		Store: store,
		Clock: SystemClock{},
		NewID: func() EntryID { return EntryID(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Observe registers an observer after construction.
func (l *DefaultLedger) Observe(o Observer) {
	l.obsMu.Lock()
	defer l.obsMu.Unlock()
	l.observers = append(l.observers, o)
}

func (l *DefaultLedger) Post(ctx context.Context, p Posting) (Entry, error) {
	if err := p.validate(); err != nil {
		return Entry{}, err
	}
	unlock := l.locks.Lock(p.CustomerID)
	defer unlock()

	return l.postLocked(ctx, p)
}

func (l *DefaultLedger) PostOnce(ctx context.Context, p Posting) (Entry, bool, error) {
	if err := p.validate(); err != nil {
		return Entry{}, false, err
	}
	unlock := l.locks.Lock(p.CustomerID)
	defer unlock()

	exists, err := l.Store.HasEntry(ctx, p.CustomerID, p.ReferenceType, p.ReferenceID, p.Type)
	if err != nil {
		return Entry{}, false, fmt.Errorf("check existing entry: %w", err)
	}
	if exists {
		return Entry{}, false, nil
	}
	e, err := l.postLocked(ctx, p)
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// postLocked must be called with the customer's lock held.
func (l *DefaultLedger) postLocked(ctx context.Context, p Posting) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	current, err := l.Balance(ctx, p.CustomerID)
	if err != nil {
		return Entry{}, err
	}

	e := Entry{
		ID:            l.NewID(),
		CustomerID:    p.CustomerID,
		Type:          p.Type,
		Amount:        p.Amount,
		Description:   p.Description,
		ReferenceType: p.ReferenceType,
		ReferenceID:   p.ReferenceID,
		Date:          l.Clock.Now().UTC(),
	}
	e.Balance = current.Add(e.Signed())

	if err := l.Store.AppendEntry(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("append ledger entry: %w", err)
	}
	l.notify(e)
	return e, nil
}

func (l *DefaultLedger) notify(e Entry) {
	l.obsMu.RLock()
	defer l.obsMu.RUnlock()
	for _, o := range l.observers {
		o(e)
	}
}

func (l *DefaultLedger) Entries(ctx context.Context, customerID CustomerID) ([]Entry, error) {
	return l.Store.LoadEntries(ctx, customerID)
}

func (l *DefaultLedger) Balance(ctx context.Context, customerID CustomerID) (decimal.Decimal, error) {
	entries, err := l.Store.LoadEntries(ctx, customerID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load ledger entries: %w", err)
	}
	return Replay(entries), nil
}

var _ Ledger = (*DefaultLedger)(nil)
