package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/agency-ledger/ledger"
	"github.com/warp/agency-ledger/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T, opts ...ledger.Option) (*ledger.DefaultLedger, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	opts = append([]ledger.Option{ledger.WithClock(ledger.FixedClock{At: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)})}, opts...)
	return ledger.NewLedger(mem, opts...), mem
}

func money(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func posting(customer string, typ ledger.EntryType, amount int64, ref ledger.ReferenceType, refID string) ledger.Posting {
	return ledger.Posting{
		CustomerID:    ledger.CustomerID(customer),
		Type:          typ,
		Amount:        money(amount),
		Description:   fmt.Sprintf("%s %d", typ, amount),
		ReferenceType: ref,
		ReferenceID:   refID,
	}
}

// =============================================================================
// BALANCE REPLAY
// =============================================================================

func TestLedger_EmptyCustomer_BalanceIsZero(t *testing.T) {
	l, _ := newTestLedger(t)

	balance, err := l.Balance(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestLedger_Post_SnapshotMatchesReplay(t *testing.T) {
	// GIVEN: a project debit of 18000
	// WHEN: two advances of 8000 and 10000 are credited
	// THEN: snapshots read -18000, -10000, 0 and the replay agrees
	ctx := context.Background()
	l, _ := newTestLedger(t)

	e1, err := l.Post(ctx, posting("c1", ledger.Debit, 18000, ledger.RefProject, "p1"))
	require.NoError(t, err)
	e2, err := l.Post(ctx, posting("c1", ledger.Credit, 8000, ledger.RefProjectAdvance, "p1"))
	require.NoError(t, err)
	e3, err := l.Post(ctx, posting("c1", ledger.Credit, 10000, ledger.RefProjectAdvance, "p1"))
	require.NoError(t, err)

	assert.True(t, e1.Balance.Equal(money(-18000)))
	assert.True(t, e2.Balance.Equal(money(-10000)))
	assert.True(t, e3.Balance.Equal(money(0)))

	entries, err := l.Entries(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.NoError(t, ledger.VerifySnapshots(entries))

	balance, err := l.Balance(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(entries[len(entries)-1].Balance))
}

func TestLedger_Customers_AreIndependent(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	_, err := l.Post(ctx, posting("a", ledger.Debit, 500, ledger.RefProject, "p1"))
	require.NoError(t, err)
	_, err = l.Post(ctx, posting("b", ledger.Credit, 200, ledger.RefProjectAdvance, "p2"))
	require.NoError(t, err)

	a, err := l.Balance(ctx, "a")
	require.NoError(t, err)
	b, err := l.Balance(ctx, "b")
	require.NoError(t, err)
	assert.True(t, a.Equal(money(-500)))
	assert.True(t, b.Equal(money(200)))
}

func TestReplay_OrderIndependent(t *testing.T) {
	entries := []ledger.Entry{
		{Type: ledger.Debit, Amount: money(100)},
		{Type: ledger.Credit, Amount: money(40)},
		{Type: ledger.Credit, Amount: decimal.RequireFromString("0.10")},
	}
	reversed := []ledger.Entry{entries[2], entries[1], entries[0]}

	assert.True(t, ledger.Replay(entries).Equal(ledger.Replay(reversed)))
	assert.Equal(t, "-59.9", ledger.Replay(entries).String())
}

func TestVerifySnapshots_DetectsDrift(t *testing.T) {
	entries := []ledger.Entry{
		{ID: "e1", Type: ledger.Debit, Amount: money(100), Balance: money(-100)},
		{ID: "e2", Type: ledger.Credit, Amount: money(50), Balance: money(-40)},
	}

	err := ledger.VerifySnapshots(entries)
	var mismatch *ledger.SnapshotMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, ledger.EntryID("e2"), mismatch.EntryID)
	assert.True(t, mismatch.Replayed.Equal(money(-50)))
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestLedger_Post_RejectsNonPositiveAmounts(t *testing.T) {
	ctx := context.Background()
	l, mem := newTestLedger(t)

	for _, amount := range []int64{0, -10} {
		_, err := l.Post(ctx, posting("c1", ledger.Credit, amount, ledger.RefProjectAdvance, "p1"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
		assert.True(t, ledger.IsClientError(err))
	}

	entries, err := mem.LoadEntries(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected postings must not be written")
}

func TestLedger_Post_RejectsUnknownDirection(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.Post(context.Background(), posting("c1", ledger.EntryType("refund"), 10, ledger.RefProject, "p1"))
	assert.ErrorIs(t, err, ledger.ErrInvalidRequest)
}

// =============================================================================
// POST ONCE
// =============================================================================

func TestLedger_PostOnce_DeduplicatesByReference(t *testing.T) {
	// GIVEN: an overdue AMC for project p1
	// WHEN: the overdue debit is requested three times
	// THEN: exactly one amc_due debit exists
	ctx := context.Background()
	l, _ := newTestLedger(t)
	p := posting("c1", ledger.Debit, 8000, ledger.RefAmcDue, "p1")

	_, posted, err := l.PostOnce(ctx, p)
	require.NoError(t, err)
	assert.True(t, posted)

	for i := 0; i < 2; i++ {
		_, posted, err = l.PostOnce(ctx, p)
		require.NoError(t, err)
		assert.False(t, posted)
	}

	// A different project is a different reference.
	_, posted, err = l.PostOnce(ctx, posting("c1", ledger.Debit, 8000, ledger.RefAmcDue, "p2"))
	require.NoError(t, err)
	assert.True(t, posted)

	entries, err := l.Entries(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLedger_PostOnce_Concurrent(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)
	p := posting("c1", ledger.Debit, 8000, ledger.RefAmcDue, "p1")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := l.PostOnce(ctx, p)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := l.Entries(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestLedger_ConcurrentPosts_SnapshotsStayConsistent(t *testing.T) {
	// GIVEN: 50 concurrent credits of 10 for one customer
	// THEN: every snapshot is distinct and the history verifies
	ctx := context.Background()
	l, _ := newTestLedger(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.Post(ctx, posting("c1", ledger.Credit, 10, ledger.RefProjectAdvance, fmt.Sprintf("p%d", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	entries, err := l.Entries(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, entries, 50)
	require.NoError(t, ledger.VerifySnapshots(entries))
	assert.True(t, entries[49].Balance.Equal(money(500)))
}

func TestLedger_Observer_SeesPersistedEntries(t *testing.T) {
	var seen []ledger.Entry
	l, _ := newTestLedger(t, ledger.WithObserver(func(e ledger.Entry) { seen = append(seen, e) }))

	_, err := l.Post(context.Background(), posting("c1", ledger.Debit, 1500, ledger.RefDomainRenewal, "d1"))
	require.NoError(t, err)
	_, err = l.Post(context.Background(), posting("c1", ledger.Debit, 0, ledger.RefDomainRenewal, "d1"))
	require.Error(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, ledger.RefDomainRenewal, seen[0].ReferenceType)
}
