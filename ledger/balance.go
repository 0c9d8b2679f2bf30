package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Replay folds entries into a balance: sum of credits minus sum of debits.
// Order does not matter for the result. An empty history is zero.
func Replay(entries []Entry) decimal.Decimal {
	balance := decimal.Zero
	for _, e := range entries {
		balance = balance.Add(e.Signed())
	}
	return balance
}

// SnapshotMismatchError reports the first entry whose stored balance differs
// from the running replay.
type SnapshotMismatchError struct {
	EntryID  EntryID
	Stored   decimal.Decimal
	Replayed decimal.Decimal
}

func (e *SnapshotMismatchError) Error() string {
	return fmt.Sprintf("entry %s: stored balance %s, replayed %s", e.EntryID, e.Stored, e.Replayed)
}

// VerifySnapshots replays entries in order and checks each stored balance.
func VerifySnapshots(entries []Entry) error {
	running := decimal.Zero
	for _, e := range entries {
		running = running.Add(e.Signed())
		if !running.Equal(e.Balance) {
			return &SnapshotMismatchError{EntryID: e.ID, Stored: e.Balance, Replayed: running}
		}
	}
	return nil
}
