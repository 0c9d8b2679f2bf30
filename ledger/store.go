package ledger

import "context"

// Store is the persistence interface for ledger entries.
// Implementations must return a customer's entries in the order they were appended.
// There is no update and no delete.
type Store interface {
	AppendEntry(ctx context.Context, e Entry) error

	// LoadEntries returns every entry for the customer, oldest first.
	LoadEntries(ctx context.Context, customerID CustomerID) ([]Entry, error)

	// HasEntry reports whether an entry of the given direction already exists
	// for (customer, reference type, reference id).
	HasEntry(ctx context.Context, customerID CustomerID, refType ReferenceType, refID string, typ EntryType) (bool, error)
}
