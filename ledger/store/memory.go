// Package store provides in-process ledger.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/agency-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	entries map[ledger.CustomerID][]ledger.Entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[ledger.CustomerID][]ledger.Entry)}
}

// AppendEntry adds one entry at the end of the customer's history. Append-only.
func (m *Memory) AppendEntry(_ context.Context, e ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.CustomerID] = append(m.entries[e.CustomerID], e)
	return nil
}

func (m *Memory) LoadEntries(_ context.Context, customerID ledger.CustomerID) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.Entry, len(m.entries[customerID]))
	copy(result, m.entries[customerID])
	return result, nil
}

func (m *Memory) HasEntry(_ context.Context, customerID ledger.CustomerID, refType ledger.ReferenceType, refID string, typ ledger.EntryType) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.entries[customerID] {
		if e.ReferenceType == refType && e.ReferenceID == refID && e.Type == typ {
			return true, nil
		}
	}
	return false, nil
}

// Reset drops every entry.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[ledger.CustomerID][]ledger.Entry)
}

var _ ledger.Store = (*Memory)(nil)
