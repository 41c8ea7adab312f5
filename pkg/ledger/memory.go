package ledger

import (
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store used in tests and throwaway dev
// servers. Same atomicity contract as the sqlite store.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[Address]Snapshot
	accounts  map[string]uint64
	log       []Transfer
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[Address]Snapshot),
		accounts:  make(map[string]uint64),
	}
}

// GetSnapshot implements Store.
func (m *MemoryStore) GetSnapshot(addr Address) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[addr]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(snap.Data))
	copy(out, snap.Data)
	return out, nil
}

// ListSnapshots implements Store.
func (m *MemoryStore) ListSnapshots(kind string) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Snapshot
	for _, snap := range m.snapshots {
		if snap.Kind == kind {
			out = append(out, snap)
		}
	}
	return out, nil
}

// Commit implements Store. Transfers are validated before anything is
// applied so a failing transfer leaves no partial state.
func (m *MemoryStore) Commit(writes []Snapshot, transfers []Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate against a scratch balance view first.
	scratch := make(map[string]uint64, len(transfers))
	for _, tr := range transfers {
		if _, ok := scratch[tr.From]; !ok {
			scratch[tr.From] = m.accounts[tr.From]
		}
		if _, ok := scratch[tr.To]; !ok {
			scratch[tr.To] = m.accounts[tr.To]
		}
		if scratch[tr.From] < tr.Amount {
			return fmt.Errorf("%w: account %s needs %d", ErrInsufficientFunds, tr.From, tr.Amount)
		}
		scratch[tr.From] -= tr.Amount
		scratch[tr.To] += tr.Amount
	}

	for account, balance := range scratch {
		m.accounts[account] = balance
	}
	m.log = append(m.log, transfers...)

	for _, w := range writes {
		if w.Data == nil {
			delete(m.snapshots, w.Address)
			continue
		}
		cp := make([]byte, len(w.Data))
		copy(cp, w.Data)
		m.snapshots[w.Address] = Snapshot{Address: w.Address, Kind: w.Kind, Data: cp}
	}
	return nil
}

// Balance implements Store.
func (m *MemoryStore) Balance(account string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accounts[account], nil
}

// Deposit implements Store.
func (m *MemoryStore) Deposit(account string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account] += amount
	return nil
}

// Transfers returns a copy of the transfer log.
func (m *MemoryStore) Transfers() []Transfer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Transfer, len(m.log))
	copy(out, m.log)
	return out
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
