// Package memory is an in-process ledger backend. It keeps the committed
// state outside the ledger so a ledger can be reopened from it, and supports
// error injection for tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/R3E-Network/socialfeed/internal/ledger"
)

// Backend implements ledger.Backend in memory.
type Backend struct {
	mu       sync.RWMutex
	accounts map[ledger.Address]*ledger.Account
	txIDs    map[string]struct{}
	slot     uint64
	batches  int

	// Error injection for testing error paths
	ErrorOnNextCall error
}

var _ ledger.Backend = (*Backend)(nil)

// New creates an empty backend.
func New() *Backend {
	return &Backend{
		accounts: make(map[ledger.Address]*ledger.Account),
		txIDs:    make(map[string]struct{}),
	}
}

// checkError returns and clears any injected error.
func (b *Backend) checkError() error {
	if b.ErrorOnNextCall != nil {
		err := b.ErrorOnNextCall
		b.ErrorOnNextCall = nil
		return err
	}
	return nil
}

// Load returns a copy of the stored state.
func (b *Backend) Load(_ context.Context) (*ledger.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkError(); err != nil {
		return nil, err
	}

	snap := &ledger.Snapshot{Slot: b.slot}
	for _, acct := range b.accounts {
		snap.Accounts = append(snap.Accounts, acct.Clone())
	}
	sort.Slice(snap.Accounts, func(i, j int) bool {
		return snap.Accounts[i].Address.Less(snap.Accounts[j].Address)
	})
	for id := range b.txIDs {
		snap.TxIDs = append(snap.TxIDs, id)
	}
	sort.Strings(snap.TxIDs)
	return snap, nil
}

// Apply stores one committed batch.
func (b *Backend) Apply(_ context.Context, batch *ledger.Batch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkError(); err != nil {
		return err
	}

	for _, acct := range batch.Upserts {
		b.accounts[acct.Address] = acct.Clone()
	}
	for _, addr := range batch.Deletes {
		delete(b.accounts, addr)
	}
	if batch.TxID != "" {
		b.txIDs[batch.TxID] = struct{}{}
	}
	b.slot = batch.Slot
	b.batches++
	return nil
}

// Close is a no-op.
func (b *Backend) Close() error { return nil }

// Batches returns how many batches were applied.
func (b *Backend) Batches() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.batches
}

// Reset clears all stored state.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts = make(map[ledger.Address]*ledger.Account)
	b.txIDs = make(map[string]struct{})
	b.slot = 0
	b.batches = 0
	b.ErrorOnNextCall = nil
}
