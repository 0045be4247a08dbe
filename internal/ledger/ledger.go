// Package ledger is the in-process substrate the feed program runs on.
//
// It keeps an arena of accounts keyed by address, moves native value between
// them and applies each transaction atomically. Transactions run against a
// snapshot and record the version of every account they read; Commit
// publishes the buffered writes only if none of those versions changed in the
// meantime, so conflicting transactions are serialized and the loser fails
// with core.ErrStaleState instead of overwriting state.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/socialfeed/internal/core"
	"github.com/R3E-Network/socialfeed/pkg/logger"
)

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the wall clock used for transaction timestamps.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) { l.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// WithBackend sets the durable backend written on every commit.
func WithBackend(b Backend) Option {
	return func(l *Ledger) { l.backend = b }
}

// Ledger is safe for concurrent use.
type Ledger struct {
	mu        sync.RWMutex
	accounts  map[Address]*Account
	processed map[string]struct{}
	slot      uint64
	version   uint64

	clock   func() time.Time
	backend Backend
	log     *logger.Logger
}

// Stats summarizes the arena.
type Stats struct {
	Slot         uint64 `json:"slot"`
	Accounts     int    `json:"accounts"`
	DataAccounts int    `json:"data_accounts"`
	TotalBalance uint64 `json:"total_balance"`
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		accounts:  make(map[Address]*Account),
		processed: make(map[string]struct{}),
		clock:     time.Now,
		backend:   nopBackend{},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.NewDefault("ledger")
	}
	return l
}

// Open creates a ledger and restores the snapshot held by its backend.
func Open(ctx context.Context, opts ...Option) (*Ledger, error) {
	l := New(opts...)
	snap, err := l.backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger snapshot: %w", err)
	}
	for _, acct := range snap.Accounts {
		l.accounts[acct.Address] = acct.Clone()
		if acct.Version > l.version {
			l.version = acct.Version
		}
	}
	for _, id := range snap.TxIDs {
		l.processed[id] = struct{}{}
	}
	l.slot = snap.Slot

	l.log.WithFields(map[string]interface{}{
		"slot":     l.slot,
		"accounts": len(l.accounts),
	}).Info("ledger restored")
	return l, nil
}

// Close releases the backend.
func (l *Ledger) Close() error {
	return l.backend.Close()
}

// Get returns a copy of the account at addr.
func (l *Ledger) Get(addr Address) (*Account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.accounts[addr]
	if !ok {
		return nil, false
	}
	return acct.Clone(), true
}

// Balance returns the native value held at addr.
func (l *Ledger) Balance(addr Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if acct, ok := l.accounts[addr]; ok {
		return acct.Balance
	}
	return 0
}

// AccountsOwnedBy returns copies of every account owned by program, ordered
// by address.
func (l *Ledger) AccountsOwnedBy(program Address) []*Account {
	l.mu.RLock()
	out := make([]*Account, 0)
	for _, acct := range l.accounts {
		if acct.Owner == program {
			out = append(out, acct.Clone())
		}
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Address.Less(out[j].Address) })
	return out
}

// Slot returns the number of committed transactions.
func (l *Ledger) Slot() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.slot
}

// Stats returns arena totals.
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := Stats{Slot: l.slot, Accounts: len(l.accounts)}
	for _, acct := range l.accounts {
		s.TotalBalance += acct.Balance
		if len(acct.Data) > 0 {
			s.DataAccounts++
		}
	}
	return s
}

// Begin opens a transaction authorized by the given signers. Signature
// verification happens before Begin; the ledger trusts the list.
func (l *Ledger) Begin(signers ...Address) *Tx {
	tx := &Tx{
		ledger:  l,
		signers: make(map[Address]struct{}, len(signers)),
		reads:   make(map[Address]uint64),
		writes:  make(map[Address]*Account),
		now:     l.clock().Unix(),
	}
	for _, s := range signers {
		tx.signers[s] = struct{}{}
	}
	return tx
}

// Airdrop credits amount to addr out of thin air. Only the dev faucet and
// genesis funding use it.
func (l *Ledger) Airdrop(ctx context.Context, to Address, amount uint64) (string, error) {
	if amount == 0 {
		return "", core.NewValidationError("amount", "must be positive")
	}
	tx := l.Begin()
	if err := tx.Credit(to, amount); err != nil {
		return "", err
	}
	id := "airdrop-" + uuid.NewString()
	if _, err := l.Commit(ctx, tx, id); err != nil {
		return "", err
	}
	return id, nil
}

// Commit validates the read set of tx and publishes its writes. A non-empty
// txID is remembered and a second commit with the same id is rejected.
func (l *Ledger) Commit(ctx context.Context, tx *Tx, txID string) (uint64, error) {
	if tx.ledger != l {
		return 0, fmt.Errorf("ledger: transaction belongs to another ledger")
	}
	if tx.done {
		return 0, fmt.Errorf("ledger: transaction already finished")
	}
	tx.done = true

	l.mu.Lock()
	defer l.mu.Unlock()

	if txID != "" {
		if _, seen := l.processed[txID]; seen {
			return 0, fmt.Errorf("%w: %s", core.ErrDuplicateTransaction, txID)
		}
	}

	for addr, observed := range tx.reads {
		if current := l.versionLocked(addr); current != observed {
			return 0, fmt.Errorf("%w: %s moved from version %d to %d", core.ErrStaleState, addr, observed, current)
		}
	}

	batch := &Batch{Slot: l.slot + 1, TxID: txID}
	next := l.version
	for _, addr := range tx.order {
		acct := tx.writes[addr].Clone()
		if acct.Empty() {
			if _, exists := l.accounts[addr]; exists {
				batch.Deletes = append(batch.Deletes, addr)
			}
			continue
		}
		next++
		acct.Version = next
		batch.Upserts = append(batch.Upserts, acct)
	}

	if err := l.backend.Apply(ctx, batch); err != nil {
		return 0, fmt.Errorf("persist slot %d: %w", batch.Slot, err)
	}

	for _, acct := range batch.Upserts {
		l.accounts[acct.Address] = acct
	}
	for _, addr := range batch.Deletes {
		delete(l.accounts, addr)
	}
	l.version = next
	l.slot = batch.Slot
	if txID != "" {
		l.processed[txID] = struct{}{}
	}

	l.log.WithContext(ctx).WithFields(map[string]interface{}{
		"slot":    batch.Slot,
		"tx_id":   txID,
		"upserts": len(batch.Upserts),
		"deletes": len(batch.Deletes),
	}).Debug("transaction committed")
	return batch.Slot, nil
}

// Processed reports whether txID was already committed.
func (l *Ledger) Processed(txID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.processed[txID]
	return ok
}

func (l *Ledger) versionLocked(addr Address) uint64 {
	if acct, ok := l.accounts[addr]; ok {
		return acct.Version
	}
	return 0
}

func (l *Ledger) snapshot(addr Address) (*Account, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if acct, ok := l.accounts[addr]; ok {
		return acct.Clone(), acct.Version
	}
	return &Account{Address: addr}, 0
}
