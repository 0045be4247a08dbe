package ledger

import "context"

// Snapshot is the durable state a backend hands back on startup.
type Snapshot struct {
	Slot     uint64
	Accounts []*Account
	TxIDs    []string
}

// Batch is the set of changes produced by one committed transaction.
type Batch struct {
	Slot    uint64
	TxID    string
	Upserts []*Account
	Deletes []Address
}

// Backend persists committed batches. Apply must be all-or-nothing: the
// ledger only publishes a batch in memory after Apply returns nil.
type Backend interface {
	Load(ctx context.Context) (*Snapshot, error)
	Apply(ctx context.Context, batch *Batch) error
	Close() error
}

type nopBackend struct{}

func (nopBackend) Load(context.Context) (*Snapshot, error) { return &Snapshot{}, nil }
func (nopBackend) Apply(context.Context, *Batch) error     { return nil }
func (nopBackend) Close() error                            { return nil }
