package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/socialfeed/internal/core"
	"github.com/R3E-Network/socialfeed/pkg/logger"
)

func newTestLedger(opts ...Option) *Ledger {
	opts = append([]Option{WithLogger(logger.Discard("ledger-test"))}, opts...)
	return New(opts...)
}

func newAddress(t *testing.T) Address {
	t.Helper()
	priv, err := keys.NewPrivateKey()
	require.NoError(t, err)
	return AddressOf(priv.PublicKey())
}

type recordingBackend struct {
	mu      sync.Mutex
	batches []*Batch
	failErr error
	snap    *Snapshot
}

func (b *recordingBackend) Load(context.Context) (*Snapshot, error) {
	if b.snap == nil {
		return &Snapshot{}, nil
	}
	return b.snap, nil
}

func (b *recordingBackend) Apply(_ context.Context, batch *Batch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return b.failErr
	}
	b.batches = append(b.batches, batch)
	return nil
}

func (b *recordingBackend) Close() error { return nil }

func TestAddressOf_IsOnCurve(t *testing.T) {
	for i := 0; i < 8; i++ {
		addr := newAddress(t)
		assert.True(t, IsOnCurve(addr[:]), "key-controlled address must be on curve")
	}
	assert.False(t, IsOnCurve([]byte{1, 2, 3}))
}

func TestAddress_TextEncoding(t *testing.T) {
	addr := newAddress(t)

	data, err := json.Marshal(map[string]Address{"a": addr})
	require.NoError(t, err)

	var decoded map[string]Address
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, addr, decoded["a"])

	_, err = ParseAddress("not-base58-0OIl")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = AddressFromBytes([]byte{1})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestMinimumBalance(t *testing.T) {
	assert.Equal(t, uint64(890_880), MinimumBalance(0))
	assert.Equal(t, uint64((128+48)*3480*2), MinimumBalance(48))
}

func TestLedger_CommitPublishesWrites(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()
	alice, bob := newAddress(t), newAddress(t)

	_, err := l.Airdrop(ctx, alice, 5_000)
	require.NoError(t, err)

	tx := l.Begin(alice)
	require.NoError(t, tx.Debit(alice, 2_000))
	require.NoError(t, tx.Credit(bob, 2_000))

	// Not visible before commit.
	assert.Equal(t, uint64(5_000), l.Balance(alice))
	assert.Equal(t, uint64(0), l.Balance(bob))

	slot, err := l.Commit(ctx, tx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), slot)
	assert.Equal(t, uint64(3_000), l.Balance(alice))
	assert.Equal(t, uint64(2_000), l.Balance(bob))
	assert.True(t, l.Processed("tx-1"))
}

func TestLedger_DiscardLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()
	alice := newAddress(t)
	_, err := l.Airdrop(ctx, alice, 100)
	require.NoError(t, err)

	tx := l.Begin(alice)
	require.NoError(t, tx.Debit(alice, 100))
	tx.Discard()

	assert.Equal(t, uint64(100), l.Balance(alice))
	_, err = l.Commit(ctx, tx, "")
	assert.Error(t, err)
}

func TestLedger_InsufficientFunds(t *testing.T) {
	l := newTestLedger()
	alice := newAddress(t)

	tx := l.Begin(alice)
	err := tx.Debit(alice, 1)
	require.Error(t, err)
	assert.True(t, core.IsInsufficientFunds(err))
}

func TestLedger_StaleReadIsRejected(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()
	alice, bob := newAddress(t), newAddress(t)
	_, err := l.Airdrop(ctx, alice, 1_000)
	require.NoError(t, err)

	first := l.Begin(alice)
	second := l.Begin(alice)

	require.NoError(t, first.Debit(alice, 1_000))
	require.NoError(t, first.Credit(bob, 1_000))
	require.NoError(t, second.Debit(alice, 1_000))
	require.NoError(t, second.Credit(bob, 1_000))

	_, err = l.Commit(ctx, first, "first")
	require.NoError(t, err)

	_, err = l.Commit(ctx, second, "second")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStaleState)

	assert.Equal(t, uint64(0), l.Balance(alice))
	assert.Equal(t, uint64(1_000), l.Balance(bob))
}

func TestLedger_CreationRaceOnAbsentAccount(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()
	target := newAddress(t)

	first := l.Begin()
	second := l.Begin()
	first.Put(&Account{Address: target, Owner: target, Data: []byte{1}})
	second.Put(&Account{Address: target, Owner: target, Data: []byte{2}})

	_, err := l.Commit(ctx, first, "")
	require.NoError(t, err)
	_, err = l.Commit(ctx, second, "")
	assert.ErrorIs(t, err, core.ErrStaleState)

	acct, ok := l.Get(target)
	require.True(t, ok)
	assert.Equal(t, []byte{1}, acct.Data)
}

func TestLedger_DuplicateTxID(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()
	alice := newAddress(t)

	tx := l.Begin()
	require.NoError(t, tx.Credit(alice, 1))
	_, err := l.Commit(ctx, tx, "same")
	require.NoError(t, err)

	tx = l.Begin()
	require.NoError(t, tx.Credit(alice, 1))
	_, err = l.Commit(ctx, tx, "same")
	assert.ErrorIs(t, err, core.ErrDuplicateTransaction)
	assert.Equal(t, uint64(1), l.Balance(alice))
}

func TestLedger_EmptyAccountsAreDropped(t *testing.T) {
	ctx := context.Background()
	backend := &recordingBackend{}
	l := newTestLedger(WithBackend(backend))
	alice, bob := newAddress(t), newAddress(t)
	_, err := l.Airdrop(ctx, alice, 10)
	require.NoError(t, err)

	tx := l.Begin(alice)
	require.NoError(t, tx.Debit(alice, 10))
	require.NoError(t, tx.Credit(bob, 10))
	_, err = l.Commit(ctx, tx, "")
	require.NoError(t, err)

	_, ok := l.Get(alice)
	assert.False(t, ok)
	require.Len(t, backend.batches, 2)
	assert.Equal(t, []Address{alice}, backend.batches[1].Deletes)
	assert.Equal(t, 1, l.Stats().Accounts)
}

func TestLedger_BackendFailureKeepsMemoryUnchanged(t *testing.T) {
	ctx := context.Background()
	backend := &recordingBackend{failErr: errors.New("disk full")}
	l := newTestLedger(WithBackend(backend))
	alice := newAddress(t)

	_, err := l.Airdrop(ctx, alice, 10)
	require.Error(t, err)
	assert.Equal(t, uint64(0), l.Balance(alice))
	assert.Equal(t, uint64(0), l.Slot())
}

func TestLedger_OpenRestoresSnapshot(t *testing.T) {
	alice := newAddress(t)
	backend := &recordingBackend{snap: &Snapshot{
		Slot:     9,
		Accounts: []*Account{{Address: alice, Balance: 77, Version: 4}},
		TxIDs:    []string{"old"},
	}}

	l, err := Open(context.Background(), WithBackend(backend), WithLogger(logger.Discard("t")))
	require.NoError(t, err)
	assert.Equal(t, uint64(9), l.Slot())
	assert.Equal(t, uint64(77), l.Balance(alice))
	assert.True(t, l.Processed("old"))

	// New versions continue past the restored maximum.
	tx := l.Begin()
	require.NoError(t, tx.Credit(alice, 1))
	_, err = l.Commit(context.Background(), tx, "")
	require.NoError(t, err)
	acct, _ := l.Get(alice)
	assert.Equal(t, uint64(5), acct.Version)
}

func TestLedger_ClockAndLogs(t *testing.T) {
	fixed := time.Unix(1_700_000_000, 0)
	l := newTestLedger(WithClock(func() time.Time { return fixed }))

	tx := l.Begin()
	assert.Equal(t, fixed.Unix(), tx.Now())
	tx.Logf("Instruction: %s", "LikePost")
	assert.Equal(t, []string{"Instruction: LikePost"}, tx.Logs())
}

func TestLedger_AccountsOwnedBy(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()
	program := newAddress(t)

	tx := l.Begin()
	for i := 0; i < 3; i++ {
		tx.Put(&Account{Address: newAddress(t), Owner: program, Data: []byte{byte(i)}, Balance: 1})
	}
	_, err := l.Commit(ctx, tx, "")
	require.NoError(t, err)

	owned := l.AccountsOwnedBy(program)
	require.Len(t, owned, 3)
	for i := 1; i < len(owned); i++ {
		assert.True(t, owned[i-1].Address.Less(owned[i].Address))
	}
	assert.Empty(t, l.AccountsOwnedBy(newAddress(t)))
}
