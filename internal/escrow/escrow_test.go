package escrow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/socialfeed/internal/core"
	"github.com/R3E-Network/socialfeed/internal/ledger"
	"github.com/R3E-Network/socialfeed/internal/pda"
	"github.com/R3E-Network/socialfeed/pkg/logger"
	"github.com/R3E-Network/socialfeed/pkg/testutil"
)

var program = ledger.Address{0xaa, 0x01}

type fixture struct {
	ledger *ledger.Ledger
	engine *Engine
	alice  ledger.Address
	bob    ledger.Address
	vault  ledger.Address
	bump   uint8
	seeds  [][]byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ledger: testutil.NewLedger(t),
		engine: NewEngine(program, logger.Discard("escrow-test")),
		alice:  testutil.RandomAddress(t),
		bob:    testutil.RandomAddress(t),
	}
	f.seeds = [][]byte{[]byte("vault"), f.alice.Bytes()}
	var err error
	f.vault, f.bump, err = pda.Derive(f.seeds, program)
	require.NoError(t, err)

	testutil.Fund(t, f.ledger, f.alice, 10_000)
	return f
}

func (f *fixture) commit(t *testing.T, tx *ledger.Tx) {
	t.Helper()
	_, err := f.ledger.Commit(context.Background(), tx, "")
	require.NoError(t, err)
}

func TestTransfer_SignedSource(t *testing.T) {
	f := newFixture(t)

	tx := f.ledger.Begin(f.alice)
	require.NoError(t, f.engine.Transfer(tx, f.alice, f.vault, 4_000, Signer()))
	f.commit(t, tx)

	assert.Equal(t, uint64(6_000), f.ledger.Balance(f.alice))
	assert.Equal(t, uint64(4_000), f.ledger.Balance(f.vault))
}

func TestTransfer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		signers func(f *fixture) []ledger.Address
		from    func(f *fixture) ledger.Address
		amount  uint64
		auth    func(f *fixture) Authority
		wantErr error
	}{
		{
			name:    "missing signature",
			signers: func(f *fixture) []ledger.Address { return []ledger.Address{f.bob} },
			from:    func(f *fixture) ledger.Address { return f.alice },
			amount:  1,
			auth:    func(*fixture) Authority { return Signer() },
			wantErr: core.ErrUnauthorized,
		},
		{
			name:    "insufficient funds",
			signers: func(f *fixture) []ledger.Address { return []ledger.Address{f.alice} },
			from:    func(f *fixture) ledger.Address { return f.alice },
			amount:  10_001,
			auth:    func(*fixture) Authority { return Signer() },
			wantErr: core.ErrInsufficientFunds,
		},
		{
			name:    "vault without proof",
			signers: func(f *fixture) []ledger.Address { return []ledger.Address{f.alice} },
			from:    func(f *fixture) ledger.Address { return f.vault },
			amount:  1,
			auth:    func(*fixture) Authority { return Signer() },
			wantErr: core.ErrUnauthorized,
		},
		{
			name:    "proof for another owner",
			signers: func(f *fixture) []ledger.Address { return []ledger.Address{f.bob} },
			from:    func(f *fixture) ledger.Address { return f.vault },
			amount:  1,
			auth: func(f *fixture) Authority {
				return Derived(f.bump, []byte("vault"), f.bob.Bytes())
			},
			wantErr: core.ErrUnauthorized,
		},
		{
			name:    "wrong bump",
			signers: func(f *fixture) []ledger.Address { return nil },
			from:    func(f *fixture) ledger.Address { return f.vault },
			amount:  1,
			auth: func(f *fixture) Authority {
				return Derived(f.bump-1, f.seeds...)
			},
			wantErr: core.ErrUnauthorized,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			tx := f.ledger.Begin(tc.signers(f)...)
			err := f.engine.Transfer(tx, tc.from(f), f.bob, tc.amount, tc.auth(f))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestTransfer_ToSelfStillNeedsBalance(t *testing.T) {
	f := newFixture(t)

	tx := f.ledger.Begin(f.bob)
	err := f.engine.Transfer(tx, f.bob, f.bob, 1, Signer())
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)
	tx.Discard()

	tx = f.ledger.Begin(f.alice)
	require.NoError(t, f.engine.Transfer(tx, f.alice, f.alice, 10_000, Signer()))
	f.commit(t, tx)
	assert.Equal(t, uint64(10_000), f.ledger.Balance(f.alice))

	tx = f.ledger.Begin(f.alice)
	err = f.engine.Transfer(tx, f.alice, f.alice, 10_001, Signer())
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)
}

func TestTransfer_ProgramOwnedSourceRejected(t *testing.T) {
	f := newFixture(t)
	record := f.vault

	setup := f.ledger.Begin()
	setup.Put(&ledger.Account{Address: record, Balance: 500, Owner: program, Data: make([]byte, 8)})
	f.commit(t, setup)

	tx := f.ledger.Begin()
	err := f.engine.Transfer(tx, record, f.bob, 100, Derived(f.bump, f.seeds...))
	assert.True(t, core.IsUnauthorized(err))
}

func TestDrain_WithDerivationProof(t *testing.T) {
	f := newFixture(t)

	fund := f.ledger.Begin(f.alice)
	require.NoError(t, f.engine.Transfer(fund, f.alice, f.vault, 3_000, Signer()))
	f.commit(t, fund)

	tx := f.ledger.Begin(f.alice)
	moved, err := f.engine.Drain(tx, f.vault, f.alice, Derived(f.bump, f.seeds...))
	require.NoError(t, err)
	f.commit(t, tx)

	assert.Equal(t, uint64(3_000), moved)
	assert.Equal(t, uint64(10_000), f.ledger.Balance(f.alice))
	_, exists := f.ledger.Get(f.vault)
	assert.False(t, exists, "an emptied vault leaves the arena")
}

func TestDrain_EmptyVaultIsNoop(t *testing.T) {
	f := newFixture(t)

	tx := f.ledger.Begin(f.alice)
	moved, err := f.engine.Drain(tx, f.vault, f.alice, Derived(f.bump, f.seeds...))
	require.NoError(t, err)
	assert.Zero(t, moved)
	f.commit(t, tx)
	assert.Equal(t, uint64(10_000), f.ledger.Balance(f.alice))
}
