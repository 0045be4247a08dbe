// Package testutil provides common testing helpers for the feed packages.
package testutil

import (
	"context"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/socialfeed/internal/ledger"
	"github.com/R3E-Network/socialfeed/internal/wallet"
	"github.com/R3E-Network/socialfeed/pkg/logger"
)

// Seed is the master seed behind Wallet.
const Seed = "socialfeed-test-seed"

// DefaultBalance is what FundedWallet credits when amount is zero.
const DefaultBalance uint64 = 100_000_000

// NewLedger returns an in-memory ledger with a silent logger.
func NewLedger(t testing.TB, opts ...ledger.Option) *ledger.Ledger {
	t.Helper()
	opts = append([]ledger.Option{ledger.WithLogger(logger.Discard("ledger-test"))}, opts...)
	return ledger.New(opts...)
}

// Wallet returns the deterministic test wallet called name.
func Wallet(t testing.TB, name string) *wallet.Wallet {
	t.Helper()
	w, err := wallet.Derive([]byte(Seed), name)
	require.NoError(t, err)
	return w
}

// FundedWallet returns Wallet(name) after crediting it amount, or
// DefaultBalance when amount is zero.
func FundedWallet(t testing.TB, l *ledger.Ledger, name string, amount uint64) *wallet.Wallet {
	t.Helper()
	if amount == 0 {
		amount = DefaultBalance
	}
	w := Wallet(t, name)
	Fund(t, l, w.Address(), amount)
	return w
}

// Fund credits amount to addr.
func Fund(t testing.TB, l *ledger.Ledger, addr ledger.Address, amount uint64) {
	t.Helper()
	_, err := l.Airdrop(context.Background(), addr, amount)
	require.NoError(t, err)
}

// RandomAddress returns the address of a fresh key pair.
func RandomAddress(t testing.TB) ledger.Address {
	t.Helper()
	priv, err := keys.NewPrivateKey()
	require.NoError(t, err)
	return ledger.AddressOf(priv.PublicKey())
}
