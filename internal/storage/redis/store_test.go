package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/socialfeed/internal/ledger"
)

func TestAccountEncoding(t *testing.T) {
	acct := &ledger.Account{
		Address: ledger.Address{0x01, 0x02},
		Balance: 18446744073709551615,
		Owner:   ledger.Address{0x03},
		Data:    []byte("record"),
		Version: 9,
	}

	encoded, err := encodeAccount(acct)
	require.NoError(t, err)
	decoded, err := decodeAccount(encoded)
	require.NoError(t, err)
	assert.Equal(t, acct, decoded)

	_, err = decodeAccount(`{"address":"0OIl"}`)
	assert.Error(t, err)
}

func TestStoreIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis integration test")
	}
	ctx := context.Background()

	store, err := Open(ctx, addr, "", 0, "socialfeed-test-"+uuid.NewString())
	require.NoError(t, err)
	defer func() {
		store.client.Del(ctx, store.accountsKey(), store.slotKey(), store.txKey())
		store.Close()
	}()

	a, b := ledger.Address{0x01}, ledger.Address{0x02}
	require.NoError(t, store.Apply(ctx, &ledger.Batch{
		Slot:    1,
		TxID:    "first",
		Upserts: []*ledger.Account{{Address: a, Balance: 10, Version: 1}, {Address: b, Balance: 20, Version: 2}},
	}))
	require.NoError(t, store.Apply(ctx, &ledger.Batch{Slot: 2, Deletes: []ledger.Address{b}}))

	snap, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.Slot)
	assert.Equal(t, []string{"first"}, snap.TxIDs)
	require.Len(t, snap.Accounts, 1)
	assert.Equal(t, uint64(10), snap.Accounts[0].Balance)
}
