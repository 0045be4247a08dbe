// Package redis persists the ledger arena in Redis: one hash of accounts,
// the current slot and the set of processed transaction ids.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	goredis "github.com/go-redis/redis/v8"

	"github.com/R3E-Network/socialfeed/internal/ledger"
)

// Store implements ledger.Backend backed by Redis.
type Store struct {
	client *goredis.Client
	prefix string
}

var _ ledger.Backend = (*Store)(nil)

// New wraps client. Keys are namespaced under prefix.
func New(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "socialfeed"
	}
	return &Store{client: client, prefix: prefix}
}

// Open connects to addr and checks the connection.
func Open(ctx context.Context, addr, password string, db int, prefix string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return New(client, prefix), nil
}

func (s *Store) accountsKey() string { return s.prefix + ":accounts" }
func (s *Store) slotKey() string     { return s.prefix + ":slot" }
func (s *Store) txKey() string       { return s.prefix + ":txids" }

// Load reads the whole arena.
func (s *Store) Load(ctx context.Context) (*ledger.Snapshot, error) {
	raw, err := s.client.HGetAll(ctx, s.accountsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	snap := &ledger.Snapshot{Accounts: make([]*ledger.Account, 0, len(raw))}
	for field, value := range raw {
		acct, err := decodeAccount(value)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", field, err)
		}
		snap.Accounts = append(snap.Accounts, acct)
	}
	sort.Slice(snap.Accounts, func(i, j int) bool {
		return snap.Accounts[i].Address.Less(snap.Accounts[j].Address)
	})

	slot, err := s.client.Get(ctx, s.slotKey()).Result()
	switch {
	case errors.Is(err, goredis.Nil):
	case err != nil:
		return nil, fmt.Errorf("load slot: %w", err)
	default:
		if snap.Slot, err = strconv.ParseUint(slot, 10, 64); err != nil {
			return nil, fmt.Errorf("parse slot: %w", err)
		}
	}

	if snap.TxIDs, err = s.client.SMembers(ctx, s.txKey()).Result(); err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return snap, nil
}

// Apply writes one batch in a MULTI/EXEC pipeline.
func (s *Store) Apply(ctx context.Context, batch *ledger.Batch) error {
	values := make([]interface{}, 0, 2*len(batch.Upserts))
	for _, acct := range batch.Upserts {
		encoded, err := encodeAccount(acct)
		if err != nil {
			return err
		}
		values = append(values, acct.Address.String(), encoded)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		if len(values) > 0 {
			pipe.HSet(ctx, s.accountsKey(), values...)
		}
		if len(batch.Deletes) > 0 {
			fields := make([]string, len(batch.Deletes))
			for i, addr := range batch.Deletes {
				fields[i] = addr.String()
			}
			pipe.HDel(ctx, s.accountsKey(), fields...)
		}
		pipe.Set(ctx, s.slotKey(), strconv.FormatUint(batch.Slot, 10), 0)
		if batch.TxID != "" {
			pipe.SAdd(ctx, s.txKey(), batch.TxID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply slot %d: %w", batch.Slot, err)
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func encodeAccount(acct *ledger.Account) (string, error) {
	data, err := json.Marshal(acct)
	if err != nil {
		return "", fmt.Errorf("encode account %s: %w", acct.Address, err)
	}
	return string(data), nil
}

func decodeAccount(value string) (*ledger.Account, error) {
	var acct ledger.Account
	if err := json.Unmarshal([]byte(value), &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}
