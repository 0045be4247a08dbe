// Package postgres persists the ledger arena in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/R3E-Network/socialfeed/internal/ledger"
	"github.com/R3E-Network/socialfeed/internal/platform/migrations"
)

// Store implements ledger.Backend backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ ledger.Backend = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.Apply(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return New(db), nil
}

type accountRow struct {
	Address string `db:"address"`
	Balance string `db:"balance"`
	Owner   string `db:"owner"`
	Data    []byte `db:"data"`
	Version int64  `db:"version"`
}

func (r accountRow) toAccount() (*ledger.Account, error) {
	addr, err := ledger.ParseAddress(r.Address)
	if err != nil {
		return nil, fmt.Errorf("account address %q: %w", r.Address, err)
	}
	owner, err := ledger.ParseAddress(r.Owner)
	if err != nil {
		return nil, fmt.Errorf("owner of %s: %w", r.Address, err)
	}
	balance, err := strconv.ParseUint(r.Balance, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", r.Address, err)
	}
	return &ledger.Account{
		Address: addr,
		Balance: balance,
		Owner:   owner,
		Data:    r.Data,
		Version: uint64(r.Version),
	}, nil
}

// Load reads the whole arena.
func (s *Store) Load(ctx context.Context) (*ledger.Snapshot, error) {
	var rows []accountRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT address, balance::TEXT AS balance, owner, data, version
		FROM ledger_accounts
		ORDER BY address
	`); err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}

	snap := &ledger.Snapshot{Accounts: make([]*ledger.Account, 0, len(rows))}
	for _, row := range rows {
		acct, err := row.toAccount()
		if err != nil {
			return nil, err
		}
		snap.Accounts = append(snap.Accounts, acct)
	}

	var slot int64
	err := s.db.GetContext(ctx, &slot, `SELECT slot FROM ledger_meta WHERE id = 1`)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("select slot: %w", err)
	}
	snap.Slot = uint64(slot)

	if err := s.db.SelectContext(ctx, &snap.TxIDs, `SELECT tx_id FROM ledger_transactions ORDER BY slot`); err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	return snap, nil
}

// Apply writes one committed batch in a database transaction.
func (s *Store) Apply(ctx context.Context, batch *ledger.Batch) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, acct := range batch.Upserts {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_accounts (address, balance, owner, data, version, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (address) DO UPDATE
			SET balance = EXCLUDED.balance, owner = EXCLUDED.owner, data = EXCLUDED.data,
			    version = EXCLUDED.version, updated_at = EXCLUDED.updated_at
		`, acct.Address.String(), strconv.FormatUint(acct.Balance, 10), acct.Owner.String(), acct.Data, int64(acct.Version)); err != nil {
			return fmt.Errorf("upsert %s: %w", acct.Address, err)
		}
	}
	for _, addr := range batch.Deletes {
		if _, err = tx.ExecContext(ctx, `DELETE FROM ledger_accounts WHERE address = $1`, addr.String()); err != nil {
			return fmt.Errorf("delete %s: %w", addr, err)
		}
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_meta (id, slot) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET slot = EXCLUDED.slot
	`, int64(batch.Slot)); err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	if batch.TxID != "" {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_transactions (tx_id, slot) VALUES ($1, $2)
		`, batch.TxID, int64(batch.Slot)); err != nil {
			return fmt.Errorf("record transaction: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
