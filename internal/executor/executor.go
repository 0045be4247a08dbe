// Package executor admits signed transactions, runs them through the feed
// program and commits them to the ledger.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/R3E-Network/socialfeed/internal/core"
	"github.com/R3E-Network/socialfeed/internal/ledger"
	"github.com/R3E-Network/socialfeed/internal/metrics"
	"github.com/R3E-Network/socialfeed/internal/program"
	"github.com/R3E-Network/socialfeed/pkg/logger"
)

// Receipt describes a committed transaction.
type Receipt struct {
	TxID        string       `json:"tx_id"`
	Slot        uint64       `json:"slot"`
	Instruction program.Kind `json:"instruction"`
	Signer      string       `json:"signer"`
	Fee         uint64       `json:"fee"`
	Logs        []string     `json:"logs"`
}

// Executor is safe for concurrent use; conflicting transactions are
// serialized by the ledger.
type Executor struct {
	ledger  *ledger.Ledger
	program *program.Program
	log     *logger.Logger
}

// New creates an executor.
func New(l *ledger.Ledger, p *program.Program, log *logger.Logger) *Executor {
	if log == nil {
		log = logger.NewDefault("executor")
	}
	return &Executor{ledger: l, program: p, log: log}
}

// Execute verifies, runs and commits tx.
func (e *Executor) Execute(ctx context.Context, tx *Transaction) (*Receipt, error) {
	start := time.Now()
	kind := tx.Instruction.Kind

	receipt, err := e.execute(ctx, tx)
	if err != nil {
		metrics.RecordInstruction(kind.String(), core.Code(err), 0, time.Since(start))
		entry := e.log.WithContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"instruction": kind.String(),
			"code":        core.Code(err),
			"tx_id":       tx.ID(),
		})
		switch {
		case core.IsUnauthorized(err):
			entry.Warn("transaction rejected: unauthorized")
		case core.IsInsufficientFunds(err):
			// Routine for users with empty wallets.
			entry.Info("transaction rejected: insufficient funds")
		default:
			entry.Warn("transaction rejected")
		}
		return nil, err
	}

	metrics.RecordInstruction(kind.String(), "", receipt.Fee, time.Since(start))
	e.log.WithContext(ctx).WithFields(map[string]interface{}{
		"instruction": kind.String(),
		"tx_id":       receipt.TxID,
		"slot":        receipt.Slot,
		"signer":      receipt.Signer,
	}).Info("transaction committed")
	return receipt, nil
}

func (e *Executor) execute(ctx context.Context, tx *Transaction) (*Receipt, error) {
	signer, err := tx.Verify()
	if err != nil {
		return nil, err
	}
	id := tx.ID()
	if e.ledger.Processed(id) {
		return nil, fmt.Errorf("%w: %s", core.ErrDuplicateTransaction, id)
	}

	ltx := e.ledger.Begin(signer)
	if err := e.program.Process(ltx, &tx.Instruction); err != nil {
		ltx.Discard()
		return nil, err
	}
	slot, err := e.ledger.Commit(ctx, ltx, id)
	if err != nil {
		return nil, err
	}

	return &Receipt{
		TxID:        id,
		Slot:        slot,
		Instruction: tx.Instruction.Kind,
		Signer:      signer.String(),
		Fee:         e.program.Fees().For(tx.Instruction.Kind),
		Logs:        ltx.Logs(),
	}, nil
}
