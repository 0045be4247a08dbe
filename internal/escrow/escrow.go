// Package escrow moves native value between ledger accounts on behalf of the
// feed program.
//
// A transfer is authorized in one of two ways:
//  1. the source account signed the surrounding transaction, or
//  2. the source is a program-derived vault and the caller supplies the seeds
//     and bump that re-derive it for this program.
//
// Transfers run inside a ledger.Tx and are applied or discarded with it.
package escrow

import (
	"fmt"

	"github.com/R3E-Network/socialfeed/internal/core"
	"github.com/R3E-Network/socialfeed/internal/ledger"
	"github.com/R3E-Network/socialfeed/internal/pda"
	"github.com/R3E-Network/socialfeed/pkg/logger"
)

// Authority describes how the source of a transfer is authorized.
type Authority struct {
	derived bool
	bump    uint8
	seeds   [][]byte
}

// Signer authorizes a transfer by the signature of the source account.
func Signer() Authority { return Authority{} }

// Derived authorizes a transfer out of a program-derived address by proving
// the address from its seeds and bump.
func Derived(bump uint8, seeds ...[]byte) Authority {
	return Authority{derived: true, bump: bump, seeds: seeds}
}

// IsDerived reports whether the authority carries a derivation proof.
func (a Authority) IsDerived() bool { return a.derived }

// Engine performs authorized transfers for one program.
type Engine struct {
	program ledger.Address
	log     *logger.Logger
}

// NewEngine creates an escrow engine for program.
func NewEngine(program ledger.Address, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewDefault("escrow")
	}
	return &Engine{program: program, log: log}
}

// Transfer moves exactly amount from one account to another.
func (e *Engine) Transfer(tx *ledger.Tx, from, to ledger.Address, amount uint64, auth Authority) error {
	if err := e.authorize(tx, from, auth); err != nil {
		return err
	}
	src := tx.Account(from)
	if src.Owner != ledger.SystemProgram {
		return core.Unauthorized("account %s carries program data and cannot be debited", from)
	}
	if amount == 0 {
		return nil
	}
	if src.Balance < amount {
		return core.NewInsufficientFundsError(from.String(), src.Balance, amount)
	}
	if from == to {
		return nil
	}
	if err := tx.Debit(from, amount); err != nil {
		return err
	}
	if err := tx.Credit(to, amount); err != nil {
		return fmt.Errorf("credit %s: %w", to, err)
	}
	return nil
}

// Drain moves the whole balance of from to to and returns the amount moved.
// Draining an empty account moves nothing and succeeds.
func (e *Engine) Drain(tx *ledger.Tx, from, to ledger.Address, auth Authority) (uint64, error) {
	if err := e.authorize(tx, from, auth); err != nil {
		return 0, err
	}
	amount := tx.Account(from).Balance
	if err := e.Transfer(tx, from, to, amount, auth); err != nil {
		return 0, err
	}
	e.log.WithFields(map[string]interface{}{
		"from":    from.String(),
		"to":      to.String(),
		"amount":  amount,
		"derived": auth.IsDerived(),
	}).Debug("account drained")
	return amount, nil
}

func (e *Engine) authorize(tx *ledger.Tx, from ledger.Address, auth Authority) error {
	if !auth.IsDerived() {
		if !tx.IsSigner(from) {
			return core.Unauthorized("missing signature of %s", from)
		}
		return nil
	}
	if !pda.Verify(from, auth.seeds, auth.bump, e.program) {
		return core.Unauthorized("seeds do not derive %s", from)
	}
	return nil
}
