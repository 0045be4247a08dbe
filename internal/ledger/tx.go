package ledger

import (
	"fmt"
	"math"

	"github.com/R3E-Network/socialfeed/internal/core"
)

// Tx buffers the reads and writes of one operation. Nothing it does is
// visible to other transactions until Ledger.Commit succeeds; dropping a Tx
// without committing discards every change.
//
// A Tx is used by a single goroutine.
type Tx struct {
	ledger  *Ledger
	signers map[Address]struct{}
	reads   map[Address]uint64
	writes  map[Address]*Account
	order   []Address
	now     int64
	logs    []string
	done    bool
}

// Account returns a copy of the account at addr as seen by this transaction.
// Addresses that hold nothing yield a zero-balance, system-owned account.
func (tx *Tx) Account(addr Address) *Account {
	if acct, ok := tx.writes[addr]; ok {
		return acct.Clone()
	}
	acct, version := tx.ledger.snapshot(addr)
	if _, seen := tx.reads[addr]; !seen {
		tx.reads[addr] = version
	}
	return acct
}

// Exists reports whether anything lives at addr.
func (tx *Tx) Exists(addr Address) bool {
	return !tx.Account(addr).Empty()
}

// Put stages acct as the new state of its address.
func (tx *Tx) Put(acct *Account) {
	addr := acct.Address
	if _, seen := tx.reads[addr]; !seen {
		_, version := tx.ledger.snapshot(addr)
		tx.reads[addr] = version
	}
	if _, staged := tx.writes[addr]; !staged {
		tx.order = append(tx.order, addr)
	}
	tx.writes[addr] = acct.Clone()
}

// Debit removes amount from addr. Callers are responsible for authorization.
func (tx *Tx) Debit(addr Address, amount uint64) error {
	acct := tx.Account(addr)
	if acct.Balance < amount {
		return core.NewInsufficientFundsError(addr.String(), acct.Balance, amount)
	}
	acct.Balance -= amount
	tx.Put(acct)
	return nil
}

// Credit adds amount to addr.
func (tx *Tx) Credit(addr Address, amount uint64) error {
	acct := tx.Account(addr)
	if acct.Balance > math.MaxUint64-amount {
		return core.NewValidationError("amount", fmt.Sprintf("balance of %s would overflow", addr))
	}
	acct.Balance += amount
	tx.Put(acct)
	return nil
}

// IsSigner reports whether addr signed the transaction.
func (tx *Tx) IsSigner(addr Address) bool {
	_, ok := tx.signers[addr]
	return ok
}

// Now is the unix timestamp fixed when the transaction began.
func (tx *Tx) Now() int64 { return tx.now }

// Logf appends a program log line.
func (tx *Tx) Logf(format string, args ...interface{}) {
	tx.logs = append(tx.logs, fmt.Sprintf(format, args...))
}

// Logs returns the program log lines recorded so far.
func (tx *Tx) Logs() []string {
	out := make([]string, len(tx.logs))
	copy(out, tx.logs)
	return out
}

// Discard abandons the transaction.
func (tx *Tx) Discard() { tx.done = true }
