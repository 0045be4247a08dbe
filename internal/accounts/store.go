// Package accounts stores typed program records in ledger accounts.
//
// Every record is written as an 8-byte discriminator followed by its
// encoding. The space of an account is fixed when it is created and paid for
// with a rent-exempt deposit that Close refunds.
package accounts

import (
	"bytes"
	"fmt"

	"github.com/R3E-Network/socialfeed/internal/codec"
	"github.com/R3E-Network/socialfeed/internal/core"
	"github.com/R3E-Network/socialfeed/internal/ledger"
	"github.com/R3E-Network/socialfeed/pkg/logger"
)

// Record is a typed value persisted in an account.
type Record interface {
	// Kind names the record type; it seeds the discriminator.
	Kind() string
	Encode(data *[]byte)
	// Decode reads the record at position and returns the position after it.
	Decode(data []byte, position int) int
}

// Store creates, reads, writes and closes records owned by one program.
type Store struct {
	program ledger.Address
	log     *logger.Logger
}

// NewStore creates a store for program.
func NewStore(program ledger.Address, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	return &Store{program: program, log: log}
}

// Program returns the owning program.
func (s *Store) Program() ledger.Address { return s.program }

// Create allocates space bytes at addr, owned by the program. payer must sign
// and funds whatever the address is missing of the rent-exempt minimum.
func (s *Store) Create(tx *ledger.Tx, addr ledger.Address, space int, payer ledger.Address) error {
	if space <= 0 {
		return core.NewValidationError("space", "must be positive")
	}
	existing := tx.Account(addr)
	if len(existing.Data) > 0 || existing.Owner != ledger.SystemProgram {
		return core.NewDuplicateError("account", addr.String())
	}
	if !tx.IsSigner(payer) {
		return core.Unauthorized("payer %s did not sign", payer)
	}

	required := ledger.MinimumBalance(space)
	if existing.Balance < required {
		shortfall := required - existing.Balance
		if err := tx.Debit(payer, shortfall); err != nil {
			return fmt.Errorf("fund rent for %s: %w", addr, err)
		}
		if err := tx.Credit(addr, shortfall); err != nil {
			return err
		}
	}

	acct := tx.Account(addr)
	acct.Owner = s.program
	acct.Data = make([]byte, space)
	tx.Put(acct)
	return nil
}

// Load decodes the record stored at addr into rec.
func (s *Store) Load(tx *ledger.Tx, addr ledger.Address, rec Record) error {
	return Decode(tx.Account(addr), s.program, rec)
}

// Save encodes rec into the account at addr.
func (s *Store) Save(tx *ledger.Tx, addr ledger.Address, rec Record) error {
	acct := tx.Account(addr)
	if acct.Owner != s.program || len(acct.Data) == 0 {
		return core.NewNotFoundError(rec.Kind(), addr.String())
	}

	disc := codec.Discriminator(rec.Kind())
	encoded := make([]byte, 0, len(acct.Data))
	codec.PutFixed(disc[:], &encoded)
	rec.Encode(&encoded)
	if len(encoded) > len(acct.Data) {
		return core.NewStorageExhaustedError(addr.String(), len(encoded), len(acct.Data))
	}

	data := make([]byte, len(acct.Data))
	copy(data, encoded)
	acct.Data = data
	tx.Put(acct)
	return nil
}

// Close releases the account at addr: its data is dropped, its whole balance
// goes to refund and ownership returns to the system program, so the
// address can be created again. It returns the refunded amount.
func (s *Store) Close(tx *ledger.Tx, addr, refund ledger.Address) (uint64, error) {
	acct := tx.Account(addr)
	if acct.Owner != s.program {
		return 0, core.NewNotFoundError("account", addr.String())
	}
	amount := acct.Balance
	acct.Balance = 0
	acct.Data = nil
	acct.Owner = ledger.SystemProgram
	tx.Put(acct)
	if err := tx.Credit(refund, amount); err != nil {
		return 0, err
	}

	s.log.WithFields(map[string]interface{}{
		"account": addr.String(),
		"refund":  refund.String(),
		"amount":  amount,
	}).Debug("account closed")
	return amount, nil
}

// Decode reads rec out of acct, which must be owned by program and tagged
// with rec's discriminator.
func Decode(acct *ledger.Account, program ledger.Address, rec Record) error {
	if acct == nil || acct.Owner != program || len(acct.Data) == 0 {
		addr := ""
		if acct != nil {
			addr = acct.Address.String()
		}
		return core.NewNotFoundError(rec.Kind(), addr)
	}
	if !Holds(acct, program, rec.Kind()) {
		return core.NewValidationError("account", fmt.Sprintf("%s does not hold a %s", acct.Address, rec.Kind()))
	}
	position := rec.Decode(acct.Data, codec.DiscriminatorSize)
	if err := codec.Done(acct.Data, position); err != nil {
		return fmt.Errorf("decode %s %s: %w", rec.Kind(), acct.Address, err)
	}
	return nil
}

// Holds reports whether acct is owned by program and carries the
// discriminator of kind. It does not decode the record.
func Holds(acct *ledger.Account, program ledger.Address, kind string) bool {
	if acct == nil || acct.Owner != program || len(acct.Data) < codec.DiscriminatorSize {
		return false
	}
	disc := codec.Discriminator(kind)
	return bytes.Equal(acct.Data[:codec.DiscriminatorSize], disc[:])
}
