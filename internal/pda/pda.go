// Package pda derives program addresses: deterministic account addresses
// that belong to a program and that no private key can control.
package pda

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"

	"github.com/R3E-Network/socialfeed/internal/core"
	"github.com/R3E-Network/socialfeed/internal/ledger"
)

const (
	// MaxSeeds is the maximum number of seeds in one derivation.
	MaxSeeds = 16
	// MaxSeedLength is the maximum length of a single seed.
	MaxSeedLength = 32
)

const marker = "ProgramDerivedAddress"

var (
	// ErrMaxSeedLength is returned for too many or too long seeds.
	ErrMaxSeedLength = fmt.Errorf("%w: seed limits exceeded", core.ErrInvalidInput)
	// ErrNoViableBump means every bump produced an on-curve address.
	ErrNoViableBump = fmt.Errorf("%w: no viable bump seed", core.ErrDerivationFailed)
	// ErrOnCurve is returned by CreateAddress when the candidate could be
	// controlled by a key.
	ErrOnCurve = fmt.Errorf("%w: address is on curve", core.ErrDerivationFailed)
)

// Derive finds the canonical address for seeds under program, trying bumps
// from 255 down to 0. It returns the address and the bump that produced it.
func Derive(seeds [][]byte, program ledger.Address) (ledger.Address, uint8, error) {
	if err := checkSeeds(seeds, 1); err != nil {
		return ledger.Address{}, 0, err
	}
	for bump := 255; bump >= 0; bump-- {
		addr, err := candidate(seeds, []byte{byte(bump)}, program)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return ledger.Address{}, 0, err
		}
	}
	return ledger.Address{}, 0, ErrNoViableBump
}

// CreateAddress hashes seeds as given, with the bump already appended as the
// last seed by the caller.
func CreateAddress(seeds [][]byte, program ledger.Address) (ledger.Address, error) {
	if err := checkSeeds(seeds, 0); err != nil {
		return ledger.Address{}, err
	}
	return candidate(seeds, nil, program)
}

// Verify reports whether seeds and bump reproduce addr under program.
func Verify(addr ledger.Address, seeds [][]byte, bump uint8, program ledger.Address) bool {
	full := make([][]byte, 0, len(seeds)+1)
	full = append(full, seeds...)
	full = append(full, []byte{bump})
	got, err := CreateAddress(full, program)
	return err == nil && got == addr
}

func checkSeeds(seeds [][]byte, reserved int) error {
	if len(seeds)+reserved > MaxSeeds {
		return fmt.Errorf("%w: %d seeds", ErrMaxSeedLength, len(seeds))
	}
	for i, s := range seeds {
		if len(s) > MaxSeedLength {
			return fmt.Errorf("%w: seed %d is %d bytes", ErrMaxSeedLength, i, len(s))
		}
	}
	return nil
}

func candidate(seeds [][]byte, bump []byte, program ledger.Address) (ledger.Address, error) {
	size := len(bump) + ledger.AddressSize + len(marker)
	for _, s := range seeds {
		size += len(s)
	}
	buf := make([]byte, 0, size)
	for _, s := range seeds {
		buf = append(buf, s...)
	}
	buf = append(buf, bump...)
	buf = append(buf, program[:]...)
	buf = append(buf, marker...)

	digest := hash.Sha256(buf)
	addr, err := ledger.AddressFromBytes(digest.BytesBE())
	if err != nil {
		return ledger.Address{}, err
	}
	if ledger.IsOnCurve(addr[:]) {
		return ledger.Address{}, ErrOnCurve
	}
	return addr, nil
}
