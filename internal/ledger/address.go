package ledger

import (
	"bytes"
	"crypto/elliptic"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"

	"github.com/R3E-Network/socialfeed/internal/core"
)

// AddressSize is the length in bytes of every account address.
const AddressSize = 32

// Address identifies an account. Key-controlled addresses are the X
// coordinate of a secp256r1 public key; program-derived addresses are hashes
// that are guaranteed not to be such a coordinate.
type Address [AddressSize]byte

// SystemProgram owns every account that carries no program data.
var SystemProgram = Address{}

// AddressFromBytes copies b into an Address.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressSize {
		return a, core.NewValidationError("address", fmt.Sprintf("expected %d bytes, got %d", AddressSize, len(b)))
	}
	copy(a[:], b)
	return a, nil
}

// ParseAddress decodes a base58 address.
func ParseAddress(s string) (Address, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Address{}, core.NewValidationError("address", err.Error())
	}
	return AddressFromBytes(raw)
}

// MustParseAddress is ParseAddress that panics. Intended for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressOf returns the account address controlled by pub.
func AddressOf(pub *keys.PublicKey) Address {
	var a Address
	compressed := pub.Bytes()
	copy(a[:], compressed[1:])
	return a
}

// IsOnCurve reports whether b is the X coordinate of a point on secp256r1,
// i.e. whether some private key could control it.
func IsOnCurve(b []byte) bool {
	if len(b) != AddressSize {
		return false
	}
	encoded := make([]byte, 0, AddressSize+1)
	encoded = append(encoded, 0x02)
	encoded = append(encoded, b...)
	_, err := keys.NewPublicKeyFromBytes(encoded, elliptic.P256())
	return err == nil
}

func (a Address) String() string { return base58.Encode(a[:]) }

// Bytes returns a copy of the raw address.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressSize)
	copy(out, a[:])
	return out
}

func (a Address) IsZero() bool { return a == Address{} }

// Less orders addresses bytewise.
func (a Address) Less(b Address) bool { return bytes.Compare(a[:], b[:]) < 0 }

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
