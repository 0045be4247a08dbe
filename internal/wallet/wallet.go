// Package wallet derives the signing identities used by genesis funding, the
// dev faucet and tests.
package wallet

import (
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"golang.org/x/crypto/hkdf"

	"github.com/R3E-Network/socialfeed/internal/ledger"
)

var hkdfSalt = []byte("socialfeed-wallet")

// Wallet is a named signing identity.
type Wallet struct {
	Name string
	Key  *keys.PrivateKey
}

// Address is the ledger address the wallet controls.
func (w *Wallet) Address() ledger.Address {
	return ledger.AddressOf(w.Key.PublicKey())
}

// PublicKeyHex is the compressed public key as transactions carry it.
func (w *Wallet) PublicKeyHex() string {
	return hex.EncodeToString(w.Key.PublicKey().Bytes())
}

// New generates a random wallet.
func New(name string) (*Wallet, error) {
	key, err := keys.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &Wallet{Name: name, Key: key}, nil
}

// Derive deterministically derives the wallet called name from masterSeed.
// The same seed and name always produce the same key.
func Derive(masterSeed []byte, name string) (*Wallet, error) {
	if len(masterSeed) == 0 {
		return nil, fmt.Errorf("master seed is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("wallet name is required")
	}

	reader := hkdf.New(sha256.New, masterSeed, hkdfSalt, []byte("wallet-"+name))
	okm := make([]byte, 32)
	if _, err := io.ReadFull(reader, okm); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	// Map into [1, n-1].
	n := elliptic.P256().Params().N
	d := new(big.Int).SetBytes(okm)
	d.Mod(d, new(big.Int).Sub(n, big.NewInt(1)))
	d.Add(d, big.NewInt(1))

	key, err := keys.NewPrivateKeyFromBytes(d.FillBytes(make([]byte, 32)))
	if err != nil {
		return nil, fmt.Errorf("create private key: %w", err)
	}
	return &Wallet{Name: name, Key: key}, nil
}
