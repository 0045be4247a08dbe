package executor

import (
	"crypto/elliptic"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"

	"github.com/R3E-Network/socialfeed/internal/codec"
	"github.com/R3E-Network/socialfeed/internal/core"
	"github.com/R3E-Network/socialfeed/internal/ledger"
	"github.com/R3E-Network/socialfeed/internal/program"
)

// SignatureSize is the length of an r||s signature.
const SignatureSize = 64

var (
	curveOrder     = elliptic.P256().Params().N
	halfCurveOrder = new(big.Int).Rsh(curveOrder, 1)
)

// Transaction is a signed instruction as submitted by a client.
type Transaction struct {
	Instruction program.Instruction `json:"instruction"`
	// Signer is the hex-encoded compressed public key of the caller.
	Signer string `json:"signer"`
	// Nonce makes otherwise identical transactions distinct.
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

// Sign builds a transaction for ins signed by key, with a fresh nonce.
func Sign(ins *program.Instruction, key *keys.PrivateKey) *Transaction {
	tx := &Transaction{
		Instruction: *ins,
		Signer:      hex.EncodeToString(key.PublicKey().Bytes()),
		Nonce:       uuid.NewString(),
	}
	tx.Signature = hex.EncodeToString(lowS(key.Sign(tx.Message())))
	return tx
}

// lowS rewrites s to n-s when it is in the upper half of the curve order,
// so every message has exactly one accepted signature per key.
func lowS(sig []byte) []byte {
	if len(sig) != SignatureSize {
		return sig
	}
	s := new(big.Int).SetBytes(sig[SignatureSize/2:])
	if s.Cmp(halfCurveOrder) <= 0 {
		return sig
	}
	s.Sub(curveOrder, s)
	out := make([]byte, SignatureSize)
	copy(out, sig[:SignatureSize/2])
	s.FillBytes(out[SignatureSize/2:])
	return out
}

// Message is the byte string covered by the signature.
func (t *Transaction) Message() []byte {
	var data []byte
	t.Instruction.Encode(&data)
	codec.PutString(t.Signer, &data)
	codec.PutString(t.Nonce, &data)
	return data
}

// ID identifies the transaction for replay protection and receipts. It
// covers the signed content only, so re-encoding the signature does not
// produce a new transaction.
func (t *Transaction) ID() string {
	digest := hash.Sha256(t.Message())
	return base58.Encode(digest.BytesBE())
}

// Verify checks the signature and returns the address of the signer.
func (t *Transaction) Verify() (ledger.Address, error) {
	if strings.TrimSpace(t.Nonce) == "" {
		return ledger.Address{}, core.RequiredError("nonce")
	}
	rawKey, err := hex.DecodeString(t.Signer)
	if err != nil {
		return ledger.Address{}, core.NewValidationError("signer", "must be a hex public key")
	}
	pub, err := keys.NewPublicKeyFromBytes(rawKey, elliptic.P256())
	if err != nil {
		return ledger.Address{}, core.NewValidationError("signer", err.Error())
	}
	sig, err := hex.DecodeString(t.Signature)
	if err != nil || len(sig) != SignatureSize {
		return ledger.Address{}, core.NewValidationError("signature", "must be 64 hex-encoded bytes")
	}
	if new(big.Int).SetBytes(sig[SignatureSize/2:]).Cmp(halfCurveOrder) > 0 {
		return ledger.Address{}, core.NewValidationError("signature", "s must be in the lower half of the curve order")
	}
	digest := hash.Sha256(t.Message())
	if !pub.Verify(sig, digest.BytesBE()) {
		return ledger.Address{}, core.Unauthorized("signature does not match signer")
	}
	return ledger.AddressOf(pub), nil
}
