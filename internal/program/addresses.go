package program

import (
	"encoding/binary"

	"github.com/R3E-Network/socialfeed/internal/ledger"
	"github.com/R3E-Network/socialfeed/internal/pda"
)

// Seed prefixes.
var (
	SeedUserProfile = []byte("user_profile")
	SeedVault       = []byte("vault")
	SeedPost        = []byte("post")
)

// DefaultProgramID is the identity the feed program runs under unless
// configured otherwise.
var DefaultProgramID = ledger.MustParseAddress("ADcEPjPWwaeGLHcMdPGCJxuFKAMe68WjWLvD2MkRv89c")

// ProfileAddress returns the profile address of owner.
func ProfileAddress(program, owner ledger.Address) (ledger.Address, uint8, error) {
	return pda.Derive([][]byte{SeedUserProfile, owner[:]}, program)
}

// VaultAddress returns the fee vault of owner.
func VaultAddress(program, owner ledger.Address) (ledger.Address, uint8, error) {
	return pda.Derive([][]byte{SeedVault, owner[:]}, program)
}

// PostAddress returns the address of the index-th post of author.
func PostAddress(program, author ledger.Address, index uint64) (ledger.Address, uint8, error) {
	return pda.Derive([][]byte{SeedPost, author[:], postIndexSeed(index)}, program)
}

func postIndexSeed(index uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, index)
}
