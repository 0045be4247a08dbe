package ledger

// Account is one entry of the ledger arena.
type Account struct {
	Address Address `json:"address"`
	Balance uint64  `json:"balance"`
	// Owner is the program allowed to write Data. SystemProgram for plain
	// value-holding accounts such as wallets and vaults.
	Owner Address `json:"owner"`
	// Data is allocated once at creation; its length is the reserved space.
	Data    []byte `json:"data,omitempty"`
	Version uint64 `json:"version"`
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.Data != nil {
		c.Data = make([]byte, len(a.Data))
		copy(c.Data, a.Data)
	}
	return &c
}

// Empty reports whether the account holds nothing and can be dropped from
// the arena.
func (a *Account) Empty() bool {
	return a.Balance == 0 && len(a.Data) == 0 && a.Owner == SystemProgram
}

// Space is the number of data bytes reserved for the account.
func (a *Account) Space() int { return len(a.Data) }
