package program

import (
	"github.com/R3E-Network/socialfeed/internal/accounts"
	"github.com/R3E-Network/socialfeed/internal/core"
	"github.com/R3E-Network/socialfeed/internal/ledger"
)

// Reader is the read side of the ledger used by queries.
type Reader interface {
	Get(addr ledger.Address) (*ledger.Account, bool)
	AccountsOwnedBy(program ledger.Address) []*ledger.Account
}

// ProfileEntry is a profile together with where it lives.
type ProfileEntry struct {
	Address ledger.Address `json:"address"`
	Vault   ledger.Address `json:"vault"`
	UserProfile
}

// PostEntry is a post together with where it lives.
type PostEntry struct {
	Address ledger.Address `json:"address"`
	Status  Status         `json:"status"`
	Post
}

// FetchProfile returns the profile of owner.
func (p *Program) FetchProfile(r Reader, owner ledger.Address) (*ProfileEntry, error) {
	addr, _, err := ProfileAddress(p.id, owner)
	if err != nil {
		return nil, err
	}
	vault, _, err := VaultAddress(p.id, owner)
	if err != nil {
		return nil, err
	}
	acct, ok := r.Get(addr)
	if !ok {
		return nil, core.NewNotFoundError("UserProfile", owner.String())
	}
	entry := &ProfileEntry{Address: addr, Vault: vault}
	if err := accounts.Decode(acct, p.id, &entry.UserProfile); err != nil {
		return nil, err
	}
	return entry, nil
}

// FetchPost returns the post stored at addr.
func (p *Program) FetchPost(r Reader, addr ledger.Address) (*PostEntry, error) {
	acct, ok := r.Get(addr)
	if !ok {
		return nil, core.NewNotFoundError("Post", addr.String())
	}
	entry := &PostEntry{Address: addr, Status: statusOf(acct, p.id)}
	if err := accounts.Decode(acct, p.id, &entry.Post); err != nil {
		return nil, err
	}
	return entry, nil
}

// PostHistory returns every post author ever created, in creation order.
// Post indexes only grow, so an index below post_count whose account is gone
// was deleted; such entries carry StatusClosed and only their author.
func (p *Program) PostHistory(r Reader, author ledger.Address) ([]*PostEntry, error) {
	profile, err := p.FetchProfile(r, author)
	if err != nil {
		return nil, err
	}
	out := make([]*PostEntry, 0, profile.PostCount)
	for i := uint64(0); i < profile.PostCount; i++ {
		addr, _, err := PostAddress(p.id, author, i)
		if err != nil {
			return nil, err
		}
		entry, err := p.FetchPost(r, addr)
		if core.IsNotFound(err) {
			entry = &PostEntry{Address: addr, Status: StatusClosed, Post: Post{Author: author}}
		} else if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// ListPosts returns the live posts of author in creation order.
func (p *Program) ListPosts(r Reader, author ledger.Address) ([]*PostEntry, error) {
	history, err := p.PostHistory(r, author)
	if err != nil {
		return nil, err
	}
	out := make([]*PostEntry, 0, len(history))
	for _, entry := range history {
		if !entry.Status.IsTerminal() {
			out = append(out, entry)
		}
	}
	return out, nil
}

// ListAllPosts returns every live post, ordered by address.
func (p *Program) ListAllPosts(r Reader) ([]*PostEntry, error) {
	out := make([]*PostEntry, 0)
	for _, acct := range r.AccountsOwnedBy(p.id) {
		entry := &PostEntry{Address: acct.Address, Status: StatusActive}
		if !accounts.Holds(acct, p.id, entry.Kind()) {
			continue
		}
		if err := accounts.Decode(acct, p.id, &entry.Post); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}
