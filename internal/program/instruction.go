package program

import (
	"encoding/json"
	"fmt"

	"github.com/R3E-Network/socialfeed/internal/codec"
	"github.com/R3E-Network/socialfeed/internal/core"
	"github.com/R3E-Network/socialfeed/internal/ledger"
)

// Kind selects the handler an instruction runs.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInitializeUser
	KindInitializePost
	KindLikePost
	KindCommentPost
	KindDeletePost
)

var kindNames = map[Kind]string{
	KindInitializeUser: "InitializeUser",
	KindInitializePost: "InitializePost",
	KindLikePost:       "LikePost",
	KindCommentPost:    "CommentPost",
	KindDeletePost:     "DeletePost",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ParseKind converts an instruction name to Kind.
func ParseKind(s string) Kind {
	for k, name := range kindNames {
		if name == s {
			return k
		}
	}
	return KindUnknown
}

// MarshalJSON implements json.Marshaler.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*k = ParseKind(str)
	if *k == KindUnknown {
		return core.NewValidationError("kind", fmt.Sprintf("unknown instruction %q", str))
	}
	return nil
}

// Accounts are the addresses an instruction claims are relevant. Handlers
// re-derive the ones they can and reject mismatches.
type Accounts struct {
	User          ledger.Address `json:"user"`
	UserProfile   ledger.Address `json:"user_profile"`
	Vault         ledger.Address `json:"vault"`
	Post          ledger.Address `json:"post"`
	AuthorAccount ledger.Address `json:"author_account"`
}

// Instruction is one call into the feed program.
type Instruction struct {
	Kind     Kind     `json:"kind"`
	Accounts Accounts `json:"accounts"`
	Title    string   `json:"title,omitempty"`
	Content  string   `json:"content,omitempty"`
}

// Encode writes the canonical binary form that transactions sign.
func (ins *Instruction) Encode(data *[]byte) {
	*data = append(*data, byte(ins.Kind))
	for _, addr := range []ledger.Address{
		ins.Accounts.User,
		ins.Accounts.UserProfile,
		ins.Accounts.Vault,
		ins.Accounts.Post,
		ins.Accounts.AuthorAccount,
	} {
		codec.PutFixed(addr[:], data)
	}
	codec.PutString(ins.Title, data)
	codec.PutString(ins.Content, data)
}

// Validate checks that the instruction carries what its kind needs.
func (ins *Instruction) Validate() error {
	if _, ok := kindNames[ins.Kind]; !ok {
		return core.NewValidationError("kind", fmt.Sprintf("unknown instruction %d", ins.Kind))
	}
	if ins.Accounts.User.IsZero() {
		return core.RequiredError("accounts.user")
	}
	switch ins.Kind {
	case KindInitializeUser:
		return requireAccounts(map[string]ledger.Address{"accounts.user_profile": ins.Accounts.UserProfile})
	case KindInitializePost:
		return requireAccounts(map[string]ledger.Address{
			"accounts.user_profile": ins.Accounts.UserProfile,
			"accounts.vault":        ins.Accounts.Vault,
			"accounts.post":         ins.Accounts.Post,
		})
	case KindLikePost:
		return requireAccounts(map[string]ledger.Address{
			"accounts.post":           ins.Accounts.Post,
			"accounts.author_account": ins.Accounts.AuthorAccount,
		})
	case KindCommentPost, KindDeletePost:
		return requireAccounts(map[string]ledger.Address{
			"accounts.vault": ins.Accounts.Vault,
			"accounts.post":  ins.Accounts.Post,
		})
	}
	return nil
}

func requireAccounts(fields map[string]ledger.Address) error {
	for name, addr := range fields {
		if addr.IsZero() {
			return core.RequiredError(name)
		}
	}
	return nil
}

// =============================================================================
// Client builders
// =============================================================================

// NewInitializeUser builds the instruction that creates user's profile.
func NewInitializeUser(program, user ledger.Address) (*Instruction, error) {
	profile, _, err := ProfileAddress(program, user)
	if err != nil {
		return nil, err
	}
	return &Instruction{
		Kind:     KindInitializeUser,
		Accounts: Accounts{User: user, UserProfile: profile},
	}, nil
}

// NewInitializePost builds the instruction that publishes user's next post.
// postCount is the current post count of the user's profile.
func NewInitializePost(program, user ledger.Address, postCount uint64, title, content string) (*Instruction, error) {
	profile, _, err := ProfileAddress(program, user)
	if err != nil {
		return nil, err
	}
	vault, _, err := VaultAddress(program, user)
	if err != nil {
		return nil, err
	}
	post, _, err := PostAddress(program, user, postCount)
	if err != nil {
		return nil, err
	}
	return &Instruction{
		Kind:     KindInitializePost,
		Accounts: Accounts{User: user, UserProfile: profile, Vault: vault, Post: post},
		Title:    title,
		Content:  content,
	}, nil
}

// NewLikePost builds the instruction by which user likes post of author.
func NewLikePost(user, post, author ledger.Address) *Instruction {
	return &Instruction{
		Kind:     KindLikePost,
		Accounts: Accounts{User: user, Post: post, AuthorAccount: author},
	}
}

// NewCommentPost builds the instruction by which user comments on post.
func NewCommentPost(program, user, post ledger.Address, content string) (*Instruction, error) {
	vault, _, err := VaultAddress(program, user)
	if err != nil {
		return nil, err
	}
	return &Instruction{
		Kind:     KindCommentPost,
		Accounts: Accounts{User: user, Vault: vault, Post: post},
		Content:  content,
	}, nil
}

// NewDeletePost builds the instruction by which user deletes their post.
func NewDeletePost(program, user, post ledger.Address) (*Instruction, error) {
	vault, _, err := VaultAddress(program, user)
	if err != nil {
		return nil, err
	}
	return &Instruction{
		Kind:     KindDeletePost,
		Accounts: Accounts{User: user, Vault: vault, Post: post},
	}, nil
}
