// Package program implements the social feed: profiles, posts, likes,
// comments and post deletion, with fees escrowed in per-user vaults.
//
// Every handler runs inside a ledger.Tx. The caller supplies the account
// addresses it believes are relevant; handlers re-derive each address they
// can from the signer and reject mismatches before touching state. A failed
// handler leaves the transaction to be discarded, so no partial effects are
// ever committed.
package program

import (
	"fmt"

	"github.com/R3E-Network/socialfeed/internal/accounts"
	"github.com/R3E-Network/socialfeed/internal/core"
	"github.com/R3E-Network/socialfeed/internal/escrow"
	"github.com/R3E-Network/socialfeed/internal/ledger"
	"github.com/R3E-Network/socialfeed/pkg/logger"
)

// Option configures a Program.
type Option func(*Program)

// WithFees overrides the fee schedule.
func WithFees(f Fees) Option {
	return func(p *Program) { p.fees = f }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(p *Program) { p.log = log }
}

// Program is the feed program bound to one program identity.
type Program struct {
	id     ledger.Address
	fees   Fees
	store  *accounts.Store
	escrow *escrow.Engine
	log    *logger.Logger
}

// New creates the feed program running as id.
func New(id ledger.Address, opts ...Option) *Program {
	p := &Program{id: id, fees: DefaultFees()}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.NewDefault("program")
	}
	p.store = accounts.NewStore(id, p.log.Named("accounts"))
	p.escrow = escrow.NewEngine(id, p.log.Named("escrow"))
	return p
}

// ID returns the program identity.
func (p *Program) ID() ledger.Address { return p.id }

// Fees returns the fee schedule.
func (p *Program) Fees() Fees { return p.fees }

// Process runs ins inside tx.
func (p *Program) Process(tx *ledger.Tx, ins *Instruction) error {
	if err := ins.Validate(); err != nil {
		return err
	}
	if !tx.IsSigner(ins.Accounts.User) {
		return core.Unauthorized("user %s did not sign", ins.Accounts.User)
	}
	tx.Logf("Instruction: %s", ins.Kind)

	switch ins.Kind {
	case KindInitializeUser:
		return p.initializeUser(tx, ins.Accounts)
	case KindInitializePost:
		return p.initializePost(tx, ins.Accounts, ins.Title, ins.Content)
	case KindLikePost:
		return p.likePost(tx, ins.Accounts)
	case KindCommentPost:
		return p.commentPost(tx, ins.Accounts, ins.Content)
	case KindDeletePost:
		return p.deletePost(tx, ins.Accounts)
	default:
		return core.NewValidationError("kind", fmt.Sprintf("unsupported instruction %s", ins.Kind))
	}
}

func (p *Program) initializeUser(tx *ledger.Tx, acc Accounts) error {
	profileAddr, err := p.expectProfile(acc)
	if err != nil {
		return err
	}
	if err := p.transition(tx, profileAddr, "UserProfile", StatusActive); err != nil {
		return err
	}
	if err := p.store.Create(tx, profileAddr, ProfileSpace, acc.User); err != nil {
		return err
	}
	if err := p.store.Save(tx, profileAddr, &UserProfile{Owner: acc.User}); err != nil {
		return err
	}

	p.log.WithFields(map[string]interface{}{
		"user":    acc.User.String(),
		"profile": profileAddr.String(),
	}).Info("user initialized")
	return nil
}

func (p *Program) initializePost(tx *ledger.Tx, acc Accounts, title, content string) error {
	profileAddr, err := p.expectProfile(acc)
	if err != nil {
		return err
	}
	var profile UserProfile
	if err := p.store.Load(tx, profileAddr, &profile); err != nil {
		return err
	}
	if profile.Owner != acc.User {
		return core.Unauthorized("profile %s belongs to %s", profileAddr, profile.Owner)
	}
	vault, _, err := p.expectVault(acc)
	if err != nil {
		return err
	}
	postAddr, _, err := PostAddress(p.id, acc.User, profile.PostCount)
	if err != nil {
		return fmt.Errorf("derive post address: %w", err)
	}
	if acc.Post != postAddr {
		return core.Unauthorized("post account %s is not post %d of %s", acc.Post, profile.PostCount, acc.User)
	}
	if err := p.transition(tx, postAddr, "Post", StatusActive); err != nil {
		return err
	}

	if err := p.escrow.Transfer(tx, acc.User, vault, p.fees.Post, escrow.Signer()); err != nil {
		return err
	}
	if err := p.store.Create(tx, postAddr, PostSpace, acc.User); err != nil {
		return err
	}
	post := &Post{Author: acc.User, Title: title, Content: content, Comments: []Comment{}}
	if err := p.store.Save(tx, postAddr, post); err != nil {
		return err
	}
	profile.PostCount++
	if err := p.store.Save(tx, profileAddr, &profile); err != nil {
		return err
	}

	tx.Logf("Post %d created at %s", profile.PostCount-1, postAddr)
	p.log.WithFields(map[string]interface{}{
		"author":     acc.User.String(),
		"post":       postAddr.String(),
		"post_count": profile.PostCount,
	}).Info("post created")
	return nil
}

func (p *Program) likePost(tx *ledger.Tx, acc Accounts) error {
	var post Post
	if err := p.store.Load(tx, acc.Post, &post); err != nil {
		return err
	}
	if acc.AuthorAccount != post.Author {
		return core.Unauthorized("author account %s does not match post author %s", acc.AuthorAccount, post.Author)
	}
	if err := p.escrow.Transfer(tx, acc.User, acc.AuthorAccount, p.fees.Like, escrow.Signer()); err != nil {
		return err
	}
	post.LikeCount++
	if err := p.store.Save(tx, acc.Post, &post); err != nil {
		return err
	}

	p.log.WithFields(map[string]interface{}{
		"user":       acc.User.String(),
		"post":       acc.Post.String(),
		"like_count": post.LikeCount,
	}).Info("post liked")
	return nil
}

func (p *Program) commentPost(tx *ledger.Tx, acc Accounts, content string) error {
	vault, _, err := p.expectVault(acc)
	if err != nil {
		return err
	}
	var post Post
	if err := p.store.Load(tx, acc.Post, &post); err != nil {
		return err
	}
	if err := p.escrow.Transfer(tx, acc.User, vault, p.fees.Post, escrow.Signer()); err != nil {
		return err
	}
	post.Comments = append(post.Comments, Comment{
		Author:    acc.User,
		Content:   content,
		Timestamp: tx.Now(),
	})
	if err := p.store.Save(tx, acc.Post, &post); err != nil {
		return err
	}

	p.log.WithFields(map[string]interface{}{
		"user":     acc.User.String(),
		"post":     acc.Post.String(),
		"comments": len(post.Comments),
	}).Info("comment added")
	return nil
}

func (p *Program) deletePost(tx *ledger.Tx, acc Accounts) error {
	vault, bump, err := p.expectVault(acc)
	if err != nil {
		return err
	}
	if err := p.transition(tx, acc.Post, "Post", StatusClosed); err != nil {
		return err
	}
	var post Post
	if err := p.store.Load(tx, acc.Post, &post); err != nil {
		return err
	}
	if post.Author != acc.User {
		return core.Unauthorized("only the author %s may delete post %s", post.Author, acc.Post)
	}

	drained, err := p.escrow.Drain(tx, vault, acc.User, escrow.Derived(bump, SeedVault, acc.User.Bytes()))
	if err != nil {
		return err
	}
	refunded, err := p.store.Close(tx, acc.Post, acc.User)
	if err != nil {
		return err
	}

	tx.Logf("Post %s closed, %d returned from vault", acc.Post, drained)
	p.log.WithFields(map[string]interface{}{
		"author":   acc.User.String(),
		"post":     acc.Post.String(),
		"drained":  drained,
		"refunded": refunded,
	}).Info("post deleted")
	return nil
}

func (p *Program) expectProfile(acc Accounts) (ledger.Address, error) {
	addr, _, err := ProfileAddress(p.id, acc.User)
	if err != nil {
		return ledger.Address{}, fmt.Errorf("derive profile address: %w", err)
	}
	if acc.UserProfile != addr {
		return ledger.Address{}, core.Unauthorized("profile account %s is not the profile of %s", acc.UserProfile, acc.User)
	}
	return addr, nil
}

func (p *Program) expectVault(acc Accounts) (ledger.Address, uint8, error) {
	addr, bump, err := VaultAddress(p.id, acc.User)
	if err != nil {
		return ledger.Address{}, 0, fmt.Errorf("derive vault address: %w", err)
	}
	if acc.Vault != addr {
		return ledger.Address{}, 0, core.Unauthorized("vault account %s is not the vault of %s", acc.Vault, acc.User)
	}
	return addr, bump, nil
}

func (p *Program) transition(tx *ledger.Tx, addr ledger.Address, record string, to Status) error {
	from := statusOf(tx.Account(addr), p.id)
	if !CanTransition(from, to) {
		return fmt.Errorf("%s %s: %w", record, addr, TransitionError{Record: record, From: from, To: to})
	}
	return nil
}
