package program

// Default fees in the smallest native unit.
const (
	DefaultPostFee uint64 = 1_000_000 // escrowed in the author's vault per post
	DefaultLikeFee uint64 = 1_000     // paid to the post author per like
)

// Fees holds the amounts charged by the handlers. Comments are charged the
// post fee.
type Fees struct {
	Post uint64 `json:"post" yaml:"post"`
	Like uint64 `json:"like" yaml:"like"`
}

// DefaultFees returns the standard fee schedule.
func DefaultFees() Fees {
	return Fees{Post: DefaultPostFee, Like: DefaultLikeFee}
}

// For returns the fee charged by an instruction kind.
func (f Fees) For(kind Kind) uint64 {
	switch kind {
	case KindInitializePost, KindCommentPost:
		return f.Post
	case KindLikePost:
		return f.Like
	default:
		return 0
	}
}
