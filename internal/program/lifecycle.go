package program

import (
	"encoding/json"
	"fmt"

	"github.com/R3E-Network/socialfeed/internal/core"
	"github.com/R3E-Network/socialfeed/internal/ledger"
)

// Status is the lifecycle state of a program record.
type Status int32

const (
	// StatusAbsent means no record lives at the address.
	StatusAbsent Status = iota
	// StatusActive means the record exists and accepts updates.
	StatusActive
	// StatusClosed means the record was deleted. Terminal.
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusActive:
		return "active"
	case StatusClosed:
		return "closed"
	default:
		return fmt.Sprintf("status(%d)", s)
	}
}

// MarshalJSON implements json.Marshaler.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// ParseStatus converts a string to Status. Unknown names map to StatusAbsent.
func ParseStatus(s string) Status {
	switch s {
	case "active":
		return StatusActive
	case "closed", "deleted":
		return StatusClosed
	default:
		return StatusAbsent
	}
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool { return s == StatusClosed }

// ValidTransitions lists the allowed record transitions. Profiles never
// leave StatusActive; posts end in StatusClosed. Updates in place are not
// transitions.
var ValidTransitions = map[Status][]Status{
	StatusAbsent: {StatusActive},
	StatusActive: {StatusClosed},
}

// CanTransition returns true if the transition from -> to is valid.
func CanTransition(from, to Status) bool {
	for _, s := range ValidTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionError represents an invalid record transition.
type TransitionError struct {
	Record string
	From   Status
	To     Status
}

func (e TransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition: %s -> %s", e.Record, e.From, e.To)
}

// Unwrap maps the transition to the error a caller sees: creating over an
// active record is a duplicate, anything else targets a missing record.
func (e TransitionError) Unwrap() error {
	if e.From == StatusActive && e.To == StatusActive {
		return core.ErrDuplicateInitialization
	}
	return core.ErrNotFound
}

// statusOf reports the state of the record at acct as seen by program.
func statusOf(acct *ledger.Account, program ledger.Address) Status {
	if acct != nil && acct.Owner == program && len(acct.Data) > 0 {
		return StatusActive
	}
	return StatusAbsent
}
