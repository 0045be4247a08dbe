package program

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/R3E-Network/socialfeed/internal/core"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"active", StatusActive},
		{"closed", StatusClosed},
		{"deleted", StatusClosed},
		{"", StatusAbsent},
		{"pending", StatusAbsent},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseStatus(tc.in))
		})
	}
}

func TestStatus_JSON(t *testing.T) {
	data, err := json.Marshal(StatusClosed)
	assert.NoError(t, err)
	assert.Equal(t, `"closed"`, string(data))
	assert.True(t, StatusClosed.IsTerminal())
	assert.False(t, StatusActive.IsTerminal())
}

func TestTransitions(t *testing.T) {
	assert.True(t, CanTransition(StatusAbsent, StatusActive))
	assert.True(t, CanTransition(StatusActive, StatusClosed))
	assert.False(t, CanTransition(StatusClosed, StatusActive))
	assert.False(t, CanTransition(StatusActive, StatusActive))

	assert.ErrorIs(t, TransitionError{Record: "Post", From: StatusActive, To: StatusActive}, core.ErrDuplicateInitialization)
	assert.ErrorIs(t, TransitionError{Record: "Post", From: StatusAbsent, To: StatusClosed}, core.ErrNotFound)
}
