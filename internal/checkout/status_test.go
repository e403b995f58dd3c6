package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusInitiated.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}

func TestStatus_CanTransition(t *testing.T) {
	assert.True(t, StatusInitiated.CanTransition(StatusPending))
	assert.True(t, StatusPending.CanTransition(StatusCompleted))
	assert.True(t, StatusInitiated.CanTransition(StatusFailed))
	assert.True(t, StatusPending.CanTransition(StatusFailed))

	assert.False(t, StatusInitiated.CanTransition(StatusCompleted))
	assert.False(t, StatusCompleted.CanTransition(StatusFailed))
	assert.False(t, StatusFailed.CanTransition(StatusPending))
}
