//go:build unit

package coordination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransactionStatus(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"pending", "executing", "completed", "failed", "cancelled"} {
		status, err := ParseTransactionStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, status.String())
	}

	_, err := ParseTransactionStatus("archived")
	require.ErrorIs(t, err, ErrStatusInvalid)

	_, err = ParseTransactionStatus("")
	require.ErrorIs(t, err, ErrStatusInvalid)
}

func TestTransactionStatusIsTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusExecuting.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
}

func TestTransactionStatusCanTransitionTo(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusPending.CanTransitionTo(StatusExecuting))
	assert.True(t, StatusPending.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusPending.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusPending.CanTransitionTo(StatusFailed))

	assert.True(t, StatusExecuting.CanTransitionTo(StatusCompleted))
	assert.True(t, StatusExecuting.CanTransitionTo(StatusFailed))
	assert.True(t, StatusExecuting.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusExecuting.CanTransitionTo(StatusPending))

	for _, terminal := range []TransactionStatus{StatusCompleted, StatusFailed, StatusCancelled} {
		for _, next := range []TransactionStatus{StatusPending, StatusExecuting, StatusCompleted, StatusFailed, StatusCancelled} {
			assert.False(t, terminal.CanTransitionTo(next), "%s -> %s", terminal, next)
		}
	}
}

func TestParseStepStatus(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"pending", "completed", "failed"} {
		status, err := ParseStepStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, status.String())
	}

	_, err := ParseStepStatus("executing")
	require.ErrorIs(t, err, ErrStatusInvalid)
}

func TestParseTransactionKind(t *testing.T) {
	t.Parallel()

	kind, err := ParseTransactionKind("purchase")
	require.NoError(t, err)
	assert.Equal(t, KindPurchase, kind)

	kind, err = ParseTransactionKind("listing")
	require.NoError(t, err)
	assert.Equal(t, KindListing, kind)

	_, err = ParseTransactionKind("auction")
	require.ErrorIs(t, err, ErrKindInvalid)
}
