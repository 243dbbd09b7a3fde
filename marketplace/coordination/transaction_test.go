//go:build unit

package coordination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTransaction(t *testing.T) *Transaction {
	t.Helper()

	steps, err := NewPlan().
		Step("s1", "appraiser", "check_a", nil).
		Step("s2", "validator", "check_b", nil).
		Step("s3", "trader", "combine", nil, "s1", "s2").
		Build()
	require.NoError(t, err)

	return &Transaction{
		ID:     "tx_unit",
		Kind:   KindPurchase,
		Steps:  steps,
		Status: StatusExecuting,
	}
}

func TestReadySteps(t *testing.T) {
	t.Parallel()

	tx := testTransaction(t)

	ready := tx.ReadySteps()
	require.Len(t, ready, 2)
	assert.Equal(t, "s1", ready[0].ID)
	assert.Equal(t, "s2", ready[1].ID)

	tx.Steps[0].Status = StepCompleted

	ready = tx.ReadySteps()
	require.Len(t, ready, 1)
	assert.Equal(t, "s2", ready[0].ID)

	tx.Steps[1].Status = StepCompleted

	ready = tx.ReadySteps()
	require.Len(t, ready, 1)
	assert.Equal(t, "s3", ready[0].ID)

	tx.Steps[2].Status = StepCompleted
	assert.Empty(t, tx.ReadySteps())
}

func TestReadyStepsExcludesDependentsOfFailedStep(t *testing.T) {
	t.Parallel()

	tx := testTransaction(t)
	tx.Steps[0].Status = StepFailed
	tx.Steps[1].Status = StepCompleted

	// s3 depends on the failed s1, so nothing is ready.
	assert.Empty(t, tx.ReadySteps())
}

func TestCompletedStepsAndFirstFailedStep(t *testing.T) {
	t.Parallel()

	tx := testTransaction(t)
	assert.Equal(t, 0, tx.CompletedSteps())
	assert.Nil(t, tx.FirstFailedStep())

	tx.Steps[0].Status = StepCompleted
	tx.Steps[1].Status = StepFailed

	assert.Equal(t, 1, tx.CompletedSteps())

	failed := tx.FirstFailedStep()
	require.NotNil(t, failed)
	assert.Equal(t, "s2", failed.ID)
}

func TestParticipantsFor(t *testing.T) {
	t.Parallel()

	steps := []*Step{
		{ID: "s1", Participant: "appraiser"},
		{ID: "s2", Participant: "validator"},
		{ID: "s3", Participant: "appraiser"},
		{ID: "s4", Participant: ""},
	}

	participants := participantsFor([]string{"alice", "bob", "alice"}, steps)

	assert.Equal(t, []string{"alice", "bob", "appraiser", "validator"}, participants)
}
