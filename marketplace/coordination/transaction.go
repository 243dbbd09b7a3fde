package coordination

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a multi-step coordinated workflow representing a purchase
// or listing intent. The step list is fixed at creation time; only statuses,
// results, and timestamps mutate during execution.
type Transaction struct {
	ID           string
	Kind         TransactionKind
	Initiator    string
	Participants []string
	Steps        []*Step
	Status       TransactionStatus
	TotalValue   decimal.Decimal
	Fees         map[string]decimal.Decimal
	Metadata     map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// ReadySteps returns the steps that are pending and whose dependencies have
// all completed, in plan order.
func (tx *Transaction) ReadySteps() []*Step {
	completed := make(map[string]bool, len(tx.Steps))

	for _, step := range tx.Steps {
		if step.Status == StepCompleted {
			completed[step.ID] = true
		}
	}

	var ready []*Step

	for _, step := range tx.Steps {
		if step.Ready(completed) {
			ready = append(ready, step)
		}
	}

	return ready
}

// CompletedSteps returns how many steps have completed.
func (tx *Transaction) CompletedSteps() int {
	count := 0

	for _, step := range tx.Steps {
		if step.Status == StepCompleted {
			count++
		}
	}

	return count
}

// FirstFailedStep returns the first failed step in plan order, or nil.
func (tx *Transaction) FirstFailedStep() *Step {
	for _, step := range tx.Steps {
		if step.Status == StepFailed {
			return step
		}
	}

	return nil
}

// participantsFor builds the de-duplicated, insertion-ordered participant
// set: the explicitly named identities first, then every distinct step
// participant.
func participantsFor(named []string, steps []*Step) []string {
	seen := make(map[string]bool, len(named)+len(steps))
	participants := make([]string, 0, len(named)+len(steps))

	add := func(identity string) {
		if identity == "" || seen[identity] {
			return
		}

		seen[identity] = true
		participants = append(participants, identity)
	}

	for _, identity := range named {
		add(identity)
	}

	for _, step := range steps {
		add(step.Participant)
	}

	return participants
}
