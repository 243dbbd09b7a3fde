package coordination

import "time"

// Step is one unit of work inside a transaction. Participant is a role
// label, not a network address; the handler registered for Action performs
// the actual work.
type Step struct {
	ID           string
	Participant  string
	Action       string
	Parameters   map[string]any
	Status       StepStatus
	Result       map[string]any
	Error        string
	Dependencies []string
	CompletedAt  *time.Time
}

// Ready reports whether the step is pending and every dependency id is in
// the completed set.
func (step *Step) Ready(completed map[string]bool) bool {
	if step.Status != StepPending {
		return false
	}

	for _, dep := range step.Dependencies {
		if !completed[dep] {
			return false
		}
	}

	return true
}
