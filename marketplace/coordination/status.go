package coordination

import "fmt"

// TransactionStatus represents the lifecycle state of a coordinated
// transaction.
//
// Transitions:
//
//	pending   → executing | cancelled
//	executing → completed | failed | cancelled
//	completed | failed | cancelled → (terminal)
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusExecuting TransactionStatus = "executing"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

// ParseTransactionStatus validates and converts a raw string status.
func ParseTransactionStatus(raw string) (TransactionStatus, error) {
	status := TransactionStatus(raw)

	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrStatusInvalid, raw)
	}

	return status, nil
}

// IsValid reports whether the status is part of the transaction lifecycle.
func (status TransactionStatus) IsValid() bool {
	switch status {
	case StatusPending, StatusExecuting, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status permits no further mutation.
func (status TransactionStatus) IsTerminal() bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether a transition from status to next is allowed.
func (status TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	switch status {
	case StatusPending:
		return next == StatusExecuting || next == StatusCancelled
	case StatusExecuting:
		return next == StatusCompleted || next == StatusFailed || next == StatusCancelled
	case StatusCompleted, StatusFailed, StatusCancelled:
		return false
	default:
		return false
	}
}

func (status TransactionStatus) String() string {
	return string(status)
}

// StepStatus represents the lifecycle state of a single transaction step.
// A step never leaves completed or failed; there is no per-step retry.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// ParseStepStatus validates and converts a raw string step status.
func ParseStepStatus(raw string) (StepStatus, error) {
	status := StepStatus(raw)

	if !status.IsValid() {
		return "", fmt.Errorf("%w: step status %q", ErrStatusInvalid, raw)
	}

	return status, nil
}

// IsValid reports whether the step status is part of the step lifecycle.
func (status StepStatus) IsValid() bool {
	switch status {
	case StepPending, StepCompleted, StepFailed:
		return true
	default:
		return false
	}
}

func (status StepStatus) String() string {
	return string(status)
}

// TransactionKind identifies the intent a transaction coordinates.
type TransactionKind string

const (
	KindPurchase TransactionKind = "purchase"
	KindListing  TransactionKind = "listing"
)

// ParseTransactionKind validates and converts a raw string kind.
func ParseTransactionKind(raw string) (TransactionKind, error) {
	kind := TransactionKind(raw)

	switch kind {
	case KindPurchase, KindListing:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrKindInvalid, raw)
	}
}

func (kind TransactionKind) String() string {
	return string(kind)
}
