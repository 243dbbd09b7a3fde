package coordination

import "errors"

var (
	ErrStoreRequired          = errors.New("snapshot store is required")
	ErrActionRegistryRequired = errors.New("action registry is required")
	ErrCoordinatorClosed      = errors.New("coordinator is shut down")

	ErrTransactionNotFound = errors.New("transaction not found")
	ErrTransactionTerminal = errors.New("transaction is in a terminal state")

	ErrActionRequired          = errors.New("action name is required")
	ErrActionHandlerRequired   = errors.New("action handler is required")
	ErrActionAlreadyRegistered = errors.New("action handler already registered")
	ErrActionNotRegistered     = errors.New("action handler is not registered")

	ErrPlanEmpty         = errors.New("plan has no steps")
	ErrStepIDRequired    = errors.New("step id is required")
	ErrDuplicateStepID   = errors.New("duplicate step id")
	ErrUnknownDependency = errors.New("step depends on an unknown step id")
	ErrDependencyCycle   = errors.New("plan dependencies form a cycle")

	ErrStatusInvalid = errors.New("invalid status")
	ErrKindInvalid   = errors.New("invalid transaction kind")
	ErrIntentInvalid = errors.New("invalid transaction intent")
)
