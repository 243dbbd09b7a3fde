package coordination

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ActionHandler performs the work behind a step's action name. It receives
// the step's parameters and returns a result mapping, or an error to mark
// the step failed. Handlers must honor ctx cancellation when they block.
type ActionHandler func(ctx context.Context, parameters map[string]any) (map[string]any, error)

// ActionRegistry stores action handlers by action name.
type ActionRegistry struct {
	mu       sync.RWMutex
	handlers map[string]ActionHandler
}

func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{handlers: map[string]ActionHandler{}}
}

// Register binds a handler to an action name. Duplicate registrations are
// rejected so plans cannot silently change behavior mid-process.
func (registry *ActionRegistry) Register(action string, handler ActionHandler) error {
	if registry == nil {
		return ErrActionRegistryRequired
	}

	normalized := strings.TrimSpace(action)
	if normalized == "" {
		return ErrActionRequired
	}

	if handler == nil {
		return ErrActionHandlerRequired
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if registry.handlers == nil {
		registry.handlers = make(map[string]ActionHandler)
	}

	if _, exists := registry.handlers[normalized]; exists {
		return fmt.Errorf("%w: %s", ErrActionAlreadyRegistered, normalized)
	}

	registry.handlers[normalized] = handler

	return nil
}

// Invoke runs the handler registered for action. An unregistered action is
// an error, which the coordinator records as a step failure.
func (registry *ActionRegistry) Invoke(
	ctx context.Context,
	action string,
	parameters map[string]any,
) (map[string]any, error) {
	if registry == nil {
		return nil, ErrActionRegistryRequired
	}

	normalized := strings.TrimSpace(action)
	if normalized == "" {
		return nil, ErrActionRequired
	}

	registry.mu.RLock()
	handler, ok := registry.handlers[normalized]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActionNotRegistered, normalized)
	}

	return handler(ctx, parameters)
}

// Actions returns the registered action names, unordered.
func (registry *ActionRegistry) Actions() []string {
	if registry == nil {
		return nil
	}

	registry.mu.RLock()
	defer registry.mu.RUnlock()

	actions := make([]string, 0, len(registry.handlers))
	for action := range registry.handlers {
		actions = append(actions, action)
	}

	return actions
}
