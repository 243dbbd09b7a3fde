package coordination

import (
	"fmt"
	"strings"
)

// Actions used by the built-in purchase and listing plans. Handlers for
// these names must be registered before the corresponding plan can make
// progress; any other action name works the same way through a custom plan.
const (
	ActionVerifyValuation     = "verify_valuation"
	ActionVerifyAuthenticity  = "verify_authenticity"
	ActionSetupEscrow         = "setup_escrow"
	ActionExecuteTransfer     = "execute_transfer"
	ActionFinalizeTransaction = "finalize_transaction"
	ActionVerifyOwnership     = "verify_ownership"
	ActionMarketValuation     = "market_valuation"
	ActionCreateListing       = "create_listing"
)

// Participant role labels used by the built-in plans.
const (
	ParticipantAppraiser   = "memory_appraiser"
	ParticipantValidator   = "authenticity_validator"
	ParticipantTrader      = "trading_legacy_agent"
	ParticipantMarketplace = "marketplace_coordinator"
)

// PlanBuilder assembles an ordered list of steps with explicit
// dependencies. Build validates the whole graph before any step runs.
type PlanBuilder struct {
	steps []*Step
}

// NewPlan creates an empty plan builder.
func NewPlan() *PlanBuilder {
	return &PlanBuilder{}
}

// Step appends a step to the plan. Dependencies reference step ids that
// must complete before this step becomes ready.
func (builder *PlanBuilder) Step(
	id string,
	participant string,
	action string,
	parameters map[string]any,
	dependencies ...string,
) *PlanBuilder {
	builder.steps = append(builder.steps, &Step{
		ID:           strings.TrimSpace(id),
		Participant:  strings.TrimSpace(participant),
		Action:       strings.TrimSpace(action),
		Parameters:   parameters,
		Status:       StepPending,
		Dependencies: append([]string(nil), dependencies...),
	})

	return builder
}

// Build validates the plan and returns its steps. It rejects empty plans,
// blank ids or actions, duplicate ids, references to unknown step ids, and
// dependency cycles (self-dependencies included).
func (builder *PlanBuilder) Build() ([]*Step, error) {
	if len(builder.steps) == 0 {
		return nil, ErrPlanEmpty
	}

	known := make(map[string]bool, len(builder.steps))

	for _, step := range builder.steps {
		if step.ID == "" {
			return nil, ErrStepIDRequired
		}

		if step.Action == "" {
			return nil, fmt.Errorf("%w: step %s", ErrActionRequired, step.ID)
		}

		if known[step.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStepID, step.ID)
		}

		known[step.ID] = true
	}

	for _, step := range builder.steps {
		for _, dep := range step.Dependencies {
			if dep == step.ID {
				return nil, fmt.Errorf("%w: step %s depends on itself", ErrDependencyCycle, step.ID)
			}

			if !known[dep] {
				return nil, fmt.Errorf("%w: step %s depends on %s", ErrUnknownDependency, step.ID, dep)
			}
		}
	}

	if err := checkAcyclic(builder.steps); err != nil {
		return nil, err
	}

	return append([]*Step(nil), builder.steps...), nil
}

// checkAcyclic runs a Kahn walk over the dependency graph. If not every
// step can be ordered, the remainder forms at least one cycle.
func checkAcyclic(steps []*Step) error {
	indegree := make(map[string]int, len(steps))
	dependents := make(map[string][]string, len(steps))

	for _, step := range steps {
		indegree[step.ID] = len(step.Dependencies)

		for _, dep := range step.Dependencies {
			dependents[dep] = append(dependents[dep], step.ID)
		}
	}

	queue := make([]string, 0, len(steps))

	for _, step := range steps {
		if indegree[step.ID] == 0 {
			queue = append(queue, step.ID)
		}
	}

	ordered := 0

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		ordered++

		for _, dependent := range dependents[id] {
			indegree[dependent]--

			if indegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if ordered != len(steps) {
		return ErrDependencyCycle
	}

	return nil
}

// purchasePlan expands a purchase intent into the fixed five-step plan:
// valuation and authenticity checks run independently, escrow waits for
// both, transfer waits for escrow, and finalization waits for transfer.
func purchasePlan(transactionID string, intent PurchaseIntent) ([]*Step, error) {
	stepID := func(n int) string {
		return fmt.Sprintf("%s_step_%d", transactionID, n)
	}

	return NewPlan().
		Step(stepID(1), ParticipantAppraiser, ActionVerifyValuation, map[string]any{
			"item_id":           intent.ItemID,
			"offered_price":     intent.Price,
			"market_validation": true,
		}).
		Step(stepID(2), ParticipantValidator, ActionVerifyAuthenticity, map[string]any{
			"item_id":             intent.ItemID,
			"seller":              intent.Seller,
			"comprehensive_check": true,
		}).
		Step(stepID(3), ParticipantTrader, ActionSetupEscrow, map[string]any{
			"buyer":   intent.Buyer,
			"seller":  intent.Seller,
			"amount":  intent.Price,
			"item_id": intent.ItemID,
		}, stepID(1), stepID(2)).
		Step(stepID(4), ParticipantTrader, ActionExecuteTransfer, map[string]any{
			"from":           intent.Seller,
			"to":             intent.Buyer,
			"item_id":        intent.ItemID,
			"payment_amount": intent.Price,
		}, stepID(3)).
		Step(stepID(5), ParticipantMarketplace, ActionFinalizeTransaction, map[string]any{
			"transaction_id":      transactionID,
			"update_market_data":  true,
			"notify_participants": true,
		}, stepID(4)).
		Build()
}

// listingPlan expands a listing intent into the fixed three-step plan:
// ownership and valuation checks run independently, listing creation waits
// for both.
func listingPlan(transactionID string, intent ListingIntent) ([]*Step, error) {
	stepID := func(n int) string {
		return fmt.Sprintf("%s_step_%d", transactionID, n)
	}

	return NewPlan().
		Step(stepID(1), ParticipantValidator, ActionVerifyOwnership, map[string]any{
			"item_id":       intent.ItemID,
			"claimed_owner": intent.Seller,
		}).
		Step(stepID(2), ParticipantAppraiser, ActionMarketValuation, map[string]any{
			"item_id":      intent.ItemID,
			"asking_price": intent.AskingPrice,
		}).
		Step(stepID(3), ParticipantMarketplace, ActionCreateListing, map[string]any{
			"seller":       intent.Seller,
			"item_id":      intent.ItemID,
			"asking_price": intent.AskingPrice,
			"metadata":     intent.Metadata,
		}, stepID(1), stepID(2)).
		Build()
}
