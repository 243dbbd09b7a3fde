// Package simulation provides deterministic in-process handlers for every
// marketplace action, for demos and tests that exercise the coordinator
// without real agent backends. Results are derived from step parameters so
// repeated runs with the same inputs produce the same outcomes.
package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/recallpoint/lib-marketplace/marketplace/coordination"
)

var (
	marketPriceFactor    = decimal.NewFromFloat(0.95)
	estimatedValueFactor = decimal.NewFromFloat(0.92)
)

// Handlers produces simulated results for the built-in marketplace
// actions.
type Handlers struct {
	latency time.Duration
	newID   func() string
}

// Option mutates handler configuration at construction.
type Option func(*Handlers)

// WithLatency makes every handler sleep for d before returning, to mimic
// agent round trips. The sleep honors context cancellation.
func WithLatency(d time.Duration) Option {
	return func(handlers *Handlers) {
		if d > 0 {
			handlers.latency = d
		}
	}
}

// WithIDGenerator overrides the generator used for escrow addresses,
// transfer hashes and listing IDs. Tests use this to pin outputs.
func WithIDGenerator(generate func() string) Option {
	return func(handlers *Handlers) {
		if generate != nil {
			handlers.newID = generate
		}
	}
}

// New creates simulated handlers. Defaults: no latency, UUID-derived IDs.
func New(opts ...Option) *Handlers {
	handlers := &Handlers{
		newID: func() string {
			id := uuid.New()

			return fmt.Sprintf("%x", id[:4])
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(handlers)
		}
	}

	return handlers
}

// Register adds every simulated handler to registry.
func (handlers *Handlers) Register(registry *coordination.ActionRegistry) error {
	bindings := map[string]coordination.ActionHandler{
		coordination.ActionVerifyValuation:     handlers.VerifyValuation,
		coordination.ActionVerifyAuthenticity:  handlers.VerifyAuthenticity,
		coordination.ActionSetupEscrow:         handlers.SetupEscrow,
		coordination.ActionExecuteTransfer:     handlers.ExecuteTransfer,
		coordination.ActionFinalizeTransaction: handlers.FinalizeTransaction,
		coordination.ActionVerifyOwnership:     handlers.VerifyOwnership,
		coordination.ActionMarketValuation:     handlers.MarketValuation,
		coordination.ActionCreateListing:       handlers.CreateListing,
	}

	for action, handler := range bindings {
		if err := registry.Register(action, handler); err != nil {
			return fmt.Errorf("register %s: %w", action, err)
		}
	}

	return nil
}

// Registry returns a fresh action registry with every simulated handler
// registered.
func (handlers *Handlers) Registry() (*coordination.ActionRegistry, error) {
	registry := coordination.NewActionRegistry()

	if err := handlers.Register(registry); err != nil {
		return nil, err
	}

	return registry, nil
}

// Registry is shorthand for New(opts...).Registry().
func Registry(opts ...Option) (*coordination.ActionRegistry, error) {
	return New(opts...).Registry()
}

// VerifyValuation confirms an offered price against a simulated market
// price of 95% of the offer.
func (handlers *Handlers) VerifyValuation(ctx context.Context, parameters map[string]any) (map[string]any, error) {
	if err := handlers.wait(ctx); err != nil {
		return nil, err
	}

	offered := amountParameter(parameters, "offered_price")

	return map[string]any{
		"valuation_confirmed": true,
		"market_price":        offered.Mul(marketPriceFactor),
		"confidence":          0.88,
	}, nil
}

// VerifyAuthenticity reports a high authenticity score with low fraud
// risk.
func (handlers *Handlers) VerifyAuthenticity(ctx context.Context, _ map[string]any) (map[string]any, error) {
	if err := handlers.wait(ctx); err != nil {
		return nil, err
	}

	return map[string]any{
		"authenticity_confirmed": true,
		"authenticity_score":     0.92,
		"fraud_risk":             "low",
	}, nil
}

// SetupEscrow locks the requested amount at a synthetic escrow address.
func (handlers *Handlers) SetupEscrow(ctx context.Context, parameters map[string]any) (map[string]any, error) {
	if err := handlers.wait(ctx); err != nil {
		return nil, err
	}

	return map[string]any{
		"escrow_address": "0xescrow_" + handlers.newID(),
		"amount_locked":  amountParameter(parameters, "amount"),
		"status":         "locked",
	}, nil
}

// ExecuteTransfer reports a successful item-for-payment swap with a
// synthetic transaction hash.
func (handlers *Handlers) ExecuteTransfer(ctx context.Context, _ map[string]any) (map[string]any, error) {
	if err := handlers.wait(ctx); err != nil {
		return nil, err
	}

	return map[string]any{
		"transaction_hash":    "0x" + handlers.newID(),
		"item_transferred":    true,
		"payment_transferred": true,
	}, nil
}

// FinalizeTransaction reports market data updated and participants
// notified.
func (handlers *Handlers) FinalizeTransaction(ctx context.Context, _ map[string]any) (map[string]any, error) {
	if err := handlers.wait(ctx); err != nil {
		return nil, err
	}

	return map[string]any{
		"market_data_updated":   true,
		"participants_notified": true,
		"transaction_recorded":  true,
	}, nil
}

// VerifyOwnership echoes the claimed owner back as confirmed.
func (handlers *Handlers) VerifyOwnership(ctx context.Context, parameters map[string]any) (map[string]any, error) {
	if err := handlers.wait(ctx); err != nil {
		return nil, err
	}

	return map[string]any{
		"ownership_confirmed": true,
		"owner_address":       parameters["claimed_owner"],
		"verification_method": "blockchain_query",
	}, nil
}

// MarketValuation estimates value at 92% of the asking price.
func (handlers *Handlers) MarketValuation(ctx context.Context, parameters map[string]any) (map[string]any, error) {
	if err := handlers.wait(ctx); err != nil {
		return nil, err
	}

	asking := amountParameter(parameters, "asking_price")

	return map[string]any{
		"estimated_value":        asking.Mul(estimatedValueFactor),
		"market_demand":          "moderate",
		"pricing_recommendation": "competitive",
	}, nil
}

// CreateListing publishes a listing under a synthetic listing ID.
func (handlers *Handlers) CreateListing(ctx context.Context, _ map[string]any) (map[string]any, error) {
	if err := handlers.wait(ctx); err != nil {
		return nil, err
	}

	return map[string]any{
		"listing_id":             "listing_" + handlers.newID(),
		"listing_created":        true,
		"visible_on_marketplace": true,
	}, nil
}

func (handlers *Handlers) wait(ctx context.Context) error {
	if handlers.latency <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(handlers.latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// amountParameter reads a monetary parameter, tolerating the types a
// decoded JSON snapshot or a caller-built plan can carry.
func amountParameter(parameters map[string]any, key string) decimal.Decimal {
	switch value := parameters[key].(type) {
	case decimal.Decimal:
		return value
	case float64:
		return decimal.NewFromFloat(value)
	case int:
		return decimal.NewFromInt(int64(value))
	case int64:
		return decimal.NewFromInt(value)
	case string:
		parsed, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero
		}

		return parsed
	default:
		return decimal.Zero
	}
}
