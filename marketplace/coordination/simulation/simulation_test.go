//go:build unit

package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallpoint/lib-marketplace/marketplace/coordination"
)

func fixedID() string {
	return "abcd1234"
}

func TestRegistryRegistersEveryAction(t *testing.T) {
	t.Parallel()

	registry, err := New().Registry()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		coordination.ActionVerifyValuation,
		coordination.ActionVerifyAuthenticity,
		coordination.ActionSetupEscrow,
		coordination.ActionExecuteTransfer,
		coordination.ActionFinalizeTransaction,
		coordination.ActionVerifyOwnership,
		coordination.ActionMarketValuation,
		coordination.ActionCreateListing,
	}, registry.Actions())
}

func TestVerifyValuationDerivesMarketPrice(t *testing.T) {
	t.Parallel()

	handlers := New()

	result, err := handlers.VerifyValuation(context.Background(), map[string]any{
		"offered_price": decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	assert.Equal(t, true, result["valuation_confirmed"])
	assert.Equal(t, 0.88, result["confidence"])

	marketPrice, ok := result["market_price"].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, marketPrice.Equal(decimal.NewFromInt(950)), "got %s", marketPrice)
}

func TestVerifyAuthenticity(t *testing.T) {
	t.Parallel()

	result, err := New().VerifyAuthenticity(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, true, result["authenticity_confirmed"])
	assert.Equal(t, 0.92, result["authenticity_score"])
	assert.Equal(t, "low", result["fraud_risk"])
}

func TestSetupEscrowLocksAmount(t *testing.T) {
	t.Parallel()

	handlers := New(WithIDGenerator(fixedID))

	result, err := handlers.SetupEscrow(context.Background(), map[string]any{
		"amount": decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	assert.Equal(t, "0xescrow_abcd1234", result["escrow_address"])
	assert.Equal(t, "locked", result["status"])

	locked, ok := result["amount_locked"].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, locked.Equal(decimal.NewFromInt(500)))
}

func TestExecuteTransfer(t *testing.T) {
	t.Parallel()

	result, err := New(WithIDGenerator(fixedID)).ExecuteTransfer(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "0xabcd1234", result["transaction_hash"])
	assert.Equal(t, true, result["item_transferred"])
	assert.Equal(t, true, result["payment_transferred"])
}

func TestVerifyOwnershipEchoesClaimedOwner(t *testing.T) {
	t.Parallel()

	result, err := New().VerifyOwnership(context.Background(), map[string]any{
		"claimed_owner": "bob",
	})
	require.NoError(t, err)

	assert.Equal(t, true, result["ownership_confirmed"])
	assert.Equal(t, "bob", result["owner_address"])
	assert.Equal(t, "blockchain_query", result["verification_method"])
}

func TestMarketValuationDiscountsAskingPrice(t *testing.T) {
	t.Parallel()

	result, err := New().MarketValuation(context.Background(), map[string]any{
		"asking_price": decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	estimated, ok := result["estimated_value"].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, estimated.Equal(decimal.NewFromInt(92)), "got %s", estimated)
	assert.Equal(t, "moderate", result["market_demand"])
	assert.Equal(t, "competitive", result["pricing_recommendation"])
}

func TestCreateListing(t *testing.T) {
	t.Parallel()

	result, err := New(WithIDGenerator(fixedID)).CreateListing(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "listing_abcd1234", result["listing_id"])
	assert.Equal(t, true, result["listing_created"])
	assert.Equal(t, true, result["visible_on_marketplace"])
}

func TestAmountParameterTolerance(t *testing.T) {
	t.Parallel()

	handlers := New()

	cases := map[string]any{
		"decimal": decimal.NewFromInt(1000),
		"float":   float64(1000),
		"int":     1000,
		"string":  "1000",
	}

	for name, value := range cases {
		result, err := handlers.VerifyValuation(context.Background(), map[string]any{
			"offered_price": value,
		})
		require.NoError(t, err, name)

		marketPrice, ok := result["market_price"].(decimal.Decimal)
		require.True(t, ok, name)
		assert.True(t, marketPrice.Equal(decimal.NewFromInt(950)), "%s: got %s", name, marketPrice)
	}

	// Garbage degrades to zero rather than failing the step.
	result, err := handlers.VerifyValuation(context.Background(), map[string]any{
		"offered_price": "not a number",
	})
	require.NoError(t, err)

	marketPrice, ok := result["market_price"].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, marketPrice.IsZero())
}

func TestLatencyHonorsContext(t *testing.T) {
	t.Parallel()

	handlers := New(WithLatency(5 * time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := handlers.VerifyAuthenticity(ctx, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPurchaseThroughCoordinator(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	registry, err := New(WithIDGenerator(fixedID)).Registry()
	require.NoError(t, err)

	store := coordination.NewMemoryStore()

	c, err := coordination.New(ctx, store, registry,
		coordination.WithPollInterval(5*time.Millisecond),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = c.Shutdown(shutdownCtx)
	})

	transactionID, err := c.InitiatePurchase(ctx, coordination.PurchaseIntent{
		Buyer:  "alice",
		Seller: "bob",
		ItemID: "memory_42",
		Price:  decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Second)

	for {
		snapshot, err := c.Status(ctx, transactionID)
		require.NoError(t, err)

		if snapshot.Status == coordination.StatusCompleted {
			assert.Equal(t, "5/5", snapshot.Progress)

			break
		}

		require.True(t, time.Now().Before(deadline), "transaction stuck in %s", snapshot.Status)
		time.Sleep(2 * time.Millisecond)
	}

	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, persisted.Transactions, 1)

	for _, step := range persisted.Transactions[0].Steps {
		assert.Equal(t, "completed", step.Status)
		assert.NotEmpty(t, step.Result)
	}
}
