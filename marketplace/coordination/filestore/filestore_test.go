//go:build unit

package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallpoint/lib-marketplace/marketplace/coordination"
)

func TestNewRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := New("")
	require.Error(t, err)
}

func TestLoadMissingFileReturnsEmptySnapshot(t *testing.T) {
	t.Parallel()

	store, err := New(filepath.Join(t.TempDir(), "snapshot.json"))
	require.NoError(t, err)

	snapshot, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Empty(t, snapshot.Transactions)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.json")

	store, err := New(path)
	require.NoError(t, err)

	saved := &coordination.Snapshot{Transactions: []coordination.TransactionRecord{{
		TransactionID: "tx_file",
		Kind:          "purchase",
		Status:        "executing",
		TotalValue:    decimal.NewFromInt(750),
		Steps: []coordination.StepRecord{
			{StepID: "tx_file_step_1", Action: "verify_valuation", Status: "completed"},
		},
	}}}
	require.NoError(t, store.Save(ctx, saved))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Transactions, 1)
	assert.Equal(t, "tx_file", loaded.Transactions[0].TransactionID)
	assert.True(t, loaded.Transactions[0].TotalValue.Equal(decimal.NewFromInt(750)))
	require.Len(t, loaded.Transactions[0].Steps, 1)

	// Saves fully replace the previous snapshot.
	require.NoError(t, store.Save(ctx, &coordination.Snapshot{}))

	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded.Transactions)
}

func TestLoadCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := New(path)
	require.NoError(t, err)

	_, err = store.Load(context.Background())
	require.Error(t, err)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "snapshot.json"))
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), &coordination.Snapshot{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "snapshot.json", entries[0].Name())
}
