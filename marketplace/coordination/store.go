package coordination

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is the full persisted state: every transaction in the working
// set and the terminal history. Statuses and kinds serialize as plain
// strings so any JSON-capable backend can hold a snapshot.
type Snapshot struct {
	Transactions []TransactionRecord `json:"transactions"`
}

// TransactionRecord is the wire form of a Transaction.
type TransactionRecord struct {
	TransactionID string                     `json:"transaction_id"`
	Kind          string                     `json:"kind"`
	Initiator     string                     `json:"initiator"`
	Participants  []string                   `json:"participants"`
	Steps         []StepRecord               `json:"steps"`
	Status        string                     `json:"status"`
	TotalValue    decimal.Decimal            `json:"total_value"`
	Fees          map[string]decimal.Decimal `json:"fees"`
	Metadata      map[string]any             `json:"metadata,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
	CompletedAt   *time.Time                 `json:"completed_at,omitempty"`
}

// StepRecord is the wire form of a Step.
type StepRecord struct {
	StepID       string         `json:"step_id"`
	Participant  string         `json:"participant"`
	Action       string         `json:"action"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Status       string         `json:"status"`
	Result       map[string]any `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// Store persists coordination snapshots. Load must return an empty snapshot
// (not an error) when the backend holds no data yet; Save overwrites the
// previous snapshot entirely.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot *Snapshot) error
}

// MemoryStore is an in-process Store for tests and defaults. Snapshots are
// kept as marshaled JSON so loads hand out independent copies.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (store *MemoryStore) Load(_ context.Context) (*Snapshot, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if len(store.data) == 0 {
		return &Snapshot{}, nil
	}

	var snapshot Snapshot
	if err := json.Unmarshal(store.data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	return &snapshot, nil
}

// Save implements Store.
func (store *MemoryStore) Save(_ context.Context, snapshot *Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	store.mu.Lock()
	store.data = payload
	store.mu.Unlock()

	return nil
}
