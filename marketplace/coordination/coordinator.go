package coordination

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Coordinator owns the working set of active transactions and a history of
// terminal ones. Each active transaction is driven by its own run loop;
// the only shared resources are the coordinator maps and the snapshot
// store, whose writes are full-state overwrites.
type Coordinator struct {
	store    Store
	actions  *ActionRegistry
	logger   *zap.Logger
	tracer   trace.Tracer
	validate *validator.Validate
	cfg      Config
	now      func() time.Time
	newID    func() string

	mu      sync.Mutex
	active  map[string]*managedTransaction
	history []*Transaction
	closed  bool

	runCtx    context.Context
	runCancel context.CancelFunc
	runWg     sync.WaitGroup

	storeMu sync.Mutex
	metrics coordinatorMetrics
}

// managedTransaction pairs a transaction with its own lock. Lock ordering
// is Coordinator.mu before managedTransaction.mu, never the reverse.
type managedTransaction struct {
	mu      sync.Mutex
	tx      *Transaction
	running bool
}

// StatusSnapshot is a point-in-time view of one transaction.
type StatusSnapshot struct {
	TransactionID   string
	Kind            TransactionKind
	Status          TransactionStatus
	Progress        string
	ProgressPercent float64
	Participants    []string
	TotalValue      decimal.Decimal
	Fees            map[string]decimal.Decimal
	Metadata        map[string]any
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
	NextSteps       []StepSummary
}

// StepSummary describes one ready-but-not-yet-executed step.
type StepSummary struct {
	StepID      string
	Participant string
	Action      string
	Status      StepStatus
}

// Summary is a compact view of one active transaction.
type Summary struct {
	TransactionID string
	Kind          TransactionKind
	Status        TransactionStatus
	TotalValue    decimal.Decimal
	CreatedAt     time.Time
	Participants  int
}

// New creates a coordinator backed by store, dispatching steps through
// actions. The store is read once here; loaded non-terminal transactions
// enter the working set idle until Resume is called.
func New(ctx context.Context, store Store, actions *ActionRegistry, opts ...Option) (*Coordinator, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	if actions == nil {
		return nil, ErrActionRegistryRequired
	}

	runCtx, runCancel := context.WithCancel(context.Background())

	c := &Coordinator{
		store:     store,
		actions:   actions,
		logger:    zap.NewNop(),
		tracer:    noop.NewTracerProvider().Tracer("coordination.noop"),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		cfg:       DefaultConfig(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     defaultTransactionID,
		active:    map[string]*managedTransaction{},
		runCtx:    runCtx,
		runCancel: runCancel,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	c.cfg.normalize()

	metrics, err := newCoordinatorMetrics(c.cfg.MeterProvider)
	if err != nil {
		runCancel()

		return nil, fmt.Errorf("init coordination metrics: %w", err)
	}

	c.metrics = metrics

	if err := c.load(ctx); err != nil {
		runCancel()

		return nil, err
	}

	return c, nil
}

func defaultTransactionID() string {
	id := uuid.New()

	return fmt.Sprintf("tx_%x", id[:4])
}

func (c *Coordinator) load(ctx context.Context) error {
	snapshot, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	if snapshot == nil {
		return nil
	}

	for _, record := range snapshot.Transactions {
		tx, err := decodeTransaction(record)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}

		if tx.Status.IsTerminal() {
			c.history = append(c.history, tx)

			continue
		}

		c.active[tx.ID] = &managedTransaction{tx: tx}
	}

	c.logger.Info("snapshot loaded",
		zap.Int("active", len(c.active)),
		zap.Int("history", len(c.history)),
	)

	return nil
}

// InitiatePurchase expands a purchase intent into the five-step plan,
// persists it, and schedules execution. It returns the transaction id
// without waiting for any step to run.
func (c *Coordinator) InitiatePurchase(ctx context.Context, intent PurchaseIntent) (string, error) {
	if err := c.validatePurchase(intent); err != nil {
		return "", err
	}

	transactionID := c.newID()

	steps, err := purchasePlan(transactionID, intent)
	if err != nil {
		return "", fmt.Errorf("build purchase plan: %w", err)
	}

	now := c.now()
	tx := &Transaction{
		ID:           transactionID,
		Kind:         KindPurchase,
		Initiator:    intent.Buyer,
		Participants: participantsFor([]string{intent.Buyer, intent.Seller}, steps),
		Steps:        steps,
		Status:       StatusPending,
		TotalValue:   intent.Price,
		Fees:         purchaseFees(intent.Price),
		Metadata:     cloneMetadata(intent.Metadata),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := c.schedule(ctx, tx); err != nil {
		return "", err
	}

	c.logger.Info("purchase initiated",
		zap.String("transaction_id", transactionID),
		zap.String("buyer", intent.Buyer),
		zap.String("item_id", intent.ItemID),
		zap.String("price", intent.Price.String()),
		zap.Int("steps", len(steps)),
	)

	return transactionID, nil
}

// InitiateListing expands a listing intent into the three-step plan,
// persists it, and schedules execution.
func (c *Coordinator) InitiateListing(ctx context.Context, intent ListingIntent) (string, error) {
	if err := c.validateListing(intent); err != nil {
		return "", err
	}

	transactionID := c.newID()

	steps, err := listingPlan(transactionID, intent)
	if err != nil {
		return "", fmt.Errorf("build listing plan: %w", err)
	}

	now := c.now()
	tx := &Transaction{
		ID:           transactionID,
		Kind:         KindListing,
		Initiator:    intent.Seller,
		Participants: participantsFor([]string{intent.Seller}, steps),
		Steps:        steps,
		Status:       StatusPending,
		TotalValue:   intent.AskingPrice,
		Fees:         listingFees(),
		Metadata:     cloneMetadata(intent.Metadata),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := c.schedule(ctx, tx); err != nil {
		return "", err
	}

	c.logger.Info("listing initiated",
		zap.String("transaction_id", transactionID),
		zap.String("seller", intent.Seller),
		zap.String("item_id", intent.ItemID),
		zap.String("asking_price", intent.AskingPrice.String()),
	)

	return transactionID, nil
}

func cloneMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return map[string]any{}
	}

	return maps.Clone(metadata)
}

func (c *Coordinator) schedule(ctx context.Context, tx *Transaction) error {
	mt := &managedTransaction{tx: tx, running: true}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return ErrCoordinatorClosed
	}

	c.active[tx.ID] = mt
	c.mu.Unlock()

	c.persist(ctx)
	c.metrics.transactionsStarted.Add(ctx, 1)

	c.spawn(mt)

	return nil
}

func (c *Coordinator) spawn(mt *managedTransaction) {
	c.runWg.Add(1)

	go func() {
		defer c.runWg.Done()
		defer func() {
			mt.mu.Lock()
			mt.running = false
			mt.mu.Unlock()
		}()

		c.run(c.runCtx, mt)
	}()
}

// Resume re-drives non-terminal transactions loaded from the snapshot.
// It returns how many run loops were started.
func (c *Coordinator) Resume(_ context.Context) int {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()

		return 0
	}

	var resumed []*managedTransaction

	for _, mt := range c.active {
		mt.mu.Lock()
		if !mt.running && !mt.tx.Status.IsTerminal() {
			mt.running = true
			resumed = append(resumed, mt)
		}
		mt.mu.Unlock()
	}
	c.mu.Unlock()

	for _, mt := range resumed {
		c.spawn(mt)
	}

	return len(resumed)
}

// Status returns a point-in-time view of the transaction, searching the
// working set first and the terminal history second.
func (c *Coordinator) Status(_ context.Context, transactionID string) (*StatusSnapshot, error) {
	c.mu.Lock()

	if mt, ok := c.active[transactionID]; ok {
		c.mu.Unlock()

		mt.mu.Lock()
		snapshot := newStatusSnapshot(mt.tx)
		mt.mu.Unlock()

		return snapshot, nil
	}

	for _, tx := range c.history {
		if tx.ID == transactionID {
			snapshot := newStatusSnapshot(tx)
			c.mu.Unlock()

			return snapshot, nil
		}
	}

	c.mu.Unlock()

	return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, transactionID)
}

func newStatusSnapshot(tx *Transaction) *StatusSnapshot {
	completed := tx.CompletedSteps()
	total := len(tx.Steps)

	percent := 0.0
	if total > 0 {
		percent = float64(completed) / float64(total) * 100
	}

	var nextSteps []StepSummary

	for _, step := range tx.ReadySteps() {
		nextSteps = append(nextSteps, StepSummary{
			StepID:      step.ID,
			Participant: step.Participant,
			Action:      step.Action,
			Status:      step.Status,
		})
	}

	return &StatusSnapshot{
		TransactionID:   tx.ID,
		Kind:            tx.Kind,
		Status:          tx.Status,
		Progress:        fmt.Sprintf("%d/%d", completed, total),
		ProgressPercent: percent,
		Participants:    append([]string(nil), tx.Participants...),
		TotalValue:      tx.TotalValue,
		Fees:            maps.Clone(tx.Fees),
		Metadata:        maps.Clone(tx.Metadata),
		CreatedAt:       tx.CreatedAt,
		UpdatedAt:       tx.UpdatedAt,
		CompletedAt:     tx.CompletedAt,
		NextSteps:       nextSteps,
	}
}

// ActiveTransactions returns a summary of every transaction still in the
// working set.
func (c *Coordinator) ActiveTransactions() []Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	summaries := make([]Summary, 0, len(c.active))

	for _, mt := range c.active {
		mt.mu.Lock()
		summaries = append(summaries, Summary{
			TransactionID: mt.tx.ID,
			Kind:          mt.tx.Kind,
			Status:        mt.tx.Status,
			TotalValue:    mt.tx.TotalValue,
			CreatedAt:     mt.tx.CreatedAt,
			Participants:  len(mt.tx.Participants),
		})
		mt.mu.Unlock()
	}

	return summaries
}

// Cancel marks a non-terminal transaction cancelled, records the reason in
// its metadata, and moves it to history. Cancellation is advisory: it loses
// to an in-flight terminal transition, and steps already running when the
// cancel lands still finish (no further step is scheduled afterwards).
func (c *Coordinator) Cancel(ctx context.Context, transactionID string, reason string) error {
	c.mu.Lock()

	mt, ok := c.active[transactionID]
	if !ok {
		for _, tx := range c.history {
			if tx.ID == transactionID {
				c.mu.Unlock()

				return fmt.Errorf("%w: %s is %s", ErrTransactionTerminal, transactionID, tx.Status)
			}
		}

		c.mu.Unlock()

		return fmt.Errorf("%w: %s", ErrTransactionNotFound, transactionID)
	}

	mt.mu.Lock()

	if mt.tx.Status.IsTerminal() {
		status := mt.tx.Status
		mt.mu.Unlock()
		c.mu.Unlock()

		return fmt.Errorf("%w: %s is %s", ErrTransactionTerminal, transactionID, status)
	}

	mt.tx.Status = StatusCancelled
	mt.tx.Metadata["cancellation_reason"] = reason
	mt.tx.UpdatedAt = c.now()

	delete(c.active, transactionID)
	c.history = append(c.history, mt.tx)

	mt.mu.Unlock()
	c.mu.Unlock()

	c.persist(ctx)
	c.metrics.transactionsCancelled.Add(ctx, 1)

	c.logger.Info("transaction cancelled",
		zap.String("transaction_id", transactionID),
		zap.String("reason", reason),
	)

	return nil
}

// Shutdown stops accepting new transactions, signals run loops to stop at
// their next scheduling point, and waits for them within ctx. Transactions
// interrupted mid-flight stay in the persisted working set for Resume.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.runCancel()

	done := make(chan struct{})

	go func() {
		c.runWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("coordinator shutdown: %w", ctx.Err())
	}
}

// run drives one transaction to a terminal state: execute every ready
// step, re-evaluate, and repeat. The loop exits when the transaction
// terminates, is cancelled externally, or ctx is cancelled at shutdown.
func (c *Coordinator) run(ctx context.Context, mt *managedTransaction) {
	ctx, span := c.tracer.Start(ctx, "coordination.run")
	defer span.End()

	mt.mu.Lock()
	transactionID := mt.tx.ID

	if mt.tx.Status == StatusPending {
		mt.tx.Status = StatusExecuting
		mt.tx.UpdatedAt = c.now()
	}

	if mt.tx.Status != StatusExecuting {
		mt.mu.Unlock()

		return
	}
	mt.mu.Unlock()

	c.persist(ctx)
	c.logger.Debug("transaction executing", zap.String("transaction_id", transactionID))

	for {
		if ctx.Err() != nil {
			return
		}

		mt.mu.Lock()

		if mt.tx.Status != StatusExecuting {
			// Cancelled externally; Cancel already moved it to history.
			mt.mu.Unlock()

			return
		}

		ready := mt.tx.ReadySteps()

		if len(ready) == 0 {
			if failed := mt.tx.FirstFailedStep(); failed != nil {
				mt.tx.Status = StatusFailed
				mt.tx.Metadata["failed_step"] = failed.ID
				mt.tx.UpdatedAt = c.now()
			} else if mt.tx.CompletedSteps() == len(mt.tx.Steps) {
				completedAt := c.now()
				mt.tx.Status = StatusCompleted
				mt.tx.CompletedAt = &completedAt
				mt.tx.UpdatedAt = completedAt
			} else {
				mt.mu.Unlock()

				if err := sleepContext(ctx, c.cfg.PollInterval); err != nil {
					return
				}

				continue
			}

			status := mt.tx.Status
			createdAt := mt.tx.CreatedAt
			mt.mu.Unlock()

			c.finalize(ctx, mt, transactionID, status, createdAt)

			return
		}

		mt.mu.Unlock()

		c.executeSteps(ctx, mt, ready)

		mt.mu.Lock()
		if mt.tx.Status == StatusExecuting {
			mt.tx.UpdatedAt = c.now()
		}
		mt.mu.Unlock()

		c.persist(ctx)
	}
}

// executeSteps runs one ready batch. Steps in the batch are independent by
// construction, so they run concurrently; each records its own outcome and
// a failure never touches a sibling step.
func (c *Coordinator) executeSteps(ctx context.Context, mt *managedTransaction, steps []*Step) {
	ctx, span := c.tracer.Start(ctx, "coordination.step_batch")
	defer span.End()

	var group errgroup.Group

	for _, step := range steps {
		step := step
		group.Go(func() error {
			result, err := c.invokeAction(ctx, step)

			completedAt := c.now()

			mt.mu.Lock()
			if mt.tx.Status.IsTerminal() {
				// Cancel won the race while this step was in flight. The
				// handler's side effects stand, but a terminal transaction
				// is never mutated.
				mt.mu.Unlock()

				return nil
			}

			if err != nil {
				step.Status = StepFailed
				step.Error = err.Error()
				step.CompletedAt = &completedAt
			} else {
				step.Status = StepCompleted
				step.Result = result
				step.CompletedAt = &completedAt
			}
			mt.mu.Unlock()

			if err != nil {
				c.metrics.stepsFailed.Add(ctx, 1)
				c.logger.Warn("step failed",
					zap.String("step_id", step.ID),
					zap.String("action", step.Action),
					zap.Error(err),
				)

				return nil
			}

			c.metrics.stepsExecuted.Add(ctx, 1)
			c.logger.Debug("step completed",
				zap.String("step_id", step.ID),
				zap.String("action", step.Action),
			)

			return nil
		})
	}

	_ = group.Wait()
}

// invokeAction dispatches one step through the registry, applying the
// configured step timeout and converting handler panics into step errors.
func (c *Coordinator) invokeAction(ctx context.Context, step *Step) (result map[string]any, err error) {
	if c.cfg.StepTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.cfg.StepTimeout)
		defer cancel()
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			result = nil
			err = fmt.Errorf("action %q panicked: %v", step.Action, recovered)
		}
	}()

	return c.actions.Invoke(ctx, step.Action, step.Parameters)
}

func (c *Coordinator) finalize(
	ctx context.Context,
	mt *managedTransaction,
	transactionID string,
	status TransactionStatus,
	createdAt time.Time,
) {
	c.mu.Lock()
	delete(c.active, transactionID)
	c.history = append(c.history, mt.tx)
	c.mu.Unlock()

	c.persist(ctx)

	switch status {
	case StatusCompleted:
		c.metrics.transactionsCompleted.Add(ctx, 1)
	case StatusFailed:
		c.metrics.transactionsFailed.Add(ctx, 1)
	}

	c.metrics.transactionDuration.Record(ctx, c.now().Sub(createdAt).Seconds())

	c.logger.Info("transaction finished",
		zap.String("transaction_id", transactionID),
		zap.String("status", status.String()),
	)
}

// persist writes the full snapshot. A failed write is logged and counted
// but never rolls back the in-memory state: the component favors
// availability of the in-memory view over durability.
func (c *Coordinator) persist(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	snapshot := c.buildSnapshot()

	c.storeMu.Lock()
	err := c.store.Save(ctx, snapshot)
	c.storeMu.Unlock()

	if err != nil {
		c.metrics.snapshotFailures.Add(ctx, 1)
		c.logger.Error("snapshot save failed", zap.Error(err))
	}
}

func (c *Coordinator) buildSnapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	records := make([]TransactionRecord, 0, len(c.active)+len(c.history))

	for _, mt := range c.active {
		mt.mu.Lock()
		records = append(records, encodeTransaction(mt.tx))
		mt.mu.Unlock()
	}

	for _, tx := range c.history {
		records = append(records, encodeTransaction(tx))
	}

	return &Snapshot{Transactions: records}
}
