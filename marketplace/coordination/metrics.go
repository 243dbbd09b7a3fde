package coordination

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type coordinatorMetrics struct {
	transactionsStarted   metric.Int64Counter
	transactionsCompleted metric.Int64Counter
	transactionsFailed    metric.Int64Counter
	transactionsCancelled metric.Int64Counter
	stepsExecuted         metric.Int64Counter
	stepsFailed           metric.Int64Counter
	snapshotFailures      metric.Int64Counter
	transactionDuration   metric.Float64Histogram
}

func newCoordinatorMetrics(provider metric.MeterProvider) (coordinatorMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	meter := provider.Meter("marketplace.coordination")

	var (
		metrics coordinatorMetrics
		err     error
	)

	metrics.transactionsStarted, err = meter.Int64Counter(
		"coordination.transactions.started",
		metric.WithDescription("Number of transactions initiated"),
		metric.WithUnit("{transaction}"),
	)
	if err != nil {
		return coordinatorMetrics{}, fmt.Errorf("create coordination.transactions.started counter: %w", err)
	}

	metrics.transactionsCompleted, err = meter.Int64Counter(
		"coordination.transactions.completed",
		metric.WithDescription("Number of transactions that completed every step"),
		metric.WithUnit("{transaction}"),
	)
	if err != nil {
		return coordinatorMetrics{}, fmt.Errorf("create coordination.transactions.completed counter: %w", err)
	}

	metrics.transactionsFailed, err = meter.Int64Counter(
		"coordination.transactions.failed",
		metric.WithDescription("Number of transactions that ended with a failed step"),
		metric.WithUnit("{transaction}"),
	)
	if err != nil {
		return coordinatorMetrics{}, fmt.Errorf("create coordination.transactions.failed counter: %w", err)
	}

	metrics.transactionsCancelled, err = meter.Int64Counter(
		"coordination.transactions.cancelled",
		metric.WithDescription("Number of transactions cancelled before completion"),
		metric.WithUnit("{transaction}"),
	)
	if err != nil {
		return coordinatorMetrics{}, fmt.Errorf("create coordination.transactions.cancelled counter: %w", err)
	}

	metrics.stepsExecuted, err = meter.Int64Counter(
		"coordination.steps.executed",
		metric.WithDescription("Number of steps that completed successfully"),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		return coordinatorMetrics{}, fmt.Errorf("create coordination.steps.executed counter: %w", err)
	}

	metrics.stepsFailed, err = meter.Int64Counter(
		"coordination.steps.failed",
		metric.WithDescription("Number of steps whose handler returned an error"),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		return coordinatorMetrics{}, fmt.Errorf("create coordination.steps.failed counter: %w", err)
	}

	metrics.snapshotFailures, err = meter.Int64Counter(
		"coordination.snapshot.failures",
		metric.WithDescription("Number of snapshot writes that failed; in-memory state stands"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return coordinatorMetrics{}, fmt.Errorf("create coordination.snapshot.failures counter: %w", err)
	}

	metrics.transactionDuration, err = meter.Float64Histogram(
		"coordination.transaction.duration",
		metric.WithDescription("Time from initiation to terminal status"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return coordinatorMetrics{}, fmt.Errorf("create coordination.transaction.duration histogram: %w", err)
	}

	return metrics, nil
}
