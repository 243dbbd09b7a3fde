package coordination

import (
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultPollInterval = 250 * time.Millisecond

// Config controls run-loop polling and step execution behavior.
type Config struct {
	// PollInterval is how long a run loop waits when no step is ready but
	// the transaction is not yet terminal.
	PollInterval time.Duration
	// StepTimeout bounds each handler invocation with a context deadline.
	// Zero means no timeout, which matches the component's original
	// behavior: a handler that never returns stalls its transaction.
	StepTimeout time.Duration
	// MeterProvider overrides the default global meter provider when set.
	MeterProvider metric.MeterProvider
}

// DefaultConfig returns the baseline coordinator configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval: defaultPollInterval,
		StepTimeout:  0,
	}
}

func (cfg *Config) normalize() {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	if cfg.StepTimeout < 0 {
		cfg.StepTimeout = 0
	}
}

// Option mutates coordinator configuration at construction.
type Option func(*Coordinator)

// WithPollInterval sets the run-loop polling interval.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Coordinator) {
		if interval > 0 {
			c.cfg.PollInterval = interval
		}
	}
}

// WithStepTimeout sets a deadline applied to every handler invocation.
func WithStepTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		if timeout > 0 {
			c.cfg.StepTimeout = timeout
		}
	}
}

// WithLogger injects a structured logger. Defaults to a nop logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer injects an OpenTelemetry tracer. Defaults to a noop tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Coordinator) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithMeterProvider injects a custom meter provider for coordinator
// metrics. Passing nil keeps the default global provider.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(c *Coordinator) {
		c.cfg.MeterProvider = provider
	}
}

// WithClock injects the time source. Used by tests to pin timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator injects the transaction id source. Used by tests to pin
// identifiers.
func WithIDGenerator(newID func() string) Option {
	return func(c *Coordinator) {
		if newID != nil {
			c.newID = newID
		}
	}
}
