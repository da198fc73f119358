// Package retry provides exponential backoff retry logic for lending
// operations that fail on transient store contention. Callers wrap an
// engine call in Do and only lending.ErrStoreContention is retried, all
// other errors fail fast.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/bookhaven/lending-go/lending"
)

const (
	defaultMaxAttempts  = 6
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

// Metric names recorded when a metrics collector is configured.
const (
	RetriesMetric           = "lending_retries_total"
	RetryDelayMetric        = "lending_retry_delay_seconds"
	MaxRetriesReachedMetric = "lending_max_retries_reached_total"
)

const (
	labelOperation     = "operation"
	labelAttemptNumber = "attempt_number"
	labelErrorType     = "error_type"
	labelFinalError    = "final_error_type"
)

var (
	// ErrNilMetricsCollector is returned when a nil metrics collector is provided to WithMetrics.
	ErrNilMetricsCollector = errors.New("metrics collector must not be nil")

	// ErrEmptyOperation is returned when an empty operation name is provided to WithMetrics.
	ErrEmptyOperation = errors.New("operation must not be empty")

	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// RetryableFunc represents a function that can be retried.
type RetryableFunc func(ctx context.Context) error

// config holds configuration for exponential backoff retry logic.
type config struct {
	maxAttempts      int
	baseDelay        time.Duration
	jitterFactor     float64
	metricsCollector lending.MetricsCollector
	operation        string
}

// Option configures retry behavior using the functional options pattern.
type Option func(*config) error

// WithMaxAttempts sets the maximum number of retry attempts.
func WithMaxAttempts(attempts int) Option {
	return func(c *config) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		c.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
// Actual delays: baseDelay, baseDelay*2, baseDelay*4, baseDelay*8, etc.
func WithBaseDelay(delay time.Duration) Option {
	return func(c *config) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		c.baseDelay = delay

		return nil
	}
}

// WithJitterFactor sets the jitter factor to prevent thundering herd problems.
// Jitter is added as a percentage of the calculated backoff delay.
// Valid range: 0.0 (no jitter) to 1.0 (100% jitter).
func WithJitterFactor(factor float64) Option {
	return func(c *config) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		c.jitterFactor = factor

		return nil
	}
}

// WithMetrics sets the metrics collector for retry instrumentation.
// Requires an operation name to properly label metrics.
func WithMetrics(collector lending.MetricsCollector, operation string) Option {
	return func(c *config) error {
		if collector == nil {
			return ErrNilMetricsCollector
		}

		if operation == "" {
			return ErrEmptyOperation
		}

		c.metricsCollector = collector
		c.operation = operation

		return nil
	}
}

// Do executes the provided function with exponential backoff retry logic,
// retrying only on store contention up to maxAttempts times.
//
// Retry Schedule (default): 0 ms, 10 ms, 20 ms, 40 ms, 80 ms (with 30% jitter)
// Total Duration: ~ 200 ms worst case
//
// Only lending.ErrStoreContention is retried - all other errors fail fast.
// A context.DeadlineExceeded is NOT retryable - retrying timeouts during
// overload creates cascade failures, so they fail fast instead.
func Do(ctx context.Context, fn RetryableFunc, options ...Option) error {
	cfg := &config{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}

	for _, option := range options {
		if err := option(cfg); err != nil {
			return err
		}
	}

	var lastErr error

	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if attempt > 0 {
			// Exponential backoff: baseDelay * 2^(attempt-1)
			delay := cfg.baseDelay * time.Duration(1<<(attempt-1))

			// Add jitter to prevent thundering herd
			jitter := rand.Float64() * float64(delay) * cfg.jitterFactor //nolint:gosec //math/rand is sufficient for jitter
			backoffDelay := delay + time.Duration(jitter)

			recordRetryDelayMetric(ctx, cfg, attempt, backoffDelay)

			select {
			case <-time.After(backoffDelay):
				// Continue with retry
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !isRetryableError(lastErr) {
			return lastErr
		}

		recordRetryAttemptMetric(ctx, attempt, cfg, lastErr)
	}

	recordMaxRetriesReachedMetric(ctx, cfg, lastErr)

	return lastErr
}

// recordRetryDelayMetric records the actual backoff delay before each retry attempt.
func recordRetryDelayMetric(ctx context.Context, cfg *config, attempt int, backoffDelay time.Duration) {
	if cfg.metricsCollector == nil {
		return
	}

	delayLabels := map[string]string{
		labelOperation:     cfg.operation,
		labelAttemptNumber: fmt.Sprintf("%d", attempt),
	}

	if contextualCollector, ok := cfg.metricsCollector.(lending.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, RetryDelayMetric, backoffDelay, delayLabels)
	} else {
		cfg.metricsCollector.RecordDuration(RetryDelayMetric, backoffDelay, delayLabels)
	}
}

// recordRetryAttemptMetric tracks retry attempts by operation, attempt number, and error type.
func recordRetryAttemptMetric(ctx context.Context, attempt int, cfg *config, lastErr error) {
	if attempt >= cfg.maxAttempts-1 || cfg.metricsCollector == nil {
		return
	}

	retryLabels := map[string]string{
		labelOperation:     cfg.operation,
		labelAttemptNumber: fmt.Sprintf("%d", attempt+1),
		labelErrorType:     errorType(lastErr),
	}

	if contextualCollector, ok := cfg.metricsCollector.(lending.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, RetriesMetric, retryLabels)
	} else {
		cfg.metricsCollector.IncrementCounter(RetriesMetric, retryLabels)
	}
}

// recordMaxRetriesReachedMetric tracks when retry exhaustion occurs with the final error type.
func recordMaxRetriesReachedMetric(ctx context.Context, cfg *config, lastErr error) {
	if cfg.metricsCollector == nil {
		return
	}

	maxRetriesLabels := map[string]string{
		labelOperation:  cfg.operation,
		labelFinalError: errorType(lastErr),
	}

	if contextualCollector, ok := cfg.metricsCollector.(lending.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, MaxRetriesReachedMetric, maxRetriesLabels)
	} else {
		cfg.metricsCollector.IncrementCounter(MaxRetriesReachedMetric, maxRetriesLabels)
	}
}

// isRetryableError determines if an error should be retried.
// Only transient store contention is considered retryable.
func isRetryableError(err error) bool {
	return errors.Is(err, lending.ErrStoreContention)
}

// errorType extracts a string representation of the error type for metrics labeling.
func errorType(err error) string {
	if err == nil {
		return "none"
	}
	if errors.Is(err, lending.ErrStoreContention) {
		return "store_contention"
	}
	if errors.Is(err, context.Canceled) {
		return "context_canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "context_deadline_exceeded"
	}

	return "other"
}
