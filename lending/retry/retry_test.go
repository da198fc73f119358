package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookhaven/lending-go/lending"
	"github.com/bookhaven/lending-go/lending/retry"
	"github.com/bookhaven/lending-go/testutil/observability/testdoubles"
)

func Test_Do_SucceedsOnFirstAttempt(t *testing.T) {
	// arrange
	attempts := 0
	fn := func(ctx context.Context) error {
		attempts++
		return nil
	}

	// act
	err := retry.Do(context.Background(), fn)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func Test_Do_RetriesStoreContentionUntilSuccess(t *testing.T) {
	// arrange
	attempts := 0
	fn := func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.Join(lending.ErrStoreContention, errors.New("serialization failure"))
		}

		return nil
	}

	// act
	err := retry.Do(context.Background(), fn, retry.WithBaseDelay(time.Millisecond))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func Test_Do_NonRetryableErrorFailsFast(t *testing.T) {
	// arrange
	attempts := 0
	fn := func(ctx context.Context) error {
		attempts++
		return lending.ErrNoCopiesAvailable
	}

	// act
	err := retry.Do(context.Background(), fn, retry.WithBaseDelay(time.Millisecond))

	// assert
	assert.ErrorIs(t, err, lending.ErrNoCopiesAvailable)
	assert.Equal(t, 1, attempts, "domain rejections must not be retried")
}

func Test_Do_ExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	// arrange
	attempts := 0
	fn := func(ctx context.Context) error {
		attempts++
		return lending.ErrStoreContention
	}

	// act
	err := retry.Do(context.Background(), fn,
		retry.WithMaxAttempts(3),
		retry.WithBaseDelay(time.Millisecond),
		retry.WithJitterFactor(0))

	// assert
	assert.ErrorIs(t, err, lending.ErrStoreContention)
	assert.Equal(t, 3, attempts)
}

func Test_Do_ContextCancellationStopsBackoff(t *testing.T) {
	// arrange
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	fn := func(ctx context.Context) error {
		attempts++
		cancel()
		return lending.ErrStoreContention
	}

	// act
	err := retry.Do(ctx, fn, retry.WithBaseDelay(time.Hour))

	// assert
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts, "cancellation during backoff must not run the function again")
}

func Test_Do_InvalidOptionsAreRejected(t *testing.T) {
	fn := func(ctx context.Context) error { return nil }

	testCases := []struct {
		name        string
		option      retry.Option
		expectedErr error
	}{
		{
			name:        "zero_max_attempts",
			option:      retry.WithMaxAttempts(0),
			expectedErr: retry.ErrInvalidMaxAttempts,
		},
		{
			name:        "negative_base_delay",
			option:      retry.WithBaseDelay(-time.Millisecond),
			expectedErr: retry.ErrNegativeBaseDelay,
		},
		{
			name:        "jitter_factor_above_one",
			option:      retry.WithJitterFactor(1.5),
			expectedErr: retry.ErrInvalidJitterFactor,
		},
		{
			name:        "nil_metrics_collector",
			option:      retry.WithMetrics(nil, "checkout_book"),
			expectedErr: retry.ErrNilMetricsCollector,
		},
		{
			name:        "empty_operation",
			option:      retry.WithMetrics(testdoubles.NewMetricsCollectorSpy(true), ""),
			expectedErr: retry.ErrEmptyOperation,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			// act
			err := retry.Do(context.Background(), fn, testCase.option)

			// assert
			assert.ErrorIs(t, err, testCase.expectedErr)
		})
	}
}

func Test_Do_RecordsRetryMetrics(t *testing.T) {
	// arrange
	metricsSpy := testdoubles.NewMetricsCollectorSpy(true)
	attempts := 0
	fn := func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return lending.ErrStoreContention
		}

		return nil
	}

	// act
	err := retry.Do(context.Background(), fn,
		retry.WithBaseDelay(time.Millisecond),
		retry.WithMetrics(metricsSpy, "checkout_book"))

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, metricsSpy.CountCounterRecordsForMetric(retry.RetriesMetric))
	assert.Equal(t, 2, metricsSpy.CountDurationRecordsForMetric(retry.RetryDelayMetric))
	assert.True(t, metricsSpy.HasCounterRecordForMetric(retry.RetriesMetric).
		WithOperation("checkout_book").
		WithLabel("attempt_number", "1").
		WithLabel("error_type", "store_contention").
		Assert())
	assert.Equal(t, 0, metricsSpy.CountCounterRecordsForMetric(retry.MaxRetriesReachedMetric))
}

func Test_Do_RecordsMaxRetriesReachedMetric(t *testing.T) {
	// arrange
	metricsSpy := testdoubles.NewMetricsCollectorSpy(true)
	fn := func(ctx context.Context) error {
		return lending.ErrStoreContention
	}

	// act
	err := retry.Do(context.Background(), fn,
		retry.WithMaxAttempts(2),
		retry.WithBaseDelay(time.Millisecond),
		retry.WithMetrics(metricsSpy, "return_book"))

	// assert
	require.ErrorIs(t, err, lending.ErrStoreContention)
	assert.True(t, metricsSpy.HasCounterRecordForMetric(retry.MaxRetriesReachedMetric).
		WithOperation("return_book").
		WithLabel("final_error_type", "store_contention").
		Assert())
}
