package tx_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/tx"
)

var errTransient = errors.New("serialization failure")

func isTransient(err error) bool { return errors.Is(err, errTransient) }

func fastPolicy(attempts int) tx.RetryPolicy {
	return tx.RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Microsecond, MaxDelay: time.Millisecond}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	retries := 0

	err := tx.Retry(context.Background(), fastPolicy(5), isTransient,
		func(int, error) { retries++ },
		func(context.Context) error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retries)
}

func TestRetry_StopsOnBusinessError(t *testing.T) {
	businessErr := errors.New("insufficient stock")
	calls := 0

	err := tx.Retry(context.Background(), fastPolicy(5), isTransient, nil,
		func(context.Context) error {
			calls++
			return businessErr
		})

	assert.ErrorIs(t, err, businessErr)
	assert.Equal(t, 1, calls)
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0

	err := tx.Retry(context.Background(), fastPolicy(3), isTransient, nil,
		func(context.Context) error {
			calls++
			return errTransient
		})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
}

func TestRetry_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	policy := tx.RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour}
	err := tx.Retry(ctx, policy, isTransient, nil, func(context.Context) error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := tx.RetryPolicy{BaseDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond}

	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, 10*time.Millisecond, p.Delay(1))
	assert.Equal(t, 20*time.Millisecond, p.Delay(2))
	assert.Equal(t, 40*time.Millisecond, p.Delay(3))
	assert.Equal(t, 50*time.Millisecond, p.Delay(4))
	assert.Equal(t, 50*time.Millisecond, p.Delay(10))
}
