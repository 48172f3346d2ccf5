package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/code-payments/escrow-server/pkg/retry/backoff"
)

func TestRealSleeper(t *testing.T) {

	start := time.Now()
	n, err := Retry(func() error { return errors.New("err") },
		Limit(2),
		Backoff(backoff.Constant(500*time.Millisecond), 500*time.Millisecond),
	)

	assert.NotNil(t, err)
	assert.EqualValues(t, 2, n)
	assert.True(t, 500*time.Millisecond <= time.Since(start))
	assert.True(t, 1*time.Second > time.Since(start))
}

func TestRetry(t *testing.T) {
	retriableErr := errors.New("retriable")
	strategies := []Strategy{Limit(5), RetriableWhen(func(err error) bool { return errors.Is(err, retriableErr) })}

	attempts, err := Retry(func() error { return nil }, strategies...)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, attempts)

	// Ordering doesn't matter, so trigger one filter and then the other
	attempts, err = Retry(func() error { return errors.New("unknown") }, strategies...)
	assert.Error(t, err)
	assert.EqualValues(t, 1, attempts)

	attempts, err = Retry(func() error { return retriableErr }, strategies...)
	assert.Equal(t, retriableErr, err)
	assert.EqualValues(t, 5, attempts)
}

func TestRetryWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls int
	attempts, err := RetryWithContext(ctx, func() error {
		calls++
		if calls == 3 {
			cancel()
		}
		return errors.New("failed")
	}, Limit(10))
	assert.EqualError(t, err, "failed")
	assert.EqualValues(t, 3, attempts)
	assert.Equal(t, 3, calls)

	calls = 0
	_, err = RetryWithContext(ctx, func() error {
		calls++
		return nil
	})
	assert.Equal(t, context.Canceled, err)
	assert.Zero(t, calls)

	attempts, err = RetryWithContext(context.Background(), func() error { return nil }, Limit(10))
	assert.NoError(t, err)
	assert.EqualValues(t, 1, attempts)
}
