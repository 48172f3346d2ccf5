package retry

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/code-payments/escrow-server/pkg/retry/backoff"
)

func TestLimit(t *testing.T) {
	strategy := Limit(3)
	assert.True(t, strategy(1, errors.New("err")))
	assert.True(t, strategy(2, errors.New("err")))
	assert.False(t, strategy(3, errors.New("err")))

	attempts, err := Retry(func() error {
		return errors.New("err")
	}, Limit(3))
	assert.EqualError(t, err, "err")
	assert.EqualValues(t, 3, attempts)
}

func TestRetriableWhen(t *testing.T) {
	errConflict := errors.New("conflict")
	strategy := RetriableWhen(func(err error) bool {
		return errors.Is(err, errConflict)
	})

	assert.True(t, strategy(1, errConflict))
	assert.True(t, strategy(1, errors.Wrap(errConflict, "commit")))
	assert.False(t, strategy(1, errors.New("other")))
}

func TestRetriableGRPCCodes(t *testing.T) {
	strategy := RetriableGRPCCodes(codes.Unavailable, codes.Aborted)

	assert.True(t, strategy(1, status.Error(codes.Unavailable, "down")))
	assert.True(t, strategy(1, status.Error(codes.Aborted, "conflict")))
	assert.False(t, strategy(1, status.Error(codes.InvalidArgument, "bad")))
	assert.False(t, strategy(1, errors.New("plain")))
}

func TestContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	strategy := Context(ctx)
	assert.True(t, strategy(1, errors.New("err")))

	cancel()
	assert.False(t, strategy(2, errors.New("err")))
}

func TestBackoff(t *testing.T) {
	sleeps := useTestSleeper(t)

	strategy := Backoff(backoff.BinaryExponential(10*time.Millisecond), 30*time.Millisecond)
	for attempts := uint(1); attempts <= 4; attempts++ {
		assert.True(t, strategy(attempts, errors.New("err")))
	}

	assert.Equal(t, []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
		30 * time.Millisecond,
	}, sleeps.durations)
}

func TestBackoffWithJitter(t *testing.T) {
	sleeps := useTestSleeper(t)

	delay := 100 * time.Millisecond
	strategy := BackoffWithJitter(backoff.Constant(time.Second), delay, 0.1)
	for i := 0; i < 1000; i++ {
		require.True(t, strategy(1, errors.New("err")))
	}

	var total time.Duration
	for _, d := range sleeps.durations {
		assert.GreaterOrEqual(t, d, 90*time.Millisecond)
		assert.LessOrEqual(t, d, 110*time.Millisecond)
		total += d
	}
	assert.InDelta(t, float64(delay), float64(total)/float64(len(sleeps.durations)), 0.02*float64(delay))
}

type testSleeper struct {
	durations []time.Duration
}

func (s *testSleeper) Sleep(d time.Duration) {
	s.durations = append(s.durations, d)
}

func useTestSleeper(t *testing.T) *testSleeper {
	s := &testSleeper{}
	sleeperImpl = s
	t.Cleanup(func() { sleeperImpl = realSleeper{} })
	return s
}
