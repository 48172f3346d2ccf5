package retry

import (
	"context"
	"math/rand"
	"slices"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/code-payments/escrow-server/pkg/retry/backoff"
)

// Strategy decides whether a failed action is attempted again. A strategy may
// block, which is how delays between attempts are implemented.
type Strategy func(attempts uint, err error) bool

// Limit allows at most maxAttempts executions of the action.
func Limit(maxAttempts uint) Strategy {
	return func(attempts uint, _ error) bool {
		return attempts < maxAttempts
	}
}

// RetriableWhen retries only errors matched by isRetriable.
func RetriableWhen(isRetriable func(error) bool) Strategy {
	return func(_ uint, err error) bool {
		return isRetriable(err)
	}
}

// RetriableGRPCCodes retries only errors carrying one of the given status codes.
func RetriableGRPCCodes(retriableCodes ...codes.Code) Strategy {
	return RetriableWhen(func(err error) bool {
		return slices.Contains(retriableCodes, status.Code(err))
	})
}

// Context stops retrying once ctx is done.
func Context(ctx context.Context) Strategy {
	return func(uint, error) bool {
		return ctx.Err() == nil
	}
}

// Backoff sleeps for the strategy's delay, capped at maxBackoff, and then
// allows the retry.
func Backoff(strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	capped := backoff.Capped(strategy, maxBackoff)
	return func(attempts uint, _ error) bool {
		sleeperImpl.Sleep(capped(attempts))
		return true
	}
}

// BackoffWithJitter is Backoff with the capped delay randomly spread by
// +/- jitter, expressed as a fraction of the delay.
func BackoffWithJitter(strategy backoff.Strategy, maxBackoff time.Duration, jitter float64) Strategy {
	capped := backoff.Capped(strategy, maxBackoff)
	return func(attempts uint, _ error) bool {
		scale := 1 + jitter*(2*rand.Float64()-1)
		sleeperImpl.Sleep(time.Duration(float64(capped(attempts)) * scale))
		return true
	}
}

type sleeper interface {
	Sleep(time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

var sleeperImpl sleeper = realSleeper{}
