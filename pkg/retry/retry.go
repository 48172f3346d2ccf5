package retry

import (
	"context"
)

// Action is a function to be performed in a retriable manner.
type Action func() error

// Retry executes the provided action, potentially multiple times based off of
// the provided strategies. Retry blocks until the action succeeds, or one of
// the strategies indicates no further retries should be performed.
//
// Strategies are evaluated in order, so any that induce delays should be
// specified last.
func Retry(action Action, strategies ...Strategy) (uint, error) {
	for i := uint(1); ; i++ {
		err := action()
		if err == nil {
			return i, nil
		}

		for _, s := range strategies {
			if shouldRetry := s(i, err); !shouldRetry {
				return i, err
			}
		}
	}
}

// RetryWithContext is Retry bound to a context. No attempt is made once ctx is
// done, in which case the context's error is returned.
func RetryWithContext(ctx context.Context, action Action, strategies ...Strategy) (uint, error) {
	return Retry(
		func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return action()
		},
		append([]Strategy{Context(ctx)}, strategies...)...,
	)
}
