package engine

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/untoldecay/InstructionLog/internal/storage"
)

// DefaultRetryAttempts bounds RetryOnConflict.
const DefaultRetryAttempts = 5

// RetryOnConflict calls fn until it succeeds, fails with an error other
// than ErrVersionConflict, or attempts are exhausted. The engine itself
// never retries; callers opt in.
func RetryOnConflict[T any](ctx context.Context, attempts int, fn func() (T, error)) (T, error) {
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond

	return backoff.Retry(ctx, func() (T, error) {
		v, err := fn()
		if err != nil && !errors.Is(err, storage.ErrVersionConflict) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(attempts)))
}
