// Package retry runs an attempt function until its result is acceptable or
// the attempt budget is spent.
package retry

import "context"

type Policy[T any] struct {
	MaxAttempts int
	// ShouldRetry reports whether a successful result is worth another try.
	ShouldRetry func(T) bool
}

// Do calls attempt up to MaxAttempts times (at least once). Errors are
// returned immediately without retrying. The last result is returned when
// every attempt asked for a retry.
func (p Policy[T]) Do(ctx context.Context, attempt func(ctx context.Context, n int) (T, error)) (T, error) {
	var (
		res T
		err error
	)
	for n := 1; ; n++ {
		res, err = attempt(ctx, n)
		if err != nil {
			return res, err
		}
		if p.ShouldRetry == nil || !p.ShouldRetry(res) || n >= p.MaxAttempts {
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}
}
