package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Huddle/internal/core"
)

// CallProvider runs one provider operation with a bounded wait. It returns
// once fn does or once the deadline passes, whichever is first, so a
// provider that ignores its context cannot stall the caller. A result that
// arrives after the deadline is dropped; the provider-side resource is left
// to the provider's own cleanup.
func CallProvider[T any](ctx context.Context, timeout time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v: v, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil {
			return res.v, nil
		}
		return zero, classify(op, res.err)
	case <-ctx.Done():
		return zero, classify(op, ctx.Err())
	}
}

func classify(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, core.ErrProviderTimeout)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	case core.IsCallerError(err), errors.Is(err, core.ErrProviderFailure):
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, core.ErrProviderFailure, err)
}
