// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"time"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
)

// WithTimeout runs fn under a deadline. A zero duration disables the bound.
// fn receives the derived context and is expected to honour it; the result is
// abandoned with CodeTimeout when the deadline passes first.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := fn(ctx)
		done <- result{value, err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		if ctx.Err() == context.DeadlineExceeded {
			return zero, errors.New(errors.CodeTimeout, "operation exceeded timeout", ctx.Err()).
				WithContext("timeout", d.String()).
				WithRecoverable(true)
		}
		return zero, ctx.Err()
	case res := <-done:
		return res.value, res.err
	}
}
