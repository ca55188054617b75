// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	stderrors "errors"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
)

// Step is one alternative in a fallback chain.
type Step[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
	// Accept rejects a successful but unusable value (for example an empty
	// result list) so the next step is tried. Nil accepts everything.
	Accept func(T) bool
}

// ErrNoAcceptableResult is returned when a step succeeds with a rejected value.
var ErrNoAcceptableResult = errors.New(errors.CodeToolFailure, "no acceptable result", nil).WithRecoverable(true)

// Fallback tries steps in order and returns the first accepted value.
// Fatal errors and cancellation stop the chain immediately.
func Fallback[T any](ctx context.Context, steps ...Step[T]) (T, error) {
	var zero T
	var errs []error
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		value, err := step.Run(ctx)
		if err != nil {
			if errors.IsFatal(err) {
				return zero, err
			}
			errs = append(errs, errors.New(errors.CodeToolFailure, step.Name, err))
			continue
		}
		if step.Accept != nil && !step.Accept(value) {
			errs = append(errs, errors.New(errors.CodeToolFailure, step.Name, ErrNoAcceptableResult))
			continue
		}
		return value, nil
	}
	if len(errs) == 0 {
		return zero, ErrNoAcceptableResult
	}
	return zero, stderrors.Join(errs...)
}
