package sagatx

import (
	"context"

	"github.com/google/uuid"
)

// Predicate decides at run time whether a gated step should run. It receives
// the wrapped step and the saga data.
type Predicate[T any] func(ctx context.Context, step Step[T], data T) (bool, error)

// When adapts a plain condition on the saga data into a Predicate.
func When[T any](cond func(data T) bool) Predicate[T] {
	return func(_ context.Context, _ Step[T], data T) (bool, error) {
		return cond(data), nil
	}
}

// GatedStep wraps a step so that it can opt out of running.
//
// Before Invoke, the predicate is evaluated against the live data. If it
// returns false the inner step is not invoked, the saga halts without
// compensating anything, and a later Compensate call on the gate in the same
// transaction does nothing. If the predicate returns an error, that error is
// treated exactly like a failure of the step itself.
type GatedStep[T any] struct {
	inner     Step[T]
	predicate Predicate[T]
	id        string
}

// NewGatedStep wraps inner. A nil predicate lets every call through.
func NewGatedStep[T any](inner Step[T], predicate Predicate[T]) *GatedStep[T] {
	return &GatedStep[T]{
		inner:     inner,
		predicate: predicate,
		id:        uuid.NewString(),
	}
}

// Name returns the wrapped step's name.
func (g *GatedStep[T]) Name() string {
	return g.inner.Name()
}

// Unwrap returns the wrapped step.
func (g *GatedStep[T]) Unwrap() Step[T] {
	return g.inner
}

// Invoke implements the Step interface for GatedStep.
func (g *GatedStep[T]) Invoke(ctx context.Context, data T) error {
	if g.predicate != nil {
		ok, err := g.predicate(ctx, g.inner, data)
		if err != nil {
			return err
		}
		if !ok {
			if tx := transactionFromContext(ctx); tx != nil {
				tx.markSkipped(g.id)
			}
			return Skip(g.Name())
		}
	}
	return g.inner.Invoke(ctx, data)
}

// Compensate implements the Step interface for GatedStep.
func (g *GatedStep[T]) Compensate(ctx context.Context, data T) error {
	if tx := transactionFromContext(ctx); tx != nil && tx.wasSkipped(g.id) {
		return nil
	}
	return g.inner.Compensate(ctx, data)
}
