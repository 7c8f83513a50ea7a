package sagatx

import (
	"context"
	"fmt"
)

// Step represents the building blocks of sagas.
//
// T is the shared saga data. It is handed to every Invoke and Compensate call
// as-is, so it is normally a pointer that steps mutate in place.
type Step[T any] interface {
	Name() string
	Invoke(ctx context.Context, data T) error
	Compensate(ctx context.Context, data T) error
}

type InvokeFunc[T any] func(ctx context.Context, data T) error
type CompensateFunc[T any] func(ctx context.Context, data T) error

// StepFunc is an implementation of Step that uses ordinary functions.
type StepFunc[T any] struct {
	name           string
	invokeFunc     InvokeFunc[T]
	compensateFunc CompensateFunc[T]
}

// NewStepFunc constructs a new StepFunc from a pair of functions.
func NewStepFunc[T any](name string, invokeFunc InvokeFunc[T], compensateFunc CompensateFunc[T]) *StepFunc[T] {
	if compensateFunc == nil {
		compensateFunc = NoOpCompensate[T]
	}
	return &StepFunc[T]{
		name:           name,
		invokeFunc:     invokeFunc,
		compensateFunc: compensateFunc,
	}
}

func NoOpCompensate[T any](_ context.Context, _ T) error {
	return nil
}

// NewStepFuncWithNoOpCompensate constructs a new StepFunc whose compensation does nothing.
func NewStepFuncWithNoOpCompensate[T any](name string, invokeFunc InvokeFunc[T]) *StepFunc[T] {
	return NewStepFunc(name, invokeFunc, NoOpCompensate[T])
}

// Invoke implements the Step interface for StepFunc.
func (sf *StepFunc[T]) Invoke(ctx context.Context, data T) error {
	if sf.invokeFunc == nil {
		return nil
	}
	return sf.invokeFunc(ctx, data)
}

// Compensate implements the Step interface for StepFunc.
func (sf *StepFunc[T]) Compensate(ctx context.Context, data T) error {
	return sf.compensateFunc(ctx, data)
}

// Name implements the Step interface for StepFunc.
func (sf *StepFunc[T]) Name() string {
	return sf.name
}

// String implements the fmt.Stringer interface for StepFunc.
func (sf *StepFunc[T]) String() string {
	return fmt.Sprintf("StepFunc[%s]", sf.name)
}
