package sagatx

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
)

// ErrorHandler reacts to a failed step. It must not panic and has no error
// to return: whatever goes wrong while handling is its own business, so the
// caller of Execute only ever sees the original step error.
type ErrorHandler[T any] interface {
	HandleError(ctx context.Context, err error, tc *TransactionContext[T])
}

// DefaultErrorHandler logs the failure and compensates every successful step,
// most recent first. A compensation failure is logged and recorded on the
// transaction and does not stop the remaining compensations.
type DefaultErrorHandler[T any] struct {
	logger  Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// NewDefaultErrorHandler creates a DefaultErrorHandler logging to logger.
func NewDefaultErrorHandler[T any](logger Logger) *DefaultErrorHandler[T] {
	if logger == nil {
		logger = NopLogger{}
	}
	return &DefaultErrorHandler[T]{
		logger: logger,
		tracer: defaultTracer(),
	}
}

// instrument attaches the engine's metrics and tracer.
func (h *DefaultErrorHandler[T]) instrument(metrics *Metrics, tracer trace.Tracer) {
	h.metrics = metrics
	if tracer != nil {
		h.tracer = tracer
	}
}

// HandleError implements the ErrorHandler interface for DefaultErrorHandler.
func (h *DefaultErrorHandler[T]) HandleError(ctx context.Context, err error, tc *TransactionContext[T]) {
	h.logger.Error("Saga transaction failed", err)
	_ = h.compensate(ctx, tc)
}

// compensate undoes the successful steps of tc in reverse order and returns
// the compensation errors of this pass.
func (h *DefaultErrorHandler[T]) compensate(ctx context.Context, tc *TransactionContext[T]) error {
	return h.compensateEntries(ctx, tc, tc.successfulEntries())
}

func (h *DefaultErrorHandler[T]) compensateEntries(ctx context.Context, tc *TransactionContext[T], entries []stepEntry[T]) error {
	ctx = contextWithTransaction(ctx, tc)

	var errs error
	for _, entry := range entries {
		if err := h.compensateStep(ctx, tc, entry); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (h *DefaultErrorHandler[T]) compensateStep(ctx context.Context, tc *TransactionContext[T], entry stepEntry[T]) error {
	name := entry.step.Name()
	h.logger.Debug(fmt.Sprintf("Compensating step: %s", name))
	h.journal(tc, entry.position, name, EventUndoStarted, nil)

	ctx, span := h.tracer.Start(ctx, spanCompensate, trace.WithAttributes(
		attrTransactionID.String(tc.ID.String()),
		attrStepName.String(name),
		attrStepPosition.Int(entry.position),
	))
	err := safeCall(name, func() error {
		return entry.step.Compensate(ctx, tc.Data)
	})
	endSpan(span, err)
	h.metrics.observeCompensation(name, err)

	if err != nil {
		h.logger.Error(fmt.Sprintf("Compensation failed for step %s", name), err)
		h.journal(tc, entry.position, name, EventUndoFailed, err)
		compErr := &CompensationError{StepName: name, Err: err}
		tc.addCompensationErr(compErr)
		return compErr
	}
	h.journal(tc, entry.position, name, EventUndoFinished, nil)
	return nil
}

func (h *DefaultErrorHandler[T]) journal(tc *TransactionContext[T], position int, name string, eventType EventType, err error) {
	if recErr := tc.journal.Record(position, name, eventType, err); recErr != nil {
		h.logger.Warn(fmt.Sprintf("Journal rejected event: %v", recErr))
	}
}

// safeCall runs fn and turns a panic into a *PanicError.
func safeCall(stepName string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{StepName: stepName, Value: r}
		}
	}()
	return fn()
}
