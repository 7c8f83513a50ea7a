package sagatx

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"
)

type options struct {
	logger       Logger
	errorHandler any
	stopOnError  bool
	metrics      *Metrics
	tracer       trace.Tracer
}

// Option configures a Saga.
type Option func(*options)

// WithLogger sets the logger used by the engine and the default error handler.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithErrorHandler replaces the default compensating error handler. The
// handler's type parameter must match the Saga's.
func WithErrorHandler[T any](handler ErrorHandler[T]) Option {
	return func(o *options) {
		o.errorHandler = handler
	}
}

// WithStopOnError controls whether a failed step aborts the saga (the
// default) or is compensated and then skipped over.
func WithStopOnError(stop bool) Option {
	return func(o *options) {
		o.stopOnError = stop
	}
}

// WithMetrics records executions, steps and compensations on m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracer emits a span per execution, step and compensation.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// Saga executes a list of steps in order and compensates the successful ones
// when a step fails.
//
// A Saga holds no per-execution state and may be shared between goroutines;
// every Execute call gets its own TransactionContext.
type Saga[T any] struct {
	logger       Logger
	errorHandler ErrorHandler[T]
	compensator  *DefaultErrorHandler[T]
	stopOnError  bool
	metrics      *Metrics
	tracer       trace.Tracer
}

// New creates a Saga. It panics if WithErrorHandler was given a handler for a
// different data type.
func New[T any](opts ...Option) *Saga[T] {
	o := options{stopOnError: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = NewDefaultLogger()
	}
	if o.tracer == nil {
		o.tracer = defaultTracer()
	}

	compensator := NewDefaultErrorHandler[T](o.logger)
	compensator.instrument(o.metrics, o.tracer)

	var handler ErrorHandler[T] = compensator
	if o.errorHandler != nil {
		h, ok := o.errorHandler.(ErrorHandler[T])
		if !ok {
			panic(fmt.Sprintf("sagatx: error handler %T does not match the saga data type", o.errorHandler))
		}
		if d, isDefault := h.(*DefaultErrorHandler[T]); isDefault {
			// instrument a copy; the caller's handler is left untouched
			c := *d
			c.instrument(o.metrics, o.tracer)
			compensator = &c
			h = &c
		}
		handler = h
	}

	return &Saga[T]{
		logger:       o.logger,
		errorHandler: handler,
		compensator:  compensator,
		stopOnError:  o.stopOnError,
		metrics:      o.metrics,
		tracer:       o.tracer,
	}
}

// Execute runs steps in order against data.
//
// It returns the original error of the failing step when the saga stops on
// errors; the successful steps have been compensated by then. A step that
// skips itself halts the saga without an error. The TransactionContext is
// returned on every path.
func (s *Saga[T]) Execute(ctx context.Context, data T, steps []Step[T]) (*TransactionContext[T], error) {
	return s.ExecuteWithMetadata(ctx, data, nil, steps)
}

// ExecuteWithMetadata is Execute with metadata attached to the transaction.
func (s *Saga[T]) ExecuteWithMetadata(ctx context.Context, data T, metadata map[string]any, steps []Step[T]) (*TransactionContext[T], error) {
	if ctx == nil {
		ctx = context.Background()
	}
	tc := NewTransactionContext(data, metadata)
	ctx = contextWithTransaction(ctx, tc)

	ctx, span := s.tracer.Start(ctx, spanExecute, trace.WithAttributes(
		attrTransactionID.String(tc.ID.String()),
		attrStepCount.Int(len(steps)),
	))

	outcome, err := s.run(ctx, tc, steps)

	tc.finish()
	span.SetAttributes(attrOutcome.String(outcome))
	endSpan(span, err)
	s.metrics.observeExecution(outcome, tc.Duration())
	return tc, err
}

func (s *Saga[T]) run(ctx context.Context, tc *TransactionContext[T], steps []Step[T]) (string, error) {
	failures := 0
	for i, step := range steps {
		if tc.Halted() {
			s.logger.Debug(fmt.Sprintf("Saga halted by step %s, not scheduling remaining steps", tc.HaltedBy()))
			break
		}
		if err := s.executeStep(ctx, tc, i, step); err != nil {
			if s.stopOnError {
				return OutcomeFailed, err
			}
			failures++
			s.logger.Warn(fmt.Sprintf("Continuing after failed step: %s", step.Name()))
		}
	}

	switch {
	case failures > 0:
		return OutcomeDegraded, nil
	case tc.Halted():
		return OutcomeHalted, nil
	default:
		return OutcomeCompleted, nil
	}
}

// executeStep invokes one step. It returns an error only for a real failure,
// after the error handler has run.
func (s *Saga[T]) executeStep(ctx context.Context, tc *TransactionContext[T], position int, step Step[T]) error {
	name := step.Name()
	s.logger.Debug(fmt.Sprintf("Executing step: %s", name))
	s.journal(tc, position, name, EventStarted, nil)

	stepCtx, span := s.tracer.Start(ctx, spanStep, trace.WithAttributes(
		attrStepName.String(name),
		attrStepPosition.Int(position),
	))
	err := safeCall(name, func() error {
		return step.Invoke(stepCtx, tc.Data)
	})
	endSpan(span, err)

	switch {
	case err == nil:
		tc.addSuccessful(position, step)
		s.journal(tc, position, name, EventSucceeded, nil)
		s.metrics.observeStep(name, stepSucceeded)
		s.logger.Log(fmt.Sprintf("Successfully completed step: %s", name))
		return nil

	case IsSkip(err):
		tc.halt(name)
		s.journal(tc, position, name, EventSkipped, nil)
		s.metrics.observeStep(name, stepSkipped)
		s.logger.Log(fmt.Sprintf("Step %s skipped, halting saga", name))
		return nil

	default:
		s.journal(tc, position, name, EventFailed, err)
		s.metrics.observeStep(name, stepFailed)
		s.handleStepError(ctx, name, err, tc)
		return err
	}
}

func (s *Saga[T]) handleStepError(ctx context.Context, stepName string, err error, tc *TransactionContext[T]) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(fmt.Sprintf("Error handler panicked while handling step %s", stepName), &PanicError{StepName: stepName, Value: r})
		}
	}()
	s.errorHandler.HandleError(ctx, err, tc)
}

// Rollback compensates the successful steps of a finished transaction, most
// recent first, as if the saga had failed after its last step. Steps the error
// handler already compensated are not undone again; when nothing is left to
// undo it returns ErrAlreadyCompensated. Compensation failures do not stop the
// rollback and are returned combined. Rollback may be called at most once per
// transaction; concurrent calls are safe and all but one get
// ErrAlreadyRolledBack.
func (s *Saga[T]) Rollback(ctx context.Context, tc *TransactionContext[T]) error {
	entries, err := tc.beginRollback()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.logger.Log(fmt.Sprintf("Rolling back transaction %s", tc.ID))
	if err := s.compensator.compensateEntries(ctx, tc, entries); err != nil {
		s.logger.Warn(fmt.Sprintf("Rollback of transaction %s finished with errors", tc.ID))
		return err
	}
	return nil
}

func (s *Saga[T]) journal(tc *TransactionContext[T], position int, name string, eventType EventType, err error) {
	if recErr := tc.journal.Record(position, name, eventType, err); recErr != nil {
		s.logger.Warn(fmt.Sprintf("Journal rejected event: %v", recErr))
	}
}
