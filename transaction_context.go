package sagatx

import (
	"context"
	"sync"
	"time"

	"github.com/fortressi/sagatx/set"
	"github.com/google/uuid"
	"github.com/tidwall/btree"
	"go.uber.org/multierr"
)

// stepEntry is a successful step together with its position in the step list.
type stepEntry[T any] struct {
	position int
	step     Step[T]
}

// TransactionContext is the per-execution record of a saga: the caller's data,
// free-form metadata and the steps that completed successfully.
//
// A TransactionContext is owned by the Execute call that created it and is not
// safe for concurrent use.
type TransactionContext[T any] struct {
	ID   uuid.UUID
	Data T

	metadata *btree.Map[string, any]

	// most-recent-first
	successful []stepEntry[T]

	halted   bool
	haltedBy string
	skipped  *set.Set[string]

	compensationErr error

	rollbackMu sync.Mutex
	rolledBack bool

	journal    *Journal
	startedAt  time.Time
	finishedAt time.Time
}

// NewTransactionContext creates a TransactionContext wrapping data. The
// metadata map is copied; it is not modified afterwards.
func NewTransactionContext[T any](data T, metadata map[string]any) *TransactionContext[T] {
	id := uuid.New()
	md := btree.NewMap[string, any](10)
	for k, v := range metadata {
		md.Set(k, v)
	}
	return &TransactionContext[T]{
		ID:         id,
		Data:       data,
		metadata:   md,
		successful: make([]stepEntry[T], 0),
		skipped:    set.New[string](),
		journal:    NewJournal(id),
		startedAt:  time.Now(),
	}
}

// AddSuccessfulStep records step as the most recent successful step, at the
// position after every step journaled so far. The engine does this itself;
// it is exported for custom drivers and tests.
func (tc *TransactionContext[T]) AddSuccessfulStep(step Step[T]) error {
	position := tc.journal.NextPosition()
	if err := tc.journal.Record(position, step.Name(), EventStarted, nil); err != nil {
		return err
	}
	if err := tc.journal.Record(position, step.Name(), EventSucceeded, nil); err != nil {
		return err
	}
	tc.addSuccessful(position, step)
	return nil
}

func (tc *TransactionContext[T]) addSuccessful(position int, step Step[T]) {
	tc.successful = append([]stepEntry[T]{{position: position, step: step}}, tc.successful...)
}

// SuccessfulSteps returns a copy of the successful steps, most recent first.
func (tc *TransactionContext[T]) SuccessfulSteps() []Step[T] {
	steps := make([]Step[T], len(tc.successful))
	for i, e := range tc.successful {
		steps[i] = e.step
	}
	return steps
}

func (tc *TransactionContext[T]) successfulEntries() []stepEntry[T] {
	return append([]stepEntry[T](nil), tc.successful...)
}

// beginRollback claims tc for a rollback and returns the successful steps
// that still need undoing, most recent first. Steps already compensated by
// the error handler are left out; a failed compensation may be retried.
func (tc *TransactionContext[T]) beginRollback() ([]stepEntry[T], error) {
	tc.rollbackMu.Lock()
	defer tc.rollbackMu.Unlock()

	if tc.rolledBack {
		return nil, ErrAlreadyRolledBack
	}
	if len(tc.successful) == 0 {
		return nil, ErrNothingToRollback
	}

	pending := make([]stepEntry[T], 0, len(tc.successful))
	for _, e := range tc.successful {
		switch tc.journal.Status(e.position) {
		case StatusSucceeded, StatusCompensationFailed:
			pending = append(pending, e)
		}
	}
	if len(pending) == 0 {
		return nil, ErrAlreadyCompensated
	}

	tc.rolledBack = true
	return pending, nil
}

// Metadata returns the metadata value stored under key.
func (tc *TransactionContext[T]) Metadata(key string) (any, bool) {
	return tc.metadata.Get(key)
}

// MetadataKeys returns the metadata keys in sorted order.
func (tc *TransactionContext[T]) MetadataKeys() []string {
	keys := make([]string, 0, tc.metadata.Len())
	tc.metadata.Scan(func(k string, _ any) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// MetadataMap returns a copy of the metadata.
func (tc *TransactionContext[T]) MetadataMap() map[string]any {
	m := make(map[string]any, tc.metadata.Len())
	tc.metadata.Scan(func(k string, v any) bool {
		m[k] = v
		return true
	})
	return m
}

// Halted reports whether a step asked the saga to stop scheduling steps.
func (tc *TransactionContext[T]) Halted() bool {
	return tc.halted
}

// HaltedBy returns the name of the step that halted the saga, if any.
func (tc *TransactionContext[T]) HaltedBy() string {
	return tc.haltedBy
}

func (tc *TransactionContext[T]) halt(stepName string) {
	if tc.halted {
		return
	}
	tc.halted = true
	tc.haltedBy = stepName
}

// CompensationErr returns every compensation failure seen so far, combined.
func (tc *TransactionContext[T]) CompensationErr() error {
	return tc.compensationErr
}

func (tc *TransactionContext[T]) addCompensationErr(err error) {
	tc.compensationErr = multierr.Append(tc.compensationErr, err)
}

// Journal returns the event log of this transaction.
func (tc *TransactionContext[T]) Journal() *Journal {
	return tc.journal
}

// Duration returns how long the execution took, or has taken so far.
func (tc *TransactionContext[T]) Duration() time.Duration {
	if tc.finishedAt.IsZero() {
		return time.Since(tc.startedAt)
	}
	return tc.finishedAt.Sub(tc.startedAt)
}

func (tc *TransactionContext[T]) finish() {
	tc.finishedAt = time.Now()
}

func (tc *TransactionContext[T]) markSkipped(gateID string) {
	tc.skipped.Insert(gateID)
}

func (tc *TransactionContext[T]) wasSkipped(gateID string) bool {
	return tc.skipped.Contains(gateID)
}

// skipRecorder is the part of a TransactionContext a gate needs. It is not
// generic so it can travel through a context.Context.
type skipRecorder interface {
	markSkipped(gateID string)
	wasSkipped(gateID string) bool
}

type transactionKey struct{}

func contextWithTransaction(ctx context.Context, r skipRecorder) context.Context {
	return context.WithValue(ctx, transactionKey{}, r)
}

func transactionFromContext(ctx context.Context) skipRecorder {
	if ctx == nil {
		return nil
	}
	r, _ := ctx.Value(transactionKey{}).(skipRecorder)
	return r
}
