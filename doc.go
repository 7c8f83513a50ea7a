// Package sagatx provides an in-process implementation of the saga pattern.
//
// A saga is a list of steps. Each step has a forward action (Invoke) and an
// undo action (Compensate). The steps run one at a time, in order, against a
// shared value. When a step fails, the steps that already succeeded are
// compensated in reverse order, which approximates all-or-nothing semantics
// over operations that cannot share a transaction.
//
// Overview
//
//  1. Define your steps:
//     - Implement Step, or package two functions with NewStepFunc.
//     - Wrap a step with NewGatedStep to let it opt out of running at run time.
//       A gated step that opts out halts the rest of the saga without an error
//       and is never compensated.
//  2. Create a Saga with New, optionally passing WithLogger, WithErrorHandler,
//     WithStopOnError, WithMetrics or WithTracer.
//  3. Call Execute with your data and the steps. The returned
//     TransactionContext records the successful steps, most recent first, and
//     a Journal of everything that happened.
//
// Steps can also be registered by name in a StepRegistry and resolved from a
// Config loaded with LoadConfig.
//
// The engine does not persist anything, does not retry and does not run steps
// in parallel. A step that never returns blocks the saga.
package sagatx
