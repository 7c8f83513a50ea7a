package sagatx

import (
	"errors"
	"fmt"
)

var (
	// ErrStepSkipped marks a controlled early exit from a step. It halts the
	// rest of the saga without triggering compensation.
	ErrStepSkipped = errors.New("step skipped")

	// ErrStepNotFound is returned by StepRegistry lookups.
	ErrStepNotFound = errors.New("step not found")

	ErrNothingToRollback  = errors.New("no successful steps to roll back")
	ErrAlreadyRolledBack  = errors.New("transaction already rolled back")
	ErrAlreadyCompensated = errors.New("successful steps already compensated")
)

// SkipError is returned from Invoke when a step decided not to run.
type SkipError struct {
	StepName string
}

// Skip returns an error that makes the engine halt the saga at the named step.
func Skip(stepName string) error {
	return &SkipError{StepName: stepName}
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("step %q skipped", e.StepName)
}

// Is reports whether target is ErrStepSkipped.
func (e *SkipError) Is(target error) bool {
	return target == ErrStepSkipped
}

// IsSkip reports whether err signals a skipped step.
func IsSkip(err error) bool {
	return errors.Is(err, ErrStepSkipped)
}

// CompensationError represents an error produced by a failed compensation.
type CompensationError struct {
	StepName string
	Err      error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensation failed for step %q: %v", e.StepName, e.Err)
}

func (e *CompensationError) Unwrap() error {
	return e.Err
}

// PanicError is a panic raised by a step, recovered and turned into an error.
type PanicError struct {
	StepName string
	Value    any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("step %q panicked: %v", e.StepName, e.Value)
}

// Unwrap returns the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
