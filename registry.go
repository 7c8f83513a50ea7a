package sagatx

import (
	"fmt"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

// StepRegistry is a registry of steps that can be shared across sagas.
//
// Steps are identified by their name. Registering steps once lets callers
// assemble a step list from configuration, where only names are available.
type StepRegistry[T any] struct {
	steps *xsync.MapOf[string, Step[T]]
}

// NewStepRegistry creates a new StepRegistry.
func NewStepRegistry[T any]() *StepRegistry[T] {
	return &StepRegistry[T]{
		steps: xsync.NewMapOf[string, Step[T]](),
	}
}

// Register adds a step to the registry.
func (r *StepRegistry[T]) Register(step Step[T]) error {
	if _, loaded := r.steps.LoadOrStore(step.Name(), step); loaded {
		return fmt.Errorf("step with name '%s' already registered", step.Name())
	}
	return nil
}

// MustRegister is like Register but panics on a duplicate name.
func (r *StepRegistry[T]) MustRegister(steps ...Step[T]) {
	for _, step := range steps {
		if err := r.Register(step); err != nil {
			panic(err)
		}
	}
}

// Get retrieves a step from the registry by its name.
func (r *StepRegistry[T]) Get(name string) (Step[T], error) {
	step, ok := r.steps.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, name)
	}
	return step, nil
}

// Resolve returns the named steps in the given order.
func (r *StepRegistry[T]) Resolve(names ...string) ([]Step[T], error) {
	steps := make([]Step[T], 0, len(names))
	for _, name := range names {
		step, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// Names returns the registered step names, sorted.
func (r *StepRegistry[T]) Names() []string {
	names := make([]string, 0, r.steps.Size())
	r.steps.Range(func(name string, _ Step[T]) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}
