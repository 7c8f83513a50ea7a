package sagatx

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepRegistry(t *testing.T) {
	registry := NewStepRegistry[*orderState]()

	require.NoError(t, registry.Register(okStep("reserve")))
	require.NoError(t, registry.Register(okStep("charge")))

	err := registry.Register(okStep("charge"))
	assert.EqualError(t, err, "step with name 'charge' already registered")

	step, err := registry.Get("reserve")
	require.NoError(t, err)
	assert.Equal(t, "reserve", step.Name())

	_, err = registry.Get("ship")
	assert.ErrorIs(t, err, ErrStepNotFound)

	assert.Equal(t, []string{"charge", "reserve"}, registry.Names())
}

func TestStepRegistryResolve(t *testing.T) {
	registry := NewStepRegistry[*orderState]()
	registry.MustRegister(okStep("A"), okStep("B"), okStep("C"))

	steps, err := registry.Resolve("C", "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, stepNames(steps))

	_, err = registry.Resolve("A", "missing")
	assert.ErrorIs(t, err, ErrStepNotFound)
	assert.Contains(t, err.Error(), "missing")
}

func TestStepRegistryMustRegisterPanicsOnDuplicate(t *testing.T) {
	registry := NewStepRegistry[*orderState]()
	assert.Panics(t, func() {
		registry.MustRegister(okStep("A"), okStep("A"))
	})
}

func TestStepRegistryConcurrentRegister(t *testing.T) {
	registry := NewStepRegistry[*orderState]()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = registry.Register(okStep(fmt.Sprintf("step-%02d", i%10)))
		}(i)
	}
	wg.Wait()

	assert.Len(t, registry.Names(), 10)
}
