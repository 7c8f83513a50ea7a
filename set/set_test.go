package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeroValueSet(t *testing.T) {
	var s Set[string]
	assert.False(t, s.Contains("a"))
	assert.Equal(t, 0, s.Len())

	s.Insert("a")
	s.Insert("a")
	assert.True(t, s.Contains("a"))
	assert.Equal(t, 1, s.Len())

	s.Remove("a")
	assert.False(t, s.Contains("a"))
}

func TestNew(t *testing.T) {
	s := New(1, 2, 3, 2)
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains(2))
	assert.False(t, s.Contains(4))
}
