package hashing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombine(t *testing.T) {
	t.Run("is deterministic", func(t *testing.T) {
		assert.Equal(t, Combine(String("a"), Int(2)), Combine(String("a"), Int(2)))
	})

	t.Run("depends on field position", func(t *testing.T) {
		a, b := String("x"), String("y")
		assert.NotEqual(t, Combine(a, b), Combine(b, a))
	})

	t.Run("equal values in different fields do not cancel", func(t *testing.T) {
		v := String("same")
		assert.NotEqual(t, Combine(), Combine(v, v))
	})
}

func TestMap(t *testing.T) {
	m1 := map[string]string{"a": "1", "b": "2", "c": "3"}
	m2 := map[string]string{"c": "3", "a": "1", "b": "2"}

	assert.Equal(t, Map(m1, String), Map(m2, String))
	assert.NotEqual(t, Map(m1, String), Map(map[string]string{"a": "1"}, String))
}

func TestOptional(t *testing.T) {
	assert.Equal(t, uint64(0), Optional(false, 42))
	assert.NotEqual(t, uint64(0), Optional(true, 0))
}
