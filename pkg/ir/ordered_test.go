package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderedMap_PreservesInsertionOrder(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Set("c", 3)
	m.Set("a", 1)
	m.Set("b", 2)

	assert.Equal(t, []string{"c", "a", "b"}, m.Keys())
	assert.Equal(t, 3, m.Len())
}

func TestOrderedMap_SetOverwritesWithoutReordering(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 99)

	assert.Equal(t, []string{"a", "b"}, m.Keys())
	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 99, v)
}

func TestOrderedMap_GetMissingKey(t *testing.T) {
	m := NewOrderedMap[string]()
	v, ok := m.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, "", v)
}

func TestOrderedMap_Range(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Set("z", 26)
	m.Set("a", 1)

	var seen []string
	m.Range(func(key string, val int) {
		seen = append(seen, key)
	})
	assert.Equal(t, []string{"z", "a"}, seen)
}

func TestOrderedSet_AddRejectsDuplicates(t *testing.T) {
	s := NewOrderedSet()
	s.Add("x")
	s.Add("y")
	s.Add("x")

	assert.Equal(t, []string{"x", "y"}, s.Items())
	assert.Equal(t, 2, s.Len())
}

func TestOrderedSet_Contains(t *testing.T) {
	s := NewOrderedSet()
	s.Add("present")

	assert.True(t, s.Contains("present"))
	assert.False(t, s.Contains("absent"))
}
