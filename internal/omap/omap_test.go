package omap

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapSetGetOrder(t *testing.T) {
	m := New[string]()
	assert.Equal(t, Inserted, m.Set("b", "2"))
	assert.Equal(t, Inserted, m.Set("a", "1"))
	assert.Equal(t, Inserted, m.Set("c", "3"))
	assert.Equal(t, Updated, m.Set("a", "one"))

	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, "one", v)
	assert.Equal(t, []string{"b", "a", "c"}, m.Keys())
	assert.Equal(t, 3, m.Len())
}

func TestMapDeleteKeepsProbeChainWalkable(t *testing.T) {
	m := New[int]()
	m.Set("x", 1)
	m.Set("y", 2)
	require.True(t, m.Delete("x"))
	_, ok := m.Get("x")
	assert.False(t, ok)
	v, ok := m.Get("y")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, []string{"y"}, m.Keys())
}

func TestMapGrowsAndKeepsEntriesAfterHeavyDeletion(t *testing.T) {
	m := New[int]()
	for i := 0; i < 100; i++ {
		m.Set(fmt.Sprintf("k%d", i), i)
	}
	assert.Equal(t, 100, m.Len())
	for i := 0; i < 90; i++ {
		m.Delete(fmt.Sprintf("k%d", i))
	}
	assert.Equal(t, 10, m.Len())
	m.Set("new", 1)
	v, ok := m.Get("k95")
	require.True(t, ok)
	assert.Equal(t, 95, v)
}

func TestPtrSetIdentityDedup(t *testing.T) {
	type node struct{ n int }
	a := &node{1}
	b := &node{2}
	c := &node{1} // distinct identity, equal value

	s := NewPtrSet[node]()
	assert.True(t, s.Add(a))
	assert.True(t, s.Add(b))
	assert.False(t, s.Add(a))
	assert.True(t, s.Add(c))

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []*node{a, b, c}, s.Items())
	assert.True(t, s.Contains(b))
}
