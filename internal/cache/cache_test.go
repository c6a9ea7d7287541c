package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRUGetMiss(t *testing.T) {
	c := New(2)
	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestLRUPutGet(t *testing.T) {
	c := New(2)
	c.Put("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestLRUEvictsOldest(t *testing.T) {
	c := New(2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should have been evicted")

	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRUGetRefreshesRecency(t *testing.T) {
	c := New(2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a") // touch a, making b the least recently used
	c.Put("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted, not a")
	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestLRUInvalidate(t *testing.T) {
	c := New(2)
	c.Put("a", 1)
	c.Invalidate("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestLRULen(t *testing.T) {
	c := New(2)
	assert.Equal(t, 0, c.Len())
	c.Put("a", 1)
	assert.Equal(t, 1, c.Len())
}
