package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)

	// touch a so b becomes the oldest
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	c.Put("c", 3)
	assert.Equal(t, 2, c.Len())

	_, ok = c.Get("b")
	assert.False(t, ok)
	v, _ = c.Get("a")
	assert.Equal(t, 1, v)
	v, _ = c.Get("c")
	assert.Equal(t, 3, v)
}

func TestLRU_PutUpdatesExisting(t *testing.T) {
	c := NewLRU[string, string](2)
	c.Put("a", "x")
	c.Put("b", "y")
	c.Put("a", "z") // refreshes a
	c.Put("c", "w") // evicts b

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "z", v)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int, int](16)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.Put(g*100+i, i)
				c.Get(i)
			}
		}(g)
	}
	wg.Wait()
	assert.Equal(t, 16, c.Len())
}

func TestLRU_ZeroCapacity(t *testing.T) {
	c := NewLRU[string, int](0)
	for i := 0; i < 3; i++ {
		c.Put(fmt.Sprint(i), i)
	}
	assert.Equal(t, 1, c.Len())
}
