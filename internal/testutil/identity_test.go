package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedIdentities_ReturnsInOrder(t *testing.T) {
	gen := NewFixedIdentities("obj-1", "obj-2", "obj-3")
	assert.Equal(t, "obj-1", gen.NewIdentity())
	assert.Equal(t, "obj-2", gen.NewIdentity())
	assert.Equal(t, "obj-3", gen.NewIdentity())
}

func TestFixedIdentities_PanicsWhenExhausted(t *testing.T) {
	gen := NewFixedIdentities("only")
	gen.NewIdentity()
	assert.Panics(t, func() { gen.NewIdentity() })
}

func TestSequentialIdentities_Unbounded(t *testing.T) {
	gen := NewSequentialIdentities("obj")
	assert.Equal(t, "obj-1", gen.NewIdentity())
	assert.Equal(t, "obj-2", gen.NewIdentity())
	for i := 0; i < 100; i++ {
		gen.NewIdentity()
	}
	assert.Equal(t, "obj-103", gen.NewIdentity())
}

func TestSequentialIdentities_ThreadSafe(t *testing.T) {
	gen := NewSequentialIdentities("g")
	const goroutines = 50
	const perGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(goroutines)
	seen := make(chan string, goroutines*perGoroutine)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				seen <- gen.NewIdentity()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[string]bool)
	for id := range seen {
		require.False(t, unique[id], "duplicate identity %s", id)
		unique[id] = true
	}
	assert.Len(t, unique, goroutines*perGoroutine)
}

func TestFrozenClock(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := FrozenClock(at)
	assert.Equal(t, at, now())
	assert.Equal(t, at, now())
}

func TestTickingClock(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := TickingClock(start, time.Second)
	assert.Equal(t, start, now())
	assert.Equal(t, start.Add(time.Second), now())
	assert.Equal(t, start.Add(2*time.Second), now())
}
