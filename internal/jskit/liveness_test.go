package jskit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArena_Lifecycle(t *testing.T) {
	t.Parallel()

	var a Arena
	assert.False(t, a.Alive(Handle{}))
	assert.True(t, Handle{}.IsZero())

	h1 := a.Acquire()
	h2 := a.Acquire()
	assert.False(t, h1.IsZero())
	assert.NotEqual(t, h1, h2)
	assert.True(t, a.Alive(h1))
	assert.True(t, a.Alive(h2))

	assert.True(t, a.Release(h1))
	assert.False(t, a.Alive(h1))
	assert.False(t, a.Release(h1), "double release")
	assert.True(t, a.Alive(h2))

	// the freed slot is reused under a new generation
	h3 := a.Acquire()
	assert.Equal(t, h1.slot, h3.slot)
	assert.NotEqual(t, h1.gen, h3.gen)
	assert.True(t, a.Alive(h3))
	assert.False(t, a.Alive(h1), "stale handle must stay dead after reuse")
}

func TestArena_Concurrent(t *testing.T) {
	t.Parallel()

	var a Arena
	var wg sync.WaitGroup
	handles := make(chan Handle, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := a.Acquire()
			if i%2 == 0 {
				a.Release(h)
				return
			}
			handles <- h
		}()
	}
	wg.Wait()
	close(handles)

	seen := map[Handle]bool{}
	for h := range handles {
		assert.True(t, a.Alive(h))
		assert.False(t, seen[h], "handle issued twice while live")
		seen[h] = true
	}
	assert.Len(t, seen, 100)
}
