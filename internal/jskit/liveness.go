package jskit

import "sync"

// Handle names one lifetime of an arena slot. A slot is reused after
// Release, but with a new generation, so stale handles stay dead.
type Handle struct {
	slot uint32
	gen  uint32
}

// IsZero reports whether h was never acquired.
func (h Handle) IsZero() bool { return h.gen == 0 }

// Arena hands out generation-tagged handles. The zero value is ready to use.
type Arena struct {
	mu   sync.Mutex
	gens []uint32 // current generation per slot; even while free
	live []bool
	free []uint32
}

// Acquire returns a live handle.
func (a *Arena) Acquire() Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	var slot uint32
	if n := len(a.free); n > 0 {
		slot = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		slot = uint32(len(a.gens))
		a.gens = append(a.gens, 0)
		a.live = append(a.live, false)
	}
	a.gens[slot]++
	if a.gens[slot] == 0 {
		a.gens[slot] = 1
	}
	a.live[slot] = true
	return Handle{slot: slot, gen: a.gens[slot]}
}

// Release kills h. It reports false if h was already dead.
func (a *Arena) Release(h Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.aliveLocked(h) {
		return false
	}
	a.live[h.slot] = false
	a.free = append(a.free, h.slot)
	return true
}

// Alive reports whether h has been acquired and not yet released.
func (a *Arena) Alive(h Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.aliveLocked(h)
}

func (a *Arena) aliveLocked(h Handle) bool {
	return h.gen != 0 &&
		int(h.slot) < len(a.gens) &&
		a.live[h.slot] &&
		a.gens[h.slot] == h.gen
}
