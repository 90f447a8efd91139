package testutil

import (
	"sync"

	"github.com/dop251/goja"
)

// ManualLoop queues jobs the way the real event loop does but only runs them
// when the test calls Drain or RunOne, on the test's goroutine. It makes
// completion ordering and destroy-before-delivery races deterministic.
type ManualLoop struct {
	vm *goja.Runtime

	mu      sync.Mutex
	queue   []func(*goja.Runtime)
	stopped bool
}

// NewManualLoop returns a loop over a fresh goja runtime.
func NewManualLoop() *ManualLoop {
	return &ManualLoop{vm: goja.New()}
}

// VM returns the runtime jobs run against. Only touch it from the test
// goroutine.
func (l *ManualLoop) VM() *goja.Runtime { return l.vm }

// RunOnLoop queues fn. It reports false once Stop has been called.
func (l *ManualLoop) RunOnLoop(fn func(*goja.Runtime)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return false
	}
	l.queue = append(l.queue, fn)
	return true
}

// Pending is the number of queued jobs.
func (l *ManualLoop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// RunOne runs the oldest queued job, reporting whether there was one.
func (l *ManualLoop) RunOne() bool {
	l.mu.Lock()
	if len(l.queue) == 0 {
		l.mu.Unlock()
		return false
	}
	fn := l.queue[0]
	l.queue = l.queue[1:]
	l.mu.Unlock()

	fn(l.vm)
	return true
}

// Drain runs jobs until the queue is empty, including jobs queued by the
// jobs themselves, and returns how many ran.
func (l *ManualLoop) Drain() int {
	n := 0
	for l.RunOne() {
		n++
	}
	return n
}

// Stop rejects further jobs and discards queued ones.
func (l *ManualLoop) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()
}
