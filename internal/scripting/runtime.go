// Package scripting owns the script thread: a goja runtime driven by the
// goja_nodejs event loop. Every touch of a goja value happens on that loop.
package scripting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
)

// ErrNotRunning is returned when work is submitted to a stopped Runtime.
var ErrNotRunning = errors.New("event loop not running")

// DefaultSyncTimeout bounds RunOnLoopSync.
const DefaultSyncTimeout = 5 * time.Second

// Runtime is a goja runtime plus the event loop that serializes access to it.
//
// goja.Runtime is not goroutine-safe. Native code that completes on another
// goroutine must re-enter through RunOnLoop; the *goja.Runtime handed to the
// callback must not escape it.
type Runtime struct {
	loop     *eventloop.EventLoop
	registry *require.Registry

	mu      sync.RWMutex
	timeout time.Duration
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRuntime starts a Runtime with a fresh require registry. The runtime
// closes itself when ctx is cancelled.
func NewRuntime(ctx context.Context) (*Runtime, error) {
	return NewRuntimeWithRegistry(ctx, nil)
}

// NewRuntimeWithRegistry starts a Runtime that resolves require() through
// registry, creating one if nil.
func NewRuntimeWithRegistry(ctx context.Context, registry *require.Registry) (*Runtime, error) {
	if registry == nil {
		registry = require.NewRegistry()
	}

	loop := eventloop.NewEventLoop(
		eventloop.WithRegistry(registry),
		eventloop.EnableConsole(true),
	)

	lifecycle, cancel := context.WithCancel(context.Background())
	rt := &Runtime{
		loop:     loop,
		registry: registry,
		timeout:  DefaultSyncTimeout,
		ctx:      lifecycle,
		cancel:   cancel,
	}

	loop.Start()

	// the loop must accept work before the runtime is handed out
	ready := make(chan struct{})
	if !loop.RunOnLoop(func(*goja.Runtime) { close(ready) }) {
		cancel()
		loop.Stop()
		return nil, fmt.Errorf("failed to initialize runtime: %w", ErrNotRunning)
	}
	<-ready

	if ctx.Done() != nil {
		context.AfterFunc(ctx, func() { _ = rt.Close() })
	}

	return rt, nil
}

// Registry returns the require registry used by scripts.
func (rt *Runtime) Registry() *require.Registry {
	return rt.registry
}

// Close stops the event loop, waiting for the job in progress. Safe to call
// more than once.
func (rt *Runtime) Close() error {
	rt.mu.Lock()
	if rt.stopped {
		rt.mu.Unlock()
		return nil
	}
	rt.stopped = true
	rt.mu.Unlock()

	rt.cancel()
	rt.loop.Stop()
	return nil
}

// Done is closed once Close has been called.
func (rt *Runtime) Done() <-chan struct{} {
	return rt.ctx.Done()
}

// IsRunning reports whether the runtime still accepts work.
func (rt *Runtime) IsRunning() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return !rt.stopped
}

// SetTimeout sets the RunOnLoopSync timeout; 0 disables it.
func (rt *Runtime) SetTimeout(timeout time.Duration) {
	rt.mu.Lock()
	rt.timeout = timeout
	rt.mu.Unlock()
}

// RunOnLoop schedules fn on the loop goroutine. It reports false, without
// running fn, if the runtime is stopped.
func (rt *Runtime) RunOnLoop(fn func(*goja.Runtime)) bool {
	rt.mu.RLock()
	stopped := rt.stopped
	rt.mu.RUnlock()
	if stopped {
		return false
	}
	return rt.loop.RunOnLoop(fn)
}

// RunOnLoopSync runs fn on the loop and waits for its result. It must not be
// called from the loop goroutine.
func (rt *Runtime) RunOnLoopSync(fn func(*goja.Runtime) error) error {
	rt.mu.RLock()
	stopped, timeout := rt.stopped, rt.timeout
	rt.mu.RUnlock()
	if stopped {
		return ErrNotRunning
	}

	errCh := make(chan error, 1)
	if !rt.loop.RunOnLoop(func(vm *goja.Runtime) { errCh <- fn(vm) }) {
		return ErrNotRunning
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case err := <-errCh:
		return err
	case <-rt.Done():
		return errors.New("runtime stopped before completion")
	case <-timeoutCh:
		return fmt.Errorf("operation timed out after %v", timeout)
	}
}

// LoadScript compiles and runs code in strict mode.
func (rt *Runtime) LoadScript(name, code string) error {
	return rt.RunOnLoopSync(func(vm *goja.Runtime) error {
		prg, err := goja.Compile(name, code, true)
		if err != nil {
			return fmt.Errorf("failed to compile %s: %w", name, err)
		}
		if _, err := vm.RunProgram(prg); err != nil {
			return fmt.Errorf("failed to run %s: %w", name, err)
		}
		return nil
	})
}

// GetGlobal exports a global, or returns nil if it is unset.
func (rt *Runtime) GetGlobal(name string) (any, error) {
	var result any
	err := rt.RunOnLoopSync(func(vm *goja.Runtime) error {
		val := vm.Get(name)
		if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
			return nil
		}
		result = val.Export()
		return nil
	})
	return result, err
}
