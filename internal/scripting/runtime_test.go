package scripting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dop251/goja"
	gojarequire "github.com/dop251/goja_nodejs/require"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := NewRuntime(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestNewRuntimeWithRegistry(t *testing.T) {
	t.Parallel()

	registry := gojarequire.NewRegistry()
	rt, err := NewRuntimeWithRegistry(context.Background(), registry)
	if err != nil {
		t.Fatalf("NewRuntimeWithRegistry failed: %v", err)
	}
	defer rt.Close()

	if rt.Registry() != registry {
		t.Error("should use provided registry")
	}
	if !rt.IsRunning() {
		t.Error("runtime should be running after creation")
	}
}

func TestRuntime_Close(t *testing.T) {
	t.Parallel()

	rt := newTestRuntime(t)
	require.NoError(t, rt.Close())
	assert.False(t, rt.IsRunning())
	require.NoError(t, rt.Close(), "Close should be idempotent")

	select {
	case <-rt.Done():
	default:
		t.Error("Done channel should be closed after Close")
	}

	assert.False(t, rt.RunOnLoop(func(*goja.Runtime) {
		t.Error("callback should not run on a stopped runtime")
	}))
	assert.ErrorIs(t, rt.RunOnLoopSync(func(*goja.Runtime) error { return nil }), ErrNotRunning)
}

func TestRuntime_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	rt, err := NewRuntime(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case <-rt.Done():
	case <-time.After(time.Second):
		t.Fatal("runtime should stop when context is canceled")
	}
}

func TestRuntime_RunOnLoop_Order(t *testing.T) {
	t.Parallel()

	rt := newTestRuntime(t)

	var (
		mu    sync.Mutex
		order []int
	)
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		i := i
		require.True(t, rt.RunOnLoop(func(*goja.Runtime) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			if i == 9 {
				close(done)
			}
		}))
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callbacks did not run")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestRuntime_RunOnLoopSync(t *testing.T) {
	t.Parallel()

	rt := newTestRuntime(t)

	var value int64
	require.NoError(t, rt.RunOnLoopSync(func(vm *goja.Runtime) error {
		v, err := vm.RunString("6 * 7")
		if err != nil {
			return err
		}
		value = v.ToInteger()
		return nil
	}))
	assert.Equal(t, int64(42), value)

	expected := errors.New("test error")
	assert.Equal(t, expected, rt.RunOnLoopSync(func(*goja.Runtime) error { return expected }))
}

func TestRuntime_RunOnLoopSync_Timeout(t *testing.T) {
	t.Parallel()

	rt := newTestRuntime(t)
	rt.SetTimeout(20 * time.Millisecond)

	release := make(chan struct{})
	defer close(release)
	err := rt.RunOnLoopSync(func(*goja.Runtime) error {
		<-release
		return nil
	})
	assert.ErrorContains(t, err, "timed out")
}

func TestRuntime_LoadScript(t *testing.T) {
	t.Parallel()

	rt := newTestRuntime(t)

	require.NoError(t, rt.LoadScript("ok.js", `var answer = {n: 42, s: "x"};`))
	v, err := rt.GetGlobal("answer")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": int64(42), "s": "x"}, v)

	missing, err := rt.GetGlobal("nothing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = rt.LoadScript("bad.js", `this is not javascript`)
	assert.ErrorContains(t, err, "failed to compile bad.js")

	err = rt.LoadScript("throws.js", `throw new Error("boom")`)
	assert.ErrorContains(t, err, "failed to run throws.js")
	assert.ErrorContains(t, err, "boom")
}
