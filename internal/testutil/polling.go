// Package testutil holds helpers shared by the jskit test suites: polling
// for asynchronous state and a hand-driven event loop.
package testutil

import (
	"context"
	"fmt"
	"time"
)

// Poll checks condition every interval until it holds, timeout expires or ctx
// is done.
func Poll(ctx context.Context, condition func() bool, timeout time.Duration, interval time.Duration) error {
	_, err := WaitForState(ctx, condition, func(ok bool) bool { return ok }, timeout, interval)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("timeout waiting for condition (threshold: %v)", timeout)
	}
	return err
}

// WaitForState polls getter until predicate accepts its value.
//
//	n, err := WaitForState(ctx, svc.Pending,
//		func(n int) bool { return n == 0 },
//		AsyncTimeout, PollInterval)
func WaitForState[T any](ctx context.Context, getter func() T, predicate func(T) bool, timeout time.Duration, interval time.Duration) (T, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		state := getter()
		if predicate(state) {
			return state, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-deadline.C:
			var zero T
			return zero, fmt.Errorf("timeout waiting for target state (type %T, threshold: %v)", zero, timeout)
		case <-ticker.C:
		}
	}
}
