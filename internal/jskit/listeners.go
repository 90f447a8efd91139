package jskit

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// ListenerID identifies one registration. Registering the same callback
// twice yields two IDs.
type ListenerID uint64

type listenerEntry[F any] struct {
	id      ListenerID
	fn      F
	removed bool
}

// ListenerRegistry is an ordered multicast registry of callbacks keyed by
// event type.
//
// Invoke works on the entries registered when it starts: listeners added
// during a dispatch wait for the next one, and listeners removed during a
// dispatch are skipped if they have not been called yet.
type ListenerRegistry[F any] struct {
	logger *slog.Logger

	mu     sync.Mutex
	nextID ListenerID
	sets   map[string][]*listenerEntry[F]
}

// NewListenerRegistry returns an empty registry. Callback failures are
// reported to logger (slog.Default() if nil).
func NewListenerRegistry[F any](logger *slog.Logger) *ListenerRegistry[F] {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListenerRegistry[F]{
		logger: logger,
		sets:   make(map[string][]*listenerEntry[F]),
	}
}

// Add appends fn to eventType's listeners.
func (r *ListenerRegistry[F]) Add(eventType string, fn F) ListenerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.sets[eventType] = append(r.sets[eventType], &listenerEntry[F]{id: r.nextID, fn: fn})
	return r.nextID
}

// Remove drops the registration id, reporting whether it existed.
func (r *ListenerRegistry[F]) Remove(eventType string, id ListenerID) bool {
	return r.remove(eventType, func(e *listenerEntry[F]) bool { return e.id == id }) > 0
}

// RemoveFunc drops every registration of eventType whose callback matches,
// returning how many were removed.
func (r *ListenerRegistry[F]) RemoveFunc(eventType string, match func(F) bool) int {
	return r.remove(eventType, func(e *listenerEntry[F]) bool { return match(e.fn) })
}

func (r *ListenerRegistry[F]) remove(eventType string, match func(*listenerEntry[F]) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sets[eventType]
	if !ok {
		return 0
	}
	kept := set[:0:0]
	n := 0
	for _, e := range set {
		if match(e) {
			e.removed = true
			n++
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) == 0 {
		delete(r.sets, eventType)
	} else {
		r.sets[eventType] = kept
	}
	return n
}

// Invoke calls call once per listener of eventType, in registration order.
// A returned error or panic is logged and does not stop the dispatch.
func (r *ListenerRegistry[F]) Invoke(eventType string, call func(F) error) {
	r.mu.Lock()
	snapshot := slices.Clone(r.sets[eventType])
	r.mu.Unlock()

	for _, e := range snapshot {
		r.mu.Lock()
		removed := e.removed
		r.mu.Unlock()
		if removed {
			continue
		}
		if err := r.safeCall(call, e.fn); err != nil {
			r.logger.Warn("error while invoking callback", "type", eventType, "listener", e.id, "error", err)
		}
	}
}

func (r *ListenerRegistry[F]) safeCall(call func(F) error, fn F) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("listener panic: %v", p)
		}
	}()
	return call(fn)
}

// Len is the number of listeners registered for eventType.
func (r *ListenerRegistry[F]) Len(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sets[eventType])
}

// Types lists the event types with at least one listener, sorted.
func (r *ListenerRegistry[F]) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.sets))
	for t := range r.sets {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Clear drops every registration.
func (r *ListenerRegistry[F]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, set := range r.sets {
		for _, e := range set {
			e.removed = true
		}
	}
	clear(r.sets)
}
