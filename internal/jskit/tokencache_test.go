package jskit

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pendingFetch struct {
	onOK  func(string)
	onErr func(error)
}

type fetchRecorder struct {
	mu      sync.Mutex
	fetches []pendingFetch
}

func (r *fetchRecorder) fetch(onOK func(string), onErr func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches = append(r.fetches, pendingFetch{onOK, onErr})
}

func (r *fetchRecorder) last() pendingFetch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetches[len(r.fetches)-1]
}

type tokenLog struct {
	mu     sync.Mutex
	events []string
}

func (l *tokenLog) ready(name string) func(string) {
	return func(tok string) {
		l.mu.Lock()
		l.events = append(l.events, name+":"+tok)
		l.mu.Unlock()
	}
}

func (l *tokenLog) failed(name string) func(error) {
	return func(err error) {
		l.mu.Lock()
		l.events = append(l.events, name+"!"+err.Error())
		l.mu.Unlock()
	}
}

func TestTokenCache_SingleFlight(t *testing.T) {
	t.Parallel()

	var rec fetchRecorder
	var log tokenLog
	c := NewTokenCache(rec.fetch)

	for _, name := range []string{"w1", "w2", "w3"} {
		c.Get(log.ready(name), log.failed(name))
	}
	assert.Equal(t, 1, c.FetchCount(), "waiters join the in-flight fetch")
	assert.Empty(t, log.events)
	_, ok := c.Token()
	assert.False(t, ok)

	rec.last().onOK("abc")
	assert.Equal(t, []string{"w1:abc", "w2:abc", "w3:abc"}, log.events)

	// cached: immediate, no new fetch
	c.Get(log.ready("w4"), log.failed("w4"))
	assert.Equal(t, "w4:abc", log.events[3])
	assert.Equal(t, 1, c.FetchCount())
	tok, ok := c.Token()
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	// a second completion of the same fetch is ignored
	rec.last().onOK("other")
	rec.last().onErr(errors.New("late"))
	assert.Len(t, log.events, 4)
}

func TestTokenCache_EmptyTokenFailsAndRetries(t *testing.T) {
	t.Parallel()

	var rec fetchRecorder
	var log tokenLog
	c := NewTokenCache(rec.fetch)

	c.Get(log.ready("a"), log.failed("a"))
	c.Get(log.ready("b"), log.failed("b"))
	rec.last().onOK("")
	assert.Equal(t, []string{"a!token is empty", "b!token is empty"}, log.events)

	c.Get(log.ready("c"), log.failed("c"))
	assert.Equal(t, 2, c.FetchCount(), "failure leaves the cache retryable")
	rec.last().onOK("tok")
	assert.Equal(t, "c:tok", log.events[2])
}

func TestTokenCache_FetchError(t *testing.T) {
	t.Parallel()

	var rec fetchRecorder
	var got []error
	c := NewTokenCache(rec.fetch)

	c.Get(nil, func(err error) { got = append(got, err) })
	c.Get(nil, nil)
	rec.last().onErr(errors.New("offline"))

	require.Len(t, got, 1)
	assert.EqualError(t, got[0], "offline")
	_, ok := c.Token()
	assert.False(t, ok)
}

func TestTokenCache_ErrEmptyTokenSentinel(t *testing.T) {
	t.Parallel()

	c := NewTokenCache(func(onOK func(string), _ func(error)) { onOK("") })
	var got error
	c.Get(nil, func(err error) { got = err })
	assert.ErrorIs(t, got, ErrEmptyToken)
}

func TestTokenCache_SynchronousFetch(t *testing.T) {
	t.Parallel()

	c := NewTokenCache(func(onOK func(string), _ func(error)) { onOK("sync") })
	var got string
	c.Get(func(tok string) { got = tok }, nil)
	assert.Equal(t, "sync", got)
	assert.Equal(t, 1, c.FetchCount())
}

func TestTokenCache_WaiterAddedDuringResolution(t *testing.T) {
	t.Parallel()

	var rec fetchRecorder
	var log tokenLog
	c := NewTokenCache(rec.fetch)

	c.Get(func(tok string) {
		log.ready("first")(tok)
		// the cache is already Ready here, so this resolves immediately
		c.Get(log.ready("nested"), log.failed("nested"))
	}, nil)
	c.Get(log.ready("second"), log.failed("second"))
	rec.last().onOK("t")

	assert.Equal(t, []string{"first:t", "nested:t", "second:t"}, log.events)
	assert.Equal(t, 1, c.FetchCount())
}

func TestTokenCache_ResetDropsWaiters(t *testing.T) {
	t.Parallel()

	var rec fetchRecorder
	var log tokenLog
	c := NewTokenCache(rec.fetch)

	c.Get(log.ready("a"), log.failed("a"))
	stale := rec.last()
	c.Reset()
	stale.onOK("stale")
	assert.Empty(t, log.events, "waiters of a reset cache are never notified")
	_, ok := c.Token()
	assert.False(t, ok)

	c.Get(log.ready("b"), log.failed("b"))
	assert.Equal(t, 2, c.FetchCount())
	rec.last().onOK("fresh")
	assert.Equal(t, []string{"b:fresh"}, log.events)
}

func TestTokenCache_Concurrent(t *testing.T) {
	t.Parallel()

	var rec fetchRecorder
	c := NewTokenCache(rec.fetch)

	const n = 64
	var wg sync.WaitGroup
	var mu sync.Mutex
	var got []string
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Get(func(tok string) {
				mu.Lock()
				got = append(got, tok)
				mu.Unlock()
			}, nil)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, c.FetchCount())
	rec.last().onOK("shared")

	c.Get(func(tok string) { got = append(got, tok) }, nil)
	assert.Len(t, got, n+1)
	for _, tok := range got {
		assert.Equal(t, "shared", tok)
	}
	assert.Equal(t, 1, c.FetchCount(), "exactly one fetch for N+1 calls")
}
