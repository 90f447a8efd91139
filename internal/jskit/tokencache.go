package jskit

import "sync"

// TokenFetcher starts one native token fetch. Exactly one of onOK and onErr
// must eventually be called, on any goroutine, or never if the fetch hangs.
type TokenFetcher func(onOK func(token string), onErr func(err error))

type tokenState uint8

const (
	tokenEmpty tokenState = iota
	tokenPending
	tokenReady
)

type tokenWaiter struct {
	onReady   func(string)
	onFailure func(error)
}

// TokenCache is a single-flight cache for one token. The first Get starts a
// fetch, later callers join it, and every waiter hears the result once, in
// the order it attached. A success is cached for the cache's lifetime; a
// failure (including an empty token) empties the cache so the next Get
// fetches again. There is no timeout.
type TokenCache struct {
	fetch TokenFetcher

	mu      sync.Mutex
	state   tokenState
	token   string
	waiters []tokenWaiter
	epoch   uint64
	fetches int
}

// NewTokenCache returns an empty cache that fetches through fetch.
func NewTokenCache(fetch TokenFetcher) *TokenCache {
	return &TokenCache{fetch: fetch}
}

// Get calls onReady with the token, immediately if cached, or onFailure with
// the fetch error. Either callback may be nil.
func (c *TokenCache) Get(onReady func(token string), onFailure func(err error)) {
	c.mu.Lock()
	switch c.state {
	case tokenReady:
		token := c.token
		c.mu.Unlock()
		if onReady != nil {
			onReady(token)
		}
		return
	case tokenPending:
		c.waiters = append(c.waiters, tokenWaiter{onReady, onFailure})
		c.mu.Unlock()
		return
	}

	c.state = tokenPending
	c.waiters = []tokenWaiter{{onReady, onFailure}}
	c.fetches++
	epoch := c.epoch
	c.mu.Unlock()

	c.fetch(
		func(token string) { c.resolve(epoch, token, nil) },
		func(err error) { c.resolve(epoch, "", err) },
	)
}

func (c *TokenCache) resolve(epoch uint64, token string, err error) {
	c.mu.Lock()
	if epoch != c.epoch || c.state != tokenPending {
		c.mu.Unlock()
		return
	}
	if err == nil && token == "" {
		err = ErrEmptyToken
	}
	waiters := c.waiters
	c.waiters = nil
	if err != nil {
		c.state = tokenEmpty
	} else {
		c.state, c.token = tokenReady, token
	}
	c.mu.Unlock()

	for _, w := range waiters {
		if err != nil {
			if w.onFailure != nil {
				w.onFailure(err)
			}
		} else if w.onReady != nil {
			w.onReady(token)
		}
	}
}

// Token returns the cached token, if any.
func (c *TokenCache) Token() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, c.state == tokenReady
}

// FetchCount is the number of native fetches started.
func (c *TokenCache) FetchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

// Reset empties the cache and silently drops current waiters. A fetch still
// in flight is ignored when it completes.
func (c *TokenCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.state = tokenEmpty
	c.token = ""
	c.waiters = nil
}
