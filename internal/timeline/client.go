// Package timeline is a client for the timeline subscription service: it
// obtains per-app user tokens and manages the topic subscriptions bound to
// them.
//
// Every operation is asynchronous. Results are delivered to the supplied
// callbacks on a goroutine owned by the client, never on the caller's.
package timeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds each HTTP request.
const DefaultTimeout = 30 * time.Second

// TokenHeader carries the user token on subscription requests.
const TokenHeader = "X-User-Token"

// maxBody caps how much of a response body is read.
const maxBody = 1 << 20

// Client talks to the timeline service over HTTP.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	tokens singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (default http.DefaultClient).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.timeout = d }
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient returns a Client for the service rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("timeline: base URL is required")
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("timeline: invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("timeline: unsupported URL scheme %q", base.Scheme)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		base:    base,
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close cancels in-flight requests and waits for their callbacks.
func (c *Client) Close() error {
	c.cancel()
	c.wg.Wait()
	return nil
}

type tokenResponse struct {
	Token string `json:"token"`
}

type subscriptionsResponse struct {
	Topics []string `json:"topics"`
}

// FetchToken obtains the user token for app. Concurrent fetches for the same
// app share one request.
func (c *Client) FetchToken(app uuid.UUID, onOK func(token string), onErr func(msg string)) {
	c.async(func() {
		v, err, shared := c.tokens.Do(app.String(), func() (any, error) {
			var resp tokenResponse
			q := url.Values{"app_uuid": {app.String()}}
			if err := c.doJSON(http.MethodGet, "v1/user/token", q, "", &resp); err != nil {
				return nil, err
			}
			return resp.Token, nil
		})
		if err != nil {
			c.logger.Debug("timeline token fetch failed", "app", app, "error", err)
			call(onErr, err.Error())
			return
		}
		c.logger.Debug("timeline token fetched", "app", app, "shared", shared)
		call(onOK, v.(string))
	})
}

// Subscribe subscribes the token's user to topic. onOK receives the
// service's acknowledgement text.
func (c *Client) Subscribe(token, topic string, onOK func(ack string), onErr func(msg string)) {
	c.topicRequest(http.MethodPost, token, topic, onOK, onErr)
}

// Unsubscribe removes the subscription to topic.
func (c *Client) Unsubscribe(token, topic string, onOK func(ack string), onErr func(msg string)) {
	c.topicRequest(http.MethodDelete, token, topic, onOK, onErr)
}

// ListSubscriptions lists the subscribed topics in service order.
func (c *Client) ListSubscriptions(token string, onOK func(topics []string), onErr func(msg string)) {
	c.async(func() {
		var resp subscriptionsResponse
		if err := c.doJSON(http.MethodGet, "v1/user/subscriptions", nil, token, &resp); err != nil {
			call(onErr, err.Error())
			return
		}
		topics := resp.Topics
		if topics == nil {
			topics = []string{}
		}
		if onOK != nil {
			onOK(topics)
		}
	})
}

func (c *Client) topicRequest(method, token, topic string, onOK func(string), onErr func(string)) {
	if topic == "" {
		c.async(func() { call(onErr, "timeline: topic must not be empty") })
		return
	}
	c.async(func() {
		body, err := c.do(method, "v1/user/subscriptions/"+url.PathEscape(topic), nil, token)
		if err != nil {
			call(onErr, err.Error())
			return
		}
		call(onOK, strings.TrimSpace(string(body)))
	})
}

func (c *Client) async(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

func call(fn func(string), v string) {
	if fn != nil {
		fn(v)
	}
}

func (c *Client) doJSON(method, path string, query url.Values, token string, out any) error {
	body, err := c.do(method, path, query, token)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("timeline: invalid response: %w", err)
	}
	return nil
}

func (c *Client) do(method, path string, query url.Values, token string) ([]byte, error) {
	ctx := c.ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("timeline: %s %s: %w", method, u.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("timeline: reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &StatusError{Code: resp.StatusCode, Message: msg}
	}
	return body, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("timeline: HTTP %d: %s", e.Code, e.Message)
}
