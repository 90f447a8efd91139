package scripting

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultLogBufferSize is the ring size used when none is given.
const DefaultLogBufferSize = 1000

// LogEntry is one record retained by a DiagnosticsLogger.
type LogEntry struct {
	Time    time.Time         `json:"time"`
	Level   slog.Level        `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs"`
}

// ParseLevel maps debug, info, warn (or warning) and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q", s)
}

// DiagnosticsLogger keeps the most recent log records in memory and can tee
// them as JSON lines to a writer (usually a RotatingFileWriter).
type DiagnosticsLogger struct {
	logger *slog.Logger
	ring   *logRing
	level  *slog.LevelVar
}

// NewDiagnosticsLogger builds a logger retaining up to maxEntries records at
// or above level. tee may be nil.
func NewDiagnosticsLogger(level slog.Level, maxEntries int, tee io.Writer) *DiagnosticsLogger {
	if maxEntries <= 0 {
		maxEntries = DefaultLogBufferSize
	}
	lv := new(slog.LevelVar)
	lv.Set(level)

	h := &DiagnosticsHandler{
		ring:  &logRing{entries: make([]LogEntry, 0, maxEntries), max: maxEntries},
		level: lv,
	}
	if tee != nil {
		h.tee = slog.NewJSONHandler(tee, &slog.HandlerOptions{Level: lv})
	}
	return &DiagnosticsLogger{logger: slog.New(h), ring: h.ring, level: lv}
}

// Logger returns the slog.Logger backed by this DiagnosticsLogger.
func (l *DiagnosticsLogger) Logger() *slog.Logger { return l.logger }

// SetLevel changes the minimum level at runtime.
func (l *DiagnosticsLogger) SetLevel(level slog.Level) { l.level.Set(level) }

// Entries returns a copy of every retained entry, oldest first.
func (l *DiagnosticsLogger) Entries() []LogEntry {
	return l.ring.recent(0)
}

// Recent returns up to n of the newest entries, oldest first.
func (l *DiagnosticsLogger) Recent(n int) []LogEntry {
	return l.ring.recent(n)
}

// Search returns entries whose message, attribute key or attribute value
// contains query, case-insensitively.
func (l *DiagnosticsLogger) Search(query string) []LogEntry {
	query = strings.ToLower(query)
	var matches []LogEntry
	for _, e := range l.ring.recent(0) {
		if strings.Contains(strings.ToLower(e.Message), query) {
			matches = append(matches, e)
			continue
		}
		for k, v := range e.Attrs {
			if strings.Contains(strings.ToLower(k), query) || strings.Contains(strings.ToLower(v), query) {
				matches = append(matches, e)
				break
			}
		}
	}
	return matches
}

// Clear drops all retained entries.
func (l *DiagnosticsLogger) Clear() {
	l.ring.mu.Lock()
	l.ring.entries = l.ring.entries[:0]
	l.ring.mu.Unlock()
}

type logRing struct {
	mu      sync.RWMutex
	entries []LogEntry
	max     int
}

func (r *logRing) add(e LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == r.max {
		copy(r.entries, r.entries[1:])
		r.entries = r.entries[:len(r.entries)-1]
	}
	r.entries = append(r.entries, e)
}

func (r *logRing) recent(n int) []LogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 || n > len(r.entries) {
		n = len(r.entries)
	}
	out := make([]LogEntry, n)
	copy(out, r.entries[len(r.entries)-n:])
	return out
}

// DiagnosticsHandler is the slog.Handler behind DiagnosticsLogger. Attributes
// added through WithAttrs are flattened into each entry, with group names as
// dotted key prefixes.
type DiagnosticsHandler struct {
	ring   *logRing
	level  slog.Leveler
	tee    slog.Handler
	attrs  []slog.Attr
	prefix string
}

// Enabled implements slog.Handler.
func (h *DiagnosticsHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *DiagnosticsHandler) Handle(ctx context.Context, record slog.Record) error {
	attrs := make(map[string]string, len(h.attrs)+record.NumAttrs())
	for _, a := range h.attrs {
		flatten(attrs, "", a)
	}
	record.Attrs(func(a slog.Attr) bool {
		flatten(attrs, h.prefix, a)
		return true
	})
	h.ring.add(LogEntry{
		Time:    record.Time,
		Level:   record.Level,
		Message: record.Message,
		Attrs:   attrs,
	})
	if h.tee != nil {
		return h.tee.Handle(ctx, record)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *DiagnosticsHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := *h
	c.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		c.attrs = append(c.attrs, a)
	}
	if h.tee != nil {
		c.tee = h.tee.WithAttrs(attrs)
	}
	return &c
}

// WithGroup implements slog.Handler.
func (h *DiagnosticsHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	if h.tee != nil {
		c.tee = h.tee.WithGroup(name)
	}
	return &c
}

func flatten(dst map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			flatten(dst, p, ga)
		}
		return
	}
	dst[prefix+a.Key] = a.Value.String()
}
