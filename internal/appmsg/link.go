package appmsg

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// WriterLink encodes each message as one JSON line on w.
type WriterLink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriterLink returns a Link writing JSON lines to w.
func NewWriterLink(w io.Writer) *WriterLink {
	return &WriterLink{enc: json.NewEncoder(w)}
}

// WriteMessage implements Link.
func (l *WriterLink) WriteMessage(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enc.Encode(msg); err != nil {
		return fmt.Errorf("encode app message: %w", err)
	}
	return nil
}

// AutoAckLink wraps a Link and acknowledges every successfully written
// message through Service, standing in for a device that accepts
// everything.
type AutoAckLink struct {
	Link
	Service *Service
}

// WriteMessage implements Link.
func (l *AutoAckLink) WriteMessage(ctx context.Context, msg Message) error {
	if err := l.Link.WriteMessage(ctx, msg); err != nil {
		return err
	}
	if l.Service != nil {
		l.Service.HandleAck(msg.TransactionID)
	}
	return nil
}

// LinkFunc adapts a function to Link.
type LinkFunc func(ctx context.Context, msg Message) error

// WriteMessage implements Link.
func (f LinkFunc) WriteMessage(ctx context.Context, msg Message) error { return f(ctx, msg) }
