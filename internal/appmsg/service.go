// Package appmsg implements the native side of app messaging: it issues
// transaction ids, hands messages to a device link and resolves each
// transaction exactly once with an ack or a nack.
package appmsg

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrClosed is the nack reason for transactions outstanding when the
	// service is closed.
	ErrClosed = errors.New("app message service closed")

	// ErrAckTimeout is the nack reason for transactions the device never
	// answered.
	ErrAckTimeout = errors.New("timed out waiting for ack")
)

// DefaultAckTimeout bounds how long a transaction waits for the device.
const DefaultAckTimeout = 10 * time.Second

// Message is an outgoing app message.
type Message struct {
	App           uuid.UUID      `json:"app"`
	TransactionID uint32         `json:"transactionId"`
	Payload       map[string]any `json:"payload"`
}

// Link delivers messages to the device. WriteMessage may block; it is
// always called off the caller's goroutine.
type Link interface {
	WriteMessage(ctx context.Context, msg Message) error
}

type transaction struct {
	once   sync.Once
	timer  *time.Timer
	onAck  func()
	onNack func(reason string)
}

func (tx *transaction) resolve(ack bool, reason string) bool {
	resolved := false
	tx.once.Do(func() {
		resolved = true
		if tx.timer != nil {
			tx.timer.Stop()
		}
		if ack {
			if tx.onAck != nil {
				tx.onAck()
			}
		} else if tx.onNack != nil {
			tx.onNack(reason)
		}
	})
	return resolved
}

// Service is the app-message transport.
type Service struct {
	link       Link
	ackTimeout time.Duration
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	lastID  uint32
	pending map[uint32]*transaction
	closed  bool
}

// Option configures a Service.
type Option func(*Service)

// WithAckTimeout overrides DefaultAckTimeout. Zero disables the timeout.
func WithAckTimeout(d time.Duration) Option {
	return func(s *Service) { s.ackTimeout = d }
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service writing to link.
func NewService(link Link, opts ...Option) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		link:       link,
		ackTimeout: DefaultAckTimeout,
		logger:     slog.Default(),
		ctx:        ctx,
		cancel:     cancel,
		pending:    make(map[uint32]*transaction),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextTransactionID returns a fresh id. Ids increase monotonically, wrap
// around, never return 0 and skip ids that are still outstanding.
func (s *Service) NextTransactionID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		s.lastID++
		if s.lastID == 0 {
			continue
		}
		if _, busy := s.pending[s.lastID]; !busy {
			return s.lastID
		}
	}
}

// Send queues payload for app under txID. Exactly one of onAck or onNack is
// eventually called, on an arbitrary goroutine, unless the device never
// answers and the ack timeout is disabled.
func (s *Service) Send(app uuid.UUID, txID uint32, payload map[string]any, onAck func(), onNack func(reason string)) {
	tx := &transaction{onAck: onAck, onNack: onNack}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		go tx.resolve(false, ErrClosed.Error())
		return
	}
	if _, busy := s.pending[txID]; busy {
		s.mu.Unlock()
		s.logger.Warn("duplicate app message transaction", "transactionId", txID)
		go tx.resolve(false, "duplicate transaction id")
		return
	}
	s.pending[txID] = tx
	if s.ackTimeout > 0 {
		tx.timer = time.AfterFunc(s.ackTimeout, func() {
			s.finish(txID, false, ErrAckTimeout.Error())
		})
	}
	s.mu.Unlock()

	msg := Message{App: app, TransactionID: txID, Payload: payload}
	go func() {
		if err := s.link.WriteMessage(s.ctx, msg); err != nil {
			s.logger.Debug("app message write failed", "transactionId", txID, "error", err)
			s.finish(txID, false, err.Error())
		}
	}()
}

// HandleAck resolves txID as acknowledged by the device. It reports whether
// the transaction was outstanding.
func (s *Service) HandleAck(txID uint32) bool {
	return s.finish(txID, true, "")
}

// HandleNack resolves txID as rejected by the device. An empty reason lets
// the consumer substitute its own message.
func (s *Service) HandleNack(txID uint32, reason string) bool {
	return s.finish(txID, false, reason)
}

func (s *Service) finish(txID uint32, ack bool, reason string) bool {
	s.mu.Lock()
	tx, ok := s.pending[txID]
	if ok {
		delete(s.pending, txID)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	return tx.resolve(ack, reason)
}

// Pending returns the number of outstanding transactions.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close nacks every outstanding transaction with ErrClosed and rejects
// further sends. It is safe to call more than once.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pending := s.pending
	s.pending = make(map[uint32]*transaction)
	s.mu.Unlock()

	s.cancel()
	for _, tx := range pending {
		tx.resolve(false, ErrClosed.Error())
	}
	return nil
}
