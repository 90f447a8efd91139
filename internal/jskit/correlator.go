package jskit

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// DefaultNackMessage is reported when the transport rejects a message
// without giving a reason.
const DefaultNackMessage = "NACK from watch"

// AckResult is what an ack or nack callback receives. Error is empty for
// acks.
type AckResult struct {
	TransactionID uint32
	Error         string
}

type pendingCall struct {
	onAck  func(AckResult)
	onNack func(AckResult)
}

// TransactionCorrelator matches transport acks and nacks to the Send that
// produced them. Hooks fire on arbitrary goroutines; delivery happens
// through post, which must serialize onto the script thread.
type TransactionCorrelator struct {
	app       uuid.UUID
	transport AppMessageTransport
	arena     *Arena
	owner     Handle
	post      func(func()) bool
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[uint32]*pendingCall
}

// NewTransactionCorrelator returns a correlator sending on behalf of app.
// Results are dropped once owner is no longer alive in arena.
func NewTransactionCorrelator(app uuid.UUID, transport AppMessageTransport, arena *Arena, owner Handle, post func(func()) bool, logger *slog.Logger) *TransactionCorrelator {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransactionCorrelator{
		app:       app,
		transport: transport,
		arena:     arena,
		owner:     owner,
		post:      post,
		logger:    logger,
		pending:   make(map[uint32]*pendingCall),
	}
}

// Send forwards payload and returns its transaction id without waiting.
// At most one of onAck and onNack is called, later, via post; neither is
// called if the owner dies first. Either may be nil. Send fails with
// ErrHostDestroyed, without touching the transport, once the owner is dead.
func (c *TransactionCorrelator) Send(payload map[string]any, onAck, onNack func(AckResult)) (uint32, error) {
	// liveness is checked under mu so an Invalidate that follows the
	// owner's release cannot miss the entry
	c.mu.Lock()
	if !c.arena.Alive(c.owner) {
		c.mu.Unlock()
		return 0, ErrHostDestroyed
	}
	txID := c.transport.NextTransactionID()
	c.pending[txID] = &pendingCall{onAck: onAck, onNack: onNack}
	c.mu.Unlock()

	c.transport.Send(c.app, txID, payload,
		func() { c.complete(txID, true, "") },
		func(reason string) { c.complete(txID, false, reason) },
	)
	return txID, nil
}

func (c *TransactionCorrelator) complete(txID uint32, ack bool, reason string) {
	posted := c.post(func() {
		if !c.arena.Alive(c.owner) {
			c.take(txID)
			c.logger.Debug("dropping app message result for destroyed host", "transactionId", txID)
			return
		}
		call := c.take(txID)
		if call == nil {
			return
		}
		if ack {
			if call.onAck != nil {
				call.onAck(AckResult{TransactionID: txID})
			}
			return
		}
		if reason == "" {
			reason = DefaultNackMessage
		}
		if call.onNack != nil {
			call.onNack(AckResult{TransactionID: txID, Error: reason})
		}
	})
	if !posted {
		c.take(txID)
	}
}

func (c *TransactionCorrelator) take(txID uint32) *pendingCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	call, ok := c.pending[txID]
	if !ok {
		return nil
	}
	delete(c.pending, txID)
	return call
}

// Pending is the number of transactions awaiting a result.
func (c *TransactionCorrelator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Invalidate silently drops every pending transaction.
func (c *TransactionCorrelator) Invalidate() {
	c.mu.Lock()
	clear(c.pending)
	c.mu.Unlock()
}
