package jskit

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"github.com/joeycumines/jskit/internal/blobdb"
)

// AppInfo identifies the app a Host runs.
type AppInfo struct {
	UUID      uuid.UUID
	ShortName string
}

// Loop is the script thread. scripting.Runtime implements it.
type Loop interface {
	RunOnLoop(fn func(*goja.Runtime)) bool
}

// Host is the native side of one running app's Pebble object. It owns the
// app's listeners, pending app messages and timeline token.
//
// Results from native services re-enter through the Loop and are dropped
// once the Host is destroyed. Methods taking callbacks call them on the
// loop goroutine.
type Host struct {
	app    AppInfo
	mgr    *Manager
	handle Handle
	logger *slog.Logger

	listeners  *ListenerRegistry[goja.Value]
	correlator *TransactionCorrelator
	tokens     *TokenCache

	destroyOnce sync.Once

	// loop goroutine only
	object *goja.Object
}

func newHost(m *Manager, app AppInfo) *Host {
	h := &Host{
		app:    app,
		mgr:    m,
		handle: m.arena.Acquire(),
		logger: m.logger.With("app", app.UUID.String()),
	}
	h.listeners = NewListenerRegistry[goja.Value](h.logger)
	h.correlator = NewTransactionCorrelator(app.UUID, m.services.AppMessages, &m.arena, h.handle,
		func(fn func()) bool { return h.post(func(*goja.Runtime) { fn() }) }, h.logger)
	h.tokens = NewTokenCache(h.fetchToken)
	return h
}

// App returns the app this host runs.
func (h *Host) App() AppInfo { return h.app }

// Alive reports whether Destroy has not been called.
func (h *Host) Alive() bool { return h.mgr.arena.Alive(h.handle) }

// Destroy tears the host down. Pending app messages and token waiters are
// dropped without notification, listeners are cleared and the script's
// Pebble global is removed. Safe to call from any goroutine, more than once.
func (h *Host) Destroy() {
	h.destroyOnce.Do(func() {
		h.mgr.arena.Release(h.handle)
		h.correlator.Invalidate()
		h.tokens.Reset()
		h.listeners.Clear()
		h.mgr.detach(h)
		h.mgr.loop.RunOnLoop(func(vm *goja.Runtime) {
			if h.object != nil && vm.GlobalObject().Get("Pebble") == h.object {
				_ = vm.GlobalObject().Delete("Pebble")
			}
			h.object = nil
		})
		h.logger.Debug("host destroyed")
	})
}

// post runs fn on the loop if the host is still alive when it gets there.
func (h *Host) post(fn func(vm *goja.Runtime)) bool {
	return h.mgr.loop.RunOnLoop(func(vm *goja.Runtime) {
		if !h.Alive() {
			h.logger.Debug("dropping completion for destroyed host")
			return
		}
		fn(vm)
	})
}

// Dispatch delivers a native event to the script's listeners for
// eventType. The listeners receive one event object holding type plus
// fields.
func (h *Host) Dispatch(eventType string, fields map[string]any) bool {
	return h.post(func(vm *goja.Runtime) {
		event := vm.NewObject()
		_ = event.Set("type", eventType)
		for k, v := range fields {
			_ = event.Set(k, v)
		}
		h.invoke(eventType, event)
	})
}

func (h *Host) invoke(eventType string, args ...goja.Value) {
	this := goja.Value(goja.Undefined())
	if h.object != nil {
		this = h.object
	}
	h.listeners.Invoke(eventType, func(v goja.Value) error {
		fn, ok := goja.AssertFunction(v)
		if !ok {
			return errors.New("listener is not a function")
		}
		_, err := fn(this, args...)
		return err
	})
}

// SendAppMessage sends payload to the watch app. onAck or onNack is called
// once the watch answers, unless the host is destroyed first.
func (h *Host) SendAppMessage(payload map[string]any, onAck, onNack func(AckResult)) (uint32, error) {
	txID, err := h.correlator.Send(payload, onAck, onNack)
	if err != nil {
		return 0, err
	}
	h.logger.Debug("app message sent", "transactionId", txID)
	return txID, nil
}

// PendingTransactions is the number of app messages awaiting ack or nack.
func (h *Host) PendingTransactions() int { return h.correlator.Pending() }

// TokenFetches is the number of timeline token fetches this host started.
func (h *Host) TokenFetches() int { return h.tokens.FetchCount() }

func (h *Host) fetchToken(onOK func(string), onErr func(error)) {
	h.logger.Debug("fetching timeline token")
	h.mgr.services.Timeline.FetchToken(h.app.UUID,
		func(token string) { h.post(func(*goja.Runtime) { onOK(token) }) },
		func(msg string) { h.post(func(*goja.Runtime) { onErr(errors.New(msg)) }) },
	)
}

// withToken runs onReady with the app's timeline token. A destroyed host
// starts no fetch and returns ErrHostDestroyed.
func (h *Host) withToken(onReady func(token string), onErr func(msg string)) error {
	if !h.Alive() {
		return ErrHostDestroyed
	}
	h.tokens.Get(onReady, failWith(onErr))
	return nil
}

// TimelineToken delivers the app's timeline token, fetching it at most once
// at a time.
func (h *Host) TimelineToken(onOK func(token string), onErr func(msg string)) error {
	return h.withToken(onOK, onErr)
}

// Subscribe subscribes the user to topic. onOK receives the service's
// acknowledgement.
func (h *Host) Subscribe(topic string, onOK func(ack string), onErr func(msg string)) error {
	return h.withToken(func(token string) {
		h.mgr.services.Timeline.Subscribe(token, topic, h.deliverString(onOK, "subscribed", topic), h.deliverString(onErr, "subscribe failed", topic))
	}, onErr)
}

// Unsubscribe removes the user's subscription to topic.
func (h *Host) Unsubscribe(topic string, onOK func(ack string), onErr func(msg string)) error {
	return h.withToken(func(token string) {
		h.mgr.services.Timeline.Unsubscribe(token, topic, h.deliverString(onOK, "unsubscribed", topic), h.deliverString(onErr, "unsubscribe failed", topic))
	}, onErr)
}

// ListSubscriptions lists the user's topics in service order.
func (h *Host) ListSubscriptions(onOK func(topics []string), onErr func(msg string)) error {
	return h.withToken(func(token string) {
		h.mgr.services.Timeline.ListSubscriptions(token,
			func(topics []string) {
				h.post(func(*goja.Runtime) {
					h.logger.Debug("fetched subscriptions", "topics", topics)
					if onOK != nil {
						onOK(topics)
					}
				})
			},
			h.deliverString(onErr, "listing subscriptions failed", ""))
	}, onErr)
}

func (h *Host) deliverString(fn func(string), what, topic string) func(string) {
	return func(s string) {
		h.post(func(*goja.Runtime) {
			h.logger.Debug(what, "topic", topic, "result", s)
			if fn != nil {
				fn(s)
			}
		})
	}
}

func failWith(fn func(string)) func(error) {
	return func(err error) {
		if fn != nil {
			fn(err.Error())
		}
	}
}

// ReloadGlances replaces the app's glance slices. onResult reports whether
// the store accepted the insert.
func (h *Host) ReloadGlances(slices []blobdb.Slice, onResult func(success bool)) {
	h.mgr.services.Records.Replace(h.app.UUID, slices, func(op blobdb.Operation, status blobdb.Status) {
		if op != blobdb.OperationInsert {
			return
		}
		h.post(func(*goja.Runtime) {
			h.logger.Debug("app glances reloaded", "status", status.String())
			if onResult != nil {
				onResult(status == blobdb.StatusSuccess)
			}
		})
	})
}

// AccountToken returns the app's account token, creating the shared seed on
// first use.
func (h *Host) AccountToken() (string, error) {
	seed, err := h.mgr.seeds.seed()
	if err != nil {
		return "", err
	}
	return AccountToken(h.app.UUID, seed), nil
}

// WatchToken returns the app's token for the connected watch.
func (h *Host) WatchToken() string {
	return WatchToken(h.app.UUID, h.mgr.services.Device.Serial())
}

// WatchInfo describes the connected watch.
func (h *Host) WatchInfo() WatchInfo {
	return watchInfo(h.mgr.services.Device)
}

// ShowSimpleNotification builds a notification pin and hands it to the
// Notifier.
func (h *Host) ShowSimpleNotification(title, body string) Pin {
	pin := simpleNotification(h.app, title, body, h.mgr.now())
	h.logger.Debug("showing notification", "id", pin.ID)
	h.mgr.services.Notifier.Notify(h.app.UUID, pin)
	return pin
}

// OpenURL asks the phone to open url on behalf of the app.
func (h *Host) OpenURL(url string) {
	h.mgr.services.Notifier.OpenURL(h.app.UUID, url)
}
