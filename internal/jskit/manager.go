// Package jskit bridges PebbleKit JS scripts running in goja to the native
// phone-side services: app messages, the timeline subscription service, the
// app glance record store and settings.
//
// A Manager runs at most one app at a time. Launching an app creates a Host
// and installs its Pebble object as a global (also available through
// require('jskit:pebble')).
package jskit

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
)

// ModuleName is the require() name of the current host's Pebble object.
const ModuleName = "jskit:pebble"

// Services are the native collaborators of a Manager. AppMessages, Timeline,
// Records and Settings are required; Device and Notifier default to a blank
// device and a notifier that discards everything.
type Services struct {
	AppMessages AppMessageTransport
	Timeline    TimelineService
	Records     RecordStore
	Settings    SettingsStore
	Device      Device
	Notifier    Notifier
}

// Manager owns the running Host and routes native events to it.
type Manager struct {
	loop     Loop
	services Services
	logger   *slog.Logger
	now      func() time.Time

	arena Arena
	seeds seedSource

	mu      sync.Mutex
	current *Host
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock overrides time.Now, used for notification ids.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager returns a Manager whose hosts run scripts on loop.
func NewManager(loop Loop, services Services, opts ...Option) (*Manager, error) {
	if loop == nil {
		return nil, errors.New("jskit: loop is required")
	}
	switch {
	case services.AppMessages == nil:
		return nil, errors.New("jskit: app message transport is required")
	case services.Timeline == nil:
		return nil, errors.New("jskit: timeline service is required")
	case services.Records == nil:
		return nil, errors.New("jskit: record store is required")
	case services.Settings == nil:
		return nil, errors.New("jskit: settings store is required")
	}
	if services.Device == nil {
		services.Device = StaticDevice{}
	}
	if services.Notifier == nil {
		services.Notifier = discardNotifier{}
	}

	m := &Manager{
		loop:     loop,
		services: services,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.seeds.store = services.Settings
	return m, nil
}

// Launch destroys the running host, if any, and starts app. The Pebble
// global is installed on the loop before any job queued after Launch runs.
func (m *Manager) Launch(app AppInfo) (*Host, error) {
	if prev := m.Current(); prev != nil {
		prev.Destroy()
	}

	h := newHost(m, app)
	m.mu.Lock()
	m.current = h
	m.mu.Unlock()

	ok := m.loop.RunOnLoop(func(vm *goja.Runtime) {
		if !h.Alive() {
			return
		}
		h.object = h.newPebbleObject(vm)
		if err := vm.Set("Pebble", h.object); err != nil {
			h.logger.Error("failed to install Pebble global", "error", err)
		}
	})
	if !ok {
		h.Destroy()
		return nil, errors.New("jskit: event loop not running")
	}
	h.logger.Info("app launched", "name", app.ShortName)
	return h, nil
}

// Current returns the running host, or nil.
func (m *Manager) Current() *Host {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Stop destroys the running host, if any.
func (m *Manager) Stop() {
	if h := m.Current(); h != nil {
		h.Destroy()
	}
}

func (m *Manager) detach(h *Host) {
	m.mu.Lock()
	if m.current == h {
		m.current = nil
	}
	m.mu.Unlock()
}

// Dispatch delivers a native event (ready, appmessage, showConfiguration,
// webviewclosed, ...) to the running host. It reports false if no host is
// running.
func (m *Manager) Dispatch(eventType string, fields map[string]any) bool {
	h := m.Current()
	if h == nil {
		m.logger.Debug("no app running, dropping event", "type", eventType)
		return false
	}
	return h.Dispatch(eventType, fields)
}

// Register makes require('jskit:pebble') return the running host's Pebble
// object.
func (m *Manager) Register(registry *require.Registry) {
	registry.RegisterNativeModule(ModuleName, func(vm *goja.Runtime, module *goja.Object) {
		h := m.Current()
		if h == nil || h.object == nil {
			panic(vm.NewTypeError("%s: no app is running", ModuleName))
		}
		_ = module.Set("exports", h.object)
	})
}
