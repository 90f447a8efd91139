package jskit

import (
	"github.com/google/uuid"
	"github.com/joeycumines/jskit/internal/blobdb"
)

// AppMessageTransport delivers app messages to the watch. Exactly one of
// onAck or onNack is called per Send, on any goroutine.
type AppMessageTransport interface {
	NextTransactionID() uint32
	Send(app uuid.UUID, txID uint32, payload map[string]any, onAck func(), onNack func(reason string))
}

// TimelineService is the timeline subscription backend. Callbacks may run
// on any goroutine.
type TimelineService interface {
	FetchToken(app uuid.UUID, onOK func(token string), onErr func(msg string))
	Subscribe(token, topic string, onOK func(ack string), onErr func(msg string))
	Unsubscribe(token, topic string, onOK func(ack string), onErr func(msg string))
	ListSubscriptions(token string, onOK func(topics []string), onErr func(msg string))
}

// RecordStore is the watch-side record database.
type RecordStore = blobdb.Store

// SettingsStore persists small string values across runs.
type SettingsStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Device describes the connected watch.
type Device interface {
	Serial() string
	Platform() string
	ModelName() string
	Language() string
	FirmwareVersion() string
}

// Notifier surfaces app-initiated notifications and URL requests to the
// phone side.
type Notifier interface {
	Notify(app uuid.UUID, pin Pin)
	OpenURL(app uuid.UUID, url string)
}

// StaticDevice is a Device with fixed values.
type StaticDevice struct {
	SerialNumber string
	PlatformName string
	Model        string
	Lang         string
	Firmware     string
}

func (d StaticDevice) Serial() string          { return d.SerialNumber }
func (d StaticDevice) Platform() string        { return d.PlatformName }
func (d StaticDevice) ModelName() string       { return d.Model }
func (d StaticDevice) Language() string        { return d.Lang }
func (d StaticDevice) FirmwareVersion() string { return d.Firmware }

type discardNotifier struct{}

func (discardNotifier) Notify(uuid.UUID, Pin)      {}
func (discardNotifier) OpenURL(uuid.UUID, string) {}
