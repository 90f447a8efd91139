package jskit

import (
	"sync"

	"github.com/google/uuid"
	"github.com/joeycumines/jskit/internal/blobdb"
)

type sentMessage struct {
	app     uuid.UUID
	txID    uint32
	payload map[string]any
	onAck   func()
	onNack  func(string)
}

type fakeTransport struct {
	mu   sync.Mutex
	next uint32
	sent []*sentMessage
}

func (f *fakeTransport) NextTransactionID() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return f.next
}

func (f *fakeTransport) Send(app uuid.UUID, txID uint32, payload map[string]any, onAck func(), onNack func(string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, &sentMessage{app: app, txID: txID, payload: payload, onAck: onAck, onNack: onNack})
}

func (f *fakeTransport) message(i int) *sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[i]
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type timelineCall struct {
	op     string
	app    uuid.UUID
	token  string
	topic  string
	okStr  func(string)
	okList func([]string)
	onErr  func(string)
}

// fakeTimeline records calls; tests complete them explicitly.
type fakeTimeline struct {
	mu    sync.Mutex
	calls []*timelineCall
}

func (f *fakeTimeline) record(c *timelineCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeTimeline) FetchToken(app uuid.UUID, onOK func(string), onErr func(string)) {
	f.record(&timelineCall{op: "token", app: app, okStr: onOK, onErr: onErr})
}

func (f *fakeTimeline) Subscribe(token, topic string, onOK func(string), onErr func(string)) {
	f.record(&timelineCall{op: "subscribe", token: token, topic: topic, okStr: onOK, onErr: onErr})
}

func (f *fakeTimeline) Unsubscribe(token, topic string, onOK func(string), onErr func(string)) {
	f.record(&timelineCall{op: "unsubscribe", token: token, topic: topic, okStr: onOK, onErr: onErr})
}

func (f *fakeTimeline) ListSubscriptions(token string, onOK func([]string), onErr func(string)) {
	f.record(&timelineCall{op: "list", token: token, okList: onOK, onErr: onErr})
}

func (f *fakeTimeline) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ops := make([]string, len(f.calls))
	for i, c := range f.calls {
		ops[i] = c.op
	}
	return ops
}

func (f *fakeTimeline) call(i int) *timelineCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

type replaceCall struct {
	app        uuid.UUID
	slices     []blobdb.Slice
	onComplete blobdb.CompletionFunc
}

type fakeRecords struct {
	mu    sync.Mutex
	calls []*replaceCall
}

func (f *fakeRecords) Replace(app uuid.UUID, slices []blobdb.Slice, onComplete blobdb.CompletionFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, &replaceCall{app: app, slices: slices, onComplete: onComplete})
}

func (f *fakeRecords) call(i int) *replaceCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

type notification struct {
	app uuid.UUID
	pin Pin
	url string
}

type fakeNotifier struct {
	mu  sync.Mutex
	got []notification
}

func (f *fakeNotifier) Notify(app uuid.UUID, pin Pin) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, notification{app: app, pin: pin})
}

func (f *fakeNotifier) OpenURL(app uuid.UUID, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, notification{app: app, url: url})
}

func (f *fakeNotifier) all() []notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notification(nil), f.got...)
}

// jobQueue is a post target run by hand.
type jobQueue struct {
	mu     sync.Mutex
	jobs   []func()
	closed bool
}

func (q *jobQueue) post(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.jobs = append(q.jobs, fn)
	return true
}

func (q *jobQueue) drain() int {
	n := 0
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.mu.Unlock()
			return n
		}
		fn := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()
		fn()
		n++
	}
}
