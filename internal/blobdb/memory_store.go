package blobdb

import (
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. A Replace on a key that already holds
// slices reports a delete followed by an insert; completions are delivered
// on a separate goroutine, as a real device link would.
type MemoryStore struct {
	mu        sync.Mutex
	records   map[uuid.UUID][]Slice
	maxSlices int
	wg        sync.WaitGroup
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithMaxSlices caps the number of slices a single key may hold. Inserts
// over the cap complete with StatusDatabaseFull. Zero means unlimited.
func WithMaxSlices(n int) MemoryStoreOption {
	return func(s *MemoryStore) { s.maxSlices = n }
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{records: make(map[uuid.UUID][]Slice)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Replace implements Store.
func (s *MemoryStore) Replace(app uuid.UUID, slices []Slice, onComplete CompletionFunc) {
	type result struct {
		op     Operation
		status Status
	}
	var results []result

	s.mu.Lock()
	if _, exists := s.records[app]; exists {
		delete(s.records, app)
		results = append(results, result{OperationDelete, StatusSuccess})
	}
	if s.maxSlices > 0 && len(slices) > s.maxSlices {
		results = append(results, result{OperationInsert, StatusDatabaseFull})
	} else {
		s.records[app] = append([]Slice(nil), slices...)
		results = append(results, result{OperationInsert, StatusSuccess})
	}
	s.mu.Unlock()

	if onComplete == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for _, r := range results {
			onComplete(r.op, r.status)
		}
	}()
}

// Slices returns a copy of the slices stored for app.
func (s *MemoryStore) Slices(app uuid.UUID) ([]Slice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.records[app]
	if !ok {
		return nil, false
	}
	return append([]Slice(nil), v...), true
}

// Wait blocks until every pending completion has been delivered.
func (s *MemoryStore) Wait() { s.wg.Wait() }

var _ Store = (*MemoryStore)(nil)
