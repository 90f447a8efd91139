package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// FileSystemBackend stores settings as a JSON document in a directory it
// holds an exclusive lock on.
type FileSystemBackend struct {
	dir      string
	mu       sync.Mutex
	lockFile *os.File
	doc      *Document
}

// NewFileSystemBackend opens (creating if needed) the settings directory and
// acquires its lock. If dir is empty, DefaultDirectory is used.
func NewFileSystemBackend(dir string) (*FileSystemBackend, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDirectory(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}

	lockFile, err := acquireFileLock(LockFilePath(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to acquire settings lock: %w", err)
	}

	doc, err := readDocument(DocumentPath(dir))
	if err != nil {
		_ = releaseFileLock(lockFile)
		return nil, err
	}

	return &FileSystemBackend{
		dir:      dir,
		lockFile: lockFile,
		doc:      doc,
	}, nil
}

func readDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return newDocument(), nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	doc := newDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if doc.Values == nil {
		doc.Values = make(map[string]string)
	}
	return doc, nil
}

// Dir returns the settings directory.
func (b *FileSystemBackend) Dir() string { return b.dir }

// Get implements Backend.
func (b *FileSystemBackend) Get(key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lockFile == nil {
		return "", false, fmt.Errorf("settings backend is closed")
	}
	v, ok := b.doc.Values[key]
	return v, ok, nil
}

// Set implements Backend.
func (b *FileSystemBackend) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lockFile == nil {
		return fmt.Errorf("settings backend is closed")
	}

	next := &Document{
		Version:   currentSchemaVersion,
		UpdatedAt: time.Now(),
		Values:    make(map[string]string, len(b.doc.Values)+1),
	}
	for k, v := range b.doc.Values {
		next.Values[k] = v
	}
	next.Values[key] = value

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := AtomicWriteFile(DocumentPath(b.dir), data, 0600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	b.doc = next
	return nil
}

// Close releases the directory lock.
func (b *FileSystemBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lockFile == nil {
		return nil
	}
	if err := releaseFileLock(b.lockFile); err != nil {
		return fmt.Errorf("failed to release settings lock: %w", err)
	}
	b.lockFile = nil
	return nil
}

var _ Backend = (*FileSystemBackend)(nil)
