package settings

import (
	"fmt"
)

// BackendFactory creates a Backend rooted at dir (ignored by backends that
// do not persist).
type BackendFactory func(dir string) (Backend, error)

// BackendRegistry maps backend names to their factories.
var BackendRegistry = map[string]BackendFactory{
	"fs": func(dir string) (Backend, error) {
		return NewFileSystemBackend(dir)
	},
	"memory": func(string) (Backend, error) {
		return NewInMemoryBackend(), nil
	},
}

// Open creates the named backend.
func Open(name, dir string) (Backend, error) {
	if name == "" {
		name = "fs"
	}
	factory, ok := BackendRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unknown settings backend: %s", name)
	}
	return factory(dir)
}
