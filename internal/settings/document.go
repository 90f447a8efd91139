package settings

import (
	"time"
)

const currentSchemaVersion = "1.0.0"

// Document is the on-disk representation of a settings directory.
type Document struct {
	Version   string            `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
	Values    map[string]string `json:"values"`
}

func newDocument() *Document {
	return &Document{
		Version: currentSchemaVersion,
		Values:  make(map[string]string),
	}
}
