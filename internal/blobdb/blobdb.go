// Package blobdb describes the native record store that backs app glances:
// the operations it acknowledges, its status codes, and the slice records
// submitted to it.
package blobdb

import (
	"fmt"

	"github.com/google/uuid"
)

// Operation is the kind of record-store command a completion refers to.
type Operation uint8

const (
	OperationInsert Operation = 0x01
	OperationRead   Operation = 0x02
	OperationUpdate Operation = 0x03
	OperationDelete Operation = 0x04
	OperationClear  Operation = 0x05
)

func (o Operation) String() string {
	switch o {
	case OperationInsert:
		return "insert"
	case OperationRead:
		return "read"
	case OperationUpdate:
		return "update"
	case OperationDelete:
		return "delete"
	case OperationClear:
		return "clear"
	default:
		return fmt.Sprintf("operation(%d)", uint8(o))
	}
}

// Status is the record store's response code for a command.
type Status uint8

const (
	StatusSuccess           Status = 0x01
	StatusGeneralFailure    Status = 0x02
	StatusInvalidOperation  Status = 0x03
	StatusInvalidDatabaseID Status = 0x04
	StatusInvalidData       Status = 0x05
	StatusKeyDoesNotExist   Status = 0x06
	StatusDatabaseFull      Status = 0x07
	StatusDataStale         Status = 0x08
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusGeneralFailure:
		return "general failure"
	case StatusInvalidOperation:
		return "invalid operation"
	case StatusInvalidDatabaseID:
		return "invalid database id"
	case StatusInvalidData:
		return "invalid data"
	case StatusKeyDoesNotExist:
		return "key does not exist"
	case StatusDatabaseFull:
		return "database full"
	case StatusDataStale:
		return "data stale"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// SliceType selects the glance layout of a Slice.
type SliceType uint8

const (
	SliceTypeIconSubtitle SliceType = 0
)

// Slice is one app-glance record: a layout type plus its attributes.
type Slice struct {
	Type       SliceType
	Attributes []Attribute
}

// CompletionFunc receives each command outcome produced by a Replace. It may
// be called more than once per Replace (one call per underlying command), on
// any goroutine.
type CompletionFunc func(op Operation, status Status)

// Store is the native record store. Replace swaps every slice stored for app
// with slices as one logical operation.
type Store interface {
	Replace(app uuid.UUID, slices []Slice, onComplete CompletionFunc)
}
