package settings

import (
	"errors"
)

// ErrWouldBlock signals that the settings directory is locked by another
// process.
var ErrWouldBlock = errors.New("settings lock would block")
