package jskit

import "errors"

var (
	// ErrEmptyToken is the failure delivered when the timeline service
	// answers a token fetch with an empty token.
	ErrEmptyToken = errors.New("token is empty")

	// ErrHostDestroyed is returned by host operations called after Destroy.
	ErrHostDestroyed = errors.New("host destroyed")
)
