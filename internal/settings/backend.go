// Package settings persists small host-level values (such as the account
// token seed) that must survive process restarts.
package settings

// Backend defines the contract for all settings persistence mechanisms.
type Backend interface {
	// Get returns the value stored under key. The boolean is false if the
	// key has never been set; that is not an error.
	Get(key string) (string, bool, error)

	// Set persists value under key, replacing any previous value. The write
	// is atomic with respect to crashes: readers see either the old or the
	// new document, never a partial one.
	Set(key, value string) error

	// Close releases backend resources, such as the directory lock.
	Close() error
}
