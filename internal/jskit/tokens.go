package jskit

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

const (
	tokenSalt = "0feeb7416d3c4546a19b04bccd8419b1"

	// AccountSeedKey is the settings key holding the account token seed.
	AccountSeedKey = "accountToken"
)

// AccountToken derives the stable per-app account token from seed.
func AccountToken(app uuid.UUID, seed string) string {
	return saltedDigest(app, seed)
}

// WatchToken derives the stable per-app token for the watch with serial.
func WatchToken(app uuid.UUID, serial string) string {
	return saltedDigest(app, serial)
}

func saltedDigest(app uuid.UUID, tail string) string {
	h := md5.New()
	_, _ = io.WriteString(h, tokenSalt)
	_, _ = io.WriteString(h, bracedUUID(app))
	_, _ = io.WriteString(h, tail)
	return hex.EncodeToString(h.Sum(nil))
}

func bracedUUID(u uuid.UUID) string {
	return "{" + u.String() + "}"
}

// seedSource loads the account seed, creating and persisting it on first
// use. Shared by every host of a Manager.
type seedSource struct {
	mu    sync.Mutex
	store SettingsStore
}

func (s *seedSource) seed() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seed, ok, err := s.store.Get(AccountSeedKey)
	if err != nil {
		return "", fmt.Errorf("reading account seed: %w", err)
	}
	if ok && seed != "" {
		return seed, nil
	}
	seed = bracedUUID(uuid.New())
	if err := s.store.Set(AccountSeedKey, seed); err != nil {
		return "", fmt.Errorf("persisting account seed: %w", err)
	}
	return seed, nil
}
