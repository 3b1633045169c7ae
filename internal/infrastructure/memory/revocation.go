// Package memory provides in-process implementations of the core's store
// ports. They back unit tests and single-node development setups; production
// uses the redis and mongo packages.
package memory

import (
	"context"
	"sync"
	"time"
)

// RevocationStore is a mutex-guarded jti set with per-entry expiry. Expired
// entries are pruned lazily on access, so the map never needs a sweeper and
// never outlives the tokens it tracks.
type RevocationStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	clock   func() time.Time
}

func NewRevocationStore() *RevocationStore {
	return &RevocationStore{
		entries: make(map[string]time.Time),
		clock:   time.Now,
	}
}

func (s *RevocationStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[jti] = s.clock().Add(ttl)
	return nil
}

func (s *RevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.entries[jti]
	if !ok {
		return false, nil
	}
	if s.clock().After(expiry) {
		delete(s.entries, jti)
		return false, nil
	}
	return true, nil
}

// Consume claims jti under the lock: the check-and-insert is a single
// critical section, so exactly one caller per jti sees true.
func (s *RevocationStore) Consume(_ context.Context, jti string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if expiry, ok := s.entries[jti]; ok && s.clock().Before(expiry) {
		return false, nil
	}
	s.entries[jti] = s.clock().Add(ttl)
	return true, nil
}

// SetClock overrides the time source. Tests only.
func (s *RevocationStore) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}
