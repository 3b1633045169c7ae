package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces revocation entries; the key carries the jti.
const keyPrefix = "revoked:"

// minTTL keeps a just-expiring token's entry alive long enough to cover
// verification leeway.
const minTTL = time.Minute

// RevocationStore implements the revocation set on Redis. Every entry
// carries the TTL of the token it revokes, so Redis expires it exactly when
// the token would have died anyway — the set never needs scanning.
type RevocationStore struct {
	client *redis.Client
}

// NewRevocationStore wraps the given Redis client.
func NewRevocationStore(client *redis.Client) *RevocationStore {
	return &RevocationStore{client: client}
}

// Revoke marks jti revoked for ttl. Plain SET makes it idempotent.
func (s *RevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl < minTTL {
		ttl = minTTL
	}
	if err := s.client.Set(ctx, s.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke %s: %w", jti, err)
	}
	return nil
}

// IsRevoked reports whether jti is currently revoked. Single EXISTS, O(1).
func (s *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("revocation check %s: %w", jti, err)
	}
	return n > 0, nil
}

// Consume claims jti with SET NX — Redis executes it atomically, so of any
// number of concurrent callers exactly one sees true. This is the
// linearization point of refresh rotation: the first writer wins the
// rotation, everyone else holds a dead token.
func (s *RevocationStore) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl < minTTL {
		ttl = minTTL
	}
	ok, err := s.client.SetNX(ctx, s.key(jti), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("consume %s: %w", jti, err)
	}
	return ok, nil
}

func (s *RevocationStore) key(jti string) string {
	return keyPrefix + jti
}
