package ports

import (
	"context"
	"net/http"
	"time"

	"github.com/biblioteca/lending-platform/internal/core/domain"
)

// TokenService issues, verifies, rotates, and revokes bearer credentials,
// and owns their transport (Authorization header + cookies).
type TokenService interface {
	// GenerateAccessToken mints a short-lived access token for the principal.
	GenerateAccessToken(ctx context.Context, p domain.Principal) (string, error)

	// GenerateTokenPair mints an access/refresh pair with independent jtis.
	GenerateTokenPair(ctx context.Context, p domain.Principal) (domain.TokenPair, error)

	// VerifyAccessToken validates signature, expiry, type, and revocation
	// state. Fails with domain.ErrTokenMalformed, ErrTokenExpired,
	// ErrTokenWrongType, or ErrTokenRevoked.
	VerifyAccessToken(ctx context.Context, raw string) (*domain.Claims, error)

	// Refresh consumes a one-time-use refresh token and mints a new pair for
	// the same subject. Of two concurrent calls with the same token exactly
	// one succeeds; every failure surfaces as domain.ErrInvalidRefreshToken.
	Refresh(ctx context.Context, raw string) (domain.TokenPair, *domain.Principal, error)

	// Blacklist revokes the token's jti until its natural expiry. Expired
	// tokens are a no-op.
	Blacklist(ctx context.Context, raw string) error

	// ExtractToken and ExtractRefreshToken read the bearer header first,
	// then the named cookie. They return "" rather than an error.
	ExtractToken(r *http.Request) string
	ExtractRefreshToken(r *http.Request) string

	// AccessCookie and RefreshCookie wrap a token value with the transport
	// attributes (HttpOnly, SameSite=Strict, Secure outside development,
	// Max-Age matching the token's TTL). ClearCookies returns both cookies
	// expired with identical attributes so browsers actually drop them.
	AccessCookie(value string) *http.Cookie
	RefreshCookie(value string) *http.Cookie
	ClearCookies() []*http.Cookie
}

// RevocationStore is a TTL-capable set of revoked token IDs. Entries expire
// with the token they revoke, so the store never grows past the live token
// population.
type RevocationStore interface {
	// Revoke marks jti revoked for ttl. Idempotent.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error

	// IsRevoked reports whether jti is currently revoked. O(1).
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// Consume atomically claims jti for ttl. It returns true for exactly one
	// caller per jti; later callers (including concurrent ones) get false.
	Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}
