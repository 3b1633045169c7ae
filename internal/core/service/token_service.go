package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/biblioteca/lending-platform/internal/core/domain"
	"github.com/biblioteca/lending-platform/internal/core/ports"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	// clockLeeway absorbs small clock skew between issuer and verifier.
	clockLeeway = 30 * time.Second
)

// tokenClaims is the wire shape of both token kinds. Role and Email are
// omitted on refresh tokens.
type tokenClaims struct {
	Type  domain.TokenType `json:"type"`
	Role  string           `json:"role,omitempty"`
	Email string           `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256-signed bearer credentials and
// enforces single-use refresh semantics through a TTL-capable revocation
// store.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	revocations   ports.RevocationStore
	principals    ports.PrincipalStore
	cookieSecure  bool
	clock         func() time.Time
}

// TokenConfig carries the construction-time settings of the token service.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	// CookieSecure should be true everywhere except local development.
	CookieSecure bool
}

// NewTokenService validates the configuration and builds the service. The
// two signing secrets must differ: a refresh token must never verify as an
// access token by virtue of sharing a key.
func NewTokenService(cfg TokenConfig, revocations ports.RevocationStore, principals ports.PrincipalStore) (*TokenService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token service: both signing secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("token service: access and refresh secrets must differ")
	}
	if revocations == nil {
		return nil, errors.New("token service: revocation store is required")
	}
	if principals == nil {
		return nil, errors.New("token service: principal store is required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, errors.New("token service: refresh TTL must exceed access TTL")
	}

	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		revocations:   revocations,
		principals:    principals,
		cookieSecure:  cfg.CookieSecure,
		clock:         time.Now,
	}, nil
}

// GenerateAccessToken mints a stateless access token with a fresh jti.
func (s *TokenService) GenerateAccessToken(_ context.Context, p domain.Principal) (string, error) {
	return s.sign(domain.TokenTypeAccess, p.ID, p.Role, p.Email, s.accessTTL, s.accessSecret)
}

// GenerateTokenPair mints an access/refresh pair. The jtis are independent:
// revoking one token never affects the other.
func (s *TokenService) GenerateTokenPair(ctx context.Context, p domain.Principal) (domain.TokenPair, error) {
	access, err := s.GenerateAccessToken(ctx, p)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.sign(domain.TokenTypeRefresh, p.ID, "", "", s.refreshTTL, s.refreshSecret)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *TokenService) sign(kind domain.TokenType, sub, role, email string, ttl time.Duration, secret []byte) (string, error) {
	now := s.clock().UTC()
	claims := tokenClaims{
		Type:  kind,
		Role:  role,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// VerifyAccessToken validates an access token end to end: signature and
// structure, expiry (with leeway), token type, and revocation state.
func (s *TokenService) VerifyAccessToken(ctx context.Context, raw string) (*domain.Claims, error) {
	claims, err := s.parse(raw, s.accessSecret)
	if err != nil {
		return nil, err
	}
	if claims.Type != domain.TokenTypeAccess {
		return nil, domain.ErrTokenWrongType
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.JTI)
	if err != nil {
		return nil, fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		return nil, domain.ErrTokenRevoked
	}
	return claims, nil
}

// Refresh rotates a refresh token: verify, atomically consume its jti, then
// mint a new pair for the same subject. The Consume call is the linearization
// point — of two concurrent calls with the same token, the store admits
// exactly one, and the new pair is minted only after consumption succeeds.
func (s *TokenService) Refresh(ctx context.Context, raw string) (domain.TokenPair, *domain.Principal, error) {
	claims, err := s.parse(raw, s.refreshSecret)
	if err != nil {
		return domain.TokenPair{}, nil, domain.ErrInvalidRefreshToken
	}
	if claims.Type != domain.TokenTypeRefresh {
		return domain.TokenPair{}, nil, domain.ErrInvalidRefreshToken
	}

	ttl := claims.ExpiresAt.Sub(s.clock().UTC()) + clockLeeway
	ok, err := s.revocations.Consume(ctx, claims.JTI, ttl)
	if err != nil {
		return domain.TokenPair{}, nil, fmt.Errorf("consume refresh token: %w", err)
	}
	if !ok {
		return domain.TokenPair{}, nil, domain.ErrInvalidRefreshToken
	}

	principal, err := s.principals.FindPrincipal(ctx, claims.Subject)
	if err != nil {
		// The jti is already burned; a vanished subject must not resurrect it.
		return domain.TokenPair{}, nil, domain.ErrInvalidRefreshToken
	}

	pair, err := s.GenerateTokenPair(ctx, *principal)
	if err != nil {
		return domain.TokenPair{}, nil, err
	}
	return pair, principal, nil
}

// Blacklist revokes a token until its natural expiry. Either token kind is
// accepted; an already-expired token needs no revocation entry and is a
// no-op.
func (s *TokenService) Blacklist(ctx context.Context, raw string) error {
	claims, err := s.parse(raw, s.accessSecret)
	if err != nil && !errors.Is(err, domain.ErrTokenExpired) {
		claims, err = s.parse(raw, s.refreshSecret)
	}
	if errors.Is(err, domain.ErrTokenExpired) {
		return nil
	}
	if err != nil {
		return err
	}

	ttl := claims.ExpiresAt.Sub(s.clock().UTC())
	if ttl <= 0 {
		return nil
	}
	return s.revocations.Revoke(ctx, claims.JTI, ttl+clockLeeway)
}

func (s *TokenService) parse(raw string, secret []byte) (*domain.Claims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return secret, nil
	},
		jwt.WithLeeway(clockLeeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.clock() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenMalformed
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, domain.ErrTokenMalformed
	}

	out := &domain.Claims{
		Subject:   claims.Subject,
		JTI:       claims.ID,
		Type:      claims.Type,
		Role:      claims.Role,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// ExtractToken reads the access token from the Authorization header, falling
// back to the authToken cookie. A header with a non-Bearer scheme is ignored
// and the cookie still applies. Returns "" when neither yields a token.
func (s *TokenService) ExtractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if c, err := r.Cookie(domain.AccessCookieName); err == nil {
		return c.Value
	}
	return ""
}

// ExtractRefreshToken reads the refresh token from the Authorization header,
// falling back to the refreshToken cookie.
func (s *TokenService) ExtractRefreshToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if c, err := r.Cookie(domain.RefreshCookieName); err == nil {
		return c.Value
	}
	return ""
}

// AccessCookie wraps an access token for transport.
func (s *TokenService) AccessCookie(value string) *http.Cookie {
	return s.cookie(domain.AccessCookieName, value, int(s.accessTTL.Seconds()))
}

// RefreshCookie wraps a refresh token for transport.
func (s *TokenService) RefreshCookie(value string) *http.Cookie {
	return s.cookie(domain.RefreshCookieName, value, int(s.refreshTTL.Seconds()))
}

// ClearCookies returns both auth cookies expired. Path and attributes match
// the set cookies exactly; browsers only drop a cookie on an exact match.
func (s *TokenService) ClearCookies() []*http.Cookie {
	return []*http.Cookie{
		s.cookie(domain.AccessCookieName, "", -1),
		s.cookie(domain.RefreshCookieName, "", -1),
	}
}

func (s *TokenService) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}
