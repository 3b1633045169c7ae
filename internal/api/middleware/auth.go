package middleware

import (
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/biblioteca/lending-platform/internal/api/metrics"
	"github.com/biblioteca/lending-platform/internal/core/domain"
	"github.com/biblioteca/lending-platform/internal/core/ports"
)

// Context keys for values injected by Authenticate.
const (
	principalKey   = "principal"
	accessTokenKey = "accessToken"
)

// Authenticate is the gateway in front of every protected route: extract the
// bearer token, verify it, hydrate the principal from the user store, and
// stash both in the request context. Failures short-circuit with 401 and a
// stable code; no failure path lets the request through.
func Authenticate(tokens ports.TokenService, principals ports.PrincipalStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokens.ExtractToken(c.Request())
			if raw == "" {
				metrics.TokenVerificationsTotal.WithLabelValues("missing").Inc()
				return domain.ErrNoToken
			}

			claims, err := tokens.VerifyAccessToken(c.Request().Context(), raw)
			if err != nil {
				metrics.TokenVerificationsTotal.WithLabelValues(verifyResult(err)).Inc()
				var de *domain.Error
				if errors.As(err, &de) {
					return de
				}
				// Store outage: fail the call, never fail open.
				return err
			}

			principal, err := principals.FindPrincipal(c.Request().Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					metrics.TokenVerificationsTotal.WithLabelValues("user_gone").Inc()
					return domain.ErrUserNotFound
				}
				// Store outage: fail the call, never fail open.
				metrics.TokenVerificationsTotal.WithLabelValues("error").Inc()
				return fmt.Errorf("resolve principal %s: %w", claims.Subject, err)
			}

			metrics.TokenVerificationsTotal.WithLabelValues("ok").Inc()
			c.Set(principalKey, *principal)
			c.Set(accessTokenKey, raw)
			return next(c)
		}
	}
}

func verifyResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, domain.ErrTokenWrongType):
		return "wrong_type"
	case errors.Is(err, domain.ErrTokenMalformed):
		return "malformed"
	default:
		return "error"
	}
}

// StorePrincipal attaches a principal to the request context. Handlers that
// authenticate inline (login, refresh) call it after success so the audit
// middleware attributes the entry to the resolved user instead of anonymous.
func StorePrincipal(c echo.Context, p domain.Principal) {
	c.Set(principalKey, p)
}

// PrincipalFrom returns the authenticated principal, or false when the
// request never passed Authenticate.
func PrincipalFrom(c echo.Context) (domain.Principal, bool) {
	p, ok := c.Get(principalKey).(domain.Principal)
	return p, ok
}

// AccessTokenFrom returns the raw bearer token the request authenticated
// with. Handlers that revoke the current session need it.
func AccessTokenFrom(c echo.Context) string {
	raw, _ := c.Get(accessTokenKey).(string)
	return raw
}
