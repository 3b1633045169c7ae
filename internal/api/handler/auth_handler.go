package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/biblioteca/lending-platform/internal/api/metrics"
	"github.com/biblioteca/lending-platform/internal/api/middleware"
	"github.com/biblioteca/lending-platform/internal/core/domain"
	"github.com/biblioteca/lending-platform/internal/core/ports"
)

// AuthHandler owns the token lifecycle endpoints: register, login, refresh,
// logout, and password change.
type AuthHandler struct {
	accounts ports.AccountService
	tokens   ports.TokenService
	rbac     ports.RBACEngine
}

func NewAuthHandler(accounts ports.AccountService, tokens ports.TokenService, rbac ports.RBACEngine) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens, rbac: rbac}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

type authResponse struct {
	AccessToken  string              `json:"access_token,omitempty"`
	RefreshToken string              `json:"refresh_token,omitempty"`
	User         *domain.User        `json:"user,omitempty"`
	Permissions  []domain.Permission `json:"permissions,omitempty"`
}

// Register creates a new borrower account.
//
// @Summary      Register a new member
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.accounts.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, authResponse{User: user})
}

// Login verifies credentials, issues a token pair, and sets both auth
// cookies alongside the JSON body.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  authResponse
// @Failure      401   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	pair, user, err := h.accounts.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failed").Inc()
		return err
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	// Expose the resolved principal so the audit entry names the user
	// who just logged in rather than anonymous.
	middleware.StorePrincipal(c, user.Principal())

	c.SetCookie(h.tokens.AccessCookie(pair.AccessToken))
	c.SetCookie(h.tokens.RefreshCookie(pair.RefreshToken))

	return c.JSON(http.StatusOK, authResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
		Permissions:  h.rbac.UserPermissions(user.Principal()),
	})
}

// Refresh rotates a one-time-use refresh token into a new pair. A replayed
// token fails with INVALID_REFRESH_TOKEN.
//
// @Summary      Rotate tokens
// @Tags         auth
// @Produce      json
// @Success      200   {object}  authResponse
// @Failure      401   {object}  map[string]string
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := h.tokens.ExtractRefreshToken(c.Request())
	if raw == "" {
		return domain.ErrInvalidRefreshToken
	}

	pair, principal, err := h.tokens.Refresh(c.Request().Context(), raw)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("rejected").Inc()
		return err
	}
	metrics.TokenRefreshTotal.WithLabelValues("ok").Inc()
	middleware.StorePrincipal(c, *principal)

	c.SetCookie(h.tokens.AccessCookie(pair.AccessToken))
	c.SetCookie(h.tokens.RefreshCookie(pair.RefreshToken))

	return c.JSON(http.StatusOK, authResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Permissions:  h.rbac.UserPermissions(*principal),
	})
}

// Logout revokes both presented tokens and clears the auth cookies. The
// revocation entries live exactly as long as the tokens would have.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200   {object}  map[string]string
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	if raw := middleware.AccessTokenFrom(c); raw != "" {
		if err := h.tokens.Blacklist(ctx, raw); err != nil {
			return err
		}
	}
	if raw, err := c.Cookie(domain.RefreshCookieName); err == nil && raw.Value != "" {
		if err := h.tokens.Blacklist(ctx, raw.Value); err != nil {
			return err
		}
	}

	for _, cookie := range h.tokens.ClearCookies() {
		c.SetCookie(cookie)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "logged out"})
}

// ChangePassword verifies the current password, stores the new one, and
// kills the session that made the change.
//
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      changePasswordRequest  true  "Passwords"
// @Success      200   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/password [post]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return domain.ErrNoToken
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	err := h.accounts.ChangePassword(c.Request().Context(), p, req.CurrentPassword, req.NewPassword, middleware.AccessTokenFrom(c))
	if err != nil {
		return err
	}

	for _, cookie := range h.tokens.ClearCookies() {
		c.SetCookie(cookie)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "password changed"})
}

// Me returns the authenticated principal and its permission set, for UI
// capability hints.
//
// @Summary      Current principal
// @Tags         auth
// @Produce      json
// @Success      200   {object}  authResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return domain.ErrNoToken
	}
	return c.JSON(http.StatusOK, map[string]any{
		"principal":   p,
		"permissions": h.rbac.UserPermissions(p),
	})
}
