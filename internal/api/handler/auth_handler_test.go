package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/biblioteca/lending-platform/internal/api/middleware"
	"github.com/biblioteca/lending-platform/internal/core/domain"
	"github.com/biblioteca/lending-platform/internal/core/service"
	"github.com/biblioteca/lending-platform/internal/infrastructure/memory"
)

type authFixture struct {
	e        *echo.Echo
	handler  *AuthHandler
	admin    *AdminHandler
	tokens   *service.TokenService
	accounts *service.AccountService
	users    *memory.UserRepository
}

func newAuthTestFixture(t *testing.T) *authFixture {
	t.Helper()
	users := memory.NewUserRepository()
	tokens, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}, memory.NewRevocationStore(), users)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	rbac := service.NewRBACEngine(domain.DefaultRoles())
	accounts := service.NewAccountService(users, tokens, rbac)

	e := echo.New()
	e.Validator = NewValidator()
	return &authFixture{
		e:        e,
		handler:  NewAuthHandler(accounts, tokens, rbac),
		admin:    NewAdminHandler(accounts),
		tokens:   tokens,
		accounts: accounts,
		users:    users,
	}
}

func (f *authFixture) jsonRequest(method, path, body string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req, httptest.NewRecorder()
}

func (f *authFixture) register(t *testing.T, name, email, password string) *domain.User {
	t.Helper()
	user, err := f.accounts.Register(context.Background(), name, email, password)
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return user
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (r *recordingAudit) LogEvent(_ context.Context, entry domain.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordingAudit) last(t *testing.T) domain.AuditEntry {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		t.Fatal("no audit entry recorded")
	}
	return r.entries[len(r.entries)-1]
}

func TestAuthHandler_Register(t *testing.T) {
	f := newAuthTestFixture(t)

	req, rec := f.jsonRequest(http.MethodPost, "/auth/register", `{"name":"Alice","email":"alice@example.com","password":"password123"}`)
	c := f.e.NewContext(req, rec)
	if err := f.handler.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}

	var resp struct {
		User *domain.User `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.User == nil || resp.User.Role != domain.RoleBorrower {
		t.Errorf("user = %+v", resp.User)
	}
}

func TestAuthHandler_RegisterValidation(t *testing.T) {
	f := newAuthTestFixture(t)

	req, rec := f.jsonRequest(http.MethodPost, "/auth/register", `{"name":"Alice","email":"not-an-email","password":"short"}`)
	c := f.e.NewContext(req, rec)
	err := f.handler.Register(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %v", err)
	}
}

func TestAuthHandler_RegisterDuplicateEmail(t *testing.T) {
	f := newAuthTestFixture(t)
	f.register(t, "Alice", "alice@example.com", "password123")

	req, rec := f.jsonRequest(http.MethodPost, "/auth/register", `{"name":"Other","email":"alice@example.com","password":"password123"}`)
	c := f.e.NewContext(req, rec)
	if err := f.handler.Register(c); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("want ErrUserExists, got %v", err)
	}
}

func TestAuthHandler_LoginSetsCookies(t *testing.T) {
	f := newAuthTestFixture(t)
	f.register(t, "Alice", "alice@example.com", "password123")

	req, rec := f.jsonRequest(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"password123"}`)
	c := f.e.NewContext(req, rec)
	if err := f.handler.Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}

	var resp struct {
		AccessToken  string              `json:"access_token"`
		RefreshToken string              `json:"refresh_token"`
		Permissions  []domain.Permission `json:"permissions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("tokens missing from response")
	}
	if len(resp.Permissions) == 0 {
		t.Error("permissions missing from response")
	}

	for _, name := range []string{domain.AccessCookieName, domain.RefreshCookieName} {
		ck := cookieByName(rec, name)
		if ck == nil {
			t.Fatalf("cookie %s not set", name)
		}
		if !ck.HttpOnly {
			t.Errorf("cookie %s not HttpOnly", name)
		}
		if ck.SameSite != http.SameSiteStrictMode {
			t.Errorf("cookie %s SameSite = %v", name, ck.SameSite)
		}
		if ck.MaxAge <= 0 {
			t.Errorf("cookie %s MaxAge = %d", name, ck.MaxAge)
		}
	}

	if _, err := f.tokens.VerifyAccessToken(context.Background(), resp.AccessToken); err != nil {
		t.Errorf("issued access token invalid: %v", err)
	}
}

func TestAuthHandler_LoginWrongPassword(t *testing.T) {
	f := newAuthTestFixture(t)
	f.register(t, "Alice", "alice@example.com", "password123")

	req, rec := f.jsonRequest(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"wrong-password"}`)
	c := f.e.NewContext(req, rec)
	if err := f.handler.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_RefreshRotatesAndBurnsToken(t *testing.T) {
	f := newAuthTestFixture(t)
	user := f.register(t, "Alice", "alice@example.com", "password123")

	pair, err := f.tokens.GenerateTokenPair(context.Background(), user.Principal())
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}

	req, rec := f.jsonRequest(http.MethodPost, "/auth/refresh", "")
	req.AddCookie(&http.Cookie{Name: domain.RefreshCookieName, Value: pair.RefreshToken})
	c := f.e.NewContext(req, rec)
	if err := f.handler.Refresh(c); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RefreshToken == pair.RefreshToken {
		t.Error("refresh token not rotated")
	}
	if cookieByName(rec, domain.RefreshCookieName) == nil {
		t.Error("rotated refresh cookie not set")
	}

	// Replaying the consumed token must fail.
	req2, rec2 := f.jsonRequest(http.MethodPost, "/auth/refresh", "")
	req2.AddCookie(&http.Cookie{Name: domain.RefreshCookieName, Value: pair.RefreshToken})
	c2 := f.e.NewContext(req2, rec2)
	if err := f.handler.Refresh(c2); !errors.Is(err, domain.ErrInvalidRefreshToken) {
		t.Fatalf("replay: want ErrInvalidRefreshToken, got %v", err)
	}
}

func TestAuthHandler_LoginAuditedAsUser(t *testing.T) {
	f := newAuthTestFixture(t)
	user := f.register(t, "Alice", "alice@example.com", "password123")

	sink := &recordingAudit{}
	req, rec := f.jsonRequest(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"password123"}`)
	c := f.e.NewContext(req, rec)
	wrapped := middleware.Audit(sink, domain.ActionLogin, "session", domain.SeverityInfo)(f.handler.Login)
	if err := wrapped(c); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// A successful login is attributed to the user who signed in, not to
	// the anonymous pre-auth actor.
	entry := sink.last(t)
	if entry.ActorID != user.ID {
		t.Errorf("ActorID = %q, want %q", entry.ActorID, user.ID)
	}
	if entry.ActorRole != domain.RoleBorrower {
		t.Errorf("ActorRole = %q", entry.ActorRole)
	}
}

func TestAuthHandler_RefreshAuditedAsUser(t *testing.T) {
	f := newAuthTestFixture(t)
	user := f.register(t, "Alice", "alice@example.com", "password123")

	pair, err := f.tokens.GenerateTokenPair(context.Background(), user.Principal())
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}

	sink := &recordingAudit{}
	req, rec := f.jsonRequest(http.MethodPost, "/auth/refresh", "")
	req.AddCookie(&http.Cookie{Name: domain.RefreshCookieName, Value: pair.RefreshToken})
	c := f.e.NewContext(req, rec)
	wrapped := middleware.Audit(sink, domain.ActionRefresh, "session", domain.SeverityInfo)(f.handler.Refresh)
	if err := wrapped(c); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if entry := sink.last(t); entry.ActorID != user.ID {
		t.Errorf("ActorID = %q, want %q", entry.ActorID, user.ID)
	}
}

func TestAuthHandler_RefreshWithoutToken(t *testing.T) {
	f := newAuthTestFixture(t)

	req, rec := f.jsonRequest(http.MethodPost, "/auth/refresh", "")
	c := f.e.NewContext(req, rec)
	if err := f.handler.Refresh(c); !errors.Is(err, domain.ErrInvalidRefreshToken) {
		t.Fatalf("want ErrInvalidRefreshToken, got %v", err)
	}
}

// runAuthenticated wires the real authentication middleware in front of the
// handler, the way the router does.
func (f *authFixture) runAuthenticated(req *http.Request, rec *httptest.ResponseRecorder, h echo.HandlerFunc) error {
	c := f.e.NewContext(req, rec)
	return middleware.Authenticate(f.tokens, f.users)(h)(c)
}

func TestAuthHandler_LogoutRevokesBothTokens(t *testing.T) {
	f := newAuthTestFixture(t)
	user := f.register(t, "Alice", "alice@example.com", "password123")
	ctx := context.Background()

	pair, err := f.tokens.GenerateTokenPair(ctx, user.Principal())
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}

	req, rec := f.jsonRequest(http.MethodPost, "/auth/logout", "")
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	req.AddCookie(&http.Cookie{Name: domain.RefreshCookieName, Value: pair.RefreshToken})
	if err := f.runAuthenticated(req, rec, f.handler.Logout); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if _, err := f.tokens.VerifyAccessToken(ctx, pair.AccessToken); !errors.Is(err, domain.ErrTokenRevoked) {
		t.Errorf("access token still valid after logout: %v", err)
	}
	if _, _, err := f.tokens.Refresh(ctx, pair.RefreshToken); !errors.Is(err, domain.ErrInvalidRefreshToken) {
		t.Errorf("refresh token still usable after logout: %v", err)
	}

	for _, name := range []string{domain.AccessCookieName, domain.RefreshCookieName} {
		ck := cookieByName(rec, name)
		if ck == nil {
			t.Fatalf("cookie %s not cleared", name)
		}
		if ck.MaxAge >= 0 || ck.Value != "" {
			t.Errorf("cookie %s not expired: MaxAge=%d Value=%q", name, ck.MaxAge, ck.Value)
		}
	}
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	f := newAuthTestFixture(t)
	user := f.register(t, "Alice", "alice@example.com", "password123")
	ctx := context.Background()

	raw, err := f.tokens.GenerateAccessToken(ctx, user.Principal())
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	req, rec := f.jsonRequest(http.MethodPost, "/auth/password", `{"current_password":"password123","new_password":"password456"}`)
	req.Header.Set("Authorization", "Bearer "+raw)
	if err := f.runAuthenticated(req, rec, f.handler.ChangePassword); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, err := f.tokens.VerifyAccessToken(ctx, raw); !errors.Is(err, domain.ErrTokenRevoked) {
		t.Errorf("session survived its own password change: %v", err)
	}
	if _, _, err := f.accounts.Login(ctx, "alice@example.com", "password456"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	f := newAuthTestFixture(t)
	user := f.register(t, "Alice", "alice@example.com", "password123")

	raw, err := f.tokens.GenerateAccessToken(context.Background(), user.Principal())
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	req, rec := f.jsonRequest(http.MethodGet, "/auth/me", "")
	req.Header.Set("Authorization", "Bearer "+raw)
	if err := f.runAuthenticated(req, rec, f.handler.Me); err != nil {
		t.Fatalf("Me: %v", err)
	}

	var resp struct {
		Principal   domain.Principal    `json:"principal"`
		Permissions []domain.Permission `json:"permissions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Principal.ID != user.ID {
		t.Errorf("principal = %+v", resp.Principal)
	}
	if len(resp.Permissions) == 0 {
		t.Error("permissions empty")
	}
}
