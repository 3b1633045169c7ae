package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/biblioteca/lending-platform/internal/core/domain"
)

// capturingRecorder collects entries handed to LogEvent.
type capturingRecorder struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (r *capturingRecorder) LogEvent(_ context.Context, entry domain.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *capturingRecorder) last(t *testing.T) domain.AuditEntry {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		t.Fatal("no audit entry recorded")
	}
	return r.entries[len(r.entries)-1]
}

func TestAudit_RecordsSuccessfulRequest(t *testing.T) {
	rec := &capturingRecorder{}
	e := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"alice@example.com","password":"s3cret"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("User-Agent", "test-agent/1.0")
	c := echo.New().NewContext(req, e)
	c.Set(principalKey, domain.Principal{ID: "u1", Role: domain.RoleBorrower, Email: "alice@example.com"})

	err := Audit(rec, domain.ActionLogin, "session", domain.SeverityInfo)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})(c)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	entry := rec.last(t)
	if entry.Action != domain.ActionLogin || entry.ResourceType != "session" {
		t.Errorf("action/resource = %q/%q", entry.Action, entry.ResourceType)
	}
	if entry.ActorID != "u1" || entry.ActorRole != domain.RoleBorrower {
		t.Errorf("actor = %q/%q", entry.ActorID, entry.ActorRole)
	}
	if !entry.Success {
		t.Error("success = false for 200 response")
	}
	if entry.UserAgent != "test-agent/1.0" {
		t.Errorf("user agent = %q", entry.UserAgent)
	}
	if entry.Details["method"] != http.MethodPost || entry.Details["path"] != "/auth/login" {
		t.Errorf("details = %+v", entry.Details)
	}
}

func TestAudit_RedactsCredentialFields(t *testing.T) {
	rec := &capturingRecorder{}
	e := httptest.NewRecorder()
	body := `{"email":"alice@example.com","password":"s3cret","nested":{"refresh_token":"abc"}}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := echo.New().NewContext(req, e)

	var seenBody string
	err := Audit(rec, domain.ActionLogin, "session", domain.SeverityInfo)(func(c echo.Context) error {
		// The handler must still see the full body.
		raw, _ := io.ReadAll(c.Request().Body)
		seenBody = string(raw)
		return c.NoContent(http.StatusOK)
	})(c)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if seenBody != body {
		t.Errorf("handler saw mutated body: %q", seenBody)
	}

	entry := rec.last(t)
	captured, ok := entry.Details["request"].(map[string]any)
	if !ok {
		t.Fatalf("no captured request body in %+v", entry.Details)
	}
	if captured["password"] != "[REDACTED]" {
		t.Errorf("password = %v", captured["password"])
	}
	if captured["email"] != "alice@example.com" {
		t.Errorf("email = %v", captured["email"])
	}
	nested, _ := captured["nested"].(map[string]any)
	if nested["refresh_token"] != "[REDACTED]" {
		t.Errorf("nested token = %v", nested["refresh_token"])
	}
}

func TestAudit_AnonymousActorAndFailureStatus(t *testing.T) {
	rec := &capturingRecorder{}
	e := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := echo.New().NewContext(req, e)

	err := Audit(rec, domain.ActionLogin, "session", domain.SeverityWarning)(func(c echo.Context) error {
		return domain.ErrInvalidCredentials
	})(c)
	if err == nil {
		t.Fatal("handler error swallowed")
	}

	entry := rec.last(t)
	if entry.ActorID != domain.AnonymousActor {
		t.Errorf("actor = %q", entry.ActorID)
	}
	if entry.Success {
		t.Error("success = true for rejected login")
	}
	if entry.Details["status"] != http.StatusUnauthorized {
		t.Errorf("status = %v", entry.Details["status"])
	}
	if entry.ErrorMessage == "" {
		t.Error("error message not captured")
	}
	if entry.Severity != domain.SeverityWarning {
		t.Errorf("severity = %q", entry.Severity)
	}
}

func TestRedact(t *testing.T) {
	in := map[string]any{
		"Password":       "x",
		"accessToken":    "y",
		"client_secret":  "z",
		"Authorization":  "Bearer abc",
		"email":          "a@b.com",
		"passwordReveal": "still sensitive",
	}
	out := Redact(in)
	for _, k := range []string{"Password", "accessToken", "client_secret", "Authorization", "passwordReveal"} {
		if out[k] != "[REDACTED]" {
			t.Errorf("%s = %v, want redacted", k, out[k])
		}
	}
	if out["email"] != "a@b.com" {
		t.Errorf("email clobbered: %v", out["email"])
	}
}

func TestStatusForCode(t *testing.T) {
	tests := []struct {
		code domain.Code
		want int
	}{
		{domain.CodeNoToken, http.StatusUnauthorized},
		{domain.CodeTokenExpired, http.StatusUnauthorized},
		{domain.CodeInvalidRefreshToken, http.StatusUnauthorized},
		{domain.CodeInsufficientPermissions, http.StatusForbidden},
		{domain.CodeInsufficientRoleLevel, http.StatusForbidden},
		{domain.CodeUnknownPermission, http.StatusBadRequest},
		{domain.CodeUserExists, http.StatusConflict},
		{domain.CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusForCode(tt.code); got != tt.want {
			t.Errorf("StatusForCode(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
