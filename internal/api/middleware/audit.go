package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/biblioteca/lending-platform/internal/core/domain"
	"github.com/biblioteca/lending-platform/internal/core/ports"
)

// maxAuditBody bounds how much of a request body the audit trail captures.
const maxAuditBody = 8 << 10

// Audit records an audit entry after the wrapped handler finishes. The entry
// captures the actor (or "anonymous"), method and path, response status,
// elapsed time, origin IP, and user agent. Non-GET request bodies are
// captured with credential fields redacted; the trail must never persist a
// password or token verbatim.
//
// Recording is fire-and-forget through the AuditRecorder: a failed write
// cannot fail the request.
func Audit(rec ports.AuditRecorder, action, resourceType string, severity domain.Severity) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			details := map[string]any{
				"method": c.Request().Method,
				"path":   c.Request().URL.Path,
			}
			if body := captureBody(c); body != nil {
				details["request"] = body
			}

			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = statusOf(err)
			}
			details["status"] = status
			details["elapsed_ms"] = time.Since(start).Milliseconds()

			entry := domain.AuditEntry{
				Action:       action,
				ResourceType: resourceType,
				ResourceID:   c.Param("id"),
				Details:      details,
				Origin:       c.RealIP(),
				UserAgent:    c.Request().UserAgent(),
				Severity:     severity,
				Success:      status < http.StatusBadRequest,
			}
			// For user-targeted actions the path parameter names the subject
			// being acted on.
			if resourceType == "user" {
				entry.TargetSubjectID = c.Param("id")
			}
			if p, ok := PrincipalFrom(c); ok {
				entry.ActorID = p.ID
				entry.ActorEmail = p.Email
				entry.ActorRole = p.Role
			} else {
				entry.ActorID = domain.AnonymousActor
			}
			if err != nil {
				entry.ErrorMessage = err.Error()
			}

			// Detach from the request context so a client disconnect cannot
			// cancel the audit write.
			rec.LogEvent(context.WithoutCancel(c.Request().Context()), entry)
			return err
		}
	}
}

// captureBody reads and restores a JSON request body, returning a redacted
// copy, or nil when there is nothing worth recording.
func captureBody(c echo.Context) map[string]any {
	req := c.Request()
	if req.Method == http.MethodGet || req.Body == nil {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(req.Body, maxAuditBody))
	if err != nil {
		return nil
	}
	req.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), req.Body))

	var body map[string]any
	if json.Unmarshal(raw, &body) != nil {
		return nil
	}
	return Redact(body)
}

// sensitive field name fragments, matched case-insensitively.
var sensitiveFields = []string{"password", "token", "secret", "authorization"}

// Redact replaces the values of credential-bearing fields, recursing into
// nested objects. The input map is modified and returned.
func Redact(m map[string]any) map[string]any {
	for k, v := range m {
		if isSensitive(k) {
			m[k] = "[REDACTED]"
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			m[k] = Redact(nested)
		}
	}
	return m
}

func isSensitive(field string) bool {
	field = strings.ToLower(field)
	for _, frag := range sensitiveFields {
		if strings.Contains(field, frag) {
			return true
		}
	}
	return false
}

// statusOf resolves the HTTP status an error will be rendered with, so the
// audit entry matches the response the client saw.
func statusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return StatusForCode(de.Code)
	}
	return http.StatusInternalServerError
}
