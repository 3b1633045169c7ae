package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/biblioteca/lending-platform/internal/core/domain"
	"github.com/biblioteca/lending-platform/internal/core/service"
	"github.com/biblioteca/lending-platform/internal/infrastructure/memory"
)

func newAuditHandlerFixture(t *testing.T) (*AuditHandler, *service.AuditService) {
	t.Helper()
	svc := service.NewAuditService(memory.NewAuditRepository(), zerolog.Nop())
	return NewAuditHandler(svc), svc
}

func seedAudit(t *testing.T, svc *service.AuditService) {
	t.Helper()
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)
	for i, entry := range []domain.AuditEntry{
		{ActorID: "u1", Action: domain.ActionLogin, ResourceType: "session", Success: true},
		{ActorID: "u1", Action: domain.ActionLogin, ResourceType: "session", Success: false, Severity: domain.SeverityWarning},
		{ActorID: "u2", Action: domain.ActionRoleChange, ResourceType: "user", Success: true, Severity: domain.SeverityCritical},
	} {
		entry.Timestamp = base.Add(time.Duration(i) * time.Minute)
		svc.LogEvent(ctx, entry)
	}
}

func auditContext(t *testing.T, query string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/admin/audit"+query, nil)
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func TestAuditHandler_Logs(t *testing.T) {
	h, svc := newAuditHandlerFixture(t)
	seedAudit(t, svc)

	c, rec := auditContext(t, "?actor_id=u1")
	if err := h.Logs(c); err != nil {
		t.Fatalf("Logs: %v", err)
	}

	var resp auditLogsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(resp.Entries))
	}
	if resp.Pagination.Total != 2 || resp.Pagination.Page != 1 {
		t.Errorf("pagination = %+v", resp.Pagination)
	}
	// Newest first.
	if !resp.Entries[0].Timestamp.After(resp.Entries[1].Timestamp) {
		t.Error("entries not sorted newest first")
	}
}

func TestAuditHandler_LogsEmptyResultIsArray(t *testing.T) {
	h, _ := newAuditHandlerFixture(t)

	c, rec := auditContext(t, "?actor_id=nobody")
	if err := h.Logs(c); err != nil {
		t.Fatalf("Logs: %v", err)
	}
	var resp struct {
		Entries json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(resp.Entries) != "[]" {
		t.Errorf("entries rendered as %s, want []", resp.Entries)
	}
}

func TestAuditHandler_LogsBadFilters(t *testing.T) {
	h, _ := newAuditHandlerFixture(t)

	for _, query := range []string{"?success=maybe", "?from=yesterday", "?to=12pm"} {
		c, _ := auditContext(t, query)
		err := h.Logs(c)
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
			t.Errorf("query %q: want 400, got %v", query, err)
		}
	}
}

func TestAuditHandler_Stats(t *testing.T) {
	h, svc := newAuditHandlerFixture(t)
	seedAudit(t, svc)

	c, rec := auditContext(t, "")
	if err := h.Stats(c); err != nil {
		t.Fatalf("Stats: %v", err)
	}

	var stats domain.AuditStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Total != 3 || stats.Succeeded != 2 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.BySeverity[domain.SeverityCritical] != 1 {
		t.Errorf("critical count = %d", stats.BySeverity[domain.SeverityCritical])
	}
}
