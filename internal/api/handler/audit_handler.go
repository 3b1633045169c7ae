package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/biblioteca/lending-platform/internal/core/domain"
	"github.com/biblioteca/lending-platform/internal/core/ports"
)

// AuditHandler exposes the audit trail to operators with audit:read.
type AuditHandler struct {
	audit ports.AuditService
}

func NewAuditHandler(audit ports.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

type auditLogsResponse struct {
	Entries    []domain.AuditEntry `json:"entries"`
	Pagination domain.PageInfo     `json:"pagination"`
}

// Logs returns filtered, paginated audit entries, newest first.
//
// @Summary      Query audit entries
// @Tags         audit
// @Produce      json
// @Param        actor_id       query  string  false  "Filter by actor"
// @Param        action         query  string  false  "Filter by action"
// @Param        resource_type  query  string  false  "Filter by resource type"
// @Param        severity       query  string  false  "Filter by severity"
// @Param        success        query  bool    false  "Filter by outcome"
// @Param        from           query  string  false  "RFC3339 lower bound"
// @Param        to             query  string  false  "RFC3339 upper bound"
// @Param        page           query  int     false  "Page (1-based)"
// @Param        per_page       query  int     false  "Page size (max 100)"
// @Success      200  {object}  auditLogsResponse
// @Router       /admin/audit [get]
func (h *AuditHandler) Logs(c echo.Context) error {
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}
	page := domain.Pagination{
		Page:    intQuery(c, "page"),
		PerPage: intQuery(c, "per_page"),
	}

	entries, info, err := h.audit.Query(c.Request().Context(), filter, page)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	return c.JSON(http.StatusOK, auditLogsResponse{Entries: entries, Pagination: info})
}

// Stats returns aggregate counts over the filter window.
//
// @Summary      Audit statistics
// @Tags         audit
// @Produce      json
// @Success      200  {object}  domain.AuditStats
// @Router       /admin/audit/stats [get]
func (h *AuditHandler) Stats(c echo.Context) error {
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}
	stats, err := h.audit.Stats(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func parseFilter(c echo.Context) (domain.AuditFilter, error) {
	f := domain.AuditFilter{
		ActorID:      c.QueryParam("actor_id"),
		Action:       c.QueryParam("action"),
		ResourceType: c.QueryParam("resource_type"),
		Severity:     domain.Severity(c.QueryParam("severity")),
	}
	if raw := c.QueryParam("success"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "success must be a boolean")
		}
		f.Success = &v
	}
	if raw := c.QueryParam("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "from must be RFC3339")
		}
		f.From = t
	}
	if raw := c.QueryParam("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "to must be RFC3339")
		}
		f.To = t
	}
	return f, nil
}

func intQuery(c echo.Context, name string) int {
	v, _ := strconv.Atoi(c.QueryParam(name))
	return v
}
