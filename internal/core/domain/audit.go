package domain

import "time"

// Severity classifies how security-relevant an audit entry is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Audit actions recorded by the core. Route handlers elsewhere in the
// application register their own action names through the audit middleware.
const (
	ActionLogin          = "auth.login"
	ActionLogout         = "auth.logout"
	ActionRefresh        = "auth.refresh"
	ActionRegister       = "auth.register"
	ActionPasswordChange = "auth.password_change"
	ActionRoleChange     = "user.role_change"
)

// AuditEntry is one immutable record of a security-relevant action. Entries
// are append-only: never updated or deleted except by retention cleanup.
type AuditEntry struct {
	ID              string         `json:"id"`
	ActorID         string         `json:"actor_id"`
	ActorEmail      string         `json:"actor_email,omitempty"`
	ActorRole       string         `json:"actor_role,omitempty"`
	Action          string         `json:"action"`
	ResourceType    string         `json:"resource_type"`
	ResourceID      string         `json:"resource_id,omitempty"`
	TargetSubjectID string         `json:"target_subject_id,omitempty"`
	Details         map[string]any `json:"details,omitempty"`
	Origin          string         `json:"origin,omitempty"`
	UserAgent       string         `json:"user_agent,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
	Severity        Severity       `json:"severity"`
	Success         bool           `json:"success"`
	ErrorMessage    string         `json:"error_message,omitempty"`
}

// AnonymousActor is recorded when a request carries no authenticated
// principal (failed logins, unauthenticated probes).
const AnonymousActor = "anonymous"

// AuditFilter narrows audit queries. Zero values mean "no constraint".
type AuditFilter struct {
	ActorID      string
	Action       string
	ResourceType string
	Severity     Severity
	Success      *bool
	From         time.Time
	To           time.Time
}

// Pagination is a page request. Page is 1-based.
type Pagination struct {
	Page    int
	PerPage int
}

// Normalize clamps the request to sane bounds.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = 20
	}
	if p.PerPage > 100 {
		p.PerPage = 100
	}
	return p
}

// Offset returns the number of entries to skip.
func (p Pagination) Offset() int { return (p.Page - 1) * p.PerPage }

// PageInfo describes the result window of a paginated query.
type PageInfo struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// ActionCount is one row of the "top actions" aggregate.
type ActionCount struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}

// AuditStats summarizes the audit trail over a filter window.
type AuditStats struct {
	Total      int64              `json:"total"`
	Succeeded  int64              `json:"succeeded"`
	Failed     int64              `json:"failed"`
	BySeverity map[Severity]int64 `json:"by_severity"`
	TopActions []ActionCount      `json:"top_actions"`
}
