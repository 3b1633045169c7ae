package ports

import (
	"context"
	"time"

	"github.com/biblioteca/lending-platform/internal/core/domain"
)

// AuditRecorder is the write-side of the audit trail. It is the only method
// the middleware and handlers need, so async dispatchers can stand in for
// the full service.
type AuditRecorder interface {
	// LogEvent persists one immutable entry. A persistence failure must
	// never fail the operation being audited; implementations swallow the
	// error and report it operationally.
	LogEvent(ctx context.Context, entry domain.AuditEntry)
}

// AuditService is the full audit trail: recording plus querying.
type AuditService interface {
	AuditRecorder

	// Query returns entries matching the filter, newest first.
	Query(ctx context.Context, f domain.AuditFilter, p domain.Pagination) ([]domain.AuditEntry, domain.PageInfo, error)

	// Stats aggregates the trail over the filter window.
	Stats(ctx context.Context, f domain.AuditFilter) (domain.AuditStats, error)

	// CleanupOld deletes entries older than the retention window and returns
	// how many were removed.
	CleanupOld(ctx context.Context, retentionDays int) (int64, error)
}

// AuditRepository is the persistence contract for audit entries.
// Append-only by design: no update methods exist, and deletion happens only
// through retention cleanup.
type AuditRepository interface {
	Append(ctx context.Context, e domain.AuditEntry) error
	Find(ctx context.Context, f domain.AuditFilter, p domain.Pagination) ([]domain.AuditEntry, int64, error)
	Stats(ctx context.Context, f domain.AuditFilter) (domain.AuditStats, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
