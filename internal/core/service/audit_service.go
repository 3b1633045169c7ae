package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/biblioteca/lending-platform/internal/api/metrics"
	"github.com/biblioteca/lending-platform/internal/core/domain"
	"github.com/biblioteca/lending-platform/internal/core/ports"
)

// AuditService records and queries the security audit trail. Write failures
// never propagate to the caller: an audit outage must not turn a successful
// authentication into a failure. They are logged and counted instead.
type AuditService struct {
	repo  ports.AuditRepository
	log   zerolog.Logger
	clock func() time.Time
}

func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) *AuditService {
	return &AuditService{repo: repo, log: log, clock: time.Now}
}

// LogEvent persists one immutable audit entry, filling ID and timestamp when
// absent. Errors are swallowed by contract.
func (s *AuditService) LogEvent(ctx context.Context, entry domain.AuditEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.clock().UTC()
	}
	if entry.ActorID == "" {
		entry.ActorID = domain.AnonymousActor
	}
	if entry.Severity == "" {
		entry.Severity = domain.SeverityInfo
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		metrics.AuditWriteFailuresTotal.Inc()
		s.log.Error().
			Err(err).
			Str("action", entry.Action).
			Str("actor_id", entry.ActorID).
			Msg("audit write failed")
		return
	}
	metrics.AuditEventsTotal.WithLabelValues(string(entry.Severity)).Inc()
}

// Query returns matching entries newest first, with page metadata.
func (s *AuditService) Query(ctx context.Context, f domain.AuditFilter, p domain.Pagination) ([]domain.AuditEntry, domain.PageInfo, error) {
	p = p.Normalize()
	entries, total, err := s.repo.Find(ctx, f, p)
	if err != nil {
		return nil, domain.PageInfo{}, err
	}
	pages := total / int64(p.PerPage)
	if total%int64(p.PerPage) != 0 {
		pages++
	}
	return entries, domain.PageInfo{
		Page:       p.Page,
		PerPage:    p.PerPage,
		Total:      total,
		TotalPages: pages,
	}, nil
}

// Stats aggregates the trail over the filter window.
func (s *AuditService) Stats(ctx context.Context, f domain.AuditFilter) (domain.AuditStats, error) {
	return s.repo.Stats(ctx, f)
}

// CleanupOld prunes entries past the retention window.
func (s *AuditService) CleanupOld(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	cutoff := s.clock().UTC().AddDate(0, 0, -retentionDays)
	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.log.Info().
			Int64("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("audit retention cleanup")
	}
	return deleted, nil
}
