package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/biblioteca/lending-platform/internal/core/domain"
)

// AuditRepository is an append-only in-process audit store. Entries live in
// insertion order; queries sort on demand.
type AuditRepository struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Append(_ context.Context, e domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *AuditRepository) Find(_ context.Context, f domain.AuditFilter, p domain.Pagination) ([]domain.AuditEntry, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.matching(f)
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := int64(len(matched))
	start := p.Offset()
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + p.PerPage
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]domain.AuditEntry, end-start)
	copy(out, matched[start:end])
	return out, total, nil
}

func (r *AuditRepository) Stats(_ context.Context, f domain.AuditFilter) (domain.AuditStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.AuditStats{BySeverity: map[domain.Severity]int64{}}
	counts := map[string]int64{}
	for _, e := range r.matching(f) {
		stats.Total++
		if e.Success {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
		stats.BySeverity[e.Severity]++
		counts[e.Action]++
	}

	for action, count := range counts {
		stats.TopActions = append(stats.TopActions, domain.ActionCount{Action: action, Count: count})
	}
	sort.Slice(stats.TopActions, func(i, j int) bool {
		if stats.TopActions[i].Count != stats.TopActions[j].Count {
			return stats.TopActions[i].Count > stats.TopActions[j].Count
		}
		return stats.TopActions[i].Action < stats.TopActions[j].Action
	})
	if len(stats.TopActions) > 10 {
		stats.TopActions = stats.TopActions[:10]
	}
	return stats, nil
}

func (r *AuditRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	var deleted int64
	for _, e := range r.entries {
		if e.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return deleted, nil
}

// matching returns entries passing the filter. Caller holds the lock.
func (r *AuditRepository) matching(f domain.AuditFilter) []domain.AuditEntry {
	var out []domain.AuditEntry
	for _, e := range r.entries {
		if f.ActorID != "" && e.ActorID != f.ActorID {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.ResourceType != "" && e.ResourceType != f.ResourceType {
			continue
		}
		if f.Severity != "" && e.Severity != f.Severity {
			continue
		}
		if f.Success != nil && e.Success != *f.Success {
			continue
		}
		if !f.From.IsZero() && e.Timestamp.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && e.Timestamp.After(f.To) {
			continue
		}
		out = append(out, e)
	}
	return out
}
