package queue

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/biblioteca/lending-platform/internal/core/domain"
)

// collectingSink records entries in arrival order.
type collectingSink struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (s *collectingSink) LogEvent(_ context.Context, entry domain.AuditEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *collectingSink) snapshot() []domain.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func waitFor(t *testing.T, want int, s *collectingSink) []domain.AuditEntry {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := s.snapshot(); len(got) >= want {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d entries, have %d", want, len(s.snapshot()))
	return nil
}

func TestAuditDispatcher_DeliversToSink(t *testing.T) {
	sink := &collectingSink{}
	d := NewAuditDispatcher(2, sink, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	for i := 0; i < 10; i++ {
		d.LogEvent(ctx, domain.AuditEntry{ActorID: "u" + strconv.Itoa(i), Action: domain.ActionLogin})
	}
	entries := waitFor(t, 10, sink)
	if len(entries) != 10 {
		t.Fatalf("delivered = %d", len(entries))
	}
}

func TestAuditDispatcher_PreservesPerActorOrder(t *testing.T) {
	sink := &collectingSink{}
	d := NewAuditDispatcher(4, sink, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	const n = 50
	for i := 0; i < n; i++ {
		d.LogEvent(ctx, domain.AuditEntry{ActorID: "u1", ResourceID: strconv.Itoa(i)})
	}

	entries := waitFor(t, n, sink)
	for i, e := range entries {
		if e.ResourceID != strconv.Itoa(i) {
			t.Fatalf("entry %d out of order: %s", i, e.ResourceID)
		}
	}
}

func TestAuditDispatcher_SyncFallbackWhenBufferFull(t *testing.T) {
	sink := &collectingSink{}
	// Never started: the buffer fills and the overflow entry must be written
	// synchronously rather than dropped.
	d := NewAuditDispatcher(1, sink, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < channelBuffer; i++ {
		d.LogEvent(ctx, domain.AuditEntry{ActorID: "u1"})
	}
	if got := len(sink.snapshot()); got != 0 {
		t.Fatalf("entries bypassed the queue early: %d", got)
	}

	d.LogEvent(ctx, domain.AuditEntry{ActorID: "u1", Action: "overflow"})
	entries := sink.snapshot()
	if len(entries) != 1 || entries[0].Action != "overflow" {
		t.Fatalf("overflow entry not written synchronously: %+v", entries)
	}
}

func TestAuditDispatcher_DrainsOnShutdown(t *testing.T) {
	sink := &collectingSink{}
	d := NewAuditDispatcher(1, sink, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	for i := 0; i < 20; i++ {
		d.LogEvent(ctx, domain.AuditEntry{ActorID: "u1", ResourceID: strconv.Itoa(i)})
	}
	d.Start(ctx)
	cancel()

	entries := waitFor(t, 20, sink)
	if len(entries) != 20 {
		t.Fatalf("drained = %d, want 20", len(entries))
	}
}

func TestAuditDispatcher_SyncAfterShutdown(t *testing.T) {
	sink := &collectingSink{}
	d := NewAuditDispatcher(2, sink, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for {
		d.mu.RLock()
		stopped := d.stopped
		d.mu.RUnlock()
		if stopped {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("dispatcher never marked stopped")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// An entry logged after shutdown must reach the sink synchronously, not
	// land in a buffer no worker services.
	d.LogEvent(context.Background(), domain.AuditEntry{ActorID: "u1", Action: "late"})
	entries := sink.snapshot()
	if len(entries) != 1 || entries[0].Action != "late" {
		t.Fatalf("late entry not written synchronously: %+v", entries)
	}
}
