package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/biblioteca/lending-platform/internal/api/metrics"
	"github.com/biblioteca/lending-platform/internal/core/domain"
	"github.com/biblioteca/lending-platform/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// AuditDispatcher moves audit writes off the request path. Entries shard to
// a fixed worker by actor ID, so one actor's trail keeps its order; the
// store write happens on the worker goroutine.
//
// When a worker's buffer is full, or after shutdown has begun, the entry is
// written synchronously instead of dropped: a slow store may cost latency,
// never trail gaps.
type AuditDispatcher struct {
	workers []chan domain.AuditEntry
	sink    ports.AuditRecorder
	log     zerolog.Logger

	mu      sync.RWMutex
	stopped bool
}

// NewAuditDispatcher creates a dispatcher with numWorkers sharded workers
// in front of sink. If numWorkers <= 0, defaultWorkers is used.
func NewAuditDispatcher(numWorkers int, sink ports.AuditRecorder, log zerolog.Logger) *AuditDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &AuditDispatcher{
		workers: make([]chan domain.AuditEntry, numWorkers),
		sink:    sink,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuditEntry, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. When ctx is cancelled the dispatcher
// flips to synchronous delivery, then closes the worker channels so each
// worker drains what is already queued and stops.
func (d *AuditDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(i, ch)
	}
	go func() {
		<-ctx.Done()
		// The lock waits out any enqueue in flight. After stopped is set,
		// no new entry reaches the channels and closing them is safe.
		d.mu.Lock()
		d.stopped = true
		d.mu.Unlock()
		for _, ch := range d.workers {
			close(ch)
		}
	}()
}

// LogEvent enqueues the entry for its actor's worker, satisfying
// ports.AuditRecorder so the middleware can use the dispatcher directly.
// Once shutdown has begun the entry is written synchronously; nothing lands
// in a buffer no worker will service.
func (d *AuditDispatcher) LogEvent(ctx context.Context, entry domain.AuditEntry) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.sink.LogEvent(ctx, entry)
		return
	}
	idx := d.shardIndex(entry.ActorID)
	select {
	case d.workers[idx] <- entry:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		// Buffer full: fall back to a synchronous write.
		d.sink.LogEvent(ctx, entry)
	}
}

// shardIndex maps an actor deterministically to a worker index.
func (d *AuditDispatcher) shardIndex(actorID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(actorID))
	return int(h.Sum32()) % len(d.workers)
}

func (d *AuditDispatcher) runWorker(id int, ch chan domain.AuditEntry) {
	worker := strconv.Itoa(id)
	// Runs until the channel is closed and drained; queued entries are not
	// droppable.
	for entry := range ch {
		d.sink.LogEvent(context.Background(), entry)
		metrics.AuditQueueDepth.WithLabelValues(worker).Set(float64(len(ch)))
	}
	d.log.Debug().Int("worker", id).Msg("audit worker stopped")
}
