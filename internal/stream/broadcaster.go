package stream

import (
	"context"
	"sync"

	"github.com/qualicam/streaming-server/internal/logger"
	"github.com/qualicam/streaming-server/internal/metrics"
	"github.com/qualicam/streaming-server/pkg/quality"
)

// Broadcaster fans encoded frames out to subscribers. A fixed pool of
// workers consumes per-quality "cache updated" events; notifications
// for a quality that is already queued or in flight are coalesced, so
// at most one event per quality is ever pending and broadcast volume
// cannot outpace the workers under load.
type Broadcaster struct {
	registry *Registry
	cache    *Cache
	metrics  *metrics.Metrics
	workers  int

	events chan int
	wg     sync.WaitGroup

	mu       sync.Mutex
	queued   map[int]bool
	inflight map[int]bool
	dirty    map[int]bool
}

// NewBroadcaster creates a broadcaster backed by the given worker count.
func NewBroadcaster(registry *Registry, cache *Cache, workers int, m *metrics.Metrics) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		cache:    cache,
		metrics:  m,
		workers:  workers,
		// One slot per distinct quality level: the queued set keeps at
		// most one pending event per quality, so enqueue never blocks.
		events:   make(chan int, quality.Levels()),
		queued:   make(map[int]bool),
		inflight: make(map[int]bool),
		dirty:    make(map[int]bool),
	}
}

// Start launches the worker pool. Workers drain until ctx ends; Wait
// joins them.
func (b *Broadcaster) Start(ctx context.Context) {
	logger.Info("Broadcaster", "Starting %d broadcast workers", b.workers)
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.worker(ctx)
	}
}

// Wait blocks until every worker has exited.
func (b *Broadcaster) Wait() {
	b.wg.Wait()
}

// Notify enqueues a broadcast for the given quality. Never blocks.
// If an event for the quality is already queued the call coalesces
// (the queued broadcast will read the newer cache entry anyway); if a
// broadcast for the quality is in flight the quality is marked dirty
// and re-queued when the flight completes, preserving single-flight
// per-quality delivery order.
func (b *Broadcaster) Notify(q int) {
	b.mu.Lock()
	if b.queued[q] {
		b.mu.Unlock()
		b.metrics.BroadcastsCoalesced.Add(1)
		return
	}
	if b.inflight[q] {
		b.dirty[q] = true
		b.mu.Unlock()
		b.metrics.BroadcastsCoalesced.Add(1)
		return
	}
	b.queued[q] = true
	b.mu.Unlock()

	b.events <- q
}

func (b *Broadcaster) worker(ctx context.Context) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case q := <-b.events:
			b.mu.Lock()
			delete(b.queued, q)
			b.inflight[q] = true
			b.mu.Unlock()

			b.broadcast(q)

			b.mu.Lock()
			delete(b.inflight, q)
			requeue := b.dirty[q]
			if requeue {
				delete(b.dirty, q)
				b.queued[q] = true
			}
			b.mu.Unlock()

			if requeue {
				b.events <- q
			}
		}
	}
}

// broadcast delivers the cached frame for q to every subscriber at q,
// each in its own goroutine, then evicts the ones whose send failed.
// No lock is held during network I/O; the snapshot may include a
// subscriber that is already gone, which simply surfaces as a failed
// send here.
func (b *Broadcaster) broadcast(q int) {
	subs := b.registry.SubscribersAt(q)
	data := b.cache.Get(q)
	if len(subs) == 0 || data == nil {
		return
	}
	b.metrics.Broadcasts.Add(1)

	errs := make([]error, len(subs))
	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub Subscriber) {
			defer wg.Done()
			errs[i] = sub.SendFrame(data)
		}(i, sub)
	}
	wg.Wait()

	for i, err := range errs {
		if err == nil {
			b.metrics.FramesSent.Add(1)
			continue
		}
		b.metrics.SendFailures.Add(1)
		// Routine disconnect, not a system error. Unsubscribe is
		// idempotent with the connection handler's own teardown.
		if b.registry.Unsubscribe(subs[i]) {
			logger.Debug("Broadcaster", "Evicted subscriber at quality %d: %v", q, err)
		}
		_ = subs[i].Close()
	}
	b.metrics.ActiveClients.Store(uint64(b.registry.Count()))
}
