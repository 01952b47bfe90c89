package stream

import (
	"context"
	"time"

	"github.com/qualicam/streaming-server/internal/logger"
	"github.com/qualicam/streaming-server/internal/metrics"
)

// Notifier receives "cache updated" events, one per quality whose entry
// just changed. Satisfied by Broadcaster.
type Notifier interface {
	Notify(quality int)
}

// CaptureLoop reads frames from the camera on a fixed cadence, encodes
// each frame once per wanted quality, publishes the result into the
// cache, and notifies the broadcaster. The goroutine running Run is the
// exclusive owner of the source.
type CaptureLoop struct {
	source   Source
	registry *Registry
	cache    *Cache
	notifier Notifier
	interval time.Duration
	metrics  *metrics.Metrics

	failStreak int
}

// NewCaptureLoop wires a capture loop; interval is the capture period
// (time.Second / fps).
func NewCaptureLoop(source Source, registry *Registry, cache *Cache, notifier Notifier, interval time.Duration, m *metrics.Metrics) *CaptureLoop {
	return &CaptureLoop{
		source:   source,
		registry: registry,
		cache:    cache,
		notifier: notifier,
		interval: interval,
		metrics:  m,
	}
}

// Run captures until ctx is canceled. Each iteration runs one cycle and
// then sleeps until an absolute deadline. The next deadline is the
// previous deadline plus the interval, never "now plus interval", so a
// transient overrun does not shift the phase; sustained overruns run
// back-to-back cycles with no idle.
func (l *CaptureLoop) Run(ctx context.Context) {
	logger.Info("Capture", "Starting capture loop (interval=%v)", l.interval)

	deadline := time.Now().Add(l.interval)
	for {
		l.cycle()

		if !sleepUntil(ctx, deadline) {
			logger.Info("Capture", "Capture loop stopped")
			return
		}
		deadline = deadline.Add(l.interval)
	}
}

// cycle performs one capture: read, encode per wanted quality, publish,
// notify. A failed read skips the whole cycle; a failed encode skips
// only that quality.
func (l *CaptureLoop) cycle() {
	frame, ok := l.source.Read()
	if !ok {
		l.metrics.CaptureFailures.Add(1)
		l.failStreak++
		if l.failStreak == 1 {
			logger.Warn("Capture", "Camera read failed, skipping cycle")
		}
		return
	}
	if l.failStreak > 0 {
		logger.Info("Capture", "Camera recovered after %d failed reads", l.failStreak)
		l.failStreak = 0
	}
	l.metrics.FramesCaptured.Add(1)

	wanted := l.registry.WantedQualities()
	l.metrics.WantedQualities.Store(uint64(len(wanted)))

	for _, q := range wanted {
		data, err := frame.EncodeJPEG(q)
		if err != nil {
			l.metrics.EncodeFailures.Add(1)
			logger.Error("Capture", "JPEG encode failed at quality %d: %v", q, err)
			continue
		}
		l.metrics.FramesEncoded.Add(1)
		l.cache.Put(q, data)
		l.notifier.Notify(q)
	}
}

// sleepUntil idles until the absolute deadline or until ctx ends.
// Returns false when ctx ended. A deadline already in the past returns
// immediately.
func sleepUntil(ctx context.Context, deadline time.Time) bool {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
