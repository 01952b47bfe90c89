package stream

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeFrame encodes into a payload that identifies both the capture
// cycle and the quality, so tests can assert per-quality delivery.
type fakeFrame struct {
	seq     int
	failAll bool
}

func (f *fakeFrame) EncodeJPEG(quality int) ([]byte, error) {
	if f.failAll {
		return nil, errors.New("encoder broken")
	}
	return []byte(fmt.Sprintf("frame-%d-q%d", f.seq, quality)), nil
}

// fakeSource hands out numbered frames and can fail or stall specific
// reads (zero-based read index).
type fakeSource struct {
	mu       sync.Mutex
	reads    int
	readTime []time.Time
	failAt   map[int]bool
	delayAt  map[int]time.Duration
}

func (s *fakeSource) Read() (Frame, bool) {
	s.mu.Lock()
	n := s.reads
	s.reads++
	s.readTime = append(s.readTime, time.Now())
	delay := s.delayAt[n]
	fail := s.failAt[n]
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		return nil, false
	}
	return &fakeFrame{seq: n}, true
}

func (s *fakeSource) readTimes() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Time, len(s.readTime))
	copy(out, s.readTime)
	return out
}

// fakeSubscriber records delivered frames; sendErr makes every send
// fail, block stalls sends until released.
type fakeSubscriber struct {
	mu      sync.Mutex
	frames  [][]byte
	sendErr error
	block   chan struct{}
	closed  int
}

func (s *fakeSubscriber) SendFrame(data []byte) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.frames = append(s.frames, data)
	return nil
}

func (s *fakeSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSubscriber) received() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.frames))
	copy(out, s.frames)
	return out
}

func (s *fakeSubscriber) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeNotifier records which qualities were notified.
type fakeNotifier struct {
	mu        sync.Mutex
	qualities []int
}

func (n *fakeNotifier) Notify(q int) {
	n.mu.Lock()
	n.qualities = append(n.qualities, q)
	n.mu.Unlock()
}

func (n *fakeNotifier) notified() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]int, len(n.qualities))
	copy(out, n.qualities)
	return out
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
