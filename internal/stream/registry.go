package stream

import (
	"sort"
	"sync"
)

// Registry tracks which subscriber wants which quality and how many
// subscribers want each quality. All operations run under one mutex so
// every call appears atomic; no I/O ever happens while locked.
type Registry struct {
	mu     sync.Mutex
	subs   map[Subscriber]int // subscriber -> quality
	demand map[int]int        // quality -> refcount, entries deleted at zero
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		subs:   make(map[Subscriber]int),
		demand: make(map[int]int),
	}
}

// Subscribe registers sub at the given quality. The caller has already
// validated the quality range.
func (r *Registry) Subscribe(sub Subscriber, quality int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subs[sub] = quality
	r.demand[quality]++
}

// Unsubscribe removes sub and releases its demand. Idempotent: a second
// call for the same subscriber is a no-op. Returns whether the
// subscriber was actually removed by this call.
func (r *Registry) Unsubscribe(sub Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	quality, ok := r.subs[sub]
	if !ok {
		return false
	}
	delete(r.subs, sub)
	if r.demand[quality] <= 1 {
		delete(r.demand, quality)
	} else {
		r.demand[quality]--
	}
	return true
}

// WantedQualities returns the qualities with at least one subscriber,
// ascending. The snapshot may be stale by the time the caller acts on
// it; callers tolerate that.
func (r *Registry) WantedQualities() []int {
	r.mu.Lock()
	wanted := make([]int, 0, len(r.demand))
	for q := range r.demand {
		wanted = append(wanted, q)
	}
	r.mu.Unlock()

	sort.Ints(wanted)
	return wanted
}

// SubscribersAt returns a snapshot of the subscribers registered at the
// given quality.
func (r *Registry) SubscribersAt(quality int) []Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()

	var subs []Subscriber
	for sub, q := range r.subs {
		if q == quality {
			subs = append(subs, sub)
		}
	}
	return subs
}

// Count returns the number of registered subscribers.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// DemandSnapshot returns a copy of the quality -> refcount map.
func (r *Registry) DemandSnapshot() map[int]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[int]int, len(r.demand))
	for q, n := range r.demand {
		snapshot[q] = n
	}
	return snapshot
}
