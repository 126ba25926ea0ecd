// Package ringbuf keeps a fixed-capacity in-memory ring of recently
// dispatched action events. When full, the oldest entry is overwritten.
package ringbuf

import (
	"sync"

	"scalpflow/internal/model"
)

// Ring is a concurrency-safe ring of action events.
type Ring struct {
	mu   sync.RWMutex
	buf  []model.ActionEvent
	next int
	full bool
}

// New creates a ring. Capacity below 1 is raised to 1.
func New(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]model.ActionEvent, capacity)}
}

// Push appends an event, evicting the oldest when full.
func (r *Ring) Push(e model.ActionEvent) {
	r.mu.Lock()
	r.buf[r.next] = e
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
	r.mu.Unlock()
}

// Snapshot returns the buffered events, newest first.
func (r *Ring) Snapshot() []model.ActionEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.next
	if r.full {
		n = len(r.buf)
	}
	out := make([]model.ActionEvent, 0, n)
	for i := 1; i <= n; i++ {
		idx := r.next - i
		if idx < 0 {
			idx += len(r.buf)
		}
		out = append(out, r.buf[idx])
	}
	return out
}

// Len reports the number of buffered events.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// Cap reports the ring capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}
