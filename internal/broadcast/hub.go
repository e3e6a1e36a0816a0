package broadcast

import (
	"sync"
	"time"
)

// Hub owns the broadcaster-per-identity map. Broadcasters are created
// lazily on the first attach for an identity and remove themselves from
// the map when they terminate.
type Hub struct {
	mu       sync.Mutex
	interval time.Duration
	groups   map[string]*Broadcaster
}

func NewHub(interval time.Duration) *Hub {
	return &Hub{interval: interval, groups: make(map[string]*Broadcaster)}
}

// Attach registers sub against id's broadcaster, creating it when absent.
// The full current history of src is delivered synchronously before the
// subscriber joins the poll cycle.
func (h *Hub) Attach(id string, src Source, sub Subscriber) error {
	for {
		h.mu.Lock()
		b := h.groups[id]
		fresh := false
		if b == nil || b.isStopped() {
			b = newBroadcaster(id, src, h.interval, func() { h.remove(id) })
			h.groups[id] = b
			fresh = true
		}
		h.mu.Unlock()

		err := b.attach(sub)
		if err == ErrStopped {
			// Lost a race with the broadcaster's own termination; retry
			// with a fresh one.
			continue
		}
		if err != nil {
			if fresh {
				b.terminate()
			}
			return err
		}
		if fresh {
			go b.run()
		}
		return nil
	}
}

// Detach removes sub from id's broadcaster, if any. Safe to call at any
// point in the poll cycle, including for subscribers already dropped.
func (h *Hub) Detach(id string, sub Subscriber) {
	h.mu.Lock()
	b := h.groups[id]
	h.mu.Unlock()
	if b != nil {
		b.detach(sub)
	}
}

// Subscribers reports the current subscriber count for id.
func (h *Hub) Subscribers(id string) int {
	h.mu.Lock()
	b := h.groups[id]
	h.mu.Unlock()
	if b == nil {
		return 0
	}
	b.mu.Lock()
	n := len(b.cursors)
	b.mu.Unlock()
	return n
}

// Active reports whether a broadcaster currently exists for id.
func (h *Hub) Active(id string) bool {
	h.mu.Lock()
	b := h.groups[id]
	h.mu.Unlock()
	return b != nil && !b.isStopped()
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	if b := h.groups[id]; b != nil && b.isStopped() {
		delete(h.groups, id)
	}
	h.mu.Unlock()
}
