// Package broadcast fans console output out to any number of concurrently
// attached subscribers. One Broadcaster exists per console identity while
// that identity has at least one subscriber; its lifecycle is derived from
// the attachment count, never managed directly.
package broadcast

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/loykin/consolr/internal/metrics"
)

// DefaultPollInterval is the delay between delivery passes.
const DefaultPollInterval = 100 * time.Millisecond

// Source is the side of a console the broadcaster reads. HistoryLines
// must return a snapshot copy; Alive must never block.
type Source interface {
	Alive() bool
	HistoryLines() []string
}

// Subscriber receives text pushes. Send returning an error is treated as
// a disconnect and the subscriber is dropped.
type Subscriber interface {
	Send(text string) error
}

// ErrStopped is returned by Attach when the broadcaster already
// terminated; the hub reacts by creating a fresh one.
var ErrStopped = errors.New("broadcaster stopped")

// Broadcaster polls one source and pushes unseen history lines to each
// subscriber, tracking a per-subscriber cursor of lines already
// delivered. Cursors only advance, and never past the snapshot length.
type Broadcaster struct {
	id       string
	src      Source
	interval time.Duration
	onExit   func()

	mu      sync.Mutex
	cursors map[Subscriber]int
	stopped bool
	done    chan struct{}
	exit    sync.Once
}

func newBroadcaster(id string, src Source, interval time.Duration, onExit func()) *Broadcaster {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Broadcaster{
		id:       id,
		src:      src,
		interval: interval,
		onExit:   onExit,
		cursors:  make(map[Subscriber]int),
		done:     make(chan struct{}),
	}
}

// attach replays the entire current history to sub, then registers it
// with its cursor at the replayed length, so lines landing between the
// snapshot and the registration are neither skipped nor double-sent.
func (b *Broadcaster) attach(sub Subscriber) error {
	lines := b.src.HistoryLines()
	if len(lines) > 0 {
		if err := sub.Send(strings.Join(lines, "")); err != nil {
			return err
		}
	}
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return ErrStopped
	}
	b.cursors[sub] = len(lines)
	n := len(b.cursors)
	b.mu.Unlock()
	metrics.SetSubscribers(b.id, n)
	return nil
}

// detach removes sub; when the last subscriber leaves the broadcaster
// terminates itself.
func (b *Broadcaster) detach(sub Subscriber) {
	b.mu.Lock()
	delete(b.cursors, sub)
	empty := len(b.cursors) == 0
	n := len(b.cursors)
	b.mu.Unlock()
	metrics.SetSubscribers(b.id, n)
	if empty {
		b.terminate()
	}
}

func (b *Broadcaster) terminate() {
	b.exit.Do(func() {
		b.mu.Lock()
		b.stopped = true
		b.mu.Unlock()
		close(b.done)
		metrics.SetSubscribers(b.id, 0)
		if b.onExit != nil {
			b.onExit()
		}
		slog.Debug("broadcaster terminated", "console", b.id)
	})
}

func (b *Broadcaster) isStopped() bool {
	b.mu.Lock()
	s := b.stopped
	b.mu.Unlock()
	return s
}

// run is the poll loop. Delivery iterates over a copy of the subscriber
// set so attach/detach never deadlock against a pass in flight; removals
// and cursor advances are applied under the lock afterwards.
func (b *Broadcaster) run() {
	t := time.NewTicker(b.interval)
	defer t.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-t.C:
		}
		if !b.src.Alive() {
			// Subscribers stay attached to the now-static history; they
			// just stop receiving updates.
			b.terminate()
			return
		}
		lines := b.src.HistoryLines()

		b.mu.Lock()
		pending := make(map[Subscriber]int, len(b.cursors))
		for sub, cur := range b.cursors {
			if cur < len(lines) {
				pending[sub] = cur
			}
		}
		b.mu.Unlock()

		advanced := make(map[Subscriber]int, len(pending))
		var failed []Subscriber
		for sub, cur := range pending {
			if err := sub.Send(strings.Join(lines[cur:], "")); err != nil {
				metrics.IncDeliveryFailure(b.id)
				failed = append(failed, sub)
				continue
			}
			advanced[sub] = len(lines)
		}

		b.mu.Lock()
		for sub, n := range advanced {
			if cur, ok := b.cursors[sub]; ok && n > cur {
				b.cursors[sub] = n
			}
		}
		for _, sub := range failed {
			delete(b.cursors, sub)
		}
		empty := len(b.cursors) == 0
		n := len(b.cursors)
		b.mu.Unlock()
		metrics.SetSubscribers(b.id, n)
		if empty {
			b.terminate()
			return
		}
	}
}
