// Package registry maps console identities to persisted launch records
// and, while live, to their running console instances. It is the only
// component that constructs or discards consoles.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/loykin/consolr/internal/console"
	"github.com/loykin/consolr/internal/store"
)

// Options tunes consoles spawned by this registry.
type Options struct {
	HistoryLines int
	GracePeriod  time.Duration
	PollInterval time.Duration
	StopCommand  string
}

func (o Options) consoleOptions() console.Options {
	return console.Options{
		HistoryLines: o.HistoryLines,
		GracePeriod:  o.GracePeriod,
		PollInterval: o.PollInterval,
		StopCommand:  o.StopCommand,
	}
}

// Registry serializes all mutations behind one mutex so two concurrent
// starts can never race to spawn the same identity twice. Persistence is
// synchronous and whole-set on every mutation.
type Registry struct {
	mu      sync.Mutex
	records map[string]store.Record
	live    map[string]*console.Console
	st      store.Store
	opts    Options
}

// New loads the persisted record set from st (a missing or corrupt store
// degrades to an empty set, logged, never fatal) and then autostarts
// every record with Autostart set. Autostart failures are isolated per
// identity.
func New(st store.Store, opts Options) *Registry {
	r := &Registry{
		records: make(map[string]store.Record),
		live:    make(map[string]*console.Console),
		st:      st,
		opts:    opts,
	}
	recs, err := st.Load(context.Background())
	if err != nil {
		perr := &PersistenceError{Op: "load", Err: err}
		slog.Warn("failed to load launch records, starting empty", "err", perr)
	}
	for _, rec := range recs {
		r.records[rec.ID] = rec
	}
	r.autostart()
	return r
}

func (r *Registry) autostart() {
	r.mu.Lock()
	var ids []string
	for id, rec := range r.records {
		if rec.Autostart {
			ids = append(ids, id)
		}
	}
	r.mu.Unlock()
	sort.Strings(ids)
	for _, id := range ids {
		if err := r.Start(id); err != nil {
			slog.Warn("autostart failed", "console", id, "err", err)
		}
	}
}

// Create registers a new identity, spawns it immediately, and persists
// the grown record set. A duplicate identity fails without touching
// persisted state.
func (r *Registry) Create(id, workDir string, command []string, autostart bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateIdentity, id)
	}
	c, err := console.Start(id, workDir, command, r.opts.consoleOptions())
	if err != nil {
		return &SpawnError{ID: id, Err: err}
	}
	rec := store.Record{ID: id, WorkDir: workDir, Command: append([]string(nil), command...), Autostart: autostart}
	r.records[id] = rec
	r.live[id] = c
	r.persistLocked()
	return nil
}

// Start spawns id from its stored record. Unknown identities fail; an
// already-live identity is a no-op, not a second spawn. A console that
// died on its own is discarded here and replaced.
func (r *Registry) Start(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownIdentity, id)
	}
	if c := r.live[id]; c != nil {
		if c.Alive() {
			return nil
		}
		delete(r.live, id)
	}
	c, err := console.Start(id, rec.WorkDir, rec.Command, r.opts.consoleOptions())
	if err != nil {
		return &SpawnError{ID: id, Err: err}
	}
	r.live[id] = c
	return nil
}

// Stop gracefully stops a live console and removes it from the live set.
// The launch record is retained; stopping does not forget the identity.
func (r *Registry) Stop(id string) error {
	r.mu.Lock()
	c := r.live[id]
	r.mu.Unlock()
	if c == nil {
		return nil
	}
	// Stop can block for the whole grace period; do not hold the registry
	// lock across it.
	if err := c.Stop(); err != nil {
		slog.Warn("error stopping console", "console", id, "err", err)
	}
	r.mu.Lock()
	if r.live[id] == c {
		delete(r.live, id)
	}
	r.mu.Unlock()
	return nil
}

// Remove stops id if live, deletes its launch record, and persists the
// shrunken set. Unknown identities fail.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	_, ok := r.records[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownIdentity, id)
	}
	_ = r.Stop(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	if err := r.st.Delete(context.Background(), id); err != nil {
		slog.Warn("failed to delete launch record", "console", id,
			"err", &PersistenceError{Op: "save", Err: err})
	}
	r.persistLocked()
	return nil
}

// List returns a snapshot of all launch records, live or not, ordered by
// identity.
func (r *Registry) List() []store.Record {
	r.mu.Lock()
	out := make([]store.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the launch record for id.
func (r *Registry) Get(id string) (store.Record, bool) {
	r.mu.Lock()
	rec, ok := r.records[id]
	r.mu.Unlock()
	return rec, ok
}

// GetLive returns the live console for id, or nil.
func (r *Registry) GetLive(id string) *console.Console {
	r.mu.Lock()
	c := r.live[id]
	r.mu.Unlock()
	return c
}

// Shutdown stops every live console. Records are untouched.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	var ids []string
	for id := range r.live {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = r.Stop(id)
		}(id)
	}
	wg.Wait()
}

// persistLocked writes the whole record set synchronously. Failures
// degrade to in-memory-only operation.
func (r *Registry) persistLocked() {
	recs := make([]store.Record, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	if err := r.st.Save(context.Background(), recs); err != nil {
		slog.Warn("failed to persist launch records", "err",
			&PersistenceError{Op: "save", Err: err})
	}
}
