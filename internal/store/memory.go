package store

import (
	"context"
	"sync"
)

// MemoryStore keeps the record set in memory only. It backs tests and the
// degraded mode the registry falls into when a real store fails to open.
type MemoryStore struct {
	mu   sync.Mutex
	recs []Record
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.recs...), nil
}

func (s *MemoryStore) Save(_ context.Context, recs []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append([]Record(nil), recs...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.recs[:0]
	for _, r := range s.recs {
		if r.ID != id {
			out = append(out, r)
		}
	}
	s.recs = out
	return nil
}

func (s *MemoryStore) Close() error { return nil }
