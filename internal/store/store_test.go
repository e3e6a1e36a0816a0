package store

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
)

func testRoundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	recs, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty set, got %d records", len(recs))
	}

	in := []Record{
		{ID: "alpha", WorkDir: "/srv/alpha", Command: []string{"java", "-Xmx4G", "-jar", "server.jar", "nogui"}, Autostart: true},
		{ID: "beta", WorkDir: "/srv/beta", Command: []string{"/bin/sh", "-i"}, Autostart: false},
	}
	if err := s.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	byID := make(map[string]Record, len(got))
	for _, r := range got {
		byID[r.ID] = r
	}
	for _, want := range in {
		r, ok := byID[want.ID]
		if !ok {
			t.Fatalf("record %s missing after round-trip", want.ID)
		}
		if !reflect.DeepEqual(r, want) {
			t.Fatalf("record %s mismatch: got %+v want %+v", want.ID, r, want)
		}
	}

	// Whole-set save replaces, never merges.
	if err := s.Save(ctx, in[:1]); err != nil {
		t.Fatalf("save shrunk set: %v", err)
	}
	got, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("load shrunk set: %v", err)
	}
	if len(got) != 1 || got[0].ID != "alpha" {
		t.Fatalf("expected only alpha, got %+v", got)
	}

	if err := s.Delete(ctx, "alpha"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("load after delete: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty set after delete, got %+v", got)
	}

	// Deleting a missing id is not an error.
	if err := s.Delete(ctx, "nope"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	testRoundTrip(t, NewMemoryStore())
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "consolr.db")
	s, err := NewSQLiteStore(Config{Type: "sqlite", Path: path})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() { _ = s.Close() }()
	testRoundTrip(t, s)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "consolr.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(Config{Path: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	in := []Record{{ID: "mc", WorkDir: "/srv/mc", Command: []string{"java", "-jar", "s.jar"}, Autostart: true}}
	if err := s.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := NewSQLiteStore(Config{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s2.Close() }()
	got, err := s2.Load(ctx)
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("round-trip across reopen mismatch: got %+v want %+v", got, in)
	}
}

func TestFactorySelectsByType(t *testing.T) {
	s, err := New(Config{Type: "memory"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("expected MemoryStore, got %T", s)
	}

	s, err = New(Config{Type: "sqlite", Path: filepath.Join(t.TempDir(), "x.db")})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer func() { _ = s.Close() }()
	if _, ok := s.(*SQLiteStore); !ok {
		t.Fatalf("expected SQLiteStore, got %T", s)
	}

	if _, err := New(Config{Type: "bogus"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}
