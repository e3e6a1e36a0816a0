package consolr

import (
	"errors"
	"testing"
	"time"
)

func TestFacadeEndToEnd(t *testing.T) {
	st, err := NewStore(StoreConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	reg := NewRegistry(st, RegistryOptions{
		GracePeriod:  500 * time.Millisecond,
		PollInterval: 50 * time.Millisecond,
	})
	defer reg.Shutdown()

	if err := reg.Create("demo", t.TempDir(), []string{"sh", "-c", "sleep 60"}, false); err != nil {
		t.Fatalf("create: %v", err)
	}
	if live := reg.GetLive("demo"); live == nil || !live.Alive() {
		t.Fatalf("expected live console")
	}
	if err := reg.Create("demo", t.TempDir(), []string{"sh"}, false); !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("expected ErrDuplicateIdentity, got %v", err)
	}
	if err := reg.Start("missing"); !errors.Is(err, ErrUnknownIdentity) {
		t.Fatalf("expected ErrUnknownIdentity, got %v", err)
	}

	hub := NewHub(10 * time.Millisecond)
	if h := NewRouter(reg, hub, ServerOptions{BasePath: "/api"}); h == nil {
		t.Fatalf("nil router handler")
	}
}
