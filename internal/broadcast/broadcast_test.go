package broadcast

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeSource is a mutable in-memory Source.
type fakeSource struct {
	mu    sync.Mutex
	lines []string
	alive bool
}

func newFakeSource(lines ...string) *fakeSource {
	return &fakeSource{lines: lines, alive: true}
}

func (s *fakeSource) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

func (s *fakeSource) HistoryLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func (s *fakeSource) append(lines ...string) {
	s.mu.Lock()
	s.lines = append(s.lines, lines...)
	s.mu.Unlock()
}

func (s *fakeSource) die() {
	s.mu.Lock()
	s.alive = false
	s.mu.Unlock()
}

// fakeSub records everything pushed to it and can be told to fail.
type fakeSub struct {
	mu   sync.Mutex
	got  []string
	fail bool
}

func (f *fakeSub) Send(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("send failed")
	}
	f.got = append(f.got, text)
	return nil
}

func (f *fakeSub) text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.got, "")
}

func (f *fakeSub) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func waitFor(t *testing.T, d time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestAttachReplaysFullHistory(t *testing.T) {
	src := newFakeSource("a\n", "b\n", "c\n")
	h := NewHub(10 * time.Millisecond)
	sub := &fakeSub{}
	if err := h.Attach("x", src, sub); err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer h.Detach("x", sub)
	if got := sub.text(); got != "a\nb\nc\n" {
		t.Fatalf("replay mismatch: %q", got)
	}
}

func TestDeltasDeliveredExactlyOnce(t *testing.T) {
	src := newFakeSource("a\n")
	h := NewHub(10 * time.Millisecond)
	sub := &fakeSub{}
	if err := h.Attach("x", src, sub); err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer h.Detach("x", sub)

	src.append("b\n", "c\n")
	waitFor(t, 2*time.Second, "delta delivery", func() bool {
		return sub.text() == "a\nb\nc\n"
	})
	// No further lines: text must stay stable (no re-delivery).
	time.Sleep(50 * time.Millisecond)
	if got := sub.text(); got != "a\nb\nc\n" {
		t.Fatalf("lines re-delivered: %q", got)
	}
}

func TestIndependentCursors(t *testing.T) {
	src := newFakeSource("a\n")
	h := NewHub(10 * time.Millisecond)
	early := &fakeSub{}
	if err := h.Attach("x", src, early); err != nil {
		t.Fatalf("attach early: %v", err)
	}
	defer h.Detach("x", early)

	src.append("b\n")
	waitFor(t, 2*time.Second, "early catch-up", func() bool {
		return early.text() == "a\nb\n"
	})

	// A late joiner gets the whole history again from scratch.
	late := &fakeSub{}
	if err := h.Attach("x", src, late); err != nil {
		t.Fatalf("attach late: %v", err)
	}
	defer h.Detach("x", late)
	if got := late.text(); got != "a\nb\n" {
		t.Fatalf("late replay mismatch: %q", got)
	}

	src.append("c\n")
	waitFor(t, 2*time.Second, "both caught up", func() bool {
		return early.text() == "a\nb\nc\n" && late.text() == "a\nb\nc\n"
	})
}

func TestFailedSendDropsSubscriber(t *testing.T) {
	src := newFakeSource("a\n")
	h := NewHub(10 * time.Millisecond)
	good := &fakeSub{}
	bad := &fakeSub{}
	if err := h.Attach("x", src, good); err != nil {
		t.Fatalf("attach good: %v", err)
	}
	defer h.Detach("x", good)
	if err := h.Attach("x", src, bad); err != nil {
		t.Fatalf("attach bad: %v", err)
	}
	bad.setFail(true)

	src.append("b\n")
	waitFor(t, 2*time.Second, "bad subscriber dropped", func() bool {
		return h.Subscribers("x") == 1
	})
	waitFor(t, 2*time.Second, "good subscriber fed", func() bool {
		return good.text() == "a\nb\n"
	})
}

func TestLastDetachTerminatesBroadcaster(t *testing.T) {
	src := newFakeSource("a\n")
	h := NewHub(10 * time.Millisecond)
	sub := &fakeSub{}
	if err := h.Attach("x", src, sub); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if !h.Active("x") {
		t.Fatalf("expected active broadcaster")
	}
	h.Detach("x", sub)
	waitFor(t, 2*time.Second, "broadcaster termination", func() bool {
		return !h.Active("x")
	})
}

func TestSourceDeathTerminatesBroadcaster(t *testing.T) {
	src := newFakeSource("a\n")
	h := NewHub(10 * time.Millisecond)
	sub := &fakeSub{}
	if err := h.Attach("x", src, sub); err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer h.Detach("x", sub)
	src.die()
	waitFor(t, 2*time.Second, "termination on source death", func() bool {
		return !h.Active("x")
	})
	// The replayed history stays with the subscriber.
	if got := sub.text(); got != "a\n" {
		t.Fatalf("unexpected text after death: %q", got)
	}
}

func TestReattachAfterTerminationGetsFreshBroadcaster(t *testing.T) {
	src := newFakeSource("a\n")
	h := NewHub(10 * time.Millisecond)
	sub := &fakeSub{}
	if err := h.Attach("x", src, sub); err != nil {
		t.Fatalf("attach: %v", err)
	}
	h.Detach("x", sub)
	waitFor(t, 2*time.Second, "termination", func() bool { return !h.Active("x") })

	again := &fakeSub{}
	if err := h.Attach("x", src, again); err != nil {
		t.Fatalf("reattach: %v", err)
	}
	defer h.Detach("x", again)
	// Full replay again; the fresh broadcaster has no memory of the first.
	if got := again.text(); got != "a\n" {
		t.Fatalf("reattach replay mismatch: %q", got)
	}
	if !h.Active("x") {
		t.Fatalf("expected fresh broadcaster to be active")
	}
}

func TestAttachFailingReplayReturnsError(t *testing.T) {
	src := newFakeSource("a\n")
	h := NewHub(10 * time.Millisecond)
	bad := &fakeSub{fail: true}
	if err := h.Attach("x", src, bad); err == nil {
		t.Fatalf("expected replay failure")
	}
	if h.Subscribers("x") != 0 {
		t.Fatalf("failed attach must not register a cursor")
	}
}

func TestAttachEmptyHistorySendsNothing(t *testing.T) {
	src := newFakeSource()
	h := NewHub(10 * time.Millisecond)
	sub := &fakeSub{}
	if err := h.Attach("x", src, sub); err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer h.Detach("x", sub)
	if got := sub.text(); got != "" {
		t.Fatalf("expected no replay for empty history, got %q", got)
	}
	src.append("first\n")
	waitFor(t, 2*time.Second, "first delta", func() bool {
		return sub.text() == "first\n"
	})
}
