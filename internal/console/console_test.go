package console

import (
	"strings"
	"testing"
	"time"
)

func waitUntil(t *testing.T, d time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartCapturesOutput(t *testing.T) {
	c, err := Start("t-echo", t.TempDir(), []string{"sh", "-c", "echo hello; sleep 2"}, Options{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = c.Stop() }()
	waitUntil(t, 3*time.Second, "output capture", func() bool {
		return strings.Contains(c.HistoryText(), "hello")
	})
	if !c.Alive() {
		t.Fatalf("expected console to still be alive")
	}
	if c.State() != StateRunning {
		t.Fatalf("unexpected state: %s", c.State())
	}
}

func TestStartSpawnFailure(t *testing.T) {
	_, err := Start("t-bad", t.TempDir(), []string{"/nonexistent/definitely-not-a-binary"}, Options{})
	if err == nil {
		t.Fatalf("expected spawn error")
	}
}

func TestStartEmptyCommand(t *testing.T) {
	if _, err := Start("t-empty", t.TempDir(), nil, Options{}); err == nil {
		t.Fatalf("expected error for empty command")
	}
}

func TestWriteReachesChild(t *testing.T) {
	// cat echoes stdin back; the pty echoes it too, either way the text
	// must land in the history.
	c, err := Start("t-cat", t.TempDir(), []string{"cat"}, Options{GracePeriod: time.Second, PollInterval: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = c.Stop() }()
	if !c.Write("ping") {
		t.Fatalf("write not delivered")
	}
	waitUntil(t, 3*time.Second, "echoed input", func() bool {
		return strings.Contains(c.HistoryText(), "ping")
	})
}

func TestGracefulStop(t *testing.T) {
	script := `while read line; do if [ "$line" = "stop" ]; then exit 0; fi; done`
	c, err := Start("t-grace", t.TempDir(), []string{"sh", "-c", script},
		Options{GracePeriod: 5 * time.Second, PollInterval: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	start := time.Now()
	if err := c.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Fatalf("graceful stop took too long: %v", elapsed)
	}
	waitUntil(t, 2*time.Second, "console death", func() bool { return !c.Alive() })
	if c.State() != StateStopped {
		t.Fatalf("unexpected state after stop: %s", c.State())
	}
}

func TestStopEscalatesToKill(t *testing.T) {
	// The child ignores the stop line entirely, so Stop must fall through
	// to the kill after the grace period.
	c, err := Start("t-kill", t.TempDir(), []string{"sh", "-c", "sleep 60"},
		Options{GracePeriod: 300 * time.Millisecond, PollInterval: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	waitUntil(t, 3*time.Second, "forced kill", func() bool { return !c.Alive() })
}

func TestStopIdempotent(t *testing.T) {
	c, err := Start("t-idem", t.TempDir(), []string{"sh", "-c", "exit 0"}, Options{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitUntil(t, 3*time.Second, "self exit", func() bool { return !c.Alive() })
	if err := c.Stop(); err != nil {
		t.Fatalf("stop on dead console: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestWriteAfterExit(t *testing.T) {
	c, err := Start("t-dead-write", t.TempDir(), []string{"sh", "-c", "exit 0"}, Options{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitUntil(t, 3*time.Second, "self exit", func() bool { return !c.Alive() })
	if c.Write("anything") {
		t.Fatalf("write to a dead console must report undelivered")
	}
}

func TestTrailingPartialLineFlushed(t *testing.T) {
	c, err := Start("t-partial", t.TempDir(), []string{"sh", "-c", "printf no-newline-here"}, Options{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitUntil(t, 3*time.Second, "partial flush", func() bool {
		return strings.Contains(c.HistoryText(), "no-newline-here")
	})
}

func TestHistoryBounded(t *testing.T) {
	c, err := Start("t-bound", t.TempDir(), []string{"sh", "-c", "i=0; while [ $i -lt 50 ]; do echo line-$i; i=$((i+1)); done; sleep 1"},
		Options{HistoryLines: 10, GracePeriod: time.Second, PollInterval: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = c.Stop() }()
	waitUntil(t, 3*time.Second, "last line", func() bool {
		return strings.Contains(c.HistoryText(), "line-49")
	})
	lines := c.History()
	if len(lines) != 10 {
		t.Fatalf("expected 10 retained lines, got %d", len(lines))
	}
	if strings.Contains(c.HistoryText(), "line-0\r") {
		t.Fatalf("oldest line should have been evicted")
	}
}
