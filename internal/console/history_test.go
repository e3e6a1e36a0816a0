package console

import (
	"fmt"
	"testing"
)

func TestHistoryAppendAndSnapshot(t *testing.T) {
	h := NewHistory(10)
	h.Append("a\n")
	h.Append("b\n")
	lines := h.Lines()
	if len(lines) != 2 || lines[0] != "a\n" || lines[1] != "b\n" {
		t.Fatalf("unexpected lines: %q", lines)
	}
	// Snapshot must be a copy.
	lines[0] = "mutated"
	if got := h.Lines()[0]; got != "a\n" {
		t.Fatalf("snapshot aliased ring storage: %q", got)
	}
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Append(fmt.Sprintf("line-%d\n", i))
	}
	lines := h.Lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	want := []string{"line-2\n", "line-3\n", "line-4\n"}
	for i, w := range want {
		if lines[i] != w {
			t.Fatalf("line %d: got %q want %q", i, lines[i], w)
		}
	}
}

func TestHistoryText(t *testing.T) {
	h := NewHistory(10)
	h.Append("one\n")
	h.Append("two\n")
	h.Append("tail")
	if got := h.Text(); got != "one\ntwo\ntail" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestHistoryDefaultCapacity(t *testing.T) {
	h := NewHistory(0)
	for i := 0; i < DefaultHistoryLines+7; i++ {
		h.Append("x\n")
	}
	if got := len(h.Lines()); got != DefaultHistoryLines {
		t.Fatalf("expected capacity %d, got %d", DefaultHistoryLines, got)
	}
}
