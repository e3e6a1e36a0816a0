package console

import (
	"strings"
	"sync"
)

// DefaultHistoryLines is the default capacity of a console's output ring.
const DefaultHistoryLines = 5000

// History is a fixed-capacity ring of output lines. When a line is
// appended past capacity the oldest line is evicted. Append and Lines
// share one mutex; no I/O happens while it is held.
type History struct {
	mu    sync.Mutex
	lines []string
	head  int // index of the oldest line
	size  int
	cap   int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryLines
	}
	return &History{lines: make([]string, capacity), cap: capacity}
}

// Append adds one line (terminator included, if any) to the ring.
func (h *History) Append(line string) {
	h.mu.Lock()
	if h.size < h.cap {
		h.lines[(h.head+h.size)%h.cap] = line
		h.size++
	} else {
		h.lines[h.head] = line
		h.head = (h.head + 1) % h.cap
	}
	h.mu.Unlock()
}

// Len returns the current number of retained lines.
func (h *History) Len() int {
	h.mu.Lock()
	n := h.size
	h.mu.Unlock()
	return n
}

// Lines returns a point-in-time copy of the retained lines, oldest first.
func (h *History) Lines() []string {
	h.mu.Lock()
	out := make([]string, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.lines[(h.head+i)%h.cap]
	}
	h.mu.Unlock()
	return out
}

// Text returns the retained lines joined into a single string.
func (h *History) Text() string {
	return strings.Join(h.Lines(), "")
}
