package console

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/loykin/consolr/internal/metrics"
)

// State describes a console's lifecycle. Stopped is terminal: a console
// instance is never restarted, a new one is spawned for the same identity.
type State string

const (
	StateNotStarted State = "not_started"
	StateRunning    State = "running"
	StateStopped    State = "stopped"
)

// Options tunes per-console behavior. Zero values select the defaults.
type Options struct {
	HistoryLines int           // ring capacity (default DefaultHistoryLines)
	GracePeriod  time.Duration // wait after the graceful stop line (default 30s)
	PollInterval time.Duration // liveness poll while stopping (default 500ms)
	StopCommand  string        // graceful shutdown line (default "stop")
}

func (o Options) withDefaults() Options {
	if o.HistoryLines <= 0 {
		o.HistoryLines = DefaultHistoryLines
	}
	if o.GracePeriod <= 0 {
		o.GracePeriod = 30 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	if o.StopCommand == "" {
		o.StopCommand = "stop"
	}
	return o
}

// Console owns one pty-backed child process and the bounded history of its
// output. Capture runs for the whole process lifetime regardless of
// subscriber presence; the history mutex is the only state shared with
// readers.
type Console struct {
	id      string
	workDir string
	command []string
	opts    Options

	history *History

	mu     sync.Mutex
	ptmx   *os.File
	cmd    *exec.Cmd
	state  State
	exited chan struct{} // closed by the monitor once Wait returns
}

// Start creates workDir if absent, spawns command on a fresh pty with
// workDir as its working directory, and begins capturing output. On any
// failure nothing is left running and the error is returned.
func Start(id, workDir string, command []string, opts Options) (*Console, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("console %s: empty command", id)
	}
	opts = opts.withDefaults()
	if workDir != "" {
		if err := os.MkdirAll(workDir, 0o750); err != nil {
			return nil, fmt.Errorf("console %s: create workdir: %w", id, err)
		}
	}
	// #nosec G204 -- command comes from an operator-supplied launch record
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = workDir
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("console %s: spawn: %w", id, err)
	}

	c := &Console{
		id:      id,
		workDir: workDir,
		command: append([]string(nil), command...),
		opts:    opts,
		history: NewHistory(opts.HistoryLines),
		ptmx:    ptmx,
		cmd:     cmd,
		state:   StateRunning,
		exited:  make(chan struct{}),
	}
	go c.capture()
	go c.monitor()
	metrics.IncStart(id)
	metrics.AddLiveConsoles(1)
	slog.Info("console started", "console", id, "pid", cmd.Process.Pid, "workdir", workDir)
	return c, nil
}

func (c *Console) ID() string        { return c.id }
func (c *Console) WorkDir() string   { return c.workDir }
func (c *Console) Command() []string { return append([]string(nil), c.command...) }

func (c *Console) State() State {
	c.mu.Lock()
	s := c.state
	c.mu.Unlock()
	return s
}

// capture reads the pty until the stream ends, reassembling line
// boundaries across partial reads. Each complete line (terminator kept)
// is appended to the history. A trailing partial line is flushed exactly
// once on stream end; capture then owns closing the pty fd. Read errors,
// including the EIO a Linux pty returns after the child exits, are
// stream end, never fatal to anything beyond this console.
func (c *Console) capture() {
	buf := make([]byte, 4096)
	var partial []byte
	for {
		n, err := c.ptmx.Read(buf)
		if n > 0 {
			partial = append(partial, buf[:n]...)
			for {
				i := bytes.IndexByte(partial, '\n')
				if i < 0 {
					break
				}
				c.history.Append(string(partial[:i+1]))
				metrics.IncHistoryLines(c.id)
				partial = partial[i+1:]
			}
		}
		if err != nil {
			break
		}
	}
	if len(partial) > 0 {
		c.history.Append(string(partial))
		metrics.IncHistoryLines(c.id)
	}
	_ = c.ptmx.Close()
	slog.Debug("capture loop ended", "console", c.id)
}

// monitor reaps the child and records the terminal state.
func (c *Console) monitor() {
	err := c.cmd.Wait()
	c.mu.Lock()
	c.state = StateStopped
	close(c.exited)
	c.mu.Unlock()
	metrics.IncStop(c.id)
	metrics.AddLiveConsoles(-1)
	if err != nil {
		slog.Info("console exited", "console", c.id, "err", err)
	} else {
		slog.Info("console exited", "console", c.id)
	}
}

// Alive reports whether the child is still running. Probe failures count
// as not alive; this never panics or returns an error.
func (c *Console) Alive() bool {
	select {
	case <-c.exited:
		return false
	default:
	}
	c.mu.Lock()
	cmd := c.cmd
	c.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return false
	}
	return syscall.Kill(cmd.Process.Pid, 0) == nil
}

// Write forwards input to the child's stdin, appending a newline when the
// input lacks one. It reports whether the write was delivered; failures
// are logged and swallowed, a later Alive call reflects reality.
func (c *Console) Write(input string) bool {
	if !c.Alive() {
		return false
	}
	if !strings.HasSuffix(input, "\n") {
		input += "\n"
	}
	c.mu.Lock()
	ptmx := c.ptmx
	c.mu.Unlock()
	if _, err := ptmx.WriteString(input); err != nil {
		slog.Warn("console write failed", "console", c.id, "err", err)
		return false
	}
	return true
}

// History returns a snapshot copy of the captured lines, oldest first.
func (c *Console) History() []string { return c.history.Lines() }

// HistoryText returns the captured lines joined into one string.
func (c *Console) HistoryText() string { return c.history.Text() }

// HistoryLines implements broadcast.Source.
func (c *Console) HistoryLines() []string { return c.history.Lines() }

// Stop shuts the child down: send the graceful stop line, poll liveness
// for the grace period, then escalate to SIGKILL on the process group.
// Idempotent; on return the process is either gone or an unrecoverable
// kill was attempted.
func (c *Console) Stop() error {
	if !c.Alive() {
		return nil
	}
	c.Write(c.opts.StopCommand)
	deadline := time.NewTimer(c.opts.GracePeriod)
	defer deadline.Stop()
	tick := time.NewTicker(c.opts.PollInterval)
	defer tick.Stop()
	for {
		select {
		case <-c.exited:
			return nil
		case <-deadline.C:
			return c.kill()
		case <-tick.C:
			if !c.Alive() {
				return nil
			}
		}
	}
}

// kill force-terminates the child. pty.Start runs the child as a session
// leader, so the negative pid reaches its whole group.
func (c *Console) kill() error {
	c.mu.Lock()
	cmd := c.cmd
	c.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid
	slog.Warn("grace period elapsed, killing", "console", c.id, "pid", pid)
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		_ = cmd.Process.Kill()
	}
	select {
	case <-c.exited:
	case <-time.After(2 * time.Second):
		// monitor has not reaped yet; best-effort
	}
	return nil
}
