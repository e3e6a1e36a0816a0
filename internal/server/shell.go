package server

import (
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// handleShell bridges a WebSocket to a fresh pty-backed shell. This is
// the capture loop's structural twin without persistence or fan-out: one
// connection, one shell, raw bytes both ways, everything torn down on
// disconnect.
func (r *Router) handleShell(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	remote := conn.RemoteAddr().String()
	slog.Info("shell connected", "client", remote)

	shell := r.opts.ShellCommand
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	cmd := exec.Command(shell)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("[server] failed to start shell: "+err.Error()+"\n"))
		_ = conn.Close()
		return
	}

	var writeMu sync.Mutex
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 4096)
		for {
			n, err := ptmx.Read(buf)
			if n > 0 {
				writeMu.Lock()
				werr := conn.WriteMessage(websocket.TextMessage, buf[:n])
				writeMu.Unlock()
				if werr != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if _, err := ptmx.Write(msg); err != nil {
			break
		}
	}

	// Kill the shell first so a blocked pty read unblocks, then reap.
	if cmd.Process != nil {
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	_ = ptmx.Close()
	<-done
	_ = cmd.Wait()
	_ = conn.Close()
	slog.Info("shell disconnected", "client", remote)
}
