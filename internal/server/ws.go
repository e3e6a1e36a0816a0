package server

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origin policy matches the permissive CORS config.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsSubscriber adapts one WebSocket connection to broadcast.Subscriber.
// gorilla/websocket allows a single concurrent writer, so pushes from the
// broadcaster and any local writes share a mutex.
type wsSubscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSubscriber) Send(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// handleAttach upgrades the request and attaches the connection as a
// subscriber to the console's broadcaster: full history replay first,
// then live deltas. Inbound text frames go to the console's stdin.
// Closing the socket (or a failed push) detaches the subscriber; the
// console keeps running and capturing either way.
func (r *Router) handleAttach(c *gin.Context) {
	id := c.Param("id")
	live := r.reg.GetLive(id)
	if live == nil {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "console not live: " + id})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	remote := conn.RemoteAddr().String()
	slog.Info("subscriber attached", "console", id, "client", remote)

	sub := &wsSubscriber{conn: conn}
	if err := r.hub.Attach(id, live, sub); err != nil {
		slog.Warn("attach replay failed", "console", id, "client", remote, "err", err)
		_ = conn.Close()
		return
	}
	defer func() {
		r.hub.Detach(id, sub)
		_ = conn.Close()
		slog.Info("subscriber detached", "console", id, "client", remote)
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		live.Write(string(msg))
	}
}
