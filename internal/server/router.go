// Package server exposes the registry, broadcaster hub, file explorer,
// and shell bridge over HTTP and WebSocket.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/loykin/consolr/internal/broadcast"
	"github.com/loykin/consolr/internal/metrics"
	"github.com/loykin/consolr/internal/registry"
	"github.com/loykin/consolr/internal/store"
)

// Options configures a Router.
type Options struct {
	BasePath     string
	FilesRoot    string // file-explorer root directory ("" disables)
	ShellCommand string // shell bridge command ("" = $SHELL, then /bin/sh)
	Metrics      bool   // mount /metrics
}

// Router provides embeddable HTTP handlers for the console API.
type Router struct {
	reg  *registry.Registry
	hub  *broadcast.Hub
	opts Options
}

func NewRouter(reg *registry.Registry, hub *broadcast.Hub, opts Options) *Router {
	opts.BasePath = sanitizeBase(opts.BasePath)
	return &Router{reg: reg, hub: hub, opts: opts}
}

// Handler returns a gin-powered http.Handler that can be mounted in any
// server or mux. CORS is wide open, as the original panel expects to be
// driven from a browser frontend on another origin.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	g.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"*"},
		AllowWebSockets: true,
		MaxAge:          12 * time.Hour,
	}))
	group := g.Group(r.opts.BasePath)
	group.GET("/healthz", r.handleHealth)
	group.POST("/consoles", r.handleCreate)
	group.GET("/consoles", r.handleList)
	group.GET("/consoles/:id", r.handleGet)
	group.POST("/consoles/:id/start", r.handleStart)
	group.POST("/consoles/:id/stop", r.handleStop)
	group.DELETE("/consoles/:id", r.handleRemove)
	group.GET("/consoles/:id/logs", r.handleLogs)
	group.POST("/consoles/:id/input", r.handleInput)
	group.GET("/consoles/:id/attach", r.handleAttach)
	group.GET("/shell", r.handleShell)
	if r.opts.FilesRoot != "" {
		group.GET("/files", r.handleFilesList)
		group.GET("/file", r.handleFileRead)
		group.POST("/file", r.handleFileWrite)
		group.POST("/mkdir", r.handleMkdir)
		group.DELETE("/file", r.handleFileDelete)
	}
	if r.opts.Metrics {
		group.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr string, reg *registry.Registry, hub *broadcast.Hub, opts Options) (*http.Server, error) {
	r := NewRouter(reg, hub, opts)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type createReq struct {
	ID        string   `json:"id"`
	WorkDir   string   `json:"work_dir"`
	Command   []string `json:"command"`
	Autostart *bool    `json:"autostart"`
}

type consoleResp struct {
	store.Record
	Live  bool   `json:"live"`
	State string `json:"state,omitempty"`
}

func (r *Router) handleHealth(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"status": "running"})
}

func (r *Router) handleCreate(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if !isSafeName(req.ID) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid id: allowed [A-Za-z0-9._-] and no '..' or path separators"})
		return
	}
	if len(req.Command) == 0 {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "command required"})
		return
	}
	if !isSafeAbsPath(req.WorkDir) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid work_dir: must be absolute path without traversal"})
		return
	}
	autostart := true
	if req.Autostart != nil {
		autostart = *req.Autostart
	}
	if err := r.reg.Create(req.ID, req.WorkDir, req.Command, autostart); err != nil {
		writeRegistryErr(c, err)
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleList(c *gin.Context) {
	recs := r.reg.List()
	out := make([]consoleResp, 0, len(recs))
	for _, rec := range recs {
		cr := consoleResp{Record: rec}
		if live := r.reg.GetLive(rec.ID); live != nil && live.Alive() {
			cr.Live = true
			cr.State = string(live.State())
		}
		out = append(out, cr)
	}
	writeJSON(c, http.StatusOK, out)
}

func (r *Router) handleGet(c *gin.Context) {
	id := c.Param("id")
	rec, ok := r.reg.Get(id)
	if !ok {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "unknown identity: " + id})
		return
	}
	cr := consoleResp{Record: rec}
	if live := r.reg.GetLive(id); live != nil {
		cr.Live = live.Alive()
		cr.State = string(live.State())
	}
	writeJSON(c, http.StatusOK, cr)
}

func (r *Router) handleStart(c *gin.Context) {
	if err := r.reg.Start(c.Param("id")); err != nil {
		writeRegistryErr(c, err)
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStop(c *gin.Context) {
	if err := r.reg.Stop(c.Param("id")); err != nil {
		writeRegistryErr(c, err)
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleRemove(c *gin.Context) {
	if err := r.reg.Remove(c.Param("id")); err != nil {
		writeRegistryErr(c, err)
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleLogs(c *gin.Context) {
	id := c.Param("id")
	live := r.reg.GetLive(id)
	if live == nil {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "console not live: " + id})
		return
	}
	if c.Query("text") == "1" {
		writeJSON(c, http.StatusOK, gin.H{"text": live.HistoryText()})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"lines": live.History()})
}

func (r *Router) handleInput(c *gin.Context) {
	var req struct {
		Input string `json:"input"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	id := c.Param("id")
	live := r.reg.GetLive(id)
	if live == nil {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "console not live: " + id})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"delivered": live.Write(req.Input)})
}

func writeRegistryErr(c *gin.Context, err error) {
	var spawnErr *registry.SpawnError
	switch {
	case errors.Is(err, registry.ErrUnknownIdentity):
		writeJSON(c, http.StatusNotFound, errorResp{Error: err.Error()})
	case errors.Is(err, registry.ErrDuplicateIdentity):
		writeJSON(c, http.StatusConflict, errorResp{Error: err.Error()})
	case errors.As(err, &spawnErr):
		writeJSON(c, http.StatusBadGateway, errorResp{Error: err.Error()})
	default:
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
	}
}
