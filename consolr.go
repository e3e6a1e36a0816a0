package consolr

import (
	"net/http"
	"time"

	"github.com/loykin/consolr/internal/broadcast"
	"github.com/loykin/consolr/internal/console"
	"github.com/loykin/consolr/internal/registry"
	"github.com/loykin/consolr/internal/server"
	"github.com/loykin/consolr/internal/store"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/consolr/internal/metrics"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Console = console.Console

type ConsoleState = console.State

type ConsoleOptions = console.Options

type Record = store.Record

type Store = store.Store

type StoreConfig = store.Config

// Registry is the embeddable entry point: it owns persistence, spawn
// dedup, and graceful shutdown of managed consoles.
type Registry = registry.Registry

type RegistryOptions = registry.Options

var (
	ErrUnknownIdentity   = registry.ErrUnknownIdentity
	ErrDuplicateIdentity = registry.ErrDuplicateIdentity
)

// NewStore opens a launch-record store from config.
func NewStore(cfg StoreConfig) (Store, error) { return store.New(cfg) }

// NewRegistry loads records from st and autostarts the flagged ones.
func NewRegistry(st Store, opts RegistryOptions) *Registry { return registry.New(st, opts) }

// Hub fans console output out to attached subscribers.
type Hub = broadcast.Hub

func NewHub(pollInterval time.Duration) *Hub { return broadcast.NewHub(pollInterval) }

// ServerOptions configures the HTTP/WebSocket surface.
type ServerOptions = server.Options

// NewRouter returns an http.Handler serving the console API, suitable
// for mounting in an existing server.
func NewRouter(reg *Registry, hub *Hub, opts ServerOptions) http.Handler {
	return server.NewRouter(reg, hub, opts).Handler()
}

// NewServer starts a standalone API server on addr.
func NewServer(addr string, reg *Registry, hub *Hub, opts ServerOptions) (*http.Server, error) {
	return server.NewServer(addr, reg, hub, opts)
}

// RegisterMetrics registers all collectors with r (pass
// prometheus.DefaultRegisterer for the default registry).
func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
