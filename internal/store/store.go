package store

import (
	"context"
	"time"
)

// Record is the persisted launch metadata for one console identity.
// ID is unique across the whole set; the set is the source of truth
// across daemon restarts.
type Record struct {
	ID        string   `json:"id"`
	WorkDir   string   `json:"work_dir"`
	Command   []string `json:"command"`
	Autostart bool     `json:"autostart"`
}

// Store persists the launch-record set. Save is whole-set and atomic:
// every mutation rewrites the complete mapping in one transaction, there
// is no partial-update contract. Load must round-trip Save exactly,
// including command argument order.
type Store interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, recs []Record) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Config selects and parameterizes a Store implementation.
type Config struct {
	Type string `json:"type" mapstructure:"type"` // "sqlite", "postgres", "memory"

	// SQLite specific
	Path string `json:"path,omitempty" mapstructure:"path"`

	// PostgreSQL specific
	Host     string `json:"host,omitempty" mapstructure:"host"`
	Port     int    `json:"port,omitempty" mapstructure:"port"`
	Database string `json:"database,omitempty" mapstructure:"database"`
	Username string `json:"username,omitempty" mapstructure:"username"`
	Password string `json:"password,omitempty" mapstructure:"password"`
	SSLMode  string `json:"ssl_mode,omitempty" mapstructure:"ssl_mode"`

	// Connection pooling
	MaxOpenConns int           `json:"max_open_conns,omitempty" mapstructure:"max_open_conns"`
	MaxIdleConns int           `json:"max_idle_conns,omitempty" mapstructure:"max_idle_conns"`
	ConnMaxAge   time.Duration `json:"conn_max_age,omitempty" mapstructure:"conn_max_age"`
}
