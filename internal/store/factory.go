package store

import "fmt"

// New creates a Store from config. An empty type selects SQLite.
func New(config Config) (Store, error) {
	switch config.Type {
	case "", "sqlite":
		return NewSQLiteStore(config)
	case "postgres", "postgresql":
		return NewPostgresStore(config)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}
