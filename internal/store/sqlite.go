package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS launch_records (
	id TEXT PRIMARY KEY,
	work_dir TEXT NOT NULL,
	command TEXT NOT NULL,
	autostart INTEGER NOT NULL DEFAULT 0
)`

// SQLiteStore persists launch records in a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at config.Path.
// An empty path selects an in-memory database.
func NewSQLiteStore(config Config) (*SQLiteStore, error) {
	path := config.Path
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(1) // SQLite works best with a single connection
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxAge > 0 {
		db.SetConnMaxLifetime(config.ConnMaxAge)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ensure sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Load(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, work_dir, command, autostart FROM launch_records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load launch records: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Record
	for rows.Next() {
		var rec Record
		var cmdJSON string
		var auto int
		if err := rows.Scan(&rec.ID, &rec.WorkDir, &cmdJSON, &auto); err != nil {
			return nil, fmt.Errorf("scan launch record: %w", err)
		}
		if err := json.Unmarshal([]byte(cmdJSON), &rec.Command); err != nil {
			return nil, fmt.Errorf("decode command for %s: %w", rec.ID, err)
		}
		rec.Autostart = auto != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Save rewrites the whole record set in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, recs []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM launch_records`); err != nil {
		return fmt.Errorf("clear launch records: %w", err)
	}
	for _, rec := range recs {
		cmdJSON, err := json.Marshal(rec.Command)
		if err != nil {
			return fmt.Errorf("encode command for %s: %w", rec.ID, err)
		}
		auto := 0
		if rec.Autostart {
			auto = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO launch_records (id, work_dir, command, autostart) VALUES (?, ?, ?, ?)`,
			rec.ID, rec.WorkDir, string(cmdJSON), auto); err != nil {
			return fmt.Errorf("insert launch record %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM launch_records WHERE id = ?`, id)
	return err
}
