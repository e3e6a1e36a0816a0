package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS launch_records (
	id TEXT PRIMARY KEY,
	work_dir TEXT NOT NULL,
	command JSONB NOT NULL,
	autostart BOOLEAN NOT NULL DEFAULT FALSE
)`

// PostgresStore persists launch records in PostgreSQL. Same whole-set
// contract as the SQLite store.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(config Config) (*PostgresStore, error) {
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == 0 {
		config.Port = 5432
	}
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.Username, config.Password, config.Database, config.SSLMode)
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(25)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(5)
	}
	if config.ConnMaxAge > 0 {
		db.SetConnMaxLifetime(config.ConnMaxAge)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ensure postgres schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) Load(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, work_dir, command, autostart FROM launch_records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load launch records: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Record
	for rows.Next() {
		var rec Record
		var cmdJSON []byte
		if err := rows.Scan(&rec.ID, &rec.WorkDir, &cmdJSON, &rec.Autostart); err != nil {
			return nil, fmt.Errorf("scan launch record: %w", err)
		}
		if err := json.Unmarshal(cmdJSON, &rec.Command); err != nil {
			return nil, fmt.Errorf("decode command for %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Save(ctx context.Context, recs []Record) error {
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
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO launch_records (id, work_dir, command, autostart) VALUES ($1, $2, $3, $4)`,
			rec.ID, rec.WorkDir, cmdJSON, rec.Autostart); err != nil {
			return fmt.Errorf("insert launch record %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM launch_records WHERE id = $1`, id)
	return err
}
