package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresBackend stores session snapshots as JSONB rows, for shared
// workstation deployments where the workbench process may restart.
type PostgresBackend struct {
	db *sql.DB
}

const sessionSchema = `
CREATE TABLE IF NOT EXISTS workbench_sessions (
	id TEXT PRIMARY KEY,
	record JSONB NOT NULL,
	last_accessed TIMESTAMPTZ NOT NULL
)`

func NewPostgresBackend(ctx context.Context, databaseURL string) (*PostgresBackend, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sessionSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure sessions table: %w", err)
	}
	return &PostgresBackend{db: db}, nil
}

func NewPostgresBackendWithDB(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) Save(ctx context.Context, record Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}
	_, err = b.db.ExecContext(ctx, `
		INSERT INTO workbench_sessions (id, record, last_accessed)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET record = EXCLUDED.record, last_accessed = EXCLUDED.last_accessed
	`, record.ID, data, record.LastAccessed)
	if err != nil {
		return fmt.Errorf("save session record: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Get(ctx context.Context, id string) (Record, bool, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx, `SELECT record FROM workbench_sessions WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("lookup session record: %w", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, false, fmt.Errorf("unmarshal session record: %w", err)
	}
	return record, true, nil
}

func (b *PostgresBackend) Delete(ctx context.Context, id string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM workbench_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session record: %w", err)
	}
	return nil
}

func (b *PostgresBackend) ListAll(ctx context.Context) ([]Record, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT record FROM workbench_sessions ORDER BY last_accessed`)
	if err != nil {
		return nil, fmt.Errorf("list session records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan session record: %w", err)
		}
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list session records: %w", err)
	}
	return records, nil
}

func (b *PostgresBackend) Close() error {
	return b.db.Close()
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}
