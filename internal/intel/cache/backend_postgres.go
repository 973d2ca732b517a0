package cache

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"forensics/pkg/platform/sentinel"
)

// Migrations holds the goose migrations for the cache_entries table.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// DB is the subset of *pgxpool.Pool the backend needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresBackend persists entries in the cache_entries table. Rows are
// upserted on write and never deleted.
type PostgresBackend struct {
	db DB
}

func NewPostgresBackend(db DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

const (
	selectEntrySQL = `SELECT data, written_at FROM cache_entries WHERE key = $1`
	upsertEntrySQL = `INSERT INTO cache_entries (key, data, written_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, written_at = EXCLUDED.written_at`
)

func (b *PostgresBackend) Read(ctx context.Context, key string) (Entry, error) {
	entry := Entry{Key: key}
	var data []byte
	if err := b.db.QueryRow(ctx, selectEntrySQL, key).Scan(&data, &entry.WrittenAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, sentinel.ErrNotFound
		}
		return Entry{}, fmt.Errorf("find cache entry %s: %w", key, err)
	}
	entry.Data = data
	return entry, nil
}

func (b *PostgresBackend) Write(ctx context.Context, entry Entry) error {
	if _, err := b.db.Exec(ctx, upsertEntrySQL, entry.Key, []byte(entry.Data), entry.WrittenAt); err != nil {
		return fmt.Errorf("save cache entry %s: %w", entry.Key, err)
	}
	return nil
}
