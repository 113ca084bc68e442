// Package sqldb stores stories in PostgreSQL (lib/pq) or SQLite (modernc.org/sqlite) through database/sql.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect names, matching the database/sql driver names.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

type dialect struct {
	name   string
	schema []string
}

var dialects = map[string]dialect{
	Postgres: {
		name: Postgres,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS stories (
				id         TEXT PRIMARY KEY,
				title      TEXT NOT NULL,
				text       TEXT NOT NULL,
				text_hash  TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_stories_text_hash ON stories (text_hash)`,
			`CREATE INDEX IF NOT EXISTS idx_stories_created_at ON stories (created_at DESC)`,
		},
	},
	SQLite: {
		name: SQLite,
		schema: []string{
			// created_at holds unix milliseconds assigned by SQLite at insert time.
			`CREATE TABLE IF NOT EXISTS stories (
				id         TEXT PRIMARY KEY,
				title      TEXT NOT NULL,
				text       TEXT NOT NULL,
				text_hash  TEXT NOT NULL,
				created_at INTEGER NOT NULL DEFAULT (CAST(ROUND((julianday('now') - 2440587.5) * 86400000) AS INTEGER))
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_stories_text_hash ON stories (text_hash)`,
			`CREATE INDEX IF NOT EXISTS idx_stories_created_at ON stories (created_at DESC)`,
		},
	},
}

// SQLiteDSN enables WAL and a busy timeout on every pooled connection.
func SQLiteDSN(path string) string {
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// rebind rewrites ? placeholders into $n for postgres.
func (d dialect) rebind(query string) string {
	if d.name != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// StoryRepository implements repository.StoryRepository on top of *sql.DB.
type StoryRepository struct {
	DB      *sql.DB
	dialect dialect
}

// New prepares the schema and returns a repository for the given dialect.
func New(ctx context.Context, db *sql.DB, dialectName string) (*StoryRepository, error) {
	d, ok := dialects[dialectName]
	if !ok {
		return nil, fmt.Errorf("sqldb: unknown dialect %q", dialectName)
	}

	r := &StoryRepository{DB: db, dialect: d}
	if err := r.migrate(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *StoryRepository) migrate(ctx context.Context) error {
	for i, stmt := range r.dialect.schema {
		if _, err := r.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqldb: migration step %d failed: %w", i+1, err)
		}
	}
	return nil
}

func (r *StoryRepository) Close(_ context.Context) error {
	return r.DB.Close()
}

// dbTime scans both postgres timestamps and SQLite unix milliseconds.
type dbTime struct {
	time.Time
}

func (t *dbTime) Scan(v any) error {
	switch x := v.(type) {
	case time.Time:
		t.Time = x.UTC()
	case int64:
		t.Time = time.UnixMilli(x).UTC()
	case nil:
		t.Time = time.Time{}
	default:
		return fmt.Errorf("sqldb: cannot scan %T into timestamp", v)
	}
	return nil
}
