// Package store loads converted tables into PostgreSQL and keeps a history
// of imported files so a re-run skips exports that are already loaded.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/nlexport/internal/table"
)

// HistoryTable records one row per imported file.
const HistoryTable = "nlexport_imports"

// DB is the subset of *pgxpool.Pool the loader uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Loader writes tables and import history through db.
type Loader struct {
	db DB
}

func NewLoader(db DB) *Loader {
	return &Loader{db: db}
}

// Import is one history row.
type Import struct {
	ID       uuid.UUID
	File     string
	Digest   string
	Target   string
	Table    string
	Rows     int
	LoadedAt time.Time
}

// EnsureHistory creates the history table when missing.
func (l *Loader) EnsureHistory(ctx context.Context) error {
	sql := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id uuid PRIMARY KEY,
	file text NOT NULL,
	digest text NOT NULL,
	target text NOT NULL,
	table_name text NOT NULL,
	rows integer NOT NULL,
	loaded_at timestamptz NOT NULL DEFAULT now()
)`, quoteIdentifier(HistoryTable))
	if _, err := l.db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create import history: %w", err)
	}
	return nil
}

// Loaded reports whether a file with this digest was imported before.
func (l *Loader) Loaded(ctx context.Context, digest string) (bool, error) {
	var exists bool
	sql := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE digest = $1)", quoteIdentifier(HistoryTable))
	if err := l.db.QueryRow(ctx, sql, digest).Scan(&exists); err != nil {
		return false, fmt.Errorf("check import history: %w", err)
	}
	return exists, nil
}

// Record writes a history row. A zero ID or LoadedAt is filled in.
func (l *Loader) Record(ctx context.Context, imp Import) error {
	if imp.ID == uuid.Nil {
		imp.ID = uuid.New()
	}
	if imp.LoadedAt.IsZero() {
		imp.LoadedAt = time.Now()
	}
	sql := fmt.Sprintf(
		"INSERT INTO %s (id, file, digest, target, table_name, rows, loaded_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		quoteIdentifier(HistoryTable),
	)
	if _, err := l.db.Exec(ctx, sql, imp.ID, imp.File, imp.Digest, imp.Target, imp.Table, imp.Rows, imp.LoadedAt); err != nil {
		return fmt.Errorf("record import %s: %w", imp.File, err)
	}
	return nil
}

// Load copies t into the table name, creating it with one text column per
// header when absent and adding columns a wider table brings. Absent cells
// become NULL. The whole load is one transaction.
func (l *Loader) Load(ctx context.Context, name string, t *table.Table) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, errors.New("load: table name is required")
	}
	if t.Width() == 0 {
		return 0, nil
	}

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	for _, stmt := range schemaStatements(name, t.Headers) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("prepare table %s: %w", name, err)
		}
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{name}, t.Headers, pgx.CopyFromRows(copyRows(t)))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return n, nil
}

// LoadRun loads t into name and records one history row per imported
// file, stamping each with name.
func (l *Loader) LoadRun(ctx context.Context, name string, t *table.Table, imports []Import) (int64, error) {
	if err := l.EnsureHistory(ctx); err != nil {
		return 0, err
	}
	n, err := l.Load(ctx, name, t)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	for _, imp := range imports {
		imp.Table = name
		imp.LoadedAt = now
		if err := l.Record(ctx, imp); err != nil {
			return n, err
		}
	}
	return n, nil
}

// schemaStatements creates the table and adds any missing columns.
func schemaStatements(name string, headers []string) []string {
	cols := make([]string, len(headers))
	for i, h := range headers {
		cols[i] = quoteIdentifier(h) + " text"
	}
	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdentifier(name), strings.Join(cols, ", ")),
	}
	for _, h := range headers {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s text",
			quoteIdentifier(name), quoteIdentifier(h)))
	}
	return stmts
}

func copyRows(t *table.Table) [][]any {
	rows := make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		vals := make([]any, len(row))
		for j, c := range row {
			if v, ok := c.Value(); ok {
				vals[j] = v
			}
		}
		rows[i] = vals
	}
	return rows
}

// quoteIdentifier quotes a PostgreSQL identifier, doubling embedded quotes.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
