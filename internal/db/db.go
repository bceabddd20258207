// Package db opens the SQLite journal database and applies its migrations.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migration is one embedded schema file. A table it declares with a row cap is
// trimmed to its newest rows every time the database is opened.
type migration struct {
	file  string
	table string
	keep  int
}

var schema = []migration{
	{file: "001_journal.sql", table: "journal", keep: 10000},
	{file: "002_reconcile_runs.sql", table: "reconcile_runs", keep: 500},
}

// Connection settings passed through the modernc DSN, applied to every connection.
const dsnPragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

func New(dbPath string, logger *slog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single writer keeps WAL checkpoints and busy waits predictable.
	conn.SetMaxOpenConns(1)

	d := &DB{conn: conn, logger: logger}
	ctx := context.Background()
	if err := d.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate %s: %w", dbPath, err)
	}
	for _, m := range schema {
		if m.keep <= 0 {
			continue
		}
		if err := d.prune(ctx, m.table, m.keep); err != nil && logger != nil {
			logger.Warn("failed to trim table", "table", m.table, "error", err)
		}
	}
	return d, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) Conn() *sql.DB {
	return d.conn
}

// migrate applies every schema file not yet recorded in _migrations. Each file
// and its ledger row commit together.
func (d *DB) migrate(ctx context.Context) error {
	if _, err := d.conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (
		name TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("create migration ledger: %w", err)
	}

	applied, err := d.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, m := range schema {
		if applied[m.file] {
			continue
		}
		body, err := migrationsFS.ReadFile("migrations/" + m.file)
		if err != nil {
			return fmt.Errorf("read %s: %w", m.file, err)
		}

		tx, err := d.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply %s: %w", m.file, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO _migrations (name) VALUES (?)`, m.file); err != nil {
			tx.Rollback()
			return fmt.Errorf("record %s: %w", m.file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", m.file, err)
		}

		if d.logger != nil {
			d.logger.Info("applied migration", "name", m.file)
		}
	}
	return nil
}

func (d *DB) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT name FROM _migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// prune keeps only the newest keep rows of table. Table names come from schema.
func (d *DB) prune(ctx context.Context, table string, keep int) error {
	_, err := d.conn.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE id NOT IN (SELECT id FROM %s ORDER BY created_at DESC, rowid DESC LIMIT ?)`,
		table, table), keep)
	return err
}
