package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteAllowlist implements AllowlistStore using SQLite.
type SQLiteAllowlist struct {
	db  *sql.DB
	now func() time.Time
}

var _ AllowlistStore = (*SQLiteAllowlist)(nil)

// NewSQLiteAllowlist opens the database and runs migrations.
func NewSQLiteAllowlist(dsn string) (*SQLiteAllowlist, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteAllowlist{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteAllowlist) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS allowlist_domains (
			workspace_id TEXT NOT NULL,
			domain TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (workspace_id, domain)
		)`,
		`CREATE TABLE IF NOT EXISTS allowlist_workspaces (
			workspace_id TEXT PRIMARY KEY,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteAllowlist) Close() error {
	return s.db.Close()
}

// List returns the workspace's domains in the order they were learned.
func (s *SQLiteAllowlist) List(ctx context.Context, workspaceID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT domain FROM allowlist_domains WHERE workspace_id = ? ORDER BY created_at, rowid`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list allowlist: %w", err)
	}
	defer rows.Close()

	domains := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

// IsAllowed reports whether domainName was recorded for the workspace.
func (s *SQLiteAllowlist) IsAllowed(ctx context.Context, domainName, workspaceID string) (bool, error) {
	normalized := normalizeDomains([]string{domainName})
	if len(normalized) == 0 {
		return false, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM allowlist_domains WHERE workspace_id = ? AND domain = ?`,
		workspaceID, normalized[0]).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query allowlist: %w", err)
	}
	return n > 0, nil
}

// Record unions domains into the workspace set.
func (s *SQLiteAllowlist) Record(ctx context.Context, domains []string, workspaceID string) ([]string, error) {
	normalized := normalizeDomains(domains)
	if len(normalized) == 0 {
		return s.List(ctx, workspaceID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	for _, d := range normalized {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO allowlist_domains (workspace_id, domain, created_at) VALUES (?, ?, ?)`,
			workspaceID, d, now); err != nil {
			return nil, fmt.Errorf("failed to record domain %s: %w", d, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO allowlist_workspaces (workspace_id, updated_at) VALUES (?, ?)
		 ON CONFLICT(workspace_id) DO UPDATE SET updated_at = excluded.updated_at`,
		workspaceID, now); err != nil {
		return nil, fmt.Errorf("failed to touch workspace: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit allowlist: %w", err)
	}
	return s.List(ctx, workspaceID)
}

// Reset forgets every domain of the workspace.
func (s *SQLiteAllowlist) Reset(ctx context.Context, workspaceID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM allowlist_domains WHERE workspace_id = ?`, workspaceID); err != nil {
		return fmt.Errorf("failed to reset allowlist: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM allowlist_workspaces WHERE workspace_id = ?`, workspaceID); err != nil {
		return fmt.Errorf("failed to reset allowlist: %w", err)
	}
	return tx.Commit()
}
