/*
Package sqlite provides a SQLite-backed implementation of generic.Store.

PURPOSE:
  Persists rate table definitions and completed filings for a single
  server instance. store/postgres implements the same interface for
  shared deployments; only the SQL dialect differs.

KEY TABLES:
  rate_tables: Versioned rate table documents (upsert bumps version)
  filings:     Append-only record of calculations

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on the filings table
  - No DELETE statements on the filings table outside Reset
  - A duplicate filing id fails with generic.ErrFilingExists

INDEXES:
  - idx_filings_carrier: ListFilings by carrier (newest first)
  - idx_filings_kind:    ListFilings by calculator

CONCURRENCY:
  Uses sync.RWMutex around the handle. SQLite allows one writer at a time
  and the mutex keeps "database is locked" errors away from callers.

WAL MODE:
  Opened with WAL so readers don't block the writer.

USAGE:
  store, err := sqlite.New("./data/tax.db")
  if err != nil {
      return err
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for tests
  - store/postgres/postgres.go: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/haulfile/tax-engine/generic"
	"github.com/mattn/go-sqlite3"
)

// Timestamps are stored as fixed-width text so they sort correctly.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements generic.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ generic.Store = (*Store)(nil)

// New opens (creating if needed) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rate_tables (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		quarter TEXT NOT NULL DEFAULT '',
		config_json TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Filings (append-only)
	CREATE TABLE IF NOT EXISTS filings (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL CHECK (kind IN ('ifta', 'hvut', 'ucr')),
		carrier_id TEXT NOT NULL DEFAULT '',
		period TEXT NOT NULL DEFAULT '',
		rate_table_id TEXT NOT NULL DEFAULT '',
		request_json TEXT NOT NULL,
		result_json TEXT NOT NULL,
		total_due TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_filings_carrier
		ON filings(carrier_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_filings_kind
		ON filings(kind, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RATE TABLE STORE
// =============================================================================

// SaveRateTable inserts a table or replaces it, bumping the version.
func (s *Store) SaveRateTable(ctx context.Context, r generic.RateTableRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO rate_tables (id, name, quarter, config_json, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			quarter = excluded.quarter,
			config_json = excluded.config_json,
			version = rate_tables.version + 1,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx, query,
		string(r.ID), r.Name, r.Quarter, r.ConfigJSON, now, now,
	)
	return err
}

// GetRateTable retrieves a table by ID.
func (s *Store) GetRateTable(ctx context.Context, id generic.RateTableID) (*generic.RateTableRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, quarter, config_json, version, created_at, updated_at FROM rate_tables WHERE id = ?",
		string(id),
	)
	r, err := scanRateTable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrRateTableNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRateTables returns all tables ordered by name.
func (s *Store) ListRateTables(ctx context.Context) ([]generic.RateTableRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, quarter, config_json, version, created_at, updated_at FROM rate_tables ORDER BY name, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := []generic.RateTableRecord{}
	for rows.Next() {
		r, err := scanRateTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, r)
	}
	return tables, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRateTable(row scanner) (generic.RateTableRecord, error) {
	var r generic.RateTableRecord
	var id, createdAt, updatedAt string
	if err := row.Scan(&id, &r.Name, &r.Quarter, &r.ConfigJSON, &r.Version, &createdAt, &updatedAt); err != nil {
		return r, err
	}
	r.ID = generic.RateTableID(id)
	r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	r.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return r, nil
}

// =============================================================================
// FILING STORE
// =============================================================================

// SaveFiling appends a filing.
func (s *Store) SaveFiling(ctx context.Context, f generic.Filing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO filings (id, kind, carrier_id, period, rate_table_id,
		                     request_json, result_json, total_due, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		string(f.ID), string(f.Kind), string(f.CarrierID), f.Period, string(f.RateTableID),
		f.RequestJSON, f.ResultJSON, f.TotalDue, f.CreatedAt.UTC().Format(timeLayout),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: %s", generic.ErrFilingExists, f.ID)
	}
	return err
}

const filingColumns = `id, kind, carrier_id, period, rate_table_id, request_json, result_json, total_due, created_at`

// GetFiling retrieves a filing by ID.
func (s *Store) GetFiling(ctx context.Context, id generic.FilingID) (*generic.Filing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+filingColumns+" FROM filings WHERE id = ?", string(id))
	f, err := scanFiling(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrFilingNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFilings returns filings newest first. Ties on created_at fall back
// to insertion order.
func (s *Store) ListFilings(ctx context.Context, filter generic.FilingFilter) ([]generic.Filing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any
	if filter.CarrierID != "" {
		where = append(where, "carrier_id = ?")
		args = append(args, string(filter.CarrierID))
	}
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(filter.Kind))
	}

	query := "SELECT " + filingColumns + " FROM filings"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var filings []generic.Filing
	for rows.Next() {
		f, err := scanFiling(rows)
		if err != nil {
			return nil, err
		}
		filings = append(filings, f)
	}
	return filings, rows.Err()
}

func scanFiling(row scanner) (generic.Filing, error) {
	var f generic.Filing
	var id, kind, carrier, tableID, createdAt string
	err := row.Scan(&id, &kind, &carrier, &f.Period, &tableID,
		&f.RequestJSON, &f.ResultJSON, &f.TotalDue, &createdAt)
	if err != nil {
		return f, err
	}
	f.ID = generic.FilingID(id)
	f.Kind = generic.FilingKind(kind)
	f.CarrierID = generic.CarrierID(carrier)
	f.RateTableID = generic.RateTableID(tableID)
	f.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return f, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"filings", "rate_tables"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
