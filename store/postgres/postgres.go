// Package postgres implements generic.Store on PostgreSQL through a pgx
// connection pool. The schema mirrors store/sqlite; filings carry a
// bigserial seq column so newest-first listing is stable within the same
// timestamp.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/haulfile/tax-engine/generic"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type Store struct {
	db *pgxpool.Pool
}

var _ generic.Store = (*Store)(nil)

// New connects to dsn and migrates the schema.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := NewStore(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return s, nil
}

// NewStore wraps an existing pool. The caller owns migration.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	s.db.Close()
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS rate_tables (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		quarter TEXT NOT NULL DEFAULT '',
		config_json JSONB NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS filings (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL CHECK (kind IN ('ifta', 'hvut', 'ucr')),
		carrier_id TEXT NOT NULL DEFAULT '',
		period TEXT NOT NULL DEFAULT '',
		rate_table_id TEXT NOT NULL DEFAULT '',
		request_json JSONB NOT NULL,
		result_json JSONB NOT NULL,
		total_due NUMERIC NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_filings_carrier ON filings(carrier_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_filings_kind ON filings(kind, created_at DESC)`,
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Reset truncates both tables (for tests).
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.db.Exec(ctx, "TRUNCATE TABLE filings, rate_tables")
	return err
}

// =============================================================================
// RATE TABLE STORE
// =============================================================================

func (s *Store) SaveRateTable(ctx context.Context, r generic.RateTableRecord) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(ctx, `
		INSERT INTO rate_tables (id, name, quarter, config_json, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 1, $5, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			quarter = EXCLUDED.quarter,
			config_json = EXCLUDED.config_json,
			version = rate_tables.version + 1,
			updated_at = EXCLUDED.updated_at`,
		string(r.ID), r.Name, r.Quarter, r.ConfigJSON, now,
	)
	return err
}

const rateTableColumns = `id, name, quarter, config_json::text, version, created_at, updated_at`

func (s *Store) GetRateTable(ctx context.Context, id generic.RateTableID) (*generic.RateTableRecord, error) {
	row := s.db.QueryRow(ctx, "SELECT "+rateTableColumns+" FROM rate_tables WHERE id = $1", string(id))
	r, err := scanRateTable(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrRateTableNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListRateTables(ctx context.Context) ([]generic.RateTableRecord, error) {
	rows, err := s.db.Query(ctx, "SELECT "+rateTableColumns+" FROM rate_tables ORDER BY name, id")
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

func scanRateTable(row pgx.Row) (generic.RateTableRecord, error) {
	var r generic.RateTableRecord
	var id string
	err := row.Scan(&id, &r.Name, &r.Quarter, &r.ConfigJSON, &r.Version, &r.CreatedAt, &r.UpdatedAt)
	r.ID = generic.RateTableID(id)
	return r, err
}

// =============================================================================
// FILING STORE
// =============================================================================

func (s *Store) SaveFiling(ctx context.Context, f generic.Filing) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO filings (id, kind, carrier_id, period, rate_table_id,
		                     request_json, result_json, total_due, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(f.ID), string(f.Kind), string(f.CarrierID), f.Period, string(f.RateTableID),
		f.RequestJSON, f.ResultJSON, f.TotalDue, f.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", generic.ErrFilingExists, f.ID)
	}
	return err
}

const filingColumns = `id, kind, carrier_id, period, rate_table_id,
	request_json::text, result_json::text, total_due::text, created_at`

func (s *Store) GetFiling(ctx context.Context, id generic.FilingID) (*generic.Filing, error) {
	row := s.db.QueryRow(ctx, "SELECT "+filingColumns+" FROM filings WHERE id = $1", string(id))
	f, err := scanFiling(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrFilingNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Store) ListFilings(ctx context.Context, filter generic.FilingFilter) ([]generic.Filing, error) {
	var where []string
	var args []any
	if filter.CarrierID != "" {
		args = append(args, string(filter.CarrierID))
		where = append(where, fmt.Sprintf("carrier_id = $%d", len(args)))
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}

	query := "SELECT " + filingColumns + " FROM filings"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, seq DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
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

func scanFiling(row pgx.Row) (generic.Filing, error) {
	var f generic.Filing
	var id, kind, carrier, tableID string
	err := row.Scan(&id, &kind, &carrier, &f.Period, &tableID,
		&f.RequestJSON, &f.ResultJSON, &f.TotalDue, &f.CreatedAt)
	f.ID = generic.FilingID(id)
	f.Kind = generic.FilingKind(kind)
	f.CarrierID = generic.CarrierID(carrier)
	f.RateTableID = generic.RateTableID(tableID)
	return f, err
}
