/*
store.go - Persistence interfaces for rate tables and filings

PURPOSE:
  Defines the interface between the calculators and the database. The
  calculators themselves never touch storage; the API layer persists the
  rate tables it loads and the filings it produces.

KEY INTERFACES:
  RateTableStore: Versioned rate table definitions (upsert bumps version)
  FilingStore:    Append-only record of completed calculations

APPEND-ONLY CONTRACT:
  Filings are never updated or deleted. A corrected return is a new filing
  that references the same carrier and period.

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory for testing
  - store/sqlite/sqlite.go:  Embedded SQLite
  - store/postgres/postgres.go: PostgreSQL via pgx

SEE ALSO:
  - api/handlers.go: Writes filings when a request asks to save
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// RECORDS
// =============================================================================

// RateTableRecord is a stored rate table definition. ConfigJSON is the
// factory.RateTableJSON document the table was built from.
type RateTableRecord struct {
	ID         RateTableID
	Name       string
	Quarter    string
	ConfigJSON string
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Filing is one persisted calculation.
type Filing struct {
	ID          FilingID
	Kind        FilingKind
	CarrierID   CarrierID
	Period      string // "2025Q1" for IFTA, "2025-2026" for HVUT, "2025" for UCR
	RateTableID RateTableID
	RequestJSON string
	ResultJSON  string
	TotalDue    string // decimal string, exact
	CreatedAt   time.Time
}

// FilingFilter narrows ListFilings. Zero values match everything.
type FilingFilter struct {
	CarrierID CarrierID
	Kind      FilingKind
	Limit     int
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

type RateTableStore interface {
	// SaveRateTable inserts or replaces a table, incrementing its version.
	SaveRateTable(ctx context.Context, r RateTableRecord) error

	// GetRateTable returns ErrRateTableNotFound if the id is unknown.
	GetRateTable(ctx context.Context, id RateTableID) (*RateTableRecord, error)

	ListRateTables(ctx context.Context) ([]RateTableRecord, error)
}

type FilingStore interface {
	// SaveFiling appends a filing. IDs must be unique.
	SaveFiling(ctx context.Context, f Filing) error

	// GetFiling returns ErrFilingNotFound if the id is unknown.
	GetFiling(ctx context.Context, id FilingID) (*Filing, error)

	// ListFilings returns filings newest first.
	ListFilings(ctx context.Context, filter FilingFilter) ([]Filing, error)
}

// Store is everything the API needs from persistence.
type Store interface {
	RateTableStore
	FilingStore
	Close() error
}
