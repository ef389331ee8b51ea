/*
ratetable.go - Jurisdiction rate lookup

PURPOSE:
  Answers "what is the per-gallon fuel tax rate in this jurisdiction?"
  A rate table is an immutable value: it is built once (from the built-in
  defaults, a JSON/YAML file or a stored record) and passed explicitly to
  the calculators. There is no process-wide rate state.

UNKNOWN JURISDICTIONS:
  What an unrecognized code means is a configuration choice made when the
  table is built:

    UnknownAsZero  rate 0, the jurisdiction is reported as unrated
    UnknownReject  lookup fails with *UnknownJurisdictionError

  UnknownAsZero is the default and reproduces the historical behavior of
  treating unknown codes as untaxed.

CONCURRENCY:
  StaticRateTable is never mutated after construction, so lookups need no
  synchronization.

SEE ALSO:
  - factory/ratetable.go: Builds tables from JSON/YAML
  - ifta/rates.go: Built-in default table
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// UnknownPolicy decides how a table treats codes it has no rate for.
type UnknownPolicy string

const (
	UnknownAsZero UnknownPolicy = "unknown_as_zero"
	UnknownReject UnknownPolicy = "reject"
)

// ParseUnknownPolicy accepts the config spellings ("zero", "reject") as well
// as the canonical names. Empty means UnknownAsZero.
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch s {
	case "", "zero", string(UnknownAsZero):
		return UnknownAsZero, nil
	case string(UnknownReject):
		return UnknownReject, nil
	}
	return "", &InputError{Field: "unknown_policy", Index: -1, Reason: "must be zero or reject, got " + s}
}

// RateTable looks up per-gallon tax rates by jurisdiction.
type RateTable interface {
	// ID identifies the table version used for a calculation.
	ID() RateTableID

	// RateFor returns the rate for a code. The bool reports whether the
	// code was known; with UnknownAsZero an unknown code yields (0, false, nil).
	RateFor(code JurisdictionCode) (decimal.Decimal, bool, error)
}

// StaticRateTable is an immutable in-memory RateTable.
type StaticRateTable struct {
	id      RateTableID
	name    string
	quarter string
	policy  UnknownPolicy
	rates   map[JurisdictionCode]decimal.Decimal
}

// NewStaticRateTable copies rates into a new table. Codes are normalized.
func NewStaticRateTable(id RateTableID, policy UnknownPolicy, rates map[JurisdictionCode]decimal.Decimal) *StaticRateTable {
	if policy == "" {
		policy = UnknownAsZero
	}
	copied := make(map[JurisdictionCode]decimal.Decimal, len(rates))
	for code, rate := range rates {
		copied[NormalizeJurisdiction(string(code))] = rate
	}
	return &StaticRateTable{id: id, policy: policy, rates: copied}
}

// WithMeta returns a copy carrying a display name and quarter label.
func (t *StaticRateTable) WithMeta(name, quarter string) *StaticRateTable {
	c := *t
	c.name = name
	c.quarter = quarter
	return &c
}

// WithPolicy returns a copy of the table using a different unknown policy.
// The rate map is shared; it is never written after construction.
func (t *StaticRateTable) WithPolicy(policy UnknownPolicy) *StaticRateTable {
	c := *t
	c.policy = policy
	return &c
}

func (t *StaticRateTable) ID() RateTableID { return t.id }
func (t *StaticRateTable) Name() string { return t.name }
func (t *StaticRateTable) Quarter() string { return t.quarter }
func (t *StaticRateTable) Policy() UnknownPolicy { return t.policy }
func (t *StaticRateTable) Len() int { return len(t.rates) }

func (t *StaticRateTable) RateFor(code JurisdictionCode) (decimal.Decimal, bool, error) {
	code = NormalizeJurisdiction(string(code))
	if rate, ok := t.rates[code]; ok {
		return rate, true, nil
	}
	if t.policy == UnknownReject {
		return decimal.Zero, false, &UnknownJurisdictionError{Code: code, TableID: t.id}
	}
	return decimal.Zero, false, nil
}

// Rates returns a copy of the rate map.
func (t *StaticRateTable) Rates() map[JurisdictionCode]decimal.Decimal {
	out := make(map[JurisdictionCode]decimal.Decimal, len(t.rates))
	for c, r := range t.rates {
		out[c] = r
	}
	return out
}
