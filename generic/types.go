/*
Package generic provides the core tax-table engine primitives.

PURPOSE:
  This package contains domain-agnostic types shared by every tax
  calculator in the repository. Whether reconciling IFTA fuel tax,
  computing a Form 2290 heavy vehicle use tax or looking up a UCR fee,
  the same building blocks are used: exact decimal money, jurisdiction
  codes, immutable rate tables, reporting periods and storage interfaces.

KEY CONCEPTS IN THIS FILE (types.go):
  - RoundCents: The one rounding rule for currency results
  - JurisdictionCode: Normalized state/province postal abbreviation
  - FilingID / RateTableID: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so per-jurisdiction sums are exact
  2. Purity: Nothing in this package holds mutable process-wide state
  3. Type Safety: Strong typing for IDs and codes prevents mixing them up

USAGE:
  code := generic.NormalizeJurisdiction(" ca ") // "CA"
  due := generic.RoundCents(decimal.RequireFromString("504.1666")) // 504.17

SEE ALSO:
  - ratetable.go: Jurisdiction rate lookup
  - period.go: IFTA quarters and HVUT tax periods
  - store.go: Persistence interfaces
*/
package generic

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY
// =============================================================================

// Bounds for decimals accepted from requests and documents. Values outside
// them are rejected before any arithmetic: adding decimals with very
// different exponents rescales them to the smaller one.
const (
	MaxDecimalExponent = 18 // |exponent|
	MaxIntegerDigits   = 12 // magnitude below 1e12
)

// CheckDecimalRange reports an ErrValueOutOfRange error for decimals with an
// extreme exponent or too many integer digits. It only inspects the
// coefficient length and exponent, so it is cheap for any input.
func CheckDecimalRange(d decimal.Decimal) error {
	exp := int(d.Exponent())
	if exp > MaxDecimalExponent || exp < -MaxDecimalExponent {
		return fmt.Errorf("%w: exponent %d", ErrValueOutOfRange, exp)
	}
	// 2^128 has 39 digits; no accepted value needs more.
	if d.Coefficient().BitLen() > 128 {
		return fmt.Errorf("%w: too many digits", ErrValueOutOfRange)
	}
	if d.NumDigits()+exp > MaxIntegerDigits {
		return fmt.Errorf("%w: magnitude must be below 1e%d", ErrValueOutOfRange, MaxIntegerDigits)
	}
	return nil
}

// RoundCents rounds a currency value half-up to two decimal places.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type FilingID string
type RateTableID string
type CarrierID string

// JurisdictionCode is a state or province postal abbreviation ("CA", "ON").
// Always compare normalized codes.
type JurisdictionCode string

// NormalizeJurisdiction trims and upper-cases a raw code.
func NormalizeJurisdiction(raw string) JurisdictionCode {
	return JurisdictionCode(strings.ToUpper(strings.TrimSpace(raw)))
}

func (c JurisdictionCode) String() string { return string(c) }

// FilingKind identifies which calculator produced a filing.
type FilingKind string

const (
	FilingIFTA FilingKind = "ifta"
	FilingHVUT FilingKind = "hvut"
	FilingUCR  FilingKind = "ucr"
)

func (k FilingKind) Valid() bool {
	switch k {
	case FilingIFTA, FilingHVUT, FilingUCR:
		return true
	}
	return false
}
