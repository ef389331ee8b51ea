package ifta

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/haulfile/tax-engine/generic"
	"github.com/shopspring/decimal"
)

// =============================================================================
// RAW INPUT - As received from HTTP/CLI, fields not yet trusted
// =============================================================================

// RawInput is the wire shape of a calculation request. Numeric fields are
// untyped so that strings and garbage reach validation instead of being
// silently zeroed by the decoder.
type RawInput struct {
	TripEntries   []RawTripEntry    `json:"tripEntries"`
	FuelPurchases []RawFuelPurchase `json:"fuelPurchases"`
}

type RawTripEntry struct {
	State string `json:"state"`
	Miles any    `json:"miles"`
}

type RawFuelPurchase struct {
	State   string `json:"state"`
	Gallons any    `json:"gallons"`
	Amount  any    `json:"amount,omitempty"`
}

// Input is a validated request.
type Input struct {
	Trips []TripLeg
	Fuel  []FuelPurchase
}

// Parse validates every field and converts the request into typed values.
// It stops at the first invalid field and returns an *generic.InputError;
// no partially parsed input is ever returned.
func Parse(raw RawInput) (Input, error) {
	in := Input{
		Trips: make([]TripLeg, 0, len(raw.TripEntries)),
		Fuel:  make([]FuelPurchase, 0, len(raw.FuelPurchases)),
	}

	for i, t := range raw.TripEntries {
		code, err := parseCode(t.State, "tripEntries.state", i)
		if err != nil {
			return Input{}, err
		}
		miles, err := parseNonNegative(t.Miles, "tripEntries.miles", i, true)
		if err != nil {
			return Input{}, err
		}
		in.Trips = append(in.Trips, TripLeg{Jurisdiction: code, Miles: miles})
	}

	for i, f := range raw.FuelPurchases {
		code, err := parseCode(f.State, "fuelPurchases.state", i)
		if err != nil {
			return Input{}, err
		}
		gallons, err := parseNonNegative(f.Gallons, "fuelPurchases.gallons", i, true)
		if err != nil {
			return Input{}, err
		}
		p := FuelPurchase{Jurisdiction: code, Gallons: gallons}
		if f.Amount != nil {
			amount, err := parseNonNegative(f.Amount, "fuelPurchases.amount", i, false)
			if err != nil {
				return Input{}, err
			}
			p.Amount = &amount
		}
		in.Fuel = append(in.Fuel, p)
	}

	return in, nil
}

// Validate checks typed input built directly by Go callers. Codes are
// checked in normalized form, so "ca" is accepted as "CA".
func (in Input) Validate() error {
	for i, t := range in.Trips {
		if err := validateCode(generic.NormalizeJurisdiction(string(t.Jurisdiction)), "tripEntries.state", i); err != nil {
			return err
		}
		if err := checkQuantity(t.Miles, "tripEntries.miles", i); err != nil {
			return err
		}
	}
	for i, f := range in.Fuel {
		if err := validateCode(generic.NormalizeJurisdiction(string(f.Jurisdiction)), "fuelPurchases.state", i); err != nil {
			return err
		}
		if err := checkQuantity(f.Gallons, "fuelPurchases.gallons", i); err != nil {
			return err
		}
		if f.Amount != nil {
			if err := checkQuantity(*f.Amount, "fuelPurchases.amount", i); err != nil {
				return err
			}
		}
	}
	return nil
}

// normalized returns a copy with every code normalized. The caller's slices
// are left untouched.
func (in Input) normalized() Input {
	out := Input{
		Trips: make([]TripLeg, len(in.Trips)),
		Fuel:  make([]FuelPurchase, len(in.Fuel)),
	}
	for i, t := range in.Trips {
		t.Jurisdiction = generic.NormalizeJurisdiction(string(t.Jurisdiction))
		out.Trips[i] = t
	}
	for i, f := range in.Fuel {
		f.Jurisdiction = generic.NormalizeJurisdiction(string(f.Jurisdiction))
		out.Fuel[i] = f
	}
	return out
}

func checkQuantity(d decimal.Decimal, field string, index int) error {
	if err := generic.CheckDecimalRange(d); err != nil {
		return &generic.InputError{Field: field, Index: index, Reason: err.Error()}
	}
	if d.IsNegative() {
		return &generic.InputError{Field: field, Index: index, Reason: "must not be negative"}
	}
	return nil
}

func parseCode(raw, field string, index int) (generic.JurisdictionCode, error) {
	code := generic.NormalizeJurisdiction(raw)
	if err := validateCode(code, field, index); err != nil {
		return "", err
	}
	return code, nil
}

// Codes are postal abbreviations: two or three ASCII letters.
func validateCode(code generic.JurisdictionCode, field string, index int) error {
	if code == "" {
		return &generic.InputError{Field: field, Index: index, Reason: "jurisdiction code is required"}
	}
	if len(code) < 2 || len(code) > 3 {
		return &generic.InputError{Field: field, Index: index, Reason: fmt.Sprintf("%q is not a jurisdiction code", code)}
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return &generic.InputError{Field: field, Index: index, Reason: fmt.Sprintf("%q is not a jurisdiction code", code)}
		}
	}
	return nil
}

// ParseDecimal converts a decoded JSON value into a decimal. JSON numbers
// (float64 or json.Number) and numeric strings are accepted; values outside
// generic.CheckDecimalRange are rejected.
func ParseDecimal(v any) (decimal.Decimal, error) {
	d, err := toDecimal(v)
	if err != nil {
		return decimal.Zero, err
	}
	if err := generic.CheckDecimalRange(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, fmt.Errorf("value is required")
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return decimal.Zero, fmt.Errorf("value is required")
		}
		return decimal.NewFromString(s)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, fmt.Errorf("value is not a finite number")
		}
		return decimal.NewFromFloat(n), nil
	case float32:
		return toDecimal(float64(n))
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case decimal.Decimal:
		return n, nil
	default:
		return decimal.Zero, fmt.Errorf("expected a number, got %T", v)
	}
}

func parseNonNegative(v any, field string, index int, required bool) (decimal.Decimal, error) {
	d, err := ParseDecimal(v)
	if err != nil {
		reason := err.Error()
		if !required && v == nil {
			return decimal.Zero, nil
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) != "" && !errors.Is(err, generic.ErrValueOutOfRange) {
			reason = fmt.Sprintf("%q is not a number", v)
		}
		return decimal.Zero, &generic.InputError{Field: field, Index: index, Reason: reason}
	}
	if d.IsNegative() {
		return decimal.Zero, &generic.InputError{Field: field, Index: index, Reason: "must not be negative"}
	}
	return d, nil
}
