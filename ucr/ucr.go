// Package ucr computes the annual Unified Carrier Registration fee.
//
// The fee depends only on the registration year and the number of
// commercial motor vehicles the carrier operates. Brokers, freight
// forwarders and leasing companies that operate no vehicles pay the
// bracket 1 fee.
package ucr

import (
	"fmt"

	"github.com/haulfile/tax-engine/generic"
	"github.com/shopspring/decimal"
)

// Bracket is one fleet-size band. MaxUnits < 0 means unbounded.
type Bracket struct {
	Number   int
	MinUnits int
	MaxUnits int
	Fee      decimal.Decimal
}

func (b Bracket) Contains(units int) bool {
	return units >= b.MinUnits && (b.MaxUnits < 0 || units <= b.MaxUnits)
}

func (b Bracket) Label() string {
	if b.MaxUnits < 0 {
		return fmt.Sprintf("%d+", b.MinUnits)
	}
	return fmt.Sprintf("%d-%d", b.MinUnits, b.MaxUnits)
}

// Schedule is the fee table for one registration year.
type Schedule struct {
	Year     int
	Brackets []Bracket
}

// Validate checks that brackets start at zero, are contiguous and end
// unbounded.
func (s Schedule) Validate() error {
	if len(s.Brackets) == 0 {
		return &generic.InputError{Field: "brackets", Index: -1, Reason: "schedule has no brackets"}
	}
	next := 0
	for i, b := range s.Brackets {
		if b.MinUnits != next {
			return &generic.InputError{Field: "brackets.min_units", Index: i,
				Reason: fmt.Sprintf("expected %d, got %d", next, b.MinUnits)}
		}
		if b.Fee.IsNegative() {
			return &generic.InputError{Field: "brackets.fee", Index: i, Reason: "must not be negative"}
		}
		last := i == len(s.Brackets)-1
		if b.MaxUnits < 0 {
			if !last {
				return &generic.InputError{Field: "brackets.max_units", Index: i, Reason: "only the last bracket may be unbounded"}
			}
			continue
		}
		if b.MaxUnits < b.MinUnits {
			return &generic.InputError{Field: "brackets.max_units", Index: i, Reason: "below min_units"}
		}
		if last {
			return &generic.InputError{Field: "brackets.max_units", Index: i, Reason: "last bracket must be unbounded"}
		}
		next = b.MaxUnits + 1
	}
	return nil
}

// BracketFor returns the bracket covering a fleet size.
func (s Schedule) BracketFor(units int) (Bracket, error) {
	if units < 0 {
		return Bracket{}, &generic.InputError{Field: "power_units", Index: -1, Reason: "must not be negative"}
	}
	for _, b := range s.Brackets {
		if b.Contains(units) {
			return b, nil
		}
	}
	return Bracket{}, fmt.Errorf("ucr: no bracket for %d units in %d schedule", units, s.Year)
}

func brackets(fees ...string) []Bracket {
	bounds := [][2]int{{0, 2}, {3, 5}, {6, 20}, {21, 100}, {101, 1000}, {1001, -1}}
	out := make([]Bracket, len(bounds))
	for i, b := range bounds {
		out[i] = Bracket{Number: i + 1, MinUnits: b[0], MaxUnits: b[1], Fee: decimal.RequireFromString(fees[i])}
	}
	return out
}

// BuiltinSchedule returns the published fee schedule for a year.
func BuiltinSchedule(year int) (Schedule, error) {
	switch year {
	case 2024:
		return Schedule{Year: 2024, Brackets: brackets("37", "111", "221", "769", "3670", "35836")}, nil
	case 2025:
		return Schedule{Year: 2025, Brackets: brackets("46", "138", "276", "963", "4592", "44836")}, nil
	}
	return Schedule{}, fmt.Errorf("%w: UCR %d", generic.ErrScheduleNotFound, year)
}

// =============================================================================
// CALCULATION
// =============================================================================

// Registration describes the registrant.
type Registration struct {
	Year       int
	PowerUnits int
	// BrokerOnly marks brokers, freight forwarders and leasing companies
	// that operate no commercial motor vehicles.
	BrokerOnly bool
}

type Result struct {
	Year       int
	PowerUnits int
	Bracket    int
	Range      string
	Fee        decimal.Decimal
	BrokerOnly bool
}

// Calculate looks up the fee in the given schedule.
func Calculate(s Schedule, reg Registration) (*Result, error) {
	if reg.Year != 0 && reg.Year != s.Year {
		return nil, fmt.Errorf("%w: registration year %d does not match schedule %d",
			generic.ErrInvalidPeriod, reg.Year, s.Year)
	}
	units := reg.PowerUnits
	if reg.BrokerOnly {
		if units < 0 {
			return nil, &generic.InputError{Field: "power_units", Index: -1, Reason: "must not be negative"}
		}
		units = 0
	}
	b, err := s.BracketFor(units)
	if err != nil {
		return nil, err
	}
	return &Result{
		Year:       s.Year,
		PowerUnits: reg.PowerUnits,
		Bracket:    b.Number,
		Range:      b.Label(),
		Fee:        b.Fee,
		BrokerOnly: reg.BrokerOnly,
	}, nil
}

// CalculateBuiltin uses the built-in schedule for reg.Year.
func CalculateBuiltin(reg Registration) (*Result, error) {
	s, err := BuiltinSchedule(reg.Year)
	if err != nil {
		return nil, err
	}
	return Calculate(s, reg)
}
