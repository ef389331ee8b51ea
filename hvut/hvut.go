/*
Package hvut computes the Heavy Vehicle Use Tax reported on IRS Form 2290.

PURPOSE:
  Given the taxable gross weight of each highway motor vehicle and the month
  it was first used in the tax period, returns the tax due per vehicle and
  for the whole return.

RATE SCHEDULE:
  Category  Taxable gross weight (lbs)   Annual tax
  A         55,000                       $100
  B..U      55,001 - 75,000              $100 + $22 per 1,000 lbs over 55,000
  V         over 75,000                  $550
  W         suspended (low mileage)      $0

  Vehicles under 55,000 lbs are not taxable. Logging vehicles pay 75% of the
  regular rate.

PARTIAL PERIOD:
  The tax period runs July 1 - June 30. A vehicle first used after July owes
  annual * monthsRemaining / 12, rounded to cents.

SUSPENDED VEHICLES:
  Vehicles expected to travel 5,000 miles or less in the period (7,500 for
  agricultural vehicles) owe nothing and are reported in category W.

SEE ALSO:
  - generic/period.go: TaxPeriod and MonthsRemaining
  - ucr/ucr.go: Sibling fee calculator
*/
package hvut

import (
	"fmt"
	"strings"
	"time"

	"github.com/haulfile/tax-engine/generic"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	MinTaxableWeight = 55000
	MaxBracketWeight = 75000

	SuspendedMileageLimit    = 5000
	AgriculturalMileageLimit = 7500

	CategorySuspended = "W"
)

var (
	baseTax        = decimal.NewFromInt(100)
	perThousandLbs = decimal.NewFromInt(22)
	maxTax         = decimal.NewFromInt(550)
	loggingFactor  = decimal.RequireFromString("0.75")
	twelve         = decimal.NewFromInt(12)
)

// =============================================================================
// TYPES
// =============================================================================

// Vehicle is one line of Schedule 1.
type Vehicle struct {
	VIN                string
	TaxableGrossWeight int // pounds
	Logging            bool
	Agricultural       bool
	ExpectedMiles      *int // nil when not claiming suspension
}

// Return is a Form 2290 for one tax period and first-use month.
type Return struct {
	Period    generic.TaxPeriod
	FirstUsed time.Time
	Vehicles  []Vehicle
}

// VehicleTax is the computed tax for one vehicle.
type VehicleTax struct {
	VIN       string
	Category  string // "" when below the taxable weight
	AnnualTax decimal.Decimal
	Months    int
	TaxDue    decimal.Decimal
	Logging   bool
	Suspended bool
}

// Result is the computed return.
type Result struct {
	Period   generic.TaxPeriod
	Months   int
	DueDate  time.Time
	Vehicles []VehicleTax
	TotalDue decimal.Decimal
}

// =============================================================================
// CALCULATION
// =============================================================================

// Calculate validates the return and computes tax for each vehicle.
// The first invalid vehicle fails the whole return.
func Calculate(ret Return) (*Result, error) {
	months, err := ret.Period.MonthsRemaining(ret.FirstUsed)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Period:   ret.Period,
		Months:   months,
		DueDate:  ret.Period.DueDate(ret.FirstUsed),
		Vehicles: make([]VehicleTax, 0, len(ret.Vehicles)),
		TotalDue: decimal.Zero,
	}

	seen := make(map[string]int, len(ret.Vehicles))
	for i, v := range ret.Vehicles {
		vin, err := NormalizeVIN(v.VIN)
		if err != nil {
			return nil, &generic.InputError{Field: "vehicles.vin", Index: i, Reason: err.Error()}
		}
		if prev, dup := seen[vin]; dup {
			return nil, &generic.InputError{Field: "vehicles.vin", Index: i,
				Reason: fmt.Sprintf("duplicate of vehicle %d", prev)}
		}
		seen[vin] = i

		vt, err := vehicleTax(v, months)
		if err != nil {
			return nil, fmt.Errorf("vehicle %d: %w", i, err)
		}
		vt.VIN = vin
		res.Vehicles = append(res.Vehicles, vt)
		res.TotalDue = res.TotalDue.Add(vt.TaxDue)
	}
	return res, nil
}

func vehicleTax(v Vehicle, months int) (VehicleTax, error) {
	if v.TaxableGrossWeight <= 0 {
		return VehicleTax{}, fmt.Errorf("%w: %d lbs", generic.ErrInvalidWeight, v.TaxableGrossWeight)
	}
	vt := VehicleTax{Months: months, Logging: v.Logging, AnnualTax: decimal.Zero, TaxDue: decimal.Zero}

	if v.ExpectedMiles != nil && *v.ExpectedMiles < 0 {
		return VehicleTax{}, &generic.InputError{Field: "vehicles.expected_miles", Index: -1, Reason: "must not be negative"}
	}

	// Vehicles under the taxable weight are never reported as suspended.
	category, annual := Category(v.TaxableGrossWeight)
	if category == "" {
		return vt, nil
	}
	if v.ExpectedMiles != nil && *v.ExpectedMiles <= mileageLimit(v) {
		vt.Category = CategorySuspended
		vt.Suspended = true
		return vt, nil
	}
	vt.Category = category
	if v.Logging {
		annual = annual.Mul(loggingFactor)
	}
	vt.AnnualTax = annual
	vt.TaxDue = Prorate(annual, months)
	return vt, nil
}

func mileageLimit(v Vehicle) int {
	if v.Agricultural {
		return AgriculturalMileageLimit
	}
	return SuspendedMileageLimit
}

// Category returns the weight category letter and the regular annual tax.
// Weights under 55,000 lbs return ("", 0).
func Category(weight int) (string, decimal.Decimal) {
	switch {
	case weight < MinTaxableWeight:
		return "", decimal.Zero
	case weight > MaxBracketWeight:
		return "V", maxTax
	}
	// A = exactly 55,000; each further started 1,000 lbs moves up one letter.
	steps := (weight - MinTaxableWeight + 999) / 1000
	letter := string(rune('A' + steps))
	return letter, baseTax.Add(perThousandLbs.Mul(decimal.NewFromInt(int64(steps))))
}

// Prorate scales an annual amount to the months remaining, rounded to cents.
func Prorate(annual decimal.Decimal, months int) decimal.Decimal {
	if months >= 12 {
		return generic.RoundCents(annual)
	}
	return generic.RoundCents(annual.Mul(decimal.NewFromInt(int64(months))).Div(twelve))
}

// NormalizeVIN upper-cases and checks a 17 character vehicle identification
// number. I, O and Q never appear in a VIN.
func NormalizeVIN(raw string) (string, error) {
	vin := strings.ToUpper(strings.TrimSpace(raw))
	if len(vin) != 17 {
		return "", fmt.Errorf("VIN must be 17 characters, got %d", len(vin))
	}
	for _, r := range vin {
		switch {
		case r == 'I' || r == 'O' || r == 'Q':
			return "", fmt.Errorf("VIN contains invalid letter %q", r)
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
		default:
			return "", fmt.Errorf("VIN contains invalid character %q", r)
		}
	}
	return vin, nil
}
