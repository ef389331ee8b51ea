package ifta

import (
	"fmt"

	"github.com/haulfile/tax-engine/generic"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CALCULATOR - Per-jurisdiction net tax
// =============================================================================

// Calculator reconciles fuel tax against an injected rate table.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	Rates generic.RateTable
}

func NewCalculator(rates generic.RateTable) *Calculator {
	return &Calculator{Rates: rates}
}

// Calculate validates typed input and reconciles it.
func (c *Calculator) Calculate(trips []TripLeg, fuel []FuelPurchase) (*FleetSummary, error) {
	in := Input{Trips: trips, Fuel: fuel}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return c.reconcile(in.normalized())
}

// CalculateRaw parses untrusted input and reconciles it.
func (c *Calculator) CalculateRaw(raw RawInput) (*FleetSummary, error) {
	in, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return c.reconcile(in)
}

func (c *Calculator) reconcile(in Input) (*FleetSummary, error) {
	if c.Rates == nil {
		return nil, fmt.Errorf("ifta: calculator has no rate table")
	}

	agg := Aggregate(in.Trips, in.Fuel)

	results := make([]JurisdictionResult, 0, len(agg.Jurisdictions))
	for _, code := range agg.Jurisdictions {
		r, err := c.reconcileJurisdiction(code, agg)
		if err != nil {
			// Fail the whole calculation, never return a partial report.
			return nil, err
		}
		results = append(results, r)
	}

	return assemble(c.Rates.ID(), agg, results), nil
}

// reconcileJurisdiction computes one jurisdiction independently. Gallons are
// never moved between jurisdictions.
func (c *Calculator) reconcileJurisdiction(code generic.JurisdictionCode, agg Aggregation) (JurisdictionResult, error) {
	rate, known, err := c.Rates.RateFor(code)
	if err != nil {
		return JurisdictionResult{}, err
	}

	miles := orZero(agg.MilesBy, code)
	purchased := orZero(agg.GallonsBy, code)
	taxable := TaxableGallons(miles, agg.MPG)

	owed := taxable.Mul(rate)
	paid := purchased.Mul(rate)

	return JurisdictionResult{
		Jurisdiction:   code,
		Miles:          miles,
		TaxableGallons: taxable,
		FuelPurchased:  purchased,
		TaxRate:        rate,
		TaxOwed:        owed,
		TaxPaid:        paid,
		NetTax:         owed.Sub(paid),
		Rated:          known,
	}, nil
}

func orZero(m map[generic.JurisdictionCode]decimal.Decimal, code generic.JurisdictionCode) decimal.Decimal {
	if v, ok := m[code]; ok {
		return v
	}
	return decimal.Zero
}

// RateForState is the single-code lookup used by the rates endpoint.
func RateForState(rates generic.RateTable, state string) (decimal.Decimal, bool, error) {
	code := generic.NormalizeJurisdiction(state)
	if err := validateCode(code, "state", -1); err != nil {
		return decimal.Zero, false, err
	}
	return rates.RateFor(code)
}
