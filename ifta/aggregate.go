package ifta

import (
	"github.com/haulfile/tax-engine/generic"
	"github.com/shopspring/decimal"
)

// ZeroMPGSentinel is the fleet MPG reported when no fuel was purchased.
// It means "no fuel data yet", not a real fuel economy: with it every
// jurisdiction's taxable gallons are zero instead of a division fault.
const ZeroMPGSentinel = 0

// Aggregation is the single-pass reduction of a period's records.
type Aggregation struct {
	TotalMiles   decimal.Decimal
	TotalGallons decimal.Decimal
	MPG          decimal.Decimal

	// Jurisdictions lists every code seen, trip legs first, in discovery order.
	Jurisdictions []generic.JurisdictionCode
	MilesBy       map[generic.JurisdictionCode]decimal.Decimal
	GallonsBy     map[generic.JurisdictionCode]decimal.Decimal
}

// Aggregate sums miles and gallons overall and per jurisdiction and derives
// the fleet MPG. O(len(trips) + len(fuel)).
func Aggregate(trips []TripLeg, fuel []FuelPurchase) Aggregation {
	agg := Aggregation{
		TotalMiles:   decimal.Zero,
		TotalGallons: decimal.Zero,
		MilesBy:      make(map[generic.JurisdictionCode]decimal.Decimal),
		GallonsBy:    make(map[generic.JurisdictionCode]decimal.Decimal),
	}
	seen := make(map[generic.JurisdictionCode]bool)
	discover := func(code generic.JurisdictionCode) {
		if !seen[code] {
			seen[code] = true
			agg.Jurisdictions = append(agg.Jurisdictions, code)
		}
	}

	for _, t := range trips {
		discover(t.Jurisdiction)
		agg.TotalMiles = agg.TotalMiles.Add(t.Miles)
		agg.MilesBy[t.Jurisdiction] = agg.MilesBy[t.Jurisdiction].Add(t.Miles)
	}
	for _, f := range fuel {
		discover(f.Jurisdiction)
		agg.TotalGallons = agg.TotalGallons.Add(f.Gallons)
		agg.GallonsBy[f.Jurisdiction] = agg.GallonsBy[f.Jurisdiction].Add(f.Gallons)
	}

	agg.MPG = FleetMPG(agg.TotalMiles, agg.TotalGallons)
	return agg
}

// FleetMPG is totalMiles / totalGallons, or ZeroMPGSentinel when no fuel
// was purchased.
func FleetMPG(totalMiles, totalGallons decimal.Decimal) decimal.Decimal {
	if !totalGallons.IsPositive() {
		return decimal.NewFromInt(ZeroMPGSentinel)
	}
	return totalMiles.Div(totalGallons)
}

// TaxableGallons apportions consumption to a jurisdiction by miles driven.
// Zero when mpg is the sentinel.
func TaxableGallons(miles, mpg decimal.Decimal) decimal.Decimal {
	if !mpg.IsPositive() {
		return decimal.Zero
	}
	return miles.Div(mpg)
}
