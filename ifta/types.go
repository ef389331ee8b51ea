// Package ifta implements International Fuel Tax Agreement reconciliation.
//
// Given the trip legs and fuel purchases of a reporting period it derives the
// fleet's miles per gallon, apportions consumption to each jurisdiction by
// miles driven, and nets the tax owed on that consumption against the tax
// already paid at the pump. Every calculation is a pure function of its
// inputs and an injected rate table.
package ifta

import (
	"github.com/haulfile/tax-engine/generic"
	"github.com/shopspring/decimal"
)

// TripLeg is the distance driven in one jurisdiction.
type TripLeg struct {
	Jurisdiction generic.JurisdictionCode
	Miles        decimal.Decimal
}

// FuelPurchase is fuel bought in one jurisdiction. Amount is the optional
// receipt total; it is carried for reporting and never enters the tax math.
type FuelPurchase struct {
	Jurisdiction generic.JurisdictionCode
	Gallons      decimal.Decimal
	Amount       *decimal.Decimal
}

// JurisdictionResult is the reconciliation of a single jurisdiction.
type JurisdictionResult struct {
	Jurisdiction   generic.JurisdictionCode
	Miles          decimal.Decimal
	TaxableGallons decimal.Decimal
	FuelPurchased  decimal.Decimal
	TaxRate        decimal.Decimal
	TaxOwed        decimal.Decimal
	TaxPaid        decimal.Decimal
	NetTax         decimal.Decimal // positive: due to the jurisdiction, negative: credit

	// Rated is false when the rate table did not know the code and
	// resolved it to zero.
	Rated bool
}

// FleetSummary is the full report for one calculation.
type FleetSummary struct {
	RateTableID          generic.RateTableID
	MPG                  decimal.Decimal
	TotalMiles           decimal.Decimal
	TotalGallons         decimal.Decimal
	TotalTaxDue          decimal.Decimal
	JurisdictionResults  []JurisdictionResult
	UnratedJurisdictions []generic.JurisdictionCode
}

// Result returns the entry for a jurisdiction, if present.
func (s *FleetSummary) Result(code generic.JurisdictionCode) (JurisdictionResult, bool) {
	code = generic.NormalizeJurisdiction(string(code))
	for _, r := range s.JurisdictionResults {
		if r.Jurisdiction == code {
			return r, true
		}
	}
	return JurisdictionResult{}, false
}
