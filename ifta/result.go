package ifta

import (
	"github.com/haulfile/tax-engine/generic"
	"github.com/shopspring/decimal"
)

// =============================================================================
// RESULT ASSEMBLER
// =============================================================================

func assemble(tableID generic.RateTableID, agg Aggregation, results []JurisdictionResult) *FleetSummary {
	total := decimal.Zero
	var unrated []generic.JurisdictionCode
	for _, r := range results {
		total = total.Add(r.NetTax)
		if !r.Rated {
			unrated = append(unrated, r.Jurisdiction)
		}
	}

	return &FleetSummary{
		RateTableID:          tableID,
		MPG:                  agg.MPG,
		TotalMiles:           agg.TotalMiles,
		TotalGallons:         agg.TotalGallons,
		TotalTaxDue:          total,
		JurisdictionResults:  results,
		UnratedJurisdictions: unrated,
	}
}

// =============================================================================
// REPORT - Wire contract
// =============================================================================

// Report is the JSON output contract of a calculation. Values are the exact
// decimal results converted to float64 for transport.
type Report struct {
	MPG                  float64              `json:"mpg"`
	TotalMiles           float64              `json:"totalMiles"`
	TotalGallons         float64              `json:"totalGallons"`
	TotalTaxDue          float64              `json:"totalTaxDue"`
	JurisdictionResults  []JurisdictionReport `json:"jurisdictionResults"`
	UnratedJurisdictions []string             `json:"unratedJurisdictions,omitempty"`
	RateTableID          string               `json:"rateTableId,omitempty"`
}

type JurisdictionReport struct {
	State          string  `json:"state"`
	Miles          float64 `json:"miles"`
	TaxableGallons float64 `json:"taxableGallons"`
	FuelPurchased  float64 `json:"fuelPurchased"`
	TaxRate        float64 `json:"taxRate"`
	TaxOwed        float64 `json:"taxOwed"`
	TaxPaid        float64 `json:"taxPaid"`
	NetTax         float64 `json:"netTax"`
}

// Report converts the summary into its wire form.
func (s *FleetSummary) Report() Report {
	rep := Report{
		MPG:                 s.MPG.InexactFloat64(),
		TotalMiles:          s.TotalMiles.InexactFloat64(),
		TotalGallons:        s.TotalGallons.InexactFloat64(),
		TotalTaxDue:         s.TotalTaxDue.InexactFloat64(),
		JurisdictionResults: make([]JurisdictionReport, 0, len(s.JurisdictionResults)),
		RateTableID:         string(s.RateTableID),
	}
	for _, r := range s.JurisdictionResults {
		rep.JurisdictionResults = append(rep.JurisdictionResults, JurisdictionReport{
			State:          string(r.Jurisdiction),
			Miles:          r.Miles.InexactFloat64(),
			TaxableGallons: r.TaxableGallons.InexactFloat64(),
			FuelPurchased:  r.FuelPurchased.InexactFloat64(),
			TaxRate:        r.TaxRate.InexactFloat64(),
			TaxOwed:        r.TaxOwed.InexactFloat64(),
			TaxPaid:        r.TaxPaid.InexactFloat64(),
			NetTax:         r.NetTax.InexactFloat64(),
		})
	}
	for _, c := range s.UnratedJurisdictions {
		rep.UnratedJurisdictions = append(rep.UnratedJurisdictions, string(c))
	}
	return rep
}
