package ifta

import (
	"github.com/haulfile/tax-engine/generic"
	"github.com/shopspring/decimal"
)

// DefaultRateTableID identifies the built-in table.
const DefaultRateTableID generic.RateTableID = "builtin-diesel"

// Representative diesel rates in USD per gallon for IFTA member
// jurisdictions. Filing should use the published table for the quarter,
// loaded through the factory; these keep the engine usable out of the box.
var defaultDieselRates = map[string]string{
	// United States
	"AL": "0.3100", "AR": "0.2850", "AZ": "0.2600", "CA": "0.9710",
	"CO": "0.3250", "CT": "0.4920", "DE": "0.2200", "FL": "0.3790",
	"GA": "0.3510", "IA": "0.3250", "ID": "0.3300", "IL": "0.6570",
	"IN": "0.6100", "KS": "0.2600", "KY": "0.2460", "LA": "0.2000",
	"MA": "0.2400", "MD": "0.4675", "ME": "0.3120", "MI": "0.4700",
	"MN": "0.3310", "MO": "0.2450", "MS": "0.1800", "MT": "0.2975",
	"NC": "0.4030", "ND": "0.2300", "NE": "0.2930", "NH": "0.2220",
	"NJ": "0.5310", "NM": "0.2100", "NV": "0.2700", "NY": "0.4300",
	"OH": "0.4700", "OK": "0.1900", "OR": "0.0000", "PA": "0.7850",
	"RI": "0.3700", "SC": "0.2800", "SD": "0.2800", "TN": "0.2700",
	"TX": "0.2000", "UT": "0.3650", "VA": "0.4090", "VT": "0.3200",
	"WA": "0.4940", "WI": "0.3290", "WV": "0.3570", "WY": "0.2400",
	// Canada, converted to USD per US gallon
	"AB": "0.3900", "BC": "0.6500", "MB": "0.3900", "NB": "0.4100",
	"NL": "0.3500", "NS": "0.4200", "ON": "0.4200", "PE": "0.5000",
	"QC": "0.5500", "SK": "0.4200",
}

// DefaultRateTable returns a fresh copy of the built-in table.
func DefaultRateTable(policy generic.UnknownPolicy) *generic.StaticRateTable {
	rates := make(map[generic.JurisdictionCode]decimal.Decimal, len(defaultDieselRates))
	for code, r := range defaultDieselRates {
		rates[generic.JurisdictionCode(code)] = decimal.RequireFromString(r)
	}
	return generic.NewStaticRateTable(DefaultRateTableID, policy, rates).
		WithMeta("Built-in diesel rates", "")
}
