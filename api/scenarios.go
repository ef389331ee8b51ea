/*
scenarios.go - Canned demo calculations

PURPOSE:

	Provides pre-built inputs that show how each calculator behaves on
	small, easy-to-check fleets. Running a scenario evaluates it against
	the active rate table; nothing is written to the store.

AVAILABLE SCENARIOS:

	two-states-one-purchase: Fuel bought in CA, miles in CA and TX
	no-fuel-data:            Miles only, shows the zero-MPG sentinel
	proportional-purchase:   Fuel bought exactly where it was burned
	unknown-jurisdiction:    A code the rate table does not know
	owner-operator-2290:     One tractor first used in September
	small-fleet-ucr:         Twelve power units

USAGE VIA API:

	POST /api/scenarios/run
	{"scenario_id": "no-fuel-data"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description, category
 2. Add its input to scenarioInputs

SEE ALSO:
  - handlers.go: calculateIFTA, calculateHVUT, calculateUCR
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/haulfile/tax-engine/ifta"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "two-states-one-purchase",
		Name:        "Two States, One Purchase",
		Description: "100 mi in CA, 50 mi in TX, 20 gal bought in CA: CA gets a credit, TX is owed",
		Category:    "ifta",
	},
	{
		ID:          "no-fuel-data",
		Name:        "No Fuel Data",
		Description: "Trips without purchases: MPG is the zero sentinel and nothing is taxable",
		Category:    "ifta",
	},
	{
		ID:          "proportional-purchase",
		Name:        "Proportional Purchase",
		Description: "Fuel bought in each state exactly matches consumption: net tax is zero",
		Category:    "ifta",
	},
	{
		ID:          "unknown-jurisdiction",
		Name:        "Unknown Jurisdiction",
		Description: "Miles in a code the rate table does not know: listed as unrated under the zero policy",
		Category:    "ifta",
	},
	{
		ID:          "owner-operator-2290",
		Name:        "Owner-Operator 2290",
		Description: "One 80,000 lb tractor first used in September: 10 of 12 months",
		Category:    "hvut",
	},
	{
		ID:          "small-fleet-ucr",
		Name:        "Small Fleet UCR",
		Description: "Twelve power units in the 2025 registration year",
		Category:    "ucr",
	},
}

func num(s string) json.Number { return json.Number(s) }

var scenarioInputs = map[string]any{
	"two-states-one-purchase": IFTACalculateRequest{RawInput: ifta.RawInput{
		TripEntries:   []ifta.RawTripEntry{{State: "CA", Miles: num("100")}, {State: "TX", Miles: num("50")}},
		FuelPurchases: []ifta.RawFuelPurchase{{State: "CA", Gallons: num("20")}},
	}},
	"no-fuel-data": IFTACalculateRequest{RawInput: ifta.RawInput{
		TripEntries:   []ifta.RawTripEntry{{State: "NV", Miles: num("420")}, {State: "AZ", Miles: num("380")}},
		FuelPurchases: []ifta.RawFuelPurchase{},
	}},
	"proportional-purchase": IFTACalculateRequest{RawInput: ifta.RawInput{
		TripEntries:   []ifta.RawTripEntry{{State: "OR", Miles: num("300")}, {State: "WA", Miles: num("600")}},
		FuelPurchases: []ifta.RawFuelPurchase{{State: "OR", Gallons: num("50")}, {State: "WA", Gallons: num("100")}},
	}},
	"unknown-jurisdiction": IFTACalculateRequest{
		RawInput: ifta.RawInput{
			TripEntries:   []ifta.RawTripEntry{{State: "TX", Miles: num("500")}, {State: "ZZ", Miles: num("100")}},
			FuelPurchases: []ifta.RawFuelPurchase{{State: "TX", Gallons: num("100")}},
		},
		UnknownJurisdictions: "zero",
	},
	"owner-operator-2290": HVUTCalculateRequest{
		FirstUsedMonth: "2025-09",
		Vehicles:       []HVUTVehicleDTO{{VIN: "1FUJGLDR5CLBP8834", TaxableGrossWeight: 80000}},
	},
	"small-fleet-ucr": UCRCalculateRequest{Year: 2025, PowerUnits: 12},
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// RunScenario evaluates a scenario against the active rate table.
// POST /api/scenarios/run
func (h *Handler) RunScenario(w http.ResponseWriter, r *http.Request) {
	var req RunScenarioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	scenario, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", fmt.Errorf("no scenario %q", req.ScenarioID))
		return
	}

	var (
		result any
		err    error
	)
	input := scenarioInputs[scenario.ID]
	switch in := input.(type) {
	case IFTACalculateRequest:
		result, _, err = h.calculateIFTA(r.Context(), in)
	case HVUTCalculateRequest:
		result, _, err = calculateHVUT(in)
	case UCRCalculateRequest:
		result, _, err = calculateUCR(in)
	default:
		err = fmt.Errorf("scenario %s has no input", scenario.ID)
	}
	if err != nil {
		h.writeDomainError(w, "Scenario failed", err)
		return
	}

	h.Logger.Debug("scenario run", zap.String("scenario_id", scenario.ID))
	writeJSON(w, http.StatusOK, ScenarioResultDTO{Scenario: scenario, Input: input, Result: result})
}

func findScenario(id string) (ScenarioDTO, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return ScenarioDTO{}, false
}
