/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. The calculators work
  in exact decimals; the DTOs carry numbers as float64 on the wire (or as
  strings where exactness is the point, e.g. rate table documents and
  stored filing totals).

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  IFTA:        IFTACalculateRequest, IFTACalculateResponse, IFTABatch*
  HVUT:        HVUTCalculateRequest, HVUTResultDTO
  UCR:         UCRCalculateRequest, UCRResultDTO
  Rate tables: RateTableDTO, RateLookupDTO
  Filings:     FilingDTO
  Scenarios:   ScenarioDTO, RunScenarioRequest

VALIDATION:
  Validation is done by the calculators, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ifta/input.go: RawInput, the IFTA request body
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/haulfile/tax-engine/factory"
	"github.com/haulfile/tax-engine/generic"
	"github.com/haulfile/tax-engine/hvut"
	"github.com/haulfile/tax-engine/ifta"
	"github.com/haulfile/tax-engine/ucr"
)

// =============================================================================
// IFTA
// =============================================================================

// IFTACalculateRequest is the calculator input plus optional routing and
// persistence fields.
type IFTACalculateRequest struct {
	ifta.RawInput

	// RateTableID selects a stored table; empty uses the active one.
	RateTableID string `json:"rateTableId,omitempty"`

	// UnknownJurisdictions overrides the table policy: "zero" or "reject".
	UnknownJurisdictions string `json:"unknownJurisdictions,omitempty"`

	CarrierID string `json:"carrierId,omitempty"`
	Quarter   string `json:"quarter,omitempty"` // "2025Q1"
	Save      bool   `json:"save,omitempty"`
}

type IFTACalculateResponse struct {
	ifta.Report
	Quarter  string `json:"quarter,omitempty"`
	DueDate  string `json:"dueDate,omitempty"`
	FilingID string `json:"filingId,omitempty"`
}

type IFTABatchRequest struct {
	Calculations []IFTACalculateRequest `json:"calculations"`
}

type IFTABatchResponse struct {
	Results []IFTACalculateResponse `json:"results"`
}

// =============================================================================
// HVUT
// =============================================================================

type HVUTCalculateRequest struct {
	// TaxPeriod is the July start year; 0 derives it from FirstUsedMonth.
	TaxPeriod      int              `json:"taxPeriod,omitempty"`
	FirstUsedMonth string           `json:"firstUsedMonth"` // "2025-09"
	Vehicles       []HVUTVehicleDTO `json:"vehicles"`
	CarrierID      string           `json:"carrierId,omitempty"`
	Save           bool             `json:"save,omitempty"`
}

type HVUTVehicleDTO struct {
	VIN                string `json:"vin"`
	TaxableGrossWeight int    `json:"taxableGrossWeight"`
	Logging            bool   `json:"logging,omitempty"`
	Agricultural       bool   `json:"agricultural,omitempty"`
	ExpectedMiles      *int   `json:"expectedMiles,omitempty"`
}

type HVUTResultDTO struct {
	TaxPeriod string              `json:"taxPeriod"`
	Months    int                 `json:"months"`
	DueDate   string              `json:"dueDate"`
	Vehicles  []HVUTVehicleTaxDTO `json:"vehicles"`
	TotalDue  float64             `json:"totalDue"`
	FilingID  string              `json:"filingId,omitempty"`
}

type HVUTVehicleTaxDTO struct {
	VIN       string  `json:"vin"`
	Category  string  `json:"category"`
	AnnualTax float64 `json:"annualTax"`
	Months    int     `json:"months"`
	TaxDue    float64 `json:"taxDue"`
	Logging   bool    `json:"logging,omitempty"`
	Suspended bool    `json:"suspended,omitempty"`
}

func (r HVUTCalculateRequest) toReturn() (hvut.Return, error) {
	firstUsed, err := generic.ParseMonth(r.FirstUsedMonth)
	if err != nil {
		return hvut.Return{}, err
	}
	period := generic.TaxPeriodFor(firstUsed)
	if r.TaxPeriod != 0 {
		period = generic.TaxPeriod{StartYear: r.TaxPeriod}
	}
	ret := hvut.Return{Period: period, FirstUsed: firstUsed, Vehicles: make([]hvut.Vehicle, len(r.Vehicles))}
	for i, v := range r.Vehicles {
		ret.Vehicles[i] = hvut.Vehicle{
			VIN:                v.VIN,
			TaxableGrossWeight: v.TaxableGrossWeight,
			Logging:            v.Logging,
			Agricultural:       v.Agricultural,
			ExpectedMiles:      v.ExpectedMiles,
		}
	}
	return ret, nil
}

func toHVUTResultDTO(res *hvut.Result) HVUTResultDTO {
	dto := HVUTResultDTO{
		TaxPeriod: res.Period.String(),
		Months:    res.Months,
		DueDate:   res.DueDate.Format("2006-01-02"),
		Vehicles:  make([]HVUTVehicleTaxDTO, len(res.Vehicles)),
		TotalDue:  res.TotalDue.InexactFloat64(),
	}
	for i, v := range res.Vehicles {
		dto.Vehicles[i] = HVUTVehicleTaxDTO{
			VIN:       v.VIN,
			Category:  v.Category,
			AnnualTax: v.AnnualTax.InexactFloat64(),
			Months:    v.Months,
			TaxDue:    v.TaxDue.InexactFloat64(),
			Logging:   v.Logging,
			Suspended: v.Suspended,
		}
	}
	return dto
}

// =============================================================================
// UCR
// =============================================================================

type UCRCalculateRequest struct {
	Year       int    `json:"year"`
	PowerUnits int    `json:"powerUnits"`
	BrokerOnly bool   `json:"brokerOnly,omitempty"`
	CarrierID  string `json:"carrierId,omitempty"`
	Save       bool   `json:"save,omitempty"`
}

type UCRResultDTO struct {
	Year       int     `json:"year"`
	PowerUnits int     `json:"powerUnits"`
	Bracket    int     `json:"bracket"`
	Range      string  `json:"range"`
	Fee        float64 `json:"fee"`
	BrokerOnly bool    `json:"brokerOnly,omitempty"`
	FilingID   string  `json:"filingId,omitempty"`
}

func toUCRResultDTO(res *ucr.Result) UCRResultDTO {
	return UCRResultDTO{
		Year:       res.Year,
		PowerUnits: res.PowerUnits,
		Bracket:    res.Bracket,
		Range:      res.Range,
		Fee:        res.Fee.InexactFloat64(),
		BrokerOnly: res.BrokerOnly,
	}
}

// =============================================================================
// RATE TABLES
// =============================================================================

type RateTableDTO struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Quarter       string    `json:"quarter,omitempty"`
	UnknownPolicy string    `json:"unknownPolicy"`
	Version       int       `json:"version"` // 0 for the built-in table
	Jurisdictions int       `json:"jurisdictions"`
	Active        bool      `json:"active"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`

	// Rates is only filled for single-table responses.
	Rates map[string]factory.RateValue `json:"rates,omitempty"`
}

type RateLookupDTO struct {
	State       string  `json:"state"`
	Rate        float64 `json:"rate"`
	Known       bool    `json:"known"`
	RateTableID string  `json:"rateTableId"`
}

// =============================================================================
// FILINGS
// =============================================================================

type FilingDTO struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	CarrierID   string          `json:"carrierId,omitempty"`
	Period      string          `json:"period,omitempty"`
	RateTableID string          `json:"rateTableId,omitempty"`
	TotalDue    string          `json:"totalDue"`
	CreatedAt   time.Time       `json:"createdAt"`
	Request     json.RawMessage `json:"request,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

func toFilingDTO(f generic.Filing, withBodies bool) FilingDTO {
	dto := FilingDTO{
		ID:          string(f.ID),
		Kind:        string(f.Kind),
		CarrierID:   string(f.CarrierID),
		Period:      f.Period,
		RateTableID: string(f.RateTableID),
		TotalDue:    f.TotalDue,
		CreatedAt:   f.CreatedAt,
	}
	if withBodies {
		dto.Request = json.RawMessage(f.RequestJSON)
		dto.Result = json.RawMessage(f.ResultJSON)
	}
	return dto
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"` // ifta, hvut, ucr
}

type RunScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type ScenarioResultDTO struct {
	Scenario ScenarioDTO `json:"scenario"`
	Input    any         `json:"input"`
	Result   any         `json:"result"`
}

// =============================================================================
// COMMON
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type HealthDTO struct {
	Status          string `json:"status"`
	ActiveRateTable string `json:"activeRateTable"`
	UnknownPolicy   string `json:"unknownPolicy"`
}
