package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/haulfile/tax-engine/generic"
	"github.com/haulfile/tax-engine/ucr"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// UCRScheduleJSON is the document form of a UCR fee schedule.
//
//	{"year": 2026, "brackets": [
//	  {"min_units": 0, "max_units": 2, "fee": "46"},
//	  ...
//	  {"min_units": 1001, "fee": "44836"}
//	]}
//
// A bracket without max_units is unbounded.
type UCRScheduleJSON struct {
	Year     int              `json:"year" yaml:"year"`
	Brackets []UCRBracketJSON `json:"brackets" yaml:"brackets"`
}

type UCRBracketJSON struct {
	MinUnits int       `json:"min_units" yaml:"min_units"`
	MaxUnits *int      `json:"max_units,omitempty" yaml:"max_units,omitempty"`
	Fee      RateValue `json:"fee" yaml:"fee"`
}

// ParseUCRScheduleJSON parses and validates a JSON fee schedule.
func ParseUCRScheduleJSON(data []byte) (ucr.Schedule, error) {
	var sj UCRScheduleJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return ucr.Schedule{}, &generic.InputError{Field: "schedule", Index: -1, Reason: "invalid JSON: " + err.Error()}
	}
	return UCRScheduleFromJSON(sj)
}

// ParseUCRScheduleYAML parses and validates a YAML fee schedule.
func ParseUCRScheduleYAML(data []byte) (ucr.Schedule, error) {
	var sj UCRScheduleJSON
	if err := yaml.Unmarshal(data, &sj); err != nil {
		return ucr.Schedule{}, &generic.InputError{Field: "schedule", Index: -1, Reason: "invalid YAML: " + err.Error()}
	}
	return UCRScheduleFromJSON(sj)
}

// LoadUCRScheduleFile reads a fee schedule, choosing the decoder by extension.
func LoadUCRScheduleFile(path string) (ucr.Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ucr.Schedule{}, fmt.Errorf("read fee schedule: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseUCRScheduleYAML(data)
	case ".json":
		return ParseUCRScheduleJSON(data)
	default:
		return ucr.Schedule{}, fmt.Errorf("fee schedule %s: unsupported extension (want .json, .yaml or .yml)", path)
	}
}

func UCRScheduleFromJSON(sj UCRScheduleJSON) (ucr.Schedule, error) {
	if sj.Year < 2000 || sj.Year > 9999 {
		return ucr.Schedule{}, &generic.InputError{Field: "year", Index: -1, Reason: "year out of range"}
	}
	s := ucr.Schedule{Year: sj.Year, Brackets: make([]ucr.Bracket, len(sj.Brackets))}
	for i, bj := range sj.Brackets {
		fee, err := decimal.NewFromString(strings.TrimSpace(string(bj.Fee)))
		if err != nil {
			return ucr.Schedule{}, &generic.InputError{Field: "brackets.fee", Index: i, Reason: "not a number"}
		}
		if err := generic.CheckDecimalRange(fee); err != nil {
			return ucr.Schedule{}, &generic.InputError{Field: "brackets.fee", Index: i, Reason: err.Error()}
		}
		maxUnits := -1
		if bj.MaxUnits != nil {
			maxUnits = *bj.MaxUnits
		}
		s.Brackets[i] = ucr.Bracket{Number: i + 1, MinUnits: bj.MinUnits, MaxUnits: maxUnits, Fee: fee}
	}
	if err := s.Validate(); err != nil {
		return ucr.Schedule{}, err
	}
	return s, nil
}
