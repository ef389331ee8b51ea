/*
Package factory converts JSON and YAML documents into rate tables and fee
schedules.

PURPOSE:
  Fuel tax rates change every quarter. Publishing a new table should not
  require a code change: operators drop a JSON or YAML document next to the
  server (or POST it to /api/rate-tables) and the factory builds the
  immutable generic.StaticRateTable the calculators read.

JSON SCHEMA:
  {
    "id": "ifta-2025q1",
    "name": "IFTA diesel 2025 Q1",
    "quarter": "2025Q1",
    "unknown_policy": "reject",
    "rates": {
      "CA": "0.9710",
      "TX": 0.20
    }
  }

  The same document may be written in YAML. Rates may be strings or
  numbers; both are read as exact decimals, never through float64.

VALIDATION:
  - id is required
  - at least one rate
  - codes are 2-3 letters after trimming and upper-casing
  - two keys that normalize to the same code are rejected
  - rates must be non-negative decimals

USAGE:
  f := factory.NewRateTableFactory()
  table, err := f.ParseJSON(body)
  table, err := f.LoadFile("rates/2025q1.yaml")

SEE ALSO:
  - generic/ratetable.go: StaticRateTable and UnknownPolicy
  - ifta/rates.go: Built-in table used when no file is configured
  - factory/ucr.go: UCR fee schedules
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/haulfile/tax-engine/generic"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// SCHEMA TYPES
// =============================================================================

// RateTableJSON is the document form of a rate table.
type RateTableJSON struct {
	ID            string               `json:"id" yaml:"id"`
	Name          string               `json:"name,omitempty" yaml:"name,omitempty"`
	Quarter       string               `json:"quarter,omitempty" yaml:"quarter,omitempty"`
	UnknownPolicy string               `json:"unknown_policy,omitempty" yaml:"unknown_policy,omitempty"`
	Rates         map[string]RateValue `json:"rates" yaml:"rates"`
}

// RateValue holds the literal text of a rate so numbers keep every digit.
type RateValue string

func (v *RateValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = RateValue(s)
		return nil
	}
	if string(b) == "null" {
		return fmt.Errorf("rate must not be null")
	}
	*v = RateValue(b)
	return nil
}

func (v *RateValue) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: rate must be a scalar", n.Line)
	}
	*v = RateValue(n.Value)
	return nil
}

// =============================================================================
// RATE TABLE FACTORY
// =============================================================================

// RateTableFactory builds rate tables from documents.
type RateTableFactory struct {
	// DefaultPolicy applies when a document leaves unknown_policy empty.
	DefaultPolicy generic.UnknownPolicy
}

func NewRateTableFactory() *RateTableFactory {
	return &RateTableFactory{DefaultPolicy: generic.UnknownAsZero}
}

// ParseJSON parses a JSON document into a rate table.
func (f *RateTableFactory) ParseJSON(data []byte) (*generic.StaticRateTable, error) {
	var rj RateTableJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return nil, &generic.InputError{Field: "rate_table", Index: -1, Reason: "invalid JSON: " + err.Error()}
	}
	return f.FromJSON(rj)
}

// ParseYAML parses a YAML document into a rate table.
func (f *RateTableFactory) ParseYAML(data []byte) (*generic.StaticRateTable, error) {
	var rj RateTableJSON
	if err := yaml.Unmarshal(data, &rj); err != nil {
		return nil, &generic.InputError{Field: "rate_table", Index: -1, Reason: "invalid YAML: " + err.Error()}
	}
	return f.FromJSON(rj)
}

// LoadFile reads a rate table, choosing the decoder by extension.
func (f *RateTableFactory) LoadFile(path string) (*generic.StaticRateTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate table: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return f.ParseYAML(data)
	case ".json":
		return f.ParseJSON(data)
	default:
		return nil, fmt.Errorf("rate table %s: unsupported extension (want .json, .yaml or .yml)", path)
	}
}

// FromJSON validates a document and builds the table.
func (f *RateTableFactory) FromJSON(rj RateTableJSON) (*generic.StaticRateTable, error) {
	if strings.TrimSpace(rj.ID) == "" {
		return nil, &generic.InputError{Field: "id", Index: -1, Reason: "rate table id is required"}
	}
	if len(rj.Rates) == 0 {
		return nil, &generic.InputError{Field: "rates", Index: -1, Reason: "rate table has no rates"}
	}

	policy := f.DefaultPolicy
	if rj.UnknownPolicy != "" {
		p, err := generic.ParseUnknownPolicy(rj.UnknownPolicy)
		if err != nil {
			return nil, err
		}
		policy = p
	}

	if rj.Quarter != "" {
		q, err := generic.ParseQuarter(rj.Quarter)
		if err != nil {
			return nil, err
		}
		rj.Quarter = q.String()
	}

	// Sorted so the reported error is stable across runs.
	keys := make([]string, 0, len(rj.Rates))
	for k := range rj.Rates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rates := make(map[generic.JurisdictionCode]decimal.Decimal, len(keys))
	for _, key := range keys {
		code := generic.NormalizeJurisdiction(key)
		if !validCode(code) {
			return nil, &generic.InputError{Field: "rates", Index: -1, Reason: fmt.Sprintf("%q is not a jurisdiction code", key)}
		}
		if _, dup := rates[code]; dup {
			return nil, &generic.InputError{Field: "rates", Index: -1, Reason: fmt.Sprintf("duplicate code %s", code)}
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(string(rj.Rates[key])))
		if err != nil {
			return nil, &generic.InputError{Field: "rates." + string(code), Index: -1, Reason: fmt.Sprintf("%q is not a number", rj.Rates[key])}
		}
		if err := generic.CheckDecimalRange(rate); err != nil {
			return nil, &generic.InputError{Field: "rates." + string(code), Index: -1, Reason: err.Error()}
		}
		if rate.IsNegative() {
			return nil, &generic.InputError{Field: "rates." + string(code), Index: -1, Reason: "must not be negative"}
		}
		rates[code] = rate
	}

	table := generic.NewStaticRateTable(generic.RateTableID(strings.TrimSpace(rj.ID)), policy, rates)
	return table.WithMeta(rj.Name, rj.Quarter), nil
}

// ToJSON converts a table back to its document form. Rates are written as
// strings.
func (f *RateTableFactory) ToJSON(t *generic.StaticRateTable) RateTableJSON {
	rj := RateTableJSON{
		ID:            string(t.ID()),
		Name:          t.Name(),
		Quarter:       t.Quarter(),
		UnknownPolicy: string(t.Policy()),
		Rates:         make(map[string]RateValue, t.Len()),
	}
	for code, rate := range t.Rates() {
		rj.Rates[string(code)] = RateValue(rate.String())
	}
	return rj
}

// Marshal renders the document form as JSON, suitable for
// generic.RateTableRecord.ConfigJSON.
func (f *RateTableFactory) Marshal(t *generic.StaticRateTable) (string, error) {
	b, err := json.Marshal(f.ToJSON(t))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func validCode(code generic.JurisdictionCode) bool {
	if len(code) < 2 || len(code) > 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
