package factory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/haulfile/tax-engine/factory"
	"github.com/haulfile/tax-engine/generic"
	"github.com/haulfile/tax-engine/ucr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateOf(t *testing.T, table generic.RateTable, code string) decimal.Decimal {
	t.Helper()
	rate, known, err := table.RateFor(generic.JurisdictionCode(code))
	require.NoError(t, err)
	require.True(t, known, "code %s should be known", code)
	return rate
}

func TestParseJSON_StringsAndNumbers(t *testing.T) {
	f := factory.NewRateTableFactory()

	table, err := f.ParseJSON([]byte(`{
		"id": "ifta-2025q1",
		"name": "Diesel 2025 Q1",
		"quarter": "2025-q1",
		"rates": {" ca ": "0.9710", "TX": 0.20, "NV": 0.27}
	}`))
	require.NoError(t, err)

	assert.Equal(t, generic.RateTableID("ifta-2025q1"), table.ID())
	assert.Equal(t, "Diesel 2025 Q1", table.Name())
	assert.Equal(t, "2025Q1", table.Quarter())
	assert.Equal(t, generic.UnknownAsZero, table.Policy())
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, "0.971", rateOf(t, table, "CA").String())
	assert.Equal(t, "0.2", rateOf(t, table, "TX").String())
}

func TestParseYAML_KeepsExactDigits(t *testing.T) {
	f := factory.NewRateTableFactory()

	table, err := f.ParseYAML([]byte(`
id: yaml-table
unknown_policy: reject
rates:
  CA: 0.1234567890123456789
  ON: "0.42"
`))
	require.NoError(t, err)

	assert.Equal(t, generic.UnknownReject, table.Policy())
	assert.Equal(t, "0.1234567890123456789", rateOf(t, table, "CA").String())

	_, _, err = table.RateFor("ZZ")
	assert.ErrorIs(t, err, generic.ErrUnknownJurisdiction)
}

func TestFromJSON_Rejections(t *testing.T) {
	f := factory.NewRateTableFactory()

	tests := []struct {
		name string
		doc  string
	}{
		{"missing id", `{"rates": {"CA": "0.1"}}`},
		{"no rates", `{"id": "x", "rates": {}}`},
		{"negative rate", `{"id": "x", "rates": {"CA": "-0.1"}}`},
		{"non-numeric rate", `{"id": "x", "rates": {"CA": "abc"}}`},
		{"huge exponent rate", `{"id": "x", "rates": {"CA": "1e20000000"}}`},
		{"tiny exponent rate", `{"id": "x", "rates": {"CA": "1e-20000000"}}`},
		{"bad code", `{"id": "x", "rates": {"C1": "0.1"}}`},
		{"duplicate after normalizing", `{"id": "x", "rates": {"CA": "0.1", "ca": "0.2"}}`},
		{"bad policy", `{"id": "x", "unknown_policy": "maybe", "rates": {"CA": "0.1"}}`},
		{"bad quarter", `{"id": "x", "quarter": "2025Q5", "rates": {"CA": "0.1"}}`},
		{"malformed", `{"id": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseJSON([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, generic.IsClientError(err), "want client error, got %v", err)
		})
	}
}

func TestFactory_DefaultPolicyAppliesWhenUnset(t *testing.T) {
	f := &factory.RateTableFactory{DefaultPolicy: generic.UnknownReject}
	table, err := f.ParseJSON([]byte(`{"id": "x", "rates": {"CA": "0.1"}}`))
	require.NoError(t, err)
	assert.Equal(t, generic.UnknownReject, table.Policy())
}

func TestMarshal_RoundTripsThroughParse(t *testing.T) {
	f := factory.NewRateTableFactory()
	orig, err := f.ParseJSON([]byte(`{"id": "rt", "name": "n", "quarter": "2025Q2", "rates": {"CA": "0.9710", "TX": "0.20"}}`))
	require.NoError(t, err)

	doc, err := f.Marshal(orig)
	require.NoError(t, err)

	again, err := f.ParseJSON([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, orig.Len(), again.Len())
	assert.True(t, rateOf(t, orig, "CA").Equal(rateOf(t, again, "CA")))
	assert.Equal(t, orig.Quarter(), again.Quarter())
}

func TestLoadFile_ByExtension(t *testing.T) {
	dir := t.TempDir()
	f := factory.NewRateTableFactory()

	yamlPath := filepath.Join(dir, "rates.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("id: y\nrates:\n  TX: 0.20\n"), 0o644))
	table, err := f.LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, generic.RateTableID("y"), table.ID())

	jsonPath := filepath.Join(dir, "rates.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"id": "j", "rates": {"TX": 0.2}}`), 0o644))
	table, err = f.LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, generic.RateTableID("j"), table.ID())

	txtPath := filepath.Join(dir, "rates.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("x"), 0o644))
	_, err = f.LoadFile(txtPath)
	assert.Error(t, err)
}

func TestParseUCRSchedule(t *testing.T) {
	s, err := factory.ParseUCRScheduleJSON([]byte(`{"year": 2026, "brackets": [
		{"min_units": 0, "max_units": 2, "fee": "50"},
		{"min_units": 3, "fee": 150}
	]}`))
	require.NoError(t, err)

	res, err := ucr.Calculate(s, ucr.Registration{Year: 2026, PowerUnits: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Bracket)
	assert.Equal(t, "3+", res.Range)
	assert.Equal(t, "150", res.Fee.String())

	yamlSched, err := factory.ParseUCRScheduleYAML([]byte("year: 2026\nbrackets:\n  - min_units: 0\n    fee: \"10\"\n"))
	require.NoError(t, err)
	assert.Len(t, yamlSched.Brackets, 1)

	_, err = factory.ParseUCRScheduleJSON([]byte(`{"year": 2026, "brackets": [{"min_units": 1, "fee": "10"}]}`))
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	_, err = factory.ParseUCRScheduleJSON([]byte(`{"year": 2026, "brackets": [{"min_units": 0, "fee": 1e20000000}]}`))
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
	var inErr *generic.InputError
	require.ErrorAs(t, err, &inErr)
	assert.Equal(t, "brackets.fee", inErr.Field)
}
