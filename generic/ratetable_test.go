package generic_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/haulfile/tax-engine/generic"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(policy generic.UnknownPolicy) *generic.StaticRateTable {
	return generic.NewStaticRateTable("sample", policy, map[generic.JurisdictionCode]decimal.Decimal{
		"tx":   decimal.RequireFromString("0.20"),
		" CA ": decimal.RequireFromString("0.9710"),
	})
}

func TestStaticRateTable_Lookup(t *testing.T) {
	table := sampleTable(generic.UnknownAsZero)

	rate, known, err := table.RateFor("ca")
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, "0.971", rate.String())

	assert.Contains(t, table.Rates(), generic.JurisdictionCode("TX"))
	assert.Equal(t, 2, table.Len())
}

func TestStaticRateTable_UnknownPolicies(t *testing.T) {
	zero := sampleTable("")
	assert.Equal(t, generic.UnknownAsZero, zero.Policy(), "empty policy defaults to zero")

	rate, known, err := zero.RateFor("HI")
	require.NoError(t, err)
	assert.False(t, known)
	assert.True(t, rate.IsZero())

	reject := zero.WithPolicy(generic.UnknownReject)
	_, _, err = reject.RateFor("HI")
	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrUnknownJurisdiction))

	var unknown *generic.UnknownJurisdictionError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, generic.JurisdictionCode("HI"), unknown.Code)
	assert.Equal(t, generic.RateTableID("sample"), unknown.TableID)

	// WithPolicy returns a copy
	assert.Equal(t, generic.UnknownAsZero, zero.Policy())
}

func TestStaticRateTable_Immutable(t *testing.T) {
	rates := map[generic.JurisdictionCode]decimal.Decimal{"CA": decimal.RequireFromString("0.5")}
	table := generic.NewStaticRateTable("t", generic.UnknownAsZero, rates).WithMeta("Q1 rates", "2025Q1")

	rates["CA"] = decimal.RequireFromString("9")
	table.Rates()["CA"] = decimal.RequireFromString("9")

	rate, _, err := table.RateFor("CA")
	require.NoError(t, err)
	assert.Equal(t, "0.5", rate.String())
	assert.Equal(t, "Q1 rates", table.Name())
	assert.Equal(t, "2025Q1", table.Quarter())
}

func TestParseUnknownPolicy(t *testing.T) {
	for in, want := range map[string]generic.UnknownPolicy{
		"":                "unknown_as_zero",
		"zero":            generic.UnknownAsZero,
		"unknown_as_zero": generic.UnknownAsZero,
		"reject":          generic.UnknownReject,
	} {
		got, err := generic.ParseUnknownPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := generic.ParseUnknownPolicy("ignore")
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestErrorCategories(t *testing.T) {
	input := &generic.InputError{Field: "tripEntries.miles", Index: 2, Reason: "must not be negative"}
	assert.Equal(t, "invalid tripEntries.miles at index 2: must not be negative", input.Error())
	assert.True(t, generic.IsClientError(input))
	assert.False(t, generic.IsNotFound(input))

	top := &generic.InputError{Field: "year", Index: -1, Reason: "required"}
	assert.Equal(t, "invalid year: required", top.Error())

	assert.True(t, generic.IsClientError(generic.ErrValueOutOfRange))
	assert.True(t, generic.IsNotFound(generic.ErrScheduleNotFound))
	assert.False(t, generic.IsClientError(generic.ErrFilingExists))
	assert.False(t, generic.IsNotFound(generic.ErrFilingExists))
}

func TestRoundCents(t *testing.T) {
	assert.Equal(t, "504.17", generic.RoundCents(decimal.RequireFromString("504.1666")).String())
	assert.Equal(t, "0.01", generic.RoundCents(decimal.RequireFromString("0.005")).String())
	assert.Equal(t, "12", generic.RoundCents(decimal.RequireFromString("12.001")).String())
}

func TestCheckDecimalRange(t *testing.T) {
	for _, ok := range []string{"0", "-3", "0.000000000000000001", "999999999999.99", "100.000000000000000000", "1e11"} {
		assert.NoError(t, generic.CheckDecimalRange(decimal.RequireFromString(ok)), ok)
	}

	for _, bad := range []string{"1e20000000", "1e-20000000", "1e19", "0.0000000000000000001", "1000000000000", "-1e12", "1e12"} {
		err := generic.CheckDecimalRange(decimal.RequireFromString(bad))
		assert.ErrorIs(t, err, generic.ErrValueOutOfRange, bad)
	}

	// 2^200 at exponent 0 has far more digits than any accepted value
	huge := decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 200), 0)
	assert.ErrorIs(t, generic.CheckDecimalRange(huge), generic.ErrValueOutOfRange)
}
