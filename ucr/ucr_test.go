package ucr_test

import (
	"testing"

	"github.com/haulfile/tax-engine/generic"
	"github.com/haulfile/tax-engine/ucr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateBuiltin_Brackets2025(t *testing.T) {
	tests := []struct {
		units   int
		bracket int
		fee     string
	}{
		{0, 1, "46"},
		{2, 1, "46"},
		{3, 2, "138"},
		{20, 3, "276"},
		{21, 4, "963"},
		{1000, 5, "4592"},
		{1001, 6, "44836"},
		{25000, 6, "44836"},
	}

	for _, tt := range tests {
		res, err := ucr.CalculateBuiltin(ucr.Registration{Year: 2025, PowerUnits: tt.units})
		require.NoError(t, err, "units %d", tt.units)
		assert.Equal(t, tt.bracket, res.Bracket, "units %d", tt.units)
		assert.True(t, decimal.RequireFromString(tt.fee).Equal(res.Fee), "units %d: got %s", tt.units, res.Fee)
	}
}

func TestCalculateBuiltin_BrokerPaysFirstBracket(t *testing.T) {
	res, err := ucr.CalculateBuiltin(ucr.Registration{Year: 2024, PowerUnits: 40, BrokerOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Bracket)
	assert.Equal(t, "37", res.Fee.String())
	assert.Equal(t, "0-2", res.Range)
}

func TestCalculateBuiltin_Errors(t *testing.T) {
	_, err := ucr.CalculateBuiltin(ucr.Registration{Year: 1999, PowerUnits: 1})
	assert.ErrorIs(t, err, generic.ErrScheduleNotFound)
	assert.True(t, generic.IsNotFound(err))

	_, err = ucr.CalculateBuiltin(ucr.Registration{Year: 2025, PowerUnits: -1})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestSchedule_Validate(t *testing.T) {
	s, err := ucr.BuiltinSchedule(2025)
	require.NoError(t, err)
	assert.NoError(t, s.Validate())

	gap := ucr.Schedule{Year: 2030, Brackets: []ucr.Bracket{
		{Number: 1, MinUnits: 0, MaxUnits: 2, Fee: decimal.NewFromInt(10)},
		{Number: 2, MinUnits: 4, MaxUnits: -1, Fee: decimal.NewFromInt(20)},
	}}
	assert.ErrorIs(t, gap.Validate(), generic.ErrInvalidInput)

	bounded := ucr.Schedule{Year: 2030, Brackets: []ucr.Bracket{
		{Number: 1, MinUnits: 0, MaxUnits: 2, Fee: decimal.NewFromInt(10)},
	}}
	assert.ErrorIs(t, bounded.Validate(), generic.ErrInvalidInput)
}
