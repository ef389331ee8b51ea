package generic_test

import (
	"testing"
	"time"

	"github.com/haulfile/tax-engine/generic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// QUARTER
// =============================================================================

func TestParseQuarter_Spellings(t *testing.T) {
	for _, s := range []string{"2025Q3", "2025-Q3", "2025q3", "Q3 2025", " q3-2025 "} {
		q, err := generic.ParseQuarter(s)
		require.NoError(t, err, s)
		assert.Equal(t, generic.Quarter{Year: 2025, Q: 3}, q, s)
	}
}

func TestParseQuarter_Invalid(t *testing.T) {
	for _, s := range []string{"", "2025", "2025Q5", "2025Q0", "1999Q1", "Q12025X", "abcdQ1"} {
		_, err := generic.ParseQuarter(s)
		assert.ErrorIs(t, err, generic.ErrInvalidPeriod, s)
		assert.True(t, generic.IsClientError(err), s)
	}
}

func TestQuarter_PeriodAndDueDate(t *testing.T) {
	tests := []struct {
		q          generic.Quarter
		start, end time.Time
		due        time.Time
	}{
		{generic.Quarter{Year: 2025, Q: 1}, date(2025, 1, 1), date(2025, 3, 31), date(2025, 4, 30)},
		{generic.Quarter{Year: 2025, Q: 2}, date(2025, 4, 1), date(2025, 6, 30), date(2025, 7, 31)},
		{generic.Quarter{Year: 2025, Q: 3}, date(2025, 7, 1), date(2025, 9, 30), date(2025, 10, 31)},
		{generic.Quarter{Year: 2025, Q: 4}, date(2025, 10, 1), date(2025, 12, 31), date(2026, 1, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.q.String(), func(t *testing.T) {
			p := tt.q.Period()
			assert.Equal(t, tt.start, p.Start)
			assert.Equal(t, tt.end, p.End)
			assert.Equal(t, tt.due, tt.q.DueDate())
		})
	}
}

func TestQuarter_NextAndFor(t *testing.T) {
	assert.Equal(t, generic.Quarter{Year: 2026, Q: 1}, generic.Quarter{Year: 2025, Q: 4}.Next())
	assert.Equal(t, generic.Quarter{Year: 2025, Q: 3}, generic.Quarter{Year: 2025, Q: 2}.Next())
	assert.Equal(t, generic.Quarter{Year: 2025, Q: 2}, generic.QuarterFor(date(2025, 6, 30)))
	assert.Equal(t, "2025Q4", generic.QuarterFor(date(2025, 10, 1)).String())
}

func TestPeriod_Contains(t *testing.T) {
	p := generic.Quarter{Year: 2025, Q: 1}.Period()

	assert.True(t, p.Contains(date(2025, 1, 1)))
	assert.True(t, p.Contains(time.Date(2025, 3, 31, 23, 59, 0, 0, time.UTC)), "end day is inclusive")
	assert.False(t, p.Contains(date(2025, 4, 1)))
	assert.False(t, p.Contains(date(2024, 12, 31)))
}

// =============================================================================
// HVUT TAX PERIOD
// =============================================================================

func TestTaxPeriod_MonthsRemaining(t *testing.T) {
	tp := generic.TaxPeriod{StartYear: 2025}
	assert.Equal(t, "2025-2026", tp.String())

	tests := []struct {
		first  time.Time
		months int
	}{
		{date(2025, 7, 1), 12},
		{date(2025, 8, 1), 11},
		{date(2025, 12, 1), 7},
		{date(2026, 1, 1), 6},
		{date(2026, 6, 1), 1},
	}
	for _, tt := range tests {
		got, err := tp.MonthsRemaining(tt.first)
		require.NoError(t, err)
		assert.Equal(t, tt.months, got, tt.first.Format("2006-01"))
	}

	_, err := tp.MonthsRemaining(date(2026, 7, 1))
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}

func TestTaxPeriod_ForAndDueDate(t *testing.T) {
	assert.Equal(t, generic.TaxPeriod{StartYear: 2025}, generic.TaxPeriodFor(date(2025, 7, 15)))
	assert.Equal(t, generic.TaxPeriod{StartYear: 2024}, generic.TaxPeriodFor(date(2025, 6, 30)))

	tp := generic.TaxPeriod{StartYear: 2025}
	assert.Equal(t, date(2025, 8, 31), tp.DueDate(date(2025, 7, 1)))
	assert.Equal(t, date(2026, 1, 31), tp.DueDate(date(2025, 12, 1)))
}

func TestParseMonth(t *testing.T) {
	m, err := generic.ParseMonth("2025-09")
	require.NoError(t, err)
	assert.Equal(t, date(2025, 9, 1), m)

	m, err = generic.ParseMonth(" 2025-09-14 ")
	require.NoError(t, err)
	assert.Equal(t, date(2025, 9, 1), m)

	for _, s := range []string{"", "September", "2025/09", "2025-13"} {
		_, err := generic.ParseMonth(s)
		assert.ErrorIs(t, err, generic.ErrInvalidPeriod, s)
	}
}
