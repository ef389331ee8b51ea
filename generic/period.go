package generic

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is an inclusive [Start, End] range of calendar days in UTC.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains returns true if the day of t is within the period [Start, End]
func (p Period) Contains(t time.Time) bool {
	d := day(t)
	return !d.Before(p.Start) && !d.After(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.Format("2006-01-02") + ", " + p.End.Format("2006-01-02") + "]"
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// =============================================================================
// QUARTER - IFTA reporting period
// =============================================================================

// Quarter is an IFTA reporting quarter. Returns are due on the last day of
// the month following the end of the quarter.
type Quarter struct {
	Year int
	Q    int
}

// ParseQuarter accepts "2025Q1", "2025-Q1" and "Q1 2025" (case-insensitive).
func ParseQuarter(s string) (Quarter, error) {
	raw := strings.ToUpper(strings.TrimSpace(s))
	raw = strings.ReplaceAll(raw, "-", "")
	raw = strings.ReplaceAll(raw, " ", "")

	var yearPart, qPart string
	switch {
	case strings.HasPrefix(raw, "Q") && len(raw) == 6:
		qPart, yearPart = raw[1:2], raw[2:]
	case len(raw) == 6 && raw[4] == 'Q':
		yearPart, qPart = raw[:4], raw[5:]
	default:
		return Quarter{}, fmt.Errorf("%w: cannot parse quarter %q", ErrInvalidPeriod, s)
	}

	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return Quarter{}, fmt.Errorf("%w: bad year in %q", ErrInvalidPeriod, s)
	}
	q, err := strconv.Atoi(qPart)
	if err != nil {
		return Quarter{}, fmt.Errorf("%w: bad quarter number in %q", ErrInvalidPeriod, s)
	}
	qt := Quarter{Year: year, Q: q}
	if err := qt.Validate(); err != nil {
		return Quarter{}, err
	}
	return qt, nil
}

// QuarterFor returns the quarter containing t.
func QuarterFor(t time.Time) Quarter {
	return Quarter{Year: t.Year(), Q: (int(t.Month())-1)/3 + 1}
}

func (q Quarter) Validate() error {
	if q.Q < 1 || q.Q > 4 {
		return fmt.Errorf("%w: quarter must be 1-4, got %d", ErrInvalidPeriod, q.Q)
	}
	if q.Year < 2000 || q.Year > 9999 {
		return fmt.Errorf("%w: year out of range: %d", ErrInvalidPeriod, q.Year)
	}
	return nil
}

func (q Quarter) String() string {
	return fmt.Sprintf("%dQ%d", q.Year, q.Q)
}

// Period returns the calendar days covered by the quarter.
func (q Quarter) Period() Period {
	startMonth := time.Month((q.Q-1)*3 + 1)
	return Period{
		Start: time.Date(q.Year, startMonth, 1, 0, 0, 0, 0, time.UTC),
		End:   endOfMonth(q.Year, startMonth+2),
	}
}

// DueDate is the last day of the month after the quarter ends.
func (q Quarter) DueDate() time.Time {
	end := q.Period().End
	return endOfMonth(end.Year(), end.Month()+1)
}

// Next returns the following quarter.
func (q Quarter) Next() Quarter {
	if q.Q == 4 {
		return Quarter{Year: q.Year + 1, Q: 1}
	}
	return Quarter{Year: q.Year, Q: q.Q + 1}
}

// =============================================================================
// TAX PERIOD - HVUT (Form 2290) July through June
// =============================================================================

// TaxPeriod is the HVUT period starting July 1 of StartYear.
type TaxPeriod struct {
	StartYear int
}

// TaxPeriodFor returns the HVUT period containing t.
func TaxPeriodFor(t time.Time) TaxPeriod {
	if t.Month() >= time.July {
		return TaxPeriod{StartYear: t.Year()}
	}
	return TaxPeriod{StartYear: t.Year() - 1}
}

func (tp TaxPeriod) Period() Period {
	return Period{
		Start: time.Date(tp.StartYear, time.July, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(tp.StartYear+1, time.June, 30, 0, 0, 0, 0, time.UTC),
	}
}

func (tp TaxPeriod) String() string {
	return fmt.Sprintf("%d-%d", tp.StartYear, tp.StartYear+1)
}

// MonthsRemaining counts the months from the first-use month through June,
// inclusive. July gives 12, June gives 1.
func (tp TaxPeriod) MonthsRemaining(firstUsed time.Time) (int, error) {
	if !tp.Period().Contains(firstUsed) {
		return 0, fmt.Errorf("%w: first use %s outside tax period %s",
			ErrInvalidPeriod, firstUsed.Format("2006-01"), tp)
	}
	months := (firstUsed.Year()-tp.StartYear)*12 + int(firstUsed.Month()) - int(time.July)
	return 12 - months, nil
}

// DueDate is the last day of the month following the first-use month.
func (tp TaxPeriod) DueDate(firstUsed time.Time) time.Time {
	return endOfMonth(firstUsed.Year(), firstUsed.Month()+1)
}

// ParseMonth reads a first-use month written as "2025-09" (or a full
// "2025-09-14" date, keeping only the month).
func ParseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse month %q (want YYYY-MM)", ErrInvalidPeriod, s)
}
