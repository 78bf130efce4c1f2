package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period identifies one audited month, the unit every run is keyed by.
type Period struct {
	Year  int
	Month time.Month
}

// Parse parses "YYYY-MM" into a Period.
func Parse(s string) (Period, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return Period{}, fmt.Errorf("invalid period format: %q", s)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Period{}, fmt.Errorf("invalid year in period %q: %w", s, err)
	}

	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return Period{}, fmt.Errorf("invalid month in period %q: %w", s, err)
	}
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("month out of range in period %q", s)
	}

	return Period{Year: year, Month: time.Month(month)}, nil
}

// Of returns the period containing a date.
func Of(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// String formats the period as "YYYY-MM".
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Prev returns the preceding month.
func (p Period) Prev() Period {
	return Of(p.Start().AddDate(0, -1, 0))
}

// Next returns the following month.
func (p Period) Next() Period {
	return Of(p.Start().AddDate(0, 1, 0))
}

// Start returns the first day of the period (UTC midnight).
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the period (UTC midnight).
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

// Contains reports whether a date falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}
