package calendar

import (
	"time"
)

// Calendar answers business-day questions for settlement date arithmetic.
// Non-business days are weekends, a fixed set of national civil holidays,
// movable holidays derived from Easter, and any configured extra dates.
type Calendar struct {
	fixed map[monthDay]bool
	extra map[time.Time]bool
}

type monthDay struct {
	month time.Month
	day   int
}

// Brazilian national civil holidays that fall on the same date every year.
var nationalHolidays = []monthDay{
	{time.January, 1},   // Confraternização Universal
	{time.April, 21},    // Tiradentes
	{time.May, 1},       // Dia do Trabalho
	{time.September, 7}, // Independência
	{time.October, 12},  // Nossa Senhora Aparecida
	{time.November, 2},  // Finados
	{time.November, 15}, // Proclamação da República
	{time.December, 25}, // Natal
}

// New builds a Calendar with the national holiday set plus any extra
// specific dates (regional or bank holidays) from configuration.
func New(extra ...time.Time) Calendar {
	c := Calendar{
		fixed: make(map[monthDay]bool, len(nationalHolidays)),
		extra: make(map[time.Time]bool, len(extra)),
	}
	for _, md := range nationalHolidays {
		c.fixed[md] = true
	}
	for _, d := range extra {
		c.extra[day(d)] = true
	}
	return c
}

// IsBusinessDay reports whether settlements can land on the given date.
func (c Calendar) IsBusinessDay(t time.Time) bool {
	d := day(t)
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	if c.fixed[monthDay{d.Month(), d.Day()}] {
		return false
	}
	if c.extra[d] {
		return false
	}
	return !isMovableHoliday(d)
}

// NextBusinessDay returns the smallest business day greater than or equal
// to the input. Holiday runs in Brazil never exceed a handful of days, so
// this terminates within a week.
func (c Calendar) NextBusinessDay(t time.Time) time.Time {
	d := day(t)
	for !c.IsBusinessDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// AddBusinessDays steps n business days forward (or backward when n is
// negative), skipping non-business days. n == 0 returns the date unchanged.
func (c Calendar) AddBusinessDays(t time.Time, n int) time.Time {
	d := day(t)
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	for n > 0 {
		d = d.AddDate(0, 0, step)
		if c.IsBusinessDay(d) {
			n--
		}
	}
	return d
}

// isMovableHoliday covers the Easter-derived holidays: Carnival Monday and
// Tuesday (Easter-48/-47), Good Friday (Easter-2) and Corpus Christi
// (Easter+60).
func isMovableHoliday(d time.Time) bool {
	easter := EasterSunday(d.Year())
	for _, offset := range []int{-48, -47, -2, 60} {
		if d.Equal(easter.AddDate(0, 0, offset)) {
			return true
		}
	}
	return false
}

// EasterSunday computes Easter for a year using the Meeus/Jones/Butcher
// Gregorian algorithm.
func EasterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	dayOfMonth := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), dayOfMonth, 0, 0, 0, 0, time.UTC)
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
