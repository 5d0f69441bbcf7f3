// Package dates provides calendar-date arithmetic for posting windows.
// Dates carry no timezone; a Date is a calendar day and nothing more.
package dates

import (
	"fmt"
	"time"
)

// Format is the ISO-8601 layout used to represent dates as strings.
const Format = "2006-01-02"

// Unit selects the step size for Shift.
type Unit int

const (
	Days Unit = iota
	Weeks
	Years
)

// Date represents a date with day-level granularity.
type Date struct {
	y int
	m time.Month
	d int
}

// New returns a normalized Date for the given year, month, and day.
func New(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// Today returns the current date.
func Today() Date { return New(time.Now().Date()) }

// Parse parses an ISO-8601 date string.
func Parse(s string) (Date, error) {
	t, err := time.Parse(Format, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", s, Format, err)
	}
	return New(t.Date()), nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// Year returns the year of the date.
func (d Date) Year() int { return d.y }

// Month returns the month of the date.
func (d Date) Month() time.Month { return d.m }

// Day returns the day of the month.
func (d Date) Day() int { return d.d }

// IsZero reports whether d is the zero value.
func (d Date) IsZero() bool { return d.y == 0 && d.m == 0 && d.d == 0 }

// String formats the date as ISO-8601.
func (d Date) String() string { return d.time().Format(Format) }

// Before reports whether d is before x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether d is after x.
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// Add returns a new Date with the given number of days added.
func (d Date) Add(days int) Date { return New(d.y, d.m, d.d+days) }

// DayOfWeek returns the weekday with 0=Monday through 6=Sunday.
func (d Date) DayOfWeek() int {
	return (int(d.time().Weekday()) + 6) % 7
}

// isWeekend reports whether d falls on a Saturday or Sunday.
func (d Date) isWeekend() bool { return d.DayOfWeek() >= 5 }

// Shift moves the date by n units. With skipWeekends set, any step that
// lands on a Saturday or Sunday is carried one further day in the same
// direction until a weekday is reached.
func (d Date) Shift(n int, unit Unit, skipWeekends bool) Date {
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	out := d
	for i := 0; i < n; i++ {
		switch unit {
		case Weeks:
			out = out.Add(step * 7)
		case Years:
			out = New(out.y+step, out.m, out.d)
		default:
			out = out.Add(step)
		}
		if skipWeekends {
			for out.isWeekend() {
				out = out.Add(step)
			}
		}
	}
	return out
}
