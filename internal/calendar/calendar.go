// Package calendar computes month grids, day selectability and per-day time slots
// for the booking flow. Everything here works at calendar-day granularity.
package calendar

import (
	"time"
)

// Day is one cell of a month grid.
type Day struct {
	Date           time.Time
	IsCurrentMonth bool
	IsToday        bool
}

// TimeSlot is a bookable start time on a given day as reported by the scheduling service.
// StartTime is salon-local wall time ("14:30") and is never converted.
type TimeSlot struct {
	Date        time.Time
	StartTime   string
	IsAvailable bool
}

// Direction of month navigation.
type Direction int

const (
	Previous Direction = iota
	Next
)

// DefaultLookaheadMonths is how far ahead bookings are accepted when no max date is given.
const DefaultLookaheadMonths = 3

// BuildMonthGrid returns the display grid for the month containing anchor, padded with
// days of the neighbouring months so that it always consists of complete weeks.
func BuildMonthGrid(anchor, now time.Time, weekStart time.Weekday) []Day {
	first := StartOfMonth(anchor)
	n := daysIn(first.Month(), first.Year())

	lead := (int(first.Weekday()) - int(weekStart) + 7) % 7
	cells := lead + n
	if rem := cells % 7; rem != 0 {
		cells += 7 - rem
	}

	start := first.AddDate(0, 0, -lead)
	days := make([]Day, 0, cells)
	for i := 0; i < cells; i++ {
		d := start.AddDate(0, 0, i)
		days = append(days, Day{
			Date:           d,
			IsCurrentMonth: d.Year() == first.Year() && d.Month() == first.Month(),
			IsToday:        SameDay(d, now),
		})
	}
	return days
}

// IsUnavailable reports whether date lies before today or matches one of the unavailable dates.
func IsUnavailable(date time.Time, unavailable []time.Time, now time.Time) bool {
	if civil(date).Before(civil(now)) {
		return true
	}
	for _, u := range unavailable {
		if SameDay(u, date) {
			return true
		}
	}
	return false
}

// IsSelectable reports whether date can be picked. maxDate is an exclusive bound.
func IsSelectable(date time.Time, unavailable []time.Time, maxDate, now time.Time) bool {
	if IsUnavailable(date, unavailable, now) {
		return false
	}
	return civil(date).Before(civil(maxDate))
}

// CanNavigate reports whether moving from currentMonth in dir keeps the view inside
// the [minDate month, maxDate month] window.
func CanNavigate(dir Direction, currentMonth, minDate, maxDate time.Time) bool {
	cur := StartOfMonth(currentMonth)
	switch dir {
	case Previous:
		prev := cur.AddDate(0, -1, 0)
		return !civil(prev).Before(civil(StartOfMonth(minDate)))
	case Next:
		next := cur.AddDate(0, 1, 0)
		return !civil(maxDate).Before(civil(next))
	default:
		return false
	}
}

// FilterTimeSlots returns the available slots of the given day. No data yields an empty slice.
func FilterTimeSlots(slots []TimeSlot, date time.Time) []TimeSlot {
	out := make([]TimeSlot, 0, len(slots))
	for _, s := range slots {
		if s.IsAvailable && SameDay(s.Date, date) {
			out = append(out, s)
		}
	}
	return out
}

// DefaultMaxDate is today plus DefaultLookaheadMonths calendar months.
func DefaultMaxDate(now time.Time) time.Time {
	return StartOfDay(now).AddDate(0, DefaultLookaheadMonths, 0)
}

// SameDay compares two instants by their calendar date, ignoring time of day.
func SameDay(a, b time.Time) bool {
	return civil(a).Equal(civil(b))
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfMonth returns midnight of the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// civil maps t onto its wall-clock date so that values from different locations
// compare by the date they display.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysIn(m time.Month, year int) int {
	switch m {
	case time.February:
		if (year%4 == 0 && year%100 != 0) || year%400 == 0 {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}
