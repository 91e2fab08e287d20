package calendar

import (
	"time"
)

// Input identifies how a day cell was activated.
type Input int

const (
	InputPointer Input = iota
	InputEnter
	InputSpace
	InputOtherKey
)

// Cell is a grid day annotated with its selection state.
type Cell struct {
	Day
	Selectable  bool
	Unavailable bool
	Selected    bool
}

// Options configure a Calendar. Zero values fall back to defaults relative to Now.
type Options struct {
	MinDate     time.Time
	MaxDate     time.Time
	Unavailable []time.Time
	TimeSlots   []TimeSlot
	WeekStart   time.Weekday
	Now         func() time.Time
	// OnSelect is called after a date was accepted by SelectDate.
	OnSelect func(date time.Time, slots []TimeSlot)
}

// Calendar is the stateful month view used by the booking flow.
// It is owned by a single flow and is not safe for concurrent use.
type Calendar struct {
	now         func() time.Time
	minDate     time.Time
	maxDate     time.Time
	unavailable []time.Time
	slots       []TimeSlot
	weekStart   time.Weekday
	onSelect    func(time.Time, []TimeSlot)

	month    time.Time
	selected time.Time
	daySlots []TimeSlot
}

// New creates a calendar showing the current month.
func New(opts Options) *Calendar {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	today := StartOfDay(now())

	c := &Calendar{
		now:         now,
		minDate:     opts.MinDate,
		maxDate:     opts.MaxDate,
		unavailable: append([]time.Time(nil), opts.Unavailable...),
		slots:       append([]TimeSlot(nil), opts.TimeSlots...),
		weekStart:   opts.WeekStart,
		onSelect:    opts.OnSelect,
		month:       StartOfMonth(today),
		daySlots:    []TimeSlot{},
	}
	if c.minDate.IsZero() {
		c.minDate = today
	}
	if c.maxDate.IsZero() {
		c.maxDate = DefaultMaxDate(today)
	}
	return c
}

// Month returns the first day of the displayed month.
func (c *Calendar) Month() time.Time { return c.month }

// MinDate returns the lower navigation bound.
func (c *Calendar) MinDate() time.Time { return c.minDate }

// MaxDate returns the exclusive selection bound.
func (c *Calendar) MaxDate() time.Time { return c.maxDate }

// ShowMonth jumps to the month containing t without bound checks.
func (c *Calendar) ShowMonth(t time.Time) {
	c.month = StartOfMonth(t)
}

// Days returns the grid of the displayed month.
func (c *Calendar) Days() []Day {
	return BuildMonthGrid(c.month, c.now(), c.weekStart)
}

// Cells returns the grid with selection flags. Padding days are never selectable.
func (c *Calendar) Cells() []Cell {
	now := c.now()
	days := BuildMonthGrid(c.month, now, c.weekStart)
	cells := make([]Cell, len(days))
	for i, d := range days {
		cells[i] = Cell{Day: d}
		if !d.IsCurrentMonth {
			continue
		}
		cells[i].Unavailable = IsUnavailable(d.Date, c.unavailable, now)
		cells[i].Selectable = IsSelectable(d.Date, c.unavailable, c.maxDate, now)
		cells[i].Selected = !c.selected.IsZero() && SameDay(d.Date, c.selected)
	}
	return cells
}

// IsSelectable reports whether date can be picked right now.
func (c *Calendar) IsSelectable(date time.Time) bool {
	return IsSelectable(date, c.unavailable, c.maxDate, c.now())
}

// CanPrev reports whether the previous month may be shown.
func (c *Calendar) CanPrev() bool {
	return CanNavigate(Previous, c.month, c.minDate, c.maxDate)
}

// CanNext reports whether the next month may be shown.
func (c *Calendar) CanNext() bool {
	return CanNavigate(Next, c.month, c.minDate, c.maxDate)
}

// PrevMonth moves one month back if allowed.
func (c *Calendar) PrevMonth() bool {
	if !c.CanPrev() {
		return false
	}
	c.month = c.month.AddDate(0, -1, 0)
	return true
}

// NextMonth moves one month forward if allowed.
func (c *Calendar) NextMonth() bool {
	if !c.CanNext() {
		return false
	}
	c.month = c.month.AddDate(0, 1, 0)
	return true
}

// SelectDate selects date and recomputes its time slots. Non-selectable dates are ignored.
func (c *Calendar) SelectDate(date time.Time) bool {
	if !c.IsSelectable(date) {
		return false
	}
	c.selected = StartOfDay(date)
	c.daySlots = FilterTimeSlots(c.slots, c.selected)
	if c.onSelect != nil {
		c.onSelect(c.selected, c.daySlots)
	}
	return true
}

// Activate handles a pointer click or a key press on a day cell.
// Enter and Space go through SelectDate exactly like a click; other keys do nothing.
func (c *Calendar) Activate(date time.Time, in Input) bool {
	switch in {
	case InputPointer, InputEnter, InputSpace:
		return c.SelectDate(date)
	default:
		return false
	}
}

// Selected returns the selected date, if any.
func (c *Calendar) Selected() (time.Time, bool) {
	return c.selected, !c.selected.IsZero()
}

// ClearSelection drops the selected date and its slots.
func (c *Calendar) ClearSelection() {
	c.selected = time.Time{}
	c.daySlots = []TimeSlot{}
}

// DaySlots returns the available slots of the selected day.
func (c *Calendar) DaySlots() []TimeSlot {
	out := make([]TimeSlot, len(c.daySlots))
	copy(out, c.daySlots)
	return out
}

// SetUnavailable replaces the set of blocked dates.
func (c *Calendar) SetUnavailable(dates []time.Time) {
	c.unavailable = append([]time.Time(nil), dates...)
}

// SetTimeSlots replaces slot data and refilters it for the current selection.
func (c *Calendar) SetTimeSlots(slots []TimeSlot) {
	c.slots = append([]TimeSlot(nil), slots...)
	if c.selected.IsZero() {
		c.daySlots = []TimeSlot{}
		return
	}
	c.daySlots = FilterTimeSlots(c.slots, c.selected)
}
