package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func marchCalendar(onSelect func(time.Time, []TimeSlot)) *Calendar {
	return New(Options{
		MinDate:     date(2024, time.March, 10),
		MaxDate:     date(2024, time.June, 10),
		Unavailable: []time.Time{date(2024, time.March, 15)},
		TimeSlots: []TimeSlot{
			{Date: date(2024, time.March, 16), StartTime: "10:00", IsAvailable: true},
			{Date: date(2024, time.March, 16), StartTime: "11:00", IsAvailable: false},
			{Date: date(2024, time.March, 16), StartTime: "14:30", IsAvailable: true},
			{Date: date(2024, time.March, 18), StartTime: "09:00", IsAvailable: true},
		},
		Now:      fixedClock(at(2024, time.March, 10, 11, 0)),
		OnSelect: onSelect,
	})
}

func TestCalendar_MarchScenario(t *testing.T) {
	c := marchCalendar(nil)
	require.Equal(t, date(2024, time.March, 1), c.Month())

	for d := date(2024, time.March, 1); !d.After(date(2024, time.March, 9)); d = d.AddDate(0, 0, 1) {
		assert.False(t, c.IsSelectable(d), d.Format("2006-01-02"))
	}
	assert.False(t, c.IsSelectable(date(2024, time.February, 28)))
	assert.False(t, c.IsSelectable(date(2024, time.March, 15)))
	assert.True(t, c.IsSelectable(date(2024, time.March, 16)))

	assert.False(t, c.CanPrev())
	assert.True(t, c.CanNext())
	assert.False(t, c.PrevMonth())
	assert.Equal(t, date(2024, time.March, 1), c.Month())
}

func TestCalendar_NavigationBounds(t *testing.T) {
	c := marchCalendar(nil)

	assert.True(t, c.NextMonth())
	assert.True(t, c.NextMonth())
	assert.True(t, c.NextMonth())
	assert.Equal(t, date(2024, time.June, 1), c.Month())
	assert.False(t, c.CanNext())
	assert.False(t, c.NextMonth())

	assert.True(t, c.PrevMonth())
	assert.Equal(t, date(2024, time.May, 1), c.Month())
}

func TestCalendar_SelectDateIdempotent(t *testing.T) {
	calls := 0
	c := marchCalendar(func(time.Time, []TimeSlot) { calls++ })

	require.True(t, c.SelectDate(at(2024, time.March, 16, 13, 0)))
	first, ok := c.Selected()
	require.True(t, ok)
	firstSlots := c.DaySlots()

	require.True(t, c.SelectDate(at(2024, time.March, 16, 13, 0)))
	second, _ := c.Selected()

	assert.Equal(t, first, second)
	assert.Equal(t, date(2024, time.March, 16), second)
	assert.Equal(t, firstSlots, c.DaySlots())
	assert.Equal(t, 2, calls)
}

func TestCalendar_SelectDateFiltersSlots(t *testing.T) {
	c := marchCalendar(nil)

	require.True(t, c.SelectDate(date(2024, time.March, 16)))
	slots := c.DaySlots()
	require.Len(t, slots, 2)
	assert.Equal(t, "10:00", slots[0].StartTime)
	assert.Equal(t, "14:30", slots[1].StartTime)

	require.True(t, c.SelectDate(date(2024, time.March, 17)))
	assert.NotNil(t, c.DaySlots())
	assert.Empty(t, c.DaySlots())
}

func TestCalendar_NonSelectableIsInert(t *testing.T) {
	var selected []time.Time
	c := marchCalendar(func(d time.Time, _ []TimeSlot) { selected = append(selected, d) })

	require.True(t, c.SelectDate(date(2024, time.March, 16)))

	assert.False(t, c.SelectDate(date(2024, time.March, 15)))
	assert.False(t, c.Activate(date(2024, time.March, 9), InputEnter))
	assert.False(t, c.Activate(date(2024, time.June, 10), InputPointer))

	got, _ := c.Selected()
	assert.Equal(t, date(2024, time.March, 16), got)
	assert.Len(t, selected, 1)
}

func TestCalendar_ActivateKeyboardMatchesPointer(t *testing.T) {
	pointer := marchCalendar(nil)
	keyboard := marchCalendar(nil)
	space := marchCalendar(nil)

	require.True(t, pointer.Activate(date(2024, time.March, 16), InputPointer))
	require.True(t, keyboard.Activate(date(2024, time.March, 16), InputEnter))
	require.True(t, space.Activate(date(2024, time.March, 16), InputSpace))

	p, _ := pointer.Selected()
	k, _ := keyboard.Selected()
	s, _ := space.Selected()
	assert.Equal(t, p, k)
	assert.Equal(t, p, s)
	assert.Equal(t, pointer.DaySlots(), keyboard.DaySlots())

	other := marchCalendar(nil)
	assert.False(t, other.Activate(date(2024, time.March, 16), InputOtherKey))
	_, ok := other.Selected()
	assert.False(t, ok)
}

func TestCalendar_Cells(t *testing.T) {
	c := marchCalendar(nil)
	require.True(t, c.SelectDate(date(2024, time.March, 16)))

	cells := c.Cells()
	require.Zero(t, len(cells)%7)

	byDate := make(map[string]Cell)
	for _, cell := range cells {
		if !cell.IsCurrentMonth {
			assert.False(t, cell.Selectable, "padding %s", cell.Date.Format("2006-01-02"))
			assert.False(t, cell.Selected)
			continue
		}
		byDate[cell.Date.Format("2006-01-02")] = cell
	}

	assert.True(t, byDate["2024-03-09"].Unavailable)
	assert.True(t, byDate["2024-03-10"].IsToday)
	assert.True(t, byDate["2024-03-10"].Selectable)
	assert.True(t, byDate["2024-03-15"].Unavailable)
	assert.False(t, byDate["2024-03-15"].Selectable)
	assert.True(t, byDate["2024-03-16"].Selected)
	assert.True(t, byDate["2024-03-16"].Selectable)
}

func TestCalendar_Defaults(t *testing.T) {
	c := New(Options{Now: fixedClock(at(2024, time.March, 10, 11, 0))})

	assert.Equal(t, date(2024, time.March, 10), c.MinDate())
	assert.Equal(t, date(2024, time.June, 10), c.MaxDate())
	assert.False(t, c.CanPrev())
	assert.True(t, c.IsSelectable(date(2024, time.June, 9)))
	assert.False(t, c.IsSelectable(date(2024, time.June, 10)))
}

func TestCalendar_SetTimeSlotsRefilters(t *testing.T) {
	c := marchCalendar(nil)
	c.SetTimeSlots([]TimeSlot{{Date: date(2024, time.March, 20), StartTime: "12:00", IsAvailable: true}})
	assert.Empty(t, c.DaySlots())

	require.True(t, c.SelectDate(date(2024, time.March, 20)))
	require.Len(t, c.DaySlots(), 1)

	c.SetTimeSlots(nil)
	assert.Empty(t, c.DaySlots())

	c.ClearSelection()
	_, ok := c.Selected()
	assert.False(t, ok)
}
