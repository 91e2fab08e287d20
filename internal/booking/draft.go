package booking

import (
	"errors"
	"sync"
	"time"

	"salonbook/internal/api"
	"salonbook/internal/calendar"
)

// ErrNoDate is returned when a time is chosen before a date.
var ErrNoDate = errors.New("select a date before choosing a time")

// Selection is a snapshot of a Draft.
type Selection struct {
	Service *api.Service
	Staff   *api.StaffMember
	Date    time.Time
	Time    string
}

// HasDate reports whether a date is selected.
func (s Selection) HasDate() bool { return !s.Date.IsZero() }

// Complete reports whether the selection can be submitted.
func (s Selection) Complete() bool { return s.Service != nil && s.Staff != nil }

// Draft is the in-progress booking. A time is held only while a date is.
type Draft struct {
	mu      sync.Mutex
	service *api.Service
	staff   *api.StaffMember
	date    time.Time
	time    string
}

// NewDraft returns an empty draft.
func NewDraft() *Draft { return &Draft{} }

// SetService stores the chosen service. The staff choice is left to the caller.
func (d *Draft) SetService(s api.Service) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.service = &s
}

// SetStaff stores the chosen staff member.
func (d *Draft) SetStaff(s api.StaffMember) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.staff = &s
}

// ClearStaff drops the staff choice, e.g. when the service changes.
func (d *Draft) ClearStaff() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.staff = nil
}

// SetDate stores the day of t. Moving to another day drops the chosen time.
func (d *Draft) SetDate(t time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	day := calendar.StartOfDay(t)
	if !d.date.IsZero() && !calendar.SameDay(d.date, day) {
		d.time = ""
	}
	d.date = day
}

// ClearDate clears the date and the time with it.
func (d *Draft) ClearDate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.date = time.Time{}
	d.time = ""
}

// SetTime stores a slot start time for the selected date.
func (d *Draft) SetTime(slot string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.date.IsZero() {
		return ErrNoDate
	}
	d.time = slot
	return nil
}

// Service returns the selected service, or nil.
func (d *Draft) Service() *api.Service {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.service == nil {
		return nil
	}
	s := *d.service
	return &s
}

// Staff returns the selected staff member, or nil.
func (d *Draft) Staff() *api.StaffMember {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.staff == nil {
		return nil
	}
	s := *d.staff
	return &s
}

// Snapshot copies the current selection.
func (d *Draft) Snapshot() Selection {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel := Selection{Date: d.date, Time: d.time}
	if d.service != nil {
		s := *d.service
		sel.Service = &s
	}
	if d.staff != nil {
		s := *d.staff
		sel.Staff = &s
	}
	return sel
}

// Reset empties the draft.
func (d *Draft) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.service = nil
	d.staff = nil
	d.date = time.Time{}
	d.time = ""
}
