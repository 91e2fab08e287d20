package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// GetAvailableTimes returns the slots for a service/staff pair on date.
func (c *Client) GetAvailableTimes(ctx context.Context, serviceID, staffID int64, date time.Time) ([]TimeSlot, error) {
	q := url.Values{
		"service": {strconv.FormatInt(serviceID, 10)},
		"staff":   {strconv.FormatInt(staffID, 10)},
		"date":    {date.Format(dateLayout)},
	}
	var slots []TimeSlot
	if err := c.doGet(ctx, "/bookings/available-times/", q, &slots); err != nil {
		return nil, err
	}
	// Slots are for the requested day; the backend may leave the date out.
	day := date.Format(dateLayout)
	for i := range slots {
		if slots[i].Date == "" {
			slots[i].Date = day
			continue
		}
		if _, err := time.Parse(dateLayout, slots[i].Date); err != nil {
			return nil, &RequestFailedError{
				Status: http.StatusOK,
				Err:    &ShapeError{Endpoint: "GET /bookings/available-times/", Err: fmt.Errorf("slot %d: %w", i, err)},
			}
		}
	}
	return slots, nil
}

// CreateAppointment books an appointment.
func (c *Client) CreateAppointment(ctx context.Context, req AppointmentRequest) (*Appointment, error) {
	var appt Appointment
	if err := c.doPost(ctx, "/bookings/", req, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

// ListAppointments returns the current user's appointments. Staff accounts see all of them.
func (c *Client) ListAppointments(ctx context.Context) ([]Appointment, error) {
	return listAll[Appointment](ctx, c, "/bookings/", nil)
}

// GetAppointment returns one appointment.
func (c *Client) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	var appt Appointment
	if err := c.doGet(ctx, fmt.Sprintf("/bookings/%d/", id), nil, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

// CancelAppointment cancels an appointment.
func (c *Client) CancelAppointment(ctx context.Context, id int64) error {
	return c.doDelete(ctx, fmt.Sprintf("/bookings/%d/", id))
}

// DashboardStats returns the admin dashboard tiles.
func (c *Client) DashboardStats(ctx context.Context) ([]StatCard, error) {
	var stats []StatCard
	if err := c.doGet(ctx, "/dashboard/stats/", nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}
