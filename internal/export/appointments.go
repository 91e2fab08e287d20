package export

import (
	"fmt"
	"io"

	"salonbook/internal/api"
)

var appointmentColumns = []string{"ID", "Date", "Start", "End", "Service", "Staff", "Status", "Total", "Notes", "Special requests"}

// Appointments writes one row per appointment and, when given, a sheet of dashboard tiles.
func Appointments(out io.Writer, appts []api.Appointment, stats []api.StatCard) error {
	wb := newWorkbook()
	if err := wb.addSheet("Appointments"); err != nil {
		return err
	}
	if err := wb.header(appointmentColumns...); err != nil {
		return err
	}
	for _, a := range appts {
		if err := wb.write(appointmentRow(a)); err != nil {
			return fmt.Errorf("appointment %d: %w", a.ID, err)
		}
	}

	if len(stats) > 0 {
		if err := wb.addSheet("Stats"); err != nil {
			return err
		}
		if err := wb.header("Metric", "Value"); err != nil {
			return err
		}
		for _, s := range stats {
			if err := wb.write([]any{s.Title, fmt.Sprint(s.Value)}); err != nil {
				return err
			}
		}
	}
	return wb.save(out)
}

func appointmentRow(a api.Appointment) []any {
	service := ""
	if a.Service != nil {
		service = a.Service.Name
	}
	staff := ""
	if a.Staff != nil {
		staff = a.Staff.DisplayName()
	}
	return []any{a.ID, a.AppointmentDate, a.StartTime, a.EndTime, service, staff, a.Status, a.TotalAmount, a.Notes, a.SpecialRequests}
}
