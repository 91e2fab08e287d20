package bot

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"salonbook/internal/api"
	"salonbook/internal/calendar"
)

const (
	backLabel = "⬅️ Back"
	dateData  = "2006-01-02"
)

var weekdayLabels = [7]string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}

// servicesKeyboard lists active services, one per row.
func servicesKeyboard(services []api.Service) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(services))
	for _, s := range services {
		if !s.IsActive {
			continue
		}
		label := s.Name
		if s.FinalPrice != "" {
			label = fmt.Sprintf("%s · %s", s.Name, s.FinalPrice)
		}
		if s.IsPopular {
			label = "⭐ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("svc:%d", s.ID)),
		))
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// staffKeyboard lists the staff able to perform the selected service.
func staffKeyboard(staff []api.StaffMember) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(staff)+1)
	for _, s := range staff {
		label := s.DisplayName()
		if s.Title != "" {
			label = fmt.Sprintf("%s (%s)", label, s.Title)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("staff:%d", s.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(backLabel, "back:service"),
	))
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// calendarKeyboard renders the displayed month of cal.
// Padding and non-selectable days are inert; navigation buttons appear only when allowed.
func calendarKeyboard(cal *calendar.Calendar, weekStart time.Weekday) tgbotapi.InlineKeyboardMarkup {
	month := cal.Month()
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 9)
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData(month.Format("January 2006"), "noop"),
	})

	header := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for i := 0; i < 7; i++ {
		header = append(header, tgbotapi.NewInlineKeyboardButtonData(weekdayLabels[(int(weekStart)+i)%7], "noop"))
	}
	rows = append(rows, header)

	cells := cal.Cells()
	for start := 0; start < len(cells); start += 7 {
		row := make([]tgbotapi.InlineKeyboardButton, 0, 7)
		for _, c := range cells[start : start+7] {
			row = append(row, dayButton(c))
		}
		rows = append(rows, row)
	}

	var nav []tgbotapi.InlineKeyboardButton
	if cal.CanPrev() {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("◀️", "cal:prev"))
	}
	if cal.CanNext() {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("▶️", "cal:next"))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData(backLabel, "back:staff"),
	})
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func dayButton(c calendar.Cell) tgbotapi.InlineKeyboardButton {
	if !c.IsCurrentMonth {
		return tgbotapi.NewInlineKeyboardButtonData(" ", "noop")
	}
	label := fmt.Sprintf("%d", c.Date.Day())
	switch {
	case c.Selected:
		label = "[" + label + "]"
	case c.IsToday:
		label = "·" + label + "·"
	}
	if !c.Selectable {
		if c.Unavailable {
			label = "✖"
		}
		return tgbotapi.NewInlineKeyboardButtonData(label, "noop")
	}
	return tgbotapi.NewInlineKeyboardButtonData(label, "date:"+c.Date.Format(dateData))
}

// timeSlotsKeyboard lists the open slots of a day, three per row.
func timeSlotsKeyboard(slots []calendar.TimeSlot) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0)
	var currentRow []tgbotapi.InlineKeyboardButton
	for _, slot := range slots {
		if !slot.IsAvailable {
			continue
		}
		currentRow = append(currentRow, tgbotapi.NewInlineKeyboardButtonData(shortTime(slot.StartTime), "slot:"+slot.StartTime))
		if len(currentRow) == 3 {
			rows = append(rows, currentRow)
			currentRow = nil
		}
	}
	if len(currentRow) > 0 {
		rows = append(rows, currentRow)
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData(backLabel, "back:date"),
	})
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func openSlots(slots []calendar.TimeSlot) int {
	n := 0
	for _, s := range slots {
		if s.IsAvailable {
			n++
		}
	}
	return n
}

func termsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ I accept the terms", "terms:yes"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "cancel"),
		),
	)
}

func confirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", "confirm"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "cancel"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(backLabel, "back:time"),
		),
	)
}
