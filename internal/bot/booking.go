package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"salonbook/internal/api"
	"salonbook/internal/booking"
	"salonbook/internal/calendar"
)

func (b *Bot) handleBook(ctx context.Context, f *flow, args []string) {
	switch len(args) {
	case 0:
		b.startBooking(ctx, f, "")
	case 1:
		if id, ok := parseID(args[0], ""); ok {
			b.startBooking(ctx, f, strconv.FormatInt(id, 10))
			return
		}
		fallthrough
	default:
		b.reply(f.chatID, "Usage: /book [category id]. See /categories.")
	}
}

// startBooking lists the services to choose from. A non-empty category narrows the list.
func (b *Bot) startBooking(ctx context.Context, f *flow, category string) {
	if !b.requireAuth(f) {
		return
	}
	f.resetBooking()
	var (
		services []api.Service
		err      error
	)
	if category == "" {
		services, err = f.client.ListServices(ctx)
	} else {
		services, err = f.client.ListServicesInCategory(ctx, category)
	}
	if err != nil {
		b.replyErr(f, err, "Failed to load services")
		return
	}
	f.setServices(services)
	f.booking.Prefill(f.session.Identity())
	b.sendServices(f)
}

func (b *Bot) handleCategories(ctx context.Context, f *flow) {
	cats, err := f.client.ListCategories(ctx)
	if err != nil {
		b.replyErr(f, err, "Failed to load categories")
		return
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, c := range cats {
		if !c.IsActive {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(c.Name, "cat:"+strconv.FormatInt(c.ID, 10)),
		))
	}
	if len(rows) == 0 {
		b.reply(f.chatID, "No categories yet. Use /book to see every service.")
		return
	}
	msg := tgbotapi.NewMessage(f.chatID, "Choose a category:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.send(msg)
}

func (b *Bot) handleCategoryCallback(ctx context.Context, f *flow, data string) {
	id, ok := parseID(data, "cat:")
	if !ok {
		b.reply(f.chatID, "Invalid category")
		return
	}
	b.startBooking(ctx, f, strconv.FormatInt(id, 10))
}

func (b *Bot) sendServices(f *flow) {
	kb := servicesKeyboard(f.serviceList())
	if len(kb.InlineKeyboard) == 0 {
		b.reply(f.chatID, "No services are available right now.")
		return
	}
	msg := tgbotapi.NewMessage(f.chatID, "Choose a service:")
	msg.ReplyMarkup = kb
	b.send(msg)
}

func (b *Bot) handleServiceCallback(ctx context.Context, f *flow, data string) {
	id, ok := parseID(data, "svc:")
	if !ok {
		b.reply(f.chatID, "Invalid service")
		return
	}
	svc, ok := f.service(id)
	if !ok {
		b.reply(f.chatID, "This service is no longer listed. Start again with /book.")
		return
	}
	if f.booking.Step() != booking.StepService {
		_ = f.booking.GoTo(booking.StepService)
	}
	f.setCalendar(nil)
	f.booking.ClearDate()

	done := f.booking.SelectService(ctx, svc)
	if err := f.booking.Next(); err != nil {
		b.reply(f.chatID, err.Error())
		return
	}
	b.reply(f.chatID, fmt.Sprintf("%s selected. Loading stylists…", svc.Name))
	go b.awaitStaff(ctx, f, done)
}

// awaitStaff shows the staff list once it has loaded for the still-current service.
func (b *Bot) awaitStaff(ctx context.Context, f *flow, done <-chan error) {
	var err error
	select {
	case <-ctx.Done():
		return
	case err = <-done:
	}
	if err != nil {
		// Stale results are dropped; failures were already reported by the controller.
		if !errors.Is(err, booking.ErrStale) {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("staff not shown")
		}
		return
	}
	b.sendStaff(f)
}

func (b *Bot) sendStaff(f *flow) {
	staff, loaded := f.booking.EligibleStaff()
	if !loaded {
		b.reply(f.chatID, "Stylists are still loading…")
		return
	}
	text := "Choose a stylist:"
	if len(staff) == 0 {
		text = "No stylists offer this service right now."
	}
	msg := tgbotapi.NewMessage(f.chatID, text)
	msg.ReplyMarkup = staffKeyboard(staff)
	b.send(msg)
}

func (b *Bot) handleStaffCallback(f *flow, data string) {
	id, ok := parseID(data, "staff:")
	if !ok {
		b.reply(f.chatID, "Invalid stylist")
		return
	}
	staff, loaded := f.booking.EligibleStaff()
	if !loaded {
		b.reply(f.chatID, "Stylists are still loading…")
		return
	}
	var member *api.StaffMember
	for i := range staff {
		if staff[i].ID == id {
			member = &staff[i]
			break
		}
	}
	if member == nil {
		b.reply(f.chatID, "This stylist does not offer the selected service.")
		return
	}
	switch f.booking.Step() {
	case booking.StepService:
		if err := f.booking.Next(); err != nil {
			b.reply(f.chatID, validationText(err))
			return
		}
	case booking.StepDetails:
		_ = f.booking.GoTo(booking.StepStaff)
	}
	if err := f.booking.SelectStaff(*member); err != nil {
		b.reply(f.chatID, validationText(err))
		return
	}
	if err := f.booking.Next(); err != nil {
		b.reply(f.chatID, validationText(err))
		return
	}

	today := calendar.StartOfDay(b.now())
	cal := calendar.New(calendar.Options{
		MaxDate:     today.AddDate(0, b.maxAdvance, 0),
		Unavailable: b.unavailable(),
		WeekStart:   b.weekStart,
		Now:         b.now,
		OnSelect: func(d time.Time, _ []calendar.TimeSlot) {
			f.booking.SelectDate(d)
		},
	})
	f.setCalendar(cal)
	b.sendCalendar(f, fmt.Sprintf("%s it is. Pick a day:", member.DisplayName()))
}

func (b *Bot) sendCalendar(f *flow, text string) {
	cal := f.calendar()
	if cal == nil {
		b.reply(f.chatID, "Start a booking with /book.")
		return
	}
	msg := tgbotapi.NewMessage(f.chatID, text)
	msg.ReplyMarkup = calendarKeyboard(cal, b.weekStart)
	b.send(msg)
}

func (b *Bot) handleMonthCallback(f *flow, messageID int, data string) {
	cal := f.calendar()
	if cal == nil {
		b.reply(f.chatID, "Start a booking with /book.")
		return
	}
	var moved bool
	if data == "cal:prev" {
		moved = cal.PrevMonth()
	} else {
		moved = cal.NextMonth()
	}
	if !moved {
		return
	}
	b.send(tgbotapi.NewEditMessageReplyMarkup(f.chatID, messageID, calendarKeyboard(cal, b.weekStart)))
}

func (b *Bot) handleDateCallback(ctx context.Context, f *flow, data string) {
	cal := f.calendar()
	if cal == nil {
		b.reply(f.chatID, "Start a booking with /book.")
		return
	}
	day, err := time.ParseInLocation(dateData, strings.TrimPrefix(data, "date:"), b.loc)
	if err != nil {
		b.reply(f.chatID, "Invalid date")
		return
	}
	cal.SetUnavailable(b.unavailable())
	if !cal.Activate(day, calendar.InputPointer) {
		b.reply(f.chatID, "This day is not available. Please pick another one.")
		return
	}

	sel := f.booking.Draft()
	if !sel.Complete() {
		b.reply(f.chatID, booking.MsgIncomplete)
		return
	}
	slots, err := f.client.GetAvailableTimes(ctx, sel.Service.ID, sel.Staff.ID, day)
	if err != nil {
		b.replyErr(f, err, "Failed to load available times")
		return
	}
	cal.SetTimeSlots(api.ToCalendarSlots(slots, b.loc))
	b.sendTimeSlots(f)
}

func (b *Bot) sendTimeSlots(f *flow) {
	cal := f.calendar()
	if cal == nil {
		b.reply(f.chatID, "Start a booking with /book.")
		return
	}
	day, ok := cal.Selected()
	if !ok {
		b.sendCalendar(f, "Pick a day:")
		return
	}
	slots := cal.DaySlots()
	if openSlots(slots) == 0 {
		b.sendCalendar(f, fmt.Sprintf("No free times on %s. Please pick another day:", day.Format("Mon, 2 Jan")))
		return
	}
	msg := tgbotapi.NewMessage(f.chatID, fmt.Sprintf("Free times on %s:", day.Format("Mon, 2 Jan")))
	msg.ReplyMarkup = timeSlotsKeyboard(slots)
	b.send(msg)
}

func (b *Bot) handleSlotCallback(f *flow, data string) {
	cal := f.calendar()
	if cal == nil {
		b.reply(f.chatID, "Start a booking with /book.")
		return
	}
	start := strings.TrimPrefix(data, "slot:")
	found := false
	for _, s := range cal.DaySlots() {
		if s.StartTime == start && s.IsAvailable {
			found = true
			break
		}
	}
	if !found {
		b.reply(f.chatID, "This time is no longer available.")
		return
	}
	if err := f.booking.SelectTime(start); err != nil {
		b.reply(f.chatID, "Please pick a day first.")
		return
	}

	prefilled := f.booking.Form()
	f.updateDetails(func(d *booking.DetailsForm) {
		d.Name, d.Email, d.Phone = prefilled.Name, prefilled.Email, prefilled.Phone
	})
	b.prompt(f, inputName)
}

// prompt asks for the next contact field.
func (b *Bot) prompt(f *flow, step inputStep) {
	f.setInput(step)
	form := f.details()
	switch step {
	case inputName:
		b.reply(f.chatID, "Your name"+keepHint(form.Name)+":")
	case inputEmail:
		b.reply(f.chatID, "Your email"+keepHint(form.Email)+":")
	case inputPhone:
		b.reply(f.chatID, "Your phone number"+keepHint(form.Phone)+":")
	case inputNotes:
		b.reply(f.chatID, `Any notes for your stylist? Send "-" to skip.`)
	case inputTerms:
		msg := tgbotapi.NewMessage(f.chatID, "Please accept the terms and conditions to continue.")
		msg.ReplyMarkup = termsKeyboard()
		b.send(msg)
	case inputConfirm:
		b.sendConfirm(f)
	}
}

func keepHint(v string) string {
	if v == "" {
		return ""
	}
	return fmt.Sprintf(` (send "-" to keep %q)`, v)
}

func (b *Bot) handleInput(ctx context.Context, f *flow, text string) {
	step := f.currentInput()
	keep := text == "-"

	switch step {
	case inputName:
		form := f.updateDetails(func(d *booking.DetailsForm) {
			if !keep {
				d.Name = text
			}
		})
		if b.rejectField(f, form, "name") {
			return
		}
		b.prompt(f, inputEmail)
	case inputEmail:
		form := f.updateDetails(func(d *booking.DetailsForm) {
			if !keep {
				d.Email = text
			}
		})
		if b.rejectField(f, form, "email") {
			return
		}
		b.prompt(f, inputPhone)
	case inputPhone:
		if !keep {
			phone, ok := booking.NormalizePhone(text)
			if !ok {
				b.reply(f.chatID, "Invalid phone number. Example: +1 555 123 4567")
				return
			}
			text = phone
		}
		form := f.updateDetails(func(d *booking.DetailsForm) {
			if !keep {
				d.Phone = text
			}
		})
		if b.rejectField(f, form, "phone") {
			return
		}
		b.prompt(f, inputNotes)
	case inputNotes:
		f.updateDetails(func(d *booking.DetailsForm) {
			if keep {
				d.Notes = ""
			} else {
				d.Notes = text
			}
		})
		b.prompt(f, inputTerms)
	case inputTerms, inputConfirm:
		b.reply(f.chatID, "Please use the buttons above, or /cancel.")
	default:
		zerolog.Ctx(ctx).Debug().Int64("user_id", f.userID).Msg("text outside of a flow")
		b.reply(f.chatID, msgHelp)
	}
}

// rejectField reports a validation failure of field and keeps the prompt open.
func (b *Bot) rejectField(f *flow, form booking.DetailsForm, field string) bool {
	var ve *booking.ValidationError
	if err := form.Validate(); errors.As(err, &ve) && ve.Field == field {
		b.reply(f.chatID, ve.Message)
		return true
	}
	return false
}

func (b *Bot) handleTermsCallback(f *flow) {
	if f.currentInput() != inputTerms {
		return
	}
	f.updateDetails(func(d *booking.DetailsForm) { d.AcceptTerms = true })
	b.prompt(f, inputConfirm)
}

func (b *Bot) sendConfirm(f *flow) {
	sel := f.booking.Draft()
	form := f.details()
	if !sel.Complete() {
		b.reply(f.chatID, booking.MsgIncomplete)
		return
	}

	var sb strings.Builder
	sb.WriteString("Please confirm your booking:\n\n")
	fmt.Fprintf(&sb, "💇 %s\n", sel.Service.Name)
	if sel.Service.FinalPrice != "" {
		fmt.Fprintf(&sb, "💰 %s\n", sel.Service.FinalPrice)
	}
	fmt.Fprintf(&sb, "👤 %s\n", sel.Staff.DisplayName())
	if sel.HasDate() {
		fmt.Fprintf(&sb, "📅 %s", sel.Date.Format("Mon, 2 Jan 2006"))
		if sel.Time != "" {
			fmt.Fprintf(&sb, " at %s", sel.Time)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\n%s\n%s\n%s", form.Name, form.Email, form.Phone)
	if form.Notes != "" {
		fmt.Fprintf(&sb, "\nNotes: %s", form.Notes)
	}

	msg := tgbotapi.NewMessage(f.chatID, sb.String())
	msg.ReplyMarkup = confirmKeyboard()
	b.send(msg)
}

func (b *Bot) handleConfirmCallback(ctx context.Context, f *flow) {
	if f.currentInput() != inputConfirm {
		return
	}
	appt, err := f.booking.Submit(ctx, f.details())
	var ve *booking.ValidationError
	switch {
	case err == nil:
		zerolog.Ctx(ctx).Info().Int64("user_id", f.userID).Int64("appointment_id", appt.ID).Msg("appointment booked")
		f.resetBooking()
	case errors.As(err, &ve):
		if step, ok := fieldInput[ve.Field]; ok {
			b.reply(f.chatID, ve.Message)
			b.prompt(f, step)
		}
		// Incomplete selections were reported by the controller.
	case errors.Is(err, booking.ErrSubmitInFlight):
		b.reply(f.chatID, "Your booking is being submitted…")
	case errors.Is(err, api.ErrAuthExpired):
	default:
		// The controller reported the failure; the draft is kept for a retry.
		b.sendConfirm(f)
	}
}

var fieldInput = map[string]inputStep{
	"name":  inputName,
	"email": inputEmail,
	"phone": inputPhone,
	"terms": inputTerms,
}

func (b *Bot) handleBack(f *flow, data string) {
	switch strings.TrimPrefix(data, "back:") {
	case "service":
		if f.booking.Step() != booking.StepService {
			_ = f.booking.GoTo(booking.StepService)
		}
		f.setCalendar(nil)
		f.setInput(inputNone)
		f.booking.ClearDate()
		b.sendServices(f)
	case "staff":
		if f.booking.Step() == booking.StepDetails {
			_ = f.booking.GoTo(booking.StepStaff)
		}
		f.setCalendar(nil)
		f.setInput(inputNone)
		f.booking.ClearDate()
		b.sendStaff(f)
	case "date":
		if cal := f.calendar(); cal != nil {
			cal.ClearSelection()
		}
		f.setInput(inputNone)
		f.booking.ClearDate()
		b.sendCalendar(f, "Pick a day:")
	case "time":
		f.setInput(inputNone)
		b.sendTimeSlots(f)
	}
}

func validationText(err error) string {
	var ve *booking.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return err.Error()
}
