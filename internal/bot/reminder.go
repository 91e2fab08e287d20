package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"salonbook/internal/api"
	"salonbook/internal/calendar"
	"salonbook/internal/metrics"
)

// StartReminders schedules daily reminders for next-day appointments at hour, salon time.
func (b *Bot) StartReminders(ctx context.Context, hour int) {
	go func() {
		timer := time.NewTimer(b.timeUntilNextHour(hour))
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				b.sendTomorrowReminders(ctx)
				timer.Reset(b.timeUntilNextHour(hour))
			}
		}
	}()
}

func (b *Bot) sendTomorrowReminders(ctx context.Context) int {
	tomorrow := calendar.StartOfDay(b.now()).AddDate(0, 0, 1).Format(dateData)
	sent := 0
	for _, f := range b.reminderFlows(ctx) {
		if !f.session.IsAuthenticated() {
			continue
		}
		appts, err := f.client.ListAppointments(ctx)
		if err != nil {
			b.logger.Warn().Err(err).Int64("user_id", f.userID).Msg("reminder: list appointments")
			continue
		}
		for _, a := range appts {
			if a.AppointmentDate != tomorrow || !shouldRemindStatus(a.Status) {
				continue
			}
			if _, err := b.tg.Send(tgbotapi.NewMessage(f.chatID, formatReminderMessage(a))); err != nil {
				b.logger.Warn().Err(err).Int64("user_id", f.userID).Int64("appointment_id", a.ID).Msg("reminder: send")
				metrics.IncReminderSent("failed")
				continue
			}
			metrics.IncReminderSent("sent")
			sent++
		}
	}
	if sent > 0 {
		b.logger.Info().Int("sent", sent).Str("date", tomorrow).Msg("reminders sent")
	}
	return sent
}

// reminderFlows returns a flow for every user with a stored session.
// Private chats share the user's id, so restored flows reply there.
func (b *Bot) reminderFlows(ctx context.Context) []*flow {
	if b.owners == nil {
		return b.flows.all()
	}
	ids, err := b.owners(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("reminder: list owners")
		return b.flows.all()
	}
	ctx = b.logger.WithContext(ctx)
	out := make([]*flow, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.flowFor(ctx, id, id))
	}
	b.logger.Debug().Int("users", len(out)).Msg("reminder run")
	return out
}

func shouldRemindStatus(status string) bool {
	switch status {
	case api.StatusPending, api.StatusConfirmed:
		return true
	default:
		return false
	}
}

func formatReminderMessage(a api.Appointment) string {
	text := "⏰ Reminder: tomorrow"
	if a.StartTime != "" {
		text += " at " + shortTime(a.StartTime)
	}
	text += " you have an appointment"
	if a.Service != nil {
		text += " for " + a.Service.Name
	}
	if a.Staff != nil {
		text += " with " + a.Staff.DisplayName()
	}
	return text + ". Status: " + a.Status
}

func (b *Bot) timeUntilNextHour(hour int) time.Duration {
	now := b.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
