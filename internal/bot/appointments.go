package bot

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"salonbook/internal/api"
	"salonbook/internal/export"
)

func (b *Bot) handleMyBookings(ctx context.Context, f *flow, page, messageID int) {
	if !b.requireAuth(f) {
		return
	}
	appts, err := f.client.ListAppointments(ctx)
	if err != nil {
		b.replyErr(f, err, "Failed to load appointments")
		return
	}

	items := make([]pageItem, 0, len(appts))
	for _, a := range appts {
		item := pageItem{Text: appointmentLine(a)}
		if cancellable(a.Status) {
			item.Buttons = []tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("❌ Cancel #%d", a.ID), fmt.Sprintf("appt:cancel:%d", a.ID)),
			}
		}
		items = append(items, item)
	}
	b.renderPage(pageParams{
		ChatID:     f.chatID,
		MessageID:  messageID,
		Page:       page,
		Title:      "📌 Your appointments",
		Empty:      "You have no appointments. Use /book to make one.",
		Items:      items,
		PagePrefix: "apage:",
	})
}

func (b *Bot) handleCancelAppointment(ctx context.Context, f *flow, data string) {
	if !b.requireAuth(f) {
		return
	}
	id, ok := parseID(data, "appt:cancel:")
	if !ok {
		return
	}
	if err := f.client.CancelAppointment(ctx, id); err != nil {
		b.replyErr(f, err, "Failed to cancel appointment")
		return
	}
	zerolog.Ctx(ctx).Info().Int64("user_id", f.userID).Int64("appointment_id", id).Msg("appointment cancelled")
	b.reply(f.chatID, fmt.Sprintf("Appointment #%d cancelled.", id))
}

// handleExport sends staff members an XLSX of all appointments.
func (b *Bot) handleExport(ctx context.Context, f *flow) {
	if !b.requireStaff(f) {
		return
	}

	appts, err := api.Appointments(f.client).List(ctx, nil)
	if err != nil {
		b.replyErr(f, err, "Failed to load appointments")
		return
	}
	stats, err := f.client.DashboardStats(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("dashboard stats skipped")
		stats = nil
	}

	var buf bytes.Buffer
	if err := export.Appointments(&buf, appts, stats); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("export appointments")
		b.reply(f.chatID, "⚠️ Failed to build the export")
		return
	}
	doc := tgbotapi.NewDocument(f.chatID, tgbotapi.FileBytes{
		Name:  "appointments-" + b.now().Format("20060102") + ".xlsx",
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("%d appointments", len(appts))
	b.send(doc)
}

func cancellable(status string) bool {
	switch status {
	case api.StatusPending, api.StatusConfirmed:
		return true
	default:
		return false
	}
}

func appointmentLine(a api.Appointment) string {
	var sb strings.Builder
	sb.WriteString("#" + strconv.FormatInt(a.ID, 10))
	if a.Service != nil {
		sb.WriteString(" " + a.Service.Name)
	}
	if a.Staff != nil {
		sb.WriteString(" with " + a.Staff.DisplayName())
	}
	if a.AppointmentDate != "" {
		sb.WriteString("\n📅 " + a.AppointmentDate)
		if a.StartTime != "" {
			sb.WriteString(" " + shortTime(a.StartTime))
		}
	}
	sb.WriteString("\nStatus: " + a.Status)
	return sb.String()
}

// shortTime trims seconds from "14:30:00".
func shortTime(t string) string {
	if len(t) == len("15:04:05") && t[5] == ':' {
		return t[:5]
	}
	return t
}
