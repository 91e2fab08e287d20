package bot

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"salonbook/internal/api"
)

const (
	usageAdminBookings = "Usage: /admin_bookings [pending|confirmed|completed|cancelled] [YYYY-MM-DD]"
	usageAdminStaff    = "Usage: /admin_staff <id> on|off"
	usageAdminImage    = "Usage: /admin_image <id> feature|unfeature|delete"
	usageAdminService  = "Usage:\n" +
		"/admin_service <id>\n" +
		"/admin_service new <price> <minutes> <name>\n" +
		"/admin_service <id> price <amount>\n" +
		"/admin_service <id> duration <minutes>\n" +
		"/admin_service <id> delete"
)

// requireStaff reports whether the flow is signed in with a staff account.
func (b *Bot) requireStaff(f *flow) bool {
	if !b.requireAuth(f) {
		return false
	}
	if u := f.session.Identity(); u == nil || !u.IsStaff {
		b.reply(f.chatID, "This command is available to staff only.")
		return false
	}
	return true
}

// parseAdminFilter reads an optional status and an optional date in any order.
func parseAdminFilter(args []string) (url.Values, bool) {
	q := url.Values{}
	for _, arg := range args {
		arg = strings.ToLower(arg)
		switch arg {
		case api.StatusPending, api.StatusConfirmed, api.StatusCompleted, api.StatusCancelled:
			if q.Has("status") {
				return nil, false
			}
			q.Set("status", arg)
			continue
		}
		if _, err := time.Parse("2006-01-02", arg); err != nil || q.Has("appointment_date") {
			return nil, false
		}
		q.Set("appointment_date", arg)
	}
	return q, true
}

func (b *Bot) handleAdminBookings(ctx context.Context, f *flow, args []string) {
	if !b.requireStaff(f) {
		return
	}
	q, ok := parseAdminFilter(args)
	if !ok {
		b.reply(f.chatID, usageAdminBookings)
		return
	}
	f.setAdminFilter(q)
	b.renderAdminBookings(ctx, f, 0, 0)
}

func (b *Bot) renderAdminBookings(ctx context.Context, f *flow, page, messageID int) {
	q := f.adminFilterValues()
	appts, err := api.Appointments(f.client).List(ctx, q)
	if err != nil {
		b.replyErr(f, err, "Failed to load appointments")
		return
	}

	items := make([]pageItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, pageItem{Text: appointmentLine(a), Buttons: adminButtons(a)})
	}
	title := "🗂 Appointments"
	if s := q.Get("status"); s != "" {
		title += " · " + s
	}
	if d := q.Get("appointment_date"); d != "" {
		title += " · " + d
	}
	b.renderPage(pageParams{
		ChatID:     f.chatID,
		MessageID:  messageID,
		Page:       page,
		Title:      title,
		Empty:      "No appointments match.",
		Items:      items,
		PagePrefix: "admpage:",
	})
}

func adminButtons(a api.Appointment) []tgbotapi.InlineKeyboardButton {
	var row []tgbotapi.InlineKeyboardButton
	switch a.Status {
	case api.StatusPending:
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", fmt.Sprintf("adm:%s:%d", api.StatusConfirmed, a.ID)))
	case api.StatusConfirmed:
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("🏁 Complete", fmt.Sprintf("adm:%s:%d", api.StatusCompleted, a.ID)))
	}
	if cancellable(a.Status) {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", fmt.Sprintf("adm:cancel:%d", a.ID)))
	}
	return row
}

// handleAdminCallback applies "adm:<action>:<id>" and redraws the list in place.
func (b *Bot) handleAdminCallback(ctx context.Context, f *flow, messageID int, data string) {
	if !b.requireStaff(f) {
		return
	}
	parts := strings.Split(strings.TrimPrefix(data, "adm:"), ":")
	if len(parts) != 2 {
		return
	}
	id, ok := parseID(parts[1], "")
	if !ok {
		return
	}

	var err error
	status := parts[0]
	switch status {
	case "cancel":
		status = api.StatusCancelled
		err = f.client.CancelAppointment(ctx, id)
	case api.StatusConfirmed, api.StatusCompleted:
		_, err = api.Appointments(f.client).Patch(ctx, id, map[string]string{"status": status})
	default:
		return
	}
	if err != nil {
		b.replyErr(f, err, "Failed to update appointment")
		return
	}
	zerolog.Ctx(ctx).Info().Int64("user_id", f.userID).Int64("appointment_id", id).Str("status", status).Msg("appointment updated")
	b.reply(f.chatID, fmt.Sprintf("Appointment #%d is now %s.", id, status))
	b.renderAdminBookings(ctx, f, 0, messageID)
}

func (b *Bot) handleAdminService(ctx context.Context, f *flow, args []string) {
	if !b.requireStaff(f) {
		return
	}
	if len(args) == 0 {
		b.reply(f.chatID, usageAdminService)
		return
	}
	services := api.Services(f.client)

	if len(args) == 1 {
		id, ok := parseID(args[0], "")
		if !ok {
			b.reply(f.chatID, usageAdminService)
			return
		}
		svc, err := services.Get(ctx, id)
		if err != nil {
			b.replyErr(f, err, "Failed to load service")
			return
		}
		state := "active"
		if !svc.IsActive {
			state = "inactive"
		}
		b.reply(f.chatID, fmt.Sprintf("#%d %s\nPrice: %s\nDuration: %d min\nStatus: %s", svc.ID, svc.Name, svc.Price, svc.Duration, state))
		return
	}

	if args[0] == "new" {
		if len(args) < 4 {
			b.reply(f.chatID, usageAdminService)
			return
		}
		price, okPrice := parsePrice(args[1])
		minutes, okMinutes := parseMinutes(args[2])
		if !okPrice || !okMinutes {
			b.reply(f.chatID, usageAdminService)
			return
		}
		svc, err := services.Create(ctx, map[string]any{
			"name":      strings.Join(args[3:], " "),
			"price":     price,
			"duration":  minutes,
			"is_active": true,
		})
		if err != nil {
			b.replyErr(f, err, "Failed to create service")
			return
		}
		f.client.InvalidateCatalog(ctx)
		b.reply(f.chatID, fmt.Sprintf("Service #%d %s created.", svc.ID, svc.Name))
		return
	}

	id, ok := parseID(args[0], "")
	if !ok {
		b.reply(f.chatID, usageAdminService)
		return
	}
	var (
		err  error
		done string
	)
	switch {
	case args[1] == "delete" && len(args) == 2:
		err = services.Delete(ctx, id)
		done = fmt.Sprintf("Service #%d deleted.", id)
	case args[1] == "price" && len(args) == 3:
		price, ok := parsePrice(args[2])
		if !ok {
			b.reply(f.chatID, usageAdminService)
			return
		}
		_, err = services.Patch(ctx, id, map[string]any{"price": price})
		done = fmt.Sprintf("Service #%d now costs %s.", id, price)
	case args[1] == "duration" && len(args) == 3:
		minutes, ok := parseMinutes(args[2])
		if !ok {
			b.reply(f.chatID, usageAdminService)
			return
		}
		_, err = services.Patch(ctx, id, map[string]any{"duration": minutes})
		done = fmt.Sprintf("Service #%d now takes %d minutes.", id, minutes)
	default:
		b.reply(f.chatID, usageAdminService)
		return
	}
	if err != nil {
		b.replyErr(f, err, "Failed to update service")
		return
	}
	f.client.InvalidateCatalog(ctx)
	zerolog.Ctx(ctx).Info().Int64("user_id", f.userID).Int64("service_id", id).Str("change", args[1]).Msg("service edited")
	b.reply(f.chatID, done)
}

func (b *Bot) handleAdminStaff(ctx context.Context, f *flow, args []string) {
	if !b.requireStaff(f) {
		return
	}
	if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
		b.reply(f.chatID, usageAdminStaff)
		return
	}
	id, ok := parseID(args[0], "")
	if !ok {
		b.reply(f.chatID, usageAdminStaff)
		return
	}
	member, err := api.Staff(f.client).Patch(ctx, id, map[string]bool{"is_active": args[1] == "on"})
	if err != nil {
		b.replyErr(f, err, "Failed to update stylist")
		return
	}
	f.client.InvalidateCatalog(ctx)
	if member.IsActive {
		b.reply(f.chatID, member.DisplayName()+" now takes bookings.")
	} else {
		b.reply(f.chatID, member.DisplayName()+" no longer takes bookings.")
	}
}

func (b *Bot) handleAdminImage(ctx context.Context, f *flow, args []string) {
	if !b.requireStaff(f) {
		return
	}
	if len(args) != 2 {
		b.reply(f.chatID, usageAdminImage)
		return
	}
	id, ok := parseID(args[0], "")
	if !ok {
		b.reply(f.chatID, usageAdminImage)
		return
	}
	images := api.Images(f.client)
	var err error
	switch args[1] {
	case "feature", "unfeature":
		_, err = images.Patch(ctx, id, map[string]bool{"is_featured": args[1] == "feature"})
	case "delete":
		err = images.Delete(ctx, id)
	default:
		b.reply(f.chatID, usageAdminImage)
		return
	}
	if err != nil {
		b.replyErr(f, err, "Failed to update image")
		return
	}
	b.reply(f.chatID, fmt.Sprintf("Image #%d: %s done.", id, args[1]))
}

// parsePrice normalises "45" or "45.5" to the backend's decimal string "45.50".
func parsePrice(s string) (string, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return "", false
	}
	return strconv.FormatFloat(v, 'f', 2, 64), true
}

func parseMinutes(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil && n > 0
}
