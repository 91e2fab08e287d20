// Package bot is the Telegram front end of the salon booking client.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"salonbook/internal/api"
	"salonbook/internal/booking"
	"salonbook/internal/calendar"
	"salonbook/internal/gallery"
	"salonbook/internal/session"
)

const (
	msgSessionExpired = "Your session has expired. Please sign in again with /login <email> <password>."
	msgSignInFirst    = "Please sign in first: /login <email> <password>"
	msgHelp           = "Commands:\n" +
		"/book [category id] - book an appointment\n" +
		"/categories - browse services by category\n" +
		"/my_bookings - your appointments\n" +
		"/gallery [featured|category] - browse our work\n" +
		"/login <email> <password> - sign in\n" +
		"/register <email> <password> <first name> <last name> [phone] - create an account\n" +
		"/me - your profile\n" +
		"/phone <number> - update your phone\n" +
		"/forgot <email> - reset a forgotten password\n" +
		"/reset <token> <password> - set a new password\n" +
		"/logout - sign out\n" +
		"/cancel - abort the current booking\n" +
		"Staff: /admin_bookings [status] [date], /admin_service, /admin_staff, /admin_image, /export"
)

// Options configure a Bot.
type Options struct {
	API    *api.Client
	Tokens TokenSource
	// Owners lists users with stored sessions. Reminders go to them.
	Owners           func(ctx context.Context) ([]int64, error)
	Location         *time.Location
	WeekStart        time.Weekday
	MaxAdvanceMonths int
	SessionTimeout   time.Duration
	Now              func() time.Time
	Logger           *zerolog.Logger
}

// Bot serves every Telegram user with their own session and booking flow.
type Bot struct {
	api        *api.Client
	tokens     TokenSource
	owners     func(ctx context.Context) ([]int64, error)
	tg         telegramClient
	flows      *flowStore
	loc        *time.Location
	weekStart  time.Weekday
	maxAdvance int
	clock      func() time.Time
	logger     *zerolog.Logger
	// root is handed to per-user components, which add their own component field.
	root       *zerolog.Logger

	mu       sync.RWMutex
	closures []time.Time
}

// New connects to Telegram with token.
func New(token string, opts Options) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newBot(&realTelegramClient{api: botAPI}, opts)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(tg telegramClient, opts Options) (*Bot, error) {
	return newBot(tg, opts)
}

func newBot(tg telegramClient, opts Options) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	if opts.API == nil {
		return nil, fmt.Errorf("api client is nil")
	}
	if opts.Tokens == nil {
		opts.Tokens = func(int64) session.TokenStore { return session.NewMemoryTokens() }
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MaxAdvanceMonths <= 0 {
		opts.MaxAdvanceMonths = calendar.DefaultLookaheadMonths
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		l := zerolog.Nop()
		opts.Logger = &l
	}
	l := opts.Logger.With().Str("component", "bot").Logger()
	return &Bot{
		api:        opts.API,
		tokens:     opts.Tokens,
		owners:     opts.Owners,
		tg:         tg,
		flows:      newFlowStore(opts.SessionTimeout),
		loc:        opts.Location,
		weekStart:  opts.WeekStart,
		maxAdvance: opts.MaxAdvanceMonths,
		clock:      opts.Now,
		logger:     &l,
		root:       opts.Logger,
	}, nil
}

// now returns the current salon-local time.
func (b *Bot) now() time.Time {
	return b.clock().In(b.loc)
}

// SetClosures replaces the days the salon is closed. New calendars pick them up immediately.
func (b *Bot) SetClosures(days []time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closures = append([]time.Time(nil), days...)
}

func (b *Bot) unavailable() []time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]time.Time(nil), b.closures...)
}

// Start begins polling updates and handles commands.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("Salon bot authorized")

	cleanup := time.NewTicker(time.Minute)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanup.C:
			if n := b.flows.cleanup(b.now()); n > 0 {
				b.logger.Debug().Int("removed", n).Msg("idle flows dropped")
			}
		case update, ok := <-updates:
			if !ok {
				return
			}
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			updateCtx := l.WithContext(ctx)
			b.handleUpdate(updateCtx, &update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	l := zerolog.Ctx(ctx)
	if update.CallbackQuery != nil {
		l.Debug().
			Int64("user_id", update.CallbackQuery.From.ID).
			Str("data", update.CallbackQuery.Data).
			Msg("Handling callback query")
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		l.Debug().
			Int64("user_id", update.Message.From.ID).
			Msg("Handling message")
		b.handleMessage(ctx, update.Message)
		return
	}
}

// flowFor returns the flow of userID, restoring a persisted session on first contact.
// Concurrent first contacts share one flow and one restore.
func (b *Bot) flowFor(ctx context.Context, userID, chatID int64) *flow {
	now := b.now()
	f, created := b.flows.getOrCreate(userID, func() *flow { return b.newFlow(userID, chatID, now) })
	if !created {
		f.wait(ctx)
		f.touch(now)
		return f
	}

	if err := f.session.Bootstrap(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Msg("restore session")
	}
	close(f.ready)
	return f
}

// newFlow wires the per-user components. It performs no I/O.
func (b *Bot) newFlow(userID, chatID int64, now time.Time) *flow {
	store := session.NewStore(b.tokens(userID), b.root)
	client := b.api.WithAuth(store)
	store.UseAPI(client)

	f := &flow{
		userID:    userID,
		chatID:    chatID,
		session:   store,
		client:    client,
		ready:     make(chan struct{}),
		input:     inputNone,
		updatedAt: now,
	}
	ui := &chatUI{bot: b, flow: f}
	store.UseRedirector(session.RedirectFunc(ui.sessionExpired))
	f.booking = booking.NewController(client, booking.Options{
		Notifier:  ui,
		Navigator: ui,
		Logger:    b.root,
	})
	f.gallery = gallery.New(client, ui, b.root)
	return f
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.From == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	f := b.flowFor(ctx, msg.From.ID, msg.Chat.ID)

	// Commands take priority and interrupt any text input in progress.
	if strings.HasPrefix(text, "/") {
		cmd, args := splitCommand(text)
		switch cmd {
		case "/start":
			f.resetBooking()
			b.reply(msg.Chat.ID, "Welcome to the salon! "+msgHelp)
		case "/help":
			b.reply(msg.Chat.ID, msgHelp)
		case "/login":
			b.handleLogin(ctx, f, msg, args)
		case "/register":
			b.handleRegister(ctx, f, msg, args)
		case "/logout":
			b.handleLogout(ctx, f)
		case "/me":
			b.handleMe(f)
		case "/phone":
			b.handlePhone(ctx, f, args)
		case "/book":
			b.handleBook(ctx, f, args)
		case "/categories":
			b.handleCategories(ctx, f)
		case "/cancel":
			f.resetBooking()
			b.reply(f.chatID, "Booking cancelled.")
		case "/gallery":
			b.handleGallery(ctx, f, args)
		case "/my_bookings":
			b.handleMyBookings(ctx, f, 0, 0)
		case "/export":
			b.handleExport(ctx, f)
		case "/admin_bookings":
			b.handleAdminBookings(ctx, f, args)
		case "/admin_service":
			b.handleAdminService(ctx, f, args)
		case "/admin_staff":
			b.handleAdminStaff(ctx, f, args)
		case "/admin_image":
			b.handleAdminImage(ctx, f, args)
		case "/forgot":
			b.handleForgot(ctx, f, args)
		case "/reset":
			b.handleReset(ctx, f, msg, args)
		default:
			b.reply(msg.Chat.ID, "Unknown command. "+msgHelp)
		}
		return
	}

	b.handleInput(ctx, f, text)
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq == nil || cq.Message == nil {
		return
	}
	data := cq.Data
	_ = b.answerCallback(cq.ID)
	if data == "noop" {
		return
	}

	f := b.flowFor(ctx, cq.From.ID, cq.Message.Chat.ID)

	switch {
	case strings.HasPrefix(data, "svc:"):
		b.handleServiceCallback(ctx, f, data)
	case strings.HasPrefix(data, "staff:"):
		b.handleStaffCallback(f, data)
	case data == "cal:prev" || data == "cal:next":
		b.handleMonthCallback(f, cq.Message.MessageID, data)
	case strings.HasPrefix(data, "date:"):
		b.handleDateCallback(ctx, f, data)
	case strings.HasPrefix(data, "slot:"):
		b.handleSlotCallback(f, data)
	case strings.HasPrefix(data, "back:"):
		b.handleBack(f, data)
	case data == "terms:yes":
		b.handleTermsCallback(f)
	case data == "confirm":
		b.handleConfirmCallback(ctx, f)
	case data == "cancel":
		f.resetBooking()
		b.reply(f.chatID, "Booking cancelled.")
	case strings.HasPrefix(data, "img:"):
		b.handleImageCallback(ctx, f, data)
	case strings.HasPrefix(data, "like:"):
		b.handleLikeCallback(ctx, f, data)
	case strings.HasPrefix(data, "gpage:"):
		b.handleGalleryPage(f, cq.Message.MessageID, data)
	case strings.HasPrefix(data, "appt:cancel:"):
		b.handleCancelAppointment(ctx, f, data)
	case strings.HasPrefix(data, "apage:"):
		page, _ := strconv.Atoi(strings.TrimPrefix(data, "apage:"))
		b.handleMyBookings(ctx, f, page, cq.Message.MessageID)
	case strings.HasPrefix(data, "cat:"):
		b.handleCategoryCallback(ctx, f, data)
	case strings.HasPrefix(data, "adm:"):
		b.handleAdminCallback(ctx, f, cq.Message.MessageID, data)
	case strings.HasPrefix(data, "admpage:"):
		if b.requireStaff(f) {
			page, _ := strconv.Atoi(strings.TrimPrefix(data, "admpage:"))
			b.renderAdminBookings(ctx, f, page, cq.Message.MessageID)
		}
	}
}

func (b *Bot) handleLogin(ctx context.Context, f *flow, msg *tgbotapi.Message, args []string) {
	// The message carries a password.
	if _, err := b.tg.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("delete login message")
	}
	if len(args) != 2 {
		b.reply(f.chatID, "Usage: /login <email> <password>")
		return
	}
	user, err := f.session.Login(ctx, args[0], args[1])
	if err != nil {
		b.replyErr(f, err, "Login failed")
		return
	}
	zerolog.Ctx(ctx).Info().Int64("user_id", f.userID).Int64("account_id", user.ID).Msg("signed in")
	b.reply(f.chatID, fmt.Sprintf("Welcome, %s! Use /book to make an appointment.", user.FullName()))
}

func (b *Bot) handleRegister(ctx context.Context, f *flow, msg *tgbotapi.Message, args []string) {
	if _, err := b.tg.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("delete register message")
	}
	if len(args) < 4 {
		b.reply(f.chatID, "Usage: /register <email> <password> <first name> <last name> [phone]")
		return
	}
	req := api.RegisterRequest{
		Email:     args[0],
		Password:  args[1],
		Password2: args[1],
		FirstName: args[2],
		LastName:  args[3],
	}
	if len(args) > 4 {
		phone, ok := booking.NormalizePhone(strings.Join(args[4:], " "))
		if !ok {
			b.reply(f.chatID, "Invalid phone number. Example: +1 555 123 4567")
			return
		}
		req.Phone = phone
	}
	user, err := f.session.Register(ctx, req)
	if err != nil {
		b.replyErr(f, err, "Registration failed")
		return
	}
	b.reply(f.chatID, fmt.Sprintf("Account created. Welcome, %s!", user.FullName()))
}

func (b *Bot) handleForgot(ctx context.Context, f *flow, args []string) {
	if len(args) != 1 || !strings.Contains(args[0], "@") {
		b.reply(f.chatID, "Usage: /forgot <email>")
		return
	}
	if err := b.api.ForgotPassword(ctx, args[0]); err != nil {
		b.replyErr(f, err, "Failed to request a password reset")
		return
	}
	b.reply(f.chatID, "Password reset instructions sent to your email. Then use /reset <token> <new password>.")
}

func (b *Bot) handleReset(ctx context.Context, f *flow, msg *tgbotapi.Message, args []string) {
	if _, err := b.tg.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("delete reset message")
	}
	if len(args) != 2 {
		b.reply(f.chatID, "Usage: /reset <token> <new password>")
		return
	}
	if err := b.api.ResetPassword(ctx, args[0], args[1]); err != nil {
		b.replyErr(f, err, "Password reset failed")
		return
	}
	zerolog.Ctx(ctx).Info().Int64("user_id", f.userID).Msg("password reset")
	b.reply(f.chatID, "Password changed. Sign in with /login <email> <password>.")
}

func (b *Bot) handleLogout(ctx context.Context, f *flow) {
	f.resetBooking()
	if err := f.session.Logout(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("user_id", f.userID).Msg("clear tokens")
	}
	b.reply(f.chatID, "You are signed out.")
}

func (b *Bot) handleMe(f *flow) {
	u := f.session.Identity()
	if u == nil {
		b.reply(f.chatID, msgSignInFirst)
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "👤 %s\n📧 %s\n", u.FullName(), u.Email)
	if u.Phone != "" {
		fmt.Fprintf(&sb, "📞 %s\n", u.Phone)
	}
	if u.IsStaff {
		sb.WriteString("Staff account\n")
	}
	b.reply(f.chatID, strings.TrimRight(sb.String(), "\n"))
}

func (b *Bot) handlePhone(ctx context.Context, f *flow, args []string) {
	if !b.requireAuth(f) {
		return
	}
	phone, ok := booking.NormalizePhone(strings.Join(args, " "))
	if !ok {
		b.reply(f.chatID, "Usage: /phone <number>, e.g. /phone +1 555 123 4567")
		return
	}
	u, err := f.session.UpdateProfile(ctx, api.ProfileUpdate{Phone: phone})
	if err != nil {
		b.replyErr(f, err, "Failed to update profile")
		return
	}
	f.booking.Prefill(u)
	b.reply(f.chatID, "Phone updated: "+u.Phone)
}

func (b *Bot) requireAuth(f *flow) bool {
	if f.session.IsAuthenticated() {
		return true
	}
	b.reply(f.chatID, msgSignInFirst)
	return false
}

// replyErr reports a failed request. Expired sessions were already reported by the redirect.
func (b *Bot) replyErr(f *flow, err error, fallback string) {
	if errors.Is(err, api.ErrAuthExpired) || errors.Is(err, session.ErrSuperseded) {
		return
	}
	b.reply(f.chatID, "⚠️ "+api.Message(err, fallback))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.tg.Send(c); err != nil {
		b.logger.Error().Err(err).Msg("telegram send")
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) answerCallback(id string) error {
	_, err := b.tg.Request(tgbotapi.NewCallback(id, ""))
	return err
}

func splitCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	cmd := fields[0]
	// Group chats address commands as /book@salon_bot.
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd), fields[1:]
}

func parseID(data, prefix string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	return id, err == nil && id > 0
}

// chatUI shows notifications and redirects of one flow as chat messages.
type chatUI struct {
	bot  *Bot
	flow *flow
}

func (u *chatUI) Success(msg string) { u.bot.reply(u.flow.chatID, "✅ "+msg) }

func (u *chatUI) Error(msg string) { u.bot.reply(u.flow.chatID, "⚠️ "+msg) }

func (u *chatUI) Navigate(path string) {
	switch path {
	case booking.DefaultCompletionPath:
		u.bot.reply(u.flow.chatID, "See your appointments with /my_bookings.")
	default:
		u.bot.logger.Debug().Str("path", path).Msg("navigation ignored")
	}
}

func (u *chatUI) sessionExpired() {
	u.flow.setInput(inputNone)
	u.bot.reply(u.flow.chatID, msgSessionExpired)
}
