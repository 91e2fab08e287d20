package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"salonbook/internal/api"
	"salonbook/internal/bot"
	"salonbook/internal/config"
	"salonbook/internal/db"
	"salonbook/internal/metrics"
	"salonbook/internal/session"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("SALON_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger = logger.Level(cfg.LogLevel())

	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Fatal().Msg("set telegram.bot_token in config")
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid timezone")
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	client := api.NewClient(cfg.API.BaseURL, cfg.HTTPTimeout())
	client.UseLogger(&logger)
	client.UseRateLimit(cfg.API.RateLimitRPS, cfg.API.RateLimitBurst)
	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.CacheTTL() > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		client.UseRedisCache(rdb, cfg.CacheTTL())
	}

	b, err := bot.New(cfg.Telegram.BotToken, bot.Options{
		API:              client,
		Tokens:           func(ownerID int64) session.TokenStore { return database.Tokens(ownerID) },
		Owners:           database.Owners,
		Location:         loc,
		WeekStart:        cfg.WeekStart(),
		MaxAdvanceMonths: cfg.MaxAdvance(),
		SessionTimeout:   cfg.SessionTimeout(),
		Logger:           &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create bot error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Booking.ClosuresPath != "" {
		err := config.WatchClosures(ctx, cfg.Booking.ClosuresPath, 30*time.Second, loc,
			func(days []time.Time) {
				b.SetClosures(days)
				logger.Info().Int("days", len(days)).Msg("closures loaded")
			},
			func(err error) {
				logger.Error().Err(err).Msg("invalid closures, keeping the previous days")
			})
		if err != nil {
			logger.Fatal().Err(err).Msg("load closures")
		}
	}

	if cfg.Backup.Enabled {
		backups := db.NewBackups(database, cfg.Backup.Dir, cfg.Backup.RetentionDays, &logger)
		if err := backups.Start(ctx, cfg.Backup.Schedule); err != nil {
			logger.Fatal().Err(err).Msg("start backups")
		}
	}

	if cfg.Booking.RemindersEnabled {
		b.StartReminders(ctx, cfg.ReminderHour())
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	checks := readiness{db: database, api: client}
	if rdb != nil {
		checks.redis = rdb
	}
	go serve(ctx, cfg.Monitoring.HealthCheckPort, healthRouter(checks), "health", &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go serve(ctx, cfg.Monitoring.PrometheusPort, metricsRouter(), "metrics", &logger)
	}

	logger.Info().Str("api", cfg.API.BaseURL).Msg("Salon bot started")
	b.Start(ctx)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

type apiChecker interface {
	HealthCheck(ctx context.Context) error
}

type readiness struct {
	db    pinger
	redis redisPinger
	api   apiChecker
}

func healthRouter(p readiness) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctxPing, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if p.db != nil {
			if err := p.db.Ping(ctxPing); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if p.redis != nil {
			if err := p.redis.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if p.api != nil {
			if err := p.api.HealthCheck(ctxPing); err != nil {
				http.Error(w, "api not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	return r
}

func metricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

func serve(ctx context.Context, port int, h http.Handler, name string, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Str("server", name).Msg("server error")
	}
}
