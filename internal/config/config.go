package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when Load gets an empty path.
const DefaultPath = "configs/config.yaml"

type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"telegram"`

	API struct {
		BaseURL         string  `yaml:"base_url"`
		TimeoutSeconds  int     `yaml:"timeout_seconds"`
		CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
		RateLimitRPS    float64 `yaml:"rate_limit_rps"`
		RateLimitBurst  int     `yaml:"rate_limit_burst"`
	} `yaml:"api"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		Schedule      string `yaml:"schedule"`
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		MaxAdvanceMonths      int    `yaml:"max_advance_months"`
		WeekStart             string `yaml:"week_start"`
		Timezone              string `yaml:"timezone"`
		ClosuresPath          string `yaml:"closures_path"`
		SessionTimeoutMinutes int    `yaml:"session_timeout_minutes"`
		RemindersEnabled      bool   `yaml:"reminders_enabled"`
		ReminderHour          int    `yaml:"reminder_hour"`
	} `yaml:"booking"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("api.base_url is required")
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/salonbook.db"
	}
	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}
	if cfg.Backup.Schedule == "" {
		cfg.Backup.Schedule = "0 3 * * *"
	}
	if cfg.Backup.Dir == "" {
		cfg.Backup.Dir = filepath.Join(filepath.Dir(cfg.Database.Path), "backups")
	}
	if _, err = cfg.Location(); err != nil {
		return nil, err
	}
	if _, err = parseWeekday(cfg.Booking.WeekStart); err != nil {
		return nil, err
	}
	if cfg.Booking.ReminderHour < 0 || cfg.Booking.ReminderHour > 23 {
		return nil, fmt.Errorf("booking.reminder_hour must be 0-23")
	}

	return &cfg, nil
}

func (c *Config) HTTPTimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	if c.API.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}

// MaxAdvance is the booking lookahead in calendar months.
func (c *Config) MaxAdvance() int {
	if c.Booking.MaxAdvanceMonths <= 0 {
		return 3
	}
	return c.Booking.MaxAdvanceMonths
}

func (c *Config) SessionTimeout() time.Duration {
	if c.Booking.SessionTimeoutMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Booking.SessionTimeoutMinutes) * time.Minute
}

// ReminderHour is the salon-local hour of the daily reminder run, 9 when unset.
func (c *Config) ReminderHour() int {
	if c.Booking.ReminderHour == 0 {
		return 9
	}
	return c.Booking.ReminderHour
}

// Location is the salon's time zone. Empty means the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Booking.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return nil, fmt.Errorf("booking.timezone: %w", err)
	}
	return loc, nil
}

// WeekStart returns the first column of the calendar, Sunday by default.
func (c *Config) WeekStart() time.Weekday {
	d, _ := parseWeekday(c.Booking.WeekStart)
	return d
}

func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil || c.Log.Level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func parseWeekday(s string) (time.Weekday, error) {
	if s == "" {
		return time.Sunday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) || strings.EqualFold(s, d.String()[:3]) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("booking.week_start: unknown weekday %q", s)
}
