package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // опорная таймзона должна грузиться и в минимальном контейнере

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Duration принимает в TOML и окружении строки вида "15m", "72h"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	Environment   string `toml:"env"`
	DBDSN         string `toml:"db_dsn"`
	HTTPAddr      string `toml:"http_addr"`
	Timezone      string `toml:"timezone"`
	TelegramToken string `toml:"telegram_token"`

	Redis     RedisConfig     `toml:"redis"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Booking   BookingConfig   `toml:"booking"`
	Metrics   MetricsConfig   `toml:"metrics"`

	// Location опорная таймзона, вычисляется из Timezone
	Location *time.Location `toml:"-"`
}

type RedisConfig struct {
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	SessionTTL Duration `toml:"session_ttl"`
}

type SchedulerConfig struct {
	UpcomingScanInterval     Duration `toml:"upcoming_scan_interval"`
	UpcomingLeadTime         Duration `toml:"upcoming_lead_time"`
	SubscriptionScanInterval Duration `toml:"subscription_scan_interval"`
	SubscriptionLookahead    Duration `toml:"subscription_lookahead"`
	SessionPruneInterval     Duration `toml:"session_prune_interval"`
	SessionRetention         Duration `toml:"session_retention"`
}

type RateLimitConfig struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

type BookingConfig struct {
	ReleaseSlotOnTrainerCancel bool `toml:"release_slot_on_trainer_cancel"`
}

type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Path      string `toml:"path"`
	Namespace string `toml:"namespace"`
}

func defaults() *Config {
	return &Config{
		Environment: "development",
		HTTPAddr:    ":8080",
		Timezone:    "UTC",
		Redis: RedisConfig{
			SessionTTL: Duration{24 * time.Hour},
		},
		Scheduler: SchedulerConfig{
			UpcomingScanInterval:     Duration{5 * time.Minute},
			UpcomingLeadTime:         Duration{time.Hour},
			SubscriptionScanInterval: Duration{24 * time.Hour},
			SubscriptionLookahead:    Duration{72 * time.Hour},
			SessionPruneInterval:     Duration{time.Hour},
			SessionRetention:         Duration{24 * time.Hour},
		},
		RateLimit: RateLimitConfig{
			RPS:   10,
			Burst: 20,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "session_booking",
		},
	}
}

// Load читает конфигурацию: значения по умолчанию, затем TOML-файл, затем .env и переменные окружения
func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.toml"
	}

	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := defaults()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *Duration) error {
		if v, ok := lookup(key); ok && v != "" {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
		return nil
	}
	integer := func(key string, dst *int) error {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
		return nil
	}
	boolean := func(key string, dst *bool) error {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
		return nil
	}

	str("ENV", &cfg.Environment)
	str("DB_DSN", &cfg.DBDSN)
	str("HTTP_ADDR", &cfg.HTTPAddr)
	str("TIMEZONE", &cfg.Timezone)
	str("TELEGRAM_TOKEN", &cfg.TelegramToken)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	str("METRICS_PATH", &cfg.Metrics.Path)

	if v, ok := lookup("RATE_LIMIT_RPS"); ok && v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimit.RPS = rps
	}

	return errors.Join(
		integer("REDIS_DB", &cfg.Redis.DB),
		dur("REDIS_SESSION_TTL", &cfg.Redis.SessionTTL),
		dur("UPCOMING_SCAN_INTERVAL", &cfg.Scheduler.UpcomingScanInterval),
		dur("UPCOMING_LEAD_TIME", &cfg.Scheduler.UpcomingLeadTime),
		dur("SUBSCRIPTION_SCAN_INTERVAL", &cfg.Scheduler.SubscriptionScanInterval),
		dur("SUBSCRIPTION_LOOKAHEAD", &cfg.Scheduler.SubscriptionLookahead),
		dur("SESSION_PRUNE_INTERVAL", &cfg.Scheduler.SessionPruneInterval),
		dur("SESSION_RETENTION", &cfg.Scheduler.SessionRetention),
		integer("RATE_LIMIT_BURST", &cfg.RateLimit.Burst),
		boolean("RELEASE_SLOT_ON_TRAINER_CANCEL", &cfg.Booking.ReleaseSlotOnTrainerCancel),
		boolean("METRICS_ENABLED", &cfg.Metrics.Enabled),
	)
}

func (c *Config) validate() error {
	// Проверяем обязательные поля
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required but not set")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	c.Location = loc

	positive := map[string]time.Duration{
		"UPCOMING_SCAN_INTERVAL":     c.Scheduler.UpcomingScanInterval.Duration,
		"UPCOMING_LEAD_TIME":         c.Scheduler.UpcomingLeadTime.Duration,
		"SUBSCRIPTION_SCAN_INTERVAL": c.Scheduler.SubscriptionScanInterval.Duration,
		"SUBSCRIPTION_LOOKAHEAD":     c.Scheduler.SubscriptionLookahead.Duration,
		"SESSION_PRUNE_INTERVAL":     c.Scheduler.SessionPruneInterval.Duration,
		"SESSION_RETENTION":          c.Scheduler.SessionRetention.Duration,
		"REDIS_SESSION_TTL":          c.Redis.SessionTTL.Duration,
	}
	for key, d := range positive {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}

	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// RedisEnabled сообщает, нужно ли хранить видеосессии в Redis вместо памяти
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}
