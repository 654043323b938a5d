// Package config loads service configuration from the environment, an
// optional YAML file and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"booking-engine/internal/booking"
)

type Config struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	DatabaseURL     string        `mapstructure:"database_url"`
	// AutoMigrate applies embedded migrations when the server starts.
	AutoMigrate bool `mapstructure:"auto_migrate"`

	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Booking  BookingConfig  `mapstructure:"booking"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Events   EventsConfig   `mapstructure:"events"`
	Redis    RedisConfig    `mapstructure:"redis"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Google   GoogleConfig   `mapstructure:"google"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuthConfig struct {
	JWTSecret    string   `mapstructure:"jwt_secret"`
	StaticTokens []string `mapstructure:"static_tokens"`
}

type BookingConfig struct {
	TokenCancelStatuses []string      `mapstructure:"token_cancel_statuses"`
	MaxAttempts         int           `mapstructure:"max_attempts"`
	LockTimeout         time.Duration `mapstructure:"lock_timeout"`
}

// Statuses converts the configured token policy, ignoring blanks.
func (b BookingConfig) Statuses() []booking.Status {
	var out []booking.Status
	for _, s := range b.TokenCancelStatuses {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, booking.Status(s))
		}
	}
	return out
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Size    int           `mapstructure:"size"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type EventsConfig struct {
	Buffer  int           `mapstructure:"buffer"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Channel string `mapstructure:"channel"`
}

type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
	TokenFile    string `mapstructure:"token_file"`
	CalendarID   string `mapstructure:"calendar_id"`
}

// Enabled reports whether OAuth credentials are configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RedirectURL != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("auto_migrate", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("auth.static_tokens", []string{})
	v.SetDefault("booking.token_cancel_statuses", []string{"confirmed"})
	v.SetDefault("booking.max_attempts", 2)
	v.SetDefault("booking.lock_timeout", "5s")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.size", 1000)
	v.SetDefault("cache.ttl", "30s")
	v.SetDefault("events.buffer", 256)
	v.SetDefault("events.timeout", "10s")
	v.SetDefault("redis.channel", "booking-events")
	v.SetDefault("rabbitmq.exchange", "booking.events")
	v.SetDefault("google.token_file", "./data/google_token.json")
	v.SetDefault("google.calendar_id", "primary")
}

// Load reads configuration. path names an explicit YAML file; when empty,
// config.yaml is looked up in ./config and the working directory.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("booking")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("database_url", "BOOKING_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("redis.url", "BOOKING_REDIS_URL", "REDIS_URL")
	_ = v.BindEnv("rabbitmq.url", "BOOKING_RABBITMQ_URL", "RABBITMQ_URL")
	_ = v.BindEnv("port", "BOOKING_PORT", "PORT")
	_ = v.BindEnv("auth.jwt_secret", "BOOKING_AUTH_JWT_SECRET", "JWT_HMAC_SECRET")
	_ = v.BindEnv("auth.static_tokens", "BOOKING_AUTH_STATIC_TOKENS", "STATIC_TOKENS")
	_ = v.BindEnv("google.client_id", "BOOKING_GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_ID")
	_ = v.BindEnv("google.client_secret", "BOOKING_GOOGLE_CLIENT_SECRET", "GOOGLE_CLIENT_SECRET")
	_ = v.BindEnv("google.redirect_url", "BOOKING_GOOGLE_REDIRECT_URL", "GOOGLE_REDIRECT_URL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Auth.StaticTokens = splitList(cfg.Auth.StaticTokens)
	cfg.Booking.TokenCancelStatuses = splitList(cfg.Booking.TokenCancelStatuses)

	if err := cfg.check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// check rejects values no component can run with.
func (c *Config) check() error {
	var errs []error
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown_timeout must be positive"))
	}
	if c.Booking.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("booking.max_attempts must be at least 1"))
	}
	if c.Booking.LockTimeout <= 0 {
		errs = append(errs, fmt.Errorf("booking.lock_timeout must be positive"))
	}
	for _, s := range c.Booking.Statuses() {
		if !s.Valid() {
			errs = append(errs, fmt.Errorf("booking.token_cancel_statuses: unknown status %q", s))
		}
	}
	if c.Cache.Enabled && (c.Cache.Size <= 0 || c.Cache.TTL <= 0) {
		errs = append(errs, fmt.Errorf("cache.size and cache.ttl must be positive"))
	}
	if c.Events.Buffer <= 0 {
		errs = append(errs, fmt.Errorf("events.buffer must be positive"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Validate reports settings required to talk to the database.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database_url is required")
	}
	return nil
}
