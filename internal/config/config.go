// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, the database, rate limiting, notification
// delivery, background workers and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-premium-contracts")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects the database backend.
type DBConfig struct {
	Driver string // DB_DRIVER: sqlite|postgres
	DSN    string // DB_DSN: file path for sqlite, connection string for postgres
}

// SMTPConfig configures e-mail delivery. Delivery over EMAIL is disabled
// when Host is empty.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// WhatsAppConfig configures the WhatsApp gateway queue. Messages are pushed
// to a Redis list consumed by the gateway bridge; disabled when RedisAddr is
// empty.
type WhatsAppConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Queue         string
}

// BreakerConfig configures the per-channel delivery circuit breaker.
type BreakerConfig struct {
	Enabled     bool
	MaxFailures int           // consecutive failures before opening
	OpenTimeout time.Duration // time spent open before a trial request
}

// DeliveryConfig groups outbound channel settings.
type DeliveryConfig struct {
	Channels []string // NOTIFY_CHANNELS, e.g. "WHATSAPP,EMAIL"
	SMTP     SMTPConfig
	WhatsApp WhatsAppConfig
	Breaker  BreakerConfig
}

// DispatchConfig configures the notification dispatcher loop.
type DispatchConfig struct {
	Enabled     bool
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
	SendTimeout time.Duration
	BackoffBase time.Duration
	BackoffMax  time.Duration
	ClaimTTL    time.Duration // zero derives it from SendTimeout * BatchSize
}

// ExpiryConfig configures the cron-driven expiry jobs.
type ExpiryConfig struct {
	Enabled       bool
	ReminderDays  int    // remind when end_date is within this many days
	ScanSchedule  string // cron schedule for reminders
	SweepSchedule string // cron schedule for EXPIRE transitions
	PurgeSchedule string // cron schedule for idempotency cleanup
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DB DBConfig

	// Admin identity
	AdminUserIDs []string // ADMIN_USER_IDS allowlist

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Notifications and background work
	Delivery DeliveryConfig
	Dispatch DispatchConfig
	Expiry   ExpiryConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			DSN:    getenv("DB_DSN", getenv("DB_PATH", "app.db")),
		},

		AdminUserIDs: splitCSV(getenv("ADMIN_USER_IDS", "")),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Notifications
		Delivery: DeliveryConfig{
			Channels: splitCSV(strings.ToUpper(getenv("NOTIFY_CHANNELS", "WHATSAPP,EMAIL"))),
			SMTP: SMTPConfig{
				Host:     getenv("SMTP_HOST", ""),
				Port:     getint("SMTP_PORT", 587),
				Username: getenv("SMTP_USERNAME", ""),
				Password: getenv("SMTP_PASSWORD", ""),
				From:     getenv("SMTP_FROM", "no-reply@localhost"),
			},
			WhatsApp: WhatsAppConfig{
				RedisAddr:     getenv("WHATSAPP_REDIS_ADDR", ""),
				RedisPassword: getenv("WHATSAPP_REDIS_PASSWORD", ""),
				RedisDB:       getint("WHATSAPP_REDIS_DB", 0),
				Queue:         getenv("WHATSAPP_REDIS_QUEUE", "whatsapp:outbound"),
			},
			Breaker: BreakerConfig{
				Enabled:     getbool("DELIVERY_BREAKER_ENABLED", true),
				MaxFailures: getint("DELIVERY_BREAKER_MAX_FAILURES", 5),
				OpenTimeout: getdur("DELIVERY_BREAKER_OPEN_TIMEOUT", 30*time.Second),
			},
		},
		Dispatch: DispatchConfig{
			Enabled:     getbool("DISPATCH_ENABLED", true),
			Interval:    getdur("DISPATCH_INTERVAL", 10*time.Second),
			BatchSize:   getint("DISPATCH_BATCH_SIZE", 50),
			MaxAttempts: getint("DISPATCH_MAX_ATTEMPTS", 5),
			SendTimeout: getdur("DISPATCH_SEND_TIMEOUT", 10*time.Second),
			BackoffBase: getdur("DISPATCH_BACKOFF_BASE", 30*time.Second),
			BackoffMax:  getdur("DISPATCH_BACKOFF_MAX", 30*time.Minute),
			ClaimTTL:    getdur("DISPATCH_CLAIM_TTL", 0),
		},
		Expiry: ExpiryConfig{
			Enabled:       getbool("EXPIRY_ENABLED", true),
			ReminderDays:  getint("EXPIRY_REMINDER_DAYS", 7),
			ScanSchedule:  getenv("EXPIRY_SCAN_SCHEDULE", "0 9 * * *"),
			SweepSchedule: getenv("EXPIRY_SWEEP_SCHEDULE", "*/15 * * * *"),
			PurgeSchedule: getenv("IDEMPOTENCY_PURGE_SCHEDULE", "30 3 * * *"),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-premium-contracts"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	if !oneOf(cfg.GinMode, "debug", "release", "test") {
		cfg.GinMode = "release"
	}
	return cfg, cfg.validate()
}

// check pairs a failing condition with its message.
type check struct {
	bad bool
	msg string
}

// validate returns the first failed check.
func (cfg Config) validate() error {
	checks := []check{
		{!oneOf(cfg.LogLevel, "debug", "info", "warn", "error", "fatal", "panic"), "LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic"},
		{strings.TrimSpace(cfg.Port) == "", "PORT must not be empty"},
		{cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0, "timeouts must be positive durations"},
		{cfg.MaxHeaderBytes <= 0, "MAX_HEADER_BYTES must be > 0"},
		{!oneOf(cfg.DB.Driver, "sqlite", "postgres"), "DB_DRIVER must be one of: sqlite, postgres"},
		{strings.TrimSpace(cfg.DB.DSN) == "", "DB_DSN must not be empty"},
		{len(cfg.Delivery.Channels) == 0, "NOTIFY_CHANNELS must list at least one channel"},
	}
	for _, ch := range cfg.Delivery.Channels {
		checks = append(checks, check{!oneOf(ch, "EMAIL", "WHATSAPP"), fmt.Sprintf("NOTIFY_CHANNELS: unknown channel %q", ch)})
	}
	checks = append(checks,
		check{cfg.Delivery.Breaker.MaxFailures < 1, "DELIVERY_BREAKER_MAX_FAILURES must be >= 1"},
		check{cfg.Dispatch.Interval <= 0 || cfg.Dispatch.SendTimeout <= 0, "DISPATCH_INTERVAL and DISPATCH_SEND_TIMEOUT must be positive durations"},
		check{cfg.Dispatch.BatchSize < 1, "DISPATCH_BATCH_SIZE must be >= 1"},
		check{cfg.Dispatch.MaxAttempts < 1, "DISPATCH_MAX_ATTEMPTS must be >= 1"},
		check{cfg.Dispatch.BackoffBase < 0 || cfg.Dispatch.BackoffMax < 0, "DISPATCH_BACKOFF_* must be >= 0"},
		check{cfg.Dispatch.ClaimTTL < 0, "DISPATCH_CLAIM_TTL must be >= 0"},
		check{cfg.Expiry.ReminderDays < 1, "EXPIRY_REMINDER_DAYS must be >= 1"},
		check{cfg.RateRPS < 0, "RATE_RPS must be >= 0"},
		check{cfg.RateBurst < 1, "RATE_BURST must be >= 1"},
		check{cfg.Security.HSTSMaxAge < 0, "HSTS_MAX_AGE must be >= 0"},
		check{cfg.IdempotencyTTL <= 0, "IDEMPOTENCY_TTL must be > 0"},
		check{cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]"},
	)
	for _, c := range checks {
		if c.bad {
			return errors.New(c.msg)
		}
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// env reads k and parses it; unset, empty and unparsable values yield def.
func env[T any](k string, def T, parse func(string) (T, error)) T {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	out, err := parse(v)
	if err != nil {
		return def
	}
	return out
}

func getenv(k, def string) string {
	return env(k, def, func(v string) (string, error) { return v, nil })
}

func getfloat(k string, def float64) float64 {
	return env(k, def, func(v string) (float64, error) { return strconv.ParseFloat(v, 64) })
}

func getint(k string, def int) int { return env(k, def, strconv.Atoi) }

func getdur(k string, def time.Duration) time.Duration { return env(k, def, time.ParseDuration) }

func getbool(k string, def bool) bool {
	return env(k, def, func(v string) (bool, error) {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true, nil
		case "0", "false", "no", "n", "off":
			return false, nil
		}
		return false, errors.New("not a boolean")
	})
}

// splitCSV splits on commas, trimming blanks and dropping empty items.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
