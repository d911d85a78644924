// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server, logging,
// store, automation, provider and observability settings.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // tenant zones must resolve on minimal images
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "easy-automations")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AutomationConfig tunes event detection and dispatch.
type AutomationConfig struct {
	Lookback        time.Duration // LOOKBACK: recency window for time-based events
	SendInterval    time.Duration // SEND_INTERVAL: gap between consecutive sends
	ConnectTimeout  time.Duration // REMOTE_CONNECT_TIMEOUT
	QueryTimeout    time.Duration // REMOTE_QUERY_TIMEOUT
	ReminderLead    time.Duration // REMINDER_LEAD: appointment reminder lead time
	MaxAttempts     int           // MAX_DISPATCH_ATTEMPTS
	RowLimit        uint64        // ROW_LIMIT: cap on rows per rule query
	Timezone        string        // TIMEZONE: tenant wall clock (IANA name)
	Language        string        // TEMPLATE_LANGUAGE
	DefaultBaseURL  string        // DEFAULT_BASE_URL: invoice viewer base
	SweepInterval   time.Duration // SWEEP_INTERVAL: 0 disables the in-process scheduler
	CronSecret      string        // CRON_SECRET: bearer token for trigger endpoints
	AdminSecret     string        // ADMIN_SECRET: bearer token for runs, tests and rule/template changes; defaults to CRON_SECRET
	TemplateTTL     time.Duration // TEMPLATE_CACHE_TTL
	RunLockTTL      time.Duration // RUN_LOCK_TTL
	BusinessDefault string        // DEFAULT_BUSINESS_NAME
}

// WhatsAppConfig points at Meta's Graph API.
type WhatsAppConfig struct {
	BaseURL    string        // GRAPH_API_BASE
	APIVersion string        // GRAPH_API_VERSION
	Timeout    time.Duration // GRAPH_API_TIMEOUT
}

// ShortenerConfig points at the link shortener API.
type ShortenerConfig struct {
	URL      string        // SHORTENER_URL
	Token    string        // SHORTENER_API_TOKEN
	HeaderID string        // SHORTENER_HEADER_ID
	Timeout  time.Duration // SHORTENER_TIMEOUT
}

// RedisConfig enables the distributed run lock when Addr is set.
type RedisConfig struct {
	Addr     string // REDIS_ADDR
	Password string // REDIS_PASSWORD
	DB       int    // REDIS_DB
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // tenant runs are synchronous and paced, keep generous
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Store
	DBDriver string // sqlite|postgres
	DBPath   string // SQLite path
	DBDSN    string // Postgres DSN

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Webhook deliveries
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is remembered

	Automation AutomationConfig
	WhatsApp   WhatsAppConfig
	Shortener  ShortenerConfig
	Redis      RedisConfig

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
		WriteTimeout:      getdur("WRITE_TIMEOUT", 10*time.Minute),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Store
		DBDriver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:   getenv("DB_PATH", "automations.db"),
		DBDSN:    getenv("DB_DSN", ""),

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

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		Automation: AutomationConfig{
			Lookback:        getdur("LOOKBACK", 10*time.Minute),
			SendInterval:    getdur("SEND_INTERVAL", 15*time.Second),
			ConnectTimeout:  getdur("REMOTE_CONNECT_TIMEOUT", 5*time.Second),
			QueryTimeout:    getdur("REMOTE_QUERY_TIMEOUT", 30*time.Second),
			ReminderLead:    getdur("REMINDER_LEAD", 30*time.Minute),
			MaxAttempts:     getint("MAX_DISPATCH_ATTEMPTS", 5),
			RowLimit:        uint64(getint("ROW_LIMIT", 200)),
			Timezone:        getenv("TIMEZONE", "Asia/Kolkata"),
			Language:        getenv("TEMPLATE_LANGUAGE", "en"),
			DefaultBaseURL:  getenv("DEFAULT_BASE_URL", "https://2025.shivsoftsindia.in/live_demo"),
			SweepInterval:   getdur("SWEEP_INTERVAL", 0),
			CronSecret:      getenv("CRON_SECRET", ""),
			AdminSecret:     getenv("ADMIN_SECRET", ""),
			TemplateTTL:     getdur("TEMPLATE_CACHE_TTL", 5*time.Minute),
			RunLockTTL:      getdur("RUN_LOCK_TTL", 30*time.Minute),
			BusinessDefault: getenv("DEFAULT_BUSINESS_NAME", "Our Salon"),
		},
		WhatsApp: WhatsAppConfig{
			BaseURL:    strings.TrimRight(getenv("GRAPH_API_BASE", "https://graph.facebook.com"), "/"),
			APIVersion: getenv("GRAPH_API_VERSION", "v18.0"),
			Timeout:    getdur("GRAPH_API_TIMEOUT", 20*time.Second),
		},
		Shortener: ShortenerConfig{
			URL:      getenv("SHORTENER_URL", "https://easyk.in/api.php"),
			Token:    getenv("SHORTENER_API_TOKEN", ""),
			HeaderID: getenv("SHORTENER_HEADER_ID", "SVSaln"),
			Timeout:  getdur("SHORTENER_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", ""),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "easy-automations"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DBDriver == "postgresql" || cfg.DBDriver == "pg" {
		cfg.DBDriver = "postgres"
	}
	if cfg.Automation.AdminSecret == "" {
		cfg.Automation.AdminSecret = cfg.Automation.CronSecret
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "off":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: trace, debug, info, warn, error, fatal, panic, off")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DBDSN) == "" {
			return cfg, errors.New("DB_DSN is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	a := cfg.Automation
	if a.Lookback <= 0 || a.ConnectTimeout <= 0 || a.QueryTimeout <= 0 {
		return cfg, errors.New("LOOKBACK and remote timeouts must be positive durations")
	}
	if a.SendInterval < 0 || a.ReminderLead < 0 || a.SweepInterval < 0 {
		return cfg, errors.New("SEND_INTERVAL, REMINDER_LEAD and SWEEP_INTERVAL must be >= 0")
	}
	if a.MaxAttempts < 1 {
		return cfg, errors.New("MAX_DISPATCH_ATTEMPTS must be >= 1")
	}
	if a.RowLimit == 0 {
		return cfg, errors.New("ROW_LIMIT must be > 0")
	}
	if _, err := time.LoadLocation(a.Timezone); err != nil {
		return cfg, errors.New("TIMEZONE must be a valid IANA time zone")
	}
	if a.TemplateTTL <= 0 || a.RunLockTTL <= 0 {
		return cfg, errors.New("TEMPLATE_CACHE_TTL and RUN_LOCK_TTL must be > 0")
	}
	if !strings.HasPrefix(cfg.WhatsApp.BaseURL, "http") {
		return cfg, errors.New("GRAPH_API_BASE must be an http(s) URL")
	}
	if cfg.WhatsApp.Timeout <= 0 || cfg.Shortener.Timeout <= 0 {
		return cfg, errors.New("provider timeouts must be positive durations")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// Location returns the configured tenant time zone, falling back to UTC.
func (a AutomationConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
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
