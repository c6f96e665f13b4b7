package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// SMTPConfig describes the mail relay used to notify submitters.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	Encryption  string // "none", "ssl", "starttls"
}

// Configured reports whether enough settings are present to send mail.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.FromAddress != ""
}

// AuthConfig holds the settings used to identify privileged callers.
type AuthConfig struct {
	JWTSecret     string
	JWTIssuer     string
	AdminEmail    string
	AdminPassword string
}

// ThrottleConfig bounds anonymous submissions per client address.
type ThrottleConfig struct {
	RedisURL string
	Limit    int
	Window   time.Duration
}

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment     string
	Debug           bool
	HTTPPort        string
	DatabaseDriver  string
	DatabasePath    string
	DatabaseDSN     string
	LogDir          string
	TrustedProxies  []string
	AlertURLs       []string
	BacklogSchedule string
	SMTP            SMTPConfig
	Auth            AuthConfig
	Throttle        ThrottleConfig
}

// Load reads env vars (and an optional .env file) and falls back to defaults
// so the server can boot with zero configuration. Credentials never have defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Environment:     getEnv("WARDEN_ENV", "development"),
		Debug:           getEnvBool("WARDEN_DEBUG", false),
		HTTPPort:        getEnv("WARDEN_HTTP_PORT", "8080"),
		DatabaseDriver:  strings.ToLower(getEnv("WARDEN_DB_DRIVER", "sqlite")),
		DatabasePath:    getEnv("WARDEN_DB_PATH", filepath.Join("data", "warden.db")),
		DatabaseDSN:     os.Getenv("WARDEN_DB_DSN"),
		LogDir:          getEnv("WARDEN_LOG_DIR", filepath.Join("data", "logs")),
		TrustedProxies:  splitList(os.Getenv("WARDEN_TRUSTED_PROXIES")),
		AlertURLs:       splitList(os.Getenv("WARDEN_ALERT_URLS")),
		BacklogSchedule: getEnv("WARDEN_BACKLOG_SCHEDULE", "@every 1m"),
		SMTP: SMTPConfig{
			Host:        os.Getenv("WARDEN_SMTP_HOST"),
			Port:        getEnvInt("WARDEN_SMTP_PORT", 587),
			Username:    os.Getenv("WARDEN_SMTP_USERNAME"),
			Password:    os.Getenv("WARDEN_SMTP_PASSWORD"),
			FromAddress: os.Getenv("WARDEN_SMTP_FROM"),
			Encryption:  getEnv("WARDEN_SMTP_ENCRYPTION", "starttls"),
		},
		Auth: AuthConfig{
			JWTSecret:     os.Getenv("WARDEN_JWT_SECRET"),
			JWTIssuer:     getEnv("WARDEN_JWT_ISSUER", "warden"),
			AdminEmail:    os.Getenv("WARDEN_ADMIN_EMAIL"),
			AdminPassword: os.Getenv("WARDEN_ADMIN_PASSWORD"),
		},
		Throttle: ThrottleConfig{
			RedisURL: os.Getenv("WARDEN_REDIS_URL"),
			Limit:    getEnvInt("WARDEN_SUBMIT_LIMIT", 20),
			Window:   getEnvDuration("WARDEN_SUBMIT_WINDOW", time.Hour),
		},
	}

	switch cfg.DatabaseDriver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
			return Config{}, fmt.Errorf("ensure data directory: %w", err)
		}
	case "postgres":
		if cfg.DatabaseDSN == "" {
			return Config{}, errors.New("WARDEN_DB_DSN is required for the postgres driver")
		}
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	switch cfg.SMTP.Encryption {
	case "none", "ssl", "starttls":
	default:
		return Config{}, fmt.Errorf("unsupported smtp encryption %q", cfg.SMTP.Encryption)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
