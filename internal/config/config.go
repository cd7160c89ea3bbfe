// Package config loads the server settings from the environment.
// Values from an optional .env file are applied first; real environment
// variables always win.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"

	// DefaultSessionSecret is only meant for local development.
	DefaultSessionSecret = "dev-session-secret-change-me"
)

// Config holds runtime settings for the dealership server.
type Config struct {
	HTTPAddr  string
	LogLevel  slog.Level
	DB        DBConfig
	Redis     RedisConfig
	Session   SessionConfig
	Telemetry TelemetryConfig
}

// DBConfig describes the relational store.
type DBConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string // sqlite only
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SessionConfig struct {
	Store        string
	Secret       string
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
}

type TelemetryConfig struct {
	Endpoint       string
	ServiceName    string
	ServiceVersion string
}

// Load reads the .env file (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config using getenv as the variable source.
func FromEnv(getenv func(string) string) (*Config, error) {
	r := envReader{getenv: getenv}

	cfg := &Config{
		HTTPAddr: r.str("HTTP_ADDR", ":8080"),
		DB: DBConfig{
			Driver:   strings.ToLower(r.str("DB_DRIVER", DriverPostgres)),
			Host:     r.str("DB_HOST", "localhost"),
			Port:     r.int("DB_PORT", 5432),
			User:     r.str("DB_USER", "postgres"),
			Password: r.str("DB_PASSWORD", ""),
			Name:     r.str("DB_NAME", "dealership"),
			SSLMode:  r.str("DB_SSLMODE", "disable"),
			Path:     r.str("DB_PATH", "./dealership.db"),
		},
		Redis: RedisConfig{
			Addr:     r.str("REDIS_ADDR", "localhost:6379"),
			Password: r.str("REDIS_PASSWORD", ""),
			DB:       r.int("REDIS_DB", 0),
		},
		Session: SessionConfig{
			Store:        strings.ToLower(r.str("SESSION_STORE", SessionStoreRedis)),
			Secret:       r.str("SESSION_SECRET", DefaultSessionSecret),
			TTL:          r.duration("SESSION_TTL", 24*time.Hour),
			CookieName:   r.str("SESSION_COOKIE_NAME", "dealership_session"),
			CookieSecure: r.bool("SESSION_COOKIE_SECURE", false),
		},
		Telemetry: TelemetryConfig{
			Endpoint:       r.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:    r.str("OTEL_SERVICE_NAME", "car-dealership"),
			ServiceVersion: r.str("SERVICE_VERSION", "v0.1.0"),
		},
	}

	levelName := r.str("LOG_LEVEL", "info")
	if err := cfg.LogLevel.UnmarshalText([]byte(levelName)); err != nil {
		r.errs = append(r.errs, fmt.Sprintf("LOG_LEVEL: %v", err))
	}

	if len(r.errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(r.errs, "; "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enum values and required settings.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("invalid configuration: unsupported DB_DRIVER %q", c.DB.Driver)
	}
	switch c.Session.Store {
	case SessionStoreRedis, SessionStoreMemory:
	default:
		return fmt.Errorf("invalid configuration: unsupported SESSION_STORE %q", c.Session.Store)
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("invalid configuration: SESSION_SECRET must not be empty")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("invalid configuration: SESSION_TTL must be positive")
	}
	return nil
}

// DSN returns the driver-specific data source name.
func (d DBConfig) DSN() string {
	if d.Driver == DriverSQLite {
		return d.Path
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

type envReader struct {
	getenv func(string) string
	errs   []string
}

func (r *envReader) str(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *envReader) int(key string, def int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (r *envReader) bool(key string, def bool) bool {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s: %q is not a boolean", key, v))
		return def
	}
	return b
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}
