package userdesk

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"userdesk/lib/database"
	"userdesk/shared/logger"
)

// Config defines the configuration surface of the application.
type Config interface {
	Address() string
	Title() string
	Version() string
	Dev() bool

	AuthIssuer() string
	AuthClientID() string
	AuthClientSecret() string
	AuthCallback() string

	SessionSecret() string
	SecureCookies() bool

	DSN() string
	Pool() database.PoolOptions

	CacheDriver() string
	RedisURL() string
	ViewTTL() time.Duration

	OtelEndpoint() string
	LogOptions() logger.Options
}

// Settings is the on-disk and environment shape of the configuration.
type Settings struct {
	Host    string `yaml:"host"`
	Port    string `yaml:"port" validate:"required,numeric"`
	Title   string `yaml:"title" validate:"required"`
	Version string `yaml:"version" validate:"required"`
	Env     string `yaml:"env" validate:"oneof=development production"`
	Logger  string `yaml:"logger" validate:"omitempty,oneof=zap noop"`
	LogFile string `yaml:"log_file"`

	Auth     AuthSettings     `yaml:"auth"`
	Session  SessionSettings  `yaml:"session"`
	Postgres PostgresSettings `yaml:"postgres"`
	Cache    CacheSettings    `yaml:"cache"`

	OtelEndpoint string `yaml:"otel_endpoint"`
}

type AuthSettings struct {
	Issuer       string `yaml:"issuer" validate:"required,url"`
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`
	Callback     string `yaml:"callback" validate:"required,url"`
}

type SessionSettings struct {
	Secret string `yaml:"secret" validate:"required,min=32"`
	Secure bool   `yaml:"secure"`
}

type PostgresSettings struct {
	Host        string        `yaml:"host" validate:"required"`
	Port        string        `yaml:"port" validate:"required,numeric"`
	DB          string        `yaml:"db" validate:"required"`
	User        string        `yaml:"user" validate:"required"`
	Password    string        `yaml:"password"`
	SSLMode     string        `yaml:"sslmode" validate:"oneof=disable require verify-ca verify-full"`
	MaxOpen     int           `yaml:"max_open" validate:"gte=0"`
	MaxIdle     int           `yaml:"max_idle" validate:"gte=0"`
	MaxLifetime time.Duration `yaml:"max_lifetime"`
}

type CacheSettings struct {
	Driver   string        `yaml:"driver" validate:"oneof=memory redis"`
	RedisURL string        `yaml:"redis_url" validate:"required_if=Driver redis"`
	TTL      time.Duration `yaml:"ttl"`
}

// DefaultSettings returns the settings used before any file or environment overlay.
func DefaultSettings() Settings {
	return Settings{
		Port:    "8080",
		Title:   "userdesk",
		Version: "0.1.0",
		Env:     "production",
		Logger:  "zap",
		Auth: AuthSettings{
			Issuer: "https://accounts.google.com",
		},
		Postgres: PostgresSettings{
			Host:        "localhost",
			Port:        "5432",
			DB:          "userdesk",
			User:        "postgres",
			SSLMode:     "disable",
			MaxOpen:     10,
			MaxIdle:     5,
			MaxLifetime: 30 * time.Minute,
		},
		Cache: CacheSettings{
			Driver: "memory",
			TTL:    5 * time.Minute,
		},
	}
}

// zConfig implements Config over validated Settings.
type zConfig struct {
	s Settings
}

// LoadConfig reads the YAML file named by USERDESK_CONFIG (if any), applies
// environment overrides and validates the result.
func LoadConfig() (Config, error) {
	return loadConfig(os.Getenv("USERDESK_CONFIG"), os.LookupEnv)
}

func loadConfig(path string, lookup func(string) (string, bool)) (Config, error) {
	s := DefaultSettings()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if err := applyEnv(&s, lookup); err != nil {
		return nil, err
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(s); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &zConfig{s: s}, nil
}

func applyEnv(s *Settings, lookup func(string) (string, bool)) error {
	str := func(dst *string, key string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	str(&s.Host, "API_HOST")
	str(&s.Port, "API_PORT")
	str(&s.Title, "API_TITLE")
	str(&s.Version, "API_VERSION")
	str(&s.Env, "USERDESK_ENV")
	str(&s.Logger, "USERDESK_LOGGER")
	str(&s.LogFile, "USERDESK_LOG_FILE")

	str(&s.Auth.Issuer, "AUTH_ISSUER")
	str(&s.Auth.ClientID, "AUTH_CLIENT_ID")
	str(&s.Auth.ClientSecret, "AUTH_CLIENT_SECRET")
	str(&s.Auth.Callback, "AUTH_CALLBACK")
	str(&s.Session.Secret, "SESSION_SECRET")

	str(&s.Postgres.Host, "POSTGRES_HOST")
	str(&s.Postgres.Port, "POSTGRES_PORT")
	str(&s.Postgres.DB, "POSTGRES_DB")
	str(&s.Postgres.User, "POSTGRES_USER")
	str(&s.Postgres.Password, "POSTGRES_PASSWORD")
	str(&s.Postgres.SSLMode, "POSTGRES_SSLMODE")

	str(&s.Cache.Driver, "CACHE_DRIVER")
	str(&s.Cache.RedisURL, "REDIS_URL")
	str(&s.OtelEndpoint, "OTEL_ENDPOINT")

	if v, ok := lookup("SESSION_SECURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SESSION_SECURE %q: %w", v, err)
		}
		s.Session.Secure = b
	}
	if v, ok := lookup("VIEW_CACHE_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid VIEW_CACHE_TTL %q: %w", v, err)
		}
		s.Cache.TTL = d
	}
	return nil
}

func (c *zConfig) Address() string {
	return net.JoinHostPort(c.s.Host, c.s.Port)
}

func (c *zConfig) Title() string {
	return c.s.Title
}

func (c *zConfig) Version() string {
	return c.s.Version
}

// Dev reports whether the application runs in development mode.
func (c *zConfig) Dev() bool {
	return c.s.Env == "development"
}

func (c *zConfig) AuthIssuer() string {
	return c.s.Auth.Issuer
}

func (c *zConfig) AuthClientID() string {
	return c.s.Auth.ClientID
}

func (c *zConfig) AuthClientSecret() string {
	return c.s.Auth.ClientSecret
}

func (c *zConfig) AuthCallback() string {
	return c.s.Auth.Callback
}

func (c *zConfig) SessionSecret() string {
	return c.s.Session.Secret
}

func (c *zConfig) SecureCookies() bool {
	return c.s.Session.Secure
}

// DSN returns the key/value connection string for lib/pq.
func (c *zConfig) DSN() string {
	pg := c.s.Postgres
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		dsnValue(pg.Host),
		dsnValue(pg.User),
		dsnValue(pg.Password),
		dsnValue(pg.DB),
		dsnValue(pg.Port),
		dsnValue(pg.SSLMode),
	)
}

func (c *zConfig) Pool() database.PoolOptions {
	return database.PoolOptions{
		MaxOpen:     c.s.Postgres.MaxOpen,
		MaxIdle:     c.s.Postgres.MaxIdle,
		MaxLifetime: c.s.Postgres.MaxLifetime,
	}
}

func (c *zConfig) CacheDriver() string {
	return c.s.Cache.Driver
}

func (c *zConfig) RedisURL() string {
	return c.s.Cache.RedisURL
}

func (c *zConfig) ViewTTL() time.Duration {
	return c.s.Cache.TTL
}

// OtelEndpoint is empty when telemetry export is disabled.
func (c *zConfig) OtelEndpoint() string {
	return c.s.OtelEndpoint
}

func (c *zConfig) LogOptions() logger.Options {
	return logger.Options{
		Backend: c.s.Logger,
		Dev:     c.Dev(),
		File:    c.s.LogFile,
	}
}

// dsnValue quotes a connection-string value when it is empty or contains
// spaces, quotes or backslashes.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
