package config

import (
	"errors"
	"fmt"
	"time"

	pkgconfig "github.com/residoken-wq/mini-shop-app-sub001/pkg/config"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/database"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/tracing"
)

// ServiceName labels logs, metrics and traces.
const ServiceName = "minishop"

// Config holds all configuration for the shop server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	ShopName    string `env:"SHOP_NAME" envDefault:"Mini Shop"`

	// HTTP server
	HTTPPort    int      `env:"HTTP_PORT" envDefault:"8080"`
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	PprofCIDRs  []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32" envSeparator:","`

	// Login attempts per second and burst, per client IP. Zero disables.
	LoginRateLimit float64 `env:"LOGIN_RATE_LIMIT" envDefault:"0.2"`
	LoginRateBurst int     `env:"LOGIN_RATE_BURST" envDefault:"5"`

	// PostgreSQL
	PostgresHost     string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string        `env:"POSTGRES_USER" envDefault:"minishop"`
	PostgresPass     string        `env:"POSTGRES_PASSWORD" envDefault:"minishop"`
	PostgresDB       string        `env:"POSTGRES_DB" envDefault:"minishop"`
	PostgresSSL      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	PostgresMaxConns int32         `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	PostgresMinConns int32         `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	SlowQuery        time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Sessions and seed account
	SessionSecret     string        `env:"SESSION_SECRET" envDefault:"dev-only-change-me-0123456789abcdef"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionCookie     string        `env:"SESSION_COOKIE" envDefault:"minishop_session"`
	SeedAdminUsername string        `env:"SEED_ADMIN_USERNAME" envDefault:"admin"`
	SeedAdminPassword string        `env:"SEED_ADMIN_PASSWORD" envDefault:"admin123"`

	// Email
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"shop@localhost"`
	ShopInbox    string `env:"SHOP_INBOX"`

	// SMS gateway
	SMSAPIURL string `env:"SMS_API_URL"`
	SMSAPIKey string `env:"SMS_API_KEY"`
	SMSSender string `env:"SMS_SENDER" envDefault:"MINISHOP"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load minishop config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration invariants. pkgconfig.Load calls it.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP port: %d", c.HTTPPort))
	}
	if len(c.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 bytes"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("invalid SESSION_TTL: %s", c.SessionTTL))
	}
	if c.SeedAdminUsername == "" || c.SeedAdminPassword == "" {
		errs = append(errs, errors.New("seed admin username and password are required"))
	}
	if c.LoginRateLimit < 0 || c.LoginRateBurst < 0 {
		errs = append(errs, fmt.Errorf("login rate limit must not be negative, got %v/%d", c.LoginRateLimit, c.LoginRateBurst))
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATE must be within [0,1], got %v", c.OTELSampleRate))
	}
	if c.IsProduction() && c.SessionSecret == defaultSessionSecret {
		errs = append(errs, errors.New("SESSION_SECRET must be set in production"))
	}
	return errors.Join(errs...)
}

const defaultSessionSecret = "dev-only-change-me-0123456789abcdef"

// IsProduction reports whether the environment is "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Postgres returns the pool configuration.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	pg.ApplicationName = ServiceName
	pg.MaxConns = c.PostgresMaxConns
	pg.MinConns = c.PostgresMinConns
	return pg
}

// Redis returns the Redis client configuration.
func (c *Config) Redis() database.RedisConfig {
	rc := database.DefaultRedisConfig()
	rc.Host = c.RedisHost
	rc.Port = c.RedisPort
	rc.Password = c.RedisPassword
	rc.DB = c.RedisDB
	return rc
}

// Tracing returns the tracer configuration.
func (c *Config) Tracing() tracing.Config {
	tc := tracing.DefaultConfig(ServiceName)
	tc.Environment = c.Environment
	tc.OTLPEndpoint = c.OTELEndpoint
	tc.SampleRate = c.OTELSampleRate
	tc.Enabled = c.OTELEnabled
	return tc
}

// EmailEnabled reports whether SMTP delivery is configured.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != "" && c.ShopInbox != ""
}

// SMSEnabled reports whether the SMS gateway is configured.
func (c *Config) SMSEnabled() bool {
	return c.SMSAPIURL != ""
}
