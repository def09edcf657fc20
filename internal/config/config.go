package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/anuragpardeshii/MediCare/pkg/database"
	pkgconfig "github.com/anuragpardeshii/MediCare/pkg/config"
	pkgkafka "github.com/anuragpardeshii/MediCare/pkg/kafka"
	"github.com/anuragpardeshii/MediCare/pkg/ratelimit"
	"github.com/anuragpardeshii/MediCare/pkg/tracing"
)

const (
	// ServiceName labels logs, metrics, traces and event sources.
	ServiceName = "medicare"

	defaultJWTSecret = "change-this-to-a-secure-secret"
	minSecretLength  = 32
)

// Config holds all configuration for the MediCare API.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Version     string `env:"SERVICE_VERSION" envDefault:"0.1.0"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"5000"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"medicare"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"medicare_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"medicare"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINS" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINS" envDefault:"30"`
	SlowQueryThresholdMs  int   `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Redis backs the shared auth rate limiter. When disabled each instance
	// limits in memory.
	RedisEnabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Sessions
	JWTSecret          string        `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	SessionTokenExpiry time.Duration `env:"SESSION_TOKEN_EXPIRY" envDefault:"168h"`
	BcryptCost         int           `env:"BCRYPT_COST" envDefault:"10"`
	// CookieSecure overrides the Secure cookie flag. Empty means secure
	// everywhere except development.
	CookieSecure string `env:"COOKIE_SECURE"`

	// AuthRateLimitPerMinute caps login and register attempts per client IP.
	// Zero disables the limiter.
	AuthRateLimitPerMinute int `env:"AUTH_RATE_LIMIT_PER_MINUTE" envDefault:"20"`
	// TrustedProxyCIDRs lists the reverse proxies whose X-Forwarded-For and
	// X-Real-IP headers identify the client. Empty trusts no headers.
	TrustedProxyCIDRs []string `env:"TRUSTED_PROXY_CIDRS" envSeparator:","`

	// Elasticsearch backs free-text doctor search. When disabled the
	// directory falls back to a PostgreSQL ILIKE match.
	ElasticsearchEnabled bool   `env:"ELASTICSEARCH_ENABLED" envDefault:"false"`
	ElasticsearchURL     string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex   string `env:"ELASTICSEARCH_INDEX" envDefault:"medicare_doctors"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// PprofAllowedCIDRs enables /debug/pprof for these networks only.
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load medicare config: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field rules after parsing.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.SessionTokenExpiry <= 0 {
		return fmt.Errorf("SESSION_TOKEN_EXPIRY must be positive, got %s", c.SessionTokenExpiry)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.CookieSecure != "" {
		if _, err := strconv.ParseBool(c.CookieSecure); err != nil {
			return fmt.Errorf("COOKIE_SECURE must be a boolean, got %q", c.CookieSecure)
		}
	}
	if _, err := ratelimit.NewTrustedProxies(c.TrustedProxyCIDRs); err != nil {
		return fmt.Errorf("TRUSTED_PROXY_CIDRS: %w", err)
	}
	if c.ElasticsearchEnabled && c.ElasticsearchURL == "" {
		return fmt.Errorf("ELASTICSEARCH_URL is required when ELASTICSEARCH_ENABLED is set")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0 and 1, got %v", c.OTELSampleRate)
	}

	// Outside development an explicitly set, strong JWT secret is required.
	if !c.IsDevelopment() {
		if c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.JWTSecret) < minSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d characters long, got %d", minSecretLength, len(c.JWTSecret))
		}
	}
	return nil
}

// IsDevelopment reports whether the service runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// SecureCookies reports whether the session cookie carries the Secure flag.
func (c *Config) SecureCookies() bool {
	if v, err := strconv.ParseBool(c.CookieSecure); err == nil {
		return v
	}
	return !c.IsDevelopment()
}

// Postgres returns the connection pool configuration.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:               c.PostgresHost,
		Port:               c.PostgresPort,
		User:               c.PostgresUser,
		Password:           c.PostgresPass,
		DBName:             c.PostgresDB,
		SSLMode:            c.PostgresSSL,
		MaxConns:           c.DBMaxConns,
		MinConns:           c.DBMinConns,
		MaxConnLifetime:    time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime:    time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
		SlowQueryThreshold: time.Duration(c.SlowQueryThresholdMs) * time.Millisecond,
	}
}

// Redis returns the Redis client configuration.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// Kafka returns the producer configuration.
func (c *Config) Kafka() pkgkafka.ProducerConfig {
	return pkgkafka.DefaultProducerConfig(c.KafkaBrokers)
}

// Tracing returns the OpenTelemetry configuration.
func (c *Config) Tracing() tracing.Config {
	return tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTELEndpoint,
		SampleRate:     c.OTELSampleRate,
		Enabled:        c.OTELEnabled,
	}
}

// TrustedProxies returns the parsed proxy allowlist. Validate has already
// rejected malformed entries.
func (c *Config) TrustedProxies() *ratelimit.TrustedProxies {
	p, err := ratelimit.NewTrustedProxies(c.TrustedProxyCIDRs)
	if err != nil {
		return nil
	}
	return p
}
