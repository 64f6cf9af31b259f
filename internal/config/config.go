package config

import (
	"fmt"

	pkgconfig "github.com/utafrali/shopcart/pkg/config"
)

const devSecretPlaceholder = "change-this-to-a-secure-secret"

// Config holds all configuration for the shopcart service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost          string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort          int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser          string `env:"POSTGRES_USER" envDefault:"shopcart"`
	PostgresPass          string `env:"POSTGRES_PASSWORD" envDefault:"shopcart_secret"`
	PostgresDB            string `env:"POSTGRES_DB" envDefault:"shopcart"`
	PostgresSSL           string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns            int32  `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32  `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int    `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int    `env:"DB_MAX_CONN_IDLE_MINUTES" envDefault:"30"`

	// Redis (catalog cache)
	RedisHost       string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort       int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword   string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`
	CacheEnabled    bool   `env:"CATALOG_CACHE_ENABLED" envDefault:"true"`
	CacheTTLSeconds int    `env:"CATALOG_CACHE_TTL_SECONDS" envDefault:"300"`

	// Remote catalog; when unset, items are resolved from the local table.
	CatalogBaseURL string `env:"CATALOG_BASE_URL" envDefault:""`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT
	JWTSecret string `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTExpiry string `env:"JWT_TOKEN_EXPIRY" envDefault:"24h"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Rate limiting on register/login
	AuthRateLimitRPS   int `env:"AUTH_RATE_LIMIT_RPS" envDefault:"5"`
	AuthRateLimitBurst int `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load shopcart config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}

	// In non-development environments, require an explicitly set, strong JWT secret.
	if cfg.Environment != "development" {
		if cfg.JWTSecret == devSecretPlaceholder {
			return nil, fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", cfg.Environment)
		}
		if len(cfg.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(cfg.JWTSecret))
		}
	}

	return cfg, nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
