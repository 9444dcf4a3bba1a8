package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const insecureJWTSecret = "change-me-in-production"

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"destinos"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"destinos"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"destinos"`

	// JWT
	JWTSecret string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTExpiry time.Duration `env:"JWT_EXPIRY" envDefault:"2h"`

	// Server
	APIPort       int    `env:"PORT" envDefault:"4001"`
	PublicBaseURL string `env:"URL_BASE" envDefault:"http://localhost:4001"`

	// Kafka
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`
	TopicPrefix  string `env:"KAFKA_TOPIC_PREFIX" envDefault:"destinos"`

	// Outbox relay
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:4001,http://localhost:3000,http://127.0.0.1:3001,http://localhost:5173"`

	// Image storage
	StorageBackend   string `env:"STORAGE_BACKEND" envDefault:"local"`
	UploadDir        string `env:"UPLOAD_DIR" envDefault:"public/upload"`
	S3Bucket         string `env:"S3_BUCKET"`
	S3Region         string `env:"S3_REGION" envDefault:"auto"`
	S3Endpoint       string `env:"S3_ENDPOINT"`
	S3AccessKeyID    string `env:"S3_ACCESS_KEY_ID"`
	S3SecretKey      string `env:"S3_SECRET_ACCESS_KEY"`
	S3PublicBaseURL  string `env:"S3_PUBLIC_BASE_URL"`
	StorageFailLimit int    `env:"STORAGE_FAIL_THRESHOLD" envDefault:"5"`

	// Season reset
	SeasonResetEnabled bool   `env:"SEASON_RESET_ENABLED" envDefault:"false"`
	SeasonResetCron    string `env:"SEASON_RESET_CRON" envDefault:"0 0 1 1 *"`
	SeasonResetWorkers int    `env:"SEASON_RESET_WORKERS" envDefault:"8"`

	// Rate limiting for signup and login, per client IP
	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT" envDefault:"20"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"1m"`

	// Apply pending migrations before serving
	MigrateOnStart bool `env:"MIGRATE_ON_START" envDefault:"false"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig loads an optional .env file and parses environment variables into
// a Config struct. Variables already set in the environment win over .env.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for insecure or inconsistent configuration.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass the secret checks (local dev only).
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (want local or s3)", c.StorageBackend)
	}
	if c.SeasonResetEnabled && strings.TrimSpace(c.SeasonResetCron) == "" {
		return fmt.Errorf("SEASON_RESET_CRON is required when SEASON_RESET_ENABLED=true")
	}

	if c.AllowInsecureDefaults {
		return nil
	}
	if c.JWTSecret == insecureJWTSecret {
		return fmt.Errorf("JWT_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET is too short (%d chars); minimum 32 characters required", len(c.JWTSecret))
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// UploadBaseURL is the public URL prefix of locally stored uploads.
func (c *Config) UploadBaseURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/upload"
}
