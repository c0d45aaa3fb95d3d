package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers understood by STORE_DRIVER
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	GoEnv    string `env:"GO_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	StoreDriver  string `env:"STORE_DRIVER" envDefault:"memory"`
	DatabaseURL  string `env:"DATABASE_URL"`
	SeedDemoData bool   `env:"SEED_DEMO_DATA" envDefault:"true"`

	RedisURL     string        `env:"REDIS_URL"`
	ListCacheTTL time.Duration `env:"LIST_CACHE_TTL" envDefault:"60s"`

	DraftDir              string        `env:"DRAFT_DIR"`
	DraftAutosaveInterval time.Duration `env:"DRAFT_AUTOSAVE_INTERVAL" envDefault:"30s"`
	DuplicateDebounce     time.Duration `env:"DUPLICATE_DEBOUNCE" envDefault:"500ms"`

	AWSRegion          string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSS3Bucket        string `env:"AWS_S3_BUCKET"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	UploadDir          string `env:"UPLOAD_DIR" envDefault:"./uploads"`

	KafkaBrokers    []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaOrderTopic string   `env:"KAFKA_ORDER_TOPIC" envDefault:"orders.events"`

	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	SendGridAPIKey   string `env:"SENDGRID_API_KEY"`
	GoogleCalendarID string `env:"GOOGLE_CALENDAR_ID"`
	StripeSecretKey  string `env:"STRIPE_SECRET_KEY"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		if err := godotenv.Load(); err != nil {
			// Deployed environments set variables directly
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	return Parse()
}

// Parse reads the process environment into a Config without touching .env files
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is consistent
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", StorePostgres)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be one of memory, sqlite, postgres, got %q", c.StoreDriver)
	}
	if c.ListCacheTTL < 0 {
		return fmt.Errorf("LIST_CACHE_TTL must not be negative")
	}
	if c.DraftAutosaveInterval <= 0 {
		return fmt.Errorf("DRAFT_AUTOSAVE_INTERVAL must be positive")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// S3Enabled reports whether documents should be stored in S3 rather than on local disk
func (c *Config) S3Enabled() bool {
	return c.AWSS3Bucket != ""
}

// KafkaEnabled reports whether order events are published
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
