// -----------------------------------------------------------------------
// Last Modified: Friday, 16th October 2026 3:10:00 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the worker configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Queue       QueueConfig      `toml:"queue"`
	Storage     StorageConfig    `toml:"storage"`
	Redis       RedisConfig      `toml:"redis"`
	Salesforce  SalesforceConfig `toml:"salesforce"`
	Pricing     PricingConfig    `toml:"pricing"`
	Logging     LoggingConfig    `toml:"logging"`
}

type QueueConfig struct {
	Backend           string `toml:"backend" validate:"oneof=badger redis"` // "badger" (embedded) or "redis" (pub/sub)
	QueueName         string `toml:"queue_name" validate:"required"`        // Queue name prefix in Badger
	QuoteChannel      string `toml:"quote_channel" validate:"required"`     // Channel carrying quote generation jobs
	DataChannel       string `toml:"data_channel" validate:"required"`      // Channel carrying sample data jobs
	PollInterval      string `toml:"poll_interval"`                         // e.g., "1s" - how often idle workers poll Badger
	VisibilityTimeout string `toml:"visibility_timeout"`                    // e.g., "30m" - before an unacknowledged job is redelivered
	MaxReceive        int    `toml:"max_receive" validate:"gte=1"`          // Max deliveries of one message before it is dropped
	Concurrency       int    `toml:"concurrency" validate:"gte=1"`          // Jobs executed at the same time
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// RedisConfig is used when queue.backend is "redis"
type RedisConfig struct {
	URL           string `toml:"url"`            // redis:// or rediss:// URL, takes precedence over Addr
	Addr          string `toml:"addr"`           // host:port
	Password      string `toml:"password"`
	DB            int    `toml:"db"`
	CredentialTTL string `toml:"credential_ttl"` // Expiry applied to stashed job credentials ("0" = never)
}

// SalesforceConfig controls the REST client and batch execution
type SalesforceConfig struct {
	APIVersion     string `toml:"api_version" validate:"required"`       // e.g., "v62.0"
	RequestTimeout string `toml:"request_timeout"`                       // HTTP request timeout
	RateLimit      int    `toml:"rate_limit" validate:"gte=0"`           // Requests per second across one job, 0 = unlimited
	ChunkSize      int    `toml:"chunk_size" validate:"gte=1,lte=200"`   // Records per bulk call (API maximum is 200)
	PoolSize       int    `toml:"pool_size" validate:"gte=1"`            // Chunks in flight at the same time
	ProgressEvent  string `toml:"progress_event" validate:"required"`    // Platform event used for progress reporting
	QueryTemplate  string `toml:"query_template" validate:"required"`    // SOQL with a single %s for the WHERE clause
	SampleStage    string `toml:"sample_stage"`                          // StageName for generated sample opportunities
	SampleCloseIn  int    `toml:"sample_close_in_days" validate:"gte=0"` // CloseDate offset for generated sample opportunities
	DeleteSelector string `toml:"delete_selector" validate:"required"`   // WHERE clause selecting generated quotes
}

// PricingConfig holds the business rules applied during quote derivation
type PricingConfig struct {
	Region          string             `toml:"region" validate:"required"`             // Region used for the discount lookup
	QuoteName       string             `toml:"quote_name" validate:"required"`         // Name given to every created quote
	DefaultDiscount float64            `toml:"default_discount" validate:"gte=0,lt=1"` // Rate for regions missing from Discounts
	Discounts       map[string]float64 `toml:"discounts"`                              // Region code -> discount rate
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"` // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`                                             // "stdout", "file"
	TimeFormat string   `toml:"time_format"`                                        // Time format for logs (default: "15:04:05.000")
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Queue: QueueConfig{
			Backend:           "badger",
			QueueName:         "pricing_jobs",
			QuoteChannel:      "quoteQueue",
			DataChannel:       "dataQueue",
			PollInterval:      "1s",
			VisibilityTimeout: "30m",
			MaxReceive:        1, // Jobs are not retried
			Concurrency:       1,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Redis: RedisConfig{
			Addr:          "localhost:6379",
			CredentialTTL: "0",
		},
		Salesforce: SalesforceConfig{
			APIVersion:     "v62.0",
			RequestTimeout: "2m",
			RateLimit:      0,
			ChunkSize:      200,
			PoolSize:       20,
			ProgressEvent:  "JobProgress__e",
			QueryTemplate: "SELECT Id, (SELECT Id, Product2Id, Quantity, UnitPrice, PricebookEntryId FROM OpportunityLineItems) " +
				"FROM Opportunity WHERE %s",
			SampleStage:    "Prospecting",
			SampleCloseIn:  30,
			DeleteSelector: "Name = 'New Quote'",
		},
		Pricing: PricingConfig{
			Region:          "US",
			QuoteName:       "New Quote",
			DefaultDiscount: 0.0,
			Discounts: map[string]float64{
				"US":   0.10,
				"EU":   0.15,
				"APAC": 0.05,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05.000",
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files. CLI overrides are applied by the caller.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks struct constraints and the query template
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if strings.Count(c.Salesforce.QueryTemplate, "%s") != 1 {
		return fmt.Errorf("invalid configuration: salesforce.query_template must contain exactly one %%s")
	}
	for region, rate := range c.Pricing.Discounts {
		if rate < 0 || rate >= 1 {
			return fmt.Errorf("invalid configuration: discount for region %s must be in [0,1), got %v", region, rate)
		}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PRICING_ENV"); env != "" {
		config.Environment = env
	}

	// Queue configuration
	if backend := os.Getenv("PRICING_QUEUE_BACKEND"); backend != "" {
		config.Queue.Backend = backend
	}
	if pollInterval := os.Getenv("PRICING_QUEUE_POLL_INTERVAL"); pollInterval != "" {
		config.Queue.PollInterval = pollInterval
	}
	if concurrency := os.Getenv("PRICING_QUEUE_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Queue.Concurrency = c
		}
	}

	// Storage configuration
	if badgerPath := os.Getenv("PRICING_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Redis configuration (REDIS_URL is what Heroku-style add-ons export)
	if redisURL := os.Getenv("PRICING_REDIS_URL"); redisURL != "" {
		config.Redis.URL = redisURL
	} else if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.Redis.URL = redisURL
	}

	// Salesforce configuration
	if apiVersion := os.Getenv("PRICING_SALESFORCE_API_VERSION"); apiVersion != "" {
		config.Salesforce.APIVersion = apiVersion
	}
	if chunkSize := os.Getenv("PRICING_CHUNK_SIZE"); chunkSize != "" {
		if cs, err := strconv.Atoi(chunkSize); err == nil {
			config.Salesforce.ChunkSize = cs
		}
	}
	if poolSize := os.Getenv("PRICING_POOL_SIZE"); poolSize != "" {
		if ps, err := strconv.Atoi(poolSize); err == nil {
			config.Salesforce.PoolSize = ps
		}
	}
	if rateLimit := os.Getenv("PRICING_RATE_LIMIT"); rateLimit != "" {
		if rl, err := strconv.Atoi(rateLimit); err == nil {
			config.Salesforce.RateLimit = rl
		}
	}

	// Pricing configuration
	if region := os.Getenv("PRICING_REGION"); region != "" {
		config.Pricing.Region = region
	}

	// Logging configuration
	if level := os.Getenv("PRICING_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("PRICING_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority).
// Zero values leave the loaded configuration untouched.
func ApplyFlagOverrides(config *Config, backend string, concurrency int, logLevel string) {
	if backend != "" {
		config.Queue.Backend = backend
	}
	if concurrency > 0 {
		config.Queue.Concurrency = concurrency
	}
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
}

// PollDuration returns the parsed poll interval, falling back to one second
func (q QueueConfig) PollDuration() time.Duration {
	return parseDuration(q.PollInterval, time.Second)
}

// VisibilityDuration returns the parsed visibility timeout, falling back to 30 minutes
func (q QueueConfig) VisibilityDuration() time.Duration {
	return parseDuration(q.VisibilityTimeout, 30*time.Minute)
}

// TimeoutDuration returns the parsed request timeout, falling back to 2 minutes
func (s SalesforceConfig) TimeoutDuration() time.Duration {
	return parseDuration(s.RequestTimeout, 2*time.Minute)
}

// CredentialExpiry returns the TTL applied to stashed credentials; zero means no expiry
func (r RedisConfig) CredentialExpiry() time.Duration {
	return parseDuration(r.CredentialTTL, 0)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	if value == "0" {
		return 0
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
