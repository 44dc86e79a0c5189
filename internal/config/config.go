// Package config provides configuration structures and validation for the application.
// It handles environment-based configuration for all major components including
// server settings, database connections, the payment gateway, and billing rules.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a major subsystem's configuration (e.g., HTTP server, databases,
// payment gateway) and is validated during application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Kafka       KafkaConfig
	Gateway     GatewayConfig
	Billing     BillingConfig
	Settlement  SettlementConfig
	WorkerPool  WorkerPoolConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration for the audit log store
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// KafkaConfig contains Kafka configuration for notification fan-out
type KafkaConfig struct {
	Brokers           string
	NotificationTopic string
	DLQTopic          string // Topic for undeliverable notifications
	NumPartitions     int    // Number of partitions for topics
	ReplicationFactor int    // Replication factor for topics
	MaxWait           time.Duration
}

// GatewayConfig contains payment gateway credentials and connection settings.
// KeyID/KeySecret may be left empty; order creation then reports the gateway
// as unavailable instead of failing at startup.
type GatewayConfig struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Timeout       time.Duration // Bound on outbound gateway calls
}

// BillingConfig contains the billing engine rules
type BillingConfig struct {
	BaseCurrency      string // Reporting/settlement base currency
	EURToINRRate      string // Deployment-time snapshot rate, INR per 1 EUR
	MaxOrderAmount    string // Upper bound on a single order, in order currency
	DefaultPayablePct int    // Invoice fallback: percentage of balance payable now
}

// SettlementConfig contains the settlement recovery poller configuration
type SettlementConfig struct {
	PollingInterval time.Duration
	BatchSize       int
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.NotificationTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_NOTIFICATION_TOPIC is required")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_PRODUCER_MAX_WAIT must be greater than 0")
	}

	// Validate Gateway config. Credentials are optional so that environments
	// without a gateway account can still boot; the webhook secret is not,
	// because an unsigned webhook path would accept forged events.
	if c.Gateway.BaseURL == "" {
		validationErrors = append(validationErrors, "GATEWAY_BASE_URL is required")
	}
	if c.Gateway.WebhookSecret == "" {
		validationErrors = append(validationErrors, "GATEWAY_WEBHOOK_SECRET is required")
	}
	if c.Gateway.Timeout <= 0 {
		validationErrors = append(validationErrors, "GATEWAY_TIMEOUT must be greater than 0")
	}

	// Validate Billing config
	if c.Billing.BaseCurrency == "" {
		validationErrors = append(validationErrors, "BILLING_BASE_CURRENCY is required")
	}
	if c.Billing.EURToINRRate == "" {
		validationErrors = append(validationErrors, "BILLING_EUR_TO_INR_RATE is required")
	}
	if c.Billing.MaxOrderAmount == "" {
		validationErrors = append(validationErrors, "BILLING_MAX_ORDER_AMOUNT is required")
	}
	if c.Billing.DefaultPayablePct <= 0 || c.Billing.DefaultPayablePct > 100 {
		validationErrors = append(validationErrors, "BILLING_DEFAULT_PAYABLE_PCT must be between 1 and 100")
	}

	// Validate Settlement config
	if c.Settlement.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "SETTLEMENT_POLLING_INTERVAL must be greater than 0")
	}
	if c.Settlement.BatchSize <= 0 {
		validationErrors = append(validationErrors, "SETTLEMENT_BATCH_SIZE must be greater than 0")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
