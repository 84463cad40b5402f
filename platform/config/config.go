// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketWebhookPayloads() string
	IsMinIOEnabled() bool
}

// WebhookConfig provides settings for the inbound CRM webhook.
type WebhookConfig interface {
	GetWebhookSecret() string
	GetWebhookAliasesFile() string
	GetWebhookRateLimit() float64
	GetWebhookRateBurst() int
}

// PhoneConfig provides the region used to interpret numbers without a country code.
type PhoneConfig interface {
	GetPhoneDefaultRegion() string
}

// CRMSyncConfig provides settings for pushing leads to the external CRM.
type CRMSyncConfig interface {
	GetCRMBaseURL() string
	GetCRMAPIToken() string
	GetCRMTimeout() time.Duration
	IsCRMSyncEnabled() bool
}

// BrokerConfig provides settings for the RabbitMQ fan-out of synced leads.
type BrokerConfig interface {
	GetRabbitMQURL() string
	GetRabbitMQExchange() string
	IsBrokerEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                       string
	HTTPAddr                  string
	DatabaseURL               string
	MigrationsEnabled         bool
	JWTAccessSecret           string
	CORSAllowAll              bool
	CORSOrigins               []string
	CORSAllowCreds            bool
	RedisURL                  string
	RedisTLSInsecure          bool
	AsynqQueueName            string
	AsynqConcurrency          int
	MinIOEndpoint             string
	MinIOAccessKey            string
	MinIOSecretKey            string
	MinIOUseSSL               bool
	MinIOMaxFileSize          int64
	MinioBucketWebhookPayload string
	WebhookSecret             string
	WebhookAliasesFile        string
	WebhookRateLimit          float64
	WebhookRateBurst          int
	PhoneDefaultRegion        string
	CRMBaseURL                string
	CRMAPIToken               string
	CRMTimeout                time.Duration
	RabbitMQURL               string
	RabbitMQExchange          string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string  { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int   { return c.AsynqConcurrency }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string   { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string  { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string  { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool       { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64 { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketWebhookPayloads() string {
	return c.MinioBucketWebhookPayload
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// WebhookConfig implementation
func (c *Config) GetWebhookSecret() string      { return c.WebhookSecret }
func (c *Config) GetWebhookAliasesFile() string { return c.WebhookAliasesFile }
func (c *Config) GetWebhookRateLimit() float64  { return c.WebhookRateLimit }
func (c *Config) GetWebhookRateBurst() int      { return c.WebhookRateBurst }

// PhoneConfig implementation
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }

// CRMSyncConfig implementation
func (c *Config) GetCRMBaseURL() string         { return c.CRMBaseURL }
func (c *Config) GetCRMAPIToken() string        { return c.CRMAPIToken }
func (c *Config) GetCRMTimeout() time.Duration  { return c.CRMTimeout }
func (c *Config) IsCRMSyncEnabled() bool        { return c.CRMBaseURL != "" && c.CRMAPIToken != "" }

// BrokerConfig implementation
func (c *Config) GetRabbitMQURL() string      { return c.RabbitMQURL }
func (c *Config) GetRabbitMQExchange() string { return c.RabbitMQExchange }
func (c *Config) IsBrokerEnabled() bool       { return c.RabbitMQURL != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                       getEnv("APP_ENV", "development"),
		HTTPAddr:                  getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		MigrationsEnabled:         strings.EqualFold(getEnv("MIGRATIONS_ENABLED", "true"), "true"),
		JWTAccessSecret:           getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:              corsAllowAll,
		CORSOrigins:               corsOrigins,
		CORSAllowCreds:            strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:                  getEnv("REDIS_URL", ""),
		RedisTLSInsecure:          strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:            getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:          mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		MinIOEndpoint:             getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:            getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:            getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:               strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:          mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "1048576")),
		MinioBucketWebhookPayload: getEnv("MINIO_BUCKET_WEBHOOK_PAYLOADS", "webhook-payloads"),
		WebhookSecret:             getEnv("WEBHOOK_SECRET", ""),
		WebhookAliasesFile:        getEnv("WEBHOOK_ALIASES_FILE", ""),
		WebhookRateLimit:          mustFloat(getEnv("WEBHOOK_RATE_LIMIT", "20")),
		WebhookRateBurst:          mustInt(getEnv("WEBHOOK_RATE_BURST", "40")),
		PhoneDefaultRegion:        getEnv("PHONE_DEFAULT_REGION", "US"),
		CRMBaseURL:                strings.TrimRight(getEnv("CRM_BASE_URL", ""), "/"),
		CRMAPIToken:               getEnv("CRM_API_TOKEN", ""),
		CRMTimeout:                mustDuration(getEnv("CRM_TIMEOUT", "10s")),
		RabbitMQURL:               getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange:          getEnv("RABBITMQ_EXCHANGE", "ex.leads"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.WebhookRateLimit <= 0 || cfg.WebhookRateBurst <= 0 {
		return nil, fmt.Errorf("WEBHOOK_RATE_LIMIT and WEBHOOK_RATE_BURST must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
