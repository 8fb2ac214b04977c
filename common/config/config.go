package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Engine    EngineConfig
	Providers ProviderConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// EngineConfig holds execution engine settings
type EngineConfig struct {
	MaxConcurrentNodes int
	DefaultTimeout     time.Duration // whole-run timeout, bounded by Min/MaxTimeout
	MinTimeout         time.Duration
	MaxTimeout         time.Duration
	AITimeout          time.Duration // per AI provider call
	AdapterTimeout     time.Duration // per external-action adapter call
	LogBufferSize      int
	RetryAttempts      int
	RetryBackoff       time.Duration
}

// ProviderConfig holds external provider credentials and secrets
type ProviderConfig struct {
	OpenAIAPIKey        string
	AnthropicAPIKey     string
	GeminiAPIKey        string
	GitHubWebhookSecret string
	SlackSigningSecret  string
	SlackBotToken       string
	GitHubToken         string
	NotionToken         string
	CalendarToken       string
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnableMetrics bool
	MetricsPort   int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "conductor"),
			User:        getEnv("POSTGRES_USER", "conductor"),
			Password:    getEnv("POSTGRES_PASSWORD", "conductor"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 50),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 10),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Engine: EngineConfig{
			MaxConcurrentNodes: getEnvInt("ENGINE_MAX_CONCURRENT_NODES", 5),
			DefaultTimeout:     getEnvDuration("ENGINE_DEFAULT_TIMEOUT", 1*time.Hour),
			MinTimeout:         60 * time.Second,
			MaxTimeout:         24 * time.Hour,
			AITimeout:          getEnvDuration("ENGINE_AI_TIMEOUT", 120*time.Second),
			AdapterTimeout:     getEnvDuration("ENGINE_ADAPTER_TIMEOUT", 30*time.Second),
			LogBufferSize:      getEnvInt("ENGINE_LOG_BUFFER_SIZE", 1000),
			RetryAttempts:      getEnvInt("ENGINE_RETRY_ATTEMPTS", 3),
			RetryBackoff:       getEnvDuration("ENGINE_RETRY_BACKOFF", 1*time.Second),
		},
		Providers: ProviderConfig{
			OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
			AnthropicAPIKey:     getEnv("ANTHROPIC_API_KEY", ""),
			GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
			GitHubWebhookSecret: getEnv("GITHUB_WEBHOOK_SECRET", ""),
			SlackSigningSecret:  getEnv("SLACK_SIGNING_SECRET", ""),
			SlackBotToken:       getEnv("SLACK_BOT_TOKEN", ""),
			GitHubToken:         getEnv("GITHUB_TOKEN", ""),
			NotionToken:         getEnv("NOTION_TOKEN", ""),
			CalendarToken:       getEnv("GOOGLE_CALENDAR_TOKEN", ""),
		},
		Telemetry: TelemetryConfig{
			EnableMetrics: getEnvBool("ENABLE_METRICS", true),
			MetricsPort:   getEnvInt("METRICS_PORT", 9090),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	if c.Engine.MaxConcurrentNodes < 1 {
		return fmt.Errorf("max_concurrent_nodes must be >= 1")
	}

	if c.Engine.DefaultTimeout < c.Engine.MinTimeout || c.Engine.DefaultTimeout > c.Engine.MaxTimeout {
		return fmt.Errorf("default timeout %s outside bounds [%s, %s]",
			c.Engine.DefaultTimeout, c.Engine.MinTimeout, c.Engine.MaxTimeout)
	}

	return nil
}

// ClampTimeout bounds a workflow-supplied timeout to the allowed range.
// Zero or negative values fall back to the default.
func (c *Config) ClampTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		return c.Engine.DefaultTimeout
	}
	d := time.Duration(seconds) * time.Second
	if d < c.Engine.MinTimeout {
		return c.Engine.MinTimeout
	}
	if d > c.Engine.MaxTimeout {
		return c.Engine.MaxTimeout
	}
	return d
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return defaultValue
}
