package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage driver names
const (
	RulesDriverFile   = "file"
	RulesDriverSQLite = "sqlite"

	CatalogSourceFile = "file"
	CatalogSourceS3   = "s3"

	ApprovalsStoreMemory   = "memory"
	ApprovalsStorePostgres = "postgres"
	ApprovalsStoreRedis    = "redis"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Rules         RulesConfig
	Catalog       CatalogConfig
	Approvals     ApprovalsConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Intent        IntentConfig
	Auth          AuthConfig
	Observability ObservabilityConfig
	Environment   string

	// CurrencySymbol prefixes amounts in decision justifications
	CurrencySymbol string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

// RulesConfig selects and locates the site rules document
type RulesConfig struct {
	Driver string // file or sqlite
	Path   string // document file (.json, .yaml, .yml) or sqlite database file
	Init   bool   // create an empty document at startup when absent
}

// CatalogConfig locates the static vendor catalog
type CatalogConfig struct {
	Source string // file or s3
	Path   string
	S3     S3Config
}

// S3Config holds the S3 object coordinates for the vendor catalog
type S3Config struct {
	Bucket    string
	Key       string
	Region    string
	Endpoint  string // optional, for S3-compatible stores such as MinIO
	PathStyle bool
}

// ApprovalsConfig selects the store that holds orders awaiting approval
type ApprovalsConfig struct {
	Store string // memory, postgres or redis
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// IntentConfig holds the language-model collaborator configuration
type IntentConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// AuthConfig holds JWT validation settings for approval endpoints
type AuthConfig struct {
	JWTSecret    string
	Issuer       string
	ApproverRole string
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or text
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		CurrencySymbol: getEnv("CURRENCY_SYMBOL", "₹"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 60*time.Second),
		},
		Rules: RulesConfig{
			Driver: strings.ToLower(getEnv("RULES_STORE_DRIVER", RulesDriverFile)),
			Path:   getEnv("RULES_STORE_PATH", "data/memory.json"),
			Init:   getEnvAsBool("RULES_STORE_INIT", true),
		},
		Catalog: CatalogConfig{
			Source: strings.ToLower(getEnv("CATALOG_SOURCE", CatalogSourceFile)),
			Path:   getEnv("CATALOG_PATH", "data/mock_vendors.json"),
			S3: S3Config{
				Bucket:    getEnv("CATALOG_S3_BUCKET", ""),
				Key:       getEnv("CATALOG_S3_KEY", "mock_vendors.json"),
				Region:    getEnv("CATALOG_S3_REGION", "us-east-1"),
				Endpoint:  getEnv("CATALOG_S3_ENDPOINT", ""),
				PathStyle: getEnvAsBool("CATALOG_S3_PATH_STYLE", false),
			},
		},
		Approvals: ApprovalsConfig{
			Store: strings.ToLower(getEnv("APPROVALS_STORE", ApprovalsStoreMemory)),
		},
		Database: loadDatabaseConfig(),
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "procurement:approval:"),
			TTL:       getEnvAsDuration("APPROVALS_TTL", 7*24*time.Hour),
		},
		Intent: IntentConfig{
			Provider: strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
			APIKey:   getEnv("OPENAI_API_KEY", ""),
			BaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Timeout:  getEnvAsDuration("INTENT_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("AUTH_JWT_SECRET", ""),
			Issuer:       getEnv("AUTH_JWT_ISSUER", ""),
			ApproverRole: getEnv("AUTH_APPROVER_ROLE", "manager"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	switch c.Rules.Driver {
	case RulesDriverFile, RulesDriverSQLite:
	default:
		return fmt.Errorf("unknown rules store driver: %s", c.Rules.Driver)
	}
	if c.Rules.Path == "" {
		return fmt.Errorf("rules store path is required")
	}

	switch c.Catalog.Source {
	case CatalogSourceFile:
		if c.Catalog.Path == "" {
			return fmt.Errorf("catalog path is required for file source")
		}
	case CatalogSourceS3:
		if c.Catalog.S3.Bucket == "" || c.Catalog.S3.Key == "" {
			return fmt.Errorf("catalog S3 bucket and key are required for s3 source")
		}
	default:
		return fmt.Errorf("unknown catalog source: %s", c.Catalog.Source)
	}

	switch c.Approvals.Store {
	case ApprovalsStoreMemory:
	case ApprovalsStorePostgres:
		if c.Database.ConnectionString == "" && c.Database.Host == "" {
			return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
		}
		if c.Database.ConnectionString == "" && c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
	case ApprovalsStoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required for redis approvals store")
		}
	default:
		return fmt.Errorf("unknown approvals store: %s", c.Approvals.Store)
	}

	// Approval resolution must be authenticated in production
	if c.IsProduction() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required in production")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "procurement"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "procurement"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
