// Package config loads application configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Logging    LoggingConfig
	RateLimit  RateLimitConfig
	Ledger     LedgerConfig
	Speech     SpeechConfig
	Translator TranslatorConfig
	LLM        LLMConfig
	Search     SearchConfig
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port int
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Driver       string // "postgres" or "memory"
	Host         string
	Port         int
	Username     string
	Password     string
	DBName       string
	SSLMode      string
	TestDBName   string // Separate database for testing
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds the settings cache configuration. An empty Host disables the cache.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// AuthConfig holds the authentication configuration
type AuthConfig struct {
	JWTSecret     string
	TokenDuration time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// RateLimitConfig bounds per-user requests to the AI endpoints
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// LedgerConfig holds bulk operation tuning
type LedgerConfig struct {
	DeletePageSize int
}

// SpeechConfig holds Azure Speech credentials
type SpeechConfig struct {
	Key    string
	Region string
}

// TranslatorConfig selects and configures the translation backend
type TranslatorConfig struct {
	Backend string // "azure" or "llm"
	Key     string
	Region  string
}

// LLMConfig holds the large-language-model provider credentials
type LLMConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// SearchConfig holds Google Custom Search credentials
type SearchConfig struct {
	APIKey   string
	EngineID string
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode,
	)
}

// Addr returns the host:port address of the Redis server
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Enabled reports whether a Redis server is configured
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

// LoadConfig loads the configuration from a .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env is optional; variables may be set directly
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "postgres"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			Username:     getEnv("DB_USERNAME", "postgres"),
			Password:     getEnv("DB_PASSWORD", "password"),
			DBName:       getEnv("DB_NAME", "linguasync"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			TestDBName:   getEnv("TEST_DB_NAME", "linguasync_test"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("SETTINGS_CACHE_TTL", time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", "your-secret-key-here"),
			TokenDuration: getEnvAsDuration("JWT_TTL", 24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("AI_RATE_LIMIT_RPS", 2),
			Burst:             getEnvAsInt("AI_RATE_LIMIT_BURST", 5),
		},
		Ledger: LedgerConfig{
			DeletePageSize: getEnvAsInt("LEDGER_DELETE_PAGE_SIZE", 500),
		},
		Speech: SpeechConfig{
			Key:    getEnv("AZURE_TTS_KEY", ""),
			Region: getEnv("AZURE_TTS_REGION", ""),
		},
		Translator: TranslatorConfig{
			Backend: getEnv("TRANSLATOR_BACKEND", "llm"),
			Key:     getEnv("AZURE_TRANSLATOR_KEY", ""),
			Region:  getEnv("AZURE_TRANSLATOR_REGION", ""),
		},
		LLM: LLMConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		},
		Search: SearchConfig{
			APIKey:   getEnv("GOOGLE_API_KEY", ""),
			EngineID: getEnv("GOOGLE_SEARCH_ENGINE_ID", ""),
		},
	}, nil
}

// Helper functions to read environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
