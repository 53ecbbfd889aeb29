package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for elecmate-engine
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Templates TemplatesConfig
	Exams     ExamsConfig
	Cleanup   CleanupConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
	// BootstrapAPIKey seeds an all-permissions client when running without Postgres
	BootstrapAPIKey string
}

// DatabaseConfig holds PostgreSQL configuration. An empty DSN selects the in-memory repository.
type DatabaseConfig struct {
	DSN           string
	MigrationsDir string
	MaxOpenConns  int
	MaxIdleConns  int
}

// RedisConfig holds Redis configuration. An empty address keeps drafts in memory.
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	DraftTTL     time.Duration
	PurgeOnStart bool
}

// TemplatesConfig holds document template configuration
type TemplatesConfig struct {
	Dir string
}

// ExamsConfig holds mock exam configuration
type ExamsConfig struct {
	QuestionsDir string
	// Duration overrides every bank's time limit when non-zero
	Duration     time.Duration
	TickInterval time.Duration
}

// CleanupConfig holds cleanup worker configuration
type CleanupConfig struct {
	Interval    time.Duration
	IdleTimeout time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level slog.Level
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			CORSOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),

			BootstrapAPIKey: getEnv("API_BOOTSTRAP_KEY", ""),
		},
		Database: DatabaseConfig{
			DSN:           getEnv("DATABASE_DSN", ""),
			MigrationsDir: getEnv("DATABASE_MIGRATIONS_DIR", "./migrations"),
			MaxOpenConns:  getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:  getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 2),
		},
		Redis: RedisConfig{
			Address:      getEnv("REDIS_ADDRESS", ""),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			DraftTTL:     getEnvAsDuration("DRAFT_TTL", 24*time.Hour),
			PurgeOnStart: getEnvAsBool("DRAFT_PURGE_ON_START", false),
		},
		Templates: TemplatesConfig{
			Dir: getEnv("TEMPLATES_DIR", "./templates"),
		},
		Exams: ExamsConfig{
			QuestionsDir: getEnv("QUESTIONS_DIR", "./questions"),
			Duration:     getEnvAsDuration("EXAM_DURATION", 0),
			TickInterval: getEnvAsDuration("EXAM_TICK_INTERVAL", time.Second),
		},
		Cleanup: CleanupConfig{
			Interval:    getEnvAsDuration("CLEANUP_INTERVAL", 5*time.Minute),
			IdleTimeout: getEnvAsDuration("SESSION_IDLE_TIMEOUT", 2*time.Hour),
		},
		Log: LogConfig{
			Level: getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.DSN != "" && c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("invalid database max open conns: %d", c.Database.MaxOpenConns)
	}

	if c.Database.DSN == "" && c.Server.BootstrapAPIKey != "" && len(c.Server.BootstrapAPIKey) < 16 {
		return fmt.Errorf("bootstrap api key must be at least 16 characters")
	}

	if c.Templates.Dir == "" {
		return fmt.Errorf("templates dir is required")
	}

	if c.Exams.QuestionsDir == "" {
		return fmt.Errorf("questions dir is required")
	}

	if c.Exams.Duration < 0 {
		return fmt.Errorf("invalid exam duration: %s", c.Exams.Duration)
	}

	if c.Exams.TickInterval < 0 {
		return fmt.Errorf("invalid exam tick interval: %s", c.Exams.TickInterval)
	}

	if c.Cleanup.Interval <= 0 {
		return fmt.Errorf("invalid cleanup interval: %s", c.Cleanup.Interval)
	}

	if c.Cleanup.IdleTimeout <= 0 {
		return fmt.Errorf("invalid session idle timeout: %s", c.Cleanup.IdleTimeout)
	}

	return nil
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	if value, exists := os.LookupEnv(key); exists {
		var level slog.Level
		if err := level.UnmarshalText([]byte(value)); err == nil {
			return level
		}
	}
	return defaultValue
}
