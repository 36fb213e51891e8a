package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Extraction ExtractionConfig
	Queue      QueueConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string
}

// ExtractionConfig holds the extraction policy constants. The
// reconciliation tolerance and the failure-confidence floor are
// domain policy, not code; they are deliberately configurable.
type ExtractionConfig struct {
	// ReconciliationTolerance is the residual (in currency units)
	// within which a schedule row still counts as reconciled.
	ReconciliationTolerance float64
	// FailureConfidenceFloor is the minimum confidence a FAILURE
	// relation needs to force a NON_COMPLIANT classification.
	FailureConfidenceFloor float64
	// LowConfidenceFloor marks relations below it with a quality flag.
	LowConfidenceFloor float64
	// ContextWindow is the number of characters inspected around a
	// date token when classifying a hearing event.
	ContextWindow int
	// VocabularyPath optionally points at a YAML file overriding the
	// built-in trigger vocabulary.
	VocabularyPath string
}

// QueueConfig holds worker-pool configuration for batch processing
type QueueConfig struct {
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		},
		Extraction: ExtractionConfig{
			ReconciliationTolerance: getEnvAsFloat64("RECONCILIATION_TOLERANCE", 1.0),
			FailureConfidenceFloor:  getEnvAsFloat64("FAILURE_CONFIDENCE_FLOOR", 0.4),
			LowConfidenceFloor:      getEnvAsFloat64("LOW_CONFIDENCE_FLOOR", 0.3),
			ContextWindow:           getEnvAsInt("CONTEXT_WINDOW", 300),
			VocabularyPath:          getEnv("VOCABULARY_PATH", ""),
		},
		Queue: QueueConfig{
			Workers:        getEnvAsInt("QUEUE_WORKERS", 4),
			QueueSize:      getEnvAsInt("QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 1*time.Minute),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Extraction.ReconciliationTolerance < 0 {
		return NewAppError("CONFIG_ERROR", "RECONCILIATION_TOLERANCE must be >= 0", ErrInvalidInput)
	}
	if c.Extraction.FailureConfidenceFloor < 0 || c.Extraction.FailureConfidenceFloor > 1 {
		return NewAppError("CONFIG_ERROR", "FAILURE_CONFIDENCE_FLOOR must be in [0,1]", ErrInvalidInput)
	}
	return nil
}
