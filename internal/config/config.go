package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port string

	// Database configuration
	DBType                 string // mysql, postgres, sqlite, sqlserver, etc.
	DBHost                 string
	DBPort                 string
	DBDatabase             string
	DBAppUser              string
	DBAppPassword          string
	DBAppConnectionLimit   int
	DBAdminUser            string
	DBAdminPassword        string
	DBAdminConnectionLimit int

	// Shared secret required on mutating API routes
	APIKey string

	// Telemetry route rate limiting
	ClickLimitPerMinute int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                   getEnv("PORT", "3000"),
		DBType:                 getEnv("DB_TYPE", "mysql"),
		DBHost:                 getEnv("DB_HOST", "localhost"),
		DBPort:                 getEnv("DB_PORT", "3306"),
		DBDatabase:             getEnv("DB_DATABASE", ""),
		DBAppUser:              getEnv("DB_APP_USER", ""),
		DBAppPassword:          getEnv("DB_APP_PASSWORD", ""),
		DBAppConnectionLimit:   getEnvAsInt("DB_APP_CONNECTION_LIMIT", 5),
		DBAdminUser:            getEnv("DB_ADMIN_USER", ""),
		DBAdminPassword:        getEnv("DB_ADMIN_PASSWORD", ""),
		DBAdminConnectionLimit: getEnvAsInt("DB_ADMIN_CONNECTION_LIMIT", 2),
		APIKey:                 getEnv("API_KEY", ""),
		ClickLimitPerMinute:    getEnvAsInt("CLICK_LIMIT_PER_MINUTE", 60),
	}

	// Validate required fields
	if cfg.DBDatabase == "" {
		return nil, fmt.Errorf("DB_DATABASE is required")
	}
	if cfg.DBType != "sqlite" && cfg.DBType != "sqlite-pure" {
		if cfg.DBAppUser == "" {
			return nil, fmt.Errorf("DB_APP_USER is required")
		}
		if cfg.DBAdminUser == "" {
			return nil, fmt.Errorf("DB_ADMIN_USER is required")
		}
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY is required")
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
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
