package config

import (
	"fmt"
	"os"
)

// Config carries everything the server needs from the environment.
type Config struct {
	// APP
	AppEnv string
	Port   string

	// Record store backend: "file" or "postgres".
	StoreBackend string
	DataDir      string

	// Database (postgres backend only). DatabaseURL wins when set.
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPass      string
	DBName      string

	// External statistics API.
	ClashAPIToken   string
	ClashAPIBaseURL string
}

// Load reads the configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		// App
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "3000"),

		// Store
		StoreBackend: getEnv("STORE_BACKEND", "file"),
		DataDir:      getEnv("DATA_DIR", "data"),

		// DB
		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBHost:      getEnv("DB_HOST", "127.0.0.1"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPass:      getEnv("DB_PASS", ""),
		DBName:      getEnv("DB_NAME", "catbreakers"),

		// Clash API
		ClashAPIToken:   getEnv("CLASH_API_TOKEN", ""),
		ClashAPIBaseURL: getEnv("API_BASE_URL", "https://api.clashofclans.com/v1"),
	}

	if cfg.StoreBackend != "file" && cfg.StoreBackend != "postgres" {
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (want file or postgres)", cfg.StoreBackend)
	}
	return cfg, nil
}

// PostgresDSN builds the connection string for the postgres backend.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName)
}

// getEnv returns environment variable or default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
