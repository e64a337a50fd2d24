package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadTestConfig loads the configuration for integration tests from TEST_* variables
// If the database variables are not set, returns a Config with empty database values
// which lets integration tests skip themselves
func LoadTestConfig() (*Config, error) {
	// Try loading from project root (ignore error if file doesn't exist)
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Payment.Currency = "usd"

	dbHost := os.Getenv("TEST_DB_HOST")
	if dbHost == "" {
		return cfg, nil
	}
	cfg.Database.Host = dbHost

	dbPortStr := os.Getenv("TEST_DB_PORT")
	if dbPortStr == "" {
		return cfg, nil
	}
	dbPort, err := strconv.Atoi(dbPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TEST_DB_PORT: %w", err)
	}
	cfg.Database.Port = dbPort

	dbUser := os.Getenv("TEST_DB_USER")
	if dbUser == "" {
		return cfg, nil
	}
	cfg.Database.User = dbUser

	cfg.Database.Password = os.Getenv("TEST_DB_PASSWORD")

	dbName := os.Getenv("TEST_DB_NAME")
	if dbName == "" {
		return cfg, nil
	}
	cfg.Database.DBName = dbName

	cfg.JWT.Secret = stringEnv("TEST_JWT_SECRET", "integration-test-secret")

	accessExpiry, err := durationEnv("TEST_JWT_ACCESS_TOKEN_EXPIRY", time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWT.AccessTokenExpiry = accessExpiry

	refreshExpiry, err := durationEnv("TEST_JWT_REFRESH_TOKEN_EXPIRY", 168*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWT.RefreshTokenExpiry = refreshExpiry

	cfg.Media.BasePath = os.Getenv("TEST_MEDIA_BASE_PATH")

	return cfg, nil
}

// HasDatabase reports whether database settings are present
func (c *Config) HasDatabase() bool {
	return c.Database.Host != "" && c.Database.User != "" && c.Database.DBName != ""
}
