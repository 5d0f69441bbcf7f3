// Package config provides configuration management for the ledger
// transfer tool. It loads configuration from environment variables and
// .env files.
package config

import (
	"fmt"
	"os"

	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/dates"
	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	// DBPath is the SQLite database holding statements and ledger.
	DBPath string
	// ChartPath is the chart-of-accounts YAML file.
	ChartPath string
	// Currency is the expected statement currency.
	Currency string
	// TransferStart is the epoch used for accounts without any linked
	// statement yet.
	TransferStart dates.Date
	Debug         bool
}

// Load loads configuration from environment variables. It automatically
// loads a .env file from the current directory if available; a custom
// path can be given instead.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	transferStart, err := parseDateEnv("BANKEN_TRANSFER_START", dates.New(2020, 1, 1))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DBPath:        getEnvOrDefault("BANKEN_DB_PATH", "./data/banken.db"),
		ChartPath:     getEnvOrDefault("BANKEN_CHART_PATH", "./config/chart-of-accounts.yaml"),
		Currency:      getEnvOrDefault("BANKEN_CURRENCY", "EUR"),
		TransferStart: transferStart,
		Debug:         os.Getenv("DEBUG") == "true",
	}

	return cfg, nil
}

// Validate checks that the chart file exists and the database path is
// set. Missing pieces are reported together.
func (c *Config) Validate() error {
	var missing []string

	if c.DBPath == "" {
		missing = append(missing, "BANKEN_DB_PATH")
	}
	if c.ChartPath == "" {
		missing = append(missing, "BANKEN_CHART_PATH")
	} else if _, err := os.Stat(c.ChartPath); err != nil {
		return fmt.Errorf("chart-of-accounts file %s not readable: %w", c.ChartPath, err)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDateEnv parses an ISO date from an environment variable.
// Returns defaultValue if the environment variable is not set.
func parseDateEnv(key string, defaultValue dates.Date) (dates.Date, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	d, err := dates.Parse(value)
	if err != nil {
		return dates.Date{}, fmt.Errorf("invalid date value for %s: %w", key, err)
	}

	return d, nil
}
