// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Enrollment warehouse
	Warehouse *WarehouseConfig
	Snowflake *SnowflakeConfig
	Postgres  *PostgresConfig

	// External sources
	Google  *GoogleConfig
	FTP     *FTPConfig
	Clients []ClientConfig

	Server *ServerConfig

	// Join column detection, in priority order
	JoinPatterns []string

	// Logging
	AppEnv    string
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Warehouse: LoadWarehouseConfig(),
		Snowflake: LoadSnowflakeConfig(),
		Postgres:  LoadPostgresConfig(),
		Google:    LoadGoogleConfig(),
		FTP:       LoadFTPConfig(),
		Clients:   LoadClientConfigs(),
		Server:    LoadServerConfig(),

		JoinPatterns: getEnvAsStringSlice("JOIN_COLUMN_PATTERNS", []string{"email"}),

		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV selects production behavior
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production") || strings.EqualFold(c.AppEnv, "prod")
}

// Validate ensures all required configuration is present and valid. Every missing
// environment variable is reported in one error.
func (c *Config) Validate() error {
	if c.Warehouse == nil {
		return errors.New("warehouse configuration is required")
	}

	var missing []string
	switch c.Warehouse.Driver {
	case DriverSnowflake:
		if c.Snowflake == nil {
			return errors.New("snowflake configuration is required")
		}
		missing = append(missing, c.Snowflake.Missing()...)
	case DriverPostgres:
		if c.Postgres == nil {
			return errors.New("postgreSQL configuration is required")
		}
		missing = append(missing, c.Postgres.Missing()...)
	default:
		return fmt.Errorf("unsupported WAREHOUSE_DRIVER %q (expected %q or %q)",
			c.Warehouse.Driver, DriverSnowflake, DriverPostgres)
	}

	if c.usesGoogle() {
		if c.Google == nil {
			return errors.New("google API configuration is required")
		}
		missing = append(missing, c.Google.Missing()...)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if c.Server != nil && c.Server.Port <= 0 {
		return errors.New("server port must be positive")
	}

	return nil
}

// EnrollmentTable returns the table the enrollment query reads for the selected driver
func (c *Config) EnrollmentTable() string {
	if c.Warehouse != nil && c.Warehouse.Driver == DriverPostgres && c.Postgres != nil {
		return c.Postgres.EnrollmentTable
	}
	if c.Snowflake != nil {
		return c.Snowflake.DefaultTable
	}
	return ""
}

func (c *Config) usesGoogle() bool {
	for _, client := range c.Clients {
		if client.Sheets != nil || client.Drive != nil {
			return true
		}
	}
	return false
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
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
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultSeconds)) * time.Second
}

// Helper function to parse string slice from environment
func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.Trim(strings.TrimSpace(v), `"`); v != "" {
			result = append(result, v)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}

// missingVars returns the names whose values are empty, in order
func missingVars(pairs ...[2]string) []string {
	var missing []string
	for _, p := range pairs {
		if p[1] == "" {
			missing = append(missing, p[0])
		}
	}
	return missing
}
