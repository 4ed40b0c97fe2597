// pkg/config/database.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/snowflakedb/gosnowflake"
)

// Warehouse drivers
const (
	DriverSnowflake = "snowflake"
	DriverPostgres  = "postgres"
)

// WarehouseConfig selects the enrollment warehouse and how the cache uses it
type WarehouseConfig struct {
	Driver       string // snowflake or postgres
	QueryTimeout time.Duration
	WarmOnStart  bool // Fill the enrollment cache before serving
}

// SnowflakeConfig holds Snowflake connection parameters
type SnowflakeConfig struct {
	User          string
	Password      string
	Account       string
	Warehouse     string
	Database      string
	Role          string
	Authenticator gosnowflake.AuthType
	DefaultTable  string // Enrollment table, e.g. ANALYTICS.PUBLIC.ENROLLMENTS

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Query timeout
	QueryTimeout time.Duration
}

// PostgresConfig holds PostgreSQL connection parameters for an enrollment mirror
type PostgresConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	EnrollmentTable string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Statement timeout
	StatementTimeout time.Duration
}

// LoadWarehouseConfig loads the warehouse selection from environment variables
func LoadWarehouseConfig() *WarehouseConfig {
	return &WarehouseConfig{
		Driver:       strings.ToLower(getEnv("WAREHOUSE_DRIVER", DriverSnowflake)),
		QueryTimeout: getEnvAsSeconds("ENROLLMENT_QUERY_TIMEOUT_SECONDS", 120),
		WarmOnStart:  getEnvAsBool("ENROLLMENT_CACHE_WARM", false),
	}
}

// LoadSnowflakeConfig loads Snowflake configuration from environment variables.
// Required values are checked by Missing.
func LoadSnowflakeConfig() *SnowflakeConfig {
	return &SnowflakeConfig{
		User:          os.Getenv("SNOWFLAKE_USER"),
		Password:      os.Getenv("SNOWFLAKE_PASSWORD"),
		Account:       os.Getenv("SNOWFLAKE_ACCOUNT"),
		Warehouse:     os.Getenv("SNOWFLAKE_WAREHOUSE"),
		Database:      os.Getenv("SNOWFLAKE_DATABASE"),
		Role:          getEnv("SNOWFLAKE_ROLE", ""),
		Authenticator: parseAuthenticator(getEnv("SNOWFLAKE_AUTHENTICATOR", "snowflake")),
		DefaultTable:  os.Getenv("SNOWFLAKE_DEFAULT_TABLE"),

		MaxOpenConns:    getEnvAsInt("SNOWFLAKE_MAX_OPEN_CONNS", 4),
		MaxIdleConns:    getEnvAsInt("SNOWFLAKE_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: getEnvAsSeconds("SNOWFLAKE_CONN_MAX_LIFETIME_SECONDS", 600),
		ConnMaxIdleTime: getEnvAsSeconds("SNOWFLAKE_CONN_MAX_IDLE_TIME_SECONDS", 300),
		QueryTimeout:    getEnvAsSeconds("SNOWFLAKE_QUERY_TIMEOUT_SECONDS", 300),
	}
}

// Missing returns the required Snowflake variables that are not set
func (c *SnowflakeConfig) Missing() []string {
	return missingVars(
		[2]string{"SNOWFLAKE_ACCOUNT", c.Account},
		[2]string{"SNOWFLAKE_USER", c.User},
		[2]string{"SNOWFLAKE_PASSWORD", c.Password},
		[2]string{"SNOWFLAKE_WAREHOUSE", c.Warehouse},
		[2]string{"SNOWFLAKE_DATABASE", c.Database},
		[2]string{"SNOWFLAKE_DEFAULT_TABLE", c.DefaultTable},
	)
}

func parseAuthenticator(s string) gosnowflake.AuthType {
	switch strings.ToLower(s) {
	case "oauth":
		return gosnowflake.AuthTypeOAuth
	case "externalbrowser":
		return gosnowflake.AuthTypeExternalBrowser
	case "username_password_mfa":
		return gosnowflake.AuthTypeUsernamePasswordMFA
	case "jwt":
		return gosnowflake.AuthTypeJwt
	case "token":
		return gosnowflake.AuthTypeTokenAccessor
	case "okta":
		return gosnowflake.AuthTypeOkta
	default:
		return gosnowflake.AuthTypeSnowflake
	}
}

// LoadPostgresConfig loads PostgreSQL configuration from environment variables.
// Required values are checked by Missing.
func LoadPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		Host:            getEnv("POSTGRES_HOST", "localhost"),
		Port:            getEnvAsInt("POSTGRES_PORT", getEnvAsInt("TUNNEL_PORT", 5432)),
		User:            os.Getenv("POSTGRES_USER"),
		Password:        os.Getenv("POSTGRES_PASSWORD"),
		Database:        os.Getenv("POSTGRES_DB"),
		SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
		EnrollmentTable: getEnv("POSTGRES_ENROLLMENT_TABLE", "public.enrollments"),

		MaxOpenConns:     getEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 10),
		MaxIdleConns:     getEnvAsInt("POSTGRES_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:  getEnvAsSeconds("POSTGRES_CONN_MAX_LIFETIME_SECONDS", 1800),
		ConnMaxIdleTime:  getEnvAsSeconds("POSTGRES_CONN_MAX_IDLE_TIME_SECONDS", 600),
		StatementTimeout: getEnvAsSeconds("POSTGRES_STATEMENT_TIMEOUT_SECONDS", 300),
	}
}

// Missing returns the required PostgreSQL variables that are not set
func (c *PostgresConfig) Missing() []string {
	return missingVars(
		[2]string{"POSTGRES_USER", c.User},
		[2]string{"POSTGRES_PASSWORD", c.Password},
		[2]string{"POSTGRES_DB", c.Database},
		[2]string{"POSTGRES_ENROLLMENT_TABLE", c.EnrollmentTable},
	)
}

// SnowflakeDriverConfig returns the gosnowflake configuration for building a DSN
func (c *SnowflakeConfig) SnowflakeDriverConfig() *gosnowflake.Config {
	return &gosnowflake.Config{
		Account:       c.Account,
		User:          c.User,
		Password:      c.Password,
		Database:      c.Database,
		Warehouse:     c.Warehouse,
		Role:          c.Role,
		Authenticator: c.Authenticator,
	}
}

// ConnectionString returns a formatted PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}
