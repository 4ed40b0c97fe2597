// pkg/connector/snowflake.go
package connector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	sf "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/David-Botos/unenrolled-users/pkg/config"
)

// SnowflakeConnector implements the DatabaseConnector interface for Snowflake
type SnowflakeConnector struct {
	db     *sqlx.DB
	logger *zap.Logger
	cfg    *config.SnowflakeConfig
}

// NewSnowflakeConnector creates a new Snowflake connection
func NewSnowflakeConnector(ctx context.Context, cfg *config.SnowflakeConfig, logger *zap.Logger) (*SnowflakeConnector, error) {
	logger = logger.Named("snowflake-connector")

	sfConfig := cfg.SnowflakeDriverConfig()
	if cfg.QueryTimeout > 0 {
		// Session parameter, so it holds on every pooled connection
		timeout := strconv.Itoa(int(cfg.QueryTimeout.Seconds()))
		sfConfig.Params = map[string]*string{"STATEMENT_TIMEOUT_IN_SECONDS": &timeout}
	}

	// Log connection attempt (without credentials)
	logger.Info("Connecting to Snowflake",
		zap.String("account", cfg.Account),
		zap.String("user", cfg.User),
		zap.String("database", cfg.Database),
		zap.String("warehouse", cfg.Warehouse),
		zap.String("role", cfg.Role))

	dsn, err := sf.DSN(sfConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build Snowflake DSN: %w", err)
	}

	db, err := sqlx.Open(config.DriverSnowflake, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Snowflake connection: %w", err)
	}

	ApplyConnectionSettings(
		db.DB,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	if err := PingWithTimeout(ctx, db.DB, 10*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to Snowflake: %w", err)
	}

	connector := newSnowflakeConnector(db, cfg, logger)
	LogConnectionStats(logger, cfg.Database, db.DB)
	return connector, nil
}

func newSnowflakeConnector(db *sqlx.DB, cfg *config.SnowflakeConfig, logger *zap.Logger) *SnowflakeConnector {
	return &SnowflakeConnector{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}
}

// DB returns the underlying database connection
func (c *SnowflakeConnector) DB() *sqlx.DB {
	return c.db
}

// Validate verifies the Snowflake session and that the enrollment table is visible
func (c *SnowflakeConnector) Validate(ctx context.Context) error {
	var role, database, warehouse string
	err := c.db.QueryRowContext(ctx, "SELECT CURRENT_ROLE(), CURRENT_DATABASE(), CURRENT_WAREHOUSE()").Scan(
		&role, &database, &warehouse)
	if err != nil {
		return fmt.Errorf("failed to verify Snowflake access: %w", err)
	}

	c.logger.Info("Connected to Snowflake",
		zap.String("role", role),
		zap.String("database", database),
		zap.String("warehouse", warehouse))

	// Verify we're connected to the correct database
	if !strings.EqualFold(database, c.cfg.Database) {
		return fmt.Errorf("connected to wrong database: %s (expected: %s)",
			database, c.cfg.Database)
	}

	schema, table := splitTableName(c.cfg.DefaultTable)
	var count int
	query := `SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_NAME = ?`
	args := []interface{}{strings.ToUpper(table)}
	if schema != "" {
		query += ` AND TABLE_SCHEMA = ?`
		args = append(args, strings.ToUpper(schema))
	}
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return fmt.Errorf("failed to look up enrollment table: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("enrollment table %s not found", c.cfg.DefaultTable)
	}

	return nil
}

// Close closes the database connection
func (c *SnowflakeConnector) Close() error {
	c.logger.Info("Closing Snowflake connection")
	LogConnectionStats(c.logger, c.cfg.Database, c.db.DB)
	return c.db.Close()
}

// splitTableName returns the schema and table of a [database.]schema.table name
func splitTableName(name string) (schema, table string) {
	parts := strings.Split(name, ".")
	table = parts[len(parts)-1]
	if len(parts) > 1 {
		schema = parts[len(parts)-2]
	}
	return schema, table
}
