// pkg/connector/postgres.go
package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/unenrolled-users/pkg/config"
)

// PostgresConnector implements the DatabaseConnector interface for a PostgreSQL
// mirror of the enrollment table
type PostgresConnector struct {
	db     *sqlx.DB
	logger *zap.Logger
	cfg    *config.PostgresConfig
}

// NewPostgresConnector creates and initializes a new PostgreSQL connector
func NewPostgresConnector(ctx context.Context, cfg *config.PostgresConfig, logger *zap.Logger) (*PostgresConnector, error) {
	logger = logger.Named("postgres-connector")

	// Log connection attempt
	logger.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User))

	connStr := cfg.ConnectionString()
	if cfg.StatementTimeout > 0 {
		// lib/pq sends unknown keys as run-time parameters of every session
		connStr += fmt.Sprintf(" statement_timeout=%d", cfg.StatementTimeout.Milliseconds())
	}

	db, err := sqlx.Open(config.DriverPostgres, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	ApplyConnectionSettings(
		db.DB,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	if err := PingWithTimeout(ctx, db.DB, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	connector := newPostgresConnector(db, cfg, logger)
	LogConnectionStats(logger, cfg.Database, db.DB)
	return connector, nil
}

func newPostgresConnector(db *sqlx.DB, cfg *config.PostgresConfig, logger *zap.Logger) *PostgresConnector {
	return &PostgresConnector{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}
}

// DB returns the underlying database connection
func (c *PostgresConnector) DB() *sqlx.DB {
	return c.db
}

// Validate verifies the PostgreSQL connection and that the enrollment table exists
func (c *PostgresConnector) Validate(ctx context.Context) error {
	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return fmt.Errorf("failed to query PostgreSQL version: %w", err)
	}
	c.logger.Info("Connected to PostgreSQL", zap.String("version", version))

	var exists bool
	if err := c.db.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", c.cfg.EnrollmentTable).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up enrollment table: %w", err)
	}
	if !exists {
		return fmt.Errorf("enrollment table %s not found", c.cfg.EnrollmentTable)
	}

	c.logger.Info("PostgreSQL connection validated",
		zap.String("database", c.cfg.Database),
		zap.String("host", c.cfg.Host),
		zap.Int("port", c.cfg.Port),
		zap.String("table", c.cfg.EnrollmentTable))

	return nil
}

// Close closes the database connection
func (c *PostgresConnector) Close() error {
	c.logger.Info("Closing PostgreSQL connection")
	LogConnectionStats(c.logger, c.cfg.Database, c.db.DB)
	return c.db.Close()
}
