// pkg/connector/factory.go
package connector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/unenrolled-users/pkg/config"
)

// ConnectorFactory creates database connectors
type ConnectorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewConnectorFactory creates a new connector factory
func NewConnectorFactory(cfg *config.Config, logger *zap.Logger) *ConnectorFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSnowflakeConnector creates a new Snowflake connector
func (f *ConnectorFactory) CreateSnowflakeConnector(ctx context.Context) (*SnowflakeConnector, error) {
	f.logger.Info("Creating Snowflake connector")

	connector, err := NewSnowflakeConnector(ctx, f.cfg.Snowflake, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Snowflake connector: %w", err)
	}

	return connector, nil
}

// CreatePostgresConnector creates a new PostgreSQL connector
func (f *ConnectorFactory) CreatePostgresConnector(ctx context.Context) (*PostgresConnector, error) {
	f.logger.Info("Creating PostgreSQL connector")

	connector, err := NewPostgresConnector(ctx, f.cfg.Postgres, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL connector: %w", err)
	}

	return connector, nil
}

// CreateWarehouseConnector creates the connector selected by WAREHOUSE_DRIVER and
// validates it
func (f *ConnectorFactory) CreateWarehouseConnector(ctx context.Context) (DatabaseConnector, error) {
	var (
		conn DatabaseConnector
		err  error
	)

	switch f.cfg.Warehouse.Driver {
	case config.DriverSnowflake:
		conn, err = f.CreateSnowflakeConnector(ctx)
	case config.DriverPostgres:
		conn, err = f.CreatePostgresConnector(ctx)
	default:
		return nil, fmt.Errorf("unsupported warehouse driver: %s", f.cfg.Warehouse.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := conn.Validate(ctx); err != nil {
		conn.Close() // Release the pool if the warehouse is not usable
		return nil, fmt.Errorf("warehouse validation failed: %w", err)
	}

	return conn, nil
}
