package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/David-Botos/unenrolled-users/pkg/api"
	"github.com/David-Botos/unenrolled-users/pkg/config"
	"github.com/David-Botos/unenrolled-users/pkg/connector"
	"github.com/David-Botos/unenrolled-users/pkg/enrollment"
	"github.com/David-Botos/unenrolled-users/pkg/fetcher"
	"github.com/David-Botos/unenrolled-users/pkg/metrics"
	"github.com/David-Botos/unenrolled-users/pkg/reconcile"
	"github.com/David-Botos/unenrolled-users/pkg/registry"
)

// Application holds the long-lived components of the service
type Application struct {
	config *config.Config
	logger *zap.Logger

	warehouse connector.DatabaseConnector
	cache     *enrollment.Cache
	server    *api.Server
}

func main() {
	// A missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	app := &Application{}
	if err := app.Initialize(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.Start()
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdownCh:
		app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			app.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}

	if err := app.Shutdown(); err != nil {
		app.logger.Error("Error during shutdown", zap.Error(err))
		os.Exit(1)
	}
	app.logger.Info("Application shutdown complete")
}

// Initialize builds every component from the environment
func (app *Application) Initialize(ctx context.Context) error {
	var err error

	app.config, err = config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if app.logger, err = newLogger(app.config); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	app.logger.Info("Starting Unenrolled Users API",
		zap.String("version", api.Version),
		zap.String("environment", app.config.AppEnv),
		zap.String("warehouse_driver", app.config.Warehouse.Driver))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	clients, err := registry.New(app.config.Descriptors()...)
	if err != nil {
		return fmt.Errorf("failed to build client registry: %w", err)
	}

	app.warehouse, err = connector.NewConnectorFactory(app.config, app.logger).CreateWarehouseConnector(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to warehouse: %w", err)
	}

	wh, err := enrollment.NewSQLWarehouse(app.warehouse.DB(), app.config.EnrollmentTable(), app.logger)
	if err != nil {
		return fmt.Errorf("failed to create enrollment warehouse: %w", err)
	}
	wh.WithQueryTimeout(app.config.Warehouse.QueryTimeout)

	app.cache, err = enrollment.NewCache(wh, clients.Companies(), app.logger)
	if err != nil {
		return fmt.Errorf("failed to create enrollment cache: %w", err)
	}
	app.cache.WithMetrics(m)

	if app.config.Warehouse.WarmOnStart {
		if err := app.cache.Warm(ctx); err != nil {
			// Requests retry the fill on demand
			app.logger.Warn("Enrollment cache warm-up failed", zap.Error(err))
		}
	}

	router, err := fetcher.BuildRouter(ctx, app.config, app.logger)
	if err != nil {
		return fmt.Errorf("failed to build fetch router: %w", err)
	}

	filters, err := reconcile.NewFilterRegistry(app.logger, reconcile.DefaultFilterRules()...)
	if err != nil {
		return fmt.Errorf("failed to register filter rules: %w", err)
	}

	reconciler, err := reconcile.NewReconciler(clients, router, app.cache, filters, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create reconciler: %w", err)
	}
	reconciler.WithJoinPatterns(app.config.JoinPatterns...).WithMetrics(m)

	app.server, err = api.NewServer(api.Dependencies{
		Reconciler: reconciler,
		Clients:    clients,
		Cache:      app.cache,
		Metrics:    m,
		Gatherer:   reg,
	}, app.config.Server, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	app.logger.Info("Application initialization complete",
		zap.Int("clients", len(clients.Clients())),
		zap.Strings("companies", clients.Companies()))
	return nil
}

// Shutdown stops the HTTP server and closes the warehouse connection
func (app *Application) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()

	var firstErr error
	if err := app.server.Shutdown(ctx); err != nil {
		firstErr = fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	if err := app.warehouse.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close warehouse connection: %w", err)
	}

	_ = app.logger.Sync()
	return firstErr
}

// newLogger builds the development or production zap preset for APP_ENV,
// adjusted by LOG_LEVEL and LOG_FORMAT
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	switch cfg.LogFormat {
	case "json", "console":
		zc.Encoding = cfg.LogFormat
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: expected json or console", cfg.LogFormat)
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", api.ServiceName)), nil
}
