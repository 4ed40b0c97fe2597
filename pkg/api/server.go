// Package api exposes the reconciliation service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/David-Botos/unenrolled-users/pkg/config"
	"github.com/David-Botos/unenrolled-users/pkg/enrollment"
	"github.com/David-Botos/unenrolled-users/pkg/metrics"
	"github.com/David-Botos/unenrolled-users/pkg/model"
	"github.com/David-Botos/unenrolled-users/pkg/reconcile"
)

const (
	ServiceName = "unenrolled-users-api"
	Version     = "1.0.0"
)

// Reconciler runs reconciliation requests
type Reconciler interface {
	FindUnenrolled(ctx context.Context, clientID, dataType string) (reconcile.Result, error)
	ErrorResult(clientID, dataType string, err error) reconcile.Result
}

// ClientLister lists the configured clients
type ClientLister interface {
	Clients() []model.ClientDescriptor
}

// EnrollmentCache is the cache control surface of the API
type EnrollmentCache interface {
	Stats() enrollment.Stats
	Clear()
}

// Dependencies are the collaborators of the HTTP server
type Dependencies struct {
	Reconciler Reconciler
	Clients    ClientLister
	Cache      EnrollmentCache
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
}

// Server is the HTTP server of the service
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	deps       Dependencies
	cfg        *config.ServerConfig
	now        func() time.Time
	logger     *zap.Logger
}

// NewServer creates the HTTP server and its routes
func NewServer(deps Dependencies, cfg *config.ServerConfig, logger *zap.Logger) (*Server, error) {
	if deps.Reconciler == nil || deps.Clients == nil || deps.Cache == nil {
		return nil, errors.New("reconciler, client lister and cache are required")
	}
	if cfg == nil {
		return nil, errors.New("server configuration is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		router: gin.New(),
		deps:   deps,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.Named("http"),
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(s.recoveryMiddleware())

	s.router.GET("/", s.root)
	s.router.GET("/unenrolled", s.getUnenrolledUsers)
	s.router.GET("/clients", s.getClients)
	s.router.GET("/health", s.healthCheck)
	s.router.POST("/cache/clear", s.clearCache)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))

	s.router.NoRoute(s.notFound)
}

// Start serves HTTP until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx expires
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the router, for tests
func (s *Server) Handler() http.Handler {
	return s.router
}
