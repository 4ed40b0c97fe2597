package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/David-Botos/unenrolled-users/pkg/model"
	"github.com/David-Botos/unenrolled-users/pkg/reconcile"
)

var availableEndpoints = []string{"/", "/unenrolled", "/clients", "/health", "/cache/clear", "/metrics"}

func (s *Server) timestamp() string {
	return s.now().Format(time.RFC3339Nano)
}

// root returns service information
func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "Unenrolled Users API",
		"version":   Version,
		"status":    "active",
		"timestamp": s.timestamp(),
		"endpoints": gin.H{
			"unenrolled":  "/unenrolled?client=<client>&data_type=<data_type>",
			"clients":     "/clients",
			"health":      "/health",
			"cache_clear": "/cache/clear",
			"metrics":     "/metrics",
		},
	})
}

// getUnenrolledUsers runs a reconciliation for one client and data type
func (s *Server) getUnenrolledUsers(c *gin.Context) {
	client := strings.TrimSpace(c.Query("client"))
	dataType := strings.TrimSpace(c.Query("data_type"))

	if client == "" || dataType == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":    "error",
			"message":   "query parameters client and data_type are required",
			"timestamp": s.timestamp(),
		})
		return
	}

	s.logger.Info("Processing unenrolled users request",
		zap.String("client", client),
		zap.String("data_type", dataType),
		zap.String("request_id", c.GetString(requestIDKey)))

	result, err := s.deps.Reconciler.FindUnenrolled(c.Request.Context(), client, dataType)
	if err != nil {
		s.logger.Warn("Validation error", zap.Error(err))
		c.JSON(statusForKind(model.KindOf(err)), s.deps.Reconciler.ErrorResult(client, dataType, err))
		return
	}

	if result.Status != reconcile.StatusSuccess {
		c.JSON(statusForKind(result.ErrorKind()), result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// statusForKind maps an error kind to its HTTP status
func statusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.KindConfiguration:
		return http.StatusBadRequest
	case model.KindColumnNotFound:
		return http.StatusUnprocessableEntity
	case model.KindFetch, model.KindCacheFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type clientInfo struct {
	DataTypes []string `json:"data_types"`
	Source    string   `json:"source"`
}

// getClients lists the supported clients and their data types
func (s *Server) getClients(c *gin.Context) {
	clients := make(map[string]clientInfo)
	for _, d := range s.deps.Clients.Clients() {
		clients[d.ID] = clientInfo{DataTypes: d.DataTypes, Source: string(d.Source)}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"clients":   clients,
		"timestamp": s.timestamp(),
	})
}

// healthCheck reports liveness and enrollment cache state
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"service":          ServiceName,
		"timestamp":        s.timestamp(),
		"enrollment_cache": s.deps.Cache.Stats(),
	})
}

// clearCache drops the enrollment snapshot so the next request refetches it
func (s *Server) clearCache(c *gin.Context) {
	s.deps.Cache.Clear()
	s.logger.Info("Enrollment cache cleared", zap.String("request_id", c.GetString(requestIDKey)))

	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"message":   "enrollment cache cleared",
		"timestamp": s.timestamp(),
	})
}

func (s *Server) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"status":              "error",
		"message":             "Endpoint not found",
		"timestamp":           s.timestamp(),
		"available_endpoints": availableEndpoints,
	})
}
