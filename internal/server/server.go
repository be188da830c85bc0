package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	httperr "github.com/jeremylongshore/diagnosticpro-schema-sql/internal/core/errors"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/core/storage/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

type Server struct {
	Engine *gin.Engine
	Addr   string
	health HealthChecker
}

// HealthChecker is an interface for components that can report their health status.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RunLister reads the persisted validation run history.
type RunLister interface {
	RecentRuns(ctx context.Context, limit int) ([]postgres.RunSummary, error)
}

// New creates the HTTP server. health may be nil when no warehouse is configured.
func New(addr string, health HealthChecker, mode string) *Server {
	// Set Gin mode based on configuration
	if mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	s := &Server{
		Engine: r,
		Addr:   addr,
		health: health,
	}

	// Health check endpoint with warehouse connectivity verification
	r.GET("/health", s.healthHandler)

	return s
}

// EnableMetrics serves the metrics registered with g on GET /metrics.
func (s *Server) EnableMetrics(g prometheus.Gatherer) {
	s.Engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}

// EnableRunHistory serves recent validation runs on GET /v1/runs?limit=N.
func (s *Server) EnableRunHistory(runs RunLister) {
	s.Engine.GET("/v1/runs", func(c *gin.Context) {
		limit := defaultRunsLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > maxRunsLimit {
				c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
					ErrorType: httperr.HttpInvalidLimitError,
					Message:   "limit must be an integer between 1 and 200",
				})
				return
			}
			limit = n
		}

		list, err := runs.RecentRuns(c.Request.Context(), limit)
		if err != nil {
			slog.Error("Run history query failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
				ErrorType: httperr.HttpWarehouseUnavailableError,
				Message:   "Failed to read run history",
			})
			return
		}
		if list == nil {
			list = []postgres.RunSummary{}
		}
		c.JSON(http.StatusOK, list)
	})
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.health == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"warehouse": "not configured",
		})
		return
	}

	if err := s.health.Ping(ctx); err != nil {
		slog.Error("Health check failed: warehouse unreachable", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "warehouse unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"warehouse": "connected",
	})
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP Server...", "address", s.Addr)

	go func() {
		<-ctx.Done()
		slog.Info("Stopping HTTP Server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP Server forced to shutdown", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
