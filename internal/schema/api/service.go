package api

import (
	"github.com/gin-gonic/gin"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/metrics"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
)

const defaultMaxBodySizeBytes = 1024 * 1024

// Service provides the contract listing and record validation API.
type Service struct {
	registry         *schema.Registry
	engine           *schema.Engine
	metrics          *metrics.Metrics
	maxBodySizeBytes int
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMetrics records every validation outcome on m.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithMaxBodySize caps request bodies at mb megabytes.
func WithMaxBodySize(mb int) ServiceOption {
	return func(s *Service) {
		if mb > 0 {
			s.maxBodySizeBytes = mb * 1024 * 1024
		}
	}
}

// NewService creates a new contract API service.
func NewService(reg *schema.Registry, engine *schema.Engine, opts ...ServiceOption) *Service {
	s := &Service{
		registry:         reg,
		engine:           engine,
		maxBodySizeBytes: defaultMaxBodySizeBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRoutes registers the contract API routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	handler := NewHandler(s)

	contracts := r.Group("/v1/contracts")
	{
		contracts.GET("", handler.HandleList)
		// /v1/contracts/{entity}?op=create
		contracts.GET("/:entity", handler.HandleGet)
		contracts.POST("/:entity/validate", handler.HandleValidate)
	}
}
