package di

import (
	"github.com/samber/do/v2"

	"github.com/omarluq/llm-router/internal/metrics"
)

// MetricsService wraps the Prometheus metrics registry.
type MetricsService struct {
	Metrics *metrics.Metrics
}

// NewMetrics creates the metrics registry.
func NewMetrics(_ do.Injector) (*MetricsService, error) {
	return &MetricsService{Metrics: metrics.New()}, nil
}
