package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/juanjice29/PortalCapacitaciones/internal/infra/config"
	"github.com/juanjice29/PortalCapacitaciones/internal/transport/http/middleware"
)

// Provider owns the Prometheus collectors and the standalone metrics
// listener.
type Provider struct {
	metrics *middleware.HTTPMetrics
	server  *http.Server
	logger  *zap.Logger
}

// Attach registers the HTTP collectors and, when a metrics port is
// configured, starts a dedicated /metrics listener.
func Attach(cfg *config.AppConfig, logger *zap.Logger) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		return nil, fmt.Errorf("register http metrics: %w", err)
	}

	p := &Provider{metrics: metrics, logger: logger}

	if cfg.Telemetry.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		p.server = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Telemetry.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()

		logger.Info("metrics listener started", zap.Int("port", cfg.Telemetry.MetricsPort))
	}

	return p, nil
}

// HTTPMetrics exposes the request collectors for the Gin middleware.
func (p *Provider) HTTPMetrics() *middleware.HTTPMetrics {
	if p == nil {
		return nil
	}
	return p.metrics
}

// Shutdown stops the metrics listener.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.server == nil {
		return nil
	}
	return p.server.Shutdown(ctx)
}
