// Package observability holds the logging and metrics plumbing shared by the
// server and the test harness.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// InitTelemetry wires an OpenTelemetry meter provider to a private Prometheus
// registry and returns the scrape handler for it. The provider is installed
// globally so instrumentation like otelgin picks it up.
func InitTelemetry(serviceName string) (*metric.MeterProvider, http.Handler, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter for %s: %w", serviceName, err)
	}

	meterProvider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(meterProvider)

	return meterProvider, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

// InitLogger builds the process logger: JSON in production, console output
// everywhere else. The logger is also installed as zap's global.
func InitLogger(env string) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	switch env {
	case "production":
		logger, err = zap.NewProduction()
	default:
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	zap.ReplaceGlobals(logger)
	return logger, nil
}

// Shutdown flushes the meter provider and the logger
func Shutdown(ctx context.Context, meterProvider *metric.MeterProvider, logger *zap.Logger) error {
	if meterProvider != nil {
		if err := meterProvider.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown meter provider", zap.Error(err))
			return err
		}
	}

	if logger != nil {
		// sync can fail on stderr in containers; nothing actionable
		_ = logger.Sync()
	}

	return nil
}
