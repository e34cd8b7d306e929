package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/sparqlkit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	// ServiceVersion is the version of the service.
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	// Environment is the deployment environment (dev, staging, prod).
	Environment string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// Insecure allows insecure connections (for development).
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) *MeterConfig {
	return &MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The provider should be shut down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("meter initialized", logger.Fields(
		logger.FieldService, config.ServiceName,
		logger.FieldEndpoint, config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded for protocol operations.
type Metrics struct {
	operations    metric.Int64Counter
	duration      metric.Float64Histogram
	active        metric.Int64UpDownCounter
	errors        metric.Int64Counter
	drainedBodies metric.Int64Counter
	drainedBytes  metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	operations, err := meter.Int64Counter("sparql.operations",
		metric.WithDescription("Protocol operations by kind, method and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sparql.operations counter: %w", err)
	}

	duration, err := meter.Float64Histogram("sparql.operation.duration",
		metric.WithDescription("Time from dispatch to classified status"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sparql.operation.duration histogram: %w", err)
	}

	active, err := meter.Int64UpDownCounter("sparql.operations.active",
		metric.WithDescription("Operations dispatched and not yet classified"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sparql.operations.active counter: %w", err)
	}

	errs, err := meter.Int64Counter("sparql.errors",
		metric.WithDescription("Failed operations by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sparql.errors counter: %w", err)
	}

	drainedBodies, err := meter.Int64Counter("sparql.bodies.drained",
		metric.WithDescription("Response bodies closed before they were read to the end"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sparql.bodies.drained counter: %w", err)
	}

	drainedBytes, err := meter.Int64Counter("sparql.bodies.drained_bytes",
		metric.WithDescription("Bytes discarded while draining unread bodies"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sparql.bodies.drained_bytes counter: %w", err)
	}

	return &Metrics{
		operations:    operations,
		duration:      duration,
		active:        active,
		errors:        errs,
		drainedBodies: drainedBodies,
		drainedBytes:  drainedBytes,
	}, nil
}

// RecordStart increments the active operation count.
func (m *Metrics) RecordStart(ctx context.Context, kind string) {
	m.active.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordEnd decrements active operations and records the completed one.
// status is the HTTP status, 0 when no response arrived.
func (m *Metrics) RecordEnd(ctx context.Context, kind, method string, status int, duration time.Duration) {
	m.active.Add(ctx, -1, metric.WithAttributes(attribute.String("kind", kind)))
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("method", method),
		attribute.Int("status", status),
	))
	m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("method", method),
	))
}

// RecordError counts a failed operation by error code.
func (m *Metrics) RecordError(ctx context.Context, kind, code string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("code", code),
	))
}

// RecordDrain counts one drained body and the bytes it discarded.
func (m *Metrics) RecordDrain(ctx context.Context, n int64) {
	m.drainedBodies.Add(ctx, 1)
	m.drainedBytes.Add(ctx, n)
}
