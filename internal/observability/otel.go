package observability

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"jdroaster/internal/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// ObservabilityManager manages OpenTelemetry setup. A disabled manager hands
// out no-op providers so callers never branch on whether telemetry is on.
type ObservabilityManager struct {
	config            ObservabilityConfig
	resource          *resource.Resource
	tracerProvider    oteltrace.TracerProvider
	meterProvider     metric.MeterProvider
	metrics           *Metrics
	shutdownFuncs     []func(context.Context) error
	prometheusHandler http.Handler
	// console exporters write here; stdout carries command output
	consoleWriter io.Writer
	logger        *errors.Logger
}

// NewObservabilityManager creates a new observability manager
func NewObservabilityManager(obsConfig ObservabilityConfig, logger *errors.Logger) (*ObservabilityManager, error) {
	return newObservabilityManager(obsConfig, logger, nil)
}

// newObservabilityManager also accepts extra metric readers, used by tests
// to collect what the manager records
func newObservabilityManager(obsConfig ObservabilityConfig, logger *errors.Logger, extraReaders []sdkmetric.Reader) (*ObservabilityManager, error) {
	om := &ObservabilityManager{
		config:         obsConfig,
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
		consoleWriter:  os.Stderr,
		logger:         logger,
	}

	if obsConfig.Enabled {
		if err := om.initResource(); err != nil {
			return nil, fmt.Errorf("failed to initialize resource: %w", err)
		}

		if obsConfig.TracingEnabled {
			if err := om.initTracing(); err != nil {
				return nil, fmt.Errorf("failed to initialize tracing: %w", err)
			}
		}

		if obsConfig.MetricsEnabled || len(extraReaders) > 0 {
			if err := om.initMetrics(extraReaders); err != nil {
				return nil, fmt.Errorf("failed to initialize metrics: %w", err)
			}
		}
	}

	if err := om.initCustomMetrics(); err != nil {
		return nil, err
	}

	logger.Debug("Observability initialized",
		"enabled", obsConfig.Enabled,
		"tracing", obsConfig.TracingEnabled,
		"metrics", obsConfig.MetricsEnabled,
		"prometheus", om.prometheusHandler != nil)

	return om, nil
}

// initResource creates the OpenTelemetry resource shared by traces and metrics
func (om *ObservabilityManager) initResource() error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(om.config.ServiceName),
			semconv.ServiceVersion(om.config.ServiceVersion),
			attribute.String("service.instance.id", om.getServiceInstanceID()),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	om.resource = res
	return nil
}

// initTracing sets up OpenTelemetry tracing
func (om *ObservabilityManager) initTracing() error {
	var exporter trace.SpanExporter
	var err error

	switch {
	case om.config.ConsoleOutput:
		opts := []stdouttrace.Option{stdouttrace.WithWriter(om.consoleWriter)}
		if om.config.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err = stdouttrace.New(opts...)
	case om.config.OTLP.Enabled:
		exporter, err = om.createOTLPExporter()
	default:
		exporter = &noOpSpanExporter{}
	}

	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(om.resource),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(om.config.SampleRate))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	om.tracerProvider = tp
	om.shutdownFuncs = append(om.shutdownFuncs, tp.Shutdown)

	return nil
}

// initMetrics sets up OpenTelemetry metrics
func (om *ObservabilityManager) initMetrics(extraReaders []sdkmetric.Reader) error {
	readers, err := om.setupMetricReaders()
	if err != nil {
		return err
	}
	readers = append(readers, extraReaders...)

	meterProviderOptions := []sdkmetric.Option{
		sdkmetric.WithResource(om.resource),
	}
	for _, reader := range readers {
		meterProviderOptions = append(meterProviderOptions, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(meterProviderOptions...)

	otel.SetMeterProvider(mp)
	om.meterProvider = mp
	om.shutdownFuncs = append(om.shutdownFuncs, mp.Shutdown)

	return nil
}

// setupMetricReaders sets up all metric readers based on configuration
func (om *ObservabilityManager) setupMetricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	if om.config.ConsoleOutput {
		opts := []stdoutmetric.Option{stdoutmetric.WithWriter(om.consoleWriter)}
		if om.config.PrettyPrint {
			opts = append(opts, stdoutmetric.WithPrettyPrint())
		}
		exporter, err := stdoutmetric.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(om.config.CollectionInterval)))
	}

	if om.config.OTLP.Enabled {
		reader, err := om.createOTLPMetricsReader()
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics reader: %w", err)
		}
		readers = append(readers, reader)
	}

	if om.config.Prometheus.Enabled {
		reader, handler, err := SetupPrometheusExporter(om.config.Prometheus)
		if err != nil {
			return nil, err
		}
		readers = append(readers, reader)
		om.prometheusHandler = handler
	}

	return readers, nil
}

// createOTLPExporter creates an OTLP HTTP trace exporter
func (om *ObservabilityManager) createOTLPExporter() (trace.SpanExporter, error) {
	otlpConfig := om.config.OTLP

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(otlpConfig.Endpoint),
	}
	if otlpConfig.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	return exporter, nil
}

// createOTLPMetricsReader creates an OTLP HTTP metrics reader
func (om *ObservabilityManager) createOTLPMetricsReader() (sdkmetric.Reader, error) {
	otlpConfig := om.config.OTLP

	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpointURL(otlpConfig.Endpoint),
	}
	if otlpConfig.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(om.config.CollectionInterval)), nil
}

// getServiceInstanceID returns the configured service instance ID or a default
func (om *ObservabilityManager) getServiceInstanceID() string {
	if om.config.ServiceInstance != "" {
		return om.config.ServiceInstance
	}
	return om.config.ServiceName + "-1"
}

// GetMetrics returns the metrics instance
func (om *ObservabilityManager) GetMetrics() *Metrics {
	if om == nil {
		return nil
	}
	return om.metrics
}

// PrometheusHandler returns the scrape handler, or nil when Prometheus is off
func (om *ObservabilityManager) PrometheusHandler() http.Handler {
	if om == nil {
		return nil
	}
	return om.prometheusHandler
}

// PrometheusEndpoint is the path the scrape handler should be mounted on
func (om *ObservabilityManager) PrometheusEndpoint() string {
	if om == nil || om.config.Prometheus.Endpoint == "" {
		return "/metrics"
	}
	return om.config.Prometheus.Endpoint
}

// Tracer returns a tracer for the service
func (om *ObservabilityManager) Tracer(name string) oteltrace.Tracer {
	if om == nil {
		return tracenoop.NewTracerProvider().Tracer(name)
	}
	return om.tracerProvider.Tracer(name)
}

// Shutdown flushes and stops every exporter, returning all failures joined
func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	if om == nil {
		return nil
	}
	var errs []error
	for _, shutdown := range om.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	om.shutdownFuncs = nil
	return stderrors.Join(errs...)
}

// No-op exporter for when tracing is on but no exporter is configured
type noOpSpanExporter struct{}

func (n *noOpSpanExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	return nil
}

func (n *noOpSpanExporter) Shutdown(ctx context.Context) error {
	return nil
}
