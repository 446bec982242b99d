package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"jdroaster/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Metrics holds all custom metrics for jdroaster. Record methods are no-ops
// on a nil receiver.
type Metrics struct {
	// Analysis metrics
	AnalysesTotal      metric.Int64Counter
	AnalysisDuration   metric.Float64Histogram
	FindingsTotal      metric.Int64Counter
	SentencesPerDoc    metric.Int64Histogram
	SegmentationsTotal metric.Int64Counter

	// HTTP metrics
	HTTPRequests     metric.Int64Counter
	HTTPDuration     metric.Float64Histogram
	RateLimitedTotal metric.Int64Counter

	// Certificate metrics
	CertReloads    metric.Int64Counter
	CertExpiryTime metric.Float64Gauge
}

// initCustomMetrics creates all custom metrics for jdroaster
func (om *ObservabilityManager) initCustomMetrics() error {
	meter := om.meterProvider.Meter(om.config.ServiceName)
	om.metrics = &Metrics{}

	if err := om.createAnalysisMetrics(meter); err != nil {
		return err
	}
	if err := om.createHTTPMetrics(meter); err != nil {
		return err
	}
	return om.createCertificateMetrics(meter)
}

// createAnalysisMetrics creates analysis pipeline metrics
func (om *ObservabilityManager) createAnalysisMetrics(meter metric.Meter) error {
	var err error

	om.metrics.AnalysesTotal, err = meter.Int64Counter(
		"jdroaster_analyses_total",
		metric.WithDescription("Total number of job descriptions analyzed"),
	)
	if err != nil {
		return fmt.Errorf("failed to create analyses metric: %w", err)
	}

	om.metrics.AnalysisDuration, err = meter.Float64Histogram(
		"jdroaster_analysis_duration_seconds",
		metric.WithDescription("Time spent running the analysis pipeline"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1),
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis duration metric: %w", err)
	}

	om.metrics.FindingsTotal, err = meter.Int64Counter(
		"jdroaster_findings_total",
		metric.WithDescription("Findings emitted, by kind and severity"),
	)
	if err != nil {
		return fmt.Errorf("failed to create findings metric: %w", err)
	}

	om.metrics.SentencesPerDoc, err = meter.Int64Histogram(
		"jdroaster_sentences_per_document",
		metric.WithDescription("Number of sentences segmented per analyzed document"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500),
	)
	if err != nil {
		return fmt.Errorf("failed to create sentences metric: %w", err)
	}

	om.metrics.SegmentationsTotal, err = meter.Int64Counter(
		"jdroaster_segmentations_total",
		metric.WithDescription("Total number of debug segmentation requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create segmentations metric: %w", err)
	}

	return nil
}

// createHTTPMetrics creates request and rate limiting metrics
func (om *ObservabilityManager) createHTTPMetrics(meter metric.Meter) error {
	var err error

	om.metrics.HTTPRequests, err = meter.Int64Counter(
		"jdroaster_http_requests_total",
		metric.WithDescription("HTTP requests by route, method and status"),
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP requests metric: %w", err)
	}

	om.metrics.HTTPDuration, err = meter.Float64Histogram(
		"jdroaster_http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP duration metric: %w", err)
	}

	om.metrics.RateLimitedTotal, err = meter.Int64Counter(
		"jdroaster_rate_limited_total",
		metric.WithDescription("Requests rejected by the rate limiter"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rate limit metric: %w", err)
	}

	return nil
}

// createCertificateMetrics creates certificate-related metrics
func (om *ObservabilityManager) createCertificateMetrics(meter metric.Meter) error {
	var err error

	om.metrics.CertReloads, err = meter.Int64Counter(
		"jdroaster_cert_reloads_total",
		metric.WithDescription("Total number of certificate reloads"),
	)
	if err != nil {
		return fmt.Errorf("failed to create certificate reload count metric: %w", err)
	}

	// populated by the certificate manager after each successful load
	om.metrics.CertExpiryTime, err = meter.Float64Gauge(
		"jdroaster_cert_expiry_seconds",
		metric.WithDescription("Seconds until certificate expiry"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create certificate expiry time metric: %w", err)
	}

	return nil
}

// RecordAnalysis records one completed analysis
func (m *Metrics) RecordAnalysis(ctx context.Context, surface string, report *types.Report, elapsed time.Duration) {
	if m == nil || report == nil {
		return
	}
	surfaceAttr := metric.WithAttributes(attribute.String("surface", surface))

	m.AnalysesTotal.Add(ctx, 1, surfaceAttr)
	m.AnalysisDuration.Record(ctx, elapsed.Seconds(), surfaceAttr)
	m.SentencesPerDoc.Record(ctx, int64(len(report.Sentences)), surfaceAttr)

	for _, f := range report.Insights {
		m.FindingsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", "insight"),
			attribute.String("severity", string(f.Severity)),
		))
	}
	if n := len(report.GreenFlags); n > 0 {
		m.FindingsTotal.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String("kind", "greenFlag"),
		))
	}
}

// RecordSegmentation records one debug segmentation
func (m *Metrics) RecordSegmentation(ctx context.Context, surface string, sentences int) {
	if m == nil {
		return
	}
	m.SegmentationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("surface", surface)))
	m.SentencesPerDoc.Record(ctx, int64(sentences), metric.WithAttributes(attribute.String("surface", surface)))
}

// RecordHTTPRequest records one served request
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.HTTPRequests.Add(ctx, 1, attrs)
	m.HTTPDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordRateLimited records a request rejected by the rate limiter
func (m *Metrics) RecordRateLimited(ctx context.Context, route string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route)))
}

// RecordCertReload records a certificate reload attempt from source
// ("file" or "vault")
func (m *Metrics) RecordCertReload(ctx context.Context, source string, success bool) {
	if m == nil {
		return
	}
	m.CertReloads.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.Bool("success", success),
	))
}

// RecordCertExpiry records the time left before the certificate expires
func (m *Metrics) RecordCertExpiry(ctx context.Context, notAfter time.Time) {
	if m == nil || notAfter.IsZero() {
		return
	}
	m.CertExpiryTime.Record(ctx, time.Until(notAfter).Seconds())
}

// TrackAnalysis runs analyze inside a span and records its metrics
func (om *ObservabilityManager) TrackAnalysis(ctx context.Context, surface string, analyze func(context.Context) *types.Report) *types.Report {
	ctx, span := om.Tracer("jdroaster.analyzer").Start(ctx, "analyzer.analyze",
		oteltrace.WithAttributes(attribute.String("surface", surface)))
	defer span.End()

	start := time.Now()
	report := analyze(ctx)
	om.GetMetrics().RecordAnalysis(ctx, surface, report, time.Since(start))

	if report == nil {
		span.SetStatus(codes.Error, "no report produced")
		return nil
	}
	span.SetAttributes(
		attribute.String("report.id", report.ID),
		attribute.Int("report.sentences", len(report.Sentences)),
		attribute.Int("report.insights", len(report.Insights)),
		attribute.Int("report.green_flags", len(report.GreenFlags)),
	)
	return report
}
