// Package telemetry provides OpenTelemetry integration for the application.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/verustcode/materiality/pkg/logger"
)

const (
	// MeterName is the default meter name for the application
	MeterName = "github.com/verustcode/materiality"
)

// Metrics holds all application metrics
type Metrics struct {
	// Report metrics
	ReportsTotal     metric.Int64Counter
	ReportDuration   metric.Float64Histogram
	ActiveReports    metric.Int64UpDownCounter
	ConfigGapsTotal  metric.Int64Counter
	ExportsTotal     metric.Int64Counter
	ExportFallbacks  metric.Int64Counter
	ContentLoadTotal metric.Int64Counter

	// Mapping table metrics
	MappingReloadsTotal metric.Int64Counter

	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the global metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		var err error
		globalMetrics, err = initMetrics()
		if err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			// Return empty metrics to avoid nil pointer
			globalMetrics = &Metrics{}
		}
	})
	return globalMetrics
}

// counterSpec describes one Int64Counter to register.
type counterSpec struct {
	target *metric.Int64Counter
	name   string
	desc   string
	unit   string
}

// initMetrics initializes all application metrics
func initMetrics() (*Metrics, error) {
	meter := otel.Meter(MeterName)
	m := &Metrics{}

	counters := []counterSpec{
		{&m.ReportsTotal, "materiality_reports_total", "Total number of report generations", "{report}"},
		{&m.ConfigGapsTotal, "materiality_config_gaps_total", "Selections that could not be resolved to content", "{gap}"},
		{&m.ExportsTotal, "materiality_exports_total", "Total number of report exports by format", "{export}"},
		{&m.ExportFallbacks, "materiality_export_fallbacks_total", "PDF exports that fell back to HTML", "{export}"},
		{&m.ContentLoadTotal, "materiality_content_loads_total", "Content file loads by category and outcome", "{load}"},
		{&m.MappingReloadsTotal, "materiality_mapping_reloads_total", "Mapping workbook reloads", "{reload}"},
		{&m.HTTPRequestsTotal, "materiality_http_requests_total", "Total number of HTTP requests", "{request}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	var err error
	m.ReportDuration, err = meter.Float64Histogram(
		"materiality_report_duration_seconds",
		metric.WithDescription("Duration of report generation in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, err
	}

	m.ActiveReports, err = meter.Int64UpDownCounter(
		"materiality_active_reports",
		metric.WithDescription("Number of report generations in flight"),
		metric.WithUnit("{report}"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"materiality_http_request_duration_seconds",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("Metrics initialized successfully")
	return m, nil
}

// RecordReportStarted records that a report generation has started
func (m *Metrics) RecordReportStarted(ctx context.Context, reportType string) {
	if m.ReportsTotal != nil {
		m.ReportsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("report_type", reportType)))
	}
	if m.ActiveReports != nil {
		m.ActiveReports.Add(ctx, 1)
	}
}

// RecordReportCompleted records that a report generation has finished with the given status
func (m *Metrics) RecordReportCompleted(ctx context.Context, reportType, status string, durationSeconds float64) {
	if m.ActiveReports != nil {
		m.ActiveReports.Add(ctx, -1)
	}
	if m.ReportDuration != nil {
		m.ReportDuration.Record(ctx, durationSeconds,
			metric.WithAttributes(
				attribute.String("report_type", reportType),
				attribute.String("status", status),
			),
		)
	}
}

// RecordConfigGaps records unresolved selections found while enriching
func (m *Metrics) RecordConfigGaps(ctx context.Context, kind string, count int64) {
	if m.ConfigGapsTotal == nil || count == 0 {
		return
	}
	m.ConfigGapsTotal.Add(ctx, count, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordContentLoad records a content repository lookup
func (m *Metrics) RecordContentLoad(ctx context.Context, category string, found bool) {
	if m.ContentLoadTotal == nil {
		return
	}
	m.ContentLoadTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("category", category),
			attribute.Bool("found", found),
		),
	)
}

// RecordExport records a report export; fallback marks a PDF request served as HTML
func (m *Metrics) RecordExport(ctx context.Context, format string, fallback bool) {
	if m.ExportsTotal != nil {
		m.ExportsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("format", format)))
	}
	if fallback && m.ExportFallbacks != nil {
		m.ExportFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("format", format)))
	}
}

// RecordMappingReload records a mapping workbook reload attempt
func (m *Metrics) RecordMappingReload(ctx context.Context, success bool) {
	if m.MappingReloadsTotal == nil {
		return
	}
	m.MappingReloadsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	if m.HTTPRequestsTotal != nil {
		m.HTTPRequestsTotal.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("method", method),
				attribute.String("path", path),
				attribute.Int("status_code", statusCode),
			),
		)
	}
	if m.HTTPRequestDuration != nil {
		m.HTTPRequestDuration.Record(ctx, durationSeconds,
			metric.WithAttributes(
				attribute.String("method", method),
				attribute.String("path", path),
			),
		)
	}
}
