package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the default tracer name for the application
	TracerName = "github.com/verustcode/materiality"
)

// Tracer returns the global tracer for the application
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts a span under the application tracer. Callers end it.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// SpanFromContext returns the current span from the context.
// If no span is found, a no-op span is returned.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// SetSpanError records an error on the span and sets its status to error
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanOK sets the span status to OK
func SetSpanOK(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddSpanEvent adds an event to the span with optional attributes
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanAttributes sets attributes on the span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// Common attribute keys for consistent naming
var (
	// Report attributes
	AttrReportID     = attribute.Key("report.id")
	AttrReportType   = attribute.Key("report.type")
	AttrStrict       = attribute.Key("report.strict")

	// Session attributes
	AttrSessionID = attribute.Key("session.id")

	// Content attributes
	AttrContentCategory = attribute.Key("content.category")
	AttrContentFile     = attribute.Key("content.file")

	// Result attributes
	AttrWarningCount = attribute.Key("warnings.count")
	AttrSectionCount = attribute.Key("sections.count")
	AttrExportFormat = attribute.Key("export.format")
)

// WithReportAttributes returns span start options with report attributes
func WithReportAttributes(reportID, sessionID, reportType string) trace.SpanStartOption {
	return trace.WithAttributes(
		AttrReportID.String(reportID),
		AttrSessionID.String(sessionID),
		AttrReportType.String(reportType),
	)
}

// WithContentAttributes returns span start options for a content file lookup
func WithContentAttributes(category, filename string) trace.SpanStartOption {
	return trace.WithAttributes(
		AttrContentCategory.String(category),
		AttrContentFile.String(filename),
	)
}
