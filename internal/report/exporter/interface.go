// Package exporter renders generated reports to downloadable documents with
// pluggable exporters. PDF rendering falls back to HTML when the browser fails.
package exporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/verustcode/materiality/consts"
	"github.com/verustcode/materiality/internal/report"
	"github.com/verustcode/materiality/pkg/errors"
	"github.com/verustcode/materiality/pkg/logger"
	"github.com/verustcode/materiality/pkg/telemetry"
)

// ExportFormat represents the export format type
type ExportFormat string

const (
	// ExportFormatMarkdown represents Markdown format
	ExportFormatMarkdown ExportFormat = consts.ExportFormatMarkdown
	// ExportFormatJSON represents JSON format
	ExportFormatJSON ExportFormat = consts.ExportFormatJSON
	// ExportFormatHTML represents HTML format
	ExportFormatHTML ExportFormat = consts.ExportFormatHTML
	// ExportFormatPDF represents PDF format
	ExportFormatPDF ExportFormat = consts.ExportFormatPDF
)

// ParseFormat accepts a format name in any letter case; empty means HTML.
func ParseFormat(s string) (ExportFormat, error) {
	f := ExportFormat(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return ExportFormatHTML, nil
	case "md":
		return ExportFormatMarkdown, nil
	case ExportFormatMarkdown, ExportFormatJSON, ExportFormatHTML, ExportFormatPDF:
		return f, nil
	}
	return "", errors.New(errors.ErrCodeValidation, "unsupported export format: "+s)
}

// ReportExporter defines the interface for report exporters
type ReportExporter interface {
	// Export renders a generated report
	Export(ctx context.Context, res *report.Result) ([]byte, error)
	// Name returns the human-readable name of the exporter (e.g., "Markdown", "HTML")
	Name() string
	// FileExtension returns the file extension for this format (e.g., ".md", ".html")
	FileExtension() string
	// ContentType returns the MIME type of the output
	ContentType() string
}

// Output is an exported document.
type Output struct {
	// Format is the format actually produced; it differs from the request on fallback
	Format      ExportFormat
	Filename    string
	ContentType string
	Data        []byte
	// Fallback is set when a PDF request was served as HTML
	Fallback bool
}

// ExportManager manages all registered exporters
type ExportManager struct {
	exporters map[ExportFormat]ReportExporter
	mu        sync.RWMutex
}

// NewExportManager creates a new export manager
func NewExportManager() *ExportManager {
	return &ExportManager{
		exporters: make(map[ExportFormat]ReportExporter),
	}
}

// NewDefaultManager registers the HTML, PDF, Markdown and JSON exporters.
func NewDefaultManager(stylesheet string, pdf PDFOptions) *ExportManager {
	m := NewExportManager()
	m.Register(ExportFormatHTML, NewHTMLExporter(stylesheet))
	m.Register(ExportFormatPDF, NewPDFExporterWithOptions(pdf))
	m.Register(ExportFormatMarkdown, NewMarkdownExporter())
	m.Register(ExportFormatJSON, NewJSONExporter())
	return m
}

// Register registers an exporter for a specific format
func (m *ExportManager) Register(format ExportFormat, exporter ReportExporter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.exporters[format] = exporter
	logger.Debug("Registered report exporter",
		zap.String("format", string(format)),
		zap.String("name", exporter.Name()),
	)
}

// Export exports a report using the specified format. A failed PDF render is
// served as HTML with Fallback set.
func (m *ExportManager) Export(ctx context.Context, res *report.Result, format ExportFormat) (*Output, error) {
	exporter, err := m.GetExporter(format)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "report.Export")
	defer span.End()
	telemetry.SetSpanAttributes(span,
		telemetry.AttrReportID.String(res.ReportID),
		telemetry.AttrExportFormat.String(string(format)),
	)

	logger.Debug("Exporting report",
		zap.String("report_id", res.ReportID),
		zap.String("format", string(format)),
		zap.String("exporter", exporter.Name()),
	)

	data, err := exporter.Export(ctx, res)
	if err != nil && format == ExportFormatPDF {
		logger.Warn("PDF export failed, falling back to HTML",
			zap.String("report_id", res.ReportID),
			zap.Error(err),
		)
		telemetry.GetMetrics().RecordExport(ctx, string(format), true)
		out, ferr := m.Export(ctx, res, ExportFormatHTML)
		if ferr != nil {
			telemetry.SetSpanError(span, ferr)
			return nil, ferr
		}
		out.Fallback = true
		return out, nil
	}
	if err != nil {
		telemetry.SetSpanError(span, err)
		return nil, errors.Wrap(errors.ErrCodeInternal,
			fmt.Sprintf("failed to export report with %s exporter", exporter.Name()), err)
	}

	telemetry.GetMetrics().RecordExport(ctx, string(format), false)
	telemetry.SetSpanOK(span)
	return &Output{
		Format:      format,
		Filename:    m.GenerateFilename(res, format),
		ContentType: exporter.ContentType(),
		Data:        data,
	}, nil
}

// ExportToFile exports a report into dir and returns the written path. The file
// name follows the produced format, so a PDF fallback is written as .html.
func (m *ExportManager) ExportToFile(ctx context.Context, res *report.Result, dir string, format ExportFormat) (string, *Output, error) {
	out, err := m.Export(ctx, res, format)
	if err != nil {
		return "", nil, err
	}

	// Ensure directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, out.Filename)
	if err := os.WriteFile(path, out.Data, 0644); err != nil {
		return "", nil, fmt.Errorf("failed to write file: %w", err)
	}

	logger.Info("Report exported to file",
		zap.String("report_id", res.ReportID),
		zap.String("format", string(out.Format)),
		zap.Bool("fallback", out.Fallback),
		zap.String("path", path),
	)
	return path, out, nil
}

// GenerateFilename returns "<ReportType>_Report<ext>" for the format.
func (m *ExportManager) GenerateFilename(res *report.Result, format ExportFormat) string {
	m.mu.RLock()
	exporter, ok := m.exporters[format]
	m.mu.RUnlock()

	ext := "." + string(format)
	if ok {
		ext = exporter.FileExtension()
	} else if format == ExportFormatMarkdown {
		ext = ".md"
	}
	return sanitizeFilename(res.ReportType.Filename(ext))
}

// SupportedFormats returns a list of all supported export formats
func (m *ExportManager) SupportedFormats() []ExportFormat {
	m.mu.RLock()
	defer m.mu.RUnlock()

	formats := make([]ExportFormat, 0, len(m.exporters))
	for format := range m.exporters {
		formats = append(formats, format)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// GetExporter returns the exporter for a specific format
func (m *ExportManager) GetExporter(format ExportFormat) (ReportExporter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	exporter, ok := m.exporters[format]
	if !ok {
		return nil, errors.New(errors.ErrCodeValidation, "no exporter registered for format: "+string(format))
	}
	return exporter, nil
}
