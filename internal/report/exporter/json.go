package exporter

import (
	"context"
	"encoding/json"

	"github.com/verustcode/materiality/internal/report"
)

// JSONExporter serializes the generated result, tree included.
type JSONExporter struct{}

// NewJSONExporter creates a new JSON exporter
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Name returns the human-readable name of this exporter
func (e *JSONExporter) Name() string { return "JSON" }

// FileExtension returns the file extension for JSON files
func (e *JSONExporter) FileExtension() string { return ".json" }

// ContentType returns the MIME type of JSON output
func (e *JSONExporter) ContentType() string { return "application/json" }

// Export marshals the result with indentation.
func (e *JSONExporter) Export(_ context.Context, res *report.Result) ([]byte, error) {
	return json.MarshalIndent(res, "", "  ")
}
