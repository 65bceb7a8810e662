package shared

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/materiality/internal/config"
	"github.com/verustcode/materiality/internal/mapping"
	"github.com/verustcode/materiality/internal/report/exporter"
	"github.com/verustcode/materiality/pkg/errors"
	"github.com/verustcode/materiality/pkg/logger"
)

func init() {
	logger.Init(logger.Config{
		Level:  "error",
		Format: "text",
	})
}

const mappingsJSON = `{"exported_at": "2026-01-01T00:00:00Z", "sheets": {
  "exposure_sector_product_mapping": [{"institution": "Bank", "exposure": "Real Estate", "sector": "Office", "type": "Loan", "sector_yml_file": "sector/office", "product_yml_file": "product/mortgage"}],
  "scenario_mapping": [{"scenario_name": "Orderly Transition", "scenario_yml_file": "scenario/orderly", "risk_type": "transition", "risk_level": "low"}],
  "output_structure_mapping": [{"report_type": "Institutional", "output_structure": "Executive Summary", "materiality": "All"}]
}}`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mappings.json")
	require.NoError(t, os.WriteFile(path, []byte(mappingsJSON), 0644))

	cfg := config.Default()
	cfg.Content.Dir = filepath.Join(dir, "content")
	cfg.Mappings.Path = path
	return cfg
}

func TestInitServices(t *testing.T) {
	cfg := testConfig(t)
	cfg.Report.Title = "Climate Report"
	cfg.Report.Language = "en-GB"

	svc, err := InitServices(cfg)
	require.NoError(t, err)
	defer svc.Close()

	require.NotNil(t, svc.Mappings.Tables())
	assert.Equal(t, []string{"Bank"}, svc.Mappings.Tables().Institutions())
	assert.Equal(t, cfg.Content.Dir, svc.Content.Root())
	assert.Equal(t, "Climate Report", svc.Generator.Options().Title)
	assert.Equal(t, "en-GB", svc.Generator.Options().Language)
	assert.NotEmpty(t, svc.Generator.Options().Stylesheet, "embedded stylesheet is the default")
	assert.ElementsMatch(t, []exporter.ExportFormat{
		exporter.ExportFormatHTML, exporter.ExportFormatMarkdown, exporter.ExportFormatJSON, exporter.ExportFormatPDF,
	}, svc.Exports.SupportedFormats())
}

func TestInitServices_MissingMappings(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mappings.Path = filepath.Join(t.TempDir(), "absent.json")

	_, err := InitServices(cfg)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMappingNotFound))
}

func TestInitServicesWithMappings_Stylesheet(t *testing.T) {
	cfg := testConfig(t)
	css := filepath.Join(t.TempDir(), "report.css")
	require.NoError(t, os.WriteFile(css, []byte("body { color: red; }"), 0644))
	cfg.Content.Stylesheet = css

	svc, err := InitServicesWithMappings(cfg, mapping.NewStaticStore(&mapping.Tables{}))
	require.NoError(t, err)
	assert.Equal(t, "body { color: red; }", svc.Generator.Options().Stylesheet)

	cfg.Content.Stylesheet = filepath.Join(t.TempDir(), "missing.css")
	_, err = InitServicesWithMappings(cfg, mapping.NewStaticStore(&mapping.Tables{}))
	assert.Error(t, err)
}

func TestServices_StartBackground(t *testing.T) {
	cfg := testConfig(t)
	svc, err := InitServices(cfg)
	require.NoError(t, err)

	cfg.Mappings.ReloadSchedule = "@every 1h"
	require.NoError(t, svc.StartBackground(cfg))
	svc.Close()

	cfg.Mappings.ReloadSchedule = "not a schedule"
	assert.Error(t, svc.StartBackground(cfg))
	svc.Close()
}
