package handler

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/verustcode/materiality/internal/content"
	"github.com/verustcode/materiality/internal/mapping"
	"github.com/verustcode/materiality/internal/report"
	"github.com/verustcode/materiality/internal/report/exporter"
	"github.com/verustcode/materiality/internal/store"
	"github.com/verustcode/materiality/pkg/errors"
)

// memRepo serves content from YAML strings keyed "<category>/<file>".
type memRepo map[string]string

func (m memRepo) Load(_ context.Context, category content.Category, filename string) (*content.Mapping, error) {
	src, ok := m[string(category)+"/"+filename]
	if !ok {
		return nil, errors.ErrContentNotFound(string(category), filename)
	}
	return content.Parse([]byte(src))
}

func testContent() memRepo {
	return memRepo{
		"exposure_class/sector/office": `
office:
  name: Office Buildings
  sort_order: 1
  description: Office towers.
  transition:
    low:
      always: Office orderly summary.
`,
		"product/product/mortgage": `
mortgage:
  name: Mortgages
  description: Loans secured on property.
`,
		"scenario/scenario/orderly": `
summary: Orderly transition narrative.
`,
	}
}

func cell(column, value string) mapping.Cell {
	return mapping.Cell{Column: column, Value: value}
}

func testTables() *mapping.Tables {
	var structure []mapping.OutputStructureRow
	for _, rt := range []string{"Institutional", "Sector"} {
		structure = append(structure,
			mapping.OutputStructureRow{ReportType: rt, Section: report.SectionExecutiveSummary, Materiality: "All",
				SubSections: []mapping.Cell{
					cell(string(report.SubSectionSummaryTable), "yes"),
					cell(string(report.SubSectionScenario), "summary"),
				}},
			mapping.OutputStructureRow{ReportType: rt, Section: report.SectionSectorOverview, Materiality: "All",
				SubSections: []mapping.Cell{
					cell(string(report.SubSectionSectorDescription), "description"),
					cell(string(report.SubSectionProduct), "description"),
				}},
			mapping.OutputStructureRow{ReportType: rt, Section: report.SectionSectorDetail, Materiality: "All",
				SubSections: []mapping.Cell{cell(string(report.SubSectionSectorScenario), "always")}},
		)
	}
	structure = append(structure, mapping.OutputStructureRow{
		ReportType: "Scenario", Section: report.SectionExecutiveSummary, Materiality: "All",
		SubSections: []mapping.Cell{cell(string(report.SubSectionScenario), "summary")},
	})

	return &mapping.Tables{
		Exposures: []mapping.ExposureRow{
			{Institution: "All", Exposure: "Real Estate", Sector: "Office", Type: "Exposure", SectorFile: "sector/office", ProductFile: "product/mortgage"},
			{Institution: "Bank", Exposure: "Real Estate", Sector: "Office", Type: "Loan", SectorFile: "sector/office", ProductFile: "product/mortgage"},
		},
		Scenarios: []mapping.ScenarioRow{
			{Name: "Orderly Transition", File: "scenario/orderly", RiskType: "transition", RiskLevel: "low"},
		},
		OutputStructure: structure,
		Source:          "memory",
	}
}

// testEnv is an API wired like the server, over a temp database and in-memory content.
type testEnv struct {
	store    store.Store
	mappings *mapping.Store
	router   *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s, cleanup := store.SetupTestDB(t)
	t.Cleanup(cleanup)

	repo := testContent()
	mappings := mapping.NewStaticStore(testTables())
	generator := report.NewGenerator(mappings, repo, report.Options{Title: "Test"})
	exports := exporter.NewExportManager()
	exports.Register(exporter.ExportFormatHTML, exporter.NewHTMLExporter(""))
	exports.Register(exporter.ExportFormatMarkdown, exporter.NewMarkdownExporter())
	exports.Register(exporter.ExportFormatJSON, exporter.NewJSONExporter())
	exports.Register(exporter.ExportFormatPDF, failingExporter{})

	r := SetupTestRouter()
	options := NewOptionsHandler(mappings, repo, s)
	r.GET("/options/report-types", options.ReportTypes)
	r.GET("/options/institutions", options.Institutions)
	r.GET("/options/steps", options.Steps)
	r.GET("/options/exposures/:exposure", options.Exposures)
	r.GET("/options/sectors", options.Sectors)
	r.GET("/options/scenarios", options.Scenarios)
	r.GET("/options/materiality", options.Materiality)

	sessions := NewSessionHandler(s, mappings)
	reports := NewReportHandler(s, generator, exports)
	r.POST("/sessions", sessions.Create)
	r.GET("/sessions/:id", sessions.Get)
	r.GET("/sessions/:id/selections", sessions.GetSelections)
	r.PUT("/sessions/:id/selections/:category", sessions.PutSelections)
	r.DELETE("/sessions/:id/selections", sessions.ClearSelections)
	r.GET("/sessions/:id/review", sessions.Review)
	r.POST("/sessions/:id/report", reports.Generate)
	r.GET("/sessions/:id/report/html", reports.HTML)
	r.GET("/sessions/:id/report/export", reports.Export)
	r.GET("/sessions/:id/reports", reports.History)

	admin := NewAdminHandler(mappings, repo)
	r.POST("/admin/mappings/reload", admin.ReloadMappings)
	r.GET("/admin/coverage", admin.Coverage)

	health := NewHealthHandler(s, mappings)
	r.GET("/health", health.Health)

	return &testEnv{store: s, mappings: mappings, router: r}
}

func (e *testEnv) do(method, url string, body interface{}) *httptest.ResponseRecorder {
	return Serve(e.router, CreateTestRequest(method, url, body))
}

// failingExporter stands in for a PDF backend that is not available.
type failingExporter struct{}

func (failingExporter) Export(context.Context, *report.Result) ([]byte, error) {
	return nil, errors.New(errors.ErrCodeRenderBackend, "no browser")
}
func (failingExporter) Name() string          { return "PDF" }
func (failingExporter) FileExtension() string { return ".pdf" }
func (failingExporter) ContentType() string   { return "application/pdf" }
