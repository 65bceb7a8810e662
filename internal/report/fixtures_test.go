package report

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verustcode/materiality/internal/content"
	"github.com/verustcode/materiality/internal/mapping"
	"github.com/verustcode/materiality/internal/selection"
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
  name: Office
  sort_order: 2
  description: Office buildings & towers.
  transition:
    low:
      always: Office orderly summary.
      high_materiality: Office orderly detail.
  physical:
    high:
      always: Office hot house summary.
      high_materiality: Office hot house detail.
`,
		"exposure_class/sector/agriculture": `
agriculture:
  name: Agriculture
  sort_order: 1
  description: Crops and livestock.
  transition:
    low:
      always: Agriculture orderly summary.
      high_materiality: Agriculture orderly detail.
  physical:
    high:
      always: Agriculture hot house summary.
      high_materiality: Agriculture hot house detail.
`,
		"exposure_class/sovereigns/sovereign_debt": `
sovereign_debt:
  name: Sovereign Debt
  sort_order: 3
  description: Government bonds.
  transition:
    low:
      always: Sovereign orderly summary.
      high_materiality: Sovereign orderly detail.
  physical:
    high:
      always: Sovereign hot house summary.
      high_materiality: Sovereign hot house detail.
`,
		"product/product/mortgage": `
mortgage:
  name: Mortgages
  description: Loans secured on property.
`,
		"product/product/loan": `
loan:
  name: Corporate loans
  description: Term lending.
`,
		"product/product/agri_loan": `
agri_loan:
  name: Farm loans
  description: Seasonal credit.
`,
		"product/product/bond": `
bond:
  name: Government bonds
  description: Sovereign paper.
`,
		"scenario/scenario/orderly": `
summary: Orderly transition narrative.
`,
		"scenario/scenario/hot_house": `
summary: Hot house world narrative.
`,
	}
}

func cells(kv ...string) []mapping.Cell {
	var out []mapping.Cell
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, mapping.Cell{Column: kv[i], Value: kv[i+1]})
	}
	return out
}

func structureRows(report string) []mapping.OutputStructureRow {
	return []mapping.OutputStructureRow{
		{ReportType: report, Section: SectionExecutiveSummary, Materiality: "All", SubSections: cells(
			string(SubSectionSummaryTable), "yes",
			string(SubSectionScenario), "summary",
			string(SubSectionSectorScenario), "always",
		)},
		{ReportType: report, Section: SectionSectorOverview, Materiality: "All", SubSections: cells(
			string(SubSectionSectorDescription), "description",
			string(SubSectionProduct), "description",
		)},
		{ReportType: report, Section: SectionSectorDetail, Materiality: "All", SubSections: cells(
			string(SubSectionSectorScenario), "always",
		)},
		{ReportType: report, Section: SectionSectorDetail, Materiality: "High", SubSections: cells(
			string(SubSectionSectorScenario), "high_materiality",
		)},
	}
}

func testTables() *mapping.Tables {
	var structure []mapping.OutputStructureRow
	structure = append(structure, structureRows("Institutional")...)
	structure = append(structure, structureRows("Sector")...)
	structure = append(structure, mapping.OutputStructureRow{
		ReportType: "Scenario", Section: SectionExecutiveSummary, Materiality: "All",
		SubSections: cells(string(SubSectionScenario), "summary"),
	})

	return &mapping.Tables{
		Exposures: []mapping.ExposureRow{
			{Institution: "All", Exposure: "Real Estate", Sector: "Office", Type: "Exposure", SectorFile: "sector/office", ProductFile: "product/mortgage"},
			{Institution: "Bank", Exposure: "Real Estate", Sector: "Office", Type: "Loan", SectorFile: "sector/office", ProductFile: "product/loan"},
			{Institution: "All", Exposure: "Agriculture", Sector: "Crops", Type: "Exposure", SectorFile: "sector/agriculture", ProductFile: "product/agri_loan"},
			{Institution: "All", Exposure: "Sovereign", Sector: "Sovereign Debt", Type: "Exposure", SectorFile: "sovereigns/sovereign_debt", ProductFile: "product/bond"},
			{Institution: "Insurer", Exposure: "Sovereign", Sector: "Sovereign Debt", Type: "Bond", SectorFile: "sovereigns/sovereign_debt", ProductFile: "product/bond"},
		},
		Scenarios: []mapping.ScenarioRow{
			{Name: "Orderly Transition", File: "scenario/orderly", RiskType: "transition", RiskLevel: "low"},
			{Name: "Hot House World", File: "scenario/hot_house", RiskType: "physical", RiskLevel: "high"},
		},
		OutputStructure: structure,
	}
}

func newTestGenerator(strict bool) *Generator {
	return NewGenerator(mapping.NewStaticStore(testTables()), testContent(), Options{Strict: strict, Title: "Test"})
}

func exposure(t *testing.T, report selection.ReportType, inst, value string) selection.Record {
	t.Helper()
	recs, err := selection.BuildRecords(report, inst, valueCategory(value), []string{value})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	return recs[0]
}

func valueCategory(value string) string {
	parts := strings.Split(value, "|")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func scenarios(t *testing.T, report selection.ReportType, names ...string) []selection.Record {
	t.Helper()
	recs, err := selection.BuildRecords(report, "", selection.CategoryScenarios, names)
	require.NoError(t, err)
	return recs
}

// findAll returns every node below root matching pred, in document order.
func findAll(root Node, pred func(Node) bool) []Node {
	var out []Node
	Walk(root, func(n Node) {
		if pred(n) {
			out = append(out, n)
		}
	})
	return out
}

func withClass(class string) func(Node) bool {
	return func(n Node) bool { return HasClass(n, class) }
}

func headingText(level int, text string) func(Node) bool {
	return func(n Node) bool { return HeadingLevel(n) == level && PlainText(n) == text }
}

func headingsAt(root Node, level int) []string {
	var out []string
	for _, n := range findAll(root, func(n Node) bool { return HeadingLevel(n) == level }) {
		out = append(out, PlainText(n))
	}
	return out
}
