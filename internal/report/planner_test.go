package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/materiality/internal/mapping"
	"github.com/verustcode/materiality/internal/selection"
)

func TestPlanStructure_ExpandsAll(t *testing.T) {
	rows := []mapping.OutputStructureRow{
		{ReportType: "Sector", Section: "Executive Summary", Materiality: "All", SubSections: cells(
			string(SubSectionScenario), "summary",
		)},
	}
	plan := PlanStructure(rows, selection.ReportSector)

	require.Len(t, plan.Entries, 3)
	var got []selection.Materiality
	for _, e := range plan.Entries {
		assert.Equal(t, "Executive Summary", e.Section)
		assert.Equal(t, "summary", e.ContentID)
		got = append(got, e.Materiality)
	}
	assert.Equal(t, []selection.Materiality{"Low", "Medium", "High"}, got)
}

func TestPlanStructure_FiltersReportType(t *testing.T) {
	plan := PlanStructure(testTables().OutputStructure, selection.ReportScenario)
	for _, e := range plan.Entries {
		assert.Equal(t, SectionExecutiveSummary, e.Section)
		assert.Equal(t, SubSectionScenario, e.SubSection)
	}
	assert.Equal(t, []string{SectionExecutiveSummary}, plan.Sections())

	empty := PlanStructure(testTables().OutputStructure, selection.ReportType("Unknown"))
	assert.True(t, empty.IsEmpty())
}

func TestPlanStructure_Ordering(t *testing.T) {
	rows := []mapping.OutputStructureRow{
		{ReportType: "Sector", Section: "B", Materiality: "High", SubSections: cells(string(SubSectionProduct), "p")},
		{ReportType: "Sector", Section: "A", Materiality: "Low", SubSections: cells(string(SubSectionProduct), "a_low")},
		{ReportType: "Sector", Section: "B", Materiality: "Low", SubSections: cells(
			string(SubSectionSectorDescription), "d",
			string(SubSectionProduct), "p_low",
		)},
	}
	plan := PlanStructure(rows, selection.ReportSector)

	type key struct {
		section string
		m       selection.Materiality
		kind    SubSectionKind
	}
	var got []key
	for _, e := range plan.Entries {
		got = append(got, key{e.Section, e.Materiality, e.SubSection})
	}
	assert.Equal(t, []key{
		{"B", "Low", SubSectionSectorDescription},
		{"B", "Low", SubSectionProduct},
		{"B", "High", SubSectionProduct},
		{"A", "Low", SubSectionProduct},
	}, got)
	assert.Equal(t, []string{"B", "A"}, plan.Sections())
	assert.Equal(t, []SubSectionKind{SubSectionSectorDescription, SubSectionProduct}, plan.SubSections("B"))
}

func TestPlanStructure_KeepsScaffold(t *testing.T) {
	rows := []mapping.OutputStructureRow{
		{ReportType: "Sector", Section: "Detail", Materiality: "All", SubSections: cells(
			string(SubSectionSectorScenario), "",
		)},
		{ReportType: "Sector", Section: "Detail", Materiality: "High", SubSections: cells(
			string(SubSectionSectorScenario), "high_materiality",
		)},
	}
	plan := PlanStructure(rows, selection.ReportSector)

	require.Len(t, plan.Entries, 3)
	assert.Equal(t, PlanEntry{Section: "Detail", Materiality: "Low"}, plan.Entries[0])
	assert.Equal(t, PlanEntry{Section: "Detail", Materiality: "Medium"}, plan.Entries[1])
	assert.Equal(t, "high_materiality", plan.Entries[2].ContentID)

	assert.Empty(t, plan.ForMateriality(selection.MaterialityLow))
	assert.Len(t, plan.ForMateriality(selection.MaterialityHigh), 1)
}

func TestPlanStructure_UnknownColumns(t *testing.T) {
	rows := []mapping.OutputStructureRow{
		{ReportType: "Sector", Section: "S", Materiality: "High", SubSections: cells(
			"chart_content_id", "x",
			string(SubSectionProduct), "p",
		)},
	}
	plan := PlanStructure(rows, selection.ReportSector)
	assert.Equal(t, []string{"chart_content_id"}, plan.UnknownColumns)
	require.Len(t, plan.Entries, 1)
	assert.Equal(t, SubSectionProduct, plan.Entries[0].SubSection)
}

func TestBuildersCoverEveryKind(t *testing.T) {
	for _, kind := range SubSectionKinds() {
		assert.NotNil(t, builders[kind], "no builder for %s", kind)
	}
	assert.Len(t, builders, len(SubSectionKinds()))
}
