package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/materiality/internal/mapping"
)

func testTables() *mapping.Tables {
	return &mapping.Tables{
		Exposures: []mapping.ExposureRow{
			{Institution: "Bank", Exposure: "Real Estate", Sector: "Office", Type: "Mortgage", SectorFile: "sector/office", ProductFile: "mortgage"},
			{Institution: "Bank", Exposure: "Corporate", Sector: "Energy", Type: "Loan", SectorFile: "sector/energy", ProductFile: "loan"},
			{Institution: "Insurer", Exposure: "Corporate", Sector: "Marine", Type: "Policy", SectorFile: "underwriting/marine", ProductFile: "policy"},
			{Institution: "All", Exposure: "Sovereign", Sector: "UK", Type: "Bond", SectorFile: "sovereigns/uk", ProductFile: "bond"},
			{Institution: "Bank", Exposure: "Other", Sector: "Misc", Type: "Loan", SectorFile: "misc/thing", ProductFile: "loan"},
		},
		Scenarios: []mapping.ScenarioRow{
			{Name: "Orderly Transition", File: "orderly", RiskType: "transition", RiskLevel: "low"},
		},
	}
}

func TestParseReportType(t *testing.T) {
	rt, err := ParseReportType(" sector ")
	require.NoError(t, err)
	assert.Equal(t, ReportSector, rt)

	_, err = ParseReportType("Quarterly")
	assert.Error(t, err)
}

func TestReportTypeFilename(t *testing.T) {
	assert.Equal(t, "Institutional_Report.pdf", ReportInstitutional.Filename("pdf"))
	assert.Equal(t, "Scenario_Report.html", ReportScenario.Filename(".html"))
	assert.Equal(t, "Materiality_Report.md", ReportType("").Filename("md"))
}

func TestMateriality(t *testing.T) {
	assert.True(t, MaterialityLow.Rank() < MaterialityMedium.Rank())
	assert.True(t, MaterialityMedium.Rank() < MaterialityHigh.Rank())
	assert.False(t, MaterialityNA.IsRated())
	assert.True(t, MaterialityHigh.IsRated())
	assert.False(t, Materiality("Extreme").Valid())
	assert.Equal(t, "#00B050", MaterialityHigh.Color())
	assert.Equal(t, "white", MaterialityNA.Color())
	assert.Equal(t, []Materiality{MaterialityLow, MaterialityMedium, MaterialityHigh}, Rated())
}

func TestColumnTitle(t *testing.T) {
	assert.Equal(t, "Materiality", ColumnTitle("materiality"))
	assert.Equal(t, "Sector Name", ColumnTitle("sector_name"))
}

func TestSelections_SetOverwritesCategory(t *testing.T) {
	s := New()
	first, err := BuildRecords(ReportInstitutional, "Bank", "Real Estate", []string{"Bank|Real Estate|Office|Mortgage|Low"})
	require.NoError(t, err)
	s.Set("Real Estate", first)
	s.Set(CategoryScenarios, []Record{scenarioRecord(ReportInstitutional, "Bank", "Orderly Transition")})

	second, err := BuildRecords(ReportInstitutional, "Bank", "Real Estate", []string{"Bank|Real Estate|Office|Mortgage|High"})
	require.NoError(t, err)
	s.Set("Real Estate", second)

	assert.Equal(t, []string{"Real Estate", CategoryScenarios}, s.Categories(), "re-submitted category keeps its position")
	require.Len(t, s.Get("Real Estate"), 1)
	assert.Equal(t, "High", s.Get("Real Estate")[0].Label)
	assert.Len(t, s.Exposures(), 1)
	assert.Equal(t, []string{"Orderly Transition"}, s.Scenarios())

	s.Clear()
	assert.True(t, s.IsEmpty())
	assert.Empty(t, s.Categories())
}

func TestSelections_DedupeWithinSubmission(t *testing.T) {
	s := New()
	s.Set("Real Estate", []Record{
		{ID: "a", Label: "Low"},
		{ID: "b", Label: "Low"},
		{ID: "a", Label: "High"},
	})
	recs := s.Get("Real Estate")
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].ID)
	assert.Equal(t, "High", recs[0].Label)
}

func TestBuildRecords(t *testing.T) {
	recs, err := BuildRecords(ReportInstitutional, "Bank", "Corporate", []string{"Bank|Corporate|Energy|Loan|Medium", ""})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, Record{
		Report: ReportInstitutional, ID: "Bank|Corporate|Energy|Loan", Institution: "Bank",
		Exposure: "Corporate", Sector: "Energy", Type: "Loan", Label: "Medium", Value: "Bank|Corporate|Energy|Loan|Medium",
	}, recs[0])

	recs, err = BuildRecords(ReportSector, "", CategorySectors, []string{"Sectors|Office"})
	require.NoError(t, err)
	assert.Equal(t, Record{
		Report: ReportSector, ID: "Sectors|Office", Institution: NotApplicable,
		Exposure: CategorySectors, Sector: "Office", Type: NotApplicable, Label: "High", Value: "Sectors|Office",
	}, recs[0])

	recs, err = BuildRecords(ReportScenario, "", CategoryScenarios, []string{"Hot House"})
	require.NoError(t, err)
	assert.True(t, recs[0].IsScenario())
	assert.Equal(t, "Hot House", recs[0].Label)
	assert.Equal(t, NotApplicable, recs[0].Sector)
}

func TestBuildRecords_Errors(t *testing.T) {
	tests := []struct {
		name     string
		category string
		value    string
	}{
		{"too few parts", "Corporate", "Bank|Corporate|Energy|Loan"},
		{"wrong category", "Corporate", "Bank|Real Estate|Office|Mortgage|Low"},
		{"bad materiality", "Corporate", "Bank|Corporate|Energy|Loan|Severe"},
		{"bad sector value", CategorySectors, "Office"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildRecords(ReportInstitutional, "Bank", tt.category, []string{tt.value})
			assert.Error(t, err)
		})
	}
}

func TestSteps(t *testing.T) {
	tables := testTables()

	steps := Steps(ReportInstitutional, "Bank", tables)
	var cats []string
	for _, s := range steps {
		cats = append(cats, s.Category)
	}
	assert.Equal(t, []string{"Real Estate", "Corporate", "Sovereign", "Other", CategoryScenarios}, cats)
	assert.Equal(t, "Step 1", steps[0].Label)

	assert.Len(t, Steps(ReportSector, "", tables), 2)
	assert.Equal(t, CategoryScenarios, Steps(ReportScenario, "", tables)[0].Category)
	assert.Empty(t, Steps(ReportType("x"), "", tables))
}

func TestExposureItems(t *testing.T) {
	stored := []Record{{Sector: "Energy", Type: "Loan", Value: "Bank|Corporate|Energy|Loan|High"}}
	items := ExposureItems(testTables(), "Bank", "Corporate", stored)
	require.Len(t, items, 1)
	assert.Equal(t, "Energy", items[0].Sector)
	assert.Len(t, items[0].Options, 4)
	assert.Equal(t, "Bank|Corporate|Energy|Loan|N/A", items[0].Options[0].Value)
	assert.Equal(t, "Bank|Corporate|Energy|Loan|High", items[0].Default)

	items = ExposureItems(testTables(), "Bank", "Sovereign", nil)
	require.Len(t, items, 1)
	assert.Equal(t, "Bank|Sovereign|UK|Bond|N/A", items[0].Default)
}

func TestSectorGroups(t *testing.T) {
	groups := SectorGroups(testTables(), func(file string) string {
		if file == "sector/office" {
			return "Office Buildings"
		}
		return ""
	})
	require.Len(t, groups, 4)
	assert.Equal(t, "Sectors", groups[0].Name)
	assert.Equal(t, []SectorOption{
		{Label: "Office Buildings", Value: "Sectors|Office"},
		{Label: "Energy", Value: "Sectors|Energy"},
	}, groups[0].Options)
	assert.Equal(t, "Underwriting Classes", groups[1].Name)
	assert.Equal(t, "Sovereigns", groups[2].Name)
	assert.Equal(t, GroupOther, groups[3].Name)
}

func TestErrorFlag(t *testing.T) {
	flag, msg := ErrorFlag(New(), ReportScenario)
	assert.True(t, flag)
	assert.Contains(t, msg, "one scenario")

	s := New()
	s.Set(CategoryScenarios, []Record{scenarioRecord(ReportScenario, "", "Orderly Transition")})
	flag, msg = ErrorFlag(s, ReportScenario)
	assert.False(t, flag)
	assert.Empty(t, msg)

	flag, msg = ErrorFlag(s, ReportInstitutional)
	assert.True(t, flag, "scenario alone is not enough for an institutional report")
	assert.Contains(t, msg, "one exposure's materiality and scenario")

	s.Set("Corporate", []Record{{ID: "x", Exposure: "Corporate", Label: "N/A"}})
	flag, _ = ErrorFlag(s, ReportInstitutional)
	assert.True(t, flag, "N/A ratings do not count")

	s.Set("Corporate", []Record{{ID: "x", Exposure: "Corporate", Label: "Low"}})
	flag, _ = ErrorFlag(s, ReportInstitutional)
	assert.False(t, flag)
}

func TestBuildReview_Institutional(t *testing.T) {
	s := New()
	s.Set(CategoryScenarios, []Record{scenarioRecord(ReportInstitutional, "Bank", "Orderly Transition")})
	s.Set("Corporate", []Record{{ID: "1", Exposure: "Corporate", Sector: "Energy", Type: "Loan", Label: "Low"}})
	s.Set("Real Estate", []Record{
		{ID: "2", Exposure: "Real Estate", Sector: "Office", Type: "Mortgage", Label: "High"},
		{ID: "3", Exposure: "Real Estate", Sector: "Retail", Type: "Mortgage", Label: "N/A"},
	})

	review := BuildReview(s, ReportInstitutional, "Bank", testTables())
	assert.Equal(t, "Bank: Review your selections", review.Title)
	assert.Equal(t, []string{"Exposure", "Sector", "Type", "Label"}, review.Columns)
	assert.Equal(t, [][]string{
		{"Real Estate", "Office", "Mortgage", "High"},
		{"Corporate", "Energy", "Loan", "Low"},
		{CategoryScenarios, NotApplicable, NotApplicable, "Orderly Transition"},
	}, review.Rows)
}

func TestBuildReview_SectorAndScenario(t *testing.T) {
	s := New()
	s.Set(CategorySectors, []Record{{ID: "Sectors|Office", Exposure: CategorySectors, Sector: "Office", Label: "High"}})
	s.Set(CategoryScenarios, []Record{scenarioRecord(ReportSector, "", "Orderly Transition")})

	review := BuildReview(s, ReportSector, "", testTables())
	assert.Equal(t, "Review your selections", review.Title)
	assert.Equal(t, [][]string{{CategorySectors, "Office"}, {CategoryScenarios, "Orderly Transition"}}, review.Rows)

	review = BuildReview(s, ReportScenario, NotApplicable, testTables())
	assert.Equal(t, []string{"Scenario"}, review.Columns)
	assert.Equal(t, [][]string{{"Orderly Transition"}}, review.Rows)
}
