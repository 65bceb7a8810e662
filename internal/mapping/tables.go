package mapping

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Sheet names after CleanString.
const (
	SheetExposureMapping = "exposure_sector_product_mapping"
	SheetScenarioMapping = "scenario_mapping"
	SheetOutputStructure = "output_structure_mapping"
)

// Column names of the output structure sheet that key a row; every other column
// is a sub-section holding a content id.
const (
	ColumnReportType      = "report_type"
	ColumnOutputStructure = "output_structure"
	ColumnMateriality     = "materiality"
)

// InstitutionAll marks mapping rows that apply to every institution type.
const InstitutionAll = "All"

// ExposureSovereign is the exposure whose rows join on (exposure, sector) only.
const ExposureSovereign = "Sovereign"

var requiredColumns = map[string][]string{
	SheetExposureMapping: {"institution", "exposure", "sector", "type", "sector_yml_file", "product_yml_file"},
	SheetScenarioMapping: {"scenario_name", "scenario_yml_file", "risk_type", "risk_level"},
	SheetOutputStructure: {ColumnReportType, ColumnOutputStructure, ColumnMateriality},
}

// ExposureRow links an (institution, exposure, sector, type) to its content files.
type ExposureRow struct {
	Institution string `json:"institution"`
	Exposure    string `json:"exposure"`
	Sector      string `json:"sector"`
	Type        string `json:"type"`
	SectorFile  string `json:"sector_yml_file"`
	ProductFile string `json:"product_yml_file"`
}

// IsSovereign reports whether the row belongs to the sovereign exposure.
func (r ExposureRow) IsSovereign() bool {
	return r.Exposure == ExposureSovereign
}

// SectorGroup is the first path segment of the sector file ("sector", "underwriting", ...).
func (r ExposureRow) SectorGroup() string {
	group, _, _ := strings.Cut(r.SectorFile, "/")
	return group
}

// ScenarioRow resolves a scenario to its file and content branch.
type ScenarioRow struct {
	Name      string `json:"scenario_name"`
	File      string `json:"scenario_yml_file"`
	RiskType  string `json:"risk_type"`
	RiskLevel string `json:"risk_level"`
}

// Cell is one sub-section column of an output structure row.
type Cell struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// OutputStructureRow lists, for one (report type, section, materiality), the content id
// of each sub-section column. Empty values mean the sub-section is absent.
type OutputStructureRow struct {
	ReportType  string `json:"report_type"`
	Section     string `json:"output_structure"`
	Materiality string `json:"materiality"`
	SubSections []Cell `json:"sub_sections"`
}

// Tables is an immutable snapshot of the three mapping tables.
type Tables struct {
	Exposures       []ExposureRow        `json:"exposures"`
	Scenarios       []ScenarioRow        `json:"scenarios"`
	OutputStructure []OutputStructureRow `json:"output_structure"`

	Source     string    `json:"source"`
	ExportedAt string    `json:"exported_at,omitempty"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// FromWorkbook builds Tables from a workbook, checking required sheets and columns.
func FromWorkbook(wb *Workbook) (*Tables, error) {
	for _, name := range []string{SheetExposureMapping, SheetScenarioMapping, SheetOutputStructure} {
		sheet := wb.Sheet(name)
		if sheet == nil {
			return nil, eris.Errorf("mapping: sheet %q missing", name)
		}
		for _, col := range requiredColumns[name] {
			if sheet.Index(col) < 0 {
				return nil, eris.Errorf("mapping: sheet %q lacks column %q", name, col)
			}
		}
	}

	t := &Tables{ExportedAt: wb.ExportedAt, LoadedAt: time.Now()}

	exposures := wb.Sheet(SheetExposureMapping)
	for _, row := range exposures.Rows {
		t.Exposures = append(t.Exposures, ExposureRow{
			Institution: exposures.Value(row, "institution"),
			Exposure:    exposures.Value(row, "exposure"),
			Sector:      exposures.Value(row, "sector"),
			Type:        exposures.Value(row, "type"),
			SectorFile:  exposures.Value(row, "sector_yml_file"),
			ProductFile: exposures.Value(row, "product_yml_file"),
		})
	}

	scenarios := wb.Sheet(SheetScenarioMapping)
	for _, row := range scenarios.Rows {
		t.Scenarios = append(t.Scenarios, ScenarioRow{
			Name:      scenarios.Value(row, "scenario_name"),
			File:      scenarios.Value(row, "scenario_yml_file"),
			RiskType:  scenarios.Value(row, "risk_type"),
			RiskLevel: scenarios.Value(row, "risk_level"),
		})
	}

	structure := wb.Sheet(SheetOutputStructure)
	for i, row := range structure.Rows {
		r := OutputStructureRow{
			ReportType:  structure.Value(row, ColumnReportType),
			Section:     structure.Value(row, ColumnOutputStructure),
			Materiality: structure.Value(row, ColumnMateriality),
		}
		if r.ReportType == "" || r.Section == "" || r.Materiality == "" {
			return nil, eris.Errorf("mapping: output structure row %d lacks report type, section or materiality", i+2)
		}
		for _, col := range structure.Columns {
			switch col {
			case ColumnReportType, ColumnOutputStructure, ColumnMateriality:
				continue
			}
			r.SubSections = append(r.SubSections, Cell{Column: col, Value: structure.Value(row, col)})
		}
		t.OutputStructure = append(t.OutputStructure, r)
	}

	return t, nil
}

// ForInstitution returns rows whose institution is the given type or "All".
func (t *Tables) ForInstitution(institution string) []ExposureRow {
	var out []ExposureRow
	for _, r := range t.Exposures {
		if r.Institution == institution || r.Institution == InstitutionAll {
			out = append(out, r)
		}
	}
	return out
}

// Institutions lists the institution types in first-appearance order, excluding "All".
func (t *Tables) Institutions() []string {
	return distinct(len(t.Exposures), func(i int) string {
		if t.Exposures[i].Institution == InstitutionAll {
			return ""
		}
		return t.Exposures[i].Institution
	})
}

// ExposuresFor lists the exposure categories available to an institution, in first-appearance order.
func (t *Tables) ExposuresFor(institution string) []string {
	rows := t.ForInstitution(institution)
	return distinct(len(rows), func(i int) string { return rows[i].Exposure })
}

// Scenario looks a scenario up by name.
func (t *Tables) Scenario(name string) (ScenarioRow, bool) {
	for _, s := range t.Scenarios {
		if s.Name == name {
			return s, true
		}
	}
	return ScenarioRow{}, false
}

// ScenarioNames lists the scenario names in table order.
func (t *Tables) ScenarioNames() []string {
	return distinct(len(t.Scenarios), func(i int) string { return t.Scenarios[i].Name })
}

// ReportTypes lists the report types the output structure defines.
func (t *Tables) ReportTypes() []string {
	return distinct(len(t.OutputStructure), func(i int) string { return t.OutputStructure[i].ReportType })
}

// SectorFiles lists every distinct sector file referenced by the exposure mapping.
func (t *Tables) SectorFiles() []string {
	return distinct(len(t.Exposures), func(i int) string { return t.Exposures[i].SectorFile })
}

// ProductFiles lists every distinct product file referenced by the exposure mapping.
func (t *Tables) ProductFiles() []string {
	return distinct(len(t.Exposures), func(i int) string { return t.Exposures[i].ProductFile })
}

// ContentIDs lists every distinct non-empty content id in a sub-section column.
func (t *Tables) ContentIDs(column string) []string {
	var values []string
	for _, r := range t.OutputStructure {
		for _, c := range r.SubSections {
			if c.Column == column {
				values = append(values, c.Value)
			}
		}
	}
	return distinct(len(values), func(i int) string { return values[i] })
}

func distinct(n int, at func(int) string) []string {
	seen := make(map[string]bool)
	var out []string
	for i := 0; i < n; i++ {
		v := at(i)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
