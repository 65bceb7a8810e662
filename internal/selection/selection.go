// Package selection models the questionnaire answers a report is assembled from:
// report types, materiality ratings, selection records and their per-session store.
package selection

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ReportType is the kind of report a session produces.
type ReportType string

const (
	ReportInstitutional ReportType = "Institutional"
	ReportSector        ReportType = "Sector"
	ReportScenario      ReportType = "Scenario"
)

// ReportTypes lists every report type in menu order.
func ReportTypes() []ReportType {
	return []ReportType{ReportInstitutional, ReportSector, ReportScenario}
}

// ParseReportType accepts a report type name in any letter case.
func ParseReportType(s string) (ReportType, error) {
	for _, rt := range ReportTypes() {
		if strings.EqualFold(strings.TrimSpace(s), string(rt)) {
			return rt, nil
		}
	}
	return "", fmt.Errorf("unknown report type %q", s)
}

// Valid reports whether r is a known report type.
func (r ReportType) Valid() bool {
	for _, rt := range ReportTypes() {
		if r == rt {
			return true
		}
	}
	return false
}

// Filename returns the export filename "<ReportType>_Report.<ext>".
func (r ReportType) Filename(ext string) string {
	name := string(r)
	if name == "" {
		name = "Materiality"
	}
	return name + "_Report." + strings.TrimPrefix(ext, ".")
}

// Materiality is a rating, or N/A for an immaterial exposure.
type Materiality string

const (
	MaterialityNA     Materiality = "N/A"
	MaterialityLow    Materiality = "Low"
	MaterialityMedium Materiality = "Medium"
	MaterialityHigh   Materiality = "High"
)

// MaterialityAll in the output structure expands to Low, Medium and High.
const MaterialityAll = "All"

// Materialities lists the wizard options in display order.
func Materialities() []Materiality {
	return []Materiality{MaterialityNA, MaterialityLow, MaterialityMedium, MaterialityHigh}
}

// Rated lists the materialities that can appear in a report, ascending.
func Rated() []Materiality {
	return []Materiality{MaterialityLow, MaterialityMedium, MaterialityHigh}
}

var materialityColors = map[Materiality]string{
	MaterialityNA:     "white",
	MaterialityLow:    "#BFEBCE",
	MaterialityMedium: "#61CD85",
	MaterialityHigh:   "#00B050",
}

// Color is the swatch shown next to the option.
func (m Materiality) Color() string { return materialityColors[m] }

// Valid reports whether m is one of the four wizard options.
func (m Materiality) Valid() bool {
	_, ok := materialityColors[m]
	return ok
}

// IsRated reports whether m is Low, Medium or High.
func (m Materiality) IsRated() bool { return m.Rank() > 0 }

// Rank orders Low < Medium < High; N/A and unknown values rank 0.
func (m Materiality) Rank() int {
	switch m {
	case MaterialityLow:
		return 1
	case MaterialityMedium:
		return 2
	case MaterialityHigh:
		return 3
	default:
		return 0
	}
}

// Well-known category and exposure names.
const (
	CategoryScenarios = "Scenarios"
	CategorySectors   = "Sectors"
	ExposureScenario  = "Scenario"
	ExposureSovereign = "Sovereign"
	NotApplicable     = "N/A"
)

// Record is one answer: a rated (exposure, sector, type) or a chosen scenario.
type Record struct {
	Report      ReportType `json:"report"`
	ID          string     `json:"id"`
	Institution string     `json:"institution"`
	Exposure    string     `json:"exposure"`
	Sector      string     `json:"sector"`
	Type        string     `json:"type"`
	Label       string     `json:"label"`
	Value       string     `json:"value"`
}

// IsScenario reports whether the record names a scenario rather than rating an exposure.
func (r Record) IsScenario() bool {
	return r.Exposure == CategoryScenarios || r.Exposure == ExposureScenario
}

// IsSovereign reports whether the record rates the sovereign exposure.
func (r Record) IsSovereign() bool { return r.Exposure == ExposureSovereign }

// Materiality returns the rating for exposure records.
func (r Record) Materiality() Materiality { return Materiality(r.Label) }

// Key identifies the (exposure, sector, type) a record rates.
func (r Record) Key() string {
	return r.Exposure + "|" + r.Sector + "|" + r.Type
}

var titleCaser = cases.Title(language.English)

// ColumnTitle turns a snake_case key into a table header ("sector_name" → "Sector Name").
func ColumnTitle(key string) string {
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}
