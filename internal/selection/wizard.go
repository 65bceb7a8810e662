package selection

import (
	"fmt"
	"strings"

	"github.com/verustcode/materiality/internal/mapping"
)

// valueSep joins the parts of a widget value.
const valueSep = "|"

// Step is one page of the questionnaire.
type Step struct {
	Index    int    `json:"index"`
	Label    string `json:"label"`
	Category string `json:"category"`
}

// Steps lists the questionnaire pages for a report type and institution.
func Steps(report ReportType, institution string, tables *mapping.Tables) []Step {
	var categories []string
	switch report {
	case ReportInstitutional:
		categories = append(tables.ExposuresFor(institution), CategoryScenarios)
	case ReportSector:
		categories = []string{CategorySectors, CategoryScenarios}
	case ReportScenario:
		categories = []string{CategoryScenarios}
	}

	steps := make([]Step, len(categories))
	for i, c := range categories {
		steps[i] = Step{Index: i, Label: fmt.Sprintf("Step %d", i+1), Category: c}
	}
	return steps
}

// ExposureItem is one (sector, type) row of an institutional exposure page,
// with one option value per materiality.
type ExposureItem struct {
	Sector  string            `json:"sector"`
	Type    string            `json:"type"`
	Options []MaterialityItem `json:"options"`
	Default string            `json:"default"`
}

// MaterialityItem is one radio option.
type MaterialityItem struct {
	Label Materiality `json:"label"`
	Value string      `json:"value"`
	Color string      `json:"color"`
}

// ExposureItems builds the rating rows of an institutional exposure page.
// Defaults come from previously stored records, else N/A.
func ExposureItems(tables *mapping.Tables, institution, exposure string, stored []Record) []ExposureItem {
	previous := make(map[string]string, len(stored))
	for _, r := range stored {
		previous[r.Sector+valueSep+r.Type] = r.Value
	}

	seen := make(map[string]bool)
	var items []ExposureItem
	for _, row := range tables.ForInstitution(institution) {
		if row.Exposure != exposure {
			continue
		}
		key := row.Sector + valueSep + row.Type
		if seen[key] {
			continue
		}
		seen[key] = true

		item := ExposureItem{Sector: row.Sector, Type: row.Type}
		for _, m := range Materialities() {
			item.Options = append(item.Options, MaterialityItem{
				Label: m,
				Value: strings.Join([]string{institution, exposure, row.Sector, row.Type, string(m)}, valueSep),
				Color: m.Color(),
			})
		}
		item.Default = item.Options[0].Value
		if v, ok := previous[key]; ok {
			item.Default = v
		}
		items = append(items, item)
	}
	return items
}

// Sector checklist groups, keyed by the first path segment of the sector file.
var sectorGroups = []struct {
	prefix string
	name   string
}{
	{"sector", "Sectors"},
	{"underwriting", "Underwriting Classes"},
	{"sovereigns", "Sovereigns"},
}

// GroupOther collects sector files outside the known groups.
const GroupOther = "Other"

// SectorGroupName maps a sector file to its checklist group.
func SectorGroupName(sectorFile string) string {
	prefix, _, _ := strings.Cut(sectorFile, "/")
	for _, g := range sectorGroups {
		if g.prefix == prefix {
			return g.name
		}
	}
	return GroupOther
}

// SectorOption is one checklist entry of the sector report.
type SectorOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// SectorGroup is one checklist of the sector report.
type SectorGroup struct {
	Name    string         `json:"name"`
	Options []SectorOption `json:"options"`
}

// SectorGroups builds the sector report checklists. displayName resolves a sector
// file to the name shown to the user; the option value carries the mapping's sector.
func SectorGroups(tables *mapping.Tables, displayName func(sectorFile string) string) []SectorGroup {
	byGroup := make(map[string][]SectorOption)
	seen := make(map[string]bool)
	for _, row := range tables.Exposures {
		group := SectorGroupName(row.SectorFile)
		key := group + valueSep + row.Sector
		if row.Sector == "" || seen[key] {
			continue
		}
		seen[key] = true

		label := row.Sector
		if displayName != nil {
			if name := displayName(row.SectorFile); name != "" {
				label = name
			}
		}
		byGroup[group] = append(byGroup[group], SectorOption{Label: label, Value: key})
	}

	var out []SectorGroup
	for _, name := range []string{"Sectors", "Underwriting Classes", "Sovereigns", GroupOther} {
		if opts := byGroup[name]; len(opts) > 0 {
			out = append(out, SectorGroup{Name: name, Options: opts})
		}
	}
	return out
}

// BuildRecords turns the widget values submitted for a category into records.
// Institution defaults to N/A.
func BuildRecords(report ReportType, institution, category string, values []string) ([]Record, error) {
	if institution == "" {
		institution = NotApplicable
	}

	records := make([]Record, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		var (
			r   Record
			err error
		)
		switch category {
		case CategoryScenarios:
			r = scenarioRecord(report, institution, v)
		case CategorySectors:
			r, err = sectorRecord(report, institution, v)
		default:
			r, err = exposureRecord(report, institution, category, v)
		}
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func scenarioRecord(report ReportType, institution, name string) Record {
	return Record{
		Report:      report,
		ID:          name,
		Institution: institution,
		Exposure:    CategoryScenarios,
		Sector:      NotApplicable,
		Type:        NotApplicable,
		Label:       name,
		Value:       name,
	}
}

// sectorRecord parses "<group>|<sector>"; sector report ratings are always High.
func sectorRecord(report ReportType, institution, value string) (Record, error) {
	group, sector, ok := strings.Cut(value, valueSep)
	if !ok || group == "" || sector == "" {
		return Record{}, fmt.Errorf("invalid sector value %q, want <group>|<sector>", value)
	}
	return Record{
		Report:      report,
		ID:          value,
		Institution: institution,
		Exposure:    CategorySectors,
		Sector:      sector,
		Type:        NotApplicable,
		Label:       string(MaterialityHigh),
		Value:       value,
	}, nil
}

// exposureRecord parses "<institution>|<exposure>|<sector>|<type>|<label>".
func exposureRecord(report ReportType, institution, category, value string) (Record, error) {
	parts := strings.Split(value, valueSep)
	if len(parts) != 5 {
		return Record{}, fmt.Errorf("invalid exposure value %q, want 5 parts", value)
	}
	if parts[1] != category {
		return Record{}, fmt.Errorf("exposure value %q submitted for category %q", value, category)
	}
	label := Materiality(parts[4])
	if !label.Valid() {
		return Record{}, fmt.Errorf("invalid materiality %q", parts[4])
	}
	return Record{
		Report:      report,
		ID:          strings.Join(parts[:4], valueSep),
		Institution: institution,
		Exposure:    parts[1],
		Sector:      parts[2],
		Type:        parts[3],
		Label:       string(label),
		Value:       value,
	}, nil
}
