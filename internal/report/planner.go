package report

import (
	"sort"

	"github.com/verustcode/materiality/internal/mapping"
	"github.com/verustcode/materiality/internal/selection"
)

// SubSectionKind names a sub-section column of the output structure table.
type SubSectionKind string

const (
	SubSectionSummaryTable      SubSectionKind = "summary_input_table_flag"
	SubSectionScenario          SubSectionKind = "scenario_content_id"
	SubSectionSectorDescription SubSectionKind = "sector_description_content_id"
	SubSectionSectorScenario    SubSectionKind = "sector_scenario_content_id"
	SubSectionProduct           SubSectionKind = "product_content_id"
)

// SubSectionKinds lists every kind with a builder.
func SubSectionKinds() []SubSectionKind {
	return []SubSectionKind{
		SubSectionSummaryTable,
		SubSectionScenario,
		SubSectionSectorDescription,
		SubSectionSectorScenario,
		SubSectionProduct,
	}
}

// Valid reports whether k is a known kind.
func (k SubSectionKind) Valid() bool {
	for _, known := range SubSectionKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Section names the post-processor and builders treat specially.
const (
	SectionExecutiveSummary = "Executive Summary"
	SectionSectorOverview   = "Sector Overview"
	SectionSectorDetail     = "Sector Detail"
)

// PlanEntry is one (section, materiality, sub-section, content id) tuple.
// SubSection is empty for scaffold entries that only keep a (section, materiality)
// in the ordering.
type PlanEntry struct {
	Section     string                `json:"section"`
	Materiality selection.Materiality `json:"materiality"`
	SubSection  SubSectionKind        `json:"sub_section,omitempty"`
	ContentID   string                `json:"content_id,omitempty"`
}

// Plan is the ordered output structure of one report type.
type Plan struct {
	Entries []PlanEntry `json:"entries"`
	// UnknownColumns are sub-section columns without a builder.
	UnknownColumns []string `json:"unknown_columns,omitempty"`
}

// PlanStructure expands "All" materialities, melts the sub-section columns and
// orders the result by section appearance, then materiality, then column order.
// Rows of other report types are ignored; an unknown report type yields an empty plan.
func PlanStructure(rows []mapping.OutputStructureRow, report selection.ReportType) *Plan {
	plan := &Plan{}

	type orderKey struct {
		section     string
		materiality selection.Materiality
	}
	sectionRank := make(map[string]int)
	seenOrder := make(map[orderKey]bool)
	var order []orderKey
	melted := make(map[orderKey][]PlanEntry)
	unknown := make(map[string]bool)

	for _, row := range rows {
		if row.ReportType != string(report) {
			continue
		}
		if _, ok := sectionRank[row.Section]; !ok {
			sectionRank[row.Section] = len(sectionRank)
		}
		for _, m := range expandMateriality(row.Materiality) {
			key := orderKey{row.Section, m}
			if !seenOrder[key] {
				seenOrder[key] = true
				order = append(order, key)
			}
			for _, cell := range row.SubSections {
				if cell.Value == "" {
					continue
				}
				kind := SubSectionKind(cell.Column)
				if !kind.Valid() {
					unknown[cell.Column] = true
					continue
				}
				melted[key] = append(melted[key], PlanEntry{
					Section:     row.Section,
					Materiality: m,
					SubSection:  kind,
					ContentID:   cell.Value,
				})
			}
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if sectionRank[a.section] != sectionRank[b.section] {
			return sectionRank[a.section] < sectionRank[b.section]
		}
		return a.materiality.Rank() < b.materiality.Rank()
	})

	for _, key := range order {
		entries := melted[key]
		if len(entries) == 0 {
			plan.Entries = append(plan.Entries, PlanEntry{Section: key.section, Materiality: key.materiality})
			continue
		}
		plan.Entries = append(plan.Entries, entries...)
	}

	for col := range unknown {
		plan.UnknownColumns = append(plan.UnknownColumns, col)
	}
	sort.Strings(plan.UnknownColumns)
	return plan
}

func expandMateriality(m string) []selection.Materiality {
	if m == selection.MaterialityAll {
		return selection.Rated()
	}
	return []selection.Materiality{selection.Materiality(m)}
}

// Sections returns section names in plan order.
func (p *Plan) Sections() []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range p.Entries {
		if !seen[e.Section] {
			seen[e.Section] = true
			out = append(out, e.Section)
		}
	}
	return out
}

// SubSections returns the sub-section kinds of a section in first-appearance order.
func (p *Plan) SubSections(section string) []SubSectionKind {
	var out []SubSectionKind
	seen := make(map[SubSectionKind]bool)
	for _, e := range p.Entries {
		if e.Section != section || e.SubSection == "" || seen[e.SubSection] {
			continue
		}
		seen[e.SubSection] = true
		out = append(out, e.SubSection)
	}
	return out
}

// EntriesFor returns the entries of one (section, sub-section) pair.
func (p *Plan) EntriesFor(section string, kind SubSectionKind) []PlanEntry {
	var out []PlanEntry
	for _, e := range p.Entries {
		if e.Section == section && e.SubSection == kind {
			out = append(out, e)
		}
	}
	return out
}

// ForMateriality returns the content-bearing entries for one materiality.
func (p *Plan) ForMateriality(m selection.Materiality) []PlanEntry {
	var out []PlanEntry
	for _, e := range p.Entries {
		if e.Materiality == m && e.SubSection != "" {
			out = append(out, e)
		}
	}
	return out
}

// IsEmpty reports whether the plan has no entries.
func (p *Plan) IsEmpty() bool { return len(p.Entries) == 0 }
