package report

import (
	"context"
	"sort"
	"strings"

	"github.com/verustcode/materiality/internal/content"
	"github.com/verustcode/materiality/internal/mapping"
	"github.com/verustcode/materiality/internal/selection"
)

// EnrichedSelection is a rated selection joined with its mapping row, one plan
// entry and its sector file's ordering and display name.
type EnrichedSelection struct {
	Report      selection.ReportType  `json:"report_type"`
	Institution string                `json:"institution"`
	Exposure    string                `json:"exposure"`
	Sector      string                `json:"sector"`
	Type        string                `json:"type"`
	Materiality selection.Materiality `json:"materiality"`

	SectorFile  string `json:"sector_yml_file"`
	ProductFile string `json:"product_yml_file"`
	Sovereign   bool   `json:"sovereign"`

	Section    string         `json:"output_structure"`
	SubSection SubSectionKind `json:"sub_section"`
	ContentID  string         `json:"content_id"`

	SortOrder    int    `json:"sort_order"`
	HasSortOrder bool   `json:"has_sort_order"`
	SortKey      string `json:"sort_key"`
	SectorName   string `json:"yml_sector"`
}

func (e EnrichedSelection) sectorLess(o EnrichedSelection) bool {
	a := content.Entry{Key: e.SortKey, SortOrder: e.SortOrder, HasSortOrder: e.HasSortOrder}
	b := content.Entry{Key: o.SortKey, SortOrder: o.SortOrder, HasSortOrder: o.HasSortOrder}
	return a.Less(&b)
}

// enricher joins selections with the mapping tables and plan.
type enricher struct {
	tables *mapping.Tables
	plan   *Plan
	repo   content.Repository
	gaps   *gapCollector
}

// Enrich joins the exposure selections with the mapping tables and the plan.
// N/A ratings and scenario records are excluded. Selections without a mapping row
// are reported through the collector; missing sector files fail the call.
func (en *enricher) Enrich(ctx context.Context, records []selection.Record) ([]EnrichedSelection, error) {
	var out []EnrichedSelection
	seen := make(map[EnrichedSelection]bool)

	for _, rec := range records {
		if rec.IsScenario() || !rec.Materiality().IsRated() {
			continue
		}

		matches := en.match(rec)
		if len(matches) == 0 {
			if err := en.gaps.gap(GapMapping, rec.ID,
				"no mapping row for %s / %s / %s (institution %s)", rec.Exposure, rec.Sector, rec.Type, rec.Institution); err != nil {
				return nil, err
			}
			continue
		}

		entries := en.plan.ForMateriality(rec.Materiality())
		if len(entries) == 0 {
			if err := en.gaps.gap(GapContentID, string(rec.Materiality()),
				"no content defined for %s materiality in the %s report", rec.Materiality(), rec.Report); err != nil {
				return nil, err
			}
			continue
		}

		for _, row := range matches {
			if row.SectorFile == "" {
				if err := en.gaps.gap(GapMapping, rec.ID,
					"mapping row for %s / %s has no sector file", row.Exposure, row.Sector); err != nil {
					return nil, err
				}
				continue
			}
			sector, err := content.LoadEntry(ctx, en.repo, content.CategoryExposureClass, row.SectorFile)
			if err != nil {
				return nil, err
			}

			base := EnrichedSelection{
				Report:       rec.Report,
				Institution:  rec.Institution,
				Exposure:     rec.Exposure,
				Sector:       rec.Sector,
				Type:         rec.Type,
				Materiality:  rec.Materiality(),
				SectorFile:   row.SectorFile,
				ProductFile:  row.ProductFile,
				Sovereign:    rec.IsSovereign() || row.IsSovereign() || strings.Contains(strings.ToLower(sector.Name), "sovereign"),
				SortOrder:    sector.SortOrder,
				HasSortOrder: sector.HasSortOrder,
				SortKey:      sector.Key,
				SectorName:   sector.Name,
			}
			if rec.IsSovereign() || rec.Exposure == selection.CategorySectors {
				// Taken from the mapping so the result does not depend on the selection's
				// institution or type.
				base.Institution = row.Institution
				base.Type = row.Type
			}

			for _, entry := range entries {
				e := base
				e.Section = entry.Section
				e.SubSection = entry.SubSection
				e.ContentID = entry.ContentID
				if !seen[e] {
					seen[e] = true
					out = append(out, e)
				}
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.sectorLess(b) {
			return true
		}
		if b.sectorLess(a) {
			return false
		}
		return a.Materiality.Rank() < b.Materiality.Rank()
	})
	return out, nil
}

// match finds the mapping rows of a selection, de-duplicated by (sector file, product file).
func (en *enricher) match(rec selection.Record) []mapping.ExposureRow {
	var pred func(mapping.ExposureRow) bool
	switch {
	case rec.IsSovereign():
		pred = func(r mapping.ExposureRow) bool {
			return r.Exposure == rec.Exposure && r.Sector == rec.Sector
		}
	case rec.Exposure == selection.CategorySectors:
		group, _, _ := strings.Cut(rec.Value, "|")
		pred = func(r mapping.ExposureRow) bool {
			if r.Sector != rec.Sector {
				return false
			}
			return group == "" || group == rec.Value || selection.SectorGroupName(r.SectorFile) == group
		}
	default:
		pred = func(r mapping.ExposureRow) bool {
			return (r.Institution == rec.Institution || r.Institution == mapping.InstitutionAll) &&
				r.Exposure == rec.Exposure && r.Sector == rec.Sector && r.Type == rec.Type
		}
	}

	var out []mapping.ExposureRow
	seen := make(map[[2]string]bool)
	for _, r := range en.tables.Exposures {
		if !pred(r) {
			continue
		}
		key := [2]string{r.SectorFile, r.ProductFile}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// filterRows returns the rows of one (section, sub-section) pair, keeping order.
func filterRows(rows []EnrichedSelection, section string, kind SubSectionKind) []EnrichedSelection {
	var out []EnrichedSelection
	for _, r := range rows {
		if r.Section == section && r.SubSection == kind {
			out = append(out, r)
		}
	}
	return out
}
