package report

import (
	"context"
	"sort"
	"strings"

	"github.com/verustcode/materiality/internal/content"
	"github.com/verustcode/materiality/internal/mapping"
	"github.com/verustcode/materiality/internal/selection"
)

// Classes shared by builders, the post-processor and the stylesheet.
const (
	classSectionTitle = "text-success fw-bold"
	classSectionHead  = "section-header"
	classSectorBlock  = "sector-block"
	classSectorGroup  = "sector-group"
	classSectorDetail = "sector-detail"
	classBold         = "fw-bold"
	classEmpty        = "report-empty"
)

// SovereignGroupTitle heads the sovereign sub-group of sector listings.
const SovereignGroupTitle = "Sovereign"

// buildContext carries the per-request inputs every builder reads.
type buildContext struct {
	ctx       context.Context
	tables    *mapping.Tables
	repo      content.Repository
	gaps      *gapCollector
	records   []selection.Record
	scenarios []string
}

// builderFunc renders one (section, sub-section) pair. rows holds the enriched
// selections of that pair only.
type builderFunc func(bc *buildContext, section string, entries []PlanEntry, rows []EnrichedSelection) (Node, error)

// builders maps every sub-section kind to its builder.
var builders = map[SubSectionKind]builderFunc{
	SubSectionSummaryTable:      buildSummaryTable,
	SubSectionScenario:          buildScenarios,
	SubSectionSectorDescription: buildSectorDescriptions,
	SubSectionSectorScenario:    buildSectorScenarios,
	SubSectionProduct:           buildProducts,
}

// PluralS returns "s" when plural is true.
func PluralS(plural bool) string {
	if plural {
		return "s"
	}
	return ""
}

// BulletList renders values as "- a\n- b".
func BulletList(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return "- " + strings.Join(values, "\n- ")
}

func sectionHeader(title, intro string) Node {
	return Div(classSectionHead, Heading(2, title, ""), Para(intro))
}

func sectorBlock(level int, name string, children ...Node) *Container {
	return Div(classSectorBlock, append([]Node{Heading(level, name, classBold)}, children...)...)
}

func sovereignGroup(level int, blocks []Node) Node {
	if len(blocks) == 0 {
		return nil
	}
	return Div(classSectorGroup+" sovereign", append([]Node{Heading(level, SovereignGroupTitle, classBold)}, blocks...)...)
}

// buildSummaryTable lists every rated selection and chosen scenario.
func buildSummaryTable(bc *buildContext, _ string, _ []PlanEntry, _ []EnrichedSelection) (Node, error) {
	headers := []string{
		selection.ColumnTitle("exposure"),
		selection.ColumnTitle("sector"),
		selection.ColumnTitle("type"),
		selection.ColumnTitle("selection"),
	}
	var rows [][]string
	for _, r := range bc.records {
		if r.Label == string(selection.MaterialityNA) {
			continue
		}
		rows = append(rows, []string{r.Exposure, r.Sector, r.Type, r.Label})
	}
	if len(rows) == 0 {
		return Empty(), nil
	}
	return Div("summary-inputs", Heading(2, "Summary of inputs", ""), NewTable(headers, rows)), nil
}

// buildScenarios renders each chosen scenario's narrative from its scenario file.
func buildScenarios(bc *buildContext, section string, entries []PlanEntry, _ []EnrichedSelection) (Node, error) {
	if len(bc.scenarios) == 0 || len(entries) == 0 {
		return Empty(), nil
	}
	contentID := entries[0].ContentID

	var blocks []Node
	for _, name := range bc.scenarios {
		sc, ok := bc.tables.Scenario(name)
		if !ok {
			if err := bc.gaps.gap(GapScenario, name, "scenario %q is not in the scenario mapping", name); err != nil {
				return nil, err
			}
			continue
		}
		m, err := bc.repo.Load(bc.ctx, content.CategoryScenario, sc.File)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, Div("scenario-block mb-3", Heading(3, name, "fw-bolder"), Markdown(m.Text(contentID))))
	}

	if section == SectionExecutiveSummary {
		plural := PluralS(len(bc.scenarios) > 1)
		blocks = append([]Node{sectionHeader(
			"Summary of Scenario"+plural,
			"This report considers the following scenario"+plural+":",
		)}, blocks...)
	}
	return Div("scenarios", blocks...), nil
}

// buildProducts renders the product contribution table. In the sector overview
// there is one table per sector so the post-processor can merge it into the sector.
func buildProducts(bc *buildContext, section string, _ []PlanEntry, rows []EnrichedSelection) (Node, error) {
	type productKey struct{ sectorFile, productFile string }
	type productRow struct {
		sectorName string
		sovereign  bool
		product    string
		types      []string
		desc       string
	}

	var order []productKey
	byKey := make(map[productKey]*productRow)
	for _, r := range rows {
		if r.ProductFile == "" {
			if err := bc.gaps.gap(GapMapping, r.Sector, "mapping row for %s / %s has no product file", r.Exposure, r.Sector); err != nil {
				return nil, err
			}
			continue
		}
		key := productKey{r.SectorFile, r.ProductFile}
		pr, ok := byKey[key]
		if !ok {
			entry, err := content.LoadEntry(bc.ctx, bc.repo, content.CategoryProduct, r.ProductFile)
			if err != nil {
				return nil, err
			}
			pr = &productRow{sectorName: r.SectorName, sovereign: r.Sovereign, product: entry.Name, desc: entry.Fragment(r.ContentID)}
			byKey[key] = pr
			order = append(order, key)
		}
		typ := r.Type
		if typ == "Exposure" {
			typ = r.SectorName
		}
		if typ != "" && typ != selection.NotApplicable && !contains(pr.types, typ) {
			pr.types = append(pr.types, typ)
		}
	}
	if len(order) == 0 {
		return Empty(), nil
	}

	// Sovereign sectors after the others, first-encountered order otherwise.
	sort.SliceStable(order, func(i, j int) bool {
		return !byKey[order[i]].sovereign && byKey[order[j]].sovereign
	})

	typesCell := func(pr *productRow) string {
		types := append([]string(nil), pr.types...)
		sort.Strings(types)
		return BulletList(types)
	}

	if section != SectionSectorOverview {
		headers := []string{
			selection.ColumnTitle("sector"),
			selection.ColumnTitle("product"),
			selection.ColumnTitle("type"),
			selection.ColumnTitle("description"),
		}
		var table [][]string
		for _, k := range order {
			pr := byKey[k]
			table = append(table, []string{pr.sectorName, pr.product, typesCell(pr), pr.desc})
		}
		return Div("products", Heading(2, "Product contributions", ""), NewTable(headers, table)), nil
	}

	headers := []string{selection.ColumnTitle("product"), selection.ColumnTitle("type"), selection.ColumnTitle("description")}
	var sectors []string
	tables := make(map[string][][]string)
	sovereign := make(map[string]bool)
	for _, k := range order {
		pr := byKey[k]
		if _, ok := tables[pr.sectorName]; !ok {
			sectors = append(sectors, pr.sectorName)
		}
		tables[pr.sectorName] = append(tables[pr.sectorName], []string{pr.product, typesCell(pr), pr.desc})
		sovereign[pr.sectorName] = sovereign[pr.sectorName] || pr.sovereign
	}

	var others, sovereigns []Node
	for _, name := range sectors {
		if sovereign[name] {
			sovereigns = append(sovereigns, sectorBlock(3, name, NewTable(headers, tables[name])))
		} else {
			others = append(others, sectorBlock(2, name, NewTable(headers, tables[name])))
		}
	}
	return Div("products", append(others, sovereignGroup(2, sovereigns))...), nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
