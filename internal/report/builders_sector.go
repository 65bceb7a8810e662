package report

import (
	"sort"

	"github.com/verustcode/materiality/internal/content"
	"github.com/verustcode/materiality/internal/selection"
)

// Content ids with a fixed position and label in high-materiality sector narratives.
var highContentOrder = []string{"always", "high_materiality"}

var contentLabels = map[string]string{
	"always":           "Summary",
	"high_materiality": "Detail",
}

func contentLabel(id string) string {
	if l, ok := contentLabels[id]; ok {
		return l
	}
	return selection.ColumnTitle(id)
}

// sectorGroup is the rows of one sector file, in first-appearance order.
type sectorGroup struct {
	file       string
	name       string
	sovereign  bool
	contentIDs []string
	levels     []selection.Materiality
}

func groupBySector(rows []EnrichedSelection) []*sectorGroup {
	return groupRows(rows, func(r EnrichedSelection) string { return r.SectorFile })
}

// groupBySectorContent keeps one group per (sector file, content id) pair, so
// materialities resolving to different fragments stay apart.
func groupBySectorContent(rows []EnrichedSelection) []*sectorGroup {
	return groupRows(rows, func(r EnrichedSelection) string { return r.SectorFile + "\x00" + r.ContentID })
}

func groupRows(rows []EnrichedSelection, key func(EnrichedSelection) string) []*sectorGroup {
	var out []*sectorGroup
	index := make(map[string]*sectorGroup)
	for _, r := range rows {
		k := key(r)
		g, ok := index[k]
		if !ok {
			g = &sectorGroup{file: r.SectorFile, name: r.SectorName}
			index[k] = g
			out = append(out, g)
		}
		g.sovereign = g.sovereign || r.Sovereign
		if !contains(g.contentIDs, r.ContentID) {
			g.contentIDs = append(g.contentIDs, r.ContentID)
		}
		found := false
		for _, m := range g.levels {
			if m == r.Materiality {
				found = true
			}
		}
		if !found {
			g.levels = append(g.levels, r.Materiality)
		}
	}
	for _, g := range out {
		sort.Slice(g.levels, func(i, j int) bool { return g.levels[i].Rank() < g.levels[j].Rank() })
	}
	return out
}

func splitSovereign(groups []*sectorGroup) (others, sovereigns []*sectorGroup) {
	for _, g := range groups {
		if g.sovereign {
			sovereigns = append(sovereigns, g)
		} else {
			others = append(others, g)
		}
	}
	return others, sovereigns
}

func splitHigh(rows []EnrichedSelection) (high, other []EnrichedSelection) {
	for _, r := range rows {
		if r.Materiality == selection.MaterialityHigh {
			high = append(high, r)
		} else {
			other = append(other, r)
		}
	}
	return high, other
}

// buildSectorDescriptions renders each sector's description, sovereign sectors last
// under their own heading.
func buildSectorDescriptions(bc *buildContext, _ string, _ []PlanEntry, rows []EnrichedSelection) (Node, error) {
	groups := groupBySector(rows)
	if len(groups) == 0 {
		return Empty(), nil
	}
	others, sovereigns := splitSovereign(groups)

	render := func(g *sectorGroup, level int) (Node, error) {
		entry, err := content.LoadEntry(bc.ctx, bc.repo, content.CategoryExposureClass, g.file)
		if err != nil {
			return nil, err
		}
		text := entry.Fragment(g.contentIDs[0])
		if text == "" {
			return nil, nil
		}
		return sectorBlock(level, g.name, Markdown(text)), nil
	}

	var children, sovBlocks []Node
	for _, g := range others {
		n, err := render(g, 2)
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}
	for _, g := range sovereigns {
		n, err := render(g, 3)
		if err != nil {
			return nil, err
		}
		sovBlocks = append(sovBlocks, n)
	}
	children = append(children, sovereignGroup(2, compact(sovBlocks)))
	return Div("sector-descriptions", children...), nil
}

// buildSectorScenarios renders each sector's narrative per chosen scenario. Only the
// executive summary and the sector detail carry this sub-section.
func buildSectorScenarios(bc *buildContext, section string, _ []PlanEntry, rows []EnrichedSelection) (Node, error) {
	if len(bc.scenarios) == 0 || len(rows) == 0 {
		return Empty(), nil
	}
	switch section {
	case SectionExecutiveSummary:
		return bc.sectorScenarioSummary(rows)
	case SectionSectorDetail:
		return bc.sectorScenarioDetail(rows)
	}
	return Empty(), nil
}

// scenarioFragment resolves one sector narrative for a scenario. Gaps yield "".
func (bc *buildContext) scenarioFragment(entry *content.Entry, scenario, contentID string) (string, error) {
	sc, ok := bc.tables.Scenario(scenario)
	if !ok {
		return "", bc.gaps.gap(GapScenario, scenario, "scenario %q is not in the scenario mapping", scenario)
	}
	text, ok := entry.ScenarioFragment(sc.RiskType, sc.RiskLevel, contentID)
	if !ok {
		return "", bc.gaps.gap(GapFragment, entry.File,
			"%s has no %s / %s / %s fragment", entry.File, sc.RiskType, sc.RiskLevel, contentID)
	}
	return text, nil
}

// sectorNarrative renders one sector block: the sector heading at level, a heading
// per scenario below it and, when labeled, a heading per content id below that.
func (bc *buildContext) sectorNarrative(g *sectorGroup, level int, contentIDs []string, labeled bool) (Node, error) {
	entry, err := content.LoadEntry(bc.ctx, bc.repo, content.CategoryExposureClass, g.file)
	if err != nil {
		return nil, err
	}
	var scenarios []Node
	for _, name := range bc.scenarios {
		var parts []Node
		for _, id := range contentIDs {
			text, err := bc.scenarioFragment(entry, name, id)
			if err != nil {
				return nil, err
			}
			if labeled {
				parts = append(parts, Div("", Heading(level+2, contentLabel(id), ""), Markdown(text)))
			} else {
				parts = append(parts, Markdown(text))
			}
		}
		scenarios = append(scenarios, Div("scenario-block", append([]Node{Heading(level+1, name, "")}, parts...)...))
	}
	return sectorBlock(level, g.name, scenarios...), nil
}

// orderHighContent puts the known high-materiality ids first, others after in
// appearance order.
func orderHighContent(ids []string) []string {
	var out []string
	for _, known := range highContentOrder {
		if contains(ids, known) {
			out = append(out, known)
		}
	}
	for _, id := range ids {
		if !contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func (bc *buildContext) sectorScenarioSummary(rows []EnrichedSelection) (Node, error) {
	high, other := splitHigh(rows)

	var highBlock Node
	if highGroups := groupBySector(high); len(highGroups) > 0 {
		others, sovereigns := splitSovereign(highGroups)
		children := []Node{Heading(3, "High materiality exposures", "")}
		for _, g := range others {
			n, err := bc.sectorNarrative(g, 4, orderHighContent(g.contentIDs), false)
			if err != nil {
				return nil, err
			}
			children = append(children, n)
		}
		var sovBlocks []Node
		for _, g := range sovereigns {
			n, err := bc.sectorNarrative(g, 5, orderHighContent(g.contentIDs), false)
			if err != nil {
				return nil, err
			}
			sovBlocks = append(sovBlocks, n)
		}
		children = append(children, sovereignGroup(4, sovBlocks))
		highBlock = Div("high-materiality", children...)
	}

	var otherBlock Node
	if otherGroups := groupBySectorContent(other); len(otherGroups) > 0 {
		others, sovereigns := splitSovereign(otherGroups)
		headers := []string{
			selection.ColumnTitle("sector"),
			selection.ColumnTitle("materiality"),
			selection.ColumnTitle("scenario"),
			selection.ColumnTitle("description"),
		}
		var table [][]string
		for _, g := range append(others, sovereigns...) {
			entry, err := content.LoadEntry(bc.ctx, bc.repo, content.CategoryExposureClass, g.file)
			if err != nil {
				return nil, err
			}
			levels := make([]string, len(g.levels))
			for i, m := range g.levels {
				levels[i] = string(m)
			}
			for _, name := range bc.scenarios {
				text, err := bc.scenarioFragment(entry, name, g.contentIDs[0])
				if err != nil {
					return nil, err
				}
				table = append(table, []string{g.name, BulletList(levels), name, text})
			}
		}
		otherBlock = Div("other-exposures", Heading(3, "Other exposures", ""), NewTable(headers, table))
	}

	sectors := len(groupBySector(rows))
	plural := PluralS(sectors > 1)
	return Div("exposures",
		sectionHeader("Summary of exposure"+plural, "This report considers the following exposure"+plural+":"),
		highBlock,
		otherBlock,
	), nil
}

func (bc *buildContext) sectorScenarioDetail(rows []EnrichedSelection) (Node, error) {
	high, other := splitHigh(rows)
	highGroups := groupBySector(high)

	type detail struct {
		group   *sectorGroup
		ids     []string
		labeled bool
	}
	var details []detail
	named := make(map[string]bool)
	for _, g := range highGroups {
		ids := orderHighContent(g.contentIDs)
		details = append(details, detail{g, ids, len(ids) > 1})
		named[g.name] = true
	}
	for _, g := range groupBySector(other) {
		if named[g.name] {
			continue
		}
		named[g.name] = true
		details = append(details, detail{g, g.contentIDs[:1], false})
	}

	var children, sovBlocks []Node
	for _, d := range details {
		level := 2
		if d.group.sovereign {
			level = 3
		}
		n, err := bc.sectorNarrative(d.group, level, d.ids, d.labeled)
		if err != nil {
			return nil, err
		}
		if d.group.sovereign {
			sovBlocks = append(sovBlocks, n)
		} else {
			children = append(children, n)
		}
	}
	children = append(children, sovereignGroup(2, sovBlocks))
	return Div("sector-details", children...), nil
}
