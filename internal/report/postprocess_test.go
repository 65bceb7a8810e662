package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/materiality/pkg/errors"
)

// assertPruned checks that no container is empty or holds only headings.
func assertPruned(t *testing.T, n Node) {
	t.Helper()
	Walk(n, func(n Node) {
		c, ok := n.(*Container)
		if !ok || voidTags[c.Tag] {
			return
		}
		assert.NotEmpty(t, c.Children, "empty <%s class=%q>", c.Tag, c.Class)
		if HeadingLevel(c) > 0 {
			return
		}
		if len(c.Children) == 1 {
			assert.Zero(t, HeadingLevel(c.Children[0]), "container holding only heading %q", PlainText(c.Children[0]))
		}
	})
}

func TestPrune(t *testing.T) {
	tests := []struct {
		name string
		in   Node
		want Node
	}{
		{"empty container", Div("x"), nil},
		{"blank text", Div("x", &Text{Value: "  "}), nil},
		{"heading only", Div("x", Heading(2, "Title", "")), nil},
		{"heading and empty markdown", Div("x", Heading(2, "Title", ""), Markdown("")), nil},
		{"table without rows", Div("x", Heading(2, "T", ""), NewTable([]string{"a"}, nil)), nil},
		{"section header only", Div("x", Heading(1, "S", ""), Div(classSectionHead, Heading(2, "H", ""), Para("intro"))), nil},
		{"void tag kept", Div("x", &Container{Tag: "hr"}), Div("x", &Container{Tag: "hr"})},
		{"content kept", Div("x", Heading(2, "T", ""), Para("body")), Div("x", Heading(2, "T", ""), Para("body"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Prune(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrune_Nested(t *testing.T) {
	tree := Div("report",
		Div("report-section", Heading(1, "Executive Summary", ""),
			Div("scenarios",
				Div(classSectionHead, Heading(2, "Summary of Scenario", ""), Para("intro")),
				Div("scenario-block", Heading(3, "Orderly", ""), Markdown("")),
			),
			Div("summary", Heading(2, "Inputs", ""), NewTable([]string{"a"}, [][]string{{"1"}})),
		),
		Div("report-section", Heading(1, "Sector Detail", ""),
			Div("sector-details", sectorBlock(2, "Office", Div("scenario-block", Heading(3, "Orderly", "")))),
		),
	)
	out := Prune(tree)
	require.NotNil(t, out)
	assertPruned(t, out)

	assert.Equal(t, []string{"Executive Summary"}, headingsAt(out, 1))
	assert.Equal(t, []string{"Inputs"}, headingsAt(out, 2))
	assert.Empty(t, findAll(out, withClass("scenarios")))

	// the input is not modified
	assert.Len(t, tree.Children, 2)
}

func section(title string, children ...Node) *Container {
	return Div("report-section", append([]Node{Heading(1, title, classSectionTitle)}, children...)...)
}

func TestMergeSectorSections(t *testing.T) {
	root := Div("report",
		section(SectionExecutiveSummary, Para("summary")),
		section(SectionSectorOverview,
			Div("sector-descriptions",
				sectorBlock(2, "Office", Markdown("Office description")),
				sovereignGroup(2, []Node{sectorBlock(3, "Sovereign Debt", Markdown("Sovereign description"))}),
			),
			Div("products",
				sectorBlock(2, "Office", NewTable([]string{"Product"}, [][]string{{"Mortgages"}})),
			),
		),
		section(SectionSectorDetail,
			Div("sector-details",
				sectorBlock(2, "Office", Div("scenario-block", Heading(3, "Orderly", ""), Markdown("Office detail"))),
				sectorBlock(2, "Forestry", Div("scenario-block", Heading(3, "Orderly", ""), Markdown("Forestry detail"))),
				sovereignGroup(2, []Node{sectorBlock(3, "Sovereign Debt", Div("scenario-block", Heading(4, "Orderly", ""), Markdown("Sovereign detail")))}),
			),
		),
	)

	merged, err := MergeSectorSections(root)
	require.NoError(t, err)

	assert.Equal(t, []string{SectionExecutiveSummary, SectionSectorOverview}, headingsAt(merged, 1))
	assert.Equal(t, []string{"Office", "Sovereign", "Forestry"}, headingsAt(merged, 2))

	offices := findAll(merged, func(n Node) bool {
		return HasClass(n, classSectorBlock) && PlainText(n.(*Container).Children[0]) == "Office"
	})
	require.Len(t, offices, 1)
	office := offices[0].(*Container)
	require.Len(t, office.Children, 4)
	assert.Equal(t, "Office description", PlainText(office.Children[1]))
	assert.IsType(t, &Table{}, office.Children[2])
	assert.True(t, HasClass(office.Children[3], classSectorDetail))
	// detail scenario headings move down one level
	assert.Len(t, findAll(office, headingText(4, "Orderly")), 1)

	sov := findAll(merged, headingText(3, "Sovereign Debt"))
	require.Len(t, sov, 1)
	assert.Len(t, findAll(merged, headingText(5, "Orderly")), 1)
	assert.Contains(t, PlainText(merged), "Sovereign detail")
	assert.Contains(t, PlainText(merged), "Forestry detail")
}

func TestMergeSectorSections_Skipped(t *testing.T) {
	root := Div("report",
		section(SectionExecutiveSummary, Para("summary")),
		section(SectionSectorDetail, Div("sector-details", sectorBlock(2, "Office", Para("detail")))),
	)
	merged, err := MergeSectorSections(root)
	require.NoError(t, err)
	assert.Same(t, root, merged)

	none, err := MergeSectorSections(nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMergeSectorSections_BlockWithoutHeading(t *testing.T) {
	root := Div("report",
		section(SectionSectorOverview, Div(classSectorBlock, Para("orphan"))),
		section(SectionSectorDetail, Para("detail")),
	)
	_, err := MergeSectorSections(root)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeStructure))
}

func TestBuildTOC(t *testing.T) {
	root := Div("report",
		Heading(2, "Preface", ""),
		section("Executive Summary",
			Heading(2, "Summary of inputs", ""),
			Heading(2, "Émissions & Co.", ""),
			Div("x", Heading(3, "Not listed", "")),
		),
		section("Executive Summary", Heading(2, "Summary of inputs", "")),
	)
	out, toc := BuildTOC(root)

	require.Len(t, toc, 3)
	assert.Equal(t, TOCGroup{ID: "report", Title: "Report", Links: []TOCLink{{Text: "Preface", Href: "#report-preface"}}}, toc[0])
	assert.Equal(t, "executive-summary", toc[1].ID)
	assert.Equal(t, []TOCLink{
		{Text: "Summary of inputs", Href: "#executive-summary-summary-of-inputs"},
		{Text: "Émissions & Co.", Href: "#executive-summary-emissions-co"},
	}, toc[1].Links)
	assert.Equal(t, "executive-summary-2", toc[2].ID)

	ids := map[string]bool{}
	Walk(out, func(n Node) {
		if c, ok := n.(*Container); ok && c.ID != "" {
			assert.False(t, ids[c.ID], "duplicate id %s", c.ID)
			ids[c.ID] = true
		}
	})
	assert.Len(t, ids, 6)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "sector-overview", Slug("Sector Overview"))
	assert.Equal(t, "cafe-2030", Slug("  Café -- 2030! "))
	assert.Equal(t, "", Slug("!!!"))
}
