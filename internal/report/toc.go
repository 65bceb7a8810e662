package report

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// TOCLink points at a level-2 heading.
type TOCLink struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// TOCGroup is a level-1 heading and the level-2 headings below it.
type TOCGroup struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Links []TOCLink `json:"links"`
}

// Slug converts heading text to a DOM-safe id fragment: accents are stripped,
// letters and digits are lowercased and every other run becomes a single '-'.
func Slug(text string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFKD.String(text) {
		switch {
		case r > unicode.MaxASCII:
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

type tocBuilder struct {
	groups []TOCGroup
	used   map[string]int
}

func (tb *tocBuilder) unique(id string) string {
	if id == "" {
		id = "section"
	}
	tb.used[id]++
	if n := tb.used[id]; n > 1 {
		return id + "-" + strconv.Itoa(n)
	}
	return id
}

// BuildTOC assigns ids to level-1 and level-2 headings and collects them into
// groups in document order. A level-2 heading before any level-1 heading opens a
// synthesized "Report" group.
func BuildTOC(root Node) (Node, []TOCGroup) {
	if root == nil {
		return nil, nil
	}
	tb := &tocBuilder{used: make(map[string]int)}
	out := tb.visit(root)
	return out, tb.groups
}

func (tb *tocBuilder) visit(n Node) Node {
	c, ok := n.(*Container)
	if !ok {
		return n
	}
	switch HeadingLevel(c) {
	case 1:
		title := PlainText(c)
		id := tb.unique(Slug(title))
		tb.groups = append(tb.groups, TOCGroup{ID: id, Title: title, Links: []TOCLink{}})
		return c.withID(id)
	case 2:
		if len(tb.groups) == 0 {
			tb.groups = append(tb.groups, TOCGroup{ID: tb.unique("report"), Title: "Report", Links: []TOCLink{}})
		}
		g := &tb.groups[len(tb.groups)-1]
		text := PlainText(c)
		id := tb.unique(g.ID + "-" + Slug(text))
		g.Links = append(g.Links, TOCLink{Text: text, Href: "#" + id})
		return c.withID(id)
	case 0:
		children := make([]Node, len(c.Children))
		for i, child := range c.Children {
			children[i] = tb.visit(child)
		}
		return c.withChildren(children)
	}
	return c
}
