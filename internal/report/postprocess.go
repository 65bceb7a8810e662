package report

import (
	"github.com/verustcode/materiality/pkg/errors"
)

// voidTags render without children and are never pruned.
var voidTags = map[string]bool{
	"img": true, "br": true, "hr": true, "meta": true, "link": true, "input": true,
}

// Prune rebuilds the tree without empty branches. It returns nil when nothing
// survives. A container is dropped when it has no surviving children, or when
// every surviving child is a bare heading or a section header.
func Prune(n Node) Node {
	switch v := n.(type) {
	case nil:
		return nil
	case *Text:
		if PlainText(v) == "" {
			return nil
		}
		return v
	case *RichText:
		if PlainText(v) == "" {
			return nil
		}
		return v
	case *Table:
		if v == nil || len(v.Rows) == 0 {
			return nil
		}
		return v
	case *Container:
		if v == nil {
			return nil
		}
		if voidTags[v.Tag] {
			return v
		}
		if HeadingLevel(v) > 0 {
			if PlainText(v) == "" {
				return nil
			}
			return v
		}
		var kept []Node
		for _, c := range v.Children {
			if p := Prune(c); p != nil {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 || onlyScaffold(kept) {
			return nil
		}
		return v.withChildren(kept)
	}
	return n
}

func onlyScaffold(children []Node) bool {
	for _, c := range children {
		if HeadingLevel(c) == 0 && !HasClass(c, classSectionHead) {
			return false
		}
	}
	return true
}

// sectionTitle returns the text of a section's leading level-1 heading.
func sectionTitle(n Node) string {
	c, ok := n.(*Container)
	if !ok || len(c.Children) == 0 || HeadingLevel(c.Children[0]) != 1 {
		return ""
	}
	return PlainText(c.Children[0])
}

// MergeSectorSections folds the sector detail section into the sector overview:
// each overview sector keeps its heading, description and products, followed by
// the matching detail narrative demoted one level. Detail sectors without an
// overview counterpart are appended. The merge is skipped when either section is
// missing.
func MergeSectorSections(root *Container) (*Container, error) {
	if root == nil {
		return nil, nil
	}
	oi, di := -1, -1
	for i, c := range root.Children {
		switch sectionTitle(c) {
		case SectionSectorOverview:
			oi = i
		case SectionSectorDetail:
			di = i
		}
	}
	if oi < 0 || di < 0 {
		return root, nil
	}

	overview := root.Children[oi].(*Container)
	detail := root.Children[di].(*Container)

	set := newBlockSet()
	var before, after []Node
	placed := false
	for _, sub := range overview.Children[1:] {
		rest, took, err := set.collect(sub, false)
		if err != nil {
			return nil, err
		}
		placed = placed || took
		if rest == nil {
			continue
		}
		if placed {
			after = append(after, rest)
		} else {
			before = append(before, rest)
		}
	}
	var trailing []Node
	for _, sub := range detail.Children[1:] {
		rest, _, err := set.collect(sub, true)
		if err != nil {
			return nil, err
		}
		if rest != nil {
			trailing = append(trailing, rest)
		}
	}

	children := []Node{overview.Children[0]}
	children = append(children, before...)
	children = append(children, Div("sector-overview", set.render()...))
	children = append(children, after...)
	children = append(children, trailing...)

	var out []Node
	for i, c := range root.Children {
		switch i {
		case oi:
			out = append(out, overview.withChildren(children))
		case di:
		default:
			out = append(out, c)
		}
	}
	return root.withChildren(out), nil
}

// block is one sector (or sector group) gathered from several sub-sections.
type block struct {
	container *Container
	heading   Node
	body      []Node
	nested    *blockSet
}

type blockSet struct {
	order []*block
	index map[string]*block
}

func newBlockSet() *blockSet {
	return &blockSet{index: make(map[string]*block)}
}

func isSectorNode(n Node) bool {
	return HasClass(n, classSectorBlock) || HasClass(n, classSectorGroup)
}

// collect pulls the sector blocks and groups out of a sub-section container into
// the set. It returns the sub-section without them (nil when nothing else
// remains) and whether any block was taken.
func (s *blockSet) collect(sub Node, fromDetail bool) (Node, bool, error) {
	c, ok := sub.(*Container)
	if !ok {
		return sub, false, nil
	}
	if isSectorNode(c) {
		return nil, true, s.add(c, fromDetail)
	}
	var rest []Node
	took := false
	for _, child := range c.Children {
		if !isSectorNode(child) {
			rest = append(rest, child)
			continue
		}
		took = true
		if err := s.add(child.(*Container), fromDetail); err != nil {
			return nil, took, err
		}
	}
	if len(rest) == 0 {
		return nil, took, nil
	}
	return c.withChildren(rest), took, nil
}

func (s *blockSet) add(c *Container, fromDetail bool) error {
	if len(c.Children) == 0 || HeadingLevel(c.Children[0]) == 0 {
		return errors.New(errors.ErrCodeStructure, "sector block without a heading").
			WithDetails(map[string]string{"class": c.Class})
	}
	group := HasClass(c, classSectorGroup)
	name := PlainText(c.Children[0])
	key := "b:" + name
	if group {
		key = "g:" + name
	}

	b, ok := s.index[key]
	if !ok {
		b = &block{container: c, heading: c.Children[0]}
		if group {
			b.nested = newBlockSet()
		}
		s.index[key] = b
		s.order = append(s.order, b)
	}

	rest := c.Children[1:]
	if group {
		for _, child := range rest {
			if isSectorNode(child) {
				if err := b.nested.add(child.(*Container), fromDetail); err != nil {
					return err
				}
				continue
			}
			b.body = append(b.body, child)
		}
		return nil
	}
	if ok && fromDetail {
		demoted := make([]Node, len(rest))
		for i, child := range rest {
			demoted[i] = demote(child, 1)
		}
		b.body = append(b.body, Div(classSectorDetail, demoted...))
		return nil
	}
	b.body = append(b.body, rest...)
	return nil
}

func (s *blockSet) render() []Node {
	out := make([]Node, 0, len(s.order))
	for _, b := range s.order {
		children := append([]Node{b.heading}, b.body...)
		if b.nested != nil {
			children = append(children, b.nested.render()...)
		}
		out = append(out, b.container.withChildren(children))
	}
	return out
}

// demote pushes every heading below n down by levels, capped at h6.
func demote(n Node, levels int) Node {
	c, ok := n.(*Container)
	if !ok {
		return n
	}
	if lvl := HeadingLevel(c); lvl > 0 {
		return Heading(lvl+levels, PlainText(c), c.Class)
	}
	children := make([]Node, len(c.Children))
	for i, child := range c.Children {
		children[i] = demote(child, levels)
	}
	return c.withChildren(children)
}
