// Package report assembles materiality reports: it plans the output structure,
// enriches selections against the mapping tables, builds a document tree per
// section, post-processes it and serializes it to self-contained markup.
package report

import (
	"encoding/json"
	"strings"
)

// Node is one element of the document tree: *Container, *Text, *RichText or *Table.
// Nodes are never mutated after construction; transformations build new nodes.
type Node interface {
	isNode()
}

// Container is a generic block element.
type Container struct {
	Tag      string
	ID       string
	Class    string
	Style    map[string]string
	Children []Node
}

// Text is plain text, escaped on output.
type Text struct {
	Value string
}

// RichText is a markdown fragment.
type RichText struct {
	Source string
}

// Table is tabular data with escaped cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

func (*Container) isNode() {}
func (*Text) isNode()      {}
func (*RichText) isNode()  {}
func (*Table) isNode()     {}

// Div builds a <div> with a class.
func Div(class string, children ...Node) *Container {
	return &Container{Tag: "div", Class: class, Children: compact(children)}
}

// Heading builds an <hN> element holding text.
func Heading(level int, text, class string) *Container {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return &Container{Tag: "h" + string(rune('0'+level)), Class: class, Children: []Node{&Text{Value: text}}}
}

// Para builds a <p> holding text.
func Para(text string) *Container {
	return &Container{Tag: "p", Children: []Node{&Text{Value: text}}}
}

// Markdown builds a rich-text node.
func Markdown(src string) *RichText {
	return &RichText{Source: src}
}

// NewTable builds a table node.
func NewTable(headers []string, rows [][]string) *Table {
	return &Table{Headers: headers, Rows: rows}
}

// Empty is an invisible node, removed by pruning.
func Empty() *Container {
	return &Container{Tag: "div"}
}

func compact(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil && !isNilNode(n) {
			out = append(out, n)
		}
	}
	return out
}

func isNilNode(n Node) bool {
	switch v := n.(type) {
	case *Container:
		return v == nil
	case *Text:
		return v == nil
	case *RichText:
		return v == nil
	case *Table:
		return v == nil
	}
	return false
}

// HeadingLevel returns N for an <hN> container, or 0.
func HeadingLevel(n Node) int {
	c, ok := n.(*Container)
	if !ok || len(c.Tag) != 2 || c.Tag[0] != 'h' || c.Tag[1] < '1' || c.Tag[1] > '6' {
		return 0
	}
	return int(c.Tag[1] - '0')
}

// PlainText concatenates the text below n.
func PlainText(n Node) string {
	var b strings.Builder
	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case *Text:
			b.WriteString(v.Value)
		case *RichText:
			b.WriteString(v.Source)
		case *Container:
			for _, c := range v.Children {
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

// HasClass reports whether a container carries the given class.
func HasClass(n Node, class string) bool {
	c, ok := n.(*Container)
	if !ok {
		return false
	}
	for _, f := range strings.Fields(c.Class) {
		if f == class {
			return true
		}
	}
	return false
}

// withChildren copies c with a new child list.
func (c *Container) withChildren(children []Node) *Container {
	cp := *c
	cp.Children = children
	return &cp
}

// withID copies c with a new id.
func (c *Container) withID(id string) *Container {
	cp := *c
	cp.ID = id
	return &cp
}

// Walk visits nodes depth-first in document order.
func Walk(n Node, fn func(Node)) {
	fn(n)
	if c, ok := n.(*Container); ok {
		for _, child := range c.Children {
			Walk(child, fn)
		}
	}
}

// JSON encoding tags each node with its kind for API clients.

func (c *Container) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string            `json:"type"`
		Tag      string            `json:"tag"`
		ID       string            `json:"id,omitempty"`
		Class    string            `json:"class,omitempty"`
		Style    map[string]string `json:"style,omitempty"`
		Children []Node            `json:"children"`
	}{"container", c.Tag, c.ID, c.Class, c.Style, nonNil(c.Children)})
}

func (t *Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}{"text", t.Value})
}

func (r *RichText) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		Source string `json:"source"`
	}{"rich_text", r.Source})
}

func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string     `json:"type"`
		Headers []string   `json:"headers"`
		Rows    [][]string `json:"rows"`
	}{"table", t.Headers, t.Rows})
}

func nonNil(nodes []Node) []Node {
	if nodes == nil {
		return []Node{}
	}
	return nodes
}
