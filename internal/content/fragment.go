// Package content loads the authored narrative library: sector (exposure class),
// product and scenario YAML files keyed by content id.
package content

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category names a sub-directory of the content library.
type Category string

const (
	CategoryExposureClass Category = "exposure_class"
	CategoryProduct       Category = "product"
	CategoryScenario      Category = "scenario"
)

// Categories lists every known category in library order.
func Categories() []Category {
	return []Category{CategoryExposureClass, CategoryProduct, CategoryScenario}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryExposureClass, CategoryProduct, CategoryScenario:
		return true
	}
	return false
}

// Fragment is either a text value or a nested mapping
// (scenario-sensitive content keyed by risk type, then risk level).
type Fragment struct {
	text   string
	nested *Mapping
}

// TextFragment builds a text fragment.
func TextFragment(s string) Fragment { return Fragment{text: s} }

// NestedFragment builds a mapping fragment.
func NestedFragment(m *Mapping) Fragment { return Fragment{nested: m} }

// IsText reports whether the fragment holds text.
func (f Fragment) IsText() bool { return f.nested == nil }

// Text returns the text value, or "" for nested fragments.
func (f Fragment) Text() string {
	if f.nested != nil {
		return ""
	}
	return f.text
}

// Mapping returns the nested mapping, or nil for text fragments.
func (f Fragment) Mapping() *Mapping { return f.nested }

// Mapping is an insertion-ordered key→Fragment map.
type Mapping struct {
	keys   []string
	values map[string]Fragment
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]Fragment)}
}

// Set adds or replaces key; a new key is appended to the order.
func (m *Mapping) Set(key string, f Fragment) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = f
}

// Keys returns keys in file order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Get returns the fragment stored under key.
func (m *Mapping) Get(key string) (Fragment, bool) {
	if m == nil {
		return Fragment{}, false
	}
	f, ok := m.values[key]
	return f, ok
}

// Text returns the text under key; missing keys and nested values read as "".
func (m *Mapping) Text(key string) string {
	f, _ := m.Get(key)
	return f.Text()
}

// Lookup follows a key path through nested mappings.
func (m *Mapping) Lookup(path ...string) (Fragment, bool) {
	cur := m
	for i, key := range path {
		f, ok := cur.Get(key)
		if !ok {
			return Fragment{}, false
		}
		if i == len(path)-1 {
			return f, true
		}
		if f.IsText() {
			return Fragment{}, false
		}
		cur = f.Mapping()
	}
	return Fragment{}, false
}

// Parse decodes a YAML document whose root is a mapping.
func Parse(data []byte) (*Mapping, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return NewMapping(), nil
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return NewMapping(), nil
		}
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: document root must be a mapping", root.Line)
	}
	return decodeMapping(root)
}

func decodeMapping(n *yaml.Node) (*Mapping, error) {
	m := NewMapping()
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		f, err := decodeFragment(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key.Value, err)
		}
		m.Set(key.Value, f)
	}
	return m, nil
}

func decodeFragment(n *yaml.Node) (Fragment, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return TextFragment(""), nil
		}
		return TextFragment(n.Value), nil
	case yaml.MappingNode:
		nested, err := decodeMapping(n)
		if err != nil {
			return Fragment{}, err
		}
		return NestedFragment(nested), nil
	case yaml.SequenceNode:
		// A list of paragraphs reads as one markdown block.
		parts := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return Fragment{}, fmt.Errorf("line %d: list items must be text", item.Line)
			}
			parts = append(parts, item.Value)
		}
		return TextFragment(strings.Join(parts, "\n\n")), nil
	case yaml.AliasNode:
		return decodeFragment(n.Alias)
	default:
		return Fragment{}, fmt.Errorf("line %d: unsupported node", n.Line)
	}
}
