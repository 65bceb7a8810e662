package content

import (
	"fmt"
	"strconv"
)

// Keys with a fixed meaning inside sector and product files.
const (
	KeyName      = "name"
	KeySortOrder = "sort_order"
)

// Entry is the view over a sector or product file: a single top-level key
// whose body carries a display name, an optional sort order, static fragments
// and scenario branches.
type Entry struct {
	// File is the file stem the entry was loaded from.
	File string
	// Key is the file's top-level key.
	Key string
	// Name is the display name; the top-level key when the file has none.
	Name string
	// SortOrder is the explicit sort_order, valid when HasSortOrder.
	SortOrder    int
	HasSortOrder bool

	body *Mapping
}

// NewEntry interprets a parsed sector or product file.
func NewEntry(file string, m *Mapping) (*Entry, error) {
	keys := m.Keys()
	if len(keys) == 0 {
		return nil, fmt.Errorf("%s: file has no top-level key", file)
	}

	top, _ := m.Get(keys[0])
	if top.IsText() {
		return nil, fmt.Errorf("%s: top-level key %q must hold a mapping", file, keys[0])
	}

	e := &Entry{File: file, Key: keys[0], body: top.Mapping()}

	e.Name = e.body.Text(KeyName)
	if e.Name == "" {
		e.Name = e.Key
	}

	if raw, ok := e.body.Get(KeySortOrder); ok && raw.IsText() && raw.Text() != "" {
		n, err := strconv.Atoi(raw.Text())
		if err != nil {
			return nil, fmt.Errorf("%s: sort_order must be an integer, got %q", file, raw.Text())
		}
		e.SortOrder, e.HasSortOrder = n, true
	}

	return e, nil
}

// HasName reports whether the file declares an explicit name.
func (e *Entry) HasName() bool {
	return e.body.Text(KeyName) != ""
}

// Fragment returns a static fragment by content id; missing ids read as "".
func (e *Entry) Fragment(contentID string) string {
	return e.body.Text(contentID)
}

// ScenarioFragment resolves body[riskType][riskLevel][contentID].
func (e *Entry) ScenarioFragment(riskType, riskLevel, contentID string) (string, bool) {
	f, ok := e.body.Lookup(riskType, riskLevel, contentID)
	if !ok || !f.IsText() {
		return "", false
	}
	return f.Text(), true
}

// ScenarioBranches returns the (risk type, risk level) pairs the file defines, in file order.
func (e *Entry) ScenarioBranches() [][2]string {
	var out [][2]string
	for _, riskType := range e.body.Keys() {
		f, _ := e.body.Get(riskType)
		if f.IsText() {
			continue
		}
		for _, level := range f.Mapping().Keys() {
			lf, _ := f.Mapping().Get(level)
			if !lf.IsText() {
				out = append(out, [2]string{riskType, level})
			}
		}
	}
	return out
}

// Less orders entries: explicit sort_order first (ascending), then by top-level key.
func (e *Entry) Less(other *Entry) bool {
	switch {
	case e.HasSortOrder && other.HasSortOrder:
		if e.SortOrder != other.SortOrder {
			return e.SortOrder < other.SortOrder
		}
	case e.HasSortOrder != other.HasSortOrder:
		return e.HasSortOrder
	}
	return e.Key < other.Key
}
