package selection

// Selections is the per-session answer set: category → records, in the order
// categories were first submitted.
type Selections struct {
	order []string
	data  map[string][]Record
}

// New returns an empty selection set.
func New() *Selections {
	return &Selections{data: make(map[string][]Record)}
}

// Set replaces the records of a category. A re-submitted category keeps its position.
func (s *Selections) Set(category string, records []Record) {
	if _, ok := s.data[category]; !ok {
		s.order = append(s.order, category)
	}
	s.data[category] = dedupe(records)
}

// Clear removes every category.
func (s *Selections) Clear() {
	s.order = nil
	s.data = make(map[string][]Record)
}

// Categories returns categories in submission order.
func (s *Selections) Categories() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Get returns the records of one category.
func (s *Selections) Get(category string) []Record {
	return s.data[category]
}

// IsEmpty reports whether no records are stored.
func (s *Selections) IsEmpty() bool {
	for _, recs := range s.data {
		if len(recs) > 0 {
			return false
		}
	}
	return true
}

// All returns every record, category by category.
func (s *Selections) All() []Record {
	var out []Record
	for _, c := range s.order {
		out = append(out, s.data[c]...)
	}
	return out
}

// Exposures returns the non-scenario records.
func (s *Selections) Exposures() []Record {
	var out []Record
	for _, r := range s.All() {
		if !r.IsScenario() {
			out = append(out, r)
		}
	}
	return out
}

// Scenarios returns the distinct chosen scenario names in order.
func (s *Selections) Scenarios() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range s.All() {
		if r.IsScenario() && r.Label != "" && !seen[r.Label] {
			seen[r.Label] = true
			out = append(out, r.Label)
		}
	}
	return out
}

// dedupe keeps the last record per id, at the position of its first occurrence.
func dedupe(records []Record) []Record {
	index := make(map[string]int, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if i, ok := index[r.ID]; ok && r.ID != "" {
			out[i] = r
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
