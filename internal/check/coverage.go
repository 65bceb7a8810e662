package check

import (
	"context"
	"fmt"
	"sort"

	"github.com/verustcode/materiality/internal/content"
	"github.com/verustcode/materiality/internal/mapping"
	"github.com/verustcode/materiality/internal/report"
	"github.com/verustcode/materiality/pkg/errors"
)

// Severity of a coverage finding.
type Severity string

const (
	// SeverityError marks a content file the mapping names but the library lacks.
	SeverityError Severity = "error"
	// SeverityWarning marks content that exists but will render incomplete.
	SeverityWarning Severity = "warning"
	// SeverityInfo marks a library file no mapping row references.
	SeverityInfo Severity = "info"
)

// Finding is one coverage problem.
type Finding struct {
	Severity  Severity         `json:"severity"`
	Category  content.Category `json:"category"`
	File      string           `json:"file"`
	ContentID string           `json:"content_id,omitempty"`
	Branch    string           `json:"branch,omitempty"`
	Message   string           `json:"message"`
}

// Coverage is the result of auditing the content library against the mapping tables.
type Coverage struct {
	// Library is the content directory, set when the repository is file backed.
	Library      string    `json:"library,omitempty"`
	FilesChecked int       `json:"files_checked"`
	Findings     []Finding `json:"findings"`
}

// libraryIndex is a repository that can enumerate its files.
type libraryIndex interface {
	Root() string
	List(category content.Category) ([]string, error)
}

// HasErrors reports whether any referenced file is missing.
func (c *Coverage) HasErrors() bool {
	return c.Count(SeverityError) > 0
}

// Count returns the number of findings with the given severity.
func (c *Coverage) Count(s Severity) int {
	n := 0
	for _, f := range c.Findings {
		if f.Severity == s {
			n++
		}
	}
	return n
}

func (c *Coverage) add(f Finding) {
	c.Findings = append(c.Findings, f)
}

// auditor walks one snapshot of the tables.
type auditor struct {
	tables *mapping.Tables
	repo   content.Repository
	out    *Coverage
}

// Audit checks that every sector, product and scenario file named in the mapping
// tables exists and parses, that sector files carry a name, and that the content
// ids of the output structure are present in the files that must provide them.
// Missing files are errors. Library files no mapping row references are reported
// as info when the repository can list its files; everything else is a warning.
func Audit(ctx context.Context, tables *mapping.Tables, repo content.Repository) *Coverage {
	a := &auditor{tables: tables, repo: repo, out: &Coverage{Findings: []Finding{}}}
	if tables == nil {
		return a.out
	}

	description := tables.ContentIDs(string(report.SubSectionSectorDescription))
	sectorScenario := tables.ContentIDs(string(report.SubSectionSectorScenario))
	product := tables.ContentIDs(string(report.SubSectionProduct))
	scenario := tables.ContentIDs(string(report.SubSectionScenario))

	for _, file := range tables.SectorFiles() {
		if ctx.Err() != nil {
			break
		}
		entry := a.entry(ctx, content.CategoryExposureClass, file)
		if entry == nil {
			continue
		}
		if !entry.HasName() {
			a.warn(content.CategoryExposureClass, file, "", "", "sector file has no name; the top-level key is shown instead")
		}
		for _, id := range description {
			if entry.Fragment(id) == "" {
				a.warn(content.CategoryExposureClass, file, id, "", "content id missing")
			}
		}
		a.auditBranches(entry, sectorScenario)
	}

	for _, file := range tables.ProductFiles() {
		if ctx.Err() != nil {
			break
		}
		entry := a.entry(ctx, content.CategoryProduct, file)
		if entry == nil {
			continue
		}
		for _, id := range product {
			if entry.Fragment(id) == "" {
				a.warn(content.CategoryProduct, file, id, "", "content id missing")
			}
		}
	}

	seen := make(map[string]bool)
	for _, row := range tables.Scenarios {
		if ctx.Err() != nil || row.File == "" || seen[row.File] {
			continue
		}
		seen[row.File] = true
		a.out.FilesChecked++

		m, err := repo.Load(ctx, content.CategoryScenario, row.File)
		if err != nil {
			a.loadFailure(content.CategoryScenario, row.File, err)
			continue
		}
		for _, id := range scenario {
			if m.Text(id) == "" {
				a.warn(content.CategoryScenario, row.File, id, "", "content id missing")
			}
		}
	}

	if lib, ok := repo.(libraryIndex); ok && ctx.Err() == nil {
		a.out.Library = lib.Root()
		a.auditUnreferenced(lib)
	}

	rank := map[Severity]int{SeverityError: 0, SeverityWarning: 1, SeverityInfo: 2}
	sort.SliceStable(a.out.Findings, func(i, j int) bool {
		return rank[a.out.Findings[i].Severity] < rank[a.out.Findings[j].Severity]
	})
	return a.out
}

// auditUnreferenced lists every library file the mapping tables never name.
func (a *auditor) auditUnreferenced(lib libraryIndex) {
	var scenarioFiles []string
	for _, row := range a.tables.Scenarios {
		scenarioFiles = append(scenarioFiles, row.File)
	}
	referenced := map[content.Category][]string{
		content.CategoryExposureClass: a.tables.SectorFiles(),
		content.CategoryProduct:       a.tables.ProductFiles(),
		content.CategoryScenario:      scenarioFiles,
	}

	for _, category := range content.Categories() {
		known := make(map[string]bool)
		for _, f := range referenced[category] {
			if f != "" {
				known[content.Stem(f)] = true
			}
		}
		files, err := lib.List(category)
		if err != nil {
			a.warn(category, "", "", "", fmt.Sprintf("cannot list files: %v", err))
			continue
		}
		for _, f := range files {
			if !known[f] {
				a.out.add(Finding{Severity: SeverityInfo, Category: category, File: f, Message: "not referenced by the mapping tables"})
			}
		}
	}
}

// auditBranches checks every scenario branch the mapping can select against the sector file.
func (a *auditor) auditBranches(entry *content.Entry, ids []string) {
	if len(ids) == 0 {
		return
	}
	seen := make(map[[2]string]bool)
	for _, s := range a.tables.Scenarios {
		branch := [2]string{s.RiskType, s.RiskLevel}
		if s.RiskType == "" || seen[branch] {
			continue
		}
		seen[branch] = true
		for _, id := range ids {
			if _, ok := entry.ScenarioFragment(s.RiskType, s.RiskLevel, id); !ok {
				a.warn(content.CategoryExposureClass, entry.File, id, s.RiskType+"/"+s.RiskLevel, "scenario content missing")
			}
		}
	}
}

func (a *auditor) entry(ctx context.Context, category content.Category, file string) *content.Entry {
	if file == "" {
		return nil
	}
	a.out.FilesChecked++
	entry, err := content.LoadEntry(ctx, a.repo, category, file)
	if err != nil {
		a.loadFailure(category, file, err)
		return nil
	}
	return entry
}

func (a *auditor) loadFailure(category content.Category, file string, err error) {
	if errors.HasCode(err, errors.ErrCodeContentNotFound) {
		a.out.add(Finding{Severity: SeverityError, Category: category, File: file, Message: "file not found"})
		return
	}
	a.warn(category, file, "", "", fmt.Sprintf("file does not parse: %v", err))
}

func (a *auditor) warn(category content.Category, file, id, branch, msg string) {
	a.out.add(Finding{
		Severity:  SeverityWarning,
		Category:  category,
		File:      file,
		ContentID: id,
		Branch:    branch,
		Message:   msg,
	})
}
