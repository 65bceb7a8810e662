package check

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

// Report accumulates what one check run found and changed
type Report struct {
	FileResults       []FileCheckResult
	ValidationResults []ValidationResult
	Coverage          *Coverage
	// AdminPasswordGenerated is set when the run wrote a new admin password hash
	AdminPasswordGenerated bool
}

func NewReport() *Report {
	return &Report{}
}

func (r *Report) AddFileResult(result FileCheckResult) {
	r.FileResults = append(r.FileResults, result)
}

func (r *Report) AddValidationResult(result ValidationResult) {
	r.ValidationResults = append(r.ValidationResults, result)
}

// Print prints the final summary report
func (r *Report) Print() {
	r.printSeparator()
	r.printSummary(r.Summary())
}

// ReportSummary is the counters printed on the last line of a check
type ReportSummary struct {
	TotalFiles        int
	FilesExist        int
	FilesCreated      int
	FilesMissing      int
	TotalValidations  int
	ValidationsValid  int
	ValidationErrors  int
	FilesAudited      int
	MissingContent    int
	ContentWarnings   int
	UnreferencedFiles int
	PasswordWritten   bool
	HasErrors         bool
	HasWarnings       bool
}

// Summary folds the collected results into counters
func (r *Report) Summary() ReportSummary {
	summary := ReportSummary{PasswordWritten: r.AdminPasswordGenerated}

	summary.TotalFiles = len(r.FileResults)
	for _, result := range r.FileResults {
		switch {
		case result.Exists || result.Created:
			if result.Created {
				summary.FilesCreated++
			}
			summary.FilesExist++
		case !result.Optional:
			summary.FilesMissing++
		}
		if result.Error != nil {
			summary.HasErrors = true
		}
	}

	summary.TotalValidations = len(r.ValidationResults)
	for _, result := range r.ValidationResults {
		if result.Valid {
			summary.ValidationsValid++
		} else {
			summary.ValidationErrors++
			if result.Error != nil {
				summary.HasErrors = true
			}
		}
		if len(result.Warnings) > 0 {
			summary.HasWarnings = true
		}
	}

	if r.Coverage != nil {
		summary.FilesAudited = r.Coverage.FilesChecked
		summary.MissingContent = r.Coverage.Count(SeverityError)
		summary.ContentWarnings = r.Coverage.Count(SeverityWarning)
		summary.UnreferencedFiles = r.Coverage.Count(SeverityInfo)
		summary.HasErrors = summary.HasErrors || summary.MissingContent > 0
		summary.HasWarnings = summary.HasWarnings || summary.ContentWarnings > 0
	}

	return summary
}

func (r *Report) printSeparator() {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))
	fmt.Println(style.Render(strings.Repeat("─", 50)))
}

// printSummary prints the final summary
func (r *Report) printSummary(summary ReportSummary) {
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	if summary.HasErrors {
		red.Print("✗ Check completed")
	} else if summary.HasWarnings || summary.FilesMissing > 0 {
		yellow.Print("⚠ Check completed")
	} else {
		green.Print("✓ Check completed")
	}

	fmt.Println(summaryDetails(summary))
}

// summaryDetails renders the counters that are not zero
func summaryDetails(summary ReportSummary) string {
	var details []string
	if summary.FilesCreated > 0 {
		details = append(details, fmt.Sprintf("%d file(s) created", summary.FilesCreated))
	}
	if summary.FilesMissing > 0 {
		details = append(details, fmt.Sprintf("%d file(s) missing", summary.FilesMissing))
	}
	if summary.PasswordWritten {
		details = append(details, "admin password generated")
	}
	if summary.ValidationErrors > 0 {
		details = append(details, fmt.Sprintf("%d validation error(s)", summary.ValidationErrors))
	}
	if summary.MissingContent > 0 {
		details = append(details, fmt.Sprintf("%d content file(s) missing", summary.MissingContent))
	}
	if summary.ContentWarnings > 0 {
		details = append(details, fmt.Sprintf("%d content warning(s)", summary.ContentWarnings))
	}
	if summary.UnreferencedFiles > 0 {
		details = append(details, fmt.Sprintf("%d unreferenced content file(s)", summary.UnreferencedFiles))
	}

	if len(details) == 0 {
		return " - All checks passed"
	}
	return " (" + strings.Join(details, ", ") + ")"
}

// PrintCoverage prints the audit findings grouped by file
func (r *Report) PrintCoverage() {
	if r.Coverage == nil {
		return
	}

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("14"))
	fmt.Println(sectionStyle.Render(fmt.Sprintf("Content Coverage (%d files)", r.Coverage.FilesChecked)))
	if r.Coverage.Library != "" {
		fmt.Printf("  library: %s\n", r.Coverage.Library)
	}

	if len(r.Coverage.Findings) == 0 {
		color.New(color.FgGreen).Println("  ✓ every referenced file and content id is present")
		return
	}

	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	for _, f := range r.Coverage.Findings {
		switch f.Severity {
		case SeverityError:
			red.Printf("  ✗ %s\n", formatFinding(f))
		case SeverityWarning:
			yellow.Printf("  ⚠ %s\n", formatFinding(f))
		default:
			cyan.Printf("  · %s\n", formatFinding(f))
		}
	}
}
