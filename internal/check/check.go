// Package check provides interactive environment checking and initialization.
// It helps operators set up the configuration and audits the content library
// against the mapping tables.
package check

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/verustcode/materiality/internal/config"
	"github.com/verustcode/materiality/internal/configfiles"
	"github.com/verustcode/materiality/internal/content"
)

// CheckResult represents the result of a non-interactive environment check
type CheckResult struct {
	// Success indicates whether all required checks passed
	Success bool
	// Errors contains critical errors that prevent server startup
	Errors []string
	// Warnings contains non-critical issues that don't block startup
	Warnings []string
	// Suggestions contains helpful tips for fixing issues
	Suggestions []string
}

// Checker handles environment checking and initialization
type Checker struct {
	// configDir is the base directory for configuration files
	configDir string
	// report collects check results for final output
	report *Report
	// confirm asks a yes/no question; replaced in tests
	confirm func(question string) (bool, error)
}

// NewChecker creates a new environment checker rooted at the directory of configPath
func NewChecker(configPath string) *Checker {
	if configPath == "" {
		configPath = config.ConfigPath
	}
	return &Checker{
		configDir: filepath.Dir(configPath),
		report:    NewReport(),
		confirm:   askYesNo,
	}
}

// Run executes the full environment check
func (c *Checker) Run(ctx context.Context) error {
	c.printHeader()

	fmt.Println()
	printSection("Checking configuration files")
	if err := c.checkFiles(); err != nil {
		return fmt.Errorf("file check failed: %w", err)
	}

	fmt.Println()
	printSection("Validating configuration")
	cfg, err := c.validateConfigs()
	if err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if err := c.checkAdminPassword(cfg); err != nil {
		return fmt.Errorf("admin setup failed: %w", err)
	}

	fmt.Println()
	printSection("Auditing content coverage")
	c.auditCoverage(ctx, cfg)

	fmt.Println()
	c.report.PrintCoverage()
	c.report.Print()

	if c.report.Coverage != nil && c.report.Coverage.HasErrors() {
		return fmt.Errorf("%d content file(s) missing", c.report.Coverage.Count(SeverityError))
	}
	return nil
}

// Report returns the collected results
func (c *Checker) Report() *Report {
	return c.report
}

// printHeader prints the welcome header
func (c *Checker) printHeader() {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	fmt.Println(titleStyle.Render("Materiality Environment Check"))
}

// printSection prints a section header
func printSection(title string) {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15"))
	fmt.Println(style.Render(title + "..."))
}

// RequiredFiles returns the configuration files the check can create from templates
func (c *Checker) RequiredFiles() []FileConfig {
	return []FileConfig{
		{
			Path:        c.BootstrapPath(),
			Description: "Bootstrap configuration file (server, content, mappings, export)",
			Template:    configfiles.BootstrapTemplate,
		},
		{
			Path:        c.StylesheetPath(),
			Description: "Report stylesheet",
			Template:    configfiles.StylesheetTemplate,
			Optional:    true,
		},
	}
}

// BootstrapPath returns the path to the bootstrap config file
func (c *Checker) BootstrapPath() string {
	return filepath.Join(c.configDir, "bootstrap.yaml")
}

// StylesheetPath returns the path the stylesheet template is written to
func (c *Checker) StylesheetPath() string {
	return filepath.Join(c.configDir, "style.css")
}

func askYesNo(question string) (bool, error) {
	var confirm bool
	err := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&confirm).
		Run()
	if err != nil {
		return false, err
	}
	return confirm, nil
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RunNonInteractive performs a non-interactive environment check.
// Unlike Run(), this method does not prompt for user input and does not create files.
func (c *Checker) RunNonInteractive(ctx context.Context) *CheckResult {
	result := &CheckResult{
		Success:     true,
		Errors:      make([]string, 0),
		Warnings:    make([]string, 0),
		Suggestions: make([]string, 0),
	}

	if !fileExists(c.BootstrapPath()) {
		result.Success = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("Bootstrap configuration not found: %s", c.BootstrapPath()))
		result.Suggestions = append(result.Suggestions,
			"Run 'materiality check' to interactively create configuration files")
		return result
	}

	cfg, res := c.validateBootstrapYaml()
	if !res.Valid {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid bootstrap.yaml: %v", res.Error))
		return result
	}
	result.Warnings = append(result.Warnings, res.Warnings...)

	tables, res := validateMappings(cfg.Mappings.Path)
	if !res.Valid {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid mapping tables: %v", res.Error))
		result.Suggestions = append(result.Suggestions,
			"Set mappings.path to the mapping workbook or its JSON export")
		return result
	}

	coverage := Audit(ctx, tables, content.NewFileRepository(cfg.Content.Dir))
	for _, f := range coverage.Findings {
		switch f.Severity {
		case SeverityError:
			result.Success = false
			result.Errors = append(result.Errors, formatFinding(f))
		case SeverityWarning:
			result.Warnings = append(result.Warnings, formatFinding(f))
		}
	}
	if coverage.HasErrors() {
		result.Suggestions = append(result.Suggestions,
			fmt.Sprintf("Add the missing files under %s or fix the file names in the mapping tables", cfg.Content.Dir))
	}
	return result
}

// auditCoverage loads the mapping tables and audits the content library
func (c *Checker) auditCoverage(ctx context.Context, cfg *config.Config) {
	tables, res := validateMappings(cfg.Mappings.Path)
	c.report.AddValidationResult(res)
	printValidationResult(res)
	if !res.Valid {
		return
	}
	c.report.Coverage = Audit(ctx, tables, content.NewFileRepository(cfg.Content.Dir))
}

// formatFinding renders one finding on a single line
func formatFinding(f Finding) string {
	where := string(f.Category) + "/" + f.File
	if f.Branch != "" {
		where += " [" + f.Branch + "]"
	}
	if f.ContentID != "" {
		where += " " + f.ContentID
	}
	return where + ": " + f.Message
}

// PrintCheckResult prints the check result in a formatted way
func PrintCheckResult(result *CheckResult) {
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	if len(result.Errors) > 0 {
		fmt.Println()
		red.Println("[ERROR] Environment check failed")
		fmt.Println()
		for _, err := range result.Errors {
			red.Printf("  ✗ %s\n", err)
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Println()
		yellow.Println("[WARNING] Configuration warnings:")
		fmt.Println()
		for _, warn := range result.Warnings {
			yellow.Printf("  ⚠ %s\n", warn)
		}
	}

	if len(result.Suggestions) > 0 {
		cyan.Println("\nTo fix these issues:")
		for _, suggestion := range result.Suggestions {
			fmt.Printf("  → %s\n", suggestion)
		}
	}

	fmt.Println()
}
