package check

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verustcode/materiality/internal/configfiles"
)

const testMappingJSON = `{"exported_at":"20260101_0930","sheets":{
"exposure_sector_product_mapping":[
  {"institution":"Bank","exposure":"Real Estate","sector":"Office","type":"Loan","sector_yml_file":"sector/office","product_yml_file":"product/loan"}
],
"scenario_mapping":[
  {"scenario_name":"Orderly","scenario_yml_file":"orderly","risk_type":"transition","risk_level":"low"}
],
"output_structure_mapping":[
  {"report_type":"Institutional","output_structure":"Sector Overview","materiality":"All","sector_description_content_id":"description"}
]}}`

// setupEnv writes a config dir, a mapping file and a content library into a temp dir
func setupEnv(t *testing.T, withOffice bool) string {
	t.Helper()
	root := t.TempDir()

	write := func(rel, data string) {
		t.Helper()
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}

	write("mappings.json", testMappingJSON)
	write("content/product/product/loan.yml", "loan:\n  name: Loans\n")
	write("content/scenario/orderly.yml", "narrative: Orderly.\n")
	if withOffice {
		write("content/exposure_class/sector/office.yml", "office:\n  name: Office\n  description: Towers.\n")
	}
	write("config/bootstrap.yaml", strings.Join([]string{
		"content:",
		"  dir: " + filepath.Join(root, "content"),
		"mappings:",
		"  path: " + filepath.Join(root, "mappings.json"),
		"admin:",
		"  enabled: false",
		"",
	}, "\n"))
	return root
}

// TestNewChecker tests the NewChecker function
func TestNewChecker(t *testing.T) {
	checker := NewChecker("")
	if checker.configDir != "config" {
		t.Errorf("Expected configDir 'config', got '%s'", checker.configDir)
	}
	if checker.report == nil {
		t.Error("Report should be initialized")
	}

	checker = NewChecker("/etc/materiality/bootstrap.yaml")
	if checker.BootstrapPath() != filepath.Join("/etc/materiality", "bootstrap.yaml") {
		t.Errorf("BootstrapPath() = %s", checker.BootstrapPath())
	}
}

// TestRequiredFiles tests the RequiredFiles method
func TestRequiredFiles(t *testing.T) {
	files := NewChecker("").RequiredFiles()
	if len(files) != 2 {
		t.Fatalf("Expected 2 files, got %d", len(files))
	}
	if files[0].Path != filepath.Join("config", "bootstrap.yaml") || files[0].Optional {
		t.Errorf("first file = %+v", files[0])
	}
	if !files[1].Optional || files[1].Template != configfiles.StylesheetTemplate {
		t.Errorf("stylesheet should be optional, got %+v", files[1])
	}
}

func TestCheckFile_CreatesFromTemplate(t *testing.T) {
	dir := t.TempDir()
	checker := NewChecker(filepath.Join(dir, "config", "bootstrap.yaml"))
	checker.confirm = func(string) (bool, error) { return true, nil }

	if err := checker.checkFiles(); err != nil {
		t.Fatalf("checkFiles() error: %v", err)
	}
	for _, path := range []string{checker.BootstrapPath(), checker.StylesheetPath()} {
		if !fileExists(path) {
			t.Errorf("%s should be created", path)
		}
	}
	summary := checker.Report().Summary()
	if summary.FilesCreated != 2 || summary.FilesMissing != 0 {
		t.Errorf("Summary() = %+v", summary)
	}
}

func TestCheckFile_Declined(t *testing.T) {
	dir := t.TempDir()
	checker := NewChecker(filepath.Join(dir, "bootstrap.yaml"))
	checker.confirm = func(string) (bool, error) { return false, nil }

	if err := checker.checkFiles(); err != nil {
		t.Fatalf("checkFiles() error: %v", err)
	}
	if fileExists(checker.BootstrapPath()) {
		t.Error("declined file should not be written")
	}
	summary := checker.Report().Summary()
	if summary.FilesMissing != 1 {
		t.Errorf("optional stylesheet should not count as missing, FilesMissing = %d", summary.FilesMissing)
	}
}

// TestFileExists tests the fileExists function
func TestFileExists(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "test_exists.txt")
	if err := os.WriteFile(tmpFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	if !fileExists(tmpFile) {
		t.Error("fileExists should return true for existing file")
	}
	if fileExists("/non/existent/file.txt") {
		t.Error("fileExists should return false for non-existing file")
	}
}

func TestRunNonInteractive(t *testing.T) {
	root := setupEnv(t, true)
	result := NewChecker(filepath.Join(root, "config", "bootstrap.yaml")).RunNonInteractive(context.Background())
	if !result.Success {
		t.Fatalf("RunNonInteractive() failed: %v", result.Errors)
	}
}

func TestRunNonInteractive_MissingContent(t *testing.T) {
	root := setupEnv(t, false)
	result := NewChecker(filepath.Join(root, "config", "bootstrap.yaml")).RunNonInteractive(context.Background())
	if result.Success {
		t.Fatal("missing sector file should fail the check")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "sector/office") {
		t.Errorf("Errors = %v", result.Errors)
	}
	if len(result.Suggestions) == 0 {
		t.Error("expected a suggestion")
	}
}

func TestRunNonInteractive_NoConfig(t *testing.T) {
	result := NewChecker(filepath.Join(t.TempDir(), "bootstrap.yaml")).RunNonInteractive(context.Background())
	if result.Success || len(result.Errors) != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestRunNonInteractive_BadMappings(t *testing.T) {
	root := setupEnv(t, true)
	if err := os.WriteFile(filepath.Join(root, "mappings.json"), []byte(`{"sheets":{}}`), 0644); err != nil {
		t.Fatal(err)
	}
	result := NewChecker(filepath.Join(root, "config", "bootstrap.yaml")).RunNonInteractive(context.Background())
	if result.Success || !strings.Contains(result.Errors[0], "mapping") {
		t.Errorf("result = %+v", result)
	}
}

func TestSummaryDetails(t *testing.T) {
	if got := summaryDetails(ReportSummary{}); got != " - All checks passed" {
		t.Errorf("summaryDetails(empty) = %q", got)
	}
	got := summaryDetails(ReportSummary{FilesCreated: 1, MissingContent: 2, ContentWarnings: 3})
	want := " (1 file(s) created, 2 content file(s) missing, 3 content warning(s))"
	if got != want {
		t.Errorf("summaryDetails() = %q, want %q", got, want)
	}
}

func TestReportSummary_Coverage(t *testing.T) {
	r := NewReport()
	r.Coverage = &Coverage{FilesChecked: 4, Findings: []Finding{
		{Severity: SeverityError, File: "a"},
		{Severity: SeverityWarning, File: "b"},
		{Severity: SeverityInfo, File: "c"},
	}}
	s := r.Summary()
	if !s.HasErrors || !s.HasWarnings || s.FilesAudited != 4 || s.MissingContent != 1 || s.ContentWarnings != 1 || s.UnreferencedFiles != 1 {
		t.Errorf("Summary() = %+v", s)
	}
}
