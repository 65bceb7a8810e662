package check

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/verustcode/materiality/internal/configfiles"
)

// FileConfig is a configuration file the check can create from an embedded template
type FileConfig struct {
	Path        string
	Description string
	// Template names the embedded file copied to Path
	Template string
	// Optional files are offered but never counted as missing
	Optional bool
}

// FileCheckResult represents the result of a file check
type FileCheckResult struct {
	Path        string
	Exists      bool
	Created     bool
	Optional    bool
	Description string
	Error       error
}

// checkFiles walks the template files, stopping at the first write error
func (c *Checker) checkFiles() error {
	for _, file := range c.RequiredFiles() {
		result := c.checkFile(file)
		c.report.AddFileResult(result)
		if result.Error != nil {
			return result.Error
		}
	}
	return nil
}

// checkFile offers to create a missing file from its template
func (c *Checker) checkFile(file FileConfig) FileCheckResult {
	result := FileCheckResult{
		Path:        file.Path,
		Description: file.Description,
		Optional:    file.Optional,
	}

	if fileExists(file.Path) {
		result.Exists = true
		color.New(color.FgGreen).Printf("  ✓ %s\n", file.Path)
		return result
	}

	label := "does not exist"
	if file.Optional {
		label = "not present (optional)"
	}
	color.New(color.FgYellow).Printf("  ⚠ %s %s\n", file.Path, label)

	ok, err := c.confirm(fmt.Sprintf("Create %s from template?", file.Path))
	if err != nil {
		result.Error = fmt.Errorf("failed to get user confirmation: %w", err)
		return result
	}
	if !ok {
		return result
	}

	written, err := configfiles.InitFile(file.Template, file.Path)
	if err != nil {
		result.Error = fmt.Errorf("failed to create %s from %s: %w", file.Path, file.Template, err)
		return result
	}
	result.Created = written
	if written {
		color.New(color.FgGreen).Printf("  ✓ Created %s\n", file.Path)
	}
	return result
}
