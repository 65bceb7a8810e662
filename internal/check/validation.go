package check

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/verustcode/materiality/internal/config"
	"github.com/verustcode/materiality/internal/mapping"
)

// ValidationResult represents the result of a config validation
type ValidationResult struct {
	Path  string
	Valid bool
	// Rows counts the mapping rows loaded, zero for other files
	Rows     int
	Error    error
	Warnings []string
}

// validateConfigs validates the bootstrap file and returns the loaded config
func (c *Checker) validateConfigs() (*config.Config, error) {
	cfg, result := c.validateBootstrapYaml()
	c.report.AddValidationResult(result)
	printValidationResult(result)

	if !result.Valid {
		return nil, fmt.Errorf("bootstrap.yaml validation failed: %w", result.Error)
	}
	return cfg, nil
}

// validateBootstrapYaml loads and validates the bootstrap configuration file
func (c *Checker) validateBootstrapYaml() (*config.Config, ValidationResult) {
	path := c.BootstrapPath()
	result := ValidationResult{Path: path}

	if !fileExists(path) {
		result.Error = fmt.Errorf("file does not exist")
		return nil, result
	}

	cfg, err := config.Load(path)
	if err != nil {
		result.Error = fmt.Errorf("format error: %v", err)
		return nil, result
	}
	if appErr := cfg.Validate(); appErr != nil {
		result.Error = appErr
		return nil, result
	}

	// The JWT secret is generated on first start and the password can be set through the setup endpoint
	if cfg.Admin != nil && cfg.Admin.Enabled && cfg.Admin.Username == "" {
		result.Warnings = append(result.Warnings, "Admin username not set")
	}
	if cfg.Admin != nil && cfg.Admin.Enabled && cfg.Admin.PasswordHash == "" {
		result.Warnings = append(result.Warnings, "Admin password not set; use POST /api/v1/auth/setup after start")
	}
	if cfg.Content.Stylesheet != "" && !fileExists(cfg.Content.Stylesheet) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("content.stylesheet %s not found; the embedded stylesheet will be used", cfg.Content.Stylesheet))
	}

	result.Valid = true
	return cfg, result
}

// validateMappings loads the mapping workbook or its JSON export
func validateMappings(path string) (*mapping.Tables, ValidationResult) {
	result := ValidationResult{Path: path}

	if !fileExists(path) {
		result.Error = fmt.Errorf("file does not exist")
		return nil, result
	}

	tables, err := mapping.Load(path)
	if err != nil {
		result.Error = err
		return nil, result
	}

	result.Valid = true
	result.Rows = len(tables.Exposures) + len(tables.Scenarios) + len(tables.OutputStructure)
	if len(tables.OutputStructure) == 0 {
		result.Warnings = append(result.Warnings, "output structure table is empty; every report will be the placeholder")
	}
	return tables, result
}

// printValidationResult prints the validation result
func printValidationResult(result ValidationResult) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	if result.Valid {
		if result.Rows > 0 {
			green.Printf("  ✓ %s (%d rows)\n", result.Path, result.Rows)
		} else {
			green.Printf("  ✓ %s\n", result.Path)
		}
	} else if result.Error != nil {
		red.Printf("  ✗ %s: %v\n", result.Path, result.Error)
	} else {
		yellow.Printf("  ⚠ %s\n", result.Path)
	}

	for _, warning := range result.Warnings {
		yellow.Printf("    └─ %s\n", warning)
	}
}
