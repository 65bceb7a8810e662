// Package configfiles provides embedded configuration files for materiality.
// These files are used as templates for initializing user configuration.
package configfiles

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
)

// Names of the embedded templates
const (
	BootstrapTemplate  = "bootstrap.example.yaml"
	StylesheetTemplate = "style.css"
)

// Embedded configuration files
//
//go:embed bootstrap.example.yaml
//go:embed style.css
var configFS embed.FS

// GetBootstrapExample returns the example configuration file content
func GetBootstrapExample() ([]byte, error) {
	return configFS.ReadFile(BootstrapTemplate)
}

// GetDefaultStylesheet returns the stylesheet injected into exported reports
// when content.stylesheet is not configured
func GetDefaultStylesheet() ([]byte, error) {
	return configFS.ReadFile(StylesheetTemplate)
}

// LoadStylesheet returns the file at path, or the embedded default when path is empty.
func LoadStylesheet(path string) (string, error) {
	if path == "" {
		data, err := GetDefaultStylesheet()
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read stylesheet %s: %w", path, err)
	}
	return string(data), nil
}

// InitFile copies an embedded template to target unless a file already exists there.
// Reports whether a file was written.
func InitFile(name, target string) (bool, error) {
	if _, err := os.Stat(target); err == nil {
		return false, nil
	}

	data, err := configFS.ReadFile(name)
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return false, err
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return false, err
	}
	return true, nil
}
