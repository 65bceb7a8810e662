// Package config provides configuration management for the application.
package config

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// LanguageConfig wraps the language tag used for the exported document
// (<html lang>) and locale-aware column header casing.
type LanguageConfig struct {
	tag language.Tag
}

// ParseLanguage parses an ISO/BCP 47 language tag.
// Empty or unparseable tags fall back to English.
func ParseLanguage(langTag string) (*LanguageConfig, error) {
	if langTag == "" {
		return &LanguageConfig{tag: language.English}, nil
	}

	tag, err := language.Parse(langTag)
	if err != nil {
		tag, err = language.Parse(strings.ToLower(langTag))
		if err != nil {
			tag = language.English
		}
	}
	return &LanguageConfig{tag: tag}, nil
}

// Tag returns the underlying language tag
func (lc *LanguageConfig) Tag() language.Tag {
	return lc.tag
}

// String returns the language tag as a string (e.g., "en", "en-GB")
func (lc *LanguageConfig) String() string {
	return lc.tag.String()
}

// Base returns the base language subtag (e.g., "en")
func (lc *LanguageConfig) Base() string {
	base, _ := lc.tag.Base()
	return base.String()
}

// detectSystemLanguage attempts to detect the system language from environment variables
func detectSystemLanguage() language.Tag {
	for _, envVar := range []string{"LC_ALL", "LC_MESSAGES", "LANGUAGE", "LANG"} {
		val := os.Getenv(envVar)
		if val == "" || val == "C" || val == "POSIX" {
			continue
		}
		// "en_GB.UTF-8" -> "en-GB"
		langPart := strings.Split(val, ".")[0]
		langPart = strings.Replace(langPart, "_", "-", 1)

		if tag, err := language.Parse(langPart); err == nil {
			return tag
		}
	}
	return language.English
}

// GetLanguage returns the configured report language, or the system locale when unset
func (c *ReportConfig) GetLanguage() *LanguageConfig {
	if c.Language == "" {
		return &LanguageConfig{tag: detectSystemLanguage()}
	}
	lc, _ := ParseLanguage(c.Language)
	return lc
}
