// Package config provides configuration management for the application.
// This file contains validation functions for configuration values.
package config

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/robfig/cron/v3"

	"github.com/verustcode/materiality/pkg/errors"
)

// MinJWTSecretLength is the minimum required length for JWT secret (256 bits for HS256)
const MinJWTSecretLength = 32

// PasswordRequirements defines the password complexity requirements
type PasswordRequirements struct {
	MinLength        int    // Minimum password length
	RequireUppercase bool   // Require at least one uppercase letter
	RequireLowercase bool   // Require at least one lowercase letter
	RequireDigit     bool   // Require at least one digit
	RequireSpecial   bool   // Require at least one special character
	SpecialChars     string // Allowed special characters
}

// DefaultPasswordRequirements returns the default password complexity requirements
func DefaultPasswordRequirements() PasswordRequirements {
	return PasswordRequirements{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireDigit:     true,
		RequireSpecial:   true,
		SpecialChars:     "!@#$%^&*()_+-=[]{}|;:,.<>?",
	}
}

// passwordRule is one character-class check of PasswordRequirements.
type passwordRule struct {
	enabled bool
	match   func(rune) bool
	message string
}

func (req PasswordRequirements) rules() []passwordRule {
	return []passwordRule{
		{req.RequireUppercase, unicode.IsUpper, "at least one uppercase letter (A-Z)"},
		{req.RequireLowercase, unicode.IsLower, "at least one lowercase letter (a-z)"},
		{req.RequireDigit, unicode.IsDigit, "at least one digit (0-9)"},
		{req.RequireSpecial, func(r rune) bool { return strings.ContainsRune(req.SpecialChars, r) },
			fmt.Sprintf("at least one special character (%s)", req.SpecialChars)},
	}
}

// ValidatePassword validates a password against the complexity requirements.
// Every unmet requirement is listed in the returned error.
func ValidatePassword(password string, req PasswordRequirements) error {
	var failures []string

	if len(password) < req.MinLength {
		failures = append(failures, fmt.Sprintf("at least %d characters", req.MinLength))
	}

	for _, rule := range req.rules() {
		if rule.enabled && strings.IndexFunc(password, rule.match) < 0 {
			failures = append(failures, rule.message)
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("password must contain: %s", strings.Join(failures, ", "))
	}
	return nil
}

// ValidateAdminConfig validates the admin configuration
// Returns an error if admin is enabled but credentials are invalid.
// password_hash may be empty: login is refused until `materiality check` sets one.
func ValidateAdminConfig(cfg *AdminConfig) *errors.AppError {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	if strings.TrimSpace(cfg.Username) == "" {
		return errors.New(errors.ErrCodeAdminCredentialsEmpty,
			"admin username cannot be empty when admin endpoints are enabled")
	}

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return errors.New(errors.ErrCodeJWTSecretInvalid,
			"jwt_secret cannot be empty when admin endpoints are enabled")
	}

	if len(cfg.JWTSecret) < MinJWTSecretLength {
		return errors.New(errors.ErrCodeJWTSecretInvalid,
			fmt.Sprintf("jwt_secret must be at least %d characters long for security (HS256 requires 256 bits)", MinJWTSecretLength))
	}

	return nil
}

// Validate checks the sections the report pipeline depends on.
// Admin credentials are validated separately by ValidateAdminConfig.
func (c *Config) Validate() *errors.AppError {
	switch c.Report.JoinMode {
	case JoinModeTolerant, JoinModeStrict:
	default:
		return errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("report.join_mode must be %q or %q, got %q", JoinModeTolerant, JoinModeStrict, c.Report.JoinMode))
	}

	if strings.TrimSpace(c.Content.Dir) == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "content.dir cannot be empty")
	}
	if strings.TrimSpace(c.Mappings.Path) == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "mappings.path cannot be empty")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("server.port out of range: %d", c.Server.Port))
	}

	if c.Export.MinPDFBytes < 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "export.min_pdf_bytes cannot be negative")
	}
	pdf := c.Export.PDF
	if pdf.PaperWidth <= 0 || pdf.PaperHeight <= 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "export.pdf paper size must be positive")
	}

	for key, spec := range map[string]string{
		"mappings.reload_schedule":  c.Mappings.ReloadSchedule,
		"sessions.cleanup_schedule": c.Sessions.CleanupSchedule,
	} {
		if err := ValidateSchedule(spec); err != nil {
			return errors.Wrap(errors.ErrCodeConfigInvalid, key+" is not a valid cron expression", err)
		}
	}

	return nil
}

// ValidateSchedule parses a standard 5-field cron expression. Empty is allowed (disabled).
func ValidateSchedule(spec string) error {
	if strings.TrimSpace(spec) == "" {
		return nil
	}
	_, err := cron.ParseStandard(spec)
	return err
}

// IsValidBcryptHash checks if a string is a valid bcrypt hash
// Bcrypt hashes start with $2a$, $2b$, or $2y$ followed by cost factor
func IsValidBcryptHash(hash string) bool {
	if len(hash) < 60 {
		return false
	}
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(hash, prefix) {
			return true
		}
	}
	return false
}

// FormatPasswordRequirements returns a human-readable description of password requirements
func FormatPasswordRequirements() string {
	req := DefaultPasswordRequirements()
	lines := []string{fmt.Sprintf("- At least %d characters long", req.MinLength)}

	for _, rule := range req.rules() {
		if rule.enabled {
			lines = append(lines, "- Contains "+rule.message)
		}
	}

	return strings.Join(lines, "\n")
}
