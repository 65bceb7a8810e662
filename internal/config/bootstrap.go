// Package config provides configuration management for the application.
// This file handles writing the configuration file and MAT_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Exists checks if the configuration file exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CreateDefault writes a default configuration file, creating parent directories
func CreateDefault(path string) error {
	return Write(path, Default())
}

// Write writes configuration to file with the standard header
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(configHeader+string(data)), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// configHeader is the comment header for bootstrap.yaml
const configHeader = `# Materiality Configuration
# Changes require a server restart, except the mapping workbook which reloads on its schedule.
#
# Environment Variable Support:
#   - Use ${VAR_NAME} or ${VAR_NAME:-default} syntax in values
#   - Or use MAT_* environment variables to override:
#     MAT_SERVER_HOST, MAT_SERVER_PORT, MAT_SERVER_DEBUG
#     MAT_DATABASE_PATH
#     MAT_ADMIN_USERNAME, MAT_ADMIN_PASSWORD_HASH, MAT_ADMIN_JWT_SECRET
#     MAT_CONTENT_DIR, MAT_MAPPINGS_PATH, MAT_REPORT_JOIN_MODE, MAT_CHROME_PATH
#     MAT_LOG_LEVEL, MAT_LOG_FORMAT, MAT_LOG_FILE
#

`

// envOverride binds one MAT_* variable to a setter.
type envOverride struct {
	name  string
	apply func(cfg *Config, v string)
}

func atoiInto(dst *int) func(string) {
	return func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

var envOverrides = []envOverride{
	{"MAT_SERVER_HOST", func(c *Config, v string) { c.Server.Host = v }},
	{"MAT_SERVER_PORT", func(c *Config, v string) { atoiInto(&c.Server.Port)(v) }},
	{"MAT_SERVER_DEBUG", func(c *Config, v string) { c.Server.Debug = parseBool(v) }},
	{"MAT_DATABASE_PATH", func(c *Config, v string) { c.Database.Path = v }},
	{"MAT_ADMIN_USERNAME", func(c *Config, v string) { ensureAdmin(c).Username = v }},
	{"MAT_ADMIN_PASSWORD_HASH", func(c *Config, v string) { ensureAdmin(c).PasswordHash = v }},
	{"MAT_ADMIN_JWT_SECRET", func(c *Config, v string) { ensureAdmin(c).JWTSecret = v }},
	{"MAT_CONTENT_DIR", func(c *Config, v string) { c.Content.Dir = v }},
	{"MAT_ASSET_DIR", func(c *Config, v string) { c.Content.AssetDir = v }},
	{"MAT_MAPPINGS_PATH", func(c *Config, v string) { c.Mappings.Path = v }},
	{"MAT_REPORT_JOIN_MODE", func(c *Config, v string) { c.Report.JoinMode = strings.ToLower(v) }},
	{"MAT_CHROME_PATH", func(c *Config, v string) { c.Export.ChromePath = v }},
	{"MAT_LOG_LEVEL", func(c *Config, v string) { c.Logging.Level = v }},
	{"MAT_LOG_FORMAT", func(c *Config, v string) { c.Logging.Format = v }},
	{"MAT_LOG_FILE", func(c *Config, v string) { c.Logging.File = v }},
	{"MAT_TELEMETRY_ENABLED", func(c *Config, v string) { c.Telemetry.Enabled = parseBool(v) }},
	{"MAT_OTLP_ENABLED", func(c *Config, v string) { c.Telemetry.OTLP.Enabled = parseBool(v) }},
	{"MAT_OTLP_ENDPOINT", func(c *Config, v string) { c.Telemetry.OTLP.Endpoint = v }},
	{"MAT_PROMETHEUS_ENABLED", func(c *Config, v string) { c.Telemetry.Prometheus.Enabled = parseBool(v) }},
	{"MAT_PROMETHEUS_PORT", func(c *Config, v string) { atoiInto(&c.Telemetry.Prometheus.Port)(v) }},
	{"MAT_PROMETHEUS_EMBEDDED", func(c *Config, v string) { c.Telemetry.Prometheus.Embedded = parseBool(v) }},
}

// applyEnvOverrides applies MAT_* environment variable overrides to cfg
func applyEnvOverrides(cfg *Config) {
	for _, o := range envOverrides {
		if v := os.Getenv(o.name); v != "" {
			o.apply(cfg, v)
		}
	}
}

func ensureAdmin(cfg *Config) *AdminConfig {
	if cfg.Admin == nil {
		cfg.Admin = &AdminConfig{}
	}
	return cfg.Admin
}

// parseBool parses a boolean string value
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

// UpdateJWTSecretInConfig updates the admin.jwt_secret field in the config file.
func UpdateJWTSecretInConfig(configPath, jwtSecret string) error {
	return updateAdminSection(configPath, func(admin map[string]interface{}) {
		admin["jwt_secret"] = jwtSecret
	})
}

// UpdatePasswordHashInConfig stores a new admin password hash. Missing admin
// fields (enabled, username, expiry, jwt secret) are filled with usable values.
func UpdatePasswordHashInConfig(configPath, passwordHash, jwtSecret string) error {
	return updateAdminSection(configPath, func(admin map[string]interface{}) {
		admin["password_hash"] = passwordHash
		if secret, _ := admin["jwt_secret"].(string); secret == "" {
			admin["jwt_secret"] = jwtSecret
		}
		if _, ok := admin["enabled"]; !ok {
			admin["enabled"] = true
		}
		if _, ok := admin["username"]; !ok {
			admin["username"] = "admin"
		}
		if _, ok := admin["expiry_hours"]; !ok {
			admin["expiry_hours"] = defaultTokenExpiryHours
		}
	})
}

// updateAdminSection round-trips the file through a generic map so every
// field outside the admin section is preserved.
func updateAdminSection(configPath string, update func(admin map[string]interface{})) error {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	backupPath := configPath + ".backup"
	if err := os.WriteFile(backupPath, content, 0644); err != nil {
		// Continue anyway, backup is optional
		fmt.Fprintf(os.Stderr, "[WARNING] Failed to create backup: %v\n", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw == nil {
		raw = make(map[string]interface{})
	}

	adminSection, ok := raw["admin"].(map[string]interface{})
	if !ok {
		adminSection = make(map[string]interface{})
		raw["admin"] = adminSection
	}
	update(adminSection)

	newContent, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(configHeader+string(newContent)), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
