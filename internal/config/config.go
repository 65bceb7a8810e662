// Package config provides configuration management for the application.
// It supports YAML configuration files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verustcode/materiality/consts"
	"github.com/verustcode/materiality/pkg/logger"
	"github.com/verustcode/materiality/pkg/telemetry"
)

// Default configuration values
const (
	defaultHost              = "0.0.0.0"
	defaultPort              = 8091
	defaultDatabasePath      = "./data/materiality.db"
	defaultBusyTimeoutMs     = 5000
	defaultContentDir        = "./content"
	defaultAssetDir          = "./content/assets"
	defaultMappingsPath      = "./content/config.xlsx"
	defaultReportTitle       = "Report"
	defaultPDFTimeoutSeconds = 60
	defaultMinPDFBytes       = 1024
	defaultRetentionDays     = 30
	defaultCleanupSchedule   = "0 3 * * *"
	defaultTokenExpiryHours  = 24
	defaultOTLPEndpoint      = "localhost:4317"
	defaultPrometheusPort    = 9090
	defaultPaperWidthInches  = 8.27
	defaultPaperHeightInches = 11.69
	defaultMarginInches      = 0.4
)

// Join modes for selections that cannot be resolved against the mapping tables.
const (
	// JoinModeTolerant drops unresolved selections and reports them as warnings
	JoinModeTolerant = "tolerant"
	// JoinModeStrict fails the generation on the first unresolved selection
	JoinModeStrict = "strict"
)

// ConfigPath is the default path for the configuration file
const ConfigPath = "config/bootstrap.yaml"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Database  DatabaseConfig   `yaml:"database"`
	Admin     *AdminConfig     `yaml:"admin"`
	Content   ContentConfig    `yaml:"content"`
	Mappings  MappingsConfig   `yaml:"mappings"`
	Report    ReportConfig     `yaml:"report"`
	Export    ExportConfig     `yaml:"export"`
	Sessions  SessionsConfig   `yaml:"sessions"`
	Logging   logger.Config    `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	Debug       bool     `yaml:"debug"`
	CORSOrigins []string `yaml:"cors_origins"` // Allowed CORS origins whitelist
}

// DatabaseConfig holds the sqlite database location
type DatabaseConfig struct {
	Path string `yaml:"path"`
	// BusyTimeoutMs is how long a locked database is retried before failing
	BusyTimeoutMs int `yaml:"busy_timeout_ms"`
}

// BusyTimeout returns the lock wait as a duration
func (d DatabaseConfig) BusyTimeout() time.Duration {
	return time.Duration(d.BusyTimeoutMs) * time.Millisecond
}

// AdminConfig holds admin endpoint configuration
type AdminConfig struct {
	Enabled         bool   `yaml:"enabled"`       // Enable admin endpoints
	Username        string `yaml:"username"`      // Admin username
	PasswordHash    string `yaml:"password_hash"` // Admin password (bcrypt hash)
	JWTSecret       string `yaml:"jwt_secret"`    // JWT signing secret
	TokenExpiration int    `yaml:"expiry_hours"`  // Token expiration in hours
}

// ContentConfig locates the authored content library
type ContentConfig struct {
	// Dir holds the exposure_class/, product/ and scenario/ sub-directories
	Dir string `yaml:"dir"`
	// AssetDir is the base for relative image references inside markdown fragments
	AssetDir string `yaml:"asset_dir"`
	// Stylesheet is an optional CSS file injected into exported documents.
	// The embedded default is used when empty.
	Stylesheet string `yaml:"stylesheet"`
}

// MappingsConfig locates the mapping workbook
type MappingsConfig struct {
	// Path is either an .xlsx workbook or its JSON export
	Path string `yaml:"path"`
	// ReloadSchedule is a cron expression; empty disables hot reload
	ReloadSchedule string `yaml:"reload_schedule"`
}

// ReportConfig holds report assembly options
type ReportConfig struct {
	JoinMode string `yaml:"join_mode"` // tolerant | strict
	Title    string `yaml:"title"`     // <title> of exported documents
	Language string `yaml:"language"`  // BCP 47 tag, system locale when empty
}

// ExportConfig holds renderer options
type ExportConfig struct {
	ChromePath  string    `yaml:"chrome_path"`   // Overrides CHROME_PATH and auto-detection
	MinPDFBytes int       `yaml:"min_pdf_bytes"` // Smaller PDFs are treated as a failed render
	PDF         PDFConfig `yaml:"pdf"`
}

// PDFConfig holds page layout for PDF export (inches)
type PDFConfig struct {
	PaperWidth      float64 `yaml:"paper_width"`
	PaperHeight     float64 `yaml:"paper_height"`
	MarginTop       float64 `yaml:"margin_top"`
	MarginBottom    float64 `yaml:"margin_bottom"`
	MarginLeft      float64 `yaml:"margin_left"`
	MarginRight     float64 `yaml:"margin_right"`
	Landscape       bool    `yaml:"landscape"`
	PrintBackground bool    `yaml:"print_background"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
}

// SessionsConfig controls wizard session retention
type SessionsConfig struct {
	RetentionDays   int    `yaml:"retention_days"`
	CleanupSchedule string `yaml:"cleanup_schedule"` // cron expression
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:  defaultHost,
			Port:  defaultPort,
			Debug: false,
			CORSOrigins: []string{
				"http://localhost:8091",
			},
		},
		Database: DatabaseConfig{
			Path:          defaultDatabasePath,
			BusyTimeoutMs: defaultBusyTimeoutMs,
		},
		Admin: &AdminConfig{
			Enabled:         true,
			Username:        "admin",
			TokenExpiration: defaultTokenExpiryHours,
		},
		Content: ContentConfig{
			Dir:      defaultContentDir,
			AssetDir: defaultAssetDir,
		},
		Mappings: MappingsConfig{
			Path: defaultMappingsPath,
		},
		Report: ReportConfig{
			JoinMode: JoinModeTolerant,
			Title:    defaultReportTitle,
		},
		Export: ExportConfig{
			MinPDFBytes: defaultMinPDFBytes,
			PDF: PDFConfig{
				PaperWidth:      defaultPaperWidthInches,
				PaperHeight:     defaultPaperHeightInches,
				MarginTop:       defaultMarginInches,
				MarginBottom:    defaultMarginInches,
				MarginLeft:      defaultMarginInches,
				MarginRight:     defaultMarginInches,
				PrintBackground: true,
				TimeoutSeconds:  defaultPDFTimeoutSeconds,
			},
		},
		Sessions: SessionsConfig{
			RetentionDays:   defaultRetentionDays,
			CleanupSchedule: defaultCleanupSchedule,
		},
		Logging: logger.Config{
			Level:      "info",
			Format:     "text", // Default to human-readable text format instead of JSON
			MaxSize:    100,    // Max 100MB per log file
			MaxAge:     7,      // Retain logs for 7 days
			MaxBackups: 5,      // Keep 5 backup files
		},
		Telemetry: telemetry.Config{
			Enabled:     false,
			ServiceName: consts.ServiceName,
			OTLP: telemetry.OTLPConfig{
				Enabled:  false,
				Endpoint: defaultOTLPEndpoint,
				Insecure: true,
			},
			Prometheus: telemetry.PrometheusConfig{
				Enabled: false,
				Port:    defaultPrometheusPort,
			},
		},
	}
}

// Load loads configuration from a YAML file with environment variable expansion,
// then applies MAT_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := expandEnvVars(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values
// Only matches ${VAR_NAME} format (not $VAR_NAME) to avoid conflicts with special characters like bcrypt hashes
func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := match[2 : len(match)-1]

		// Support default values: ${VAR_NAME:-default}
		fallback := ""
		if i := strings.Index(name, ":-"); i >= 0 {
			name, fallback = name[:i], name[i+2:]
		}

		if value := os.Getenv(name); value != "" {
			return value
		}
		return fallback
	})
}

// Address returns the server address string
func (c *ServerConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// IsStrict reports whether unresolved selections fail the generation
func (c *ReportConfig) IsStrict() bool {
	return c.JoinMode == JoinModeStrict
}
