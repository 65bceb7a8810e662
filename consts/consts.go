// Package consts holds names, export format identifiers and build metadata
// shared by the server, the CLI and telemetry.
package consts

import (
	"sync"
	"time"
)

const (
	ServiceName = "materiality"
	ProjectName = "Materiality"
	ProjectURL  = "https://github.com/verustcode/materiality"
)

// Export formats accepted by the export endpoints and the render command
const (
	ExportFormatHTML     = "html"
	ExportFormatPDF      = "pdf"
	ExportFormatMarkdown = "markdown"
	ExportFormatJSON     = "json" // document tree plus table of contents
)

// Set from ldflags through package main
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Build describes the running binary
type Build struct {
	Version   string    `json:"version"`
	BuildTime string    `json:"build_time"`
	GitCommit string    `json:"git_commit"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

// BuildInfo returns the build metadata and the recorded start time
func BuildInfo() Build {
	return Build{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		StartedAt: startedAt,
	}
}

var (
	startedAt   time.Time
	startedOnce sync.Once
)

// SetStartedAt records the server start time. Later calls are ignored.
func SetStartedAt(t time.Time) {
	startedOnce.Do(func() { startedAt = t })
}

// GetUptime returns the time since SetStartedAt, or zero before it.
func GetUptime() time.Duration {
	if startedAt.IsZero() {
		return 0
	}
	return time.Since(startedAt)
}
