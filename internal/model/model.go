// Package model defines the data models for the application.
// All models use GORM for ORM operations with SQLite database.
package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// StringArray is a custom type for storing string arrays in SQLite
type StringArray []string

// Value implements driver.Valuer interface
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(s)
	return string(data), err
}

// Scan implements sql.Scanner interface
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = []string{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	}
	return json.Unmarshal(bytes, s)
}

// JSONMap is a custom type for storing JSON maps in SQLite
type JSONMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	data, err := json.Marshal(j)
	return string(data), err
}

// Scan implements sql.Scanner interface
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	}
	return json.Unmarshal(bytes, j)
}

// Session is one wizard run: the report type and institution chosen up front.
// Sessions are deleted physically once idle past the retention period.
type Session struct {
	ID        string    `gorm:"primarykey;size:20" json:"id"` // xid
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ReportType  string `gorm:"size:20;not null;index" json:"report_type"`
	Institution string `gorm:"size:100;not null;default:N/A" json:"institution"`

	// LastActiveAt moves on every selection change and report run
	LastActiveAt time.Time `gorm:"index" json:"last_active_at"`

	Selections []SelectionRecord `gorm:"foreignKey:SessionID" json:"selections,omitempty"`
}

// SelectionRecord is one stored answer. CategoryIndex keeps the order in which
// categories were first submitted, Position the order within the category.
type SelectionRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	SessionID     string `gorm:"size:20;not null;index:idx_selection_order,priority:1" json:"session_id"`
	Category      string `gorm:"size:255;not null" json:"category"`
	CategoryIndex int    `gorm:"not null;index:idx_selection_order,priority:2" json:"category_index"`
	Position      int    `gorm:"not null;index:idx_selection_order,priority:3" json:"position"`

	ReportType  string `gorm:"size:20;not null" json:"report_type"`
	RecordID    string `gorm:"size:1024" json:"record_id"`
	Institution string `gorm:"size:100" json:"institution"`
	Exposure    string `gorm:"size:255" json:"exposure"`
	Sector      string `gorm:"size:255" json:"sector"`
	Type        string `gorm:"size:255" json:"type"`
	Label       string `gorm:"size:255" json:"label"`
	Value       string `gorm:"size:1024" json:"value"`
}

// ReportRunStatus represents the outcome of a report generation
type ReportRunStatus string

const (
	ReportRunStatusCompleted ReportRunStatus = "completed"
	ReportRunStatusFailed    ReportRunStatus = "failed"
)

// ReportRun records one generation for the session history.
type ReportRun struct {
	ID        string    `gorm:"primarykey;size:20" json:"id"` // report id
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	SessionID   string          `gorm:"size:20;not null;index" json:"session_id"`
	ReportType  string          `gorm:"size:20;not null;index" json:"report_type"`
	Institution string          `gorm:"size:100" json:"institution"`
	Status      ReportRunStatus `gorm:"size:20;not null;index" json:"status"`

	// Selection error flag shown next to the report
	ErrorFlag    bool   `gorm:"default:false" json:"error_flag"`
	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`

	SectionCount int         `gorm:"default:0" json:"section_count"`
	WarningCount int         `gorm:"default:0" json:"warning_count"`
	Warnings     StringArray `gorm:"type:text" json:"warnings,omitempty"`
	GapCounts    JSONMap     `gorm:"type:text" json:"gap_counts,omitempty"` // gap kind -> count

	Duration int64 `json:"duration"` // milliseconds

	// Failure is the generation error of a failed run
	Failure string `gorm:"type:text" json:"failure,omitempty"`
}

// AllModels returns all models for auto-migration
func AllModels() []interface{} {
	return []interface{}{
		&Session{},
		&SelectionRecord{},
		&ReportRun{},
	}
}
