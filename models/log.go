package models

import (
	"time"

	"github.com/rs/zerolog"
)

// LogLevel is the severity of a run log line kept alongside the run in SQLite.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Zerolog maps the level onto the console logger; unknown levels log as info.
func (l LogLevel) Zerolog() zerolog.Level {
	switch l {
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ScrapeLog is one persisted line of a run's progress, e.g. a location finishing or failing.
type ScrapeLog struct {
	ID        int64     `json:"id" db:"id"`
	RunID     *int64    `json:"run_id" db:"run_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Level     LogLevel  `json:"level" db:"level"`
	Message   string    `json:"message" db:"message"`
	SiteID    string    `json:"site_id" db:"site_id"`
}
