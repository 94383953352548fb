package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

type ScrapeRun struct {
	ID             int64      `json:"id" db:"id"`
	RunKey         string     `json:"run_key" db:"run_key"`
	SiteID         string     `json:"site_id" db:"site_id"`
	StartedAt      time.Time  `json:"started_at" db:"started_at"`
	FinishedAt     *time.Time `json:"finished_at" db:"finished_at"`
	Status         RunStatus  `json:"status" db:"status"`
	PagesVisited   int        `json:"pages_visited" db:"pages_visited"`
	ListingsFound  int        `json:"listings_found" db:"listings_found"`
	ListingsEmpty  int        `json:"listings_empty" db:"listings_empty"`
	RecordsWritten int        `json:"records_written" db:"records_written"`
	ErrorsCount    int        `json:"errors_count" db:"errors_count"`
}
