package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"rent_scrooper/identity"
	"rent_scrooper/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS listing_records (
		fingerprint TEXT PRIMARY KEY,
		site_id TEXT,
		run_id INTEGER,
		fld_property_name TEXT,
		fld_property_address TEXT,
		fld_state_name TEXT,
		fld_city_name TEXT,
		fld_bed_type TEXT,
		fld_rent TEXT,
		fld_month_updated_on TEXT,
		fld_year INTEGER,
		fld_time TEXT,
		first_seen_at DATETIME,
		last_seen_at DATETIME,
		times_seen INTEGER DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS scrape_runs (
		id INTEGER PRIMARY KEY,
		run_key TEXT,
		site_id TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		pages_visited INTEGER,
		listings_found INTEGER,
		listings_empty INTEGER,
		records_written INTEGER,
		errors_count INTEGER
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		site_id TEXT
	);

	CREATE TABLE IF NOT EXISTS site_stats (
		site_id TEXT PRIMARY KEY,
		last_run_at DATETIME,
		last_run_status TEXT,
		total_records INTEGER,
		success_rate REAL,
		avg_run_duration_sec INTEGER,
		resume_location INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_records_city ON listing_records(fld_city_name, fld_state_name);
	CREATE INDEX IF NOT EXISTS idx_records_site ON listing_records(site_id, last_seen_at);
	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at) WHERE processed_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_logs_run ON scrape_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON scrape_runs(status, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// Listing records
// =============================================================================

func (s *SQLiteStore) Name() string {
	return "sqlite"
}

// Write upserts every record by fingerprint. A record seen again keeps its first_seen_at
// and takes the newest timestamp fields.
func (s *SQLiteStore) Write(ctx context.Context, b Batch) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listing_records (fingerprint, site_id, run_id, fld_property_name,
			fld_property_address, fld_state_name, fld_city_name, fld_bed_type, fld_rent,
			fld_month_updated_on, fld_year, fld_time, first_seen_at, last_seen_at, times_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(fingerprint) DO UPDATE SET
			run_id = excluded.run_id,
			fld_rent = excluded.fld_rent,
			fld_month_updated_on = excluded.fld_month_updated_on,
			fld_year = excluded.fld_year,
			fld_time = excluded.fld_time,
			last_seen_at = excluded.last_seen_at,
			times_seen = listing_records.times_seen + 1`)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, r := range b.Records {
		if _, err := stmt.ExecContext(ctx,
			identity.Fingerprint(r), b.SiteID, b.RunID, r.PropertyName,
			r.PropertyAddress, r.StateName, r.CityName, r.BedType, r.Rent,
			r.MonthUpdatedOn, r.Year, r.Time, now, now,
		); err != nil {
			return 0, fmt.Errorf("upsert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(b.Records), nil
}

func (s *SQLiteStore) CountRecords(siteID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM listing_records WHERE site_id = ?`, siteID).Scan(&n)
	return n, err
}

func (s *SQLiteStore) RecordsForCity(city, state string) ([]models.ListingRecord, error) {
	rows, err := s.db.Query(`
		SELECT fld_property_name, fld_property_address, fld_state_name, fld_city_name,
			fld_bed_type, fld_rent, fld_month_updated_on, fld_year, fld_time
		FROM listing_records WHERE fld_city_name = ? AND fld_state_name = ?
		ORDER BY fld_property_name, fld_bed_type, fld_rent`, city, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ListingRecord
	for rows.Next() {
		var r models.ListingRecord
		if err := rows.Scan(&r.PropertyName, &r.PropertyAddress, &r.StateName, &r.CityName,
			&r.BedType, &r.Rent, &r.MonthUpdatedOn, &r.Year, &r.Time); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// Runs and logs
// =============================================================================

func (s *SQLiteStore) CreateRun(run *models.ScrapeRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO scrape_runs (run_key, site_id, started_at, status, pages_visited,
			listings_found, listings_empty, records_written, errors_count)
		VALUES (?, ?, ?, ?, 0, 0, 0, 0, 0)`,
		run.RunKey, run.SiteID, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.ScrapeRun) error {
	_, err := s.db.Exec(`
		UPDATE scrape_runs SET finished_at = ?, status = ?, pages_visited = ?,
			listings_found = ?, listings_empty = ?, records_written = ?, errors_count = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.PagesVisited, run.ListingsFound,
		run.ListingsEmpty, run.RecordsWritten, run.ErrorsCount, run.ID)
	return err
}

func (s *SQLiteStore) GetRun(id int64) (*models.ScrapeRun, error) {
	var run models.ScrapeRun
	err := s.db.QueryRow(`
		SELECT id, run_key, site_id, started_at, finished_at, status, pages_visited,
			listings_found, listings_empty, records_written, errors_count
		FROM scrape_runs WHERE id = ?`, id).Scan(
		&run.ID, &run.RunKey, &run.SiteID, &run.StartedAt, &run.FinishedAt, &run.Status,
		&run.PagesVisited, &run.ListingsFound, &run.ListingsEmpty, &run.RecordsWritten, &run.ErrorsCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, siteID string) error {
	_, err := s.db.Exec(`
		INSERT INTO scrape_logs (run_id, timestamp, level, message, site_id)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, siteID)
	return err
}

func (s *SQLiteStore) LogsForRun(runID int64) ([]models.ScrapeLog, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, timestamp, level, message, site_id
		FROM scrape_logs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ScrapeLog
	for rows.Next() {
		var l models.ScrapeLog
		if err := rows.Scan(&l.ID, &l.RunID, &l.Timestamp, &l.Level, &l.Message, &l.SiteID); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *SQLiteStore) UpdateSiteStats(siteID string) error {
	_, err := s.db.Exec(`
		INSERT INTO site_stats (site_id, last_run_at, last_run_status, total_records,
			success_rate, avg_run_duration_sec)
		SELECT
			?,
			(SELECT started_at FROM scrape_runs WHERE site_id = ? ORDER BY started_at DESC LIMIT 1),
			(SELECT status FROM scrape_runs WHERE site_id = ? ORDER BY started_at DESC LIMIT 1),
			(SELECT COUNT(*) FROM listing_records WHERE site_id = ?),
			(SELECT CAST(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END) AS REAL) /
				NULLIF(COUNT(*), 0) FROM scrape_runs WHERE site_id = ?),
			(SELECT AVG(CAST((julianday(finished_at) - julianday(started_at)) * 86400 AS INTEGER))
				FROM scrape_runs WHERE site_id = ? AND finished_at IS NOT NULL)
		ON CONFLICT(site_id) DO UPDATE SET
			last_run_at = excluded.last_run_at,
			last_run_status = excluded.last_run_status,
			total_records = excluded.total_records,
			success_rate = excluded.success_rate,
			avg_run_duration_sec = excluded.avg_run_duration_sec`,
		siteID, siteID, siteID, siteID, siteID, siteID)
	return err
}

// =============================================================================
// Resume points
// =============================================================================

// GetResumeLocation returns the index of the first location the next run should scrape.
func (s *SQLiteStore) GetResumeLocation(siteID string) (int, error) {
	var idx int
	err := s.db.QueryRow(`
		SELECT COALESCE(resume_location, 0) FROM site_stats WHERE site_id = ?`, siteID).Scan(&idx)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return idx, err
}

func (s *SQLiteStore) SetResumeLocation(siteID string, idx int) error {
	_, err := s.db.Exec(`
		INSERT INTO site_stats (site_id, resume_location)
		VALUES (?, ?)
		ON CONFLICT(site_id) DO UPDATE SET resume_location = ?`, siteID, idx, idx)
	return err
}

func (s *SQLiteStore) ClearResumeLocation(siteID string) error {
	_, err := s.db.Exec(`
		UPDATE site_stats SET resume_location = 0 WHERE site_id = ?`, siteID)
	return err
}

func (s *SQLiteStore) GetSitesWithResumeLocation() ([]string, error) {
	rows, err := s.db.Query(`
		SELECT site_id FROM site_stats WHERE resume_location > 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var siteID string
		if err := rows.Scan(&siteID); err != nil {
			return nil, err
		}
		sites = append(sites, siteID)
	}
	return sites, rows.Err()
}

func (s *SQLiteStore) GetLastRunTime(siteID string) (time.Time, error) {
	var lastRun sql.NullTime
	err := s.db.QueryRow(`
		SELECT last_run_at FROM site_stats WHERE site_id = ?`, siteID).Scan(&lastRun)
	if err == sql.ErrNoRows || !lastRun.Valid {
		return time.Time{}, nil
	}
	return lastRun.Time, err
}

// =============================================================================
// Commands
// =============================================================================

func (s *SQLiteStore) EnqueueCommand(cmd models.CommandType, params *models.CommandParams) (int64, error) {
	var raw []byte
	if params != nil {
		var err error
		if raw, err = json.Marshal(params); err != nil {
			return 0, err
		}
	}
	result, err := s.db.Exec(`
		INSERT INTO commands (command, params, created_at) VALUES (?, ?, ?)`,
		cmd, string(raw), time.Now())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, params, created_at, processed_at
		FROM commands WHERE processed_at IS NULL ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params sql.NullString
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt, &cmd.ProcessedAt); err != nil {
			return nil, err
		}
		if params.Valid && params.String != "" {
			cmd.Params = json.RawMessage(params.String)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func ParseCommandParams(cmd *models.Command) (*models.CommandParams, error) {
	if cmd.Params == nil || string(cmd.Params) == "null" {
		return &models.CommandParams{}, nil
	}
	var params models.CommandParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return nil, err
	}
	return &params, nil
}
