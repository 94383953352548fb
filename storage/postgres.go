package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rent_scrooper/identity"
	"rent_scrooper/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS listing_records (
			id UUID PRIMARY KEY,
			fingerprint TEXT NOT NULL UNIQUE,
			site_id TEXT NOT NULL,
			run_key TEXT,
			fld_property_name TEXT NOT NULL,
			fld_property_address TEXT NOT NULL,
			fld_state_name TEXT,
			fld_city_name TEXT,
			fld_bed_type TEXT NOT NULL,
			fld_rent TEXT NOT NULL,
			fld_month_updated_on TEXT,
			fld_year INTEGER,
			fld_time TEXT,
			first_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			times_seen INTEGER NOT NULL DEFAULT 1
		);

		CREATE TABLE IF NOT EXISTS scrape_runs (
			id UUID PRIMARY KEY,
			site_id TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ,
			status TEXT NOT NULL,
			pages_visited INTEGER DEFAULT 0,
			listings_found INTEGER DEFAULT 0,
			listings_empty INTEGER DEFAULT 0,
			records_written INTEGER DEFAULT 0,
			errors_count INTEGER DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_listing_records_city ON listing_records (fld_city_name, fld_state_name);`)
	return err
}

// =============================================================================
// Listing records
// =============================================================================

const upsertRecordSQL = `
	INSERT INTO listing_records (
		id, fingerprint, site_id, run_key, fld_property_name, fld_property_address,
		fld_state_name, fld_city_name, fld_bed_type, fld_rent, fld_month_updated_on,
		fld_year, fld_time
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (fingerprint) DO UPDATE SET
		run_key = EXCLUDED.run_key,
		fld_rent = EXCLUDED.fld_rent,
		fld_month_updated_on = EXCLUDED.fld_month_updated_on,
		fld_year = EXCLUDED.fld_year,
		fld_time = EXCLUDED.fld_time,
		last_seen_at = NOW(),
		times_seen = listing_records.times_seen + 1`

func (s *PostgresStore) Name() string {
	return "postgres"
}

// Write sends the whole batch in one round trip.
func (s *PostgresStore) Write(ctx context.Context, b Batch) (int, error) {
	if len(b.Records) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range b.Records {
		batch.Queue(upsertRecordSQL,
			uuid.New(), identity.Fingerprint(r), b.SiteID, b.RunKey,
			r.PropertyName, r.PropertyAddress, r.StateName, r.CityName,
			r.BedType, r.Rent, r.MonthUpdatedOn, r.Year, r.Time,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	written := 0
	for range b.Records {
		if _, err := results.Exec(); err != nil {
			return written, fmt.Errorf("upsert record: %w", err)
		}
		written++
	}
	return written, nil
}

// =============================================================================
// Scrape Runs
// =============================================================================

// CreateScrapeRun mirrors a run into Postgres, keyed by the run's uuid run key.
func (s *PostgresStore) CreateScrapeRun(ctx context.Context, run *models.ScrapeRun) error {
	id, err := uuid.Parse(run.RunKey)
	if err != nil {
		return fmt.Errorf("run key: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO scrape_runs (id, site_id, started_at, status)
		VALUES ($1, $2, $3, $4)`,
		id, run.SiteID, run.StartedAt, string(run.Status),
	)
	return err
}

func (s *PostgresStore) UpdateScrapeRun(ctx context.Context, run *models.ScrapeRun) error {
	id, err := uuid.Parse(run.RunKey)
	if err != nil {
		return fmt.Errorf("run key: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE scrape_runs SET
			finished_at = $2, status = $3, pages_visited = $4, listings_found = $5,
			listings_empty = $6, records_written = $7, errors_count = $8
		WHERE id = $1`,
		id, run.FinishedAt, string(run.Status), run.PagesVisited, run.ListingsFound,
		run.ListingsEmpty, run.RecordsWritten, run.ErrorsCount,
	)
	return err
}
