package scraper

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"rent_scrooper/config"
	"rent_scrooper/extraction"
	"rent_scrooper/httputil"
	"rent_scrooper/models"
	"rent_scrooper/storage"
)

// Exporter ships the finished CSV export of a run somewhere durable.
type Exporter interface {
	UploadExport(ctx context.Context, csvPath, runKey string, at time.Time) (string, error)
}

type Orchestrator struct {
	cfg      *config.Config
	store    *storage.SQLiteStore
	sinks    *storage.MultiSink
	handlers map[string]Handler
	engines  map[string]*extraction.Engine
	log      zerolog.Logger

	pgStore  *storage.PostgresStore
	exporter Exporter
	csvPath  string

	mu     sync.Mutex
	paused bool
}

func NewOrchestrator(cfg *config.Config, store *storage.SQLiteStore, sinks *storage.MultiSink, clients *httputil.Clients, log zerolog.Logger) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		store:    store,
		sinks:    sinks,
		handlers: make(map[string]Handler),
		engines:  make(map[string]*extraction.Engine),
		log:      log.With().Str("component", "orchestrator").Logger(),
	}
	for id, site := range cfg.Sites {
		o.handlers[id] = NewHandler(site, cfg, clients, log)
		o.engines[id] = extraction.NewEngine(site.Selectors.Selectors, log)
	}
	return o
}

// SetHandler replaces the page source for a site.
func (o *Orchestrator) SetHandler(siteID string, h Handler) {
	o.handlers[siteID] = h
}

// SetPostgres mirrors run bookkeeping into Postgres.
func (o *Orchestrator) SetPostgres(pg *storage.PostgresStore) {
	o.pgStore = pg
}

// SetExporter uploads csvPath through e after every run that wrote records.
func (o *Orchestrator) SetExporter(e Exporter, csvPath string) {
	o.exporter = e
	o.csvPath = csvPath
}

func (o *Orchestrator) Close() {
	for _, h := range o.handlers {
		h.Close()
	}
}

func (o *Orchestrator) RunAll(ctx context.Context) error {
	if o.IsPaused() {
		o.log.Info().Msg("scraper is paused, skipping run")
		return nil
	}

	for _, siteID := range o.GetSiteIDs() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.RunSite(ctx, siteID); err != nil {
			o.log.Error().Err(err).Str("site", siteID).Msg("site run failed")
		}
	}
	return nil
}

// RunSite scrapes every configured location for a site, resuming after the last
// location an interrupted run had reached.
func (o *Orchestrator) RunSite(ctx context.Context, siteID string) error {
	start, err := o.store.GetResumeLocation(siteID)
	if err != nil || start >= len(o.cfg.Locations) {
		start = 0
	}
	if start > 0 {
		o.log.Info().Str("site", siteID).Int("location_index", start).Msg("resuming interrupted run")
	}
	return o.runSite(ctx, siteID, o.cfg.Locations, start, true)
}

// RunCity scrapes one city of the configured locations without touching resume state.
func (o *Orchestrator) RunCity(ctx context.Context, siteID, city string) error {
	var locs []models.Location
	for _, loc := range o.cfg.Locations {
		if strings.EqualFold(loc.City, city) {
			locs = append(locs, loc)
		}
	}
	if len(locs) == 0 {
		return fmt.Errorf("unknown location: %s", city)
	}
	return o.runSite(ctx, siteID, locs, 0, false)
}

func (o *Orchestrator) runSite(ctx context.Context, siteID string, locations []models.Location, start int, resumable bool) error {
	siteCfg, ok := o.cfg.Sites[siteID]
	if !ok {
		return fmt.Errorf("unknown site: %s", siteID)
	}
	handler, ok := o.handlers[siteID]
	if !ok {
		return fmt.Errorf("no handler for site: %s", siteID)
	}
	if o.IsPaused() {
		o.log.Info().Str("site", siteID).Msg("scraper is paused, skipping site")
		return nil
	}
	engine := o.engines[siteID]
	if engine == nil {
		engine = extraction.NewEngine(siteCfg.Selectors.Selectors, o.log)
		o.engines[siteID] = engine
	}

	run := &models.ScrapeRun{
		RunKey:    uuid.NewString(),
		SiteID:    siteID,
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	runID, err := o.store.CreateRun(run)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	run.ID = runID

	if o.pgStore != nil {
		if err := o.pgStore.CreateScrapeRun(ctx, run); err != nil {
			o.log.Warn().Err(err).Msg("failed to mirror run to postgres")
		}
	}

	o.logRun(run, models.LogLevelInfo, fmt.Sprintf("Starting scrape for %s (%d locations)", siteCfg.Name, len(locations)-start))

	failed, interrupted := 0, false
	defer func() {
		o.finishRun(run, len(locations)-start, failed, interrupted)
	}()

	for i := start; i < len(locations); i++ {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		loc := locations[i]
		if resumable {
			if err := o.store.SetResumeLocation(siteID, i); err != nil {
				o.log.Warn().Err(err).Msg("failed to save resume location")
			}
		}

		pages, err := handler.Scrape(ctx, loc, func(ctx context.Context, acc extraction.TextAccessor, blocks []models.RawListingBlock) error {
			return o.processPage(ctx, engine, run, loc, acc, blocks)
		})
		run.PagesVisited += pages
		if err != nil {
			if ctx.Err() != nil {
				interrupted = true
				break
			}
			failed++
			run.ErrorsCount++
			o.logRun(run, models.LogLevelError, fmt.Sprintf("Scrape error for %s, %s: %v", loc.City, loc.State, err))
			continue
		}
		o.logRun(run, models.LogLevelInfo, fmt.Sprintf("%s, %s: %d pages", loc.City, loc.State, pages))
	}

	if resumable && !interrupted {
		if err := o.store.ClearResumeLocation(siteID); err != nil {
			o.log.Warn().Err(err).Msg("failed to clear resume location")
		}
	}
	return nil
}

func (o *Orchestrator) processPage(ctx context.Context, engine *extraction.Engine, run *models.ScrapeRun, loc models.Location, acc extraction.TextAccessor, blocks []models.RawListingBlock) error {
	records, empty := ExtractBlocks(ctx, engine, acc, blocks, loc, o.cfg.Scraper.Workers, o.log)
	run.ListingsFound += len(blocks)
	run.ListingsEmpty += empty
	if len(records) == 0 {
		return ctx.Err()
	}

	n, err := o.sinks.Write(ctx, storage.Batch{
		RunID:   run.ID,
		RunKey:  run.RunKey,
		SiteID:  run.SiteID,
		Records: records,
	})
	run.RecordsWritten += n
	if err != nil {
		run.ErrorsCount++
		o.logRun(run, models.LogLevelWarn, fmt.Sprintf("Write error: %v", err))
	}
	return ctx.Err()
}

func (o *Orchestrator) finishRun(run *models.ScrapeRun, attempted, failed int, interrupted bool) {
	now := time.Now()
	run.FinishedAt = &now
	switch {
	case attempted > 0 && failed == attempted:
		run.Status = models.RunStatusFailed
	case failed > 0 || interrupted:
		run.Status = models.RunStatusPartial
	default:
		run.Status = models.RunStatusCompleted
	}

	o.logRun(run, models.LogLevelInfo, fmt.Sprintf("Finished (%s): %d pages, %d listings, %d empty, %d records, %d errors",
		run.Status, run.PagesVisited, run.ListingsFound, run.ListingsEmpty, run.RecordsWritten, run.ErrorsCount))

	if err := o.store.UpdateRun(run); err != nil {
		o.log.Error().Err(err).Int64("run_id", run.ID).Msg("failed to update run")
	}
	if err := o.store.UpdateSiteStats(run.SiteID); err != nil {
		o.log.Warn().Err(err).Msg("failed to update site stats")
	}

	// the run context may already be cancelled; bookkeeping gets its own
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if o.pgStore != nil {
		if err := o.pgStore.UpdateScrapeRun(ctx, run); err != nil {
			o.log.Warn().Err(err).Msg("failed to update postgres run")
		}
	}
	if o.exporter != nil && o.csvPath != "" && run.RecordsWritten > 0 {
		key, err := o.exporter.UploadExport(ctx, o.csvPath, run.RunKey, now)
		if err != nil {
			o.logRun(run, models.LogLevelWarn, fmt.Sprintf("Export upload failed: %v", err))
		} else {
			o.logRun(run, models.LogLevelInfo, fmt.Sprintf("Exported to %s", key))
		}
	}
}

// ExtractBlocks runs the engine over the blocks of one page with at most workers
// extractions in flight. Records come back in block order; empty counts blocks that
// produced none.
func ExtractBlocks(ctx context.Context, engine *extraction.Engine, acc extraction.TextAccessor, blocks []models.RawListingBlock, loc models.Location, workers int, log zerolog.Logger) ([]models.ListingRecord, int) {
	if workers < 1 {
		workers = 1
	}
	results := make([][]models.ListingRecord, len(blocks))
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	for i, block := range blocks {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, block models.RawListingBlock) {
			defer wg.Done()
			defer sem.Release(1)
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Int("block", i).Msg("block extraction panicked")
				}
			}()
			results[i] = engine.ExtractListingRecords(ctx, acc, block, loc)
		}(i, block)
	}
	wg.Wait()

	var records []models.ListingRecord
	empty := 0
	for _, recs := range results {
		if len(recs) == 0 {
			empty++
			continue
		}
		records = append(records, recs...)
	}
	return records, empty
}

func (o *Orchestrator) HandleCommand(ctx context.Context, cmd *models.Command) error {
	params, err := storage.ParseCommandParams(cmd)
	if err != nil {
		return err
	}

	switch cmd.Command {
	case models.CmdScrapeNow:
		return o.RunAll(ctx)
	case models.CmdScrapeSite:
		if params.Site == "" {
			return o.RunAll(ctx)
		}
		if params.City != "" {
			return o.RunCity(ctx, params.Site, params.City)
		}
		return o.RunSite(ctx, params.Site)
	case models.CmdPause:
		o.setPaused(true)
		o.log.Info().Msg("scraper paused")
	case models.CmdResume:
		o.setPaused(false)
		o.log.Info().Msg("scraper resumed")
	default:
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}
	return nil
}

func (o *Orchestrator) IsPaused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paused
}

func (o *Orchestrator) setPaused(p bool) {
	o.mu.Lock()
	o.paused = p
	o.mu.Unlock()
}

func (o *Orchestrator) logRun(run *models.ScrapeRun, level models.LogLevel, message string) {
	o.log.WithLevel(level.Zerolog()).Str("site", run.SiteID).Str("run_key", run.RunKey).Msg(message)

	runID := run.ID
	if err := o.store.Log(&runID, level, message, run.SiteID); err != nil {
		o.log.Debug().Err(err).Msg("failed to persist log line")
	}
}

func (o *Orchestrator) GetSiteIDs() []string {
	ids := make([]string, 0, len(o.cfg.Sites))
	for id := range o.cfg.Sites {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
