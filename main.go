package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"rent_scrooper/config"
	"rent_scrooper/extraction"
	"rent_scrooper/httputil"
	"rent_scrooper/logging"
	"rent_scrooper/metrics"
	"rent_scrooper/models"
	"rent_scrooper/scheduler"
	"rent_scrooper/scraper"
	"rent_scrooper/storage"
)

var (
	scrapeNow = flag.Bool("scrape", false, "Run scrape once and exit")
	siteFlag  = flag.String("site", "", "Limit -scrape, -html or -cmd to one site")
	htmlFile  = flag.String("html", "", "Extract listings from a saved results page into the CSV and exit")
	cityFlag  = flag.String("city", "", "City for -html, or for -cmd scrape_site")
	stateFlag = flag.String("state", "", "Province or state for -html")
	cmdFlag   = flag.String("cmd", "", "Queue a command for the running daemon (scrape_now, scrape_site, pause, resume) and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logFile, logger, err := logging.Setup(cfg.LogFile, cfg.Env, cfg.LogLevel)
	if err != nil {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Warn().Err(err).Msg("could not set up file logging")
	} else {
		defer logFile.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *htmlFile != "" {
		if err := extractFile(ctx, cfg, logger); err != nil {
			logger.Fatal().Err(err).Str("file", *htmlFile).Msg("extraction failed")
		}
		return
	}

	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open SQLite")
	}
	defer sqliteStore.Close()

	if *cmdFlag != "" {
		id, err := sqliteStore.EnqueueCommand(models.CommandType(*cmdFlag), &models.CommandParams{Site: *siteFlag, City: *cityFlag})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to queue command")
		}
		logger.Info().Int64("id", id).Str("command", *cmdFlag).Msg("command queued")
		return
	}

	logger.Info().Int("sites", len(cfg.Sites)).Int("locations", len(cfg.Locations)).Msg("starting rent_scrooper")
	for id, site := range cfg.Sites {
		logger.Info().Str("site", id).Str("name", site.Name).Str("handler", site.Handler).Msg("site loaded")
	}

	reg := metrics.InitRegistry()
	metrics.Serve(cfg.MetricsAddr, reg)

	clients := httputil.NewClients(cfg.Proxy)

	csvWriter, err := storage.NewCSVWriter(cfg.CSVPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open CSV export")
	}
	defer csvWriter.Close()

	sinks := storage.NewMultiSink(logger, csvWriter, sqliteStore)

	var pgStore *storage.PostgresStore
	if cfg.Postgres.URL != "" {
		pgStore, err = storage.NewPostgresStore(ctx, cfg.Postgres.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to Postgres")
		}
		defer pgStore.Close()
		sinks.Add(pgStore)
		logger.Info().Str("url", maskConnectionString(cfg.Postgres.URL)).Msg("connected to Postgres")
	}

	orchestrator := scraper.NewOrchestrator(cfg, sqliteStore, sinks, clients, logger)
	defer orchestrator.Close()
	if pgStore != nil {
		orchestrator.SetPostgres(pgStore)
	}

	if cfg.S3.Enabled() {
		uploader, err := storage.NewS3Uploader(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Prefix:          cfg.S3.Prefix,
		}, clients.Direct)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure S3")
		}
		orchestrator.SetExporter(uploader, csvWriter.Path())
		logger.Info().Str("bucket", cfg.S3.Bucket).Msg("CSV exports will be uploaded")
	}

	if *scrapeNow {
		logger.Info().Msg("running scrape")
		if *siteFlag != "" {
			err = orchestrator.RunSite(ctx, *siteFlag)
		} else {
			err = orchestrator.RunAll(ctx)
		}
		if err != nil {
			logger.Fatal().Err(err).Msg("scrape failed")
		}
		logger.Info().Msg("scrape complete")
		return
	}

	sched := scheduler.New(cfg.Scheduler, orchestrator, sqliteStore, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start scheduler")
	}

	logger.Info().Msg("daemon running, press Ctrl+C to stop")
	<-ctx.Done()

	logger.Info().Msg("shutting down")
	sched.Stop()
}

// extractFile runs the engine over a saved results page and appends the records to the CSV.
func extractFile(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if *cityFlag == "" || *stateFlag == "" {
		return fmt.Errorf("-html needs -city and -state")
	}
	data, err := os.ReadFile(*htmlFile)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}

	listing := config.DefaultListingSelectors
	sel := extraction.DefaultSelectors()
	if site, ok := cfg.Sites[*siteFlag]; ok {
		listing = site.Selectors.Listing
		sel = site.Selectors.Selectors
	} else if *siteFlag != "" {
		return fmt.Errorf("unknown site: %s", *siteFlag)
	}

	loc := models.Location{City: *cityFlag, State: *stateFlag}
	engine := extraction.NewEngine(sel, logger)
	acc := scraper.NewDocumentAccessor(doc.Selection)
	blocks := scraper.BuildBlocks(ctx, acc, nil, listing)
	records, empty := scraper.ExtractBlocks(ctx, engine, acc, blocks, loc, cfg.Scraper.Workers, logger)

	csvWriter, err := storage.NewCSVWriter(cfg.CSVPath)
	if err != nil {
		return err
	}
	defer csvWriter.Close()
	n, err := csvWriter.Write(ctx, storage.Batch{SiteID: *siteFlag, Records: records})
	if err != nil {
		return err
	}

	logger.Info().
		Int("listings", len(blocks)).
		Int("empty", empty).
		Int("records", n).
		Str("csv", csvWriter.Path()).
		Msg("extraction complete")
	return nil
}

// maskConnectionString masks the password in a connection string for logging.
func maskConnectionString(connStr string) string {
	start := strings.Index(connStr, "://")
	if start < 0 {
		return connStr
	}
	start += 3
	at := strings.LastIndex(connStr, "@")
	colon := strings.Index(connStr[start:], ":")
	if at < 0 || colon < 0 || start+colon > at {
		return connStr
	}
	return connStr[:start+colon+1] + "****" + connStr[at:]
}
