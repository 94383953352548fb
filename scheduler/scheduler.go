package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"rent_scrooper/config"
	"rent_scrooper/models"
)

// Runner is the part of the orchestrator the scheduler drives.
type Runner interface {
	RunAll(ctx context.Context) error
	RunSite(ctx context.Context, siteID string) error
	HandleCommand(ctx context.Context, cmd *models.Command) error
	IsPaused() bool
}

// Store is the command queue and run history the scheduler polls.
type Store interface {
	GetPendingCommands() ([]models.Command, error)
	MarkCommandProcessed(id int64) error
	GetSitesWithResumeLocation() ([]string, error)
	GetLastRunTime(siteID string) (time.Time, error)
}

const (
	commandPollInterval = 2 * time.Second
	resumePollInterval  = time.Minute
	resumeDelay         = 15 * time.Minute
)

type Scheduler struct {
	cfg    config.SchedulerConfig
	runner Runner
	store  Store
	log    zerolog.Logger
	cron   *cron.Cron
	ticker *time.Ticker
	stopCh chan struct{}
	now    func() time.Time

	// runs never overlap; a scheduled tick that finds one in progress is skipped
	runMu sync.Mutex
}

func New(cfg config.SchedulerConfig, runner Runner, store Store, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		store:  store,
		log:    log.With().Str("component", "scheduler").Logger(),
		cron:   cron.New(),
		stopCh: make(chan struct{}),
		now:    time.Now,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	go s.poll(ctx, commandPollInterval, s.processCommands)
	go s.poll(ctx, resumePollInterval, s.checkResumes)

	switch {
	case s.cfg.Cron != "":
		s.log.Info().Str("cron", s.cfg.Cron).Msg("starting scheduler")
		if _, err := s.cron.AddFunc(s.cfg.Cron, func() { s.scheduledRun(ctx) }); err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	case s.cfg.Interval > 0:
		s.log.Info().Dur("interval", s.cfg.Interval).Msg("starting scheduler")
		s.ticker = time.NewTicker(s.cfg.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.scheduledRun(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	default:
		s.log.Info().Msg("no schedule configured, daemon will only respond to commands")
	}
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}

// TriggerNow runs every site immediately, waiting for any run in progress.
func (s *Scheduler) TriggerNow(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.runner.RunAll(ctx)
}

func (s *Scheduler) scheduledRun(ctx context.Context) {
	if !s.runMu.TryLock() {
		s.log.Warn().Msg("previous run still in progress, skipping")
		return
	}
	defer s.runMu.Unlock()
	if err := s.runner.RunAll(ctx); err != nil {
		s.log.Error().Err(err).Msg("scheduled run error")
	}
}

func (s *Scheduler) poll(ctx context.Context, every time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) processCommands(ctx context.Context) {
	cmds, err := s.store.GetPendingCommands()
	if err != nil {
		s.log.Error().Err(err).Msg("error getting commands")
		return
	}

	for _, cmd := range cmds {
		s.log.Info().Str("command", string(cmd.Command)).Int64("id", cmd.ID).Msg("processing command")
		if err := s.handleCommand(ctx, &cmd); err != nil {
			s.log.Error().Err(err).Str("command", string(cmd.Command)).Msg("command error")
		}
		if err := s.store.MarkCommandProcessed(cmd.ID); err != nil {
			s.log.Error().Err(err).Int64("id", cmd.ID).Msg("error marking command processed")
		}
	}
}

func (s *Scheduler) handleCommand(ctx context.Context, cmd *models.Command) error {
	switch cmd.Command {
	case models.CmdPause, models.CmdResume:
		return s.runner.HandleCommand(ctx, cmd)
	default:
		s.runMu.Lock()
		defer s.runMu.Unlock()
		return s.runner.HandleCommand(ctx, cmd)
	}
}

// checkResumes restarts sites whose last run stopped part-way, once resumeDelay has
// passed since that run started.
func (s *Scheduler) checkResumes(ctx context.Context) {
	if s.runner.IsPaused() {
		return
	}
	sites, err := s.store.GetSitesWithResumeLocation()
	if err != nil {
		s.log.Error().Err(err).Msg("error checking resume locations")
		return
	}

	for _, siteID := range sites {
		lastRun, err := s.store.GetLastRunTime(siteID)
		if err != nil {
			s.log.Error().Err(err).Str("site", siteID).Msg("error getting last run time")
			continue
		}
		if s.now().Sub(lastRun) < resumeDelay {
			continue
		}
		if !s.runMu.TryLock() {
			return
		}
		s.log.Info().Str("site", siteID).Msg("resuming scrape")
		if err := s.runner.RunSite(ctx, siteID); err != nil {
			s.log.Error().Err(err).Str("site", siteID).Msg("resume error")
		}
		s.runMu.Unlock()
	}
}
