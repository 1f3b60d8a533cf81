package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmbook/internal/config"
	"github.com/mamadbah2/farmbook/internal/domain/models"
	"github.com/mamadbah2/farmbook/internal/repository/mongodb"
)

const jobTimeout = 2 * time.Minute

// Syncer runs a full spreadsheet sync.
type Syncer interface {
	SyncAll(ctx context.Context) (models.SyncResult, error)
}

// Dashboarder computes the daily dashboard summary.
type Dashboarder interface {
	Today() time.Time
	Dashboard(ctx context.Context, date time.Time) (models.DashboardSummary, error)
}

// Scheduler manages scheduled tasks. A nil syncer or archive disables the
// corresponding job.
type Scheduler struct {
	cron      *cron.Cron
	cfg       config.Config
	syncer    Syncer
	reporting Dashboarder
	archive   mongodb.Repository
	logger    *zap.Logger
}

// NewScheduler creates a new scheduler instance running in loc.
func NewScheduler(cfg config.Config, loc *time.Location, syncer Syncer, reporting Dashboarder, archive mongodb.Repository, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		cfg:       cfg,
		syncer:    syncer,
		reporting: reporting,
		archive:   archive,
		logger:    logger,
	}
}

// Start registers the enabled jobs and starts the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler")

	if err := s.register(); err != nil {
		s.logger.Error("failed to schedule jobs", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) register() error {
	var errs []error

	if s.syncer != nil && s.cfg.Sync.CronSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.Sync.CronSchedule, s.runSync); err != nil {
			errs = append(errs, fmt.Errorf("sync job %q: %w", s.cfg.Sync.CronSchedule, err))
		} else {
			s.logger.Info("sync job scheduled", zap.String("schedule", s.cfg.Sync.CronSchedule))
		}
	}

	if s.archive != nil && s.reporting != nil && s.cfg.Reporting.CronSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.Reporting.CronSchedule, s.archiveDailySummary); err != nil {
			errs = append(errs, fmt.Errorf("archive job %q: %w", s.cfg.Reporting.CronSchedule, err))
		} else {
			s.logger.Info("daily archive job scheduled", zap.String("schedule", s.cfg.Reporting.CronSchedule))
		}
	}

	return errors.Join(errs...)
}

func (s *Scheduler) runSync() {
	s.logger.Info("running scheduled sync")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	result, err := s.syncer.SyncAll(ctx)
	if err != nil {
		s.logger.Error("scheduled sync failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled sync finished", zap.Any("counts", result.Counts))
}

func (s *Scheduler) archiveDailySummary() {
	s.logger.Info("archiving daily summary")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	summary, err := s.reporting.Dashboard(ctx, s.reporting.Today())
	if err != nil {
		s.logger.Error("failed to compute daily summary", zap.Error(err))
		return
	}

	if err := s.archive.SaveDailySummary(ctx, summary); err != nil {
		s.logger.Error("failed to archive daily summary", zap.Error(err))
	} else {
		s.logger.Info("daily summary archived", zap.String("date", summary.Date))
	}
}
