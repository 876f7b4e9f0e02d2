package sessionservice

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Reaper disposes idle ledgers.
type Reaper interface {
	ReapIdle(ctx context.Context, now time.Time) int
}

// Scheduler runs the idle ledger reaper on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	reaper   Reaper
	schedule string
	logger   zerolog.Logger
}

// NewScheduler creates a scheduler running reaper on schedule, e.g. "@every 1m".
func NewScheduler(reaper Reaper, schedule string, logger zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{logger})))

	return &Scheduler{
		cron:     c,
		reaper:   reaper,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the reaper job and starts the scheduler.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.reap)
	if err != nil {
		s.logger.Error().Err(err).Str("schedule", s.schedule).Msg("failed to schedule idle ledger reaper")
		return err
	}

	s.logger.Info().Str("schedule", s.schedule).Msg("scheduled idle ledger reaper")
	s.cron.Start()

	return nil
}

// Stop stops the scheduler. The returned context is done once running jobs complete.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) reap() {
	ctx := s.logger.WithContext(context.Background())

	if n := s.reaper.ReapIdle(ctx, time.Now()); n > 0 {
		s.logger.Info().Int("reaped", n).Msg("idle ledgers disposed")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
