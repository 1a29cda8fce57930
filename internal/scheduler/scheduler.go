// Package scheduler runs the bot's periodic jobs: evicting expired pending
// expenses and pushing the monthly summary.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"gitlab.com/yelinaung/gastos-bot/internal/logger"
	"gitlab.com/yelinaung/gastos-bot/internal/telemetry"
)

// SweepSpec evicts expired entries every minute.
const SweepSpec = "@every 1m"

const summaryTimeout = 2 * time.Minute

// Sweeper evicts expired pending expenses.
type Sweeper interface {
	Sweep(now time.Time) int
}

// SummarySender pushes the current month's summary to a chat.
type SummarySender interface {
	SendMonthlySummary(ctx context.Context, chatID int64) error
}

// Config selects the jobs to run.
type Config struct {
	Location       *time.Location
	SummaryCron    string
	SummaryChatIDs []int64
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	sender  SummarySender
	metrics *telemetry.Metrics
	cfg     Config
	now     func() time.Time
}

// New creates a scheduler. sender may be nil when no summary push is configured.
func New(cfg Config, sweeper Sweeper, sender SummarySender, metrics *telemetry.Metrics) *Scheduler {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc), cron.WithLogger(cronLogger{})),
		sweeper: sweeper,
		sender:  sender,
		metrics: metrics,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Start registers the jobs and begins running them.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(SweepSpec, s.sweep); err != nil {
		return fmt.Errorf("scheduling sweep: %w", err)
	}

	if s.cfg.SummaryCron != "" && s.sender != nil {
		if _, err := s.cron.AddFunc(s.cfg.SummaryCron, s.pushSummaries); err != nil {
			return fmt.Errorf("scheduling summary %q: %w", s.cfg.SummaryCron, err)
		}
	}

	s.cron.Start()
	logger.Log.Info().
		Int("jobs", len(s.cron.Entries())).
		Msg("Cron scheduler started")
	return nil
}

// Stop halts the scheduler; the returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	logger.Log.Info().Msg("Cron scheduler stopping")
	return s.cron.Stop()
}

func (s *Scheduler) sweep() {
	n := s.sweeper.Sweep(s.now())
	if n == 0 {
		return
	}
	s.metrics.PendingExpired(context.Background(), n)
	logger.Log.Info().Int("evicted", n).Msg("Expired pending expenses evicted")
}

func (s *Scheduler) pushSummaries() {
	ctx, cancel := context.WithTimeout(context.Background(), summaryTimeout)
	defer cancel()

	for _, chatID := range s.cfg.SummaryChatIDs {
		if err := s.sender.SendMonthlySummary(ctx, chatID); err != nil {
			logger.Log.Error().Err(err).
				Str("chat_hash", logger.HashChatID(chatID)).
				Msg("Failed to push scheduled summary")
		}
	}
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logger.Log.Debug().Fields(keysAndValues).Str("component", "cron").Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.Log.Error().Err(err).Fields(keysAndValues).Str("component", "cron").Msg(msg)
}
