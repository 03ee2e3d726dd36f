package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"RateSentinel/internal/model"
	"RateSentinel/internal/notifier"
	"RateSentinel/internal/rates"
)

// DefaultRefreshCron fires at the top of every hour.
const DefaultRefreshCron = "0 0 * * * *"

// LatestRates is what the bot needs to answer /rates.
type LatestRates interface {
	LatestRate(ctx context.Context, cur model.Currency) (model.RateSnapshot, error)
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Refresher *Refresher
	Rates     LatestRates
	Ctx       context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, r *Refresher, latest LatestRates) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		Refresher: r,
		Rates:     latest,
		Ctx:       ctx,
	}
}

// RegisterRefresh schedules the refresh cycle.
func (s *Scheduler) RegisterRefresh(spec string) error {
	if spec == "" {
		spec = DefaultRefreshCron
	}
	if _, err := s.Cron.AddFunc(spec, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	slog.Info("scheduler started")
}

// Stop stops the scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	slog.Info("scheduler stopped")
}

// RunNow executes a refresh cycle immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() (CycleReport, error) {
	return s.Refresher.Run(s.Ctx)
}

func (s *Scheduler) refreshTask() {
	// Errors are logged by the refresher.
	_, _ = s.Refresher.Run(s.Ctx)
}

// HandleCommand processes a bot command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, cmd notifier.Command) string {
	switch cmd.Text {
	case "/start":
		return notifier.FormatGreeting(cmd.Username)
	case "/rates":
		return s.latestRates(ctx)
	default:
		return notifier.FormatUnknownCommand()
	}
}

func (s *Scheduler) latestRates(ctx context.Context) string {
	var snaps []model.RateSnapshot
	for _, cur := range model.QueryableCurrencies {
		snap, err := s.Rates.LatestRate(ctx, cur)
		if err != nil {
			var nf *rates.NotFoundError
			if !errors.As(err, &nf) {
				slog.Warn("latest rate for bot", "currency", cur, "error", err)
			}
			continue
		}
		snaps = append(snaps, snap)
	}
	if len(snaps) == 0 {
		return notifier.FormatNoRates()
	}
	return notifier.FormatRates(snaps)
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
