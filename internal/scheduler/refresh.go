package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"RateSentinel/internal/cache"
	"RateSentinel/internal/calculator"
	"RateSentinel/internal/collector"
	"RateSentinel/internal/metrics"
	"RateSentinel/internal/model"
	"RateSentinel/internal/recorder"
)

var (
	ErrCycleInFlight = errors.New("refresh cycle already in flight")
	ErrNoRates       = errors.New("no rates aggregated")
)

// Stage names a step of the refresh cycle in logs.
type Stage string

const (
	StageFetching     Stage = "fetching"
	StageAggregating  Stage = "aggregating"
	StagePersisting   Stage = "persisting"
	StageInvalidating Stage = "invalidating"
	StageNotifying    Stage = "notifying"
)

// Notifier receives the snapshot set of every persisted cycle. It must not block.
type Notifier interface {
	Notify(id string, snaps []model.RateSnapshot) error
}

// CycleReport summarizes one refresh cycle.
type CycleReport struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Snapshots []model.RateSnapshot
	Failures  []*collector.SourceError
	Notified  bool
}

// Refresher runs fetch, aggregate, persist, invalidate and notify as one
// cycle. At most one cycle runs at a time.
type Refresher struct {
	Collector *collector.Collector
	Store     recorder.RateStore
	Cache     cache.Cache
	Notifier  Notifier // optional
	Metrics   *metrics.Metrics
	Now       func() time.Time

	running atomic.Bool
}

func NewRefresher(col *collector.Collector, store recorder.RateStore, c cache.Cache, n Notifier, m *metrics.Metrics) *Refresher {
	if m == nil {
		m = metrics.Nop()
	}
	return &Refresher{
		Collector: col,
		Store:     store,
		Cache:     c,
		Notifier:  n,
		Metrics:   m,
		Now:       time.Now,
	}
}

// Run executes one cycle. A call made while another cycle is running returns
// ErrCycleInFlight immediately.
func (r *Refresher) Run(ctx context.Context) (CycleReport, error) {
	if !r.running.CompareAndSwap(false, true) {
		r.Metrics.RefreshCycles.WithLabelValues("skipped").Inc()
		slog.Warn("refresh skipped, previous cycle still running")
		return CycleReport{}, ErrCycleInFlight
	}
	defer r.running.Store(false)

	report := CycleReport{ID: uuid.NewString(), StartedAt: r.Now()}
	log := slog.With("cycle_id", report.ID)
	log.Info("refresh cycle started")

	res := r.Collector.CollectAll(ctx)
	report.Failures = res.Failures

	ts := r.Now().Truncate(time.Second)
	aggregated := calculator.AverageRates(res.Quotes, ts)
	report.Snapshots = ordered(aggregated)
	if len(report.Snapshots) == 0 {
		r.finish(&report, "no_rates")
		log.Error("refresh cycle failed", "stage", StageAggregating, "sources_failed", len(res.Failures), "error", ErrNoRates)
		return report, ErrNoRates
	}

	if err := r.Store.Append(ctx, report.Snapshots); err != nil {
		r.finish(&report, "persist_error")
		log.Error("refresh cycle failed", "stage", StagePersisting, "error", err)
		return report, fmt.Errorf("persist snapshots: %w", err)
	}
	for _, s := range report.Snapshots {
		r.Metrics.SnapshotsPersisted.WithLabelValues(string(s.Currency)).Inc()
	}

	if r.Cache != nil {
		if err := r.Cache.InvalidateAll(ctx); err != nil {
			log.Warn("cache invalidation failed", "stage", StageInvalidating, "error", err)
		}
	}

	if r.Notifier != nil {
		if err := r.Notifier.Notify(report.ID, report.Snapshots); err != nil {
			log.Warn("notification not queued", "stage", StageNotifying, "error", err)
		} else {
			report.Notified = true
		}
	}

	r.finish(&report, "ok")
	log.Info("refresh cycle finished",
		"snapshots", len(report.Snapshots),
		"sources_failed", len(report.Failures),
		"duration", report.Duration)
	return report, nil
}

func (r *Refresher) finish(report *CycleReport, result string) {
	report.Duration = r.Now().Sub(report.StartedAt)
	r.Metrics.RefreshCycles.WithLabelValues(result).Inc()
	r.Metrics.RefreshDuration.Observe(report.Duration.Seconds())
}

// ordered returns the snapshots in a stable currency order.
func ordered(m map[model.Currency]model.RateSnapshot) []model.RateSnapshot {
	out := make([]model.RateSnapshot, 0, len(m))
	for _, c := range model.QueryableCurrencies {
		if s, ok := m[c]; ok {
			out = append(out, s)
		}
	}
	if len(out) < len(m) {
		var rest []model.RateSnapshot
		for c, s := range m {
			if !c.Queryable() {
				rest = append(rest, s)
			}
		}
		sort.Slice(rest, func(i, j int) bool { return rest[i].Currency < rest[j].Currency })
		out = append(out, rest...)
	}
	return out
}
