package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"RateSentinel/internal/cache"
	"RateSentinel/internal/calculator"
	"RateSentinel/internal/metrics"
	"RateSentinel/internal/model"
	"RateSentinel/internal/recorder"
)

// DefaultMaxMinutes bounds both the hourly lookback and the daily pair gap.
const DefaultMaxMinutes = 60

// NotFoundError means no stored snapshot satisfies the query.
type NotFoundError struct {
	Currency model.Currency
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("No information found for the currency you requested: %q. Please try later", string(e.Currency))
}

// Service answers rate queries from the store through the result cache.
type Service struct {
	Store      recorder.RateStore
	Cache      cache.Cache
	Metrics    *metrics.Metrics
	MaxMinutes int64
	Now        func() time.Time
}

// NewService creates a Service. A nil cache disables caching.
func NewService(store recorder.RateStore, c cache.Cache, maxMinutes int64, m *metrics.Metrics) *Service {
	if c == nil {
		c = noCache{}
	}
	if maxMinutes <= 0 {
		maxMinutes = DefaultMaxMinutes
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Service{
		Store:      store,
		Cache:      c,
		Metrics:    m,
		MaxMinutes: maxMinutes,
		Now:        time.Now,
	}
}

func (s *Service) window() time.Duration {
	return time.Duration(s.MaxMinutes) * time.Minute
}

// LatestRate returns the most recent snapshot of cur.
func (s *Service) LatestRate(ctx context.Context, cur model.Currency) (model.RateSnapshot, error) {
	if !cur.Queryable() {
		return model.RateSnapshot{}, fmt.Errorf("%w: %s", model.ErrUnsupportedCurrency, cur)
	}
	return cache.GetOrCompute(ctx, s.Cache, s.Metrics, cache.Latest, cur, func(ctx context.Context) (model.RateSnapshot, error) {
		return s.latest(ctx, cur)
	})
}

func (s *Service) latest(ctx context.Context, cur model.Currency) (model.RateSnapshot, error) {
	snap, err := s.Store.Latest(ctx, cur)
	if errors.Is(err, recorder.ErrNoSnapshot) {
		return model.RateSnapshot{}, &NotFoundError{Currency: cur}
	}
	if err != nil {
		return model.RateSnapshot{}, fmt.Errorf("latest %s: %w", cur, err)
	}
	return snap, nil
}

// HourlyDynamics compares the latest snapshot with the newest one that is at
// least a minute and at most the window older.
func (s *Service) HourlyDynamics(ctx context.Context, cur model.Currency) (model.DynamicDetails, error) {
	if !cur.Queryable() {
		return model.DynamicDetails{}, fmt.Errorf("%w: %s", model.ErrUnsupportedCurrency, cur)
	}
	return cache.GetOrCompute(ctx, s.Cache, s.Metrics, cache.Hourly, cur, func(ctx context.Context) (model.DynamicDetails, error) {
		newer, err := s.latest(ctx, cur)
		if err != nil {
			return model.DynamicDetails{}, err
		}
		start := newer.Timestamp.Add(-s.window())
		end := newer.Timestamp.Add(-time.Minute)
		older, err := s.Store.LatestInRange(ctx, cur, start, end)
		if errors.Is(err, recorder.ErrNoSnapshot) {
			return model.DynamicDetails{}, &NotFoundError{Currency: cur}
		}
		if err != nil {
			return model.DynamicDetails{}, fmt.Errorf("hourly %s: %w", cur, err)
		}
		return calculator.DynamicDetails(cur, older, newer), nil
	})
}

// DailyDynamics returns the pairwise changes across today's snapshots, newest first.
func (s *Service) DailyDynamics(ctx context.Context, cur model.Currency) ([]model.DynamicDetails, error) {
	if !cur.Queryable() {
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedCurrency, cur)
	}
	return cache.GetOrCompute(ctx, s.Cache, s.Metrics, cache.Daily, cur, func(ctx context.Context) ([]model.DynamicDetails, error) {
		start, end := dayBounds(s.Now())
		snaps, err := s.Store.AllInRange(ctx, cur, start, end)
		if err != nil {
			return nil, fmt.Errorf("daily %s: %w", cur, err)
		}
		if len(snaps) == 0 {
			return nil, &NotFoundError{Currency: cur}
		}
		return calculator.DailyDynamics(cur, snaps, s.MaxMinutes), nil
	})
}

// dayBounds returns the first and last millisecond of t's local calendar day.
func dayBounds(t time.Time) (time.Time, time.Time) {
	t = t.Local()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
	return start, start.AddDate(0, 0, 1).Add(-time.Millisecond)
}

// noCache always misses.
type noCache struct{}

func (noCache) Get(context.Context, cache.Namespace, model.Currency) ([]byte, bool, error) {
	return nil, false, nil
}
func (noCache) Set(context.Context, cache.Namespace, model.Currency, []byte) error { return nil }
func (noCache) InvalidateAll(context.Context) error                              { return nil }
