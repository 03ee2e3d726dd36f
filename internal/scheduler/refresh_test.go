package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RateSentinel/internal/cache"
	"RateSentinel/internal/collector"
	"RateSentinel/internal/metrics"
	"RateSentinel/internal/model"
	"RateSentinel/internal/notifier"
	"RateSentinel/internal/recorder"
)

type stubSource struct {
	name    string
	quotes  []model.Quote
	err     error
	entered chan struct{}
	release chan struct{}
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) FetchQuotes(ctx context.Context) ([]model.Quote, error) {
	if s.entered != nil {
		close(s.entered)
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.quotes, s.err
}

func quote(src string, cur model.Currency, buy, sell string) model.Quote {
	return model.Quote{
		Source:   src,
		Currency: cur,
		Buy:      decimal.RequireFromString(buy),
		Sell:     decimal.RequireFromString(sell),
	}
}

type recordingNotifier struct {
	mu    sync.Mutex
	ids   []string
	snaps [][]model.RateSnapshot
	err   error
}

func (n *recordingNotifier) Notify(id string, snaps []model.RateSnapshot) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.ids = append(n.ids, id)
	n.snaps = append(n.snaps, snaps)
	return nil
}

func (n *recordingNotifier) calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.ids)
}

// brokenStore rejects every append.
type brokenStore struct {
	*recorder.MemoryRecorder
}

func (brokenStore) Append(context.Context, []model.RateSnapshot) error {
	return errors.New("database is locked")
}

var fixedNow = time.Date(2024, 12, 7, 12, 0, 0, 750_000_000, time.Local)

type fixture struct {
	refresher *Refresher
	store     *recorder.MemoryRecorder
	cache     *cache.MemoryCache
	notifier  *recordingNotifier
	metrics   *metrics.Metrics
}

func newFixture(t *testing.T, sources ...collector.RateSource) *fixture {
	t.Helper()
	f := &fixture{
		store:    recorder.NewMemoryRecorder(),
		cache:    cache.NewMemoryCache(),
		notifier: &recordingNotifier{},
		metrics:  metrics.Nop(),
	}
	col := collector.NewCollector(sources, time.Second, f.metrics)
	f.refresher = NewRefresher(col, f.store, f.cache, f.notifier, f.metrics)
	f.refresher.Now = func() time.Time { return fixedNow }
	require.NoError(t, f.cache.Set(context.Background(), cache.Latest, model.USD, []byte(`{}`)))
	return f
}

func TestRun_FullCycle(t *testing.T) {
	mono := &stubSource{name: "monobank", quotes: []model.Quote{
		quote("monobank", model.USD, "41.10", "41.60"),
		quote("monobank", model.EUR, "43.40", "44.20"),
	}}
	privat := &stubSource{name: "privatbank", quotes: []model.Quote{
		quote("privatbank", model.USD, "41.15", "41.65"),
	}}
	f := newFixture(t, mono, privat)

	report, err := f.refresher.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Empty(t, report.Failures)
	assert.True(t, report.Notified)
	require.Len(t, report.Snapshots, 2)
	assert.Equal(t, model.USD, report.Snapshots[0].Currency)
	assert.Equal(t, "41.13", report.Snapshots[0].Buy.String())
	assert.Equal(t, "41.63", report.Snapshots[0].Sell.String())
	assert.True(t, report.Snapshots[0].Timestamp.Equal(fixedNow.Truncate(time.Second)))

	latest, err := f.store.Latest(context.Background(), model.EUR)
	require.NoError(t, err)
	assert.Equal(t, "43.4", latest.Buy.String())

	assert.Equal(t, 0, f.cache.Len(), "cache invalidated")
	assert.Equal(t, []string{report.ID}, f.notifier.ids)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RefreshCycles.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SnapshotsPersisted.WithLabelValues("USD")))
}

func TestRun_PartialSourceFailureStillPersists(t *testing.T) {
	good := &stubSource{name: "privatbank", quotes: []model.Quote{quote("privatbank", model.USD, "41.00", "41.50")}}
	bad := &stubSource{name: "monobank", err: errors.New("status 429")}
	f := newFixture(t, bad, good)

	report, err := f.refresher.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "monobank", report.Failures[0].Source)

	latest, err := f.store.Latest(context.Background(), model.USD)
	require.NoError(t, err)
	assert.Equal(t, "41", latest.Buy.String())
	assert.Equal(t, 1, f.notifier.calls())
}

func TestRun_AllSourcesFail(t *testing.T) {
	f := newFixture(t,
		&stubSource{name: "monobank", err: errors.New("timeout")},
		&stubSource{name: "privatbank", err: errors.New("timeout")},
	)

	report, err := f.refresher.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoRates)
	assert.Len(t, report.Failures, 2)

	_, err = f.store.Latest(context.Background(), model.USD)
	assert.ErrorIs(t, err, recorder.ErrNoSnapshot)
	assert.Equal(t, 1, f.cache.Len(), "cache untouched")
	assert.Equal(t, 0, f.notifier.calls())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RefreshCycles.WithLabelValues("no_rates")))
}

func TestRun_PersistFailureAbortsCycle(t *testing.T) {
	f := newFixture(t, &stubSource{name: "monobank", quotes: []model.Quote{quote("monobank", model.USD, "41", "42")}})
	f.refresher.Store = brokenStore{f.store}

	_, err := f.refresher.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")

	assert.Equal(t, 1, f.cache.Len(), "no invalidation after failed persist")
	assert.Equal(t, 0, f.notifier.calls(), "no notification after failed persist")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RefreshCycles.WithLabelValues("persist_error")))
}

func TestRun_NotifierFullDoesNotFailCycle(t *testing.T) {
	f := newFixture(t, &stubSource{name: "monobank", quotes: []model.Quote{quote("monobank", model.EUR, "43", "44")}})
	f.notifier.err = notifier.ErrQueueFull

	report, err := f.refresher.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Notified)
	assert.Equal(t, 0, f.cache.Len())
}

func TestRun_SingleFlight(t *testing.T) {
	slow := &stubSource{
		name:    "monobank",
		quotes:  []model.Quote{quote("monobank", model.USD, "41", "42")},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newFixture(t, slow)

	firstDone := make(chan error, 1)
	go func() {
		_, err := f.refresher.Run(context.Background())
		firstDone <- err
	}()
	<-slow.entered

	_, err := f.refresher.Run(context.Background())
	assert.ErrorIs(t, err, ErrCycleInFlight)

	close(slow.release)
	require.NoError(t, <-firstDone)

	all, err := f.store.AllInRange(context.Background(), model.USD, fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, all, 1, "exactly one cycle executed")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RefreshCycles.WithLabelValues("skipped")))

	// The guard is released after the cycle.
	slow.entered = nil
	slow.release = nil
	_, err = f.refresher.Run(context.Background())
	assert.NoError(t, err)
}
