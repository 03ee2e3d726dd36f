package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"RateSentinel/internal/metrics"
	"RateSentinel/internal/model"
)

// Collector fans out to every configured source and waits for all of them.
type Collector struct {
	Sources []RateSource
	Timeout time.Duration
	Metrics *metrics.Metrics
}

// NewCollector creates a new Collector.
func NewCollector(sources []RateSource, timeout time.Duration, m *metrics.Metrics) *Collector {
	if m == nil {
		m = metrics.Nop()
	}
	return &Collector{Sources: sources, Timeout: timeout, Metrics: m}
}

// Result is the outcome of one CollectAll call.
type Result struct {
	Quotes   []model.Quote
	Failures []*SourceError
}

// CollectAll queries all sources concurrently. A failing source contributes
// no quotes and is reported in Failures; it never cancels the others.
func (c *Collector) CollectAll(ctx context.Context) Result {
	type outcome struct {
		quotes []model.Quote
		err    *SourceError
	}
	outcomes := make([]outcome, len(c.Sources))

	var wg sync.WaitGroup
	for i, src := range c.Sources {
		wg.Add(1)
		go func(i int, src RateSource) {
			defer wg.Done()
			fctx := ctx
			if c.Timeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(ctx, c.Timeout)
				defer cancel()
			}
			quotes, err := src.FetchQuotes(fctx)
			if err != nil {
				outcomes[i].err = &SourceError{Source: src.Name(), Err: err}
				return
			}
			outcomes[i].quotes = quotes
		}(i, src)
	}
	wg.Wait()

	var res Result
	for i, o := range outcomes {
		name := c.Sources[i].Name()
		if o.err != nil {
			slog.Warn("source fetch failed", "stage", "fetching", "source", name, "error", o.err.Err)
			c.Metrics.SourceFetches.WithLabelValues(name, "error").Inc()
			res.Failures = append(res.Failures, o.err)
			continue
		}
		c.Metrics.SourceFetches.WithLabelValues(name, "ok").Inc()
		res.Quotes = append(res.Quotes, o.quotes...)
	}
	return res
}
