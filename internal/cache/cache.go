package cache

import (
	"context"
	"encoding/json"
	"log/slog"

	"RateSentinel/internal/metrics"
	"RateSentinel/internal/model"
)

// Namespace separates the cached query kinds.
type Namespace string

const (
	Latest Namespace = "latest"
	Hourly Namespace = "hourly"
	Daily  Namespace = "daily"
)

// Namespaces lists every namespace InvalidateAll must clear.
var Namespaces = []Namespace{Latest, Hourly, Daily}

// Cache stores encoded query results per namespace and currency.
type Cache interface {
	Get(ctx context.Context, ns Namespace, cur model.Currency) ([]byte, bool, error)
	Set(ctx context.Context, ns Namespace, cur model.Currency, val []byte) error
	InvalidateAll(ctx context.Context) error
}

func key(ns Namespace, cur model.Currency) string {
	return string(ns) + ":" + string(cur)
}

// GetOrCompute returns the cached value for (ns, cur) or computes, stores and
// returns it. Compute errors are returned as is and never cached. Cache
// failures are logged and the value is computed directly.
func GetOrCompute[T any](ctx context.Context, c Cache, m *metrics.Metrics, ns Namespace, cur model.Currency, compute func(context.Context) (T, error)) (T, error) {
	count := func(result string) {
		if m != nil {
			m.CacheLookups.WithLabelValues(string(ns), result).Inc()
		}
	}

	raw, ok, err := c.Get(ctx, ns, cur)
	switch {
	case err != nil:
		slog.Warn("cache read failed", "namespace", ns, "currency", cur, "error", err)
		count("error")
	case ok:
		var v T
		derr := json.Unmarshal(raw, &v)
		if derr == nil {
			count("hit")
			return v, nil
		}
		slog.Warn("cache entry undecodable", "namespace", ns, "currency", cur, "error", derr)
		count("miss")
	default:
		count("miss")
	}

	v, err := compute(ctx)
	if err != nil {
		return v, err
	}

	enc, err := json.Marshal(v)
	if err != nil {
		slog.Warn("cache encode failed", "namespace", ns, "currency", cur, "error", err)
		return v, nil
	}
	if err := c.Set(ctx, ns, cur, enc); err != nil {
		slog.Warn("cache write failed", "namespace", ns, "currency", cur, "error", err)
	}
	return v, nil
}
