package calculator

import (
	"time"

	"github.com/shopspring/decimal"

	"RateSentinel/internal/model"
)

// RatePrecision is the number of fractional digits kept in aggregated rates.
const RatePrecision = 2

// AverageRates groups quotes by currency and averages each leg, rounding half-up
// to RatePrecision digits. Every snapshot gets the same timestamp.
// Currencies without quotes are absent from the result.
func AverageRates(quotes []model.Quote, ts time.Time) map[model.Currency]model.RateSnapshot {
	type acc struct {
		buy, sell decimal.Decimal
		n         int64
	}
	groups := make(map[model.Currency]*acc)
	for _, q := range quotes {
		g, ok := groups[q.Currency]
		if !ok {
			g = &acc{buy: decimal.Zero, sell: decimal.Zero}
			groups[q.Currency] = g
		}
		g.buy = g.buy.Add(q.Buy)
		g.sell = g.sell.Add(q.Sell)
		g.n++
	}

	out := make(map[model.Currency]model.RateSnapshot, len(groups))
	for cur, g := range groups {
		n := decimal.NewFromInt(g.n)
		out[cur] = model.RateSnapshot{
			Currency:  cur,
			Buy:       g.buy.DivRound(n, RatePrecision),
			Sell:      g.sell.DivRound(n, RatePrecision),
			Timestamp: ts,
		}
	}
	return out
}
