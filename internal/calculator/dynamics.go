package calculator

import (
	"time"

	"github.com/shopspring/decimal"

	"RateSentinel/internal/model"
)

// ChangePrecision is the number of fractional digits of the old/new ratio.
const ChangePrecision = 6

var hundred = decimal.NewFromInt(100)

// PercentageChange returns the change from oldValue to newValue in percent.
// A move away from zero counts as 100% growth; zero to zero is no change.
func PercentageChange(oldValue, newValue decimal.Decimal) decimal.Decimal {
	if oldValue.IsZero() {
		if newValue.IsZero() {
			return decimal.Zero
		}
		return hundred
	}
	return newValue.Sub(oldValue).DivRound(oldValue, ChangePrecision).Mul(hundred)
}

// DynamicDetails compares both legs of two snapshots. Timestamps are copied as-is.
func DynamicDetails(cur model.Currency, older, newer model.RateSnapshot) model.DynamicDetails {
	return model.DynamicDetails{
		Currency:             cur,
		PercentageChangeBuy:  PercentageChange(older.Buy, newer.Buy),
		OldTimestamp:         older.Timestamp,
		PercentageChangeSell: PercentageChange(older.Sell, newer.Sell),
		NewTimestamp:         newer.Timestamp,
	}
}

// DailyDynamics walks snapshots in the given order and compares each element
// with the one visited just before it, which takes the "newer" role.
// A pair is kept only when the two timestamps are less than maxMinutes whole
// minutes apart. Results keep traversal order.
func DailyDynamics(cur model.Currency, snapshots []model.RateSnapshot, maxMinutes int64) []model.DynamicDetails {
	changes := make([]model.DynamicDetails, 0, len(snapshots))
	for i := 1; i < len(snapshots); i++ {
		newer, current := snapshots[i-1], snapshots[i]
		if minutesBetween(newer.Timestamp, current.Timestamp) < maxMinutes {
			changes = append(changes, DynamicDetails(cur, current, newer))
		}
	}
	return changes
}

// minutesBetween returns the absolute distance in whole minutes, truncated.
func minutesBetween(a, b time.Time) int64 {
	d := b.Sub(a)
	if d < 0 {
		d = -d
	}
	return int64(d / time.Minute)
}
