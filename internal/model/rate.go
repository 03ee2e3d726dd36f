package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one provider's buy/sell pair for a currency against UAH,
// already normalized but not yet aggregated or timestamped.
type Quote struct {
	Source   string
	Currency Currency
	Buy      decimal.Decimal
	Sell     decimal.Decimal
}

// RateSnapshot is a single persisted, timestamped rate record.
type RateSnapshot struct {
	Currency  Currency        `json:"currency"`
	Buy       decimal.Decimal `json:"rate_buy"`
	Sell      decimal.Decimal `json:"rate_sell"`
	Timestamp time.Time       `json:"timestamp"`
}

// DynamicDetails is the percentage change of both legs between two snapshots.
type DynamicDetails struct {
	Currency             Currency        `json:"currency"`
	PercentageChangeBuy  decimal.Decimal `json:"percentage_change_buy"`
	OldTimestamp         time.Time       `json:"old_timestamp"`
	PercentageChangeSell decimal.Decimal `json:"percentage_change_sell"`
	NewTimestamp         time.Time       `json:"new_timestamp"`
}
