package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"RateSentinel/internal/model"
)

// Fixed6 renders a decimal as a JSON number with six fractional digits.
type Fixed6 decimal.Decimal

func (f Fixed6) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(f).StringFixed(6)), nil
}

// RateResponse is the latest-rate payload.
type RateResponse struct {
	Currency  model.Currency `json:"currency"`
	RateBuy   Fixed6         `json:"rateBuy"`
	RateSell  Fixed6         `json:"rateSell"`
	Timestamp time.Time      `json:"timestamp"`
}

// DynamicsResponse is one hourly or daily change entry.
type DynamicsResponse struct {
	Currency             model.Currency `json:"currency"`
	PercentageChangeBuy  Fixed6         `json:"percentageChangeBuy"`
	OldRateTimestamp     time.Time      `json:"oldRateTimestamp"`
	PercentageChangeSell Fixed6         `json:"percentageChangeSell"`
	NewRateTimestamp     time.Time      `json:"newRateTimestamp"`
}

// ErrorResponse is returned for rejected input and for queries with no data.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error codes carried in ErrorResponse.
const (
	CodeNoData   = 1
	CodeInternal = 2
)

func newRateResponse(s model.RateSnapshot) RateResponse {
	return RateResponse{
		Currency:  s.Currency,
		RateBuy:   Fixed6(s.Buy),
		RateSell:  Fixed6(s.Sell),
		Timestamp: s.Timestamp,
	}
}

func newDynamicsResponse(d model.DynamicDetails) DynamicsResponse {
	return DynamicsResponse{
		Currency:             d.Currency,
		PercentageChangeBuy:  Fixed6(d.PercentageChangeBuy),
		OldRateTimestamp:     d.OldTimestamp,
		PercentageChangeSell: Fixed6(d.PercentageChangeSell),
		NewRateTimestamp:     d.NewTimestamp,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}
