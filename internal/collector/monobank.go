package collector

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"RateSentinel/internal/model"
)

// DefaultMonobankURL is the public Monobank currency endpoint.
const DefaultMonobankURL = "https://api.monobank.ua/bank/currency"

// MonobankFetcher reads the Monobank rate table. Pairs are identified by
// ISO 4217 numeric codes and rates are JSON numbers.
type MonobankFetcher struct {
	URL    string
	Client *http.Client
}

// NewMonobankFetcher creates a fetcher for the given endpoint.
func NewMonobankFetcher(endpoint string, client *http.Client) *MonobankFetcher {
	if endpoint == "" {
		endpoint = DefaultMonobankURL
	}
	return &MonobankFetcher{URL: endpoint, Client: client}
}

func (f *MonobankFetcher) Name() string { return "monobank" }

// monoRate is the wire shape of one Monobank entry.
type monoRate struct {
	CurrencyCodeA int                 `json:"currencyCodeA"`
	CurrencyCodeB int                 `json:"currencyCodeB"`
	Date          int64               `json:"date"`
	RateBuy       decimal.NullDecimal `json:"rateBuy"`
	RateSell      decimal.NullDecimal `json:"rateSell"`
	RateCross     decimal.NullDecimal `json:"rateCross"`
}

func (f *MonobankFetcher) FetchQuotes(ctx context.Context) ([]model.Quote, error) {
	var raw []monoRate
	if err := getJSON(ctx, f.Client, f.URL, &raw); err != nil {
		return nil, err
	}
	quotes := normalizeMono(f.Name(), raw)
	slog.Debug("monobank rates fetched", "entries", len(raw), "quotes", len(quotes))
	return quotes, nil
}

// normalizeMono keeps only {X, UAH} pairs with both legs present.
func normalizeMono(source string, raw []monoRate) []model.Quote {
	quotes := make([]model.Quote, 0, 2)
	for _, r := range raw {
		counter, ok := model.CurrencyFromNumeric(r.CurrencyCodeB)
		if !ok || counter != model.UAH {
			continue
		}
		cur, ok := model.CurrencyFromNumeric(r.CurrencyCodeA)
		if !ok || !cur.Queryable() {
			continue
		}
		if !r.RateBuy.Valid || !r.RateSell.Valid {
			continue
		}
		if r.RateBuy.Decimal.IsNegative() || r.RateSell.Decimal.IsNegative() {
			continue
		}
		quotes = append(quotes, model.Quote{
			Source:   source,
			Currency: cur,
			Buy:      r.RateBuy.Decimal,
			Sell:     r.RateSell.Decimal,
		})
	}
	return quotes
}
