package collector

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"RateSentinel/internal/model"
)

// DefaultPrivatBankURL is the public PrivatBank cash-rate endpoint.
const DefaultPrivatBankURL = "https://api.privatbank.ua/p24api/pubinfo?json&exchange&coursid=5"

// PrivatBankFetcher reads the PrivatBank rate table. Pairs are three-letter
// codes and rates are strings.
type PrivatBankFetcher struct {
	URL    string
	Client *http.Client
}

// NewPrivatBankFetcher creates a fetcher for the given endpoint.
func NewPrivatBankFetcher(endpoint string, client *http.Client) *PrivatBankFetcher {
	if endpoint == "" {
		endpoint = DefaultPrivatBankURL
	}
	return &PrivatBankFetcher{URL: endpoint, Client: client}
}

func (f *PrivatBankFetcher) Name() string { return "privatbank" }

// privatRate is the wire shape of one PrivatBank entry.
type privatRate struct {
	Ccy     string `json:"ccy"`
	BaseCcy string `json:"base_ccy"`
	Buy     string `json:"buy"`
	Sale    string `json:"sale"`
}

func (f *PrivatBankFetcher) FetchQuotes(ctx context.Context) ([]model.Quote, error) {
	var raw []privatRate
	if err := getJSON(ctx, f.Client, f.URL, &raw); err != nil {
		return nil, err
	}
	quotes := normalizePrivat(f.Name(), raw)
	slog.Debug("privatbank rates fetched", "entries", len(raw), "quotes", len(quotes))
	return quotes, nil
}

// normalizePrivat keeps only {X, UAH} pairs whose rates parse.
func normalizePrivat(source string, raw []privatRate) []model.Quote {
	quotes := make([]model.Quote, 0, 2)
	for _, r := range raw {
		base, ok := model.ParseCurrency(r.BaseCcy)
		if !ok || base != model.UAH {
			continue
		}
		cur, ok := model.ParseCurrency(r.Ccy)
		if !ok || !cur.Queryable() {
			continue
		}
		buy, err := decimal.NewFromString(r.Buy)
		if err != nil {
			slog.Debug("skip privatbank entry with bad buy rate", "currency", cur, "buy", r.Buy)
			continue
		}
		sell, err := decimal.NewFromString(r.Sale)
		if err != nil {
			slog.Debug("skip privatbank entry with bad sale rate", "currency", cur, "sale", r.Sale)
			continue
		}
		if buy.IsNegative() || sell.IsNegative() {
			continue
		}
		quotes = append(quotes, model.Quote{
			Source:   source,
			Currency: cur,
			Buy:      buy,
			Sell:     sell,
		})
	}
	return quotes
}
