package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RateSentinel/internal/model"
)

const monoBody = `[
  {"currencyCodeA":840,"currencyCodeB":980,"date":1733565606,"rateBuy":41.2,"rateSell":41.7008},
  {"currencyCodeA":978,"currencyCodeB":980,"date":1733565606,"rateBuy":43.55,"rateSell":44.2504},
  {"currencyCodeA":978,"currencyCodeB":840,"date":1733565606,"rateBuy":1.048,"rateSell":1.06},
  {"currencyCodeA":826,"currencyCodeB":980,"date":1733565606,"rateCross":52.9}
]`

const privatBody = `[
  {"ccy":"EUR","base_ccy":"UAH","buy":"43.40000","sale":"44.40000"},
  {"ccy":"USD","base_ccy":"UAH","buy":"41.30000","sale":"41.85000"},
  {"ccy":"BTC","base_ccy":"USD","buy":"99000","sale":"101000"}
]`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func byCurrency(quotes []model.Quote) map[model.Currency]model.Quote {
	out := make(map[model.Currency]model.Quote, len(quotes))
	for _, q := range quotes {
		out[q.Currency] = q
	}
	return out
}

func TestMonobankFetcher_FetchQuotes(t *testing.T) {
	srv := serve(t, http.StatusOK, monoBody)
	f := NewMonobankFetcher(srv.URL, NewHTTPClient("", time.Second))

	quotes, err := f.FetchQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 2, "EUR/USD cross and GBP cross-only entries are dropped")

	got := byCurrency(quotes)
	assert.Equal(t, "41.2", got[model.USD].Buy.String())
	assert.Equal(t, "41.7008", got[model.USD].Sell.String())
	assert.Equal(t, "43.55", got[model.EUR].Buy.String())
	assert.Equal(t, "monobank", got[model.EUR].Source)
}

func TestPrivatBankFetcher_FetchQuotes(t *testing.T) {
	srv := serve(t, http.StatusOK, privatBody)
	f := NewPrivatBankFetcher(srv.URL, NewHTTPClient("", time.Second))

	quotes, err := f.FetchQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	got := byCurrency(quotes)
	assert.Equal(t, "41.3", got[model.USD].Buy.String())
	assert.Equal(t, "44.4", got[model.EUR].Sell.String())
	assert.Equal(t, "privatbank", got[model.USD].Source)
}

func TestFetchQuotes_HTTPError(t *testing.T) {
	srv := serve(t, http.StatusTooManyRequests, `{"errorDescription":"Too many requests"}`)

	_, err := NewMonobankFetcher(srv.URL, NewHTTPClient("", time.Second)).FetchQuotes(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestFetchQuotes_BadPayload(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"not":"a list"}`)

	_, err := NewPrivatBankFetcher(srv.URL, NewHTTPClient("", time.Second)).FetchQuotes(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestNormalizeMono_DropsUnresolved(t *testing.T) {
	raw := []monoRate{
		{CurrencyCodeA: 980, CurrencyCodeB: 840},
		{CurrencyCodeA: 840, CurrencyCodeB: 978},
		{CurrencyCodeA: 999, CurrencyCodeB: 980},
	}
	assert.Empty(t, normalizeMono("monobank", raw))
}

func TestNormalizePrivat_DropsBadRates(t *testing.T) {
	raw := []privatRate{
		{Ccy: "USD", BaseCcy: "UAH", Buy: "n/a", Sale: "41.1"},
		{Ccy: "EUR", BaseCcy: "UAH", Buy: "-1", Sale: "44"},
		{Ccy: "UAH", BaseCcy: "UAH", Buy: "1", Sale: "1"},
		{Ccy: "usd", BaseCcy: "uah", Buy: "41.0", Sale: "41.5"},
	}
	quotes := normalizePrivat("privatbank", raw)
	require.Len(t, quotes, 1)
	assert.Equal(t, model.USD, quotes[0].Currency)
}
