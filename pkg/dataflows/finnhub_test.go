package dataflows

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockPilot/config"
)

func newFinnhubTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/stock/recommendation", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("token"))
		w.Write([]byte(`[
			{"period":"2024-03-01","strongBuy":10,"buy":20,"hold":5,"sell":1,"strongSell":0,"symbol":"AAPL"},
			{"period":"2024-01-01","strongBuy":8,"buy":18,"hold":7,"sell":2,"strongSell":1,"symbol":"AAPL"},
			{"period":"2024-02-01","strongBuy":9,"buy":19,"hold":6,"sell":1,"strongSell":0,"symbol":"AAPL"}
		]`))
	})
	mux.HandleFunc("/stock/profile2", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") == "NOPE" {
			w.Write([]byte(`{}`))
			return
		}
		w.Write([]byte(`{"country":"US","finnhubIndustry":"Technology","name":"Apple Inc","ticker":"AAPL","marketCapitalization":3000000}`))
	})
	mux.HandleFunc("/company-news", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("from"))
		w.Write([]byte(`[{"headline":"Apple ships","source":"Wire","url":"https://example.com/a","datetime":1704067200}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestFinnhub(t *testing.T, key string) *FinnhubClient {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.FinnhubAPIKey = key
	srv := newFinnhubTestServer(t)
	return NewFinnhubClient(cfg).SetBaseURL(srv.URL)
}

func TestFinnhubRecommendationsTail(t *testing.T) {
	fc := newTestFinnhub(t, "test-key")
	rows, err := fc.Recommendations(context.Background(), "aapl", 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-02-01", rows[0].Period)
	assert.Equal(t, "2024-03-01", rows[1].Period)
	assert.Equal(t, 10, rows[1].StrongBuy)
}

func TestFinnhubMissingKey(t *testing.T) {
	fc := newTestFinnhub(t, "")
	_, err := fc.Recommendations(context.Background(), "AAPL", 10)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestFinnhubProfile(t *testing.T) {
	fc := newTestFinnhub(t, "test-key")
	p, err := fc.Profile(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Technology", p.Sector)
	assert.Equal(t, "US", p.Country)
	require.NotNil(t, p.MarketCap)
	assert.Equal(t, 3e12, *p.MarketCap)

	_, err = fc.Profile(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFinnhubCompanyNews(t *testing.T) {
	fc := newTestFinnhub(t, "test-key")
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	news, err := fc.CompanyNews(context.Background(), "AAPL", from, from.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Len(t, news, 1)
	assert.Equal(t, "Apple ships", news[0].Headline)
	assert.Equal(t, "2024-01-01T00:00:00Z", news[0].PublishedAt)
}
