package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dyike/StockPilot/models"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubClient handles Finnhub API operations
type FinnhubClient struct {
	client *resty.Client
	cache  *CacheManager
	apiKey string
	retry  RetryConfig
}

// NewFinnhubClient creates a new Finnhub client
func NewFinnhubClient(cfg *Config) *FinnhubClient {
	cacheDir := filepath.Join(cfg.DataCacheDir, "finnhub")

	client := resty.New()
	client.SetBaseURL(finnhubBaseURL)
	client.SetTimeout(cfg.HTTPTimeout)

	return &FinnhubClient{
		client: client,
		cache:  NewCacheManager(cacheDir, 24*time.Hour, cfg.CacheEnabled),
		apiKey: cfg.FinnhubAPIKey,
		retry:  DefaultRetryConfig(cfg.RetryAttempts),
	}
}

// SetBaseURL points the client at another host. Used by tests.
func (fc *FinnhubClient) SetBaseURL(url string) *FinnhubClient {
	fc.client.SetBaseURL(url)
	return fc
}

type finnhubRecommendation struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
	Symbol     string `json:"symbol"`
}

type finnhubProfile struct {
	Country              string  `json:"country"`
	Currency             string  `json:"currency"`
	Exchange             string  `json:"exchange"`
	FinnhubIndustry      string  `json:"finnhubIndustry"`
	MarketCapitalization float64 `json:"marketCapitalization"`
	Name                 string  `json:"name"`
	Ticker               string  `json:"ticker"`
}

// FinnhubNews represents news from Finnhub API
type FinnhubNews struct {
	Category string `json:"category"`
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

func (fc *FinnhubClient) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	if fc.apiKey == "" {
		return fmt.Errorf("finnhub: %w", ErrMissingAPIKey)
	}
	params["token"] = fc.apiKey

	return WithRetry(ctx, fc.retry, func(ctx context.Context) error {
		resp, err := fc.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(path)
		if err != nil {
			return fmt.Errorf("finnhub %s: %w", path, err)
		}
		switch resp.StatusCode() {
		case http.StatusOK:
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("finnhub %s: status %d: %w", path, resp.StatusCode(), ErrMissingAPIKey)
		default:
			return fmt.Errorf("finnhub %s: API error %d: %s", path, resp.StatusCode(), resp.String())
		}
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("finnhub %s: parse response: %w", path, err)
		}
		return nil
	})
}

// Recommendations returns the most recent tail periods of analyst trends, oldest first.
func (fc *FinnhubClient) Recommendations(ctx context.Context, symbol string, tail int) ([]models.AnalystTrend, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var rows []finnhubRecommendation
	if err := fc.get(ctx, "/stock/recommendation", map[string]string{"symbol": symbol}, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("recommendations %s: %w", symbol, ErrNoData)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Period < rows[j].Period })
	if tail > 0 && len(rows) > tail {
		rows = rows[len(rows)-tail:]
	}

	out := make([]models.AnalystTrend, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.AnalystTrend{
			Period:     r.Period,
			StrongBuy:  r.StrongBuy,
			Buy:        r.Buy,
			Hold:       r.Hold,
			Sell:       r.Sell,
			StrongSell: r.StrongSell,
		})
	}
	return out, nil
}

// Profile returns sector and country classification. Profiles change rarely
// and are cached for a day.
func (fc *FinnhubClient) Profile(ctx context.Context, symbol string) (*CompanyProfile, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var cached CompanyProfile
	if fc.cache.Get("finnhub", "profile2", symbol, &cached) {
		return &cached, nil
	}

	var p finnhubProfile
	if err := fc.get(ctx, "/stock/profile2", map[string]string{"symbol": symbol}, &p); err != nil {
		return nil, err
	}
	if p.Ticker == "" && p.Name == "" {
		return nil, fmt.Errorf("profile %s: %w", symbol, ErrNotFound)
	}

	profile := &CompanyProfile{
		Name:     p.Name,
		Sector:   p.FinnhubIndustry,
		Industry: p.FinnhubIndustry,
		Country:  p.Country,
	}
	if p.MarketCapitalization > 0 {
		// reported in millions
		profile.MarketCap = floatPtr(p.MarketCapitalization * 1e6)
	}
	fc.cache.Set("finnhub", "profile2", symbol, profile)
	return profile, nil
}

// CompanyNews gets news articles for a specific company
func (fc *FinnhubClient) CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]models.NewsItem, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var news []FinnhubNews
	err := fc.get(ctx, "/company-news", map[string]string{
		"symbol": symbol,
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
	}, &news)
	if err != nil {
		return nil, err
	}

	out := make([]models.NewsItem, 0, len(news))
	for _, n := range news {
		out = append(out, models.NewsItem{
			Headline:    n.Headline,
			Source:      n.Source,
			URL:         n.URL,
			PublishedAt: time.Unix(n.DateTime, 0).UTC().Format(time.RFC3339),
		})
	}
	return out, nil
}
