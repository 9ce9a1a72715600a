package dataflows

import (
	"context"
	"errors"
	"time"

	"github.com/dyike/StockPilot/config"
	"github.com/dyike/StockPilot/models"
)

// Config is the application configuration used by the data clients.
type Config = config.Config

var (
	ErrMissingAPIKey = errors.New("api key not configured")
	ErrNotFound      = errors.New("not found")
	ErrNoData        = errors.New("no data returned")
)

// Quote is the result of a quote lookup.
type Quote struct {
	Price   *float64
	Summary models.QuoteSummary
}

// CompanyProfile carries the classification fields used to enrich fundamentals.
type CompanyProfile struct {
	Name      string
	Sector    string
	Industry  string
	Country   string
	MarketCap *float64
}

type QuoteSource interface {
	Quote(ctx context.Context, ticker string) (*Quote, error)
}

type FundamentalsSource interface {
	Fundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error)
}

// PriceHistorySource returns daily bars for a lookback period such as "6mo"
// sampled at interval such as "1d".
type PriceHistorySource interface {
	PriceHistory(ctx context.Context, ticker, period, interval string) ([]models.PriceBar, error)
}

type RecommendationSource interface {
	Recommendations(ctx context.Context, ticker string, tail int) ([]models.AnalystTrend, error)
}

type NewsSource interface {
	CompanyNews(ctx context.Context, ticker string, from, to time.Time) ([]models.NewsItem, error)
}

type ProfileSource interface {
	Profile(ctx context.Context, ticker string) (*CompanyProfile, error)
}

// FilingRegistry resolves tickers to filers and retrieves their 13F-HR documents.
type FilingRegistry interface {
	LookupCIK(ctx context.Context, ticker string) (string, error)
	LatestFiling(ctx context.Context, cik string) (*models.FilingInfo, error)
	DownloadFiling(ctx context.Context, ticker string, filing *models.FilingInfo) (string, error)
	ParseHoldings(path string) ([]models.FilingHolding, error)
}

// UniverseSource lists index constituents.
type UniverseSource interface {
	Tickers(ctx context.Context) ([]string, error)
}
