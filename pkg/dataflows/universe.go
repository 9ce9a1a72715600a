package dataflows

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const sp500URL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

// FallbackUniverse is the diversified sample scanned when the live
// constituent list cannot be fetched.
var FallbackUniverse = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "BRK-B", "META", "JNJ", "V", "PG",
	"NVDA", "JPM", "UNH", "HD", "DIS", "MA", "PYPL", "KO", "PEP", "XOM",
	"CVX", "CSCO", "ORCL", "MRK", "ABBV", "T", "VZ", "WMT", "MCD",
}

// WikipediaUniverse scrapes the S&P 500 constituents table.
type WikipediaUniverse struct {
	client *resty.Client
	url    string
	cache  *CacheManager
}

func NewWikipediaUniverse(cfg *Config) *WikipediaUniverse {
	client := resty.New()
	client.SetTimeout(cfg.HTTPTimeout)
	client.SetHeader("User-Agent", cfg.EdgarUserAgent)

	return &WikipediaUniverse{
		client: client,
		url:    sp500URL,
		cache:  NewCacheManager(filepath.Join(cfg.DataCacheDir, "universe"), 24*time.Hour, cfg.CacheEnabled),
	}
}

// SetURL points the scraper at another page. Used by tests.
func (w *WikipediaUniverse) SetURL(url string) *WikipediaUniverse {
	w.url = url
	return w
}

func (w *WikipediaUniverse) Tickers(ctx context.Context) ([]string, error) {
	var cached []string
	if w.cache.Get("wikipedia", "sp500", w.url, &cached) && len(cached) > 0 {
		return cached, nil
	}

	resp, err := w.client.R().SetContext(ctx).Get(w.url)
	if err != nil {
		return nil, fmt.Errorf("fetch constituents: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("fetch constituents: status %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse constituents: %w", err)
	}

	tickers := parseConstituents(doc)
	if len(tickers) == 0 {
		return nil, fmt.Errorf("parse constituents: %w", ErrNoData)
	}

	w.cache.Set("wikipedia", "sp500", w.url, tickers)
	return tickers, nil
}

// parseConstituents reads the first column of the table with id
// "constituents", falling back to the first wikitable on the page.
func parseConstituents(doc *goquery.Document) []string {
	table := doc.Find("table#constituents").First()
	if table.Length() == 0 {
		table = doc.Find("table.wikitable").First()
	}

	seen := make(map[string]struct{})
	var tickers []string
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cell := row.Find("td").First()
		if cell.Length() == 0 {
			return
		}
		symbol := NormalizeSymbol(strings.TrimSpace(cell.Text()))
		if ValidateSymbol(symbol) != nil {
			return
		}
		if _, dup := seen[symbol]; dup {
			return
		}
		seen[symbol] = struct{}{}
		tickers = append(tickers, symbol)
	})
	return tickers
}
