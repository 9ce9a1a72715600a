package dataflows

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/piquette/finance-go/quote"

	"github.com/dyike/StockPilot/models"
)

// YahooFinanceClient serves quotes, fundamentals and price history from Yahoo Finance.
type YahooFinanceClient struct {
	cache *CacheManager
	retry RetryConfig
	now   func() time.Time
}

// NewYahooFinanceClient creates a new Yahoo Finance client
func NewYahooFinanceClient(cfg *Config) *YahooFinanceClient {
	cacheDir := filepath.Join(cfg.DataCacheDir, "yahoo_finance")
	return &YahooFinanceClient{
		cache: NewCacheManager(cacheDir, 15*time.Minute, cfg.CacheEnabled),
		retry: DefaultRetryConfig(cfg.RetryAttempts),
		now:   time.Now,
	}
}

// Quote gets the current quote and summary fields for a symbol.
func (yf *YahooFinanceClient) Quote(ctx context.Context, symbol string) (*Quote, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var result *Quote
	err := WithRetry(ctx, yf.retry, func(ctx context.Context) error {
		q, err := callWithContext(ctx, func() (*finance.Quote, error) { return quote.Get(symbol) })
		if err != nil {
			return fmt.Errorf("quote %s: %w", symbol, err)
		}
		if q == nil {
			return fmt.Errorf("quote %s: %w", symbol, ErrNotFound)
		}
		result = convertQuote(q)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func convertQuote(q *finance.Quote) *Quote {
	return &Quote{
		Price: nonZero(q.RegularMarketPrice),
		Summary: models.QuoteSummary{
			Name:             q.ShortName,
			Exchange:         q.FullExchangeName,
			Currency:         q.CurrencyID,
			MarketState:      string(q.MarketState),
			PreviousClose:    nonZero(q.RegularMarketPreviousClose),
			Open:             nonZero(q.RegularMarketOpen),
			DayHigh:          nonZero(q.RegularMarketDayHigh),
			DayLow:           nonZero(q.RegularMarketDayLow),
			Volume:           floatPtr(float64(q.RegularMarketVolume)),
			FiftyTwoWeekHigh: nonZero(q.FiftyTwoWeekHigh),
			FiftyTwoWeekLow:  nonZero(q.FiftyTwoWeekLow),
		},
	}
}

// Fundamentals gets valuation fields from the equity endpoint.
func (yf *YahooFinanceClient) Fundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var cached models.Fundamentals
	if yf.cache.Get("yahoo", "fundamentals", symbol, &cached) {
		return &cached, nil
	}

	var result *models.Fundamentals
	err := WithRetry(ctx, yf.retry, func(ctx context.Context) error {
		eq, err := callWithContext(ctx, func() (*finance.Equity, error) { return equity.Get(symbol) })
		if err != nil {
			return fmt.Errorf("equity %s: %w", symbol, err)
		}
		if eq == nil {
			return fmt.Errorf("equity %s: %w", symbol, ErrNotFound)
		}
		result = yf.convertEquity(eq)
		return nil
	})
	if err != nil {
		return nil, err
	}

	yf.cache.Set("yahoo", "fundamentals", symbol, result)
	return result, nil
}

func (yf *YahooFinanceClient) convertEquity(eq *finance.Equity) *models.Fundamentals {
	name := eq.LongName
	if name == "" {
		name = eq.ShortName
	}
	f := &models.Fundamentals{
		Name:          name,
		PERatio:       nonZero(eq.TrailingPE),
		ForwardPE:     nonZero(eq.ForwardPE),
		EPS:           nonZero(eq.EpsTrailingTwelveMonths),
		DividendYield: nonZero(eq.TrailingAnnualDividendYield),
		PriceToBook:   nonZero(eq.PriceToBook),
	}
	if eq.MarketCap > 0 {
		f.MarketCap = floatPtr(float64(eq.MarketCap))
	}
	if eq.EarningsTimestamp > 0 {
		next := time.Unix(int64(eq.EarningsTimestamp), 0).UTC()
		if next.After(yf.now()) {
			f.NextEarningsDate = models.String(next.Format("2006-01-02"))
		}
	}
	return f
}

// PriceHistory gets daily bars for the lookback period.
func (yf *YahooFinanceClient) PriceHistory(ctx context.Context, symbol, period, interval string) ([]models.PriceBar, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	end := yf.now()
	start, err := PeriodStart(end, period)
	if err != nil {
		return nil, err
	}

	cacheKey := map[string]interface{}{
		"symbol":   symbol,
		"start":    start.Format("2006-01-02"),
		"end":      end.Format("2006-01-02"),
		"interval": interval,
	}
	var cached []models.PriceBar
	if yf.cache.Get("yahoo", "historical", cacheKey, &cached) {
		return cached, nil
	}

	var result []models.PriceBar
	err = WithRetry(ctx, yf.retry, func(ctx context.Context) error {
		bars, err := callWithContext(ctx, func() ([]models.PriceBar, error) {
			params := &chart.Params{
				Symbol:   symbol,
				Start:    datetime.New(&start),
				End:      datetime.New(&end),
				Interval: datetime.Interval(interval),
			}
			iter := chart.Get(params)

			out := make([]models.PriceBar, 0)
			for iter.Next() {
				bar := iter.Bar()
				open, _ := bar.Open.Float64()
				high, _ := bar.High.Float64()
				low, _ := bar.Low.Float64()
				closePrice, _ := bar.Close.Float64()
				out = append(out, models.PriceBar{
					Date:   time.Unix(int64(bar.Timestamp), 0).UTC().Format("2006-01-02"),
					Open:   nonZero(open),
					High:   nonZero(high),
					Low:    nonZero(low),
					Close:  nonZero(closePrice),
					Volume: floatPtr(float64(bar.Volume)),
				})
			}
			return out, iter.Err()
		})
		if err != nil {
			return fmt.Errorf("history %s: %w", symbol, err)
		}
		if len(bars) == 0 {
			return fmt.Errorf("history %s: %w", symbol, ErrNoData)
		}
		result = bars
		return nil
	})
	if err != nil {
		return nil, err
	}

	yf.cache.Set("yahoo", "historical", cacheKey, result)
	return result, nil
}

// callWithContext runs a blocking client call that has no context support and
// gives up when ctx is done.
func callWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
