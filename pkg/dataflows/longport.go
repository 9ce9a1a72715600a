package dataflows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"

	"github.com/dyike/StockPilot/models"
)

// LongportClient serves quotes and daily candlesticks through the Longport
// OpenAPI quote context.
type LongportClient struct {
	quoteCtx *quote.QuoteContext
}

func NewLongportClient(cfg *Config) (*LongportClient, error) {
	if cfg.LongportAppKey == "" || cfg.LongportAppSecret == "" || cfg.LongportAccessToken == "" {
		return nil, fmt.Errorf("longport: %w", ErrMissingAPIKey)
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.LongportAppKey, cfg.LongportAppSecret, cfg.LongportAccessToken))
	if err != nil {
		return nil, err
	}

	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	return &LongportClient{quoteCtx: quoteContext}, nil
}

// LongportSymbol maps a US ticker to Longport's market-suffixed form.
func LongportSymbol(ticker string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if strings.Contains(ticker, ".") {
		return ticker
	}
	return strings.ReplaceAll(ticker, "-", ".") + ".US"
}

// barsForPeriod approximates the number of trading days in a period.
func barsForPeriod(period string) (int, error) {
	end := time.Now()
	start, err := PeriodStart(end, period)
	if err != nil {
		return 0, err
	}
	days := int(end.Sub(start).Hours() / 24)
	return days * 5 / 7, nil
}

func (lpc *LongportClient) PriceHistory(ctx context.Context, ticker, period, interval string) ([]models.PriceBar, error) {
	if lpc.quoteCtx == nil {
		return nil, errors.New("quote context is nil")
	}
	if interval != "1d" {
		return nil, fmt.Errorf("longport: unsupported interval %q", interval)
	}
	count, err := barsForPeriod(period)
	if err != nil {
		return nil, err
	}

	sticks, err := lpc.quoteCtx.Candlesticks(ctx, LongportSymbol(ticker), quote.PeriodDay, int32(count), quote.AdjustTypeNo)
	if err != nil {
		return nil, fmt.Errorf("longport candlesticks %s: %w", ticker, err)
	}
	if len(sticks) == 0 {
		return nil, fmt.Errorf("longport candlesticks %s: %w", ticker, ErrNoData)
	}

	bars := make([]models.PriceBar, 0, len(sticks))
	for _, s := range sticks {
		if s == nil {
			continue
		}
		bar := models.PriceBar{
			Date:   time.Unix(s.Timestamp, 0).UTC().Format("2006-01-02"),
			Volume: floatPtr(float64(s.Volume)),
		}
		if s.Open != nil {
			bar.Open = floatPtr(s.Open.InexactFloat64())
		}
		if s.High != nil {
			bar.High = floatPtr(s.High.InexactFloat64())
		}
		if s.Low != nil {
			bar.Low = floatPtr(s.Low.InexactFloat64())
		}
		if s.Close != nil {
			bar.Close = floatPtr(s.Close.InexactFloat64())
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func (lpc *LongportClient) Quote(ctx context.Context, ticker string) (*Quote, error) {
	if lpc.quoteCtx == nil {
		return nil, errors.New("quote context is nil")
	}
	symbol := LongportSymbol(ticker)
	quotes, err := lpc.quoteCtx.Quote(ctx, []string{symbol})
	if err != nil {
		return nil, fmt.Errorf("longport quote %s: %w", ticker, err)
	}
	if len(quotes) == 0 || quotes[0] == nil {
		return nil, fmt.Errorf("longport quote %s: %w", ticker, ErrNotFound)
	}
	q := quotes[0]

	out := &Quote{
		Summary: models.QuoteSummary{
			Exchange: "US",
			Volume:   floatPtr(float64(q.Volume)),
		},
	}
	if q.LastDone != nil {
		out.Price = floatPtr(q.LastDone.InexactFloat64())
	}
	if q.PrevClose != nil {
		out.Summary.PreviousClose = floatPtr(q.PrevClose.InexactFloat64())
	}
	if q.Open != nil {
		out.Summary.Open = floatPtr(q.Open.InexactFloat64())
	}
	if q.High != nil {
		out.Summary.DayHigh = floatPtr(q.High.InexactFloat64())
	}
	if q.Low != nil {
		out.Summary.DayLow = floatPtr(q.Low.InexactFloat64())
	}
	return out, nil
}
