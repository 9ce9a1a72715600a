package agents

import (
	"context"
	"time"

	"github.com/dyike/StockPilot/config"
	"github.com/dyike/StockPilot/models"
	"github.com/dyike/StockPilot/pkg/dataflows"
)

// FetchOptions toggles the optional capabilities of a fetch.
type FetchOptions struct {
	PriceHistory bool
	Filings      bool
}

func DefaultFetchOptions() FetchOptions {
	return FetchOptions{PriceHistory: true, Filings: true}
}

// DataAgent assembles a TickerSnapshot from the configured providers. Each
// capability is fetched in isolation; a failure is recorded in the snapshot
// sources and never stops the remaining fetches.
type DataAgent struct {
	quotes          dataflows.QuoteSource
	fundamentals    dataflows.FundamentalsSource
	history         dataflows.PriceHistorySource
	recommendations dataflows.RecommendationSource
	news            dataflows.NewsSource
	filings         dataflows.FilingRegistry

	historyPeriod   string
	historyInterval string
	recTail         int
	newsDays        int
	callTimeout     time.Duration

	agentOptions
}

func NewDataAgent(cfg *config.Config, p *dataflows.Providers, opts ...Option) *DataAgent {
	// each retry may wait up to the backoff cap on top of its own timeout
	attempts := time.Duration(cfg.RetryAttempts + 1)
	timeout := cfg.HTTPTimeout*attempts + time.Duration(cfg.RetryAttempts)*dataflows.DefaultRetryConfig(0).MaxDelay

	return &DataAgent{
		quotes:          p.Quotes,
		fundamentals:    p.Fundamentals,
		history:         p.History,
		recommendations: p.Recommendations,
		news:            p.News,
		filings:         p.Filings,
		historyPeriod:   cfg.HistoryPeriod,
		historyInterval: cfg.HistoryInterval,
		recTail:         cfg.RecommendationsTail,
		newsDays:        cfg.NewsDays,
		callTimeout:     timeout,
		agentOptions:    buildOptions("data_agent", opts),
	}
}

// FetchData returns the snapshot for ticker. It only returns early when ctx
// is cancelled; capabilities not yet attempted are then left empty.
func (a *DataAgent) FetchData(ctx context.Context, ticker string, opts FetchOptions) *models.TickerSnapshot {
	ticker = dataflows.NormalizeSymbol(ticker)
	snap := models.NewTickerSnapshot(ticker, a.now())

	if a.quotes != nil {
		a.capture(ctx, snap, models.SourceQuote, func(ctx context.Context) error {
			q, err := a.quotes.Quote(ctx, ticker)
			if err != nil {
				return err
			}
			summary := q.Summary
			snap.Data.Summary = &summary
			snap.Data.Price = q.Price
			return nil
		})
	}

	if a.recommendations != nil {
		a.capture(ctx, snap, models.SourceRecommendations, func(ctx context.Context) error {
			recs, err := a.recommendations.Recommendations(ctx, ticker, a.recTail)
			if err != nil {
				return err
			}
			snap.Data.Recommendations = recs
			return nil
		})
	}

	if a.fundamentals != nil {
		a.capture(ctx, snap, models.SourceFundamentals, func(ctx context.Context) error {
			f, err := a.fundamentals.Fundamentals(ctx, ticker)
			if err != nil {
				return err
			}
			snap.Data.Fundamentals = f
			return nil
		})
	}

	if opts.PriceHistory && a.history != nil {
		a.capture(ctx, snap, models.SourcePriceHistory, func(ctx context.Context) error {
			bars, err := a.history.PriceHistory(ctx, ticker, a.historyPeriod, a.historyInterval)
			if err != nil {
				return err
			}
			snap.Data.PriceHistory = bars
			return nil
		})
	}

	if a.news != nil && a.newsDays > 0 {
		a.capture(ctx, snap, models.SourceNews, func(ctx context.Context) error {
			to := a.now()
			items, err := a.news.CompanyNews(ctx, ticker, to.AddDate(0, 0, -a.newsDays), to)
			if err != nil {
				return err
			}
			snap.Data.News = items
			return nil
		})
	}

	if opts.Filings && a.filings != nil {
		a.capture(ctx, snap, models.SourceFilings, func(ctx context.Context) error {
			filing, err := a.latestFiling(ctx, ticker)
			if err != nil {
				return err
			}
			snap.Data.Filings = filing
			return nil
		})
	}

	return snap
}

// latestFiling resolves the filer, finds its latest 13F-HR and downloads the
// document. A failed download leaves DownloadedFile empty.
func (a *DataAgent) latestFiling(ctx context.Context, ticker string) (*models.FilingInfo, error) {
	cik, err := a.filings.LookupCIK(ctx, ticker)
	if err != nil {
		return nil, err
	}
	filing, err := a.filings.LatestFiling(ctx, cik)
	if err != nil || filing == nil {
		return nil, err
	}
	if filing.TxtURL != "" {
		path, err := a.filings.DownloadFiling(ctx, ticker, filing)
		if err != nil {
			a.log.Warn().Err(err).Str("ticker", ticker).Msg("filing download failed")
		} else {
			filing.DownloadedFile = &path
		}
	}
	return filing, nil
}

// capture runs one capability under its own deadline and records the outcome.
func (a *DataAgent) capture(ctx context.Context, snap *models.TickerSnapshot, capability string, fn func(context.Context) error) {
	if ctx.Err() != nil {
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	a.metrics.RecordFetch(capability, err)
	a.metrics.RecordDuration("fetch_"+capability, time.Since(start).Seconds())

	if err != nil {
		a.log.Warn().Err(err).Str("ticker", snap.Ticker).Str("capability", capability).Msg("capability fetch failed")
		snap.Sources = append(snap.Sources, models.FailedSource(capability, err))
		return
	}
	snap.Sources = append(snap.Sources, capability)
}
