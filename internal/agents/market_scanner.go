package agents

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/dyike/StockPilot/config"
	"github.com/dyike/StockPilot/models"
	"github.com/dyike/StockPilot/pkg/dataflows"
)

const (
	baseScore         = 50
	momentumBonus     = 20
	valuationBonus    = 15
	cleanBonus        = 10
	riskPenalty       = 5
	highPEThreshold   = 40
	highVolThreshold  = 4
	fairPELow         = 10
	fairPEHigh        = 25
	unknownClassifier = "Unknown"
)

// MarketScanner scores a ticker universe and ranks it.
type MarketScanner struct {
	quotes       dataflows.QuoteSource
	fundamentals dataflows.FundamentalsSource
	universe     dataflows.UniverseSource
	estimator    SignalEstimator
	workers      int

	agentOptions
}

func NewMarketScanner(cfg *config.Config, p *dataflows.Providers, estimator SignalEstimator, opts ...Option) *MarketScanner {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if estimator == nil {
		estimator = NewEstimator(cfg, p.History)
	}
	return &MarketScanner{
		quotes:       p.Quotes,
		fundamentals: p.Fundamentals,
		universe:     p.Universe,
		estimator:    estimator,
		workers:      workers,
		agentOptions: buildOptions("market_scanner", opts),
	}
}

// Universe resolves the tickers to scan. An empty list selects the live
// S&P 500 constituents, or the built-in sample when those are unavailable.
// limit > 0 truncates.
func (s *MarketScanner) Universe(ctx context.Context, tickers []string, limit int) []string {
	if len(tickers) == 0 {
		tickers = s.defaultUniverse(ctx)
	}
	if limit > 0 && len(tickers) > limit {
		tickers = tickers[:limit]
	}
	out := make([]string, len(tickers))
	for i, t := range tickers {
		out[i] = dataflows.NormalizeSymbol(t)
	}
	return out
}

func (s *MarketScanner) defaultUniverse(ctx context.Context) []string {
	if s.universe != nil {
		tickers, err := s.universe.Tickers(ctx)
		if err == nil && len(tickers) > 0 {
			return tickers
		}
		s.log.Warn().Err(err).Msg("live universe unavailable, using fallback sample")
	}
	return append([]string(nil), dataflows.FallbackUniverse...)
}

// ScanUniverse scores every ticker and returns the successful records sorted
// by descending score. Ties keep scan order. Failed tickers are dropped.
func (s *MarketScanner) ScanUniverse(ctx context.Context, tickers []string, limit int) ([]models.RankingRecord, error) {
	universe := s.Universe(ctx, tickers, limit)
	slots := make([]models.RankingRecord, len(universe))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, ticker := range universe {
		g.Go(func() error {
			slots[i] = s.scoreSafe(gctx, ticker)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ranked := make([]models.RankingRecord, 0, len(slots))
	for _, rec := range slots {
		if rec.Error != "" {
			s.log.Warn().Str("ticker", rec.Ticker).Str("error", rec.Error).Msg("ticker dropped from ranking")
			s.metrics.RecordRankingDropped()
			continue
		}
		ranked = append(ranked, rec)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked, nil
}

// scoreSafe converts a panic in scoring into an error record.
func (s *MarketScanner) scoreSafe(ctx context.Context, ticker string) (rec models.RankingRecord) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("ticker", ticker).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("scoring panicked")
			rec = models.RankingRecord{Ticker: ticker, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()
	r, err := s.AnalyzeTicker(ctx, ticker)
	if err != nil {
		return models.RankingRecord{Ticker: ticker, Error: err.Error()}
	}
	return *r
}

// AnalyzeTicker builds the ranking record of a single ticker.
func (s *MarketScanner) AnalyzeTicker(ctx context.Context, ticker string) (*models.RankingRecord, error) {
	q, err := s.quotes.Quote(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}
	rec := &models.RankingRecord{
		Ticker:       ticker,
		Price:        q.Price,
		Sector:       unknownClassifier,
		Country:      unknownClassifier,
		LatestVolume: q.Summary.Volume,
		RiskFlags:    []string{},
	}
	if rec.Price == nil {
		rec.Price = q.Summary.PreviousClose
	}

	if s.fundamentals != nil {
		f, err := s.fundamentals.Fundamentals(ctx, ticker)
		if err != nil {
			return nil, fmt.Errorf("fundamentals: %w", err)
		}
		if f.Sector != "" {
			rec.Sector = f.Sector
		}
		if f.Country != "" {
			rec.Country = f.Country
		}
		rec.PERatio = f.PERatio
	}

	est, err := s.estimator.Estimate(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("estimate: %w", err)
	}
	rec.Signals = models.RankingSignals{Momentum: est.Momentum}
	rec.Volatility = round2(est.Volatility)

	rec.RiskFlags = riskFlags(rec.PERatio, est.Volatility)
	rec.Score = compositeScore(est.Momentum, rec.PERatio, rec.RiskFlags)
	return rec, nil
}

func riskFlags(pe *float64, volatility float64) []string {
	flags := []string{}
	if pe != nil && *pe > highPEThreshold {
		flags = append(flags, models.RiskHighPE)
	}
	if volatility > highVolThreshold {
		flags = append(flags, models.RiskHighVolatility)
	}
	return flags
}

// compositeScore is clamped to [0, 100].
func compositeScore(momentum string, pe *float64, flags []string) int {
	score := baseScore
	if momentum == models.MomentumStrongUp {
		score += momentumBonus
	}
	if pe != nil && *pe >= fairPELow && *pe <= fairPEHigh {
		score += valuationBonus
	}
	if len(flags) == 0 {
		score += cleanBonus
	}
	score -= len(flags) * riskPenalty
	return max(0, min(100, score))
}
