package graph

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dyike/StockPilot/config"
	"github.com/dyike/StockPilot/internal/agents"
	"github.com/dyike/StockPilot/internal/metrics"
	"github.com/dyike/StockPilot/models"
	"github.com/dyike/StockPilot/pkg/dataflows"
)

const unknownBucket = "Unknown"

// RunLog records run lifecycle. The SQLite store implements it.
type RunLog interface {
	StartRun(ctx context.Context, runID string) error
	FinishRun(ctx context.Context, runID string, tickerCount int, runErr error) error
}

// Components are the pipeline stages the orchestrator sequences.
type Components struct {
	Scanner     *agents.MarketScanner
	Data        *agents.DataAgent
	Signals     *agents.SignalAgent
	Timing      *agents.TimingAgent
	Recommender *agents.RecommendationAgent
	Filings     dataflows.FilingRegistry
	Runs        RunLog
}

type RunOptions struct {
	// Limit caps the scanned universe; 0 uses the configured scan limit.
	Limit    int
	Tickers  []string
	Allocate bool
}

// Orchestrator runs ranking, per-ticker analysis and report assembly.
type Orchestrator struct {
	cfg *config.Config
	Components

	fetch   agents.FetchOptions
	workers int

	log     zerolog.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

type Option func(*Orchestrator)

func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(o *Orchestrator) { o.metrics = r }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(cfg *config.Config, c Components, opts ...Option) (*Orchestrator, error) {
	if c.Scanner == nil || c.Data == nil || c.Signals == nil || c.Timing == nil || c.Recommender == nil {
		return nil, fmt.Errorf("orchestrator: missing pipeline component")
	}
	o := &Orchestrator{
		cfg:        cfg,
		Components: c,
		fetch: agents.FetchOptions{
			PriceHistory: cfg.FetchPriceHistory,
			Filings:      cfg.FetchFilings,
		},
		workers: max(1, cfg.Workers),
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.With().Str("component", "orchestrator").Logger()
	return o, nil
}

// Run ranks the universe and analyzes every ranked ticker. Only a cancelled
// or expired ctx, or a failed ranking step, returns an error; per-ticker
// failures are carried in the report.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (report *models.Report, err error) {
	runID := uuid.NewString()
	log := o.log.With().Str("run_id", runID).Logger()

	if o.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RunTimeout)
		defer cancel()
	}

	if o.Runs != nil {
		if err := o.Runs.StartRun(ctx, runID); err != nil {
			log.Warn().Err(err).Msg("run log start failed")
		}
	}
	defer func() {
		o.metrics.RecordRun(err)
		if o.Runs == nil {
			return
		}
		count := 0
		if report != nil {
			count = len(report.PortfolioResults)
		}
		// the run ctx may already be done
		if ferr := o.Runs.FinishRun(context.WithoutCancel(ctx), runID, count, err); ferr != nil {
			log.Warn().Err(ferr).Msg("run log finish failed")
		}
	}()

	limit := opts.Limit
	if limit == 0 {
		limit = o.cfg.ScanLimit
	}

	start := time.Now()
	ranked, err := o.Scanner.ScanUniverse(ctx, opts.Tickers, limit)
	if err != nil {
		return nil, fmt.Errorf("rank universe: %w", err)
	}
	o.metrics.RecordDuration("rank", time.Since(start).Seconds())
	log.Info().Int("ranked", len(ranked)).Msg("universe ranked")

	results := make([]models.TickerResult, len(ranked))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i := range ranked {
		g.Go(func() error {
			results[i] = o.analyzeSafe(gctx, ranked[i].Ticker, ranked[i].RiskFlags, ranked[i].Score)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report = &models.Report{
		RunID:            runID,
		GeneratedAt:      o.now().UTC().Format(time.RFC3339),
		Budget:           o.cfg.Budget,
		PortfolioResults: results,
		AggregatedUI:     aggregate(ranked, results),
	}

	if opts.Allocate {
		report.AllocationSummary = o.allocate(ctx, results)
	}

	log.Info().Int("results", len(results)).Msg("run finished")
	return report, nil
}

// AnalyzeTicker runs the per-ticker pipeline for a single symbol. Its score
// and risk flags come from scoring the ticker on its own.
func (o *Orchestrator) AnalyzeTicker(ctx context.Context, ticker string) models.TickerResult {
	ticker = dataflows.NormalizeSymbol(ticker)
	flags, score := []string{}, 0
	if rec, err := o.Scanner.AnalyzeTicker(ctx, ticker); err != nil {
		o.log.Warn().Err(err).Str("ticker", ticker).Msg("ticker could not be scored")
	} else {
		flags, score = rec.RiskFlags, rec.Score
	}
	return o.analyzeSafe(ctx, ticker, flags, score)
}

// analyzeSafe contains panics from any stage into the result's error.
func (o *Orchestrator) analyzeSafe(ctx context.Context, ticker string, flags []string, score int) (res models.TickerResult) {
	if flags == nil {
		flags = []string{}
	}
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Str("ticker", ticker).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("ticker pipeline panicked")
			res = models.TickerResult{
				Ticker:    ticker,
				Sources:   []string{},
				RiskFlags: flags,
				Score:     score,
				Holdings:  []models.FilingHolding{},
				Error:     fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	start := time.Now()
	defer func() { o.metrics.RecordDuration("ticker", time.Since(start).Seconds()) }()

	snap := o.Data.FetchData(ctx, ticker, o.fetch)
	signals := o.Signals.GenerateSignals(snap)
	timing := o.Timing.GenerateTiming(snap, signals)
	rec := o.Recommender.GenerateRecommendation(ctx, snap, signals, timing)

	return models.TickerResult{
		Ticker:         ticker,
		Data:           &snap.Data,
		Sources:        snap.Sources,
		Signals:        &signals.Signals,
		Timing:         timing,
		Recommendation: rec,
		RiskFlags:      flags,
		Score:          score,
		Holdings:       o.holdings(ctx, snap),
	}
}

// holdings parses the filing the aggregator downloaded, or looks one up when
// the aggregator did not reach EDGAR. Any failure yields no holdings.
func (o *Orchestrator) holdings(ctx context.Context, snap *models.TickerSnapshot) []models.FilingHolding {
	empty := []models.FilingHolding{}
	if o.Filings == nil {
		return empty
	}

	if f := snap.Data.Filings; f != nil && f.DownloadedFile != nil {
		h, err := o.Filings.ParseHoldings(*f.DownloadedFile)
		if err != nil {
			o.log.Warn().Err(err).Str("ticker", snap.Ticker).Msg("parse holdings failed")
			return empty
		}
		f.Holdings = h
		return nonNil(h)
	}
	if edgarSucceeded(snap) && snap.Data.Filings == nil {
		return empty
	}

	h, err := o.lookupHoldings(ctx, snap.Ticker)
	if err != nil {
		o.log.Warn().Err(err).Str("ticker", snap.Ticker).Msg("holdings lookup failed")
		return empty
	}
	return nonNil(h)
}

func (o *Orchestrator) lookupHoldings(ctx context.Context, ticker string) ([]models.FilingHolding, error) {
	filing, err := o.Filing(ctx, ticker)
	if err != nil || filing == nil {
		return nil, err
	}
	return filing.Holdings, nil
}

// Filing returns the latest 13F-HR filing for ticker with parsed holdings.
func (o *Orchestrator) Filing(ctx context.Context, ticker string) (*models.FilingInfo, error) {
	if o.Filings == nil {
		return nil, fmt.Errorf("filing registry not configured")
	}
	return dataflows.LatestHoldings(ctx, o.Filings, ticker)
}

func edgarSucceeded(snap *models.TickerSnapshot) bool {
	for _, s := range snap.Sources {
		if s == models.SourceFilings {
			return true
		}
	}
	return false
}

func nonNil(h []models.FilingHolding) []models.FilingHolding {
	if h == nil {
		return []models.FilingHolding{}
	}
	return h
}

// allocate balances the accepted recommendations and asks for a summary.
func (o *Orchestrator) allocate(ctx context.Context, results []models.TickerResult) *models.AllocationSummary {
	var recs []models.Recommendation
	var owners []int
	for i, r := range results {
		if r.Recommendation != nil {
			recs = append(recs, *r.Recommendation)
			owners = append(owners, i)
		}
	}
	o.Recommender.BalancePortfolio(recs)

	var buys []models.Recommendation
	for k, i := range owners {
		*results[i].Recommendation = recs[k]
		if recs[k].BuyRecommendation {
			buys = append(buys, recs[k])
		}
	}
	return o.Recommender.SummarizeAndAllocate(ctx, buys, o.cfg.Budget)
}

func aggregate(ranked []models.RankingRecord, results []models.TickerResult) models.AggregatedUI {
	ui := models.AggregatedUI{
		StockUniverse:       make([]string, 0, len(ranked)),
		SelectedStocks:      make([]string, 0, len(results)),
		SectorDistribution:  map[string]int{},
		CountryDistribution: map[string]int{},
		MostBullishStocks:   []models.BullishStock{},
	}
	for _, r := range ranked {
		ui.StockUniverse = append(ui.StockUniverse, r.Ticker)
		ui.SectorDistribution[orUnknown(r.Sector)]++
		ui.CountryDistribution[orUnknown(r.Country)]++
	}
	for _, r := range results {
		ui.SelectedStocks = append(ui.SelectedStocks, r.Ticker)
		if r.Signals == nil || r.Signals.BullishTrend == nil || !*r.Signals.BullishTrend || r.Timing == nil {
			continue
		}
		b := models.BullishStock{Ticker: r.Ticker, Confidence: r.Timing.Confidence}
		if r.Timing.OptimalTiming != nil {
			b.Timing = *r.Timing.OptimalTiming
		}
		ui.MostBullishStocks = append(ui.MostBullishStocks, b)
	}
	sort.SliceStable(ui.MostBullishStocks, func(i, j int) bool {
		return ui.MostBullishStocks[i].Confidence > ui.MostBullishStocks[j].Confidence
	})
	return ui
}

func orUnknown(s string) string {
	if s == "" {
		return unknownBucket
	}
	return s
}
