package agents

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/dyike/StockPilot/config"
	"github.com/dyike/StockPilot/models"
	"github.com/dyike/StockPilot/pkg/dataflows"
)

// Estimate is the momentum and volatility the scanner scores a ticker with.
// Volatility is unrounded.
type Estimate struct {
	Momentum   string
	Volatility float64
}

// SignalEstimator supplies the ranking signals of a ticker.
type SignalEstimator interface {
	Estimate(ctx context.Context, ticker string) (Estimate, error)
}

// HistoryEstimator derives momentum from the 10/50 moving averages and
// volatility from the last 20 daily returns.
type HistoryEstimator struct {
	History  dataflows.PriceHistorySource
	Period   string
	Interval string
}

func (e *HistoryEstimator) Estimate(ctx context.Context, ticker string) (Estimate, error) {
	bars, err := e.History.PriceHistory(ctx, ticker, e.Period, e.Interval)
	if err != nil {
		return Estimate{}, fmt.Errorf("price history: %w", err)
	}
	cs := closes(bars)
	if len(cs) == 0 {
		return Estimate{}, fmt.Errorf("price history for %s: %w", ticker, dataflows.ErrNoData)
	}
	return Estimate{
		Momentum:   momentum(cs),
		Volatility: realizedVolatility(cs, volatilityWindow),
	}, nil
}

var momentumChoices = []string{models.MomentumStrongUp, models.MomentumSideways, models.MomentumWeakDown}

// RandomEstimator draws momentum uniformly from the three classes and
// volatility uniformly from [1, 5). A fixed seed makes scans reproducible.
type RandomEstimator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomEstimator(seed uint64) *RandomEstimator {
	return &RandomEstimator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (e *RandomEstimator) Estimate(_ context.Context, _ string) (Estimate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Estimate{
		Momentum:   momentumChoices[e.rng.IntN(len(momentumChoices))],
		Volatility: 1 + 4*e.rng.Float64(),
	}, nil
}

// NewEstimator selects the estimator named by cfg.ScannerEstimator.
func NewEstimator(cfg *config.Config, history dataflows.PriceHistorySource) SignalEstimator {
	if cfg.ScannerEstimator == config.EstimatorRandom || history == nil {
		return NewRandomEstimator(uint64(cfg.ScannerSeed))
	}
	return &HistoryEstimator{History: history, Period: cfg.HistoryPeriod, Interval: cfg.HistoryInterval}
}
