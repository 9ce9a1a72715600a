package app

import (
	"context"
	"errors"

	"github.com/dyike/StockPilot/internal/graph"
	"github.com/dyike/StockPilot/internal/storage/sqlite"
	"github.com/dyike/StockPilot/models"
)

var ErrNoEngine = errors.New("engine not available")

func (e *Engine) Run(ctx context.Context, opts graph.RunOptions) (*models.Report, error) {
	return e.Orchestrator.Run(ctx, opts)
}

func (e *Engine) Rank(ctx context.Context, tickers []string, limit int) ([]models.RankingRecord, error) {
	if limit == 0 {
		limit = e.Config.ScanLimit
	}
	return e.Orchestrator.Scanner.ScanUniverse(ctx, tickers, limit)
}

func (e *Engine) AnalyzeTicker(ctx context.Context, ticker string) (models.TickerResult, error) {
	return e.Orchestrator.AnalyzeTicker(ctx, ticker), nil
}

func (e *Engine) Filing(ctx context.Context, ticker string) (*models.FilingInfo, error) {
	return e.Orchestrator.Filing(ctx, ticker)
}

func (e *Engine) Runs(ctx context.Context, limit int) ([]sqlite.RunRecord, error) {
	return e.Store.ListRuns(ctx, limit)
}

// The Runtime methods below delegate to whichever engine is current when the
// call starts; a reload mid-call does not affect it.

func (r *Runtime) Run(ctx context.Context, opts graph.RunOptions) (*models.Report, error) {
	e := r.Engine()
	if e == nil {
		return nil, ErrNoEngine
	}
	return e.Run(ctx, opts)
}

func (r *Runtime) Rank(ctx context.Context, tickers []string, limit int) ([]models.RankingRecord, error) {
	e := r.Engine()
	if e == nil {
		return nil, ErrNoEngine
	}
	return e.Rank(ctx, tickers, limit)
}

func (r *Runtime) AnalyzeTicker(ctx context.Context, ticker string) (models.TickerResult, error) {
	e := r.Engine()
	if e == nil {
		return models.TickerResult{}, ErrNoEngine
	}
	return e.AnalyzeTicker(ctx, ticker)
}

func (r *Runtime) Filing(ctx context.Context, ticker string) (*models.FilingInfo, error) {
	e := r.Engine()
	if e == nil {
		return nil, ErrNoEngine
	}
	return e.Filing(ctx, ticker)
}

func (r *Runtime) Runs(ctx context.Context, limit int) ([]sqlite.RunRecord, error) {
	e := r.Engine()
	if e == nil {
		return nil, ErrNoEngine
	}
	return e.Runs(ctx, limit)
}
