package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/StockPilot/config"
	"github.com/dyike/StockPilot/internal/agents"
	"github.com/dyike/StockPilot/internal/graph"
	"github.com/dyike/StockPilot/internal/metrics"
	"github.com/dyike/StockPilot/internal/storage/sqlite"
	"github.com/dyike/StockPilot/pkg/dataflows"
	"github.com/dyike/StockPilot/pkg/llm"
)

// Market is the model-free part of the pipeline: providers, the ranker and
// the store behind the EDGAR index.
type Market struct {
	Config    config.Config
	Providers *dataflows.Providers
	Scanner   *agents.MarketScanner
	Store     *sqlite.Store

	ownsStore bool
}

func (m *Market) Close() error {
	if m == nil || !m.ownsStore {
		return nil
	}
	return m.Store.Close()
}

// Engine is one fully wired pipeline built from a config snapshot.
type Engine struct {
	Config       config.Config
	BuiltAt      time.Time
	Version      uint64
	Providers    *dataflows.Providers
	Orchestrator *graph.Orchestrator
	Store        *sqlite.Store

	ownsStore bool
}

var engineSeq atomic.Uint64

// Builder carries the process-wide dependencies shared by every engine.
type Builder struct {
	Log     zerolog.Logger
	Metrics *metrics.Recorder
}

func (b Builder) agentOptions() []agents.Option {
	return []agents.Option{
		agents.WithLogger(b.Log),
		agents.WithMetrics(b.Metrics),
		agents.WithCallbacks(graph.NewLoggerCallback(b.Log)),
	}
}

// OpenStore prepares the directories of cfg and opens its database.
func OpenStore(cfg config.Config) (*sqlite.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

// BuildMarket wires everything that does not need a model credential. The
// market owns the store it opens.
func (b Builder) BuildMarket(cfg config.Config) (*Market, error) {
	return b.buildMarket(cfg, nil)
}

// buildMarket uses store when given; the caller keeps ownership of it.
func (b Builder) buildMarket(cfg config.Config, store *sqlite.Store) (*Market, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	owns := store == nil
	if owns {
		var err error
		if store, err = sqlite.Open(cfg.DBPath); err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}
	providers, err := dataflows.NewProviders(&cfg, dataflows.WithCIKIndex(store))
	if err != nil {
		if owns {
			_ = store.Close()
		}
		return nil, fmt.Errorf("build providers: %w", err)
	}

	return &Market{
		Config:    cfg,
		Providers: providers,
		Scanner:   agents.NewMarketScanner(&cfg, providers, nil, b.agentOptions()...),
		Store:     store,
		ownsStore: owns,
	}, nil
}

// Build wires a full engine that owns its store.
func (b Builder) Build(cfg config.Config) (*Engine, error) {
	return b.BuildWithStore(cfg, nil)
}

// BuildWithStore wires a full engine on a shared store, which Close leaves
// open. A nil store behaves like Build.
func (b Builder) BuildWithStore(cfg config.Config, store *sqlite.Store) (*Engine, error) {
	market, err := b.buildMarket(cfg, store)
	if err != nil {
		return nil, err
	}
	engine, err := b.wire(context.Background(), market)
	if err != nil {
		_ = market.Close()
		return nil, err
	}
	return engine, nil
}

func (b Builder) wire(ctx context.Context, m *Market) (*Engine, error) {
	cfg := &m.Config

	chat, err := llm.NewChatModel(ctx, cfg, cfg.LLMModel)
	if err != nil {
		return nil, err
	}
	summary, err := llm.NewChatModel(ctx, cfg, cfg.SummaryLLM)
	if err != nil {
		return nil, err
	}

	opts := b.agentOptions()
	recommender, err := agents.NewRecommendationAgent(ctx, cfg, chat, summary, opts...)
	if err != nil {
		return nil, err
	}

	orch, err := graph.NewOrchestrator(cfg, graph.Components{
		Scanner:     m.Scanner,
		Data:        agents.NewDataAgent(cfg, m.Providers, opts...),
		Signals:     agents.NewSignalAgent(opts...),
		Timing:      agents.NewTimingAgent(opts...),
		Recommender: recommender,
		Filings:     m.Providers.Filings,
		Runs:        m.Store,
	}, graph.WithLogger(b.Log), graph.WithMetrics(b.Metrics))
	if err != nil {
		return nil, err
	}

	return &Engine{
		Config:       *cfg,
		BuiltAt:      time.Now(),
		Version:      engineSeq.Add(1),
		Providers:    m.Providers,
		Orchestrator: orch,
		Store:        m.Store,
		ownsStore:    m.ownsStore,
	}, nil
}

func (e *Engine) Close() error {
	if e == nil || !e.ownsStore || e.Store == nil {
		return nil
	}
	return e.Store.Close()
}
