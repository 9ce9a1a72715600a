package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/StockPilot/config"
	"github.com/dyike/StockPilot/internal/utils"
	"github.com/dyike/StockPilot/models"
)

const systemMessage = "You are a helpful and accurate financial assistant."

const (
	opRecommendation = "recommendation"
	opAllocation     = "allocation"

	noBuyStocksSummary = "No buy-recommended stocks available."
)

// PortfolioInput is one ticker's pipeline output fed to the composer.
type PortfolioInput struct {
	Snapshot *models.TickerSnapshot
	Signals  *models.SignalSet
	Timing   *models.TimingResult
}

type chatRunnable = compose.Runnable[map[string]any, *schema.Message]

// RecommendationAgent asks a chat model for buy recommendations and budget
// allocations. Every model failure degrades to a deterministic fallback.
type RecommendationAgent struct {
	budget    float64
	reconcile bool

	recommend chatRunnable
	allocate  chatRunnable

	agentOptions
}

// NewRecommendationAgent compiles the recommendation and allocation chains.
// summaryModel may be nil, in which case chat serves both.
func NewRecommendationAgent(ctx context.Context, cfg *config.Config, chat, summaryModel model.ChatModel, opts ...Option) (*RecommendationAgent, error) {
	if summaryModel == nil {
		summaryModel = chat
	}

	recTpl := prompt.FromMessages(schema.GoTemplate,
		schema.SystemMessage(systemMessage),
		schema.UserMessage(utils.MustLoadPrompt("recommendation")),
	)
	recommend, err := compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(recTpl).
		AppendChatModel(chat).
		Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile recommendation chain: %w", err)
	}

	allocTpl := prompt.FromMessages(schema.GoTemplate,
		schema.UserMessage(utils.MustLoadPrompt("allocation")),
	)
	allocate, err := compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(allocTpl).
		AppendChatModel(summaryModel).
		Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile allocation chain: %w", err)
	}

	return &RecommendationAgent{
		budget:       cfg.Budget,
		reconcile:    cfg.ReconcileSectorCap,
		recommend:    recommend,
		allocate:     allocate,
		agentOptions: buildOptions("recommendation_agent", opts),
	}, nil
}

func (a *RecommendationAgent) Budget() float64 {
	return a.budget
}

// GenerateRecommendation returns the model's recommendation for snap. signals
// and timing are optional.
func (a *RecommendationAgent) GenerateRecommendation(ctx context.Context, snap *models.TickerSnapshot, signals *models.SignalSet, timing *models.TimingResult) *models.Recommendation {
	rec := &models.Recommendation{Ticker: snap.Ticker, Sector: snap.Sector()}

	vars, err := a.recommendationVars(snap, signals, timing)
	if err != nil {
		return a.recommendationFallback(rec, err)
	}

	msg, err := a.recommend.Invoke(ctx, vars, a.invokeOptions()...)
	if err != nil {
		return a.recommendationFallback(rec, err)
	}
	rec.LLMRawResponse = msg.Content

	payload, err := parseRecommendation(msg.Content)
	if err != nil {
		return a.recommendationFallback(rec, err)
	}
	rec.BuyRecommendation = *payload.BuyRecommendation
	rec.SuggestedAmount = float64(*payload.SuggestedAmount)
	rec.Rationale = *payload.Rationale
	rec.OptimalTiming = payload.OptimalTiming
	return rec
}

func (a *RecommendationAgent) recommendationVars(snap *models.TickerSnapshot, signals *models.SignalSet, timing *models.TimingResult) (map[string]any, error) {
	data, err := json.Marshal(snap.Data)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	vars := map[string]any{
		"budget":   strconv.FormatFloat(a.budget, 'f', -1, 64),
		"ticker":   snap.Ticker,
		"snapshot": string(data),
		"signals":  "",
		"timing":   "",
	}
	if signals != nil {
		b, err := json.Marshal(signals.Signals)
		if err != nil {
			return nil, fmt.Errorf("encode signals: %w", err)
		}
		vars["signals"] = string(b)
	}
	if timing != nil {
		b, err := json.Marshal(timing)
		if err != nil {
			return nil, fmt.Errorf("encode timing: %w", err)
		}
		vars["timing"] = string(b)
	}
	return vars, nil
}

// recommendationFallback keeps whatever raw response rec already carries.
func (a *RecommendationAgent) recommendationFallback(rec *models.Recommendation, cause error) *models.Recommendation {
	a.log.Warn().Err(cause).Str("ticker", rec.Ticker).Msg("recommendation fallback")
	a.metrics.RecordFallback(opRecommendation)

	rec.BuyRecommendation = false
	rec.SuggestedAmount = 0
	rec.Rationale = "Fallback: LLM returned invalid JSON or error: " + cause.Error()
	rec.OptimalTiming = nil
	rec.Fallback = true
	return rec
}

// GeneratePortfolioRecommendations recommends every input, normalizes the
// accepted amounts to the budget and applies the sector cap.
func (a *RecommendationAgent) GeneratePortfolioRecommendations(ctx context.Context, inputs []PortfolioInput) []models.Recommendation {
	recs := make([]models.Recommendation, 0, len(inputs))
	for _, in := range inputs {
		if ctx.Err() != nil {
			break
		}
		recs = append(recs, *a.GenerateRecommendation(ctx, in.Snapshot, in.Signals, in.Timing))
	}

	a.BalancePortfolio(recs)
	return recs
}

// BalancePortfolio normalizes accepted amounts to the budget and applies the
// sector cap, reconciling the shortfall when configured to.
func (a *RecommendationAgent) BalancePortfolio(recs []models.Recommendation) {
	NormalizeAllocations(recs, a.budget)
	capped := ApplySectorCap(recs, a.budget)
	if len(capped) == 0 {
		return
	}
	a.log.Info().Strs("sectors", capped).Msg("sector cap applied")
	if a.reconcile {
		ReconcileSectorCap(recs, a.budget, capped)
	}
}

type allocationStock struct {
	Ticker          string  `json:"ticker"`
	Sector          string  `json:"sector"`
	SuggestedAmount float64 `json:"suggested_amount"`
	Rationale       string  `json:"rationale"`
	OptimalTiming   *string `json:"optimal_timing"`
}

// SummarizeAndAllocate asks the model for a summary and percentage weights
// over the buy-recommended stocks and converts them to dollar amounts.
func (a *RecommendationAgent) SummarizeAndAllocate(ctx context.Context, buyStocks []models.Recommendation, budget float64) *models.AllocationSummary {
	if len(buyStocks) == 0 {
		return &models.AllocationSummary{Summary: noBuyStocksSummary, Allocations: []models.Allocation{}}
	}

	stocks := make([]allocationStock, len(buyStocks))
	tickers := make([]string, len(buyStocks))
	for i, r := range buyStocks {
		stocks[i] = allocationStock{
			Ticker:          r.Ticker,
			Sector:          r.Sector,
			SuggestedAmount: r.SuggestedAmount,
			Rationale:       r.Rationale,
			OptimalTiming:   r.OptimalTiming,
		}
		tickers[i] = r.Ticker
	}
	data, err := json.Marshal(stocks)
	if err != nil {
		return a.allocationFallback(tickers, budget, err)
	}

	msg, err := a.allocate.Invoke(ctx, map[string]any{"stocks": string(data)}, a.invokeOptions()...)
	if err != nil {
		return a.allocationFallback(tickers, budget, err)
	}
	payload, err := parseAllocation(msg.Content)
	if err != nil {
		return a.allocationFallback(tickers, budget, err)
	}

	outTickers := make([]string, len(payload.Allocations))
	weights := make([]float64, len(payload.Allocations))
	for i, al := range payload.Allocations {
		outTickers[i] = al.Ticker
		weights[i] = float64(al.WeightPercent)
	}
	return &models.AllocationSummary{
		Summary:     payload.Summary,
		Allocations: weightsToAllocations(outTickers, weights, budget),
	}
}

func (a *RecommendationAgent) allocationFallback(tickers []string, budget float64, cause error) *models.AllocationSummary {
	a.log.Warn().Err(cause).Int("stocks", len(tickers)).Msg("allocation fallback")
	a.metrics.RecordFallback(opAllocation)
	return &models.AllocationSummary{
		Summary:     "Fallback: LLM error or invalid output: " + cause.Error(),
		Allocations: equalAllocations(tickers, budget),
		Fallback:    true,
	}
}
