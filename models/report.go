package models

// TickerResult is one entry of Report.PortfolioResults.
type TickerResult struct {
	Ticker         string          `json:"ticker"`
	Data           *SnapshotData   `json:"data"`
	Sources        []string        `json:"sources"`
	Signals        *Signals        `json:"signals"`
	Timing         *TimingResult   `json:"timing"`
	Recommendation *Recommendation `json:"recommendation"`
	RiskFlags      []string        `json:"risk_flags"`
	Score          int             `json:"score"`
	Holdings       []FilingHolding `json:"13f_holdings"`
	Error          string          `json:"error,omitempty"`
}

type BullishStock struct {
	Ticker     string  `json:"ticker"`
	Confidence float64 `json:"confidence"`
	Timing     string  `json:"optimal_timing"`
}

// AggregatedUI is the dashboard summary of a run.
type AggregatedUI struct {
	StockUniverse       []string       `json:"stock_universe"`
	SelectedStocks      []string       `json:"selected_stocks"`
	SectorDistribution  map[string]int `json:"sector_distribution"`
	CountryDistribution map[string]int `json:"country_distribution"`
	MostBullishStocks   []BullishStock `json:"most_bullish_stocks"`
}

type Report struct {
	RunID             string             `json:"run_id"`
	GeneratedAt       string             `json:"generated_at"`
	Budget            float64            `json:"budget"`
	PortfolioResults  []TickerResult     `json:"portfolio_results"`
	AggregatedUI      AggregatedUI       `json:"aggregated_ui"`
	AllocationSummary *AllocationSummary `json:"allocation_summary,omitempty"`
}
