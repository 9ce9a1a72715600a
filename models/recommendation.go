package models

// Recommendation is created per run and never persisted.
type Recommendation struct {
	Ticker            string  `json:"ticker"`
	BuyRecommendation bool    `json:"buy_recommendation"`
	SuggestedAmount   float64 `json:"suggested_amount"`
	Rationale         string  `json:"rationale"`
	OptimalTiming     *string `json:"optimal_timing"`
	Sector            string  `json:"sector"`
	Fallback          bool    `json:"fallback"`
	LLMRawResponse    string  `json:"llm_raw_response"`
}

type Allocation struct {
	Ticker        string  `json:"ticker"`
	WeightPercent float64 `json:"weight_percent"`
	Allocation    float64 `json:"allocation"`
}

type AllocationSummary struct {
	Summary     string       `json:"summary"`
	Allocations []Allocation `json:"allocations"`
	Fallback    bool         `json:"fallback"`
}
