package models

const (
	TrendUpward   = "upward"
	TrendDownward = "downward"
	TrendNeutral  = "neutral"
)

const (
	TimingBuyNow  = "Buy now"
	TimingBuySoon = "Consider buying soon"
	TimingWait    = "Wait"
)

// Signals is the signal map. BullishTrend is always serialized; the other
// fields are omitted when they could not be computed.
type Signals struct {
	BullishTrend   *bool    `json:"bullish_trend"`
	ShortTermTrend string   `json:"short_term_trend,omitempty"`
	VolumeSpike    *bool    `json:"volume_spike,omitempty"`
	PESignal       *bool    `json:"pe_signal,omitempty"`
	Error          string   `json:"error,omitempty"`
	MA10           *float64 `json:"ma_10,omitempty"`
	MA50           *float64 `json:"ma_50,omitempty"`
	LatestClose    *float64 `json:"latest_close,omitempty"`
}

type SignalSet struct {
	Ticker        string  `json:"ticker"`
	GeneratedTime string  `json:"generated_time"`
	Signals       Signals `json:"signals"`
}

type TimingResult struct {
	Ticker        string  `json:"ticker"`
	GeneratedTime string  `json:"generated_time"`
	OptimalTiming *string `json:"optimal_timing"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning"`
	Signals       Signals `json:"signals"`
}

func Bool(v bool) *bool {
	return &v
}
