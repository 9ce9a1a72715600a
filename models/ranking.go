package models

const (
	MomentumStrongUp = "strong_up"
	MomentumSideways = "sideways"
	MomentumWeakDown = "weak_down"

	RiskHighPE         = "High P/E"
	RiskHighVolatility = "High volatility"
)

type RankingSignals struct {
	Momentum string `json:"momentum"`
}

// RankingRecord is the scanner output for one ticker. Records with Error set
// never reach ranked output.
type RankingRecord struct {
	Ticker       string         `json:"ticker"`
	Price        *float64       `json:"price"`
	Sector       string         `json:"sector"`
	Country      string         `json:"country"`
	PERatio      *float64       `json:"pe_ratio"`
	Signals      RankingSignals `json:"signals"`
	Volatility   float64        `json:"volatility"`
	LatestVolume *float64       `json:"latest_volume"`
	RiskFlags    []string       `json:"risk_flags"`
	Score        int            `json:"score"`
	Error        string         `json:"error,omitempty"`
}
