package agents

import (
	"math"
	"strings"

	"github.com/dyike/StockPilot/models"
)

const errNoTimingHistory = "No price history available for timing analysis."

// TimingAgent turns a signal set into a confidence score and a timing label.
type TimingAgent struct {
	agentOptions
}

func NewTimingAgent(opts ...Option) *TimingAgent {
	return &TimingAgent{agentOptions: buildOptions("timing_agent", opts)}
}

// GenerateTiming scores the signals of snap. A nil signals value is treated
// as an empty signal map.
func (a *TimingAgent) GenerateTiming(snap *models.TickerSnapshot, signals *models.SignalSet) *models.TimingResult {
	res := &models.TimingResult{
		Ticker:        snap.Ticker,
		GeneratedTime: a.timestamp(),
	}
	if signals != nil {
		res.Signals = signals.Signals
	}

	if len(snap.Data.PriceHistory) == 0 {
		res.Reasoning = errNoTimingHistory
		return res
	}
	if len(closes(snap.Data.PriceHistory)) == 0 {
		res.Reasoning = errNoValidClose
		return res
	}

	confidence, reasons := scoreTiming(res.Signals)
	label := timingLabel(confidence)
	res.Confidence = confidence
	res.OptimalTiming = &label
	res.Reasoning = strings.Join(reasons, " ")
	return res
}

// scoreTiming evaluates bullish, short-term, volume then P/E. Every step
// contributes exactly one sentence.
func scoreTiming(s models.Signals) (float64, []string) {
	var confidence float64
	reasons := make([]string, 0, 4)

	if s.BullishTrend != nil && *s.BullishTrend {
		confidence += 0.4
		reasons = append(reasons, "Bullish trend confirmed.")
	} else {
		reasons = append(reasons, "Not bullish.")
	}

	switch s.ShortTermTrend {
	case models.TrendUpward:
		confidence += 0.2
		reasons = append(reasons, "Short-term trend upward.")
	case models.TrendNeutral:
		confidence += 0.1
		reasons = append(reasons, "Short-term trend neutral.")
	default:
		reasons = append(reasons, "Short-term trend downward.")
	}

	if s.VolumeSpike != nil && !*s.VolumeSpike {
		confidence += 0.2
		reasons = append(reasons, "No volume spike detected.")
	} else {
		reasons = append(reasons, "Volume spike detected; caution.")
	}

	switch {
	case s.PESignal == nil:
		reasons = append(reasons, "PE ratio unknown.")
	case *s.PESignal:
		confidence += 0.2
		reasons = append(reasons, "PE ratio favorable.")
	default:
		reasons = append(reasons, "PE ratio unfavorable.")
	}

	return math.Min(1, math.Max(0, round2(confidence))), reasons
}

func timingLabel(confidence float64) string {
	switch {
	case confidence >= 0.7:
		return models.TimingBuyNow
	case confidence >= 0.4:
		return models.TimingBuySoon
	}
	return models.TimingWait
}
