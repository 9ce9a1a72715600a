package agents

import (
	"github.com/dyike/StockPilot/models"
)

const (
	errNoHistory    = "No price history available."
	errNoValidClose = "No valid close in price history."

	peSignalThreshold = 30
)

// SignalAgent derives trend, volume and valuation signals from a snapshot.
type SignalAgent struct {
	agentOptions
}

func NewSignalAgent(opts ...Option) *SignalAgent {
	return &SignalAgent{agentOptions: buildOptions("signal_agent", opts)}
}

func (a *SignalAgent) GenerateSignals(snap *models.TickerSnapshot) *models.SignalSet {
	set := &models.SignalSet{
		Ticker:        snap.Ticker,
		GeneratedTime: a.timestamp(),
	}
	set.Signals = computeSignals(snap)
	if set.Signals.Error != "" {
		a.log.Debug().Str("ticker", snap.Ticker).Str("reason", set.Signals.Error).Msg("signals unavailable")
	}
	return set
}

func computeSignals(snap *models.TickerSnapshot) models.Signals {
	history := snap.Data.PriceHistory
	if len(history) == 0 {
		return models.Signals{Error: errNoHistory}
	}
	cs := closes(history)
	if len(cs) == 0 {
		return models.Signals{Error: errNoValidClose}
	}

	last := cs[len(cs)-1]
	price := last
	if snap.Data.Price != nil {
		price = *snap.Data.Price
	}

	ma10 := movingAverage(cs, shortWindow)
	ma50 := movingAverage(cs, longWindow)

	sig := models.Signals{
		BullishTrend: models.Bool(price > ma50),
		VolumeSpike:  models.Bool(volumeSpike(volumes(history))),
		MA10:         models.Float(round2(ma10)),
		MA50:         models.Float(round2(ma50)),
		LatestClose:  models.Float(last),
	}

	switch {
	case ma10 > ma50:
		sig.ShortTermTrend = models.TrendUpward
	case ma10 < ma50:
		sig.ShortTermTrend = models.TrendDownward
	default:
		sig.ShortTermTrend = models.TrendNeutral
	}

	if pe := snap.PERatio(); pe != nil {
		sig.PESignal = models.Bool(*pe < peSignalThreshold)
	}
	return sig
}
