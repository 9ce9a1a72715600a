package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockPilot/models"
)

func snapshotWith(history []models.PriceBar, price, pe *float64) *models.TickerSnapshot {
	snap := models.NewTickerSnapshot("AAPL", fixedNow)
	snap.Data.PriceHistory = history
	snap.Data.Price = price
	if pe != nil {
		snap.Data.Fundamentals = &models.Fundamentals{PERatio: pe}
	}
	return snap
}

func TestGenerateSignalsEmptyHistory(t *testing.T) {
	agent := NewSignalAgent(WithClock(fixedClock))
	set := agent.GenerateSignals(snapshotWith(nil, models.Float(100), models.Float(20)))

	assert.Equal(t, "AAPL", set.Ticker)
	assert.Equal(t, "2025-03-14T15:00:00Z", set.GeneratedTime)
	assert.Nil(t, set.Signals.BullishTrend)
	assert.Equal(t, "No price history available.", set.Signals.Error)
	assert.Empty(t, set.Signals.ShortTermTrend)
	assert.Nil(t, set.Signals.VolumeSpike)
	assert.Nil(t, set.Signals.PESignal)
}

func TestGenerateSignalsNoValidClose(t *testing.T) {
	history := []models.PriceBar{{Date: "2025-01-01", Volume: models.Float(10)}}
	set := NewSignalAgent().GenerateSignals(snapshotWith(history, nil, nil))

	assert.Nil(t, set.Signals.BullishTrend)
	assert.Equal(t, "No valid close in price history.", set.Signals.Error)
}

func TestGenerateSignalsUptrend(t *testing.T) {
	history := bars(ramp(60, 100, 1)...)
	set := NewSignalAgent().GenerateSignals(snapshotWith(history, nil, models.Float(25)))
	s := set.Signals

	require.NotNil(t, s.BullishTrend)
	assert.True(t, *s.BullishTrend, "last close above MA50")
	assert.Equal(t, models.TrendUpward, s.ShortTermTrend)
	require.NotNil(t, s.VolumeSpike)
	assert.False(t, *s.VolumeSpike)
	require.NotNil(t, s.PESignal)
	assert.True(t, *s.PESignal)
	assert.Empty(t, s.Error)

	// closes 110..159: MA50 = 134.5, closes 150..159: MA10 = 154.5
	assert.InDelta(t, 134.5, *s.MA50, 1e-9)
	assert.InDelta(t, 154.5, *s.MA10, 1e-9)
	assert.InDelta(t, 159, *s.LatestClose, 1e-9)
}

func TestGenerateSignalsUsesSnapshotPrice(t *testing.T) {
	history := bars(ramp(60, 100, 1)...)
	set := NewSignalAgent().GenerateSignals(snapshotWith(history, models.Float(50), models.Float(35)))

	assert.False(t, *set.Signals.BullishTrend)
	require.NotNil(t, set.Signals.PESignal)
	assert.False(t, *set.Signals.PESignal)
}

func TestGenerateSignalsShortHistoryClampsWindows(t *testing.T) {
	// three closes: both averages span all of them
	set := NewSignalAgent().GenerateSignals(snapshotWith(bars(10, 20, 30), nil, nil))
	s := set.Signals

	assert.Equal(t, models.TrendNeutral, s.ShortTermTrend)
	assert.InDelta(t, 20, *s.MA10, 1e-9)
	assert.InDelta(t, 20, *s.MA50, 1e-9)
	assert.True(t, *s.BullishTrend)
	assert.False(t, *s.VolumeSpike, "fewer than 20 volumes never spike")
	assert.Nil(t, s.PESignal)
}

func TestGenerateSignalsDowntrend(t *testing.T) {
	set := NewSignalAgent().GenerateSignals(snapshotWith(bars(ramp(60, 200, -1)...), nil, nil))
	assert.Equal(t, models.TrendDownward, set.Signals.ShortTermTrend)
	assert.False(t, *set.Signals.BullishTrend)
}

func TestVolumeSpike(t *testing.T) {
	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 100
	}
	assert.False(t, volumeSpike(flat))

	spiked := append(append([]float64{}, flat[:19]...), 1000)
	// mean of last 20 = (1900 + 1000) / 20 = 145, 1000 > 217.5
	assert.True(t, volumeSpike(spiked))

	assert.False(t, volumeSpike(spiked[1:]), "19 samples")
}

func TestGenerateSignalsSkipsNilBars(t *testing.T) {
	history := bars(ramp(30, 100, 1)...)
	history = append(history, models.PriceBar{Date: "2025-02-01"})
	set := NewSignalAgent().GenerateSignals(snapshotWith(history, nil, nil))

	assert.InDelta(t, 129, *set.Signals.LatestClose, 1e-9)
}
