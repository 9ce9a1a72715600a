package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockPilot/config"
	"github.com/dyike/StockPilot/models"
)

func TestRandomEstimatorSeeded(t *testing.T) {
	a := NewRandomEstimator(7)
	b := NewRandomEstimator(7)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		ea, err := a.Estimate(ctx, "AAPL")
		require.NoError(t, err)
		eb, _ := b.Estimate(ctx, "AAPL")
		assert.Equal(t, ea, eb, "same seed, same sequence")

		assert.Contains(t, momentumChoices, ea.Momentum)
		assert.GreaterOrEqual(t, ea.Volatility, 1.0)
		assert.LessOrEqual(t, ea.Volatility, 5.0)
		seen[ea.Momentum] = true
	}
	assert.Len(t, seen, 3)
}

func TestHistoryEstimator(t *testing.T) {
	up := bars(ramp(60, 100, 1)...)
	down := bars(ramp(60, 200, -1)...)
	est := &HistoryEstimator{History: &fakeHistory{bars: map[string][]models.PriceBar{
		"UP":    up,
		"DOWN":  down,
		"EMPTY": {},
	}}}
	ctx := context.Background()

	e, err := est.Estimate(ctx, "UP")
	require.NoError(t, err)
	assert.Equal(t, models.MomentumStrongUp, e.Momentum)
	assert.Greater(t, e.Volatility, 0.0)
	assert.Less(t, e.Volatility, 1.0, "a steady ramp has tiny return dispersion")

	e, err = est.Estimate(ctx, "DOWN")
	require.NoError(t, err)
	assert.Equal(t, models.MomentumWeakDown, e.Momentum)

	_, err = est.Estimate(ctx, "EMPTY")
	assert.Error(t, err)

	_, err = est.Estimate(ctx, "MISSING")
	assert.ErrorIs(t, err, errUpstream)
}

func TestRealizedVolatility(t *testing.T) {
	assert.Zero(t, realizedVolatility([]float64{100}, 20))
	assert.Zero(t, realizedVolatility([]float64{100, 101}, 20), "one return has no dispersion")

	// alternating +10% / -10% moves
	alt := []float64{100, 110, 99, 108.9, 98.01}
	assert.InDelta(t, 11.547, realizedVolatility(alt, 20), 0.01)
}

func TestNewEstimatorSelection(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	_, ok := NewEstimator(cfg, &fakeHistory{}).(*HistoryEstimator)
	assert.True(t, ok)

	_, ok = NewEstimator(cfg, nil).(*RandomEstimator)
	assert.True(t, ok, "no history source")

	cfg.ScannerEstimator = config.EstimatorRandom
	_, ok = NewEstimator(cfg, &fakeHistory{}).(*RandomEstimator)
	assert.True(t, ok)
}
