package agents

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/dyike/StockPilot/models"
)

const (
	shortWindow      = 10
	longWindow       = 50
	volumeWindow     = 20
	volatilityWindow = 20
	volumeSpikeRatio = 1.5
)

// closes returns the non-nil closes in bar order.
func closes(bars []models.PriceBar) []float64 {
	out := make([]float64, 0, len(bars))
	for _, b := range bars {
		if b.Close != nil {
			out = append(out, *b.Close)
		}
	}
	return out
}

func volumes(bars []models.PriceBar) []float64 {
	out := make([]float64, 0, len(bars))
	for _, b := range bars {
		if b.Volume != nil {
			out = append(out, *b.Volume)
		}
	}
	return out
}

// movingAverage is the mean of the last min(len(values), window) values.
func movingAverage(values []float64, window int) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) > window {
		values = values[len(values)-window:]
	}
	return stat.Mean(values, nil)
}

// volumeSpike compares the latest volume with the mean of the last 20. Fewer
// than 20 samples never spike.
func volumeSpike(vols []float64) bool {
	if len(vols) < volumeWindow {
		return false
	}
	avg := stat.Mean(vols[len(vols)-volumeWindow:], nil)
	return vols[len(vols)-1] > volumeSpikeRatio*avg
}

// realizedVolatility is the sample standard deviation of the last window
// daily returns, in percent.
func realizedVolatility(values []float64, window int) float64 {
	if len(values) > window+1 {
		values = values[len(values)-window-1:]
	}
	returns := make([]float64, 0, len(values))
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		returns = append(returns, values[i]/values[i-1]-1)
	}
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil) * 100
}

// momentum classifies trend from the 10/50 averages and the latest close.
func momentum(values []float64) string {
	if len(values) == 0 {
		return models.MomentumSideways
	}
	ma10 := movingAverage(values, shortWindow)
	ma50 := movingAverage(values, longWindow)
	last := values[len(values)-1]
	switch {
	case ma10 > ma50 && last > ma50:
		return models.MomentumStrongUp
	case ma10 < ma50 && last < ma50:
		return models.MomentumWeakDown
	}
	return models.MomentumSideways
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
