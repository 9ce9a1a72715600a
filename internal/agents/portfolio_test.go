package agents

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/dyike/StockPilot/models"
)

func rec(ticker, sector string, buy bool, amount float64) models.Recommendation {
	return models.Recommendation{Ticker: ticker, Sector: sector, BuyRecommendation: buy, SuggestedAmount: amount}
}

func acceptedTotal(recs []models.Recommendation) float64 {
	sum := decimal.Zero
	for _, r := range recs {
		if r.BuyRecommendation {
			sum = sum.Add(decimal.NewFromFloat(r.SuggestedAmount))
		}
	}
	return sum.InexactFloat64()
}

func TestNormalizeAllocationsProportional(t *testing.T) {
	recs := []models.Recommendation{
		rec("AAPL", "Technology", true, 30),
		rec("TSLA", "Consumer Cyclical", false, 500),
		rec("KO", "Consumer Defensive", true, 10),
	}
	NormalizeAllocations(recs, 100)

	assert.Equal(t, 75.0, recs[0].SuggestedAmount)
	assert.Equal(t, 500.0, recs[1].SuggestedAmount, "rejected entries untouched")
	assert.Equal(t, 25.0, recs[2].SuggestedAmount)
}

func TestNormalizeAllocationsOneToTwoToThree(t *testing.T) {
	recs := []models.Recommendation{
		rec("A", "X", true, 10),
		rec("B", "Y", true, 20),
		rec("C", "Z", true, 30),
	}
	NormalizeAllocations(recs, 100)

	assert.Equal(t, 16.67, recs[0].SuggestedAmount)
	assert.Equal(t, 33.33, recs[1].SuggestedAmount)
	assert.Equal(t, 50.0, recs[2].SuggestedAmount)
	assert.Equal(t, 100.0, acceptedTotal(recs))
}

func TestNormalizeAllocationsEqualSplitWithDrift(t *testing.T) {
	recs := []models.Recommendation{
		rec("A", "X", true, 0),
		rec("B", "Y", true, 0),
		rec("C", "Z", true, 0),
	}
	NormalizeAllocations(recs, 100)

	assert.Equal(t, 33.33, recs[0].SuggestedAmount)
	assert.Equal(t, 33.33, recs[1].SuggestedAmount)
	assert.Equal(t, 33.34, recs[2].SuggestedAmount)
	assert.Equal(t, 100.0, acceptedTotal(recs))
}

func TestNormalizeAllocationsSumsToBudget(t *testing.T) {
	recs := []models.Recommendation{
		rec("A", "X", true, 7),
		rec("B", "Y", true, 13),
		rec("C", "Z", true, 29),
		rec("D", "W", true, 3.3),
	}
	NormalizeAllocations(recs, 250)
	assert.Equal(t, 250.0, acceptedTotal(recs))
}

func TestNormalizeAllocationsNoneAccepted(t *testing.T) {
	recs := []models.Recommendation{rec("A", "X", false, 10)}
	NormalizeAllocations(recs, 100)
	assert.Equal(t, 10.0, recs[0].SuggestedAmount)
}

func TestApplySectorCap(t *testing.T) {
	recs := []models.Recommendation{
		rec("AAPL", "Technology", true, 40),
		rec("MSFT", "Technology", true, 30),
		rec("KO", "Consumer Defensive", true, 30),
	}
	capped := ApplySectorCap(recs, 100)

	assert.Equal(t, []string{"Technology"}, capped)
	// technology total 70 over the 50 cap by 20, split across two peers
	assert.Equal(t, 30.0, recs[0].SuggestedAmount)
	assert.Equal(t, 20.0, recs[1].SuggestedAmount)
	assert.Equal(t, 30.0, recs[2].SuggestedAmount)
	assert.Equal(t, 80.0, acceptedTotal(recs), "cap is not re-normalized")
}

func TestApplySectorCapFloorsAtZero(t *testing.T) {
	recs := []models.Recommendation{
		rec("A", "Technology", true, 90),
		rec("B", "Technology", true, 2),
		rec("C", "Energy", true, 8),
	}
	capped := ApplySectorCap(recs, 100)

	assert.Equal(t, []string{"Technology"}, capped)
	assert.Equal(t, 69.0, recs[0].SuggestedAmount)
	assert.Equal(t, 0.0, recs[1].SuggestedAmount)
}

func TestApplySectorCapSkipsUnknownSectors(t *testing.T) {
	recs := []models.Recommendation{
		rec("A", "", true, 60),
		rec("B", "Unknown", true, 30),
		rec("C", "", true, 10),
	}
	assert.Empty(t, ApplySectorCap(recs, 100))
	assert.Equal(t, 100.0, acceptedTotal(recs))
}

func TestApplySectorCapUnderLimit(t *testing.T) {
	recs := []models.Recommendation{
		rec("A", "Tech", true, 50),
		rec("B", "Energy", true, 50),
	}
	assert.Empty(t, ApplySectorCap(recs, 100))
	assert.Equal(t, 50.0, recs[0].SuggestedAmount)
}

func TestReconcileSectorCap(t *testing.T) {
	recs := []models.Recommendation{
		rec("AAPL", "Technology", true, 40),
		rec("MSFT", "Technology", true, 30),
		rec("KO", "Consumer Defensive", true, 20),
		rec("XOM", "Energy", true, 10),
		rec("TSLA", "Consumer Cyclical", false, 0),
	}
	capped := ApplySectorCap(recs, 100)
	ReconcileSectorCap(recs, 100, capped)

	assert.Equal(t, 30.0, recs[0].SuggestedAmount)
	assert.Equal(t, 20.0, recs[1].SuggestedAmount)
	// shortfall of 20 split 2:1 between KO and XOM
	assert.Equal(t, 33.33, recs[2].SuggestedAmount)
	assert.Equal(t, 16.67, recs[3].SuggestedAmount)
	assert.Equal(t, 0.0, recs[4].SuggestedAmount)
	assert.Equal(t, 100.0, acceptedTotal(recs))
}

func TestWeightsToAllocations(t *testing.T) {
	allocs := weightsToAllocations([]string{"A", "B", "C"}, []float64{33.3, 33.3, 33.3}, 100)
	assert.Equal(t, 33.3, allocs[0].Allocation)
	assert.Equal(t, 33.3, allocs[1].Allocation)
	assert.Equal(t, 33.4, allocs[2].Allocation, "last entry absorbs drift")
	assert.Equal(t, 33.3, allocs[2].WeightPercent)
}

func TestEqualAllocations(t *testing.T) {
	allocs := equalAllocations([]string{"A", "B", "C"}, 1000)
	assert.Equal(t, 333.3, allocs[0].Allocation)
	assert.Equal(t, 333.4, allocs[2].Allocation)
	assert.Equal(t, 33.33, allocs[0].WeightPercent)
	assert.Empty(t, equalAllocations(nil, 100))
}
