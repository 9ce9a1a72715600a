package display

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dyike/StockPilot/models"
)

func TestRankings(t *testing.T) {
	var buf bytes.Buffer
	price := 187.5
	Rankings(&buf, []models.RankingRecord{
		{Ticker: "AAPL", Price: &price, Score: 70, Signals: models.RankingSignals{Momentum: models.MomentumStrongUp}, Sector: "Technology", RiskFlags: []string{models.RiskHighPE}},
		{Ticker: "KO", Score: 50, Sector: "Consumer Defensive"},
	})
	out := buf.String()
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "187.50")
	assert.Contains(t, out, "High P/E")
	assert.Contains(t, out, "n/a")

	buf.Reset()
	Rankings(&buf, nil)
	assert.Contains(t, buf.String(), "No tickers ranked.")
}

func TestReport(t *testing.T) {
	bull := true
	label := "Optimal"
	var buf bytes.Buffer
	Report(&buf, &models.Report{
		RunID:  "run-7",
		Budget: 250,
		PortfolioResults: []models.TickerResult{
			{Ticker: "AAPL", Score: 70, Signals: &models.Signals{BullishTrend: &bull}, Timing: &models.TimingResult{OptimalTiming: &label, Confidence: 0.9},
				Recommendation: &models.Recommendation{BuyRecommendation: true, SuggestedAmount: 250}},
			{Ticker: "XOM", Error: "panic: boom"},
		},
		AggregatedUI: models.AggregatedUI{
			SectorDistribution:  map[string]int{"Technology": 1, "Energy": 1},
			CountryDistribution: map[string]int{},
		},
		AllocationSummary: &models.AllocationSummary{
			Summary:     "Concentrated.",
			Allocations: []models.Allocation{{Ticker: "AAPL", WeightPercent: 100, Allocation: 250}},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "run-7")
	assert.Contains(t, out, "$250.00")
	assert.Contains(t, out, "BUY")
	assert.Contains(t, out, "XOM: panic: boom")
	assert.Contains(t, out, "Energy: 1, Technology: 1")
	assert.Contains(t, out, "Concentrated.")
}

func TestFilingWithoutResult(t *testing.T) {
	var buf bytes.Buffer
	Filing(&buf, "KO", nil)
	assert.Contains(t, buf.String(), "No 13F-HR filing found for KO.")

	buf.Reset()
	path := "/tmp/AAPL_2025-02-14.txt"
	Filing(&buf, "AAPL", &models.FilingInfo{FilingDate: "2025-02-14", DownloadedFile: &path,
		Holdings: []models.FilingHolding{{Issuer: "APPLE INC", CUSIP: "037833100", Value: "1000", Shares: "10"}}})
	assert.Contains(t, buf.String(), "APPLE INC")
	assert.Contains(t, buf.String(), path)
}
