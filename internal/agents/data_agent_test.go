package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockPilot/config"
	"github.com/dyike/StockPilot/internal/metrics"
	"github.com/dyike/StockPilot/models"
	"github.com/dyike/StockPilot/pkg/dataflows"
)

func dataAgentFixture(t *testing.T, p *dataflows.Providers) *DataAgent {
	t.Helper()
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	return NewDataAgent(cfg, p, WithClock(fixedClock), WithMetrics(metrics.New()))
}

func fullProviders(filings *fakeFilings) *dataflows.Providers {
	return &dataflows.Providers{
		Quotes: &fakeQuotes{quotes: map[string]*dataflows.Quote{
			"AAPL": {Price: models.Float(190), Summary: models.QuoteSummary{Name: "Apple Inc."}},
		}},
		Fundamentals: &fakeFundamentals{data: map[string]*models.Fundamentals{
			"AAPL": {Sector: "Technology", PERatio: models.Float(28)},
		}},
		History:         &fakeHistory{bars: map[string][]models.PriceBar{"AAPL": bars(1, 2, 3)}},
		Recommendations: &fakeRecommendations{},
		News:            fakeNews{},
		Filings:         filings,
	}
}

func TestFetchDataAllSources(t *testing.T) {
	filings := &fakeFilings{filing: &models.FilingInfo{FilingDate: "2025-02-14", AccessionNumber: "0000950123-25-002", TxtURL: "https://sec.example/doc.txt"}}
	agent := dataAgentFixture(t, fullProviders(filings))

	snap := agent.FetchData(context.Background(), "aapl", DefaultFetchOptions())

	assert.Equal(t, "AAPL", snap.Ticker)
	assert.Equal(t, "2025-03-14T15:00:00Z", snap.FetchTime)
	assert.Equal(t, []string{
		models.SourceQuote,
		models.SourceRecommendations,
		models.SourceFundamentals,
		models.SourcePriceHistory,
		models.SourceNews,
		models.SourceFilings,
	}, snap.Sources)

	require.NotNil(t, snap.Data.Price)
	assert.Equal(t, 190.0, *snap.Data.Price)
	assert.Equal(t, "Apple Inc.", snap.Data.Summary.Name)
	assert.Len(t, snap.Data.PriceHistory, 3)
	assert.Len(t, snap.Data.Recommendations, 1)
	assert.Len(t, snap.Data.News, 1)
	require.NotNil(t, snap.Data.Filings)
	require.NotNil(t, snap.Data.Filings.DownloadedFile)
	assert.Equal(t, "/tmp/AAPL_2025-02-14.txt", *snap.Data.Filings.DownloadedFile)
}

func TestFetchDataIsolatesFailures(t *testing.T) {
	p := fullProviders(&fakeFilings{cikErr: dataflows.ErrNotFound})
	p.Recommendations = &fakeRecommendations{err: dataflows.ErrMissingAPIKey}
	p.History = &fakeHistory{}
	agent := dataAgentFixture(t, p)

	snap := agent.FetchData(context.Background(), "AAPL", DefaultFetchOptions())

	assert.Equal(t, []string{
		models.SourceQuote,
		"AnalystRecommendations_failed:api key not configured",
		models.SourceFundamentals,
		"YahooPriceHistory_failed:upstream unavailable",
		models.SourceNews,
		"EDGAR_failed:not found",
	}, snap.Sources)
	assert.Nil(t, snap.Data.Recommendations)
	assert.Nil(t, snap.Data.PriceHistory)
	assert.Nil(t, snap.Data.Filings)
	assert.NotNil(t, snap.Data.Fundamentals, "later capabilities still run")
}

func TestFetchDataSingleFailedCapability(t *testing.T) {
	p := fullProviders(&fakeFilings{filing: &models.FilingInfo{FilingDate: "2025-02-14"}})
	p.History = &fakeHistory{}
	agent := dataAgentFixture(t, p)

	snap := agent.FetchData(context.Background(), "AAPL", DefaultFetchOptions())

	var failed []string
	for _, src := range snap.Sources {
		if strings.Contains(src, "_failed") {
			failed = append(failed, src)
		}
	}
	assert.Equal(t, []string{"YahooPriceHistory_failed:upstream unavailable"}, failed)
	assert.Len(t, snap.Sources, 6)
	assert.NotNil(t, snap.Data.Price)
	assert.NotNil(t, snap.Data.Fundamentals)
	assert.Empty(t, snap.Data.PriceHistory)
}

func TestFetchDataUnknownTicker(t *testing.T) {
	agent := dataAgentFixture(t, fullProviders(&fakeFilings{}))
	snap := agent.FetchData(context.Background(), "ZZZZ", FetchOptions{})

	require.Len(t, snap.Sources, 4)
	assert.Equal(t, "YahooFinance_failed:upstream unavailable", snap.Sources[0])
	assert.Nil(t, snap.Data.Price)
	assert.Nil(t, snap.Data.Summary)
	assert.Nil(t, snap.Data.Fundamentals)
}

func TestFetchDataToggles(t *testing.T) {
	filings := &fakeFilings{}
	p := fullProviders(filings)
	p.News = nil
	agent := dataAgentFixture(t, p)

	snap := agent.FetchData(context.Background(), "AAPL", FetchOptions{})

	assert.Equal(t, []string{models.SourceQuote, models.SourceRecommendations, models.SourceFundamentals}, snap.Sources)
	assert.Nil(t, snap.Data.PriceHistory)
	assert.Zero(t, filings.lookups)
}

func TestFetchDataFilingEdgeCases(t *testing.T) {
	t.Run("no filing", func(t *testing.T) {
		agent := dataAgentFixture(t, fullProviders(&fakeFilings{}))
		snap := agent.FetchData(context.Background(), "AAPL", DefaultFetchOptions())
		assert.Contains(t, snap.Sources, models.SourceFilings)
		assert.Nil(t, snap.Data.Filings)
	})

	t.Run("download fails", func(t *testing.T) {
		filings := &fakeFilings{
			filing:      &models.FilingInfo{FilingDate: "2025-02-14", TxtURL: "https://sec.example/doc.txt"},
			downloadErr: errors.New("disk full"),
		}
		agent := dataAgentFixture(t, fullProviders(filings))
		snap := agent.FetchData(context.Background(), "AAPL", DefaultFetchOptions())

		assert.Contains(t, snap.Sources, models.SourceFilings)
		require.NotNil(t, snap.Data.Filings)
		assert.Nil(t, snap.Data.Filings.DownloadedFile)
	})
}

func TestFetchDataCancelled(t *testing.T) {
	agent := dataAgentFixture(t, fullProviders(&fakeFilings{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap := agent.FetchData(ctx, "AAPL", DefaultFetchOptions())
	assert.Empty(t, snap.Sources)
	assert.Equal(t, "AAPL", snap.Ticker)
}
