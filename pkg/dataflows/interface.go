package dataflows

import (
	"github.com/dyike/StockPilot/config"
)

// Providers bundles the upstream clients selected by configuration. A nil
// field means the capability is not available.
type Providers struct {
	Quotes          QuoteSource
	Fundamentals    FundamentalsSource
	History         PriceHistorySource
	Recommendations RecommendationSource
	News            NewsSource
	Filings         FilingRegistry
	Universe        UniverseSource
}

// NewProviders builds the provider set for cfg. Finnhub-backed capabilities
// are attached only when a Finnhub key is configured, except recommendations,
// which always exist so that a missing key is reported as a failed source.
func NewProviders(cfg *config.Config, opts ...EdgarOption) (*Providers, error) {
	yahoo := NewYahooFinanceClient(cfg)
	finnhub := NewFinnhubClient(cfg)

	p := &Providers{
		Quotes:          yahoo,
		Fundamentals:    yahoo,
		History:         yahoo,
		Recommendations: finnhub,
		Filings:         NewEdgarClient(cfg, opts...),
		Universe:        NewWikipediaUniverse(cfg),
	}

	if cfg.FinnhubAPIKey != "" {
		p.Fundamentals = &EnrichedFundamentals{Base: yahoo, Profiles: finnhub}
		if cfg.NewsDays > 0 {
			p.News = finnhub
		}
	}

	if cfg.HistoryProvider == config.HistoryProviderLongport {
		lp, err := NewLongportClient(cfg)
		if err != nil {
			return nil, err
		}
		p.History = lp
	}

	return p, nil
}
