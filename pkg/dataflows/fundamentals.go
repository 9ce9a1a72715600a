package dataflows

import (
	"context"

	"github.com/dyike/StockPilot/models"
)

// EnrichedFundamentals fills sector, industry and country from a profile
// source on top of a base fundamentals source. A failed profile lookup leaves
// those fields empty.
type EnrichedFundamentals struct {
	Base     FundamentalsSource
	Profiles ProfileSource
}

func (e *EnrichedFundamentals) Fundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error) {
	f, err := e.Base.Fundamentals(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if e.Profiles == nil {
		return f, nil
	}

	p, err := e.Profiles.Profile(ctx, ticker)
	if err != nil {
		return f, nil
	}

	enriched := *f
	if enriched.Sector == "" {
		enriched.Sector = p.Sector
	}
	if enriched.Industry == "" {
		enriched.Industry = p.Industry
	}
	if enriched.Country == "" {
		enriched.Country = p.Country
	}
	if enriched.Name == "" {
		enriched.Name = p.Name
	}
	if enriched.MarketCap == nil {
		enriched.MarketCap = p.MarketCap
	}
	return &enriched, nil
}
