package models

import "time"

// Source names recorded in TickerSnapshot.Sources.
const (
	SourceQuote           = "YahooFinance"
	SourceRecommendations = "AnalystRecommendations"
	SourceFundamentals    = "Fundamentals"
	SourcePriceHistory    = "YahooPriceHistory"
	SourceNews            = "CompanyNews"
	SourceFilings         = "EDGAR"
)

// TickerSnapshot is the normalized output of one aggregator fetch.
type TickerSnapshot struct {
	Ticker    string       `json:"ticker"`
	FetchTime string       `json:"fetch_time"`
	Sources   []string     `json:"sources"`
	Data      SnapshotData `json:"data"`
}

// SnapshotData always serializes every key. Absent values are null.
type SnapshotData struct {
	Price           *float64       `json:"price"`
	Summary         *QuoteSummary  `json:"summary"`
	Fundamentals    *Fundamentals  `json:"fundamentals"`
	PriceHistory    []PriceBar     `json:"price_history"`
	Recommendations []AnalystTrend `json:"recommendations"`
	News            []NewsItem     `json:"news"`
	Filings         *FilingInfo    `json:"filings"`
}

func NewTickerSnapshot(ticker string, now time.Time) *TickerSnapshot {
	return &TickerSnapshot{
		Ticker:    ticker,
		FetchTime: now.UTC().Format(time.RFC3339),
		Sources:   []string{},
	}
}

// FailedSource formats the sources entry for a failed capability.
func FailedSource(capability string, err error) string {
	return capability + "_failed:" + err.Error()
}

// PERatio returns the trailing P/E of the snapshot if known.
func (s *TickerSnapshot) PERatio() *float64 {
	if s == nil || s.Data.Fundamentals == nil {
		return nil
	}
	return s.Data.Fundamentals.PERatio
}

func (s *TickerSnapshot) Sector() string {
	if s == nil || s.Data.Fundamentals == nil {
		return ""
	}
	return s.Data.Fundamentals.Sector
}

func (s *TickerSnapshot) Country() string {
	if s == nil || s.Data.Fundamentals == nil {
		return ""
	}
	return s.Data.Fundamentals.Country
}
