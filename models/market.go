package models

// PriceBar is one daily OHLCV bar. Upstream feeds do not guarantee any field.
type PriceBar struct {
	Date   string   `json:"date"`
	Open   *float64 `json:"open"`
	High   *float64 `json:"high"`
	Low    *float64 `json:"low"`
	Close  *float64 `json:"close"`
	Volume *float64 `json:"volume"`
}

// QuoteSummary holds the quote and profile fields of a snapshot.
type QuoteSummary struct {
	Name             string   `json:"name"`
	Exchange         string   `json:"exchange"`
	Currency         string   `json:"currency"`
	MarketState      string   `json:"market_state"`
	PreviousClose    *float64 `json:"previous_close"`
	Open             *float64 `json:"open"`
	DayHigh          *float64 `json:"day_high"`
	DayLow           *float64 `json:"day_low"`
	Volume           *float64 `json:"volume"`
	FiftyTwoWeekHigh *float64 `json:"fifty_two_week_high"`
	FiftyTwoWeekLow  *float64 `json:"fifty_two_week_low"`
}

type Fundamentals struct {
	Name             string   `json:"name"`
	Sector           string   `json:"sector"`
	Industry         string   `json:"industry"`
	Country          string   `json:"country"`
	MarketCap        *float64 `json:"market_cap"`
	PERatio          *float64 `json:"pe_ratio"`
	ForwardPE        *float64 `json:"forward_pe"`
	EPS              *float64 `json:"eps"`
	DividendYield    *float64 `json:"dividend_yield"`
	PriceToBook      *float64 `json:"price_to_book"`
	NextEarningsDate *string  `json:"next_earnings_date"`
}

// AnalystTrend is one period of analyst recommendation counts.
type AnalystTrend struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strong_buy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strong_sell"`
}

type NewsItem struct {
	Headline    string `json:"headline"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
}

// LastClose returns the close of the last bar that has one.
func LastClose(bars []PriceBar) *float64 {
	for i := len(bars) - 1; i >= 0; i-- {
		if bars[i].Close != nil {
			v := *bars[i].Close
			return &v
		}
	}
	return nil
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to s, or nil when s is empty.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
