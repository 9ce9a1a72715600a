package agents

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/StockPilot/models"
	"github.com/dyike/StockPilot/pkg/dataflows"
)

var errUpstream = errors.New("upstream unavailable")

var fixedNow = time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// fakeChatModel replies with canned responses keyed by call order, repeating
// the last one when exhausted.
type fakeChatModel struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   [][]*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, input)
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.prompts) - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	if idx < 0 {
		return schema.AssistantMessage("", nil), nil
	}
	return schema.AssistantMessage(f.responses[idx], nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeChatModel) BindTools(_ []*schema.ToolInfo) error { return nil }

func (f *fakeChatModel) calls() [][]*schema.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts
}

// bars builds daily bars from closes with a constant volume.
func bars(closes ...float64) []models.PriceBar {
	out := make([]models.PriceBar, len(closes))
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = models.PriceBar{
			Date:   start.AddDate(0, 0, i).Format("2006-01-02"),
			Close:  models.Float(c),
			Volume: models.Float(1_000_000),
		}
	}
	return out
}

func ramp(n int, from, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + step*float64(i)
	}
	return out
}

type fakeQuotes struct {
	quotes map[string]*dataflows.Quote
	panics map[string]bool
}

func (f *fakeQuotes) Quote(_ context.Context, ticker string) (*dataflows.Quote, error) {
	if f.panics[ticker] {
		panic("quote feed exploded")
	}
	q, ok := f.quotes[ticker]
	if !ok {
		return nil, errUpstream
	}
	return q, nil
}

type fakeFundamentals struct {
	data map[string]*models.Fundamentals
}

func (f *fakeFundamentals) Fundamentals(_ context.Context, ticker string) (*models.Fundamentals, error) {
	d, ok := f.data[ticker]
	if !ok {
		return nil, errUpstream
	}
	return d, nil
}

type fakeHistory struct {
	bars map[string][]models.PriceBar
}

func (f *fakeHistory) PriceHistory(_ context.Context, ticker, _, _ string) ([]models.PriceBar, error) {
	b, ok := f.bars[ticker]
	if !ok {
		return nil, errUpstream
	}
	return b, nil
}

type fakeRecommendations struct {
	err error
}

func (f *fakeRecommendations) Recommendations(_ context.Context, _ string, _ int) ([]models.AnalystTrend, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.AnalystTrend{{Period: "2025-03-01", StrongBuy: 10, Buy: 20, Hold: 5}}, nil
}

type fakeNews struct{}

func (fakeNews) CompanyNews(_ context.Context, ticker string, _, _ time.Time) ([]models.NewsItem, error) {
	return []models.NewsItem{{Headline: ticker + " beats estimates", Source: "wire"}}, nil
}

type fakeFilings struct {
	cikErr      error
	filing      *models.FilingInfo
	downloadErr error
	holdings    []models.FilingHolding
	lookups     int
}

func (f *fakeFilings) LookupCIK(_ context.Context, _ string) (string, error) {
	f.lookups++
	if f.cikErr != nil {
		return "", f.cikErr
	}
	return "1067983", nil
}

func (f *fakeFilings) LatestFiling(_ context.Context, _ string) (*models.FilingInfo, error) {
	if f.filing == nil {
		return nil, nil
	}
	cp := *f.filing
	return &cp, nil
}

func (f *fakeFilings) DownloadFiling(_ context.Context, ticker string, filing *models.FilingInfo) (string, error) {
	if f.downloadErr != nil {
		return "", f.downloadErr
	}
	return "/tmp/" + ticker + "_" + filing.FilingDate + ".txt", nil
}

func (f *fakeFilings) ParseHoldings(_ string) ([]models.FilingHolding, error) {
	return f.holdings, nil
}

type fakeUniverse struct {
	tickers []string
	err     error
}

func (f *fakeUniverse) Tickers(_ context.Context) ([]string, error) {
	return f.tickers, f.err
}

type fixedEstimator map[string]Estimate

func (f fixedEstimator) Estimate(_ context.Context, ticker string) (Estimate, error) {
	e, ok := f[ticker]
	if !ok {
		return Estimate{}, errUpstream
	}
	return e, nil
}
