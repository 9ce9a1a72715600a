package dataflows

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dyike/StockPilot/models"
)

const (
	edgarTickersURL = "https://www.sec.gov/files/company_tickers.json"
	edgarSearchURL  = "https://www.sec.gov/cgi-bin/browse-edgar"

	informationTableNS = "http://www.sec.gov/edgar/document/thirteenf/informationtable"
)

// CIKEntry is one row of the SEC ticker index.
type CIKEntry struct {
	Ticker string
	CIK    string
	Title  string
}

// CIKIndex persists the ticker to CIK mapping between runs.
type CIKIndex interface {
	LookupCIK(ctx context.Context, ticker string) (string, bool, error)
	ReplaceAll(ctx context.Context, entries []CIKEntry) error
	RefreshedAt(ctx context.Context) (time.Time, error)
}

// EdgarClient implements FilingRegistry against SEC EDGAR.
type EdgarClient struct {
	client      *resty.Client
	tickersURL  string
	searchURL   string
	downloadDir string
	index       CIKIndex
	indexTTL    time.Duration
	retry       RetryConfig

	mu     sync.Mutex
	memory map[string]string
}

type EdgarOption func(*EdgarClient)

// WithCIKIndex stores the ticker index in idx instead of process memory.
func WithCIKIndex(idx CIKIndex) EdgarOption {
	return func(c *EdgarClient) { c.index = idx }
}

// WithEdgarEndpoints overrides the EDGAR URLs. Used by tests.
func WithEdgarEndpoints(tickersURL, searchURL string) EdgarOption {
	return func(c *EdgarClient) {
		c.tickersURL = tickersURL
		c.searchURL = searchURL
	}
}

func NewEdgarClient(cfg *Config, opts ...EdgarOption) *EdgarClient {
	client := resty.New()
	client.SetTimeout(cfg.HTTPTimeout)
	client.SetHeader("User-Agent", cfg.EdgarUserAgent)

	c := &EdgarClient{
		client:      client,
		tickersURL:  edgarTickersURL,
		searchURL:   edgarSearchURL,
		downloadDir: cfg.DownloadDir,
		indexTTL:    7 * 24 * time.Hour,
		retry:       DefaultRetryConfig(cfg.RetryAttempts),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type companyTicker struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// LookupCIK resolves a ticker to its CIK without leading zeros.
func (c *EdgarClient) LookupCIK(ctx context.Context, ticker string) (string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	if cik, ok, err := c.lookupCached(ctx, ticker); err != nil {
		return "", err
	} else if ok {
		return cik, nil
	}

	entries, err := c.fetchTickerIndex(ctx)
	if err != nil {
		return "", err
	}
	if err := c.storeIndex(ctx, entries); err != nil {
		return "", err
	}

	for _, e := range entries {
		if e.Ticker == ticker {
			return e.CIK, nil
		}
	}
	return "", fmt.Errorf("cik for %s: %w", ticker, ErrNotFound)
}

func (c *EdgarClient) lookupCached(ctx context.Context, ticker string) (string, bool, error) {
	if c.index == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		cik, ok := c.memory[ticker]
		return cik, ok, nil
	}

	refreshed, err := c.index.RefreshedAt(ctx)
	if err != nil {
		return "", false, err
	}
	if refreshed.IsZero() || time.Since(refreshed) > c.indexTTL {
		return "", false, nil
	}
	return c.index.LookupCIK(ctx, ticker)
}

func (c *EdgarClient) storeIndex(ctx context.Context, entries []CIKEntry) error {
	if c.index != nil {
		return c.index.ReplaceAll(ctx, entries)
	}
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[e.Ticker] = e.CIK
	}
	c.mu.Lock()
	c.memory = m
	c.mu.Unlock()
	return nil
}

func (c *EdgarClient) fetchTickerIndex(ctx context.Context) ([]CIKEntry, error) {
	body, err := c.fetch(ctx, c.tickersURL, nil)
	if err != nil {
		return nil, fmt.Errorf("edgar ticker index: %w", err)
	}

	var raw map[string]companyTicker
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("edgar ticker index: parse: %w", err)
	}

	entries := make([]CIKEntry, 0, len(raw))
	for _, item := range raw {
		entries = append(entries, CIKEntry{
			Ticker: strings.ToUpper(item.Ticker),
			CIK:    strconv.FormatInt(item.CIK, 10),
			Title:  item.Title,
		})
	}
	return entries, nil
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Updated string     `xml:"updated"`
	ID      string     `xml:"id"`
	Links   []atomLink `xml:"link"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
}

// LatestFiling returns the most recent 13F-HR filing for cik, or nil when the
// filer has none.
func (c *EdgarClient) LatestFiling(ctx context.Context, cik string) (*models.FilingInfo, error) {
	body, err := c.fetch(ctx, c.searchURL, map[string]string{
		"action": "getcompany",
		"CIK":    cik,
		"type":   "13F-HR",
		"owner":  "exclude",
		"count":  "10",
		"output": "atom",
	})
	if err != nil {
		return nil, fmt.Errorf("edgar filing feed: %w", err)
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("edgar filing feed: parse: %w", err)
	}
	if len(feed.Entries) == 0 {
		return nil, nil
	}

	entry := feed.Entries[0]
	if len(entry.Links) == 0 || entry.Links[0].Href == "" {
		return nil, nil
	}

	filingDate := entry.Updated
	if len(filingDate) > 10 {
		filingDate = filingDate[:10]
	}
	id := strings.TrimSpace(entry.ID)
	accession := id[strings.LastIndex(id, "/")+1:]
	if i := strings.LastIndex(accession, "="); i >= 0 {
		accession = accession[i+1:]
	}

	return &models.FilingInfo{
		FilingDate:      filingDate,
		AccessionNumber: accession,
		TxtURL:          strings.Replace(entry.Links[0].Href, "-index.htm", ".txt", 1),
	}, nil
}

// DownloadFiling writes the filing document to
// <downloadDir>/<TICKER>/<TICKER>_<filing date>.txt and returns the path.
func (c *EdgarClient) DownloadFiling(ctx context.Context, ticker string, filing *models.FilingInfo) (string, error) {
	if filing == nil || filing.TxtURL == "" {
		return "", fmt.Errorf("edgar download: %w", ErrNoData)
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	body, err := c.fetch(ctx, filing.TxtURL, nil)
	if err != nil {
		return "", fmt.Errorf("edgar download: %w", err)
	}

	dir := filepath.Join(c.downloadDir, ticker)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("edgar download: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.txt", ticker, filing.FilingDate))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("edgar download: %w", err)
	}
	return path, nil
}

func (c *EdgarClient) fetch(ctx context.Context, url string, params map[string]string) ([]byte, error) {
	var body []byte
	err := WithRetry(ctx, c.retry, func(ctx context.Context) error {
		req := c.client.R().SetContext(ctx)
		if params != nil {
			req.SetQueryParams(params)
		}
		resp, err := req.Get(url)
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode() == http.StatusNotFound:
			return fmt.Errorf("%s: %w", url, ErrNotFound)
		case resp.StatusCode() >= 300:
			return fmt.Errorf("%s: status %d", url, resp.StatusCode())
		}
		body = resp.Body()
		return nil
	})
	return body, err
}

type informationTable struct {
	XMLName xml.Name    `xml:"informationTable"`
	Rows    []infoTable `xml:"infoTable"`
}

type infoTable struct {
	NameOfIssuer string `xml:"nameOfIssuer"`
	TitleOfClass string `xml:"titleOfClass"`
	CUSIP        string `xml:"cusip"`
	Value        string `xml:"value"`
	ShrsOrPrnAmt struct {
		Amount string `xml:"sshPrnamt"`
		Type   string `xml:"sshPrnamtType"`
	} `xml:"shrsOrPrnAmt"`
	VotingAuthority struct {
		Sole   string `xml:"Sole"`
		Shared string `xml:"Shared"`
		None   string `xml:"None"`
	} `xml:"votingAuthority"`
}

// ParseHoldings reads the informationTable block of a downloaded filing. A
// missing or malformed block yields no holdings and no error.
func (c *EdgarClient) ParseHoldings(path string) ([]models.FilingHolding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseInformationTable(data), nil
}

// ParseInformationTable extracts holdings from raw filing text.
func ParseInformationTable(text []byte) []models.FilingHolding {
	holdings := []models.FilingHolding{}

	const endTag = "</informationTable>"
	start := bytes.Index(text, []byte("<informationTable"))
	end := bytes.Index(text, []byte(endTag))
	if start == -1 || end == -1 || end < start {
		return holdings
	}

	var table informationTable
	if err := xml.Unmarshal(text[start:end+len(endTag)], &table); err != nil {
		return holdings
	}
	if table.XMLName.Space != "" && table.XMLName.Space != informationTableNS {
		return holdings
	}

	for _, row := range table.Rows {
		holdings = append(holdings, models.FilingHolding{
			Issuer:       strings.TrimSpace(row.NameOfIssuer),
			Class:        strings.TrimSpace(row.TitleOfClass),
			CUSIP:        strings.TrimSpace(row.CUSIP),
			Value:        strings.TrimSpace(row.Value),
			Shares:       strings.TrimSpace(row.ShrsOrPrnAmt.Amount),
			SharesType:   strings.TrimSpace(row.ShrsOrPrnAmt.Type),
			VotingSole:   strings.TrimSpace(row.VotingAuthority.Sole),
			VotingShared: strings.TrimSpace(row.VotingAuthority.Shared),
			VotingNone:   strings.TrimSpace(row.VotingAuthority.None),
		})
	}
	return holdings
}

// LatestHoldings resolves, downloads and parses the latest 13F-HR filing for
// ticker. It returns nil without error when the filer has no such filing.
func LatestHoldings(ctx context.Context, reg FilingRegistry, ticker string) (*models.FilingInfo, error) {
	ticker = NormalizeSymbol(ticker)
	cik, err := reg.LookupCIK(ctx, ticker)
	if err != nil {
		return nil, err
	}
	filing, err := reg.LatestFiling(ctx, cik)
	if err != nil || filing == nil {
		return nil, err
	}
	path, err := reg.DownloadFiling(ctx, ticker, filing)
	if err != nil {
		return nil, err
	}
	filing.DownloadedFile = &path
	holdings, err := reg.ParseHoldings(path)
	if err != nil {
		return nil, err
	}
	if holdings == nil {
		holdings = []models.FilingHolding{}
	}
	filing.Holdings = holdings
	return filing, nil
}

// IsNotFound reports whether err means the registry has nothing for the request.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
