package display

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dyike/StockPilot/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#10B981")).
			Padding(0, 1).
			Width(80)

	headerCellStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6")).Padding(0, 1)
	cellStyle       = lipgloss.NewStyle().Padding(0, 1)

	buyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

const na = "n/a"

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCellStyle
			}
			return cellStyle
		})
}

// Report prints a full run report.
func Report(w io.Writer, report *models.Report) {
	fmt.Fprintln(w, titleStyle.Render("StockPilot report "+report.RunID))
	fmt.Fprintf(w, "Generated %s  Budget $%s\n\n", report.GeneratedAt, money(report.Budget))

	t := newTable("Ticker", "Score", "Bullish", "Timing", "Conf.", "Buy", "Amount", "Risk flags")
	for _, r := range report.PortfolioResults {
		t.Row(r.Ticker, strconv.Itoa(r.Score), bullish(r.Signals), timingLabel(r.Timing), confidence(r.Timing),
			buyLabel(r.Recommendation), amount(r.Recommendation), strings.Join(r.RiskFlags, ", "))
	}
	fmt.Fprintln(w, t.String())

	for _, r := range report.PortfolioResults {
		if r.Error != "" {
			fmt.Fprintln(w, errorStyle.Render(r.Ticker+": "+r.Error))
		}
	}

	ui := report.AggregatedUI
	fmt.Fprintln(w)
	fmt.Fprintln(w, sectionStyle.Render("Sectors"), distribution(ui.SectorDistribution))
	fmt.Fprintln(w, sectionStyle.Render("Countries"), distribution(ui.CountryDistribution))
	if len(ui.MostBullishStocks) > 0 {
		parts := make([]string, 0, len(ui.MostBullishStocks))
		for _, s := range ui.MostBullishStocks {
			parts = append(parts, fmt.Sprintf("%s (%.2f)", s.Ticker, s.Confidence))
		}
		fmt.Fprintln(w, sectionStyle.Render("Most bullish"), strings.Join(parts, ", "))
	}

	if report.AllocationSummary != nil {
		fmt.Fprintln(w)
		Allocation(w, report.AllocationSummary)
	}
}

// Allocation prints the portfolio summary and its weights.
func Allocation(w io.Writer, a *models.AllocationSummary) {
	fmt.Fprintln(w, panelStyle.Render(a.Summary))
	if len(a.Allocations) == 0 {
		return
	}
	t := newTable("Ticker", "Weight %", "Amount")
	for _, al := range a.Allocations {
		t.Row(al.Ticker, strconv.FormatFloat(al.WeightPercent, 'f', 2, 64), "$"+money(al.Allocation))
	}
	fmt.Fprintln(w, t.String())
}

// Rankings prints scanner output in rank order.
func Rankings(w io.Writer, records []models.RankingRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No tickers ranked."))
		return
	}
	t := newTable("#", "Ticker", "Score", "Price", "P/E", "Momentum", "Volatility", "Sector", "Risk flags")
	for i, r := range records {
		t.Row(strconv.Itoa(i+1), r.Ticker, strconv.Itoa(r.Score), optional(r.Price), optional(r.PERatio),
			r.Signals.Momentum, strconv.FormatFloat(r.Volatility, 'f', 2, 64), r.Sector, strings.Join(r.RiskFlags, ", "))
	}
	fmt.Fprintln(w, t.String())
}

// Ticker prints the pipeline result for one symbol.
func Ticker(w io.Writer, r models.TickerResult) {
	fmt.Fprintln(w, titleStyle.Render(r.Ticker))
	if r.Error != "" {
		fmt.Fprintln(w, errorStyle.Render(r.Error))
		return
	}

	price := na
	if r.Data != nil {
		price = optional(r.Data.Price)
	}
	fmt.Fprintf(w, "Price %s  Score %d  Risk flags %s\n", price, r.Score, orNone(strings.Join(r.RiskFlags, ", ")))
	fmt.Fprintf(w, "Sources %s\n\n", strings.Join(r.Sources, ", "))

	if r.Signals != nil {
		s := r.Signals
		if s.Error != "" {
			fmt.Fprintln(w, sectionStyle.Render("Signals"), errorStyle.Render(s.Error))
		} else {
			fmt.Fprintln(w, sectionStyle.Render("Signals"),
				fmt.Sprintf("bullish=%s trend=%s MA10=%s MA50=%s", bullish(s), orNone(s.ShortTermTrend), optional(s.MA10), optional(s.MA50)))
		}
	}
	if r.Timing != nil {
		fmt.Fprintln(w, sectionStyle.Render("Timing"),
			fmt.Sprintf("%s (%.2f) %s", timingLabel(r.Timing), r.Timing.Confidence, r.Timing.Reasoning))
	}
	if rec := r.Recommendation; rec != nil {
		style := passStyle
		if rec.BuyRecommendation {
			style = buyStyle
		}
		fmt.Fprintln(w, sectionStyle.Render("Recommendation"), style.Render(buyLabel(rec)+" "+amount(rec)))
		fmt.Fprintln(w, panelStyle.Render(rec.Rationale))
	}
	if len(r.Holdings) > 0 {
		fmt.Fprintln(w, sectionStyle.Render("13F holdings"), strconv.Itoa(len(r.Holdings)))
	}
}

// Filing prints a 13F-HR filing and its holdings.
func Filing(w io.Writer, ticker string, f *models.FilingInfo) {
	if f == nil {
		fmt.Fprintln(w, mutedStyle.Render("No 13F-HR filing found for "+ticker+"."))
		return
	}
	fmt.Fprintln(w, titleStyle.Render(ticker+" 13F-HR "+f.FilingDate))
	fmt.Fprintf(w, "Accession %s\n%s\n", f.AccessionNumber, f.TxtURL)
	if f.DownloadedFile != nil {
		fmt.Fprintf(w, "Saved to %s\n", *f.DownloadedFile)
	}
	if len(f.Holdings) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No holdings parsed."))
		return
	}
	t := newTable("Issuer", "Class", "CUSIP", "Value", "Shares", "Type")
	for _, h := range f.Holdings {
		t.Row(h.Issuer, h.Class, h.CUSIP, h.Value, h.Shares, h.SharesType)
	}
	fmt.Fprintln(w, t.String())
}

func distribution(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %d", k, m[k]))
	}
	return orNone(strings.Join(parts, ", "))
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func optional(v *float64) string {
	if v == nil {
		return na
	}
	return money(*v)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func bullish(s *models.Signals) string {
	if s == nil || s.BullishTrend == nil {
		return na
	}
	if *s.BullishTrend {
		return "yes"
	}
	return "no"
}

func timingLabel(t *models.TimingResult) string {
	if t == nil || t.OptimalTiming == nil {
		return na
	}
	return *t.OptimalTiming
}

func confidence(t *models.TimingResult) string {
	if t == nil {
		return na
	}
	return strconv.FormatFloat(t.Confidence, 'f', 2, 64)
}

func buyLabel(r *models.Recommendation) string {
	if r == nil {
		return na
	}
	if r.BuyRecommendation {
		return "BUY"
	}
	return "PASS"
}

func amount(r *models.Recommendation) string {
	if r == nil {
		return na
	}
	return "$" + money(r.SuggestedAmount)
}
