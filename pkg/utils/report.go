package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dyike/StockPilot/models"
)

const (
	ReportJSONFile     = "report.json"
	ReportMarkdownFile = "report.md"
)

// WriteReport stores report.json and report.md under resultsDir/<run_id>/
// and returns that directory.
func WriteReport(resultsDir string, report *models.Report) (string, error) {
	if report == nil || report.RunID == "" {
		return "", fmt.Errorf("report has no run id")
	}
	dir := filepath.Join(resultsDir, report.RunID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ReportJSONFile), data, 0644); err != nil {
		return "", fmt.Errorf("write report json: %w", err)
	}

	if _, err := WriteMarkdown(dir, ReportMarkdownFile, RenderMarkdown(report)); err != nil {
		return "", err
	}
	return dir, nil
}

// RenderMarkdown formats a report as a markdown document.
func RenderMarkdown(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# StockPilot report %s\n\n", report.RunID)
	fmt.Fprintf(&b, "- Generated: %s\n", report.GeneratedAt)
	fmt.Fprintf(&b, "- Budget: $%s\n", money(report.Budget))
	fmt.Fprintf(&b, "- Universe: %s\n\n", strings.Join(report.AggregatedUI.StockUniverse, ", "))

	b.WriteString("## Results\n\n")
	b.WriteString("| Ticker | Score | Bullish | Timing | Confidence | Buy | Amount | Risk flags |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, r := range report.PortfolioResults {
		fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s | %s | %s |\n",
			r.Ticker, r.Score, bullish(r), timing(r), confidence(r), buy(r), amount(r), strings.Join(r.RiskFlags, ", "))
	}
	b.WriteString("\n")

	for _, r := range report.PortfolioResults {
		fmt.Fprintf(&b, "### %s\n\n", r.Ticker)
		if r.Error != "" {
			fmt.Fprintf(&b, "Error: %s\n\n", r.Error)
			continue
		}
		if r.Timing != nil && r.Timing.Reasoning != "" {
			fmt.Fprintf(&b, "Timing: %s\n\n", r.Timing.Reasoning)
		}
		if r.Recommendation != nil {
			fmt.Fprintf(&b, "%s\n\n", r.Recommendation.Rationale)
		}
		if len(r.Holdings) > 0 {
			fmt.Fprintf(&b, "13F holdings reported: %d\n\n", len(r.Holdings))
		}
	}

	if len(report.AggregatedUI.MostBullishStocks) > 0 {
		b.WriteString("## Most bullish\n\n")
		for _, s := range report.AggregatedUI.MostBullishStocks {
			fmt.Fprintf(&b, "- %s (%s, %s)\n", s.Ticker, strconv.FormatFloat(s.Confidence, 'f', 2, 64), s.Timing)
		}
		b.WriteString("\n")
	}

	if a := report.AllocationSummary; a != nil {
		b.WriteString("## Allocation\n\n")
		fmt.Fprintf(&b, "%s\n\n", a.Summary)
		for _, al := range a.Allocations {
			fmt.Fprintf(&b, "- %s: %s%% ($%s)\n", al.Ticker, strconv.FormatFloat(al.WeightPercent, 'f', 2, 64), money(al.Allocation))
		}
	}
	return b.String()
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func bullish(r models.TickerResult) string {
	if r.Signals == nil || r.Signals.BullishTrend == nil {
		return "n/a"
	}
	return strconv.FormatBool(*r.Signals.BullishTrend)
}

func timing(r models.TickerResult) string {
	if r.Timing == nil || r.Timing.OptimalTiming == nil {
		return "n/a"
	}
	return *r.Timing.OptimalTiming
}

func confidence(r models.TickerResult) string {
	if r.Timing == nil {
		return "n/a"
	}
	return strconv.FormatFloat(r.Timing.Confidence, 'f', 2, 64)
}

func buy(r models.TickerResult) string {
	if r.Recommendation == nil {
		return "n/a"
	}
	return strconv.FormatBool(r.Recommendation.BuyRecommendation)
}

func amount(r models.TickerResult) string {
	if r.Recommendation == nil {
		return "n/a"
	}
	return "$" + money(r.Recommendation.SuggestedAmount)
}
