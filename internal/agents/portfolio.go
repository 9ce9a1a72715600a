package agents

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dyike/StockPilot/models"
)

const sectorCapRatio = 0.5

var hundred = decimal.NewFromInt(100)

// sectorOf returns "" when the sector is unknown. Unknown sectors are never
// grouped, so a portfolio without profile data is not capped as one sector.
func sectorOf(r *models.Recommendation) string {
	s := strings.TrimSpace(r.Sector)
	if strings.EqualFold(s, unknownClassifier) {
		return ""
	}
	return s
}

// acceptedIndexes returns the positions of buy-accepted recommendations.
func acceptedIndexes(recs []models.Recommendation) []int {
	var idx []int
	for i := range recs {
		if recs[i].BuyRecommendation {
			idx = append(idx, i)
		}
	}
	return idx
}

// NormalizeAllocations rescales the suggested amounts of accepted
// recommendations so they sum exactly to budget. Amounts are scaled by their
// share of the raw total when it is positive, otherwise the budget is split
// equally. The last accepted entry absorbs cent rounding drift.
func NormalizeAllocations(recs []models.Recommendation, budget float64) {
	idx := acceptedIndexes(recs)
	if len(idx) == 0 {
		return
	}
	b := decimal.NewFromFloat(budget)

	total := decimal.Zero
	for _, i := range idx {
		total = total.Add(decimal.NewFromFloat(recs[i].SuggestedAmount))
	}

	amounts := make([]decimal.Decimal, len(idx))
	if total.IsPositive() {
		for k, i := range idx {
			amounts[k] = decimal.NewFromFloat(recs[i].SuggestedAmount).Mul(b).Div(total).Round(2)
		}
	} else {
		equal := b.Div(decimal.NewFromInt(int64(len(idx)))).Round(2)
		for k := range idx {
			amounts[k] = equal
		}
	}
	absorbDrift(amounts, b)

	for k, i := range idx {
		recs[i].SuggestedAmount = amounts[k].InexactFloat64()
	}
}

// ApplySectorCap trims any sector whose accepted total exceeds half the
// budget. The excess is subtracted evenly from that sector's accepted
// members, once per sector, and amounts never go below zero. Stocks with an
// unknown sector are left alone. The result is not re-normalized. It returns
// the capped sectors in first-seen order.
func ApplySectorCap(recs []models.Recommendation, budget float64) []string {
	idx := acceptedIndexes(recs)
	limit := decimal.NewFromFloat(budget * sectorCapRatio)

	totals := map[string]decimal.Decimal{}
	members := map[string][]int{}
	var order []string
	for _, i := range idx {
		s := sectorOf(&recs[i])
		if s == "" {
			continue
		}
		if _, seen := totals[s]; !seen {
			order = append(order, s)
		}
		totals[s] = totals[s].Add(decimal.NewFromFloat(recs[i].SuggestedAmount))
		members[s] = append(members[s], i)
	}

	var capped []string
	for _, s := range order {
		if !totals[s].GreaterThan(limit) {
			continue
		}
		capped = append(capped, s)
		peers := members[s]
		cut := totals[s].Sub(limit).Div(decimal.NewFromInt(int64(len(peers)))).Round(2)
		for _, i := range peers {
			v := decimal.NewFromFloat(recs[i].SuggestedAmount).Sub(cut)
			if v.IsNegative() {
				v = decimal.Zero
			}
			recs[i].SuggestedAmount = v.InexactFloat64()
		}
	}
	return capped
}

// ReconcileSectorCap redistributes the shortfall left by ApplySectorCap over
// accepted recommendations outside the capped sectors, proportionally to
// their current amounts (equally when those are all zero).
func ReconcileSectorCap(recs []models.Recommendation, budget float64, capped []string) {
	if len(capped) == 0 {
		return
	}
	isCapped := make(map[string]bool, len(capped))
	for _, s := range capped {
		isCapped[s] = true
	}

	b := decimal.NewFromFloat(budget)
	allocated := decimal.Zero
	var recipients []int
	base := decimal.Zero
	for _, i := range acceptedIndexes(recs) {
		amt := decimal.NewFromFloat(recs[i].SuggestedAmount)
		allocated = allocated.Add(amt)
		if !isCapped[sectorOf(&recs[i])] {
			recipients = append(recipients, i)
			base = base.Add(amt)
		}
	}
	shortfall := b.Sub(allocated)
	if len(recipients) == 0 || !shortfall.IsPositive() {
		return
	}

	amounts := make([]decimal.Decimal, len(recipients))
	for k, i := range recipients {
		amt := decimal.NewFromFloat(recs[i].SuggestedAmount)
		var share decimal.Decimal
		if base.IsPositive() {
			share = shortfall.Mul(amt).Div(base)
		} else {
			share = shortfall.Div(decimal.NewFromInt(int64(len(recipients))))
		}
		amounts[k] = amt.Add(share).Round(2)
	}
	target := base.Add(shortfall)
	absorbDrift(amounts, target)
	for k, i := range recipients {
		recs[i].SuggestedAmount = amounts[k].InexactFloat64()
	}
}

// weightsToAllocations converts percentage weights to dollar amounts; the
// last entry corrects rounding drift so the amounts sum to budget.
func weightsToAllocations(tickers []string, weights []float64, budget float64) []models.Allocation {
	b := decimal.NewFromFloat(budget)
	amounts := make([]decimal.Decimal, len(weights))
	for i, w := range weights {
		amounts[i] = b.Mul(decimal.NewFromFloat(w)).Div(hundred).Round(2)
	}
	absorbDrift(amounts, b)

	out := make([]models.Allocation, len(tickers))
	for i := range tickers {
		out[i] = models.Allocation{
			Ticker:        tickers[i],
			WeightPercent: weights[i],
			Allocation:    amounts[i].InexactFloat64(),
		}
	}
	return out
}

func equalAllocations(tickers []string, budget float64) []models.Allocation {
	if len(tickers) == 0 {
		return []models.Allocation{}
	}
	w := hundred.Div(decimal.NewFromInt(int64(len(tickers)))).Round(2).InexactFloat64()
	weights := make([]float64, len(tickers))
	for i := range weights {
		weights[i] = w
	}
	return weightsToAllocations(tickers, weights, budget)
}

// absorbDrift adds target minus the sum of amounts to the last amount.
func absorbDrift(amounts []decimal.Decimal, target decimal.Decimal) {
	if len(amounts) == 0 {
		return
	}
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(a)
	}
	last := len(amounts) - 1
	amounts[last] = amounts[last].Add(target.Sub(sum).Round(2))
}
