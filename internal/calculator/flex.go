package calculator

import (
	"math"

	"github.com/lueurxax/cryptosavings-server/internal/models"
)

const (
	// MinFactor and MaxFactor bound the global flex factor. Values outside
	// the range are clamped before processing.
	MinFactor = 0.0
	MaxFactor = 1.5

	// Risk thresholds for the impact analysis, in percent change.
	riskMediumThreshold = -10.0
	riskHighThreshold   = -20.0
	riskHighMonths      = 2
)

// StringSet reports membership for protected/skipped goal IDs.
type StringSet map[string]struct{}

// NewStringSet builds a set from IDs.
func NewStringSet(ids ...string) StringSet {
	s := make(StringSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set. Safe on a nil set.
func (s StringSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// ApplyFlex scales the flexible goals' requirements by the global factor.
//
// Policy:
//   - Skipped goals contribute zero this month but are still reported.
//   - Protected goals keep their full nominal requirement; the factor never
//     touches them.
//   - Flexible goals scale by the factor: independently under the
//     proportional strategy, or with the aggregate change distributed by
//     squared share of the flexible pool under the balanced strategy, so
//     that large goals absorb most of the swing and small goals are
//     cushioned. Amounts are clamped to [0, required × MaxFactor] with any
//     clamped remainder redistributed among the unclamped goals.
//
// The factor is clamped to [MinFactor, MaxFactor] first. An empty
// requirement list yields an empty result.
func ApplyFlex(reqs []models.MonthlyRequirement, factor float64, protected, skipped StringSet, strategy models.AdjustmentStrategy) []models.AdjustedRequirement {
	factor = clampFactor(factor)
	if strategy == "" {
		strategy = models.StrategyBalanced
	}

	out := make([]models.AdjustedRequirement, len(reqs))

	// First pass: fix skipped and protected goals, collect the flexible
	// pool.
	var flexible []int
	for i, req := range reqs {
		adj := models.AdjustedRequirement{
			Requirement:      req,
			AdjustmentFactor: factor,
		}
		switch {
		case skipped.Has(req.GoalID):
			adj.Skipped = true
			adj.AdjustedAmount = 0
		case protected.Has(req.GoalID):
			adj.Protected = true
			adj.AdjustedAmount = req.RequiredMonthly
		default:
			flexible = append(flexible, i)
		}
		out[i] = adj
	}

	// Second pass: scale the flexible goals.
	switch strategy {
	case models.StrategyBalanced:
		nominal := make([]float64, len(flexible))
		for j, i := range flexible {
			nominal[j] = reqs[i].RequiredMonthly
		}
		amounts := balancedAmounts(nominal, factor)
		for j, i := range flexible {
			out[i].AdjustedAmount = amounts[j]
			out[i].RedistributionAmount = amounts[j] - nominal[j]*factor
		}
	default: // proportional
		for _, i := range flexible {
			out[i].AdjustedAmount = reqs[i].RequiredMonthly * factor
		}
	}

	for i := range out {
		out[i].Impact = analyzeImpact(out[i].Requirement, out[i].AdjustedAmount)
	}
	return out
}

// balancedAmounts distributes the aggregate change of the flexible pool by
// each goal's squared share, clamping to [0, required × MaxFactor] and
// redistributing clamped remainders. At factor 1 the input is returned
// unchanged.
func balancedAmounts(required []float64, factor float64) []float64 {
	n := len(required)
	out := make([]float64, n)
	copy(out, required)
	if n == 0 {
		return out
	}

	var pool float64
	for _, r := range required {
		pool += r
	}
	if pool <= 0 {
		return out
	}

	remaining := pool*factor - pool
	active := make([]bool, n)
	for i := range active {
		active[i] = true
	}

	for pass := 0; pass <= n && math.Abs(remaining) > 1e-9; pass++ {
		var sumSq float64
		for i, r := range required {
			if active[i] {
				sumSq += r * r
			}
		}
		if sumSq == 0 {
			break
		}

		applied := 0.0
		clampedAny := false
		for i, r := range required {
			if !active[i] {
				continue
			}
			target := out[i] + remaining*(r*r)/sumSq
			if lo := 0.0; target < lo {
				target = lo
				active[i] = false
				clampedAny = true
			}
			if hi := r * MaxFactor; target > hi {
				target = hi
				active[i] = false
				clampedAny = true
			}
			applied += target - out[i]
			out[i] = target
		}
		remaining -= applied
		if !clampedAny {
			break
		}
	}
	return out
}

// analyzeImpact quantifies what the adjusted amount does to the goal.
func analyzeImpact(req models.MonthlyRequirement, adjusted float64) models.ImpactAnalysis {
	change := adjusted - req.RequiredMonthly

	pct := 0.0
	if req.RequiredMonthly > 0 {
		pct = 100 * change / req.RequiredMonthly
	}

	impact := models.ImpactAnalysis{
		ChangeAmount:     change,
		ChangePercentage: pct,
		RiskLevel:        models.RiskLow,
	}

	switch {
	case req.MonthsRemaining <= riskHighMonths && pct < riskHighThreshold:
		impact.RiskLevel = models.RiskHigh
	case pct < riskMediumThreshold:
		impact.RiskLevel = models.RiskMedium
	}

	if change < 0 {
		// The month's shortfall pushes the completion date out by
		// shortfall ÷ the post-adjustment monthly rate. A fully skipped
		// month delays by shortfall ÷ the nominal rate instead.
		denom := adjusted
		if denom <= 0 {
			denom = req.RequiredMonthly
		}
		if denom > 0 {
			impact.EstimatedDelayMonths = int(math.Ceil(-change / denom))
		}
	}

	return impact
}

func clampFactor(factor float64) float64 {
	if factor < MinFactor {
		return MinFactor
	}
	if factor > MaxFactor {
		return MaxFactor
	}
	return factor
}
