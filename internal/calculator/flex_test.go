package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/cryptosavings-server/internal/models"
)

func req(id string, required float64, monthsRemaining int) models.MonthlyRequirement {
	return models.MonthlyRequirement{
		GoalID:          id,
		RequiredMonthly: required,
		MonthsRemaining: monthsRemaining,
		RemainingAmount: required * float64(monthsRemaining),
	}
}

func amounts(adjusted []models.AdjustedRequirement) map[string]float64 {
	out := make(map[string]float64, len(adjusted))
	for _, a := range adjusted {
		out[a.Requirement.GoalID] = a.AdjustedAmount
	}
	return out
}

func TestApplyFlex_FactorOneIsIdentity(t *testing.T) {
	reqs := []models.MonthlyRequirement{
		req("a", 1000, 6), req("b", 200, 12), req("c", 33.33, 3),
	}

	for _, strategy := range []models.AdjustmentStrategy{models.StrategyProportional, models.StrategyBalanced} {
		adjusted := ApplyFlex(reqs, 1.0, nil, nil, strategy)
		require.Len(t, adjusted, 3)
		for _, a := range adjusted {
			assert.Equal(t, a.Requirement.RequiredMonthly, a.AdjustedAmount,
				"strategy %s: factor 1.0 must leave amounts untouched", strategy)
			assert.Equal(t, models.RiskLow, a.Impact.RiskLevel)
			assert.Equal(t, 0, a.Impact.EstimatedDelayMonths)
		}
	}
}

func TestApplyFlex_ProtectedAndSkippedAreExact(t *testing.T) {
	reqs := []models.MonthlyRequirement{
		req("keep", 500, 6), req("skip", 300, 6), req("flex", 200, 6),
	}

	adjusted := ApplyFlex(reqs, 0.5, NewStringSet("keep"), NewStringSet("skip"), models.StrategyBalanced)
	got := amounts(adjusted)

	assert.Equal(t, 500.0, got["keep"], "protected goal keeps its exact nominal requirement")
	assert.Equal(t, 0.0, got["skip"], "skipped goal is exactly zero")
	assert.InDelta(t, 100.0, got["flex"], 1e-9)
}

func TestApplyFlex_ProtectedExcludedFromPool(t *testing.T) {
	// Two goals, A protected at 1,000, B flexible at 200; factor 0.5 ⇒ A
	// stays 1,000 and B becomes 100, since the pool contains only B.
	reqs := []models.MonthlyRequirement{req("a", 1000, 6), req("b", 200, 6)}

	adjusted := ApplyFlex(reqs, 0.5, NewStringSet("a"), nil, models.StrategyBalanced)
	got := amounts(adjusted)

	assert.Equal(t, 1000.0, got["a"])
	assert.InDelta(t, 100.0, got["b"], 1e-9)
}

func TestApplyFlex_HalfFactorExample(t *testing.T) {
	// Required monthly 812.50, factor 0.5, unprotected/unskipped ⇒ 406.25.
	reqs := []models.MonthlyRequirement{req("g", 812.50, 8)}

	adjusted := ApplyFlex(reqs, 0.5, nil, nil, models.StrategyBalanced)
	require.Len(t, adjusted, 1)
	assert.InDelta(t, 406.25, adjusted[0].AdjustedAmount, 1e-9)
}

func TestApplyFlex_FactorZeroZeroesFlexible(t *testing.T) {
	reqs := []models.MonthlyRequirement{
		req("a", 300, 6), req("b", 100, 6), req("keep", 50, 6),
	}

	for _, strategy := range []models.AdjustmentStrategy{models.StrategyProportional, models.StrategyBalanced} {
		adjusted := ApplyFlex(reqs, 0, NewStringSet("keep"), nil, strategy)
		got := amounts(adjusted)
		assert.Equal(t, 0.0, got["a"], "strategy %s", strategy)
		assert.Equal(t, 0.0, got["b"], "strategy %s", strategy)
		assert.Equal(t, 50.0, got["keep"], "strategy %s", strategy)
	}
}

func TestApplyFlex_FactorClamped(t *testing.T) {
	reqs := []models.MonthlyRequirement{req("g", 100, 6)}

	over := ApplyFlex(reqs, 99, nil, nil, models.StrategyProportional)
	assert.InDelta(t, 150.0, over[0].AdjustedAmount, 1e-9, "factor clamps to 1.5")
	assert.Equal(t, MaxFactor, over[0].AdjustmentFactor)

	under := ApplyFlex(reqs, -3, nil, nil, models.StrategyProportional)
	assert.Equal(t, 0.0, under[0].AdjustedAmount, "factor clamps to 0")
}

func TestApplyFlex_EmptyInput(t *testing.T) {
	adjusted := ApplyFlex(nil, 0.5, nil, nil, models.StrategyBalanced)
	assert.Empty(t, adjusted)
}

func TestApplyFlex_BalancedConservesTotal(t *testing.T) {
	reqs := []models.MonthlyRequirement{
		req("a", 1000, 6), req("b", 100, 6), req("c", 450, 6),
	}
	const factor = 0.8

	adjusted := ApplyFlex(reqs, factor, nil, nil, models.StrategyBalanced)

	var nominal, total float64
	for _, a := range adjusted {
		nominal += a.Requirement.RequiredMonthly
		total += a.AdjustedAmount
	}
	assert.InDelta(t, nominal*factor, total, 1e-6,
		"balanced strategy moves the aggregate flexible total by the factor")
}

func TestApplyFlex_BalancedCushionsSmallGoals(t *testing.T) {
	reqs := []models.MonthlyRequirement{req("big", 1000, 6), req("small", 100, 6)}

	adjusted := ApplyFlex(reqs, 0.8, nil, nil, models.StrategyBalanced)
	got := amounts(adjusted)

	// Raw factor would cut both by 20%. Balanced shifts most of the
	// absolute cut onto the big goal.
	bigCut := 1 - got["big"]/1000
	smallCut := 1 - got["small"]/100
	assert.Greater(t, bigCut, 0.20)
	assert.Less(t, smallCut, 0.05)
}

func TestApplyFlex_BalancedRespectsCeiling(t *testing.T) {
	reqs := []models.MonthlyRequirement{req("big", 1000, 6), req("small", 100, 6)}

	adjusted := ApplyFlex(reqs, 1.5, nil, nil, models.StrategyBalanced)
	got := amounts(adjusted)

	assert.LessOrEqual(t, got["big"], 1000*MaxFactor+1e-9)
	assert.LessOrEqual(t, got["small"], 100*MaxFactor+1e-9)

	// The clamped remainder is redistributed: the aggregate still moves by
	// the factor when the ceiling leaves room.
	assert.InDelta(t, 1100*1.5, got["big"]+got["small"], 1e-6)
}

func TestApplyFlex_ImpactAnalysis(t *testing.T) {
	tests := []struct {
		name            string
		required        float64
		monthsRemaining int
		factor          float64
		wantRisk        models.RiskLevel
		wantDelay       int
	}{
		{
			name:     "mild reduction is low risk",
			required: 1000, monthsRemaining: 6, factor: 0.95,
			wantRisk: models.RiskLow, wantDelay: 1,
		},
		{
			name:     "moderate reduction is medium risk",
			required: 1000, monthsRemaining: 6, factor: 0.85,
			wantRisk: models.RiskMedium, wantDelay: 1,
		},
		{
			name:     "deep cut near deadline is high risk",
			required: 1000, monthsRemaining: 2, factor: 0.5,
			wantRisk: models.RiskHigh, wantDelay: 1,
		},
		{
			name:     "deep cut far from deadline stays medium",
			required: 1000, monthsRemaining: 6, factor: 0.5,
			wantRisk: models.RiskMedium, wantDelay: 1,
		},
		{
			name:     "over-contribution carries no delay",
			required: 1000, monthsRemaining: 6, factor: 1.2,
			wantRisk: models.RiskLow, wantDelay: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs := []models.MonthlyRequirement{req("g", tt.required, tt.monthsRemaining)}
			adjusted := ApplyFlex(reqs, tt.factor, nil, nil, models.StrategyProportional)
			require.Len(t, adjusted, 1)
			assert.Equal(t, tt.wantRisk, adjusted[0].Impact.RiskLevel)
			assert.Equal(t, tt.wantDelay, adjusted[0].Impact.EstimatedDelayMonths)
		})
	}
}

func TestApplyFlex_SkippedMonthDelaysByOne(t *testing.T) {
	reqs := []models.MonthlyRequirement{req("g", 800, 6)}

	adjusted := ApplyFlex(reqs, 1.0, nil, NewStringSet("g"), models.StrategyBalanced)
	require.Len(t, adjusted, 1)
	assert.True(t, adjusted[0].Skipped)
	assert.Equal(t, 0.0, adjusted[0].AdjustedAmount)
	assert.Equal(t, 1, adjusted[0].Impact.EstimatedDelayMonths)
	assert.InDelta(t, -100.0, adjusted[0].Impact.ChangePercentage, 1e-9)
}
