package calculator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/cryptosavings-server/internal/models"
	"github.com/lueurxax/cryptosavings-server/internal/rates"
)

// fixedRate returns a provider that multiplies every conversion by rate.
func fixedRate(rate float64) rates.Provider {
	return rates.ProviderFunc(func(_ context.Context, amount float64, _, _ string) (float64, error) {
		return amount * rate, nil
	})
}

// failingRate returns a provider that always fails.
func failingRate() rates.Provider {
	return rates.ProviderFunc(func(_ context.Context, _ float64, _, _ string) (float64, error) {
		return 0, rates.ErrUnavailable
	})
}

func TestCompute_NominalRequirement(t *testing.T) {
	// Goal target 10,000 USD, current total 3,500, deadline in 8 months
	// ⇒ remaining 6,500, required monthly 812.50.
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	calc := NewCalculator(fixedRate(1), nil)

	inputs := []GoalInput{{
		Goal: models.Goal{
			ID:           "g1",
			Name:         "House",
			Currency:     "USD",
			TargetAmount: 10000,
			Deadline:     asOf.AddDate(0, 0, 8*30),
			Status:       models.GoalActive,
		},
		Deposits: []Deposit{{Amount: 3500, Currency: "USD"}},
	}}

	reqs := calc.Compute(context.Background(), inputs, asOf)
	require.Len(t, reqs, 1)

	req := reqs[0]
	assert.InDelta(t, 6500.0, req.RemainingAmount, 1e-9)
	assert.Equal(t, 8, req.MonthsRemaining)
	assert.InDelta(t, 812.50, req.RequiredMonthly, 1e-9)
	assert.InDelta(t, 0.35, req.Progress, 1e-9)
	assert.Equal(t, models.RequirementOnTrack, req.Status)
	assert.False(t, req.Estimated)
}

func TestCompute_ConvertsDeposits(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	calc := NewCalculator(fixedRate(2), nil)

	inputs := []GoalInput{{
		Goal: models.Goal{
			ID: "g1", Currency: "USD", TargetAmount: 1000,
			Deadline: asOf.AddDate(0, 6, 0), Status: models.GoalActive,
		},
		Deposits: []Deposit{
			{Amount: 100, Currency: "USD"}, // no conversion
			{Amount: 50, Currency: "EUR"},  // ×2 = 100
		},
	}}

	reqs := calc.Compute(context.Background(), inputs, asOf)
	require.Len(t, reqs, 1)
	assert.InDelta(t, 200.0, reqs[0].CurrentTotal, 1e-9)
}

func TestCompute_RateFailureDegradesNotFails(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	calc := NewCalculator(failingRate(), nil)

	inputs := []GoalInput{{
		Goal: models.Goal{
			ID: "g1", Currency: "USD", TargetAmount: 1000,
			Deadline: asOf.AddDate(0, 6, 0), Status: models.GoalActive,
		},
		Deposits: []Deposit{{Amount: 300, Currency: "EUR"}},
	}}

	reqs := calc.Compute(context.Background(), inputs, asOf)
	require.Len(t, reqs, 1)

	// Face-value fallback: the EUR amount counts as-is, flagged estimated.
	assert.InDelta(t, 300.0, reqs[0].CurrentTotal, 1e-9)
	assert.True(t, reqs[0].Estimated)
}

func TestCompute_SkipsInactiveGoals(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	calc := NewCalculator(fixedRate(1), nil)

	inputs := []GoalInput{
		{Goal: models.Goal{ID: "a", Currency: "USD", TargetAmount: 100, Deadline: asOf.AddDate(0, 3, 0), Status: models.GoalArchived}},
		{Goal: models.Goal{ID: "b", Currency: "USD", TargetAmount: 100, Deadline: asOf.AddDate(0, 3, 0), Status: models.GoalActive}},
	}

	reqs := calc.Compute(context.Background(), inputs, asOf)
	require.Len(t, reqs, 1)
	assert.Equal(t, "b", reqs[0].GoalID)
}

func TestCompute_StatusClassification(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		target     float64
		current    float64
		deadline   time.Time
		historical float64
		want       models.RequirementStatus
	}{
		{
			name:     "completed when funded",
			target:   1000,
			current:  1000,
			deadline: asOf.AddDate(0, 6, 0),
			want:     models.RequirementCompleted,
		},
		{
			name:     "completed when over-funded",
			target:   1000,
			current:  1500,
			deadline: asOf.AddDate(0, 6, 0),
			want:     models.RequirementCompleted,
		},
		{
			name:     "critical when a month or less remains",
			target:   1000,
			current:  100,
			deadline: asOf.AddDate(0, 0, 20),
			want:     models.RequirementCritical,
		},
		{
			name:     "critical when past deadline",
			target:   1000,
			current:  100,
			deadline: asOf.AddDate(0, 0, -10),
			want:     models.RequirementCritical,
		},
		{
			name:       "attention when required far exceeds historical pace",
			target:     10000,
			current:    0,
			deadline:   asOf.AddDate(0, 0, 5*30),
			historical: 1000, // required = 2000 > 1.5×1000
			want:       models.RequirementAttention,
		},
		{
			name:       "on track otherwise",
			target:     1000,
			current:    500,
			deadline:   asOf.AddDate(0, 0, 5*30),
			historical: 100, // required = 100, within pace
			want:       models.RequirementOnTrack,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := NewCalculator(fixedRate(1), nil)
			inputs := []GoalInput{{
				Goal: models.Goal{
					ID: "g", Currency: "USD", TargetAmount: tt.target,
					Deadline: tt.deadline, Status: models.GoalActive,
				},
				Deposits:                 []Deposit{{Amount: tt.current, Currency: "USD"}},
				HistoricalMonthlyAverage: tt.historical,
			}}

			reqs := calc.Compute(context.Background(), inputs, asOf)
			require.Len(t, reqs, 1)
			assert.Equal(t, tt.want, reqs[0].Status)
		})
	}
}

func TestMonthsRemaining(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		deadline time.Time
		want     int
	}{
		{"eight 30-day months", asOf.AddDate(0, 0, 240), 8},
		{"partial month rounds up", asOf.AddDate(0, 0, 31), 2},
		{"under a month", asOf.AddDate(0, 0, 10), 1},
		{"past deadline floors at zero", asOf.AddDate(0, 0, -5), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MonthsRemaining(asOf, tt.deadline))
		})
	}
}

func TestCompute_RemainingNeverNegative(t *testing.T) {
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	calc := NewCalculator(fixedRate(1), nil)

	inputs := []GoalInput{{
		Goal: models.Goal{
			ID: "g", Currency: "USD", TargetAmount: 100,
			Deadline: asOf.AddDate(0, 3, 0), Status: models.GoalActive,
		},
		Deposits: []Deposit{{Amount: 500, Currency: "USD"}},
	}}

	reqs := calc.Compute(context.Background(), inputs, asOf)
	require.Len(t, reqs, 1)
	assert.Equal(t, 0.0, reqs[0].RemainingAmount)
	assert.Equal(t, 0.0, reqs[0].RequiredMonthly)
	assert.Equal(t, 1.0, reqs[0].Progress)
}
