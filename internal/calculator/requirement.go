// Package calculator derives monthly requirements from goals and applies
// flex adjustments to them. Everything here is pure computation over its
// inputs plus rate-provider calls; nothing is persisted.
package calculator

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/lueurxax/cryptosavings-server/internal/models"
	"github.com/lueurxax/cryptosavings-server/internal/rates"
)

const (
	// daysPerMonth is the planning approximation of a month.
	daysPerMonth = 30

	// attentionMultiple flags a goal when its required monthly contribution
	// exceeds this multiple of its historical monthly average.
	attentionMultiple = 1.5
)

// Deposit is one recorded deposit counted toward a goal, possibly in a
// different currency than the goal's.
type Deposit struct {
	Amount   float64
	Currency string
}

// GoalInput bundles a goal with the deposits counted toward it and its
// historical contribution rate.
type GoalInput struct {
	Goal     models.Goal
	Deposits []Deposit

	// HistoricalMonthlyAverage is the goal's average contribution per month
	// so far; zero when unknown.
	HistoricalMonthlyAverage float64
}

// Calculator derives per-goal monthly requirements.
type Calculator struct {
	rates rates.Provider
	log   *slog.Logger
}

// NewCalculator creates a requirement calculator backed by the given rate
// provider.
func NewCalculator(provider rates.Provider, log *slog.Logger) *Calculator {
	if log == nil {
		log = slog.Default()
	}
	return &Calculator{rates: provider, log: log}
}

// Compute derives the monthly requirement for each active goal. A single
// goal's rate-conversion failure degrades that goal to face-value amounts
// but never fails the batch.
func (c *Calculator) Compute(ctx context.Context, inputs []GoalInput, asOf time.Time) []models.MonthlyRequirement {
	reqs := make([]models.MonthlyRequirement, 0, len(inputs))
	for _, in := range inputs {
		if !in.Goal.Active() {
			continue
		}
		reqs = append(reqs, c.computeOne(ctx, in, asOf))
	}
	return reqs
}

func (c *Calculator) computeOne(ctx context.Context, in GoalInput, asOf time.Time) models.MonthlyRequirement {
	goal := in.Goal

	total := 0.0
	estimated := false
	for _, d := range in.Deposits {
		if d.Currency == goal.Currency {
			total += d.Amount
			continue
		}
		converted, err := c.rates.Convert(ctx, d.Amount, d.Currency, goal.Currency)
		if err != nil {
			c.log.Warn("rate conversion degraded to face value",
				"goal", goal.ID, "from", d.Currency, "to", goal.Currency, "error", err)
			total += d.Amount
			estimated = true
			continue
		}
		total += converted
	}

	remaining := goal.TargetAmount - total
	if remaining < 0 {
		remaining = 0
	}

	months := MonthsRemaining(asOf, goal.Deadline)
	divisor := months
	if divisor < 1 {
		divisor = 1
	}
	required := remaining / float64(divisor)

	progress := 1.0
	if goal.TargetAmount > 0 {
		progress = total / goal.TargetAmount
		if progress > 1 {
			progress = 1
		}
	}

	return models.MonthlyRequirement{
		GoalID:          goal.ID,
		GoalName:        goal.Name,
		Currency:        goal.Currency,
		TargetAmount:    goal.TargetAmount,
		CurrentTotal:    total,
		RemainingAmount: remaining,
		MonthsRemaining: months,
		RequiredMonthly: required,
		Progress:        progress,
		Deadline:        goal.Deadline,
		Status:          classify(progress, months, required, in.HistoricalMonthlyAverage),
		Estimated:       estimated,
	}
}

// MonthsRemaining is the number of ~30-day months between asOf and the
// deadline, rounded up and floored at zero.
func MonthsRemaining(asOf, deadline time.Time) int {
	days := deadline.Sub(asOf).Hours() / 24
	months := int(math.Ceil(days / daysPerMonth))
	if months < 0 {
		return 0
	}
	return months
}

// classify grades the urgency of a goal's funding situation.
func classify(progress float64, monthsRemaining int, required, historicalAvg float64) models.RequirementStatus {
	switch {
	case progress >= 1:
		return models.RequirementCompleted
	case monthsRemaining <= 1:
		return models.RequirementCritical
	case historicalAvg > 0 && required > attentionMultiple*historicalAvg:
		return models.RequirementAttention
	default:
		return models.RequirementOnTrack
	}
}
