package models

import "time"

// PlanState is the per-plan mirror of the month's overall phase.
type PlanState string

const (
	// PlanDraft means the amount is still editable and not yet committed.
	PlanDraft PlanState = "draft"
	// PlanExecuting means the month has been committed and contributions
	// are being tracked against the frozen snapshot.
	PlanExecuting PlanState = "executing"
	// PlanClosed is terminal: the month was finished.
	PlanClosed PlanState = "closed"
)

// PlanStatus records how a plan ended up, for plans that never executed.
type PlanStatus string

const (
	// PlanPending is the normal status of a live plan.
	PlanPending PlanStatus = "pending"
	// PlanCompleted marks a stale draft that was resolved as "done anyway".
	PlanCompleted PlanStatus = "completed"
	// PlanSkipped marks a stale draft that was resolved as skipped.
	PlanSkipped PlanStatus = "skipped"
)

// MonthlyPlan is one goal's contribution plan for one month. There is at
// most one plan per (GoalID, MonthLabel) pair; the serialized mutator plus a
// lookup-before-insert in the store enforce this under concurrent callers.
type MonthlyPlan struct {
	// ID is the unique identifier for the plan (UUID format).
	ID string

	// GoalID is the goal this plan contributes to.
	GoalID string

	// MonthLabel is the "YYYY-MM" month this plan belongs to.
	MonthLabel string

	// RequiredMonthly is the nominal amount derived at plan creation.
	RequiredMonthly float64

	// RemainingAmount and MonthsRemaining are copied from the requirement
	// at creation time, for display without recomputation.
	RemainingAmount float64
	MonthsRemaining int

	// Currency is the goal currency the amounts are denominated in.
	Currency string

	// Status is pending for live plans; stale-plan resolution can set it to
	// completed or skipped without ever creating an execution record.
	Status PlanStatus

	// State mirrors the month's phase: draft, executing or closed.
	State PlanState

	// CustomAmount, when set, overrides RequiredMonthly as the effective
	// amount. Set by flex adjustment.
	CustomAmount *float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveAmount is the amount that actually counts for this month:
// CustomAmount when set, RequiredMonthly otherwise. This is the single place
// the override is resolved.
func (p *MonthlyPlan) EffectiveAmount() float64 {
	if p.CustomAmount != nil {
		return *p.CustomAmount
	}
	return p.RequiredMonthly
}
