package models

import "time"

// RequirementStatus classifies how urgent a goal's funding situation is.
type RequirementStatus string

const (
	// RequirementCompleted means the goal target is already reached.
	RequirementCompleted RequirementStatus = "completed"
	// RequirementOnTrack means the nominal monthly contribution is sustainable.
	RequirementOnTrack RequirementStatus = "on_track"
	// RequirementAttention means the required monthly contribution is well
	// above the goal's historical contribution rate.
	RequirementAttention RequirementStatus = "attention"
	// RequirementCritical means the deadline is at most a month away and the
	// goal is not funded.
	RequirementCritical RequirementStatus = "critical"
)

// MonthlyRequirement is the derived nominal contribution for one goal for
// one planning session. Requirements are ephemeral: they are recomputed each
// session and never persisted.
type MonthlyRequirement struct {
	GoalID   string
	GoalName string
	Currency string

	// TargetAmount is the goal target, in the goal currency.
	TargetAmount float64

	// CurrentTotal is the sum of contributions converted to the goal
	// currency. Conversions that fail fall back to face value and set
	// Estimated.
	CurrentTotal float64

	// RemainingAmount = max(TargetAmount - CurrentTotal, 0).
	RemainingAmount float64

	// MonthsRemaining = max(ceil(daysUntilDeadline / 30), 0).
	MonthsRemaining int

	// RequiredMonthly = RemainingAmount / max(MonthsRemaining, 1).
	RequiredMonthly float64

	// Progress is CurrentTotal / TargetAmount, in [0, 1].
	Progress float64

	Deadline time.Time
	Status   RequirementStatus

	// Estimated is set when at least one rate conversion for this goal
	// degraded to face value.
	Estimated bool
}
