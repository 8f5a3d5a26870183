package models

// AdjustmentStrategy selects how a flex factor is spread across flexible
// goals.
type AdjustmentStrategy string

const (
	// StrategyProportional applies the raw factor to every flexible goal
	// independently.
	StrategyProportional AdjustmentStrategy = "proportional"
	// StrategyBalanced distributes the aggregate change by each goal's
	// share of the flexible pool, cushioning small goals against outsized
	// swings.
	StrategyBalanced AdjustmentStrategy = "balanced"
)

// RiskLevel grades how dangerous an adjustment is for a goal's deadline.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ImpactAnalysis quantifies what an adjustment does to one goal.
type ImpactAnalysis struct {
	// ChangeAmount = adjusted - required (negative when contributing less).
	ChangeAmount float64

	// ChangePercentage is ChangeAmount relative to the nominal requirement,
	// in percent.
	ChangePercentage float64

	// EstimatedDelayMonths is how many months later the goal completes at
	// the post-adjustment rate. Zero for non-negative changes.
	EstimatedDelayMonths int

	RiskLevel RiskLevel
}

// AdjustedRequirement is the output of the flex adjustment engine for one
// goal: the nominal requirement plus the adjusted amount and its impact.
// Ephemeral, like MonthlyRequirement.
type AdjustedRequirement struct {
	Requirement MonthlyRequirement

	// AdjustedAmount is the amount to contribute this month after the flex
	// factor is applied.
	AdjustedAmount float64

	// AdjustmentFactor is the clamped global factor that produced this
	// result.
	AdjustmentFactor float64

	// RedistributionAmount is how much of the aggregate change this goal
	// absorbed under the balanced strategy; zero under proportional.
	RedistributionAmount float64

	// Protected and Skipped echo the per-goal flags the adjustment ran with.
	Protected bool
	Skipped   bool

	Impact ImpactAnalysis
}
