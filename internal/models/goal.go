package models

import "time"

// GoalStatus is the lifecycle status of a savings goal.
type GoalStatus string

const (
	// GoalActive means the goal participates in monthly planning.
	GoalActive GoalStatus = "active"
	// GoalArchived means the goal is kept for history but no longer planned.
	GoalArchived GoalStatus = "archived"
)

// Goal represents a savings goal: a target amount in a target currency to be
// reached by a deadline. The planning engine only reads goals; editing them
// after tracking has started for a month must not alter that month's
// snapshot.
type Goal struct {
	// ID is the unique identifier for the goal (UUID format).
	ID string

	// Name is the display name of the goal (e.g., "Emergency Fund").
	Name string

	// Currency is the currency the target is denominated in (e.g., "USD").
	Currency string

	// TargetAmount is the amount to accumulate, in Currency.
	TargetAmount float64

	// Deadline is when the target should be reached.
	Deadline time.Time

	// Status is active or archived. Archived goals are excluded from
	// planning but keep their history.
	Status GoalStatus

	// CreatedAt is when the goal was created.
	CreatedAt time.Time

	// UpdatedAt is when the goal was last modified.
	UpdatedAt time.Time
}

// Active reports whether the goal should be included in monthly planning.
func (g *Goal) Active() bool {
	return g.Status == GoalActive
}
