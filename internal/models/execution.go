package models

import "time"

// ExecutionStatus is the phase of a month's execution record.
type ExecutionStatus string

const (
	// ExecutionPlanning means a record exists but tracking has not started.
	ExecutionPlanning ExecutionStatus = "planning"
	// ExecutionExecuting means the snapshot is frozen and contributions are
	// being recorded.
	ExecutionExecuting ExecutionStatus = "executing"
	// ExecutionClosed is terminal: totals are frozen into a
	// CompletedExecution.
	ExecutionClosed ExecutionStatus = "closed"
)

// ExecutionGoalSnapshot is a frozen copy of one goal's plan at the moment
// tracking started. Later edits to the goal or the plan must not alter it.
type ExecutionGoalSnapshot struct {
	GoalID        string
	GoalName      string
	PlannedAmount float64
	Currency      string
}

// Snapshot is the immutable per-month picture taken when tracking starts.
// The ExecutionRecord owns it by value.
type Snapshot struct {
	// TotalPlanned is the sum of the effective amounts of all committed
	// plans.
	TotalPlanned float64

	// ActiveGoalCount is how many snapshotted goals had a non-zero planned
	// amount; GoalCount is the total number snapshotted.
	ActiveGoalCount int
	GoalCount       int

	Goals []ExecutionGoalSnapshot
}

// ExecutionRecord tracks one month's committed plans through the
// planning → executing → closed state machine. At most one non-closed record
// exists per month label.
type ExecutionRecord struct {
	// ID is the unique identifier for the record (UUID format).
	ID string

	// MonthLabel is the "YYYY-MM" month this record tracks.
	MonthLabel string

	Status    ExecutionStatus
	CreatedAt time.Time

	// StartedAt is set when tracking begins; the snapshot is frozen at that
	// instant and never recomputed from live goal state.
	StartedAt *time.Time

	// CompletedAt is set when the month is closed.
	CompletedAt *time.Time

	// CanUndoUntil bounds the undo window for the most recent state
	// transition. Nil when no transition is revertible.
	CanUndoUntil *time.Time

	Snapshot Snapshot
}

// GoalTotal is one goal's frozen contribution total at close time.
type GoalTotal struct {
	GoalID      string
	Planned     float64
	Contributed float64

	// Fulfillment is Contributed / Planned in percent; 0 when nothing was
	// planned.
	Fulfillment float64
}

// CompletedExecution is the frozen close-time summary used by history
// reporting, so that later contribution edits don't retroactively change
// historical reports.
type CompletedExecution struct {
	// ID is the unique identifier (UUID format).
	ID string

	// ExecutionRecordID is the record this summary freezes.
	ExecutionRecordID string

	TotalContributed float64

	// Completion is TotalContributed / Snapshot.TotalPlanned in percent.
	// Values over 100 mean the month was over-funded.
	Completion float64

	ClosedAt   time.Time
	GoalTotals []GoalTotal
}
