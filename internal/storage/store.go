// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/lueurxax/cryptosavings-server/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for the planning engine's persistence. The
// multi-entity operations (StartExecution, CloseExecution and their undos)
// must apply record and plan changes in a single transaction: partial
// application must never be observable.
//
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// etc.) without changing the service layer.
type Store interface {
	GoalStore
	PlanStore
	ExecutionStore
	ContributionStore
	UserStore

	// Close releases any resources held by the store.
	Close() error
}

// GoalStore owns savings goals.
type GoalStore interface {
	// CreateGoal persists a new goal, populating ID and timestamps when
	// unset.
	CreateGoal(ctx context.Context, goal *models.Goal) error

	// UpdateGoal updates an existing goal's mutable fields.
	UpdateGoal(ctx context.Context, goal *models.Goal) error

	// GetGoal retrieves a goal by ID. Returns ErrNotFound when absent.
	GetGoal(ctx context.Context, goalID string) (*models.Goal, error)

	// ActiveGoals lists goals with active status.
	ActiveGoals(ctx context.Context) ([]*models.Goal, error)

	// ArchiveGoal marks a goal archived.
	ArchiveGoal(ctx context.Context, goalID string) error
}

// PlanStore owns monthly plans, one per (goal, month label) pair.
type PlanStore interface {
	// CreatePlan inserts a plan, populating ID and timestamps when unset.
	CreatePlan(ctx context.Context, plan *models.MonthlyPlan) error

	// PlanForGoalMonth point-looks-up the plan for (goalID, monthLabel).
	// Returns nil, nil when absent — callers use this for
	// lookup-before-insert.
	PlanForGoalMonth(ctx context.Context, goalID, monthLabel string) (*models.MonthlyPlan, error)

	// PlansForMonth lists all plans for a month label.
	PlansForMonth(ctx context.Context, monthLabel string) ([]*models.MonthlyPlan, error)

	// SetPlanCustomAmount sets or clears (nil) a plan's custom amount.
	SetPlanCustomAmount(ctx context.Context, planID string, amount *float64) error

	// SetPlanStatus records a terminal status on a stale draft plan.
	SetPlanStatus(ctx context.Context, planID string, status models.PlanStatus) error

	// DeletePlan removes a plan row.
	DeletePlan(ctx context.Context, planID string) error

	// DraftPlansBefore lists draft plans whose month label is strictly
	// before the given label — months that were planned but never executed.
	DraftPlansBefore(ctx context.Context, monthLabel string) ([]*models.MonthlyPlan, error)
}

// ExecutionStore owns execution records and their atomic transitions.
type ExecutionStore interface {
	// OpenRecordForMonth returns the non-closed record for a month label,
	// or nil, nil when none exists.
	OpenRecordForMonth(ctx context.Context, monthLabel string) (*models.ExecutionRecord, error)

	// GetRecord retrieves a record (with snapshot) by ID. Returns
	// ErrNotFound when absent.
	GetRecord(ctx context.Context, recordID string) (*models.ExecutionRecord, error)

	// ClosedRecordForMonth returns the most recently closed record for a
	// month label, or nil, nil when none exists.
	ClosedRecordForMonth(ctx context.Context, monthLabel string) (*models.ExecutionRecord, error)

	// StartExecution inserts the record with its snapshot and moves the
	// given plans to executing, atomically.
	StartExecution(ctx context.Context, record *models.ExecutionRecord, planIDs []string) error

	// UndoStart deletes the record (and its snapshot) and moves the plans
	// back to draft, atomically.
	UndoStart(ctx context.Context, recordID string, planIDs []string) error

	// CloseExecution marks the record closed, persists the frozen
	// completed-execution summary and moves the plans to closed,
	// atomically.
	CloseExecution(ctx context.Context, recordID string, completedAt, canUndoUntil time.Time, completed *models.CompletedExecution, planIDs []string) error

	// UndoCompletion reverts a closed record to executing, deletes its
	// completed-execution summary and moves the plans back to executing,
	// atomically. canUndoUntil restores the start-transition undo bound.
	UndoCompletion(ctx context.Context, recordID string, canUndoUntil *time.Time, planIDs []string) error
}

// ContributionStore owns recorded deposits.
type ContributionStore interface {
	// CreateContribution inserts a contribution, populating ID when unset.
	CreateContribution(ctx context.Context, c *models.Contribution) error

	// ContributionsForRecord lists contributions linked to an execution
	// record.
	ContributionsForRecord(ctx context.Context, recordID string) ([]*models.Contribution, error)

	// ContributionsForGoal lists all contributions toward a goal, most
	// recent first.
	ContributionsForGoal(ctx context.Context, goalID string) ([]*models.Contribution, error)

	// DeleteContribution removes a contribution row.
	DeleteContribution(ctx context.Context, contributionID string) error
}

// HistoryStore is the read path over closed execution records. Split from
// Store so reporting code can depend on reads only.
type HistoryStore interface {
	// ClosedRecords lists closed records most-recent-first, up to limit.
	ClosedRecords(ctx context.Context, limit int) ([]*models.ExecutionRecord, error)

	// CompletedExecutionForRecord returns the frozen close-time summary
	// for a record. Returns ErrNotFound when the record is not closed.
	CompletedExecutionForRecord(ctx context.Context, recordID string) (*models.CompletedExecution, error)
}

// UserStore owns user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
