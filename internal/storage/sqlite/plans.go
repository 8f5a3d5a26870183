package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lueurxax/cryptosavings-server/internal/models"
)

const planColumns = `id, goal_id, month_label, required_monthly, remaining_amount,
	months_remaining, currency, status, state, custom_amount, created_at, updated_at`

// CreatePlan inserts a new monthly plan. The (goal_id, month_label) unique
// constraint backs up the lookup-before-insert done under the serialized
// mutator.
func (s *SQLiteStore) CreatePlan(ctx context.Context, plan *models.MonthlyPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	now := time.Now()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now
	if plan.State == "" {
		plan.State = models.PlanDraft
	}
	if plan.Status == "" {
		plan.Status = models.PlanPending
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO monthly_plans (`+planColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.GoalID, plan.MonthLabel, plan.RequiredMonthly, plan.RemainingAmount,
		plan.MonthsRemaining, plan.Currency, plan.Status, plan.State,
		nullFloat(plan.CustomAmount), unix(plan.CreatedAt), unix(plan.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert plan: %w", err)
	}
	return nil
}

// PlanForGoalMonth retrieves the plan for (goalID, monthLabel), or nil when
// absent.
func (s *SQLiteStore) PlanForGoalMonth(ctx context.Context, goalID, monthLabel string) (*models.MonthlyPlan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM monthly_plans WHERE goal_id = ? AND month_label = ?`,
		goalID, monthLabel,
	)

	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return plan, nil
}

// PlansForMonth lists all plans for a month label.
func (s *SQLiteStore) PlansForMonth(ctx context.Context, monthLabel string) ([]*models.MonthlyPlan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+planColumns+` FROM monthly_plans WHERE month_label = ? ORDER BY created_at, id`,
		monthLabel,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	return collectPlans(rows)
}

// SetPlanCustomAmount sets or clears a plan's custom amount.
func (s *SQLiteStore) SetPlanCustomAmount(ctx context.Context, planID string, amount *float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE monthly_plans SET custom_amount = ?, updated_at = ? WHERE id = ?`,
		nullFloat(amount), unix(time.Now()), planID,
	)
	if err != nil {
		return fmt.Errorf("failed to set custom amount: %w", err)
	}
	return requireRow(res, "plan", planID)
}

// SetPlanStatus records a terminal status on a plan.
func (s *SQLiteStore) SetPlanStatus(ctx context.Context, planID string, status models.PlanStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE monthly_plans SET status = ?, updated_at = ? WHERE id = ?`,
		status, unix(time.Now()), planID,
	)
	if err != nil {
		return fmt.Errorf("failed to set plan status: %w", err)
	}
	return requireRow(res, "plan", planID)
}

// DeletePlan removes a plan row.
func (s *SQLiteStore) DeletePlan(ctx context.Context, planID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM monthly_plans WHERE id = ?`, planID)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	return requireRow(res, "plan", planID)
}

// DraftPlansBefore lists still-pending draft plans from months strictly
// before monthLabel.
func (s *SQLiteStore) DraftPlansBefore(ctx context.Context, monthLabel string) ([]*models.MonthlyPlan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+planColumns+` FROM monthly_plans
		 WHERE state = ? AND status = ? AND month_label < ?
		 ORDER BY month_label, created_at`,
		models.PlanDraft, models.PlanPending, monthLabel,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale plans: %w", err)
	}
	defer rows.Close()

	return collectPlans(rows)
}

// setPlanStatesTx moves a set of plans to a new state inside a transaction.
func setPlanStatesTx(ctx context.Context, tx *sql.Tx, planIDs []string, state models.PlanState, now time.Time) error {
	for _, id := range planIDs {
		res, err := tx.ExecContext(ctx,
			`UPDATE monthly_plans SET state = ?, updated_at = ? WHERE id = ?`,
			state, unix(now), id,
		)
		if err != nil {
			return fmt.Errorf("failed to update plan state: %w", err)
		}
		if err := requireRow(res, "plan", id); err != nil {
			return err
		}
	}
	return nil
}

func scanPlan(sc scanner) (*models.MonthlyPlan, error) {
	plan := &models.MonthlyPlan{}
	var custom sql.NullFloat64
	var createdAt, updatedAt int64
	if err := sc.Scan(
		&plan.ID, &plan.GoalID, &plan.MonthLabel, &plan.RequiredMonthly, &plan.RemainingAmount,
		&plan.MonthsRemaining, &plan.Currency, &plan.Status, &plan.State,
		&custom, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	plan.CustomAmount = fromNullFloat(custom)
	plan.CreatedAt = fromUnix(createdAt)
	plan.UpdatedAt = fromUnix(updatedAt)
	return plan, nil
}

func collectPlans(rows *sql.Rows) ([]*models.MonthlyPlan, error) {
	var plans []*models.MonthlyPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plans: %w", err)
	}
	return plans, nil
}
