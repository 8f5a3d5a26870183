package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lueurxax/cryptosavings-server/internal/models"
	"github.com/lueurxax/cryptosavings-server/internal/storage"
)

const goalColumns = "id, name, currency, target_amount, deadline, status, created_at, updated_at"

// CreateGoal persists a new goal to the database.
func (s *SQLiteStore) CreateGoal(ctx context.Context, goal *models.Goal) error {
	if goal.ID == "" {
		goal.ID = uuid.New().String()
	}
	now := time.Now()
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = now
	}
	goal.UpdatedAt = now
	if goal.Status == "" {
		goal.Status = models.GoalActive
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO goals (`+goalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		goal.ID, goal.Name, goal.Currency, goal.TargetAmount,
		unix(goal.Deadline), goal.Status, unix(goal.CreatedAt), unix(goal.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert goal: %w", err)
	}
	return nil
}

// UpdateGoal updates a goal's mutable fields.
func (s *SQLiteStore) UpdateGoal(ctx context.Context, goal *models.Goal) error {
	goal.UpdatedAt = time.Now()

	res, err := s.db.ExecContext(ctx,
		`UPDATE goals SET name = ?, currency = ?, target_amount = ?, deadline = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		goal.Name, goal.Currency, goal.TargetAmount, unix(goal.Deadline),
		goal.Status, unix(goal.UpdatedAt), goal.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	return requireRow(res, "goal", goal.ID)
}

// GetGoal retrieves a goal by ID.
func (s *SQLiteStore) GetGoal(ctx context.Context, goalID string) (*models.Goal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = ?`, goalID)

	goal, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("goal %s: %w", goalID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	return goal, nil
}

// ActiveGoals lists active goals ordered by deadline.
func (s *SQLiteStore) ActiveGoals(ctx context.Context) ([]*models.Goal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE status = ? ORDER BY deadline`,
		models.GoalActive,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active goals: %w", err)
	}
	defer rows.Close()

	var goals []*models.Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate goals: %w", err)
	}
	return goals, nil
}

// ArchiveGoal marks a goal archived.
func (s *SQLiteStore) ArchiveGoal(ctx context.Context, goalID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE goals SET status = ?, updated_at = ? WHERE id = ?`,
		models.GoalArchived, unix(time.Now()), goalID,
	)
	if err != nil {
		return fmt.Errorf("failed to archive goal: %w", err)
	}
	return requireRow(res, "goal", goalID)
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanGoal(sc scanner) (*models.Goal, error) {
	goal := &models.Goal{}
	var deadline, createdAt, updatedAt int64
	if err := sc.Scan(
		&goal.ID, &goal.Name, &goal.Currency, &goal.TargetAmount,
		&deadline, &goal.Status, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	goal.Deadline = fromUnix(deadline)
	goal.CreatedAt = fromUnix(createdAt)
	goal.UpdatedAt = fromUnix(updatedAt)
	return goal, nil
}

// requireRow converts a zero-row update into ErrNotFound.
func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}
