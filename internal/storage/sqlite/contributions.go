package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lueurxax/cryptosavings-server/internal/models"
)

const contributionColumns = `id, goal_id, asset_id, amount, asset_amount, exchange_rate,
	date, month_label, execution_record_id, comment`

// CreateContribution persists a recorded deposit.
func (s *SQLiteStore) CreateContribution(ctx context.Context, c *models.Contribution) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Date.IsZero() {
		c.Date = time.Now()
	}
	if c.MonthLabel == "" {
		c.MonthLabel = models.MonthLabel(c.Date)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contributions (`+contributionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.GoalID, c.AssetID, c.Amount, c.AssetAmount, c.ExchangeRate,
		unix(c.Date), c.MonthLabel, nullString(c.ExecutionRecordID), nullString(c.Comment),
	)
	if err != nil {
		return fmt.Errorf("failed to insert contribution: %w", err)
	}
	return nil
}

// ContributionsForRecord lists deposits linked to an execution record.
func (s *SQLiteStore) ContributionsForRecord(ctx context.Context, recordID string) ([]*models.Contribution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contributionColumns+` FROM contributions
		 WHERE execution_record_id = ? ORDER BY date, id`,
		recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions for record: %w", err)
	}
	defer rows.Close()

	return collectContributions(rows)
}

// ContributionsForGoal lists all deposits toward a goal, most recent first.
func (s *SQLiteStore) ContributionsForGoal(ctx context.Context, goalID string) ([]*models.Contribution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contributionColumns+` FROM contributions
		 WHERE goal_id = ? ORDER BY date DESC, id`,
		goalID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions for goal: %w", err)
	}
	defer rows.Close()

	return collectContributions(rows)
}

// DeleteContribution removes a contribution row.
func (s *SQLiteStore) DeleteContribution(ctx context.Context, contributionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contributions WHERE id = ?`, contributionID)
	if err != nil {
		return fmt.Errorf("failed to delete contribution: %w", err)
	}
	return requireRow(res, "contribution", contributionID)
}

func collectContributions(rows *sql.Rows) ([]*models.Contribution, error) {
	var contributions []*models.Contribution
	for rows.Next() {
		c := &models.Contribution{}
		var date int64
		var recordID, comment sql.NullString
		if err := rows.Scan(
			&c.ID, &c.GoalID, &c.AssetID, &c.Amount, &c.AssetAmount, &c.ExchangeRate,
			&date, &c.MonthLabel, &recordID, &comment,
		); err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		c.Date = fromUnix(date)
		if recordID.Valid {
			c.ExecutionRecordID = recordID.String
		}
		if comment.Valid {
			c.Comment = comment.String
		}
		contributions = append(contributions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contributions: %w", err)
	}
	return contributions, nil
}
