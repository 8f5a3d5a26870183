package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lueurxax/cryptosavings-server/internal/models"
	"github.com/lueurxax/cryptosavings-server/internal/storage"
)

// ClosedRecords lists closed execution records, most recent first.
func (s *SQLiteStore) ClosedRecords(ctx context.Context, limit int) ([]*models.ExecutionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM execution_records
		 WHERE status = ? ORDER BY month_label DESC, completed_at DESC LIMIT ?`,
		models.ExecutionClosed, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list closed records: %w", err)
	}
	defer rows.Close()

	var records []*models.ExecutionRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	for _, record := range records {
		if err := s.loadSnapshot(ctx, record); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// CompletedExecutionForRecord returns the frozen close-time summary for a
// record.
func (s *SQLiteStore) CompletedExecutionForRecord(ctx context.Context, recordID string) (*models.CompletedExecution, error) {
	completed := &models.CompletedExecution{}
	var closedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, record_id, total_contributed, completion, closed_at
		 FROM completed_executions WHERE record_id = ?`,
		recordID,
	).Scan(&completed.ID, &completed.ExecutionRecordID, &completed.TotalContributed,
		&completed.Completion, &closedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("completed execution for record %s: %w", recordID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get completed execution: %w", err)
	}
	completed.ClosedAt = fromUnix(closedAt)

	rows, err := s.db.QueryContext(ctx,
		`SELECT goal_id, planned, contributed, fulfillment
		 FROM completed_goal_totals WHERE completed_id = ? ORDER BY goal_id`,
		completed.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get goal totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var gt models.GoalTotal
		if err := rows.Scan(&gt.GoalID, &gt.Planned, &gt.Contributed, &gt.Fulfillment); err != nil {
			return nil, fmt.Errorf("failed to scan goal total: %w", err)
		}
		completed.GoalTotals = append(completed.GoalTotals, gt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate goal totals: %w", err)
	}
	return completed, nil
}
