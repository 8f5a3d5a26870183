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

const recordColumns = `id, month_label, status, created_at, started_at, completed_at,
	can_undo_until, total_planned, active_goal_count, goal_count`

// OpenRecordForMonth returns the non-closed record for a month, or nil when
// none exists. A partial unique index guarantees at most one such row.
func (s *SQLiteStore) OpenRecordForMonth(ctx context.Context, monthLabel string) (*models.ExecutionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM execution_records
		 WHERE month_label = ? AND status != ?`,
		monthLabel, models.ExecutionClosed,
	)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open record: %w", err)
	}

	if err := s.loadSnapshot(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// GetRecord retrieves a record with its snapshot by ID.
func (s *SQLiteStore) GetRecord(ctx context.Context, recordID string) (*models.ExecutionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM execution_records WHERE id = ?`, recordID)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("execution record %s: %w", recordID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	if err := s.loadSnapshot(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// ClosedRecordForMonth returns the most recently closed record for a month,
// or nil when none exists.
func (s *SQLiteStore) ClosedRecordForMonth(ctx context.Context, monthLabel string) (*models.ExecutionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM execution_records
		 WHERE month_label = ? AND status = ?
		 ORDER BY completed_at DESC LIMIT 1`,
		monthLabel, models.ExecutionClosed,
	)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get closed record: %w", err)
	}

	if err := s.loadSnapshot(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// StartExecution inserts the record with its frozen snapshot and moves the
// plans to executing, in one transaction.
func (s *SQLiteStore) StartExecution(ctx context.Context, record *models.ExecutionRecord, planIDs []string) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO execution_records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.MonthLabel, record.Status, unix(record.CreatedAt),
		unixPtr(record.StartedAt), unixPtr(record.CompletedAt), unixPtr(record.CanUndoUntil),
		record.Snapshot.TotalPlanned, record.Snapshot.ActiveGoalCount, record.Snapshot.GoalCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	for _, gs := range record.Snapshot.Goals {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO execution_goal_snapshots (record_id, goal_id, goal_name, planned_amount, currency)
			 VALUES (?, ?, ?, ?, ?)`,
			record.ID, gs.GoalID, gs.GoalName, gs.PlannedAmount, gs.Currency,
		)
		if err != nil {
			return fmt.Errorf("failed to insert goal snapshot: %w", err)
		}
	}

	if err := setPlanStatesTx(ctx, tx, planIDs, models.PlanExecuting, time.Now()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UndoStart deletes the record (snapshot cascades) and reverts the plans to
// draft, in one transaction.
func (s *SQLiteStore) UndoStart(ctx context.Context, recordID string, planIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM execution_records WHERE id = ?`, recordID)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if err := requireRow(res, "execution record", recordID); err != nil {
		return err
	}

	if err := setPlanStatesTx(ctx, tx, planIDs, models.PlanDraft, time.Now()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CloseExecution marks the record closed, persists the frozen completion
// summary and moves the plans to closed, in one transaction.
func (s *SQLiteStore) CloseExecution(ctx context.Context, recordID string, completedAt, canUndoUntil time.Time, completed *models.CompletedExecution, planIDs []string) error {
	if completed.ID == "" {
		completed.ID = uuid.New().String()
	}
	completed.ExecutionRecordID = recordID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE execution_records SET status = ?, completed_at = ?, can_undo_until = ? WHERE id = ? AND status = ?`,
		models.ExecutionClosed, unix(completedAt), unix(canUndoUntil), recordID, models.ExecutionExecuting,
	)
	if err != nil {
		return fmt.Errorf("failed to close record: %w", err)
	}
	if err := requireRow(res, "executing record", recordID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO completed_executions (id, record_id, total_contributed, completion, closed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		completed.ID, recordID, completed.TotalContributed, completed.Completion, unix(completed.ClosedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert completed execution: %w", err)
	}

	for _, gt := range completed.GoalTotals {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO completed_goal_totals (completed_id, goal_id, planned, contributed, fulfillment)
			 VALUES (?, ?, ?, ?, ?)`,
			completed.ID, gt.GoalID, gt.Planned, gt.Contributed, gt.Fulfillment,
		)
		if err != nil {
			return fmt.Errorf("failed to insert goal total: %w", err)
		}
	}

	if err := setPlanStatesTx(ctx, tx, planIDs, models.PlanClosed, time.Now()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UndoCompletion reverts a closed record to executing, deletes its
// completion summary and moves the plans back to executing, in one
// transaction.
func (s *SQLiteStore) UndoCompletion(ctx context.Context, recordID string, canUndoUntil *time.Time, planIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE execution_records SET status = ?, completed_at = NULL, can_undo_until = ? WHERE id = ? AND status = ?`,
		models.ExecutionExecuting, unixPtr(canUndoUntil), recordID, models.ExecutionClosed,
	)
	if err != nil {
		return fmt.Errorf("failed to reopen record: %w", err)
	}
	if err := requireRow(res, "closed record", recordID); err != nil {
		return err
	}

	// Goal totals cascade with the summary row.
	_, err = tx.ExecContext(ctx, `DELETE FROM completed_executions WHERE record_id = ?`, recordID)
	if err != nil {
		return fmt.Errorf("failed to delete completed execution: %w", err)
	}

	if err := setPlanStatesTx(ctx, tx, planIDs, models.PlanExecuting, time.Now()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// loadSnapshot attaches the per-goal snapshots to a record.
func (s *SQLiteStore) loadSnapshot(ctx context.Context, record *models.ExecutionRecord) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT goal_id, goal_name, planned_amount, currency
		 FROM execution_goal_snapshots WHERE record_id = ? ORDER BY goal_id`,
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get goal snapshots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var gs models.ExecutionGoalSnapshot
		if err := rows.Scan(&gs.GoalID, &gs.GoalName, &gs.PlannedAmount, &gs.Currency); err != nil {
			return fmt.Errorf("failed to scan goal snapshot: %w", err)
		}
		record.Snapshot.Goals = append(record.Snapshot.Goals, gs)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate goal snapshots: %w", err)
	}
	return nil
}

func scanRecord(sc scanner) (*models.ExecutionRecord, error) {
	record := &models.ExecutionRecord{}
	var createdAt int64
	var startedAt, completedAt, canUndoUntil sql.NullInt64
	if err := sc.Scan(
		&record.ID, &record.MonthLabel, &record.Status, &createdAt,
		&startedAt, &completedAt, &canUndoUntil,
		&record.Snapshot.TotalPlanned, &record.Snapshot.ActiveGoalCount, &record.Snapshot.GoalCount,
	); err != nil {
		return nil, err
	}
	record.CreatedAt = fromUnix(createdAt)
	record.StartedAt = fromUnixPtr(startedAt)
	record.CompletedAt = fromUnixPtr(completedAt)
	record.CanUndoUntil = fromUnixPtr(canUndoUntil)
	return record, nil
}
