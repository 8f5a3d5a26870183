package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/lueurxax/cryptosavings-server/internal/models"
	"github.com/lueurxax/cryptosavings-server/internal/queue"
	"github.com/lueurxax/cryptosavings-server/internal/storage"
)

// defaultUndoWindow bounds how long a start or finish transition can be
// reverted.
const defaultUndoWindow = 24 * time.Hour

// ExecutionService drives a month through its planning → executing → closed
// lifecycle. Every mutation runs on the month's serialized mutator.
type ExecutionService struct {
	store      storage.Store
	mutators   *queue.Group
	log        *slog.Logger
	now        func() time.Time
	undoWindow time.Duration
}

// NewExecutionService wires an execution service. Zero undoWindow selects the
// 24h default.
func NewExecutionService(store storage.Store, mutators *queue.Group, undoWindow time.Duration, log *slog.Logger) *ExecutionService {
	if undoWindow == 0 {
		undoWindow = defaultUndoWindow
	}
	if log == nil {
		log = slog.Default()
	}
	return &ExecutionService{
		store:      store,
		mutators:   mutators,
		log:        log,
		now:        time.Now,
		undoWindow: undoWindow,
	}
}

// StartTracking commits the month: it freezes the pending draft plans into an
// immutable snapshot and opens an executing record. Fails with
// ErrAlreadyTracking when a non-closed record already exists, and with a
// validation error when the month has nothing to commit.
func (s *ExecutionService) StartTracking(ctx context.Context, monthLabel string) (*models.ExecutionRecord, error) {
	if !models.ValidMonthLabel(monthLabel) {
		return nil, invalidf("month", "%q is not a YYYY-MM label", monthLabel)
	}

	var record *models.ExecutionRecord
	err := s.mutators.For(monthLabel).Do(ctx, func(ctx context.Context) error {
		open, err := s.store.OpenRecordForMonth(ctx, monthLabel)
		if err != nil {
			return err
		}
		if open != nil {
			return ErrAlreadyTracking
		}

		plans, err := s.store.PlansForMonth(ctx, monthLabel)
		if err != nil {
			return err
		}
		committable := make([]*models.MonthlyPlan, 0, len(plans))
		for _, plan := range plans {
			if plan.State != models.PlanDraft || plan.Status != models.PlanPending {
				continue
			}
			if plan.EffectiveAmount() < 0 {
				return invalidf("amount", "plan for goal %s has a negative effective amount", plan.GoalID)
			}
			committable = append(committable, plan)
		}
		if len(committable) == 0 {
			return invalidf("month", "no pending plans to commit for %s", monthLabel)
		}

		// Goal names are copied into the snapshot at the freeze instant, so
		// later renames don't rewrite what this month tracked against.
		names := make(map[string]string, len(committable))
		for _, plan := range committable {
			goal, err := s.store.GetGoal(ctx, plan.GoalID)
			if err != nil {
				return err
			}
			names[plan.GoalID] = goal.Name
		}

		now := s.now()
		undoUntil := now.Add(s.undoWindow)
		record = &models.ExecutionRecord{
			MonthLabel:   monthLabel,
			Status:       models.ExecutionExecuting,
			CreatedAt:    now,
			StartedAt:    &now,
			CanUndoUntil: &undoUntil,
			Snapshot:     buildSnapshot(committable, names),
		}

		planIDs := make([]string, len(committable))
		for i, plan := range committable {
			planIDs[i] = plan.ID
		}
		if err := s.store.StartExecution(ctx, record, planIDs); err != nil {
			return err
		}

		s.log.Info("started tracking",
			"month", monthLabel, "record", record.ID,
			"total_planned", record.Snapshot.TotalPlanned,
			"goals", record.Snapshot.GoalCount)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// buildSnapshot freezes the plans' effective amounts and goal names. Later
// edits to goals or plans must not change what this month tracks against.
func buildSnapshot(plans []*models.MonthlyPlan, goalNames map[string]string) models.Snapshot {
	snapshot := models.Snapshot{GoalCount: len(plans)}
	for _, plan := range plans {
		amount := plan.EffectiveAmount()
		snapshot.TotalPlanned += amount
		if amount > 0 {
			snapshot.ActiveGoalCount++
		}
		snapshot.Goals = append(snapshot.Goals, models.ExecutionGoalSnapshot{
			GoalID:        plan.GoalID,
			GoalName:      goalNames[plan.GoalID],
			PlannedAmount: amount,
			Currency:      plan.Currency,
		})
	}
	return snapshot
}

// Record returns the month's non-closed execution record, or
// ErrNoActiveRecord.
func (s *ExecutionService) Record(ctx context.Context, monthLabel string) (*models.ExecutionRecord, error) {
	if !models.ValidMonthLabel(monthLabel) {
		return nil, invalidf("month", "%q is not a YYYY-MM label", monthLabel)
	}
	record, err := s.store.OpenRecordForMonth(ctx, monthLabel)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNoActiveRecord
	}
	return record, nil
}

// RecordContribution records a deposit against the month's executing record.
// The goal must be part of the frozen snapshot.
func (s *ExecutionService) RecordContribution(ctx context.Context, monthLabel string, c *models.Contribution) error {
	if !models.ValidMonthLabel(monthLabel) {
		return invalidf("month", "%q is not a YYYY-MM label", monthLabel)
	}
	if c.Amount <= 0 {
		return invalidf("amount", "must be positive, got %f", c.Amount)
	}
	if c.GoalID == "" {
		return invalidf("goal_id", "required")
	}

	return s.mutators.For(monthLabel).Do(ctx, func(ctx context.Context) error {
		record, err := s.store.OpenRecordForMonth(ctx, monthLabel)
		if err != nil {
			return err
		}
		if record == nil || record.Status != models.ExecutionExecuting {
			return ErrNoActiveRecord
		}

		found := false
		for _, gs := range record.Snapshot.Goals {
			if gs.GoalID == c.GoalID {
				found = true
				break
			}
		}
		if !found {
			return invalidf("goal_id", "goal %s is not part of this month's snapshot", c.GoalID)
		}

		c.ExecutionRecordID = record.ID
		c.MonthLabel = monthLabel
		if c.Date.IsZero() {
			c.Date = s.now()
		}
		if err := s.store.CreateContribution(ctx, c); err != nil {
			return err
		}

		s.log.Info("recorded contribution",
			"month", monthLabel, "goal", c.GoalID, "amount", c.Amount, "asset", c.AssetID)
		return nil
	})
}

// GoalProgress is one goal's live progress against its snapshotted plan.
type GoalProgress struct {
	GoalID        string
	GoalName      string
	Currency      string
	Planned       float64
	Contributed   float64
	Fulfillment   float64
	Contributions int
}

// Progress is a month's live progress against the frozen snapshot.
type Progress struct {
	MonthLabel       string
	RecordID         string
	TotalPlanned     float64
	TotalContributed float64

	// Completion is TotalContributed / TotalPlanned in percent. Over 100
	// means the month is over-funded.
	Completion float64

	Goals []GoalProgress
}

// Progress computes the month's live progress: recorded contributions summed
// per goal against the frozen snapshot.
func (s *ExecutionService) Progress(ctx context.Context, monthLabel string) (*Progress, error) {
	if !models.ValidMonthLabel(monthLabel) {
		return nil, invalidf("month", "%q is not a YYYY-MM label", monthLabel)
	}

	record, err := s.store.OpenRecordForMonth(ctx, monthLabel)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNoActiveRecord
	}
	return s.progressFor(ctx, record)
}

func (s *ExecutionService) progressFor(ctx context.Context, record *models.ExecutionRecord) (*Progress, error) {
	contributions, err := s.store.ContributionsForRecord(ctx, record.ID)
	if err != nil {
		return nil, err
	}

	byGoal := make(map[string]*GoalProgress, len(record.Snapshot.Goals))
	progress := &Progress{
		MonthLabel:   record.MonthLabel,
		RecordID:     record.ID,
		TotalPlanned: record.Snapshot.TotalPlanned,
	}
	for _, gs := range record.Snapshot.Goals {
		gp := &GoalProgress{
			GoalID:   gs.GoalID,
			GoalName: gs.GoalName,
			Currency: gs.Currency,
			Planned:  gs.PlannedAmount,
		}
		byGoal[gs.GoalID] = gp
	}

	for _, c := range contributions {
		gp, ok := byGoal[c.GoalID]
		if !ok {
			// Contributions only enter through RecordContribution, which
			// checks snapshot membership, so this indicates manual edits.
			s.log.Warn("contribution references goal outside snapshot",
				"record", record.ID, "goal", c.GoalID)
			continue
		}
		gp.Contributed += c.Amount
		gp.Contributions++
		progress.TotalContributed += c.Amount
	}

	for _, gs := range record.Snapshot.Goals {
		gp := byGoal[gs.GoalID]
		if gp.Planned > 0 {
			gp.Fulfillment = 100 * gp.Contributed / gp.Planned
		}
		progress.Goals = append(progress.Goals, *gp)
	}
	if progress.TotalPlanned > 0 {
		progress.Completion = 100 * progress.TotalContributed / progress.TotalPlanned
	}
	return progress, nil
}

// Finish closes the month: contribution totals are frozen into a
// CompletedExecution and the record becomes closed. A fresh undo window
// opens for the close transition.
func (s *ExecutionService) Finish(ctx context.Context, monthLabel string) (*models.CompletedExecution, error) {
	if !models.ValidMonthLabel(monthLabel) {
		return nil, invalidf("month", "%q is not a YYYY-MM label", monthLabel)
	}

	var completed *models.CompletedExecution
	err := s.mutators.For(monthLabel).Do(ctx, func(ctx context.Context) error {
		record, err := s.store.OpenRecordForMonth(ctx, monthLabel)
		if err != nil {
			return err
		}
		if record == nil || record.Status != models.ExecutionExecuting {
			return ErrNoActiveRecord
		}

		progress, err := s.progressFor(ctx, record)
		if err != nil {
			return err
		}

		now := s.now()
		completed = &models.CompletedExecution{
			TotalContributed: progress.TotalContributed,
			Completion:       progress.Completion,
			ClosedAt:         now,
		}
		for _, gp := range progress.Goals {
			completed.GoalTotals = append(completed.GoalTotals, models.GoalTotal{
				GoalID:      gp.GoalID,
				Planned:     gp.Planned,
				Contributed: gp.Contributed,
				Fulfillment: gp.Fulfillment,
			})
		}

		planIDs, err := s.planIDsForMonth(ctx, monthLabel, models.PlanExecuting)
		if err != nil {
			return err
		}
		if err := s.store.CloseExecution(ctx, record.ID, now, now.Add(s.undoWindow), completed, planIDs); err != nil {
			return err
		}

		s.log.Info("finished month",
			"month", monthLabel, "record", record.ID,
			"contributed", completed.TotalContributed, "completion", completed.Completion)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

// Undo reverts the month's most recent transition, inside its undo window.
// An executing record is removed entirely, returning the month to planning
// with its plans back in draft. A closed record is reopened to executing and
// its frozen summary discarded.
func (s *ExecutionService) Undo(ctx context.Context, monthLabel string) error {
	if !models.ValidMonthLabel(monthLabel) {
		return invalidf("month", "%q is not a YYYY-MM label", monthLabel)
	}

	return s.mutators.For(monthLabel).Do(ctx, func(ctx context.Context) error {
		record, err := s.store.OpenRecordForMonth(ctx, monthLabel)
		if err != nil {
			return err
		}
		if record != nil {
			return s.undoStart(ctx, record)
		}

		record, err = s.store.ClosedRecordForMonth(ctx, monthLabel)
		if err != nil {
			return err
		}
		if record == nil {
			return ErrNothingToUndo
		}
		return s.undoCompletion(ctx, record)
	})
}

func (s *ExecutionService) undoStart(ctx context.Context, record *models.ExecutionRecord) error {
	if err := s.checkUndoWindow(record); err != nil {
		return err
	}

	planIDs, err := s.planIDsForMonth(ctx, record.MonthLabel, models.PlanExecuting)
	if err != nil {
		return err
	}
	if err := s.store.UndoStart(ctx, record.ID, planIDs); err != nil {
		return err
	}

	s.log.Info("undid tracking start", "month", record.MonthLabel, "record", record.ID)
	return nil
}

func (s *ExecutionService) undoCompletion(ctx context.Context, record *models.ExecutionRecord) error {
	if err := s.checkUndoWindow(record); err != nil {
		return err
	}

	// The start transition's undo bound is restored from StartedAt; it may
	// already be in the past, in which case the reopened record simply can't
	// be un-started anymore.
	var startUndo *time.Time
	if record.StartedAt != nil {
		t := record.StartedAt.Add(s.undoWindow)
		startUndo = &t
	}

	planIDs, err := s.planIDsForMonth(ctx, record.MonthLabel, models.PlanClosed)
	if err != nil {
		return err
	}
	if err := s.store.UndoCompletion(ctx, record.ID, startUndo, planIDs); err != nil {
		return err
	}

	s.log.Info("undid month completion", "month", record.MonthLabel, "record", record.ID)
	return nil
}

// checkUndoWindow enforces the undo bound on the record's most recent
// transition.
func (s *ExecutionService) checkUndoWindow(record *models.ExecutionRecord) error {
	if record.CanUndoUntil == nil || s.now().After(*record.CanUndoUntil) {
		return ErrUndoExpired
	}
	return nil
}

func (s *ExecutionService) planIDsForMonth(ctx context.Context, monthLabel string, state models.PlanState) ([]string, error) {
	plans, err := s.store.PlansForMonth(ctx, monthLabel)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, plan := range plans {
		if plan.State == state {
			ids = append(ids, plan.ID)
		}
	}
	return ids, nil
}
