package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/cryptosavings-server/internal/calculator"
	"github.com/lueurxax/cryptosavings-server/internal/models"
	"github.com/lueurxax/cryptosavings-server/internal/queue"
	"github.com/lueurxax/cryptosavings-server/internal/rates"
	"github.com/lueurxax/cryptosavings-server/internal/storage"
	"github.com/lueurxax/cryptosavings-server/internal/storage/sqlite"
)

// testEnv bundles real storage with the services under a controllable clock.
type testEnv struct {
	store     *sqlite.SQLiteStore
	planning  *PlanningService
	execution *ExecutionService
	mutators  *queue.Group

	mu  sync.Mutex
	now time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "cryptosavings-service-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	// Fixed 2:1 rate for any cross-currency conversion.
	provider := rates.ProviderFunc(func(_ context.Context, amount float64, from, to string) (float64, error) {
		if from == to {
			return amount, nil
		}
		return amount * 2, nil
	})

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	env := &testEnv{
		store:    store,
		mutators: queue.NewGroup(),
		now:      time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC),
	}
	t.Cleanup(env.mutators.Close)

	clock := func() time.Time {
		env.mu.Lock()
		defer env.mu.Unlock()
		return env.now
	}

	calc := calculator.NewCalculator(provider, log)
	env.planning = NewPlanningService(store, calc, env.mutators, log)
	env.planning.now = clock
	env.execution = NewExecutionService(store, env.mutators, 0, log)
	env.execution.now = clock
	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	e.now = e.now.Add(d)
	e.mu.Unlock()
}

func (e *testEnv) createGoal(t *testing.T, name string, target float64, monthsOut int) *models.Goal {
	t.Helper()
	goal := &models.Goal{
		Name:         name,
		Currency:     "USD",
		TargetAmount: target,
		Deadline:     time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC).AddDate(0, 0, monthsOut*30),
		Status:       models.GoalActive,
	}
	require.NoError(t, e.store.CreateGoal(context.Background(), goal))
	return goal
}

const month = "2026-08"

func TestGetOrCreatePlans(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	goal := env.createGoal(t, "Emergency Fund", 10000, 8)

	// Existing savings worth 3500 USD: 1500 face value plus 1000 in an asset
	// that converts at 2:1.
	require.NoError(t, env.store.CreateContribution(ctx, &models.Contribution{
		GoalID: goal.ID, AssetID: "USD", Amount: 1500, AssetAmount: 1500, ExchangeRate: 1,
		Date: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, env.store.CreateContribution(ctx, &models.Contribution{
		GoalID: goal.ID, AssetID: "EUR", Amount: 2000, AssetAmount: 1000, ExchangeRate: 2,
		Date: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	}))

	plans, err := env.planning.GetOrCreatePlans(ctx, month)
	require.NoError(t, err)
	require.Len(t, plans, 1)

	plan := plans[0]
	assert.Equal(t, goal.ID, plan.GoalID)
	assert.Equal(t, models.PlanDraft, plan.State)
	assert.Equal(t, models.PlanPending, plan.Status)
	// 10000 target - (1500 + 1000×2) saved = 6500 over 8 months.
	assert.InDelta(t, 812.50, plan.RequiredMonthly, 0.01)
	assert.InDelta(t, 6500, plan.RemainingAmount, 0.01)
	assert.Equal(t, 8, plan.MonthsRemaining)

	t.Run("second call returns the same plan", func(t *testing.T) {
		again, err := env.planning.GetOrCreatePlans(ctx, month)
		require.NoError(t, err)
		require.Len(t, again, 1)
		assert.Equal(t, plan.ID, again[0].ID)
	})

	t.Run("rejects malformed month labels", func(t *testing.T) {
		_, err := env.planning.GetOrCreatePlans(ctx, "August 2026")
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestGetOrCreatePlans_ConcurrentCallersCreateOnePlan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createGoal(t, "House", 24000, 12)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.planning.GetOrCreatePlans(ctx, month)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	plans, err := env.store.PlansForMonth(ctx, month)
	require.NoError(t, err)
	assert.Len(t, plans, 1, "racing callers must not duplicate plans")
}

func TestApplyAdjustment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	goal := env.createGoal(t, "Vacation", 8125, 10)

	_, err := env.planning.GetOrCreatePlans(ctx, month)
	require.NoError(t, err)

	t.Run("half factor persists custom amounts", func(t *testing.T) {
		adjusted, err := env.planning.ApplyAdjustment(ctx, month, AdjustmentRequest{Factor: 0.5})
		require.NoError(t, err)
		require.Len(t, adjusted, 1)
		assert.InDelta(t, 406.25, adjusted[0].AdjustedAmount, 0.01)

		plan, err := env.store.PlanForGoalMonth(ctx, goal.ID, month)
		require.NoError(t, err)
		require.NotNil(t, plan.CustomAmount)
		assert.InDelta(t, 406.25, plan.EffectiveAmount(), 0.01)
	})

	t.Run("factor one clears the override", func(t *testing.T) {
		_, err := env.planning.ApplyAdjustment(ctx, month, AdjustmentRequest{Factor: 1})
		require.NoError(t, err)

		plan, err := env.store.PlanForGoalMonth(ctx, goal.ID, month)
		require.NoError(t, err)
		assert.Nil(t, plan.CustomAmount)
		assert.InDelta(t, 812.50, plan.EffectiveAmount(), 0.01)
	})

	t.Run("skipped goal gets a zero override", func(t *testing.T) {
		adjusted, err := env.planning.ApplyAdjustment(ctx, month, AdjustmentRequest{
			Factor:  1,
			Skipped: []string{goal.ID},
		})
		require.NoError(t, err)
		require.Len(t, adjusted, 1)
		assert.True(t, adjusted[0].Skipped)

		plan, err := env.store.PlanForGoalMonth(ctx, goal.ID, month)
		require.NoError(t, err)
		assert.Equal(t, 0.0, plan.EffectiveAmount())

		// Restore for later subtests.
		_, err = env.planning.ApplyAdjustment(ctx, month, AdjustmentRequest{Factor: 1})
		require.NoError(t, err)
	})

	t.Run("unknown strategy is rejected", func(t *testing.T) {
		_, err := env.planning.ApplyAdjustment(ctx, month, AdjustmentRequest{Factor: 1, Strategy: "harmonic"})
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("adjusting a committed month conflicts", func(t *testing.T) {
		_, err := env.execution.StartTracking(ctx, month)
		require.NoError(t, err)

		_, err = env.planning.ApplyAdjustment(ctx, month, AdjustmentRequest{Factor: 0.5})
		assert.ErrorIs(t, err, ErrAlreadyTracking)
	})
}

func TestExecutionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	goal := env.createGoal(t, "Retirement", 5000, 10)

	_, err := env.planning.GetOrCreatePlans(ctx, month)
	require.NoError(t, err)

	record, err := env.execution.StartTracking(ctx, month)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, models.ExecutionExecuting, record.Status)
	assert.InDelta(t, 500, record.Snapshot.TotalPlanned, 0.01)
	assert.Equal(t, 1, record.Snapshot.ActiveGoalCount)

	t.Run("second start conflicts", func(t *testing.T) {
		_, err := env.execution.StartTracking(ctx, month)
		assert.ErrorIs(t, err, ErrAlreadyTracking)
	})

	t.Run("snapshot ignores later plan edits", func(t *testing.T) {
		plan, err := env.store.PlanForGoalMonth(ctx, goal.ID, month)
		require.NoError(t, err)
		bigger := 9999.0
		require.NoError(t, env.store.SetPlanCustomAmount(ctx, plan.ID, &bigger))

		current, err := env.execution.Record(ctx, month)
		require.NoError(t, err)
		assert.InDelta(t, 500, current.Snapshot.TotalPlanned, 0.01,
			"snapshot must stay frozen at start-time amounts")
	})

	t.Run("contributions accumulate into progress", func(t *testing.T) {
		err := env.execution.RecordContribution(ctx, month, &models.Contribution{
			GoalID: goal.ID, AssetID: "USD", Amount: 300, AssetAmount: 300, ExchangeRate: 1,
		})
		require.NoError(t, err)
		err = env.execution.RecordContribution(ctx, month, &models.Contribution{
			GoalID: goal.ID, AssetID: "USD", Amount: 200, AssetAmount: 200, ExchangeRate: 1,
		})
		require.NoError(t, err)

		progress, err := env.execution.Progress(ctx, month)
		require.NoError(t, err)
		assert.InDelta(t, 500, progress.TotalContributed, 0.01)
		assert.InDelta(t, 100, progress.Completion, 0.01)
		require.Len(t, progress.Goals, 1)
		assert.InDelta(t, 100, progress.Goals[0].Fulfillment, 0.01)
		assert.Equal(t, 2, progress.Goals[0].Contributions)
	})

	t.Run("contribution for a goal outside the snapshot is rejected", func(t *testing.T) {
		err := env.execution.RecordContribution(ctx, month, &models.Contribution{
			GoalID: "stranger", AssetID: "USD", Amount: 50,
		})
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("finish freezes the summary", func(t *testing.T) {
		completed, err := env.execution.Finish(ctx, month)
		require.NoError(t, err)
		assert.InDelta(t, 500, completed.TotalContributed, 0.01)
		assert.InDelta(t, 100, completed.Completion, 0.01)
		require.Len(t, completed.GoalTotals, 1)
		assert.InDelta(t, 100, completed.GoalTotals[0].Fulfillment, 0.01)

		// Contribution edits after close don't touch the frozen summary.
		frozen, err := env.store.CompletedExecutionForRecord(ctx, completed.ExecutionRecordID)
		require.NoError(t, err)
		assert.Equal(t, completed.TotalContributed, frozen.TotalContributed)
	})

	t.Run("contributing to a closed month conflicts", func(t *testing.T) {
		err := env.execution.RecordContribution(ctx, month, &models.Contribution{
			GoalID: goal.ID, AssetID: "USD", Amount: 10,
		})
		assert.ErrorIs(t, err, ErrNoActiveRecord)
	})
}

func TestSnapshotFreezesGoalName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	goal := env.createGoal(t, "Emergency Fund", 5000, 10)

	_, err := env.planning.GetOrCreatePlans(ctx, month)
	require.NoError(t, err)

	record, err := env.execution.StartTracking(ctx, month)
	require.NoError(t, err)
	require.Len(t, record.Snapshot.Goals, 1)
	assert.Equal(t, "Emergency Fund", record.Snapshot.Goals[0].GoalName)

	// A rename after the freeze must not rewrite the snapshot.
	goal.Name = "Rainy Day Fund"
	require.NoError(t, env.store.UpdateGoal(ctx, goal))

	current, err := env.execution.Record(ctx, month)
	require.NoError(t, err)
	require.Len(t, current.Snapshot.Goals, 1)
	assert.Equal(t, "Emergency Fund", current.Snapshot.Goals[0].GoalName)

	progress, err := env.execution.Progress(ctx, month)
	require.NoError(t, err)
	require.Len(t, progress.Goals, 1)
	assert.Equal(t, "Emergency Fund", progress.Goals[0].GoalName)
}

func TestStartTrackingRejectsNegativeAmount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createGoal(t, "Bike", 1200, 6)

	plans, err := env.planning.GetOrCreatePlans(ctx, month)
	require.NoError(t, err)
	require.Len(t, plans, 1)

	// SetCustomAmount and the flex clamp both block negatives, so go under
	// them straight to the store.
	negative := -10.0
	require.NoError(t, env.store.SetPlanCustomAmount(ctx, plans[0].ID, &negative))

	_, err = env.execution.StartTracking(ctx, month)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestUndo(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*testEnv, *models.Goal) {
		env := newTestEnv(t)
		goal := env.createGoal(t, "Boat", 6000, 6)
		_, err := env.planning.GetOrCreatePlans(ctx, month)
		require.NoError(t, err)
		return env, goal
	}

	t.Run("undo of start restores planning", func(t *testing.T) {
		env, goal := setup(t)
		record, err := env.execution.StartTracking(ctx, month)
		require.NoError(t, err)

		require.NoError(t, env.execution.Undo(ctx, month))

		_, err = env.execution.Record(ctx, month)
		assert.ErrorIs(t, err, ErrNoActiveRecord)
		_, err = env.store.GetRecord(ctx, record.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		plan, err := env.store.PlanForGoalMonth(ctx, goal.ID, month)
		require.NoError(t, err)
		assert.Equal(t, models.PlanDraft, plan.State)

		// The month can be committed again after the undo.
		_, err = env.execution.StartTracking(ctx, month)
		assert.NoError(t, err)
	})

	t.Run("undo just inside the window succeeds", func(t *testing.T) {
		env, _ := setup(t)
		_, err := env.execution.StartTracking(ctx, month)
		require.NoError(t, err)

		env.advance(24*time.Hour - time.Second)
		assert.NoError(t, env.execution.Undo(ctx, month))
	})

	t.Run("undo just past the window expires", func(t *testing.T) {
		env, _ := setup(t)
		_, err := env.execution.StartTracking(ctx, month)
		require.NoError(t, err)

		env.advance(24*time.Hour + time.Second)
		assert.ErrorIs(t, env.execution.Undo(ctx, month), ErrUndoExpired)
	})

	t.Run("undo of completion reopens the month", func(t *testing.T) {
		env, goal := setup(t)
		_, err := env.execution.StartTracking(ctx, month)
		require.NoError(t, err)
		require.NoError(t, env.execution.RecordContribution(ctx, month, &models.Contribution{
			GoalID: goal.ID, AssetID: "USD", Amount: 400, AssetAmount: 400, ExchangeRate: 1,
		}))
		completed, err := env.execution.Finish(ctx, month)
		require.NoError(t, err)

		env.advance(time.Hour)
		require.NoError(t, env.execution.Undo(ctx, month))

		record, err := env.execution.Record(ctx, month)
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionExecuting, record.Status)
		assert.Nil(t, record.CompletedAt)

		_, err = env.store.CompletedExecutionForRecord(ctx, completed.ExecutionRecordID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		// Contributions survive the undo; progress still reflects them.
		progress, err := env.execution.Progress(ctx, month)
		require.NoError(t, err)
		assert.InDelta(t, 400, progress.TotalContributed, 0.01)
	})

	t.Run("nothing to undo", func(t *testing.T) {
		env, _ := setup(t)
		assert.ErrorIs(t, env.execution.Undo(ctx, month), ErrNothingToUndo)
	})
}

func TestResolveStalePlans(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	goal := env.createGoal(t, "Car", 3000, 12)

	old := &models.MonthlyPlan{GoalID: goal.ID, MonthLabel: "2026-05", RequiredMonthly: 250, Currency: "USD"}
	require.NoError(t, env.store.CreatePlan(ctx, old))

	count, err := env.planning.ResolveStalePlans(ctx, month, ResolveSkipped)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	plan, err := env.store.PlanForGoalMonth(ctx, goal.ID, "2026-05")
	require.NoError(t, err)
	assert.Equal(t, models.PlanSkipped, plan.Status)

	t.Run("delete resolution removes the row", func(t *testing.T) {
		stale := &models.MonthlyPlan{GoalID: goal.ID, MonthLabel: "2026-06", RequiredMonthly: 250, Currency: "USD"}
		require.NoError(t, env.store.CreatePlan(ctx, stale))

		count, err := env.planning.ResolveStalePlans(ctx, month, ResolveDeleted)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		gone, err := env.store.PlanForGoalMonth(ctx, goal.ID, "2026-06")
		require.NoError(t, err)
		assert.Nil(t, gone)
	})

	t.Run("invalid resolution is rejected", func(t *testing.T) {
		_, err := env.planning.ResolveStalePlans(ctx, month, "abandoned")
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("nothing left to resolve", func(t *testing.T) {
		count, err := env.planning.ResolveStalePlans(ctx, month, ResolveCompleted)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}
