// Package service implements the planning and execution lifecycle on top of
// the storage, calculator and queue packages. All mutations for a month go
// through that month's serialized mutator, so concurrent callers are safe
// without row locking.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/lueurxax/cryptosavings-server/internal/calculator"
	"github.com/lueurxax/cryptosavings-server/internal/models"
	"github.com/lueurxax/cryptosavings-server/internal/queue"
	"github.com/lueurxax/cryptosavings-server/internal/storage"
)

// PlanningService derives requirements, materializes monthly plans and
// applies flex adjustments to them.
type PlanningService struct {
	store    storage.Store
	calc     *calculator.Calculator
	mutators *queue.Group
	log      *slog.Logger
	now      func() time.Time
}

// NewPlanningService wires a planning service. The mutator group must be the
// same one handed to the execution service so plan and record mutations for a
// month serialize together.
func NewPlanningService(store storage.Store, calc *calculator.Calculator, mutators *queue.Group, log *slog.Logger) *PlanningService {
	if log == nil {
		log = slog.Default()
	}
	return &PlanningService{
		store:    store,
		calc:     calc,
		mutators: mutators,
		log:      log,
		now:      time.Now,
	}
}

// GetOrCreatePlans returns the month's plans, creating draft plans from
// freshly derived requirements for any active goal that has none yet. Safe
// under concurrent callers: creation runs on the month's mutator and looks
// up before inserting, so N racing calls produce exactly one plan per goal.
func (s *PlanningService) GetOrCreatePlans(ctx context.Context, monthLabel string) ([]*models.MonthlyPlan, error) {
	if !models.ValidMonthLabel(monthLabel) {
		return nil, invalidf("month", "%q is not a YYYY-MM label", monthLabel)
	}

	var plans []*models.MonthlyPlan
	err := s.mutators.For(monthLabel).Do(ctx, func(ctx context.Context) error {
		reqs, err := s.computeRequirements(ctx)
		if err != nil {
			return err
		}

		for _, req := range reqs {
			existing, err := s.store.PlanForGoalMonth(ctx, req.GoalID, monthLabel)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			plan := &models.MonthlyPlan{
				GoalID:          req.GoalID,
				MonthLabel:      monthLabel,
				RequiredMonthly: req.RequiredMonthly,
				RemainingAmount: req.RemainingAmount,
				MonthsRemaining: req.MonthsRemaining,
				Currency:        req.Currency,
			}
			if err := s.store.CreatePlan(ctx, plan); err != nil {
				return err
			}
			s.log.Info("created monthly plan",
				"month", monthLabel, "goal", req.GoalID, "required", req.RequiredMonthly)
		}

		plans, err = s.store.PlansForMonth(ctx, monthLabel)
		return err
	})
	if err != nil {
		return nil, err
	}
	return plans, nil
}

// AdjustmentRequest carries the knobs of a flex adjustment.
type AdjustmentRequest struct {
	Factor    float64
	Protected []string
	Skipped   []string
	Strategy  models.AdjustmentStrategy
}

// PreviewAdjustment computes what a flex adjustment would do without
// persisting anything.
func (s *PlanningService) PreviewAdjustment(ctx context.Context, monthLabel string, req AdjustmentRequest) ([]models.AdjustedRequirement, error) {
	if !models.ValidMonthLabel(monthLabel) {
		return nil, invalidf("month", "%q is not a YYYY-MM label", monthLabel)
	}
	if err := validateStrategy(req.Strategy); err != nil {
		return nil, err
	}

	reqs, err := s.computeRequirements(ctx)
	if err != nil {
		return nil, err
	}
	return calculator.ApplyFlex(reqs, req.Factor,
		calculator.NewStringSet(req.Protected...),
		calculator.NewStringSet(req.Skipped...),
		req.Strategy), nil
}

// ApplyAdjustment runs the flex adjustment and persists the result as custom
// amounts on the month's draft plans. An adjustment that lands exactly on the
// nominal requirement clears the override instead of storing a redundant one.
func (s *PlanningService) ApplyAdjustment(ctx context.Context, monthLabel string, req AdjustmentRequest) ([]models.AdjustedRequirement, error) {
	if !models.ValidMonthLabel(monthLabel) {
		return nil, invalidf("month", "%q is not a YYYY-MM label", monthLabel)
	}
	if err := validateStrategy(req.Strategy); err != nil {
		return nil, err
	}

	var adjusted []models.AdjustedRequirement
	err := s.mutators.For(monthLabel).Do(ctx, func(ctx context.Context) error {
		open, err := s.store.OpenRecordForMonth(ctx, monthLabel)
		if err != nil {
			return err
		}
		if open != nil {
			return ErrAlreadyTracking
		}

		reqs, err := s.computeRequirements(ctx)
		if err != nil {
			return err
		}
		adjusted = calculator.ApplyFlex(reqs, req.Factor,
			calculator.NewStringSet(req.Protected...),
			calculator.NewStringSet(req.Skipped...),
			req.Strategy)

		for _, adj := range adjusted {
			plan, err := s.store.PlanForGoalMonth(ctx, adj.Requirement.GoalID, monthLabel)
			if err != nil {
				return err
			}
			if plan == nil {
				plan = &models.MonthlyPlan{
					GoalID:          adj.Requirement.GoalID,
					MonthLabel:      monthLabel,
					RequiredMonthly: adj.Requirement.RequiredMonthly,
					RemainingAmount: adj.Requirement.RemainingAmount,
					MonthsRemaining: adj.Requirement.MonthsRemaining,
					Currency:        adj.Requirement.Currency,
				}
				if err := s.store.CreatePlan(ctx, plan); err != nil {
					return err
				}
			}

			var custom *float64
			if adj.AdjustedAmount != plan.RequiredMonthly {
				amount := adj.AdjustedAmount
				custom = &amount
			}
			if err := s.store.SetPlanCustomAmount(ctx, plan.ID, custom); err != nil {
				return err
			}
		}

		s.log.Info("applied flex adjustment",
			"month", monthLabel, "factor", req.Factor, "strategy", req.Strategy,
			"goals", len(adjusted))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adjusted, nil
}

// SetCustomAmount sets or clears (nil) a single plan's override directly.
func (s *PlanningService) SetCustomAmount(ctx context.Context, monthLabel, goalID string, amount *float64) (*models.MonthlyPlan, error) {
	if !models.ValidMonthLabel(monthLabel) {
		return nil, invalidf("month", "%q is not a YYYY-MM label", monthLabel)
	}
	if amount != nil && *amount < 0 {
		return nil, invalidf("amount", "must not be negative, got %f", *amount)
	}

	var plan *models.MonthlyPlan
	err := s.mutators.For(monthLabel).Do(ctx, func(ctx context.Context) error {
		var err error
		plan, err = s.store.PlanForGoalMonth(ctx, goalID, monthLabel)
		if err != nil {
			return err
		}
		if plan == nil {
			return storage.ErrNotFound
		}
		if plan.State != models.PlanDraft {
			return ErrAlreadyTracking
		}
		if err := s.store.SetPlanCustomAmount(ctx, plan.ID, amount); err != nil {
			return err
		}
		plan.CustomAmount = amount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// StaleResolution says what happens to a pending draft plan left over from a
// past month.
type StaleResolution string

const (
	// ResolveCompleted records the plan as done anyway.
	ResolveCompleted StaleResolution = "completed"
	// ResolveSkipped records the plan as skipped.
	ResolveSkipped StaleResolution = "skipped"
	// ResolveDeleted removes the plan row entirely.
	ResolveDeleted StaleResolution = "deleted"
)

// ResolveStalePlans resolves pending draft plans from months before
// monthLabel, so old months stop surfacing as actionable. Plans are either
// marked with a terminal status or deleted. Returns how many plans were
// resolved.
func (s *PlanningService) ResolveStalePlans(ctx context.Context, monthLabel string, resolution StaleResolution) (int, error) {
	if !models.ValidMonthLabel(monthLabel) {
		return 0, invalidf("month", "%q is not a YYYY-MM label", monthLabel)
	}
	switch resolution {
	case ResolveCompleted, ResolveSkipped, ResolveDeleted:
	default:
		return 0, invalidf("resolution", "must be completed, skipped or deleted, got %q", resolution)
	}

	stale, err := s.store.DraftPlansBefore(ctx, monthLabel)
	if err != nil {
		return 0, err
	}

	byMonth := make(map[string][]*models.MonthlyPlan)
	for _, plan := range stale {
		byMonth[plan.MonthLabel] = append(byMonth[plan.MonthLabel], plan)
	}

	resolved := 0
	for staleMonth, plans := range byMonth {
		err := s.mutators.For(staleMonth).Do(ctx, func(ctx context.Context) error {
			for _, plan := range plans {
				// The month may have been committed since the listing; only
				// plans that are still pending drafts are resolved.
				current, err := s.store.PlanForGoalMonth(ctx, plan.GoalID, plan.MonthLabel)
				if err != nil {
					return err
				}
				if current == nil || current.State != models.PlanDraft || current.Status != models.PlanPending {
					continue
				}
				if resolution == ResolveDeleted {
					err = s.store.DeletePlan(ctx, current.ID)
				} else {
					err = s.store.SetPlanStatus(ctx, current.ID, models.PlanStatus(resolution))
				}
				if err != nil {
					return err
				}
				resolved++
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}

	if resolved > 0 {
		s.log.Info("resolved stale plans", "before", monthLabel, "count", resolved, "resolution", resolution)
	}
	return resolved, nil
}

// Requirements derives the current per-goal requirements without touching
// plans. Used by the planning endpoints and the notification scheduler.
func (s *PlanningService) Requirements(ctx context.Context) ([]models.MonthlyRequirement, error) {
	return s.computeRequirements(ctx)
}

// computeRequirements loads every active goal with its contribution history
// and runs the requirement calculator over them.
func (s *PlanningService) computeRequirements(ctx context.Context) ([]models.MonthlyRequirement, error) {
	goals, err := s.store.ActiveGoals(ctx)
	if err != nil {
		return nil, err
	}

	inputs := make([]calculator.GoalInput, 0, len(goals))
	for _, goal := range goals {
		contributions, err := s.store.ContributionsForGoal(ctx, goal.ID)
		if err != nil {
			return nil, err
		}

		deposits := make([]calculator.Deposit, 0, len(contributions))
		total := 0.0
		months := make(map[string]struct{})
		for _, c := range contributions {
			// Holdings are valued at current rates, so deposits enter the
			// calculator in their asset unit, not the goal currency.
			deposits = append(deposits, calculator.Deposit{
				Amount:   c.AssetAmount,
				Currency: c.AssetID,
			})
			total += c.Amount
			months[c.MonthLabel] = struct{}{}
		}

		historical := 0.0
		if len(months) > 0 {
			historical = total / float64(len(months))
		}

		inputs = append(inputs, calculator.GoalInput{
			Goal:                     *goal,
			Deposits:                 deposits,
			HistoricalMonthlyAverage: historical,
		})
	}

	return s.calc.Compute(ctx, inputs, s.now()), nil
}

func validateStrategy(strategy models.AdjustmentStrategy) error {
	switch strategy {
	case "", models.StrategyProportional, models.StrategyBalanced:
		return nil
	default:
		return invalidf("strategy", "unknown strategy %q", strategy)
	}
}
