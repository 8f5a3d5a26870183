package handler

import (
	"time"

	"github.com/lueurxax/cryptosavings-server/internal/models"
	"github.com/lueurxax/cryptosavings-server/internal/service"
)

// Wire representations. Models stay free of serialization concerns; the
// handlers own the JSON shape.

type goalDTO struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Currency     string    `json:"currency"`
	TargetAmount float64   `json:"target_amount"`
	Deadline     time.Time `json:"deadline"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toGoalDTO(g *models.Goal) goalDTO {
	return goalDTO{
		ID:           g.ID,
		Name:         g.Name,
		Currency:     g.Currency,
		TargetAmount: g.TargetAmount,
		Deadline:     g.Deadline,
		Status:       string(g.Status),
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

type requirementDTO struct {
	GoalID          string    `json:"goal_id"`
	GoalName        string    `json:"goal_name"`
	Currency        string    `json:"currency"`
	TargetAmount    float64   `json:"target_amount"`
	CurrentTotal    float64   `json:"current_total"`
	RemainingAmount float64   `json:"remaining_amount"`
	MonthsRemaining int       `json:"months_remaining"`
	RequiredMonthly float64   `json:"required_monthly"`
	Progress        float64   `json:"progress"`
	Deadline        time.Time `json:"deadline"`
	Status          string    `json:"status"`
	Estimated       bool      `json:"estimated"`
}

func toRequirementDTO(r models.MonthlyRequirement) requirementDTO {
	return requirementDTO{
		GoalID:          r.GoalID,
		GoalName:        r.GoalName,
		Currency:        r.Currency,
		TargetAmount:    r.TargetAmount,
		CurrentTotal:    r.CurrentTotal,
		RemainingAmount: r.RemainingAmount,
		MonthsRemaining: r.MonthsRemaining,
		RequiredMonthly: r.RequiredMonthly,
		Progress:        r.Progress,
		Deadline:        r.Deadline,
		Status:          string(r.Status),
		Estimated:       r.Estimated,
	}
}

type planDTO struct {
	ID              string   `json:"id"`
	GoalID          string   `json:"goal_id"`
	MonthLabel      string   `json:"month_label"`
	RequiredMonthly float64  `json:"required_monthly"`
	RemainingAmount float64  `json:"remaining_amount"`
	MonthsRemaining int      `json:"months_remaining"`
	Currency        string   `json:"currency"`
	Status          string   `json:"status"`
	State           string   `json:"state"`
	CustomAmount    *float64 `json:"custom_amount,omitempty"`
	EffectiveAmount float64  `json:"effective_amount"`
}

func toPlanDTO(p *models.MonthlyPlan) planDTO {
	return planDTO{
		ID:              p.ID,
		GoalID:          p.GoalID,
		MonthLabel:      p.MonthLabel,
		RequiredMonthly: p.RequiredMonthly,
		RemainingAmount: p.RemainingAmount,
		MonthsRemaining: p.MonthsRemaining,
		Currency:        p.Currency,
		Status:          string(p.Status),
		State:           string(p.State),
		CustomAmount:    p.CustomAmount,
		EffectiveAmount: p.EffectiveAmount(),
	}
}

type impactDTO struct {
	ChangeAmount         float64 `json:"change_amount"`
	ChangePercentage     float64 `json:"change_percentage"`
	EstimatedDelayMonths int     `json:"estimated_delay_months"`
	RiskLevel            string  `json:"risk_level"`
}

type adjustedDTO struct {
	Requirement          requirementDTO `json:"requirement"`
	AdjustedAmount       float64        `json:"adjusted_amount"`
	AdjustmentFactor     float64        `json:"adjustment_factor"`
	RedistributionAmount float64        `json:"redistribution_amount"`
	Protected            bool           `json:"protected"`
	Skipped              bool           `json:"skipped"`
	Impact               impactDTO      `json:"impact"`
}

func toAdjustedDTO(a models.AdjustedRequirement) adjustedDTO {
	return adjustedDTO{
		Requirement:          toRequirementDTO(a.Requirement),
		AdjustedAmount:       a.AdjustedAmount,
		AdjustmentFactor:     a.AdjustmentFactor,
		RedistributionAmount: a.RedistributionAmount,
		Protected:            a.Protected,
		Skipped:              a.Skipped,
		Impact: impactDTO{
			ChangeAmount:         a.Impact.ChangeAmount,
			ChangePercentage:     a.Impact.ChangePercentage,
			EstimatedDelayMonths: a.Impact.EstimatedDelayMonths,
			RiskLevel:            string(a.Impact.RiskLevel),
		},
	}
}

type snapshotGoalDTO struct {
	GoalID        string  `json:"goal_id"`
	GoalName      string  `json:"goal_name,omitempty"`
	PlannedAmount float64 `json:"planned_amount"`
	Currency      string  `json:"currency"`
}

type recordDTO struct {
	ID              string            `json:"id"`
	MonthLabel      string            `json:"month_label"`
	Status          string            `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	StartedAt       *time.Time        `json:"started_at,omitempty"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	CanUndoUntil    *time.Time        `json:"can_undo_until,omitempty"`
	TotalPlanned    float64           `json:"total_planned"`
	ActiveGoalCount int               `json:"active_goal_count"`
	GoalCount       int               `json:"goal_count"`
	Goals           []snapshotGoalDTO `json:"goals"`
}

func toRecordDTO(r *models.ExecutionRecord) recordDTO {
	dto := recordDTO{
		ID:              r.ID,
		MonthLabel:      r.MonthLabel,
		Status:          string(r.Status),
		CreatedAt:       r.CreatedAt,
		StartedAt:       r.StartedAt,
		CompletedAt:     r.CompletedAt,
		CanUndoUntil:    r.CanUndoUntil,
		TotalPlanned:    r.Snapshot.TotalPlanned,
		ActiveGoalCount: r.Snapshot.ActiveGoalCount,
		GoalCount:       r.Snapshot.GoalCount,
	}
	for _, g := range r.Snapshot.Goals {
		dto.Goals = append(dto.Goals, snapshotGoalDTO{
			GoalID:        g.GoalID,
			GoalName:      g.GoalName,
			PlannedAmount: g.PlannedAmount,
			Currency:      g.Currency,
		})
	}
	return dto
}

type goalProgressDTO struct {
	GoalID        string  `json:"goal_id"`
	GoalName      string  `json:"goal_name,omitempty"`
	Currency      string  `json:"currency"`
	Planned       float64 `json:"planned"`
	Contributed   float64 `json:"contributed"`
	Fulfillment   float64 `json:"fulfillment"`
	Contributions int     `json:"contributions"`
}

type progressDTO struct {
	MonthLabel       string            `json:"month_label"`
	RecordID         string            `json:"record_id"`
	TotalPlanned     float64           `json:"total_planned"`
	TotalContributed float64           `json:"total_contributed"`
	Completion       float64           `json:"completion"`
	Goals            []goalProgressDTO `json:"goals"`
}

func toProgressDTO(p *service.Progress) progressDTO {
	dto := progressDTO{
		MonthLabel:       p.MonthLabel,
		RecordID:         p.RecordID,
		TotalPlanned:     p.TotalPlanned,
		TotalContributed: p.TotalContributed,
		Completion:       p.Completion,
	}
	for _, g := range p.Goals {
		dto.Goals = append(dto.Goals, goalProgressDTO{
			GoalID:        g.GoalID,
			GoalName:      g.GoalName,
			Currency:      g.Currency,
			Planned:       g.Planned,
			Contributed:   g.Contributed,
			Fulfillment:   g.Fulfillment,
			Contributions: g.Contributions,
		})
	}
	return dto
}

type goalTotalDTO struct {
	GoalID      string  `json:"goal_id"`
	Planned     float64 `json:"planned"`
	Contributed float64 `json:"contributed"`
	Fulfillment float64 `json:"fulfillment"`
}

type completedDTO struct {
	ID               string         `json:"id"`
	RecordID         string         `json:"record_id"`
	TotalContributed float64        `json:"total_contributed"`
	Completion       float64        `json:"completion"`
	ClosedAt         time.Time      `json:"closed_at"`
	GoalTotals       []goalTotalDTO `json:"goal_totals"`
}

func toCompletedDTO(c *models.CompletedExecution) completedDTO {
	dto := completedDTO{
		ID:               c.ID,
		RecordID:         c.ExecutionRecordID,
		TotalContributed: c.TotalContributed,
		Completion:       c.Completion,
		ClosedAt:         c.ClosedAt,
	}
	for _, gt := range c.GoalTotals {
		dto.GoalTotals = append(dto.GoalTotals, goalTotalDTO{
			GoalID:      gt.GoalID,
			Planned:     gt.Planned,
			Contributed: gt.Contributed,
			Fulfillment: gt.Fulfillment,
		})
	}
	return dto
}

type historyEntryDTO struct {
	Record    recordDTO     `json:"record"`
	Completed *completedDTO `json:"completed,omitempty"`
}

func toHistoryDTO(entries []service.HistoryEntry) []historyEntryDTO {
	out := make([]historyEntryDTO, 0, len(entries))
	for _, e := range entries {
		dto := historyEntryDTO{Record: toRecordDTO(e.Record)}
		if e.Completed != nil {
			completed := toCompletedDTO(e.Completed)
			dto.Completed = &completed
		}
		out = append(out, dto)
	}
	return out
}
