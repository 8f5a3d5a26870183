package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/lueurxax/cryptosavings-server/internal/models"
	"github.com/lueurxax/cryptosavings-server/internal/storage"
)

// GoalHandler covers the goal CRUD surface. Goals are simple rows; they go
// straight to the store without a service in between.
type GoalHandler struct {
	store storage.GoalStore
	log   *slog.Logger
}

type goalRequest struct {
	Name         string    `json:"name"`
	Currency     string    `json:"currency"`
	TargetAmount float64   `json:"target_amount"`
	Deadline     time.Time `json:"deadline"`
}

func (req *goalRequest) validate() error {
	if req.Name == "" {
		return invalidField("name", "required")
	}
	if req.Currency == "" {
		return invalidField("currency", "required")
	}
	if req.TargetAmount <= 0 {
		return invalidField("target_amount", "must be positive")
	}
	if req.Deadline.IsZero() {
		return invalidField("deadline", "required")
	}
	return nil
}

func (h *GoalHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	goal := &models.Goal{
		Name:         req.Name,
		Currency:     req.Currency,
		TargetAmount: req.TargetAmount,
		Deadline:     req.Deadline,
		Status:       models.GoalActive,
	}
	if err := h.store.CreateGoal(r.Context(), goal); err != nil {
		writeError(w, err)
		return
	}

	h.log.Info("created goal", "goal", goal.ID, "name", goal.Name)
	writeJSON(w, http.StatusCreated, toGoalDTO(goal))
}

func (h *GoalHandler) handleList(w http.ResponseWriter, r *http.Request) {
	goals, err := h.store.ActiveGoals(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]goalDTO, 0, len(goals))
	for _, goal := range goals {
		out = append(out, toGoalDTO(goal))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *GoalHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	goal, err := h.store.GetGoal(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalDTO(goal))
}

func (h *GoalHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	goal, err := h.store.GetGoal(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	goal.Name = req.Name
	goal.Currency = req.Currency
	goal.TargetAmount = req.TargetAmount
	goal.Deadline = req.Deadline
	if err := h.store.UpdateGoal(r.Context(), goal); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalDTO(goal))
}

func (h *GoalHandler) handleArchive(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.ArchiveGoal(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	h.log.Info("archived goal", "goal", id)
	writeJSON(w, http.StatusNoContent, nil)
}
