package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/lueurxax/cryptosavings-server/internal/models"
)

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	record, err := h.execution.Record(r.Context(), monthVar(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(record))
}

type contributionRequest struct {
	GoalID       string     `json:"goal_id"`
	AssetID      string     `json:"asset_id"`
	Amount       float64    `json:"amount"`
	AssetAmount  float64    `json:"asset_amount"`
	ExchangeRate float64    `json:"exchange_rate"`
	Date         *time.Time `json:"date,omitempty"`
	Comment      string     `json:"comment,omitempty"`
}

func (h *Handler) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	c := &models.Contribution{
		GoalID:       req.GoalID,
		AssetID:      req.AssetID,
		Amount:       req.Amount,
		AssetAmount:  req.AssetAmount,
		ExchangeRate: req.ExchangeRate,
		Comment:      req.Comment,
	}
	if req.Date != nil {
		c.Date = *req.Date
	}

	if err := h.execution.RecordContribution(r.Context(), monthVar(r), c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": c.ID})
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.execution.Progress(r.Context(), monthVar(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressDTO(progress))
}

func (h *Handler) handleFinish(w http.ResponseWriter, r *http.Request) {
	completed, err := h.execution.Finish(r.Context(), monthVar(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCompletedDTO(completed))
}

func (h *Handler) handleUndo(w http.ResponseWriter, r *http.Request) {
	if err := h.execution.Undo(r.Context(), monthVar(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, invalidField("limit", "must be an integer"))
			return
		}
		limit = parsed
	}

	entries, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryDTO(entries))
}
