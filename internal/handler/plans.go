package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lueurxax/cryptosavings-server/internal/models"
	"github.com/lueurxax/cryptosavings-server/internal/service"
)

func (h *Handler) handleRequirements(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.planning.Requirements(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]requirementDTO, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, toRequirementDTO(req))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handlePlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.planning.GetOrCreatePlans(r.Context(), monthVar(r))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]planDTO, 0, len(plans))
	for _, plan := range plans {
		out = append(out, toPlanDTO(plan))
	}
	writeJSON(w, http.StatusOK, out)
}

type adjustRequest struct {
	Factor    float64  `json:"factor"`
	Protected []string `json:"protected,omitempty"`
	Skipped   []string `json:"skipped,omitempty"`
	Strategy  string   `json:"strategy,omitempty"`
}

func (req *adjustRequest) toService() service.AdjustmentRequest {
	return service.AdjustmentRequest{
		Factor:    req.Factor,
		Protected: req.Protected,
		Skipped:   req.Skipped,
		Strategy:  models.AdjustmentStrategy(req.Strategy),
	}
}

func (h *Handler) handlePreviewAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	adjusted, err := h.planning.PreviewAdjustment(r.Context(), monthVar(r), req.toService())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdjustedDTOs(adjusted))
}

func (h *Handler) handleApplyAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	adjusted, err := h.planning.ApplyAdjustment(r.Context(), monthVar(r), req.toService())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdjustedDTOs(adjusted))
}

func toAdjustedDTOs(adjusted []models.AdjustedRequirement) []adjustedDTO {
	out := make([]adjustedDTO, 0, len(adjusted))
	for _, a := range adjusted {
		out = append(out, toAdjustedDTO(a))
	}
	return out
}

type customAmountRequest struct {
	// Amount null or absent clears the override.
	Amount *float64 `json:"amount"`
}

func (h *Handler) handleSetCustomAmount(w http.ResponseWriter, r *http.Request) {
	var req customAmountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	plan, err := h.planning.SetCustomAmount(r.Context(), monthVar(r), mux.Vars(r)["goalID"], req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(plan))
}

type resolveStaleRequest struct {
	Resolution string `json:"resolution"`
}

func (h *Handler) handleResolveStale(w http.ResponseWriter, r *http.Request) {
	var req resolveStaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	count, err := h.planning.ResolveStalePlans(r.Context(), monthVar(r), service.StaleResolution(req.Resolution))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"resolved": count})
}

func (h *Handler) handleCommit(w http.ResponseWriter, r *http.Request) {
	record, err := h.execution.StartTracking(r.Context(), monthVar(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecordDTO(record))
}
