// Package handler exposes the planning and execution lifecycle over a JSON
// REST API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lueurxax/cryptosavings-server/internal/auth"
	"github.com/lueurxax/cryptosavings-server/internal/middleware"
	"github.com/lueurxax/cryptosavings-server/internal/service"
	"github.com/lueurxax/cryptosavings-server/internal/storage"
)

// Handler holds the services behind the REST API.
type Handler struct {
	auth      *service.AuthService
	planning  *service.PlanningService
	execution *service.ExecutionService
	history   *service.HistoryService
	goals     *GoalHandler
	jwt       *auth.JWTManager
	log       *slog.Logger
}

// New wires a handler over the services.
func New(
	authSvc *service.AuthService,
	planning *service.PlanningService,
	execution *service.ExecutionService,
	history *service.HistoryService,
	store storage.Store,
	jwt *auth.JWTManager,
	log *slog.Logger,
) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		auth:      authSvc,
		planning:  planning,
		execution: execution,
		history:   history,
		goals:     &GoalHandler{store: store, log: log},
		jwt:       jwt,
		log:       log,
	}
}

// Routes registers every route on the router. Everything except
// register/login and the health check requires a Bearer token.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/register", h.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", h.handleLogin).Methods(http.MethodPost)

	api := r.NewRoute().Subrouter()
	api.Use(middleware.RequireAuth(h.jwt))

	api.HandleFunc("/goals", h.goals.handleCreate).Methods(http.MethodPost)
	api.HandleFunc("/goals", h.goals.handleList).Methods(http.MethodGet)
	api.HandleFunc("/goals/{id}", h.goals.handleGet).Methods(http.MethodGet)
	api.HandleFunc("/goals/{id}", h.goals.handleUpdate).Methods(http.MethodPut)
	api.HandleFunc("/goals/{id}", h.goals.handleArchive).Methods(http.MethodDelete)

	api.HandleFunc("/requirements", h.handleRequirements).Methods(http.MethodGet)

	api.HandleFunc("/plans/{month}", h.handlePlans).Methods(http.MethodGet)
	api.HandleFunc("/plans/{month}/adjust/preview", h.handlePreviewAdjustment).Methods(http.MethodPost)
	api.HandleFunc("/plans/{month}/adjust", h.handleApplyAdjustment).Methods(http.MethodPost)
	api.HandleFunc("/plans/{month}/goals/{goalID}/amount", h.handleSetCustomAmount).Methods(http.MethodPut)
	api.HandleFunc("/plans/{month}/resolve-stale", h.handleResolveStale).Methods(http.MethodPost)
	api.HandleFunc("/plans/{month}/commit", h.handleCommit).Methods(http.MethodPost)

	api.HandleFunc("/executions/{month}", h.handleRecord).Methods(http.MethodGet)
	api.HandleFunc("/executions/{month}/contributions", h.handleContribute).Methods(http.MethodPost)
	api.HandleFunc("/executions/{month}/progress", h.handleProgress).Methods(http.MethodGet)
	api.HandleFunc("/executions/{month}/finish", h.handleFinish).Methods(http.MethodPost)
	api.HandleFunc("/executions/{month}/undo", h.handleUndo).Methods(http.MethodPost)

	api.HandleFunc("/history", h.handleHistory).Methods(http.MethodGet)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// writeError maps domain errors onto HTTP statuses: validation → 400,
// credentials → 401, missing rows → 404, state conflicts → 409, everything
// else → 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, auth.ErrWeakPassword):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		status = http.StatusUnauthorized
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, auth.ErrEmailExists),
		errors.Is(err, service.ErrAlreadyTracking),
		errors.Is(err, service.ErrNoActiveRecord),
		errors.Is(err, service.ErrNothingToUndo),
		errors.Is(err, service.ErrUndoExpired):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		// Don't leak internals to the client.
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeJSON parses the request body into v, limiting the body size.
func decodeJSON(r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &service.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

func monthVar(r *http.Request) string {
	return mux.Vars(r)["month"]
}

func invalidField(field, reason string) error {
	return &service.ValidationError{Field: field, Reason: reason}
}
