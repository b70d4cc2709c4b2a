package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shehryarbajwa/gridstatus/internal/session"
	"github.com/shehryarbajwa/gridstatus/pkg/models"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	sessionMgr *session.Manager
}

// NewHandler creates a new HTTP handler
func NewHandler(sessionMgr *session.Manager) *Handler {
	return &Handler{
		sessionMgr: sessionMgr,
	}
}

// CreateSession handles POST /automate/sessions.json
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	details, err := h.sessionMgr.CreateSession(accountFrom(r), req)
	if err != nil {
		if errors.Is(err, session.ErrLimitReached) {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, models.SessionEnvelope{AutomationSession: *details})
}

// GetSession handles GET /automate/sessions/{id}.json
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	details, err := h.sessionMgr.GetSession(accountFrom(r), id)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SessionEnvelope{AutomationSession: *details})
}

// UpdateSession handles PUT /automate/sessions/{id}.json
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var update models.StatusUpdate

	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	update.SessionID = mux.Vars(r)["id"]

	details, err := h.sessionMgr.SetStatus(accountFrom(r), update)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SessionEnvelope{AutomationSession: *details})
}

// DeleteSession handles DELETE /automate/sessions/{id}.json
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.sessionMgr.CloseSession(accountFrom(r), id); err != nil {
		writeSessionError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListBuildSessions handles GET /automate/builds/{id}/sessions.json
func (h *Handler) ListBuildSessions(w http.ResponseWriter, r *http.Request) {
	buildID := mux.Vars(r)["id"]

	sessions, err := h.sessionMgr.ListBuildSessions(accountFrom(r), buildID)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	envs := make([]models.SessionEnvelope, 0, len(sessions))
	for _, s := range sessions {
		envs = append(envs, models.SessionEnvelope{AutomationSession: s})
	}
	writeJSON(w, http.StatusOK, envs)
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrClosed), errors.Is(err, session.ErrInvalidStatus):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
