package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"studyhub-backend/internal/middleware"
	"studyhub-backend/internal/models"
	"studyhub-backend/internal/services"
)

type StreakHandler struct {
	streakService *services.StreakService
}

func NewStreakHandler(streakService *services.StreakService) *StreakHandler {
	return &StreakHandler{streakService: streakService}
}

func (h *StreakHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	state, err := h.streakService.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"streak": state,
	})
}

// CompleteSession records a finished study session. The body is optional; an
// empty one falls back to the server timezone for the day boundary.
func (h *StreakHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.CompleteSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	state, newTrophies, err := h.streakService.CompleteSession(r.Context(), userID, req.Timezone)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"streak":       state,
		"new_trophies": newTrophies,
	})
}

func (h *StreakHandler) Trophies(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	trophies, err := h.streakService.Trophies(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"trophies": trophies,
	})
}
