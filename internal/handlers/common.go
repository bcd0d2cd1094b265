package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"trip-plan-backend/internal/xerrors"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// respondServiceError maps the engine's error taxonomy to HTTP statuses. The
// messages stay generic so a failed lookup reveals nothing beyond what the
// caller already had.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, xerrors.ErrNotFound):
		respondError(w, "not found", http.StatusNotFound)
	case errors.Is(err, xerrors.ErrInvalidCode):
		respondError(w, "invalid code", http.StatusBadRequest)
	case errors.Is(err, xerrors.ErrTooManyAttempts):
		respondError(w, "too many attempts, request a new code", http.StatusTooManyRequests)
	case errors.Is(err, xerrors.ErrTooManyRequests):
		respondError(w, "too many requests", http.StatusTooManyRequests)
	case errors.Is(err, xerrors.ErrUnauthorized):
		respondError(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, xerrors.ErrForbidden):
		respondError(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, xerrors.ErrAlreadyLinkedToOther):
		respondError(w, "already linked to another user", http.StatusConflict)
	case errors.Is(err, xerrors.ErrAlreadyParticipantInPlan):
		respondError(w, "already a participant in this plan", http.StatusConflict)
	default:
		respondError(w, "internal error", http.StatusInternalServerError)
	}
}
