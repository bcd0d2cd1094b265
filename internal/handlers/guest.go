package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"trip-plan-backend/internal/middleware"
	"trip-plan-backend/internal/models"
	"trip-plan-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// GuestHandler handles requests authenticated by a guest session
type GuestHandler struct {
	planService    *services.PlanService
	sessionService *services.SessionService
}

// NewGuestHandler creates a new guest handler
func NewGuestHandler(planService *services.PlanService, sessionService *services.SessionService) *GuestHandler {
	return &GuestHandler{
		planService:    planService,
		sessionService: sessionService,
	}
}

// OnboardingRequest is the body for onboarding submission
type OnboardingRequest struct {
	GroupSize    *int    `json:"group_size"`
	DietaryNotes *string `json:"dietary_notes"`
}

// SubmitOnboarding handles POST /api/v1/guest/onboarding
func (h *GuestHandler) SubmitOnboarding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	access := middleware.GetAccess(ctx)
	if access.Class != services.AccessorGuest {
		respondError(w, "forbidden", http.StatusForbidden)
		return
	}

	var req OnboardingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.planService.SubmitOnboarding(ctx, access.ParticipantID, req.GroupSize, req.DietaryNotes); err != nil {
		log.Error().Err(err).Str("participant_id", access.ParticipantID).Msg("Failed to submit onboarding")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("participant_id", access.ParticipantID).Msg("Onboarding submitted")
	w.WriteHeader(http.StatusNoContent)
}

// PlanSummary is the plan descriptor inside a guest view
type PlanSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// GuestViewResponse is the PII-filtered plan view for a verified guest
type GuestViewResponse struct {
	Plan         PlanSummary                `json:"plan"`
	Items        []models.PlanItem          `json:"items"`
	Participants []services.ParticipantView `json:"participants"`
}

// GuestView handles GET /api/v1/guest/plan
func (h *GuestHandler) GuestView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	access := middleware.GetAccess(ctx)
	if access.Class != services.AccessorGuest {
		respondError(w, "forbidden", http.StatusForbidden)
		return
	}

	// Opportunistic housekeeping on the read path.
	go func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := h.sessionService.RevokeExpired(sweepCtx); err != nil {
			log.Warn().Err(err).Msg("Opportunistic session sweep failed")
		}
	}()

	// The session validated, but its plan may have been deleted mid-session;
	// that reads as not found.
	plan, err := h.planService.GetPlan(ctx, access.PlanID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	items, err := h.planService.ListItems(ctx, access.PlanID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	participants, err := h.planService.ListParticipants(ctx, access.PlanID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, GuestViewResponse{
		Plan:         PlanSummary{ID: plan.ID, Title: plan.Title},
		Items:        items,
		Participants: services.FilterParticipants(participants, access.Class),
	})
}

// Logout handles DELETE /api/v1/guest/session
func (h *GuestHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := r.Header.Get(middleware.GuestSessionHeader)
	if token == "" {
		respondError(w, "session header required", http.StatusBadRequest)
		return
	}

	if err := h.sessionService.Revoke(ctx, token); err != nil {
		log.Error().Err(err).Msg("Failed to revoke session")
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
