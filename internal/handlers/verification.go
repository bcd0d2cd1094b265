package handlers

import (
	"encoding/json"
	"net"
	"net/http"

	"trip-plan-backend/internal/middleware"
	"trip-plan-backend/internal/rate"
	"trip-plan-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// VerificationHandler handles the guest verification bootstrap flow
type VerificationHandler struct {
	verificationService *services.VerificationService
	planService         *services.PlanService
	limiter             *rate.Limiter
}

// NewVerificationHandler creates a new verification handler
func NewVerificationHandler(
	verificationService *services.VerificationService,
	planService *services.PlanService,
	limiter *rate.Limiter,
) *VerificationHandler {
	return &VerificationHandler{
		verificationService: verificationService,
		planService:         planService,
		limiter:             limiter,
	}
}

// RequestCodeResponse is returned after a code was issued. The code itself
// travels only over the phone channel.
type RequestCodeResponse struct {
	ExpiresInSeconds int `json:"expires_in_seconds"`
}

// RequestCode handles POST /api/v1/invites/{invite_token}/code
func (h *VerificationHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	inviteToken := chi.URLParam(r, "invite_token")

	expiresIn, err := h.verificationService.RequestCode(ctx, inviteToken)
	if err != nil {
		log.Warn().Err(err).Msg("Code request rejected")
		respondServiceError(w, err)
		return
	}

	log.Info().Msg("Verification code issued")
	respondJSON(w, http.StatusOK, RequestCodeResponse{ExpiresInSeconds: expiresIn})
}

// VerifyCodeRequest is the body for code verification
type VerifyCodeRequest struct {
	Code string `json:"code"`
}

// VerifyCodeResponse is returned after successful verification
type VerifyCodeResponse struct {
	SessionToken        string `json:"session_token"`
	ExpiresAt           int64  `json:"expires_at"`
	OnboardingCompleted bool   `json:"onboarding_completed"`
}

// VerifyCode handles POST /api/v1/invites/{invite_token}/verify
func (h *VerificationHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	inviteToken := chi.URLParam(r, "invite_token")

	if err := h.limiter.AllowVerifyAttempt(ctx, clientIP(r)); err != nil {
		respondServiceError(w, err)
		return
	}

	var req VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Code == "" {
		respondError(w, "code is required", http.StatusBadRequest)
		return
	}

	result, err := h.verificationService.VerifyCode(ctx, inviteToken, req.Code)
	if err != nil {
		log.Warn().Err(err).Msg("Code verification failed")
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("participant_id", result.Session.ParticipantID).
		Str("plan_id", result.Session.PlanID).
		Msg("Guest verified")

	respondJSON(w, http.StatusOK, VerifyCodeResponse{
		SessionToken:        result.Session.Token,
		ExpiresAt:           result.Session.ExpiresAt.Unix(),
		OnboardingCompleted: result.OnboardingCompleted,
	})
}

// Landing handles GET /api/v1/invites/{invite_token}. The resolver has
// already classified the caller as an invite-token holder; the response is
// the minimal plan descriptor used to bootstrap verification.
func (h *VerificationHandler) Landing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	access := middleware.GetAccess(ctx)

	plan, err := h.planService.GetPlan(ctx, access.PlanID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	participants, err := h.planService.ListParticipants(ctx, access.PlanID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, services.NewLandingView(plan, participants))
}

// clientIP prefers the RealIP middleware result and falls back to the socket
// peer
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
