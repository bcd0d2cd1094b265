package handlers

import (
	"encoding/json"
	"net/http"

	"trip-plan-backend/internal/middleware"
	"trip-plan-backend/internal/models"
	"trip-plan-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// PlanHandler handles plan-scoped HTTP requests
type PlanHandler struct {
	planService  *services.PlanService
	claimService *services.ClaimService
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(planService *services.PlanService, claimService *services.ClaimService) *PlanHandler {
	return &PlanHandler{
		planService:  planService,
		claimService: claimService,
	}
}

// CreatePlanRequest is the body for plan creation
type CreatePlanRequest struct {
	Title       string `json:"title"`
	DisplayName string `json:"display_name"`
}

// CreatePlanResponse returns the new plan and its owner participant
type CreatePlanResponse struct {
	Plan  *models.Plan              `json:"plan"`
	Owner *services.ParticipantView `json:"owner"`
}

// CreatePlan handles POST /api/v1/plans
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID := middleware.GetSubjectID(ctx)

	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		respondError(w, "title is required", http.StatusBadRequest)
		return
	}
	if req.DisplayName == "" {
		respondError(w, "display_name is required", http.StatusBadRequest)
		return
	}

	plan, owner, err := h.planService.CreatePlan(ctx, subjectID, req.Title, req.DisplayName)
	if err != nil {
		log.Error().Err(err).Str("subject_id", subjectID).Msg("Failed to create plan")
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("plan_id", plan.ID).
		Str("subject_id", subjectID).
		Msg("Plan created")

	respondJSON(w, http.StatusCreated, CreatePlanResponse{
		Plan:  plan,
		Owner: services.FilterParticipant(owner, services.AccessorOwner),
	})
}

// PlanResponse is the plan view for owner, linked participant or guest
type PlanResponse struct {
	Plan         *models.Plan               `json:"plan"`
	Items        []models.PlanItem          `json:"items"`
	Participants []services.ParticipantView `json:"participants"`
}

// GetPlan handles GET /api/v1/plans/{plan_id}
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	access := middleware.GetAccess(ctx)
	if access.Class < services.AccessorGuest {
		respondError(w, "forbidden", http.StatusForbidden)
		return
	}

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

	respondJSON(w, http.StatusOK, PlanResponse{
		Plan:         plan,
		Items:        items,
		Participants: services.FilterParticipants(participants, access.Class),
	})
}

// DeletePlan handles DELETE /api/v1/plans/{plan_id}
func (h *PlanHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	access := middleware.GetAccess(ctx)
	if !access.CanManagePlan() {
		respondError(w, "forbidden", http.StatusForbidden)
		return
	}

	if err := h.planService.DeletePlan(ctx, access.PlanID); err != nil {
		log.Error().Err(err).Str("plan_id", access.PlanID).Msg("Failed to delete plan")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("plan_id", access.PlanID).Msg("Plan deleted")
	w.WriteHeader(http.StatusNoContent)
}

// ListParticipants handles GET /api/v1/plans/{plan_id}/participants
func (h *PlanHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	access := middleware.GetAccess(ctx)
	if access.Class < services.AccessorGuest {
		respondError(w, "forbidden", http.StatusForbidden)
		return
	}

	participants, err := h.planService.ListParticipants(ctx, access.PlanID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, services.FilterParticipants(participants, access.Class))
}

// AddParticipantRequest is the body for adding a participant
type AddParticipantRequest struct {
	DisplayName  string  `json:"display_name"`
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	ContactPhone *string `json:"contact_phone"`
	ContactEmail *string `json:"contact_email"`
	Role         string  `json:"role"`
}

// AddParticipant handles POST /api/v1/plans/{plan_id}/participants
func (h *PlanHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	access := middleware.GetAccess(ctx)
	if !access.CanManagePlan() {
		respondError(w, "forbidden", http.StatusForbidden)
		return
	}

	var req AddParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.DisplayName == "" {
		respondError(w, "display_name is required", http.StatusBadRequest)
		return
	}
	// The owner seat is created with the plan and is unique per plan.
	if req.Role != "" && req.Role != models.RoleParticipant && req.Role != models.RoleViewer {
		respondError(w, "role must be participant or viewer", http.StatusBadRequest)
		return
	}

	participant, err := h.planService.AddParticipant(ctx, access.PlanID, services.AddParticipantInput{
		DisplayName:  req.DisplayName,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
		Role:         req.Role,
	})
	if err != nil {
		log.Error().Err(err).Str("plan_id", access.PlanID).Msg("Failed to add participant")
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("plan_id", access.PlanID).
		Str("participant_id", participant.ID).
		Msg("Participant added")

	respondJSON(w, http.StatusCreated, services.FilterParticipant(participant, services.AccessorOwner))
}

// UpdateParticipantRequest is the body for owner edits to a participant
type UpdateParticipantRequest struct {
	DisplayName  *string `json:"display_name"`
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	ContactPhone *string `json:"contact_phone"`
	ContactEmail *string `json:"contact_email"`
	Role         *string `json:"role"`
}

// UpdateParticipant handles PATCH /api/v1/plans/{plan_id}/participants/{participant_id}
func (h *PlanHandler) UpdateParticipant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	access := middleware.GetAccess(ctx)
	if !access.CanManagePlan() {
		respondError(w, "forbidden", http.StatusForbidden)
		return
	}

	participantID := chi.URLParam(r, "participant_id")
	participant, err := h.planService.GetParticipant(ctx, participantID)
	if err != nil || participant.PlanID != access.PlanID {
		respondError(w, "not found", http.StatusNotFound)
		return
	}

	var req UpdateParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.DisplayName != nil {
		participant.DisplayName = *req.DisplayName
	}
	if req.FirstName != nil {
		participant.FirstName = req.FirstName
	}
	if req.LastName != nil {
		participant.LastName = req.LastName
	}
	if req.ContactPhone != nil {
		participant.ContactPhone = req.ContactPhone
	}
	if req.ContactEmail != nil {
		participant.ContactEmail = req.ContactEmail
	}
	if req.Role != nil {
		if *req.Role != models.RoleParticipant && *req.Role != models.RoleViewer {
			respondError(w, "role must be participant or viewer", http.StatusBadRequest)
			return
		}
		if participant.Role == models.RoleOwner {
			respondError(w, "cannot change the owner role", http.StatusBadRequest)
			return
		}
		participant.Role = *req.Role
	}

	if err := h.planService.UpdateParticipant(ctx, participant); err != nil {
		log.Error().Err(err).Str("participant_id", participantID).Msg("Failed to update participant")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, services.FilterParticipant(participant, services.AccessorOwner))
}

// CreateItemRequest is the body for item creation
type CreateItemRequest struct {
	Title                 string  `json:"title"`
	Notes                 *string `json:"notes"`
	AssignedParticipantID *string `json:"assigned_participant_id"`
}

// CreateItem handles POST /api/v1/plans/{plan_id}/items
func (h *PlanHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	access := middleware.GetAccess(ctx)
	if !access.CanManagePlan() {
		respondError(w, "forbidden", http.StatusForbidden)
		return
	}

	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		respondError(w, "title is required", http.StatusBadRequest)
		return
	}

	item, err := h.planService.CreateItem(ctx, access.PlanID, req.Title, req.Notes, req.AssignedParticipantID)
	if err != nil {
		log.Error().Err(err).Str("plan_id", access.PlanID).Msg("Failed to create item")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

// UpdateItemRequest is the body for item edits
type UpdateItemRequest struct {
	Title                 *string `json:"title"`
	Notes                 *string `json:"notes"`
	AssignedParticipantID *string `json:"assigned_participant_id"`
}

// UpdateItem handles PATCH /api/v1/plans/{plan_id}/items/{item_id}.
// Linked participants may edit only items assigned to them and may not
// reassign; the owner may do both.
func (h *PlanHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	access := middleware.GetAccess(ctx)

	itemID := chi.URLParam(r, "item_id")
	item, err := h.planService.GetItem(ctx, itemID)
	if err != nil || item.PlanID != access.PlanID {
		respondError(w, "not found", http.StatusNotFound)
		return
	}

	if !access.CanWriteItem(item) {
		respondError(w, "forbidden", http.StatusForbidden)
		return
	}

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Notes != nil {
		item.Notes = req.Notes
	}
	if req.AssignedParticipantID != nil {
		if !access.CanManagePlan() {
			respondError(w, "only the owner can reassign items", http.StatusForbidden)
			return
		}
		item.AssignedParticipantID = req.AssignedParticipantID
	}

	if err := h.planService.UpdateItem(ctx, item); err != nil {
		log.Error().Err(err).Str("item_id", itemID).Msg("Failed to update item")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// Claim handles POST /api/v1/plans/{plan_id}/claim/{invite_token}. The caller
// becomes the participant, so the response is unfiltered.
func (h *PlanHandler) Claim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID := middleware.GetSubjectID(ctx)
	planID := chi.URLParam(r, "plan_id")
	inviteToken := chi.URLParam(r, "invite_token")

	participant, err := h.claimService.Claim(ctx, planID, inviteToken, subjectID)
	if err != nil {
		log.Warn().Err(err).Str("subject_id", subjectID).Msg("Claim rejected")
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("subject_id", subjectID).
		Str("participant_id", participant.ID).
		Str("plan_id", participant.PlanID).
		Msg("Participant claimed")

	respondJSON(w, http.StatusOK, participant)
}
