package services

import (
	"context"
	"fmt"
	"time"

	"trip-plan-backend/internal/models"

	"github.com/google/uuid"
)

// PlanService handles plan, participant and item management
type PlanService struct {
	plans        PlanStore
	participants ParticipantStore
	items        ItemStore
	clock        func() time.Time
	newID        func() string
}

// NewPlanService creates a new plan service
func NewPlanService(plans PlanStore, participants ParticipantStore, items ItemStore) *PlanService {
	return &PlanService{
		plans:        plans,
		participants: participants,
		items:        items,
		clock:        time.Now,
		newID:        func() string { return uuid.New().String() },
	}
}

// CreatePlan creates a plan together with its owner participant, already
// linked to the creating subject
func (s *PlanService) CreatePlan(ctx context.Context, subjectID, title, ownerDisplayName string) (*models.Plan, *models.Participant, error) {
	now := s.clock()
	plan := &models.Plan{
		ID:              s.newID(),
		Title:           title,
		CreatedByUserID: subjectID,
		CreatedAt:       now,
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, nil, err
	}

	owner := &models.Participant{
		ID:          s.newID(),
		PlanID:      plan.ID,
		DisplayName: ownerDisplayName,
		Role:        models.RoleOwner,
		UserID:      &subjectID,
		InviteToken: s.newID(),
		CreatedAt:   now,
	}
	if err := s.participants.Create(ctx, owner); err != nil {
		return nil, nil, fmt.Errorf("failed to create owner participant: %w", err)
	}

	return plan, owner, nil
}

// GetPlan retrieves a plan
func (s *PlanService) GetPlan(ctx context.Context, planID string) (*models.Plan, error) {
	return s.plans.GetByID(ctx, planID)
}

// DeletePlan removes a plan and all of its children
func (s *PlanService) DeletePlan(ctx context.Context, planID string) error {
	return s.plans.Delete(ctx, planID)
}

// ListParticipants retrieves the participants of a plan
func (s *PlanService) ListParticipants(ctx context.Context, planID string) ([]models.Participant, error) {
	return s.participants.ListByPlan(ctx, planID)
}

// AddParticipantInput holds the fields the owner sets when adding a participant
type AddParticipantInput struct {
	DisplayName  string
	FirstName    *string
	LastName     *string
	ContactPhone *string
	ContactEmail *string
	Role         string
}

// AddParticipant creates a participant with a fresh invite token. The owner
// seat is created with the plan; added participants never hold it.
func (s *PlanService) AddParticipant(ctx context.Context, planID string, input AddParticipantInput) (*models.Participant, error) {
	role := input.Role
	if role == "" {
		role = models.RoleParticipant
	}

	participant := &models.Participant{
		ID:           s.newID(),
		PlanID:       planID,
		DisplayName:  input.DisplayName,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		ContactPhone: input.ContactPhone,
		ContactEmail: input.ContactEmail,
		Role:         role,
		InviteToken:  s.newID(),
		CreatedAt:    s.clock(),
	}
	if err := s.participants.Create(ctx, participant); err != nil {
		return nil, err
	}
	return participant, nil
}

// UpdateParticipant stores owner edits to a participant's profile fields
func (s *PlanService) UpdateParticipant(ctx context.Context, p *models.Participant) error {
	return s.participants.UpdateProfileFields(ctx, p)
}

// GetParticipant retrieves a participant
func (s *PlanService) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	return s.participants.GetByID(ctx, id)
}

// SubmitOnboarding stores a guest's onboarding answers
func (s *PlanService) SubmitOnboarding(ctx context.Context, participantID string, groupSize *int, dietaryNotes *string) error {
	return s.participants.UpdateOnboarding(ctx, participantID, groupSize, dietaryNotes)
}

// ListItems retrieves the items of a plan
func (s *PlanService) ListItems(ctx context.Context, planID string) ([]models.PlanItem, error) {
	return s.items.ListByPlan(ctx, planID)
}

// GetItem retrieves a plan item
func (s *PlanService) GetItem(ctx context.Context, id string) (*models.PlanItem, error) {
	return s.items.GetByID(ctx, id)
}

// CreateItem adds an item to a plan
func (s *PlanService) CreateItem(ctx context.Context, planID, title string, notes *string, assignedParticipantID *string) (*models.PlanItem, error) {
	item := &models.PlanItem{
		ID:                    s.newID(),
		PlanID:                planID,
		Title:                 title,
		Notes:                 notes,
		AssignedParticipantID: assignedParticipantID,
		CreatedAt:             s.clock(),
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem stores edits to a plan item
func (s *PlanService) UpdateItem(ctx context.Context, item *models.PlanItem) error {
	return s.items.Update(ctx, item)
}
