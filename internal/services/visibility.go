package services

import "trip-plan-backend/internal/models"

// ParticipantView is the serialized projection of a participant for one
// accessor class. The filter is the last step before serialization, so PII
// cannot leak through a response body regardless of which layer calls it.
type ParticipantView struct {
	ID                  string  `json:"id"`
	DisplayName         string  `json:"display_name"`
	Role                string  `json:"role"`
	FirstName           *string `json:"first_name,omitempty"`
	LastName            *string `json:"last_name,omitempty"`
	ContactPhone        *string `json:"contact_phone,omitempty"`
	ContactEmail        *string `json:"contact_email,omitempty"`
	UserID              *string `json:"user_id,omitempty"`
	GroupSize           *int    `json:"group_size,omitempty"`
	DietaryNotes        *string `json:"dietary_notes,omitempty"`
	InviteToken         string  `json:"invite_token,omitempty"`
	OnboardingCompleted *bool   `json:"onboarding_completed,omitempty"`
}

// FilterParticipant projects a participant to the fields visible to the given
// accessor class. Pure function, no side effects. Returns nil for classes that
// may not see participant records at all.
func FilterParticipant(p *models.Participant, class AccessorClass) *ParticipantView {
	switch class {
	case AccessorOwner, AccessorLinkedParticipant:
		view := &ParticipantView{
			ID:                  p.ID,
			DisplayName:         p.DisplayName,
			Role:                p.Role,
			FirstName:           p.FirstName,
			LastName:            p.LastName,
			ContactPhone:        p.ContactPhone,
			ContactEmail:        p.ContactEmail,
			UserID:              p.UserID,
			GroupSize:           p.GroupSize,
			DietaryNotes:        p.DietaryNotes,
			OnboardingCompleted: &p.OnboardingCompleted,
		}
		// Invite tokens are credentials; only the owner hands them out.
		if class == AccessorOwner {
			view.InviteToken = p.InviteToken
		}
		return view
	case AccessorGuest:
		return &ParticipantView{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Role:        p.Role,
		}
	default:
		return nil
	}
}

// FilterParticipants projects a participant list for the given accessor class
func FilterParticipants(participants []models.Participant, class AccessorClass) []ParticipantView {
	views := make([]ParticipantView, 0, len(participants))
	for i := range participants {
		if view := FilterParticipant(&participants[i], class); view != nil {
			views = append(views, *view)
		}
	}
	return views
}

// LandingView is all an unverified invite-token holder may see: enough to
// bootstrap the verification flow, no participant list
type LandingView struct {
	PlanTitle        string `json:"plan_title"`
	OwnerDisplayName string `json:"owner_display_name"`
}

// NewLandingView builds the landing-page projection of a plan
func NewLandingView(plan *models.Plan, participants []models.Participant) *LandingView {
	view := &LandingView{PlanTitle: plan.Title}
	for i := range participants {
		if participants[i].Role == models.RoleOwner {
			view.OwnerDisplayName = participants[i].DisplayName
			break
		}
	}
	return view
}
