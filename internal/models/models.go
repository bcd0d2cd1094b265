package models

import "time"

// Participant roles within a plan.
const (
	RoleOwner       = "owner"
	RoleParticipant = "participant"
	RoleViewer      = "viewer"
)

// Plan represents a shared trip plan
type Plan struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	CreatedByUserID string    `json:"created_by_user_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// PlanItem represents a single item on a plan (an activity, a booking, a task)
type PlanItem struct {
	ID                    string    `json:"id"`
	PlanID                string    `json:"plan_id"`
	Title                 string    `json:"title"`
	Notes                 *string   `json:"notes,omitempty"`
	AssignedParticipantID *string   `json:"assigned_participant_id,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

// Participant represents one person attached to a plan. UserID is set at most
// once by the claim flow and never reset. InviteToken is unique system-wide.
type Participant struct {
	ID                  string    `json:"id"`
	PlanID              string    `json:"plan_id"`
	DisplayName         string    `json:"display_name"`
	FirstName           *string   `json:"first_name,omitempty"`
	LastName            *string   `json:"last_name,omitempty"`
	ContactPhone        *string   `json:"contact_phone,omitempty"`
	ContactEmail        *string   `json:"contact_email,omitempty"`
	Role                string    `json:"role"`
	UserID              *string   `json:"user_id,omitempty"`
	GroupSize           *int      `json:"group_size,omitempty"`
	DietaryNotes        *string   `json:"dietary_notes,omitempty"`
	InviteToken         string    `json:"invite_token,omitempty"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	CreatedAt           time.Time `json:"created_at"`
}

// Profile is the local projection of an externally authenticated subject.
// UserID equals the identity provider's subject claim, never generated locally.
type Profile struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName *string   `json:"display_name,omitempty"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// VerificationCode is the single active one-time code for a participant.
// A code whose attempt counter reaches the configured cap is dead even if
// time remains.
type VerificationCode struct {
	ParticipantID string    `json:"participant_id"`
	Code          string    `json:"-"`
	ExpiresAt     time.Time `json:"expires_at"`
	Attempts      int       `json:"attempts"`
	CreatedAt     time.Time `json:"created_at"`
}

// GuestSession proves a guest verified phone ownership recently. The token is
// the primary lookup key; sessions are never renewed in place.
type GuestSession struct {
	Token         string    `json:"token"`
	ParticipantID string    `json:"participant_id"`
	PlanID        string    `json:"plan_id"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
}
