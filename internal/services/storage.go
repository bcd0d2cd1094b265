package services

import (
	"context"
	"time"

	"trip-plan-backend/internal/models"
)

// Store interfaces are satisfied by the pgx repositories; tests substitute
// in-memory fakes.

// PlanStore provides plan rows
type PlanStore interface {
	Create(ctx context.Context, plan *models.Plan) error
	GetByID(ctx context.Context, id string) (*models.Plan, error)
	Delete(ctx context.Context, id string) error
}

// ParticipantStore provides participant rows and the conditional link write
type ParticipantStore interface {
	Create(ctx context.Context, p *models.Participant) error
	GetByID(ctx context.Context, id string) (*models.Participant, error)
	GetByInviteToken(ctx context.Context, token string) (*models.Participant, error)
	GetByUserAndPlan(ctx context.Context, userID, planID string) (*models.Participant, error)
	ListByPlan(ctx context.Context, planID string) ([]models.Participant, error)
	LinkUser(ctx context.Context, participantID, userID string) (bool, error)
	UpdateOnboarding(ctx context.Context, participantID string, groupSize *int, dietaryNotes *string) error
	UpdateProfileFields(ctx context.Context, p *models.Participant) error
}

// ProfileStore provides registered-identity profiles
type ProfileStore interface {
	Ensure(ctx context.Context, profile *models.Profile) error
}

// ItemStore provides plan item rows
type ItemStore interface {
	Create(ctx context.Context, item *models.PlanItem) error
	GetByID(ctx context.Context, id string) (*models.PlanItem, error)
	ListByPlan(ctx context.Context, planID string) ([]models.PlanItem, error)
	Update(ctx context.Context, item *models.PlanItem) error
}

// CodeStore provides one-time code rows with atomic consume/increment
type CodeStore interface {
	Replace(ctx context.Context, code *models.VerificationCode) error
	GetActive(ctx context.Context, participantID string, now time.Time) (*models.VerificationCode, error)
	IncrementAttempts(ctx context.Context, participantID string) (int, error)
	Consume(ctx context.Context, participantID, code string, now time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionStore provides guest session rows
type SessionStore interface {
	Create(ctx context.Context, session *models.GuestSession) error
	GetByToken(ctx context.Context, token string) (*models.GuestSession, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CodeRequestLimiter is the external keyed counter consulted before issuing codes
type CodeRequestLimiter interface {
	AllowCodeRequest(ctx context.Context, inviteToken string) error
}
