package repository

import (
	"context"
	"errors"
	"fmt"

	"trip-plan-backend/internal/models"
	"trip-plan-backend/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const participantColumns = `id, plan_id, display_name, first_name, last_name,
		contact_phone, contact_email, role, user_id, group_size, dietary_notes,
		invite_token, onboarding_completed, created_at`

// ParticipantRepository handles database operations for participants
type ParticipantRepository struct {
	db *pgxpool.Pool
}

// NewParticipantRepository creates a new participant repository
func NewParticipantRepository(db *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func scanParticipant(row pgx.Row) (*models.Participant, error) {
	var p models.Participant
	err := row.Scan(
		&p.ID, &p.PlanID, &p.DisplayName, &p.FirstName, &p.LastName,
		&p.ContactPhone, &p.ContactEmail, &p.Role, &p.UserID, &p.GroupSize,
		&p.DietaryNotes, &p.InviteToken, &p.OnboardingCompleted, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create creates a new participant
func (r *ParticipantRepository) Create(ctx context.Context, p *models.Participant) error {
	query := `
		INSERT INTO participants (id, plan_id, display_name, first_name, last_name,
			contact_phone, contact_email, role, user_id, group_size, dietary_notes,
			invite_token, onboarding_completed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.Exec(ctx, query,
		p.ID, p.PlanID, p.DisplayName, p.FirstName, p.LastName,
		p.ContactPhone, p.ContactEmail, p.Role, p.UserID, p.GroupSize,
		p.DietaryNotes, p.InviteToken, p.OnboardingCompleted, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

// GetByID retrieves a participant by ID
func (r *ParticipantRepository) GetByID(ctx context.Context, id string) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`
	p, err := scanParticipant(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

// GetByInviteToken retrieves a participant by its system-wide unique invite token
func (r *ParticipantRepository) GetByInviteToken(ctx context.Context, token string) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE invite_token = $1`
	p, err := scanParticipant(r.db.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get participant by invite token: %w", err)
	}
	return p, nil
}

// GetByUserAndPlan retrieves the participant linked to a user within a plan
func (r *ParticipantRepository) GetByUserAndPlan(ctx context.Context, userID, planID string) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE user_id = $1 AND plan_id = $2`
	p, err := scanParticipant(r.db.QueryRow(ctx, query, userID, planID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get participant by user and plan: %w", err)
	}
	return p, nil
}

// ListByPlan retrieves all participants of a plan
func (r *ParticipantRepository) ListByPlan(ctx context.Context, planID string) ([]models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE plan_id = $1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read participants: %w", err)
	}
	return participants, nil
}

// LinkUser sets user_id on a participant only if it is still unset. Returns
// false when the row was already linked; the single conditional statement is
// what serializes concurrent claims against the same participant.
func (r *ParticipantRepository) LinkUser(ctx context.Context, participantID, userID string) (bool, error) {
	query := `UPDATE participants SET user_id = $2 WHERE id = $1 AND user_id IS NULL`
	result, err := r.db.Exec(ctx, query, participantID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to link participant: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// UpdateOnboarding stores a guest's onboarding answers and marks onboarding done
func (r *ParticipantRepository) UpdateOnboarding(ctx context.Context, participantID string, groupSize *int, dietaryNotes *string) error {
	query := `
		UPDATE participants
		SET group_size = $2, dietary_notes = $3, onboarding_completed = TRUE
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, participantID, groupSize, dietaryNotes)
	if err != nil {
		return fmt.Errorf("failed to update onboarding: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// UpdateProfileFields lets the plan owner edit a participant's profile fields
func (r *ParticipantRepository) UpdateProfileFields(ctx context.Context, p *models.Participant) error {
	query := `
		UPDATE participants
		SET display_name = $2, first_name = $3, last_name = $4,
			contact_phone = $5, contact_email = $6, role = $7
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		p.ID, p.DisplayName, p.FirstName, p.LastName,
		p.ContactPhone, p.ContactEmail, p.Role,
	)
	if err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
