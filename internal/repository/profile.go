package repository

import (
	"context"
	"fmt"

	"trip-plan-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository handles database operations for registered-identity profiles
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Ensure inserts a profile for the subject if one does not exist yet.
// Profiles are provisioned lazily on the first valid credential for a subject.
func (r *ProfileRepository) Ensure(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, email, display_name, avatar_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query,
		profile.UserID, profile.Email, profile.DisplayName, profile.AvatarURL, profile.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure profile: %w", err)
	}
	return nil
}
