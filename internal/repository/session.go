package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trip-plan-backend/internal/models"
	"trip-plan-backend/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GuestSessionRepository handles database operations for guest sessions
type GuestSessionRepository struct {
	db *pgxpool.Pool
}

// NewGuestSessionRepository creates a new guest session repository
func NewGuestSessionRepository(db *pgxpool.Pool) *GuestSessionRepository {
	return &GuestSessionRepository{db: db}
}

// Create stores a new guest session
func (r *GuestSessionRepository) Create(ctx context.Context, session *models.GuestSession) error {
	query := `
		INSERT INTO guest_sessions (token, participant_id, plan_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query,
		session.Token, session.ParticipantID, session.PlanID, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create guest session: %w", err)
	}
	return nil
}

// GetByToken retrieves a session by its token. Expiry is not checked here;
// the session store compares against its own clock.
func (r *GuestSessionRepository) GetByToken(ctx context.Context, token string) (*models.GuestSession, error) {
	query := `
		SELECT token, participant_id, plan_id, expires_at, created_at
		FROM guest_sessions
		WHERE token = $1
	`
	var session models.GuestSession
	err := r.db.QueryRow(ctx, query, token).Scan(
		&session.Token, &session.ParticipantID, &session.PlanID, &session.ExpiresAt, &session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get guest session: %w", err)
	}
	return &session, nil
}

// Delete removes a session by token
func (r *GuestSessionRepository) Delete(ctx context.Context, token string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM guest_sessions WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to delete guest session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions whose expiry has passed. Idempotent; the
// predicate can never remove a still-valid row.
func (r *GuestSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM guest_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected(), nil
}
