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

// VerificationCodeRepository handles database operations for one-time codes.
// The participant id is the primary key, so at most one code row can exist per
// participant and issuing a new code replaces the old one atomically.
type VerificationCodeRepository struct {
	db          *pgxpool.Pool
	maxAttempts int
}

// NewVerificationCodeRepository creates a new verification code repository
// with the configured attempt cap
func NewVerificationCodeRepository(db *pgxpool.Pool, maxAttempts int) *VerificationCodeRepository {
	return &VerificationCodeRepository{db: db, maxAttempts: maxAttempts}
}

// Replace installs a fresh code for the participant, discarding any prior one
func (r *VerificationCodeRepository) Replace(ctx context.Context, code *models.VerificationCode) error {
	query := `
		INSERT INTO verification_codes (participant_id, code, expires_at, attempts, created_at)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (participant_id) DO UPDATE
		SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at,
			attempts = 0, created_at = EXCLUDED.created_at
	`
	_, err := r.db.Exec(ctx, query, code.ParticipantID, code.Code, code.ExpiresAt, code.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}
	return nil
}

// GetActive retrieves the participant's non-expired code. Expiry is checked
// here at read time; rows the sweep has not removed yet are treated as absent.
func (r *VerificationCodeRepository) GetActive(ctx context.Context, participantID string, now time.Time) (*models.VerificationCode, error) {
	query := `
		SELECT participant_id, code, expires_at, attempts, created_at
		FROM verification_codes
		WHERE participant_id = $1 AND expires_at > $2
	`
	var code models.VerificationCode
	err := r.db.QueryRow(ctx, query, participantID, now).Scan(
		&code.ParticipantID, &code.Code, &code.ExpiresAt, &code.Attempts, &code.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get verification code: %w", err)
	}
	return &code, nil
}

// IncrementAttempts bumps the attempt counter and returns the new value.
// The increment happens in a single statement so concurrent wrong submissions
// cannot lose updates.
func (r *VerificationCodeRepository) IncrementAttempts(ctx context.Context, participantID string) (int, error) {
	query := `
		UPDATE verification_codes
		SET attempts = attempts + 1
		WHERE participant_id = $1
		RETURNING attempts
	`
	var attempts int
	err := r.db.QueryRow(ctx, query, participantID).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, xerrors.ErrNotFound
		}
		return 0, fmt.Errorf("failed to increment attempts: %w", err)
	}
	return attempts, nil
}

// Consume deletes the code row only if it still matches, is unexpired and has
// attempts left. Returns false when another request consumed or replaced it
// first; at most one concurrent verification can succeed.
func (r *VerificationCodeRepository) Consume(ctx context.Context, participantID, code string, now time.Time) (bool, error) {
	query := `
		DELETE FROM verification_codes
		WHERE participant_id = $1 AND code = $2 AND expires_at > $3 AND attempts < $4
	`
	result, err := r.db.Exec(ctx, query, participantID, code, now, r.maxAttempts)
	if err != nil {
		return false, fmt.Errorf("failed to consume verification code: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// DeleteExpired removes expired code rows; expired rows are already logically
// invalid, so the sweep only reclaims space
func (r *VerificationCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM verification_codes WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired codes: %w", err)
	}
	return result.RowsAffected(), nil
}
