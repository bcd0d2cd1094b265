package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"trip-plan-backend/internal/models"
	"trip-plan-backend/internal/xerrors"
)

const sessionTokenBytes = 32

// SessionService issues and validates guest session tokens
type SessionService struct {
	sessions      SessionStore
	participants  ParticipantStore
	ttl           time.Duration
	clock         func() time.Time
	generateToken func() (string, error)
}

// NewSessionService creates a new session service
func NewSessionService(sessions SessionStore, participants ParticipantStore, ttl time.Duration) *SessionService {
	return &SessionService{
		sessions:      sessions,
		participants:  participants,
		ttl:           ttl,
		clock:         time.Now,
		generateToken: generateSessionToken,
	}
}

// generateSessionToken produces an unguessable opaque token
func generateSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IssueResult is returned to a guest who just verified
type IssueResult struct {
	Session             *models.GuestSession
	OnboardingCompleted bool
}

// Issue creates a session for a participant who just verified phone ownership
func (s *SessionService) Issue(ctx context.Context, participantID, planID string) (*IssueResult, error) {
	participant, err := s.participants.GetByID(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participant: %w", err)
	}

	token, err := s.generateToken()
	if err != nil {
		return nil, err
	}

	now := s.clock()
	session := &models.GuestSession{
		Token:         token,
		ParticipantID: participantID,
		PlanID:        planID,
		ExpiresAt:     now.Add(s.ttl),
		CreatedAt:     now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	return &IssueResult{
		Session:             session,
		OnboardingCompleted: participant.OnboardingCompleted,
	}, nil
}

// Validate returns the session bound to a token. A session is valid only while
// now < expiresAt; there is no sliding expiry, a session at its boundary is
// already invalid. Rows the sweep has not purged yet are logically absent.
func (s *SessionService) Validate(ctx context.Context, token string) (*models.GuestSession, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrUnauthorized
		}
		return nil, err
	}
	if !s.clock().Before(session.ExpiresAt) {
		return nil, xerrors.ErrUnauthorized
	}
	return session, nil
}

// Revoke removes a session on explicit logout
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// RevokeExpired removes sessions whose expiry has passed; safe to run on any
// schedule, never touches a still-valid row
func (s *SessionService) RevokeExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, s.clock())
}
