package services

import (
	"context"
	"errors"
	"fmt"

	"trip-plan-backend/internal/models"
	"trip-plan-backend/internal/xerrors"
)

// ClaimService binds one registered identity to one participant, exactly once
type ClaimService struct {
	participants ParticipantStore
}

// NewClaimService creates a new claim service
func NewClaimService(participants ParticipantStore) *ClaimService {
	return &ClaimService{participants: participants}
}

// Claim links subjectID to the participant owning inviteToken. Re-claiming
// with the same subject is an idempotent no-op; a different subject fails.
// The link write is conditional on user_id still being unset, so two
// concurrent claims against the same token cannot both pass. A non-empty
// planID scopes the claim: a token from another plan reads as unknown, so a
// caller cannot learn whether a token exists elsewhere.
func (s *ClaimService) Claim(ctx context.Context, planID, inviteToken, subjectID string) (*models.Participant, error) {
	participant, err := s.participants.GetByInviteToken(ctx, inviteToken)
	if err != nil {
		return nil, err
	}
	if planID != "" && participant.PlanID != planID {
		return nil, xerrors.ErrNotFound
	}

	if participant.UserID != nil {
		if *participant.UserID == subjectID {
			return participant, nil
		}
		return nil, xerrors.ErrAlreadyLinkedToOther
	}

	// One identity cannot occupy two seats in the same plan.
	existing, err := s.participants.GetByUserAndPlan(ctx, subjectID, participant.PlanID)
	if err != nil && !errors.Is(err, xerrors.ErrNotFound) {
		return nil, err
	}
	if err == nil && existing.ID != participant.ID {
		return nil, xerrors.ErrAlreadyParticipantInPlan
	}

	linked, err := s.participants.LinkUser(ctx, participant.ID, subjectID)
	if err != nil {
		return nil, err
	}
	if !linked {
		// A concurrent claim won; re-read to tell idempotent success apart
		// from a conflict.
		current, err := s.participants.GetByID(ctx, participant.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to re-read participant: %w", err)
		}
		if current.UserID != nil && *current.UserID == subjectID {
			return current, nil
		}
		return nil, xerrors.ErrAlreadyLinkedToOther
	}

	participant.UserID = &subjectID
	return participant, nil
}
