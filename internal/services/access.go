package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"trip-plan-backend/internal/identity"
	"trip-plan-backend/internal/models"
	"trip-plan-backend/internal/xerrors"
)

// AccessorClass is the closed set of caller categories the resolver assigns
type AccessorClass int

const (
	AccessorAnonymous AccessorClass = iota
	AccessorInviteHolder
	AccessorGuest
	AccessorLinkedParticipant
	AccessorOwner
)

// String returns the accessor class name
func (c AccessorClass) String() string {
	switch c {
	case AccessorOwner:
		return "owner"
	case AccessorLinkedParticipant:
		return "linked_participant"
	case AccessorGuest:
		return "guest"
	case AccessorInviteHolder:
		return "invite_holder"
	default:
		return "anonymous"
	}
}

// Access is the resolver's decision: who is asking and which plan scope applies
type Access struct {
	Class          AccessorClass
	SubjectID      string
	ParticipantID  string
	PlanID         string
	LegacyOverride bool
}

// CanManagePlan reports whether the caller may mutate the plan and its
// participants
func (a *Access) CanManagePlan() bool {
	return a.Class == AccessorOwner
}

// CanWriteItem reports whether the caller may mutate a specific item. Linked
// participants only write items assigned to them.
func (a *Access) CanWriteItem(item *models.PlanItem) bool {
	switch a.Class {
	case AccessorOwner:
		return true
	case AccessorLinkedParticipant:
		return item.AssignedParticipantID != nil && *item.AssignedParticipantID == a.ParticipantID
	default:
		return false
	}
}

// Proofs are the identity proofs extracted from one request. Zero or more may
// be present.
type Proofs struct {
	Bearer       string
	SessionToken string
	InviteToken  string
	LegacySecret string
}

// CredentialVerifier validates signed bearer credentials
type CredentialVerifier interface {
	Verify(ctx context.Context, token string) (*identity.Claims, error)
}

// AccessService is the single decision point every protected operation invokes
// before touching data
type AccessService struct {
	verifier     CredentialVerifier
	plans        PlanStore
	participants ParticipantStore
	profiles     ProfileStore
	sessions     *SessionService
	legacySecret string
	clock        func() time.Time
}

// NewAccessService creates a new authorization resolver. An empty legacySecret
// disables the shared-secret override.
func NewAccessService(
	verifier CredentialVerifier,
	plans PlanStore,
	participants ParticipantStore,
	profiles ProfileStore,
	sessions *SessionService,
	legacySecret string,
) *AccessService {
	return &AccessService{
		verifier:     verifier,
		plans:        plans,
		participants: participants,
		profiles:     profiles,
		sessions:     sessions,
		legacySecret: legacySecret,
		clock:        time.Now,
	}
}

// Resolve classifies the caller for the requested plan. Proofs are evaluated
// in strict precedence, first match wins: signed credential, legacy secret,
// guest session, invite token, none. planID may be empty for routes whose plan
// scope is derived from the proof itself (guest and landing routes); the
// returned Access carries the effective plan id. Identity-only routes bypass
// Resolve through VerifySubject, which never honors the legacy secret.
func (s *AccessService) Resolve(ctx context.Context, planID string, proofs Proofs) (*Access, error) {
	// A route addressing an invite token is scoped to that token's plan, so a
	// stronger proof bound to a different plan cannot hijack it.
	if planID == "" && proofs.InviteToken != "" {
		participant, err := s.participants.GetByInviteToken(ctx, proofs.InviteToken)
		if err == nil {
			planID = participant.PlanID
		} else if !errors.Is(err, xerrors.ErrNotFound) {
			return nil, err
		}
	}

	// A valid credential with no relationship to the plan is Forbidden, which
	// is distinct from Unauthorized; but the legacy override is still
	// consulted first.
	forbidden := false

	if proofs.Bearer != "" && planID != "" {
		claims, err := s.verifier.Verify(ctx, proofs.Bearer)
		if err == nil {
			if err := s.provisionProfile(ctx, claims); err != nil {
				return nil, err
			}

			plan, err := s.plans.GetByID(ctx, planID)
			if err != nil {
				return nil, err
			}

			if plan.CreatedByUserID == claims.Subject {
				return &Access{Class: AccessorOwner, SubjectID: claims.Subject, PlanID: planID}, nil
			}

			participant, err := s.participants.GetByUserAndPlan(ctx, claims.Subject, planID)
			if err == nil {
				return &Access{
					Class:         AccessorLinkedParticipant,
					SubjectID:     claims.Subject,
					ParticipantID: participant.ID,
					PlanID:        planID,
				}, nil
			}
			if !errors.Is(err, xerrors.ErrNotFound) {
				return nil, err
			}
			forbidden = true
		}
	}

	if s.legacyMatch(proofs.LegacySecret) {
		if planID != "" {
			if _, err := s.plans.GetByID(ctx, planID); err != nil {
				return nil, err
			}
		}
		return &Access{Class: AccessorOwner, PlanID: planID, LegacyOverride: true}, nil
	}

	if forbidden {
		return nil, xerrors.ErrForbidden
	}

	if proofs.SessionToken != "" {
		session, err := s.sessions.Validate(ctx, proofs.SessionToken)
		if err == nil {
			if planID == "" || session.PlanID == planID {
				return &Access{
					Class:         AccessorGuest,
					ParticipantID: session.ParticipantID,
					PlanID:        session.PlanID,
				}, nil
			}
		} else if !errors.Is(err, xerrors.ErrUnauthorized) {
			return nil, err
		}
	}

	if proofs.InviteToken != "" {
		participant, err := s.participants.GetByInviteToken(ctx, proofs.InviteToken)
		if err == nil {
			if planID == "" || participant.PlanID == planID {
				return &Access{
					Class:         AccessorInviteHolder,
					ParticipantID: participant.ID,
					PlanID:        participant.PlanID,
				}, nil
			}
		} else if !errors.Is(err, xerrors.ErrNotFound) {
			return nil, err
		}
	}

	return nil, xerrors.ErrUnauthorized
}

// VerifySubject validates a bearer credential alone, provisioning the profile.
// Used by identity-only operations (claim) where the caller has no plan
// relationship yet.
func (s *AccessService) VerifySubject(ctx context.Context, bearer string) (string, error) {
	claims, err := s.verifier.Verify(ctx, bearer)
	if err != nil {
		return "", xerrors.ErrUnauthorized
	}
	if err := s.provisionProfile(ctx, claims); err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// provisionProfile lazily creates the local profile for a subject on its first
// valid credential
func (s *AccessService) provisionProfile(ctx context.Context, claims *identity.Claims) error {
	profile := &models.Profile{
		UserID:    claims.Subject,
		Email:     claims.Email,
		CreatedAt: s.clock(),
	}
	if claims.Name != "" {
		name := claims.Name
		profile.DisplayName = &name
	}
	return s.profiles.Ensure(ctx, profile)
}

func (s *AccessService) legacyMatch(secret string) bool {
	if s.legacySecret == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.legacySecret), []byte(secret)) == 1
}
