package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"trip-plan-backend/internal/gateway"
	"trip-plan-backend/internal/models"
	"trip-plan-backend/internal/xerrors"

	"github.com/rs/zerolog/log"
)

// VerificationService turns invite-token requests into delivered one-time
// codes and validates submitted codes
type VerificationService struct {
	participants ParticipantStore
	codes        CodeStore
	sessions     *SessionService
	limiter      CodeRequestLimiter
	sender       gateway.Sender
	codeTTL      time.Duration
	maxAttempts  int
	clock        func() time.Time
	generateCode func() (string, error)
}

// NewVerificationService creates a new verification service
func NewVerificationService(
	participants ParticipantStore,
	codes CodeStore,
	sessions *SessionService,
	limiter CodeRequestLimiter,
	sender gateway.Sender,
	codeTTL time.Duration,
	maxAttempts int,
) *VerificationService {
	return &VerificationService{
		participants: participants,
		codes:        codes,
		sessions:     sessions,
		limiter:      limiter,
		sender:       sender,
		codeTTL:      codeTTL,
		maxAttempts:  maxAttempts,
		clock:        time.Now,
		generateCode: generateNumericCode,
	}
}

// generateNumericCode produces a uniformly random 6-digit code, leading zeros
// preserved
func generateNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// RequestCode issues a fresh code for the participant owning the invite token
// and hands it to the messaging gateway. Any prior active code is replaced.
// The code itself is never returned to the caller; only the expiry is.
func (s *VerificationService) RequestCode(ctx context.Context, inviteToken string) (int, error) {
	participant, err := s.participants.GetByInviteToken(ctx, inviteToken)
	if err != nil {
		return 0, err
	}

	if err := s.limiter.AllowCodeRequest(ctx, inviteToken); err != nil {
		return 0, err
	}

	code, err := s.generateCode()
	if err != nil {
		return 0, err
	}

	now := s.clock()
	record := &models.VerificationCode{
		ParticipantID: participant.ID,
		Code:          code,
		ExpiresAt:     now.Add(s.codeTTL),
		CreatedAt:     now,
	}
	if err := s.codes.Replace(ctx, record); err != nil {
		return 0, err
	}

	// Issuance is complete once the code is durably stored. Delivery is
	// fire-and-forget with its own failure domain.
	if participant.ContactPhone == nil {
		log.Warn().
			Str("participant_id", participant.ID).
			Msg("Participant has no phone number, code not delivered")
	} else {
		phone := *participant.ContactPhone
		message := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
			code, int(s.codeTTL.Minutes()))
		go func() {
			sendCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := s.sender.Send(sendCtx, phone, message); err != nil {
				log.Warn().
					Err(err).
					Str("participant_id", participant.ID).
					Msg("Failed to deliver verification code")
			}
		}()
	}

	return int(s.codeTTL.Seconds()), nil
}

// VerifyCode checks a submitted code against the participant's active one and
// issues a guest session on success. The code is single use; the conditional
// consume guarantees at most one concurrent verification wins.
func (s *VerificationService) VerifyCode(ctx context.Context, inviteToken, submitted string) (*IssueResult, error) {
	participant, err := s.participants.GetByInviteToken(ctx, inviteToken)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	active, err := s.codes.GetActive(ctx, participant.ID, now)
	if err != nil {
		return nil, err
	}

	if active.Attempts >= s.maxAttempts {
		return nil, xerrors.ErrTooManyAttempts
	}

	if subtle.ConstantTimeCompare([]byte(active.Code), []byte(submitted)) != 1 {
		attempts, err := s.codes.IncrementAttempts(ctx, participant.ID)
		if err != nil {
			return nil, err
		}
		if attempts >= s.maxAttempts {
			return nil, xerrors.ErrTooManyAttempts
		}
		return nil, xerrors.ErrInvalidCode
	}

	consumed, err := s.codes.Consume(ctx, participant.ID, submitted, now)
	if err != nil {
		return nil, err
	}
	if !consumed {
		// Lost the race to a concurrent verification or replacement.
		return nil, xerrors.ErrNotFound
	}

	return s.sessions.Issue(ctx, participant.ID, participant.PlanID)
}

// SweepExpired removes expired code rows
func (s *VerificationService) SweepExpired(ctx context.Context) (int64, error) {
	return s.codes.DeleteExpired(ctx, s.clock())
}
