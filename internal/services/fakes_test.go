package services

import (
	"context"
	"sync"
	"time"

	"trip-plan-backend/internal/identity"
	"trip-plan-backend/internal/models"
	"trip-plan-backend/internal/xerrors"
)

type fakePlanStore struct {
	plans map[string]*models.Plan
}

func newFakePlanStore() *fakePlanStore {
	return &fakePlanStore{plans: map[string]*models.Plan{}}
}

func (s *fakePlanStore) Create(ctx context.Context, plan *models.Plan) error {
	cp := *plan
	s.plans[plan.ID] = &cp
	return nil
}

func (s *fakePlanStore) GetByID(ctx context.Context, id string) (*models.Plan, error) {
	plan, ok := s.plans[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *plan
	return &cp, nil
}

func (s *fakePlanStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.plans[id]; !ok {
		return xerrors.ErrNotFound
	}
	delete(s.plans, id)
	return nil
}

type fakeParticipantStore struct {
	participants map[string]*models.Participant
	linkFunc     func(participantID, userID string) (bool, error)
}

func newFakeParticipantStore(participants ...*models.Participant) *fakeParticipantStore {
	s := &fakeParticipantStore{participants: map[string]*models.Participant{}}
	for _, p := range participants {
		cp := *p
		s.participants[p.ID] = &cp
	}
	return s
}

func (s *fakeParticipantStore) Create(ctx context.Context, p *models.Participant) error {
	cp := *p
	s.participants[p.ID] = &cp
	return nil
}

func (s *fakeParticipantStore) GetByID(ctx context.Context, id string) (*models.Participant, error) {
	p, ok := s.participants[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeParticipantStore) GetByInviteToken(ctx context.Context, token string) (*models.Participant, error) {
	for _, p := range s.participants {
		if p.InviteToken == token {
			cp := *p
			return &cp, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (s *fakeParticipantStore) GetByUserAndPlan(ctx context.Context, userID, planID string) (*models.Participant, error) {
	for _, p := range s.participants {
		if p.PlanID == planID && p.UserID != nil && *p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (s *fakeParticipantStore) ListByPlan(ctx context.Context, planID string) ([]models.Participant, error) {
	var out []models.Participant
	for _, p := range s.participants {
		if p.PlanID == planID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakeParticipantStore) LinkUser(ctx context.Context, participantID, userID string) (bool, error) {
	if s.linkFunc != nil {
		return s.linkFunc(participantID, userID)
	}
	p, ok := s.participants[participantID]
	if !ok {
		return false, nil
	}
	if p.UserID != nil {
		return false, nil
	}
	p.UserID = &userID
	return true, nil
}

func (s *fakeParticipantStore) UpdateOnboarding(ctx context.Context, participantID string, groupSize *int, dietaryNotes *string) error {
	p, ok := s.participants[participantID]
	if !ok {
		return xerrors.ErrNotFound
	}
	p.GroupSize = groupSize
	p.DietaryNotes = dietaryNotes
	p.OnboardingCompleted = true
	return nil
}

func (s *fakeParticipantStore) UpdateProfileFields(ctx context.Context, update *models.Participant) error {
	p, ok := s.participants[update.ID]
	if !ok {
		return xerrors.ErrNotFound
	}
	p.DisplayName = update.DisplayName
	p.FirstName = update.FirstName
	p.LastName = update.LastName
	p.ContactPhone = update.ContactPhone
	p.ContactEmail = update.ContactEmail
	p.Role = update.Role
	return nil
}

type fakeProfileStore struct {
	profiles map[string]*models.Profile
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: map[string]*models.Profile{}}
}

func (s *fakeProfileStore) Ensure(ctx context.Context, profile *models.Profile) error {
	if _, ok := s.profiles[profile.UserID]; ok {
		return nil
	}
	cp := *profile
	s.profiles[profile.UserID] = &cp
	return nil
}

type fakeCodeStore struct {
	codes       map[string]*models.VerificationCode
	maxAttempts int
	consumeFunc func(participantID, code string, now time.Time) (bool, error)
}

func newFakeCodeStore() *fakeCodeStore {
	return &fakeCodeStore{codes: map[string]*models.VerificationCode{}, maxAttempts: 5}
}

func (s *fakeCodeStore) Replace(ctx context.Context, code *models.VerificationCode) error {
	cp := *code
	cp.Attempts = 0
	s.codes[code.ParticipantID] = &cp
	return nil
}

func (s *fakeCodeStore) GetActive(ctx context.Context, participantID string, now time.Time) (*models.VerificationCode, error) {
	code, ok := s.codes[participantID]
	if !ok || !code.ExpiresAt.After(now) {
		return nil, xerrors.ErrNotFound
	}
	cp := *code
	return &cp, nil
}

func (s *fakeCodeStore) IncrementAttempts(ctx context.Context, participantID string) (int, error) {
	code, ok := s.codes[participantID]
	if !ok {
		return 0, xerrors.ErrNotFound
	}
	code.Attempts++
	return code.Attempts, nil
}

func (s *fakeCodeStore) Consume(ctx context.Context, participantID, submitted string, now time.Time) (bool, error) {
	if s.consumeFunc != nil {
		return s.consumeFunc(participantID, submitted, now)
	}
	code, ok := s.codes[participantID]
	if !ok || code.Code != submitted || !code.ExpiresAt.After(now) || code.Attempts >= s.maxAttempts {
		return false, nil
	}
	delete(s.codes, participantID)
	return true, nil
}

func (s *fakeCodeStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	for id, code := range s.codes {
		if !code.ExpiresAt.After(now) {
			delete(s.codes, id)
			removed++
		}
	}
	return removed, nil
}

type fakeSessionStore struct {
	sessions map[string]*models.GuestSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]*models.GuestSession{}}
}

func (s *fakeSessionStore) Create(ctx context.Context, session *models.GuestSession) error {
	cp := *session
	s.sessions[session.Token] = &cp
	return nil
}

func (s *fakeSessionStore) GetByToken(ctx context.Context, token string) (*models.GuestSession, error) {
	session, ok := s.sessions[token]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *session
	return &cp, nil
}

func (s *fakeSessionStore) Delete(ctx context.Context, token string) error {
	delete(s.sessions, token)
	return nil
}

func (s *fakeSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	for token, session := range s.sessions {
		if !session.ExpiresAt.After(now) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed, nil
}

type fakeLimiter struct {
	err   error
	calls int
}

func (l *fakeLimiter) AllowCodeRequest(ctx context.Context, inviteToken string) error {
	l.calls++
	return l.err
}

type fakeSender struct {
	mu       sync.Mutex
	messages []string
	sent     chan string
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(chan string, 8)}
}

func (s *fakeSender) Send(ctx context.Context, phone, message string) error {
	s.mu.Lock()
	s.messages = append(s.messages, message)
	s.mu.Unlock()
	s.sent <- phone
	return nil
}

type fakeVerifier struct {
	claims map[string]*identity.Claims
}

func (v *fakeVerifier) Verify(ctx context.Context, token string) (*identity.Claims, error) {
	claims, ok := v.claims[token]
	if !ok {
		return nil, identity.ErrInvalidToken
	}
	return claims, nil
}
