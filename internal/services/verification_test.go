package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"trip-plan-backend/internal/models"
	"trip-plan-backend/internal/xerrors"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testParticipant() *models.Participant {
	phone := "+15550100"
	return &models.Participant{
		ID:           "part-1",
		PlanID:       "plan-1",
		DisplayName:  "Alice",
		Role:         models.RoleParticipant,
		ContactPhone: &phone,
		InviteToken:  "invite-1",
	}
}

func newTestVerification(participants *fakeParticipantStore, codes *fakeCodeStore, limiter *fakeLimiter, sender *fakeSender, now time.Time) (*VerificationService, *fakeSessionStore) {
	sessionStore := newFakeSessionStore()
	sessions := NewSessionService(sessionStore, participants, 30*time.Minute)
	sessions.clock = fixedClock(now)
	sessions.generateToken = func() (string, error) { return "session-token-1", nil }

	svc := NewVerificationService(participants, codes, sessions, limiter, sender, 10*time.Minute, 5)
	svc.clock = fixedClock(now)
	svc.generateCode = func() (string, error) { return "123456", nil }
	return svc, sessionStore
}

func TestRequestCodeStoresAndDelivers(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	participants := newFakeParticipantStore(testParticipant())
	codes := newFakeCodeStore()
	limiter := &fakeLimiter{}
	sender := newFakeSender()
	svc, _ := newTestVerification(participants, codes, limiter, sender, now)

	expiresIn, err := svc.RequestCode(context.Background(), "invite-1")
	if err != nil {
		t.Fatalf("request code: %v", err)
	}
	if expiresIn != 600 {
		t.Fatalf("expected 600 seconds, got %d", expiresIn)
	}

	code, ok := codes.codes["part-1"]
	if !ok {
		t.Fatal("expected stored code")
	}
	if code.Code != "123456" {
		t.Fatalf("expected code 123456, got %q", code.Code)
	}
	if code.Attempts != 0 {
		t.Fatalf("expected attempts 0, got %d", code.Attempts)
	}
	if !code.ExpiresAt.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("expected expiry %v, got %v", now.Add(10*time.Minute), code.ExpiresAt)
	}

	select {
	case phone := <-sender.sent:
		if phone != "+15550100" {
			t.Fatalf("expected delivery to participant phone, got %q", phone)
		}
	case <-time.After(time.Second):
		t.Fatal("expected delivery attempt")
	}
}

func TestRequestCodeReplacesActiveCode(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	participants := newFakeParticipantStore(testParticipant())
	codes := newFakeCodeStore()
	svc, _ := newTestVerification(participants, codes, &fakeLimiter{}, newFakeSender(), now)

	if _, err := svc.RequestCode(context.Background(), "invite-1"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := codes.IncrementAttempts(context.Background(), "part-1"); err != nil {
		t.Fatalf("increment: %v", err)
	}

	svc.generateCode = func() (string, error) { return "654321", nil }
	if _, err := svc.RequestCode(context.Background(), "invite-1"); err != nil {
		t.Fatalf("second request: %v", err)
	}

	if len(codes.codes) != 1 {
		t.Fatalf("expected one active code, got %d", len(codes.codes))
	}
	code := codes.codes["part-1"]
	if code.Code != "654321" {
		t.Fatalf("expected replacement code, got %q", code.Code)
	}
	if code.Attempts != 0 {
		t.Fatalf("expected attempts reset, got %d", code.Attempts)
	}
}

func TestRequestCodeUnknownToken(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	participants := newFakeParticipantStore(testParticipant())
	codes := newFakeCodeStore()
	limiter := &fakeLimiter{}
	svc, _ := newTestVerification(participants, codes, limiter, newFakeSender(), now)

	_, err := svc.RequestCode(context.Background(), "no-such-token")
	if !errors.Is(err, xerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(codes.codes) != 0 {
		t.Fatal("expected no stored code")
	}
	if limiter.calls != 0 {
		t.Fatal("expected limiter untouched for unknown token")
	}
}

func TestRequestCodeRateLimited(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	participants := newFakeParticipantStore(testParticipant())
	codes := newFakeCodeStore()
	limiter := &fakeLimiter{err: xerrors.ErrTooManyRequests}
	sender := newFakeSender()
	svc, _ := newTestVerification(participants, codes, limiter, sender, now)

	_, err := svc.RequestCode(context.Background(), "invite-1")
	if !errors.Is(err, xerrors.ErrTooManyRequests) {
		t.Fatalf("expected ErrTooManyRequests, got %v", err)
	}
	if len(codes.codes) != 0 {
		t.Fatal("expected no code issued past the limit")
	}
	select {
	case <-sender.sent:
		t.Fatal("expected no message past the limit")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestVerifyCodeIssuesSession(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	p := testParticipant()
	p.OnboardingCompleted = true
	participants := newFakeParticipantStore(p)
	codes := newFakeCodeStore()
	svc, sessionStore := newTestVerification(participants, codes, &fakeLimiter{}, newFakeSender(), now)

	if _, err := svc.RequestCode(context.Background(), "invite-1"); err != nil {
		t.Fatalf("request code: %v", err)
	}

	result, err := svc.VerifyCode(context.Background(), "invite-1", "123456")
	if err != nil {
		t.Fatalf("verify code: %v", err)
	}
	if result.Session.Token != "session-token-1" {
		t.Fatalf("expected issued token, got %q", result.Session.Token)
	}
	if result.Session.ParticipantID != "part-1" || result.Session.PlanID != "plan-1" {
		t.Fatalf("expected session bound to part-1/plan-1, got %s/%s",
			result.Session.ParticipantID, result.Session.PlanID)
	}
	if !result.OnboardingCompleted {
		t.Fatal("expected onboarding flag carried through")
	}
	if len(codes.codes) != 0 {
		t.Fatal("expected code consumed")
	}
	if _, ok := sessionStore.sessions["session-token-1"]; !ok {
		t.Fatal("expected session persisted")
	}
}

func TestVerifyCodeWrongIncrementsAttempts(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	participants := newFakeParticipantStore(testParticipant())
	codes := newFakeCodeStore()
	svc, _ := newTestVerification(participants, codes, &fakeLimiter{}, newFakeSender(), now)

	if _, err := svc.RequestCode(context.Background(), "invite-1"); err != nil {
		t.Fatalf("request code: %v", err)
	}

	_, err := svc.VerifyCode(context.Background(), "invite-1", "000000")
	if !errors.Is(err, xerrors.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	if codes.codes["part-1"].Attempts != 1 {
		t.Fatalf("expected attempts 1, got %d", codes.codes["part-1"].Attempts)
	}
}

func TestVerifyCodeExhaustion(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	participants := newFakeParticipantStore(testParticipant())
	codes := newFakeCodeStore()
	svc, _ := newTestVerification(participants, codes, &fakeLimiter{}, newFakeSender(), now)

	if _, err := svc.RequestCode(context.Background(), "invite-1"); err != nil {
		t.Fatalf("request code: %v", err)
	}

	for i := 1; i <= 4; i++ {
		_, err := svc.VerifyCode(context.Background(), "invite-1", "000000")
		if !errors.Is(err, xerrors.ErrInvalidCode) {
			t.Fatalf("attempt %d: expected ErrInvalidCode, got %v", i, err)
		}
	}

	// The fifth wrong submission reaches the cap and reports exhaustion.
	_, err := svc.VerifyCode(context.Background(), "invite-1", "000000")
	if !errors.Is(err, xerrors.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts on fifth failure, got %v", err)
	}

	// The correct code no longer validates even with time remaining.
	_, err = svc.VerifyCode(context.Background(), "invite-1", "123456")
	if !errors.Is(err, xerrors.ErrTooManyAttempts) {
		t.Fatalf("expected dead code to stay dead, got %v", err)
	}
}

func TestVerifyCodeConfiguredAttemptCap(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	participants := newFakeParticipantStore(testParticipant())
	codes := newFakeCodeStore()
	codes.maxAttempts = 2
	sessions := NewSessionService(newFakeSessionStore(), participants, 30*time.Minute)
	sessions.clock = fixedClock(now)

	svc := NewVerificationService(participants, codes, sessions, &fakeLimiter{}, newFakeSender(), 10*time.Minute, 2)
	svc.clock = fixedClock(now)
	svc.generateCode = func() (string, error) { return "123456", nil }

	if _, err := svc.RequestCode(context.Background(), "invite-1"); err != nil {
		t.Fatalf("request code: %v", err)
	}

	if _, err := svc.VerifyCode(context.Background(), "invite-1", "000000"); !errors.Is(err, xerrors.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	if _, err := svc.VerifyCode(context.Background(), "invite-1", "000000"); !errors.Is(err, xerrors.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts at the configured cap, got %v", err)
	}
	if _, err := svc.VerifyCode(context.Background(), "invite-1", "123456"); !errors.Is(err, xerrors.ErrTooManyAttempts) {
		t.Fatalf("expected dead code to stay dead, got %v", err)
	}
}

func TestVerifyCodeExpiredReadsAsAbsent(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	participants := newFakeParticipantStore(testParticipant())
	codes := newFakeCodeStore()
	svc, _ := newTestVerification(participants, codes, &fakeLimiter{}, newFakeSender(), now)

	if _, err := svc.RequestCode(context.Background(), "invite-1"); err != nil {
		t.Fatalf("request code: %v", err)
	}

	// The row still exists physically; expiry is checked at read time.
	svc.clock = fixedClock(now.Add(10*time.Minute + time.Second))
	_, err := svc.VerifyCode(context.Background(), "invite-1", "123456")
	if !errors.Is(err, xerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired code, got %v", err)
	}
}

func TestVerifyCodeLostConsumeRace(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	participants := newFakeParticipantStore(testParticipant())
	codes := newFakeCodeStore()
	svc, sessionStore := newTestVerification(participants, codes, &fakeLimiter{}, newFakeSender(), now)

	if _, err := svc.RequestCode(context.Background(), "invite-1"); err != nil {
		t.Fatalf("request code: %v", err)
	}

	// A concurrent verification consumed the row between read and delete.
	codes.consumeFunc = func(participantID, code string, _ time.Time) (bool, error) {
		return false, nil
	}
	_, err := svc.VerifyCode(context.Background(), "invite-1", "123456")
	if !errors.Is(err, xerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after losing race, got %v", err)
	}
	if len(sessionStore.sessions) != 0 {
		t.Fatal("expected no session for the losing request")
	}
}

func TestVerifyCodeUnknownToken(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	participants := newFakeParticipantStore(testParticipant())
	codes := newFakeCodeStore()
	svc, _ := newTestVerification(participants, codes, &fakeLimiter{}, newFakeSender(), now)

	_, err := svc.VerifyCode(context.Background(), "no-such-token", "123456")
	if !errors.Is(err, xerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
