package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testIssuer   = "https://id.example.com"
	testAudience = "trip-plan-backend"
)

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validClaims(subject string) *Claims {
	return &Claims{
		Email: "user@example.com",
		Name:  "Test User",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestVerifyAcceptsSignedToken(t *testing.T) {
	key := newTestKey(t)
	v := NewVerifier("", testIssuer, testAudience)
	v.AddKey("kid-1", &key.PublicKey)

	token := signToken(t, key, "kid-1", validClaims("user-42"))
	claims, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("expected subject user-42, got %q", claims.Subject)
	}
	if claims.Email != "user@example.com" {
		t.Fatalf("expected email claim, got %q", claims.Email)
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	key := newTestKey(t)
	v := NewVerifier("", testIssuer, testAudience)
	v.AddKey("kid-1", &key.PublicKey)

	claims := validClaims("user-42")
	claims.Issuer = "https://evil.example.com"
	if _, err := v.Verify(context.Background(), signToken(t, key, "kid-1", claims)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	key := newTestKey(t)
	v := NewVerifier("", testIssuer, testAudience)
	v.AddKey("kid-1", &key.PublicKey)

	claims := validClaims("user-42")
	claims.Audience = jwt.ClaimStrings{"other-service"}
	if _, err := v.Verify(context.Background(), signToken(t, key, "kid-1", claims)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	key := newTestKey(t)
	v := NewVerifier("", testIssuer, testAudience)
	v.AddKey("kid-1", &key.PublicKey)

	claims := validClaims("user-42")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	if _, err := v.Verify(context.Background(), signToken(t, key, "kid-1", claims)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsUnsignedAlg(t *testing.T) {
	v := NewVerifier("", testIssuer, testAudience)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("user-42"))
	token.Header["kid"] = "kid-1"
	signed, err := token.SignedString([]byte("shared"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := v.Verify(context.Background(), signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	key := newTestKey(t)
	v := NewVerifier("", testIssuer, testAudience)
	v.AddKey("kid-1", &key.PublicKey)

	claims := validClaims("")
	if _, err := v.Verify(context.Background(), signToken(t, key, "kid-1", claims)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRefreshesOnUnknownKid(t *testing.T) {
	key := newTestKey(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc := map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": "kid-rotated",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			}},
		}
		json.NewEncoder(w).Encode(doc)
	}))
	defer srv.Close()

	v := NewVerifier(srv.URL, testIssuer, testAudience)

	token := signToken(t, key, "kid-rotated", validClaims("user-42"))
	claims, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify after refresh: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("expected subject user-42, got %q", claims.Subject)
	}
}

func TestParseRSAKeyRejectsBadEncoding(t *testing.T) {
	if _, err := parseRSAKey("not base64!!", "AQAB"); err == nil {
		t.Fatal("expected error for invalid modulus encoding")
	}
}
