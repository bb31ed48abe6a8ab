package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestJWTService_IssueVerify(t *testing.T) {
	clock := newTestClock()
	svc := NewJWTService("secret", time.Hour, WithClock(clock.Now))

	issued, err := svc.Issue("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if issued.Token == "" || issued.ID == "" {
		t.Fatalf("expected token and jti, got %+v", issued)
	}
	if !issued.ExpiresAt.Equal(clock.Now().Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", issued.ExpiresAt)
	}

	claims, err := svc.Verify(context.Background(), issued.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "u1" || claims.Subject != "u1" || claims.ID != issued.ID {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTService_DefaultTTLIsSevenDays(t *testing.T) {
	svc := NewJWTService("secret", 0)
	if svc.TTL() != 7*24*time.Hour {
		t.Fatalf("expected 7 days, got %v", svc.TTL())
	}
}

func TestJWTService_ExpiredAfterTTL(t *testing.T) {
	clock := newTestClock()
	svc := NewJWTService("secret", time.Hour, WithClock(clock.Now))

	issued, err := svc.Issue("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.Advance(59 * time.Minute)
	if _, err := svc.Verify(context.Background(), issued.Token); err != nil {
		t.Fatalf("expected valid before expiry, got %v", err)
	}

	clock.Advance(2 * time.Minute)
	if _, err := svc.Verify(context.Background(), issued.Token); !errors.Is(err, ErrJWTExpired) {
		t.Fatalf("expected ErrJWTExpired, got %v", err)
	}
}

func TestJWTService_TamperedSignature(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	issued, err := svc.Issue("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(issued.Token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(parts))
	}
	sig := []byte(parts[2])
	mid := len(sig) / 2
	if sig[mid] == 'A' {
		sig[mid] = 'B'
	} else {
		sig[mid] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := svc.Verify(context.Background(), tampered); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid, got %v", err)
	}
}

func TestJWTService_RejectsOtherSecret(t *testing.T) {
	issuer := NewJWTService("secret-a", time.Hour)
	verifier := NewJWTService("secret-b", time.Hour)

	issued, err := issuer.Issue("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(context.Background(), issued.Token); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid, got %v", err)
	}
}

func TestJWTService_RejectsEmptySecret(t *testing.T) {
	svc := NewJWTService("", time.Hour)
	if _, err := svc.Issue("u1"); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid on empty secret, got %v", err)
	}
	if _, err := svc.Verify(context.Background(), "x.y.z"); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid on empty secret, got %v", err)
	}
}

func TestJWTService_RejectsWrongIssuer(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	now := time.Now().UTC()
	claims := Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "other-issuer",
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := svc.Verify(context.Background(), signed); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for wrong issuer, got %v", err)
	}
}

func TestJWTService_RejectsMissingExpiry(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	claims := Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:  defaultIssuer,
			Subject: "u1",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := svc.Verify(context.Background(), signed); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid without exp, got %v", err)
	}
}

func TestJWTService_RejectsSubjectMismatch(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	now := time.Now().UTC()
	claims := Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    defaultIssuer,
			Subject:   "u2",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := svc.Verify(context.Background(), signed); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid on subject mismatch, got %v", err)
	}
}

func TestJWTService_RevokeWithStore(t *testing.T) {
	svc := NewJWTService("secret", time.Hour, WithRevocationStore(NewMemoryRevokedTokenStore()))
	issued, err := svc.Issue("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := svc.Verify(context.Background(), issued.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if err := svc.Revoke(context.Background(), claims); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.Verify(context.Background(), issued.Token); !errors.Is(err, ErrJWTRevoked) {
		t.Fatalf("expected ErrJWTRevoked, got %v", err)
	}
}

func TestJWTService_RevokeWithoutStoreIsNoop(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	issued, _ := svc.Issue("u1")
	claims, err := svc.Verify(context.Background(), issued.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := svc.Revoke(context.Background(), claims); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.Verify(context.Background(), issued.Token); err != nil {
		t.Fatalf("stateless token should stay valid, got %v", err)
	}
}

func TestJWTService_SurvivesRestart(t *testing.T) {
	first := NewJWTService("secret", time.Hour)
	issued, err := first.Issue("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second := NewJWTService("secret", time.Hour)
	claims, err := second.Verify(context.Background(), issued.Token)
	if err != nil || claims.UserID != "u1" {
		t.Fatalf("expected token valid across instances, got %v %+v", err, claims)
	}
}
