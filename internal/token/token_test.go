package token

import (
	"errors"
	"testing"
	"time"
)

func TestSignAndVerify(t *testing.T) {
	m := NewManager("test-secret", time.Hour, "chat-app")

	signed, expiresAt, err := m.Sign("u1", "u1@example.com", "user1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expiresAt <= time.Now().Unix() {
		t.Errorf("expected future expiry, got %d", expiresAt)
	}

	claims, err := m.Verify(signed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != "u1" {
		t.Errorf("expected subject u1, got %q", claims.Subject)
	}
	if claims.Email != "u1@example.com" || claims.Username != "user1" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	m1 := NewManager("secret-one", time.Hour, "chat-app")
	m2 := NewManager("secret-two", time.Hour, "chat-app")

	signed, _, err := m1.Sign("u1", "u1@example.com", "user1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m2.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	m := NewManager("test-secret", -time.Minute, "chat-app")

	signed, _, err := m.Sign("u1", "u1@example.com", "user1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Verify(signed); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	m := NewManager("test-secret", time.Hour, "chat-app")
	if _, err := m.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestUnconfiguredManager(t *testing.T) {
	m := NewManager("", time.Hour, "chat-app")
	if m.Configured() {
		t.Error("expected Configured=false for empty secret")
	}
	if _, _, err := m.Sign("u1", "", ""); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("expected ErrMissingSecret, got %v", err)
	}
	if _, err := m.Verify("anything"); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("expected ErrMissingSecret, got %v", err)
	}
}
