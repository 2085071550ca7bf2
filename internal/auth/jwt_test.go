package auth

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	mgr := NewJWTManager("test-secret-key-123")
	token, err := mgr.GenerateToken("watcher", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Spectator != "watcher" {
		t.Errorf("expected spectator=watcher, got %s", claims.Spectator)
	}
	if claims.Subject != "watcher" {
		t.Errorf("expected subject=watcher, got %s", claims.Subject)
	}
	if ttl := time.Until(claims.ExpiresAt.Time); ttl <= 0 || ttl > time.Hour {
		t.Errorf("token expires in %v, want within an hour", ttl)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	mgr1 := NewJWTManager("secret-one")
	mgr2 := NewJWTManager("secret-two")

	token, err := mgr1.GenerateToken("watcher", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := mgr2.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken with wrong secret, got %v", err)
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	if _, err := mgr.ValidateToken("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for garbage token, got %v", err)
	}
	if _, err := mgr.ValidateToken(""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("expected ErrMissingToken for empty token, got %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	token, err := mgr.GenerateToken("watcher", -time.Second)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := mgr.ValidateToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestDifferentSpectatorsGetDifferentTokens(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	t1, _ := mgr.GenerateToken("alice", time.Hour)
	t2, _ := mgr.GenerateToken("bob", time.Hour)
	if t1 == t2 {
		t.Error("different spectators should get different tokens")
	}
}
