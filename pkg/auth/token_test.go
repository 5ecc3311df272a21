package auth

import (
	"testing"
	"time"

	"mythos/pkg/domain"
)

func TestTokenManagerIssueAndVerify(t *testing.T) {
	mgr, err := NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	user := domain.User{ID: "user-1", Name: "Ada", Email: "ada@example.com"}
	token, err := mgr.Issue(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	identity, err := mgr.Verify(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if identity.UserID != "user-1" || identity.Email != "ada@example.com" {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestTokenManagerRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewTokenManager("secret-a", time.Hour)
	verifier, _ := NewTokenManager("secret-b", time.Hour)
	token, err := issuer.Issue(domain.User{ID: "u", Email: "u@example.com"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := verifier.Verify(token); err == nil {
		t.Fatalf("expected verification to fail with a different secret")
	}
}

func TestTokenManagerRejectsExpiredToken(t *testing.T) {
	mgr, _ := NewTokenManager("test-secret", time.Hour)
	mgr.ttl = -time.Minute
	token, err := mgr.Issue(domain.User{ID: "u", Email: "u@example.com"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := mgr.Verify(token); err == nil {
		t.Fatalf("expected expired token to fail verification")
	}
}

func TestTokenManagerRequiresSecret(t *testing.T) {
	if _, err := NewTokenManager("  ", time.Hour); err == nil {
		t.Fatalf("expected constructor error for empty secret")
	}
}
