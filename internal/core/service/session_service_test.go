package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/recorre/trae-indie-comments/internal/core/domain"
)

func TestSessionService_RoundTrip(t *testing.T) {
	svc := NewSessionService("test-secret", 0)

	user := &domain.User{ID: 42, Email: "ana@example.com", Plan: domain.PlanSupporter}
	token, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("expected user id 42, got %d", claims.UserID)
	}
	if claims.Email != "ana@example.com" {
		t.Errorf("expected email ana@example.com, got %s", claims.Email)
	}
	if claims.Plan != domain.PlanSupporter {
		t.Errorf("expected plan %s, got %s", domain.PlanSupporter, claims.Plan)
	}
}

func TestSessionService_TamperedToken(t *testing.T) {
	svc := NewSessionService("test-secret", 0)

	token, err := svc.Issue(&domain.User{ID: 7, Email: "bob@example.com", Plan: domain.PlanFree})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// flip one character in the payload segment
	parts := strings.SplitN(token, ".", 3)
	if len(parts) != 3 {
		t.Fatalf("expected 3 token segments, got %d", len(parts))
	}
	payload := []byte(parts[1])
	mid := len(payload) / 2
	if payload[mid] == 'A' {
		payload[mid] = 'B'
	} else {
		payload[mid] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := svc.Verify(tampered); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for tampered token, got %v", err)
	}
}

func TestSessionService_WrongSecret(t *testing.T) {
	token, err := NewSessionService("secret-a", 0).Issue(&domain.User{ID: 1, Email: "a@b.c"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := NewSessionService("secret-b", 0).Verify(token); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials with wrong secret, got %v", err)
	}
}

func TestSessionService_ExpiredToken(t *testing.T) {
	svc := NewSessionService("test-secret", time.Millisecond)

	token, err := svc.Issue(&domain.User{ID: 1, Email: "a@b.c"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	if _, err := svc.Verify(token); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for expired token, got %v", err)
	}
}

func TestSessionService_MalformedToken(t *testing.T) {
	svc := NewSessionService("test-secret", 0)
	for _, tkn := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.Verify(tkn); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Errorf("Verify(%q): expected ErrInvalidCredentials, got %v", tkn, err)
		}
	}
}
