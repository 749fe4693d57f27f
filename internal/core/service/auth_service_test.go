package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/recorre/trae-indie-comments/internal/core/domain"
)

func newTestAuthService(store *stubStore) (*AuthService, *SessionService) {
	sessions := NewSessionService("test-secret", 0)
	return NewAuthService(store, sessions, zerolog.Nop()), sessions
}

func TestAuthService_Signup_HashesPassword(t *testing.T) {
	store := newStubStore()
	svc, sessions := newTestAuthService(store)

	token, user, err := svc.Signup(context.Background(), "ana@example.com", "hunter22", "")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.ID == 0 {
		t.Error("expected assigned user id")
	}
	if user.Plan != domain.PlanFree {
		t.Errorf("expected plan %s, got %s", domain.PlanFree, user.Plan)
	}
	if user.Name != "ana" {
		t.Errorf("expected name defaulted to local part, got %q", user.Name)
	}

	stored := store.users["ana@example.com"]
	if stored == nil {
		t.Fatal("user not persisted")
	}
	if stored.PasswordHash == "hunter22" {
		t.Fatal("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("hunter22")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}

	claims, err := sessions.Verify(token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("token subject %d, want %d", claims.UserID, user.ID)
	}
}

func TestAuthService_Signup_UserExists(t *testing.T) {
	store := newStubStore()
	svc, _ := newTestAuthService(store)

	if _, _, err := svc.Signup(context.Background(), "ana@example.com", "hunter22", "Ana"); err != nil {
		t.Fatalf("first signup: %v", err)
	}

	_, _, err := svc.Signup(context.Background(), "ana@example.com", "other-pass", "Ana")
	if !errors.Is(err, domain.ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_Signup_MissingCredentials(t *testing.T) {
	svc, _ := newTestAuthService(newStubStore())

	for _, tc := range []struct{ email, password string }{
		{"", "secret"},
		{"ana@example.com", ""},
	} {
		if _, _, err := svc.Signup(context.Background(), tc.email, tc.password, ""); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Errorf("Signup(%q, %q): expected ErrInvalidCredentials, got %v", tc.email, tc.password, err)
		}
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	store := newStubStore()
	svc, sessions := newTestAuthService(store)

	if _, _, err := svc.Signup(context.Background(), "ana@example.com", "hunter22", "Ana"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	token, user, err := svc.Login(context.Background(), "ana@example.com", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Email != "ana@example.com" {
		t.Errorf("unexpected user %+v", user)
	}
	if _, err := sessions.Verify(token); err != nil {
		t.Errorf("login token does not verify: %v", err)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	store := newStubStore()
	svc, _ := newTestAuthService(store)

	if _, _, err := svc.Signup(context.Background(), "ana@example.com", "hunter22", "Ana"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, _, err := svc.Login(context.Background(), "ana@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	svc, _ := newTestAuthService(newStubStore())

	_, _, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
	if err != nil && strings.Contains(err.Error(), "not found") {
		t.Errorf("error leaks account existence: %v", err)
	}
}

func TestAuthService_Upgrade(t *testing.T) {
	store := newStubStore()
	svc, sessions := newTestAuthService(store)

	_, user, err := svc.Signup(context.Background(), "ana@example.com", "hunter22", "Ana")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	token, upgraded, err := svc.Upgrade(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if upgraded.Plan != domain.PlanSupporter {
		t.Errorf("expected plan %s, got %s", domain.PlanSupporter, upgraded.Plan)
	}
	if store.users["ana@example.com"].Plan != domain.PlanSupporter {
		t.Error("plan not persisted")
	}

	claims, err := sessions.Verify(token)
	if err != nil {
		t.Fatalf("upgrade token does not verify: %v", err)
	}
	if claims.Plan != domain.PlanSupporter {
		t.Errorf("token plan claim %s, want %s", claims.Plan, domain.PlanSupporter)
	}

	// upgrading twice is a no-op
	if _, again, err := svc.Upgrade(context.Background(), user.ID); err != nil || again.Plan != domain.PlanSupporter {
		t.Errorf("second upgrade: user %+v err %v", again, err)
	}
}

func TestAuthService_Upgrade_UnknownUser(t *testing.T) {
	svc, _ := newTestAuthService(newStubStore())

	if _, _, err := svc.Upgrade(context.Background(), 999); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
