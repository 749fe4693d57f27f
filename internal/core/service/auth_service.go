package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/recorre/trae-indie-comments/internal/core/domain"
	"github.com/recorre/trae-indie-comments/internal/core/ports"
)

// AuthService implements panel signup, login, and plan upgrades against the
// upstream store. Credentials are always bcrypt-hashed; there is no plaintext
// comparison path.
type AuthService struct {
	store    ports.Store
	sessions ports.SessionService
	log      zerolog.Logger
}

func NewAuthService(store ports.Store, sessions ports.SessionService, log zerolog.Logger) *AuthService {
	return &AuthService{store: store, sessions: sessions, log: log}
}

func (s *AuthService) Signup(ctx context.Context, email, password, name string) (string, *domain.User, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	_, err := s.store.FindUserByEmail(ctx, email)
	if err == nil {
		return "", nil, domain.ErrUserExists
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return "", nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	if name == "" {
		name = email
		if at := strings.Index(email, "@"); at > 0 {
			name = email[:at]
		}
	}

	user := &domain.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Plan:         domain.PlanFree,
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.store.CreateUser(ctx, user)
	if err != nil {
		return "", nil, err
	}

	token, err := s.sessions.Issue(created)
	if err != nil {
		return "", nil, err
	}

	s.log.Info().Int64("user_id", created.ID).Str("email", created.Email).Msg("user created")
	return token, created, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// unknown account and wrong password are indistinguishable
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.sessions.Issue(user)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

// Upgrade moves the user to the supporter plan and reissues the session token
// so the embedded plan claim matches the stored record.
func (s *AuthService) Upgrade(ctx context.Context, userID int64) (string, *domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return "", nil, err
	}

	if user.Plan != domain.PlanSupporter {
		if err := s.store.UpdateUser(ctx, userID, map[string]any{"plan": domain.PlanSupporter}); err != nil {
			return "", nil, err
		}
		user.Plan = domain.PlanSupporter
	}

	token, err := s.sessions.Issue(user)
	if err != nil {
		return "", nil, err
	}

	s.log.Info().Int64("user_id", userID).Msg("plan upgraded")
	return token, user, nil
}
