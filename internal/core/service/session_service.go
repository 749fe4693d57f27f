package service

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/recorre/trae-indie-comments/internal/core/domain"
	"github.com/recorre/trae-indie-comments/internal/core/ports"
)

const defaultSessionTTL = 7 * 24 * time.Hour

// SessionService issues and verifies HS256-signed panel session tokens.
// Tokens are stateless; rotating the secret invalidates every outstanding
// session.
type SessionService struct {
	secret []byte
	ttl    time.Duration
}

func NewSessionService(secret string, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionService{secret: []byte(secret), ttl: ttl}
}

// sessionClaims embeds the user identity in the token. The subject carries
// the user id.
type sessionClaims struct {
	Email string `json:"email"`
	Plan  string `json:"plan"`
	jwt.RegisteredClaims
}

func (s *SessionService) Issue(user *domain.User) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Email: user.Email,
		Plan:  user.Plan,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify returns the claims of a valid token. Bad signature, wrong
// algorithm, malformed structure, or past expiry all collapse to
// ErrInvalidCredentials.
func (s *SessionService) Verify(token string) (*ports.SessionClaims, error) {
	claims := &sessionClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, domain.ErrInvalidCredentials
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return &ports.SessionClaims{
		UserID: userID,
		Email:  claims.Email,
		Plan:   claims.Plan,
	}, nil
}
