package ports

import "github.com/recorre/trae-indie-comments/internal/core/domain"

// SessionClaims is the verified content of a panel session token.
type SessionClaims struct {
	UserID int64
	Email  string
	Plan   string
}

// SessionService issues and verifies signed, stateless session tokens.
// Validity is solely a function of signature and expiry; there is no
// revocation list.
type SessionService interface {
	Issue(user *domain.User) (string, error)
	Verify(token string) (*SessionClaims, error)
}
