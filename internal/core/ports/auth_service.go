package ports

import (
	"context"

	"github.com/recorre/trae-indie-comments/internal/core/domain"
)

type AuthService interface {
	Signup(ctx context.Context, email, password, name string) (string, *domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	Upgrade(ctx context.Context, userID int64) (string, *domain.User, error)
}
