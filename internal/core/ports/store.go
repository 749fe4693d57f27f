package ports

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/recorre/trae-indie-comments/internal/core/domain"
)

// Filter builds the upstream store's filter expression: comma-separated
// field:value or field:in:v1,v2 pairs, ANDed by the store.
type Filter []string

// Eq adds an exact-match pair.
func (f Filter) Eq(field, value string) Filter {
	return append(f, field+":"+value)
}

// In adds a membership pair over one or more values.
func (f Filter) In(field string, values ...string) Filter {
	return append(f, field+":in:"+strings.Join(values, ","))
}

// Encode renders the filter in the upstream query syntax.
func (f Filter) Encode() string {
	return strings.Join(f, ",")
}

// ForwardResult carries a raw upstream response back through the gateway.
type ForwardResult struct {
	StatusCode int
	Body       []byte
}

// Store is the port to the external backend-as-a-service that holds all
// persistent records. Forward is the raw passthrough used by the proxy
// gateway; the typed helpers are used by the auth and authorization services.
type Store interface {
	Forward(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*ForwardResult, error)

	FindSiteByAPIKey(ctx context.Context, apiKey string) (*domain.Site, error)
	GetSite(ctx context.Context, id int64) (*domain.Site, error)
	SitesByUser(ctx context.Context, userID int64) ([]domain.Site, error)

	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	UpdateUser(ctx context.Context, id int64, fields map[string]any) error

	GetComment(ctx context.Context, id int64) (*domain.Comment, error)
}
