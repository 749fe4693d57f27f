package ports

import (
	"context"

	"github.com/recorre/trae-indie-comments/internal/core/domain"
)

// Authorizer decides whether an api key may be used from a given Origin.
// It fails closed: any lookup error yields false.
type Authorizer interface {
	Authorize(ctx context.Context, apiKey, origin string) (bool, error)
}

// SiteCache is an advisory TTL cache for api_key -> site lookups. It is never
// a source of truth; implementations swallow backend errors and report a miss.
type SiteCache interface {
	Get(ctx context.Context, apiKey string) (*domain.Site, bool)
	Set(ctx context.Context, apiKey string, site *domain.Site)
}
