package service

import (
	"context"
	"errors"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/recorre/trae-indie-comments/internal/api/metrics"
	"github.com/recorre/trae-indie-comments/internal/core/domain"
	"github.com/recorre/trae-indie-comments/internal/core/ports"
)

// DomainAuthorizer checks that a site api key is being used from the domain
// it was registered for. The api key is public, so this check is the sole
// perimeter protecting tenant data: it runs before anything is proxied on
// behalf of a widget caller, and it fails closed.
type DomainAuthorizer struct {
	store ports.Store
	cache ports.SiteCache // optional, advisory
	log   zerolog.Logger
}

func NewDomainAuthorizer(store ports.Store, cache ports.SiteCache, log zerolog.Logger) *DomainAuthorizer {
	return &DomainAuthorizer{store: store, cache: cache, log: log}
}

// Authorize reports whether apiKey is registered for the host of origin.
// The match is byte-exact: no wildcards, no subdomain matching. A missing
// key, missing or unparseable origin, unknown key, or upstream failure all
// yield false.
func (a *DomainAuthorizer) Authorize(ctx context.Context, apiKey, origin string) (bool, error) {
	if apiKey == "" || origin == "" {
		metrics.DomainChecksTotal.WithLabelValues("denied").Inc()
		return false, nil
	}

	host := originHost(origin)
	if host == "" {
		metrics.DomainChecksTotal.WithLabelValues("denied").Inc()
		return false, nil
	}

	site, err := a.lookupSite(ctx, apiKey)
	if err != nil {
		if errors.Is(err, domain.ErrSiteNotFound) {
			metrics.DomainChecksTotal.WithLabelValues("denied").Inc()
			return false, nil
		}
		a.log.Error().Err(err).Msg("site lookup failed, denying")
		metrics.DomainChecksTotal.WithLabelValues("error").Inc()
		return false, err
	}

	if site.Domain != host {
		a.log.Warn().
			Str("registered", site.Domain).
			Str("origin_host", host).
			Msg("api key presented from unauthorized origin")
		metrics.DomainChecksTotal.WithLabelValues("denied").Inc()
		return false, nil
	}

	metrics.DomainChecksTotal.WithLabelValues("allowed").Inc()
	return true, nil
}

func (a *DomainAuthorizer) lookupSite(ctx context.Context, apiKey string) (*domain.Site, error) {
	if a.cache != nil {
		if site, ok := a.cache.Get(ctx, apiKey); ok {
			return site, nil
		}
	}

	site, err := a.store.FindSiteByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		a.cache.Set(ctx, apiKey, site)
	}
	return site, nil
}

// originHost extracts the host of an Origin header value. An Origin is a
// scheme://host[:port] tuple; the registered site domain is matched against
// the host without the port.
func originHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
