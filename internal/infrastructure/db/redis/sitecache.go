package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/recorre/trae-indie-comments/internal/core/domain"
)

const siteCacheTTL = 30 * time.Minute

// SiteCache caches api_key -> site lookups so that widget traffic does not
// hit the upstream store on every request. Entries expire after 30 minutes.
// The cache is advisory: on any Redis error it reports a miss and the caller
// falls back to the upstream lookup.
// Key format: site:<api_key>
type SiteCache struct {
	client *redis.Client
	log    zerolog.Logger
}

// NewSiteCache creates a SiteCache wrapping the given Redis client.
func NewSiteCache(client *redis.Client, log zerolog.Logger) *SiteCache {
	return &SiteCache{client: client, log: log}
}

func (c *SiteCache) Get(ctx context.Context, apiKey string) (*domain.Site, bool) {
	b, err := c.client.Get(ctx, c.key(apiKey)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn().Err(err).Msg("site cache read failed")
		}
		return nil, false
	}

	var site domain.Site
	if err := json.Unmarshal(b, &site); err != nil {
		c.log.Warn().Err(err).Msg("site cache entry corrupt")
		return nil, false
	}
	return &site, true
}

func (c *SiteCache) Set(ctx context.Context, apiKey string, site *domain.Site) {
	b, err := json.Marshal(site)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(apiKey), b, siteCacheTTL).Err(); err != nil {
		c.log.Warn().Err(err).Msg("site cache write failed")
	}
}

func (c *SiteCache) key(apiKey string) string {
	return "site:" + apiKey
}
