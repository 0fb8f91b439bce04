package homecontent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

const cacheKeyName = "home_content"

// Cache holds the resolved aggregate between writes. Entries are keyed by a
// generation that Invalidate advances, so a Set carrying the generation observed
// before a write lands on a key no reader will look up again.
type Cache interface {
	Get(ctx context.Context) (content *HomeContentDTO, generation string, ok bool)
	Set(ctx context.Context, generation string, content *HomeContentDTO)
	Invalidate(ctx context.Context)
}

type redisCache struct {
	store   pkgredis.CacheStore
	ttl     time.Duration
	metrics *metrics.CurationMetrics
	logg    *logger.Logger
}

// NewRedisCache caches the resolved aggregate in Redis. A nil store or non-positive
// ttl disables caching.
func NewRedisCache(store pkgredis.CacheStore, ttl time.Duration, m *metrics.CurationMetrics, logg *logger.Logger) Cache {
	if store == nil || ttl <= 0 {
		return noopCache{metrics: m}
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &redisCache{store: store, ttl: ttl, metrics: m, logg: logg}
}

func (c *redisCache) generationKey() string {
	return c.store.CacheKey(cacheKeyName, "generation")
}

func (c *redisCache) entryKey(generation string) string {
	return c.store.CacheKey(cacheKeyName, "gen", generation)
}

func (c *redisCache) generation(ctx context.Context) (string, error) {
	gen, err := c.store.Get(ctx, c.generationKey())
	if err != nil {
		if pkgredis.IsMiss(err) {
			return "0", nil
		}
		return "", err
	}
	return gen, nil
}

func (c *redisCache) Get(ctx context.Context) (*HomeContentDTO, string, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.metrics.IncCache(metrics.CacheError)
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "home content cache read failed")
		return nil, "", false
	}

	raw, err := c.store.Get(ctx, c.entryKey(gen))
	if err != nil {
		if pkgredis.IsMiss(err) {
			c.metrics.IncCache(metrics.CacheMiss)
			return nil, gen, false
		}
		c.metrics.IncCache(metrics.CacheError)
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "home content cache read failed")
		return nil, "", false
	}

	var content HomeContentDTO
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		c.metrics.IncCache(metrics.CacheError)
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "home content cache entry unreadable")
		return nil, gen, false
	}
	c.metrics.IncCache(metrics.CacheHit)
	return &content, gen, true
}

func (c *redisCache) Set(ctx context.Context, generation string, content *HomeContentDTO) {
	if content == nil || generation == "" {
		return
	}
	body, err := json.Marshal(content)
	if err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "home content cache encode failed")
		return
	}
	if err := c.store.Set(ctx, c.entryKey(generation), string(body), c.ttl); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "home content cache write failed")
	}
}

func (c *redisCache) Invalidate(ctx context.Context) {
	if _, err := c.store.Incr(ctx, c.generationKey()); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "home content cache invalidation failed")
	}
}

type noopCache struct {
	metrics *metrics.CurationMetrics
}

func (n noopCache) Get(context.Context) (*HomeContentDTO, string, bool) {
	n.metrics.IncCache(metrics.CacheBypass)
	return nil, "", false
}

func (noopCache) Set(context.Context, string, *HomeContentDTO) {}

func (noopCache) Invalidate(context.Context) {}
