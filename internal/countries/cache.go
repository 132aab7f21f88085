// cache.go layers a Redis TTL cache over the upstream client. Lookups are
// cheap to cache aggressively: country data changes on the order of years, and
// the upstream enforces its own rate limits.
package countries

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/travelog/travelog/internal/telemetry"
)

// Service is the country-lookup interface consumed by handlers and the blog
// post enrichment path.
type Service interface {
	GetAll(ctx context.Context) ([]Country, error)
	GetByName(ctx context.Context, name string) ([]Country, error)
	GetByRegion(ctx context.Context, region string) ([]Country, error)
}

// CachedService decorates a Service with a Redis read-through cache
type CachedService struct {
	inner Service
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachedService wraps inner with a Redis cache. A nil client returns the
// inner service unchanged so callers need not branch on cache availability.
func NewCachedService(inner Service, rdb *redis.Client, ttl time.Duration) Service {
	if rdb == nil {
		return inner
	}
	if ttl == 0 {
		ttl = 6 * time.Hour
	}
	return &CachedService{inner: inner, rdb: rdb, ttl: ttl}
}

// GetAll fetches every country, cache first
func (s *CachedService) GetAll(ctx context.Context) ([]Country, error) {
	return s.lookup(ctx, "countries:all", func(ctx context.Context) ([]Country, error) {
		return s.inner.GetAll(ctx)
	})
}

// GetByName fetches countries by name, cache first
func (s *CachedService) GetByName(ctx context.Context, name string) ([]Country, error) {
	key := "countries:name:" + strings.ToLower(name)
	return s.lookup(ctx, key, func(ctx context.Context) ([]Country, error) {
		return s.inner.GetByName(ctx, name)
	})
}

// GetByRegion fetches countries by region, cache first
func (s *CachedService) GetByRegion(ctx context.Context, region string) ([]Country, error) {
	key := "countries:region:" + strings.ToLower(region)
	return s.lookup(ctx, key, func(ctx context.Context) ([]Country, error) {
		return s.inner.GetByRegion(ctx, region)
	})
}

func (s *CachedService) lookup(ctx context.Context, key string, fetch func(context.Context) ([]Country, error)) ([]Country, error) {
	cached, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		var countries []Country
		if jsonErr := json.Unmarshal([]byte(cached), &countries); jsonErr == nil {
			telemetry.RecordCountryCacheHit()
			return countries, nil
		}
		// Corrupt entry: fall through to a fresh fetch, which overwrites it
	}

	telemetry.RecordCountryCacheMiss()

	countries, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	if payload, jsonErr := json.Marshal(countries); jsonErr == nil {
		// Cache write failures are not fatal; the response is already in hand
		s.rdb.Set(ctx, key, payload, s.ttl)
	}

	return countries, nil
}
