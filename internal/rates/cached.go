package rates

import (
	"context"
	"maps"
	"time"

	"costs/internal/cache"
	"costs/internal/currency"
)

// CachedSource keeps the last table fetched from each endpoint for a fixed
// TTL. It is opt-in: reports built through a plain Source always see a fresh
// fetch.
type CachedSource struct {
	next  Source
	urls  URLProvider
	cache *cache.LRU[currency.RateTable]
}

// NewCachedSource wraps next. A ttl of zero or less disables caching and
// returns next unchanged.
func NewCachedSource(next Source, urls URLProvider, ttl time.Duration) Source {
	if ttl <= 0 {
		return next
	}
	return &CachedSource{
		next:  next,
		urls:  urls,
		cache: cache.NewLRU[currency.RateTable](8, ttl),
	}
}

// Fetch returns the cached table for the current endpoint or fetches a new one.
// Failures are never cached.
func (s *CachedSource) Fetch(ctx context.Context) (currency.RateTable, error) {
	key := s.urls.RatesURL()
	if table, ok := s.cache.Get(key); ok {
		return maps.Clone(table), nil
	}

	table, err := s.next.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, maps.Clone(table))
	return table, nil
}

// Cleaner exposes the underlying cache to a cache.Janitor.
func (s *CachedSource) Cleaner() cache.Cleaner {
	return s.cache
}
