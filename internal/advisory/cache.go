package advisory

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachingAdvisor memoizes suggestions per request key with a TTL.
// Identical profiles within the TTL reuse the cached suggestion instead
// of making another outbound call. Errors are never cached.
type CachingAdvisor struct {
	inner Advisor
	cache *expirable.LRU[string, Suggestion]
}

func NewCachingAdvisor(inner Advisor, size int, ttl time.Duration) *CachingAdvisor {
	if size <= 0 {
		size = 512
	}
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &CachingAdvisor{
		inner: inner,
		cache: expirable.NewLRU[string, Suggestion](size, nil, ttl),
	}
}

func (c *CachingAdvisor) SuggestWeights(ctx context.Context, req Request) (Suggestion, error) {
	key := CacheKey(req)
	if s, ok := c.cache.Get(key); ok {
		return s, nil
	}
	s, err := c.inner.SuggestWeights(ctx, req)
	if err != nil {
		return Suggestion{}, err
	}
	c.cache.Add(key, s)
	return s, nil
}
