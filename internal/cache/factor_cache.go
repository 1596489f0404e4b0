package cache

import (
	"strings"
	"time"
)

const defaultFactorTTL = 10 * time.Minute

// FactorCache stores emission factors resolved by the remote provider.
type FactorCache interface {
	GetFactor(category, region string) (float64, bool)
	SetFactor(category, region string, factor float64)
}

type factorCache struct {
	factors Cache[string, float64]
	ttl     time.Duration
}

// NewFactorCache returns an in-memory factor cache. A non-positive ttl uses the default.
func NewFactorCache(ttl time.Duration) FactorCache {
	return newFactorCache(ttl, time.Now)
}

func newFactorCache(ttl time.Duration, now func() time.Time) FactorCache {
	if ttl <= 0 {
		ttl = defaultFactorTTL
	}
	return &factorCache{
		factors: NewTTLCacheWithClock[string, float64](now),
		ttl:     ttl,
	}
}

func (c *factorCache) GetFactor(category, region string) (float64, bool) {
	return c.factors.Get(cacheKey(category, region))
}

func (c *factorCache) SetFactor(category, region string, factor float64) {
	if factor < 0 {
		return
	}
	c.factors.Set(cacheKey(category, region), factor, c.ttl)
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, strings.ToLower(trimmed))
	}
	return strings.Join(values, "|")
}
