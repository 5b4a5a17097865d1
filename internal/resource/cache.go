package resource

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/garyjia/payment-portal/internal/gateway"
	"github.com/garyjia/payment-portal/internal/metrics"
)

const (
	defaultCacheSize = 512
	defaultCacheTTL  = 30 * time.Second
)

// Cache shares fetches between concurrent page renders. Keys are scoped by
// principal so one user's data is never served to another. Concurrent
// fetches of one key collapse into a single upstream call, and successful
// results are kept for a short TTL. Failures are never cached.
type Cache struct {
	group   singleflight.Group
	results *expirable.LRU[string, any]
}

// NewCache creates a new cache. A zero size or ttl takes the default; a
// negative ttl disables result caching while keeping in-flight dedup.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl == 0 {
		ttl = defaultCacheTTL
	}
	c := &Cache{}
	if ttl > 0 {
		c.results = expirable.NewLRU[string, any](size, nil, ttl)
	}
	return c
}

type flightResult struct {
	data    any
	ok      bool
	notices []gateway.Notice
}

// Cached wraps fetch so that it goes through c under principal and key. A nil
// cache returns fetch unchanged.
func Cached[T any](c *Cache, principal int64, key string, fetch Fetcher[T]) Fetcher[T] {
	if c == nil {
		return fetch
	}
	cacheKey := cacheKey(principal, key)

	return func(ctx context.Context, n gateway.Notifier) (T, bool) {
		var zero T

		if c.results != nil {
			if v, ok := c.results.Get(cacheKey); ok {
				metrics.RecordCacheLookup("hit")
				return v.(T), true
			}
		}

		led := false
		v, _, _ := c.group.Do(cacheKey, func() (interface{}, error) {
			led = true
			buf := &gateway.Notices{}
			data, ok := fetch(ctx, buf)
			if ok && c.results != nil {
				c.results.Add(cacheKey, data)
			}
			return flightResult{data: data, ok: ok, notices: buf.Items()}, nil
		})
		res := v.(flightResult)

		if led {
			metrics.RecordCacheLookup("miss")
		} else {
			metrics.RecordCacheLookup("shared")
			// A silent failure means the leader's page went away. A rejected
			// token belongs to the leader's session, not to this one.
			if !res.ok && ctx.Err() == nil && (len(res.notices) == 0 || tokenRejected(res.notices)) {
				return fetch(ctx, n)
			}
		}

		for _, notice := range res.notices {
			if n != nil {
				n.Notify(notice)
			}
		}
		if !res.ok {
			return zero, false
		}
		return res.data.(T), true
	}
}

func tokenRejected(notices []gateway.Notice) bool {
	for _, n := range notices {
		if n.Kind == gateway.NoticeTokenExpired {
			return true
		}
	}
	return false
}

// InvalidatePrincipal drops every cached result of a principal
func (c *Cache) InvalidatePrincipal(principal int64) {
	if c == nil || c.results == nil {
		return
	}
	prefix := strconv.FormatInt(principal, 10) + ":"
	for _, key := range c.results.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.results.Remove(key)
		}
	}
}

// Invalidate drops one cached result
func (c *Cache) Invalidate(principal int64, key string) {
	if c == nil || c.results == nil {
		return
	}
	c.results.Remove(cacheKey(principal, key))
}

// Len returns the number of cached results
func (c *Cache) Len() int {
	if c == nil || c.results == nil {
		return 0
	}
	return c.results.Len()
}

func cacheKey(principal int64, key string) string {
	return strconv.FormatInt(principal, 10) + ":" + key
}
