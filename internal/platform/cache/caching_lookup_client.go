// Package cache は法人情報照会のキャッシュ実装を提供します。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"company_backend/internal/feature/houjinimport/domain/entity"
	"company_backend/internal/feature/houjinimport/usecase"
)

// CachingLookupClient decorates an EnrichmentClient with a lookup cache.
// Redis is used when configured; otherwise entries live in an in-process go-cache store.
// Only successful lookups are cached.
type CachingLookupClient struct {
	inner     usecase.EnrichmentClient
	rdb       *redis.Client
	local     *gocache.Cache
	ttl       time.Duration
	namespace string
}

// CachingLookupClientがEnrichmentClientを実装していることをコンパイル時に検証します。
var _ usecase.EnrichmentClient = (*CachingLookupClient)(nil)

// NewCachingLookupClient decorates an EnrichmentClient with caching.
// If ttl is 0, it defaults to 24 hours. If namespace is empty, it uses "zenkoku-houjin".
func NewCachingLookupClient(rdb *redis.Client, ttl time.Duration, inner usecase.EnrichmentClient, namespace string) *CachingLookupClient {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if namespace == "" {
		namespace = "zenkoku-houjin"
	}
	c := &CachingLookupClient{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
	if rdb == nil {
		c.local = gocache.New(ttl, 2*ttl)
	}
	return c
}

// Lookup returns a cached result when present, otherwise calls the inner client and caches the result.
func (c *CachingLookupClient) Lookup(ctx context.Context, houjinBangou string) (*entity.EnrichmentResult, error) {
	key := c.cacheKey(houjinBangou)

	// 1) Check cache
	if res, ok := c.get(ctx, key); ok {
		return res, nil
	}

	// 2) Fallback to the lookup service
	res, err := c.inner.Lookup(ctx, houjinBangou)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}

	// 3) Store in cache (best effort)
	c.set(ctx, key, *res)
	return res, nil
}

func (c *CachingLookupClient) get(ctx context.Context, key string) (*entity.EnrichmentResult, bool) {
	if c.rdb == nil {
		v, ok := c.local.Get(key)
		if !ok {
			return nil, false
		}
		// 呼び出し側が結果を書き換えてもキャッシュに影響しないようコピーを返す
		res := v.(entity.EnrichmentResult)
		return &res, true
	}

	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Debug("lookup cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var res entity.EnrichmentResult
	if err := json.Unmarshal(b, &res); err != nil {
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
		return nil, false
	}
	return &res, true
}

func (c *CachingLookupClient) set(ctx context.Context, key string, res entity.EnrichmentResult) {
	if c.rdb == nil {
		c.local.Set(key, res, c.ttl)
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		slog.Debug("lookup cache write failed", "key", key, "error", err)
	}
}

// cacheKey generates a cache key for a 法人番号.
func (c *CachingLookupClient) cacheKey(houjinBangou string) string {
	return c.namespace + ":" + safe(houjinBangou)
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
