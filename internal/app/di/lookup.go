// Package di provides dependency injection factories for creating application components.
package di

import (
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"company_backend/internal/feature/houjinimport/adapters/zenkoku"
	"company_backend/internal/feature/houjinimport/usecase"
	"company_backend/internal/platform/cache"
	infrahttp "company_backend/internal/platform/http"
	"company_backend/internal/shared/ratelimiter"
)

// NewLookupClient creates the 法人情報 lookup client with HTTP client, request pacing and cache.
// concurrency sizes the connection pool and should match ImportConfig.Concurrency.
// Lookups are cached only when LOOKUP_CACHE_TTL is set; rdb may be nil, in which case the cache is in process.
func NewLookupClient(rdb *redis.Client, concurrency int) usecase.EnrichmentClient {
	cfg := zenkoku.LoadConfig()
	if cfg.Endpoint == "" {
		slog.Warn("ZENKOKU_HOUJIN_ENDPOINT is not set; every lookup will fail")
	}
	httpClient := infrahttp.NewHTTPClient(cfg.Timeout, concurrency)

	var limiter ratelimiter.RateLimiterInterface
	if cfg.RatePerSec > 0 {
		limiter = ratelimiter.NewRateLimiter(cfg.RatePerSec, time.Second)
	}
	client := zenkoku.NewClient(cfg, httpClient, limiter)

	ttl := lookupCacheTTL()
	if ttl == 0 {
		return client
	}
	return cache.NewCachingLookupClient(rdb, ttl, client, "zenkoku-houjin")
}

// lookupCacheTTL は LOOKUP_CACHE_TTL を読み込みます。未設定・"0"・不正な値の場合はキャッシュしません。
// キャッシュすると有効期間内の再取り込みでは照会を行わないため、明示的に指定した場合のみ有効にします。
func lookupCacheTTL() time.Duration {
	v := os.Getenv("LOOKUP_CACHE_TTL")
	if v == "" {
		return 0
	}
	ttl, err := time.ParseDuration(v)
	if err != nil || ttl < 0 {
		slog.Warn("invalid LOOKUP_CACHE_TTL, lookup cache disabled", "value", v)
		return 0
	}
	return ttl
}
