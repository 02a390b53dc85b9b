package cache

import (
	"time"

	"joe-analytics/internal/worker/monitor"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	RESULT_CACHE_TTL     = 180 * time.Second // 看板结果缓存时间
	RESULT_CACHE_CLEANUP = time.Minute
)

// ResultCache 看板查询结果的本地缓存，key 由函数名和参数组成
type ResultCache struct {
	tl         *zap.Logger
	localCache *cache.Cache
}

// NewResultCache ttl <= 0 时使用默认 180s
func NewResultCache(ttl time.Duration, tl *zap.Logger) *ResultCache {
	if ttl <= 0 {
		ttl = RESULT_CACHE_TTL
	}
	if tl == nil {
		tl = zap.NewNop()
	}
	return &ResultCache{
		tl:         tl,
		localCache: cache.New(ttl, RESULT_CACHE_CLEANUP),
	}
}

// GetOrLoad 命中直接返回，否则调用 load 并缓存结果；出错不缓存
func (c *ResultCache) GetOrLoad(key string, load func() (interface{}, error)) (interface{}, error) {
	if cached, found := c.localCache.Get(key); found {
		monitor.ResultCacheRequests.WithLabelValues("hit").Inc()
		return cached, nil
	}
	monitor.ResultCacheRequests.WithLabelValues("miss").Inc()

	value, err := load()
	if err != nil {
		return nil, err
	}
	c.localCache.Set(key, value, cache.DefaultExpiration)
	c.tl.Debug("result cached", zap.String("key", key))
	return value, nil
}

// Flush 清空缓存
func (c *ResultCache) Flush() {
	c.localCache.Flush()
}

// Load 带类型的 GetOrLoad
func Load[T any](c *ResultCache, key string, load func() (T, error)) (T, error) {
	value, err := c.GetOrLoad(key, func() (interface{}, error) {
		return load()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return value.(T), nil
}
