package api

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"sky-htm/internal/logger"
	"sky-htm/internal/metrics"
)

type cacheEntry struct {
	body []byte
	exp  time.Time
}

// 文档注释：两级应答缓存（进程内 LRU + Redis）
// 背景：区域求交结果只取决于请求参数，按规范化参数的 xxhash 做键；先查 LRU，未命中再查 Redis 并回填。
// 约束：rc 为 nil 时只用 LRU；size<=0 时只用 Redis；两者都没有时 Get 恒未命中。
type Cache struct {
	lru *lru.Cache[uint64, cacheEntry]
	rc  *redis.Client
	ttl time.Duration
	mu  sync.Mutex
	now func() time.Time
}

func NewCache(size int, rc *redis.Client, ttl time.Duration) *Cache {
	c := &Cache{rc: rc, ttl: ttl, now: time.Now}
	if ttl <= 0 {
		c.ttl = time.Hour
	}
	if size > 0 {
		c.lru, _ = lru.New[uint64, cacheEntry](size)
	}
	return c
}

// cacheKey：op 与参数的稳定哈希（url.Values.Encode 按键排序）
func cacheKey(op string, q url.Values) uint64 {
	return xxhash.Sum64String(op + "?" + q.Encode())
}

func redisKey(k uint64) string { return "htm:" + strconv.FormatUint(k, 16) }

func (c *Cache) Get(ctx context.Context, k uint64) ([]byte, bool) {
	if c.lru != nil {
		c.mu.Lock()
		e, ok := c.lru.Get(k)
		if ok && c.now().After(e.exp) {
			c.lru.Remove(k)
			ok = false
		}
		c.mu.Unlock()
		if ok {
			metrics.CacheHitsTotal.WithLabelValues("lru").Inc()
			return e.body, true
		}
	}
	if c.rc != nil {
		b, err := c.rc.Get(ctx, redisKey(k)).Bytes()
		if err == nil && len(b) > 0 {
			metrics.CacheHitsTotal.WithLabelValues("redis").Inc()
			c.putLocal(k, b)
			return b, true
		}
		if err != nil && err != redis.Nil {
			logger.L().Debug("cache_redis_error", "err", err)
		}
	}
	metrics.CacheMissesTotal.Inc()
	return nil, false
}

func (c *Cache) Set(ctx context.Context, k uint64, body []byte) {
	c.putLocal(k, body)
	if c.rc != nil {
		if err := c.rc.Set(ctx, redisKey(k), body, c.ttl).Err(); err != nil {
			logger.L().Debug("cache_redis_error", "err", err)
		}
	}
}

func (c *Cache) putLocal(k uint64, body []byte) {
	if c.lru == nil {
		return
	}
	c.mu.Lock()
	c.lru.Add(k, cacheEntry{body: body, exp: c.now().Add(c.ttl)})
	c.mu.Unlock()
}
