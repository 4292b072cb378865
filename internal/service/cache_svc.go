package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Azora-OS/azora-sub011/internal/model"
)

// StatsCacheTTL bounds how stale the global stats response may be.
const StatsCacheTTL = 30 * time.Second

const statsCacheKey = "mint:stats"

// CacheService provides a Redis cache-aside layer for the stats endpoint.
type CacheService struct {
	rdb *redis.Client

	// Optional hit/miss counters, set via WithCounters.
	hits   prometheus.Counter
	misses prometheus.Counter
}

// WithCounters attaches hit/miss counters to the cache and returns it.
func (c *CacheService) WithCounters(hits, misses prometheus.Counter) *CacheService {
	c.hits = hits
	c.misses = misses
	return c
}

func (c *CacheService) hit() {
	if c.hits != nil {
		c.hits.Inc()
	}
}

func (c *CacheService) miss() {
	if c.misses != nil {
		c.misses.Inc()
	}
}

// NewCacheService creates a CacheService. If redisURL is empty or the
// connection fails, caching is disabled and all operations become no-ops.
func NewCacheService(redisURL string) *CacheService {
	if redisURL == "" {
		log.Println("redis: no URL configured, caching disabled")
		return &CacheService{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("redis: invalid URL %q, caching disabled: %v", redisURL, err)
		return &CacheService{}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("redis: connection failed, caching disabled: %v", err)
		return &CacheService{}
	}

	log.Println("redis: connected, caching enabled")
	return &CacheService{rdb: rdb}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *CacheService) Client() *redis.Client {
	return c.rdb
}

// GetStats returns the cached stats response, or nil on miss or when the
// cache is disabled.
func (c *CacheService) GetStats(ctx context.Context) *model.StatsResponse {
	if c.rdb == nil {
		return nil
	}
	data, err := c.rdb.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		c.miss()
		return nil
	}
	var stats model.StatsResponse
	if err := json.Unmarshal(data, &stats); err != nil {
		c.miss()
		return nil
	}
	c.hit()
	return &stats
}

// SetStats caches the stats response.
func (c *CacheService) SetStats(ctx context.Context, stats *model.StatsResponse) {
	if c.rdb == nil {
		return
	}
	b, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, statsCacheKey, b, StatsCacheTTL).Err(); err != nil {
		log.Printf("redis: cache stats error: %v", err)
	}
}

// InvalidateStats drops the cached stats (called after settlements).
func (c *CacheService) InvalidateStats(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, statsCacheKey).Err(); err != nil {
		log.Printf("redis: invalidate stats error: %v", err)
	}
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
