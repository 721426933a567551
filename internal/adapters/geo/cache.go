package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

const redisKeyPrefix = "pulse:geo:"

// NegativeTTL bounds how long an address the provider could not resolve is
// remembered before it is sent upstream again.
const NegativeTTL = 10 * time.Minute

func negativeTTL(ttl time.Duration) time.Duration {
	if ttl > 0 && ttl < NegativeTTL {
		return ttl
	}
	return NegativeTTL
}

// Cache stores resolved addresses.
type Cache interface {
	// GetMany returns cached results keyed by IP.
	GetMany(ctx context.Context, ips []string) (map[string]Result, error)
	// SetMany stores results.
	SetMany(ctx context.Context, results []Result) error
	// Name labels the backend in metrics.
	Name() string
}

// LRUCache is an in-process cache with per-entry expiry.
// Unresolved addresses live in a separate LRU with a shorter TTL.
type LRUCache struct {
	cache    *lru.LRU[string, Result]
	negative *lru.LRU[string, Result]
}

// NewLRUCache creates an LRUCache holding size entries for ttl.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	return &LRUCache{
		cache:    lru.NewLRU[string, Result](size, nil, ttl),
		negative: lru.NewLRU[string, Result](size, nil, negativeTTL(ttl)),
	}
}

// GetMany implements Cache.
func (c *LRUCache) GetMany(_ context.Context, ips []string) (map[string]Result, error) {
	out := make(map[string]Result, len(ips))
	for _, ip := range ips {
		if r, ok := c.cache.Get(ip); ok {
			out[ip] = r
		} else if r, ok := c.negative.Get(ip); ok {
			out[ip] = r
		}
	}
	return out, nil
}

// SetMany implements Cache.
func (c *LRUCache) SetMany(_ context.Context, results []Result) error {
	for _, r := range results {
		if r.Unresolved {
			c.negative.Add(r.IP, r)
			continue
		}
		c.cache.Add(r.IP, r)
	}
	return nil
}

// Name implements Cache.
func (c *LRUCache) Name() string { return "lru" }

// Len reports the number of live entries, resolved or not.
func (c *LRUCache) Len() int { return c.cache.Len() + c.negative.Len() }

// RedisCache shares results between replicas.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a cache for redisURL. It does not connect; call Ping
// to check the server is reachable.
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid redis URL: %w", ErrCache, err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	return &RedisCache{client: redis.NewClient(opts), ttl: ttl}, nil
}

// Ping checks the server answers.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: connect: %w", ErrCache, err)
	}
	return nil
}

// GetMany implements Cache with a single MGET. Corrupt entries count as misses.
func (c *RedisCache) GetMany(ctx context.Context, ips []string) (map[string]Result, error) {
	out := make(map[string]Result, len(ips))
	if len(ips) == 0 {
		return out, nil
	}
	keys := make([]string, len(ips))
	for i, ip := range ips {
		keys[i] = redisKeyPrefix + ip
	}
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: mget: %w", ErrCache, err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var r Result
		if err := json.Unmarshal([]byte(s), &r); err != nil {
			c.client.Del(ctx, keys[i])
			continue
		}
		out[ips[i]] = r
	}
	return out, nil
}

// SetMany implements Cache with one pipelined round trip.
func (c *RedisCache) SetMany(ctx context.Context, results []Result) error {
	if len(results) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for _, r := range results {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("%w: encode: %w", ErrCache, err)
		}
		ttl := c.ttl
		if r.Unresolved {
			ttl = negativeTTL(c.ttl)
		}
		pipe.Set(ctx, redisKeyPrefix+r.IP, data, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: pipeline: %w", ErrCache, err)
	}
	return nil
}

// Name implements Cache.
func (c *RedisCache) Name() string { return "redis" }

// Close closes the Redis connection.
func (c *RedisCache) Close() error { return c.client.Close() }

// CachedResolver consults a Cache before the upstream Resolver.
// Cache failures are logged and fall through to a direct lookup.
type CachedResolver struct {
	next   Resolver
	cache  Cache
	logger logger.Logger
}

// NewCachedResolver wraps next with cache.
func NewCachedResolver(next Resolver, cache Cache, l logger.Logger) *CachedResolver {
	if l == nil {
		l = logger.Nop()
	}
	return &CachedResolver{next: next, cache: cache, logger: l}
}

// Lookup implements Resolver. Results keep the order of ips.
func (r *CachedResolver) Lookup(ctx context.Context, ips []string) ([]Result, error) {
	hits, err := r.cache.GetMany(ctx, ips)
	if err != nil {
		r.logger.Warn(ctx, "geolocation cache read failed", logger.String("cache", r.cache.Name()), logger.Error(err))
		hits = map[string]Result{}
	}

	misses := make([]string, 0, len(ips))
	for _, ip := range ips {
		if _, ok := hits[ip]; !ok {
			misses = append(misses, ip)
		}
	}
	metrics.RecordGeoCache(r.cache.Name(), "hit", len(ips)-len(misses))
	metrics.RecordGeoCache(r.cache.Name(), "miss", len(misses))

	if len(misses) > 0 {
		fresh, err := r.next.Lookup(ctx, misses)
		if err != nil {
			return nil, err
		}
		for _, f := range fresh {
			hits[f.IP] = f
		}
		store := fresh
		for _, ip := range misses {
			if _, ok := hits[ip]; !ok {
				store = append(store, Result{IP: ip, Unresolved: true})
			}
		}
		if err := r.cache.SetMany(ctx, store); err != nil {
			r.logger.Warn(ctx, "geolocation cache write failed", logger.String("cache", r.cache.Name()), logger.Error(err))
		}
	}

	out := make([]Result, 0, len(hits))
	for _, ip := range ips {
		if res, ok := hits[ip]; ok && !res.Unresolved {
			out = append(out, res)
		}
	}
	return out, nil
}
