package interceptors

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wynkjs/wynk/pkg/wynk"
)

// CacheHeader reports HIT or MISS for cached routes
const CacheHeader = "X-Cache"

// Store holds cached response bodies
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CacheOption configures Cache
type CacheOption func(*cacheConfig)

type cacheConfig struct {
	partition func(*wynk.Context) string
}

// KeyBy splits cached entries by the value fn returns for a request, such as
// the authenticated subject. Requests for which fn returns "" share entries.
func KeyBy(fn func(*wynk.Context) string) CacheOption {
	return func(cfg *cacheConfig) {
		cfg.partition = fn
	}
}

// Cache replays successful GET results from store for ttl. Results are stored
// as JSON and replayed as JSON. Store failures are logged and never fail the
// request.
//
// Entries are keyed by path and query only, so a result that depends on the
// caller is replayed to everyone unless KeyBy partitions the cache.
func Cache(store Store, ttl time.Duration, opts ...CacheOption) wynk.Interceptor {
	var cfg cacheConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return wynk.InterceptorFunc(func(c *wynk.Context, next wynk.CallHandler) (any, error) {
		if c.Method() != http.MethodGet {
			return next()
		}

		key := cacheKey(c, cfg.partition)
		cached, ok, err := store.Get(c.Context(), key)
		if err != nil {
			c.Logger().Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
		}
		if ok {
			c.Response().SetHeader(CacheHeader, "HIT")
			return wynk.RawJSON(cached), nil
		}

		out, err := next()
		if err != nil || !cacheable(out) {
			return out, err
		}
		data, err := json.Marshal(out)
		if err != nil {
			return out, nil
		}
		if err := store.Set(c.Context(), key, data, ttl); err != nil {
			c.Logger().Warn("cache store failed", zap.String("key", key), zap.Error(err))
		}
		c.Response().SetHeader(CacheHeader, "MISS")
		return out, nil
	})
}

func cacheKey(c *wynk.Context, partition func(*wynk.Context) string) string {
	key := c.Path()
	if q := wynk.NewQueryMap(c.QueryParams()).Encode(); q != "" {
		key += "?" + q
	}
	if partition != nil {
		if p := partition(c); p != "" {
			key = p + ":" + key
		}
	}
	return key
}

func cacheable(out any) bool {
	switch out.(type) {
	case nil, *wynk.Response, wynk.Response, wynk.RedirectResult, *wynk.RedirectResult:
		return false
	}
	return true
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get implements Store
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set implements Store. A zero ttl never expires.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

// RedisStore is a Store backed by redis
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a store that namespaces keys with prefix
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Get implements Store
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// Set implements Store
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
}
