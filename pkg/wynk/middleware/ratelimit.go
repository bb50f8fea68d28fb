package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/wynkjs/wynk/pkg/wynk"
)

// RateLimitConfig holds rate limiter configuration
type RateLimitConfig struct {
	// Requests per second
	RPS float64
	// Burst size
	Burst int
	// KeyFunc identifies the client, by IP when nil
	KeyFunc func(c wynk.RequestContext) string
	// Expiration drops limiters not used for this long
	Expiration time.Duration
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:        10,
		Burst:      20,
		Expiration: 5 * time.Minute,
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterStore struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	cfg       RateLimitConfig
	lastSweep time.Time
	now       func() time.Time
}

func (s *limiterStore) allow(key string) (bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > s.cfg.Expiration {
		for k, v := range s.visitors {
			if now.Sub(v.lastSeen) > s.cfg.Expiration {
				delete(s.visitors, k)
			}
		}
		s.lastSweep = now
	}

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(s.cfg.RPS), s.cfg.Burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now

	r := v.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// RateLimit limits each client to cfg.RPS requests per second with bursts of
// cfg.Burst. Rejected requests get 429 with Retry-After.
func RateLimit(cfg RateLimitConfig) wynk.MiddlewareFunc {
	defaults := DefaultRateLimitConfig()
	if cfg.RPS <= 0 {
		cfg.RPS = defaults.RPS
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaults.Burst
	}
	if cfg.Expiration <= 0 {
		cfg.Expiration = defaults.Expiration
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c wynk.RequestContext) string { return c.RealIP() }
	}
	return rateLimit(&limiterStore{
		visitors: make(map[string]*visitor),
		cfg:      cfg,
		now:      time.Now,
	})
}

func rateLimit(store *limiterStore) wynk.MiddlewareFunc {
	body, _ := json.Marshal(map[string]any{
		"statusCode": http.StatusTooManyRequests,
		"message":    "Too Many Requests",
	})
	return func(next wynk.HandlerFunc) wynk.HandlerFunc {
		return func(c wynk.RequestContext) error {
			ok, retry := store.allow(store.cfg.KeyFunc(c))
			if ok {
				return next(c)
			}
			seconds := int(math.Ceil(retry.Seconds()))
			c.Response().SetHeader("Retry-After", strconv.Itoa(max(seconds, 1)))
			return c.Response().Blob(http.StatusTooManyRequests, "application/json", body)
		}
	}
}
