// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package api

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/soothill/smart-home-manager/pkg/logger"
	"github.com/soothill/smart-home-manager/pkg/metrics"
	"golang.org/x/time/rate"
)

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Duration
}

// Limiter decides whether a client may make another request
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Window() time.Duration
}

// RedisRateLimiter is a fixed-window limiter shared by every instance that
// uses the same Redis server.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisRateLimiter allows limit requests per window per client
func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, limit: limit, window: window, prefix: "rl:"}
}

// Allow increments the client's counter for the current window. The
// expiry is set with NX in the same transaction, so a counter without a
// TTL picks one up on the next request.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := l.prefix + key
	var (
		incr   *redis.IntCmd
		ttlCmd *redis.DurationCmd
	)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, l.window)
		ttlCmd = pipe.TTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("count %s: %w", redisKey, err)
	}

	count := incr.Val()
	ttl := ttlCmd.Val()
	if ttl < 0 {
		ttl = 0
	}
	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: remaining,
		Reset:     ttl,
	}, nil
}

// Window returns the counting window
func (l *RedisRateLimiter) Window() time.Duration { return l.window }

// Health pings Redis
func (l *RedisRateLimiter) Health(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// LocalRateLimiter keeps a token bucket per client in process memory. It is
// used when no Redis server is configured. Buckets idle for a full window
// are full again and get dropped.
type LocalRateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	limiters  map[string]*localBucket
	lastSweep time.Time
	now       func() time.Time
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalRateLimiter allows a burst of limit requests refilled over window
func NewLocalRateLimiter(limit int, window time.Duration) *LocalRateLimiter {
	if limit < 1 {
		limit = 1
	}
	return &LocalRateLimiter{
		limit:     limit,
		window:    window,
		limiters:  make(map[string]*localBucket),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow takes a token from the client's bucket
func (l *LocalRateLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.window {
		l.sweepLocked(now)
	}
	b, ok := l.limiters[key]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(rate.Every(l.window/time.Duration(l.limit)), l.limit)}
		l.limiters[key] = b
	}
	b.lastSeen = now
	lim := b.limiter
	l.mu.Unlock()

	allowed := lim.Allow()
	tokens := lim.Tokens()
	remaining := int(math.Max(0, math.Floor(tokens)))

	var reset time.Duration
	if missing := float64(l.limit) - tokens; missing > 0 {
		reset = time.Duration(missing / float64(lim.Limit()) * float64(time.Second))
	}
	return Decision{Allowed: allowed, Limit: l.limit, Remaining: remaining, Reset: reset}, nil
}

func (l *LocalRateLimiter) sweepLocked(now time.Time) {
	for key, b := range l.limiters {
		if now.Sub(b.lastSeen) >= l.window {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

// Len returns the number of tracked clients
func (l *LocalRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Window returns the refill window
func (l *LocalRateLimiter) Window() time.Duration { return l.window }

// TrustedProxies lists the proxy addresses allowed to set X-Forwarded-For
type TrustedProxies struct {
	prefixes []netip.Prefix
}

// NewTrustedProxies parses IP addresses and CIDR ranges
func NewTrustedProxies(entries []string) (*TrustedProxies, error) {
	tp := &TrustedProxies{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
			}
			tp.prefixes = append(tp.prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		addr = addr.Unmap()
		tp.prefixes = append(tp.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return tp, nil
}

// Contains reports whether ip is a trusted proxy
func (tp *TrustedProxies) Contains(ip string) bool {
	if tp == nil {
		return false
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range tp.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientKey identifies the caller by its remote address. X-Forwarded-For
// is only read when the request comes from a trusted proxy, and then the
// rightmost hop that is not itself a trusted proxy wins.
func clientKey(r *http.Request, proxies *TrustedProxies) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	if remote == "" {
		remote = "anonymous"
	}
	if !proxies.Contains(remote) {
		return remote
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !proxies.Contains(hop) {
			return hop
		}
	}
	return remote
}

type rateLimitBody struct {
	Error         string `json:"error"`
	RateLimit     int    `json:"rate_limit"`
	Window        string `json:"rate_limit_window"`
	RetryAfterSec int    `json:"retry_after_sec"`
}

// RateLimit rejects clients that exceed the limiter with 429. Limiter
// failures let the request through. proxies may be nil.
func RateLimit(limiter Limiter, proxies *TrustedProxies) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r, proxies)
			d, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn().Err(err).Str("client", key).Msg("Rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			resetSec := int(math.Ceil(d.Reset.Seconds()))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetSec))

			if !d.Allowed {
				metrics.RateLimitedRequests.Inc()
				logger.Warn().Str("client", key).Str("path", r.URL.Path).Msg("Rate limit exceeded")
				w.Header().Set("Retry-After", strconv.Itoa(resetSec))
				writeJSON(w, http.StatusTooManyRequests, rateLimitBody{
					Error:         "rate limit exceeded",
					RateLimit:     d.Limit,
					Window:        limiter.Window().String(),
					RetryAfterSec: resetSec,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
