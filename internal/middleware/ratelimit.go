package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/storefront-api/internal/config"
	"github.com/iliyamo/storefront-api/internal/logging"
	"github.com/iliyamo/storefront-api/internal/response"
)

// Counter records one hit against key in a fixed window and returns the
// hit count so far and the time left in the window.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// The first hit in a window sets its expiry; later hits only count.
var fixedWindowScript = redis.NewScript(`
	local n = redis.call('INCR', KEYS[1])
	if n == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end
	return { n, ttl }
`)

// RedisCounter implements Counter with a Lua INCR + PEXPIRE script so
// that the count and its expiry are set atomically.
type RedisCounter struct {
	rdb *redis.Client
}

func NewRedisCounter(rdb *redis.Client) *RedisCounter { return &RedisCounter{rdb: rdb} }

func (r *RedisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	vals, err := fixedWindowScript.Run(ctx, r.rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(vals) != 2 {
		return 0, 0, fmt.Errorf("ratelimit: unexpected script result %v", vals)
	}
	return vals[0], time.Duration(vals[1]) * time.Millisecond, nil
}

// RateLimiter builds per-route middlewares from config policies. Limits
// are counted per client IP.
type RateLimiter struct {
	cfg      config.RateLimitConfig
	counter  Counter
	log      logging.Logger
	clientIP echo.IPExtractor
}

// NewRateLimiter returns a limiter. A nil counter disables limiting, as
// does cfg.Enabled == false.
func NewRateLimiter(cfg config.RateLimitConfig, counter Counter, log logging.Logger) *RateLimiter {
	if log == nil {
		log = logging.Nop()
	}
	return &RateLimiter{cfg: cfg, counter: counter, log: log, clientIP: ipExtractor(cfg.TrustedProxies)}
}

// ipExtractor uses the socket address unless trusted proxies are
// configured, in which case X-Forwarded-For is walked back from the
// right and only hops inside those ranges are skipped. Echo's default
// RealIP believes any client supplied header, which would let a caller
// pick a fresh bucket per request.
func ipExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

// Limit enforces p. A nil limiter passes everything and counter errors
// fail open.
func (l *RateLimiter) Limit(p config.RateLimitPolicy) echo.MiddlewareFunc {
	if l == nil || !l.cfg.Enabled || l.counter == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := l.key(p, c)
			ctx := c.Request().Context()

			count, ttl, err := l.counter.Hit(ctx, key, p.Window)
			if err != nil {
				l.log.Warn(ctx, "ratelimit_unavailable", "key", key, "error", err)
				return next(c)
			}

			remaining := int64(p.Limit) - count
			if remaining < 0 {
				remaining = 0
			}
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(p.Limit))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if l.cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}

			if count > int64(p.Limit) {
				secs := int(math.Ceil(ttl.Seconds()))
				if secs < 0 {
					secs = 0
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				l.log.Info(ctx, "ratelimit_blocked", "policy", p.Name, "key", key, "retry_after", secs)
				return c.JSON(http.StatusTooManyRequests, response.ErrorBody{Message: p.Message})
			}
			return next(c)
		}
	}
}

func (l *RateLimiter) key(p config.RateLimitPolicy, c echo.Context) string {
	ip := l.clientIP(c.Request())
	if ip == "" {
		ip = "unknown"
	}
	return strings.Join([]string{l.cfg.Prefix, p.Name, ip}, ":")
}
