package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"silver-dashboard/internal/config"
	"silver-dashboard/internal/errors"
	"silver-dashboard/internal/observability"
)

// RoutePolicy names the bucket a request is charged against.
type RoutePolicy string

const (
	PolicyExempt RoutePolicy = "exempt"
	PolicyPage   RoutePolicy = "page"
	PolicyAPI    RoutePolicy = "api"
	PolicyStream RoutePolicy = "stream"
)

// bucketTTL is how long an idle client keeps its buckets.
const bucketTTL = time.Minute

// ClassifyRoute maps a request path to its rate policy. Health checks are
// never limited. SSE refreshes and the JSON API draw from separate buckets.
func ClassifyRoute(path string) RoutePolicy {
	switch {
	case path == "/health":
		return PolicyExempt
	case strings.HasPrefix(path, "/sse/"):
		return PolicyStream
	case strings.HasPrefix(path, "/api/"), strings.HasPrefix(path, "/admin/"):
		return PolicyAPI
	default:
		return PolicyPage
	}
}

type limit struct {
	rps   rate.Limit
	burst int
}

type bucketKey struct {
	policy RoutePolicy
	ip     string
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client and route policy.
type RateLimiter struct {
	enabled   bool
	limits    map[RoutePolicy]limit
	buckets   map[bucketKey]*bucket
	lastSweep time.Time
	now       func() time.Time
	mu        sync.Mutex
}

func NewRateLimiter(cfg config.SecurityConfig) *RateLimiter {
	general := limit{rps: rate.Limit(cfg.RateLimitRPS), burst: cfg.RateLimitBurst}

	stream := general
	if cfg.StreamRateLimitRPS > 0 {
		stream.rps = rate.Limit(cfg.StreamRateLimitRPS)
	}
	if cfg.StreamRateLimitBurst > 0 {
		stream.burst = cfg.StreamRateLimitBurst
	}

	return &RateLimiter{
		enabled: cfg.EnableRateLimit,
		limits: map[RoutePolicy]limit{
			PolicyPage:   general,
			PolicyAPI:    general,
			PolicyStream: stream,
		},
		buckets: make(map[bucketKey]*bucket),
		now:     time.Now,
	}
}

// Allow charges one token to the client's bucket for policy. When the
// bucket is empty it reports how long until a token is available.
func (rl *RateLimiter) Allow(policy RoutePolicy, ip string) (bool, time.Duration) {
	lim, limited := rl.limits[policy]
	if !rl.enabled || !limited {
		return true, 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	key := bucketKey{policy: policy, ip: ip}
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(lim.rps, lim.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now

	reservation := b.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, 0
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// sweep drops idle buckets at most once per TTL. Callers hold rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < bucketTTL {
		return
	}
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) >= bucketTTL {
			delete(rl.buckets, key)
		}
	}
	rl.lastSweep = now
}

func RateLimit(limiter *RateLimiter, logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			policy := ClassifyRoute(r.URL.Path)
			ip := getClientIP(r)

			allowed, wait := limiter.Allow(policy, ip)
			if !allowed {
				requestID := observability.GetRequestID(r.Context())

				logger.Warn("rate limit exceeded",
					"ip", ip,
					"policy", policy,
					"path", r.URL.Path,
					"retry_after", wait,
					"request_id", requestID,
				)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
				errors.WriteError(w, logger, errors.RateLimit(fmt.Sprintf("Too many %s requests", policy)), requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(wait time.Duration) int {
	return max(1, int(math.Ceil(wait.Seconds())))
}
