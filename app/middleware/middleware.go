package appMiddleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/go-authify/internal/api"
	"github.com/FACorreiaa/go-authify/internal/types"
)

// idleExpiry is how long a client's limiter survives without requests.
const idleExpiry = 10 * time.Minute

// RateLimiter throttles requests per client IP with a token bucket. Limiters
// live in a go-cache keyed by IP and are evicted once the client goes idle.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	clients *cache.Cache
	logger  *slog.Logger
}

// NewRateLimiter allows perMinute requests per client per minute with an
// equal burst. A perMinute of zero disables limiting.
func NewRateLimiter(perMinute int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   perMinute,
		clients: cache.New(idleExpiry, 2*idleExpiry),
		logger:  logger,
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	if v, ok := rl.clients.Get(key); ok {
		l := v.(*rate.Limiter)
		// refresh the expiry so active clients keep their bucket
		rl.clients.SetDefault(key, l)
		return l
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	if err := rl.clients.Add(key, l, cache.DefaultExpiration); err != nil {
		// another request created it first
		if v, ok := rl.clients.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}

// Middleware rejects requests over the limit with 429 and a Retry-After hint.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl.burst <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !rl.limiterFor(key).Allow() {
			retryAfter := int(math.Ceil(1.0 / float64(rl.limit)))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			rl.logger.WarnContext(r.Context(), "Rate limit exceeded",
				slog.String("client", key), slog.String("path", r.URL.Path))
			api.WriteError(w, r, types.ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Clients reports how many client buckets are currently tracked.
func (rl *RateLimiter) Clients() int {
	return rl.clients.ItemCount()
}

// clientIP strips the port from RemoteAddr. chi's RealIP should run first
// when the service sits behind a proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
