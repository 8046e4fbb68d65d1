package httpserver

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fdg312/incident-hub/internal/config"
	"golang.org/x/time/rate"
)

// rateLimiterStore keeps one token bucket per client IP.
type rateLimiterStore struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	counter  atomic.Int64
}

func newRateLimiterStore(limit rate.Limit, burst int) *rateLimiterStore {
	return &rateLimiterStore{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// reserve takes a token for ip. It returns 0 when the request may proceed,
// otherwise how long the client should wait.
func (s *rateLimiterStore) reserve(ip string, now time.Time) time.Duration {
	s.mu.Lock()
	limiter, ok := s.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(s.limit, s.burst)
		s.limiters[ip] = limiter
	}
	// every 1000 requests drop idle buckets
	if s.counter.Add(1)%1000 == 0 {
		s.cleanup(now)
	}
	s.mu.Unlock()

	r := limiter.ReserveN(now, 1)
	if !r.OK() {
		return time.Second
	}
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
	}
	return delay
}

// cleanup removes IPs whose token bucket is full. Caller holds mu.
func (s *rateLimiterStore) cleanup(now time.Time) {
	for ip, limiter := range s.limiters {
		if limiter.TokensAt(now) >= float64(s.burst) {
			delete(s.limiters, ip)
		}
	}
}

// isCredentialRequest matches the unauthenticated POST endpoints that accept
// passwords or trigger email.
func isCredentialRequest(r *http.Request) bool {
	return r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/v1/auth/")
}

// RateLimitMiddleware enforces per-IP rate limiting via token bucket.
// RATE_LIMIT_RPS applies to every route except /healthz.
// RATE_LIMIT_AUTH_PER_MINUTE additionally throttles sign-in, sign-up and
// password reset. Either limit is disabled when <= 0.
func RateLimitMiddleware(cfg *config.Config, next http.Handler) http.Handler {
	var general, credentials *rateLimiterStore

	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = cfg.RateLimitRPS
		}
		general = newRateLimiterStore(rate.Limit(cfg.RateLimitRPS), burst)
	}
	if cfg.RateLimitAuthPerMinute > 0 {
		credentials = newRateLimiterStore(rate.Every(time.Minute/time.Duration(cfg.RateLimitAuthPerMinute)), cfg.RateLimitAuthPerMinute)
	}

	if general == nil && credentials == nil {
		return next // disabled
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		ip := extractIP(r)
		now := time.Now()

		if credentials != nil && isCredentialRequest(r) {
			if wait := credentials.reserve(ip, now); wait > 0 {
				writeRateLimited(w, wait)
				return
			}
		}
		if general != nil {
			if wait := general.reserve(ip, now); wait > 0 {
				writeRateLimited(w, wait)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func writeRateLimited(w http.ResponseWriter, wait time.Duration) {
	retryAfter := int(math.Ceil(wait.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "rate_limited",
			"message": "Too many requests",
		},
	})
}

func extractIP(r *http.Request) string {
	// Prefer X-Forwarded-For for proxied setups
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
