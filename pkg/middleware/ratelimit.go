package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// visitor tracks a rate limiter per client IP.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorStore manages per-IP rate limiters with automatic cleanup of stale
// entries.
type visitorStore struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      int
	burst    int
	ttl      time.Duration
	nowFunc  func() time.Time // injectable clock for testing
}

func newVisitorStore(rps, burst int, ttl time.Duration) *visitorStore {
	s := &visitorStore{
		visitors: make(map[string]*visitor),
		rps:      rps,
		burst:    burst,
		ttl:      ttl,
		nowFunc:  time.Now,
	}
	go s.cleanupLoop()
	return s
}

// getVisitor returns (or creates) a rate limiter for the given IP and updates
// lastSeen.
func (s *visitorStore) getVisitor(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, exists := s.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(rate.Limit(s.rps), s.burst)
		s.visitors[ip] = &visitor{limiter: limiter, lastSeen: s.nowFunc()}
		return limiter
	}
	v.lastSeen = s.nowFunc()
	return v.limiter
}

func (s *visitorStore) cleanupLoop() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()
	for range ticker.C {
		s.cleanup()
	}
}

// cleanup evicts all visitors whose lastSeen is older than the TTL.
func (s *visitorStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	for ip, v := range s.visitors {
		if now.Sub(v.lastSeen) > s.ttl {
			delete(s.visitors, ip)
		}
	}
}

func (s *visitorStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// RateLimit returns middleware that enforces per-IP token bucket rate
// limiting. rps is the sustained requests per second, burst the maximum burst
// size. Returns HTTP 429 when the limit is exceeded.
func RateLimit(rps, burst int, logger *slog.Logger) func(http.Handler) http.Handler {
	const cleanupInterval = 3 * time.Minute
	store := newVisitorStore(rps, burst, cleanupInterval)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			limiter := store.getVisitor(ip)

			if !limiter.Allow() {
				logger.Warn("rate limit exceeded",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"error": map[string]string{
						"code":    "RATE_LIMITED",
						"message": "too many requests",
					},
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client IP from X-Forwarded-For, X-Real-IP, or
// RemoteAddr, in that order.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip.String()
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
