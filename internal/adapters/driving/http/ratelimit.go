package http

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures per-client throttling of the OAuth entry points
type RateLimitConfig struct {
	// RequestsPerSecond <= 0 disables the limiter
	RequestsPerSecond float64
	Burst             int

	// TrustForwardedFor keys clients by the first X-Forwarded-For hop.
	// Enable only behind a proxy that overwrites the header.
	TrustForwardedFor bool
}

// RateLimiter enforces per-client throttling.
type RateLimiter struct {
	limit        rate.Limit
	burst        int
	window       time.Duration
	trustForward bool
	onLimited    func()

	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter returns nil when cfg disables throttling.
func NewRateLimiter(cfg RateLimitConfig, onLimited func()) *RateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:        rate.Limit(cfg.RequestsPerSecond),
		burst:        burst,
		window:       5 * time.Minute,
		trustForward: cfg.TrustForwardedFor,
		onLimited:    onLimited,
		clients:      make(map[string]*clientLimiter),
		now:          time.Now,
	}
}

// Handler wraps next with throttling. A nil limiter passes everything through.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	if l == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.getLimiter(l.clientKey(r)).Allow() {
			if l.onLimited != nil {
				l.onLimited()
			}
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":             "rate_limited",
				"error_description": "Too many requests. Please slow down.",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) clientKey(r *http.Request) string {
	if l.trustForward {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (l *RateLimiter) getLimiter(key string) *rate.Limiter {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.clients[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}

	limiter := rate.NewLimiter(l.limit, l.burst)
	l.clients[key] = &clientLimiter{limiter: limiter, lastSeen: now}
	l.cleanupLocked(now)
	return limiter
}

func (l *RateLimiter) cleanupLocked(now time.Time) {
	for key, entry := range l.clients {
		if now.Sub(entry.lastSeen) > l.window {
			delete(l.clients, key)
		}
	}
}
