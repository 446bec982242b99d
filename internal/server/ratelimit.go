package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"jdroaster/internal/errors"

	"golang.org/x/time/rate"
)

const (
	defaultCleanupInterval = 10 * time.Minute
	defaultIdleTTL         = 10 * time.Minute
)

// LimiterManager manages one token bucket per client IP
type LimiterManager struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	rate     rate.Limit
	burst    int
	idleTTL  time.Duration
	done     chan struct{}
	once     sync.Once
	logger   *errors.Logger
}

// RateLimiter is the limiter the server holds
type RateLimiter = LimiterManager

// NewRateLimiter creates a new manager. requestsPerMin is the sustained
// rate per client, burstCapacity the token bucket size. Limiters idle for
// longer than idleTTL are swept every cleanupInterval.
func NewRateLimiter(requestsPerMin, burstCapacity int, cleanupInterval, idleTTL time.Duration, logger *errors.Logger) *LimiterManager {
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}

	m := &LimiterManager{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rate:     rate.Limit(float64(requestsPerMin) / 60.0),
		burst:    burstCapacity,
		idleTTL:  idleTTL,
		done:     make(chan struct{}),
		logger:   logger,
	}

	go m.cleanupRoutine(cleanupInterval)
	return m
}

// GetLimiter retrieves or creates a limiter for a given key.
func (m *LimiterManager) GetLimiter(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	limiter, exists := m.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(m.rate, m.burst)
		m.limiters[key] = limiter
	}
	m.lastSeen[key] = time.Now()

	return limiter
}

// Allow reports whether a request for key may proceed. It never blocks.
func (m *LimiterManager) Allow(key string) bool {
	return m.GetLimiter(key).Allow()
}

// GetStats returns current rate limiter statistics
func (m *LimiterManager) GetStats() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]any{
		"enabled":         true,
		"active_limiters": len(m.limiters),
		"rate_per_second": float64(m.rate),
		"rate_per_minute": float64(m.rate) * 60.0,
		"burst_capacity":  m.burst,
		"idle_ttl":        m.idleTTL.String(),
	}
}

// cleanupRoutine periodically removes inactive limiters
func (m *LimiterManager) cleanupRoutine(cleanupInterval time.Duration) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup(time.Now())
		case <-m.done:
			return
		}
	}
}

// cleanup removes limiters last used more than idleTTL before now
func (m *LimiterManager) cleanup(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, lastSeen := range m.lastSeen {
		if now.Sub(lastSeen) > m.idleTTL {
			delete(m.limiters, key)
			delete(m.lastSeen, key)
		}
	}

	m.logger.Debug("Rate limiter cleanup completed",
		"remaining_limiters", len(m.limiters))
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (m *LimiterManager) Close() {
	m.once.Do(func() { close(m.done) })
}

// rateLimitMiddleware rejects clients that exhausted their bucket with 429
func (s *Server) rateLimitMiddleware() func(string, http.HandlerFunc) http.HandlerFunc {
	if s.RateLimiter == nil {
		return func(_ string, next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(route string, next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)
			if !s.RateLimiter.Allow("ip:" + clientIP) {
				s.Logger.Info("Rate limit exceeded",
					"endpoint", r.URL.Path,
					"client_ip", clientIP,
					"request_id", requestID(r.Context()))
				s.om.GetMetrics().RecordRateLimited(r.Context(), route)
				w.Header().Set("Retry-After", "60")
				writeErrorResponse(w, "Too many requests", http.StatusTooManyRequests)
				return
			}

			next(w, r)
		}
	}
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// Proxies put the originating client first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := parseFirstIP(xff); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseFirstIP parses the first valid IP from a comma-separated list
func parseFirstIP(ips string) string {
	for ip := range strings.SplitSeq(ips, ",") {
		ip = strings.TrimSpace(ip)
		if parsed := net.ParseIP(ip); parsed != nil {
			return ip
		}
	}
	return ""
}
