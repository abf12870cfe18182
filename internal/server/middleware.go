package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/aaronlmathis/cpuplot/internal/metrics"
)

// PrometheusMiddleware records HTTP request metrics for Prometheus
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		metrics.RecordHTTPRequest(r.Method, sanitizePath(r.URL.Path), ww.Status(), time.Since(start))
	})
}

// RequestIDResponseMiddleware adds the request ID to response headers
func RequestIDResponseMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// sanitizePath normalizes URL paths for metrics to keep label cardinality bounded
func sanitizePath(path string) string {
	path = strings.TrimSuffix(path, "/")

	switch {
	case path == "/healthz", path == "/version", path == "/metrics",
		path == "/api/v1/report", path == "/api/v1/series":
		return path
	case strings.HasPrefix(path, "/api/v1/series/"):
		return "/api/v1/series/:window"
	default:
		return "other"
	}
}

const (
	limiterBurst = 10

	// limiterIdleTTL is long enough for any limiter to refill its burst at
	// one request per minute, so dropping an idle one loses no state
	limiterIdleTTL = limiterBurst * time.Minute
)

// RateLimiter limits requests per client address
type RateLimiter struct {
	logger            *zap.Logger
	requestsPerMinute int
	now               func() time.Time

	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	lastSweep time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerMinute per client
func NewRateLimiter(logger *zap.Logger, requestsPerMinute int) *RateLimiter {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	return &RateLimiter{
		logger:            logger,
		requestsPerMinute: requestsPerMinute,
		now:               time.Now,
		limiters:          make(map[string]*clientLimiter),
	}
}

// Middleware rejects requests over the limit with 429
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientKey(r.RemoteAddr)

		if !l.allow(client) {
			l.logger.Warn("Rate limit exceeded",
				zap.String("client", client),
				zap.String("path", r.URL.Path))
			metrics.RecordRateLimitedRequest(sanitizePath(r.URL.Path))
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allow reports whether client may make a request now, creating its limiter
// on first use and dropping limiters idle for limiterIdleTTL
func (l *RateLimiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterIdleTTL {
		l.sweep(now)
	}

	cl, ok := l.limiters[client]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.requestsPerMinute)), limiterBurst),
		}
		l.limiters[client] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// sweep removes limiters not used since limiterIdleTTL before now. Callers hold mu.
func (l *RateLimiter) sweep(now time.Time) {
	for client, cl := range l.limiters {
		if now.Sub(cl.lastSeen) >= limiterIdleTTL {
			delete(l.limiters, client)
		}
	}
	l.lastSweep = now
	l.logger.Debug("Swept idle rate limiters", zap.Int("active", len(l.limiters)))
}

// clients returns the number of tracked client limiters
func (l *RateLimiter) clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// clientKey strips the port from a remote address. RealIP may already have
// replaced it with a bare IP.
func clientKey(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
