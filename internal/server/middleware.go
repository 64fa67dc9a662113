package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/Andylive5518/cctv-allin/internal/version"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cctv_http_requests_total",
			Help: "HTTP requests by route pattern and status code.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cctv_http_request_duration_seconds",
			Help:    "HTTP request latency, including the outbound robot call for webhooks.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)
	httpRateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cctv_http_rate_limited_total",
		Help: "Requests rejected with 429 by the per-peer limiter.",
	})
	httpPanics = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cctv_http_panics_total",
		Help: "Handler panics converted to 500 responses.",
	})
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpRateLimited, httpPanics)
}

// Middleware is a function that wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middleware in order (first argument is outermost).
func Chain(handler http.Handler, mw ...Middleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// pathSet is a lookup of exact request paths.
type pathSet map[string]struct{}

func newPathSet(paths []string) pathSet {
	s := make(pathSet, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

func (s pathSet) has(path string) bool {
	_, ok := s[path]
	return ok
}

type requestIDKey struct{}

// RequestID returns the request ID stored by RequestIDMiddleware.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

const maxRequestIDLen = 128

// RequestIDMiddleware tags each request with an ID, reusing X-Request-ID
// when the caller sent a usable one.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if !usableRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// usableRequestID accepts short printable ASCII IDs so they can be echoed
// into headers and logs unchanged.
func usableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// LoggingMiddleware writes one access log line per request and records
// request metrics labeled by route pattern. Paths in quiet are not logged
// but are still counted. Webhook calls carry the target platform; server
// errors are logged at warn level.
func LoggingMiddleware(logger *zap.Logger, quiet []string) Middleware {
	skip := newPathSet(quiet)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

			if skip.has(r.URL.Path) {
				return
			}
			level := zapcore.InfoLevel
			if rec.status >= http.StatusInternalServerError {
				level = zapcore.WarnLevel
			}
			ce := logger.Check(level, "http request")
			if ce == nil {
				return
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Int64("bytes", rec.bytes),
				zap.Duration("duration", elapsed),
				zap.String("peer", peerIP(r)),
				zap.String("request_id", RequestID(r.Context())),
			}
			if platform := r.PathValue("platform"); platform != "" {
				fields = append(fields, zap.String("platform", platform))
			}
			ce.Write(fields...)
		})
	}
}

// ResponseHeadersMiddleware stamps the receiver version and JSON API
// hardening headers on every response.
func ResponseHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-CCTV-Allin-Version", version.Short())
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Cache-Control", "no-store")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// RecoveryMiddleware turns a handler panic into a 500 problem response.
func RecoveryMiddleware(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				httpPanics.Inc()
				logger.Error("handler panic",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.String("platform", r.PathValue("platform")),
					zap.String("request_id", RequestID(r.Context())),
					zap.StackSkip("stack", 1),
				)
				InternalError(w, "an unexpected error occurred", r.URL.Path)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware applies a token bucket per peer IP. Paths in exempt
// bypass the limiter.
func RateLimitMiddleware(rps float64, burst int, exempt []string) Middleware {
	peers := newPeerLimiter(rate.Limit(rps), burst, 10*time.Minute)
	skip := newPathSet(exempt)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !skip.has(r.URL.Path) && !peers.allow(peerIP(r), time.Now()) {
				httpRateLimited.Inc()
				RateLimited(w, "rate limit exceeded", r.URL.Path)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// peerLimiter keeps one limiter per peer and forgets peers idle longer
// than idle. Sweeps run at most once per idle period.
type peerLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	peers     map[string]*peerBucket
}

type peerBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newPeerLimiter(limit rate.Limit, burst int, idle time.Duration) *peerLimiter {
	return &peerLimiter{
		limit: limit,
		burst: burst,
		idle:  idle,
		peers: make(map[string]*peerBucket),
	}
}

func (p *peerLimiter) allow(peer string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if now.Sub(p.lastSweep) >= p.idle {
		for k, b := range p.peers {
			if now.Sub(b.lastSeen) >= p.idle {
				delete(p.peers, k)
			}
		}
		p.lastSweep = now
	}

	b, ok := p.peers[peer]
	if !ok {
		b = &peerBucket{lim: rate.NewLimiter(p.limit, p.burst)}
		p.peers[peer] = b
	}
	b.lastSeen = now
	return b.lim.AllowN(now, 1)
}

func (p *peerLimiter) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.peers)
}

// peerIP is the host part of the connection's remote address. Forwarding
// headers are not consulted.
func peerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// responseRecorder captures the status code and body size written by the
// wrapped handler.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (w *responseRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseRecorder) Write(b []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}
