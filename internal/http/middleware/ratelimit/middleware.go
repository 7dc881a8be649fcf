package ratelimit

import (
	"io"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"courier-dispatch/internal/logx"
)

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(r *http.Request) string

// Middleware answers 429 once a key runs out of tokens.
type Middleware struct {
	logger  logx.Logger
	denied  prometheus.Counter
	limiter Limiter
	key     KeyFunc
}

// New creates a Middleware. A nil key function charges the client IP.
func New(logger logx.Logger, denied prometheus.Counter, limiter Limiter, key KeyFunc) *Middleware {
	if logger == nil {
		logger = logx.Nop()
	}
	if limiter == nil {
		limiter = NopLimiter{}
	}
	if key == nil {
		key = ClientIP
	}
	return &Middleware{logger: logger, denied: denied, limiter: limiter, key: key}
}

// Handler returns chi-style middleware.
func (m *Middleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := m.key(r)
			if m.limiter.Allow(key) {
				next.ServeHTTP(w, r)
				return
			}

			if m.denied != nil {
				m.denied.Inc()
			}
			m.logger.Warn("rate limit exceeded",
				logx.Event("rate_limited"),
				logx.String("key", key),
				logx.String("method", r.Method),
				logx.String("path", r.URL.Path),
			)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			if _, err := io.WriteString(w, `{"error":"too many requests"}`); err != nil {
				// client went away
				m.logger.Debug("rate limit response write failed", logx.String("key", key), logx.Err(err))
			}
		})
	}
}

// CourierKey charges requests to the courier named by the route parameter,
// falling back to the client IP when the parameter is absent.
func CourierKey(param string) KeyFunc {
	return func(r *http.Request) string {
		if id := chi.URLParam(r, param); id != "" {
			return "courier:" + id
		}
		return ClientIP(r)
	}
}

// ClientIP keys by the remote host. RealIP middleware upstream rewrites
// RemoteAddr from proxy headers.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
