// Package pprofserver serves runtime profiles on a separate debug listener.
package pprofserver

import (
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"courier-dispatch/internal/logx"
)

// Config stores debug listener settings. Port 0 disables the listener.
type Config struct {
	Port int
	User string
	Pass string
}

// Enabled reports whether the debug listener should run.
func (c Config) Enabled() bool { return c.Port > 0 }

// Handler returns the profiler routes under /debug. Loopback callers pass
// freely, everyone else needs basic auth.
func Handler(cfg Config, logger logx.Logger) http.Handler {
	if logger == nil {
		logger = logx.Nop()
	}
	r := chi.NewRouter()
	r.Use(authOrLocalOnly(cfg, logger))
	r.Mount("/debug", middleware.Profiler())
	return r
}

// New returns the debug server, or nil when it is disabled.
func New(cfg Config, logger logx.Logger) *http.Server {
	if !cfg.Enabled() {
		return nil
	}
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           Handler(cfg, logger),
		ReadHeaderTimeout: 5 * time.Second,
		// profile and trace stream for up to their "seconds" parameter
		WriteTimeout: 2 * time.Minute,
	}
}

func authOrLocalOnly(cfg Config, logger logx.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isLoopback(r.RemoteAddr) {
				next.ServeHTTP(w, r)
				return
			}
			u, p, ok := r.BasicAuth()
			if cfg.User == "" || cfg.Pass == "" || !ok || !secureEq(u, cfg.User) || !secureEq(p, cfg.Pass) {
				logger.Warn("debug access denied",
					logx.Event("debug_unauthorized"),
					logx.String("remote", r.RemoteAddr),
					logx.String("path", r.URL.Path),
				)
				w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func secureEq(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func isLoopback(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	ip := net.ParseIP(strings.TrimSpace(host))
	return ip != nil && ip.IsLoopback()
}
