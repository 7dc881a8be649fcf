// Package router assembles the chi routing tree.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"courier-dispatch/internal/http/handlers"
	mw "courier-dispatch/internal/http/middleware"
	"courier-dispatch/internal/http/middleware/ratelimit"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/metrics"
)

// Deps are the handlers and middleware mounted by New.
type Deps struct {
	Base     *handlers.Handlers
	Jobs     *handlers.JobHandler
	Couriers *handlers.CourierHandler

	Logger         logx.Logger
	HTTPMetrics    metrics.HTTP
	Metrics        http.Handler // served at /metrics; nil uses the default registry
	LocationLimit  *ratelimit.Middleware
	RequestTimeout time.Duration
}

// New constructs a chi-based http.Handler with base middleware and routes.
func New(d Deps) http.Handler {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 5 * time.Second
	}
	if d.Metrics == nil {
		d.Metrics = promhttp.Handler()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Observability(d.Logger, d.HTTPMetrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(d.RequestTimeout))

	r.Get("/ping", d.Base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(d.Base.HealthcheckHead))
	r.Method(http.MethodGet, "/metrics", d.Metrics)

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", d.Jobs.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", d.Jobs.Get)
			r.Get("/timing", d.Jobs.Timing)
			r.Post("/dispatch", d.Jobs.Dispatch)
			r.Post("/accept", d.Jobs.Accept)
			r.Post("/reject", d.Jobs.Reject)
			r.Post("/transit", d.Jobs.Transit)
			r.Post("/ready", d.Jobs.Ready)
			r.Put("/destination", d.Jobs.Destination)
			r.Post("/cancel", d.Jobs.Cancel)
			r.Post("/settle", d.Jobs.Settle)
		})
	})
	r.Post("/delays/sweep", d.Jobs.SweepDelays)

	location := http.HandlerFunc(d.Couriers.Location)
	if d.LocationLimit != nil {
		r.With(d.LocationLimit.Handler()).Post("/couriers/{id}/location", location)
	} else {
		r.Post("/couriers/{id}/location", location)
	}

	r.NotFound(http.HandlerFunc(d.Base.NotFound))

	return r
}
