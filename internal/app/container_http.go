package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/dig"

	"courier-dispatch/internal/http/handlers"
	"courier-dispatch/internal/config"
	"courier-dispatch/internal/http/middleware/ratelimit"
	"courier-dispatch/internal/http/pprofserver"
	"courier-dispatch/internal/http/router"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/metrics"
	"courier-dispatch/internal/service/delay"
	"courier-dispatch/internal/service/dispatch"
	"courier-dispatch/internal/service/ledger"
	"courier-dispatch/internal/service/location"
	"courier-dispatch/internal/service/transit"
)

func newBaseHandlers(logger logx.Logger) *handlers.Handlers {
	return handlers.New(logger)
}

func newJobHandler(logger logx.Logger, o *transit.Orchestrator, d *dispatch.Service,
	l *ledger.Service, m *delay.Monitor) *handlers.JobHandler {
	return handlers.NewJobHandler(component(logger, "http"), o, d, l, m)
}

func newCourierHandler(logger logx.Logger, q *location.Queue) *handlers.CourierHandler {
	return handlers.NewCourierHandler(component(logger, "http"), q)
}

type routerIn struct {
	dig.In
	Logger        logx.Logger
	Registry      *prometheus.Registry
	HTTPMetrics   metrics.HTTP
	Base          *handlers.Handlers
	Jobs          *handlers.JobHandler
	Couriers      *handlers.CourierHandler
	LocationLimit *ratelimit.Middleware
}

func newRouter(in routerIn) http.Handler {
	return router.New(router.Deps{
		Base:          in.Base,
		Jobs:          in.Jobs,
		Couriers:      in.Couriers,
		Logger:        component(in.Logger, "http"),
		HTTPMetrics:   in.HTTPMetrics,
		Metrics:       promhttp.HandlerFor(in.Registry, promhttp.HandlerOpts{Registry: in.Registry}),
		LocationLimit: in.LocationLimit,
	})
}

// debugServer wraps the optional profiler listener; Server is nil when disabled.
type debugServer struct {
	Server *http.Server
}

func newDebugServer(cfg *config.Config, logger logx.Logger) debugServer {
	return debugServer{Server: pprofserver.New(pprofserver.Config{
		Port: cfg.Debug.Port,
		User: cfg.Debug.User,
		Pass: cfg.Debug.Pass,
	}, component(logger, "debug"))}
}
