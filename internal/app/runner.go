package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"
	"golang.org/x/sync/errgroup"

	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/service/location"
	"courier-dispatch/internal/transport/kafka"
)

const shutdownTimeout = 15 * time.Second

// Runner runs the API process: HTTP server, location write-back queue and the
// Kafka location consumer.
type Runner struct {
	runFn func(*dig.Container) error
}

// NewRunner returns a Runner.
func NewRunner() *Runner {
	return &Runner{runFn: run}
}

// MustRun runs the process until its context is done.
func (r *Runner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil {
		return
	}
	logger := containerLogger(container)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("shutdown requested, exiting")
	case errors.Is(err, context.DeadlineExceeded):
		logger.Info("startup aborted: startup timeout exceeded")
	default:
		log.Fatalf("run error: %v", err)
	}
}

func containerLogger(container *dig.Container) logx.Logger {
	var logger logx.Logger = logx.Nop()
	_ = container.Invoke(func(l logx.Logger) { logger = l })
	return logger
}

type apiDeps struct {
	dig.In
	Ctx      context.Context
	Server   *http.Server
	Debug    debugServer `optional:"true"`
	Pool     *pgxpool.Pool
	Logger   logx.Logger
	Queue    *location.Queue
	Consumer *kafka.Consumer
	Producer *kafka.Producer
}

func run(container *dig.Container) error {
	return container.Invoke(apiRun)
}

func apiRun(d apiDeps) error {
	defer closeResources(d)

	g, ctx := errgroup.WithContext(d.Ctx)
	g.Go(func() error {
		d.Logger.Info("dispatch-engine listening", logx.String("addr", d.Server.Addr))
		if err := d.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		d.Logger.Info("shutting down dispatch-engine")
		gracefulShutdown(d.Server, d.Logger, shutdownTimeout)
		return nil
	})
	if dbg := d.Debug.Server; dbg != nil {
		g.Go(func() error {
			d.Logger.Info("debug listener started", logx.String("addr", dbg.Addr))
			if err := dbg.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			gracefulShutdown(dbg, d.Logger, shutdownTimeout)
			return nil
		})
	}
	g.Go(func() error { return d.Queue.Run(ctx) })
	g.Go(func() error { return d.Consumer.Run(ctx) })

	if err := g.Wait(); err != nil {
		return err
	}
	return d.Ctx.Err()
}

func gracefulShutdown(srv *http.Server, logger logx.Logger, timeout time.Duration) {
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warn("graceful shutdown error", logx.Err(err))
	}
}

func closeResources(d apiDeps) {
	if err := d.Consumer.Close(); err != nil {
		d.Logger.Error("kafka consumer close error", logx.Err(err))
	}
	if err := d.Producer.Close(); err != nil {
		d.Logger.Error("kafka producer close error", logx.Err(err))
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
}
