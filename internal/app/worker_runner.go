package app

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/service/delay"
	"courier-dispatch/internal/transport/kafka"
)

// WorkerRunner runs the delay sweep worker.
type WorkerRunner struct {
	runFn func(*dig.Container) error
}

// NewWorkerRunner returns a new WorkerRunner.
func NewWorkerRunner() *WorkerRunner {
	return &WorkerRunner{runFn: runWorker}
}

// MustRun runs the worker and panics on anything but a clean shutdown.
func (r *WorkerRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	panic(err)
}

func runWorker(container *dig.Container) error {
	return container.Invoke(workerRun)
}

func workerRun(ctx context.Context, pool *pgxpool.Pool, logger logx.Logger,
	job *delay.SweepJob, producer *kafka.Producer) error {
	defer closeWorker(pool, logger, producer)

	logger.Info("dispatch-worker started")
	if err := job.Run(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

func closeWorker(pool *pgxpool.Pool, logger logx.Logger, producer *kafka.Producer) {
	if err := producer.Close(); err != nil {
		logger.Error("kafka producer close error", logx.Err(err))
	}
	if pool != nil {
		pool.Close()
	}
}
