package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"courier-dispatch/internal/app"
)

// The worker runs the delay sweep on its cron schedule. Exactly one replica
// should run it; the sweep's compare-and-set flips keep overlapping runs safe.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	container := app.MustBuildWorkerContainer(ctx)
	log.Println("dispatch-worker starting")
	app.NewWorkerRunner().MustRun(container)
}
