package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"courier-dispatch/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container := app.MustBuildContainer(ctx)
	log.Println("dispatch-engine starting")
	app.NewRunner().MustRun(container)
}
