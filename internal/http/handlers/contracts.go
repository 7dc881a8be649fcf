package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/geo"
	"courier-dispatch/internal/service/delay"
	"courier-dispatch/internal/service/dispatch"
	"courier-dispatch/internal/service/transit"
)

type orchestrator interface {
	CreateJob(ctx context.Context, in transit.NewJob) (*domain.Job, int, error)
	Job(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	AdvanceLeg(ctx context.Context, jobID uuid.UUID, ev domain.TransitEvent) (*domain.Job, error)
	MarkReadyForNextLeg(ctx context.Context, jobID uuid.UUID, warehouseID int64) (*domain.Job, error)
	ReassignDestination(ctx context.Context, jobID uuid.UUID, warehouseID int64) (*domain.Job, error)
	CancelJob(ctx context.Context, jobID uuid.UUID, reason string) (*transit.CancelResult, error)
}

type dispatcher interface {
	AssignDispatch(ctx context.Context, req dispatch.Request) (int, error)
	AcceptJob(ctx context.Context, jobID uuid.UUID, courierID int64) (*domain.Job, error)
	RejectJob(ctx context.Context, jobID uuid.UUID, courierID int64, reason string) error
}

type settler interface {
	Settle(ctx context.Context, jobID uuid.UUID) (*domain.Settlement, error)
}

type delayMonitor interface {
	Timing(ctx context.Context, jobID uuid.UUID) (*delay.Timing, error)
	Sweep(ctx context.Context) (delay.SweepResult, error)
}

type locationQueue interface {
	Enqueue(ctx context.Context, courierID int64, p geo.Point, at time.Time) error
}
