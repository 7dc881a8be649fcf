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

type stubOrchestrator struct {
	createFn  func(ctx context.Context, in transit.NewJob) (*domain.Job, int, error)
	jobFn     func(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	advanceFn func(ctx context.Context, id uuid.UUID, ev domain.TransitEvent) (*domain.Job, error)
	readyFn   func(ctx context.Context, id uuid.UUID, warehouseID int64) (*domain.Job, error)
	destFn    func(ctx context.Context, id uuid.UUID, warehouseID int64) (*domain.Job, error)
	cancelFn  func(ctx context.Context, id uuid.UUID, reason string) (*transit.CancelResult, error)
}

func (s *stubOrchestrator) CreateJob(ctx context.Context, in transit.NewJob) (*domain.Job, int, error) {
	if s.createFn == nil {
		panic("CreateJob not expected in this test")
	}
	return s.createFn(ctx, in)
}

func (s *stubOrchestrator) Job(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	if s.jobFn == nil {
		panic("Job not expected in this test")
	}
	return s.jobFn(ctx, id)
}

func (s *stubOrchestrator) AdvanceLeg(ctx context.Context, id uuid.UUID, ev domain.TransitEvent) (*domain.Job, error) {
	if s.advanceFn == nil {
		panic("AdvanceLeg not expected in this test")
	}
	return s.advanceFn(ctx, id, ev)
}

func (s *stubOrchestrator) MarkReadyForNextLeg(ctx context.Context, id uuid.UUID, warehouseID int64) (*domain.Job, error) {
	if s.readyFn == nil {
		panic("MarkReadyForNextLeg not expected in this test")
	}
	return s.readyFn(ctx, id, warehouseID)
}

func (s *stubOrchestrator) ReassignDestination(ctx context.Context, id uuid.UUID, warehouseID int64) (*domain.Job, error) {
	if s.destFn == nil {
		panic("ReassignDestination not expected in this test")
	}
	return s.destFn(ctx, id, warehouseID)
}

func (s *stubOrchestrator) CancelJob(ctx context.Context, id uuid.UUID, reason string) (*transit.CancelResult, error) {
	if s.cancelFn == nil {
		panic("CancelJob not expected in this test")
	}
	return s.cancelFn(ctx, id, reason)
}

type stubDispatcher struct {
	assignFn func(ctx context.Context, req dispatch.Request) (int, error)
	acceptFn func(ctx context.Context, id uuid.UUID, courierID int64) (*domain.Job, error)
	rejectFn func(ctx context.Context, id uuid.UUID, courierID int64, reason string) error
}

func (s *stubDispatcher) AssignDispatch(ctx context.Context, req dispatch.Request) (int, error) {
	if s.assignFn == nil {
		panic("AssignDispatch not expected in this test")
	}
	return s.assignFn(ctx, req)
}

func (s *stubDispatcher) AcceptJob(ctx context.Context, id uuid.UUID, courierID int64) (*domain.Job, error) {
	if s.acceptFn == nil {
		panic("AcceptJob not expected in this test")
	}
	return s.acceptFn(ctx, id, courierID)
}

func (s *stubDispatcher) RejectJob(ctx context.Context, id uuid.UUID, courierID int64, reason string) error {
	if s.rejectFn == nil {
		panic("RejectJob not expected in this test")
	}
	return s.rejectFn(ctx, id, courierID, reason)
}

type stubSettler struct {
	settleFn func(ctx context.Context, id uuid.UUID) (*domain.Settlement, error)
}

func (s *stubSettler) Settle(ctx context.Context, id uuid.UUID) (*domain.Settlement, error) {
	if s.settleFn == nil {
		panic("Settle not expected in this test")
	}
	return s.settleFn(ctx, id)
}

type stubDelays struct {
	timingFn func(ctx context.Context, id uuid.UUID) (*delay.Timing, error)
	sweepFn  func(ctx context.Context) (delay.SweepResult, error)
}

func (s *stubDelays) Timing(ctx context.Context, id uuid.UUID) (*delay.Timing, error) {
	if s.timingFn == nil {
		panic("Timing not expected in this test")
	}
	return s.timingFn(ctx, id)
}

func (s *stubDelays) Sweep(ctx context.Context) (delay.SweepResult, error) {
	if s.sweepFn == nil {
		panic("Sweep not expected in this test")
	}
	return s.sweepFn(ctx)
}

type queuedPing struct {
	courierID int64
	point     geo.Point
	at        time.Time
}

type stubQueue struct {
	err   error
	pings []queuedPing
}

func (s *stubQueue) Enqueue(_ context.Context, courierID int64, p geo.Point, at time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.pings = append(s.pings, queuedPing{courierID: courierID, point: p, at: at})
	return nil
}
