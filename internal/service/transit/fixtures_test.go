package transit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/geo"
	"courier-dispatch/internal/ports/dispatchtx"
	"courier-dispatch/internal/pricing"
	"courier-dispatch/internal/service/dispatch"
	"courier-dispatch/internal/service/transit"
	"courier-dispatch/internal/testutil/memstore"
	"courier-dispatch/internal/testutil/testlog"
)

const (
	providerID    int64 = 7
	originID      int64 = 1
	destinationID int64 = 2
	spareID       int64 = 3
	foreignID     int64 = 9
)

var (
	seller   = geo.Point{Lat: 55.7558, Lng: 37.6173}
	customer = geo.OffsetNorth(seller, 40000)
)

func ptr[T any](v T) *T { return &v }

// fixedQuoter returns one quote for every hop unless the hop's drop has its
// own entry in byDrop.
type fixedQuoter struct {
	mu     sync.Mutex
	calls  int
	byDrop map[geo.Point]pricing.Quote
	err    error
}

func (q *fixedQuoter) Quote(_ context.Context, _, to geo.Point) (pricing.Quote, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	if q.err != nil {
		return pricing.Quote{}, q.err
	}
	if quote, ok := q.byDrop[to]; ok {
		return quote, nil
	}
	return pricing.Quote{
		DistanceKm:       3,
		Payment:          decimal.NewFromInt(150),
		Payout:           decimal.NewFromInt(120),
		Commission:       decimal.NewFromInt(30),
		EstimatedMinutes: 30,
	}, nil
}

func (q *fixedQuoter) priceDrop(to geo.Point, quote pricing.Quote) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.byDrop == nil {
		q.byDrop = map[geo.Point]pricing.Quote{}
	}
	q.byDrop[to] = quote
}

type dispatchRecorder struct {
	mu   sync.Mutex
	jobs []uuid.UUID
	err  error
}

func (d *dispatchRecorder) AssignDispatch(_ context.Context, req dispatch.Request) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, req.JobID)
	if d.err != nil {
		return 0, d.err
	}
	return 1, nil
}

func (d *dispatchRecorder) calls() []uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uuid.UUID(nil), d.jobs...)
}

type settlerRecorder struct {
	mu       sync.Mutex
	settled  []uuid.UUID
	reversed []uuid.UUID
}

func (s *settlerRecorder) Settle(_ context.Context, jobID uuid.UUID) (*domain.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settled = append(s.settled, jobID)
	return &domain.Settlement{JobID: jobID, Status: domain.SettlementSettled}, nil
}

func (s *settlerRecorder) ReverseTx(_ context.Context, _ dispatchtx.Repository, j *domain.Job, _ string,
	now time.Time) (*domain.Settlement, []domain.JobEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reversed = append(s.reversed, j.ID)
	return &domain.Settlement{JobID: j.ID, Status: domain.SettlementReversed, ReversedAt: &now}, nil, nil
}

func (s *settlerRecorder) Reversed(uuid.UUID, string) {}

type env struct {
	store      *memstore.Store
	dispatcher *dispatchRecorder
	settler    *settlerRecorder
	quoter     *fixedQuoter
	logs       *testlog.Recorder
	orch       *transit.Orchestrator
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memstore.New()
	for _, w := range []domain.Warehouse{
		{ID: originID, ProviderID: providerID, Name: "origin", Location: geo.OffsetNorth(seller, 2000)},
		{ID: destinationID, ProviderID: providerID, Name: "destination", Location: geo.OffsetNorth(seller, 35000)},
		{ID: spareID, ProviderID: providerID, Name: "spare", Location: geo.OffsetNorth(seller, 30000)},
		{ID: foreignID, ProviderID: 8, Name: "foreign", Location: geo.OffsetNorth(seller, 20000)},
	} {
		st.PutWarehouse(w)
	}
	e := &env{
		store:      st,
		dispatcher: &dispatchRecorder{},
		settler:    &settlerRecorder{},
		quoter:     &fixedQuoter{},
		logs:       testlog.New(),
	}
	e.orch = transit.NewOrchestrator(st, e.dispatcher, e.settler, e.quoter, nil, time.Second, e.logs.Logger())
	return e
}

func (e *env) createRelayed(t *testing.T, dest *int64) *domain.Job {
	t.Helper()
	j, _, err := e.orch.CreateJob(context.Background(), transit.NewJob{
		PartnerID:              5,
		Pickup:                 seller,
		Drop:                   customer,
		DropAddress:            "customer street 1",
		OriginWarehouseID:      ptr(originID),
		DestinationWarehouseID: dest,
	})
	require.NoError(t, err)
	return j
}

// assign simulates an accepted offer.
func (e *env) assign(t *testing.T, jobID uuid.UUID, courierID int64, kind domain.AssignmentKind) {
	t.Helper()
	j, ok := e.store.Job(jobID)
	require.True(t, ok)
	now := time.Now().UTC()
	j.Status = domain.JobAssigned
	j.Assignment = domain.Assignment{Kind: kind, CourierID: courierID}
	j.AssignedAt = &now
	e.store.PutJob(j)

	c := domain.Courier{ID: courierID, Status: domain.CourierOnline, Approved: true}
	if kind == domain.AssignmentLogistics {
		c.ProviderID = ptr(providerID)
	}
	c.StartTrip(jobID)
	e.store.PutCourier(c)
}

func (e *env) advance(t *testing.T, jobID uuid.UUID, kind domain.TransitEventKind) *domain.Job {
	t.Helper()
	j, err := e.orch.AdvanceLeg(context.Background(), jobID, domain.TransitEvent{Kind: kind})
	require.NoError(t, err)
	return j
}

// carryLeg picks the job up and delivers the current hop.
func (e *env) carryLeg(t *testing.T, jobID uuid.UUID, courierID int64, kind domain.AssignmentKind) *domain.Job {
	t.Helper()
	e.assign(t, jobID, courierID, kind)
	e.advance(t, jobID, domain.TransitPickedUp)
	e.advance(t, jobID, domain.TransitInTransit)
	return e.advance(t, jobID, domain.TransitDelivered)
}
