package dispatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/geo"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/service/dispatch"
	"courier-dispatch/internal/testutil/memstore"
)

var depot = geo.Point{Lat: 55.7558, Lng: 37.6173}

func newCtrl(t *testing.T) *gomock.Controller {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return ctrl
}

func ptr[T any](v T) *T { return &v }

func onlineCourier(id int64, at geo.Point) domain.Courier {
	return domain.Courier{
		ID:             id,
		Name:           "courier",
		Status:         domain.CourierOnline,
		Approved:       true,
		AcceptanceRate: 80,
		Rating:         ptr(4.5),
		CompletedJobs:  12,
		Location:       &at,
	}
}

func searchingJob(pickup geo.Point) domain.Job {
	now := time.Now().UTC()
	return domain.Job{
		ID:        uuid.New(),
		Kind:      domain.JobKindDelivery,
		PartnerID: 1,
		Pickup:    pickup,
		Drop:      geo.OffsetNorth(pickup, 3000),
		Status:    domain.JobSearchingAgent,
		Priority:  domain.PriorityNormal,
		Payment:   decimal.NewFromInt(150),
		Payout:    decimal.NewFromInt(120),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

type offerRecorder struct {
	offers []domain.Offer
}

func (r *offerRecorder) PublishOffer(_ context.Context, o domain.Offer) error {
	r.offers = append(r.offers, o)
	return nil
}

type env struct {
	store  *memstore.Store
	index  *geo.MemoryIndex
	offers *offerRecorder
	svc    *dispatch.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memstore.New()
	idx := geo.NewMemoryIndex()
	rec := &offerRecorder{}
	finder := dispatch.NewFinder(idx, st, logx.Nop())
	b := dispatch.NewBroadcaster(rec, nil, nil, logx.Nop())
	svc := dispatch.NewService(st, finder, b, nil, nil, dispatch.Config{}, logx.Nop())
	return &env{store: st, index: idx, offers: rec, svc: svc}
}

func (e *env) addCourier(t *testing.T, c domain.Courier, indexed bool) {
	t.Helper()
	e.store.PutCourier(c)
	if indexed && c.Location != nil {
		require.NoError(t, e.index.Set(context.Background(), c.ID, *c.Location))
	}
}
