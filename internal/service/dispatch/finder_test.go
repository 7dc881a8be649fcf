package dispatch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/geo"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/service/dispatch"
	"courier-dispatch/internal/testutil/testlog"
)

type failingIndex struct{ geo.Index }

func (failingIndex) Within(context.Context, geo.Point, float64) ([]geo.Hit, error) {
	return nil, errors.New("index down")
}

func threeCouriers() []domain.Courier {
	return []domain.Courier{
		onlineCourier(1, geo.OffsetNorth(depot, 200)),
		onlineCourier(2, geo.OffsetNorth(depot, 2000)),
		onlineCourier(3, geo.OffsetNorth(depot, 4900)),
	}
}

func TestFinder_IndexRadius(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	for _, c := range threeCouriers() {
		e.addCourier(t, c, true)
	}
	f := dispatch.NewFinder(e.index, e.store, logx.Nop())

	got, _, err := f.Find(context.Background(), depot, 5000, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, []int64{1, 2, 3}, []int64{got[0].CourierID, got[1].CourierID, got[2].CourierID})

	got, _, err = f.Find(context.Background(), depot, 1000, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int64(1), got[0].CourierID)
	require.InDelta(t, 200, got[0].DistanceMeters, 1)
}

func TestFinder_FallbackScanWhenIndexEmpty(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	for _, c := range threeCouriers() {
		e.addCourier(t, c, false)
	}
	noLocation := onlineCourier(4, depot)
	noLocation.Location = nil
	e.addCourier(t, noLocation, false)
	blocked := onlineCourier(5, depot)
	blocked.Blocked = true
	e.addCourier(t, blocked, false)

	f := dispatch.NewFinder(e.index, e.store, logx.Nop())

	got, couriers, err := f.Find(context.Background(), depot, 5000, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Len(t, couriers, 3)

	got, _, err = f.Find(context.Background(), depot, 1000, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int64(1), got[0].CourierID)
}

func TestFinder_FallbackScanWhenIndexFails(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	for _, c := range threeCouriers() {
		e.addCourier(t, c, false)
	}
	rec := testlog.New()
	f := dispatch.NewFinder(failingIndex{}, e.store, rec.Logger())

	got, _, err := f.Find(context.Background(), depot, 5000, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Len(t, rec.WithEvent("geo_index_fallback"), 1)
}

func TestFinder_FiltersIneligibleAndOtherPools(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	offline := onlineCourier(1, geo.OffsetNorth(depot, 100))
	offline.Status = domain.CourierOffline
	logistics := onlineCourier(2, geo.OffsetNorth(depot, 150))
	logistics.ProviderID = ptr(int64(7))
	regular := onlineCourier(3, geo.OffsetNorth(depot, 300))
	for _, c := range []domain.Courier{offline, logistics, regular} {
		e.addCourier(t, c, true)
	}
	f := dispatch.NewFinder(e.index, e.store, logx.Nop())

	got, _, err := f.Find(context.Background(), depot, 5000, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int64(3), got[0].CourierID)

	got, _, err = f.Find(context.Background(), depot, 5000, ptr(int64(7)))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int64(2), got[0].CourierID)
}

func TestFinder_InvalidPickup(t *testing.T) {
	t.Parallel()

	ctrl := newCtrl(t)
	lister := NewMockcourierLister(ctrl)
	f := dispatch.NewFinder(nil, lister, logx.Nop())

	_, _, err := f.Find(context.Background(), geo.Point{Lat: 100}, 5000, nil)
	require.ErrorIs(t, err, geo.ErrInvalidPoint)
}

func TestFinder_ListerErrorPropagates(t *testing.T) {
	t.Parallel()

	ctrl := newCtrl(t)
	lister := NewMockcourierLister(ctrl)
	boom := errors.New("db down")
	lister.EXPECT().ListOnlineCouriers(gomock.Any(), gomock.Nil()).Return(nil, boom)

	f := dispatch.NewFinder(nil, lister, logx.Nop())
	_, _, err := f.Find(context.Background(), depot, 5000, nil)
	require.ErrorIs(t, err, boom)
}
