package pricing_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"courier-dispatch/internal/config"
	"courier-dispatch/internal/geo"
	"courier-dispatch/internal/pricing"
)

func newQuoter(t *testing.T) *pricing.DistanceQuoter {
	t.Helper()
	q, err := pricing.NewDistanceQuoter(config.Pricing{
		BaseFare:      "30",
		PerKm:         "10",
		CommissionPct: "0.2",
		SpeedKmh:      30,
	})
	require.NoError(t, err)
	return q
}

func TestDistanceQuoter_Quote(t *testing.T) {
	t.Parallel()

	q := newQuoter(t)
	pickup := geo.Point{Lat: 55.75, Lng: 37.61}
	drop := geo.OffsetNorth(pickup, 10000)

	got, err := q.Quote(context.Background(), pickup, drop)
	require.NoError(t, err)

	require.InDelta(t, 10.0, got.DistanceKm, 0.01)
	require.True(t, got.Payment.Equal(decimal.RequireFromString("130")), "payment=%s", got.Payment)
	require.True(t, got.Commission.Equal(decimal.RequireFromString("26")), "commission=%s", got.Commission)
	require.True(t, got.Payout.Equal(decimal.RequireFromString("104")), "payout=%s", got.Payout)
	require.InDelta(t, 20, got.EstimatedMinutes, 1)
}

func TestDistanceQuoter_ShortHopHasMinimumEstimate(t *testing.T) {
	t.Parallel()

	q := newQuoter(t)
	p := geo.Point{Lat: 55.75, Lng: 37.61}

	got, err := q.Quote(context.Background(), p, geo.OffsetNorth(p, 100))
	require.NoError(t, err)
	require.Equal(t, 5, got.EstimatedMinutes)
	require.True(t, got.Payout.Add(got.Commission).Equal(got.Payment))
}

func TestDistanceQuoter_InvalidPoint(t *testing.T) {
	t.Parallel()

	q := newQuoter(t)
	_, err := q.Quote(context.Background(), geo.Point{Lat: 91}, geo.Point{})
	require.ErrorIs(t, err, geo.ErrInvalidPoint)
}

func TestNewDistanceQuoter_InvalidConfig(t *testing.T) {
	t.Parallel()

	cases := map[string]config.Pricing{
		"bad fare":       {BaseFare: "x", PerKm: "1", CommissionPct: "0.1", SpeedKmh: 10},
		"bad commission": {BaseFare: "1", PerKm: "1", CommissionPct: "1.5", SpeedKmh: 10},
		"zero speed":     {BaseFare: "1", PerKm: "1", CommissionPct: "0.1"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := pricing.NewDistanceQuoter(cfg)
			require.Error(t, err)
		})
	}
}
