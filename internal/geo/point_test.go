package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHaversineMeters_ZeroDistance(t *testing.T) {
	p := Point{Lat: 55.75, Lng: 37.61}
	require.InDelta(t, 0, HaversineMeters(p, p), 1e-9)
}

func TestHaversineMeters_OneDegreeOfLatitude(t *testing.T) {
	d := HaversineMeters(Point{Lat: 0, Lng: 0}, Point{Lat: 1, Lng: 0})
	require.InDelta(t, 111195, d, 5)
	require.InDelta(t, d/1000, HaversineKm(Point{Lat: 0, Lng: 0}, Point{Lat: 1, Lng: 0}), 1e-9)
}

func TestOffsetNorth_RoundTrips(t *testing.T) {
	origin := Point{Lat: 12.97, Lng: 77.59}
	for _, m := range []float64{200, 2000, 4900} {
		require.InDelta(t, m, HaversineMeters(origin, OffsetNorth(origin, m)), 0.01)
	}
}

func TestPoint_Validate(t *testing.T) {
	require.NoError(t, Point{Lat: 10, Lng: 20}.Validate())
	require.ErrorIs(t, Point{Lat: 91, Lng: 0}.Validate(), ErrInvalidPoint)
	require.ErrorIs(t, Point{Lat: 0, Lng: -181}.Validate(), ErrInvalidPoint)
	require.ErrorIs(t, Point{Lat: math.NaN(), Lng: 0}.Validate(), ErrInvalidPoint)
}
