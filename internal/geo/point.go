package geo

import (
	"errors"
	"math"
)

// ErrInvalidPoint is returned for coordinates outside the WGS84 range.
var ErrInvalidPoint = errors.New("geo: invalid coordinate")

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks that the point is a finite coordinate within range.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return ErrInvalidPoint
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return ErrInvalidPoint
	}
	return nil
}

const (
	// EarthRadiusMeters is the mean Earth radius used by the Haversine formula.
	EarthRadiusMeters = 6371008.8
	// DefaultSearchRadiusMeters is the candidate search radius when none is given.
	DefaultSearchRadiusMeters = 5000.0
)

// HaversineMeters returns the great-circle distance between a and b in meters.
func HaversineMeters(a, b Point) float64 {
	const degToRad = math.Pi / 180
	dLat := (b.Lat - a.Lat) * degToRad
	dLng := (b.Lng - a.Lng) * degToRad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*degToRad)*math.Cos(b.Lat*degToRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// HaversineKm is HaversineMeters expressed in kilometers.
func HaversineKm(a, b Point) float64 {
	return HaversineMeters(a, b) / 1000
}

// OffsetNorth returns a point moved meters due north of p. Handy for fixtures.
func OffsetNorth(p Point, meters float64) Point {
	const radToDeg = 180 / math.Pi
	return Point{Lat: p.Lat + (meters/EarthRadiusMeters)*radToDeg, Lng: p.Lng}
}
