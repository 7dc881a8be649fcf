package domain

import (
	"time"

	"courier-dispatch/internal/geo"
)

// LocationUpdate is a single courier position report.
type LocationUpdate struct {
	CourierID  int64
	Point      geo.Point
	RecordedAt time.Time
}
