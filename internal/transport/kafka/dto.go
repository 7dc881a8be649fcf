package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/geo"
)

// LocationDTO is a courier position report on the location topic.
type LocationDTO struct {
	CourierID  int64     `json:"courier_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ToDomain converts the report into a location update.
func (dto LocationDTO) ToDomain() (domain.LocationUpdate, error) {
	if dto.CourierID <= 0 {
		return domain.LocationUpdate{}, fmt.Errorf("courier_id must be positive, got %d", dto.CourierID)
	}
	p := geo.Point{Lat: dto.Lat, Lng: dto.Lng}
	if err := p.Validate(); err != nil {
		return domain.LocationUpdate{}, err
	}
	return domain.LocationUpdate{CourierID: dto.CourierID, Point: p, RecordedAt: dto.RecordedAt.UTC()}, nil
}

// DecodeLocation parses a location message. Every failure is permanent.
func DecodeLocation(b []byte) (domain.LocationUpdate, error) {
	var dto LocationDTO
	if err := json.Unmarshal(b, &dto); err != nil {
		return domain.LocationUpdate{}, Permanent(fmt.Errorf("bad json: %w", err))
	}
	upd, err := dto.ToDomain()
	if err != nil {
		return domain.LocationUpdate{}, Permanent(err)
	}
	return upd, nil
}
