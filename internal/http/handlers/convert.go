package handlers

import (
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/geo"
	"courier-dispatch/internal/service/transit"
)

func (r createJobRequest) toModel() transit.NewJob {
	return transit.NewJob{
		PartnerID:              r.PartnerID,
		Pickup:                 r.Pickup.toGeo(),
		PickupAddress:          r.PickupAddress,
		Drop:                   r.Drop.toGeo(),
		DropAddress:            r.DropAddress,
		Priority:               domain.Priority(r.Priority),
		ProviderID:             r.ProviderID,
		OriginWarehouseID:      r.OriginWarehouseID,
		DestinationWarehouseID: r.DestinationWarehouseID,
	}
}

func pointToDTO(p geo.Point) pointDTO { return pointDTO{Lat: p.Lat, Lng: p.Lng} }

func jobToResponse(j *domain.Job) jobDTO {
	out := jobDTO{
		ID:                 j.ID,
		ParentJobID:        j.ParentJobID,
		Kind:               j.Kind,
		PartnerID:          j.PartnerID,
		Status:             j.Status,
		Priority:           j.Priority,
		Pickup:             pointToDTO(j.Pickup),
		PickupAddress:      j.PickupAddress,
		Drop:               pointToDTO(j.Drop),
		DropAddress:        j.DropAddress,
		AssignmentKind:     j.Assignment.Kind,
		ProviderID:         j.ProviderID,
		OriginWarehouseID:  j.OriginWarehouseID,
		CurrentWarehouseID: j.CurrentWarehouseID,
		DropWarehouseID:    j.DropWarehouseID,
		Payment:            j.Payment.StringFixed(2),
		Payout:             j.Payout.StringFixed(2),
		Commission:         j.Commission.StringFixed(2),
		DistanceKm:         j.DistanceKm,
		EstimatedMinutes:   j.EstimatedMinutes,
		AssignedAt:         j.AssignedAt,
		PickedUpAt:         j.PickedUpAt,
		DeliveredAt:        j.DeliveredAt,
		CancelledAt:        j.CancelledAt,
		CancelReason:       j.CancelReason,
		CreatedAt:          j.CreatedAt,
		UpdatedAt:          j.UpdatedAt,
	}
	if id, ok := j.Assignment.Courier(); ok {
		out.CourierID = &id
	}
	for _, l := range j.Legs {
		out.Legs = append(out.Legs, legDTO{
			Number:          l.Number,
			FromWarehouseID: l.FromWarehouseID,
			ToWarehouseID:   l.ToWarehouseID,
			Status:          l.Status,
			CourierID:       l.CourierID,
			StartedAt:       l.StartedAt,
			CompletedAt:     l.CompletedAt,
		})
	}
	return out
}

func settlementToResponse(s *domain.Settlement) *settlementDTO {
	if s == nil {
		return nil
	}
	return &settlementDTO{
		JobID:         s.JobID,
		CourierID:     s.CourierID,
		Payment:       s.Payment.StringFixed(2),
		CourierShare:  s.CourierShare.StringFixed(2),
		PlatformShare: s.PlatformShare.StringFixed(2),
		Status:        s.Status,
		SettledAt:     s.SettledAt,
		ReversedAt:    s.ReversedAt,
	}
}
