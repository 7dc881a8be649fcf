package handlers

import (
	"time"

	"github.com/google/uuid"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/geo"
)

type pointDTO struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type createJobRequest struct {
	PartnerID              int64    `json:"partner_id"`
	Pickup                 pointDTO `json:"pickup"`
	PickupAddress          string   `json:"pickup_address,omitempty"`
	Drop                   pointDTO `json:"drop"`
	DropAddress            string   `json:"drop_address,omitempty"`
	Priority               string   `json:"priority,omitempty"`
	ProviderID             *int64   `json:"provider_id,omitempty"`
	OriginWarehouseID      *int64   `json:"origin_warehouse_id,omitempty"`
	DestinationWarehouseID *int64   `json:"destination_warehouse_id,omitempty"`
}

type createJobResponse struct {
	Job        jobDTO `json:"job"`
	OffersSent int    `json:"offers_sent"`
}

type dispatchRequest struct {
	Pickup       *pointDTO `json:"pickup,omitempty"`
	RadiusMeters float64   `json:"radius_m,omitempty"`
	OfferCap     int       `json:"offer_cap,omitempty"`
}

type dispatchResponse struct {
	JobID      uuid.UUID `json:"job_id"`
	OffersSent int       `json:"offers_sent"`
}

type courierActionRequest struct {
	CourierID int64  `json:"courier_id"`
	Reason    string `json:"reason,omitempty"`
}

type transitRequest struct {
	Event       string `json:"event"`
	WarehouseID *int64 `json:"warehouse_id,omitempty"`
}

type warehouseRequest struct {
	WarehouseID int64 `json:"warehouse_id"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type cancelResponse struct {
	Job        jobDTO         `json:"job"`
	RTO        *jobDTO        `json:"rto_job,omitempty"`
	Settlement *settlementDTO `json:"settlement,omitempty"`
}

type locationRequest struct {
	Lat        float64    `json:"lat"`
	Lng        float64    `json:"lng"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

type legDTO struct {
	Number          int              `json:"number"`
	FromWarehouseID *int64           `json:"from_warehouse_id,omitempty"`
	ToWarehouseID   *int64           `json:"to_warehouse_id,omitempty"`
	Status          domain.LegStatus `json:"status"`
	CourierID       *int64           `json:"courier_id,omitempty"`
	StartedAt       *time.Time       `json:"started_at,omitempty"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
}

type jobDTO struct {
	ID                 uuid.UUID             `json:"id"`
	ParentJobID        *uuid.UUID            `json:"parent_job_id,omitempty"`
	Kind               domain.JobKind        `json:"kind"`
	PartnerID          int64                 `json:"partner_id"`
	Status             domain.JobStatus      `json:"status"`
	Priority           domain.Priority       `json:"priority"`
	Pickup             pointDTO              `json:"pickup"`
	PickupAddress      string                `json:"pickup_address,omitempty"`
	Drop               pointDTO              `json:"drop"`
	DropAddress        string                `json:"drop_address,omitempty"`
	AssignmentKind     domain.AssignmentKind `json:"assignment_kind,omitempty"`
	CourierID          *int64                `json:"courier_id,omitempty"`
	ProviderID         *int64                `json:"provider_id,omitempty"`
	OriginWarehouseID  *int64                `json:"origin_warehouse_id,omitempty"`
	CurrentWarehouseID *int64                `json:"current_warehouse_id,omitempty"`
	DropWarehouseID    *int64                `json:"drop_warehouse_id,omitempty"`
	Legs               []legDTO              `json:"legs,omitempty"`
	Payment            string                `json:"payment"`
	Payout             string                `json:"payout"`
	Commission         string                `json:"commission"`
	DistanceKm         float64               `json:"distance_km"`
	EstimatedMinutes   int                   `json:"estimated_minutes"`
	AssignedAt         *time.Time            `json:"assigned_at,omitempty"`
	PickedUpAt         *time.Time            `json:"picked_up_at,omitempty"`
	DeliveredAt        *time.Time            `json:"delivered_at,omitempty"`
	CancelledAt        *time.Time            `json:"cancelled_at,omitempty"`
	CancelReason       string                `json:"cancel_reason,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

type settlementDTO struct {
	JobID         uuid.UUID               `json:"job_id"`
	CourierID     int64                   `json:"courier_id"`
	Payment       string                  `json:"payment"`
	CourierShare  string                  `json:"courier_share"`
	PlatformShare string                  `json:"platform_share"`
	Status        domain.SettlementStatus `json:"status"`
	SettledAt     time.Time               `json:"settled_at"`
	ReversedAt    *time.Time              `json:"reversed_at,omitempty"`
}

func (p pointDTO) toGeo() geo.Point { return geo.Point{Lat: p.Lat, Lng: p.Lng} }
