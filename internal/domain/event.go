package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"courier-dispatch/internal/apperr"
)

// EventType names an entry of the job event log.
type EventType string

// Job event types.
const (
	EventJobCreated          EventType = "job_created"
	EventDispatchOffered     EventType = "dispatch_offered"
	EventJobAccepted         EventType = "job_accepted"
	EventJobRejected         EventType = "job_rejected"
	EventJobPickedUp         EventType = "job_picked_up"
	EventJobInTransit        EventType = "job_in_transit"
	EventJobOutForDelivery   EventType = "job_out_for_delivery"
	EventJobDelivered        EventType = "job_delivered"
	EventArrivedAtWarehouse  EventType = "arrived_at_warehouse"
	EventReadyForPickup      EventType = "ready_for_pickup"
	EventDestinationChanged  EventType = "destination_changed"
	EventJobCancelled        EventType = "job_cancelled"
	EventRTOCreated          EventType = "rto_created"
	EventJobDelayed          EventType = "job_delayed"
	EventJobDelayCleared     EventType = "job_delay_cleared"
	EventSettled             EventType = "job_settled"
	EventSettlementReversed  EventType = "settlement_reversed"
	EventStaleAssignmentDrop EventType = "stale_assignment_cleared"
)

// JobEvent is an append-only audit record, also fanned out to partners.
type JobEvent struct {
	ID        uuid.UUID         `json:"id"`
	JobID     uuid.UUID         `json:"job_id"`
	Type      EventType         `json:"type"`
	Status    JobStatus         `json:"status"`
	CourierID *int64            `json:"courier_id,omitempty"`
	Payload   map[string]string `json:"payload,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewJobEvent builds an event for a job in its current state.
func NewJobEvent(j *Job, t EventType, now time.Time, payload map[string]string) JobEvent {
	ev := JobEvent{
		ID:        uuid.New(),
		JobID:     j.ID,
		Type:      t,
		Status:    j.Status,
		Payload:   payload,
		CreatedAt: now,
	}
	if id, ok := j.Assignment.Courier(); ok {
		ev.CourierID = &id
	}
	return ev
}

// TransitEventKind is the tagged kind of a courier-reported progress event.
type TransitEventKind string

// Transit event kinds.
const (
	TransitPickedUp           TransitEventKind = "PICKED_UP"
	TransitInTransit          TransitEventKind = "IN_TRANSIT"
	TransitOutForDelivery     TransitEventKind = "OUT_FOR_DELIVERY"
	TransitDelivered          TransitEventKind = "DELIVERED"
	TransitArrivedAtWarehouse TransitEventKind = "ARRIVED_AT_WAREHOUSE"
)

// TransitEvent is decided once at the API boundary and never re-derived from text.
type TransitEvent struct {
	Kind        TransitEventKind
	WarehouseID *int64
}

// ParseTransitEvent validates a raw event kind from a request.
func ParseTransitEvent(kind string, warehouseID *int64) (TransitEvent, error) {
	k := TransitEventKind(strings.ToUpper(strings.TrimSpace(kind)))
	switch k {
	case TransitPickedUp, TransitInTransit, TransitOutForDelivery, TransitDelivered:
		return TransitEvent{Kind: k, WarehouseID: warehouseID}, nil
	case TransitArrivedAtWarehouse:
		if warehouseID == nil || *warehouseID <= 0 {
			return TransitEvent{}, fmt.Errorf("%w: warehouse_id required for %s", apperr.ErrInvalid, k)
		}
		return TransitEvent{Kind: k, WarehouseID: warehouseID}, nil
	default:
		return TransitEvent{}, fmt.Errorf("%w: unknown transit event %q", apperr.ErrInvalid, kind)
	}
}
