package domain

// JobStatus is the lifecycle state of a job.
type JobStatus string

// Job lifecycle states.
const (
	JobSearchingAgent JobStatus = "SEARCHING_AGENT"
	JobAssigned       JobStatus = "ASSIGNED"
	JobPickedUp       JobStatus = "PICKED_UP"
	JobInTransit      JobStatus = "IN_TRANSIT"
	JobOutForDelivery JobStatus = "OUT_FOR_DELIVERY"
	JobDelayed        JobStatus = "DELAYED"
	JobAtWarehouse    JobStatus = "AT_WAREHOUSE"
	JobReadyForPickup JobStatus = "READY_FOR_PICKUP"
	JobDelivered      JobStatus = "DELIVERED"
	JobCancelled      JobStatus = "CANCELLED"
)

var allowedJobStatuses = [...]JobStatus{
	JobSearchingAgent, JobAssigned, JobPickedUp, JobInTransit, JobOutForDelivery,
	JobDelayed, JobAtWarehouse, JobReadyForPickup, JobDelivered, JobCancelled,
}

// Valid checks if the JobStatus is one of the known states.
func (s JobStatus) Valid() bool {
	for _, v := range allowedJobStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == JobDelivered || s == JobCancelled
}

// Assignable reports whether a courier may accept a job in this state.
func (s JobStatus) Assignable() bool {
	return s == JobSearchingAgent || s == JobAtWarehouse || s == JobReadyForPickup
}

// ReleasesCourier reports whether a courier pointing at a job in this state is
// logically free to take another one.
func (s JobStatus) ReleasesCourier() bool {
	return s == JobAtWarehouse || s == JobDelivered || s == JobCancelled
}

// Moving reports whether the parcel is physically with a courier.
func (s JobStatus) Moving() bool {
	switch s {
	case JobPickedUp, JobInTransit, JobOutForDelivery, JobDelayed:
		return true
	default:
		return false
	}
}

// InTransitStatuses are the states watched by the delay sweep.
var InTransitStatuses = []JobStatus{JobPickedUp, JobInTransit, JobOutForDelivery, JobDelayed}

// CourierStatus is the presence state of a courier.
type CourierStatus string

// Courier presence states.
const (
	CourierOffline CourierStatus = "OFFLINE"
	CourierOnline  CourierStatus = "ONLINE"
	CourierOnTrip  CourierStatus = "ON_TRIP"
)

// Valid checks if the CourierStatus is valid.
func (s CourierStatus) Valid() bool {
	return s == CourierOffline || s == CourierOnline || s == CourierOnTrip
}

// LegStatus is the state of a single transit leg.
type LegStatus string

// Leg states.
const (
	LegPending   LegStatus = "PENDING"
	LegInTransit LegStatus = "IN_TRANSIT"
	LegCompleted LegStatus = "COMPLETED"
)

// Priority is the dispatch priority class of a job.
type Priority string

// Priority classes.
const (
	PriorityHigh   Priority = "HIGH"
	PriorityNormal Priority = "NORMAL"
	PriorityLow    Priority = "LOW"
)

// Valid checks if the Priority is known. Empty is not valid; use Normalize first.
func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityNormal || p == PriorityLow
}

// Normalize maps an empty priority to NORMAL.
func (p Priority) Normalize() Priority {
	if p == "" {
		return PriorityNormal
	}
	return p
}
