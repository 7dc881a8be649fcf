package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/geo"
)

// JobKind distinguishes regular deliveries from synthesized return jobs.
type JobKind string

// Job kinds.
const (
	JobKindDelivery JobKind = "DELIVERY"
	JobKindRTO      JobKind = "RTO"
)

// Leg numbers of a warehouse-relayed route.
const (
	LegSellerToOrigin      = 1
	LegOriginToDestination = 2
	LegDestinationToDrop   = 3
)

// TransitLeg is one hop of a warehouse-relayed job. Legs are append-only and
// mutated in place by number.
type TransitLeg struct {
	Number          int        `json:"number"`
	FromWarehouseID *int64     `json:"from_warehouse_id,omitempty"`
	FromName        string     `json:"from_name,omitempty"`
	ToWarehouseID   *int64     `json:"to_warehouse_id,omitempty"`
	ToName          string     `json:"to_name,omitempty"`
	Status          LegStatus  `json:"status"`
	CourierID       *int64     `json:"courier_id,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Job is a single delivery request. A job with a non-nil DropWarehouseID is an
// intermediate leg: its "delivered" event means arrival at that warehouse.
type Job struct {
	ID          uuid.UUID
	ParentJobID *uuid.UUID
	Kind        JobKind
	PartnerID   int64

	Pickup        geo.Point
	PickupAddress string
	Drop          geo.Point
	DropAddress   string
	// FinalDrop keeps the customer coordinate while the job is relayed through warehouses.
	FinalDrop        *geo.Point
	FinalDropAddress string

	Status     JobStatus
	Assignment Assignment
	Priority   Priority

	ProviderID         *int64
	OriginWarehouseID  *int64
	CurrentWarehouseID *int64
	DropWarehouseID    *int64
	Legs               []TransitLeg

	Payment          decimal.Decimal
	Payout           decimal.Decimal
	Commission       decimal.Decimal
	DistanceKm       float64
	EstimatedMinutes int

	AssignedAt   *time.Time
	PickedUpAt   *time.Time
	DeliveredAt  *time.Time
	CancelledAt  *time.Time
	CancelReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Leg returns the leg with the given number or nil.
func (j *Job) Leg(n int) *TransitLeg {
	for i := range j.Legs {
		if j.Legs[i].Number == n {
			return &j.Legs[i]
		}
	}
	return nil
}

// Relayed reports whether the job travels through warehouses.
func (j *Job) Relayed() bool { return len(j.Legs) > 0 }

// Intermediate reports whether the current drop is a warehouse.
func (j *Job) Intermediate() bool { return j.DropWarehouseID != nil }

// LegCompleted reports whether leg n exists and is completed.
func (j *Job) LegCompleted(n int) bool {
	l := j.Leg(n)
	return l != nil && l.Status == LegCompleted
}

// InLogisticsPhase reports whether the job waits for or travels with a
// logistics courier: leg 1 is done and leg 2 is not.
func (j *Job) InLogisticsPhase() bool {
	return j.ProviderID != nil && j.LegCompleted(LegSellerToOrigin) && !j.LegCompleted(LegOriginToDestination)
}

// AwaitingDestination reports whether the job is in its logistics phase but
// leg 2 has no destination warehouse yet. Such a job cannot be carried.
func (j *Job) AwaitingDestination() bool {
	if !j.InLogisticsPhase() {
		return false
	}
	leg := j.Leg(LegOriginToDestination)
	return leg == nil || leg.ToWarehouseID == nil
}

// ActiveLegNumber returns the first leg that is not completed, or 0.
func (j *Job) ActiveLegNumber() int {
	for _, l := range j.Legs {
		if l.Status != LegCompleted {
			return l.Number
		}
	}
	return 0
}

// CheckInvariants validates structural rules that must hold on every write.
func (j *Job) CheckInvariants() error {
	if !j.Status.Valid() {
		return fmt.Errorf("%w: unknown job status %q", apperr.ErrInvalid, j.Status)
	}
	switch j.Assignment.Kind {
	case AssignmentNone:
		if j.Assignment.CourierID != 0 {
			return fmt.Errorf("%w: courier id without assignment kind", apperr.ErrInvalid)
		}
	case AssignmentRegular, AssignmentLogistics:
		if j.Assignment.CourierID <= 0 {
			return fmt.Errorf("%w: assignment without courier", apperr.ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown assignment kind %q", apperr.ErrInvalid, j.Assignment.Kind)
	}

	prev := 0
	for _, l := range j.Legs {
		if l.Number <= prev || l.Number > LegDestinationToDrop {
			return fmt.Errorf("%w: legs out of order", apperr.ErrInvalid)
		}
		prev = l.Number
	}
	if leg := j.Leg(LegOriginToDestination); leg != nil && leg.ToWarehouseID != nil && j.OriginWarehouseID != nil &&
		*leg.ToWarehouseID == *j.OriginWarehouseID {
		return fmt.Errorf("%w: destination warehouse equals origin warehouse", apperr.ErrInvalid)
	}
	return nil
}

// Clone returns a deep copy.
func (j Job) Clone() Job {
	out := j
	if j.ParentJobID != nil {
		id := *j.ParentJobID
		out.ParentJobID = &id
	}
	if j.FinalDrop != nil {
		p := *j.FinalDrop
		out.FinalDrop = &p
	}
	out.ProviderID = cloneInt64(j.ProviderID)
	out.OriginWarehouseID = cloneInt64(j.OriginWarehouseID)
	out.CurrentWarehouseID = cloneInt64(j.CurrentWarehouseID)
	out.DropWarehouseID = cloneInt64(j.DropWarehouseID)
	if j.Legs != nil {
		out.Legs = make([]TransitLeg, len(j.Legs))
		for i, l := range j.Legs {
			l.FromWarehouseID = cloneInt64(l.FromWarehouseID)
			l.ToWarehouseID = cloneInt64(l.ToWarehouseID)
			l.CourierID = cloneInt64(l.CourierID)
			l.StartedAt = cloneTime(l.StartedAt)
			l.CompletedAt = cloneTime(l.CompletedAt)
			out.Legs[i] = l
		}
	}
	out.AssignedAt = cloneTime(j.AssignedAt)
	out.PickedUpAt = cloneTime(j.PickedUpAt)
	out.DeliveredAt = cloneTime(j.DeliveredAt)
	out.CancelledAt = cloneTime(j.CancelledAt)
	return out
}
