package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"courier-dispatch/internal/geo"
)

// Courier is a fulfilling agent. ProviderID is set for logistics-provider couriers.
type Courier struct {
	ID             int64
	Name           string
	Phone          string
	Status         CourierStatus
	Approved       bool
	Blocked        bool
	ProviderID     *int64
	CurrentJobID   *uuid.UUID
	AcceptanceRate float64
	Rating         *float64
	CompletedJobs  int
	TotalEarnings  decimal.Decimal
	Location       *geo.Point
	LastSeenAt     *time.Time
}

// Eligible reports whether the courier may receive offers at all.
func (c *Courier) Eligible() bool {
	return c.Approved && !c.Blocked && c.Status != CourierOffline
}

// HasActiveJob reports whether bookkeeping shows a current job.
func (c *Courier) HasActiveJob() bool { return c.CurrentJobID != nil }

// InPool reports whether the courier belongs to the given provider pool.
// A nil provider means the regular pool.
func (c *Courier) InPool(providerID *int64) bool {
	if providerID == nil {
		return c.ProviderID == nil
	}
	return c.ProviderID != nil && *c.ProviderID == *providerID
}

// StartTrip attaches the courier to a job.
func (c *Courier) StartTrip(jobID uuid.UUID) {
	id := jobID
	c.CurrentJobID = &id
	c.Status = CourierOnTrip
}

// Release detaches the courier from its job and puts it back online.
func (c *Courier) Release() {
	c.CurrentJobID = nil
	if c.Status == CourierOnTrip {
		c.Status = CourierOnline
	}
}

// Clone returns a deep copy.
func (c Courier) Clone() Courier {
	out := c
	out.ProviderID = cloneInt64(c.ProviderID)
	if c.CurrentJobID != nil {
		id := *c.CurrentJobID
		out.CurrentJobID = &id
	}
	if c.Rating != nil {
		r := *c.Rating
		out.Rating = &r
	}
	if c.Location != nil {
		p := *c.Location
		out.Location = &p
	}
	out.LastSeenAt = cloneTime(c.LastSeenAt)
	return out
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}
