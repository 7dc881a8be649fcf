package transit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/ports/dispatchtx"
)

// AdvanceLeg applies a courier-reported transit event. A delivery on a job
// whose drop is a warehouse is recorded as arrival at that warehouse.
func (o *Orchestrator) AdvanceLeg(ctx context.Context, jobID uuid.UUID, ev domain.TransitEvent) (*domain.Job, error) {
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	var (
		job    *domain.Job
		events []domain.JobEvent
	)
	err := o.inTx(ctx, false, nil, func(tx dispatchtx.Repository, q quotes) error {
		j, err := loadJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if j.Status.Terminal() {
			return fmt.Errorf("%w: job %s is %s", apperr.ErrInvalid, j.ID, j.Status)
		}

		now := o.now()
		evs := &txEvents{tx: tx, now: now}
		switch ev.Kind {
		case domain.TransitPickedUp:
			err = o.pickUp(ctx, evs, j)
		case domain.TransitInTransit:
			err = o.move(ctx, evs, j, domain.JobInTransit, domain.EventJobInTransit)
		case domain.TransitOutForDelivery:
			err = o.move(ctx, evs, j, domain.JobOutForDelivery, domain.EventJobOutForDelivery)
		case domain.TransitDelivered:
			err = o.deliver(ctx, evs, q, j)
		case domain.TransitArrivedAtWarehouse:
			if !j.Status.Moving() {
				return fmt.Errorf("%w: job %s is not moving", apperr.ErrInvalid, j.ID)
			}
			if ev.WarehouseID == nil {
				return fmt.Errorf("%w: warehouse id is required", apperr.ErrInvalid)
			}
			err = o.arriveAtWarehouse(ctx, evs, q, j, *ev.WarehouseID)
		default:
			return fmt.Errorf("%w: unknown transit event %q", apperr.ErrInvalid, ev.Kind)
		}
		if err != nil {
			return err
		}

		j.UpdatedAt = now
		if err := tx.UpdateJob(ctx, j); err != nil {
			return err
		}
		job, events = j, evs.out
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.notifier.Publish(ctx, events...)
	o.logger.Info("job advanced",
		logx.Event("job_advanced"),
		logx.String("job_id", job.ID.String()),
		logx.String("transit_event", string(ev.Kind)),
		logx.String("status", string(job.Status)),
	)

	if job.Status == domain.JobDelivered && job.Kind != domain.JobKindRTO {
		o.settle(ctx, job.ID)
	}
	return job, nil
}

func (o *Orchestrator) settle(ctx context.Context, jobID uuid.UUID) {
	if o.settler == nil {
		return
	}
	if _, err := o.settler.Settle(ctx, jobID); err != nil {
		o.logger.Error("settlement failed after delivery",
			logx.Event("settlement_failed"),
			logx.String("job_id", jobID.String()),
			logx.Err(err),
		)
	}
}

func (o *Orchestrator) pickUp(ctx context.Context, evs *txEvents, j *domain.Job) error {
	if j.Status != domain.JobAssigned {
		return fmt.Errorf("%w: job %s is %s, want %s", apperr.ErrInvalid, j.ID, j.Status, domain.JobAssigned)
	}
	j.Status = domain.JobPickedUp
	now := evs.now
	j.PickedUpAt = &now
	if n := j.ActiveLegNumber(); n != 0 {
		leg := j.Leg(n)
		leg.Status = domain.LegInTransit
		leg.StartedAt = &now
		if id, ok := j.Assignment.Courier(); ok {
			leg.CourierID = &id
		}
	}
	return evs.add(ctx, j, domain.EventJobPickedUp, nil)
}

func (o *Orchestrator) move(ctx context.Context, evs *txEvents, j *domain.Job, to domain.JobStatus, t domain.EventType) error {
	if !j.Status.Moving() {
		return fmt.Errorf("%w: job %s is %s and cannot move to %s", apperr.ErrInvalid, j.ID, j.Status, to)
	}
	if j.Status == to {
		return nil
	}
	j.Status = to
	return evs.add(ctx, j, t, nil)
}

func (o *Orchestrator) deliver(ctx context.Context, evs *txEvents, q quotes, j *domain.Job) error {
	if !j.Status.Moving() {
		return fmt.Errorf("%w: job %s is %s and cannot be delivered", apperr.ErrInvalid, j.ID, j.Status)
	}
	if j.Intermediate() {
		return o.arriveAtWarehouse(ctx, evs, q, j, *j.DropWarehouseID)
	}
	if j.Relayed() && j.Leg(domain.LegDestinationToDrop) == nil {
		return fmt.Errorf("%w: job %s has no destination warehouse yet", apperr.ErrInvalid, j.ID)
	}

	now := evs.now
	if err := releaseCourier(ctx, evs.tx, j); err != nil {
		return err
	}
	j.Status = domain.JobDelivered
	j.DeliveredAt = &now
	if leg := j.Leg(domain.LegDestinationToDrop); leg != nil {
		leg.Status = domain.LegCompleted
		leg.CompletedAt = &now
	}
	return evs.add(ctx, j, domain.EventJobDelivered, nil)
}

// arriveAtWarehouse completes the leg ending at warehouseID and parks the job
// there, priced for the hop that follows. Leg 2 completion re-targets the job
// at the final customer as leg 3.
func (o *Orchestrator) arriveAtWarehouse(ctx context.Context, evs *txEvents, q quotes, j *domain.Job, warehouseID int64) error {
	leg1 := j.Leg(domain.LegSellerToOrigin)
	leg2 := j.Leg(domain.LegOriginToDestination)

	var completed int
	switch {
	case leg1 != nil && leg1.Status != domain.LegCompleted && sameID(leg1.ToWarehouseID, warehouseID):
		completed = domain.LegSellerToOrigin
	case leg2 != nil && leg2.Status != domain.LegCompleted && sameID(leg2.ToWarehouseID, warehouseID):
		completed = domain.LegOriginToDestination
	default:
		return fmt.Errorf("%w: warehouse %d does not end an open leg of job %s", apperr.ErrInvalid, warehouseID, j.ID)
	}

	w, err := loadWarehouse(ctx, evs.tx, warehouseID)
	if err != nil {
		return err
	}
	if err := releaseCourier(ctx, evs.tx, j); err != nil {
		return err
	}

	now := evs.now
	leg := j.Leg(completed)
	leg.Status = domain.LegCompleted
	leg.CompletedAt = &now

	j.Status = domain.JobAtWarehouse
	j.Assignment = domain.Unassigned()
	j.AssignedAt = nil
	j.PickedUpAt = nil
	j.CurrentWarehouseID = &w.ID
	j.Pickup = w.Location
	j.PickupAddress = w.Address

	switch completed {
	case domain.LegSellerToOrigin:
		j.DropWarehouseID = nil
		if leg2 != nil && leg2.ToWarehouseID != nil {
			dest, err := loadWarehouse(ctx, evs.tx, *leg2.ToWarehouseID)
			if err != nil {
				return err
			}
			j.Drop = dest.Location
			j.DropAddress = dest.Address
			j.DropWarehouseID = &dest.ID
			if err := q.price(j); err != nil {
				return err
			}
		}
	case domain.LegOriginToDestination:
		if err := openFinalLeg(j, w); err != nil {
			return err
		}
		if err := q.price(j); err != nil {
			return err
		}
	}

	return evs.add(ctx, j, domain.EventArrivedAtWarehouse, map[string]string{
		"warehouse_id": strconv.FormatInt(w.ID, 10),
		"leg":          strconv.Itoa(completed),
	})
}

// openFinalLeg appends leg 3 from the destination warehouse to the customer
// and re-targets the job at that hop. It is a no-op when leg 3 exists.
func openFinalLeg(j *domain.Job, from *domain.Warehouse) error {
	if j.Leg(domain.LegDestinationToDrop) != nil {
		return nil
	}
	if j.FinalDrop == nil {
		return fmt.Errorf("%w: job %s has no final drop", apperr.ErrInvalid, j.ID)
	}

	j.Legs = append(j.Legs, domain.TransitLeg{
		Number:          domain.LegDestinationToDrop,
		FromWarehouseID: &from.ID,
		FromName:        from.Name,
		Status:          domain.LegPending,
	})
	j.Pickup = from.Location
	j.PickupAddress = from.Address
	j.Drop = *j.FinalDrop
	j.DropAddress = j.FinalDropAddress
	j.DropWarehouseID = nil
	return nil
}
