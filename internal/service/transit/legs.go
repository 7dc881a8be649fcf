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

// MarkReadyForNextLeg releases a parked job for its next leg and dispatches it
// synchronously. At the origin warehouse the job goes to the provider pool; at
// the destination warehouse it becomes a regular final-mile delivery.
func (o *Orchestrator) MarkReadyForNextLeg(ctx context.Context, jobID uuid.UUID, warehouseID int64) (*domain.Job, error) {
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
		if j.Status != domain.JobAtWarehouse || !sameID(j.CurrentWarehouseID, warehouseID) {
			return fmt.Errorf("%w: job %s is not parked at warehouse %d", apperr.ErrInvalid, j.ID, warehouseID)
		}
		if j.Assignment.Active() {
			return fmt.Errorf("%w: job %s already has a courier", apperr.ErrConflict, j.ID)
		}

		now := o.now()
		evs := &txEvents{tx: tx, now: now}
		leg2 := j.Leg(domain.LegOriginToDestination)
		switch {
		case sameID(j.OriginWarehouseID, warehouseID) && !j.LegCompleted(domain.LegOriginToDestination):
			if leg2 == nil || leg2.ToWarehouseID == nil {
				return fmt.Errorf("%w: job %s has no destination warehouse", apperr.ErrInvalid, j.ID)
			}
			j.Status = domain.JobReadyForPickup
		case leg2 != nil && sameID(leg2.ToWarehouseID, warehouseID):
			w, err := loadWarehouse(ctx, tx, warehouseID)
			if err != nil {
				return err
			}
			if leg2.Status != domain.LegCompleted {
				leg2.Status = domain.LegCompleted
				leg2.CompletedAt = &now
			}
			if err := openFinalLeg(j, w); err != nil {
				return err
			}
			if err := q.price(j); err != nil {
				return err
			}
			j.Status = domain.JobSearchingAgent
		default:
			return fmt.Errorf("%w: warehouse %d is not on the route of job %s", apperr.ErrInvalid, warehouseID, j.ID)
		}

		j.UpdatedAt = now
		if err := tx.UpdateJob(ctx, j); err != nil {
			return err
		}
		if err := evs.add(ctx, j, domain.EventReadyForPickup, map[string]string{
			"warehouse_id": strconv.FormatInt(warehouseID, 10),
		}); err != nil {
			return err
		}
		job, events = j, evs.out
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.notifier.Publish(ctx, events...)
	offers := o.dispatchAfterCommit(ctx, job.ID)
	o.logger.Info("job ready for next leg",
		logx.Event("ready_for_pickup"),
		logx.String("job_id", job.ID.String()),
		logx.Int64("warehouse_id", warehouseID),
		logx.Int("offers", offers),
	)
	return job, nil
}

// ReassignDestination points leg 2 at another warehouse. It is only allowed
// while leg 2 is pending and no logistics courier holds the job. A job parked
// at the origin is repriced for the new hop.
func (o *Orchestrator) ReassignDestination(ctx context.Context, jobID uuid.UUID, warehouseID int64) (*domain.Job, error) {
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
		leg2 := j.Leg(domain.LegOriginToDestination)
		switch {
		case j.Status.Terminal():
			return fmt.Errorf("%w: job %s is %s", apperr.ErrInvalid, j.ID, j.Status)
		case leg2 == nil:
			return fmt.Errorf("%w: job %s is not routed through warehouses", apperr.ErrInvalid, j.ID)
		case j.Assignment.Kind == domain.AssignmentLogistics:
			return fmt.Errorf("%w: logistics courier already assigned to job %s", apperr.ErrInvalid, j.ID)
		case leg2.Status != domain.LegPending:
			return fmt.Errorf("%w: leg 2 of job %s already %s", apperr.ErrInvalid, j.ID, leg2.Status)
		case sameID(j.OriginWarehouseID, warehouseID):
			return fmt.Errorf("%w: destination warehouse equals origin warehouse", apperr.ErrInvalid)
		}

		w, err := loadWarehouse(ctx, tx, warehouseID)
		if err != nil {
			return err
		}
		if j.ProviderID == nil || w.ProviderID != *j.ProviderID {
			return fmt.Errorf("%w: warehouse %d belongs to another provider", apperr.ErrInvalid, w.ID)
		}

		leg2.ToWarehouseID = &w.ID
		leg2.ToName = w.Name
		if j.LegCompleted(domain.LegSellerToOrigin) {
			j.Drop = w.Location
			j.DropAddress = w.Address
			j.DropWarehouseID = &w.ID
			if err := q.price(j); err != nil {
				return err
			}
		}

		now := o.now()
		j.UpdatedAt = now
		if err := tx.UpdateJob(ctx, j); err != nil {
			return err
		}
		evs := &txEvents{tx: tx, now: now}
		if err := evs.add(ctx, j, domain.EventDestinationChanged, map[string]string{
			"warehouse_id": strconv.FormatInt(w.ID, 10),
		}); err != nil {
			return err
		}
		job, events = j, evs.out
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.notifier.Publish(ctx, events...)
	o.logger.Info("destination reassigned",
		logx.Event("destination_changed"),
		logx.String("job_id", job.ID.String()),
		logx.Int64("warehouse_id", warehouseID),
	)
	return job, nil
}
