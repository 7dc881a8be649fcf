package transit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/ports/dispatchtx"
)

// CancelResult is the outcome of a cancellation. RTO is set when a
// return-to-origin job was synthesized.
type CancelResult struct {
	Job        *domain.Job
	RTO        *domain.Job
	Settlement *domain.Settlement
}

// CancelJob cancels a job. Jobs that already passed the destination warehouse
// are never reopened: a return-to-origin job is created instead. Cancelling a
// delivered job keeps the DELIVERED status and, in the same transaction,
// reverses its settlement or voids the one it never got.
func (o *Orchestrator) CancelJob(ctx context.Context, jobID uuid.UUID, reason string) (*CancelResult, error) {
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	var (
		res      *CancelResult
		events   []domain.JobEvent
		reversed bool
	)
	err := o.inTx(ctx, true, nil, func(tx dispatchtx.Repository, q quotes) error {
		res, events, reversed = &CancelResult{}, nil, false
		j, err := loadJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		res.Job = j
		if j.Status == domain.JobCancelled || j.CancelledAt != nil {
			return nil
		}

		now := o.now()
		evs := &txEvents{tx: tx, now: now}
		j.CancelReason = reason
		j.CancelledAt = &now
		j.UpdatedAt = now

		if j.Status == domain.JobDelivered {
			if j.Kind != domain.JobKindRTO && o.settler != nil {
				st, revEvents, err := o.settler.ReverseTx(ctx, tx, j, reason, now)
				if err != nil {
					return fmt.Errorf("reverse settlement: %w", err)
				}
				res.Settlement = st
				reversed = len(revEvents) > 0
				evs.out = append(evs.out, revEvents...)
			}
			if err := tx.UpdateJob(ctx, j); err != nil {
				return err
			}
			if err := evs.add(ctx, j, domain.EventJobCancelled, map[string]string{"reason": reason, "after_delivery": "true"}); err != nil {
				return err
			}
			events = evs.out
			return nil
		}

		if err := releaseCourier(ctx, tx, j); err != nil {
			return err
		}

		if j.LegCompleted(domain.LegOriginToDestination) || j.Leg(domain.LegDestinationToDrop) != nil {
			rto, err := o.returnToOrigin(ctx, tx, q, j, now)
			if err != nil {
				return err
			}
			if err := evs.add(ctx, rto, domain.EventRTOCreated, map[string]string{"parent_job_id": j.ID.String()}); err != nil {
				return err
			}
			res.RTO = rto
		}

		j.Status = domain.JobCancelled
		j.Assignment = domain.Unassigned()
		if err := tx.UpdateJob(ctx, j); err != nil {
			return err
		}
		payload := map[string]string{"reason": reason}
		if res.RTO != nil {
			payload["rto_job_id"] = res.RTO.ID.String()
		}
		if err := evs.add(ctx, j, domain.EventJobCancelled, payload); err != nil {
			return err
		}
		events = evs.out
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reversed {
		o.settler.Reversed(jobID, reason)
	}
	o.notifier.Publish(ctx, events...)
	fields := []logx.Field{
		logx.Event("job_cancelled"),
		logx.String("job_id", jobID.String()),
		logx.String("reason", reason),
	}
	if res.RTO != nil {
		fields = append(fields, logx.String("rto_job_id", res.RTO.ID.String()))
	}
	o.logger.Info("job cancelled", fields...)

	if res.RTO != nil {
		o.dispatchAfterCommit(ctx, res.RTO.ID)
	}
	return res, nil
}

// returnToOrigin synthesizes the job carrying the parcel from the destination
// warehouse back to the origin warehouse.
func (o *Orchestrator) returnToOrigin(ctx context.Context, tx dispatchtx.Repository, q quotes, j *domain.Job,
	now time.Time) (*domain.Job, error) {
	fromID := j.CurrentWarehouseID
	if leg2 := j.Leg(domain.LegOriginToDestination); leg2 != nil && leg2.ToWarehouseID != nil {
		fromID = leg2.ToWarehouseID
	}
	if fromID == nil || j.OriginWarehouseID == nil {
		return nil, fmt.Errorf("%w: job %s has no warehouse to return from", apperr.ErrInvalid, j.ID)
	}
	from, err := loadWarehouse(ctx, tx, *fromID)
	if err != nil {
		return nil, err
	}
	origin, err := loadWarehouse(ctx, tx, *j.OriginWarehouseID)
	if err != nil {
		return nil, err
	}

	parent := j.ID
	rto := &domain.Job{
		ID:                 uuid.New(),
		ParentJobID:        &parent,
		Kind:               domain.JobKindRTO,
		PartnerID:          j.PartnerID,
		Pickup:             from.Location,
		PickupAddress:      from.Address,
		Drop:               origin.Location,
		DropAddress:        origin.Address,
		Status:             domain.JobSearchingAgent,
		Priority:           j.Priority,
		CurrentWarehouseID: &from.ID,
		OriginWarehouseID:  &origin.ID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := q.price(rto); err != nil {
		return nil, err
	}
	if err := tx.InsertJob(ctx, rto); err != nil {
		return nil, err
	}
	return rto, nil
}
