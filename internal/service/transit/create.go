package transit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/geo"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/ports/dispatchtx"
)

// NewJob is a job submission. Setting OriginWarehouseID routes the job
// through warehouses; DestinationWarehouseID may be fixed later.
type NewJob struct {
	PartnerID              int64
	Pickup                 geo.Point
	PickupAddress          string
	Drop                   geo.Point
	DropAddress            string
	Priority               domain.Priority
	ProviderID             *int64
	OriginWarehouseID      *int64
	DestinationWarehouseID *int64
}

func (n NewJob) validate() error {
	if n.PartnerID <= 0 {
		return fmt.Errorf("%w: partner id is required", apperr.ErrInvalid)
	}
	if err := n.Pickup.Validate(); err != nil {
		return fmt.Errorf("%w: pickup: %v", apperr.ErrInvalid, err)
	}
	if err := n.Drop.Validate(); err != nil {
		return fmt.Errorf("%w: drop: %v", apperr.ErrInvalid, err)
	}
	if !n.Priority.Normalize().Valid() {
		return fmt.Errorf("%w: unknown priority %q", apperr.ErrInvalid, n.Priority)
	}
	if n.OriginWarehouseID == nil && n.DestinationWarehouseID != nil {
		return fmt.Errorf("%w: destination warehouse without origin warehouse", apperr.ErrInvalid)
	}
	if n.OriginWarehouseID != nil && n.DestinationWarehouseID != nil && *n.OriginWarehouseID == *n.DestinationWarehouseID {
		return fmt.Errorf("%w: destination warehouse equals origin warehouse", apperr.ErrInvalid)
	}
	return nil
}

// CreateJob prices and stores a job in SEARCHING_AGENT and runs a first
// dispatch round. It returns the job and the number of offers sent.
func (o *Orchestrator) CreateJob(ctx context.Context, in NewJob) (*domain.Job, int, error) {
	if err := in.validate(); err != nil {
		return nil, 0, err
	}

	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	q := quotes{}
	if drop, ok := o.firstDrop(ctx, in); ok {
		if err := o.quote(ctx, q, in.Pickup, drop); err != nil {
			return nil, 0, fmt.Errorf("price job: %w", err)
		}
	}

	var (
		job    *domain.Job
		events []domain.JobEvent
	)
	err := o.inTx(ctx, false, q, func(tx dispatchtx.Repository, q quotes) error {
		now := o.now()
		j := &domain.Job{
			ID:            uuid.New(),
			Kind:          domain.JobKindDelivery,
			PartnerID:     in.PartnerID,
			Pickup:        in.Pickup,
			PickupAddress: in.PickupAddress,
			Drop:          in.Drop,
			DropAddress:   in.DropAddress,
			Status:        domain.JobSearchingAgent,
			Priority:      in.Priority.Normalize(),
			ProviderID:    in.ProviderID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if in.OriginWarehouseID != nil {
			if err := o.planRoute(ctx, tx, j, in); err != nil {
				return err
			}
		}

		if err := q.price(j); err != nil {
			return err
		}

		if err := tx.InsertJob(ctx, j); err != nil {
			return err
		}
		evs := &txEvents{tx: tx, now: now}
		if err := evs.add(ctx, j, domain.EventJobCreated, map[string]string{
			"relayed": strconv.FormatBool(j.Relayed()),
		}); err != nil {
			return err
		}
		job, events = j, evs.out
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	o.notifier.Publish(ctx, events...)
	o.logger.Info("job created",
		logx.Event("job_created"),
		logx.String("job_id", job.ID.String()),
		logx.Int64("partner_id", job.PartnerID),
		logx.Any("relayed", job.Relayed()),
	)

	offers := o.dispatchAfterCommit(ctx, job.ID)
	return job, offers, nil
}

// firstDrop returns where the first hop of a submission ends. ok is false when
// the origin warehouse cannot be read; the transaction reports that.
func (o *Orchestrator) firstDrop(ctx context.Context, in NewJob) (geo.Point, bool) {
	if in.OriginWarehouseID == nil {
		return in.Drop, true
	}
	w, err := o.store.GetWarehouse(ctx, *in.OriginWarehouseID)
	if err != nil || w == nil {
		return geo.Point{}, false
	}
	return w.Location, true
}

// planRoute turns a direct job into leg 1 (seller to origin warehouse) with a
// pending leg 2 toward the destination warehouse.
func (o *Orchestrator) planRoute(ctx context.Context, tx dispatchtx.Repository, j *domain.Job, in NewJob) error {
	origin, err := loadWarehouse(ctx, tx, *in.OriginWarehouseID)
	if err != nil {
		return err
	}
	if j.ProviderID == nil {
		j.ProviderID = &origin.ProviderID
	}
	if origin.ProviderID != *j.ProviderID {
		return fmt.Errorf("%w: warehouse %d belongs to another provider", apperr.ErrInvalid, origin.ID)
	}

	leg2 := domain.TransitLeg{
		Number:          domain.LegOriginToDestination,
		FromWarehouseID: &origin.ID,
		FromName:        origin.Name,
		Status:          domain.LegPending,
	}
	if in.DestinationWarehouseID != nil {
		dest, err := loadWarehouse(ctx, tx, *in.DestinationWarehouseID)
		if err != nil {
			return err
		}
		if dest.ProviderID != *j.ProviderID {
			return fmt.Errorf("%w: warehouse %d belongs to another provider", apperr.ErrInvalid, dest.ID)
		}
		leg2.ToWarehouseID = &dest.ID
		leg2.ToName = dest.Name
	}

	final := j.Drop
	j.FinalDrop = &final
	j.FinalDropAddress = j.DropAddress
	j.Drop = origin.Location
	j.DropAddress = origin.Address
	j.OriginWarehouseID = &origin.ID
	j.DropWarehouseID = &origin.ID
	j.Legs = []domain.TransitLeg{
		{
			Number:        domain.LegSellerToOrigin,
			ToWarehouseID: &origin.ID,
			ToName:        origin.Name,
			Status:        domain.LegPending,
		},
		leg2,
	}
	return nil
}
