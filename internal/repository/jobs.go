package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/geo"
)

const jobColumns = `
    id, parent_job_id, kind, partner_id,
    pickup_lat, pickup_lng, pickup_address,
    drop_lat, drop_lng, drop_address,
    final_drop_lat, final_drop_lng, final_drop_address,
    status, assignment_kind, assigned_courier_id, priority,
    provider_id, origin_warehouse_id, current_warehouse_id, drop_warehouse_id, legs,
    payment, payout, commission, distance_km, estimated_minutes,
    assigned_at, picked_up_at, delivered_at, cancelled_at, cancel_reason,
    created_at, updated_at`

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		j                domain.Job
		finalLat         *float64
		finalLng         *float64
		assignmentKind   string
		assignedCourier  *int64
		legs             []byte
		status, priority string
		kind             string
	)
	err := row.Scan(
		&j.ID, &j.ParentJobID, &kind, &j.PartnerID,
		&j.Pickup.Lat, &j.Pickup.Lng, &j.PickupAddress,
		&j.Drop.Lat, &j.Drop.Lng, &j.DropAddress,
		&finalLat, &finalLng, &j.FinalDropAddress,
		&status, &assignmentKind, &assignedCourier, &priority,
		&j.ProviderID, &j.OriginWarehouseID, &j.CurrentWarehouseID, &j.DropWarehouseID, &legs,
		&j.Payment, &j.Payout, &j.Commission, &j.DistanceKm, &j.EstimatedMinutes,
		&j.AssignedAt, &j.PickedUpAt, &j.DeliveredAt, &j.CancelledAt, &j.CancelReason,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	j.Kind = domain.JobKind(kind)
	j.Status = domain.JobStatus(status)
	j.Priority = domain.Priority(priority)
	j.Assignment = domain.Assignment{Kind: domain.AssignmentKind(assignmentKind)}
	if assignedCourier != nil {
		j.Assignment.CourierID = *assignedCourier
	}
	if finalLat != nil && finalLng != nil {
		j.FinalDrop = &geo.Point{Lat: *finalLat, Lng: *finalLng}
	}
	if len(legs) > 0 {
		if err := json.Unmarshal(legs, &j.Legs); err != nil {
			return nil, fmt.Errorf("decode legs: %w", err)
		}
	}
	if len(j.Legs) == 0 {
		j.Legs = nil
	}
	return &j, nil
}

type jobArgs struct {
	finalLat, finalLng *float64
	courier            *int64
	legs               []byte
}

func encodeJob(j *domain.Job) (jobArgs, error) {
	var a jobArgs
	if j.FinalDrop != nil {
		a.finalLat, a.finalLng = &j.FinalDrop.Lat, &j.FinalDrop.Lng
	}
	if id, ok := j.Assignment.Courier(); ok {
		a.courier = &id
	}
	legs := j.Legs
	if legs == nil {
		legs = []domain.TransitLeg{}
	}
	raw, err := json.Marshal(legs)
	if err != nil {
		return a, fmt.Errorf("encode legs: %w", err)
	}
	a.legs = raw
	return a, nil
}

// GetJob - returns job by its ID.
func (r *Repo) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	j, err := scanJob(r.q.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`+r.lock, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return j, nil
}

// InsertJob - inserts a new job.
func (r *Repo) InsertJob(ctx context.Context, j *domain.Job) error {
	if err := j.CheckInvariants(); err != nil {
		return err
	}
	a, err := encodeJob(j)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `
        INSERT INTO jobs (`+jobColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
                $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34)
    `,
		j.ID, j.ParentJobID, string(j.Kind), j.PartnerID,
		j.Pickup.Lat, j.Pickup.Lng, j.PickupAddress,
		j.Drop.Lat, j.Drop.Lng, j.DropAddress,
		a.finalLat, a.finalLng, j.FinalDropAddress,
		string(j.Status), string(j.Assignment.Kind), a.courier, string(j.Priority),
		j.ProviderID, j.OriginWarehouseID, j.CurrentWarehouseID, j.DropWarehouseID, a.legs,
		j.Payment, j.Payout, j.Commission, j.DistanceKm, j.EstimatedMinutes,
		j.AssignedAt, j.PickedUpAt, j.DeliveredAt, j.CancelledAt, j.CancelReason,
		j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		if IsDuplicate(err) {
			return mapConflict(err)
		}
		return fmt.Errorf("insert job %s: %w", j.ID, err)
	}
	return nil
}

// UpdateJob - writes every mutable column of a job.
func (r *Repo) UpdateJob(ctx context.Context, j *domain.Job) error {
	if err := j.CheckInvariants(); err != nil {
		return err
	}
	a, err := encodeJob(j)
	if err != nil {
		return err
	}
	ct, err := r.q.Exec(ctx, `
        UPDATE jobs SET
            pickup_lat = $2, pickup_lng = $3, pickup_address = $4,
            drop_lat = $5, drop_lng = $6, drop_address = $7,
            final_drop_lat = $8, final_drop_lng = $9, final_drop_address = $10,
            status = $11, assignment_kind = $12, assigned_courier_id = $13, priority = $14,
            provider_id = $15, origin_warehouse_id = $16, current_warehouse_id = $17,
            drop_warehouse_id = $18, legs = $19,
            payment = $20, payout = $21, commission = $22, distance_km = $23, estimated_minutes = $24,
            assigned_at = $25, picked_up_at = $26, delivered_at = $27, cancelled_at = $28,
            cancel_reason = $29, updated_at = $30
        WHERE id = $1
    `,
		j.ID,
		j.Pickup.Lat, j.Pickup.Lng, j.PickupAddress,
		j.Drop.Lat, j.Drop.Lng, j.DropAddress,
		a.finalLat, a.finalLng, j.FinalDropAddress,
		string(j.Status), string(j.Assignment.Kind), a.courier, string(j.Priority),
		j.ProviderID, j.OriginWarehouseID, j.CurrentWarehouseID,
		j.DropWarehouseID, a.legs,
		j.Payment, j.Payout, j.Commission, j.DistanceKm, j.EstimatedMinutes,
		j.AssignedAt, j.PickedUpAt, j.DeliveredAt, j.CancelledAt,
		j.CancelReason, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", j.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("job %s not found", j.ID)
	}
	return nil
}

// SetJobStatusIf - compare-and-set on the job status.
func (r *Repo) SetJobStatusIf(ctx context.Context, id uuid.UUID, from, to domain.JobStatus) (bool, error) {
	ct, err := r.q.Exec(ctx, `
        UPDATE jobs
        SET status = $3, updated_at = $4
        WHERE id = $1 AND status = $2
    `, id, string(from), string(to), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("set job %s status %s -> %s: %w", id, from, to, err)
	}
	return ct.RowsAffected() > 0, nil
}

// ListInTransitJobs - returns picked-up jobs that are still moving.
func (r *Repo) ListInTransitJobs(ctx context.Context) ([]domain.Job, error) {
	statuses := make([]string, 0, len(domain.InTransitStatuses))
	for _, s := range domain.InTransitStatuses {
		statuses = append(statuses, string(s))
	}
	rows, err := r.q.Query(ctx, `
        SELECT `+jobColumns+`
        FROM jobs
        WHERE status = ANY($1) AND picked_up_at IS NOT NULL
        ORDER BY picked_up_at
    `, statuses)
	if err != nil {
		return nil, fmt.Errorf("list in-transit jobs: %w", err)
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}
