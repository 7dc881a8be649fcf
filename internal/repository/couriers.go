package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/geo"
)

const courierColumns = `
    id, name, phone, status, approved, blocked, provider_id, current_job_id,
    acceptance_rate, rating, completed_jobs, total_earnings, lat, lng, last_seen_at`

func scanCourier(row pgx.Row) (*domain.Courier, error) {
	var (
		c        domain.Courier
		status   string
		lat, lng *float64
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.Phone, &status, &c.Approved, &c.Blocked, &c.ProviderID, &c.CurrentJobID,
		&c.AcceptanceRate, &c.Rating, &c.CompletedJobs, &c.TotalEarnings, &lat, &lng, &c.LastSeenAt,
	)
	if err != nil {
		return nil, err
	}
	c.Status = domain.CourierStatus(status)
	if lat != nil && lng != nil {
		c.Location = &geo.Point{Lat: *lat, Lng: *lng}
	}
	return &c, nil
}

func collectCouriers(rows pgx.Rows) ([]domain.Courier, error) {
	defer rows.Close()
	var out []domain.Courier
	for rows.Next() {
		c, err := scanCourier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan courier: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// GetCourier - returns courier by its ID.
func (r *Repo) GetCourier(ctx context.Context, id int64) (*domain.Courier, error) {
	c, err := scanCourier(r.q.QueryRow(ctx, `SELECT `+courierColumns+` FROM couriers WHERE id = $1`+r.lock, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get courier %d: %w", id, err)
	}
	return c, nil
}

// ListCouriers - returns couriers with the given IDs ordered by id.
func (r *Repo) ListCouriers(ctx context.Context, ids []int64) ([]domain.Courier, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `SELECT `+courierColumns+` FROM couriers WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("list couriers: %w", err)
	}
	return collectCouriers(rows)
}

// ListOnlineCouriers - returns dispatchable couriers of a provider pool.
func (r *Repo) ListOnlineCouriers(ctx context.Context, providerID *int64) ([]domain.Courier, error) {
	rows, err := r.q.Query(ctx, `
        SELECT `+courierColumns+`
        FROM couriers
        WHERE status <> $1
          AND approved AND NOT blocked
          AND provider_id IS NOT DISTINCT FROM $2
        ORDER BY id
    `, string(domain.CourierOffline), providerID)
	if err != nil {
		return nil, fmt.Errorf("list online couriers: %w", err)
	}
	return collectCouriers(rows)
}

// UpdateCourier - writes presence and assignment state of a courier.
func (r *Repo) UpdateCourier(ctx context.Context, c *domain.Courier) error {
	ct, err := r.q.Exec(ctx, `
        UPDATE couriers
        SET status = $2, approved = $3, blocked = $4, current_job_id = $5,
            acceptance_rate = $6, rating = $7, updated_at = now()
        WHERE id = $1
    `, c.ID, string(c.Status), c.Approved, c.Blocked, c.CurrentJobID, c.AcceptanceRate, c.Rating)
	if err != nil {
		return fmt.Errorf("update courier %d: %w", c.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("courier %d not found", c.ID)
	}
	return nil
}

// AddCourierEarnings - atomically adjusts aggregate earnings and job count.
func (r *Repo) AddCourierEarnings(ctx context.Context, id int64, amount decimal.Decimal, jobsDelta int) error {
	ct, err := r.q.Exec(ctx, `
        UPDATE couriers
        SET total_earnings = total_earnings + $2,
            completed_jobs = GREATEST(completed_jobs + $3, 0),
            updated_at = now()
        WHERE id = $1
    `, id, amount, jobsDelta)
	if err != nil {
		return fmt.Errorf("add courier %d earnings: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("courier %d not found", id)
	}
	return nil
}

// SaveLocation - refreshes the courier's last known coordinate and appends the
// position to the history log. An unknown courier is apperr.ErrNotFound.
func (r *Repo) SaveLocation(ctx context.Context, upd domain.LocationUpdate, touchLastSeen bool) error {
	ct, err := r.q.Exec(ctx, `
        UPDATE couriers
        SET lat = $2, lng = $3,
            last_seen_at = CASE WHEN $4 THEN $5 ELSE last_seen_at END
        WHERE id = $1
    `, upd.CourierID, upd.Point.Lat, upd.Point.Lng, touchLastSeen, upd.RecordedAt)
	if err != nil {
		return fmt.Errorf("update courier %d location: %w", upd.CourierID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("courier %d: %w", upd.CourierID, apperr.ErrNotFound)
	}

	if _, err := r.q.Exec(ctx, `
        INSERT INTO courier_locations (courier_id, lat, lng, recorded_at)
        VALUES ($1, $2, $3, $4)
    `, upd.CourierID, upd.Point.Lat, upd.Point.Lng, upd.RecordedAt); err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("courier %d: %w", upd.CourierID, apperr.ErrNotFound)
		}
		return fmt.Errorf("insert location for courier %d: %w", upd.CourierID, err)
	}
	return nil
}

// InsertCourier - creates a courier and fills its ID. Used by seeding and tests.
func (r *Repo) InsertCourier(ctx context.Context, c *domain.Courier) error {
	var lat, lng *float64
	if c.Location != nil {
		lat, lng = &c.Location.Lat, &c.Location.Lng
	}
	err := r.q.QueryRow(ctx, `
        INSERT INTO couriers (name, phone, status, approved, blocked, provider_id,
                              acceptance_rate, rating, completed_jobs, total_earnings, lat, lng, last_seen_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id
    `, c.Name, c.Phone, string(c.Status), c.Approved, c.Blocked, c.ProviderID,
		c.AcceptanceRate, c.Rating, c.CompletedJobs, c.TotalEarnings, lat, lng, c.LastSeenAt,
	).Scan(&c.ID)
	if err != nil {
		if IsDuplicate(err) {
			return mapConflict(err)
		}
		return fmt.Errorf("insert courier: %w", err)
	}
	return nil
}
