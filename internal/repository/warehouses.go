package repository

import (
	"context"
	"fmt"

	"courier-dispatch/internal/domain"
)

// GetWarehouse - returns warehouse by its ID.
func (r *Repo) GetWarehouse(ctx context.Context, id int64) (*domain.Warehouse, error) {
	var w domain.Warehouse
	err := r.q.QueryRow(ctx, `
        SELECT id, provider_id, name, address, lat, lng
        FROM warehouses
        WHERE id = $1
    `, id).Scan(&w.ID, &w.ProviderID, &w.Name, &w.Address, &w.Location.Lat, &w.Location.Lng)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get warehouse %d: %w", id, err)
	}
	return &w, nil
}

// InsertWarehouse - creates a warehouse and fills its ID. Used by seeding and tests.
func (r *Repo) InsertWarehouse(ctx context.Context, w *domain.Warehouse) error {
	err := r.q.QueryRow(ctx, `
        INSERT INTO warehouses (provider_id, name, address, lat, lng)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `, w.ProviderID, w.Name, w.Address, w.Location.Lat, w.Location.Lng).Scan(&w.ID)
	if err != nil {
		return fmt.Errorf("insert warehouse: %w", err)
	}
	return nil
}
