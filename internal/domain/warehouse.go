package domain

import "courier-dispatch/internal/geo"

// Warehouse is an intermediate relay point operated by a logistics provider.
type Warehouse struct {
	ID         int64
	ProviderID int64
	Name       string
	Address    string
	Location   geo.Point
}
