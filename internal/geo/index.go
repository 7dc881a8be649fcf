package geo

import (
	"context"
	"sort"
	"sync"
)

// Hit is a courier found by a radius query.
type Hit struct {
	CourierID      int64
	DistanceMeters float64
}

// Index is the shared courier position store used by dispatch. Implementations
// must make Set/Get/Remove atomic per courier; no caller-side lock is taken.
type Index interface {
	Set(ctx context.Context, courierID int64, p Point) error
	Get(ctx context.Context, courierID int64) (Point, bool, error)
	Remove(ctx context.Context, courierID int64) error
	Within(ctx context.Context, center Point, radiusMeters float64) ([]Hit, error)
}

// MemoryIndex is an in-process Index.
type MemoryIndex struct {
	mu     sync.RWMutex
	points map[int64]Point
}

// NewMemoryIndex returns an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{points: make(map[int64]Point)}
}

// Set stores the latest coordinate of a courier.
func (m *MemoryIndex) Set(_ context.Context, courierID int64, p Point) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.points[courierID] = p
	m.mu.Unlock()
	return nil
}

// Get returns the stored coordinate of a courier.
func (m *MemoryIndex) Get(_ context.Context, courierID int64) (Point, bool, error) {
	m.mu.RLock()
	p, ok := m.points[courierID]
	m.mu.RUnlock()
	return p, ok, nil
}

// Remove forgets a courier, e.g. when it goes offline.
func (m *MemoryIndex) Remove(_ context.Context, courierID int64) error {
	m.mu.Lock()
	delete(m.points, courierID)
	m.mu.Unlock()
	return nil
}

// Len reports how many couriers are indexed.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

// Within returns couriers at most radiusMeters away from center, nearest first.
// Equal distances are ordered by courier id so results are deterministic.
func (m *MemoryIndex) Within(ctx context.Context, center Point, radiusMeters float64) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := center.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	hits := make([]Hit, 0, len(m.points))
	for id, p := range m.points {
		d := HaversineMeters(center, p)
		if d <= radiusMeters {
			hits = append(hits, Hit{CourierID: id, DistanceMeters: d})
		}
	}
	m.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].DistanceMeters == hits[j].DistanceMeters {
			return hits[i].CourierID < hits[j].CourierID
		}
		return hits[i].DistanceMeters < hits[j].DistanceMeters
	})
	return hits, nil
}

var _ Index = (*MemoryIndex)(nil)
