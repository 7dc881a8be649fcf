package dispatch

import (
	"context"
	"sort"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/geo"
	"courier-dispatch/internal/logx"
)

// Finder looks up couriers around a pickup point.
type Finder struct {
	index    geo.Index
	couriers courierLister
	logger   logx.Logger
}

// NewFinder creates a Finder. A nil index always uses the fallback scan.
func NewFinder(index geo.Index, couriers courierLister, logger logx.Logger) *Finder {
	if logger == nil {
		logger = logx.Nop()
	}
	return &Finder{index: index, couriers: couriers, logger: logger}
}

// Find returns eligible couriers of the pool within radius of pickup together
// with the courier records, closest first. A nil providerID selects the
// regular pool.
func (f *Finder) Find(ctx context.Context, pickup geo.Point, radius float64, providerID *int64) ([]domain.Candidate, map[int64]domain.Courier, error) {
	if err := pickup.Validate(); err != nil {
		return nil, nil, err
	}
	if radius <= 0 {
		radius = geo.DefaultSearchRadiusMeters
	}

	hits, err := f.lookupIndex(ctx, pickup, radius)
	if err != nil {
		f.logger.Warn("geo index unavailable, scanning online couriers",
			logx.Event("geo_index_fallback"),
			logx.Err(err),
		)
	}
	if len(hits) > 0 {
		return f.fromHits(ctx, hits, providerID)
	}
	return f.scan(ctx, pickup, radius, providerID)
}

func (f *Finder) lookupIndex(ctx context.Context, pickup geo.Point, radius float64) ([]geo.Hit, error) {
	if f.index == nil {
		return nil, nil
	}
	return f.index.Within(ctx, pickup, radius)
}

func (f *Finder) fromHits(ctx context.Context, hits []geo.Hit, providerID *int64) ([]domain.Candidate, map[int64]domain.Courier, error) {
	ids := make([]int64, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.CourierID)
	}
	list, err := f.couriers.ListCouriers(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[int64]domain.Courier, len(list))
	for _, c := range list {
		if c.Eligible() && c.InPool(providerID) {
			byID[c.ID] = c
		}
	}

	out := make([]domain.Candidate, 0, len(byID))
	for _, h := range hits {
		if _, ok := byID[h.CourierID]; ok {
			out = append(out, domain.Candidate{CourierID: h.CourierID, DistanceMeters: h.DistanceMeters})
		}
	}
	return out, byID, nil
}

// scan computes distances from the last persisted coordinate of every online courier.
func (f *Finder) scan(ctx context.Context, pickup geo.Point, radius float64, providerID *int64) ([]domain.Candidate, map[int64]domain.Courier, error) {
	list, err := f.couriers.ListOnlineCouriers(ctx, providerID)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[int64]domain.Courier, len(list))
	out := make([]domain.Candidate, 0, len(list))
	for _, c := range list {
		if !c.Eligible() || !c.InPool(providerID) || c.Location == nil {
			continue
		}
		d := geo.HaversineMeters(pickup, *c.Location)
		if d > radius {
			continue
		}
		byID[c.ID] = c
		out = append(out, domain.Candidate{CourierID: c.ID, DistanceMeters: d})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })
	return out, byID, nil
}
