// Package pricing quotes the requester charge and courier payout of a hop.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"courier-dispatch/internal/config"
	"courier-dispatch/internal/geo"
)

// ErrUnavailable signals a transient quoting failure that may be retried.
var ErrUnavailable = errors.New("pricing unavailable")

// Quote is the price of moving a parcel between two points.
type Quote struct {
	DistanceKm       float64
	Payment          decimal.Decimal
	Payout           decimal.Decimal
	Commission       decimal.Decimal
	EstimatedMinutes int
}

// Quoter prices a hop.
type Quoter interface {
	Quote(ctx context.Context, pickup, drop geo.Point) (Quote, error)
}

const minEstimateMinutes = 5

// DistanceQuoter charges a base fare plus a per-kilometre rate.
type DistanceQuoter struct {
	baseFare   decimal.Decimal
	perKm      decimal.Decimal
	commission decimal.Decimal
	speedKmh   float64
}

// NewDistanceQuoter builds a quoter from config.
func NewDistanceQuoter(cfg config.Pricing) (*DistanceQuoter, error) {
	base, err := decimal.NewFromString(cfg.BaseFare)
	if err != nil {
		return nil, fmt.Errorf("pricing: base fare: %w", err)
	}
	perKm, err := decimal.NewFromString(cfg.PerKm)
	if err != nil {
		return nil, fmt.Errorf("pricing: per km: %w", err)
	}
	pct, err := decimal.NewFromString(cfg.CommissionPct)
	if err != nil {
		return nil, fmt.Errorf("pricing: commission: %w", err)
	}
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("pricing: commission %s outside [0,1]", pct)
	}
	if cfg.SpeedKmh <= 0 {
		return nil, fmt.Errorf("pricing: speed must be positive")
	}
	return &DistanceQuoter{baseFare: base, perKm: perKm, commission: pct, speedKmh: cfg.SpeedKmh}, nil
}

// Quote implements Quoter.
func (q *DistanceQuoter) Quote(ctx context.Context, pickup, drop geo.Point) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}
	if err := pickup.Validate(); err != nil {
		return Quote{}, fmt.Errorf("pickup: %w", err)
	}
	if err := drop.Validate(); err != nil {
		return Quote{}, fmt.Errorf("drop: %w", err)
	}

	km := geo.HaversineKm(pickup, drop)
	payment := q.baseFare.Add(q.perKm.Mul(decimal.NewFromFloat(km))).Round(2)
	commission := payment.Mul(q.commission).Round(2)

	minutes := int(math.Ceil(km / q.speedKmh * 60))
	if minutes < minEstimateMinutes {
		minutes = minEstimateMinutes
	}
	return Quote{
		DistanceKm:       math.Round(km*100) / 100,
		Payment:          payment,
		Payout:           payment.Sub(commission),
		Commission:       commission,
		EstimatedMinutes: minutes,
	}, nil
}
