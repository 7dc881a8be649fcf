//go:generate mockgen -source=contracts.go -destination=dispatch_mocks_test.go -package=dispatch_test

package dispatch

import (
	"context"

	"courier-dispatch/internal/domain"
)

// OfferPublisher pushes an offer to a courier over the real-time channel.
type OfferPublisher interface {
	PublishOffer(ctx context.Context, offer domain.Offer) error
}

type courierLister interface {
	ListCouriers(ctx context.Context, ids []int64) ([]domain.Courier, error)
	ListOnlineCouriers(ctx context.Context, providerID *int64) ([]domain.Courier, error)
}

type counter interface {
	Inc()
}
