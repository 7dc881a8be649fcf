package dispatch

import (
	"context"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/logx"
)

// DefaultOfferCap is the number of couriers offered a job when none is given.
const DefaultOfferCap = 5

// Broadcaster sends best-effort offers to the best ranked couriers.
type Broadcaster struct {
	pub    OfferPublisher
	sent   counter
	failed counter
	logger logx.Logger
}

// NewBroadcaster creates a Broadcaster. Counters may be nil.
func NewBroadcaster(pub OfferPublisher, sent, failed counter, logger logx.Logger) *Broadcaster {
	if logger == nil {
		logger = logx.Nop()
	}
	return &Broadcaster{pub: pub, sent: sent, failed: failed, logger: logger}
}

// Broadcast offers the job to at most limit couriers and returns how many
// offers were handed to the channel. Publish failures are logged only.
func (b *Broadcaster) Broadcast(ctx context.Context, job *domain.Job, ranked []domain.RankedCandidate, limit int) int {
	if limit <= 0 {
		limit = DefaultOfferCap
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	sent := 0
	for i, rc := range ranked {
		offer := domain.Offer{
			JobID:          job.ID,
			CourierID:      rc.CourierID,
			Payout:         job.Payout.StringFixed(2),
			DistanceMeters: rc.DistanceMeters,
			Priority:       job.Priority.Normalize(),
			Rank:           i + 1,
		}
		if b.pub == nil {
			continue
		}
		if err := b.pub.PublishOffer(ctx, offer); err != nil {
			inc(b.failed)
			b.logger.Warn("offer not delivered",
				logx.Event("offer_failed"),
				logx.String("job_id", job.ID.String()),
				logx.Int64("courier_id", rc.CourierID),
				logx.Err(err),
			)
			continue
		}
		inc(b.sent)
		sent++
	}
	return sent
}

func inc(c counter) {
	if c != nil {
		c.Inc()
	}
}
