// Package notify fans committed job events out to partners and couriers.
package notify

import (
	"context"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/logx"
)

// EventPublisher delivers a job event to the outside world.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev domain.JobEvent) error
}

// Notifier publishes events after their transaction committed. Failures are
// logged and never returned.
type Notifier struct {
	pub    EventPublisher
	logger logx.Logger
}

// New creates a Notifier. A nil publisher turns it into a no-op.
func New(pub EventPublisher, logger logx.Logger) *Notifier {
	if logger == nil {
		logger = logx.Nop()
	}
	return &Notifier{pub: pub, logger: logger}
}

// Publish sends every event, logging the ones that fail.
func (n *Notifier) Publish(ctx context.Context, evs ...domain.JobEvent) {
	if n == nil || n.pub == nil {
		return
	}
	for _, ev := range evs {
		if err := n.pub.PublishEvent(ctx, ev); err != nil {
			n.logger.Warn("job event not published",
				logx.Event("notify_failed"),
				logx.String("job_id", ev.JobID.String()),
				logx.String("type", string(ev.Type)),
				logx.Err(err),
			)
		}
	}
}
