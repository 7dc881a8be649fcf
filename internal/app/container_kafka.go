package app

import (
	"context"

	"go.uber.org/dig"

	"courier-dispatch/internal/config"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/service/location"
	"courier-dispatch/internal/transport/kafka"
)

func registerKafka(container *dig.Container) error {
	return provideAll(container,
		newProducer,
		newLocationConsumer,
	)
}

// newProducer returns nil when no brokers are configured.
func newProducer(cfg *config.Config, logger logx.Logger) (*kafka.Producer, error) {
	return kafka.NewProducer(component(logger, "kafka_producer"), cfg.Kafka.Brokers, cfg.Kafka.OfferTopic, cfg.Kafka.EventTopic)
}

func newLocationConsumer(cfg *config.Config, logger logx.Logger, q *location.Queue) (*kafka.Consumer, error) {
	return kafka.NewConsumer(component(logger, "kafka_consumer"), cfg.Kafka.Brokers, cfg.Kafka.GroupID,
		cfg.Kafka.LocationTopic, enqueueLocation(q))
}

func enqueueLocation(q *location.Queue) kafka.HandleFunc {
	return func(ctx context.Context, upd domain.LocationUpdate) error {
		return q.Enqueue(ctx, upd.CourierID, upd.Point, upd.RecordedAt)
	}
}
