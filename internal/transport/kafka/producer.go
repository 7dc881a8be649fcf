package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/IBM/sarama"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/logx"
)

// ErrProducerClosed is returned by publishes after Close.
var ErrProducerClosed = errors.New("kafka producer closed")

var newAsyncProducer = sarama.NewAsyncProducer

// Producer publishes courier offers and job events. A nil *Producer accepts
// and discards everything, which is how a deployment without Kafka runs.
type Producer struct {
	producer   sarama.AsyncProducer
	offerTopic string
	eventTopic string
	logger     logx.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewProducer connects an async producer. It returns nil, nil when no
// brokers are configured.
func NewProducer(logger logx.Logger, brokers []string, offerTopic, eventTopic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	ap, err := newAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return newProducer(ap, offerTopic, eventTopic, logger), nil
}

func newProducer(ap sarama.AsyncProducer, offerTopic, eventTopic string, logger logx.Logger) *Producer {
	if logger == nil {
		logger = logx.Nop()
	}
	p := &Producer{
		producer:   ap,
		offerTopic: offerTopic,
		eventTopic: eventTopic,
		logger:     logger,
	}
	p.wg.Add(1)
	go p.drainErrors()
	return p
}

func (p *Producer) drainErrors() {
	defer p.wg.Done()
	for perr := range p.producer.Errors() {
		p.logger.Warn("kafka publish failed",
			logx.Event("kafka_publish_failed"),
			logx.String("topic", perr.Msg.Topic),
			logx.Err(perr.Err),
		)
	}
}

// PublishOffer sends an offer keyed by courier id.
func (p *Producer) PublishOffer(ctx context.Context, o domain.Offer) error {
	if p == nil {
		return nil
	}
	return p.send(ctx, p.offerTopic, strconv.FormatInt(o.CourierID, 10), o)
}

// PublishEvent sends a job event keyed by job id, keeping per-job order.
func (p *Producer) PublishEvent(ctx context.Context, ev domain.JobEvent) error {
	if p == nil {
		return nil
	}
	return p.send(ctx, p.eventTopic, ev.JobID.String(), ev)
}

func (p *Producer) send(ctx context.Context, topic, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", topic, err)
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(b),
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}
	select {
	case p.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes buffered messages and stops the producer.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	err := p.producer.Close()
	p.wg.Wait()
	return err
}
