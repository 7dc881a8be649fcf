package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/testutil/testlog"
)

func checkMessage(topic, key string) mocks.MessageChecker {
	return func(m *sarama.ProducerMessage) error {
		if m.Topic != topic {
			return errors.New("unexpected topic " + m.Topic)
		}
		k, err := m.Key.Encode()
		if err != nil {
			return err
		}
		if string(k) != key {
			return errors.New("unexpected key " + string(k))
		}
		return nil
	}
}

func TestProducer_PublishesOffersAndEvents(t *testing.T) {
	t.Parallel()

	mp := mocks.NewAsyncProducer(t, nil)
	jobID := uuid.New()
	mp.ExpectInputWithMessageCheckerFunctionAndSucceed(checkMessage("courier.offers", "42"))
	mp.ExpectInputWithMessageCheckerFunctionAndSucceed(checkMessage("job.events", jobID.String()))

	p := newProducer(mp, "courier.offers", "job.events", testlog.New().Logger())
	ctx := context.Background()

	require.NoError(t, p.PublishOffer(ctx, domain.Offer{JobID: jobID, CourierID: 42, Payout: "120.00", Rank: 1}))
	require.NoError(t, p.PublishEvent(ctx, domain.JobEvent{ID: uuid.New(), JobID: jobID, Type: domain.EventJobCreated, CreatedAt: time.Now()}))
	require.NoError(t, p.Close())
}

func TestProducer_ClosedRejectsPublishes(t *testing.T) {
	t.Parallel()

	p := newProducer(mocks.NewAsyncProducer(t, nil), "o", "e", nil)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	err := p.PublishOffer(context.Background(), domain.Offer{CourierID: 1})
	require.ErrorIs(t, err, ErrProducerClosed)
}

func TestProducer_NilIsNoop(t *testing.T) {
	t.Parallel()

	var p *Producer
	require.NoError(t, p.PublishOffer(context.Background(), domain.Offer{}))
	require.NoError(t, p.PublishEvent(context.Background(), domain.JobEvent{}))
	require.NoError(t, p.Close())
}

func TestNewProducer_SkipsWithoutBrokers(t *testing.T) {
	t.Parallel()

	p, err := NewProducer(nil, nil, "o", "e")
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestOfferWireFormat(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(domain.Offer{CourierID: 42, Payout: "120.00", DistanceMeters: 200, Priority: domain.PriorityHigh, Rank: 1})
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	require.Equal(t, "120.00", m["payout"])
	require.Equal(t, "HIGH", m["priority"])
	require.EqualValues(t, 42, m["courier_id"])
}
