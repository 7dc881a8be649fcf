package dispatch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/service/dispatch"
	"courier-dispatch/internal/testutil/testlog"
)

func ranked(ids ...int64) []domain.RankedCandidate {
	out := make([]domain.RankedCandidate, 0, len(ids))
	for i, id := range ids {
		out = append(out, domain.RankedCandidate{
			Candidate: domain.Candidate{CourierID: id, DistanceMeters: float64(100 * (i + 1))},
			Score:     float64(100 - i),
		})
	}
	return out
}

func TestBroadcaster_CapsOffers(t *testing.T) {
	t.Parallel()

	ctrl := newCtrl(t)
	pub := NewMockOfferPublisher(ctrl)
	sent := NewMockcounter(ctrl)

	job := searchingJob(depot)
	var got []domain.Offer
	pub.EXPECT().PublishOffer(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, o domain.Offer) error {
			got = append(got, o)
			return nil
		}).Times(2)
	sent.EXPECT().Inc().Times(2)

	b := dispatch.NewBroadcaster(pub, sent, nil, nil)
	n := b.Broadcast(context.Background(), &job, ranked(5, 6, 7), 2)

	require.Equal(t, 2, n)
	require.Equal(t, int64(5), got[0].CourierID)
	require.Equal(t, 1, got[0].Rank)
	require.Equal(t, int64(6), got[1].CourierID)
	require.Equal(t, "120.00", got[0].Payout)
	require.Equal(t, job.ID, got[1].JobID)
}

func TestBroadcaster_DefaultCapIsFive(t *testing.T) {
	t.Parallel()

	ctrl := newCtrl(t)
	pub := NewMockOfferPublisher(ctrl)
	pub.EXPECT().PublishOffer(gomock.Any(), gomock.Any()).Return(nil).Times(5)

	job := searchingJob(depot)
	n := dispatch.NewBroadcaster(pub, nil, nil, nil).Broadcast(context.Background(), &job, ranked(1, 2, 3, 4, 5, 6, 7), 0)
	require.Equal(t, 5, n)
}

func TestBroadcaster_FailuresAreLoggedNotReturned(t *testing.T) {
	t.Parallel()

	ctrl := newCtrl(t)
	pub := NewMockOfferPublisher(ctrl)
	failed := NewMockcounter(ctrl)
	rec := testlog.New()

	gomock.InOrder(
		pub.EXPECT().PublishOffer(gomock.Any(), gomock.Any()).Return(errors.New("push down")),
		pub.EXPECT().PublishOffer(gomock.Any(), gomock.Any()).Return(nil),
	)
	failed.EXPECT().Inc().Times(1)

	job := searchingJob(depot)
	n := dispatch.NewBroadcaster(pub, nil, failed, rec.Logger()).Broadcast(context.Background(), &job, ranked(1, 2), 5)

	require.Equal(t, 1, n)
	require.Len(t, rec.WithEvent("offer_failed"), 1)
}
