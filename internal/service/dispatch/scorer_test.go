package dispatch_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/service/dispatch"
)

func TestRank_OrdersByScore(t *testing.T) {
	t.Parallel()

	near := domain.Courier{ID: 1, AcceptanceRate: 50, CompletedJobs: 3}
	far := domain.Courier{ID: 2, AcceptanceRate: 50, CompletedJobs: 3}
	cands := []domain.Candidate{{CourierID: 2, DistanceMeters: 4000}, {CourierID: 1, DistanceMeters: 500}}
	couriers := map[int64]domain.Courier{1: near, 2: far}

	got := dispatch.Rank(cands, couriers, decimal.NewFromInt(100), domain.PriorityNormal)
	require.Len(t, got, 2)
	require.Equal(t, int64(1), got[0].CourierID)
	require.Greater(t, got[0].Score, got[1].Score)
}

func TestRank_ExactScore(t *testing.T) {
	t.Parallel()

	c := domain.Courier{ID: 1, AcceptanceRate: 100, Rating: ptr(5.0), CompletedJobs: 10}
	got := dispatch.Rank(
		[]domain.Candidate{{CourierID: 1, DistanceMeters: 0}},
		map[int64]domain.Courier{1: c},
		decimal.NewFromInt(500),
		domain.PriorityNormal,
	)
	require.Len(t, got, 1)
	require.InDelta(t, 100.0, got[0].Score, 1e-9)

	high := dispatch.Rank(
		[]domain.Candidate{{CourierID: 1, DistanceMeters: 0}},
		map[int64]domain.Courier{1: c},
		decimal.NewFromInt(500),
		domain.PriorityHigh,
	)
	require.InDelta(t, 110.0, high[0].Score, 1e-9)
}

func TestRank_ExperienceSaturates(t *testing.T) {
	t.Parallel()

	ten := domain.Courier{ID: 1, CompletedJobs: 10}
	hundred := domain.Courier{ID: 2, CompletedJobs: 100}
	got := dispatch.Rank(
		[]domain.Candidate{{CourierID: 1, DistanceMeters: 100}, {CourierID: 2, DistanceMeters: 100}},
		map[int64]domain.Courier{1: ten, 2: hundred},
		decimal.Zero,
		domain.PriorityNormal,
	)
	require.Len(t, got, 2)
	require.InDelta(t, got[0].Score, got[1].Score, 1e-9)
	require.Equal(t, int64(1), got[0].CourierID, "ties keep finder order")
}

func TestRank_ActiveJobPenaltyKeepsCourierEligible(t *testing.T) {
	t.Parallel()

	busy := domain.Courier{ID: 1, AcceptanceRate: 90, Rating: ptr(4.8), CompletedJobs: 20, CurrentJobID: ptr(uuid.New())}
	free := domain.Courier{ID: 2, AcceptanceRate: 90, Rating: ptr(4.8), CompletedJobs: 20}
	cands := []domain.Candidate{{CourierID: 1, DistanceMeters: 300}, {CourierID: 2, DistanceMeters: 300}}

	got := dispatch.Rank(cands, map[int64]domain.Courier{1: busy, 2: free}, decimal.NewFromInt(100), domain.PriorityLow)
	require.Len(t, got, 2)
	require.Equal(t, int64(2), got[0].CourierID)
	require.InDelta(t, 15.0, got[0].Score-got[1].Score, 1e-9)
}

func TestRank_DropsNonPositiveScores(t *testing.T) {
	t.Parallel()

	// Unrated, inexperienced, beyond the distance cap and busy: 10 - 15 < 0.
	c := domain.Courier{ID: 1, CurrentJobID: ptr(uuid.New())}
	got := dispatch.Rank(
		[]domain.Candidate{{CourierID: 1, DistanceMeters: 20000}},
		map[int64]domain.Courier{1: c},
		decimal.Zero,
		domain.PriorityNormal,
	)
	require.Empty(t, got)
}

func TestRank_SkipsUnknownCouriers(t *testing.T) {
	t.Parallel()

	got := dispatch.Rank([]domain.Candidate{{CourierID: 9}}, map[int64]domain.Courier{}, decimal.Zero, domain.PriorityNormal)
	require.Empty(t, got)
}
