package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func relayedJob() domain.Job {
	return domain.Job{
		ID:                uuid.New(),
		Status:            domain.JobSearchingAgent,
		OriginWarehouseID: ptr(int64(10)),
		DropWarehouseID:   ptr(int64(10)),
		Legs: []domain.TransitLeg{
			{Number: 1, ToWarehouseID: ptr(int64(10)), Status: domain.LegPending},
			{Number: 2, FromWarehouseID: ptr(int64(10)), ToWarehouseID: ptr(int64(20)), Status: domain.LegPending},
		},
	}
}

func TestJob_CheckInvariants_DestinationEqualsOrigin(t *testing.T) {
	j := relayedJob()
	require.NoError(t, j.CheckInvariants())

	j.Leg(2).ToWarehouseID = ptr(int64(10))
	require.ErrorIs(t, j.CheckInvariants(), apperr.ErrInvalid)
}

func TestJob_CheckInvariants_Assignment(t *testing.T) {
	j := relayedJob()
	j.Assignment = domain.Assignment{Kind: domain.AssignmentRegular}
	require.ErrorIs(t, j.CheckInvariants(), apperr.ErrInvalid)

	j.Assignment = domain.Assignment{CourierID: 3}
	require.ErrorIs(t, j.CheckInvariants(), apperr.ErrInvalid)

	j.Assignment = domain.AssignedLogistics(3)
	require.NoError(t, j.CheckInvariants())
}

func TestJob_CheckInvariants_LegOrder(t *testing.T) {
	j := relayedJob()
	j.Legs[0], j.Legs[1] = j.Legs[1], j.Legs[0]
	require.ErrorIs(t, j.CheckInvariants(), apperr.ErrInvalid)
}

func TestJob_Phases(t *testing.T) {
	j := relayedJob()
	j.ProviderID = ptr(int64(1))
	require.True(t, j.Intermediate())
	require.False(t, j.InLogisticsPhase())
	require.Equal(t, 1, j.ActiveLegNumber())

	j.Leg(1).Status = domain.LegCompleted
	require.True(t, j.InLogisticsPhase())
	require.Equal(t, 2, j.ActiveLegNumber())

	j.Leg(2).Status = domain.LegCompleted
	require.False(t, j.InLogisticsPhase())
	require.Equal(t, 0, j.ActiveLegNumber())
}

func TestJob_AwaitingDestination(t *testing.T) {
	j := relayedJob()
	j.ProviderID = ptr(int64(1))
	j.Leg(2).ToWarehouseID = nil
	require.False(t, j.AwaitingDestination(), "leg 1 still open")

	j.Leg(1).Status = domain.LegCompleted
	require.True(t, j.AwaitingDestination())

	j.Leg(2).ToWarehouseID = ptr(int64(20))
	require.False(t, j.AwaitingDestination())
}

func TestJob_Clone_IsDeep(t *testing.T) {
	j := relayedJob()
	c := j.Clone()
	*c.Leg(2).ToWarehouseID = 99
	c.Legs[0].Status = domain.LegCompleted
	*c.DropWarehouseID = 42

	require.Equal(t, int64(20), *j.Leg(2).ToWarehouseID)
	require.Equal(t, domain.LegPending, j.Legs[0].Status)
	require.Equal(t, int64(10), *j.DropWarehouseID)
}

func TestJobStatus_Helpers(t *testing.T) {
	require.True(t, domain.JobDelivered.Terminal())
	require.True(t, domain.JobCancelled.Terminal())
	require.False(t, domain.JobAtWarehouse.Terminal())

	require.True(t, domain.JobReadyForPickup.Assignable())
	require.False(t, domain.JobAssigned.Assignable())

	require.True(t, domain.JobAtWarehouse.ReleasesCourier())
	require.False(t, domain.JobPickedUp.ReleasesCourier())

	require.False(t, domain.JobStatus("LOST").Valid())
}

func TestParseTransitEvent(t *testing.T) {
	ev, err := domain.ParseTransitEvent(" delivered ", nil)
	require.NoError(t, err)
	require.Equal(t, domain.TransitDelivered, ev.Kind)

	_, err = domain.ParseTransitEvent("ARRIVED_AT_WAREHOUSE", nil)
	require.ErrorIs(t, err, apperr.ErrInvalid)

	ev, err = domain.ParseTransitEvent("arrived_at_warehouse", ptr(int64(7)))
	require.NoError(t, err)
	require.Equal(t, int64(7), *ev.WarehouseID)

	_, err = domain.ParseTransitEvent("teleported", nil)
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestCourier_PoolAndRelease(t *testing.T) {
	c := domain.Courier{ID: 1, Status: domain.CourierOnline, Approved: true}
	require.True(t, c.Eligible())
	require.True(t, c.InPool(nil))
	require.False(t, c.InPool(ptr(int64(5))))

	c.StartTrip(uuid.New())
	require.Equal(t, domain.CourierOnTrip, c.Status)
	require.True(t, c.HasActiveJob())

	c.Release()
	require.Equal(t, domain.CourierOnline, c.Status)
	require.False(t, c.HasActiveJob())

	c.Blocked = true
	require.False(t, c.Eligible())
}
