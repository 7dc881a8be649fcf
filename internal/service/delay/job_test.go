package delay_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"courier-dispatch/internal/service/delay"
)

type sweepFunc func(context.Context) (delay.SweepResult, error)

func (f sweepFunc) Sweep(ctx context.Context) (delay.SweepResult, error) { return f(ctx) }

func TestSweepJob_InvalidSchedule(t *testing.T) {
	job := delay.NewSweepJob(sweepFunc(func(context.Context) (delay.SweepResult, error) {
		return delay.SweepResult{}, nil
	}), "every now and then", nil)

	err := job.Run(context.Background())
	require.Error(t, err)
}

func TestSweepJob_StopsOnCancel(t *testing.T) {
	job := delay.NewSweepJob(sweepFunc(func(context.Context) (delay.SweepResult, error) {
		return delay.SweepResult{}, nil
	}), "@every 1h", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- job.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweep job did not stop")
	}
}
