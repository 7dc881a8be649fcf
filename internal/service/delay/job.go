package delay

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"courier-dispatch/internal/logx"
)

type sweeper interface {
	Sweep(ctx context.Context) (SweepResult, error)
}

// SweepJob runs the delay sweep on a cron schedule. A sweep still running when
// the next tick fires makes that tick a no-op.
type SweepJob struct {
	sweeper  sweeper
	schedule string
	cron     *cron.Cron
	logger   logx.Logger
}

// NewSweepJob creates a SweepJob. The schedule accepts standard five-field
// specs and descriptors such as "@every 1m".
func NewSweepJob(s sweeper, schedule string, logger logx.Logger) *SweepJob {
	if logger == nil {
		logger = logx.Nop()
	}
	return &SweepJob{
		sweeper:  s,
		schedule: schedule,
		cron:     cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:   logger.With(logx.String("component", "delay_sweep_job")),
	}
}

// Run schedules the sweep and blocks until ctx is done, then waits for a
// running sweep to finish.
func (j *SweepJob) Run(ctx context.Context) error {
	if _, err := j.cron.AddFunc(j.schedule, func() { j.tick(ctx) }); err != nil {
		return fmt.Errorf("schedule delay sweep %q: %w", j.schedule, err)
	}
	j.cron.Start()
	j.logger.Info("delay sweep job started", logx.String("schedule", j.schedule))

	<-ctx.Done()
	<-j.cron.Stop().Done()
	j.logger.Info("delay sweep job stopped")
	return nil
}

func (j *SweepJob) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := j.sweeper.Sweep(ctx); err != nil {
		j.logger.Error("delay sweep failed", logx.Event("delay_sweep_failed"), logx.Err(err))
	}
}
