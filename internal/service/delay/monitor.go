package delay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/ports/dispatchtx"
	"courier-dispatch/internal/service/notify"
)

// Directions used as metric labels.
const (
	directionDelayed = "delayed"
	directionCleared = "cleared"
)

type labeledCounter interface {
	WithLabelValues(lvs ...string) prometheus.Counter
}

// SweepResult counts the jobs whose delay flag changed in one sweep.
type SweepResult struct {
	Delayed int `json:"delayed"`
	Cleared int `json:"cleared"`
}

// Changed returns the number of flipped jobs.
func (r SweepResult) Changed() int { return r.Delayed + r.Cleared }

// Monitor reconciles the DELAYED status of in-flight jobs.
type Monitor struct {
	store            dispatchtx.Store
	notifier         *notify.Notifier
	changes          labeledCounter
	operationTimeout time.Duration
	logger           logx.Logger
	now              func() time.Time
}

// NewMonitor creates a Monitor.
func NewMonitor(store dispatchtx.Store, notifier *notify.Notifier, changes labeledCounter,
	timeout time.Duration, logger logx.Logger) *Monitor {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Monitor{
		store:            store,
		notifier:         notifier,
		changes:          changes,
		operationTimeout: timeout,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Timing returns the projection for a job. Jobs that were not picked up yet
// have no timing.
func (m *Monitor) Timing(ctx context.Context, jobID uuid.UUID) (*Timing, error) {
	ctx, cancel := context.WithTimeout(ctx, m.operationTimeout)
	defer cancel()

	j, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, apperr.ErrNotFound)
	}
	if j.PickedUpAt == nil || j.EstimatedMinutes <= 0 {
		return nil, fmt.Errorf("%w: job %s is not in transit", apperr.ErrInvalid, jobID)
	}
	t := Project(*j.PickedUpAt, Estimate(j.EstimatedMinutes), m.now())
	return &t, nil
}

// Sweep flags in-transit jobs past their estimate as DELAYED and moves
// DELAYED jobs that are back within it to OUT_FOR_DELIVERY. Each flip is a
// compare-and-set, so a job that advanced meanwhile is left alone.
func (m *Monitor) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	listCtx, cancel := context.WithTimeout(ctx, m.operationTimeout)
	jobs, err := m.store.ListInTransitJobs(listCtx)
	cancel()
	if err != nil {
		return res, fmt.Errorf("list in-transit jobs: %w", err)
	}

	now := m.now()
	var errs []error
	for i := range jobs {
		j := &jobs[i]
		if j.PickedUpAt == nil || j.EstimatedMinutes <= 0 || j.Status.Terminal() {
			continue
		}
		delayed := Project(*j.PickedUpAt, Estimate(j.EstimatedMinutes), now).Delayed

		var (
			to        domain.JobStatus
			eventType domain.EventType
			direction string
		)
		switch {
		case delayed && j.Status != domain.JobDelayed:
			to, eventType, direction = domain.JobDelayed, domain.EventJobDelayed, directionDelayed
		case !delayed && j.Status == domain.JobDelayed:
			to, eventType, direction = domain.JobOutForDelivery, domain.EventJobDelayCleared, directionCleared
		default:
			continue
		}

		changed, err := m.flip(ctx, j, to, eventType, now)
		if err != nil {
			m.logger.Warn("delay flip failed",
				logx.Event("delay_flip_failed"),
				logx.String("job_id", j.ID.String()),
				logx.Err(err),
			)
			errs = append(errs, err)
			continue
		}
		if !changed {
			continue
		}
		if direction == directionDelayed {
			res.Delayed++
		} else {
			res.Cleared++
		}
		if m.changes != nil {
			m.changes.WithLabelValues(direction).Inc()
		}
	}

	if res.Changed() > 0 {
		m.logger.Info("delay sweep finished",
			logx.Event("delay_sweep"),
			logx.Int("scanned", len(jobs)),
			logx.Int("delayed", res.Delayed),
			logx.Int("cleared", res.Cleared),
		)
	}
	return res, errors.Join(errs...)
}

func (m *Monitor) flip(ctx context.Context, j *domain.Job, to domain.JobStatus, t domain.EventType, now time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, m.operationTimeout)
	defer cancel()

	var (
		changed bool
		ev      domain.JobEvent
	)
	err := m.store.WithTx(ctx, func(tx dispatchtx.Repository) error {
		ok, err := tx.SetJobStatusIf(ctx, j.ID, j.Status, to)
		if err != nil || !ok {
			changed = false
			return err
		}
		next := j.Clone()
		next.Status = to
		ev = domain.NewJobEvent(&next, t, now, map[string]string{
			"estimated_minutes": fmt.Sprint(j.EstimatedMinutes),
		})
		changed = true
		return tx.AppendEvent(ctx, &ev)
	})
	if err != nil || !changed {
		return false, err
	}
	m.notifier.Publish(ctx, ev)
	return true, nil
}
