package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/geo"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/ports/dispatchtx"
	"courier-dispatch/internal/service/notify"
)

// Config holds dispatch defaults.
type Config struct {
	RadiusMeters float64
	OfferCap     int
	OpTimeout    time.Duration
}

// Request describes one dispatch round. Zero values fall back to the job and
// the service defaults.
type Request struct {
	JobID    uuid.UUID
	Pickup   *geo.Point
	Radius   float64
	OfferCap int
}

// Service finds, ranks and offers couriers and commits accepts.
type Service struct {
	store            dispatchtx.Store
	finder           *Finder
	broadcaster      *Broadcaster
	notifier         *notify.Notifier
	conflicts        counter
	cfg              Config
	operationTimeout time.Duration
	logger           logx.Logger
	now              func() time.Time
}

// NewService creates a dispatch Service.
func NewService(store dispatchtx.Store, finder *Finder, broadcaster *Broadcaster, notifier *notify.Notifier,
	conflicts counter, cfg Config, logger logx.Logger) *Service {
	if cfg.RadiusMeters <= 0 {
		cfg.RadiusMeters = geo.DefaultSearchRadiusMeters
	}
	if cfg.OfferCap <= 0 {
		cfg.OfferCap = DefaultOfferCap
	}
	timeout := cfg.OpTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Service{
		store:            store,
		finder:           finder,
		broadcaster:      broadcaster,
		notifier:         notifier,
		conflicts:        conflicts,
		cfg:              cfg,
		operationTimeout: timeout,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// AssignDispatch offers the job to the best couriers around its pickup point
// and returns the number of offers sent. It never waits for an accept.
func (s *Service) AssignDispatch(ctx context.Context, req Request) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	job, err := s.store.GetJob(ctx, req.JobID)
	if err != nil {
		return 0, err
	}
	if job == nil {
		return 0, fmt.Errorf("job %s: %w", req.JobID, apperr.ErrNotFound)
	}
	if !job.Status.Assignable() || job.Assignment.Active() {
		return 0, fmt.Errorf("%w: job %s is %s", apperr.ErrConflict, job.ID, job.Status)
	}
	if job.AwaitingDestination() {
		return 0, fmt.Errorf("%w: job %s has no destination warehouse", apperr.ErrInvalid, job.ID)
	}

	pickup := job.Pickup
	if req.Pickup != nil {
		pickup = *req.Pickup
	}
	radius := req.Radius
	if radius <= 0 {
		radius = s.cfg.RadiusMeters
	}
	limit := req.OfferCap
	if limit <= 0 {
		limit = s.cfg.OfferCap
	}

	var pool *int64
	if job.InLogisticsPhase() {
		pool = job.ProviderID
	}

	cands, couriers, err := s.finder.Find(ctx, pickup, radius, pool)
	if err != nil {
		if errors.Is(err, geo.ErrInvalidPoint) {
			return 0, fmt.Errorf("%w: pickup: %v", apperr.ErrInvalid, err)
		}
		return 0, fmt.Errorf("find candidates: %w", err)
	}
	ranked := Rank(cands, couriers, job.Payout, job.Priority)
	if len(ranked) == 0 {
		s.logger.Info("no couriers to offer",
			logx.Event("dispatch_empty"),
			logx.String("job_id", job.ID.String()),
			logx.Int("candidates", len(cands)),
		)
		return 0, nil
	}

	sent := s.broadcaster.Broadcast(ctx, job, ranked, limit)

	ev := domain.NewJobEvent(job, domain.EventDispatchOffered, s.now(), map[string]string{
		"offers":     strconv.Itoa(sent),
		"candidates": strconv.Itoa(len(ranked)),
	})
	if err := s.store.AppendEvent(ctx, &ev); err != nil {
		s.logger.Warn("dispatch event not recorded", logx.String("job_id", job.ID.String()), logx.Err(err))
	}

	s.logger.Info("job offered",
		logx.Event("dispatch_offered"),
		logx.String("job_id", job.ID.String()),
		logx.Int("offers", sent),
		logx.Int("candidates", len(ranked)),
	)
	return sent, nil
}

// AcceptJob commits courierID as the exclusive assignee of jobID. Losing the
// race yields apperr.ErrConflict; an ineligible or busy courier yields
// apperr.ErrInvalid.
func (s *Service) AcceptJob(ctx context.Context, jobID uuid.UUID, courierID int64) (*domain.Job, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		result *domain.Job
		events []domain.JobEvent
	)
	err := s.store.WithSerializableTx(ctx, func(tx dispatchtx.Repository) error {
		events = events[:0]
		now := s.now()

		c, err := tx.GetCourier(ctx, courierID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("courier %d: %w", courierID, apperr.ErrNotFound)
		}
		if !c.Eligible() {
			return fmt.Errorf("%w: courier %d cannot accept jobs", apperr.ErrInvalid, courierID)
		}

		if c.CurrentJobID != nil {
			cur, err := tx.GetJob(ctx, *c.CurrentJobID)
			if err != nil {
				return err
			}
			if cur != nil && !cur.Status.ReleasesCourier() {
				return fmt.Errorf("%w: courier %d is busy with job %s", apperr.ErrInvalid, courierID, cur.ID)
			}
			// Bookkeeping drift: the courier still points at a finished job.
			c.Release()
			if cur != nil {
				ev := domain.NewJobEvent(cur, domain.EventStaleAssignmentDrop, now, map[string]string{
					"courier_id": strconv.FormatInt(courierID, 10),
				})
				if err := tx.AppendEvent(ctx, &ev); err != nil {
					return err
				}
				events = append(events, ev)
			}
		}

		job, err := tx.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		if job == nil {
			return fmt.Errorf("job %s: %w", jobID, apperr.ErrNotFound)
		}
		if !job.Status.Assignable() || job.Assignment.Active() {
			return fmt.Errorf("%w: job %s is no longer available", apperr.ErrConflict, jobID)
		}

		if job.InLogisticsPhase() {
			if job.AwaitingDestination() {
				return fmt.Errorf("%w: job %s has no destination warehouse", apperr.ErrInvalid, jobID)
			}
			if !c.InPool(job.ProviderID) {
				return fmt.Errorf("%w: courier %d is not in the provider pool", apperr.ErrInvalid, courierID)
			}
			job.Assignment = domain.AssignedLogistics(courierID)
		} else {
			if !c.InPool(nil) {
				return fmt.Errorf("%w: logistics courier %d cannot take a regular job", apperr.ErrInvalid, courierID)
			}
			job.Assignment = domain.AssignedRegular(courierID)
		}
		job.Status = domain.JobAssigned
		job.AssignedAt = &now
		job.UpdatedAt = now
		c.StartTrip(job.ID)

		if err := tx.UpdateJob(ctx, job); err != nil {
			return err
		}
		if err := tx.UpdateCourier(ctx, c); err != nil {
			return err
		}
		ev := domain.NewJobEvent(job, domain.EventJobAccepted, now, nil)
		if err := tx.AppendEvent(ctx, &ev); err != nil {
			return err
		}
		events = append(events, ev)
		result = job
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			inc(s.conflicts)
			s.logger.Info("accept lost the race",
				logx.Event("accept_conflict"),
				logx.String("job_id", jobID.String()),
				logx.Int64("courier_id", courierID),
			)
		}
		return nil, err
	}

	s.notifier.Publish(ctx, events...)
	s.logger.Info("job accepted",
		logx.Event("job_accepted"),
		logx.String("job_id", jobID.String()),
		logx.Int64("courier_id", courierID),
		logx.String("assignment", string(result.Assignment.Kind)),
	)
	return result, nil
}

// RejectJob records a courier's rejection. It does not change any state.
func (s *Service) RejectJob(ctx context.Context, jobID uuid.UUID, courierID int64, reason string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s: %w", jobID, apperr.ErrNotFound)
	}
	ev := domain.NewJobEvent(job, domain.EventJobRejected, s.now(), map[string]string{
		"courier_id": strconv.FormatInt(courierID, 10),
		"reason":     reason,
	})
	if err := s.store.AppendEvent(ctx, &ev); err != nil {
		return err
	}
	s.logger.Info("job rejected",
		logx.Event("job_rejected"),
		logx.String("job_id", jobID.String()),
		logx.Int64("courier_id", courierID),
	)
	return nil
}
