// Package transit drives jobs through direct and warehouse-relayed routes.
package transit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/geo"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/ports/dispatchtx"
	"courier-dispatch/internal/pricing"
	"courier-dispatch/internal/service/dispatch"
	"courier-dispatch/internal/service/notify"
)

// Orchestrator owns every job transition after the accept.
type Orchestrator struct {
	store            dispatchtx.Store
	dispatcher       Dispatcher
	settler          Settler
	quoter           pricing.Quoter
	notifier         *notify.Notifier
	operationTimeout time.Duration
	logger           logx.Logger
	now              func() time.Time
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(store dispatchtx.Store, dispatcher Dispatcher, settler Settler, quoter pricing.Quoter,
	notifier *notify.Notifier, timeout time.Duration, logger logx.Logger) *Orchestrator {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Orchestrator{
		store:            store,
		dispatcher:       dispatcher,
		settler:          settler,
		quoter:           quoter,
		notifier:         notifier,
		operationTimeout: timeout,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (o *Orchestrator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.operationTimeout)
}

// Job returns a job by id.
func (o *Orchestrator) Job(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	j, err := o.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, fmt.Errorf("job %s: %w", id, apperr.ErrNotFound)
	}
	return j, nil
}

// dispatchAfterCommit runs a dispatch round for jobID. Failures leave the job
// searching and are only logged.
func (o *Orchestrator) dispatchAfterCommit(ctx context.Context, jobID uuid.UUID) int {
	if o.dispatcher == nil {
		return 0
	}
	n, err := o.dispatcher.AssignDispatch(ctx, dispatch.Request{JobID: jobID})
	if err != nil {
		o.logger.Warn("dispatch failed, job stays searching",
			logx.Event("dispatch_failed"),
			logx.String("job_id", jobID.String()),
			logx.Err(err),
		)
		return 0
	}
	return n
}

// txEvents collects events appended inside a transaction so they can be
// published once it commits.
type txEvents struct {
	tx  dispatchtx.Repository
	now time.Time
	out []domain.JobEvent
}

func (e *txEvents) add(ctx context.Context, j *domain.Job, t domain.EventType, payload map[string]string) error {
	ev := domain.NewJobEvent(j, t, e.now, payload)
	if err := e.tx.AppendEvent(ctx, &ev); err != nil {
		return err
	}
	e.out = append(e.out, ev)
	return nil
}

// releaseCourier detaches the assigned courier if it still points at the job.
func releaseCourier(ctx context.Context, tx dispatchtx.Repository, j *domain.Job) error {
	id, ok := j.Assignment.Courier()
	if !ok {
		return nil
	}
	c, err := tx.GetCourier(ctx, id)
	if err != nil {
		return err
	}
	if c == nil || c.CurrentJobID == nil || *c.CurrentJobID != j.ID {
		return nil
	}
	c.Release()
	return tx.UpdateCourier(ctx, c)
}

func loadJob(ctx context.Context, tx dispatchtx.Repository, id uuid.UUID) (*domain.Job, error) {
	j, err := tx.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, fmt.Errorf("job %s: %w", id, apperr.ErrNotFound)
	}
	return j, nil
}

func loadWarehouse(ctx context.Context, tx dispatchtx.Repository, id int64) (*domain.Warehouse, error) {
	w, err := tx.GetWarehouse(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("warehouse %d: %w", id, apperr.ErrNotFound)
	}
	return w, nil
}

// maxQuoteRounds bounds how often a transaction is replayed because the hop it
// has to price changed underneath it.
const maxQuoteRounds = 3

// hop is the pickup and drop pair a quote was taken for.
type hop struct{ from, to geo.Point }

// quoteNeeded aborts a transaction that has to price a hop not quoted yet.
type quoteNeeded struct{ hop hop }

func (e *quoteNeeded) Error() string { return "hop is not priced yet" }

// quotes holds prices fetched outside any transaction.
type quotes map[hop]pricing.Quote

// price applies the quote of the job's current hop. Without one it aborts the
// transaction with quoteNeeded.
func (q quotes) price(j *domain.Job) error {
	h := hop{from: j.Pickup, to: j.Drop}
	quote, ok := q[h]
	if !ok {
		return &quoteNeeded{hop: h}
	}
	applyQuote(j, quote)
	return nil
}

// inTx runs fn in a transaction. When fn needs a price it does not have, the
// transaction is rolled back, the hop is quoted with no row locks held, and fn
// runs again against fresh state.
func (o *Orchestrator) inTx(ctx context.Context, serializable bool, q quotes,
	fn func(tx dispatchtx.Repository, q quotes) error) error {
	if q == nil {
		q = quotes{}
	}
	run := o.store.WithTx
	if serializable {
		run = o.store.WithSerializableTx
	}
	for round := 0; ; round++ {
		err := run(ctx, func(tx dispatchtx.Repository) error { return fn(tx, q) })
		var need *quoteNeeded
		if !errors.As(err, &need) {
			return err
		}
		if round == maxQuoteRounds {
			return fmt.Errorf("%w: route kept changing while pricing", apperr.ErrConflict)
		}
		if err := o.quote(ctx, q, need.hop.from, need.hop.to); err != nil {
			return err
		}
	}
}

func (o *Orchestrator) quote(ctx context.Context, q quotes, from, to geo.Point) error {
	res, err := o.quoter.Quote(ctx, from, to)
	if err != nil {
		return fmt.Errorf("quote hop: %w", err)
	}
	q[hop{from: from, to: to}] = res
	return nil
}

func applyQuote(j *domain.Job, q pricing.Quote) {
	j.Payment = q.Payment
	j.Payout = q.Payout
	j.Commission = q.Commission
	j.DistanceKm = q.DistanceKm
	j.EstimatedMinutes = q.EstimatedMinutes
}

func sameID(a *int64, b int64) bool { return a != nil && *a == b }
