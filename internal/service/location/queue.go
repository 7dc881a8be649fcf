// Package location applies courier positions to the geo index and persists
// them in the background.
package location

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/geo"
	"courier-dispatch/internal/logx"
)

type locationSaver interface {
	SaveLocation(ctx context.Context, upd domain.LocationUpdate, touchLastSeen bool) error
}

type counter interface {
	Add(float64)
}

// Config holds queue settings.
type Config struct {
	FlushInterval  time.Duration
	FlushThreshold int
	MaxQueue       int
	LastSeenWindow time.Duration
	WriteTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.FlushInterval <= 0 {
		c.FlushInterval = 5 * time.Second
	}
	if c.FlushThreshold <= 0 {
		c.FlushThreshold = 500
	}
	if c.MaxQueue < c.FlushThreshold {
		c.MaxQueue = 20 * c.FlushThreshold
	}
	if c.LastSeenWindow < 0 {
		c.LastSeenWindow = 0
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 3 * time.Second
	}
	return c
}

// Queue is a write-back queue of courier positions. The geo index is updated
// on enqueue; storage writes are batched, keeping only the latest position
// per courier.
type Queue struct {
	index   geo.Index
	store   locationSaver
	cfg     Config
	flushed counter
	dropped counter
	logger  logx.Logger
	now     func() time.Time

	mu      sync.Mutex
	pending map[int64]domain.LocationUpdate
	// latest is the newest report time seen per courier; older reports are ignored.
	latest map[int64]time.Time
	kick   chan struct{}

	// flushMu serializes flushes; lastSeen is only touched under it.
	flushMu  sync.Mutex
	lastSeen map[int64]time.Time
}

// NewQueue creates a Queue. Counters may be nil.
func NewQueue(index geo.Index, store locationSaver, cfg Config, flushed, dropped counter, logger logx.Logger) *Queue {
	if logger == nil {
		logger = logx.Nop()
	}
	return &Queue{
		index:    index,
		store:    store,
		cfg:      cfg.withDefaults(),
		flushed:  flushed,
		dropped:  dropped,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		pending:  make(map[int64]domain.LocationUpdate),
		latest:   make(map[int64]time.Time),
		kick:     make(chan struct{}, 1),
		lastSeen: make(map[int64]time.Time),
	}
}

// Enqueue records a courier position. The index sees it immediately; storage
// sees it on the next flush. A report older than the newest one seen for the
// courier is ignored. Only invalid input is reported.
func (q *Queue) Enqueue(ctx context.Context, courierID int64, p geo.Point, at time.Time) error {
	if courierID <= 0 {
		return fmt.Errorf("%w: courier id must be positive", apperr.ErrInvalid)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	if at.IsZero() {
		at = q.now()
	}

	q.mu.Lock()
	if last, ok := q.latest[courierID]; ok && last.After(at) {
		q.mu.Unlock()
		return nil
	}
	q.latest[courierID] = at
	q.pending[courierID] = domain.LocationUpdate{CourierID: courierID, Point: p, RecordedAt: at}
	full := len(q.pending) >= q.cfg.FlushThreshold
	// under mu so concurrent reports reach the index in time order
	err := q.index.Set(ctx, courierID, p)
	q.mu.Unlock()

	if err != nil {
		q.logger.Warn("geo index update failed",
			logx.Event("geo_index_set_failed"),
			logx.Int64("courier_id", courierID),
			logx.Err(err),
		)
	}

	if full {
		select {
		case q.kick <- struct{}{}:
		default:
		}
	}
	return nil
}

// Pending returns the number of couriers waiting to be persisted.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Run flushes on every interval tick and whenever the queue reaches the flush
// threshold. It flushes once more when ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	ticker := time.NewTicker(q.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			q.Flush(ctx)
			return nil
		case <-ticker.C:
			q.Flush(ctx)
		case <-q.kick:
			q.Flush(ctx)
		}
	}
}

// Flush persists the current batch and returns the number of stored updates.
// A started flush is never cancelled. Updates for unknown couriers are dropped.
// Other failures are re-queued unless a newer position arrived or the queue is
// full, in which case they are dropped.
func (q *Queue) Flush(ctx context.Context) int {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	q.mu.Lock()
	batch := q.pending
	q.pending = make(map[int64]domain.LocationUpdate, len(batch))
	q.mu.Unlock()
	if len(batch) == 0 {
		return 0
	}

	ctx = context.WithoutCancel(ctx)
	updates := make([]domain.LocationUpdate, 0, len(batch))
	for _, u := range batch {
		updates = append(updates, u)
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].CourierID < updates[j].CourierID })

	var (
		stored  int
		unknown int
		failed  []domain.LocationUpdate
	)
	for _, u := range updates {
		touch := q.lastSeenStale(u)
		wctx, cancel := context.WithTimeout(ctx, q.cfg.WriteTimeout)
		err := q.store.SaveLocation(wctx, u, touch)
		cancel()
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			unknown++
			q.forget(ctx, u.CourierID)
			q.logger.Warn("location for unknown courier dropped",
				logx.Event("location_unknown_courier"),
				logx.Int64("courier_id", u.CourierID),
			)
			continue
		case err != nil:
			failed = append(failed, u)
			continue
		}
		stored++
		if touch {
			q.lastSeen[u.CourierID] = u.RecordedAt
		}
	}
	if unknown > 0 && q.dropped != nil {
		q.dropped.Add(float64(unknown))
	}
	if q.flushed != nil && stored > 0 {
		q.flushed.Add(float64(stored))
	}

	if len(failed) > 0 {
		q.requeue(failed)
	}
	return stored
}

// forget clears the index entry and ordering state of a courier that storage
// does not know, unless a newer report for it is already queued.
func (q *Queue) forget(ctx context.Context, courierID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.lastSeen, courierID)
	if _, queued := q.pending[courierID]; queued {
		return
	}
	delete(q.latest, courierID)
	if err := q.index.Remove(ctx, courierID); err != nil {
		q.logger.Warn("geo index remove failed",
			logx.Event("geo_index_remove_failed"),
			logx.Int64("courier_id", courierID),
			logx.Err(err),
		)
	}
}

func (q *Queue) lastSeenStale(u domain.LocationUpdate) bool {
	last, ok := q.lastSeen[u.CourierID]
	return !ok || u.RecordedAt.Sub(last) >= q.cfg.LastSeenWindow
}

func (q *Queue) requeue(failed []domain.LocationUpdate) {
	var requeued, dropped int
	q.mu.Lock()
	for _, u := range failed {
		if _, newer := q.pending[u.CourierID]; newer {
			continue
		}
		if len(q.pending) >= q.cfg.MaxQueue {
			dropped++
			continue
		}
		q.pending[u.CourierID] = u
		requeued++
	}
	q.mu.Unlock()

	q.logger.Warn("location flush failed",
		logx.Event("location_flush_failed"),
		logx.Int("failed", len(failed)),
		logx.Int("requeued", requeued),
		logx.Int("dropped", dropped),
	)
	if dropped > 0 && q.dropped != nil {
		q.dropped.Add(float64(dropped))
	}
}
