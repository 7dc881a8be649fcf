// Package memstore is an in-memory dispatchtx.Store for service tests.
//
// Transactions are serialized, which models serializable isolation: a
// transaction that re-checks a precondition always observes the writes of the
// transaction that committed before it. Writes are journaled and replayed on
// commit so that non-transactional writes made meanwhile are not lost.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/ports/dispatchtx"
)

type state struct {
	jobs        map[uuid.UUID]domain.Job
	couriers    map[int64]domain.Courier
	warehouses  map[int64]domain.Warehouse
	wallets     map[domain.Party]domain.Wallet
	entries     []domain.LedgerEntry
	settlements map[uuid.UUID]domain.Settlement
	invoices    map[uuid.UUID]domain.InvoiceSnapshot
	events      []domain.JobEvent
	locations   []domain.LocationUpdate
}

func newState() *state {
	return &state{
		jobs:        map[uuid.UUID]domain.Job{},
		couriers:    map[int64]domain.Courier{},
		warehouses:  map[int64]domain.Warehouse{},
		wallets:     map[domain.Party]domain.Wallet{},
		settlements: map[uuid.UUID]domain.Settlement{},
		invoices:    map[uuid.UUID]domain.InvoiceSnapshot{},
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.jobs {
		out.jobs[k] = v.Clone()
	}
	for k, v := range s.couriers {
		out.couriers[k] = v.Clone()
	}
	for k, v := range s.warehouses {
		out.warehouses[k] = v
	}
	for k, v := range s.wallets {
		out.wallets[k] = v
	}
	for k, v := range s.settlements {
		out.settlements[k] = v
	}
	for k, v := range s.invoices {
		out.invoices[k] = v
	}
	out.entries = append(out.entries, s.entries...)
	out.events = append(out.events, s.events...)
	out.locations = append(out.locations, s.locations...)
	return out
}

// Store is the in-memory store.
type Store struct {
	*repo

	txMu sync.Mutex
	mu   sync.Mutex
	st   *state

	failMu   sync.Mutex
	failures map[string]error
	txCount  int
}

var _ dispatchtx.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	s := &Store{st: newState(), failures: map[string]error{}}
	s.repo = &repo{s: s}
	return s
}

// FailOn makes every call of the named operation fail with err. A nil err
// clears the failure.
func (s *Store) FailOn(op string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) failure(op string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return s.failures[op]
}

// TxCount returns the number of committed transactions.
func (s *Store) TxCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txCount
}

// WithTx runs fn in a transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) error {
	return s.run(ctx, fn)
}

// WithSerializableTx runs fn in a transaction.
func (s *Store) WithSerializableTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) error {
	return s.run(ctx, fn)
}

func (s *Store) run(ctx context.Context, fn func(tx dispatchtx.Repository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	work := s.st.clone()
	s.mu.Unlock()

	var journal []func(*state)
	if err := fn(&repo{s: s, work: work, journal: &journal}); err != nil {
		return err
	}
	if err := s.failure("Commit"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range journal {
		w(s.st)
	}
	s.txCount++
	return nil
}

// PutCourier stores a courier as is.
func (s *Store) PutCourier(c domain.Courier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.couriers[c.ID] = c.Clone()
}

// PutWarehouse stores a warehouse as is.
func (s *Store) PutWarehouse(w domain.Warehouse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.warehouses[w.ID] = w
}

// PutJob stores a job as is, bypassing invariant checks.
func (s *Store) PutJob(j domain.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.jobs[j.ID] = j.Clone()
}

// PutWallet stores a wallet as is.
func (s *Store) PutWallet(w domain.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.wallets[w.Party] = w
}

// Job returns a committed job.
func (s *Store) Job(id uuid.UUID) (domain.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.st.jobs[id]
	return j.Clone(), ok
}

// Jobs returns every committed job.
func (s *Store) Jobs() []domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Job, 0, len(s.st.jobs))
	for _, j := range s.st.jobs {
		out = append(out, j.Clone())
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out
}

// Courier returns a committed courier.
func (s *Store) Courier(id int64) (domain.Courier, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.st.couriers[id]
	return c.Clone(), ok
}

// Wallet returns a committed wallet.
func (s *Store) Wallet(p domain.Party) (domain.Wallet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.st.wallets[p]
	return w, ok
}

// Entries returns all committed ledger entries.
func (s *Store) Entries() []domain.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LedgerEntry(nil), s.st.entries...)
}

// Invoices returns the number of invoice snapshots.
func (s *Store) Invoices() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.invoices)
}

// Events returns committed events of a job.
func (s *Store) Events(jobID uuid.UUID) []domain.JobEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.JobEvent
	for _, e := range s.st.events {
		if e.JobID == jobID {
			out = append(out, e)
		}
	}
	return out
}

// Locations returns the persisted location history.
func (s *Store) Locations() []domain.LocationUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LocationUpdate(nil), s.st.locations...)
}

type repo struct {
	s       *Store
	work    *state
	journal *[]func(*state)
}

func (r *repo) read(fn func(st *state)) {
	if r.journal == nil {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		fn(r.s.st)
		return
	}
	fn(r.work)
}

func (r *repo) write(fn func(st *state)) {
	if r.journal == nil {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		fn(r.s.st)
		return
	}
	fn(r.work)
	*r.journal = append(*r.journal, fn)
}

func (r *repo) GetJob(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	if err := r.s.failure("GetJob"); err != nil {
		return nil, err
	}
	var out *domain.Job
	r.read(func(st *state) {
		if j, ok := st.jobs[id]; ok {
			c := j.Clone()
			out = &c
		}
	})
	return out, nil
}

func (r *repo) InsertJob(_ context.Context, j *domain.Job) error {
	if err := r.s.failure("InsertJob"); err != nil {
		return err
	}
	if err := j.CheckInvariants(); err != nil {
		return err
	}
	var dup bool
	r.read(func(st *state) { _, dup = st.jobs[j.ID] })
	if dup {
		return fmt.Errorf("%w: job %s exists", apperr.ErrConflict, j.ID)
	}
	c := j.Clone()
	r.write(func(st *state) { st.jobs[c.ID] = c.Clone() })
	return nil
}

func (r *repo) UpdateJob(_ context.Context, j *domain.Job) error {
	if err := r.s.failure("UpdateJob"); err != nil {
		return err
	}
	if err := j.CheckInvariants(); err != nil {
		return err
	}
	var ok bool
	r.read(func(st *state) { _, ok = st.jobs[j.ID] })
	if !ok {
		return fmt.Errorf("job %s not found", j.ID)
	}
	c := j.Clone()
	r.write(func(st *state) { st.jobs[c.ID] = c.Clone() })
	return nil
}

func (r *repo) SetJobStatusIf(_ context.Context, id uuid.UUID, from, to domain.JobStatus) (bool, error) {
	if err := r.s.failure("SetJobStatusIf"); err != nil {
		return false, err
	}
	var changed bool
	now := time.Now().UTC()
	r.write(func(st *state) {
		j, ok := st.jobs[id]
		if !ok || j.Status != from {
			changed = false
			return
		}
		j.Status = to
		j.UpdatedAt = now
		st.jobs[id] = j
		changed = true
	})
	return changed, nil
}

func (r *repo) ListInTransitJobs(_ context.Context) ([]domain.Job, error) {
	if err := r.s.failure("ListInTransitJobs"); err != nil {
		return nil, err
	}
	var out []domain.Job
	r.read(func(st *state) {
		for _, j := range st.jobs {
			if j.Status.Moving() && j.PickedUpAt != nil {
				out = append(out, j.Clone())
			}
		}
	})
	sort.Slice(out, func(a, b int) bool { return out[a].PickedUpAt.Before(*out[b].PickedUpAt) })
	return out, nil
}

func (r *repo) GetCourier(_ context.Context, id int64) (*domain.Courier, error) {
	if err := r.s.failure("GetCourier"); err != nil {
		return nil, err
	}
	var out *domain.Courier
	r.read(func(st *state) {
		if c, ok := st.couriers[id]; ok {
			cc := c.Clone()
			out = &cc
		}
	})
	return out, nil
}

func (r *repo) ListCouriers(_ context.Context, ids []int64) ([]domain.Courier, error) {
	if err := r.s.failure("ListCouriers"); err != nil {
		return nil, err
	}
	var out []domain.Courier
	r.read(func(st *state) {
		for _, id := range ids {
			if c, ok := st.couriers[id]; ok {
				out = append(out, c.Clone())
			}
		}
	})
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (r *repo) ListOnlineCouriers(_ context.Context, providerID *int64) ([]domain.Courier, error) {
	if err := r.s.failure("ListOnlineCouriers"); err != nil {
		return nil, err
	}
	var out []domain.Courier
	r.read(func(st *state) {
		for _, c := range st.couriers {
			if c.Eligible() && c.InPool(providerID) {
				out = append(out, c.Clone())
			}
		}
	})
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (r *repo) UpdateCourier(_ context.Context, c *domain.Courier) error {
	if err := r.s.failure("UpdateCourier"); err != nil {
		return err
	}
	var ok bool
	r.read(func(st *state) { _, ok = st.couriers[c.ID] })
	if !ok {
		return fmt.Errorf("courier %d not found", c.ID)
	}
	in := c.Clone()
	r.write(func(st *state) {
		cur := st.couriers[in.ID]
		cur.Status = in.Status
		cur.Approved = in.Approved
		cur.Blocked = in.Blocked
		cur.CurrentJobID = in.Clone().CurrentJobID
		cur.AcceptanceRate = in.AcceptanceRate
		cur.Rating = in.Clone().Rating
		st.couriers[in.ID] = cur
	})
	return nil
}

func (r *repo) AddCourierEarnings(_ context.Context, id int64, amount decimal.Decimal, jobsDelta int) error {
	if err := r.s.failure("AddCourierEarnings"); err != nil {
		return err
	}
	var ok bool
	r.read(func(st *state) { _, ok = st.couriers[id] })
	if !ok {
		return fmt.Errorf("courier %d not found", id)
	}
	r.write(func(st *state) {
		c := st.couriers[id]
		c.TotalEarnings = c.TotalEarnings.Add(amount)
		c.CompletedJobs += jobsDelta
		if c.CompletedJobs < 0 {
			c.CompletedJobs = 0
		}
		st.couriers[id] = c
	})
	return nil
}

func (r *repo) SaveLocation(_ context.Context, upd domain.LocationUpdate, touchLastSeen bool) error {
	if err := r.s.failure("SaveLocation"); err != nil {
		return err
	}
	var ok bool
	r.read(func(st *state) { _, ok = st.couriers[upd.CourierID] })
	if !ok {
		return fmt.Errorf("courier %d: %w", upd.CourierID, apperr.ErrNotFound)
	}
	r.write(func(st *state) {
		st.locations = append(st.locations, upd)
		c := st.couriers[upd.CourierID]
		p := upd.Point
		c.Location = &p
		if touchLastSeen {
			ts := upd.RecordedAt
			c.LastSeenAt = &ts
		}
		st.couriers[upd.CourierID] = c
	})
	return nil
}

func (r *repo) GetWarehouse(_ context.Context, id int64) (*domain.Warehouse, error) {
	if err := r.s.failure("GetWarehouse"); err != nil {
		return nil, err
	}
	var out *domain.Warehouse
	r.read(func(st *state) {
		if w, ok := st.warehouses[id]; ok {
			out = &w
		}
	})
	return out, nil
}

func (r *repo) GetWallet(_ context.Context, party domain.Party) (*domain.Wallet, error) {
	if err := r.s.failure("GetWallet"); err != nil {
		return nil, err
	}
	var (
		out    domain.Wallet
		exists bool
	)
	r.read(func(st *state) { out, exists = st.wallets[party] })
	if !exists {
		out = domain.Wallet{Party: party, Balance: decimal.Zero}
		created := out
		r.write(func(st *state) {
			if _, ok := st.wallets[party]; !ok {
				st.wallets[party] = created
			}
		})
	}
	return &out, nil
}

func (r *repo) UpdateWallet(_ context.Context, w *domain.Wallet) error {
	if err := r.s.failure("UpdateWallet"); err != nil {
		return err
	}
	in := *w
	r.write(func(st *state) { st.wallets[in.Party] = in })
	return nil
}

func (r *repo) InsertLedgerEntry(_ context.Context, e *domain.LedgerEntry) error {
	if err := r.s.failure("InsertLedgerEntry"); err != nil {
		return err
	}
	in := *e
	r.write(func(st *state) { st.entries = append(st.entries, in) })
	return nil
}

func (r *repo) ListLedgerEntries(_ context.Context, jobID uuid.UUID) ([]domain.LedgerEntry, error) {
	var out []domain.LedgerEntry
	r.read(func(st *state) {
		for _, e := range st.entries {
			if e.JobID == jobID {
				out = append(out, e)
			}
		}
	})
	return out, nil
}

func (r *repo) GetSettlement(_ context.Context, jobID uuid.UUID) (*domain.Settlement, error) {
	if err := r.s.failure("GetSettlement"); err != nil {
		return nil, err
	}
	var out *domain.Settlement
	r.read(func(st *state) {
		if s, ok := st.settlements[jobID]; ok {
			out = &s
		}
	})
	return out, nil
}

func (r *repo) InsertSettlement(_ context.Context, s *domain.Settlement) error {
	if err := r.s.failure("InsertSettlement"); err != nil {
		return err
	}
	var dup bool
	r.read(func(st *state) { _, dup = st.settlements[s.JobID] })
	if dup {
		return fmt.Errorf("%w: settlement for job %s exists", apperr.ErrConflict, s.JobID)
	}
	in := *s
	r.write(func(st *state) { st.settlements[in.JobID] = in })
	return nil
}

func (r *repo) UpdateSettlement(_ context.Context, s *domain.Settlement) error {
	if err := r.s.failure("UpdateSettlement"); err != nil {
		return err
	}
	in := *s
	r.write(func(st *state) { st.settlements[in.JobID] = in })
	return nil
}

func (r *repo) InsertInvoiceSnapshot(_ context.Context, s *domain.InvoiceSnapshot) error {
	if err := r.s.failure("InsertInvoiceSnapshot"); err != nil {
		return err
	}
	in := *s
	r.write(func(st *state) {
		if _, ok := st.invoices[in.JobID]; !ok {
			st.invoices[in.JobID] = in
		}
	})
	return nil
}

func (r *repo) AppendEvent(_ context.Context, e *domain.JobEvent) error {
	if err := r.s.failure("AppendEvent"); err != nil {
		return err
	}
	in := *e
	r.write(func(st *state) { st.events = append(st.events, in) })
	return nil
}

func (r *repo) ListEvents(_ context.Context, jobID uuid.UUID) ([]domain.JobEvent, error) {
	var out []domain.JobEvent
	r.read(func(st *state) {
		for _, e := range st.events {
			if e.JobID == jobID {
				out = append(out, e)
			}
		}
	})
	return out, nil
}
