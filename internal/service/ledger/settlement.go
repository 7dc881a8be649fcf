// Package ledger applies the money split of delivered jobs exactly once.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/ports/dispatchtx"
	"courier-dispatch/internal/service/notify"
)

// Settlement results used as metric labels.
const (
	resultSettled   = "settled"
	resultDuplicate = "duplicate"
	resultReversed  = "reversed"
)

// Config holds split settings.
type Config struct {
	// CourierShare is the fraction of the payment credited to the courier when
	// the job has no explicit payout.
	CourierShare float64
	OpTimeout    time.Duration
}

// Service settles and reverses delivered jobs.
type Service struct {
	store            dispatchtx.Store
	courierShare     decimal.Decimal
	hooks            []Hook
	notifier         *notify.Notifier
	results          resultCounter
	operationTimeout time.Duration
	logger           logx.Logger
	now              func() time.Time
}

// NewService creates a ledger Service. Hooks run in order after every new settlement.
func NewService(store dispatchtx.Store, cfg Config, notifier *notify.Notifier, results resultCounter,
	logger logx.Logger, hooks ...Hook) *Service {
	share := cfg.CourierShare
	if share <= 0 || share > 1 {
		share = 0.8
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
		courierShare:     decimal.NewFromFloat(share),
		hooks:            hooks,
		notifier:         notifier,
		results:          results,
		operationTimeout: timeout,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// Split returns the courier and platform shares of a job's payment.
func (s *Service) Split(j *domain.Job) (courier, platform decimal.Decimal) {
	courier = j.Payout
	if !courier.IsPositive() {
		courier = j.Payment.Mul(s.courierShare).Round(2)
	}
	return courier, j.Payment.Sub(courier)
}

// Settle credits the courier and platform wallets for a delivered final-mile
// job. Calling it again returns the existing settlement without crediting.
func (s *Service) Settle(ctx context.Context, jobID uuid.UUID) (*domain.Settlement, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		res    *domain.Settlement
		job    domain.Job
		fresh  bool
		events []domain.JobEvent
	)
	err := s.store.WithSerializableTx(ctx, func(tx dispatchtx.Repository) error {
		fresh = false
		j, err := tx.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		if j == nil {
			return fmt.Errorf("job %s: %w", jobID, apperr.ErrNotFound)
		}
		existing, err := tx.GetSettlement(ctx, jobID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Finalized() {
			res = existing
			return nil
		}

		if j.Status != domain.JobDelivered {
			return fmt.Errorf("%w: job %s is %s", apperr.ErrInvalid, j.ID, j.Status)
		}
		if j.CancelledAt != nil {
			return fmt.Errorf("%w: job %s was cancelled", apperr.ErrInvalid, j.ID)
		}
		if j.Kind == domain.JobKindRTO || j.Intermediate() {
			return fmt.Errorf("%w: job %s is not a final-mile delivery", apperr.ErrInvalid, j.ID)
		}
		courierID, ok := j.Assignment.Courier()
		if !ok {
			return fmt.Errorf("%w: job %s has no courier", apperr.ErrInvalid, j.ID)
		}

		now := s.now()
		courierShare, platformShare := s.Split(j)
		if err := post(ctx, tx, domain.Party{Type: domain.PartyCourier, ID: courierID}, j.ID,
			courierShare, domain.EntryPosted, "courier share", now); err != nil {
			return err
		}
		if err := post(ctx, tx, domain.Party{Type: domain.PartyPlatform, ID: domain.PlatformPartyID}, j.ID,
			platformShare, domain.EntryPosted, "platform share", now); err != nil {
			return err
		}

		st := &domain.Settlement{
			ID:            uuid.New(),
			JobID:         j.ID,
			CourierID:     courierID,
			PartnerID:     j.PartnerID,
			Payment:       j.Payment,
			CourierShare:  courierShare,
			PlatformShare: platformShare,
			Status:        domain.SettlementSettled,
			SettledAt:     now,
		}
		if err := tx.InsertSettlement(ctx, st); err != nil {
			return err
		}
		if err := tx.AddCourierEarnings(ctx, courierID, courierShare, 1); err != nil {
			return err
		}
		ev := domain.NewJobEvent(j, domain.EventSettled, now, map[string]string{
			"courier_share":  courierShare.StringFixed(2),
			"platform_share": platformShare.StringFixed(2),
		})
		if err := tx.AppendEvent(ctx, &ev); err != nil {
			return err
		}

		res, job, fresh, events = st, *j, true, []domain.JobEvent{ev}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			// A concurrent settle committed first.
			if existing, gerr := s.store.GetSettlement(ctx, jobID); gerr == nil && existing != nil {
				s.count(resultDuplicate)
				return existing, nil
			}
		}
		return nil, err
	}

	if !fresh {
		s.count(resultDuplicate)
		s.logger.Info("job already settled",
			logx.Event("settle_duplicate"),
			logx.String("job_id", jobID.String()),
		)
		return res, nil
	}

	s.count(resultSettled)
	s.notifier.Publish(ctx, events...)
	s.logger.Info("job settled",
		logx.Event("job_settled"),
		logx.String("job_id", jobID.String()),
		logx.Int64("courier_id", res.CourierID),
		logx.String("courier_share", res.CourierShare.StringFixed(2)),
		logx.String("platform_share", res.PlatformShare.StringFixed(2)),
	)
	s.runHooks(ctx, job, *res)
	return res, nil
}

// Reverse writes offsetting entries for a settled job and marks the
// settlement REVERSED. See ReverseTx for jobs that were never settled.
func (s *Service) Reverse(ctx context.Context, jobID uuid.UUID, reason string) (*domain.Settlement, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		res    *domain.Settlement
		events []domain.JobEvent
	)
	err := s.store.WithSerializableTx(ctx, func(tx dispatchtx.Repository) error {
		j, err := tx.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		if j == nil {
			return fmt.Errorf("job %s: %w", jobID, apperr.ErrNotFound)
		}
		res, events, err = s.ReverseTx(ctx, tx, j, reason, s.now())
		return err
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			if existing, gerr := s.store.GetSettlement(ctx, jobID); gerr == nil && existing != nil &&
				existing.Status == domain.SettlementReversed {
				return existing, nil
			}
		}
		return nil, err
	}
	if len(events) > 0 {
		s.notifier.Publish(ctx, events...)
		s.Reversed(jobID, reason)
	}
	return res, nil
}

// ReverseTx undoes the settlement of j inside tx and returns the events it
// appended, which are empty when nothing changed. A delivered final-mile job
// that was never settled gets a REVERSED settlement with zero shares, so a
// later Settle credits nothing. Other unsettled jobs return nil.
func (s *Service) ReverseTx(ctx context.Context, tx dispatchtx.Repository, j *domain.Job, reason string,
	now time.Time) (*domain.Settlement, []domain.JobEvent, error) {
	st, err := tx.GetSettlement(ctx, j.ID)
	if err != nil {
		return nil, nil, err
	}
	if st != nil && st.Status == domain.SettlementReversed {
		return st, nil, nil
	}

	payload := map[string]string{"reason": reason}
	if st == nil {
		if j.Status != domain.JobDelivered || j.Kind == domain.JobKindRTO || j.Intermediate() {
			return nil, nil, nil
		}
		courierID, _ := j.Assignment.Courier()
		st = &domain.Settlement{
			ID:            uuid.New(),
			JobID:         j.ID,
			CourierID:     courierID,
			PartnerID:     j.PartnerID,
			Payment:       j.Payment,
			CourierShare:  decimal.Zero,
			PlatformShare: decimal.Zero,
			Status:        domain.SettlementReversed,
			SettledAt:     now,
			ReversedAt:    &now,
		}
		if err := tx.InsertSettlement(ctx, st); err != nil {
			return nil, nil, err
		}
		payload["voided"] = "true"
	} else {
		memo := "reversal: " + reason
		if err := post(ctx, tx, domain.Party{Type: domain.PartyCourier, ID: st.CourierID}, j.ID,
			st.CourierShare.Neg(), domain.EntryReversal, memo, now); err != nil {
			return nil, nil, err
		}
		if err := post(ctx, tx, domain.Party{Type: domain.PartyPlatform, ID: domain.PlatformPartyID}, j.ID,
			st.PlatformShare.Neg(), domain.EntryReversal, memo, now); err != nil {
			return nil, nil, err
		}
		if err := tx.AddCourierEarnings(ctx, st.CourierID, st.CourierShare.Neg(), -1); err != nil {
			return nil, nil, err
		}
		st.Status = domain.SettlementReversed
		st.ReversedAt = &now
		if err := tx.UpdateSettlement(ctx, st); err != nil {
			return nil, nil, err
		}
	}

	ev := domain.NewJobEvent(j, domain.EventSettlementReversed, now, payload)
	if err := tx.AppendEvent(ctx, &ev); err != nil {
		return nil, nil, err
	}
	return st, []domain.JobEvent{ev}, nil
}

// Reversed records a reversal whose transaction committed.
func (s *Service) Reversed(jobID uuid.UUID, reason string) {
	s.count(resultReversed)
	s.logger.Info("settlement reversed",
		logx.Event("settlement_reversed"),
		logx.String("job_id", jobID.String()),
		logx.String("reason", reason),
	)
}

func (s *Service) count(result string) {
	if s.results != nil {
		s.results.WithLabelValues(result).Inc()
	}
}

// post moves amount into the party wallet and appends the matching entry.
func post(ctx context.Context, tx dispatchtx.Repository, party domain.Party, jobID uuid.UUID,
	amount decimal.Decimal, status domain.EntryStatus, memo string, now time.Time) error {
	w, err := tx.GetWallet(ctx, party)
	if err != nil {
		return err
	}
	before := w.Balance
	w.Balance = before.Add(amount)
	w.UpdatedAt = now
	if err := tx.UpdateWallet(ctx, w); err != nil {
		return err
	}
	return tx.InsertLedgerEntry(ctx, &domain.LedgerEntry{
		ID:            uuid.New(),
		Party:         party,
		JobID:         jobID,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  w.Balance,
		Status:        status,
		Memo:          memo,
		CreatedAt:     now,
	})
}
