package ledger

import (
	"context"
	"fmt"
	"time"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/ports/dispatchtx"
)

// Hook is best-effort bookkeeping run after a settlement committed. Its
// failure is logged and never undoes the settlement.
type Hook struct {
	Name string
	Run  func(ctx context.Context, job domain.Job, s domain.Settlement) error
}

// InvoiceSnapshotHook records the billing snapshot of a settled job.
func InvoiceSnapshotHook(store dispatchtx.Repository) Hook {
	return Hook{
		Name: "invoice_snapshot",
		Run: func(ctx context.Context, job domain.Job, s domain.Settlement) error {
			return store.InsertInvoiceSnapshot(ctx, &domain.InvoiceSnapshot{
				JobID:      job.ID,
				PartnerID:  job.PartnerID,
				Amount:     s.Payment,
				Commission: job.Commission,
				IssuedAt:   s.SettledAt,
			})
		},
	}
}

// PrepaidDeductionHook debits the partner wallet for partners on prepaid billing.
func PrepaidDeductionHook(store dispatchtx.Runner) Hook {
	return Hook{
		Name: "prepaid_deduction",
		Run: func(ctx context.Context, job domain.Job, s domain.Settlement) error {
			return store.WithTx(ctx, func(tx dispatchtx.Repository) error {
				party := domain.Party{Type: domain.PartyPartner, ID: job.PartnerID}
				w, err := tx.GetWallet(ctx, party)
				if err != nil {
					return err
				}
				if !w.Prepaid {
					return nil
				}
				return post(ctx, tx, party, job.ID, s.Payment.Neg(), domain.EntryPosted, "prepaid deduction", time.Now().UTC())
			})
		},
	}
}

// DefaultHooks returns the hooks every settlement runs in production.
func DefaultHooks(store dispatchtx.Store) []Hook {
	return []Hook{InvoiceSnapshotHook(store), PrepaidDeductionHook(store)}
}

func (s *Service) runHooks(ctx context.Context, job domain.Job, st domain.Settlement) {
	for _, h := range s.hooks {
		if err := s.runHook(ctx, h, job, st); err != nil {
			s.logger.Warn("post-settlement hook failed",
				logx.Event("settlement_hook_failed"),
				logx.String("hook", h.Name),
				logx.String("job_id", job.ID.String()),
				logx.Err(err),
			)
		}
	}
}

func (s *Service) runHook(ctx context.Context, h Hook, job domain.Job, st domain.Settlement) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return h.Run(ctx, job, st)
}
