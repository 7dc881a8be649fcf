package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"courier-dispatch/internal/domain"
)

// GetWallet - returns the party wallet, creating an empty one on first use.
func (r *Repo) GetWallet(ctx context.Context, party domain.Party) (*domain.Wallet, error) {
	if _, err := r.q.Exec(ctx, `
        INSERT INTO wallets (party_type, party_id)
        VALUES ($1, $2)
        ON CONFLICT (party_type, party_id) DO NOTHING
    `, string(party.Type), party.ID); err != nil {
		return nil, fmt.Errorf("ensure wallet %s/%d: %w", party.Type, party.ID, err)
	}

	w := domain.Wallet{Party: party}
	err := r.q.QueryRow(ctx, `
        SELECT balance, prepaid, updated_at
        FROM wallets
        WHERE party_type = $1 AND party_id = $2`+r.lock,
		string(party.Type), party.ID,
	).Scan(&w.Balance, &w.Prepaid, &w.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get wallet %s/%d: %w", party.Type, party.ID, err)
	}
	return &w, nil
}

// UpdateWallet - writes the wallet balance and prepaid flag.
func (r *Repo) UpdateWallet(ctx context.Context, w *domain.Wallet) error {
	ct, err := r.q.Exec(ctx, `
        UPDATE wallets
        SET balance = $3, prepaid = $4, updated_at = $5
        WHERE party_type = $1 AND party_id = $2
    `, string(w.Party.Type), w.Party.ID, w.Balance, w.Prepaid, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update wallet %s/%d: %w", w.Party.Type, w.Party.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("wallet %s/%d not found", w.Party.Type, w.Party.ID)
	}
	return nil
}

// InsertLedgerEntry - appends a ledger entry.
func (r *Repo) InsertLedgerEntry(ctx context.Context, e *domain.LedgerEntry) error {
	_, err := r.q.Exec(ctx, `
        INSERT INTO ledger_entries (id, party_type, party_id, job_id, amount,
                                    balance_before, balance_after, status, memo, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, e.ID, string(e.Party.Type), e.Party.ID, e.JobID, e.Amount,
		e.BalanceBefore, e.BalanceAfter, string(e.Status), e.Memo, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ledger entry for job %s: %w", e.JobID, err)
	}
	return nil
}

// ListLedgerEntries - returns the entries of a job in insertion order.
func (r *Repo) ListLedgerEntries(ctx context.Context, jobID uuid.UUID) ([]domain.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, `
        SELECT id, party_type, party_id, job_id, amount, balance_before, balance_after, status, memo, created_at
        FROM ledger_entries
        WHERE job_id = $1
        ORDER BY created_at, id
    `, jobID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries for job %s: %w", jobID, err)
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		var (
			e             domain.LedgerEntry
			party, status string
		)
		if err := rows.Scan(&e.ID, &party, &e.Party.ID, &e.JobID, &e.Amount,
			&e.BalanceBefore, &e.BalanceAfter, &status, &e.Memo, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Party.Type = domain.PartyType(party)
		e.Status = domain.EntryStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetSettlement - returns the settlement of a job.
func (r *Repo) GetSettlement(ctx context.Context, jobID uuid.UUID) (*domain.Settlement, error) {
	var (
		s      domain.Settlement
		status string
	)
	err := r.q.QueryRow(ctx, `
        SELECT id, job_id, courier_id, partner_id, payment, courier_share, platform_share,
               status, settled_at, reversed_at
        FROM settlements
        WHERE job_id = $1`+r.lock, jobID,
	).Scan(&s.ID, &s.JobID, &s.CourierID, &s.PartnerID, &s.Payment, &s.CourierShare, &s.PlatformShare,
		&status, &s.SettledAt, &s.ReversedAt)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get settlement for job %s: %w", jobID, err)
	}
	s.Status = domain.SettlementStatus(status)
	return &s, nil
}

// InsertSettlement - creates the settlement record. A second record for the
// same job fails with apperr.ErrConflict.
func (r *Repo) InsertSettlement(ctx context.Context, s *domain.Settlement) error {
	_, err := r.q.Exec(ctx, `
        INSERT INTO settlements (id, job_id, courier_id, partner_id, payment, courier_share,
                                 platform_share, status, settled_at, reversed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, s.ID, s.JobID, s.CourierID, s.PartnerID, s.Payment, s.CourierShare,
		s.PlatformShare, string(s.Status), s.SettledAt, s.ReversedAt)
	if err != nil {
		if IsDuplicate(err) {
			return mapConflict(err)
		}
		return fmt.Errorf("insert settlement for job %s: %w", s.JobID, err)
	}
	return nil
}

// UpdateSettlement - writes status and reversal time.
func (r *Repo) UpdateSettlement(ctx context.Context, s *domain.Settlement) error {
	ct, err := r.q.Exec(ctx, `
        UPDATE settlements SET status = $2, reversed_at = $3 WHERE id = $1
    `, s.ID, string(s.Status), s.ReversedAt)
	if err != nil {
		return fmt.Errorf("update settlement %s: %w", s.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("settlement %s not found", s.ID)
	}
	return nil
}

// InsertInvoiceSnapshot - records the billing snapshot of a settled job.
func (r *Repo) InsertInvoiceSnapshot(ctx context.Context, s *domain.InvoiceSnapshot) error {
	_, err := r.q.Exec(ctx, `
        INSERT INTO invoice_snapshots (job_id, partner_id, amount, commission, issued_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (job_id) DO NOTHING
    `, s.JobID, s.PartnerID, s.Amount, s.Commission, s.IssuedAt)
	if err != nil {
		return fmt.Errorf("insert invoice snapshot for job %s: %w", s.JobID, err)
	}
	return nil
}
