package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartyType identifies the owner of a wallet.
type PartyType string

// Wallet owners.
const (
	PartyCourier  PartyType = "COURIER"
	PartyPlatform PartyType = "PLATFORM"
	PartyPartner  PartyType = "PARTNER"
)

// PlatformPartyID is the id of the single platform wallet.
const PlatformPartyID int64 = 0

// Party is a wallet owner.
type Party struct {
	Type PartyType
	ID   int64
}

// Wallet holds the running balance of a party.
type Wallet struct {
	Party   Party
	Balance decimal.Decimal
	// Prepaid marks partner wallets that are debited per delivered job.
	Prepaid   bool
	UpdatedAt time.Time
}

// EntryStatus is the state of a ledger entry.
type EntryStatus string

// Ledger entry states.
const (
	EntryPosted   EntryStatus = "POSTED"
	EntryReversal EntryStatus = "REVERSAL"
)

// LedgerEntry is an append-only balance movement.
type LedgerEntry struct {
	ID            uuid.UUID
	Party         Party
	JobID         uuid.UUID
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Status        EntryStatus
	Memo          string
	CreatedAt     time.Time
}

// SettlementStatus is the state of a settlement record.
type SettlementStatus string

// Settlement states.
const (
	SettlementSettled  SettlementStatus = "SETTLED"
	SettlementReversed SettlementStatus = "REVERSED"
)

// Settlement records the one-time split of a delivered job's payment.
type Settlement struct {
	ID            uuid.UUID
	JobID         uuid.UUID
	CourierID     int64
	PartnerID     int64
	Payment       decimal.Decimal
	CourierShare  decimal.Decimal
	PlatformShare decimal.Decimal
	Status        SettlementStatus
	SettledAt     time.Time
	ReversedAt    *time.Time
}

// Finalized reports whether the settlement must not be applied again.
func (s *Settlement) Finalized() bool {
	return s.Status == SettlementSettled || s.Status == SettlementReversed
}

// InvoiceSnapshot is the best-effort billing record written after settlement.
type InvoiceSnapshot struct {
	JobID      uuid.UUID
	PartnerID  int64
	Amount     decimal.Decimal
	Commission decimal.Decimal
	IssuedAt   time.Time
}
