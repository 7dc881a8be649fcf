package dispatchtx

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"courier-dispatch/internal/domain"
)

// Repository is the storage contract shared by all dispatch services.
// Getters return nil, nil when the row does not exist. Inside a transaction
// GetJob, GetCourier and GetWallet lock the returned row.
type Repository interface {
	GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	InsertJob(ctx context.Context, j *domain.Job) error
	UpdateJob(ctx context.Context, j *domain.Job) error
	// SetJobStatusIf moves a job from one status to another and reports
	// whether the row still had the expected status.
	SetJobStatusIf(ctx context.Context, id uuid.UUID, from, to domain.JobStatus) (bool, error)
	ListInTransitJobs(ctx context.Context) ([]domain.Job, error)

	GetCourier(ctx context.Context, id int64) (*domain.Courier, error)
	ListCouriers(ctx context.Context, ids []int64) ([]domain.Courier, error)
	// ListOnlineCouriers returns approved, unblocked, non-offline couriers of the
	// given provider pool (nil means the regular pool).
	ListOnlineCouriers(ctx context.Context, providerID *int64) ([]domain.Courier, error)
	UpdateCourier(ctx context.Context, c *domain.Courier) error
	AddCourierEarnings(ctx context.Context, id int64, amount decimal.Decimal, jobsDelta int) error
	SaveLocation(ctx context.Context, upd domain.LocationUpdate, touchLastSeen bool) error

	GetWarehouse(ctx context.Context, id int64) (*domain.Warehouse, error)

	// GetWallet returns the party wallet, creating an empty one if absent.
	GetWallet(ctx context.Context, party domain.Party) (*domain.Wallet, error)
	UpdateWallet(ctx context.Context, w *domain.Wallet) error
	InsertLedgerEntry(ctx context.Context, e *domain.LedgerEntry) error
	ListLedgerEntries(ctx context.Context, jobID uuid.UUID) ([]domain.LedgerEntry, error)

	GetSettlement(ctx context.Context, jobID uuid.UUID) (*domain.Settlement, error)
	InsertSettlement(ctx context.Context, s *domain.Settlement) error
	UpdateSettlement(ctx context.Context, s *domain.Settlement) error
	InsertInvoiceSnapshot(ctx context.Context, s *domain.InvoiceSnapshot) error

	AppendEvent(ctx context.Context, e *domain.JobEvent) error
	ListEvents(ctx context.Context, jobID uuid.UUID) ([]domain.JobEvent, error)
}

// Runner is a transaction runner.
type Runner interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
	// WithSerializableTx runs fn under serializable isolation. A lost race is
	// reported as apperr.ErrConflict.
	WithSerializableTx(ctx context.Context, fn func(tx Repository) error) error
}

// Store is a repository that can also open transactions.
type Store interface {
	Repository
	Runner
}
