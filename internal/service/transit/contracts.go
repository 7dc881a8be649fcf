package transit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/ports/dispatchtx"
	"courier-dispatch/internal/service/dispatch"
)

// Dispatcher offers a job to couriers.
type Dispatcher interface {
	AssignDispatch(ctx context.Context, req dispatch.Request) (int, error)
}

// Settler applies and reverses the money split of delivered jobs.
type Settler interface {
	Settle(ctx context.Context, jobID uuid.UUID) (*domain.Settlement, error)
	// ReverseTx undoes the settlement of j inside tx and returns the events it
	// appended.
	ReverseTx(ctx context.Context, tx dispatchtx.Repository, j *domain.Job, reason string,
		now time.Time) (*domain.Settlement, []domain.JobEvent, error)
	// Reversed records a reversal whose transaction committed.
	Reversed(jobID uuid.UUID, reason string)
}
