package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/ports/dispatchtx"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repo runs queries against either the pool or an open transaction.
type Repo struct {
	q    querier
	lock string
}

var _ dispatchtx.Repository = (*Repo)(nil)

// Store is the Postgres implementation of dispatchtx.Store. Calls made directly
// on Store run outside a transaction and never lock rows.
type Store struct {
	*Repo
	pool *pgxpool.Pool
}

var _ dispatchtx.Store = (*Store)(nil)

// NewStore creates a new Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Repo: &Repo{q: pool}, pool: pool}
}

// WithTx opens a read-committed transaction and executes fn within it.
func (s *Store) WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) error {
	return s.run(ctx, pgx.TxOptions{}, fn)
}

// WithSerializableTx opens a serializable transaction and executes fn within it.
func (s *Store) WithSerializableTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
}

// SaveLocation writes the coordinate and its history row in one transaction,
// so a failed update never leaves an orphan history row behind.
func (s *Store) SaveLocation(ctx context.Context, upd domain.LocationUpdate, touchLastSeen bool) error {
	return s.WithTx(ctx, func(tx dispatchtx.Repository) error {
		return tx.SaveLocation(ctx, upd, touchLastSeen)
	})
}

func (s *Store) run(ctx context.Context, opts pgx.TxOptions, fn func(tx dispatchtx.Repository) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(&Repo{q: tx, lock: " FOR UPDATE"}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return mapConflict(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapConflict(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}
