//go:build integration

package repository_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"courier-dispatch/internal/repository"
)

var tcPool *pgxpool.Pool

var tcDSN string

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("dispatch_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_pass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("failed to start postgres testcontainer: %v", err)
	}

	terminate := func(reason string) {
		if termErr := pgContainer.Terminate(ctx); termErr != nil {
			log.Printf("failed to terminate container after %s: %v", reason, termErr)
		}
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate("conn string error")
		log.Fatalf("failed to get connection string from container: %v", err)
	}

	pool, err := repository.NewPool(ctx, connStr)
	if err != nil {
		terminate("pool create error")
		log.Fatalf("failed to create pgx pool: %v", err)
	}

	if err := repository.Migrate(ctx, pool); err != nil {
		pool.Close()
		terminate("migrate error")
		log.Fatalf("failed to apply schema: %v", err)
	}

	tcPool = pool
	tcDSN = connStr

	code := m.Run()

	pool.Close()
	if err := pgContainer.Terminate(ctx); err != nil {
		log.Printf("failed to terminate postgres container: %v", err)
	}

	os.Exit(code)
}

// truncate empties every table so tests do not see each other's rows.
func truncate(t *testing.T) {
	t.Helper()
	_, err := tcPool.Exec(context.Background(), `
        TRUNCATE job_events, invoice_snapshots, settlements, ledger_entries, wallets,
                 jobs, warehouses, courier_locations, couriers
        RESTART IDENTITY CASCADE
    `)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}
