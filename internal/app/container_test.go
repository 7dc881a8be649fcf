package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	"courier-dispatch/internal/config"
	"courier-dispatch/internal/http/handlers"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/service/delay"
	"courier-dispatch/internal/service/location"
	"courier-dispatch/internal/service/transit"
	"courier-dispatch/internal/transport/kafka"
)

func testConfig() (*config.Config, error) {
	return config.LoadFrom(pflag.NewFlagSet("test", pflag.ContinueOnError), nil)
}

func stubConnect(context.Context, logx.Logger, string, int, time.Duration) (*pgxpool.Pool, error) {
	return &pgxpool.Pool{}, nil
}

func testBuilder() *ContainerBuilder {
	return NewContainerBuilder().
		WithConfig(testConfig).
		WithLogger(logx.Nop).
		WithDBConnect(stubConnect).
		WithLogFatalf(func(format string, args ...interface{}) {
			panic("logFatalf called: " + format)
		})
}

func TestContainerBuilder_BuildsAPIGraph(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	c, err := testBuilder().build(context.Background())
	require.NoError(t, err)

	err = c.Invoke(func(
		srv *http.Server,
		jobs *handlers.JobHandler,
		couriers *handlers.CourierHandler,
		orch *transit.Orchestrator,
		queue *location.Queue,
		consumer *kafka.Consumer,
		producer *kafka.Producer,
	) {
		require.NotNil(t, srv)
		require.Equal(t, ":8080", srv.Addr)
		require.Greater(t, srv.ReadHeaderTimeout, time.Duration(0))
		require.Greater(t, srv.IdleTimeout, time.Duration(0))
		require.NotNil(t, jobs)
		require.NotNil(t, couriers)
		require.NotNil(t, orch)
		require.NotNil(t, queue)
		require.Nil(t, consumer, "kafka is disabled without brokers")
		require.Nil(t, producer, "kafka is disabled without brokers")
	})
	require.NoError(t, err)
}

func TestContainerBuilder_ServesPingAndMetrics(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	c, err := testBuilder().build(context.Background())
	require.NoError(t, err)

	err = c.Invoke(func(srv *http.Server) {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		rr = httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		body, _ := io.ReadAll(rr.Body)
		require.Contains(t, string(body), "dispatch_offers_sent_total")
		require.Contains(t, string(body), "http_requests_total")
	})
	require.NoError(t, err)
}

func TestContainerBuilder_TwoContainersDoNotShareRegistry(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	for range 2 {
		c, err := testBuilder().build(context.Background())
		require.NoError(t, err)
		require.NoError(t, c.Invoke(func(*http.Server) {}))
	}
}

func TestContainerBuilder_WorkerHasNoHTTP(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	c, err := testBuilder().ForWorker().build(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.Invoke(func(job *delay.SweepJob) { require.NotNil(t, job) }))
	require.Error(t, c.Invoke(func(*http.Server) {}))
}

func TestContainerBuilder_DBError(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	c, err := testBuilder().
		WithDBConnect(func(context.Context, logx.Logger, string, int, time.Duration) (*pgxpool.Pool, error) {
			return nil, errors.New("db failed")
		}).
		build(context.Background())
	require.NoError(t, err, "providers are lazy")

	err = c.Invoke(func(*pgxpool.Pool) {})
	require.ErrorContains(t, err, "db failed")
}

func TestRegisterDb_PassesDSN(t *testing.T) {
	t.Parallel()

	c := dig.New()
	ctx := context.Background()
	cfg := &config.Config{DB: config.DB{Host: "localhost", Port: "5432", User: "user", Pass: "pass", Name: "db"}}

	require.NoError(t, provideAll(c,
		func() context.Context { return ctx },
		func() *config.Config { return cfg },
		logx.Nop,
	))

	stubPool := &pgxpool.Pool{}
	require.NoError(t, registerDb(c, func(gotCtx context.Context, _ logx.Logger, dsn string, retries int, delay time.Duration) (*pgxpool.Pool, error) {
		require.Equal(t, ctx, gotCtx)
		require.Equal(t, cfg.DB.DSN(), dsn)
		require.Equal(t, 10, retries)
		require.Equal(t, time.Second, delay)
		return stubPool, nil
	}))

	require.NoError(t, c.Invoke(func(pool *pgxpool.Pool) { require.Same(t, stubPool, pool) }))
}

func TestProvideAll_InvalidProvider(t *testing.T) {
	t.Parallel()

	type bad struct{}
	require.Error(t, provideAll(dig.New(), bad{}))
}

func TestNewRateLimiter_Disabled(t *testing.T) {
	t.Parallel()

	cfg, err := testConfig()
	require.NoError(t, err)
	cfg.RateLimit.Enabled = false

	l := newRateLimiter(cfg, newRateLimitClock())
	for range 100 {
		require.True(t, l.Allow("courier:1"))
	}
}

func TestContainerBuilder_DebugServerFollowsConfig(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	c, err := testBuilder().build(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Invoke(func(d debugServer) {
		require.Nil(t, d.Server, "debug listener is off by default")
	}))

	t.Setenv("DEBUG_PORT", "6060")
	c, err = testBuilder().build(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Invoke(func(d debugServer) {
		require.NotNil(t, d.Server)
		require.Equal(t, ":6060", d.Server.Addr)
	}))
}
