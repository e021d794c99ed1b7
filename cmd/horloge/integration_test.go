//go:build integration
// +build integration

package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/cezarmathe/horloge/internal/admin"
	"github.com/cezarmathe/horloge/internal/bootstrap"
	"github.com/cezarmathe/horloge/internal/equeue"
	"github.com/cezarmathe/horloge/internal/events"
	"github.com/cezarmathe/horloge/internal/executor"
	"github.com/cezarmathe/horloge/internal/sqlcmds"
	"github.com/cezarmathe/horloge/internal/timersubsystem"
	"github.com/cezarmathe/horloge/internal/triggers"
)

// These exercise spec.md §8's concrete end-to-end scenarios against a
// live Postgres, gated behind the "integration" build tag and a
// connection string in HORLOGE_TEST_DSN (grounded on the teacher's
// database_integration_test.go gating style). They are not run by the
// default `go test ./...` and were never executed in this environment.

func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("HORLOGE_TEST_DSN")
	if dsn == "" {
		t.Skip("HORLOGE_TEST_DSN not set, skipping integration test")
	}
	return dsn
}

// bringUpPipeline starts the listener, subsystem, and executor pool
// against a throwaway tracked table, returning a cancel func to tear
// everything down.
func bringUpPipeline(t *testing.T, dsn, table string) (cancel func()) {
	t.Helper()
	ctx, cancelCtx := context.WithCancel(context.Background())

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)

	conn, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)

	const schema = "horloge"
	const eventChannel = "horloge_events_it"
	const controlChannel = "horloge_control_it"

	a := admin.New(conn, schema, controlChannel)
	require.NoError(t, a.CreateTimersTable(ctx, table))
	require.NoError(t, conn.Close(ctx))

	seed, err := bootstrap.Bootstrap(ctx, bootstrap.Args{Pool: pool, Schema: schema, EventChannel: eventChannel})
	require.NoError(t, err)

	// Built directly rather than via internal/shared: that package's
	// Shared Object is a process-wide once-only singleton (ADAPTATIONS
	// #2) meant for a single run-subsystem invocation, and would panic
	// on a second Attach if multiple integration tests in this binary
	// each brought up their own pipeline.
	triggerQueue := equeue.New[events.TimerSubsystemEvent](128)
	executorQueue := equeue.New[events.ExecutorEvent](128)

	sub := timersubsystem.New(triggerQueue, executorQueue)
	sub.Seed(ctx, seed)

	cmds := sqlcmds.New(pool, schema)
	execPool := executor.New(executorQueue, cmds, pool, executor.WorkerCount(2))

	listener := triggers.New(dsn, []string{eventChannel, controlChannel}, triggerQueue, 64)

	go triggers.RunSupervised(ctx, listener, time.Second)
	go execPool.Run(ctx)
	go sub.Run(ctx)

	return func() {
		cancelCtx()
		pool.Close()
	}
}

// TestRegisterAndFire covers spec.md §8 scenario 1: a timer inserted
// 50ms in the future is observed fired within 200ms.
func TestRegisterAndFire(t *testing.T) {
	dsn := testDSN(t)
	cancel := bringUpPipeline(t, dsn, "public.horloge_it_fire")
	defer cancel()

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, "insert into public.horloge_it_fire (expires_at) values (now() + interval '50 milliseconds')")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		var firedAt *time.Time
		err := conn.QueryRow(ctx, "select fired_at from public.horloge_it_fire order by id desc limit 1").Scan(&firedAt)
		return err == nil && firedAt != nil
	}, 200*time.Millisecond, 10*time.Millisecond)
}

// TestPastTimerRejected covers spec.md §8 scenario 2: a row whose
// expires_at is already in the past is rejected by the before-insert
// trigger and the table's row count is unchanged.
func TestPastTimerRejected(t *testing.T) {
	dsn := testDSN(t)
	cancel := bringUpPipeline(t, dsn, "public.horloge_it_past")
	defer cancel()

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, "insert into public.horloge_it_past (expires_at) values (now() - interval '1 second')")
	require.Error(t, err)

	var count int
	require.NoError(t, conn.QueryRow(ctx, "select count(*) from public.horloge_it_past").Scan(&count))
	require.Equal(t, 0, count)
}
