package timersubsystem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cezarmathe/horloge/internal/equeue"
	"github.com/cezarmathe/horloge/internal/events"
)

func newTestSubsystem() (*Subsystem, *equeue.Queue[events.TimerSubsystemEvent], *equeue.Queue[events.ExecutorEvent]) {
	in := equeue.New[events.TimerSubsystemEvent](128)
	out := equeue.New[events.ExecutorEvent](128)
	return New(in, out), in, out
}

func TestCreateTimerBeforeTrackIsDropped(t *testing.T) {
	s, _, out := newTestSubsystem()
	ctx := context.Background()

	s.dispatch(ctx, events.NewCreateTimer(1, events.CreateTimerRow{ID: 1, ExpiresAt: time.Now().Add(time.Hour)}))

	_, ok := out.Dequeue()
	assert.False(t, ok)
	assert.Empty(t, s.tables)
}

func TestDuplicateCreateTimerIsDropped(t *testing.T) {
	s, _, _ := newTestSubsystem()
	ctx := context.Background()

	s.dispatch(ctx, events.NewTrackTimersTable(1))
	s.dispatch(ctx, events.NewCreateTimer(1, events.CreateTimerRow{ID: 1, ExpiresAt: time.Now().Add(time.Hour)}))
	s.dispatch(ctx, events.NewCreateTimer(1, events.CreateTimerRow{ID: 1, ExpiresAt: time.Now().Add(2 * time.Hour)}))

	require.Len(t, s.tables[1], 1)
	s.shutdown()
}

func TestExpireTimerEnqueuesTimerFired(t *testing.T) {
	s, _, out := newTestSubsystem()
	ctx := context.Background()

	s.dispatch(ctx, events.NewTrackTimersTable(1))
	s.dispatch(ctx, events.NewCreateTimer(1, events.CreateTimerRow{ID: 7, ExpiresAt: time.Now().Add(time.Hour)}))
	s.dispatch(ctx, events.NewExpireTimer(1, 7))

	fired, ok := out.Dequeue()
	require.True(t, ok)
	assert.Equal(t, events.ExecutorEventTimerFired, fired.Kind)
	assert.Equal(t, int64(7), fired.Row.ID)
	assert.NotContains(t, s.tables[1], int64(7))
}

func TestExpireTimerForUnknownIDIsLoggedAndIgnored(t *testing.T) {
	s, _, out := newTestSubsystem()
	ctx := context.Background()

	s.dispatch(ctx, events.NewTrackTimersTable(1))
	s.dispatch(ctx, events.NewExpireTimer(1, 99))

	_, ok := out.Dequeue()
	assert.False(t, ok)
}

func TestUntrackCancelsAllPendingTimers(t *testing.T) {
	s, _, _ := newTestSubsystem()
	ctx := context.Background()

	s.dispatch(ctx, events.NewTrackTimersTable(1))
	s.dispatch(ctx, events.NewCreateTimer(1, events.CreateTimerRow{ID: 1, ExpiresAt: time.Now().Add(time.Hour)}))
	s.dispatch(ctx, events.NewCreateTimer(1, events.CreateTimerRow{ID: 2, ExpiresAt: time.Now().Add(time.Hour)}))

	s.dispatch(ctx, events.NewUntrackTimersTable(1))

	assert.NotContains(t, s.tables, events.OID(1))
	s.wg.Wait()
}

func TestRunEndToEndFiresTimerQuickly(t *testing.T) {
	s, in, out := newTestSubsystem()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go s.Run(ctx)

	ok := in.EnqueueRetry(events.NewTrackTimersTable(1), 4)
	require.True(t, ok)
	ok = in.EnqueueRetry(events.NewCreateTimer(1, events.CreateTimerRow{ID: 1, ExpiresAt: time.Now().Add(20 * time.Millisecond)}), 4)
	require.True(t, ok)

	deadline := time.After(time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for TimerFired")
		default:
		}
		if fired, ok := out.Dequeue(); ok {
			assert.Equal(t, int64(1), fired.Row.ID)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}
