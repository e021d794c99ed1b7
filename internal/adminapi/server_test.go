package adminapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cezarmathe/horloge/internal/equeue"
	"github.com/cezarmathe/horloge/internal/events"
)

type fakeSource struct {
	tables, timers int
}

func (f fakeSource) TrackedTableCount() int { return f.tables }
func (f fakeSource) PendingTimerCount() int { return f.timers }

func TestHealthzReturnsOK(t *testing.T) {
	trigger := equeue.New[events.TimerSubsystemEvent](8)
	execQ := equeue.New[events.ExecutorEvent](8)
	s := New("127.0.0.1:0", fakeSource{}, trigger, execQ)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStatusReportsCounters(t *testing.T) {
	trigger := equeue.New[events.TimerSubsystemEvent](8)
	execQ := equeue.New[events.ExecutorEvent](8)
	trigger.TryEnqueue(events.NewTrackTimersTable(1))

	s := New("127.0.0.1:0", fakeSource{tables: 2, timers: 5}, trigger, execQ)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tracked_tables":2`)
	assert.Contains(t, rec.Body.String(), `"pending_timers":5`)
}
