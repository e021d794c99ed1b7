// Package timersubsystem implements the single-goroutine scheduler
// described in spec.md §4.6: it owns the pending-timer index, decides
// when each timer fires, and hands fired timers to the executor pool.
// It is structured the way the teacher's hierarchical timing wheel
// structures its main loop (ticker-driven run()/processTick() split,
// stopChan/wg shutdown), but the index itself is a plain per-(oid,id)
// map with one goroutine+time.Timer per pending entry rather than a
// cascading multi-level wheel: spec.md §9 calls a plain sleep-task
// model an equally admissible alternative, and it is the simpler
// structure to keep correct against this spec's ordering invariants.
package timersubsystem

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cezarmathe/horloge/internal/equeue"
	"github.com/cezarmathe/horloge/internal/events"
	"github.com/cezarmathe/horloge/internal/logger"
)

// timerEntry is one pending timer: the row it was created from and
// the cancel function for its sleep task.
type timerEntry struct {
	row    events.CreateTimerRow
	cancel context.CancelFunc
}

// Subsystem owns the in-memory timer index described in spec.md §3.
// It is not safe for concurrent use by more than one goroutine; that
// goroutine is Run's caller.
type Subsystem struct {
	in  *equeue.Queue[events.TimerSubsystemEvent]
	out *equeue.Queue[events.ExecutorEvent]
	log logger.ComponentLogger

	// self is used by a timer's sleep task to deliver ExpireTimer back
	// onto the subsystem's own processing path without re-entering the
	// bounded, potentially-full trigger queue: the sleep task is
	// internal to this process and must never be dropped the way an
	// external producer's event might be.
	self chan events.TimerSubsystemEvent

	tables map[events.OID]map[int64]*timerEntry

	wg sync.WaitGroup

	// trackedTables/pendingTimers mirror len(s.tables)/total entry count
	// and are updated on every mutation so adminapi can read them from
	// a different goroutine without touching the map itself.
	trackedTables atomic.Int64
	pendingTimers atomic.Int64
}

// TrackedTableCount returns the number of tables currently tracked.
// Safe to call from any goroutine.
func (s *Subsystem) TrackedTableCount() int { return int(s.trackedTables.Load()) }

// PendingTimerCount returns the number of pending (unfired) timers
// across all tracked tables. Safe to call from any goroutine.
func (s *Subsystem) PendingTimerCount() int { return int(s.pendingTimers.Load()) }

// New builds a Subsystem that drains in and publishes fired timers to
// out.
func New(in *equeue.Queue[events.TimerSubsystemEvent], out *equeue.Queue[events.ExecutorEvent]) *Subsystem {
	return &Subsystem{
		in:     in,
		out:    out,
		log:    logger.NewComponentLogger("timersubsystem"),
		self:   make(chan events.TimerSubsystemEvent, 256),
		tables: make(map[events.OID]map[int64]*timerEntry),
	}
}

// Seed applies a batch of events synchronously, used by bootstrap to
// replay TrackTimersTable/CreateTimer for already-tracked tables and
// their unfired rows before the main loop starts (spec.md §4.6
// "Startup protocol" step 4).
func (s *Subsystem) Seed(ctx context.Context, evs []events.TimerSubsystemEvent) {
	for _, ev := range evs {
		s.dispatch(ctx, ev)
	}
}

// Run enters the main loop: a 1-second termination tick and a
// 1-millisecond event-drain tick, exactly as spec.md §4.6 describes.
// It blocks until ctx is cancelled, then aborts every pending sleep
// task and waits for them to unwind before returning.
func (s *Subsystem) Run(ctx context.Context) {
	termTick := time.NewTicker(time.Second)
	defer termTick.Stop()
	eventTick := time.NewTicker(time.Millisecond)
	defer eventTick.Stop()

	s.log.Info("timer subsystem entering main loop")

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case <-termTick.C:
			// Termination is driven by ctx cancellation in this
			// process model rather than a separate signal flag; reload
			// (currently a no-op per spec.md §4.6) has nothing to do.
		case <-eventTick.C:
			s.drainTrigger(ctx)
		case ev := <-s.self:
			s.dispatch(ctx, ev)
		}
	}
}

func (s *Subsystem) drainTrigger(ctx context.Context) {
	for {
		ev, ok := s.in.Dequeue()
		if !ok {
			return
		}
		s.dispatch(ctx, ev)
	}
}

func (s *Subsystem) dispatch(ctx context.Context, ev events.TimerSubsystemEvent) {
	switch ev.Kind {
	case events.EventTrackTimersTable:
		s.handleTrack(ev.TableOID)
	case events.EventUntrackTimersTable:
		s.handleUntrack(ev.TableOID)
	case events.EventCreateTimer:
		s.handleCreate(ctx, ev.TableOID, ev.Row)
	case events.EventExpireTimer:
		s.handleExpire(ev.TableOID, ev.TimerID)
	default:
		s.log.Warn("dropping event with unknown kind", logger.String("kind", string(ev.Kind)))
	}
}

func (s *Subsystem) handleTrack(oid events.OID) {
	if _, ok := s.tables[oid]; ok {
		s.log.Warn("table already tracked, ignoring TrackTimersTable", logger.Int64("oid", int64(oid)))
		return
	}
	s.tables[oid] = make(map[int64]*timerEntry)
	s.trackedTables.Add(1)
	s.log.Info("tracking timer table", logger.Int64("oid", int64(oid)))
}

func (s *Subsystem) handleUntrack(oid events.OID) {
	entries, ok := s.tables[oid]
	if !ok {
		s.log.Warn("table not tracked, ignoring UntrackTimersTable", logger.Int64("oid", int64(oid)))
		return
	}
	for _, entry := range entries {
		entry.cancel()
	}
	delete(s.tables, oid)
	s.trackedTables.Add(-1)
	s.pendingTimers.Add(-int64(len(entries)))
	s.log.Info("untracked timer table", logger.Int64("oid", int64(oid)), logger.Int("cancelled", len(entries)))
}

func (s *Subsystem) handleCreate(ctx context.Context, oid events.OID, row events.CreateTimerRow) {
	entries, ok := s.tables[oid]
	if !ok {
		s.log.Warn("dropping CreateTimer for untracked table", logger.Int64("oid", int64(oid)), logger.Int64("id", row.ID))
		return
	}
	if _, exists := entries[row.ID]; exists {
		s.log.Warn("dropping duplicate CreateTimer", logger.Int64("oid", int64(oid)), logger.Int64("id", row.ID))
		return
	}

	timerCtx, cancel := context.WithCancel(ctx)
	entries[row.ID] = &timerEntry{row: row, cancel: cancel}
	s.pendingTimers.Add(1)

	traceID := uuid.NewString()
	s.wg.Add(1)
	go s.sleepTask(timerCtx, traceID, oid, row)
}

func (s *Subsystem) sleepTask(ctx context.Context, traceID string, oid events.OID, row events.CreateTimerRow) {
	defer s.wg.Done()

	d := time.Until(row.ExpiresAt)
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}
	}

	ev := events.NewExpireTimer(oid, row.ID)
	select {
	case s.self <- ev:
	case <-ctx.Done():
	}
	s.log.Debug("timer fired", logger.String("trace_id", traceID), logger.Int64("oid", int64(oid)), logger.Int64("id", row.ID))
}

func (s *Subsystem) handleExpire(oid events.OID, id int64) {
	entries, ok := s.tables[oid]
	if !ok {
		s.log.Error("ExpireTimer for untracked table", logger.Int64("oid", int64(oid)), logger.Int64("id", id))
		return
	}
	entry, ok := entries[id]
	if !ok {
		s.log.Error("ExpireTimer for unknown timer id", logger.Int64("oid", int64(oid)), logger.Int64("id", id))
		return
	}
	delete(entries, id)
	s.pendingTimers.Add(-1)

	fired := events.NewTimerFired(oid, events.TimerRow{ID: entry.row.ID, ExpiresAt: entry.row.ExpiresAt})
	if !s.out.EnqueueRetry(fired, 64) {
		s.log.Error("executor queue full, dropping fired event; row remains unfired and will be re-armed on restart",
			logger.Int64("oid", int64(oid)), logger.Int64("id", id))
	}
}

// shutdown cancels every pending sleep task and waits for them to
// return. It is also invoked by Run when ctx is cancelled.
func (s *Subsystem) shutdown() {
	s.log.Info("timer subsystem shutting down", logger.Int("tables", len(s.tables)))
	for _, entries := range s.tables {
		for _, entry := range entries {
			entry.cancel()
		}
	}
	s.wg.Wait()
}
