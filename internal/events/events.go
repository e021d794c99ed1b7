// Package events defines the wire-level vocabulary shared by triggers,
// the timer subsystem, and the executor pool: timer rows and the two
// tagged-union event types described in spec.md §3.
package events

import "time"

// OID is a stable, database-assigned relation identifier (Postgres
// OID). Tracked tables are indexed by it throughout horloge.
type OID = uint32

// TimerRow is the semantic record for one row of a tracked table.
type TimerRow struct {
	ID          int64      `json:"id"`
	ExpiresAt   time.Time  `json:"expires_at"`
	FiredAt     *time.Time `json:"fired_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CreateTimerRow is the reduced form used when a timer must still be
// armed: fired_at and completed_at are absent by construction.
type CreateTimerRow struct {
	ID        int64     `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EventKind tags a TimerSubsystemEvent's variant.
type EventKind string

const (
	EventCreateTimer        EventKind = "create_timer"
	EventExpireTimer        EventKind = "expire_timer"
	EventTrackTimersTable   EventKind = "track_timers_table"
	EventUntrackTimersTable EventKind = "untrack_timers_table"
)

// TimerSubsystemEvent is the four-case tagged variant consumed by the
// timer subsystem's single owning goroutine (spec.md §3, §4.6). Only
// the fields relevant to Kind are populated.
type TimerSubsystemEvent struct {
	Kind      EventKind      `json:"kind"`
	TableOID  OID            `json:"table_oid"`
	TimerID   int64          `json:"timer_id,omitempty"`
	Row       CreateTimerRow `json:"row,omitempty"`
}

// NewCreateTimer builds a CreateTimer event.
func NewCreateTimer(tableOID OID, row CreateTimerRow) TimerSubsystemEvent {
	return TimerSubsystemEvent{Kind: EventCreateTimer, TableOID: tableOID, Row: row, TimerID: row.ID}
}

// NewExpireTimer builds an ExpireTimer event.
func NewExpireTimer(tableOID OID, timerID int64) TimerSubsystemEvent {
	return TimerSubsystemEvent{Kind: EventExpireTimer, TableOID: tableOID, TimerID: timerID}
}

// NewTrackTimersTable builds a TrackTimersTable event.
func NewTrackTimersTable(tableOID OID) TimerSubsystemEvent {
	return TimerSubsystemEvent{Kind: EventTrackTimersTable, TableOID: tableOID}
}

// NewUntrackTimersTable builds an UntrackTimersTable event.
func NewUntrackTimersTable(tableOID OID) TimerSubsystemEvent {
	return TimerSubsystemEvent{Kind: EventUntrackTimersTable, TableOID: tableOID}
}

// ExecutorEventKind tags an ExecutorEvent's variant. Only one case
// exists today (spec.md §3); the tag is kept for forward compatibility
// the way the source spec anticipates ("in the current design").
type ExecutorEventKind string

const ExecutorEventTimerFired ExecutorEventKind = "timer_fired"

// ExecutorEvent is handed from the timer subsystem to the executor
// pool when a timer expires.
type ExecutorEvent struct {
	Kind     ExecutorEventKind `json:"kind"`
	TableOID OID               `json:"table_oid"`
	Row      TimerRow          `json:"row"`
}

// NewTimerFired builds a TimerFired executor event.
func NewTimerFired(tableOID OID, row TimerRow) ExecutorEvent {
	return ExecutorEvent{Kind: ExecutorEventTimerFired, TableOID: tableOID, Row: row}
}
