// Package triggers is the Go-side half of the "triggers running inside
// arbitrary user sessions publish onto a queue living in a different
// process's memory" adaptation (SPEC_FULL.md ADAPTATIONS #3). The SQL
// trigger functions embedded in internal/bootstrap's install script
// call pg_notify on the extension's event channel instead of writing
// directly into a shared-memory queue; Listener holds a dedicated LISTEN
// connection, decodes each notification back into a TimerSubsystemEvent,
// and pushes it onto the in-memory queue exactly as the original
// trigger's in-process call would have.
package triggers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cezarmathe/horloge/internal/equeue"
	"github.com/cezarmathe/horloge/internal/events"
	"github.com/cezarmathe/horloge/internal/logger"
)

// notifyPayload is the JSON shape published by the install-time
// trigger functions (see internal/bootstrap/install.sql). Only the
// fields relevant to Kind are populated by any given notification.
type notifyPayload struct {
	Kind     string                `json:"kind"`
	TableOID events.OID            `json:"table_oid"`
	TimerID  int64                 `json:"timer_id,omitempty"`
	Row      events.CreateTimerRow `json:"row,omitempty"`
}

// Listener owns one dedicated connection executing LISTEN on the
// extension's event channel, translating notifications into
// TimerSubsystemEvent values pushed onto dst. It does not pool: a
// LISTEN session must hold its connection open for the session's
// entire lifetime, so it is acquired and released explicitly rather
// than borrowed from a pgxpool.Pool.
type Listener struct {
	connString string
	channels   []string
	dst        *equeue.Queue[events.TimerSubsystemEvent]
	retries    int
	log        logger.ComponentLogger
}

// New builds a Listener that will LISTEN on every channel in channels
// using a fresh connection to connString, pushing decoded events onto
// dst with up to retries attempts per event (mirrors the bounded-retry
// contract queue producers get elsewhere, spec.md §4.3). horloge uses
// two channels on the same bus: the event channel trigger functions
// publish to, and the control channel CLI entrypoints (e.g.
// create_timers_table) publish to.
func New(connString string, channels []string, dst *equeue.Queue[events.TimerSubsystemEvent], retries int) *Listener {
	return &Listener{
		connString: connString,
		channels:   channels,
		dst:        dst,
		retries:    retries,
		log:        logger.NewComponentLogger("triggers"),
	}
}

// Run opens the LISTEN connection and blocks, decoding and forwarding
// notifications until ctx is cancelled or the connection is lost. On
// connection loss it returns an error; callers restart it under their
// own supervision policy (mirrors the bgworker restart-cooldown loop
// described in SPEC_FULL.md ADAPTATIONS #4).
func (l *Listener) Run(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return fmt.Errorf("triggers: connect: %w", err)
	}
	defer conn.Close(context.Background())

	for _, channel := range l.channels {
		if _, err := conn.Exec(ctx, fmt.Sprintf("listen %s", pgx.Identifier{channel}.Sanitize())); err != nil {
			return fmt.Errorf("triggers: listen %s: %w", channel, err)
		}
	}
	l.log.Info("listening for timer events", logger.Any("channels", l.channels))

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("triggers: wait for notification: %w", err)
		}

		event, err := decodeNotification(notification.Payload)
		if err != nil {
			l.log.Warn("dropping malformed notification", logger.String("payload", notification.Payload), logger.Err(err))
			continue
		}

		if !l.dst.EnqueueRetry(event, l.retries) {
			l.log.Error("dropped timer event: queue full after retries",
				logger.String("kind", string(event.Kind)), logger.Int64("oid", int64(event.TableOID)))
		}
	}
}

func decodeNotification(payload string) (events.TimerSubsystemEvent, error) {
	var p notifyPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return events.TimerSubsystemEvent{}, fmt.Errorf("unmarshal payload: %w", err)
	}

	switch events.EventKind(p.Kind) {
	case events.EventCreateTimer:
		return events.NewCreateTimer(p.TableOID, p.Row), nil
	case events.EventExpireTimer:
		return events.NewExpireTimer(p.TableOID, p.TimerID), nil
	case events.EventTrackTimersTable:
		return events.NewTrackTimersTable(p.TableOID), nil
	case events.EventUntrackTimersTable:
		return events.NewUntrackTimersTable(p.TableOID), nil
	default:
		return events.TimerSubsystemEvent{}, fmt.Errorf("unknown event kind %q", p.Kind)
	}
}

// RunSupervised runs the listener in a restart-with-cooldown loop,
// grounded on the same supervisor shape SPEC_FULL.md's bootstrap entry
// point uses for long-running workers (SPEC_FULL.md ADAPTATIONS #4). It
// blocks until ctx is cancelled.
func RunSupervised(ctx context.Context, l *Listener, cooldown time.Duration) {
	for ctx.Err() == nil {
		if err := l.Run(ctx); err != nil && ctx.Err() == nil {
			l.log.Error("listener stopped, restarting after cooldown", logger.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(cooldown):
			}
		}
	}
}
