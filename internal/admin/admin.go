// Package admin implements the three SQL entrypoints spec.md §6 names
// (create_timers_table, activate_timers, deactivate_timers) as one-shot
// operations a CLI invocation runs against Postgres directly, instead
// of as pgrx-exposed SQL functions running inside a session. Since a
// table's trigger-install/uninstall is pure DDL with no subsystem state
// to touch, only create_timers_table needs to tell a running timer
// subsystem anything; it does so over the same pg_notify control
// channel the triggers package listens on (SPEC_FULL.md ADAPTATIONS
// #3), carrying a TrackTimersTable event instead of enqueueing directly
// into in-process shared memory the way original_source/src/functions.rs
// does.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cezarmathe/horloge/internal/events"
	"github.com/cezarmathe/horloge/internal/logger"
)

// sqlExecutor is the subset of *pgx.Conn and pgx.Tx that the batched
// DDL statements need; activateTimers runs against either depending on
// whether it is called standalone (ActivateTimers) or as part of the
// create_timers_table transaction.
type sqlExecutor interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// ErrNotImplemented is returned by DropTimersTable: the original
// extension never finished this operation (a bare `todo!()` stub in
// original_source/src/functions.rs), and SPEC_FULL.md carries that gap
// forward as an explicit error rather than inventing semantics for it.
var ErrNotImplemented = fmt.Errorf("admin: not implemented")

// Admin runs the three DDL entrypoints against one connection, scoped
// to one extension schema and one control channel.
type Admin struct {
	conn           *pgx.Conn
	schema         string
	controlChannel string
	log            logger.ComponentLogger
}

// New wraps an already-open connection. Callers own the connection's
// lifecycle (these are one-shot CLI operations, not pooled workers).
func New(conn *pgx.Conn, schema, controlChannel string) *Admin {
	return &Admin{conn: conn, schema: schema, controlChannel: controlChannel, log: logger.NewComponentLogger("admin")}
}

// qualifiedRelation splits "schema.table" or bare "table" (current
// schema) and returns the independently-quoted fully qualified name,
// exactly as original_source/src/functions.rs's create_timers_table
// does.
func qualifiedRelation(rel string) (fq string, schemaExpr string) {
	if schema, table, ok := strings.Cut(rel, "."); ok {
		return pgx.Identifier{schema, table}.Sanitize(), quoteLiteral(schema)
	}
	return pgx.Identifier{rel}.Sanitize(), "current_schema()"
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// CreateTimersTable creates a new tracked table (id/expires_at/fired_at
// /completed_at), registers it in the catalog, activates its triggers,
// and notifies any running timer subsystem to start tracking it.
func (a *Admin) CreateTimersTable(ctx context.Context, rel string) error {
	fq, schemaExpr := qualifiedRelation(rel)
	_, table, ok := strings.Cut(rel, ".")
	if !ok {
		table = rel
	}

	tx, err := a.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("admin: create_timers_table: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	createTable := fmt.Sprintf(`
		create table %s (
			id bigint generated always as identity primary key,
			expires_at timestamp not null,
			fired_at timestamp,
			completed_at timestamp
		)`, fq)
	if _, err := tx.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("admin: create_timers_table: create table: %w", err)
	}

	catalogInsert := fmt.Sprintf(`
		with table_oid as (
			select c.oid
			from pg_catalog.pg_class c
			join pg_catalog.pg_namespace n on n.oid = c.relnamespace
			where c.relname = %s
			and n.nspname = %s
		)
		insert into %s.timer_relations (relid)
		select oid from table_oid
		returning relid`, quoteLiteral(table), schemaExpr, pgx.Identifier{a.schema}.Sanitize())

	var relID events.OID
	if err := tx.QueryRow(ctx, catalogInsert).Scan(&relID); err != nil {
		return fmt.Errorf("admin: create_timers_table: catalog insert: %w", err)
	}

	if err := a.activateTimers(ctx, tx, fq); err != nil {
		return fmt.Errorf("admin: create_timers_table: activate: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("admin: create_timers_table: commit: %w", err)
	}

	if err := a.notifyTrack(ctx, relID); err != nil {
		// Table and triggers are already committed; a subsystem that
		// isn't currently running will pick this table up at its next
		// bootstrap regardless (spec.md §4.8), so this is a warning,
		// not a failed operation.
		a.log.Warn("failed to notify running subsystem of new table", logger.Err(err))
	}

	a.log.Info("created timers table", logger.String("relation", rel), logger.Int64("oid", int64(relID)))
	return nil
}

// DropTimersTable is not implemented; see ErrNotImplemented.
func (a *Admin) DropTimersTable(ctx context.Context, rel string) error {
	return ErrNotImplemented
}

// ActivateTimers (re)installs all six triggers on rel in one batched
// statement.
func (a *Admin) ActivateTimers(ctx context.Context, rel string) error {
	fq, _ := qualifiedRelation(rel)
	if err := a.activateTimers(ctx, a.conn, fq); err != nil {
		return fmt.Errorf("admin: activate_timers: %w", err)
	}
	a.log.Info("activated timers", logger.String("relation", rel))
	return nil
}

func (a *Admin) activateTimers(ctx context.Context, exec sqlExecutor, fq string) error {
	query := fmt.Sprintf(`
		create or replace trigger horloge_timers_before_insert
			before insert on %[1]s
			for each row
			execute procedure %[2]s.horloge_timers_before_insert();
		create or replace trigger horloge_timers_after_insert
			after insert on %[1]s
			for each row
			execute procedure %[2]s.horloge_timers_after_insert();
		create or replace trigger horloge_timers_before_update
			before update on %[1]s
			for each row
			execute procedure %[2]s.horloge_timers_before_update();
		create or replace trigger horloge_timers_after_update
			after update on %[1]s
			for each row
			execute procedure %[2]s.horloge_timers_after_update();
		create or replace trigger horloge_timers_before_delete
			before delete on %[1]s
			for each row
			execute procedure %[2]s.horloge_timers_before_delete();
		create or replace trigger horloge_timers_after_delete
			after delete on %[1]s
			for each row
			execute procedure %[2]s.horloge_timers_after_delete();
	`, fq, pgx.Identifier{a.schema}.Sanitize())

	_, err := exec.Exec(ctx, query)
	return err
}

// DeactivateTimers drops all six triggers from rel, if present. Per
// original_source/src/functions.rs and spec.md §9, no event is emitted
// to the timer subsystem: a table can be deactivated while timers are
// still in flight, and the subsystem keeps tracking it until an
// UntrackTimersTable event arrives through some other path.
func (a *Admin) DeactivateTimers(ctx context.Context, rel string) error {
	fq, _ := qualifiedRelation(rel)

	query := fmt.Sprintf(`
		drop trigger if exists horloge_timers_before_insert on %[1]s;
		drop trigger if exists horloge_timers_after_insert on %[1]s;
		drop trigger if exists horloge_timers_before_update on %[1]s;
		drop trigger if exists horloge_timers_after_update on %[1]s;
		drop trigger if exists horloge_timers_before_delete on %[1]s;
		drop trigger if exists horloge_timers_after_delete on %[1]s;
	`, fq)

	if _, err := a.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("admin: deactivate_timers: %w", err)
	}
	a.log.Info("deactivated timers", logger.String("relation", rel))
	return nil
}

// notifyTrack publishes a TrackTimersTable event on the control
// channel for any running triggers.Listener to decode and forward.
func (a *Admin) notifyTrack(ctx context.Context, relID events.OID) error {
	payload, err := json.Marshal(struct {
		Kind     string     `json:"kind"`
		TableOID events.OID `json:"table_oid"`
	}{Kind: string(events.EventTrackTimersTable), TableOID: relID})
	if err != nil {
		return fmt.Errorf("marshal notify payload: %w", err)
	}

	_, err = a.conn.Exec(ctx, fmt.Sprintf("select pg_notify(%s, %s)",
		quoteLiteral(a.controlChannel), quoteLiteral(string(payload))))
	return err
}
