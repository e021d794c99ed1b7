// Package sqlcmds implements the four parameterized queries spec.md
// §4.4 names: find_timer_table, find_timer_tables, find_timers_in_table,
// mark_timer_as_fired. Query text for find_timer_table,
// find_timer_tables and mark_timer_as_fired is embedded from
// queries/*.sql via go:embed, mirroring
// original_source/src/commands/mod.rs's include_str! pattern;
// find_timers_in_table's text is written inline. The two queries whose
// table name is only known at call time (find_timers_in_table and
// mark_timer_as_fired) fill it in through a quoted-identifier format
// string, matching
// original_source/src/commands/mod.rs and src/functions.rs exactly.
// Logging/error-wrap conventions are grounded on
// src/storage/storage_timer.go.
package sqlcmds

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cezarmathe/horloge/internal/events"
	"github.com/cezarmathe/horloge/internal/logger"
	"github.com/cezarmathe/horloge/internal/rowcodec"
)

//go:embed queries/find_timer_table.sql
var findTimerTableQuery string

//go:embed queries/find_timer_tables.sql
var findTimerTablesQuery string

//go:embed queries/mark_timer_as_fired.sql
var markTimerAsFiredQuery string

// ErrNoSuchTimerTable is returned by FindTimerTable when the OID is not
// present in the catalog (spec.md: "returns None if not tracked").
var ErrNoSuchTimerTable = errors.New("sqlcmds: oid is not a tracked timer table")

// ErrTimerRowNotFound is returned by MarkTimerAsFired when the id does
// not exist in the table at update time (spec.md: "absence of a row is
// fatal" to that event, not to the process).
var ErrTimerRowNotFound = errors.New("sqlcmds: timer row not found")

// TimerTable names a tracked relation: its OID plus schema-qualified
// name, the form find_timer_table/find_timer_tables return.
type TimerTable struct {
	RelID  events.OID
	Schema string
	Table  string
}

// Commands runs the four SQL commands against a pgx pool, scoped to
// one extension schema (the catalog table's home).
type Commands struct {
	pool   *pgxpool.Pool
	schema string
	log    logger.ComponentLogger
}

// New builds a Commands bound to the given extension schema (e.g.
// "horloge").
func New(pool *pgxpool.Pool, schema string) *Commands {
	return &Commands{
		pool:   pool,
		schema: schema,
		log:    logger.NewComponentLogger("sqlcmds"),
	}
}

// FindTimerTable joins the catalog to the system catalog for a single
// OID. Returns ErrNoSuchTimerTable if oid is not tracked.
func (c *Commands) FindTimerTable(ctx context.Context, oid events.OID) (TimerTable, error) {
	query := fmt.Sprintf(findTimerTableQuery, pgx.Identifier{c.schema}.Sanitize())

	var tt TimerTable
	err := c.pool.QueryRow(ctx, query, oid).Scan(&tt.RelID, &tt.Schema, &tt.Table)
	if errors.Is(err, pgx.ErrNoRows) {
		return TimerTable{}, ErrNoSuchTimerTable
	}
	if err != nil {
		c.log.Error("failed to find timer table", logger.Int64("oid", int64(oid)), logger.Err(err))
		return TimerTable{}, fmt.Errorf("sqlcmds: find_timer_table: %w", err)
	}

	return tt, nil
}

// FindTimerTables enumerates every table registered in the catalog.
func (c *Commands) FindTimerTables(ctx context.Context) ([]TimerTable, error) {
	query := fmt.Sprintf(findTimerTablesQuery, pgx.Identifier{c.schema}.Sanitize())

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		c.log.Error("failed to list timer tables", logger.Err(err))
		return nil, fmt.Errorf("sqlcmds: find_timer_tables: %w", err)
	}
	defer rows.Close()

	var out []TimerTable
	for rows.Next() {
		var tt TimerTable
		if err := rows.Scan(&tt.RelID, &tt.Schema, &tt.Table); err != nil {
			return nil, fmt.Errorf("sqlcmds: find_timer_tables: scan: %w", err)
		}
		out = append(out, tt)
	}
	return out, rows.Err()
}

// FindTimersInTable reads every row of a tracked table. Per spec.md
// §4.4 this currently reads all rows, including completed ones; a
// filtered variant selecting only fired_at IS NULL is future work, not
// implemented here (see DESIGN.md open questions).
func (c *Commands) FindTimersInTable(ctx context.Context, schema, table string) ([]events.TimerRow, error) {
	query := fmt.Sprintf(
		`select id, expires_at, fired_at, completed_at from %s.%s`,
		pgx.Identifier{schema}.Sanitize(), pgx.Identifier{table}.Sanitize(),
	)

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		c.log.Error("failed to list timers in table", logger.String("schema", schema), logger.String("table", table), logger.Err(err))
		return nil, fmt.Errorf("sqlcmds: find_timers_in_table: %w", err)
	}
	defer rows.Close()

	var out []events.TimerRow
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("sqlcmds: find_timers_in_table: values: %w", err)
		}

		named := rowcodec.NamedRow{
			"id":           values[0],
			"expires_at":   values[1],
			"fired_at":     values[2],
			"completed_at": values[3],
		}

		row, err := rowcodec.DecodeTimerRow(named)
		if err != nil {
			return nil, fmt.Errorf("sqlcmds: find_timers_in_table: decode: %w", err)
		}

		out = append(out, row)
	}
	return out, rows.Err()
}

// MarkTimerAsFired sets fired_at = now() for one row. Absence of a
// matching row is reported as ErrTimerRowNotFound; callers (executor
// workers) treat that as fatal to the event, not to the process
// (spec.md §4.7, §7).
func (c *Commands) MarkTimerAsFired(ctx context.Context, tx pgx.Tx, schema, table string, id int64) error {
	query := fmt.Sprintf(markTimerAsFiredQuery, pgx.Identifier{schema}.Sanitize(), pgx.Identifier{table}.Sanitize())

	var returnedID int64
	err := tx.QueryRow(ctx, query, id).Scan(&returnedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrTimerRowNotFound
	}
	if err != nil {
		c.log.Error("failed to mark timer as fired", logger.Int64("id", id), logger.Err(err))
		return fmt.Errorf("sqlcmds: mark_timer_as_fired: %w", err)
	}
	return nil
}
