// Package bootstrap implements spec.md §4.6's "Startup protocol" and
// §4.8's install script: ensure the extension schema/catalog exist,
// then enumerate tracked tables and their unfired rows into the seed
// events the timer subsystem replays before entering its main loop.
// Grounded on the teacher's src/core/server/lifecycle.go ordering
// principle (bring components up, then replay persisted state into
// them last), applied here to SQL enumeration instead of Badger
// enumeration.
package bootstrap

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cezarmathe/horloge/internal/events"
	"github.com/cezarmathe/horloge/internal/logger"
	"github.com/cezarmathe/horloge/internal/sqlcmds"
)

//go:embed install.sql
var installSQL string

// Args bundles Bootstrap's inputs: the pool, the extension schema
// name, and the channel the install script's after_insert trigger
// publishes CreateTimer notifications on.
type Args struct {
	Pool         *pgxpool.Pool
	Schema       string
	EventChannel string
}

// Bootstrap performs spec.md §4.6's startup protocol steps 3-4: it
// installs the extension schema/catalog/trigger functions (idempotent:
// every DDL statement is CREATE ... IF NOT EXISTS / CREATE OR REPLACE),
// then enumerates every tracked table and its unfired rows, returning
// the seed events the timer subsystem must replay (TrackTimersTable for
// each table, CreateTimer for each row with fired_at IS NULL) before
// entering its main loop.
func Bootstrap(ctx context.Context, args Args) ([]events.TimerSubsystemEvent, error) {
	log := logger.NewComponentLogger("bootstrap")

	conn, err := args.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: acquire connection: %w", err)
	}
	defer conn.Release()

	installStmt := fmt.Sprintf(installSQL, pgx.Identifier{args.Schema}.Sanitize(), args.EventChannel)
	if _, err := conn.Exec(ctx, installStmt); err != nil {
		return nil, fmt.Errorf("bootstrap: install schema: %w", err)
	}
	log.Info("extension schema ready", logger.String("schema", args.Schema))

	cmds := sqlcmds.New(args.Pool, args.Schema)

	tables, err := cmds.FindTimerTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: enumerate tracked tables: %w", err)
	}

	var seed []events.TimerSubsystemEvent
	for _, table := range tables {
		seed = append(seed, events.NewTrackTimersTable(table.RelID))

		rows, err := cmds.FindTimersInTable(ctx, table.Schema, table.Table)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: enumerate rows of %s.%s: %w", table.Schema, table.Table, err)
		}

		unfired := 0
		for _, row := range rows {
			if row.FiredAt != nil {
				continue
			}
			seed = append(seed, events.NewCreateTimer(table.RelID, events.CreateTimerRow{ID: row.ID, ExpiresAt: row.ExpiresAt}))
			unfired++
		}
		log.Info("enumerated tracked table",
			logger.Int64("oid", int64(table.RelID)), logger.String("table", table.Table), logger.Int("unfired", unfired))
	}

	return seed, nil
}
