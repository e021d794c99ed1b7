// Package executor implements the fire-event worker pool of spec.md
// §4.7: N goroutines sharing one executor queue, each resolving a
// fired timer's table OID and updating its row inside a transaction.
// Grounded on the teacher's src/jobs/manager.go worker-pool shape
// (ticker-driven monitor goroutine, stopChan/wg shutdown) generalized
// from a job-dispatch pool into a fixed-size fire-event pool.
package executor

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cezarmathe/horloge/internal/equeue"
	"github.com/cezarmathe/horloge/internal/events"
	"github.com/cezarmathe/horloge/internal/logger"
	"github.com/cezarmathe/horloge/internal/sqlcmds"
)

// WorkerCount returns the pool size spec.md §5 prescribes:
// max(1, hardware_parallelism/2), unless override is positive, in
// which case override wins (internal/config's ExecutorConfig.WorkerCount).
func WorkerCount(override int) int {
	if override > 0 {
		return override
	}
	if n := runtime.GOMAXPROCS(0) / 2; n > 1 {
		return n
	}
	return 1
}

// Pool runs a fixed number of worker goroutines draining one executor
// queue.
type Pool struct {
	queue   *equeue.Queue[events.ExecutorEvent]
	cmds    *sqlcmds.Commands
	pool    *pgxpool.Pool
	workers int
	log     logger.ComponentLogger
	wg      sync.WaitGroup
}

// New builds a Pool of the given size, sharing pool for all database
// access (each worker checks out its own connection per event via
// pool.Begin, matching spec.md's "each process single-threaded,
// opens its own transaction per event").
func New(queue *equeue.Queue[events.ExecutorEvent], cmds *sqlcmds.Commands, dbPool *pgxpool.Pool, workers int) *Pool {
	return &Pool{
		queue:   queue,
		cmds:    cmds,
		pool:    dbPool,
		workers: workers,
		log:     logger.NewComponentLogger("executor"),
	}
}

// Run starts the worker goroutines and blocks until ctx is cancelled,
// then waits for every in-flight event to finish processing.
func (p *Pool) Run(ctx context.Context) {
	p.log.Info("starting executor pool", logger.Int("workers", p.workers))

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	<-ctx.Done()
	p.wg.Wait()
	p.log.Info("executor pool stopped")
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	termTick := time.NewTicker(time.Second)
	defer termTick.Stop()

	// fired is fed by a dedicated goroutine blocking on the queue's
	// condition variable (equeue.Queue.DequeueWait), so the worker's
	// main select can multiplex that wakeup against the termination
	// tick instead of busy-polling.
	fired := make(chan events.ExecutorEvent)
	go func() {
		for {
			ev, ok := p.queue.DequeueWait(ctx)
			if !ok {
				return
			}
			select {
			case fired <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-termTick.C:
			// Termination is driven by ctx cancellation; this tick only
			// exists to mirror spec.md §4.7's once/sec poll cadence.
		case ev := <-fired:
			p.handleFired(ctx, id, ev)
		}
	}
}

func (p *Pool) handleFired(ctx context.Context, workerID int, ev events.ExecutorEvent) {
	table, err := p.cmds.FindTimerTable(ctx, ev.TableOID)
	if err != nil {
		if errors.Is(err, sqlcmds.ErrNoSuchTimerTable) {
			p.log.Error("fired timer references untracked table, skipping",
				logger.Int("worker", workerID), logger.Int64("oid", int64(ev.TableOID)), logger.Int64("id", ev.Row.ID))
			return
		}
		p.log.Error("failed to resolve timer table, skipping",
			logger.Int("worker", workerID), logger.Err(err))
		return
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		p.log.Error("failed to open transaction, skipping", logger.Int("worker", workerID), logger.Err(err))
		return
	}
	defer tx.Rollback(ctx)

	if err := p.cmds.MarkTimerAsFired(ctx, tx, table.Schema, table.Table, ev.Row.ID); err != nil {
		if errors.Is(err, sqlcmds.ErrTimerRowNotFound) {
			p.log.Error("fired timer row no longer exists, skipping",
				logger.Int("worker", workerID), logger.Int64("oid", int64(ev.TableOID)), logger.Int64("id", ev.Row.ID))
			return
		}
		p.log.Error("failed to mark timer as fired, skipping", logger.Int("worker", workerID), logger.Err(err))
		return
	}

	if err := tx.Commit(ctx); err != nil {
		p.log.Error("failed to commit fired timer update", logger.Int("worker", workerID), logger.Err(err))
		return
	}

	p.log.Debug("timer marked as fired", logger.Int("worker", workerID), logger.Int64("id", ev.Row.ID))
}
