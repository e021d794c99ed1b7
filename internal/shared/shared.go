// Package shared wires the two bounded event queues spec.md §5 calls
// "shared mutable state" into the process-wide Shared Object every
// component attaches to during startup: triggers/listener enqueue into
// TriggerQueue, the timer subsystem drains it and enqueues into
// ExecutorQueue, and the executor pool drains that.
package shared

import (
	"github.com/cezarmathe/horloge/internal/equeue"
	"github.com/cezarmathe/horloge/internal/events"
	"github.com/cezarmathe/horloge/internal/sharedobject"
)

// Queues is the value type living inside the Shared Object: one queue
// per directed edge in spec.md §2's data-flow diagram.
type Queues struct {
	Trigger  *equeue.Queue[events.TimerSubsystemEvent]
	Executor *equeue.Queue[events.ExecutorEvent]
}

var object = sharedobject.New[Queues]("horloge.shared_queues")

// Init attaches the shared queues with the given capacity. Must be
// called exactly once per process, before any producer/consumer runs.
func Init(capacity int) *Queues {
	q := &Queues{
		Trigger:  equeue.New[events.TimerSubsystemEvent](capacity),
		Executor: equeue.New[events.ExecutorEvent](capacity),
	}
	object.Attach(q)
	return q
}

// Get returns the attached queues. Panics if Init has not run.
func Get() *Queues {
	return object.Get()
}
