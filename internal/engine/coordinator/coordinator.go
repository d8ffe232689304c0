// Package coordinator implements the blocking-client registry (C3):
// clients parked on BLPOP/XREAD are tracked here, keyed by the key they
// are waiting on, and woken by the same critical section that performed
// the write that might satisfy them (spec §4.3/§5).
//
// Waiter delivery handles are gopkg.in/eapache/channels.v1 Channels rather
// than bare Go channels, giving every waiter a typed, capacity-bounded
// mailbox without each caller re-deriving the buffering policy (spec §9's
// open question on notification back-pressure: 1 slot for list waiters,
// 100 for stream waiters, by config).
package coordinator

import (
	"time"

	"gopkg.in/eapache/channels.v1"

	"keyspaced/internal/engine"
)

// Kind distinguishes the two flavors of parked command.
type Kind int

const (
	ListPop Kind = iota
	StreamRead
)

func (k Kind) String() string {
	if k == StreamRead {
		return "stream_read"
	}
	return "list_pop"
}

// Notification is what a writer delivers to a woken waiter. Record is the
// zero value for ListPop wakes.
type Notification struct {
	Key    string
	Record engine.Record
}

// Waiter is a parked client's registry entry. The registry holds only a
// non-owning reference; the command task that created the waiter is its
// exclusive owner (spec §9).
type Waiter struct {
	ID       uint64
	Key      string
	Kind     Kind
	StartID  engine.StreamID // meaningful only for StreamRead
	ParkedAt time.Time
	ch       channels.Channel
}

// Out returns the channel the waiter should select on to receive its wake.
func (w *Waiter) Out() <-chan interface{} {
	return w.ch.Out()
}

// Coordinator is the key -> waiter-queue registry. It is not safe for
// unsynchronized concurrent use — its owner (executor.Engine) serializes
// all access under the single engine lock, per spec §5.
type Coordinator struct {
	queues map[string][]*Waiter
	nextID uint64
}

// New returns an empty registry.
func New() *Coordinator {
	return &Coordinator{queues: make(map[string][]*Waiter)}
}

// ParkListPop registers a ListPop waiter on key and returns it.
func (c *Coordinator) ParkListPop(key string, bufSize int) *Waiter {
	return c.park(key, ListPop, engine.StreamID{}, bufSize)
}

// ParkStreamRead registers a StreamRead waiter on key, starting after
// startID, and returns it.
func (c *Coordinator) ParkStreamRead(key string, startID engine.StreamID, bufSize int) *Waiter {
	return c.park(key, StreamRead, startID, bufSize)
}

func (c *Coordinator) park(key string, kind Kind, startID engine.StreamID, bufSize int) *Waiter {
	c.nextID++
	w := &Waiter{
		ID:       c.nextID,
		Key:      key,
		Kind:     kind,
		StartID:  startID,
		ParkedAt: time.Now(),
		ch:       channels.NewNativeChannel(channels.BufferCap(bufSize)),
	}
	c.queues[key] = append(c.queues[key], w)
	return w
}

// Cancel removes waiterID from key's queue. Idempotent: canceling a waiter
// that is not present (already woken, already canceled) is a no-op.
func (c *Coordinator) Cancel(key string, waiterID uint64) {
	queue, ok := c.queues[key]
	if !ok {
		return
	}
	for i, w := range queue {
		if w.ID == waiterID {
			queue = append(queue[:i], queue[i+1:]...)
			break
		}
	}
	if len(queue) == 0 {
		delete(c.queues, key)
		return
	}
	c.queues[key] = queue
}

// NotifyListPush wakes every ListPop waiter parked on key. A waiter whose
// channel cannot accept the notification without blocking (its buffer
// already holds a pending one) is dropped from the registry — it will not
// be notified again, but it is already going to be woken by the pending
// notification and will observe new data on retry.
func (c *Coordinator) NotifyListPush(key string) {
	c.notify(key, ListPop, Notification{Key: key})
}

// NotifyStreamAppend wakes every StreamRead waiter parked on key with the
// newly appended record.
func (c *Coordinator) NotifyStreamAppend(key string, record engine.Record) {
	c.notify(key, StreamRead, Notification{Key: key, Record: record})
}

func (c *Coordinator) notify(key string, kind Kind, n Notification) {
	queue, ok := c.queues[key]
	if !ok {
		return
	}
	kept := queue[:0]
	for _, w := range queue {
		if w.Kind != kind {
			kept = append(kept, w)
			continue
		}
		select {
		case w.ch.In() <- n:
			kept = append(kept, w)
		default:
			// Buffer full: drop. The waiter already has a pending
			// wake, and its owner cancels it after waking.
		}
	}
	if len(kept) == 0 {
		delete(c.queues, key)
		return
	}
	c.queues[key] = kept
}

// WaiterCounts returns the number of currently parked waiters by kind,
// for the blocked-waiters metric.
func (c *Coordinator) WaiterCounts() (listPop, streamRead int) {
	for _, queue := range c.queues {
		for _, w := range queue {
			if w.Kind == ListPop {
				listPop++
			} else {
				streamRead++
			}
		}
	}
	return
}
